package session

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of a bearer token payload the client reads.
type Claims struct {
	Subject string
	Email   string
}

type payload struct {
	Subject any `json:"sub"`
	Email   any `json:"email"`
}

var segmentAlphabet = strings.NewReplacer("+", "-", "/", "_", "=", "")

// Decode extracts the payload of a compact token without verifying it. Only the
// middle segment is read; the header and signature may be anything. Both the
// URL-safe and the standard base64 alphabets are accepted, padded or not.
// A malformed token yields (nil, false).
func Decode(token string) (*Claims, bool) {
	segments := strings.Split(strings.TrimSpace(token), ".")
	if len(segments) != 3 {
		return nil, false
	}
	raw, err := jwt.NewParser().DecodeSegment(segmentAlphabet.Replace(segments[1]))
	if err != nil {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var decoded payload
	if err := decoder.Decode(&decoded); err != nil {
		return nil, false
	}
	return &Claims{Subject: claimText(decoded.Subject), Email: claimText(decoded.Email)}, true
}

func claimText(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return ""
	}
}
