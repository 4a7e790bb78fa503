package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTokenDecode reports a token whose payload cannot produce a Session.
var ErrTokenDecode = errors.New("token decode failure")

// Session identifies the authenticated user for the lifetime of an app session.
type Session struct {
	SubjectID string `json:"subjectId"`
	Email     string `json:"email"`
}

// New validates and normalizes a subject id and email pair.
func New(subjectID string, email string) (Session, error) {
	trimmedSubject := strings.TrimSpace(subjectID)
	trimmedEmail := strings.TrimSpace(email)
	if trimmedSubject == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrTokenDecode)
	}
	if trimmedEmail == "" {
		return Session{}, fmt.Errorf("%w: missing email", ErrTokenDecode)
	}
	return Session{SubjectID: trimmedSubject, Email: trimmedEmail}, nil
}

// FromToken decodes a bearer token into a Session.
func FromToken(token string) (Session, error) {
	claims, ok := Decode(token)
	if !ok {
		return Session{}, fmt.Errorf("%w: malformed token", ErrTokenDecode)
	}
	return New(claims.Subject, claims.Email)
}

// IsZero reports whether the session carries no identity.
func (current Session) IsZero() bool {
	return current.SubjectID == "" && current.Email == ""
}
