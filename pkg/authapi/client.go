// Package authapi maps the auth-service endpoints onto typed calls.
package authapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/tidwall/gjson"
)

const (
	pathRegister             = "/v1/auth/register"
	pathLogin                = "/v1/auth/login"
	pathVerifyOTP            = "/v1/auth/verify-otp"
	pathResendOTP            = "/v1/auth/resend-otp"
	pathCurrentUser          = "/v1/auth/user"
	pathPinCreate            = "/v1/pin/create"
	pathPinVerify            = "/v1/pin/verify"
	pathPinLogin             = "/v1/pin/login"
	pathPinStatus            = "/v1/pin/status"
	pathRequestPasswordReset = "/auth/v2/request-password-reset"
	pathResetPassword        = "/auth/v2/reset-password"
	pathLogout               = "/auth/v2/logout"
)

// Endpoint names used in ShapeError and RejectedError.
const (
	EndpointRegister             = "auth.register"
	EndpointLogin                = "auth.login"
	EndpointVerifyOTP            = "auth.verify_otp"
	EndpointResendOTP            = "auth.resend_otp"
	EndpointCurrentUser          = "auth.user"
	EndpointPinCreate            = "pin.create"
	EndpointPinVerify            = "pin.verify"
	EndpointPinLogin             = "pin.login"
	EndpointPinStatus            = "pin.status"
	EndpointRequestPasswordReset = "auth.request_password_reset"
	EndpointResetPassword        = "auth.reset_password"
	EndpointLogout               = "auth.logout"
)

// Doer issues gateway requests.
type Doer interface {
	Do(ctx context.Context, request gateway.Request) (json.RawMessage, error)
}

// User is the identity reported by the current-user endpoint.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client calls the auth service.
type Client struct {
	doer Doer
}

// New returns a Client backed by doer.
func New(doer Doer) (*Client, error) {
	if doer == nil {
		return nil, fmt.Errorf("%w: auth api doer is nil", gateway.ErrInvalidConfig)
	}
	return &Client{doer: doer}, nil
}

// Register creates an account.
func (client *Client) Register(ctx context.Context, email string, password string) error {
	return client.acknowledge(ctx, EndpointRegister, pathRegister, map[string]string{"email": email, "password": password}, true)
}

// Login exchanges credentials for a token pair.
func (client *Client) Login(ctx context.Context, email string, password string) (gateway.TokenPair, error) {
	body, err := client.post(ctx, pathLogin, map[string]string{"email": email, "password": password}, true)
	if err != nil {
		return gateway.TokenPair{}, err
	}
	pair, ok := ParseTokens(body)
	if !ok {
		return gateway.TokenPair{}, &gateway.ShapeError{Endpoint: EndpointLogin, Body: body}
	}
	return pair, nil
}

// VerifyOTP exchanges an emailed code for a token pair. The pair is zero when
// the service verified the address without issuing tokens.
func (client *Client) VerifyOTP(ctx context.Context, email string, code string) (gateway.TokenPair, error) {
	body, err := client.post(ctx, pathVerifyOTP, map[string]string{"email": email, "code": code}, true)
	if err != nil {
		return gateway.TokenPair{}, err
	}
	if err := rejection(EndpointVerifyOTP, body); err != nil {
		return gateway.TokenPair{}, err
	}
	pair, _ := ParseTokens(body)
	return pair, nil
}

// ResendOTP requests a new verification code.
func (client *Client) ResendOTP(ctx context.Context, email string) error {
	return client.acknowledge(ctx, EndpointResendOTP, pathResendOTP, map[string]string{"email": email}, true)
}

// CurrentUser fetches the user behind the stored bearer token.
func (client *Client) CurrentUser(ctx context.Context) (User, error) {
	body, err := client.doer.Do(ctx, gateway.Request{Service: gateway.ServiceAuth, Method: http.MethodGet, Path: pathCurrentUser})
	if err != nil {
		return User{}, err
	}
	user, ok := ParseUser(body)
	if !ok {
		return User{}, &gateway.ShapeError{Endpoint: EndpointCurrentUser, Body: body}
	}
	return user, nil
}

// PinStatus reports whether userID has a payment PIN.
func (client *Client) PinStatus(ctx context.Context, userID string) (bool, error) {
	body, err := client.doer.Do(ctx, gateway.Request{
		Service: gateway.ServiceAuth,
		Method:  http.MethodGet,
		Path:    pathPinStatus,
		Query:   url.Values{"userId": {userID}},
	})
	if err != nil {
		return false, err
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.Get("success").Bool() {
		return false, &gateway.RejectedError{Endpoint: EndpointPinStatus, Message: parsed.Get("message").String()}
	}
	hasPin := parsed.Get("data.hasPin")
	if !hasPin.IsBool() {
		return false, &gateway.ShapeError{Endpoint: EndpointPinStatus, Body: body}
	}
	return hasPin.Bool(), nil
}

// CreatePin stores a new PIN for userID.
func (client *Client) CreatePin(ctx context.Context, userID string, pin string) error {
	return client.acknowledge(ctx, EndpointPinCreate, pathPinCreate, pinBody(userID, pin), false)
}

// VerifyPin checks pin against the stored PIN of userID.
func (client *Client) VerifyPin(ctx context.Context, userID string, pin string) error {
	return client.acknowledge(ctx, EndpointPinVerify, pathPinVerify, pinBody(userID, pin), false)
}

// PinLogin exchanges a PIN for a fresh token pair.
func (client *Client) PinLogin(ctx context.Context, userID string, pin string) (gateway.TokenPair, error) {
	body, err := client.post(ctx, pathPinLogin, pinBody(userID, pin), false)
	if err != nil {
		return gateway.TokenPair{}, err
	}
	if err := rejection(EndpointPinLogin, body); err != nil {
		return gateway.TokenPair{}, err
	}
	pair, ok := ParseTokens(body)
	if !ok {
		return gateway.TokenPair{}, &gateway.ShapeError{Endpoint: EndpointPinLogin, Body: body}
	}
	return pair, nil
}

// RequestPasswordReset emails a reset link.
func (client *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return client.acknowledge(ctx, EndpointRequestPasswordReset, pathRequestPasswordReset, map[string]string{"email": email}, true)
}

// ResetPassword sets a new password using a reset token.
func (client *Client) ResetPassword(ctx context.Context, token string, newPassword string) error {
	return client.acknowledge(ctx, EndpointResetPassword, pathResetPassword, map[string]string{"token": token, "newPassword": newPassword}, true)
}

// Logout revokes the current session server-side.
func (client *Client) Logout(ctx context.Context) error {
	return client.acknowledge(ctx, EndpointLogout, pathLogout, nil, false)
}

func (client *Client) post(ctx context.Context, path string, body any, anonymous bool) (json.RawMessage, error) {
	return client.doer.Do(ctx, gateway.Request{
		Service:   gateway.ServiceAuth,
		Method:    http.MethodPost,
		Path:      path,
		Body:      body,
		Anonymous: anonymous,
	})
}

func (client *Client) acknowledge(ctx context.Context, endpoint string, path string, body any, anonymous bool) error {
	response, err := client.post(ctx, path, body, anonymous)
	if err != nil {
		return err
	}
	return rejection(endpoint, response)
}

func pinBody(userID string, pin string) map[string]string {
	return map[string]string{"userId": userID, "pin": pin}
}

// rejection returns a RejectedError when the envelope carries success=false.
func rejection(endpoint string, body []byte) error {
	success := gjson.GetBytes(body, "success")
	if success.Exists() && !success.Bool() {
		return &gateway.RejectedError{Endpoint: endpoint, Message: gjson.GetBytes(body, "message").String()}
	}
	return nil
}

// ParseTokens extracts a token pair from a login-style payload.
func ParseTokens(body []byte) (gateway.TokenPair, bool) {
	access := firstString(body, "token", "accessToken", "data.token", "data.accessToken")
	if access == "" {
		return gateway.TokenPair{}, false
	}
	return gateway.TokenPair{
		AccessToken:  access,
		RefreshToken: firstString(body, "refreshToken", "data.refreshToken"),
	}, true
}

// ParseUser extracts the current user from any of the known envelopes.
func ParseUser(body []byte) (User, bool) {
	for _, prefix := range []string{"user.", "", "data."} {
		user := User{
			ID:    stringValue(gjson.GetBytes(body, prefix+"id")),
			Email: strings.TrimSpace(gjson.GetBytes(body, prefix+"email").String()),
		}
		if user.ID != "" && user.Email != "" {
			return user, true
		}
	}
	return User{}, false
}

func stringValue(result gjson.Result) string {
	switch result.Type {
	case gjson.String:
		return strings.TrimSpace(result.Str)
	case gjson.Number:
		return result.Raw
	default:
		return ""
	}
}

func firstString(body []byte, paths ...string) string {
	for _, path := range paths {
		result := gjson.GetBytes(body, path)
		if result.Type == gjson.String && strings.TrimSpace(result.Str) != "" {
			return result.Str
		}
	}
	return ""
}
