// Package auth drives the signup, login, PIN and startup flows of a wallet session.
package auth

import (
	"context"
	"errors"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/authapi"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/session"
)

// Errors reported in Outcome.Err and returned by SubmitBiodata.
var (
	ErrInvalidConfig      = errors.New("invalid auth orchestrator config")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failure")
	ErrNetwork            = errors.New("network failure")
	ErrPinRequired        = errors.New("pin setup required")
	ErrTokenDecode        = session.ErrTokenDecode
	ErrNoSession          = errors.New("no session")
)

// Stage is the position of the orchestrator in the signup or login flow.
type Stage string

// Signup flow stages.
const (
	StageCredentials       Stage = "credentials"
	StageEmailVerification Stage = "email_verification"
	StageBiodata           Stage = "biodata"
	StageComplete          Stage = "complete"
)

// Login flow stages.
const (
	StageUnauthenticated Stage = "unauthenticated"
	StageAuthenticating  Stage = "authenticating"
	StagePinCheck        Stage = "pin_check"
	StageDashboard       Stage = "dashboard"
	StagePinSetup        Stage = "pin_setup"
)

// Route is the screen a caller should show next.
type Route string

// Routes returned in an Outcome.
const (
	RouteLogin             Route = "login"
	RouteEmailVerification Route = "email_verification"
	RouteBiodata           Route = "biodata"
	RoutePinSetup          Route = "pin_setup"
	RouteDashboard         Route = "dashboard"
	RouteOffline           Route = "offline"
)

// Outcome is the typed result of a routing operation.
type Outcome struct {
	Route   Route
	Session session.Session
	Err     error
}

// Biodata is the identity information collected after email verification.
type Biodata struct {
	FirstName      string `json:"firstName" validate:"required,min=2,personname"`
	LastName       string `json:"lastName" validate:"required,min=2,personname"`
	IdentityType   string `json:"identityType" validate:"required,oneof=BVN NIN"`
	IdentityNumber string `json:"identityNumber" validate:"required,len=11,number"`
}

// Profile is the row stored for a user after biodata submission.
type Profile struct {
	UserID  string
	Email   string
	Biodata Biodata
}

// API is the subset of the auth service the orchestrator drives.
type API interface {
	Register(ctx context.Context, email string, password string) error
	Login(ctx context.Context, email string, password string) (gateway.TokenPair, error)
	VerifyOTP(ctx context.Context, email string, code string) (gateway.TokenPair, error)
	ResendOTP(ctx context.Context, email string) error
	CurrentUser(ctx context.Context) (authapi.User, error)
	PinStatus(ctx context.Context, userID string) (bool, error)
	CreatePin(ctx context.Context, userID string, pin string) error
	VerifyPin(ctx context.Context, userID string, pin string) error
	PinLogin(ctx context.Context, userID string, pin string) (gateway.TokenPair, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword string) error
	Logout(ctx context.Context) error
}

// ProfileStore persists biodata profiles.
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile Profile) error
}
