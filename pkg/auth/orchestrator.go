package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/session"
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(orchestrator *Orchestrator) {
		if logger != nil {
			orchestrator.logger = logger
		}
	}
}

// WithProfileStore sets the store biodata is written to.
func WithProfileStore(profiles ProfileStore) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.profiles = profiles
	}
}

// Orchestrator owns the in-memory Session and the current flow stage.
type Orchestrator struct {
	api      API
	tokens   gateway.TokenStore
	notifier notify.Notifier
	profiles ProfileStore
	logger   *zap.Logger
	validate *validator.Validate

	mutex   sync.RWMutex
	session session.Session
	stage   Stage
}

// New constructs an Orchestrator.
func New(api API, tokens gateway.TokenStore, notifier notify.Notifier, options ...Option) (*Orchestrator, error) {
	if api == nil || tokens == nil || notifier == nil {
		return nil, ErrInvalidConfig
	}
	validate, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	orchestrator := &Orchestrator{
		api:      api,
		tokens:   tokens,
		notifier: notifier,
		logger:   zap.NewNop(),
		validate: validate,
		stage:    StageUnauthenticated,
	}
	for _, option := range options {
		if option != nil {
			option(orchestrator)
		}
	}
	return orchestrator, nil
}

// Session returns the current session; it is zero when nobody is signed in.
func (orchestrator *Orchestrator) Session() session.Session {
	orchestrator.mutex.RLock()
	defer orchestrator.mutex.RUnlock()
	return orchestrator.session
}

// Stage returns the current flow stage.
func (orchestrator *Orchestrator) Stage() Stage {
	orchestrator.mutex.RLock()
	defer orchestrator.mutex.RUnlock()
	return orchestrator.stage
}

// IsPinRequiredMessage reports whether a login rejection asks the user to set up a PIN.
func IsPinRequiredMessage(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "pin") ||
		strings.Contains(lowered, "4-digit") ||
		strings.Contains(lowered, "4 digit")
}

func (orchestrator *Orchestrator) setStage(stage Stage) {
	orchestrator.mutex.Lock()
	orchestrator.stage = stage
	orchestrator.mutex.Unlock()
}

func (orchestrator *Orchestrator) establish(current session.Session, stage Stage) {
	orchestrator.mutex.Lock()
	orchestrator.session = current
	orchestrator.stage = stage
	orchestrator.mutex.Unlock()
}

func (orchestrator *Orchestrator) reset(stage Stage) {
	orchestrator.establish(session.Session{}, stage)
}

func (orchestrator *Orchestrator) saveTokens(ctx context.Context, pair gateway.TokenPair) {
	if pair.IsZero() {
		return
	}
	if err := orchestrator.tokens.Save(ctx, pair); err != nil {
		orchestrator.logger.Error("token store save failed", zap.Error(err))
	}
}

func (orchestrator *Orchestrator) clearTokens(ctx context.Context) {
	if err := orchestrator.tokens.Clear(ctx); err != nil {
		orchestrator.logger.Error("token store clear failed", zap.Error(err))
	}
}

func (orchestrator *Orchestrator) success(title string, description string) {
	orchestrator.notifier.Notify(notify.Info(title, description))
}

func (orchestrator *Orchestrator) failure(title string, description string) {
	orchestrator.notifier.Notify(notify.Failure(title, description))
}

// hasPin queries the PIN status; any failure counts as no PIN.
func (orchestrator *Orchestrator) hasPin(ctx context.Context, subjectID string) bool {
	hasPin, err := orchestrator.api.PinStatus(ctx, subjectID)
	if err != nil {
		orchestrator.logger.Warn("pin status check failed", zap.String("subject_id", subjectID), zap.Error(err))
		return false
	}
	return hasPin
}

// serverMessage returns the message the service attached to a rejection, if any.
func serverMessage(err error) string {
	var rejectedError *gateway.RejectedError
	if errors.As(err, &rejectedError) {
		return rejectedError.Message
	}
	var statusError *gateway.StatusError
	if errors.As(err, &statusError) {
		for _, path := range []string{"message", "error", "error.message"} {
			if value := gjson.GetBytes(statusError.Body, path); value.Type == gjson.String && value.String() != "" {
				return value.String()
			}
		}
	}
	return ""
}

func isNetworkFailure(err error) bool {
	if errors.Is(err, gateway.ErrNetwork) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return gateway.StatusCode(err) >= http.StatusInternalServerError
}

// classify maps a service failure onto ErrNetwork or ErrInvalidCredentials.
func classify(err error) error {
	if isNetworkFailure(err) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
}

func describe(err error, fallback string) string {
	if message := serverMessage(err); message != "" {
		return message
	}
	if isNetworkFailure(err) {
		return descriptionNetwork
	}
	return fallback
}
