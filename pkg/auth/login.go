package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/authapi"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/session"
	"go.uber.org/zap"
)

// Login signs in with email and password and decides between the dashboard and PIN setup.
func (orchestrator *Orchestrator) Login(ctx context.Context, email string, password string) Outcome {
	if err := orchestrator.check(credentials{Email: email, Password: password}); err != nil {
		orchestrator.failure(titleLoginFailed, err.Error())
		return Outcome{Route: RouteLogin, Err: err}
	}
	orchestrator.setStage(StageAuthenticating)

	pair, err := orchestrator.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, gateway.ErrUnexpectedShape) {
			return orchestrator.undecodableLogin()
		}
		return orchestrator.rejectedLogin(ctx, err)
	}
	orchestrator.saveTokens(ctx, pair)

	current, err := session.FromToken(pair.AccessToken)
	if err != nil {
		return orchestrator.undecodableLogin()
	}
	orchestrator.establish(current, StagePinCheck)
	if orchestrator.hasPin(ctx, current.SubjectID) {
		orchestrator.setStage(StageDashboard)
		orchestrator.success(titleLoginSuccessful, fmt.Sprintf(formatWelcomeBack, current.Email))
		return Outcome{Route: RouteDashboard, Session: current}
	}
	orchestrator.setStage(StagePinSetup)
	orchestrator.success(titlePinSetupRequired, descriptionPinSetup)
	return Outcome{Route: RoutePinSetup, Session: current}
}

// undecodableLogin reports a successful login whose token yields no session.
func (orchestrator *Orchestrator) undecodableLogin() Outcome {
	orchestrator.logger.Warn("login token could not be decoded")
	orchestrator.reset(StageDashboard)
	orchestrator.failure(titleLoginWarning, descriptionLoginWarn)
	return Outcome{Route: RouteDashboard, Err: ErrTokenDecode}
}

// rejectedLogin handles a failed login, including the PIN-required partial success.
func (orchestrator *Orchestrator) rejectedLogin(ctx context.Context, err error) Outcome {
	message := serverMessage(err)
	if message != "" && IsPinRequiredMessage(message) {
		var statusError *gateway.StatusError
		if errors.As(err, &statusError) {
			pair, ok := authapi.ParseTokens(statusError.Body)
			if ok {
				if current, decodeErr := session.FromToken(pair.AccessToken); decodeErr == nil {
					orchestrator.saveTokens(ctx, pair)
					orchestrator.establish(current, StagePinSetup)
					orchestrator.success(titlePinSetupRequired, descriptionPinRequired)
					return Outcome{Route: RoutePinSetup, Session: current, Err: ErrPinRequired}
				}
			}
		}
		orchestrator.reset(StageUnauthenticated)
		orchestrator.failure(titleLoginFailed, message)
		return Outcome{Route: RouteLogin, Err: fmt.Errorf("%w: %s", ErrInvalidCredentials, message)}
	}

	orchestrator.reset(StageUnauthenticated)
	orchestrator.logger.Info("login rejected", zap.Int("status", gateway.StatusCode(err)), zap.Error(err))
	orchestrator.failure(titleLoginFailed, describe(err, descriptionBadLogin))
	return Outcome{Route: RouteLogin, Err: classify(err)}
}

// LoginWithPin exchanges the session's PIN for fresh tokens.
func (orchestrator *Orchestrator) LoginWithPin(ctx context.Context, pin string) Outcome {
	if err := orchestrator.check(pinEntry{Pin: pin}); err != nil {
		orchestrator.failure(titleInvalidPin, descriptionPinDigits)
		return Outcome{Route: RouteLogin, Err: err}
	}
	current := orchestrator.Session()
	if current.SubjectID == "" {
		orchestrator.failure(titleUserError, descriptionNoUser)
		return Outcome{Route: RouteLogin, Err: ErrNoSession}
	}
	pair, err := orchestrator.api.PinLogin(ctx, current.SubjectID, pin)
	if err != nil {
		orchestrator.failure(titleLoginFailed, describe(err, descriptionWrongPin))
		return Outcome{Route: RouteLogin, Session: current, Err: classify(err)}
	}
	orchestrator.saveTokens(ctx, pair)
	if refreshed, decodeErr := session.FromToken(pair.AccessToken); decodeErr == nil {
		current = refreshed
	}
	orchestrator.establish(current, StageDashboard)
	orchestrator.success(titleLoginSuccessful, fmt.Sprintf(formatWelcomeBack, current.Email))
	return Outcome{Route: RouteDashboard, Session: current}
}

// CheckAuthStatus re-establishes a session from stored tokens at startup.
func (orchestrator *Orchestrator) CheckAuthStatus(ctx context.Context) Outcome {
	pair, err := orchestrator.tokens.Load(ctx)
	if err != nil {
		orchestrator.logger.Error("token store load failed", zap.Error(err))
		orchestrator.reset(StageUnauthenticated)
		return Outcome{Route: RouteLogin, Err: err}
	}
	if pair.AccessToken == "" {
		orchestrator.reset(StageUnauthenticated)
		return Outcome{Route: RouteLogin}
	}

	user, err := orchestrator.api.CurrentUser(ctx)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnexpectedShape):
			orchestrator.logger.Warn("current user payload not recognised", zap.Error(err))
			return orchestrator.signedOut(ctx, fmt.Errorf("%w: %v", ErrNoSession, err))
		case gateway.IsUnauthorized(err):
			return orchestrator.signedOut(ctx, fmt.Errorf("%w: %v", ErrNoSession, err))
		default:
			orchestrator.logger.Warn("session check failed, keeping tokens", zap.Error(err))
			orchestrator.failure(titleConnectionError, descriptionConnection)
			return Outcome{Route: RouteOffline, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		}
	}

	current, err := session.New(user.ID, user.Email)
	if err != nil {
		return orchestrator.signedOut(ctx, fmt.Errorf("%w: %v", ErrNoSession, err))
	}
	orchestrator.establish(current, StagePinCheck)
	if orchestrator.hasPin(ctx, current.SubjectID) {
		orchestrator.setStage(StageDashboard)
		return Outcome{Route: RouteDashboard, Session: current}
	}
	orchestrator.setStage(StagePinSetup)
	return Outcome{Route: RoutePinSetup, Session: current}
}

func (orchestrator *Orchestrator) signedOut(ctx context.Context, err error) Outcome {
	orchestrator.clearTokens(ctx)
	orchestrator.reset(StageUnauthenticated)
	return Outcome{Route: RouteLogin, Err: err}
}

// Logout notifies the service, then clears tokens and the session regardless of the result.
func (orchestrator *Orchestrator) Logout(ctx context.Context) {
	if err := orchestrator.api.Logout(ctx); err != nil {
		orchestrator.logger.Warn("logout request failed", zap.Error(err))
	}
	orchestrator.clearTokens(ctx)
	orchestrator.reset(StageUnauthenticated)
	orchestrator.success(titleLoggedOut, descriptionLoggedOut)
}
