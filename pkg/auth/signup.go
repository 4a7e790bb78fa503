package auth

import (
	"context"
	"fmt"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/session"
	"go.uber.org/zap"
)

// Signup registers an account and moves the flow to email verification.
func (orchestrator *Orchestrator) Signup(ctx context.Context, email string, password string) bool {
	orchestrator.setStage(StageCredentials)
	if err := orchestrator.check(credentials{Email: email, Password: password}); err != nil {
		orchestrator.failure(titleSignupFailed, err.Error())
		return false
	}
	if err := orchestrator.api.Register(ctx, email, password); err != nil {
		if message := serverMessage(err); message != "" || !isNetworkFailure(err) {
			orchestrator.failure(titleSignupFailed, describe(err, descriptionSignupBad))
		} else {
			orchestrator.failure(titleSignupFailed, fmt.Sprintf(formatSignupNetwork, err))
		}
		return false
	}
	orchestrator.setStage(StageEmailVerification)
	orchestrator.success(titleSignupSuccessful, descriptionSignupOK)
	return true
}

// VerifyEmail submits the emailed code; tokens issued with the verification establish a session.
func (orchestrator *Orchestrator) VerifyEmail(ctx context.Context, email string, code string) Outcome {
	if err := orchestrator.check(verificationCode{Email: email, Code: code}); err != nil {
		orchestrator.failure(titleVerifyFailed, err.Error())
		return Outcome{Route: RouteEmailVerification, Err: err}
	}
	pair, err := orchestrator.api.VerifyOTP(ctx, email, code)
	if err != nil {
		orchestrator.failure(titleVerifyFailed, describe(err, descriptionBadCode))
		return Outcome{Route: RouteEmailVerification, Err: classify(err)}
	}

	orchestrator.success(titleEmailVerified, descriptionVerifiedOK)
	if pair.AccessToken == "" {
		orchestrator.setStage(StageBiodata)
		return Outcome{Route: RouteLogin}
	}
	orchestrator.saveTokens(ctx, pair)
	current, err := session.FromToken(pair.AccessToken)
	if err != nil {
		orchestrator.logger.Warn("verification token could not be decoded", zap.Error(err))
		orchestrator.setStage(StageBiodata)
		return Outcome{Route: RouteLogin, Err: err}
	}
	orchestrator.establish(current, StageBiodata)
	return Outcome{Route: RouteBiodata, Session: current}
}

// ResendVerification asks the service to email a new code.
func (orchestrator *Orchestrator) ResendVerification(ctx context.Context, email string) bool {
	if err := orchestrator.check(emailAddress{Email: email}); err != nil {
		orchestrator.failure(titleFailedToSend, err.Error())
		return false
	}
	if err := orchestrator.api.ResendOTP(ctx, email); err != nil {
		orchestrator.failure(titleFailedToSend, describe(err, descriptionSendFailed))
		return false
	}
	orchestrator.success(titleVerificationSent, descriptionCheckEmail)
	return true
}

// SubmitBiodata stores the user's identity details keyed by the token subject.
func (orchestrator *Orchestrator) SubmitBiodata(ctx context.Context, email string, biodata Biodata) error {
	if orchestrator.profiles == nil {
		return ErrInvalidConfig
	}
	pair, err := orchestrator.tokens.Load(ctx)
	if err != nil || pair.AccessToken == "" {
		orchestrator.failure(titleFailedToSave, descriptionNoToken)
		return ErrNoSession
	}
	claims, ok := session.Decode(pair.AccessToken)
	if !ok || claims.Subject == "" {
		orchestrator.failure(titleFailedToSave, descriptionBadToken)
		return ErrTokenDecode
	}

	cleaned := trimBiodata(biodata)
	if err := orchestrator.check(cleaned); err != nil {
		orchestrator.failure(titleValidationError, descriptionCheckFields)
		return err
	}
	profile := Profile{UserID: claims.Subject, Email: email, Biodata: cleaned}
	if err := orchestrator.profiles.SaveProfile(ctx, profile); err != nil {
		description := err.Error()
		if description == "" {
			description = descriptionSaveFailed
		}
		orchestrator.logger.Error("profile save failed", zap.String("subject_id", claims.Subject), zap.Error(err))
		orchestrator.failure(titleFailedToSave, description)
		return err
	}
	orchestrator.setStage(StageComplete)
	orchestrator.success(titleProfileSaved, descriptionProfileOK)
	return nil
}

// RequestPasswordReset emails a reset link to email.
func (orchestrator *Orchestrator) RequestPasswordReset(ctx context.Context, email string) bool {
	if err := orchestrator.check(emailAddress{Email: email}); err != nil {
		orchestrator.failure(titleResetFailed, err.Error())
		return false
	}
	if err := orchestrator.api.RequestPasswordReset(ctx, email); err != nil {
		orchestrator.failure(titleResetFailed, describe(err, descriptionResetBad))
		return false
	}
	orchestrator.success(titleResetSent, descriptionResetSent)
	return true
}

// ResetPassword sets a new password using the emailed reset token.
func (orchestrator *Orchestrator) ResetPassword(ctx context.Context, token string, newPassword string) bool {
	if err := orchestrator.check(passwordReset{Token: token, NewPassword: newPassword}); err != nil {
		orchestrator.failure(titleResetFailed, err.Error())
		return false
	}
	if err := orchestrator.api.ResetPassword(ctx, token, newPassword); err != nil {
		orchestrator.failure(titleResetFailed, describe(err, descriptionResetBad))
		return false
	}
	orchestrator.success(titlePasswordReset, descriptionPasswordNew)
	return true
}
