package auth

import (
	"context"
	"errors"
)

// CreatePin sets the session user's payment PIN after checking the confirmation matches.
func (orchestrator *Orchestrator) CreatePin(ctx context.Context, pin string, confirm string) bool {
	if err := orchestrator.check(pinConfirmation{Pin: pin, Confirm: confirm}); err != nil {
		var validationError *ValidationError
		if errors.As(err, &validationError) && !validationError.HasField("Pin") {
			orchestrator.failure(titlePinMismatch, descriptionPinMismatch)
			return false
		}
		orchestrator.failure(titleInvalidPin, descriptionPinDigits)
		return false
	}
	current := orchestrator.Session()
	if current.SubjectID == "" {
		orchestrator.failure(titleUserError, descriptionNoUser)
		return false
	}
	if err := orchestrator.api.CreatePin(ctx, current.SubjectID, pin); err != nil {
		orchestrator.failure(titlePinCreateFailed, describe(err, descriptionPinFailed))
		return false
	}
	orchestrator.setStage(StageDashboard)
	orchestrator.success(titlePinCreated, descriptionPinCreated)
	return true
}

// VerifyPin confirms the session user's PIN before a sensitive action.
func (orchestrator *Orchestrator) VerifyPin(ctx context.Context, pin string) bool {
	if err := orchestrator.check(pinEntry{Pin: pin}); err != nil {
		orchestrator.failure(titleInvalidPin, descriptionPinDigits)
		return false
	}
	current := orchestrator.Session()
	if current.SubjectID == "" {
		orchestrator.failure(titleUserError, descriptionNoUser)
		return false
	}
	if err := orchestrator.api.VerifyPin(ctx, current.SubjectID, pin); err != nil {
		orchestrator.failure(titlePinVerifyFailed, describe(err, descriptionWrongPin))
		return false
	}
	return true
}
