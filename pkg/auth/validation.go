package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const tagPersonName = "personname"

var personNamePattern = regexp.MustCompile(`^[a-zA-Z\s-]+$`)

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type emailAddress struct {
	Email string `validate:"required,email"`
}

type verificationCode struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required"`
}

type passwordReset struct {
	Token       string `validate:"required"`
	NewPassword string `validate:"required"`
}

type pinEntry struct {
	Pin string `validate:"required,len=4,number"`
}

type pinConfirmation struct {
	Pin     string `validate:"required,len=4,number"`
	Confirm string `validate:"eqfield=Pin"`
}

func newValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.RegisterValidation(tagPersonName, func(field validator.FieldLevel) bool {
		return personNamePattern.MatchString(field.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register %s validation: %w", tagPersonName, err)
	}
	return validate, nil
}

func (orchestrator *Orchestrator) check(input any) error {
	err := orchestrator.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		messages = append(messages, fieldMessage(fieldError))
	}
	return &ValidationError{Fields: fieldNames(fieldErrors), Message: strings.Join(messages, "; ")}
}

// ValidationError lists the fields that failed local validation.
type ValidationError struct {
	Fields  []string
	Message string
}

func (validationError *ValidationError) Error() string {
	return validationError.Message
}

// Unwrap returns ErrValidation.
func (validationError *ValidationError) Unwrap() error {
	return ErrValidation
}

// HasField reports whether name failed validation.
func (validationError *ValidationError) HasField(name string) bool {
	for _, field := range validationError.Fields {
		if field == name {
			return true
		}
	}
	return false
}

func fieldNames(fieldErrors validator.ValidationErrors) []string {
	names := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		names = append(names, fieldError.Field())
	}
	return names
}

func fieldMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()
	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please enter a valid email address"
	case tagPersonName:
		return field + " can only contain letters, spaces, and hyphens"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fieldError.Param())
	case "len":
		if field == "Pin" {
			return "Please enter a 4-digit PIN"
		}
		return fmt.Sprintf("%s must be exactly %s digits", field, fieldError.Param())
	case "number":
		return field + " must contain only digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fieldError.Param())
	case "eqfield":
		return "The PINs you entered do not match. Please try again."
	default:
		return fmt.Sprintf("%s failed %s", field, fieldError.Tag())
	}
}

func trimBiodata(biodata Biodata) Biodata {
	return Biodata{
		FirstName:      strings.TrimSpace(biodata.FirstName),
		LastName:       strings.TrimSpace(biodata.LastName),
		IdentityType:   strings.ToUpper(strings.TrimSpace(biodata.IdentityType)),
		IdentityNumber: strings.TrimSpace(biodata.IdentityNumber),
	}
}
