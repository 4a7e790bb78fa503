package main

import (
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/auth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	flagEmail          = "email"
	flagPassword       = "password"
	flagCode           = "code"
	flagToken          = "token"
	flagNewPassword    = "new-password"
	flagPin            = "pin"
	flagConfirm        = "confirm"
	flagFirstName      = "first-name"
	flagLastName       = "last-name"
	flagIdentityType   = "identity-type"
	flagIdentityNumber = "identity-number"
)

var errCommandFailed = errors.New("command failed")

type outcomeView struct {
	Route     auth.Route `json:"route"`
	Stage     auth.Stage `json:"stage"`
	SubjectID string     `json:"subjectId,omitempty"`
	Email     string     `json:"email,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func (state *cli) printOutcome(cmd *cobra.Command, outcome auth.Outcome) error {
	view := outcomeView{
		Route:     outcome.Route,
		Stage:     state.application.Auth.Stage(),
		SubjectID: outcome.Session.SubjectID,
		Email:     outcome.Session.Email,
	}
	if outcome.Err != nil {
		view.Error = outcome.Err.Error()
	}
	return printJSON(cmd, view)
}

func succeeded(ok bool) error {
	if !ok {
		return errCommandFailed
	}
	return nil
}

func newStatusCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Restore the stored session and report where the user should land",
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.printOutcome(cmd, state.application.Resume(cmd.Context()))
		},
	}
}

func newSignupCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString(flagEmail)
			password, _ := cmd.Flags().GetString(flagPassword)
			return succeeded(state.application.Auth.Signup(cmd.Context(), email, password))
		},
	}
	cmd.Flags().String(flagEmail, "", "account email")
	cmd.Flags().String(flagPassword, "", "account password")
	return cmd
}

func newVerifyCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Submit the emailed verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString(flagEmail)
			code, _ := cmd.Flags().GetString(flagCode)
			return state.printOutcome(cmd, state.application.Auth.VerifyEmail(cmd.Context(), email, code))
		},
	}
	cmd.Flags().String(flagEmail, "", "account email")
	cmd.Flags().String(flagCode, "", "verification code")
	return cmd
}

func newResendCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Request a new verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString(flagEmail)
			return succeeded(state.application.Auth.ResendVerification(cmd.Context(), email))
		},
	}
	cmd.Flags().String(flagEmail, "", "account email")
	return cmd
}

func newBiodataCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biodata",
		Short: "Store the profile of the verified account",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			email, _ := flags.GetString(flagEmail)
			biodata := auth.Biodata{}
			biodata.FirstName, _ = flags.GetString(flagFirstName)
			biodata.LastName, _ = flags.GetString(flagLastName)
			biodata.IdentityType, _ = flags.GetString(flagIdentityType)
			biodata.IdentityNumber, _ = flags.GetString(flagIdentityNumber)
			if err := state.application.Auth.SubmitBiodata(cmd.Context(), email, biodata); err != nil {
				if errors.Is(err, auth.ErrInvalidConfig) {
					return fmt.Errorf("profile storage needs --%s and --%s: %w", flagSupabaseURL, flagSupabaseKey, err)
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().String(flagEmail, "", "account email")
	cmd.Flags().String(flagFirstName, "", "first name")
	cmd.Flags().String(flagLastName, "", "last name")
	cmd.Flags().String(flagIdentityType, "", "BVN or NIN")
	cmd.Flags().String(flagIdentityNumber, "", "11-digit identity number")
	return cmd
}

func newLoginCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString(flagEmail)
			password, _ := cmd.Flags().GetString(flagPassword)
			outcome := state.application.Auth.Login(cmd.Context(), email, password)
			if outcome.Session.SubjectID != "" {
				if err := state.application.Wallet.Refresh(cmd.Context(), outcome.Session.SubjectID); err != nil {
					state.logger.Warn("wallet refresh after login failed", zap.Error(err))
				}
			}
			return state.printOutcome(cmd, outcome)
		},
	}
	cmd.Flags().String(flagEmail, "", "account email")
	cmd.Flags().String(flagPassword, "", "account password")
	return cmd
}

func newLogoutCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and clear stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			state.application.Auth.Logout(cmd.Context())
			return nil
		},
	}
}

func newResetRequestCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-request",
		Short: "Email a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString(flagEmail)
			return succeeded(state.application.Auth.RequestPasswordReset(cmd.Context(), email))
		},
	}
	cmd.Flags().String(flagEmail, "", "account email")
	return cmd
}

func newResetPasswordCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString(flagToken)
			newPassword, _ := cmd.Flags().GetString(flagNewPassword)
			return succeeded(state.application.Auth.ResetPassword(cmd.Context(), token, newPassword))
		},
	}
	cmd.Flags().String(flagToken, "", "reset token from the email")
	cmd.Flags().String(flagNewPassword, "", "new password")
	return cmd
}

func newPinCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the payment PIN",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create the payment PIN for the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := state.resume(cmd); err != nil {
				return err
			}
			pin, _ := cmd.Flags().GetString(flagPin)
			confirm, _ := cmd.Flags().GetString(flagConfirm)
			return succeeded(state.application.Auth.CreatePin(cmd.Context(), pin, confirm))
		},
	}
	create.Flags().String(flagPin, "", "4-digit PIN")
	create.Flags().String(flagConfirm, "", "the same PIN again")

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check a PIN before a sensitive action",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := state.resume(cmd); err != nil {
				return err
			}
			pin, _ := cmd.Flags().GetString(flagPin)
			return succeeded(state.application.Auth.VerifyPin(cmd.Context(), pin))
		},
	}
	verify.Flags().String(flagPin, "", "4-digit PIN")

	login := &cobra.Command{
		Use:   "login",
		Short: "Exchange the PIN for a fresh token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := state.resume(cmd); err != nil {
				return err
			}
			pin, _ := cmd.Flags().GetString(flagPin)
			return state.printOutcome(cmd, state.application.Auth.LoginWithPin(cmd.Context(), pin))
		},
	}
	login.Flags().String(flagPin, "", "4-digit PIN")

	cmd.AddCommand(create, verify, login)
	return cmd
}
