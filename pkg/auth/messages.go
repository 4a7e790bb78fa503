package auth

const (
	descriptionNetwork = "Network error. Please try again."

	titleConnectionError   = "Connection Error"
	descriptionConnection  = "Unable to connect to the authentication service. Please check your internet connection."
	titleLoginSuccessful   = "Login Successful"
	formatWelcomeBack      = "Welcome back, %s!"
	titlePinSetupRequired  = "PIN Setup Required"
	descriptionPinSetup    = "Please create a payment PIN to secure your transactions."
	descriptionPinRequired = "Please create a 4-digit PIN to secure your account."
	titleLoginWarning      = "Login Warning"
	descriptionLoginWarn   = "Login successful but could not retrieve full user details."
	titleLoginFailed       = "Login Failed"
	descriptionBadLogin    = "Invalid email or password."

	titleSignupSuccessful  = "Signup Successful"
	descriptionSignupOK    = "Please check your email to verify your account."
	titleSignupFailed      = "Signup Failed"
	descriptionSignupBad   = "Please provide valid email and password."
	formatSignupNetwork    = "Network error: %v. Please try again."
	titleEmailVerified     = "Email Verified"
	descriptionVerifiedOK  = "Your email has been successfully verified!"
	titleVerifyFailed      = "Verification Failed"
	descriptionBadCode     = "Invalid verification code."
	titleVerificationSent  = "Verification Email Sent"
	descriptionCheckEmail  = "Please check your email for the verification code."
	titleFailedToSend      = "Failed to Send"
	descriptionSendFailed  = "Could not send verification email."
	titleValidationError   = "Validation Error"
	descriptionCheckFields = "Please check all fields and try again."
	titleFailedToSave      = "Failed to Save"
	descriptionSaveFailed  = "Could not save your information. Please try again."
	titleProfileSaved      = "Profile Saved"
	descriptionProfileOK   = "Your information has been saved."
	descriptionNoToken     = "No authentication token found"
	descriptionBadToken    = "Invalid authentication token"

	titleResetSent         = "Reset Email Sent"
	descriptionResetSent   = "Please check your email for password reset instructions."
	titleResetFailed       = "Reset Failed"
	descriptionResetBad    = "Could not process the password reset. Please try again."
	titlePasswordReset     = "Password Reset"
	descriptionPasswordNew = "Your password has been reset. Please log in."
	titleLoggedOut         = "Logged Out"
	descriptionLoggedOut   = "You have been successfully logged out."

	titlePinMismatch       = "PIN Mismatch"
	descriptionPinMismatch = "The PINs you entered do not match. Please try again."
	titleInvalidPin        = "Invalid PIN"
	descriptionPinDigits   = "Please enter a 4-digit PIN"
	titleUserError         = "User Error"
	descriptionNoUser      = "User information not found. Please try logging in again."
	titlePinCreated        = "PIN Created Successfully"
	descriptionPinCreated  = "Your payment PIN has been set up. Welcome to HyperX!"
	titlePinCreateFailed   = "PIN Creation Failed"
	descriptionPinFailed   = "Failed to create PIN. Please try again."
	titlePinVerifyFailed   = "PIN Verification Failed"
	descriptionWrongPin    = "Incorrect PIN. Please try again."
)
