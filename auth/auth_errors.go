package auth

import "errors"

var (
	// ErrInvalidRequest marks malformed or ambiguous requests (missing app
	// ID, zero or multiple identifying channels). Client errors carry
	// specific messages; they pose no enumeration risk.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized marks a valid identity with insufficient privilege for
	// the requested operation, such as an app switch without the cross-app
	// capability or a target-app account.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotSignedIn is returned by session-bearing operations when the
	// presented session token resolves to nothing.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrChannelDisabled is returned when the app's policy does not allow
	// the requested sign-in channel.
	ErrChannelDisabled = errors.New("sign-in channel disabled for this app")

	// ErrVerificationInvalid is returned by VerifyChannel for tokens that are
	// unknown, expired, consumed, or bound to another purpose.
	ErrVerificationInvalid = errors.New("verification token invalid")

	// ErrResetInvalid is returned by ResetPassword for tokens that are
	// unknown, expired, consumed, or bound to another app or purpose.
	ErrResetInvalid = errors.New("password reset token invalid")
)

// GenericSignInMessage is the single user-visible message for every
// authentication failure. Unknown identifiers and wrong secrets render
// identically so callers cannot enumerate accounts.
const GenericSignInMessage = "Invalid credentials; please check and try again."

// RejectionReason is the internal reason for a rejected sign-in attempt. It
// is recorded for audit; the user-visible message does not vary with it.
type RejectionReason string

const (
	ReasonInvalidCredentials RejectionReason = "invalid_credentials"
	ReasonAccountNotFound    RejectionReason = "account_not_found"
	ReasonTokenExpired       RejectionReason = "token_expired"
	ReasonTokenAlreadyUsed   RejectionReason = "token_already_used"
	ReasonAppMismatch        RejectionReason = "app_mismatch"
)
