// Package notifications defines the out-of-band delivery capability for
// channel tokens. The engine owns orchestration only; transport (SMTP, SMS
// gateway) lives behind Sender.
package notifications

import (
	"context"

	"github.com/studykit/go-study-auth/accounts"
)

// Sender delivers tokens to a destination over the channel's transport.
type Sender interface {
	// SendVerification delivers a channel-verification token (verify this
	// email address / phone number).
	SendVerification(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error

	// SendSignInToken delivers a sign-in token: a link for email, a short
	// numeric code for SMS.
	SendSignInToken(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error

	// SendPasswordReset delivers a password-reset token.
	SendPasswordReset(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error
}
