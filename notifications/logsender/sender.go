// Package logsender is a development Sender that logs instead of delivering.
package logsender

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/studykit/go-study-auth/accounts"
	"github.com/studykit/go-study-auth/notifications"
)

var _ notifications.Sender = (*Sender)(nil)

type Sender struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) SendVerification(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error {
	s.log.Info().
		Str("channel", string(channel)).
		Str("destination", destination).
		Str("token", tokenValue).
		Msg("verification token (not delivered: log sender)")
	return nil
}

func (s *Sender) SendSignInToken(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error {
	s.log.Info().
		Str("channel", string(channel)).
		Str("destination", destination).
		Str("token", tokenValue).
		Msg("sign-in token (not delivered: log sender)")
	return nil
}

func (s *Sender) SendPasswordReset(ctx context.Context, channel accounts.ChannelType, destination, tokenValue string) error {
	s.log.Info().
		Str("channel", string(channel)).
		Str("destination", destination).
		Str("token", tokenValue).
		Msg("password reset token (not delivered: log sender)")
	return nil
}
