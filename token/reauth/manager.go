// Package reauth manages rotating reauthentication tokens: bearer
// credentials that renew a session without re-presenting a password. Every
// successful use invalidates the presented token and issues a fresh one, so a
// captured token cannot be replayed after its legitimate use.
package reauth

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/studykit/go-study-auth/token"
)

var (
	// ErrTokenInvalid is returned for tokens that were never issued for the
	// reauth purpose or are bound to a different app.
	ErrTokenInvalid = errors.New("reauth token invalid")

	// ErrTokenAlreadyUsed is returned for stale tokens that have been rotated
	// away. This is a hard rejection, never silently accepted.
	ErrTokenAlreadyUsed = errors.New("reauth token already used")

	// ErrTokenExpired is returned when the token's validity window passed.
	ErrTokenExpired = errors.New("reauth token expired")
)

// Manager issues and rotates reauth tokens over the durable token store.
type Manager struct {
	issuer *token.Issuer
	ttl    time.Duration
}

func NewManager(issuer *token.Issuer, ttl time.Duration) (*Manager, error) {
	if issuer == nil {
		return nil, pkgerrors.New("[reauth.NewManager] token issuer is required")
	}
	if ttl <= 0 {
		return nil, pkgerrors.New("[reauth.NewManager] ttl must be positive")
	}
	return &Manager{issuer: issuer, ttl: ttl}, nil
}

// Issue mints a fresh reauth token for the account.
func (m *Manager) Issue(ctx context.Context, accountID, appID string) (string, error) {
	value, err := m.issuer.Issue(ctx, token.PurposeReauth, accountID, appID, m.ttl)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[reauth.Manager.Issue]")
	}
	return value, nil
}

// Rotate validates a presented reauth token and, on success, consumes it and
// issues a replacement bound to the same account. The returned binding
// identifies the account; the returned string is the replacement token. The
// presented token is consumed before the replacement is handed out.
func (m *Manager) Rotate(ctx context.Context, presented, appID string) (*token.Binding, string, error) {
	binding, err := m.issuer.Validate(ctx, presented, token.PurposeReauth, appID)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenAlreadyUsed):
			return nil, "", ErrTokenAlreadyUsed
		case errors.Is(err, token.ErrTokenExpired):
			return nil, "", ErrTokenExpired
		case errors.Is(err, token.ErrTokenNotFound),
			errors.Is(err, token.ErrPurposeMismatch),
			errors.Is(err, token.ErrBindingMismatch):
			return nil, "", ErrTokenInvalid
		}
		return nil, "", pkgerrors.Wrap(err, "[reauth.Manager.Rotate] validate")
	}

	if err := m.issuer.Consume(ctx, presented); err != nil {
		return nil, "", pkgerrors.Wrap(err, "[reauth.Manager.Rotate] consume")
	}

	next, err := m.issuer.Issue(ctx, token.PurposeReauth, binding.AccountID, binding.AppID, m.ttl)
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "[reauth.Manager.Rotate] issue next")
	}
	return binding, next, nil
}
