// Package identity defines the external identity-provider capability used by
// the OAuth sign-in channel. The engine delegates token verification to a
// Provider and enforces only app binding on the result.
package identity

import (
	"context"
	"errors"
)

// ErrTokenInvalid is returned when the provider rejects the presented token.
var ErrTokenInvalid = errors.New("identity token invalid")

// Identity is the provider-verified subject. ExternalID is the shared
// identity attribute that maps to per-app account rows.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
}

// Provider verifies a raw bearer token issued by an external identity
// provider and returns the subject it authenticates.
type Provider interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}
