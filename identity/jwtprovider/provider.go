// Package jwtprovider implements the identity.Provider capability for
// upstream providers that issue signed JWTs verifiable with a static shared
// key. Used in tests and in deployments where issuer discovery is
// unavailable.
package jwtprovider

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/pkg/errors"
	"github.com/studykit/go-study-auth/identity"
)

var _ identity.Provider = (*Provider)(nil)

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Provider verifies HS256-signed tokens with a shared key and an expected
// issuer.
type Provider struct {
	key    []byte
	issuer string
}

func New(key []byte, issuer string) (*Provider, error) {
	if len(key) == 0 {
		return nil, pkgerrors.New("[jwtprovider.New] signing key is required")
	}
	if issuer == "" {
		return nil, pkgerrors.New("[jwtprovider.New] issuer is required")
	}
	return &Provider{key: key, issuer: issuer}, nil
}

func (p *Provider) Verify(ctx context.Context, rawToken string) (*identity.Identity, error) {
	parsed, err := jwt.ParseWithClaims(rawToken, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.key, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, identity.ErrTokenInvalid
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return nil, identity.ErrTokenInvalid
	}

	return &identity.Identity{
		ExternalID: c.Subject,
		Email:      c.Email,
		Name:       c.Name,
	}, nil
}
