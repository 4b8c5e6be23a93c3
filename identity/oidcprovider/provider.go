// Package oidcprovider implements the identity.Provider capability against a
// standard OIDC issuer, with an optional authorization-code exchange helper
// for adapters that receive codes rather than tokens.
package oidcprovider

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	pkgerrors "github.com/pkg/errors"
	"github.com/studykit/go-study-auth/identity"
	"golang.org/x/oauth2"
)

var _ identity.Provider = (*Provider)(nil)

// Config carries the issuer settings for one upstream provider.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Provider verifies ID tokens against the issuer's published keys.
type Provider struct {
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
}

// New performs issuer discovery and builds a verifier. Discovery requires
// network access; construct at process start.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" {
		return nil, pkgerrors.New("[oidcprovider.New] issuer URL and client ID are required")
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[oidcprovider.New] issuer discovery")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	return &Provider{
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       scopes,
		},
	}, nil
}

// Verify checks the raw ID token's signature and claims and returns the
// subject it authenticates.
func (p *Provider) Verify(ctx context.Context, rawToken string) (*identity.Identity, error) {
	idToken, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, identity.ErrTokenInvalid
	}

	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, identity.ErrTokenInvalid
	}
	if claims.Sub == "" {
		return nil, identity.ErrTokenInvalid
	}

	return &identity.Identity{
		ExternalID: claims.Sub,
		Email:      claims.Email,
		Name:       claims.Name,
	}, nil
}

// Exchange trades an authorization code for the provider's ID token and
// verifies it. Adapters that run the full code flow use this instead of
// Verify.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (*identity.Identity, error) {
	opts := []oauth2.AuthCodeOption{}
	if codeVerifier != "" {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	}
	oauth2Token, err := p.oauth2.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[oidcprovider.Exchange] token exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, identity.ErrTokenInvalid
	}
	return p.Verify(ctx, rawIDToken)
}
