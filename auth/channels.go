package auth

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/studykit/go-study-auth/accounts"
	"github.com/studykit/go-study-auth/apps"
	"github.com/studykit/go-study-auth/identity"
	"github.com/studykit/go-study-auth/token"
)

// Channel verifiers. Each takes the resolved app and the request and returns
// either the verified account or a rejection. Errors are reserved for
// infrastructure failures, which are safe to retry and must never be
// reported as invalid credentials.

func (s *Service) verifyPassword(ctx context.Context, app *apps.App, req SignInRequest) (*accounts.Account, *SessionResult, error) {
	channel, value := req.IdentifierChannel()
	if channel == "" || req.Password == "" {
		return nil, Rejected(ReasonInvalidCredentials), nil
	}

	if channel == accounts.ChannelPhone {
		canonical, err := CanonicalPhone(value, s.phoneRegion)
		if err != nil {
			return nil, Rejected(ReasonInvalidCredentials), nil
		}
		value = canonical
	}

	account, err := s.accounts.FindByChannel(ctx, app.ID, channel, value)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			// Burn a hash comparison so unknown identifiers cost the same as
			// wrong passwords.
			s.hasher.Verify(req.Password, unknownAccountHash)
			return nil, Rejected(ReasonAccountNotFound), nil
		}
		return nil, nil, pkgerrors.Wrap(err, "[verifyPassword] account lookup")
	}

	if !s.hasher.Verify(req.Password, account.PasswordHash) {
		return nil, Rejected(ReasonInvalidCredentials), nil
	}
	return account, nil, nil
}

// unknownAccountHash is a valid bcrypt hash of an unguessable throwaway
// value, used to equalize timing when no account matches.
const unknownAccountHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func (s *Service) verifyChannelToken(ctx context.Context, app *apps.App, req SignInRequest, kind ChannelKind) (*accounts.Account, *SessionResult, error) {
	var purpose token.Purpose
	switch kind {
	case KindEmailToken:
		if !app.EmailSignInEnabled {
			return nil, nil, ErrChannelDisabled
		}
		purpose = token.PurposeEmailSignIn
	case KindPhoneToken:
		if !app.PhoneSignInEnabled {
			return nil, nil, ErrChannelDisabled
		}
		purpose = token.PurposePhoneSignIn
	default:
		return nil, Rejected(ReasonInvalidCredentials), nil
	}

	binding, err := s.tokens.Validate(ctx, req.Token, purpose, app.ID)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenExpired):
			return nil, Rejected(ReasonTokenExpired), nil
		case errors.Is(err, token.ErrTokenAlreadyUsed):
			return nil, Rejected(ReasonTokenAlreadyUsed), nil
		case errors.Is(err, token.ErrTokenNotFound),
			errors.Is(err, token.ErrPurposeMismatch),
			errors.Is(err, token.ErrBindingMismatch):
			return nil, Rejected(ReasonInvalidCredentials), nil
		}
		return nil, nil, pkgerrors.Wrap(err, "[verifyChannelToken] validate")
	}

	// Consume before reporting success so the token cannot be spent twice,
	// even if this sign-in attempt fails later.
	if err := s.tokens.Consume(ctx, req.Token); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "[verifyChannelToken] consume")
	}

	account, err := s.accounts.FindByID(ctx, binding.AppID, binding.AccountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return nil, Rejected(ReasonAccountNotFound), nil
		}
		return nil, nil, pkgerrors.Wrap(err, "[verifyChannelToken] account lookup")
	}

	// Presenting the delivered token proves control of the channel.
	marked := markChannelVerified(account, binding.Purpose)
	if marked {
		if updated, err := s.accounts.Update(ctx, account); err == nil {
			account = updated
		}
		// A version conflict here is harmless; the flag will be set by the
		// competing update or the next token sign-in.
	}
	return account, nil, nil
}

func markChannelVerified(account *accounts.Account, purpose token.Purpose) bool {
	switch purpose {
	case token.PurposeEmailSignIn:
		if !account.EmailVerified {
			account.EmailVerified = true
			return true
		}
	case token.PurposePhoneSignIn:
		if !account.PhoneVerified {
			account.PhoneVerified = true
			return true
		}
	}
	return false
}

func (s *Service) verifyOAuth(ctx context.Context, app *apps.App, req SignInRequest) (*accounts.Account, *SessionResult, error) {
	if !app.OAuthSignInEnabled || s.identityProvider == nil {
		return nil, nil, ErrChannelDisabled
	}

	ident, err := s.identityProvider.Verify(ctx, req.OAuthToken)
	if err != nil {
		if errors.Is(err, identity.ErrTokenInvalid) {
			return nil, Rejected(ReasonInvalidCredentials), nil
		}
		return nil, nil, pkgerrors.Wrap(err, "[verifyOAuth] provider verify")
	}

	// The provider authenticated the person; app binding is still ours to
	// enforce. The identity must map to an account provisioned under the
	// requested app.
	account, err := s.accounts.FindByChannel(ctx, app.ID, accounts.ChannelExternalID, ident.ExternalID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return nil, Rejected(ReasonAppMismatch), nil
		}
		return nil, nil, pkgerrors.Wrap(err, "[verifyOAuth] account lookup")
	}
	return account, nil, nil
}
