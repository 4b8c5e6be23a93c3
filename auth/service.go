// Package auth is the authentication and session engine: credential
// verification across channels, consent gating, session issuance, and
// administrative cross-app switching. Durable storage, hashing, token
// delivery, and the backing cache are consumed as capability interfaces.
package auth

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/studykit/go-study-auth/accounts"
	"github.com/studykit/go-study-auth/apps"
	"github.com/studykit/go-study-auth/auth/sessions"
	"github.com/studykit/go-study-auth/identity"
	"github.com/studykit/go-study-auth/notifications"
	"github.com/studykit/go-study-auth/token"
	"github.com/studykit/go-study-auth/token/reauth"
)

const (
	defaultSignInTokenTTL = 15 * time.Minute
	defaultVerifyTokenTTL = 24 * time.Hour
	defaultResetTokenTTL  = 2 * time.Hour
	defaultPhoneRegion    = "US"
	phoneCodeDigits       = 6
)

// Dependencies holds the capability implementations the engine consumes.
type Dependencies struct {
	Accounts accounts.Store
	Apps     apps.Repo
	Hasher   accounts.CredentialHasher
	Tokens   *token.Issuer
	Reauth   *reauth.Manager
	Sessions *sessions.Manager
	Sender   notifications.Sender

	// Identity is optional; without it the OAuth channel is disabled.
	Identity identity.Provider
}

// Service exposes the engine operations. It is stateless across calls except
// for the injected session cache and backing stores; concurrent use from
// multiple request goroutines is safe.
type Service struct {
	accounts         accounts.Store
	resolver         *apps.Resolver
	hasher           accounts.CredentialHasher
	tokens           *token.Issuer
	reauth           *reauth.Manager
	sessions         *sessions.Manager
	sender           notifications.Sender
	identityProvider identity.Provider

	log            zerolog.Logger
	signInTokenTTL time.Duration
	verifyTokenTTL time.Duration
	resetTokenTTL  time.Duration
	phoneRegion    string
}

// Option modifies a Service.
type Option func(*Service)

// WithLogger sets the audit logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithSignInTokenTTL sets the validity window of email-link and SMS-code
// sign-in tokens.
func WithSignInTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.signInTokenTTL = ttl
	}
}

// WithVerifyTokenTTL sets the validity window of channel-verification tokens.
func WithVerifyTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.verifyTokenTTL = ttl
	}
}

// WithResetTokenTTL sets the validity window of password-reset tokens.
func WithResetTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.resetTokenTTL = ttl
	}
}

// WithPhoneRegion sets the default region for parsing phone identifiers.
func WithPhoneRegion(region string) Option {
	return func(s *Service) {
		s.phoneRegion = region
	}
}

// NewService initializes the engine with required capabilities. Optional
// configuration is provided via options.
func NewService(deps Dependencies, options ...Option) (*Service, error) {
	if deps.Accounts == nil {
		return nil, pkgerrors.New("[NewService] account store is required")
	}
	if deps.Apps == nil {
		return nil, pkgerrors.New("[NewService] app repo is required")
	}
	if deps.Hasher == nil {
		return nil, pkgerrors.New("[NewService] credential hasher is required")
	}
	if deps.Tokens == nil {
		return nil, pkgerrors.New("[NewService] token issuer is required")
	}
	if deps.Reauth == nil {
		return nil, pkgerrors.New("[NewService] reauth manager is required")
	}
	if deps.Sessions == nil {
		return nil, pkgerrors.New("[NewService] session manager is required")
	}
	if deps.Sender == nil {
		return nil, pkgerrors.New("[NewService] notification sender is required")
	}

	resolver, err := apps.NewResolver(deps.Apps)
	if err != nil {
		return nil, err
	}

	service := &Service{
		accounts:         deps.Accounts,
		resolver:         resolver,
		hasher:           deps.Hasher,
		tokens:           deps.Tokens,
		reauth:           deps.Reauth,
		sessions:         deps.Sessions,
		sender:           deps.Sender,
		identityProvider: deps.Identity,
		log:              zerolog.Nop(),
		signInTokenTTL:   defaultSignInTokenTTL,
		verifyTokenTTL:   defaultVerifyTokenTTL,
		resetTokenTTL:    defaultResetTokenTTL,
		phoneRegion:      defaultPhoneRegion,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// SignIn authenticates a request through its credential channel and mints a
// session. The attempt proceeds strictly in order: resolve app, locate
// account, verify credential, gate consent, issue session. Nothing is
// retried internally; a transport-level retry is a fresh attempt.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*SessionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	appCtx, err := s.resolver.Resolve(ctx, req.AppID)
	if err != nil {
		return nil, err
	}
	app := appCtx.App

	var (
		account   *accounts.Account
		rejection *SessionResult
	)
	kind := req.Kind()
	switch kind {
	case KindPassword:
		account, rejection, err = s.verifyPassword(ctx, app, req)
	case KindEmailToken, KindPhoneToken:
		account, rejection, err = s.verifyChannelToken(ctx, app, req, kind)
	case KindOAuth:
		account, rejection, err = s.verifyOAuth(ctx, app, req)
	case KindReauth:
		return s.Reauthenticate(ctx, req)
	default:
		return nil, pkgerrors.Wrap(ErrInvalidRequest, "no usable credential in request")
	}
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		s.auditRejection(app.ID, string(kind), rejection.Reason)
		return rejection, nil
	}

	return s.issueSession(ctx, app, account, req.SubstudyID, string(kind))
}

// Reauthenticate renews a session from a rotating reauth token. The
// presented token is single-use: it is consumed and replaced on success, and
// a stale token is hard-rejected.
func (s *Service) Reauthenticate(ctx context.Context, req SignInRequest) (*SessionResult, error) {
	if req.AppID == "" || req.ReauthToken == "" {
		return nil, pkgerrors.Wrap(ErrInvalidRequest, "app ID and reauth token are required")
	}

	appCtx, err := s.resolver.Resolve(ctx, req.AppID)
	if err != nil {
		return nil, err
	}
	app := appCtx.App
	if !app.ReauthEnabled {
		return nil, ErrChannelDisabled
	}

	binding, next, err := s.reauth.Rotate(ctx, req.ReauthToken, app.ID)
	if err != nil {
		switch {
		case errors.Is(err, reauth.ErrTokenAlreadyUsed):
			s.auditRejection(app.ID, "reauth", ReasonTokenAlreadyUsed)
			return Rejected(ReasonTokenAlreadyUsed), nil
		case errors.Is(err, reauth.ErrTokenExpired):
			s.auditRejection(app.ID, "reauth", ReasonTokenExpired)
			return Rejected(ReasonTokenExpired), nil
		case errors.Is(err, reauth.ErrTokenInvalid):
			s.auditRejection(app.ID, "reauth", ReasonInvalidCredentials)
			return Rejected(ReasonInvalidCredentials), nil
		}
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, binding.AppID, binding.AccountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			s.auditRejection(app.ID, "reauth", ReasonAccountNotFound)
			return Rejected(ReasonAccountNotFound), nil
		}
		return nil, pkgerrors.Wrap(err, "[Reauthenticate] account lookup")
	}

	return s.issueSessionWithReauth(ctx, app, account, req.SubstudyID, next, "reauth")
}

func (s *Service) issueSession(ctx context.Context, app *apps.App, account *accounts.Account, substudyID, channel string) (*SessionResult, error) {
	// The disabled check runs before any token is minted so a rejected
	// attempt leaves nothing durable behind.
	if account.Status == accounts.AccountDisabled {
		return s.rejectDisabled(app, account, channel), nil
	}
	reauthToken := ""
	if app.ReauthEnabled {
		var err error
		reauthToken, err = s.reauth.Issue(ctx, account.ID, app.ID)
		if err != nil {
			return nil, err
		}
	}
	return s.issueSessionWithReauth(ctx, app, account, substudyID, reauthToken, channel)
}

func (s *Service) issueSessionWithReauth(ctx context.Context, app *apps.App, account *accounts.Account, substudyID, reauthToken, channel string) (*SessionResult, error) {
	if account.Status == accounts.AccountDisabled {
		return s.rejectDisabled(app, account, channel), nil
	}

	scope, err := s.resolver.ResolveSubstudy(app, substudyID, account.SubstudyIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(ErrInvalidRequest, err.Error())
	}

	blocked := consentRequired(account, app)
	session, err := s.sessions.Create(ctx, account, app.ID, scope, blocked, reauthToken)
	if err != nil {
		return nil, err
	}

	event := s.log.Info().
		Str("app_id", app.ID).
		Str("account_id", account.ID).
		Str("channel", channel).
		Bool("consent_required", blocked)
	if blocked {
		event.Msg("sign-in authenticated but consent-gated")
		return Blocked(session), nil
	}
	event.Msg("sign-in succeeded")
	return Issued(session), nil
}

func (s *Service) rejectDisabled(app *apps.App, account *accounts.Account, channel string) *SessionResult {
	s.log.Warn().
		Str("app_id", app.ID).
		Str("account_id", account.ID).
		Str("channel", channel).
		Msg("sign-in rejected: account disabled")
	return Rejected(ReasonInvalidCredentials)
}

// SignOut invalidates the session for the given token. Signing out an
// unknown or already-removed token is a no-op.
func (s *Service) SignOut(ctx context.Context, sessionToken string) error {
	return s.sessions.Invalidate(ctx, sessionToken)
}

// GetSession returns the live session snapshot for a token, or
// ErrNotSignedIn.
func (s *Service) GetSession(ctx context.Context, sessionToken string) (*sessions.Session, error) {
	session, err := s.sessions.Get(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return nil, ErrNotSignedIn
		}
		return nil, err
	}
	return session, nil
}

// RefreshSession re-reads the account's role and consent snapshot into the
// cached session, for use after account mutations that change permissions
// mid-session.
func (s *Service) RefreshSession(ctx context.Context, sessionToken string) (*sessions.Session, error) {
	session, err := s.GetSession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	appCtx, err := s.resolver.Resolve(ctx, session.AppID)
	if err != nil {
		return nil, err
	}
	return s.sessions.Refresh(ctx, session, func(account *accounts.Account) bool {
		return consentRequired(account, appCtx.App)
	})
}

// SwitchApp changes a live session's effective app without re-authenticating
// or rotating the session token. The caller must hold the cross-app
// administrative capability, or own an account under the target app sharing
// the external identity. Participants (role-less accounts) can never switch.
func (s *Service) SwitchApp(ctx context.Context, sessionToken, targetAppID string) (*SessionResult, error) {
	session, err := s.GetSession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	targetCtx, err := s.resolver.Resolve(ctx, targetAppID)
	if err != nil {
		return nil, err
	}
	target := targetCtx.App

	if !session.IsAdministrative() {
		return nil, ErrUnauthorized
	}

	if s.resolver.AuthorizeSwitch(session.Roles, session.EffectiveAppID, targetAppID) {
		updated, err := s.sessions.UpdateApp(ctx, session, targetAppID)
		if err != nil {
			return nil, err
		}
		s.log.Info().
			Str("account_id", session.AccountID).
			Str("from_app", session.EffectiveAppID).
			Str("to_app", targetAppID).
			Msg("cross-app switch (administrative capability)")
		return Issued(updated), nil
	}

	// No cross-app capability: the switch is allowed only when the caller
	// owns an account under the target app with the same external identity.
	home, err := s.accounts.FindByID(ctx, session.AppID, session.AccountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, pkgerrors.Wrap(err, "[SwitchApp] home account lookup")
	}
	if home.ExternalID == "" {
		return nil, pkgerrors.Wrap(ErrInvalidRequest, "account has no external identity")
	}

	targetAccount, err := s.accounts.FindByChannel(ctx, targetAppID, accounts.ChannelExternalID, home.ExternalID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, pkgerrors.Wrap(err, "[SwitchApp] target account lookup")
	}

	// Refresh the snapshot from the target-app account before the in-place
	// app change so roles and consent reflect the app being entered.
	refreshed := *session
	refreshed.Roles = targetAccount.RolesCopy()
	refreshed.ConsentRequired = consentRequired(targetAccount, target)
	updated, err := s.sessions.UpdateApp(ctx, &refreshed, targetAppID)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("account_id", session.AccountID).
		Str("from_app", session.EffectiveAppID).
		Str("to_app", targetAppID).
		Msg("cross-app switch (target-app association)")
	if updated.ConsentRequired {
		return Blocked(updated), nil
	}
	return Issued(updated), nil
}

// VerifyChannel consumes a channel-verification token and marks the bound
// account's channel verified. The token is single-use regardless of whether
// the account update succeeds.
func (s *Service) VerifyChannel(ctx context.Context, channel accounts.ChannelType, tokenValue string) error {
	var purpose token.Purpose
	switch channel {
	case accounts.ChannelEmail:
		purpose = token.PurposeEmailVerify
	case accounts.ChannelPhone:
		purpose = token.PurposePhoneVerify
	default:
		return pkgerrors.Wrap(ErrInvalidRequest, "channel cannot be verified")
	}

	binding, err := s.tokens.Validate(ctx, tokenValue, purpose, "")
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenNotFound),
			errors.Is(err, token.ErrPurposeMismatch),
			errors.Is(err, token.ErrBindingMismatch),
			errors.Is(err, token.ErrTokenExpired),
			errors.Is(err, token.ErrTokenAlreadyUsed):
			return ErrVerificationInvalid
		}
		return err
	}
	if err := s.tokens.Consume(ctx, tokenValue); err != nil {
		return err
	}

	account, err := s.accounts.FindByID(ctx, binding.AppID, binding.AccountID)
	if err != nil {
		return pkgerrors.Wrap(err, "[VerifyChannel] account lookup")
	}
	switch channel {
	case accounts.ChannelEmail:
		account.EmailVerified = true
	case accounts.ChannelPhone:
		account.PhoneVerified = true
	}
	if account.Status == accounts.AccountUnverified {
		account.Status = accounts.AccountEnabled
	}
	if _, err := s.accounts.Update(ctx, account); err != nil {
		// ErrVersionConflict propagates so the adapter can reload and retry.
		return err
	}
	s.log.Info().
		Str("app_id", binding.AppID).
		Str("account_id", binding.AccountID).
		Str("channel", string(channel)).
		Msg("channel verified")
	return nil
}

// RequestChannelVerification issues a channel-verification token and hands
// it to the notification sender. The call reports success whether or not an
// account matches the destination, so it cannot be used to enumerate
// accounts.
func (s *Service) RequestChannelVerification(ctx context.Context, appID string, channel accounts.ChannelType, destination string) error {
	appCtx, err := s.resolver.Resolve(ctx, appID)
	if err != nil {
		return err
	}

	destination, err = s.canonicalDestination(channel, destination)
	if err != nil {
		return err
	}

	account, err := s.accounts.FindByChannel(ctx, appCtx.App.ID, channel, destination)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			s.log.Info().
				Str("app_id", appID).
				Str("channel", string(channel)).
				Msg("verification requested for unknown destination")
			return nil
		}
		return pkgerrors.Wrap(err, "[RequestChannelVerification] account lookup")
	}

	purpose := token.PurposeEmailVerify
	if channel == accounts.ChannelPhone {
		purpose = token.PurposePhoneVerify
	}
	value, err := s.tokens.Issue(ctx, purpose, account.ID, appCtx.App.ID, s.verifyTokenTTL)
	if err != nil {
		return err
	}
	return s.sender.SendVerification(ctx, channel, destination, value)
}

// RequestEmailSignIn issues an email sign-in token and delivers it
// out-of-band. Like verification requests, it reports success for unknown
// destinations.
func (s *Service) RequestEmailSignIn(ctx context.Context, appID, email string) error {
	return s.requestSignInToken(ctx, appID, accounts.ChannelEmail, email)
}

// RequestPhoneSignIn issues a short SMS sign-in code and delivers it
// out-of-band.
func (s *Service) RequestPhoneSignIn(ctx context.Context, appID, phone string) error {
	return s.requestSignInToken(ctx, appID, accounts.ChannelPhone, phone)
}

func (s *Service) requestSignInToken(ctx context.Context, appID string, channel accounts.ChannelType, destination string) error {
	appCtx, err := s.resolver.Resolve(ctx, appID)
	if err != nil {
		return err
	}
	app := appCtx.App

	switch channel {
	case accounts.ChannelEmail:
		if !app.EmailSignInEnabled {
			return ErrChannelDisabled
		}
	case accounts.ChannelPhone:
		if !app.PhoneSignInEnabled {
			return ErrChannelDisabled
		}
	}

	destination, err = s.canonicalDestination(channel, destination)
	if err != nil {
		return err
	}

	account, err := s.accounts.FindByChannel(ctx, app.ID, channel, destination)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			s.log.Info().
				Str("app_id", appID).
				Str("channel", string(channel)).
				Msg("sign-in token requested for unknown destination")
			return nil
		}
		return pkgerrors.Wrap(err, "[requestSignInToken] account lookup")
	}

	var value string
	if channel == accounts.ChannelPhone {
		value, err = s.tokens.IssueCode(ctx, token.PurposePhoneSignIn, account.ID, app.ID, phoneCodeDigits, s.signInTokenTTL)
	} else {
		value, err = s.tokens.Issue(ctx, token.PurposeEmailSignIn, account.ID, app.ID, s.signInTokenTTL)
	}
	if err != nil {
		return err
	}
	return s.sender.SendSignInToken(ctx, channel, destination, value)
}

// RequestPasswordReset issues a password-reset token and delivers it
// out-of-band over the email or phone channel. Like the other token requests,
// it reports success whether or not an account matches the destination.
func (s *Service) RequestPasswordReset(ctx context.Context, appID string, channel accounts.ChannelType, destination string) error {
	if channel != accounts.ChannelEmail && channel != accounts.ChannelPhone {
		return pkgerrors.Wrap(ErrInvalidRequest, "password reset requires an email or phone channel")
	}

	appCtx, err := s.resolver.Resolve(ctx, appID)
	if err != nil {
		return err
	}

	destination, err = s.canonicalDestination(channel, destination)
	if err != nil {
		return err
	}

	account, err := s.accounts.FindByChannel(ctx, appCtx.App.ID, channel, destination)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			s.log.Info().
				Str("app_id", appID).
				Str("channel", string(channel)).
				Msg("password reset requested for unknown destination")
			return nil
		}
		return pkgerrors.Wrap(err, "[RequestPasswordReset] account lookup")
	}

	value, err := s.tokens.Issue(ctx, token.PurposePasswordReset, account.ID, appCtx.App.ID, s.resetTokenTTL)
	if err != nil {
		return err
	}
	return s.sender.SendPasswordReset(ctx, channel, destination, value)
}

// ResetPassword consumes a password-reset token and replaces the bound
// account's password. The token is single-use; replaying a consumed token
// fails like an unknown one.
func (s *Service) ResetPassword(ctx context.Context, appID, tokenValue, newPassword string) error {
	if tokenValue == "" || newPassword == "" {
		return pkgerrors.Wrap(ErrInvalidRequest, "reset token and new password are required")
	}

	binding, err := s.tokens.Validate(ctx, tokenValue, token.PurposePasswordReset, appID)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenNotFound),
			errors.Is(err, token.ErrPurposeMismatch),
			errors.Is(err, token.ErrBindingMismatch),
			errors.Is(err, token.ErrTokenExpired),
			errors.Is(err, token.ErrTokenAlreadyUsed):
			return ErrResetInvalid
		}
		return err
	}
	if err := s.tokens.Consume(ctx, tokenValue); err != nil {
		return err
	}

	account, err := s.accounts.FindByID(ctx, binding.AppID, binding.AccountID)
	if err != nil {
		return pkgerrors.Wrap(err, "[ResetPassword] account lookup")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return pkgerrors.Wrap(err, "[ResetPassword] hash password")
	}
	account.PasswordHash = hash
	if _, err := s.accounts.Update(ctx, account); err != nil {
		// ErrVersionConflict propagates so the adapter can reload and retry.
		return err
	}
	s.log.Info().
		Str("app_id", binding.AppID).
		Str("account_id", binding.AccountID).
		Msg("password changed via reset token")
	return nil
}

func (s *Service) canonicalDestination(channel accounts.ChannelType, destination string) (string, error) {
	if channel != accounts.ChannelPhone {
		return destination, nil
	}
	return CanonicalPhone(destination, s.phoneRegion)
}

func (s *Service) auditRejection(appID, channel string, reason RejectionReason) {
	s.log.Warn().
		Str("app_id", appID).
		Str("channel", channel).
		Str("reason", string(reason)).
		Msg("sign-in rejected")
}
