package token

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrPurposeMismatch, ErrBindingMismatch, ErrTokenExpired and
	// ErrTokenAlreadyUsed report which validation check failed. They are for
	// audit logging; user-visible handling collapses them into a generic
	// rejection.
	ErrPurposeMismatch  = errors.New("token purpose mismatch")
	ErrBindingMismatch  = errors.New("token binding mismatch")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Issuer generates and validates opaque bearer tokens bound to an account,
// app, and purpose.
type Issuer struct {
	store   Store
	nowTime func() time.Time
}

// IssuerOption modifies an Issuer.
type IssuerOption func(*Issuer)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

func NewIssuer(store Store, options ...IssuerOption) (*Issuer, error) {
	if store == nil {
		return nil, pkgerrors.New("[NewIssuer] token store is required")
	}
	issuer := &Issuer{store: store, nowTime: NowTimeFunc}
	for _, opt := range options {
		opt(issuer)
	}
	return issuer, nil
}

// Issue generates a new opaque token bound to (accountID, appID, purpose)
// with the given ttl and persists the binding.
func (i *Issuer) Issue(ctx context.Context, purpose Purpose, accountID, appID string, ttl time.Duration) (string, error) {
	value, err := NewOpaque()
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Issuer.Issue] generate")
	}
	if err := i.save(ctx, value, purpose, accountID, appID, ttl); err != nil {
		return "", err
	}
	return value, nil
}

// IssueCode generates a short numeric code with the same binding semantics as
// Issue. Codes trade entropy for usability and must be paired with short
// ttls.
func (i *Issuer) IssueCode(ctx context.Context, purpose Purpose, accountID, appID string, digits int, ttl time.Duration) (string, error) {
	value, err := NewNumericCode(digits)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Issuer.IssueCode] generate")
	}
	if err := i.save(ctx, value, purpose, accountID, appID, ttl); err != nil {
		return "", err
	}
	return value, nil
}

func (i *Issuer) save(ctx context.Context, value string, purpose Purpose, accountID, appID string, ttl time.Duration) error {
	now := i.nowTime()
	stored := &StoredToken{
		Value: value,
		Binding: Binding{
			AccountID: accountID,
			AppID:     appID,
			Purpose:   purpose,
			IssuedAt:  now,
			ExpiresAt: now.Add(ttl),
		},
	}
	if err := i.store.Save(ctx, stored); err != nil {
		return pkgerrors.Wrap(err, "[Issuer] store.Save")
	}
	return nil
}

// Validate checks a presented token for the given purpose and app. Checks run
// in order (purpose, binding, expiry) and short-circuit on the first failure.
// A used single-use token fails with ErrTokenAlreadyUsed.
func (i *Issuer) Validate(ctx context.Context, value string, purpose Purpose, appID string) (*Binding, error) {
	stored, err := i.store.Get(ctx, value)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, pkgerrors.Wrap(err, "[Issuer.Validate] store.Get")
	}
	if stored.Purpose != purpose {
		return nil, ErrPurposeMismatch
	}
	if appID != "" && stored.AppID != appID {
		return nil, ErrBindingMismatch
	}
	if stored.Used {
		return nil, ErrTokenAlreadyUsed
	}
	if i.nowTime().After(stored.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	binding := stored.Binding
	return &binding, nil
}

// Consume marks a token used. Consumption happens before the caller is told
// verification succeeded, so there is no double-spend window.
func (i *Issuer) Consume(ctx context.Context, value string) error {
	if err := i.store.MarkUsed(ctx, value); err != nil {
		return pkgerrors.Wrap(err, "[Issuer.Consume] store.MarkUsed")
	}
	return nil
}
