package accounts

import (
	"context"
	"errors"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup. The
	// engine never surfaces this message to end users; it is unified with the
	// invalid-credentials message at the user-visible layer.
	ErrAccountNotFound = errors.New("account not found")

	// ErrVersionConflict is returned by Update when the account was modified
	// concurrently. Callers should reload and retry.
	ErrVersionConflict = errors.New("account version conflict")
)

// Store is the capability interface over durable account storage. Lookups are
// always scoped to a single app: the engine never trusts a client-supplied
// account ID and never matches accounts across apps except through
// FindByChannel with ChannelExternalID on the target app.
type Store interface {
	// FindByChannel locates the account within appID whose channel attribute
	// matches value. Returns ErrAccountNotFound when absent or ambiguous.
	FindByChannel(ctx context.Context, appID string, channel ChannelType, value string) (*Account, error)

	// FindByID locates the account within appID by its account ID.
	FindByID(ctx context.Context, appID, id string) (*Account, error)

	// Update persists account changes using optimistic concurrency: the
	// stored version must equal account.Version or ErrVersionConflict is
	// returned. On success the returned copy carries the incremented version.
	Update(ctx context.Context, account *Account) (*Account, error)
}
