package token

import (
	"context"
	"errors"
)

// ErrTokenNotFound is returned when a token value has never been issued or
// has been deleted.
var ErrTokenNotFound = errors.New("token not found")

// Store is the capability interface for durable token binding storage.
type Store interface {
	Save(ctx context.Context, token *StoredToken) error
	Get(ctx context.Context, value string) (*StoredToken, error)
	// MarkUsed flips the used flag. The record is retained until expiry so
	// that replays of consumed tokens are distinguishable from unknown ones.
	MarkUsed(ctx context.Context, value string) error
	Delete(ctx context.Context, value string) error
}
