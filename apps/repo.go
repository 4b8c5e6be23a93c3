package apps

import (
	"context"
	"errors"
)

// ErrAppNotFound is returned when an app ID does not resolve. This is a
// client error, reported distinctly from authorization failures.
var ErrAppNotFound = errors.New("app not found")

// Repo provides access to app definitions.
type Repo interface {
	Get(ctx context.Context, id string) (*App, error)
}
