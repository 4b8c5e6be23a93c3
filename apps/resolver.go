package apps

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/studykit/go-study-auth/accounts"
)

// ErrAmbiguousSubstudy is returned when a request names no substudy but the
// caller is associated with more than one. Silently picking one would scope
// the request implicitly, so the caller must disambiguate.
var ErrAmbiguousSubstudy = errors.New("substudy scope is ambiguous")

// ErrUnknownSubstudy is returned when the requested substudy does not exist
// in the app or the caller is not associated with it.
var ErrUnknownSubstudy = errors.New("unknown substudy")

// Context is the resolved tenant context for a request: the effective app and
// any substudy scope.
type Context struct {
	App        *App
	SubstudyID string
}

// Resolver resolves the effective app for a request and authorizes cross-app
// switching for privileged roles.
type Resolver struct {
	repo Repo
}

func NewResolver(repo Repo) (*Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New("[NewResolver] app repo is required")
	}
	return &Resolver{repo: repo}, nil
}

// Resolve returns the tenant context for appID. Unknown apps yield
// ErrAppNotFound, a client error rather than a security decision.
func (r *Resolver) Resolve(ctx context.Context, appID string) (*Context, error) {
	app, err := r.repo.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, ErrAppNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, pkgerrors.Wrap(err, "[Resolver.Resolve] app lookup")
	}
	return &Context{App: app}, nil
}

// AuthorizeSwitch decides whether the caller's role set permits switching a
// live session from one app to another without a target-app account. Only the
// cross-app administrative capability grants this; accounts associated with
// the target app through a shared external identity are authorized separately
// by the session service.
func (r *Resolver) AuthorizeSwitch(callerRoles []accounts.Role, fromAppID, toAppID string) bool {
	if fromAppID == toAppID {
		return true
	}
	for _, role := range callerRoles {
		if role == accounts.RoleSuperAdmin {
			return true
		}
	}
	return false
}

// ResolveSubstudy validates a requested substudy scope against the app and
// the caller's associations. An empty request with exactly zero associations
// resolves to no scope; an empty request with more than one association is
// rejected as ambiguous rather than auto-filled.
func (r *Resolver) ResolveSubstudy(app *App, requested string, associated []string) (string, error) {
	if requested != "" {
		if !app.HasSubstudy(requested) {
			return "", ErrUnknownSubstudy
		}
		for _, id := range associated {
			if id == requested {
				return requested, nil
			}
		}
		return "", ErrUnknownSubstudy
	}
	switch len(associated) {
	case 0:
		return "", nil
	case 1:
		// Auto-filling the single association is a policy choice with
		// security implications; until confirmed, an unscoped request from a
		// scoped caller must name its substudy explicitly.
		return "", ErrAmbiguousSubstudy
	default:
		return "", ErrAmbiguousSubstudy
	}
}
