// Package sessions owns the ephemeral server-issued session: its shape, its
// cache lifecycle, and the manager that mutates cached sessions in place.
package sessions

import (
	"time"

	"github.com/studykit/go-study-auth/accounts"
)

// Session is the server-issued snapshot handed back after authentication.
// Once minted it is owned by the cache; callers hold copies. Mutations go
// through Manager and are full-snapshot replacements, never field merges.
type Session struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`

	// AppID is the account's home app. EffectiveAppID is the app the session
	// currently operates in; it differs from AppID only after an
	// administrative cross-app switch.
	AppID          string `json:"app_id"`
	EffectiveAppID string `json:"effective_app_id"`

	SubstudyID string `json:"substudy_id,omitempty"`

	Roles           []accounts.Role `json:"roles,omitempty"`
	ConsentRequired bool            `json:"consent_required"`

	// ReauthToken is the rotating credential embedded at issue time so the
	// client can renew without a password.
	ReauthToken string `json:"reauth_token,omitempty"`

	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's validity window has passed. Expiry is
// checked at read time; there is no background sweep.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsInRole reports whether the session's role snapshot contains role.
func (s *Session) IsInRole(role accounts.Role) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdministrative reports whether the snapshot carries any role.
func (s *Session) IsAdministrative() bool {
	return len(s.Roles) > 0
}
