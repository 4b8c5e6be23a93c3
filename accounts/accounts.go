package accounts

import (
	"time"
)

// ChannelType identifies how a sign-in request identifies an account.
type ChannelType string

const (
	ChannelEmail      ChannelType = "email"
	ChannelPhone      ChannelType = "phone"
	ChannelExternalID ChannelType = "external_id"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	AccountEnabled    AccountStatus = "enabled"
	AccountDisabled   AccountStatus = "disabled"
	AccountUnverified AccountStatus = "unverified"
)

// Role represents a capability tag attached to an account.
type Role string

const (
	RoleDeveloper  Role = "developer"
	RoleResearcher Role = "researcher"
	RoleAdmin      Role = "admin"
	// RoleSuperAdmin grants cross-app administration, including switching a
	// live session to any app.
	RoleSuperAdmin Role = "superadmin"
)

// Account is the identity record owned by the external account store. An
// account belongs to exactly one app; the same person participating in two
// apps is represented as two account rows sharing an ExternalID.
type Account struct {
	ID           string        `json:"id"`
	AppID        string        `json:"app_id"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	ExternalID   string        `json:"external_id,omitempty"` // shared identity attribute across apps
	PasswordHash string        `json:"-"`
	Roles        []Role        `json:"roles,omitempty"`
	Status       AccountStatus `json:"status"`

	EmailVerified  bool `json:"email_verified,omitempty"`
	PhoneVerified  bool `json:"phone_verified,omitempty"`
	ConsentGranted bool `json:"consent_granted,omitempty"`

	// SubstudyIDs lists the sub-scopes within the app this account is
	// associated with.
	SubstudyIDs []string `json:"substudy_ids,omitempty"`

	// Version increases on every update and backs optimistic concurrency in
	// the store.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// HasRole reports whether the account carries the given role.
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdministrative reports whether the account holds any role at all. Accounts
// without roles are study participants and cannot use administrative
// operations such as app switching.
func (a *Account) IsAdministrative() bool {
	return len(a.Roles) > 0
}

// IsSuperAdmin reports whether the account can administer every app.
func (a *Account) IsSuperAdmin() bool {
	return a.HasRole(RoleSuperAdmin)
}

// RolesCopy returns a defensive copy of the role set, suitable for embedding
// in a session snapshot.
func (a *Account) RolesCopy() []Role {
	if len(a.Roles) == 0 {
		return nil
	}
	roles := make([]Role, len(a.Roles))
	copy(roles, a.Roles)
	return roles
}
