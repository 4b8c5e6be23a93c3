package apps

// Substudy is an organizational sub-scope within an app.
type Substudy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// App represents an isolated tenant: its own accounts, policy, and consent
// requirements.
type App struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SupportEmail string `json:"support_email,omitempty"`

	// Sign-in policy flags, consumed by the credential verifier.
	EmailSignInEnabled bool `json:"email_sign_in_enabled"`
	PhoneSignInEnabled bool `json:"phone_sign_in_enabled"`
	OAuthSignInEnabled bool `json:"oauth_sign_in_enabled"`
	ReauthEnabled      bool `json:"reauth_enabled"`

	// ConsentRequired gates full use of the app behind participant consent.
	// Authentication still succeeds without consent; the session is flagged.
	ConsentRequired bool `json:"consent_required"`

	Substudies []Substudy `json:"substudies,omitempty"`
}

// HasSubstudy reports whether the app defines the given sub-scope.
func (a *App) HasSubstudy(id string) bool {
	for _, s := range a.Substudies {
		if s.ID == id {
			return true
		}
	}
	return false
}
