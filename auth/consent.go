package auth

import (
	"github.com/studykit/go-study-auth/accounts"
	"github.com/studykit/go-study-auth/apps"
)

// consentRequired decides whether an authenticated account is gated on
// consent for the given app. Authentication has already succeeded at this
// point; a gated account still receives a session, flagged so the client can
// resume the consent workflow.
//
// Administrative accounts are exempt: consent is a participant obligation.
func consentRequired(account *accounts.Account, app *apps.App) bool {
	if !app.ConsentRequired {
		return false
	}
	if account.IsAdministrative() {
		return false
	}
	return !account.ConsentGranted
}
