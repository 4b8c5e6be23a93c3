package server

import (
	"net/http"
	"time"

	"github.com/studykit/go-study-auth/auth/sessions"
)

// setSessionCookie writes the session cookie. Consent-gated sessions get the
// cookie too; the client needs it to complete the consent workflow.
func (s *Server) setSessionCookie(w http.ResponseWriter, session *sessions.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.env == "PROD",
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie and asks the browser to drop
// site data. Always safe to call, signed in or not.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.env == "PROD",
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Clear-Site-Data", `"cookies"`)
}
