package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/studykit/go-study-auth/accounts"
	"github.com/studykit/go-study-auth/apps"
	"github.com/studykit/go-study-auth/auth"
	"github.com/studykit/go-study-auth/auth/sessions"
)

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	*sessions.Session
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message,omitempty"`
}

// SignInHandler authenticates any credential variant. The engine dispatches
// on which fields the request carries.
func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignInRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := s.auth.SignIn(r.Context(), req)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		s.writeResult(w, result)
	}
}

// ReauthHandler renews a session from a reauth token.
func (s *Server) ReauthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignInRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := s.auth.Reauthenticate(r.Context(), req)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		s.writeResult(w, result)
	}
}

type channelRequest struct {
	AppID string `json:"app_id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// RequestEmailSignInHandler issues an email sign-in token. The response is
// the same whether or not the address matches an account.
func (s *Server) RequestEmailSignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req channelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := s.auth.RequestEmailSignIn(r.Context(), req.AppID, req.Email); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, messageResponse{Message: "If registered with the study, you'll receive an email with a sign-in link shortly."})
	}
}

// RequestPhoneSignInHandler issues an SMS sign-in code.
func (s *Server) RequestPhoneSignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req channelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := s.auth.RequestPhoneSignIn(r.Context(), req.AppID, req.Phone); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, messageResponse{Message: "If registered with the study, you'll receive an SMS message with a sign-in code shortly."})
	}
}

// RequestResetPasswordHandler issues a password-reset token for the email or
// phone on the request. The response is the same whether or not the
// destination matches an account.
func (s *Server) RequestResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req channelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		channel := accounts.ChannelEmail
		destination := req.Email
		if req.Phone != "" {
			channel = accounts.ChannelPhone
			destination = req.Phone
		}
		if err := s.auth.RequestPasswordReset(r.Context(), req.AppID, channel, destination); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, messageResponse{Message: "If registered with the study, you'll receive instructions on how to change your password shortly."})
	}
}

type resetPasswordRequest struct {
	AppID    string `json:"app_id"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPasswordHandler consumes a reset token and sets the new password.
func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := s.auth.ResetPassword(r.Context(), req.AppID, req.Token, req.Password); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been changed."})
	}
}

// SignOutHandler invalidates the caller's session. It succeeds and clears
// the cookie even when no session exists.
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := s.sessionTokenFromRequest(r); token != "" {
			if err := s.auth.SignOut(r.Context(), token); err != nil {
				s.log.Warn().Err(err).Msg("sign-out cache removal failed")
			}
		}
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, messageResponse{Message: "Signed out."})
	}
}

// SessionHandler returns the caller's live session snapshot.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.auth.GetSession(r.Context(), sessionTokenFromContext(r.Context()))
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Session: session, Authenticated: true})
	}
}

type switchAppRequest struct {
	AppID string `json:"app_id"`
}

// SwitchAppHandler changes the session's effective app.
func (s *Server) SwitchAppHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req switchAppRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.AppID == "" {
			writeError(w, http.StatusBadRequest, "app_id is required")
			return
		}
		result, err := s.auth.SwitchApp(r.Context(), sessionTokenFromContext(r.Context()), req.AppID)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		s.writeResult(w, result)
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

// VerifyEmailHandler consumes an email-verification token.
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return s.verifyChannelHandler(accounts.ChannelEmail, "Email address verified.")
}

// VerifyPhoneHandler consumes a phone-verification token.
func (s *Server) VerifyPhoneHandler() http.HandlerFunc {
	return s.verifyChannelHandler(accounts.ChannelPhone, "Phone number verified.")
}

func (s *Server) verifyChannelHandler(channel accounts.ChannelType, successMessage string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := s.auth.VerifyChannel(r.Context(), channel, req.Token); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: successMessage})
	}
}

// ResendEmailVerificationHandler re-issues an email-verification token.
func (s *Server) ResendEmailVerificationHandler() http.HandlerFunc {
	return s.resendVerificationHandler(accounts.ChannelEmail, "If registered with the study, you'll receive an email with a verification link shortly.")
}

// ResendPhoneVerificationHandler re-issues a phone-verification token.
func (s *Server) ResendPhoneVerificationHandler() http.HandlerFunc {
	return s.resendVerificationHandler(accounts.ChannelPhone, "If registered with the study, you'll receive an SMS message with a verification code shortly.")
}

func (s *Server) resendVerificationHandler(channel accounts.ChannelType, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req channelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		destination := req.Email
		if channel == accounts.ChannelPhone {
			destination = req.Phone
		}
		if err := s.auth.RequestChannelVerification(r.Context(), req.AppID, channel, destination); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, messageResponse{Message: response})
	}
}

// writeResult maps the engine's tagged outcome onto HTTP. Both Issued and
// Blocked set the session cookie; Blocked signals the consent gate with 412
// so clients can branch on status code alone.
func (s *Server) writeResult(w http.ResponseWriter, result *auth.SessionResult) {
	switch result.Status {
	case auth.StatusIssued:
		s.setSessionCookie(w, result.Session)
		writeJSON(w, http.StatusOK, sessionResponse{Session: result.Session, Authenticated: true})
	case auth.StatusBlocked:
		s.setSessionCookie(w, result.Session)
		writeJSON(w, http.StatusPreconditionFailed, sessionResponse{
			Session:       result.Session,
			Authenticated: true,
			Message:       result.UserMessage(),
		})
	default:
		writeError(w, http.StatusUnauthorized, result.UserMessage())
	}
}

// writeAuthError maps engine errors onto HTTP status codes. Unmapped errors
// are infrastructure failures and deliberately opaque to the caller.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidRequest), errors.Is(err, auth.ErrChannelDisabled),
		errors.Is(err, auth.ErrVerificationInvalid), errors.Is(err, auth.ErrResetInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, "Not signed in.")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Caller does not have permission to access this service.")
	case errors.Is(err, apps.ErrAppNotFound):
		writeError(w, http.StatusNotFound, "App not found.")
	case errors.Is(err, accounts.ErrVersionConflict):
		writeError(w, http.StatusConflict, "Account was modified concurrently; please retry.")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be parsed.")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}
