package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/studykit/go-study-auth/accounts"
	fakeaccountstore "github.com/studykit/go-study-auth/accounts/repofake"
	"github.com/studykit/go-study-auth/apps"
	fakeapprepo "github.com/studykit/go-study-auth/apps/repofakes"
	"github.com/studykit/go-study-auth/auth"
	"github.com/studykit/go-study-auth/auth/sessions"
	fakecachestore "github.com/studykit/go-study-auth/auth/sessions/repofakes"
	"github.com/studykit/go-study-auth/internal/config"
	fakesender "github.com/studykit/go-study-auth/notifications/sendfakes"
	"github.com/studykit/go-study-auth/server"
	"github.com/studykit/go-study-auth/token"
	"github.com/studykit/go-study-auth/token/reauth"
	faketokenstore "github.com/studykit/go-study-auth/token/repofake"
)

const (
	testAppID    = "study1"
	testEmail    = "a@x.com"
	testPassword = "p1"
	cookieName   = "study_session"
)

type serverFixture struct {
	server *server.Server
	sender *fakesender.FakeSender
}

func setupServerFixture(t *testing.T, consentRequired bool) *serverFixture {
	t.Helper()

	accountStore := fakeaccountstore.NewFakeAccountStore()
	appRepo := fakeapprepo.NewFakeAppRepo()
	sender := fakesender.NewFakeSender()
	hasher := accounts.NewBcryptHasher()

	appRepo.Add(&apps.App{
		ID:                 testAppID,
		Name:               "Study One",
		EmailSignInEnabled: true,
		ReauthEnabled:      true,
		ConsentRequired:    consentRequired,
	})
	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	accountStore.Add(&accounts.Account{
		AppID:         testAppID,
		Email:         testEmail,
		PasswordHash:  hash,
		Status:        accounts.AccountEnabled,
		EmailVerified: true,
	})

	cache, err := sessions.NewCache(fakecachestore.NewFakeCacheStore())
	require.NoError(t, err)
	sessionManager, err := sessions.NewManager(cache, accountStore, time.Hour)
	require.NoError(t, err)
	issuer, err := token.NewIssuer(faketokenstore.NewFakeTokenStore())
	require.NoError(t, err)
	reauthManager, err := reauth.NewManager(issuer, time.Hour)
	require.NoError(t, err)

	service, err := auth.NewService(auth.Dependencies{
		Accounts: accountStore,
		Apps:     appRepo,
		Hasher:   hasher,
		Tokens:   issuer,
		Reauth:   reauthManager,
		Sessions: sessionManager,
		Sender:   sender,
	})
	require.NoError(t, err)

	srv, err := server.New(config.Config{
		Env:               "TEST",
		SessionCookieName: cookieName,
	}, service, zerolog.Nop())
	require.NoError(t, err)

	return &serverFixture{server: srv, sender: sender}
}

func (f *serverFixture) post(t *testing.T, path string, body any, modify ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	for _, m := range modify {
		m(req)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func signInBody(password string) map[string]string {
	return map[string]string{"app_id": testAppID, "email": testEmail, "password": password}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func TestSignInEndpoint(t *testing.T) {
	f := setupServerFixture(t, false)

	rec := f.post(t, server.RouteSignIn, signInBody(testPassword))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)

	var body struct {
		Token         string `json:"token"`
		Authenticated bool   `json:"authenticated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Authenticated)
	require.Equal(t, cookie.Value, body.Token)
}

func TestSignInEndpointRejection(t *testing.T) {
	f := setupServerFixture(t, false)

	rec := f.post(t, server.RouteSignIn, signInBody("wrong"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, sessionCookie(t, rec))

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, auth.GenericSignInMessage, body.Message)
}

func TestSignInEndpointUnknownApp(t *testing.T) {
	f := setupServerFixture(t, false)

	rec := f.post(t, server.RouteSignIn, map[string]string{"app_id": "nope", "email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignInEndpointConsentGate(t *testing.T) {
	f := setupServerFixture(t, true)

	rec := f.post(t, server.RouteSignIn, signInBody(testPassword))
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// The gated session still gets its cookie so the consent workflow can
	// proceed.
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)
}

func TestSessionEndpoint(t *testing.T) {
	f := setupServerFixture(t, false)

	signIn := f.post(t, server.RouteSignIn, signInBody(testPassword))
	cookie := sessionCookie(t, signIn)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, server.RouteSession, nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Bearer header works in place of the cookie.
	req = httptest.NewRequest(http.MethodGet, server.RouteSession, nil)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// No token at all.
	req = httptest.NewRequest(http.MethodGet, server.RouteSession, nil)
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignOutEndpoint(t *testing.T) {
	f := setupServerFixture(t, false)

	signIn := f.post(t, server.RouteSignIn, signInBody(testPassword))
	cookie := sessionCookie(t, signIn)
	require.NotNil(t, cookie)

	signOut := f.post(t, server.RouteSignOut, struct{}{}, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, signOut.Code)

	cleared := sessionCookie(t, signOut)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)
	require.Equal(t, `"cookies"`, signOut.Header().Get("Clear-Site-Data"))

	// The session is gone.
	req := httptest.NewRequest(http.MethodGet, server.RouteSession, nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Signing out again without any session still succeeds and clears the
	// cookie.
	again := f.post(t, server.RouteSignOut, struct{}{})
	require.Equal(t, http.StatusOK, again.Code)
	require.NotNil(t, sessionCookie(t, again))
}

func TestReauthEndpoint(t *testing.T) {
	f := setupServerFixture(t, false)

	signIn := f.post(t, server.RouteSignIn, signInBody(testPassword))
	var body struct {
		ReauthToken string `json:"reauth_token"`
	}
	require.NoError(t, json.Unmarshal(signIn.Body.Bytes(), &body))
	require.NotEmpty(t, body.ReauthToken)

	rec := f.post(t, server.RouteReauth, map[string]string{"app_id": testAppID, "reauth_token": body.ReauthToken})
	require.Equal(t, http.StatusOK, rec.Code)

	// Replay of the rotated-away token.
	rec = f.post(t, server.RouteReauth, map[string]string{"app_id": testAppID, "reauth_token": body.ReauthToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmailSignInEndpoints(t *testing.T) {
	f := setupServerFixture(t, false)

	requested := f.post(t, server.RouteRequestEmailSignIn, map[string]string{"app_id": testAppID, "email": testEmail})
	require.Equal(t, http.StatusAccepted, requested.Code)

	messages := f.sender.Messages()
	require.Len(t, messages, 1)

	rec := f.post(t, server.RouteEmailSignIn, map[string]string{"app_id": testAppID, "email": testEmail, "token": messages[0].Token})
	require.Equal(t, http.StatusOK, rec.Code)

	// Unknown addresses produce the same accepted response.
	unknown := f.post(t, server.RouteRequestEmailSignIn, map[string]string{"app_id": testAppID, "email": "nobody@x.com"})
	require.Equal(t, http.StatusAccepted, unknown.Code)
	require.Equal(t, requested.Body.String(), unknown.Body.String())
}

func TestPasswordResetEndpoints(t *testing.T) {
	f := setupServerFixture(t, false)

	requested := f.post(t, server.RouteRequestResetPassword, map[string]string{"app_id": testAppID, "email": testEmail})
	require.Equal(t, http.StatusAccepted, requested.Code)

	messages := f.sender.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "reset", messages[0].Kind)

	rec := f.post(t, server.RouteResetPassword, map[string]string{"app_id": testAppID, "token": messages[0].Token, "password": "p2"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The old password is dead; the new one signs in.
	rec = f.post(t, server.RouteSignIn, signInBody(testPassword))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.post(t, server.RouteSignIn, signInBody("p2"))
	require.Equal(t, http.StatusOK, rec.Code)

	// The consumed token cannot be replayed.
	rec = f.post(t, server.RouteResetPassword, map[string]string{"app_id": testAppID, "token": messages[0].Token, "password": "p3"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown addresses produce the same accepted response.
	unknown := f.post(t, server.RouteRequestResetPassword, map[string]string{"app_id": testAppID, "email": "nobody@x.com"})
	require.Equal(t, http.StatusAccepted, unknown.Code)
	require.Equal(t, requested.Body.String(), unknown.Body.String())
}

func TestMalformedBody(t *testing.T) {
	f := setupServerFixture(t, false)

	req := httptest.NewRequest(http.MethodPost, server.RouteSignIn, bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
