package server

const (
	RouteSignIn      = "/v4/auth/signIn"
	RouteSignOut     = "/v4/auth/signOut"
	RouteReauth      = "/v3/auth/reauth"
	RouteSession     = "/v3/auth/session"
	RouteSwitchApp   = "/v3/auth/app"
	RouteOAuthSignIn = "/v3/auth/oauth/signIn"

	RouteRequestEmailSignIn = "/v3/auth/email"
	RouteEmailSignIn        = "/v3/auth/email/signIn"
	RouteRequestPhoneSignIn = "/v3/auth/phone"
	RoutePhoneSignIn        = "/v3/auth/phone/signIn"

	RouteRequestResetPassword = "/v3/auth/requestResetPassword"
	RouteResetPassword        = "/v3/auth/resetPassword"

	RouteVerifyEmail             = "/v3/auth/verifyEmail"
	RouteVerifyPhone             = "/v3/auth/verifyPhone"
	RouteResendEmailVerification = "/v3/auth/resendEmailVerification"
	RouteResendPhoneVerification = "/v3/auth/resendPhoneVerification"
)

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	// Sign-in channels. Every variant funnels into the same engine entry
	// point; the route determines which credential fields are expected.
	s.RegisterRouteHandler("POST "+RouteSignIn, ChainMiddleware(s.SignInHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteEmailSignIn, ChainMiddleware(s.SignInHandler(), api...))
	s.RegisterRouteHandler("POST "+RoutePhoneSignIn, ChainMiddleware(s.SignInHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteOAuthSignIn, ChainMiddleware(s.SignInHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteReauth, ChainMiddleware(s.ReauthHandler(), api...))

	// Out-of-band token requests.
	s.RegisterRouteHandler("POST "+RouteRequestEmailSignIn, ChainMiddleware(s.RequestEmailSignInHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteRequestPhoneSignIn, ChainMiddleware(s.RequestPhoneSignInHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteRequestResetPassword, ChainMiddleware(s.RequestResetPasswordHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordHandler(), api...))

	// Session lifecycle.
	s.RegisterRouteHandler("POST "+RouteSignOut, ChainMiddleware(s.SignOutHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.SessionMiddleware(api)...))
	s.RegisterRouteHandler("POST "+RouteSwitchApp, ChainMiddleware(s.SwitchAppHandler(), s.SessionMiddleware(api)...))

	// Channel verification.
	s.RegisterRouteHandler("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteVerifyPhone, ChainMiddleware(s.VerifyPhoneHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteResendEmailVerification, ChainMiddleware(s.ResendEmailVerificationHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteResendPhoneVerification, ChainMiddleware(s.ResendPhoneVerificationHandler(), api...))
}
