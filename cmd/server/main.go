package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studykit/go-study-auth/accounts"
	fakeaccountstore "github.com/studykit/go-study-auth/accounts/repofake"
	"github.com/studykit/go-study-auth/apps"
	fakeapprepo "github.com/studykit/go-study-auth/apps/repofakes"
	"github.com/studykit/go-study-auth/auth"
	"github.com/studykit/go-study-auth/auth/sessions"
	"github.com/studykit/go-study-auth/auth/sessions/redisstore"
	fakecachestore "github.com/studykit/go-study-auth/auth/sessions/repofakes"
	"github.com/studykit/go-study-auth/identity"
	"github.com/studykit/go-study-auth/identity/oidcprovider"
	"github.com/studykit/go-study-auth/internal/config"
	"github.com/studykit/go-study-auth/notifications/logsender"
	"github.com/studykit/go-study-auth/server"
	"github.com/studykit/go-study-auth/token"
	"github.com/studykit/go-study-auth/token/reauth"
	faketokenstore "github.com/studykit/go-study-auth/token/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	displayAppname(cfg.AppName)

	logger := newLogger(cfg)

	authService, err := buildAuthService(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, authService, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildAuthService(cfg config.Config, logger zerolog.Logger) (*auth.Service, error) {
	// Production deployments point the session cache at a shared redis; with
	// no address configured everything runs in-process, which only suits a
	// single dev instance.
	var cacheStore sessions.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		store, err := redisstore.New(client)
		if err != nil {
			return nil, err
		}
		cacheStore = store
	} else {
		logger.Warn().Msg("no REDIS_ADDR configured, using in-process session cache")
		cacheStore = fakecachestore.NewFakeCacheStore()
	}

	cache, err := sessions.NewCache(cacheStore)
	if err != nil {
		return nil, err
	}

	accountStore := fakeaccountstore.NewFakeAccountStore()
	appRepo := fakeapprepo.NewFakeAppRepo()
	if cfg.IsDev() {
		seedDevData(accountStore, appRepo, logger)
	}

	sessionManager, err := sessions.NewManager(cache, accountStore, cfg.SessionLifetime)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(faketokenstore.NewFakeTokenStore())
	if err != nil {
		return nil, err
	}
	reauthManager, err := reauth.NewManager(issuer, cfg.ReauthTokenTTL)
	if err != nil {
		return nil, err
	}

	var identityProvider identity.Provider
	if cfg.OIDCEnabled() {
		identityProvider, err = oidcprovider.New(context.Background(), oidcprovider.Config{
			IssuerURL:    cfg.OIDCIssuerURL,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		})
		if err != nil {
			return nil, err
		}
	}

	return auth.NewService(auth.Dependencies{
		Accounts: accountStore,
		Apps:     appRepo,
		Hasher:   accounts.NewBcryptHasher(),
		Tokens:   issuer,
		Reauth:   reauthManager,
		Sessions: sessionManager,
		Sender:   logsender.New(logger),
		Identity: identityProvider,
	},
		auth.WithLogger(logger),
		auth.WithSignInTokenTTL(cfg.SignInTokenTTL),
		auth.WithVerifyTokenTTL(cfg.VerifyTokenTTL),
		auth.WithResetTokenTTL(cfg.ResetTokenTTL),
		auth.WithPhoneRegion(cfg.PhoneRegion),
	)
}

// seedDevData provisions a demo app and admin account so a fresh dev server
// is immediately usable.
func seedDevData(accountStore *fakeaccountstore.FakeAccountStore, appRepo *fakeapprepo.FakeAppRepo, logger zerolog.Logger) {
	appRepo.Add(&apps.App{
		ID:                 "demo-study",
		Name:               "Demo Study",
		SupportEmail:       "support@example.org",
		EmailSignInEnabled: true,
		PhoneSignInEnabled: true,
		ReauthEnabled:      true,
		ConsentRequired:    true,
		Substudies:         []apps.Substudy{{ID: "pilot", Name: "Pilot Cohort"}},
	})

	hasher := accounts.NewBcryptHasher()
	hash, err := hasher.Hash("demo-password")
	if err != nil {
		logger.Error().Err(err).Msg("dev seed: hashing failed")
		return
	}
	accountStore.Add(&accounts.Account{
		AppID:         "demo-study",
		Email:         "admin@example.org",
		PasswordHash:  hash,
		Roles:         []accounts.Role{accounts.RoleAdmin},
		Status:        accounts.AccountEnabled,
		EmailVerified: true,
	})
	logger.Info().
		Str("app_id", "demo-study").
		Str("email", "admin@example.org").
		Msg("dev seed: demo app and admin account created")
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
