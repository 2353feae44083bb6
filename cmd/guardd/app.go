package main

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/config"
	"github.com/goliatone/go-guard/middleware/csrf"
	"github.com/goliatone/go-guard/middleware/guardware"
	"github.com/goliatone/go-guard/provider/jwks"
	"github.com/goliatone/go-guard/provider/session"
	"github.com/goliatone/go-guard/repository"
	"github.com/goliatone/go-guard/routes"
	"github.com/goliatone/go-guard/web"
	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/goliatone/go-guard/cmd/guardd"

// App owns the long lived resources of the service
type App struct {
	config   *config.BaseConfig
	logger   *slog.Logger
	repo     repository.Manager
	sessions *session.Service
	verifier *jwks.Verifier
	closers  []func()
}

func newApp(ctx context.Context, cfg *config.BaseConfig, logger *slog.Logger) (*App, error) {
	a := &App{config: cfg, logger: logger}
	log := slogLogger{logger}

	switch cfg.Guard.Provider {
	case config.ProviderJWKS:
		v, err := jwks.NewVerifier(jwks.Config{
			JWKSetURLs: cfg.JWKS.URLs,
			Issuer:     cfg.JWKS.Issuer,
			Audience:   cfg.JWKS.Audience,
			Leeway:     cfg.JWKS.Leeway,
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
		a.verifier = v
		a.closers = append(a.closers, v.Close)
	default:
		if err := a.openSessions(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) openSessions(ctx context.Context) error {
	db, err := repository.OpenSQLite(a.config.Persistence.DSN)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to open database")
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	if err := repository.Migrate(ctx, db); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to migrate database")
	}

	a.repo = repository.NewRepositoryManager(db)
	if err := a.repo.Validate(); err != nil {
		return err
	}

	tokens := session.NewTokenService(
		[]byte(a.config.Session.SigningKey),
		a.config.Session.Issuer,
		jwt.ClaimStrings(a.config.Session.Audience),
		slogLogger{a.logger},
	)

	a.sessions = session.NewService(a.repo, tokens,
		session.WithLogger(slogLogger{a.logger}),
		session.WithSessionTTL(a.config.Session.TTL),
		session.WithPasswordCost(a.config.Session.PasswordCost),
	)
	return nil
}

// providerFactory builds request providers for the configured identity service
func (a *App) providerFactory() guardware.ProviderFactory {
	build := func(token string) guard.IdentityProvider {
		if a.verifier != nil {
			return a.verifier.ProviderFor(token)
		}
		return a.sessions.ProviderFor(token)
	}
	return guardware.TokenProvider(a.config.GetTokenLookup(), a.config.GetAuthScheme(), build)
}

// Server builds the fiber app with the route table mounted
func (a *App) Server() *fiber.App {
	log := slogLogger{a.logger}
	factory := a.providerFactory()

	var sessions web.Authenticator
	var externalLogin string
	if a.sessions != nil {
		sessions = a.sessions
	} else {
		externalLogin = a.config.JWKS.Issuer
	}

	h := web.New(web.Config{
		Provider:         factory,
		Sessions:         sessions,
		ExternalLoginURL: externalLogin,
		Extractors:       guardware.GetExtractors(a.config.GetTokenLookup(), a.config.GetAuthScheme()),
		CookieName:       a.config.GetCookieName(),
		CookieSecure:     a.config.GetCookieSecure(),
		Redirects:        guard.RedirectsFromConfig(a.config),
		Logger:           log,
	})

	srv := fiber.New(fiber.Config{
		AppName:               "guardd",
		Views:                 web.Engine(),
		DisableStartupMessage: true,
	})

	forms := csrf.New(csrf.Config{
		SecureKey:    []byte(a.config.Server.CSRFKey),
		CookieSecure: a.config.GetCookieSecure(),
	})

	routes.Register(srv, h.Pages(), guardware.Config{
		Provider:       factory,
		Redirects:      guard.RedirectsFromConfig(a.config),
		ResolveTimeout: a.config.GetResolveTimeout(),
		PendingHandler: web.Pending,
		CookieSecure:   a.config.GetCookieSecure(),
		Logger:         log,
		GuardOptions: []guard.Option{
			guard.WithProbeTimeout(a.config.GetProbeTimeout()),
			guard.WithTracer(otel.Tracer(tracerName)),
			guard.WithEventSink(eventLogger(a.logger)),
		},
	}, forms)

	return srv
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
