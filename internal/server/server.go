package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/fund-ledger/internal/auth"
	"github.com/hongminglow/fund-ledger/internal/config"
	"github.com/hongminglow/fund-ledger/internal/funds"
	"github.com/hongminglow/fund-ledger/internal/http/handlers"
	"github.com/hongminglow/fund-ledger/internal/ledger"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/middleware"
	"github.com/hongminglow/fund-ledger/internal/notify"
	"github.com/hongminglow/fund-ledger/internal/reporting"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner    *http.Server
	Identity *auth.Identity
	Engine   *ledger.Engine
	Catalog  *funds.Service
	View     *reporting.View
}

// Option customizes the components New builds.
type Option func(*options)

type options struct {
	tokenOpts []auth.TokenOption
	notifier  notify.Notifier
}

// WithTokenOptions forwards options to the token manager.
func WithTokenOptions(opts ...auth.TokenOption) Option {
	return func(o *options) { o.tokenOpts = append(o.tokenOpts, opts...) }
}

// WithNotifier replaces the log-backed notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// New wires up components, middleware and routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, log *logging.Logger, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = notify.NewLogNotifier(log)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL, o.tokenOpts...)
	identity := auth.NewIdentity(store, tokens, cfg.DefaultBalance, log)
	engine := ledger.NewEngine(store, ledger.Options{
		MaxAttempts: cfg.LedgerMaxAttempts,
		Notifier:    o.notifier,
		Logger:      log,
	})
	catalog := funds.NewService(store, log)
	view := reporting.NewView(store, cfg.Currency, log)

	mux := http.NewServeMux()
	authn := middleware.Authenticate(identity)
	handlers.NewHealthHandler(store, cfg.StorageDriver, time.Now(), log.Component("health")).Register(mux)
	handlers.NewAuthHandler(identity, middleware.NewRateLimiter(cfg.LoginRatePerMinute), log).Register(mux, authn)
	handlers.NewFundHandler(catalog, engine, log).Register(mux, authn)
	handlers.NewTransactionHandler(view, log).Register(mux, authn)

	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.Logging(log.Component("http")),
		middleware.CORS(cfg.CORSOrigins),
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		inner:    httpServer,
		Identity: identity,
		Engine:   engine,
		Catalog:  catalog,
		View:     view,
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
