package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"signaware-client/internal/auth"
	"signaware-client/internal/gateway"
	"signaware-client/internal/results"
	"signaware-client/internal/session"
	"signaware-client/internal/shared/config"
	"signaware-client/internal/shared/metrics"
	"signaware-client/internal/shared/server"
	"signaware-client/internal/shared/storage/db"
	"signaware-client/internal/shared/storage/kv"
	filekv "signaware-client/internal/shared/storage/kv/file"
	pgkv "signaware-client/internal/shared/storage/kv/pg"
	rediskv "signaware-client/internal/shared/storage/kv/redis"
	"signaware-client/internal/shared/telemetry"
	"signaware-client/internal/web"
	"signaware-client/internal/workflow"
)

// App holds the wired client components.
type App struct {
	Config   config.Config
	KV       kv.Store
	DB       *sql.DB
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Gateway  *gateway.Client
	Session  *session.Store
	Results  *results.Store
	Workflow *workflow.Workflow

	closers []func() error
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	nav    workflow.Navigator
	opener auth.Opener
	store  kv.Store
}

// WithNavigator receives result-view navigation from the workflow.
func WithNavigator(nav workflow.Navigator) Option {
	return func(o *buildOptions) { o.nav = nav }
}

// WithOpener replaces the system browser used for Google sign-in.
func WithOpener(op auth.Opener) Option {
	return func(o *buildOptions) { o.opener = op }
}

// WithStore uses store instead of the configured storage backend.
func WithStore(store kv.Store) Option {
	return func(o *buildOptions) { o.store = store }
}

// Build wires the storage backend, the gateway client, the session and the
// workflow, then restores any persisted session.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := buildOptions{opener: auth.SystemBrowser{}}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	app := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	app.Metrics = metrics.New(app.Registry)

	store := o.store
	if store == nil {
		var err error
		store, err = app.buildStore(ctx)
		if err != nil {
			app.Close()
			return nil, err
		}
	}
	app.KV = store

	tokens := &session.Tokens{}
	app.Gateway = gateway.New(gateway.Config{
		BaseURL:          cfg.BaseURL(),
		MaxFileSize:      cfg.MaxFileSize,
		AllowedFileTypes: cfg.AllowedFileTypes,
		Timeout:          cfg.HTTPTimeout,
	}, tokens, gateway.WithMetrics(app.Metrics))

	var provider session.Provider
	if strings.TrimSpace(cfg.GoogleClientID) != "" {
		provider = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackPort, o.opener)
	}
	app.Session = session.New(app.Gateway, store, provider, session.WithTokens(tokens))
	app.Results = results.NewStore(store)
	app.Workflow = workflow.New(app.Gateway, app.Results, o.nav, workflow.WithMetrics(app.Metrics))

	if err := app.Session.Init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	telemetry.Debug("bootstrap.ready", map[string]any{
		"backend":       cfg.StorageBackend,
		"api":           cfg.BaseURL(),
		"authenticated": app.Session.IsAuthenticated(),
	})
	return app, nil
}

func (a *App) buildStore(ctx context.Context) (kv.Store, error) {
	cfg := a.Config
	switch cfg.StorageBackend {
	case "memory":
		return kv.NewMemory(), nil
	case "redis":
		store, err := rediskv.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Profile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres storage backend")
		}
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultClientOptions()))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("migrate client state: %w", err)
		}
		a.DB = sqlDB
		return &pgkv.Store{DB: sqlDB, Profile: cfg.Profile}, nil
	default:
		store, err := filekv.New(cfg.StateDir, cfg.Profile)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Server builds the local companion router. Submissions started through it
// run under ctx.
func (a *App) Server(ctx context.Context) (*gin.Engine, *web.Handler) {
	h := web.NewHandler(web.Deps{
		Sessions:       a.Session,
		Submissions:    a.Workflow,
		Backend:        a.Gateway,
		Results:        a.Results,
		Metrics:        a.Metrics,
		MaxFileSize:    a.Config.MaxFileSize,
		RevealInterval: a.Config.RevealInterval,
		Background:     ctx,
	})
	return server.NewRouter(a.Config, h, a.Metrics), h
}

// Close releases storage connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
