package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"livechat/internal/retention"
	"livechat/pkg/api"
	"livechat/pkg/auth"
	"livechat/pkg/config"
	"livechat/pkg/logger"
	"livechat/pkg/media"
	"livechat/pkg/notify"
	"livechat/pkg/presence"
	"livechat/pkg/reactions"
	"livechat/pkg/state"
	"livechat/pkg/store"
	"livechat/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	verifier   auth.Verifier
	reacts     *reactions.Aggregator
	track      *presence.Tracker
	provider   *auth.Provider
	dispatcher *notify.Dispatcher
	images     media.Store

	srv *http.Server
}

// Option overrides a collaborator, used by tests to inject fakes.
type Option func(*App)

// WithVerifier replaces the JWKS verifier.
func WithVerifier(v auth.Verifier) Option { return func(a *App) { a.verifier = v } }

// WithPublisher replaces the notification publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(a *App) {
		a.dispatcher = notify.NewDispatcher(p, a.eff.Config.Notify.QueueSize)
	}
}

// New initializes resources that do not require a running context: the
// store, the state-backed trackers and the outbound collaborators. Call Run
// to start the HTTP server and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string, opts ...Option) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	validation.SetRules(validation.Rules{})

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate}

	// reactions and presence keep durable state in the same pebble under
	// their own prefixes
	a.reacts = reactions.New(state.NewPebble("react:"))
	a.track = presence.New(state.NewPebble("presence:"))
	a.images = media.NewPebbleStore("/v1/profile")

	cfg := eff.Config
	a.provider = auth.NewProvider(cfg.Auth.RegisterURL, cfg.Auth.TokenURL, cfg.Auth.ClientID, cfg.Auth.Timeout.Duration())

	for _, o := range opts {
		o(a)
	}

	if a.verifier == nil {
		if cfg.Auth.JWKSURL == "" {
			store.Close()
			return nil, fmt.Errorf("auth.jwks_url is required: set LIVECHAT_AUTH_JWKS_URL or auth.jwks_url in config")
		}
		v, err := auth.NewJWKSVerifier(cfg.Auth.JWKSURL, cfg.Auth.IssuerURL, cfg.Auth.RoleClaim)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to init token verifier: %w", err)
		}
		a.verifier = v
	}

	if a.dispatcher == nil {
		var pub notify.Publisher
		if cfg.Notify.URL != "" {
			np, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.SubjectPrefix)
			if err != nil {
				logger.Warn("notify_connect_failed", "url", cfg.Notify.URL, "error", err)
				pub = notify.LogPublisher{}
			} else {
				pub = np
			}
		} else {
			pub = notify.LogPublisher{}
		}
		a.dispatcher = notify.NewDispatcher(pub, cfg.Notify.QueueSize)
	}

	return a, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or a fatal
// server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	stopRetention, err := retention.Start(ctx, a.eff, a.reacts)
	if err != nil {
		return err
	}
	defer stopRetention()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) apiDeps() api.Deps {
	return api.Deps{
		Reactions:     a.reacts,
		Presence:      a.track,
		Credentials:   a.provider,
		Notifier:      a.dispatcher,
		Media:         a.images,
		MaxUploadSize: a.eff.Config.Media.MaxUploadSize.Int64(),
	}
}

func (a *App) shutdown() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if c, ok := a.verifier.(interface{ Close() }); ok {
		c.Close()
	}
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}
