// @title        Storefront API
// @version      1.0
// @description  Session and cart backend for the sustainable furniture storefront.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	_ "github.com/pepcraft/storefront/docs"
	"github.com/pepcraft/storefront/internal/api"
	"github.com/pepcraft/storefront/internal/api/metrics"
	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
	"github.com/pepcraft/storefront/internal/core/service"
	"github.com/pepcraft/storefront/internal/infrastructure/config"
	mongostore "github.com/pepcraft/storefront/internal/infrastructure/db/mongo"
	redisstore "github.com/pepcraft/storefront/internal/infrastructure/db/redis"
	"github.com/pepcraft/storefront/internal/infrastructure/http/handlers"
	"github.com/pepcraft/storefront/internal/infrastructure/identity"
	"github.com/pepcraft/storefront/internal/infrastructure/queue"
	"github.com/pepcraft/storefront/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Pretty: true})
		boot := logger.Get()
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Pretty(),
		Service: "storefront",
		Env:     cfg.Env,
	})

	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	authUsers := mongostore.NewAuthRepository(db)
	profiles := mongostore.NewProfileRepository(db)
	carts := mongostore.NewCartRepository(db)
	subscribers := mongostore.NewNewsletterRepository(db)
	if err := mongostore.EnsureIndexes(ctx, authUsers, carts, subscribers); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	// --- Identity ---
	bus := redisstore.NewAuthEventBus(rdb, logger.Component("auth-events"))
	go func() {
		if err := bus.Run(ctx); err != nil {
			log.Error().Err(err).Msg("auth event bus stopped")
		}
	}()

	provider := identity.NewProvider(
		authUsers,
		redisstore.NewOAuthStateStore(rdb, 0),
		bus,
		identity.Config{JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL, OAuth: googleOAuth(cfg.Google)},
		logger.Component("identity"),
	)

	// --- Cart sync ---
	dispatcher := queue.NewCartSyncDispatcher(carts, redisstore.NewCartOutbox(rdb), queue.Options{
		Workers:       cfg.Sync.Workers,
		MaxRetries:    cfg.Sync.MaxRetries,
		FlushInterval: cfg.Sync.FlushInterval,
	}, logger.Component("cart-sync"))
	dispatcher.Start(ctx)

	// --- Workspaces ---
	deps := service.WorkspaceDeps{Profiles: profiles, Carts: carts, Syncer: dispatcher, Log: logger.Component("workspace")}
	registry := service.NewWorkspaceRegistry(func(ctx context.Context, id string) *service.Workspace {
		return service.NewWorkspace(ctx, id, provider.NewClient(id), deps)
	}, cfg.ClientIdleTTL, logger.Component("workspaces"))
	registry.OnSize = func(n int) { metrics.WorkspacesActive.Set(float64(n)) }
	go registry.Run(ctx, time.Minute)

	// --- HTTP ---
	e := api.NewRouter(api.RouterDeps{
		Workspaces: func(ctx context.Context, id string) ports.Workspace { return registry.Get(ctx, id) },
		OAuth:      provider,
		Catalog:    service.NewCatalogService(domain.DefaultCatalog()),
		Newsletter: service.NewNewsletterService(subscribers, logger.Component("newsletter")),
		Readiness: map[string]handlers.Pinger{
			"mongodb": handlers.MongoPinger(db),
			"redis":   handlers.RedisPinger(rdb),
		},
		SiteURL: cfg.SiteURL,
		Log:     log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Bool("google_oauth", cfg.Google.Enabled()).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	// Snapshots still in flight stay in the outbox and are flushed on the next start.
	registry.Close()
}

// googleOAuth returns nil when Google sign-in is not configured.
func googleOAuth(g config.GoogleConfig) *oauth2.Config {
	if !g.Enabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.RedirectURL,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "email", "profile"},
	}
}
