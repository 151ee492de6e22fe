package main

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/config"
	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/platform/logging"
	"github.com/example/movie-platform/internal/platform/natsconn"
	"github.com/example/movie-platform/internal/platform/run"
	"github.com/example/movie-platform/internal/remotestore"
	"github.com/example/movie-platform/internal/syncevents"
	"github.com/example/movie-platform/services/syncd/internal/catalog"
	syncdconfig "github.com/example/movie-platform/services/syncd/internal/config"
	"github.com/example/movie-platform/services/syncd/internal/handlers"
	"github.com/example/movie-platform/services/syncd/internal/localstore"
	syncengine "github.com/example/movie-platform/services/syncd/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	syncdCfg, err := syncdconfig.LoadSyncd()
	if err != nil {
		log.Error("load syncd config", zap.Error(err))
		run.Exit(1)
	}

	local, err := localstore.Open(syncdCfg.DataDir)
	if err != nil {
		log.Error("open local store", zap.Error(err))
		run.Exit(1)
	}
	defer func() { _ = local.Close() }()
	if syncdCfg.DataDir == "" {
		log.Warn("no data dir configured, local state is memory only")
	}

	var (
		remote remotestore.RowStore
		pool   *pgxpool.Pool
	)
	switch syncdCfg.RemoteStore {
	case syncdconfig.RemotePostgres:
		pool, err = db.Open(context.Background())
		if err != nil {
			log.Error("open postgres", zap.Error(err))
			run.Exit(1)
		}
		defer pool.Close()
		remote = remotestore.NewPostgres(pool)
	case syncdconfig.RemoteHTTP:
		remote = remotestore.NewHTTPStore(syncdCfg.CollectionServiceURL, syncdCfg.CollectionServiceKey, "")
	default:
		log.Warn("using in-memory account store, state will not survive restarts")
		remote = remotestore.NewMemory()
	}

	var (
		nc   *nats.Conn
		sink syncengine.Sink = syncengine.StoreSink{Store: remote}
	)
	if syncdCfg.PushViaNATS {
		nc, err = natsconn.Connect(natsconn.Options{})
		if err != nil {
			log.Error("nats connect", zap.Error(err))
			run.Exit(1)
		}
		defer nc.Close()
		js, err := nc.JetStream()
		if err != nil {
			log.Error("jetstream", zap.Error(err))
			run.Exit(1)
		}
		if err := syncevents.EnsureStream(js); err != nil {
			log.Error("ensure sync stream", zap.Error(err))
			run.Exit(1)
		}
		sink = syncengine.NATSSink{Pub: syncevents.NewPublisher(js)}
	}

	merger := syncengine.NewMerger(local, remote, logging.Named(log, "merge"))
	pusher := syncengine.NewPusher(sink, logging.Named(log, "push"))
	manager := syncengine.NewManager(local, merger, pusher, logging.Named(log, "sync"))

	verifier := auth.JWTVerifier{Secret: syncdCfg.JWTSecret}
	catalogClient := catalog.NewClient(syncdCfg.CatalogBaseURL)
	cache := catalog.NewTTLCache(syncdCfg.CatalogCacheTTLSec, nc, "syncd.cache.invalidate")

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: func() error {
		if pool != nil {
			return pool.Ping(context.Background())
		}
		return nil
	}})

	r.Get("/v1/catalog/lists/{list_type}", handlers.ListMovies(catalogClient, cache))
	r.Get("/v1/catalog/search", handlers.SearchMovies(catalogClient, cache))
	r.Get("/v1/catalog/movies/{movie_slug}", handlers.GetMovie(catalogClient, cache))
	r.Get("/v1/catalog/categories", handlers.ListCategories(catalogClient, cache))
	r.Get("/v1/catalog/categories/{category_slug}/movies", handlers.MoviesByCategory(catalogClient, cache))
	r.Get("/v1/catalog/countries", handlers.ListCountries(catalogClient, cache))

	// State routes work signed out; a valid token scopes the mirror writes.
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		r.Get("/v1/state/progress", handlers.ListProgress(manager))
		r.Get("/v1/state/progress/{movie_slug}", handlers.GetProgress(manager))
		r.Post("/v1/state/progress", handlers.SaveProgress(manager))
		r.Get("/v1/state/favorites", handlers.ListFavorites(manager))
		r.Get("/v1/state/favorites/{movie_slug}", handlers.GetFavorite(manager))
		r.Post("/v1/state/favorites/toggle", handlers.ToggleFavorite(manager))
		r.Get("/v1/state/history", handlers.ListHistory(manager))
		r.Post("/v1/state/history", handlers.AddHistory(manager))
		r.Delete("/v1/state/history", handlers.ClearHistory(manager))
		r.Get("/v1/sync/resume", handlers.GetResume(manager))
		r.Post("/v1/sync/resume/dismiss", handlers.DismissResume(manager))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/sync/login", handlers.SignIn(manager))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	// Drain queued incremental pushes before the process goes away.
	pusher.Flush()

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
