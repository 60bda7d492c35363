package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/placesearch/internal/api/handlers"
	"github.com/cloo-solutions/placesearch/internal/cache"
	"github.com/cloo-solutions/placesearch/internal/config"
	"github.com/cloo-solutions/placesearch/internal/database"
	"github.com/cloo-solutions/placesearch/internal/jobs"
	"github.com/cloo-solutions/placesearch/internal/repository"
	"github.com/cloo-solutions/placesearch/internal/scorer"
	"github.com/cloo-solutions/placesearch/internal/server"
	"github.com/cloo-solutions/placesearch/internal/service"
	"github.com/cloo-solutions/placesearch/internal/telemetry"
)

const searchLogPruneInterval = time.Hour

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search server",
		Long:  "Start the place search HTTP server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// 10% sampling in production, everything in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if portFlag, _ := cmd.Flags().GetString("port"); cmd.Flags().Changed("port") {
		cfg.Port = portFlag
	}

	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}

	source, closeSource, err := openCandidateSource(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeSource()

	queryCache, closeCache, err := openQueryCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	var workers []*jobs.Worker
	if mc, ok := queryCache.(*cache.MemoryCache); ok {
		workers = append(workers, jobs.NewWorker("cache janitor", jobs.NewCacheJanitor(mc), cfg.JanitorInterval))
	}

	searchSvc := service.NewSearchService(source, queryCache, scorer.MustNew(scorer.Config{}), service.SearchServiceConfig{
		FetchTimeout:  cfg.FetchTimeout,
		CellPrecision: cfg.CellPrecision,
	})

	var searchHandler *handlers.SearchHandler
	if cfg.HasSearchLog() {
		logRepo := repository.NewSearchLogRepository(pool)
		searchHandler = handlers.NewSearchHandler(searchSvc, logRepo)
		workers = append(workers, jobs.NewWorker("search log retention",
			jobs.NewSearchLogRetention(logRepo, cfg.SearchLogRetention), searchLogPruneInterval))
		log.Println("search logging enabled")
	} else {
		searchHandler = handlers.NewSearchHandler(searchSvc, nil)
	}

	for _, w := range workers {
		go w.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{SearchHandler: searchHandler})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s (source=%s, cache=%s)", cfg.Port, cfg.CandidateSource, cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// openCandidateSource builds the configured candidate source. The returned
// func releases whatever connection the source holds.
func openCandidateSource(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (service.CandidateSource, func(), error) {
	switch cfg.CandidateSource {
	case config.SourcePostgres:
		if pool == nil {
			return nil, nil, fmt.Errorf("candidate source %q needs a database", cfg.CandidateSource)
		}
		return repository.NewPlaceRepository(pool), func() {}, nil

	case config.SourceMongo:
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoPlaceRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		log.Printf("connected to mongo database %s", cfg.MongoDatabase)
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.SourceMemory:
		repo, err := loadMemorySource(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("loaded %d places from %s", repo.Len(), cfg.SeedFile)
		return repo, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown candidate source %q", cfg.CandidateSource)
}

func openQueryCache(ctx context.Context, cfg *config.Config) (cache.QueryCache, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		mc, err := cache.NewMemoryCache(cache.MemoryConfig{MaxEntries: cfg.CacheMaxEntries, TTL: cfg.CacheTTL})
		if err != nil {
			return nil, nil, err
		}
		return mc, func() {}, nil

	case config.CacheRedis:
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("connected to redis at %s", cfg.RedisAddr)
		return cache.NewRedisCache(client, cfg.CacheTTL), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}
