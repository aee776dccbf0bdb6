package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/config"
	"valuation-catalog-api/internal/database"
	"valuation-catalog-api/internal/handler"
	"valuation-catalog-api/internal/matching"
	"valuation-catalog-api/internal/metrics"
	"valuation-catalog-api/internal/repository"
	"valuation-catalog-api/internal/service"
	"valuation-catalog-api/internal/source"
)

func main() {
	cfg := config.Load()

	// Logger estruturado
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("iniciando valuation-catalog-api", "source", cfg.Catalog.Source)

	tables, weights, err := config.LoadTables(cfg.Catalog.TablesFile)
	if err != nil {
		slog.Error("falha ao carregar tabelas de matching", "error", err)
		os.Exit(1)
	}

	// Metricas
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewPrometheus(registry)
	if err != nil {
		slog.Error("falha ao registrar metricas", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fonte das linhas do catalogo
	fetcher, db, closeSource, err := buildFetcher(ctx, cfg, logger)
	if err != nil {
		slog.Error("falha ao configurar fonte do catalogo", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	normalizer := matching.NewNormalizer(tables)
	indexer := catalog.NewIndexer(normalizer, cfg.Catalog.MinYear)
	manager := catalog.NewManager(fetcher, indexer, catalog.ManagerConfig{
		TTL:          cfg.Catalog.CacheTTL,
		BuildTimeout: cfg.Catalog.BuildTimeout,
		Logger:       logger,
		Metrics:      collector,
	})

	// Service
	valuationSvc := service.NewValuationService(manager, normalizer, matching.NewPrefixExtractor(tables), service.ValuationConfig{
		MinYear:         cfg.Catalog.MinYear,
		PrefixFiltering: cfg.Catalog.PrefixFiltering,
		SourceLabel:     cfg.Catalog.SourceLabel,
		Weights:         weights,
		Logger:          logger,
		Metrics:         collector,
	})

	// Handlers
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	healthHandler := handler.NewHealthHandler(manager, pinger)
	valuationHandler := handler.NewValuationHandler(valuationSvc, manager, logger)

	// Aquece o indice sem bloquear o start
	go func() {
		if _, err := manager.GetIndex(ctx); err != nil {
			slog.Warn("aquecimento do catalogo falhou", "error", err)
		}
	}()

	// Router
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Catalog.BuildTimeout + 30*time.Second))

	// CORS middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Routes
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/valuations", valuationHandler.Resolve)
		r.Delete("/valuations/cache", valuationHandler.ResetCache)
		r.Get("/brands", valuationHandler.Brands)
	})

	// Server
	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Catalog.BuildTimeout + 45*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		slog.Info("servidor iniciado", "port", cfg.APIPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("erro no servidor", "error", err)
		}
	}()

	<-ctx.Done()

	slog.Info("encerrando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("erro ao encerrar servidor", "error", err)
	}

	slog.Info("servidor encerrado")
}

// buildFetcher monta a fonte configurada em CATALOG_SOURCE. O pool retornado
// e nao-nil apenas para a fonte postgres.
func buildFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.RowFetcher, *pgxpool.Pool, func(), error) {
	noop := func() {}

	switch cfg.Catalog.Source {
	case "file":
		sources := make([]catalog.RowFetcher, 0, len(cfg.Catalog.Files))
		for _, path := range cfg.Catalog.Files {
			sources = append(sources, source.NewFileSource(path))
		}
		return source.NewFallback(logger, sources...), nil, noop, nil

	case "http":
		limiter := rate.NewLimiter(rate.Limit(cfg.Catalog.HTTPRPS), 1)
		sources := make([]catalog.RowFetcher, 0, len(cfg.Catalog.URLs)+len(cfg.Catalog.Files))
		for _, u := range cfg.Catalog.URLs {
			sources = append(sources, source.NewHTTPSource(u, source.HTTPConfig{Limiter: limiter, Logger: logger}))
		}
		// local exports stay as the last resort
		for _, path := range cfg.Catalog.Files {
			sources = append(sources, source.NewFileSource(path))
		}
		return source.NewFallback(logger, sources...), nil, noop, nil

	case "postgres":
		slog.Info("conectando ao banco de dados", "host", cfg.Database.Host, "database", cfg.Database.Name)
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		db, err := database.Connect(connectCtx, database.ConnectionConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Name,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		if err := database.RunMigrations(connectCtx, db); err != nil {
			db.Close()
			return nil, nil, noop, err
		}
		slog.Info("conexao com banco estabelecida")
		return repository.NewCatalogRepo(db), db, db.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, noop, fmt.Errorf("redis ping failed: %w", err)
		}
		closeFn := func() { client.Close() }
		return source.NewRedisSnapshot(client, cfg.Redis.Key, 0), nil, closeFn, nil

	default:
		return nil, nil, noop, fmt.Errorf("unknown CATALOG_SOURCE %q", cfg.Catalog.Source)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
