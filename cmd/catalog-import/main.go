package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"valuation-catalog-api/internal/catalog"
	"valuation-catalog-api/internal/config"
	"valuation-catalog-api/internal/database"
	"valuation-catalog-api/internal/matching"
	"valuation-catalog-api/internal/model"
	"valuation-catalog-api/internal/repository"
	"valuation-catalog-api/internal/source"
)

func main() {
	// Parse command line flags
	var (
		// Input flags
		inputs = flag.String("input", getEnv("CATALOG_FILE", ""), "Catalog files or URLs, comma-separated (.csv or .json)")
		merge  = flag.Bool("merge", false, "Concatenate every input instead of using the first that succeeds")
		rps    = flag.Float64("rps", 2, "Max HTTP requests per second for URL inputs")

		// Indexing flags
		minYear    = flag.Int("min-year", getEnvInt("MIN_SUPPORTED_YEAR", catalog.DefaultMinYear), "Oldest model year kept in the report")
		tablesFile = flag.String("tables", getEnv("MATCHING_TABLES_FILE", ""), "YAML file overriding the matching tables")

		// Postgres flags
		toPostgres = flag.Bool("to-postgres", false, "Replace the rows stored in Postgres")
		dbHost     = flag.String("db-host", getEnv("DB_HOST", "localhost"), "Database host")
		dbPort     = flag.Int("db-port", getEnvInt("DB_PORT", 5432), "Database port")
		dbName     = flag.String("db-name", getEnv("DB_NAME", "catalog"), "Database name")
		dbUser     = flag.String("db-user", getEnv("DB_USER", "catalog"), "Database user")
		dbPassword = flag.String("db-password", getEnv("DB_PASSWORD", ""), "Database password")
		dbSSLMode  = flag.String("db-sslmode", getEnv("DB_SSLMODE", "disable"), "Database SSL mode")

		// Redis flags
		toRedis       = flag.Bool("to-redis", false, "Publish the rows as a Redis snapshot")
		redisAddr     = flag.String("redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address")
		redisPassword = flag.String("redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
		redisDB       = flag.Int("redis-db", getEnvInt("REDIS_DB", 0), "Redis database")
		redisKey      = flag.String("redis-key", getEnv("REDIS_KEY", source.DefaultRedisKey), "Redis key holding the snapshot")
		redisTTL      = flag.Duration("redis-ttl", 0, "Snapshot expiration (0 keeps it forever)")

		dryRun   = flag.Bool("dry-run", false, "Only read and report, publish nothing")
		logLevel = flag.String("log-level", getEnv("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	)

	flag.Parse()

	// Validate required flags
	inputList := splitList(*inputs)
	if len(inputList) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one input is required (use -input or CATALOG_FILE env)")
		os.Exit(1)
	}
	if !*dryRun && !*toPostgres && !*toRedis {
		fmt.Fprintln(os.Stderr, "Error: choose a destination with -to-postgres and/or -to-redis, or use -dry-run")
		os.Exit(1)
	}
	if *toPostgres && !*dryRun && *dbPassword == "" {
		fmt.Fprintln(os.Stderr, "Error: database password is required (use -db-password or DB_PASSWORD env)")
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(*logLevel)

	logger.Info("starting catalog import",
		"inputs", len(inputList),
		"merge", *merge,
		"to_postgres", *toPostgres,
		"to_redis", *toRedis,
		"dry_run", *dryRun,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables, _, err := config.LoadTables(*tablesFile)
	if err != nil {
		logger.Error("failed to load matching tables", "error", err)
		os.Exit(1)
	}

	// Read rows
	limiter := rate.NewLimiter(rate.Limit(*rps), 1)
	sources := make([]catalog.RowFetcher, 0, len(inputList))
	for _, in := range inputList {
		if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
			sources = append(sources, source.NewHTTPSource(in, source.HTTPConfig{Limiter: limiter, Logger: logger}))
		} else {
			sources = append(sources, source.NewFileSource(in))
		}
	}

	var fetcher catalog.RowFetcher = source.NewFallback(logger, sources...)
	if *merge {
		fetcher = source.NewMerge(sources...)
	}

	start := time.Now()
	rows, err := fetcher.FetchRows(ctx)
	if err != nil {
		logger.Error("failed to read catalog rows", "error", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		logger.Error("inputs contained no rows")
		os.Exit(1)
	}

	// Report what the API would index
	indexer := catalog.NewIndexer(matching.NewNormalizer(tables), *minYear)
	index := indexer.Build(rows)
	report(logger, index, time.Since(start))

	if *dryRun {
		logger.Info("dry run, nothing published")
		return
	}

	if *toPostgres {
		if err := publishPostgres(ctx, logger, rows, database.ConnectionConfig{
			Host:     *dbHost,
			Port:     *dbPort,
			Database: *dbName,
			User:     *dbUser,
			Password: *dbPassword,
			SSLMode:  *dbSSLMode,
			MaxConns: 2,
			MinConns: 1,
		}); err != nil {
			logger.Error("failed to publish rows to postgres", "error", err)
			os.Exit(1)
		}
	}

	if *toRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: *redisPassword,
			DB:       *redisDB,
		})
		defer client.Close()

		snapshot := source.NewRedisSnapshot(client, *redisKey, *redisTTL)
		if err := snapshot.Publish(ctx, rows); err != nil {
			logger.Error("failed to publish rows to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("published redis snapshot", "key", *redisKey, "rows", len(rows))
	}

	logger.Info("catalog import completed successfully")
}

func publishPostgres(ctx context.Context, logger *slog.Logger, rows []model.RawRow, cfg database.ConnectionConfig) error {
	dbPool, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if err := database.RunMigrations(ctx, dbPool); err != nil {
		return err
	}

	copied, err := repository.NewCatalogRepo(dbPool).ReplaceRows(ctx, rows)
	if err != nil {
		return err
	}
	logger.Info("replaced postgres catalog", "rows", copied)
	return nil
}

// report logs the index summary with the largest brands first
func report(logger *slog.Logger, index *catalog.Index, elapsed time.Duration) {
	brands := index.Brands()
	sort.SliceStable(brands, func(i, j int) bool {
		return brands[i].Entries > brands[j].Entries
	})

	logger.Info("catalog indexed",
		"rows", index.RowCount,
		"dropped", index.Dropped,
		"brands", len(brands),
		"elapsed", elapsed,
	)
	for i, b := range brands {
		if i == 10 {
			break
		}
		logger.Info("brand", "key", b.BrandKey, "label", b.PreferredLabel, "references", b.Entries)
	}
}

// setupLogger creates a structured logger with the specified level
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

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// splitList splits comma-separated values and filters empty ones
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
