package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	APIPort  string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// CatalogConfig configures where catalog rows come from and how they are indexed
type CatalogConfig struct {
	Source          string // file | http | postgres | redis
	Files           []string
	URLs            []string
	CacheTTL        time.Duration
	BuildTimeout    time.Duration
	HTTPRPS         float64
	SourceLabel     string
	MinYear         int
	TablesFile      string
	PrefixFiltering bool
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "catalog"),
			User:     getEnv("DB_USER", "catalog"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 1),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Key:      getEnv("REDIS_KEY", "catalog:rows"),
		},
		Catalog: CatalogConfig{
			Source:          strings.ToLower(getEnv("CATALOG_SOURCE", "file")),
			Files:           getEnvList("CATALOG_FILE", []string{"data/catalog.csv"}),
			URLs:            getEnvList("CATALOG_URLS", nil),
			CacheTTL:        getEnvDuration("CATALOG_CACHE_TTL", 6*time.Hour),
			BuildTimeout:    getEnvDuration("CATALOG_BUILD_TIMEOUT", 2*time.Minute),
			HTTPRPS:         getEnvFloat("CATALOG_HTTP_RPS", 2),
			SourceLabel:     getEnv("CATALOG_SOURCE_LABEL", "Fasecolda (Vehículos usados)"),
			MinYear:         getEnvInt("MIN_SUPPORTED_YEAR", 2000),
			TablesFile:      getEnv("MATCHING_TABLES_FILE", ""),
			PrefixFiltering: getEnvBool("PREFIX_FILTERING", true),
		},
		APIPort:  getEnv("API_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
