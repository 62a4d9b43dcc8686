package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	AllowedOrigin string
	// Mongo
	MongoURI     string
	MongoDB      string
	MongoMaxPool uint64
	MongoMinPool uint64
	QueryTimeout time.Duration
	// Cache
	CacheBackend         string // "redis", "memory" or "none"
	RedisAddr            string
	CacheOpTimeout       time.Duration
	CacheConnectAttempts int
	CacheConnectDelay    time.Duration
	CacheSearchTTL       time.Duration
	CacheListTTL         time.Duration
	CacheFacetTTL        time.Duration
	// Query defaults
	DefaultRadiusMeters float64
	// Rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: Try loading .env (standard local dev)
		// We don't error here because in pure docker/prod envs, .env might not exist,
		// and we rely on system env vars.
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		MongoURI:     getEnv("MONGO_URI", ""),
		MongoDB:      getEnv("MONGO_DB", "medcatalog"),
		MongoMaxPool: uint64(getInt64Env("MONGO_MAX_POOL", 50)),
		MongoMinPool: uint64(getInt64Env("MONGO_MIN_POOL", 5)),
		QueryTimeout: getDurationEnv("QUERY_TIMEOUT", 5*time.Second),

		// Cache defaults: redis when an address is set, otherwise no-op.
		CacheBackend:         getEnv("CACHE_BACKEND", "redis"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		CacheOpTimeout:       getDurationEnv("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheConnectAttempts: getIntEnv("CACHE_CONNECT_ATTEMPTS", 5),
		CacheConnectDelay:    getDurationEnv("CACHE_CONNECT_DELAY", 500*time.Millisecond),

		// TTLs: search results churn with relevance ranking, keep them short.
		CacheSearchTTL: getDurationEnv("CACHE_SEARCH_TTL", 2*time.Minute),
		CacheListTTL:   getDurationEnv("CACHE_LIST_TTL", 10*time.Minute),
		CacheFacetTTL:  getDurationEnv("CACHE_FACET_TTL", time.Hour),

		DefaultRadiusMeters: getFloatEnv("DEFAULT_RADIUS_METERS", 10000),

		RateLimitPerSecond: getFloatEnv("RATE_LIMIT_PER_SECOND", 50),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 100),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.MongoURI == "" {
		log.Fatal("CRITICAL: MONGO_URI environment variable is required")
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		log.Println("WARNING: CACHE_BACKEND=redis but REDIS_ADDR is empty, caching disabled")
	}
}

// IsProduction reports whether detailed error messages must be suppressed.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
		log.Printf("Invalid int64 for %s, using fallback", key)
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid float for %s, using fallback", key)
	}
	return fallback
}
