package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	Redis     RedisConfig
	Log       LogConfig
	Cache     CacheConfig
	HTTPCache HTTPCacheConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	MigrationsPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	CompanyName    string
	BaseURL        string
	QueueSize      int
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	ClusterAddrs []string
	KeyPrefix    string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// CacheConfig drives the entity-level cache and its guard around the store.
type CacheConfig struct {
	OpTimeout     time.Duration
	PrefixTimeout time.Duration
	CoalesceMiss  bool
	UserTTL       time.Duration
	ReferenceTTL  time.Duration
	ServicesTTL   time.Duration
	BookingsTTL   time.Duration
	ReviewsTTL    time.Duration
	BreakerMinReq uint32
	BreakerRatio  float64
	BreakerOpen   time.Duration
}

type HTTPCacheConfig struct {
	Enabled   bool
	BasePath  string
	Resources []string
	TTL       time.Duration
}

type RateLimitConfig struct {
	// Backend is "memory" (per process) or "redis" (windows shared by every instance).
	Backend         string
	KeyPrefix       string
	MessagingLimit  int
	MessagingWindow time.Duration
	DisputeLimit    int
	DisputeWindow   time.Duration
	SweepInterval   time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"*"}),
			Environment:    getEnv("APP_ENV", "development"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "marketplace"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnvRequired("JWT_SECRET"),
			Issuer: getEnv("JWT_ISSUER", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "Marketplace"),
			CompanyName:    getEnv("COMPANY_NAME", "Marketplace"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
			QueueSize:      getIntEnv("EMAIL_QUEUE_SIZE", 256),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			ClusterAddrs: getListEnv("REDIS_CLUSTER_ADDRS", nil),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "appcache"),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			OpTimeout:     getDurationEnv("CACHE_OP_TIMEOUT", 250*time.Millisecond),
			PrefixTimeout: getDurationEnv("CACHE_PREFIX_TIMEOUT", 750*time.Millisecond),
			CoalesceMiss:  getBoolEnv("CACHE_COALESCE_MISSES", true),
			UserTTL:       getDurationEnv("CACHE_TTL_USER", time.Hour),
			ReferenceTTL:  getDurationEnv("CACHE_TTL_REFERENCE", time.Hour),
			ServicesTTL:   getDurationEnv("CACHE_TTL_SERVICES", 30*time.Minute),
			BookingsTTL:   getDurationEnv("CACHE_TTL_BOOKINGS", 10*time.Minute),
			ReviewsTTL:    getDurationEnv("CACHE_TTL_REVIEWS", 30*time.Minute),
			BreakerMinReq: uint32(getIntEnv("CACHE_BREAKER_MIN_REQUESTS", 10)),
			BreakerRatio:  getFloatEnv("CACHE_BREAKER_FAILURE_RATIO", 0.6),
			BreakerOpen:   getDurationEnv("CACHE_BREAKER_OPEN_TIMEOUT", 10*time.Second),
		},
		HTTPCache: HTTPCacheConfig{
			Enabled:   getBoolEnv("HTTP_CACHE_ENABLED", true),
			BasePath:  getEnv("HTTP_CACHE_BASE_PATH", "/api/v1"),
			Resources: getListEnv("HTTP_CACHE_RESOURCES", []string{"users", "cities", "service-categories", "services", "bookings", "reviews"}),
			TTL:       getDurationEnv("HTTP_CACHE_TTL", 300*time.Second),
		},
		RateLimit: RateLimitConfig{
			Backend:         getEnv("RATE_LIMIT_BACKEND", "memory"),
			KeyPrefix:       getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
			MessagingLimit:  getIntEnv("RATE_LIMIT_MESSAGING_LIMIT", 10),
			MessagingWindow: getDurationEnv("RATE_LIMIT_MESSAGING_WINDOW", time.Minute),
			DisputeLimit:    getIntEnv("RATE_LIMIT_DISPUTE_LIMIT", 3),
			DisputeWindow:   getDurationEnv("RATE_LIMIT_DISPUTE_WINDOW", 24*time.Hour),
			SweepInterval:   getDurationEnv("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if cfg.Cache.OpTimeout >= time.Second {
		return nil, fmt.Errorf("CACHE_OP_TIMEOUT must be sub-second, got %s", cfg.Cache.OpTimeout)
	}
	if cfg.Cache.PrefixTimeout >= time.Second {
		return nil, fmt.Errorf("CACHE_PREFIX_TIMEOUT must be sub-second, got %s", cfg.Cache.PrefixTimeout)
	}

	switch cfg.RateLimit.Backend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", cfg.RateLimit.Backend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
