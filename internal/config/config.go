package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	StoreDatabase = "database"
	StoreRedis    = "redis"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env         string
	LogLevel    string
	ServerPort  string
	SwaggerHost string

	DBDriver    string
	DatabaseDSN string

	RedisAddr string
	RedisDB   int
	RedisPass string

	SessionStore         string
	SessionLifetime      time.Duration
	SessionCookieName    string
	CookieSecure         bool
	SessionSweepInterval time.Duration

	AllowedOrigins []string
	BcryptCost     int
	HashWorkers    int
	StatsCacheTTL  time.Duration
}

// Load builds Config from an optional .env file and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	lifetime := time.Duration(v.GetInt("SESSION_EXPIRES_DAYS")) * 24 * time.Hour
	if v.IsSet("SESSION_LIFETIME") {
		lifetime = v.GetDuration("SESSION_LIFETIME")
	}

	cfg := &Config{
		Env:                  v.GetString("APP_ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		ServerPort:           v.GetString("SERVER_PORT"),
		SwaggerHost:          v.GetString("SWAGGER_HOST"),
		DBDriver:             strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisDB:              v.GetInt("REDIS_DB"),
		RedisPass:            v.GetString("REDIS_PASSWORD"),
		SessionStore:         strings.ToLower(v.GetString("SESSION_STORE")),
		SessionLifetime:      lifetime,
		SessionCookieName:    v.GetString("SESSION_COOKIE_NAME"),
		CookieSecure:         v.GetBool("COOKIE_SECURE"),
		SessionSweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),
		AllowedOrigins:       splitCSV(v.GetString("ALLOWED_ORIGINS")),
		BcryptCost:           v.GetInt("BCRYPT_COST"),
		HashWorkers:          v.GetInt("HASH_WORKERS"),
		StatsCacheTTL:        v.GetDuration("STATS_CACHE_TTL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_DRIVER", DriverMySQL)
	v.SetDefault("DATABASE_DSN", "user:password@tcp(localhost:3306)/schools?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_STORE", StoreDatabase)
	v.SetDefault("SESSION_EXPIRES_DAYS", 7)
	v.SetDefault("SESSION_COOKIE_NAME", "session_token")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "0s")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("HASH_WORKERS", runtime.NumCPU())
	v.SetDefault("STATS_CACHE_TTL", "30s")
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.SessionLifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive, got %s", c.SessionLifetime)
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionStore {
	case StoreDatabase, StoreRedis:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.HashWorkers < 1 {
		c.HashWorkers = 1
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	return nil
}

func splitCSV(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
