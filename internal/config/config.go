// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest JWT_SECRET accepted.
const MinSecretLength = 32

// ErrMissingSecret is returned when JWT_SECRET is unset or too short.
var ErrMissingSecret = errors.New("JWT_SECRET must be set to at least 32 characters")

type Config struct {
	Port          string
	GinMode       string
	CORSOrigins   []string
	JWTSecret     string
	BcryptCost    int
	StoreDriver   string // memory | postgres
	IDStrategy    string // uuid | ksuid | snowflake
	SnowflakeNode int64
	SeedData      bool
	DB            DBConfig
	Seed          SeedConfig
	Email         EmailConfig
	RabbitMQURL   string
	RateLimit     RateLimitConfig
	Log           LogConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the Postgres connection URL with every part escaped.
func (c DBConfig) DSN() string {
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

type SeedConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
	DemoName      string
	DemoEmail     string
	DemoPassword  string
}

type EmailConfig struct {
	NotifyTo     string // operator inbox receiving booking notifications
	From         string
	ResendAPIKey string
	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
}

type RateLimitConfig struct {
	Enabled   bool
	Requests  int
	Window    time.Duration
	RedisAddr string
	Prefix    string
}

type LogConfig struct {
	Level string
	Dev   bool
}

// Release reports whether gin runs in release mode.
func (c Config) Release() bool { return c.GinMode == "release" }

// Load reads configs/.env when present and then the process environment.
// It fails when the session signing secret is missing: there is no fallback.
func Load() (Config, error) {
	_ = godotenv.Load("configs/.env")
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		GinMode:       getenv("GIN_MODE", "debug"),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		BcryptCost:    getInt("BCRYPT_COST", 10),
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", "memory")),
		IDStrategy:    getenv("ID_STRATEGY", "uuid"),
		SnowflakeNode: int64(getInt("SNOWFLAKE_NODE", 1)),
		SeedData:      getBool("SEED_DATA", true),
		DB: DBConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", "postgres"),
			Name:     getenv("DB_NAME", "practice"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		Seed: SeedConfig{
			AdminName:     getenv("SEED_ADMIN_NAME", "Practice Admin"),
			AdminEmail:    getenv("SEED_ADMIN_EMAIL", "admin@practice.local"),
			AdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
			DemoName:      getenv("SEED_DEMO_NAME", "Demo Client"),
			DemoEmail:     getenv("SEED_DEMO_EMAIL", "demo@practice.local"),
			DemoPassword:  os.Getenv("SEED_DEMO_PASSWORD"),
		},
		Email: EmailConfig{
			NotifyTo:     getenv("NOTIFY_EMAIL_TO", "bookings@practice.local"),
			From:         getenv("EMAIL_FROM", "Practice <no-reply@practice.local>"),
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			SMTPEnabled:  getBool("SMTP_ENABLED", false),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getenv("SMTP_PORT", "587"),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPass:     os.Getenv("SMTP_PASS"),
		},
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		RateLimit: RateLimitConfig{
			Enabled:   getBool("RATE_LIMIT_ENABLED", true),
			Requests:  getInt("RATE_LIMIT_REQUESTS", 10),
			Window:    getDuration("RATE_LIMIT_WINDOW", time.Minute),
			RedisAddr: os.Getenv("REDIS_ADDR"),
			Prefix:    getenv("RATE_LIMIT_PREFIX", "rl"),
		},
		Log: LogConfig{
			Level: os.Getenv("LOG_LEVEL"),
			Dev:   os.Getenv("LOG_DEV") == "1",
		},
	}

	if len(cfg.JWTSecret) < MinSecretLength {
		return Config{}, ErrMissingSecret
	}
	switch cfg.StoreDriver {
	case "memory", "postgres":
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q: must be memory or postgres", cfg.StoreDriver)
	}
	if cfg.RateLimit.Requests < 1 {
		cfg.RateLimit.Requests = 1
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func getBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
