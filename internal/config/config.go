package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from an optional TOML file and
// env vars. Env vars win.
type Config struct {
	Port               string
	StorageDriver      string
	DatabaseURL        string
	JWTSecret          string
	JWTIssuer          string
	JWTTTL             time.Duration
	CORSOrigins        []string
	DefaultBalance     decimal.Decimal
	Currency           string
	LedgerMaxAttempts  int
	LoginRatePerMinute int
	LogLevel           string
	LogFormat          string
}

// fileConfig mirrors the TOML layout.
type fileConfig struct {
	Server struct {
		Port        string   `toml:"port"`
		CORSOrigins []string `toml:"cors_allowed_origins"`
	} `toml:"server"`
	Storage struct {
		Driver      string `toml:"driver"`
		DatabaseURL string `toml:"database_url"`
	} `toml:"storage"`
	Auth struct {
		JWTSecret          string `toml:"jwt_secret"`
		JWTIssuer          string `toml:"jwt_issuer"`
		JWTTTLMinutes      int    `toml:"jwt_ttl_minutes"`
		LoginRatePerMinute int    `toml:"login_rate_per_minute"`
	} `toml:"auth"`
	Ledger struct {
		DefaultBalance string `toml:"default_balance"`
		Currency       string `toml:"currency"`
		MaxAttempts    int    `toml:"max_attempts"`
	} `toml:"ledger"`
	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"logging"`
}

// Load reads configuration from CONFIG_FILE (if set) and the environment and
// performs minimal validation.
func Load() (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), file.Server.Port, "8080"),
		StorageDriver: strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), file.Storage.Driver, DriverPostgres)),
		DatabaseURL:   fallback(os.Getenv("DATABASE_URL"), file.Storage.DatabaseURL),
		JWTSecret:     fallback(os.Getenv("JWT_SECRET"), file.Auth.JWTSecret),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), file.Auth.JWTIssuer, "fund-ledger"),
		Currency:      strings.ToUpper(fallback(os.Getenv("CURRENCY"), file.Ledger.Currency, "COP")),
		LogLevel:      fallback(os.Getenv("LOG_LEVEL"), file.Logging.Level, "info"),
		LogFormat:     fallback(os.Getenv("LOG_FORMAT"), file.Logging.Format, "json"),
	}

	origins := fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), strings.Join(file.Server.CORSOrigins, ","), "*")
	cfg.CORSOrigins = parseCSV(origins)

	cfg.JWTTTL = time.Duration(positiveInt(os.Getenv("JWT_TTL_MINUTES"), file.Auth.JWTTTLMinutes, 60)) * time.Minute
	cfg.LedgerMaxAttempts = positiveInt(os.Getenv("LEDGER_MAX_ATTEMPTS"), file.Ledger.MaxAttempts, 3)
	cfg.LoginRatePerMinute = positiveInt(os.Getenv("LOGIN_RATE_PER_MINUTE"), file.Auth.LoginRatePerMinute, 10)

	balance, err := decimal.NewFromString(fallback(os.Getenv("DEFAULT_BALANCE"), file.Ledger.DefaultBalance, "500"))
	if err != nil || balance.IsNegative() {
		return Config{}, errors.New("DEFAULT_BALANCE must be a non-negative decimal")
	}
	if !models.FitsMoneyScale(balance) {
		return Config{}, fmt.Errorf("DEFAULT_BALANCE must have at most %d decimal places", models.MoneyScale)
	}
	cfg.DefaultBalance = balance

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// fallback returns the first non-blank value.
func fallback(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func positiveInt(env string, fromFile, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(env)); err == nil && n > 0 {
		return n
	}
	if fromFile > 0 {
		return fromFile
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
