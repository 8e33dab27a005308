package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// HTTP transport
	ListenAddr string

	// Price lookups
	PriceLookupTimeout time.Duration // per-call deadline for single-symbol price fetches

	// Risk settings defaults (seed values for the risk settings store)
	MaxRiskPerTrade float64 // percent of balance risked per trade
	MaxPositions    int     // maximum simultaneously open positions
	DailyLossLimit  float64 // percent of balance lost before trading halts
	AutoStopLoss    bool

	// Database
	DBPath string

	// Logging
	LogLevel       string
	LogDevelopment bool

	// Runtime-mutable options, owned by a single Runtime instance.
	Runtime *Runtime
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// HTTP transport
	cfg.ListenAddr = getEnv("LISTEN_ADDR", ":8080")

	// Price lookups
	priceTimeoutSeconds := getEnvAsInt("PRICE_LOOKUP_TIMEOUT_SECONDS", 3)
	if priceTimeoutSeconds <= 0 {
		errs = append(errs, "PRICE_LOOKUP_TIMEOUT_SECONDS must be positive")
	}
	cfg.PriceLookupTimeout = time.Duration(priceTimeoutSeconds) * time.Second

	// Risk settings defaults
	cfg.MaxRiskPerTrade, err = getEnvAsFloatRequired("MAX_RISK_PER_TRADE", 2.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_RISK_PER_TRADE: %v", err))
	} else if cfg.MaxRiskPerTrade <= 0 {
		errs = append(errs, "MAX_RISK_PER_TRADE must be positive")
	}

	cfg.MaxPositions, err = getEnvAsIntRequired("MAX_POSITIONS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITIONS: %v", err))
	} else if cfg.MaxPositions <= 0 {
		errs = append(errs, "MAX_POSITIONS must be positive")
	}

	cfg.DailyLossLimit, err = getEnvAsFloatRequired("DAILY_LOSS_LIMIT", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DAILY_LOSS_LIMIT: %v", err))
	} else if cfg.DailyLossLimit <= 0 {
		errs = append(errs, "DAILY_LOSS_LIMIT must be positive")
	}

	cfg.AutoStopLoss = getEnvAsBool("AUTO_STOP_LOSS", true)

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trade_desk.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogDevelopment = getEnvAsBool("LOG_DEVELOPMENT", false)

	// Runtime-mutable options are seeded from the environment once and
	// then mutated only through Runtime.ApplyUpdate.
	cfg.Runtime = NewRuntime(RuntimeOptions{
		PaperTrading: getEnvAsBool("PAPER_TRADING", true),
		AIProvider:   getEnv("AI_PROVIDER", "openai"),
	})

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// RuntimeOptions are the configuration values that may change while the
// process is running.
type RuntimeOptions struct {
	PaperTrading bool   `json:"paperTrading"`
	AIProvider   string `json:"aiProvider"`
}

// RuntimeUpdate is a partial update of RuntimeOptions. Nil fields are
// left unchanged.
type RuntimeUpdate struct {
	PaperTrading *bool   `json:"paperTrading"`
	AIProvider   *string `json:"aiProvider"`
}

// Runtime owns the runtime-mutable options. All reads and updates are
// serialized; the process environment is never mutated after startup.
type Runtime struct {
	mu   sync.RWMutex
	opts RuntimeOptions
}

// NewRuntime creates a Runtime seeded with the given options.
func NewRuntime(opts RuntimeOptions) *Runtime {
	return &Runtime{opts: opts}
}

// Current returns the effective options.
func (r *Runtime) Current() RuntimeOptions {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opts
}

// ApplyUpdate applies a partial update and returns the new effective
// options.
func (r *Runtime) ApplyUpdate(upd RuntimeUpdate) RuntimeOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	if upd.PaperTrading != nil {
		r.opts.PaperTrading = *upd.PaperTrading
	}
	if upd.AIProvider != nil && *upd.AIProvider != "" {
		r.opts.AIProvider = *upd.AIProvider
	}
	return r.opts
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
