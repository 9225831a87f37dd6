package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: price history + run audit)
	Database DatabaseConfig

	// Redis (optional: momentum cache)
	Redis RedisConfig

	// Quote source
	Quotes QuotesConfig

	// Momentum scoring
	Momentum MomentumConfig

	// Optimizer (solver + fallback + refinement)
	Optimizer OptimizerConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// QuotesConfig selects and tunes the price/history provider
type QuotesConfig struct {
	Provider      string // file, chart, html, database
	BaseURL       string
	File          string
	RatePerSecond float64
	Timeout       time.Duration
}

// MomentumConfig holds momentum scoring settings
type MomentumConfig struct {
	CacheTTL         time.Duration
	BatchConcurrency int
	BatchDelay       time.Duration
	HistoryMonths    int
}

// OptimizerConfig holds integer solver, fallback and tolerance settings
type OptimizerConfig struct {
	SolverTimeout     time.Duration
	MaxNodes          int
	DefaultDeviation  float64 // percentage points
	SumEpsilon        float64 // allowed |Σ target% - 100|
	LeftoverThreshold float64 // fraction of budget that triggers refinement
	MaxRelaxation     float64 // max band multiplier during refinement
	RefineIterations  int
	RefineEpsilon     float64 // min leftover improvement (currency) per round
	UtilizationWeight float64
	FairnessWeight    float64
	DefaultStrategy   string
	TemplatesFile     string
}

// SchedulerConfig holds cache warm-up schedule
type SchedulerConfig struct {
	Enabled      bool
	WarmCron     string
	Tickers      []string
	PruneCron    string
	RunRetention time.Duration // 0 disables pruning
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Quotes: QuotesConfig{
			Provider:      getEnv("QUOTES_PROVIDER", "file"),
			BaseURL:       getEnv("QUOTES_BASE_URL", "https://query1.finance.yahoo.com"),
			File:          getEnv("QUOTES_FILE", "quotes.json"),
			RatePerSecond: getEnvAsFloat("QUOTES_RATE_PER_SEC", 5),
			Timeout:       getEnvAsDuration("QUOTES_TIMEOUT", "10s"),
		},

		Momentum: MomentumConfig{
			CacheTTL:         getEnvAsDuration("MOMENTUM_CACHE_TTL", "1h"),
			BatchConcurrency: getEnvAsInt("MOMENTUM_BATCH_CONCURRENCY", 4),
			BatchDelay:       getEnvAsDuration("MOMENTUM_BATCH_DELAY", "200ms"),
			HistoryMonths:    getEnvAsInt("MOMENTUM_HISTORY_MONTHS", 13),
		},

		Optimizer: OptimizerConfig{
			SolverTimeout:     getEnvAsDuration("OPTIMIZER_SOLVER_TIMEOUT", "300ms"),
			MaxNodes:          getEnvAsInt("OPTIMIZER_MAX_NODES", 5000),
			DefaultDeviation:  getEnvAsFloat("OPTIMIZER_DEFAULT_DEVIATION", 5),
			SumEpsilon:        getEnvAsFloat("OPTIMIZER_SUM_EPSILON", 0.01),
			LeftoverThreshold: getEnvAsFloat("OPTIMIZER_LEFTOVER_THRESHOLD", 0.02),
			MaxRelaxation:     getEnvAsFloat("OPTIMIZER_MAX_RELAXATION", 2),
			RefineIterations:  getEnvAsInt("OPTIMIZER_REFINE_ITERATIONS", 5),
			RefineEpsilon:     getEnvAsFloat("OPTIMIZER_REFINE_EPSILON", 0.01),
			UtilizationWeight: getEnvAsFloat("OPTIMIZER_UTILIZATION_WEIGHT", 1),
			FairnessWeight:    getEnvAsFloat("OPTIMIZER_FAIRNESS_WEIGHT", 0),
			DefaultStrategy:   getEnv("OPTIMIZER_DEFAULT_STRATEGY", "auto"),
			TemplatesFile:     getEnv("STRATEGY_TEMPLATES", ""),
		},

		Scheduler: SchedulerConfig{
			Enabled:      getEnvAsBool("SCHEDULER_ENABLED", false),
			WarmCron:     getEnv("WARM_CRON", "0 30 6 * * 1-5"),
			Tickers:      getEnvAsList("WARM_TICKERS", nil),
			PruneCron:    getEnv("PRUNE_CRON", "0 0 3 * * *"),
			RunRetention: getEnvAsDuration("RUN_RETENTION", "2160h"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration populated only with defaults.
// Used by tests and by library callers that do not read the environment.
func Default() *Config {
	return &Config{
		Port: "8080",
		Env:  "development",
		Quotes: QuotesConfig{
			Provider:      "file",
			RatePerSecond: 5,
			Timeout:       10 * time.Second,
		},
		Momentum: MomentumConfig{
			CacheTTL:         time.Hour,
			BatchConcurrency: 4,
			HistoryMonths:    13,
		},
		Optimizer: OptimizerConfig{
			SolverTimeout:     300 * time.Millisecond,
			MaxNodes:          5000,
			DefaultDeviation:  5,
			SumEpsilon:        0.01,
			LeftoverThreshold: 0.02,
			MaxRelaxation:     2,
			RefineIterations:  5,
			RefineEpsilon:     0.01,
			UtilizationWeight: 1,
			DefaultStrategy:   "auto",
		},
		Scheduler: SchedulerConfig{
			WarmCron:     "0 30 6 * * 1-5",
			PruneCron:    "0 0 3 * * *",
			RunRetention: 90 * 24 * time.Hour,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Quotes.Provider {
	case "file", "chart", "html", "database":
	default:
		return fmt.Errorf("QUOTES_PROVIDER must be one of: file, chart, html, database")
	}

	if c.Quotes.Provider == "database" && !c.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is required when QUOTES_PROVIDER=database")
	}

	if c.Optimizer.SolverTimeout <= 0 {
		return fmt.Errorf("OPTIMIZER_SOLVER_TIMEOUT must be positive")
	}

	if c.Optimizer.MaxRelaxation < 1 {
		return fmt.Errorf("OPTIMIZER_MAX_RELAXATION must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
