// Package config provides configuration management functionality.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (defaults to "./data", always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	AlphaVantageAPIKey string
	FREDAPIKey         string
	RapidAPIKey        string

	RedisAddr     string // Empty means the SQLite cache is used
	RedisPassword string

	CORSAllowedOrigins []string

	Risk   RiskConfig
	Backup BackupConfig
}

// RiskConfig holds risk engine defaults
type RiskConfig struct {
	LookbackDays       int
	FetchConcurrency   int
	Thresholds         risk.Thresholds
	Scenarios          []domain.Scenario
	ScenariosFile      string
	EvaluationSchedule string
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Empty uses the AWS default endpoint
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int
	Schedule        string
}

// Enabled reports whether backups can run.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RISK_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	defaults := risk.DefaultThresholds()

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8001),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AlphaVantageAPIKey: getEnv("ALPHAVANTAGE_API_KEY", ""),
		FREDAPIKey:         getEnv("FRED_API_KEY", ""),
		RapidAPIKey:        getEnv("RAPIDAPI_KEY", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		CORSAllowedOrigins: utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Risk: RiskConfig{
			LookbackDays:     getEnvAsInt("RISK_LOOKBACK_DAYS", risk.DefaultLookbackDays),
			FetchConcurrency: getEnvAsInt("RISK_FETCH_CONCURRENCY", risk.DefaultFetchConcurrency),
			Thresholds: risk.Thresholds{
				VaR95:      getEnvAsFloat("RISK_VAR95_THRESHOLD", defaults.VaR95),
				VaR99:      getEnvAsFloat("RISK_VAR99_THRESHOLD", defaults.VaR99),
				StressLoss: getEnvAsFloat("RISK_STRESS_LOSS_THRESHOLD", defaults.StressLoss),
			},
			ScenariosFile:      getEnv("RISK_SCENARIOS_FILE", ""),
			EvaluationSchedule: getEnv("RISK_EVALUATION_SCHEDULE", "@every 15m"),
		},
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("BACKUP_S3_PREFIX", "riskdash"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
		},
	}

	cfg.Risk.Scenarios = domain.DefaultScenarios()
	if cfg.Risk.ScenariosFile != "" {
		scenarios, err := LoadScenarios(cfg.Risk.ScenariosFile)
		if err != nil {
			return nil, err
		}
		cfg.Risk.Scenarios = scenarios
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadScenarios reads a JSON array of scenarios and validates each one.
func LoadScenarios(path string) ([]domain.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios file: %w", err)
	}

	var scenarios []domain.Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios file %s: %w", path, err)
	}

	for i, s := range scenarios {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %d in %s: %w", i, path, err)
		}
	}

	return scenarios, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	if c.Risk.LookbackDays < 2 {
		return fmt.Errorf("RISK_LOOKBACK_DAYS must be at least 2, got %d", c.Risk.LookbackDays)
	}
	if c.Risk.FetchConcurrency <= 0 {
		return fmt.Errorf("RISK_FETCH_CONCURRENCY must be positive, got %d", c.Risk.FetchConcurrency)
	}
	t := c.Risk.Thresholds
	if t.VaR95 < 0 || t.VaR99 < 0 || t.StressLoss < 0 {
		return fmt.Errorf("risk thresholds must be non-negative")
	}
	if c.Backup.Enabled() && (c.Backup.AccessKeyID == "") != (c.Backup.SecretAccessKey == "") {
		return fmt.Errorf("BACKUP_S3_ACCESS_KEY_ID and BACKUP_S3_SECRET_ACCESS_KEY must be set together")
	}

	// API keys are optional: asset classes without a key report fetch failures

	return nil
}

// BackupRetention returns the retention window as a duration.
func (b BackupConfig) BackupRetention() time.Duration {
	return time.Duration(b.RetentionDays) * 24 * time.Hour
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
