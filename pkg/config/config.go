package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-level config
type ServerConfig struct {
	Port int `yaml:"port"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or memory
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LedgerConfig tunes the loan book arithmetic. Rates are decimal strings so
// they reach the ledger without a float conversion.
type LedgerConfig struct {
	Timezone      string `yaml:"timezone"`
	FineDailyRate string `yaml:"fine_daily_rate"`
	NewCycleRate  string `yaml:"new_cycle_rate"`
	Overpayment   string `yaml:"overpayment"`
}

type AlertsConfig struct {
	DaysBefore int `yaml:"days_before"` // Upcoming window for collections; 0 = unlimited
}

// AppConfig is the main config struct that holds all configs
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LogConfig     `yaml:"logging"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

func defaultConfig() AppConfig {
	return AppConfig{
		Server:  ServerConfig{Port: 8080},
		Storage: StorageConfig{Driver: "sqlite", DSN: "loanbook.db"},
		Logging: LogConfig{Level: "info"},
		Ledger: LedgerConfig{
			Timezone:      "America/Sao_Paulo",
			FineDailyRate: "0.0158",
			NewCycleRate:  "10",
			Overpayment:   "balance_only",
		},
		Alerts: AlertsConfig{DaysBefore: 3},
	}
}

func assignEnvOverrides(cfg *AppConfig) *AppConfig {
	cfg.Server.Port = GetEnvOrDefaultAsInt("SERVER_PORT", cfg.Server.Port)

	cfg.Storage.Driver = GetEnvOrDefaultAsString("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = GetEnvOrDefaultAsString("STORAGE_DSN", cfg.Storage.DSN)

	cfg.Logging.Level = GetEnvOrDefaultAsString("LOGGING_LEVEL", cfg.Logging.Level)

	cfg.Ledger.Timezone = GetEnvOrDefaultAsString("LEDGER_TIMEZONE", cfg.Ledger.Timezone)
	cfg.Ledger.FineDailyRate = GetEnvOrDefaultAsString("LEDGER_FINE_DAILY_RATE", cfg.Ledger.FineDailyRate)
	cfg.Ledger.NewCycleRate = GetEnvOrDefaultAsString("LEDGER_NEW_CYCLE_RATE", cfg.Ledger.NewCycleRate)
	cfg.Ledger.Overpayment = GetEnvOrDefaultAsString("LEDGER_OVERPAYMENT", cfg.Ledger.Overpayment)

	cfg.Alerts.DaysBefore = GetEnvOrDefaultAsInt("ALERTS_DAYS_BEFORE", cfg.Alerts.DaysBefore)
	return cfg
}

// LoadFromConfigFilePath reads the YAML file over the defaults, applies
// environment overrides and validates the result.
func LoadFromConfigFilePath(configPath string) (*AppConfig, error) {
	// #nosec G304: path comes from the operator
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	assignEnvOverrides(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromConfig loads an optional .env file, then the config file named by
// CONFIG_PATH. A missing default config file falls back to defaults plus env.
func LoadFromConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit {
		configPath = "configs/config.yaml"
	}

	cfg, err := LoadFromConfigFilePath(configPath)
	if err == nil {
		return cfg, nil
	}
	if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	fallback := defaultConfig()
	assignEnvOverrides(&fallback)
	if err := validateConfig(&fallback); err != nil {
		return nil, err
	}
	return &fallback, nil
}

func validateConfig(cfg *AppConfig) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be sqlite or memory, got %q", cfg.Storage.Driver)
	}

	if _, err := time.LoadLocation(cfg.Ledger.Timezone); err != nil {
		return fmt.Errorf("ledger.timezone %q: %w", cfg.Ledger.Timezone, err)
	}

	fine, err := decimal.NewFromString(cfg.Ledger.FineDailyRate)
	if err != nil || fine.IsNegative() {
		return fmt.Errorf("ledger.fine_daily_rate must be a non-negative decimal, got %q", cfg.Ledger.FineDailyRate)
	}
	cycle, err := decimal.NewFromString(cfg.Ledger.NewCycleRate)
	if err != nil || cycle.IsNegative() {
		return fmt.Errorf("ledger.new_cycle_rate must be a non-negative decimal, got %q", cfg.Ledger.NewCycleRate)
	}

	switch cfg.Ledger.Overpayment {
	case "balance_only", "carry_forward":
	default:
		return fmt.Errorf("ledger.overpayment must be balance_only or carry_forward, got %q", cfg.Ledger.Overpayment)
	}

	if cfg.Alerts.DaysBefore < 0 {
		return fmt.Errorf("alerts.days_before must not be negative, got %d", cfg.Alerts.DaysBefore)
	}
	return nil
}

// Location returns the configured ledger time zone.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FineRate returns the validated daily fine rate.
func (c *AppConfig) FineRate() decimal.Decimal {
	return decimal.RequireFromString(c.Ledger.FineDailyRate)
}

// CycleRate returns the validated new-cycle margin in percent.
func (c *AppConfig) CycleRate() decimal.Decimal {
	return decimal.RequireFromString(c.Ledger.NewCycleRate)
}

// GetEnvOrDefaultAsInt returns the value of the given env variable
// as an int or the default value if not set or invalid.
func GetEnvOrDefaultAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvOrDefaultAsString(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return defaultVal
}
