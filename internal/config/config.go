package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	// DatabaseURLEnvVar overrides databaseURL when set
	DatabaseURLEnvVar = "ONCALL_DATABASE_URL"

	defaultMaxAttempts = 10000
	defaultWorkers     = 1
	defaultHTTPAddr    = ":8080"
	defaultLogDir      = "logs"
)

// HolidayRule marks recurring public holidays in addition to weekends
type HolidayRule struct {
	RRule string `yaml:"rrule" validate:"required"`
	Name  string `yaml:"name,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL  string        `yaml:"databaseURL" validate:"required"`
	MaxAttempts  int           `yaml:"maxAttempts,omitempty" validate:"omitempty,min=1,max=1000000"`
	Workers      int           `yaml:"workers,omitempty" validate:"omitempty,min=1,max=64"`
	HTTPAddr     string        `yaml:"httpAddr,omitempty"`
	LogDir       string        `yaml:"logDir,omitempty"`
	HolidayRules []HolidayRule `yaml:"holidayRules,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads oncall_config.<env>.yaml after applying any .env file in the current directory
func LoadWithEnv(env string) (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	configPath, err := findConfigFile(fmt.Sprintf("oncall_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := os.Getenv(DatabaseURLEnvVar); url != "" {
		cfg.DatabaseURL = url
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, rule := range cfg.HolidayRules {
		if _, err := rrule.StrToRRule(rule.RRule); err != nil {
			return fmt.Errorf("invalid rrule in holidayRules[%d]: %w", i, err)
		}
	}

	return nil
}

// HolidayRRules returns the raw rrule strings of the configured holiday rules
func (c *Config) HolidayRRules() []string {
	rules := make([]string, 0, len(c.HolidayRules))
	for _, r := range c.HolidayRules {
		rules = append(rules, r.RRule)
	}
	return rules
}

func applyDefaults(cfg *Config) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir
	}
}

// findConfigFile searches for the config file in the current directory, then the home directory
func findConfigFile(configFileName string) (string, error) {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
