package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec" envconfig:"READ_TIMEOUT_SEC"`
	WriteTimeoutSec int `yaml:"write_timeout_sec" envconfig:"WRITE_TIMEOUT_SEC"`
	IdleTimeoutSec  int `yaml:"idle_timeout_sec" envconfig:"IDLE_TIMEOUT_SEC"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR" validate:"required"`
	DatabasePath string `yaml:"database_path" envconfig:"DATABASE_PATH" validate:"required"`
	ExportDir    string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// PipelineConfig contains the tunable parameters of the transform and KPI
// stages. The defaults match the upstream HR extract conventions: pipe
// delimited files, a five minute punch grace period and an 8 hour shift.
type PipelineConfig struct {
	EmployeeGlob       string  `yaml:"employee_glob" envconfig:"EMPLOYEE_GLOB" validate:"required"`
	TimesheetGlob      string  `yaml:"timesheet_glob" envconfig:"TIMESHEET_GLOB" validate:"required"`
	Delimiter          string  `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
	GraceMinutes       float64 `yaml:"grace_minutes" envconfig:"GRACE_MINUTES"`
	OvertimeHours      float64 `yaml:"overtime_hours" envconfig:"OVERTIME_HOURS"`
	NormalMinHours     float64 `yaml:"normal_min_hours" envconfig:"NORMAL_MIN_HOURS"`
	NormalMaxHours     float64 `yaml:"normal_max_hours" envconfig:"NORMAL_MAX_HOURS"`
	EarlyAttritionDays int     `yaml:"early_attrition_days" envconfig:"EARLY_ATTRITION_DAYS" validate:"gt=0"`
	RollingWindowRows  int     `yaml:"rolling_window_rows" envconfig:"ROLLING_WINDOW_ROWS" validate:"gt=0"`
}

// Default returns the built-in configuration. Load layers a YAML file and
// then environment variables on top of these values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 30,
			IdleTimeoutSec:  60,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/hrpulse.log",
		},
		Paths: PathsConfig{
			RawDir:       "data/raw",
			DatabasePath: "data/hrpulse.duckdb",
			ExportDir:    "data/exports",
			LogsDir:      "logs",
		},
		Pipeline: PipelineConfig{
			EmployeeGlob:       "employee*.csv",
			TimesheetGlob:      "timesheet*.csv",
			Delimiter:          "|",
			GraceMinutes:       5,
			OvertimeHours:      8.5,
			NormalMinHours:     7.5,
			NormalMaxHours:     8.5,
			EarlyAttritionDays: 90,
			RollingWindowRows:  30,
		},
	}
}

// Load builds the configuration: defaults first, then an optional YAML file
// overlay, then environment variables. Environment variables take precedence
// over file values, which take precedence over defaults.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := envconfig.Process("HRPULSE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg; fields absent from the
// file are left untouched.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration against the struct validation tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.NormalMinHours > c.Pipeline.NormalMaxHours {
		return fmt.Errorf("normal_min_hours %.2f exceeds normal_max_hours %.2f",
			c.Pipeline.NormalMinHours, c.Pipeline.NormalMaxHours)
	}
	return nil
}

// EnsureDirectories creates the directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Paths.DatabasePath),
		c.Paths.ExportDir,
		c.Paths.LogsDir,
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DelimiterRune returns the configured CSV delimiter as a rune.
func (c *PipelineConfig) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return '|'
}
