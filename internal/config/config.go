// Package config loads the application configuration: defaults, an
// optional config.yaml, and WARROOM_* environment variables, in that
// order of precedence (later wins).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

// Config is the single explicit configuration struct passed into component
// constructors. No process-wide singletons.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// PathsConfig locates the filesystem surfaces the pipeline touches.
type PathsConfig struct {
	Inbox     string `mapstructure:"inbox"`
	Processed string `mapstructure:"processed"`
	Discarded string `mapstructure:"discarded"`
	Registry  string `mapstructure:"registry"`
	Database  string `mapstructure:"database"`
	RulesDir  string `mapstructure:"rules_dir"`
	Hints     string `mapstructure:"hints"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AIConfig configures the completion provider.
type AIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the provider timeout as a duration.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PipelineConfig carries the routing and retry policy.
type PipelineConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxRetries          int     `mapstructure:"max_retries"`
}

// SandboxConfig configures generated-code execution.
type SandboxConfig struct {
	Interpreter    string `mapstructure:"interpreter"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the sandbox wall-clock cap as a duration.
func (c SandboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReconcileConfig carries the reconciliation tolerances.
type ReconcileConfig struct {
	Epsilon      string `mapstructure:"epsilon"`
	FallbackDate string `mapstructure:"fallback_date"`
}

// ScheduleConfig carries the periodic-ingestion cron expression.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// LoadEnv loads a .env file when present. Missing files are fine.
func LoadEnv(log logging.Logger) {
	if log == nil {
		log = logging.GetLogger()
	}
	if err := godotenv.Load(); err == nil {
		log.Debug(".env file loaded")
	}
}

// Load reads the configuration: defaults, then config.yaml from the given
// directory (or the working directory when empty), then WARROOM_* env vars.
// GEMINI_API_KEY is honored as the conventional provider key variable.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("WARROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.api_key", "WARROOM_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.inbox", "data/inbox")
	v.SetDefault("paths.processed", "data/processed")
	v.SetDefault("paths.discarded", "data/discarded")
	v.SetDefault("paths.registry", "data/parser_registry.json")
	v.SetDefault("paths.database", "data/warroom.db")
	v.SetDefault("paths.rules_dir", "rules")
	v.SetDefault("paths.hints", "data/ticker_hints.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("pipeline.confidence_threshold", 0.7)
	v.SetDefault("pipeline.max_retries", 2)
	v.SetDefault("sandbox.interpreter", "python3")
	v.SetDefault("sandbox.timeout_seconds", 30)
	v.SetDefault("reconcile.epsilon", "0.0001")
	v.SetDefault("reconcile.fallback_date", "2020-01-01")
	v.SetDefault("schedule.cron", "0 */6 * * *")
}
