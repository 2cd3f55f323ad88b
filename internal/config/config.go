package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server   ServerConfig              `mapstructure:"server"`
	Database DatabaseConfig            `mapstructure:"database"`
	Logging  LoggingConfig             `mapstructure:"logging"`
	Limits   LimitsConfig              `mapstructure:"limits"`
	Tests    map[string]TestTypeConfig `mapstructure:"tests"`
	Analysis AnalysisConfig            `mapstructure:"analysis"`
	Payment  PaymentConfig             `mapstructure:"payment"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// LimitsConfig holds the usage-limit tiers and the device account cap.
type LimitsConfig struct {
	GuestAttempts        int `mapstructure:"guest_attempts"`
	FreeAttempts         int `mapstructure:"free_attempts"`
	PremiumAttempts      int `mapstructure:"premium_attempts"`
	MaxAccountsPerDevice int `mapstructure:"max_accounts_per_device"`
}

// TestTypeConfig holds the per-test-type session policy.
type TestTypeConfig struct {
	PromptCount         int  `mapstructure:"prompt_count"`
	PromptSeconds       int  `mapstructure:"prompt_seconds"`
	AutoAdvanceOnExpiry bool `mapstructure:"auto_advance_on_expiry"`
}

// AnalysisConfig holds settings for the AI feedback backend.
type AnalysisConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	PremiumModel   string `mapstructure:"premium_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PaymentConfig holds settings for the payment webhook relay.
type PaymentConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-production")

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "ssb-insight-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Usage-limit defaults
	v.SetDefault("limits.guest_attempts", 1)
	v.SetDefault("limits.free_attempts", 2)
	v.SetDefault("limits.premium_attempts", 30)
	v.SetDefault("limits.max_accounts_per_device", 2)

	// Per-test-type session policy defaults
	v.SetDefault("tests.wat", map[string]any{"prompt_count": 60, "prompt_seconds": 15, "auto_advance_on_expiry": true})
	v.SetDefault("tests.srt", map[string]any{"prompt_count": 60, "prompt_seconds": 30, "auto_advance_on_expiry": true})
	v.SetDefault("tests.tat", map[string]any{"prompt_count": 1, "prompt_seconds": 240, "auto_advance_on_expiry": false})
	v.SetDefault("tests.ppdt", map[string]any{"prompt_count": 1, "prompt_seconds": 240, "auto_advance_on_expiry": false})

	// Analysis defaults
	v.SetDefault("analysis.model", "gemini-2.0-flash")
	v.SetDefault("analysis.premium_model", "gemini-2.5-pro")
	v.SetDefault("analysis.timeout_seconds", 120)
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config")) // Search for config file in the project's config directory
	v.SetConfigName("config")                             // Name of config file (without extension)
	v.SetConfigType("yaml")                               // Type of config file

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("SSB") // e.g., SSB_SERVER_PORT, SSB_ANALYSIS_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}

// TestPolicy returns the session policy for a test type key, falling back
// to a conservative default when the key is missing from configuration.
func (c *Config) TestPolicy(testType string) TestTypeConfig {
	if tc, ok := c.Tests[testType]; ok && tc.PromptCount > 0 {
		return tc
	}
	return TestTypeConfig{PromptCount: 1, PromptSeconds: 60}
}
