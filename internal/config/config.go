package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	CRM      CRMConfig      `yaml:"crm" mapstructure:"crm"`
	AI       AIConfig       `yaml:"ai" mapstructure:"ai"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Mail     MailConfig     `yaml:"mail" mapstructure:"mail"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port          int `yaml:"port" mapstructure:"port"`
	ShutdownSecs  int `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	ReadTimeoutS  int `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutS int `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CRMConfig holds Salesforce JWT auth settings and lookup behavior.
type CRMConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	Username     string  `yaml:"username" mapstructure:"username"`
	KeyPath      string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL     string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// AIConfig holds Anthropic API settings for report generation.
type AIConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StorageConfig configures the report object store.
type StorageConfig struct {
	Bucket        string `yaml:"bucket" mapstructure:"bucket"`
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
	// FallbackBaseURL is the API's own origin; used to build report URLs
	// that are served from the API when the durable write failed.
	FallbackBaseURL string `yaml:"fallback_base_url" mapstructure:"fallback_base_url"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MailConfig configures the report-ready notification email.
type MailConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	FromEmail     string `yaml:"from_email" mapstructure:"from_email"`
	FromName      string `yaml:"from_name" mapstructure:"from_name"`
	ReportBaseURL string `yaml:"report_base_url" mapstructure:"report_base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IdentityConfig configures email-match validation.
type IdentityConfig struct {
	// FoldDots also strips dots from the local part before comparing,
	// matching one mail provider's aliasing rules. Plus-suffix folding
	// is always applied.
	FoldDots bool `yaml:"fold_dots" mapstructure:"fold_dots"`
}

// ReportConfig configures report freshness.
type ReportConfig struct {
	FreshnessDays int `yaml:"freshness_days" mapstructure:"freshness_days"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BLUEPRINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("crm.login_url", "https://login.salesforce.com")
	v.SetDefault("crm.rate_limit_rps", 5)
	v.SetDefault("ai.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout_secs", 30)
	v.SetDefault("storage.timeout_secs", 10)
	v.SetDefault("mail.base_url", "https://api.sendgrid.com")
	v.SetDefault("mail.from_email", "reports@mail.habitmasterysystem.com")
	v.SetDefault("mail.from_name", "Habit Mastery System")
	v.SetDefault("mail.timeout_secs", 15)
	v.SetDefault("identity.fold_dots", false)
	v.SetDefault("report.freshness_days", 7)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the named concern has the settings it needs.
func (c *Config) Validate(concern string) error {
	switch concern {
	case "crm":
		if c.CRM.ClientID == "" || c.CRM.Username == "" || c.CRM.KeyPath == "" {
			return eris.New("config: crm.client_id, crm.username and crm.key_path are required")
		}
	case "ai":
		if c.AI.Key == "" {
			return eris.New("config: ai.key is required")
		}
	case "storage":
		if c.Storage.Bucket == "" {
			return eris.New("config: storage.bucket is required")
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
