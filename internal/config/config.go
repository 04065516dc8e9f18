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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Columns ColumnsConfig `yaml:"columns" mapstructure:"columns"`
	Notion  NotionConfig  `yaml:"notion" mapstructure:"notion"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ColumnsConfig points at the managed-column configuration file.
// An empty path falls back to the built-in defaults.
type ColumnsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// NotionConfig holds the Notion API token and target database for export.
type NotionConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	CompanyDB string  `yaml:"company_db" mapstructure:"company_db"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// FetchConfig configures entry-dump retrieval (HTTP/FTP).
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// BatchConfig configures batch merge processing.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEWSMERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "newsmerge.db")
	v.SetDefault("columns.path", "")
	v.SetDefault("notion.rate_limit", 3)
	v.SetDefault("fetch.user_agent", "newsmerge-cli (+https://sellsadvisors.com)")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.rate_limit", 2)
	v.SetDefault("batch.max_concurrent_companies", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the configuration for a given command mode. Modes only
// check what they actually use so a merge against SQLite never demands a
// Notion token.
func (c *Config) Validate(mode string) error {
	var missing []string

	check := func(ok bool, msg string) {
		if !ok {
			missing = append(missing, msg)
		}
	}

	check(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres",
		"store.driver must be sqlite or postgres")
	check(c.Store.DatabaseURL != "", "store.database_url is required")
	check(c.Batch.MaxConcurrentCompanies >= 1 && c.Batch.MaxConcurrentCompanies <= 50,
		"batch.max_concurrent_companies must be between 1 and 50")

	switch mode {
	case "merge", "import", "load", "columns", "runs":
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
	case "export":
		// Notion settings are only required when exporting to Notion;
		// the export command re-validates when --notion is set.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(missing, "; "))
	}
	return nil
}

// ValidateNotion checks the settings needed to talk to the Notion API.
func (c *Config) ValidateNotion() error {
	if c.Notion.Token == "" {
		return eris.New("config: notion.token is required")
	}
	if c.Notion.CompanyDB == "" {
		return eris.New("config: notion.company_db is required")
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
