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
	PNCP       ProviderConfig `yaml:"pncp" mapstructure:"pncp"`
	Comprasnet ProviderConfig `yaml:"comprasnet" mapstructure:"comprasnet"`
	Receita    ReceitaConfig  `yaml:"receita" mapstructure:"receita"`
	Siconv     SiconvConfig   `yaml:"siconv" mapstructure:"siconv"`
	Search     SearchConfig   `yaml:"search" mapstructure:"search"`
	Monitor    MonitorConfig  `yaml:"monitor" mapstructure:"monitor"`
	Categories CategoryConfig `yaml:"categories" mapstructure:"categories"`
	Server     ServerConfig   `yaml:"server" mapstructure:"server"`
	Log        LogConfig      `yaml:"log" mapstructure:"log"`
}

// ProviderConfig tunes one tender source: its endpoint and its fixed-window
// request budget.
type ProviderConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	MaxRequests int    `yaml:"max_requests" mapstructure:"max_requests"`
	WindowSecs  int    `yaml:"window_secs" mapstructure:"window_secs"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ReceitaConfig tunes the CNPJ lookup source. Endpoints are format strings
// taking the cleaned CNPJ, tried in order.
type ReceitaConfig struct {
	Enabled     bool     `yaml:"enabled" mapstructure:"enabled"`
	Endpoints   []string `yaml:"endpoints" mapstructure:"endpoints"`
	MaxRequests int      `yaml:"max_requests" mapstructure:"max_requests"`
	WindowSecs  int      `yaml:"window_secs" mapstructure:"window_secs"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SiconvConfig tunes the federal transfer source.
type SiconvConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	MaxRequests int    `yaml:"max_requests" mapstructure:"max_requests"`
	WindowSecs  int    `yaml:"window_secs" mapstructure:"window_secs"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig configures dispatch behavior.
type SearchConfig struct {
	MaxResults  int `yaml:"max_results" mapstructure:"max_results"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MonitorConfig configures the background health monitor.
type MonitorConfig struct {
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
	TimeoutSecs  int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CategoryConfig points at an optional YAML keyword catalog overriding the
// built-in classifier rules.
type CategoryConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("TENDERSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("search.max_results", 100)
	v.SetDefault("search.concurrency", 4)
	v.SetDefault("monitor.interval_secs", 300)
	v.SetDefault("monitor.timeout_secs", 10)
	v.SetDefault("pncp.enabled", true)
	v.SetDefault("pncp.base_url", "https://pncp.gov.br/api")
	v.SetDefault("pncp.max_requests", 100)
	v.SetDefault("pncp.window_secs", 3600)
	v.SetDefault("pncp.timeout_secs", 30)
	v.SetDefault("comprasnet.enabled", true)
	v.SetDefault("comprasnet.base_url", "http://comprasnet.gov.br")
	v.SetDefault("comprasnet.max_requests", 60)
	v.SetDefault("comprasnet.window_secs", 3600)
	v.SetDefault("comprasnet.timeout_secs", 45)
	v.SetDefault("receita.enabled", true)
	v.SetDefault("receita.max_requests", 30)
	v.SetDefault("receita.window_secs", 60)
	v.SetDefault("receita.timeout_secs", 30)
	v.SetDefault("siconv.enabled", true)
	v.SetDefault("siconv.base_url", "https://api.portaldatransparencia.gov.br/api-de-dados")
	v.SetDefault("siconv.api_key", "")
	v.SetDefault("siconv.max_requests", 100)
	v.SetDefault("siconv.window_secs", 3600)
	v.SetDefault("siconv.timeout_secs", 30)

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
