package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Loading and normalization
	NumericThreshold   float64 `mapstructure:"numeric_threshold" yaml:"numeric_threshold"`
	UnknownLabel       string  `mapstructure:"unknown_label" yaml:"unknown_label"`
	DecimalSeparator   string  `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string  `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	KeepDuplicates     bool    `mapstructure:"keep_duplicates" yaml:"keep_duplicates"`
	LenientNumbers     bool    `mapstructure:"lenient_numbers" yaml:"lenient_numbers"`
	MaxRows            int     `mapstructure:"max_rows" yaml:"max_rows"`
	Sheet              string  `mapstructure:"sheet" yaml:"sheet"`

	// Pivot and summary defaults
	DefaultAggregator string `mapstructure:"default_aggregator" yaml:"default_aggregator"`
	TotalLabel        string `mapstructure:"total_label" yaml:"total_label"`
	RowNumberField    string `mapstructure:"row_number_field" yaml:"row_number_field"`
	TopValues         int    `mapstructure:"top_values" yaml:"top_values"`

	// HTTP server
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr"`
	APIToken     string `mapstructure:"api_token" yaml:"api_token"`
	CacheEntries int    `mapstructure:"cache_entries" yaml:"cache_entries"`
	AllowURLs    bool   `mapstructure:"allow_url_uploads" yaml:"allow_url_uploads"`

	// HTTP/Retry configuration for URL sources
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
	FetchMaxMB       int `mapstructure:"fetch_max_mb" yaml:"fetch_max_mb"`
}

// Dir returns ~/.pivotloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".pivotloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.pivotloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PIVOTLOOM")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("numeric_threshold", 0.5)
	v.SetDefault("unknown_label", "Unknown")
	v.SetDefault("decimal_separator", ".")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("keep_duplicates", false)
	v.SetDefault("lenient_numbers", false)
	v.SetDefault("max_rows", 0)
	v.SetDefault("sheet", "")
	v.SetDefault("default_aggregator", "sum")
	v.SetDefault("total_label", "Grand Total")
	v.SetDefault("row_number_field", "No.")
	v.SetDefault("top_values", 12)
	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("api_token", "")
	v.SetDefault("cache_entries", 32)
	v.SetDefault("allow_url_uploads", false)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("fetch_max_mb", 64)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.NumericThreshold <= 0 || c.NumericThreshold >= 1 {
		return nil, fmt.Errorf("numeric_threshold must be between 0 and 1, got %v", c.NumericThreshold)
	}
	return &c, nil
}
