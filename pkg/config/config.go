// Package config loads licscan's application settings from config files
// and LICSCAN_* environment variables, layered over defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for licscan.
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan"`
	Registry RegistryConfig `mapstructure:"registry"`
	OrgScan  OrgScanConfig  `mapstructure:"orgscan"`
	Log      LogConfig      `mapstructure:"log"`
}

// ScanConfig holds per-project scan settings.
type ScanConfig struct {
	ProdOnly bool `mapstructure:"prod_only"`
	// CommandTimeout bounds individual package-manager subprocess calls.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// ClassifyConfig points at a classification config JSON file.
	// Empty means built-in defaults.
	ClassifyConfig string `mapstructure:"classify_config"`
}

// RegistryConfig holds registry lookup settings.
type RegistryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// OrgScanConfig holds org-wide scanning settings.
type OrgScanConfig struct {
	TrackerPath string `mapstructure:"tracker_path"`
	StaleDays   int    `mapstructure:"stale_days"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	JSON    bool   `mapstructure:"json"`
	NoColor bool   `mapstructure:"no_color"`
}

var defaultConfig = Config{
	Scan: ScanConfig{
		ProdOnly:       false,
		CommandTimeout: 120 * time.Second,
	},
	Registry: RegistryConfig{
		Timeout: 10 * time.Second,
	},
	OrgScan: OrgScanConfig{
		TrackerPath: "license-tracker.json",
		StaleDays:   0,
	},
	Log: LogConfig{
		Level: "info",
	},
}

// Load reads configuration from licscan.yaml in the current or home
// directory plus LICSCAN_* environment variables. A missing config file
// is fine; defaults apply.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("scan.prod_only", defaultConfig.Scan.ProdOnly)
	v.SetDefault("scan.command_timeout", defaultConfig.Scan.CommandTimeout)
	v.SetDefault("scan.classify_config", defaultConfig.Scan.ClassifyConfig)
	v.SetDefault("registry.timeout", defaultConfig.Registry.Timeout)
	v.SetDefault("orgscan.tracker_path", defaultConfig.OrgScan.TrackerPath)
	v.SetDefault("orgscan.stale_days", defaultConfig.OrgScan.StaleDays)
	v.SetDefault("log.level", defaultConfig.Log.Level)
	v.SetDefault("log.json", defaultConfig.Log.JSON)
	v.SetDefault("log.no_color", defaultConfig.Log.NoColor)

	v.SetConfigName("licscan")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetEnvPrefix("LICSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}
	return &cfg, nil
}

// Default returns a copy of the built-in defaults.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}
