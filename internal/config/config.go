package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the host configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIBaseURL            string        `mapstructure:"api_base_url"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	AppPackage   string `mapstructure:"app_package"`
	PublisherID  string `mapstructure:"publisher_id"`
	ManifestFile string `mapstructure:"manifest_file"`
	EventsFile   string `mapstructure:"events_file"`

	CreativeBaseURL       string        `mapstructure:"creative_base_url"`
	SlotCount             int           `mapstructure:"slot_count"`
	SlotWidth             int           `mapstructure:"slot_width"`
	SlotHeight            int           `mapstructure:"slot_height"`
	ReloadIntervalSeconds int64         `mapstructure:"reload_interval_seconds"`
	ReloadInterval        time.Duration `mapstructure:"-"`

	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "mahimeta-adhost")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base_url", "https://mahimeta.com/api")
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("app_package", "com.example.adhost")
	v.SetDefault("publisher_id", "")
	v.SetDefault("manifest_file", "")
	v.SetDefault("events_file", "")
	v.SetDefault("creative_base_url", "http://localhost:8090")
	v.SetDefault("slot_count", 1)
	v.SetDefault("slot_width", 320)
	v.SetDefault("slot_height", 50)
	v.SetDefault("reload_interval_seconds", 0) // disabled
	v.SetDefault("metrics_addr", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("api_base_url is required")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.SlotCount < 0 {
		return nil, fmt.Errorf("invalid slot_count (must not be negative)")
	}
	if cfg.SlotWidth <= 0 || cfg.SlotHeight <= 0 {
		return nil, fmt.Errorf("invalid slot size %dx%d", cfg.SlotWidth, cfg.SlotHeight)
	}
	if cfg.ReloadIntervalSeconds < 0 {
		return nil, fmt.Errorf("invalid reload_interval_seconds (must not be negative)")
	}
	cfg.ReloadInterval = time.Duration(cfg.ReloadIntervalSeconds) * time.Second

	return &cfg, nil
}
