// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/ghostwalk/internal/scenario"
)

// Config holds the full application configuration. Values come from defaults,
// an optional config file, GHOSTWALK_* environment variables, and CLI flags,
// in ascending precedence.
type Config struct {
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
}

// RunConfig shapes one generation run.
type RunConfig struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	Sessions    int    `mapstructure:"sessions" yaml:"sessions"`
	Mix         string `mapstructure:"mix" yaml:"mix"`
	Output      string `mapstructure:"output" yaml:"output"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	Seed        int64  `mapstructure:"seed" yaml:"seed"`
}

// BrowserConfig shapes the Chrome process and its pages.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// LoggerConfig shapes diagnostic logging. This is the operator-facing log,
// kept strictly apart from the telemetry stream.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// SetDefaults initializes default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Run --
	v.SetDefault("run.base_url", "http://localhost:3000")
	v.SetDefault("run.sessions", 50)
	v.SetDefault("run.mix", "normal:0.4,frustrated:0.3,lost:0.2,error:0.1")
	v.SetDefault("run.output", "")
	v.SetDefault("run.concurrency", 1)
	v.SetDefault("run.seed", 0)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.navigation_timeout", "15s")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "ghostwalk")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")
}

// NewDefaultConfig returns a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewFromViper unmarshals and validates a configuration from a viper
// instance that already has defaults, file, env, and flags merged.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations a run cannot start with.
func (c *Config) Validate() error {
	if c.Run.BaseURL == "" {
		return fmt.Errorf("run.base_url must not be empty")
	}
	if c.Run.Sessions <= 0 {
		return fmt.Errorf("run.sessions must be positive, got %d", c.Run.Sessions)
	}
	if c.Run.Concurrency <= 0 {
		return fmt.Errorf("run.concurrency must be positive, got %d", c.Run.Concurrency)
	}
	if _, err := scenario.ParseMix(c.Run.Mix); err != nil {
		return fmt.Errorf("run.mix is invalid: %w", err)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be positive")
	}
	return nil
}
