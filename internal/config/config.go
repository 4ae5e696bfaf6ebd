// Package config loads settings from defaults, an optional YAML file, a .env
// file and IFRAMESCAN_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/grez-lucas/iframe-scanner/internal/browser"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// EnvPrefix namespaces environment overrides: browser.headless is read from
// IFRAMESCAN_BROWSER_HEADLESS.
const EnvPrefix = "IFRAMESCAN"

type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the Chromium instance of each scan.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Bin               string        `mapstructure:"bin" yaml:"bin"`
	Stealth           bool          `mapstructure:"stealth" yaml:"stealth"`
	NoSandbox         bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	WindowSize        string        `mapstructure:"window_size" yaml:"window_size"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// ScanConfig tunes frame traversal and matching.
type ScanConfig struct {
	FrameTimeout  time.Duration `mapstructure:"frame_timeout" yaml:"frame_timeout"`
	MaxDepth      int           `mapstructure:"max_depth" yaml:"max_depth"`
	PreviewLength int           `mapstructure:"preview_length" yaml:"preview_length"`
	TextLength    int           `mapstructure:"text_length" yaml:"text_length"`
	Modes         []string      `mapstructure:"modes" yaml:"modes"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// ScanRate is the number of scans per second /api/start-scan accepts,
	// with ScanBurst scans allowed at once.
	ScanRate  float64 `mapstructure:"scan_rate" yaml:"scan_rate"`
	ScanBurst int     `mapstructure:"scan_burst" yaml:"scan_burst"`
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "iframescan")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.window_size", "1920,1080")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.settle_delay", "1s")

	// -- Scan --
	v.SetDefault("scan.frame_timeout", "5s")
	v.SetDefault("scan.max_depth", 10)
	v.SetDefault("scan.preview_length", 200)
	v.SetDefault("scan.text_length", 100)
	v.SetDefault("scan.modes", []string{"contains"})

	// -- Server --
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.max_body_bytes", 16<<20)
	v.SetDefault("server.session_ttl", "1h")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.scan_rate", 1.0)
	v.SetDefault("server.scan_burst", 4)
}

// NewDefaultConfig returns the configuration used when nothing is overridden.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("failed to load default config: %v", err))
	}
	return cfg
}

// Load reads .env files (missing ones are ignored), then the YAML file at
// path if non-empty, then the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Scan.FrameTimeout <= 0 {
		return errors.New("scan.frame_timeout must be positive")
	}
	if c.Scan.MaxDepth <= 0 {
		return errors.New("scan.max_depth must be a positive integer")
	}
	if c.Scan.PreviewLength <= 0 || c.Scan.TextLength <= 0 {
		return errors.New("scan.preview_length and scan.text_length must be positive integers")
	}
	if _, err := scanner.ParseModes(c.Scan.Modes); err != nil {
		return fmt.Errorf("scan.modes: %w", err)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return errors.New("browser.navigation_timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be a positive integer")
	}
	if c.Server.ScanRate <= 0 || c.Server.ScanBurst <= 0 {
		return errors.New("server.scan_rate and server.scan_burst must be positive")
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}

// ScannerOptions converts the scan section for scanner.New.
func (c *Config) ScannerOptions() scanner.Options {
	modes, _ := scanner.ParseModes(c.Scan.Modes)
	return scanner.Options{
		Modes:         modes,
		FrameTimeout:  c.Scan.FrameTimeout,
		MaxDepth:      c.Scan.MaxDepth,
		PreviewLength: c.Scan.PreviewLength,
		TextLength:    c.Scan.TextLength,
	}
}

// BrowserOptions converts the browser section for browser.Launch.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:          c.Browser.Headless,
		Bin:               c.Browser.Bin,
		Stealth:           c.Browser.Stealth,
		NoSandbox:         c.Browser.NoSandbox,
		WindowSize:        c.Browser.WindowSize,
		NavigationTimeout: c.Browser.NavigationTimeout,
		SettleDelay:       c.Browser.SettleDelay,
	}
}
