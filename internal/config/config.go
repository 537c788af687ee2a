package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Acquisition sources
	SourcePortal    = "portal"
	SourceDirectory = "directory"

	// Report modes
	ReportModeBatch       = "batch"
	ReportModePerDocument = "per-document"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultHTTPTimeout = 60 * time.Second
	DefaultSchedule    = "0 6 * * *"
	DefaultPortalURL   = "https://diariooficial.cepe.com.br/diariooficialweb/"
	DefaultKafkaTopic  = "doe-pe.alerts"

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "DOE_PE"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the gazette monitor
type Config struct {
	// Storage
	DownloadDir string
	ReportsDir  string
	CatalogPath string // YAML catalog; empty means the built-in catalog

	// Acquisition
	Source      string // "portal" or "directory"
	PortalURL   string
	HTTPTimeout time.Duration
	MaxFileSize int64 // Maximum PDF file size in bytes

	// Pipeline
	ReportMode string
	Schedule   string // cron spec for the daemon

	// Dashboard API
	Host string
	Port int

	// Alerts; no brokers disables publishing
	KafkaBrokers []string
	KafkaTopic   string

	// Application
	Version    string
	ServerName string
	LogLevel   string
	LogFormat  string
	ConfigFile string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		DownloadDir: filepath.Join(currentDir, "downloads"),
		ReportsDir:  filepath.Join(currentDir, "relatorios"),
		Source:      SourcePortal,
		PortalURL:   DefaultPortalURL,
		HTTPTimeout: DefaultHTTPTimeout,
		MaxFileSize: DefaultMaxFileSize,
		ReportMode:  ReportModeBatch,
		Schedule:    DefaultSchedule,
		Host:        DefaultHost,
		Port:        DefaultPort,
		KafkaTopic:  DefaultKafkaTopic,
		Version:     "1.0.0",
		ServerName:  "doe-pe-monitor",
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

// DefineFlags registers every configuration flag on fs
func DefineFlags(fs *pflag.FlagSet) {
	cfg := DefaultConfig()

	fs.String("config", "", "Optional YAML configuration file")
	fs.String("download-dir", cfg.DownloadDir, "Directory where gazette PDFs are stored")
	fs.String("reports-dir", cfg.ReportsDir, "Directory where reports are written")
	fs.String("catalog", "", "YAML keyword catalog (built-in catalog when empty)")
	fs.String("source", cfg.Source, "Where editions come from: 'portal' or 'directory'")
	fs.String("portal-url", cfg.PortalURL, "Gazette listing page; {date} is replaced by dd/mm/yyyy")
	fs.Duration("http-timeout", cfg.HTTPTimeout, "Timeout for portal requests")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.String("report-mode", cfg.ReportMode, "Report mode: 'batch' or 'per-document'")
	fs.String("schedule", cfg.Schedule, "Cron spec for the schedule command")
	fs.String("host", cfg.Host, "Dashboard API host address")
	fs.Int("port", cfg.Port, "Dashboard API port")
	fs.StringSlice("kafka-brokers", nil, "Kafka brokers for high-impact alerts (disabled when empty)")
	fs.String("kafka-topic", cfg.KafkaTopic, "Kafka topic for high-impact alerts")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-format", cfg.LogFormat, "Log format (text, json)")
}

var keys = []string{
	"config", "download-dir", "reports-dir", "catalog", "source", "portal-url",
	"http-timeout", "max-file-size", "report-mode", "schedule", "host", "port",
	"kafka-brokers", "kafka-topic", "log-level", "log-format",
}

// Load reads flags from fs, DOE_PE_* environment variables and the optional
// config file, in that order of precedence, and validates the result.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	bindFlagsToViper(fs)

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	populateConfigFromViper(cfg)

	for _, dir := range []*string{&cfg.DownloadDir, &cfg.ReportsDir} {
		if *dir == "" {
			continue
		}
		if abs, err := filepath.Abs(*dir); err == nil {
			*dir = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFlags parses the process arguments with the global flag set
func LoadFromFlags() (*Config, error) {
	DefineFlags(pflag.CommandLine)
	pflag.Parse()
	return Load(pflag.CommandLine)
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("download-dir", cfg.DownloadDir)
	viper.SetDefault("reports-dir", cfg.ReportsDir)
	viper.SetDefault("source", cfg.Source)
	viper.SetDefault("portal-url", cfg.PortalURL)
	viper.SetDefault("http-timeout", cfg.HTTPTimeout)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("report-mode", cfg.ReportMode)
	viper.SetDefault("schedule", cfg.Schedule)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("kafka-topic", cfg.KafkaTopic)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("log-format", cfg.LogFormat)
}

// bindFlagsToViper binds the flags present in fs to viper keys
func bindFlagsToViper(fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	for _, key := range keys {
		if f := fs.Lookup(key); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.ConfigFile = viper.GetString("config")
	cfg.DownloadDir = viper.GetString("download-dir")
	cfg.ReportsDir = viper.GetString("reports-dir")
	cfg.CatalogPath = viper.GetString("catalog")
	cfg.Source = strings.ToLower(viper.GetString("source"))
	cfg.PortalURL = viper.GetString("portal-url")
	cfg.HTTPTimeout = viper.GetDuration("http-timeout")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.ReportMode = strings.ToLower(viper.GetString("report-mode"))
	cfg.Schedule = viper.GetString("schedule")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.KafkaBrokers = splitList(viper.GetStringSlice("kafka-brokers"))
	cfg.KafkaTopic = viper.GetString("kafka-topic")
	cfg.LogLevel = strings.ToLower(viper.GetString("log-level"))
	cfg.LogFormat = strings.ToLower(viper.GetString("log-format"))
}

// splitList flattens comma-separated entries, as found in environment values
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Source != SourcePortal && c.Source != SourceDirectory {
		return errors.New("source must be either 'portal' or 'directory'")
	}

	if c.Source == SourcePortal && c.PortalURL == "" {
		return errors.New("portal URL cannot be empty")
	}

	if c.ReportMode != ReportModeBatch && c.ReportMode != ReportModePerDocument {
		return fmt.Errorf("invalid report mode: %s (must be one of: batch, per-document)", c.ReportMode)
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP timeout must be positive")
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka topic cannot be empty when brokers are set")
	}

	for name, dir := range map[string]string{"download": c.DownloadDir, "reports": c.ReportsDir} {
		if err := ensureDir(name, dir); err != nil {
			return err
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be one of: text, json)", c.LogFormat)
	}

	return nil
}

// ensureDir creates dir when it does not exist
func ensureDir(name, dir string) error {
	if dir == "" {
		return fmt.Errorf("%s directory cannot be empty", name)
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s directory %s: %w", name, dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access %s directory %s: %w", name, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s directory %s is not a directory", name, dir)
	}
	return nil
}

// Address returns the dashboard address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// AlertsEnabled reports whether high-impact findings are published
func (c *Config) AlertsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Source: %s, DownloadDir: %s, ReportsDir: %s, ReportMode: %s, Schedule: %q, "+
		"Address: %s, KafkaBrokers: %v, LogLevel: %s, MaxFileSize: %d}",
		c.Source, c.DownloadDir, c.ReportsDir, c.ReportMode, c.Schedule,
		c.Address(), c.KafkaBrokers, c.LogLevel, c.MaxFileSize)
}
