package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ISSUE_EXPORTER_HTTP_TOKEN
const EnvPrefix = "ISSUE_EXPORTER"

// Config represents the entire application configuration
type Config struct {
	Requester RequesterConfig `mapstructure:"requester"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// RequesterConfig contains the site and credentials the export runs against
type RequesterConfig struct {
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
	Email    string `mapstructure:"email" validate:"omitempty,email"`
	APIToken string `mapstructure:"api_token"`

	// PageOrigin is the origin of the page the export runs in; defaults to BaseURL
	PageOrigin string `mapstructure:"page_origin" validate:"omitempty,url"`

	// SessionCookie is a Cookie header value with the browser session
	SessionCookie string `mapstructure:"session_cookie"`

	// FetcherURL selects a remote privileged fetcher; empty hosts it in-process
	FetcherURL   string `mapstructure:"fetcher_url" validate:"omitempty,url"`
	FetcherToken string `mapstructure:"fetcher_token"`

	// Discovery is "rest" or "html"
	Discovery      string `mapstructure:"discovery" validate:"oneof=rest html"`
	RequestTimeout string `mapstructure:"request_timeout"`
	SkipIdentity   bool   `mapstructure:"skip_identity_check"`
}

// FetcherConfig contains privileged fetcher settings
type FetcherConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	MaxOneShotMB   int    `mapstructure:"max_one_shot_mb" validate:"min=1"`
	OneShotTimeout string `mapstructure:"one_shot_timeout"`
	MaxRedirects   int    `mapstructure:"max_redirects" validate:"min=1,max=50"`
}

// TransferConfig contains chunked transfer channel settings
type TransferConfig struct {
	MaxChunkSize   int    `mapstructure:"max_chunk_size" validate:"min=1024,max=16777216"`
	SessionTimeout string `mapstructure:"session_timeout"`
	MinInterval    string `mapstructure:"min_interval"`
}

// ArchiveConfig contains archive output settings
type ArchiveConfig struct {
	RootDir        string `mapstructure:"root_dir" validate:"required"`
	AttachmentDir  string `mapstructure:"attachment_dir" validate:"required"`
	HandlesDir     string `mapstructure:"handles_dir"`
	MinFreeMB      int    `mapstructure:"min_free_mb" validate:"min=0"`
	TempFileMaxAge string `mapstructure:"temp_file_max_age"`
}

// HTTPConfig contains the fetcher HTTP server configuration
type HTTPConfig struct {
	BindAddr     string `mapstructure:"bind_addr" validate:"required,hostname_port"`
	Token        string `mapstructure:"token"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// envAliases binds the variable names used by existing Jira tooling
var envAliases = map[string]string{
	"requester.base_url":  "JIRA_BASE_URL",
	"requester.email":     "JIRA_EMAIL",
	"requester.api_token": "JIRA_API_TOKEN",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("requester.base_url", "")
	v.SetDefault("requester.email", "")
	v.SetDefault("requester.api_token", "")
	v.SetDefault("requester.page_origin", "")
	v.SetDefault("requester.session_cookie", "")
	v.SetDefault("requester.fetcher_url", "")
	v.SetDefault("requester.fetcher_token", "")
	v.SetDefault("requester.discovery", "rest")
	v.SetDefault("requester.request_timeout", "2m")
	v.SetDefault("requester.skip_identity_check", false)
	v.SetDefault("fetcher.user_agent", "issue-exporter/fetcher")
	v.SetDefault("fetcher.max_one_shot_mb", 32)
	v.SetDefault("fetcher.one_shot_timeout", "60s")
	v.SetDefault("fetcher.max_redirects", 10)
	v.SetDefault("transfer.max_chunk_size", 65536)
	v.SetDefault("transfer.session_timeout", "5m")
	v.SetDefault("transfer.min_interval", "200ms")
	v.SetDefault("archive.root_dir", "./export")
	v.SetDefault("archive.attachment_dir", "attachments")
	v.SetDefault("archive.handles_dir", "")
	v.SetDefault("archive.min_free_mb", 100)
	v.SetDefault("archive.temp_file_max_age", "24h")
	v.SetDefault("http.bind_addr", "127.0.0.1:8765")
	v.SetDefault("http.token", "")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "30m")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "")
}

// Load loads configuration from the specified file path. An empty path reads
// defaults and environment only. A .env file in the working directory is
// loaded first when present; variables already set are not overridden.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	durations := map[string]string{
		"requester.request_timeout": c.Requester.RequestTimeout,
		"fetcher.one_shot_timeout":  c.Fetcher.OneShotTimeout,
		"transfer.session_timeout":  c.Transfer.SessionTimeout,
		"transfer.min_interval":     c.Transfer.MinInterval,
		"archive.temp_file_max_age": c.Archive.TempFileMaxAge,
		"http.read_timeout":         c.HTTP.ReadTimeout,
		"http.write_timeout":        c.HTTP.WriteTimeout,
		"http.idle_timeout":         c.HTTP.IdleTimeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// ValidateExport checks the settings an export run needs on top of Validate
func (c *Config) ValidateExport() error {
	if c.Requester.BaseURL == "" {
		return fmt.Errorf("requester.base_url is required")
	}
	if c.Requester.AuthHeader() == "" && c.Requester.SessionCookie == "" {
		return fmt.Errorf("either requester.email and requester.api_token or requester.session_cookie is required")
	}
	if _, err := c.Requester.Cookies(); err != nil {
		return err
	}
	return nil
}

// AuthHeader returns the preformatted Basic Authorization value, or "" when
// no API credentials are configured.
func (c *RequesterConfig) AuthHeader() string {
	if c.Email == "" || c.APIToken == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Email+":"+c.APIToken))
}

// GetPageOrigin returns the page origin, defaulting to the base URL
func (c *RequesterConfig) GetPageOrigin() string {
	if c.PageOrigin != "" {
		return c.PageOrigin
	}
	return c.BaseURL
}

// Cookies parses SessionCookie
func (c *RequesterConfig) Cookies() ([]*http.Cookie, error) {
	if strings.TrimSpace(c.SessionCookie) == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(c.SessionCookie)
	if err != nil {
		return nil, fmt.Errorf("invalid requester.session_cookie: %w", err)
	}
	return cookies, nil
}

// GetRequestTimeout returns the page request timeout as time.Duration
func (c *RequesterConfig) GetRequestTimeout() time.Duration {
	return parseDuration(c.RequestTimeout, 2*time.Minute)
}

// GetOneShotTimeout returns the one-shot timeout as time.Duration
func (c *FetcherConfig) GetOneShotTimeout() time.Duration {
	return parseDuration(c.OneShotTimeout, 60*time.Second)
}

// GetMaxOneShotBytes returns the one-shot payload limit in bytes
func (c *FetcherConfig) GetMaxOneShotBytes() int64 {
	if c.MaxOneShotMB <= 0 {
		return 32 * 1024 * 1024
	}
	return int64(c.MaxOneShotMB) * 1024 * 1024
}

// GetSessionTimeout returns the streaming session timeout as time.Duration
func (c *TransferConfig) GetSessionTimeout() time.Duration {
	return parseDuration(c.SessionTimeout, 5*time.Minute)
}

// GetMinInterval returns the pause between two downloads as time.Duration
func (c *TransferConfig) GetMinInterval() time.Duration {
	return parseDuration(c.MinInterval, 0)
}

// GetMinFreeBytes returns the free space reserve in bytes
func (c *ArchiveConfig) GetMinFreeBytes() uint64 {
	if c.MinFreeMB <= 0 {
		return 0
	}
	return uint64(c.MinFreeMB) * 1024 * 1024
}

// GetTempFileMaxAge returns the age after which leftover temp files are removed
func (c *ArchiveConfig) GetTempFileMaxAge() time.Duration {
	return parseDuration(c.TempFileMaxAge, 24*time.Hour)
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 30*time.Minute)
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	return parseDuration(c.IdleTimeout, 60*time.Second)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d == 0 {
		return fallback
	}
	return d
}
