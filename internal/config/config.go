package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MIRROR_TELEGRAM_TOKEN
const EnvPrefix = "MIRROR"

// Config represents the entire application configuration
type Config struct {
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Download    DownloadConfig    `mapstructure:"download"`
	Progress    ProgressConfig    `mapstructure:"progress"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// TelegramConfig contains bot settings
type TelegramConfig struct {
	Token          string  `mapstructure:"token"`
	AllowedChatIDs []int64 `mapstructure:"allowed_chat_ids"`
	APIURL         string  `mapstructure:"api_url"`
	PollTimeout    string  `mapstructure:"poll_timeout"`
}

// DownloadConfig contains mirror command settings
type DownloadConfig struct {
	RootDir                string `mapstructure:"root_dir"`
	DefaultFileName        string `mapstructure:"default_filename"`
	SampleInterval         string `mapstructure:"sample_interval"`
	EditSleepTimeout       int    `mapstructure:"edit_sleep_timeout"`
	AttachmentEditInterval string `mapstructure:"attachment_edit_interval"`
	EditMinInterval        string `mapstructure:"edit_min_interval"`
	HTTPTimeout            string `mapstructure:"http_timeout"`
	UserAgent              string `mapstructure:"user_agent"`
	BufferSizeMB           int    `mapstructure:"buffer_size_mb"`
	PublicURL              string `mapstructure:"public_url"`
}

// ProgressConfig contains progress bar glyphs
type ProgressConfig struct {
	FinishedStr   string `mapstructure:"finished_str"`
	UnfinishedStr string `mapstructure:"unfinished_str"`
}

// HTTPConfig contains operations server configuration
type HTTPConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BindAddr      string `mapstructure:"bind_addr"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	ReadTimeout   string `mapstructure:"read_timeout"`
	WriteTimeout  string `mapstructure:"write_timeout"`
	IdleTimeout   string `mapstructure:"idle_timeout"`
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

// MaintenanceConfig contains cleanup settings
type MaintenanceConfig struct {
	CleanupInterval string `mapstructure:"cleanup_interval"`
	TempFileMaxAge  string `mapstructure:"temp_file_max_age"`
	HistoryMaxAge   string `mapstructure:"history_max_age"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.allowed_chat_ids", []int64{})
	v.SetDefault("telegram.api_url", "")
	v.SetDefault("telegram.poll_timeout", "1m")
	v.SetDefault("download.root_dir", "/mnt/UB")
	v.SetDefault("download.default_filename", "download.bin")
	v.SetDefault("download.sample_interval", "10s")
	v.SetDefault("download.edit_sleep_timeout", 1)
	v.SetDefault("download.attachment_edit_interval", "5s")
	v.SetDefault("download.edit_min_interval", "3s")
	v.SetDefault("download.http_timeout", "0s")
	v.SetDefault("download.user_agent", "")
	v.SetDefault("download.buffer_size_mb", 1)
	v.SetDefault("download.public_url", "")
	v.SetDefault("progress.finished_str", "█")
	v.SetDefault("progress.unfinished_str", "░")
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.bind_addr", "0.0.0.0:8080")
	v.SetDefault("http.admin_username", "")
	v.SetDefault("http.admin_password", "")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/mirror.db")
	v.SetDefault("maintenance.cleanup_interval", "1h")
	v.SetDefault("maintenance.temp_file_max_age", "24h")
	v.SetDefault("maintenance.history_max_age", "720h")
}

// Load loads configuration from the YAML file at configPath, then applies
// variables from an optional .env file and the process environment.
// An empty configPath loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}

	if c.Download.RootDir == "" {
		return fmt.Errorf("download.root_dir is required")
	}
	if c.Download.DefaultFileName == "" {
		return fmt.Errorf("download.default_filename is required")
	}
	if c.Download.EditSleepTimeout < 1 {
		return fmt.Errorf("download.edit_sleep_timeout must be at least 1")
	}

	durations := map[string]string{
		"telegram.poll_timeout":             c.Telegram.PollTimeout,
		"download.sample_interval":          c.Download.SampleInterval,
		"download.attachment_edit_interval": c.Download.AttachmentEditInterval,
		"download.edit_min_interval":        c.Download.EditMinInterval,
		"download.http_timeout":             c.Download.HTTPTimeout,
		"http.read_timeout":                 c.HTTP.ReadTimeout,
		"http.write_timeout":                c.HTTP.WriteTimeout,
		"http.idle_timeout":                 c.HTTP.IdleTimeout,
		"maintenance.cleanup_interval":      c.Maintenance.CleanupInterval,
		"maintenance.temp_file_max_age":     c.Maintenance.TempFileMaxAge,
		"maintenance.history_max_age":       c.Maintenance.HistoryMaxAge,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	if c.HTTP.AdminUsername != "" && c.HTTP.AdminPassword == "" {
		return fmt.Errorf("http.admin_password is required when http.admin_username is set")
	}

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

// IsChatAllowed reports whether the bot serves chatID. An empty allowlist serves every chat.
func (c *TelegramConfig) IsChatAllowed(chatID int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// GetPollTimeout returns the long polling timeout as time.Duration
func (c *TelegramConfig) GetPollTimeout() time.Duration {
	return parseOr(c.PollTimeout, time.Minute)
}

// GetSampleInterval returns the URL sampling interval as time.Duration
func (c *DownloadConfig) GetSampleInterval() time.Duration {
	return parseOr(c.SampleInterval, 10*time.Second)
}

// GetAttachmentEditInterval returns the attachment edit interval as time.Duration
func (c *DownloadConfig) GetAttachmentEditInterval() time.Duration {
	return parseOr(c.AttachmentEditInterval, 5*time.Second)
}

// GetEditMinInterval returns the minimum gap between edits of one status message
func (c *DownloadConfig) GetEditMinInterval() time.Duration {
	return parseOr(c.EditMinInterval, 3*time.Second)
}

// GetHTTPTimeout returns the URL transfer timeout, 0 means none
func (c *DownloadConfig) GetHTTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTPTimeout)
	return d
}

// GetBufferSize returns the attachment write buffer size in bytes
func (c *DownloadConfig) GetBufferSize() int {
	if c.BufferSizeMB <= 0 {
		return 1024 * 1024
	}
	return c.BufferSizeMB * 1024 * 1024
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	return parseOr(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	return parseOr(c.WriteTimeout, 30*time.Second)
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	return parseOr(c.IdleTimeout, 60*time.Second)
}

// GetCleanupInterval returns the cleanup interval as time.Duration
func (c *MaintenanceConfig) GetCleanupInterval() time.Duration {
	return parseOr(c.CleanupInterval, time.Hour)
}

// GetTempFileMaxAge returns the partial file retention as time.Duration
func (c *MaintenanceConfig) GetTempFileMaxAge() time.Duration {
	return parseOr(c.TempFileMaxAge, 24*time.Hour)
}

// GetHistoryMaxAge returns the history retention as time.Duration
func (c *MaintenanceConfig) GetHistoryMaxAge() time.Duration {
	return parseOr(c.HistoryMaxAge, 30*24*time.Hour)
}

func parseOr(value string, fallback time.Duration) time.Duration {
	d, _ := time.ParseDuration(value)
	if d == 0 {
		return fallback
	}
	return d
}
