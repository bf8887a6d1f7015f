package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Download     DownloadConfig     `mapstructure:"download"`
	Cookies      CookiesConfig      `mapstructure:"cookies"`
	Transcode    TranscodeConfig    `mapstructure:"transcode"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig contains artifact storage configuration. Each media
// identifier gets its own subdirectory under Root.
type StorageConfig struct {
	Root         string `mapstructure:"root"`
	DatabasePath string `mapstructure:"database_path"`
}

// MediaDir returns the artifact directory for an identifier
func (s StorageConfig) MediaDir(identifier string) string {
	return filepath.Join(s.Root, identifier)
}

// DownloadConfig contains extraction-tool configuration
type DownloadConfig struct {
	YTDLPBinary        string        `mapstructure:"ytdlp_binary"`
	MaxDurationSeconds float64       `mapstructure:"max_duration_seconds"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
}

// CookiesConfig selects the authentication mechanism attached to
// extraction commands. Browser takes precedence over File.
type CookiesConfig struct {
	Browser        string `mapstructure:"browser"`         // e.g. chrome, firefox
	BrowserProfile string `mapstructure:"browser_profile"` // optional profile name
	File           string `mapstructure:"file"`            // path to a cookie file
}

// TranscodeConfig contains media-tool configuration
type TranscodeConfig struct {
	FFmpegBinary  string `mapstructure:"ffmpeg_binary"`
	FFprobeBinary string `mapstructure:"ffprobe_binary"`
}

// NotificationConfig contains desktop notification configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Storage: StorageConfig{
			Root:         "$HOME/media-grab/storage",
			DatabasePath: "$HOME/media-grab/media.db",
		},
		Download: DownloadConfig{
			YTDLPBinary:        "yt-dlp",
			MaxDurationSeconds: 1800,
			MaxAttempts:        3,
			RetryDelay:         2 * time.Second,
		},
		Transcode: TranscodeConfig{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
