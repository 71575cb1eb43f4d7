// Package config provides configuration management for the Framecut agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort         = 8787
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".framecut"
	DefaultPollInterval = 3 * time.Second

	// Environment variable names
	EnvPort          = "FRAMECUT_PORT"
	EnvLogLevel      = "FRAMECUT_LOG_LEVEL"
	EnvMediaDir      = "FRAMECUT_MEDIA_DIR"
	EnvFFmpeg        = "FRAMECUT_FFMPEG"
	EnvPollInterval  = "FRAMECUT_POLL_INTERVAL_MS"
	EnvFFmpegTimeout = "FRAMECUT_FFMPEG_TIMEOUT_MS"

	// Database filename
	DBFilename = "framecut.db"

	// Subdirectory of the media root where job directories live
	ExportsSubdir = "exports"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	MediaDir() string
	ExportsDir() string
	DBPath() string
	FFmpegPath() string
	PollInterval() time.Duration
	FFmpegTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port          int
	logLevel      string
	mediaDir      string
	ffmpegPath    string
	pollInterval  time.Duration
	ffmpegTimeout time.Duration
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:         DefaultPort,
		logLevel:     DefaultLogLevel,
		mediaDir:     defaultMediaDir(),
		pollInterval: DefaultPollInterval,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override media root from environment
	if md := os.Getenv(EnvMediaDir); md != "" {
		cfg.mediaDir = md
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpeg)

	if pi := os.Getenv(EnvPollInterval); pi != "" {
		ms, err := strconv.Atoi(pi)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer of milliseconds", EnvPollInterval)
		}
		cfg.pollInterval = time.Duration(ms) * time.Millisecond
	}

	if ft := os.Getenv(EnvFFmpegTimeout); ft != "" {
		ms, err := strconv.Atoi(ft)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid %s: must be a non-negative integer of milliseconds", EnvFFmpegTimeout)
		}
		cfg.ffmpegTimeout = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// MediaDir returns the base media root directory
func (c *EnvConfig) MediaDir() string {
	return c.mediaDir
}

// ExportsDir returns the directory holding per-job export directories
func (c *EnvConfig) ExportsDir() string {
	return filepath.Join(c.mediaDir, ExportsSubdir)
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.mediaDir, DBFilename)
}

// FFmpegPath returns the configured ffmpeg binary path, or empty to
// resolve from PATH
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// PollInterval returns the scheduler's scan interval
func (c *EnvConfig) PollInterval() time.Duration {
	return c.pollInterval
}

// FFmpegTimeout returns the per-invocation transcoder timeout.
// Zero means no timeout.
func (c *EnvConfig) FFmpegTimeout() time.Duration {
	return c.ffmpegTimeout
}

// defaultMediaDir returns the default media root path
func defaultMediaDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return filepath.Join(DefaultDataDir, "media")
	}
	return filepath.Join(home, DefaultDataDir, "media")
}
