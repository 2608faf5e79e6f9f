// Package config provides Viper-based configuration loading for the
// session server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ListenConfig holds QUIC listener settings.
type ListenConfig struct {
	// Host is the bind address for the QUIC listener.
	Host string `mapstructure:"host"`
	// Port is the UDP port for the QUIC listener.
	Port int `mapstructure:"port"`
	// CertFile is the path to the PEM server certificate chain.
	CertFile string `mapstructure:"cert_file"`
	// KeyFile is the path to the PEM private key.
	KeyFile string `mapstructure:"key_file"`
	// ALPN is the list of accepted ALPN protocol identifiers.
	ALPN []string `mapstructure:"alpn"`
	// IdleTimeout is the QUIC max idle timeout for client connections.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File, when non-empty, routes output to a rolling log file instead
	// of the process streams.
	File string `mapstructure:"file"`
	// MaxSizeMB is the rolling file size limit in megabytes.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to retain.
	MaxBackups int `mapstructure:"max_backups"`
	// MaxAgeDays is the retention age for rotated files.
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// SessionConfig holds connection actor and command queue settings.
type SessionConfig struct {
	// QueueSize bounds the coordinator command queue.
	QueueSize int `mapstructure:"queue_size"`
	// OutboxSize bounds each player's unicast event channel.
	OutboxSize int `mapstructure:"outbox_size"`
	// ReadTimeout bounds each client frame read. Zero waits indefinitely,
	// matching the steady-state protocol; positive values disconnect
	// stalled peers.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// AnnounceDepartures broadcasts PlayerLeave when a player disconnects.
	AnnounceDepartures bool `mapstructure:"announce_departures"`
}

// GameConfig holds world rules.
type GameConfig struct {
	// Seed is the world seed sent to clients in LevelInfo.
	Seed uint64 `mapstructure:"seed"`
	// ProximityThreshold is the combat-group admission distance.
	ProximityThreshold float64 `mapstructure:"proximity_threshold"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen  ListenConfig  `mapstructure:"listen"`
	Logging LoggingConfig `mapstructure:"logging"`
	Session SessionConfig `mapstructure:"session"`
	Game    GameConfig    `mapstructure:"game"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateListen(c.Listen); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSession(c.Session); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateListen(l ListenConfig) error {
	var errs []string
	if l.Port < 1 || l.Port > 65535 {
		errs = append(errs, fmt.Sprintf("listen.port must be 1-65535, got %d", l.Port))
	}
	if l.CertFile == "" {
		errs = append(errs, "listen.cert_file must not be empty")
	}
	if l.KeyFile == "" {
		errs = append(errs, "listen.key_file must not be empty")
	}
	if len(l.ALPN) == 0 {
		errs = append(errs, "listen.alpn must list at least one protocol")
	}
	if l.IdleTimeout < 0 {
		errs = append(errs, "listen.idle_timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	var errs []string
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", l.Level))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, console], got %q", l.Format))
	}
	if l.File != "" {
		if l.MaxSizeMB < 1 {
			errs = append(errs, fmt.Sprintf("logging.max_size_mb must be >= 1 when logging.file is set, got %d", l.MaxSizeMB))
		}
		if l.MaxBackups < 0 {
			errs = append(errs, "logging.max_backups must not be negative")
		}
		if l.MaxAgeDays < 0 {
			errs = append(errs, "logging.max_age_days must not be negative")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if s.QueueSize < 1 {
		errs = append(errs, fmt.Sprintf("session.queue_size must be >= 1, got %d", s.QueueSize))
	}
	if s.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("session.outbox_size must be >= 1, got %d", s.OutboxSize))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "session.read_timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	if g.ProximityThreshold <= 0 {
		return fmt.Errorf("game.proximity_threshold must be > 0, got %v", g.ProximityThreshold)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SESSIOND_ prefix
	v.SetEnvPrefix("SESSIOND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.host", "0.0.0.0")
	v.SetDefault("listen.port", 5000)
	v.SetDefault("listen.cert_file", "server.crt")
	v.SetDefault("listen.key_file", "server.key")
	v.SetDefault("listen.alpn", []string{"h3"})
	v.SetDefault("listen.idle_timeout", "60s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 7)

	v.SetDefault("session.queue_size", 128)
	v.SetDefault("session.outbox_size", 128)
	v.SetDefault("session.read_timeout", "0s")
	v.SetDefault("session.announce_departures", false)

	v.SetDefault("game.seed", uint64(1767444506747788338))
	v.SetDefault("game.proximity_threshold", 3.0)
}
