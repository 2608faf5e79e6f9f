package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Listen: ListenConfig{
			Host:        "0.0.0.0",
			Port:        5000,
			CertFile:    "server.crt",
			KeyFile:     "server.key",
			ALPN:        []string{"h3"},
			IdleTimeout: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Session: SessionConfig{
			QueueSize:  128,
			OutboxSize: 128,
		},
		Game: GameConfig{
			Seed:               1767444506747788338,
			ProximityThreshold: 3.0,
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestListenAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:5000", cfg.Listen.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
listen:
  host: 127.0.0.1
  port: 5001
  cert_file: certs/test.crt
  key_file: certs/test.key
  idle_timeout: 30s
logging:
  level: debug
  format: console
session:
  queue_size: 64
  read_timeout: 45s
  announce_departures: true
game:
  seed: 42
  proximity_threshold: 5.5
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Listen.Host)
	assert.Equal(t, 5001, cfg.Listen.Port)
	assert.Equal(t, 30*time.Second, cfg.Listen.IdleTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 64, cfg.Session.QueueSize)
	assert.Equal(t, 45*time.Second, cfg.Session.ReadTimeout)
	assert.True(t, cfg.Session.AnnounceDepartures)
	assert.Equal(t, uint64(42), cfg.Game.Seed)
	assert.Equal(t, 5.5, cfg.Game.ProximityThreshold)
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	err := os.WriteFile(path, []byte("listen:\n  port: 6000\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Listen.Port)
	assert.Equal(t, []string{"h3"}, cfg.Listen.ALPN)
	assert.Equal(t, 60*time.Second, cfg.Listen.IdleTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 128, cfg.Session.OutboxSize)
	assert.Equal(t, time.Duration(0), cfg.Session.ReadTimeout)
	assert.False(t, cfg.Session.AnnounceDepartures)
	assert.Equal(t, uint64(1767444506747788338), cfg.Game.Seed)
	assert.Equal(t, 3.0, cfg.Game.ProximityThreshold)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateListenPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		cfg := validConfig()
		cfg.Listen.Port = port
		assert.Error(t, cfg.Validate(), "port %d should be invalid", port)
	}
}

func TestValidateListenTLSFiles(t *testing.T) {
	cfg := validConfig()
	cfg.Listen.CertFile = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Listen.KeyFile = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateListenALPN(t *testing.T) {
	cfg := validConfig()
	cfg.Listen.ALPN = nil
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingRotation(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.File = "app.log"
	cfg.Logging.MaxSizeMB = 0
	assert.Error(t, cfg.Validate())

	cfg.Logging.MaxSizeMB = 10
	assert.NoError(t, cfg.Validate())
}

func TestValidateSessionQueues(t *testing.T) {
	cfg := validConfig()
	cfg.Session.QueueSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Session.OutboxSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Session.ReadTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestValidateGameThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Game.ProximityThreshold = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Listen.Port = 0
	cfg.Logging.Level = "bogus"
	cfg.Game.ProximityThreshold = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen.port")
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "game.proximity_threshold")
}

func TestPropertyValidPortsAlwaysValidate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := validConfig()
		cfg.Listen.Port = rapid.IntRange(1, 65535).Draw(t, "port")
		if err := cfg.Validate(); err != nil {
			t.Fatalf("port %d rejected: %v", cfg.Listen.Port, err)
		}
	})
}
