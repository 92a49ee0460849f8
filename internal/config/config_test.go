package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/hrvmon/internal/config"
	"codeberg.org/mutker/hrvmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hrvmon.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
sample_rate = 500
queue_capacity = 1000
threshold_factor = 0.75
session_duration = "45s"
history_file = "/tmp/history.txt"

[mqtt]
enabled = true
broker = "tcp://192.168.2.253:1883"
topic = "Group7"

[metrics]
enabled = true
db_path = "/path/to/sessions.db"
`)
	t.Setenv("HRVMON_CONFIG", path)

	cfg, err := config.Load(config.WithArgs(nil))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500, cfg.SampleRate)
	assert.Equal(t, 2*time.Millisecond, cfg.SamplePeriod())
	assert.Equal(t, 2, cfg.SamplePeriodMs())
	assert.Equal(t, 1000, cfg.QueueCapacity)
	assert.InDelta(t, 0.75, cfg.ThresholdFactor, 1e-9)
	assert.Equal(t, 45*time.Second, cfg.SessionDuration)
	assert.Equal(t, "/tmp/history.txt", cfg.HistoryFile)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://192.168.2.253:1883", cfg.MQTT.Broker)
	assert.Equal(t, "Group7", cfg.MQTT.Topic)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/path/to/sessions.db", cfg.Metrics.DBPath)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HRVMON_CONFIG", "")

	cfg, err := config.Load(config.WithArgs(nil))
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 250, cfg.SampleRate)
	assert.Equal(t, 4*time.Millisecond, cfg.SamplePeriod())
	assert.Equal(t, 500, cfg.QueueCapacity)
	assert.Equal(t, 30, cfg.InputQueueCapacity)
	assert.Equal(t, 5, cfg.FilterWindow)
	assert.InDelta(t, 0.8, cfg.ThresholdFactor, 1e-9)
	assert.Equal(t, 40, cfg.MinHR)
	assert.Equal(t, 200, cfg.MaxHR)
	assert.Equal(t, 30*time.Second, cfg.SessionDuration)
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce)
	assert.Equal(t, config.SensorSynthetic, cfg.Sensor)
	assert.Equal(t, config.DefaultMQTTTopic, cfg.MQTT.Topic)
	assert.False(t, cfg.Cloud.Enabled)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("HRVMON_CONFIG", path)

	_, err := config.Load(config.WithArgs(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
log_level = "invalid"
`)
	t.Setenv("HRVMON_CONFIG", path)

	_, err := config.Load(config.WithArgs(nil))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("HRVMON_CONFIG", "")

	cfg, err := config.Load(config.WithArgs([]string{"--log-level", "debug", "--session-duration", "10s"}))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
	assert.Equal(t, 10*time.Second, cfg.SessionDuration)
}

func TestFlagOverridesFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "error"
`)

	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs([]string{"--log-level=warning"}))
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.LogLevel)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("HRVMON_CONFIG", "")
	t.Setenv("HRVMON_MQTT_TOPIC", "Ward3")

	cfg, err := config.Load(config.WithArgs(nil))
	require.NoError(t, err)
	assert.Equal(t, "Ward3", cfg.MQTT.Topic)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   errors.ErrorCode
	}{
		{"sample rate", func(c *config.Config) { c.SampleRate = 300 }, errors.ErrInvalidConfig},
		{"threshold", func(c *config.Config) { c.ThresholdFactor = 1.2 }, errors.ErrInvalidConfig},
		{"hr range", func(c *config.Config) { c.MaxHR = c.MinHR }, errors.ErrInvalidConfig},
		{"duration", func(c *config.Config) { c.SessionDuration = 0 }, errors.ErrInvalidInterval},
		{"serial port", func(c *config.Config) { c.Sensor = config.SensorSerial }, errors.ErrMissingConfig},
		{"cloud creds", func(c *config.Config) { c.Cloud.Enabled = true }, errors.ErrMissingConfig},
		{"mqtt broker", func(c *config.Config) { c.MQTT.Enabled = true }, errors.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HRVMON_CONFIG", "")
			cfg, err := config.Load(config.WithArgs(nil))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}
