package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// lookupFromMap adapts a plain map to the ApplyEnv lookup signature.
func lookupFromMap(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

// TestDefaultIsValid ensures the stock configuration passes validation.
func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	require.InDelta(t, 35.0, cfg.ThresholdCM, 0.001)
	require.Equal(t, 250*time.Millisecond, cfg.SampleInterval)
	require.Equal(t, 30*time.Second, cfg.Cooldown)
	require.True(t, cfg.SendPhoto)
}

// TestApplyEnvOverrides checks each supported environment key takes effect.
func TestApplyEnvOverrides(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := ApplyEnv(cfg, lookupFromMap(map[string]string{
		EnvThresholdCM:   "60",
		EnvSampleSeconds: "0.5",
		EnvCooldownSecs:  "10",
		EnvSendPhoto:     "no",
		EnvWebhookURL:    "https://discord.com/api/webhooks/1/x",
		EnvSensorBackend: "sim",
	}))
	require.NoError(t, err)

	require.InDelta(t, 60.0, cfg.ThresholdCM, 0.001)
	require.Equal(t, 500*time.Millisecond, cfg.SampleInterval)
	require.Equal(t, 10*time.Second, cfg.Cooldown)
	require.False(t, cfg.SendPhoto)
	require.Equal(t, "https://discord.com/api/webhooks/1/x", cfg.WebhookURL)
	require.Equal(t, "sim", cfg.Sensor.Backend)
}

// TestApplyEnvBadNumber ensures malformed numeric values surface as errors.
func TestApplyEnvBadNumber(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := ApplyEnv(cfg, lookupFromMap(map[string]string{EnvThresholdCM: "close"}))
	require.Error(t, err)
}

// TestParseFlag covers the falsy spellings accepted for SEND_PHOTO.
func TestParseFlag(t *testing.T) {
	t.Parallel()

	for _, falsy := range []string{"0", "false", "no", "FALSE", " No "} {
		require.False(t, ParseFlag(falsy), falsy)
	}

	for _, truthy := range []string{"1", "true", "yes", "on", ""} {
		require.True(t, ParseFlag(truthy), truthy)
	}
}

// TestValidateRejectsBadValues checks range validation of the core knobs.
func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.ThresholdCM = 0
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.SampleInterval = 0
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Cooldown = -time.Second
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Sensor.Backend = "telepathy"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.WebhookURL = "not a url"
	require.Error(t, Validate(cfg))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := Default()
	cfg.ThresholdCM = 42
	cfg.WebhookURL = "https://discord.com/api/webhooks/2/y"
	cfg.Sensor.Backend = "serial"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, cfg.ThresholdCM, loaded.ThresholdCM, 0.001)
	require.Equal(t, cfg.WebhookURL, loaded.WebhookURL)
	require.Equal(t, cfg.Sensor.Backend, loaded.Sensor.Backend)
}

// TestLoadMissingFileUsesDefaults verifies a missing settings file is not fatal.
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, DefaultThresholdCM, cfg.ThresholdCM, 0.001)
}
