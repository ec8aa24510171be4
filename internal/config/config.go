package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SensorSettings selects and parameterizes the range sensor backend.
type SensorSettings struct {
	// Backend picks the sensor implementation: "auto", "gpio", "serial" or "sim".
	// "auto" tries gpio first and falls back to serial, like the original
	// Raspberry Pi deployments where either wiring may be present.
	Backend string `yaml:"backend"`
	// Chip is the GPIO character device used by the gpio backend.
	Chip string `yaml:"chip"`
	// TriggerPin is the BCM line driving the HC-SR04 TRIG pin.
	TriggerPin int `yaml:"trigger_pin"`
	// EchoPin is the BCM line reading the HC-SR04 ECHO pin.
	EchoPin int `yaml:"echo_pin"`
	// SerialPort is the UART device used by the serial backend.
	SerialPort string `yaml:"serial_port"`
	// MaxDistanceM caps readings; HC-SR04 powered at 3.3V is only
	// reliable to about 1.5 m.
	MaxDistanceM float64 `yaml:"max_distance_m"`
}

// Config holds all settings for the intruder-sentry monitor.
type Config struct {
	// ThresholdCM is the trigger distance in centimeters.
	ThresholdCM float64 `yaml:"threshold_cm"`
	// SampleInterval is the sensor polling cadence.
	SampleInterval time.Duration `yaml:"sample_interval"`
	// Cooldown is the minimum time between notification attempts.
	Cooldown time.Duration `yaml:"cooldown"`
	// SendPhoto enables capturing and attaching a photo to alerts.
	SendPhoto bool `yaml:"send_photo"`
	// WebhookURL is the Discord webhook destination for alerts.
	// An empty value is reported at send time, not at startup.
	WebhookURL string `yaml:"webhook_url"`
	// PhotoPath is where a captured image is written temporarily.
	PhotoPath string `yaml:"photo_path"`
	// CaptureTimeout bounds a single capture tool invocation.
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
	// StatusAddress enables the HTTP status endpoint when non-empty
	// (e.g. "127.0.0.1:8723").
	StatusAddress string `yaml:"status_addr"`
	// LogLevel sets the minimum log level ("debug", "info", ...).
	LogLevel string `yaml:"log_level"`
	// Sensor selects and parameterizes the range sensor backend.
	Sensor SensorSettings `yaml:"sensor"`
}

const (
	// DefaultConfigFilename is the default filename for monitor settings.
	DefaultConfigFilename = "intruder-sentry-settings.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DefaultThresholdCM is the trigger distance used when none is configured.
	DefaultThresholdCM = 35.0

	// DefaultSampleInterval is the default sensor polling cadence.
	DefaultSampleInterval = 250 * time.Millisecond

	// DefaultCooldown is the default gap between notification attempts.
	DefaultCooldown = 30 * time.Second

	// DefaultPhotoPath is where captured images are written.
	DefaultPhotoPath = "/tmp/intruder.jpg"

	// DefaultCaptureTimeout bounds a single capture tool invocation so a hung
	// camera tool cannot stall the monitor for more than a few samples.
	DefaultCaptureTimeout = 4 * time.Second

	// Environment variable names, kept compatible with the original deployment.
	EnvThresholdCM   = "INTRUDER_THRESHOLD_CM"
	EnvSampleSeconds = "INTRUDER_SAMPLE_S"
	EnvCooldownSecs  = "INTRUDER_COOLDOWN"
	EnvSendPhoto     = "SEND_PHOTO"
	EnvWebhookURL    = "WEBHOOK_URL"
	EnvSensorBackend = "INTRUDER_SENSOR"
	EnvSerialPort    = "INTRUDER_SERIAL_PORT"
	EnvStatusAddress = "INTRUDER_STATUS_ADDR"
	EnvLogLevel      = "INTRUDER_LOG_LEVEL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errThresholdInvalid is returned when the trigger distance is not positive.
	errThresholdInvalid = errors.New("threshold distance must be positive")
	// errSampleIntervalInvalid is returned when the polling cadence is not positive.
	errSampleIntervalInvalid = errors.New("sample interval must be positive")
	// errCooldownInvalid is returned when the cooldown is negative.
	errCooldownInvalid = errors.New("cooldown must not be negative")
	// errCaptureTimeoutInvalid is returned when the capture timeout is not positive.
	errCaptureTimeoutInvalid = errors.New("capture timeout must be positive")
	// errUnknownSensorBackend is returned when the sensor backend name is not recognized.
	errUnknownSensorBackend = errors.New("unknown sensor backend")
)

// Default returns a configuration populated with the stock values
// used by the original Raspberry Pi deployment.
func Default() *Config {
	return &Config{
		ThresholdCM:    DefaultThresholdCM,
		SampleInterval: DefaultSampleInterval,
		Cooldown:       DefaultCooldown,
		SendPhoto:      true,
		PhotoPath:      DefaultPhotoPath,
		CaptureTimeout: DefaultCaptureTimeout,
		LogLevel:       "info",
		Sensor: SensorSettings{
			Backend:      "auto",
			Chip:         "gpiochip0",
			TriggerPin:   23,
			EchoPin:      24,
			SerialPort:   "/dev/ttyS0",
			MaxDistanceM: 1.5,
		},
	}
}

// Load reads configuration from the provided path, layers process environment
// overrides on top and validates the result. A missing settings file is not
// an error: the defaults plus environment are enough to run.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus environment.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file may hold the webhook URL.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration fields from environment-style key/value
// pairs. The lookup function is injected so tests need no real environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if raw, ok := lookup(EnvThresholdCM); ok {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvThresholdCM, err)
		}

		cfg.ThresholdCM = value
	}

	if raw, ok := lookup(EnvSampleSeconds); ok {
		interval, err := parseSeconds(EnvSampleSeconds, raw)
		if err != nil {
			return err
		}

		cfg.SampleInterval = interval
	}

	if raw, ok := lookup(EnvCooldownSecs); ok {
		cooldown, err := parseSeconds(EnvCooldownSecs, raw)
		if err != nil {
			return err
		}

		cfg.Cooldown = cooldown
	}

	if raw, ok := lookup(EnvSendPhoto); ok {
		cfg.SendPhoto = ParseFlag(raw)
	}

	if raw, ok := lookup(EnvWebhookURL); ok {
		cfg.WebhookURL = raw
	}

	if raw, ok := lookup(EnvSensorBackend); ok {
		cfg.Sensor.Backend = raw
	}

	if raw, ok := lookup(EnvSerialPort); ok {
		cfg.Sensor.SerialPort = raw
	}

	if raw, ok := lookup(EnvStatusAddress); ok {
		cfg.StatusAddress = raw
	}

	if raw, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = raw
	}

	return nil
}

// ParseFlag interprets an environment-style boolean: "0", "false" and "no"
// (any case) are false, every other value is true.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "no":
		return false
	default:
		return true
	}
}

// Validate checks the provided configuration for required fields and ranges.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ThresholdCM <= 0 {
		return errThresholdInvalid
	}

	if cfg.SampleInterval <= 0 {
		return errSampleIntervalInvalid
	}

	if cfg.Cooldown < 0 {
		return errCooldownInvalid
	}

	if cfg.CaptureTimeout <= 0 {
		return errCaptureTimeoutInvalid
	}

	switch cfg.Sensor.Backend {
	case "auto", "gpio", "serial", "sim":
	default:
		return fmt.Errorf("%w: %q", errUnknownSensorBackend, cfg.Sensor.Backend)
	}

	// The webhook URL may legitimately be absent (reported at send time),
	// but if present it must at least parse.
	if cfg.WebhookURL != "" {
		if _, err := url.ParseRequestURI(cfg.WebhookURL); err != nil {
			return fmt.Errorf("invalid webhook URL: %w", err)
		}
	}

	if cfg.PhotoPath == "" {
		cfg.PhotoPath = DefaultPhotoPath
	}

	return nil
}

// parseSeconds converts a fractional-seconds string ("0.25") to a duration.
func parseSeconds(key, raw string) (time.Duration, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return time.Duration(value * float64(time.Second)), nil
}
