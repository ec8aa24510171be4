package sensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/intruder-sentry/internal/config"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
	"github.com/oshokin/intruder-sentry/internal/logger"
)

// RangeSource yields distance readings from a single range sensor.
// Implementations are not required to be safe for concurrent reads;
// the monitor polls from one loop.
type RangeSource interface {
	// Read takes one distance measurement.
	Read(ctx context.Context) (detection.Sample, error)
	// Name identifies the backend for logs and status output.
	Name() string
	// Close releases the underlying sensor handle.
	Close() error
}

// errNoBackendAvailable is returned when every sensor backend failed to open.
var errNoBackendAvailable = errors.New("no sensor backend available")

// Open acquires a range sensor according to the configured backend.
// The "auto" backend tries the GPIO-wired HC-SR04 first and falls back to a
// UART rangefinder, logging each failed candidate, so the same binary runs
// on either wiring without reconfiguration. The simulated backend is never
// auto-selected; it has to be requested explicitly.
func Open(ctx context.Context, settings config.SensorSettings) (RangeSource, error) {
	var (
		source RangeSource
		err    error
	)

	switch settings.Backend {
	case "gpio":
		source, err = newHCSR04(settings)
	case "serial":
		source, err = newSerialRangefinder(settings)
	case "sim":
		source = newSimulated(settings)
	case "auto", "":
		source, err = newHCSR04(settings)
		if err != nil {
			logger.WarnKV(ctx, "GPIO sensor unavailable, trying serial", "error", err)

			source, err = newSerialRangefinder(settings)
			if err != nil {
				logger.WarnKV(ctx, "Serial sensor unavailable", "error", err)

				return nil, errNoBackendAvailable
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", errNoBackendAvailable, settings.Backend)
	}

	if err != nil {
		return nil, err
	}

	logger.Infof(ctx, "Sensor backend: %s", source.Name())

	return source, nil
}
