package sensor

import (
	"context"
	"time"

	"github.com/oshokin/intruder-sentry/internal/config"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
)

const (
	// simMinDistanceCM is the closest point of the simulated approach.
	simMinDistanceCM = 5.0

	// simStepsPerSweep is how many readings one approach-and-retreat takes.
	simStepsPerSweep = 40
)

// simulated produces a deterministic triangle wave between the minimum
// distance and the configured maximum: an endless visitor walking towards
// the sensor and away again. Useful for developing without hardware.
type simulated struct {
	maxDistanceCM float64
	step          int
}

// newSimulated creates the simulated source.
func newSimulated(settings config.SensorSettings) *simulated {
	return &simulated{
		maxDistanceCM: settings.MaxDistanceM * 100,
	}
}

// Read returns the next point of the triangle wave.
func (s *simulated) Read(ctx context.Context) (detection.Sample, error) {
	if err := ctx.Err(); err != nil {
		return detection.Sample{}, err
	}

	half := simStepsPerSweep / 2

	position := s.step % simStepsPerSweep
	if position >= half {
		position = simStepsPerSweep - position
	}

	s.step++

	span := s.maxDistanceCM - simMinDistanceCM
	distanceCM := s.maxDistanceCM - span*float64(position)/float64(half)

	return detection.Sample{DistanceCM: distanceCM, Timestamp: time.Now()}, nil
}

// Name identifies the backend for logs and status output.
func (s *simulated) Name() string {
	return "sim"
}

// Close is a no-op for the simulated source.
func (s *simulated) Close() error {
	return nil
}
