package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/oshokin/intruder-sentry/internal/config"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
)

const (
	// triggerPulseWidth is the HC-SR04 trigger pulse length.
	triggerPulseWidth = 10 * time.Microsecond

	// echoTimeout bounds the wait for echo edges. The longest valid echo at
	// 3.5 m is about 20 ms; anything beyond this means nothing reflected.
	echoTimeout = 60 * time.Millisecond

	// speedOfSoundCMPerSec at room temperature; the echo travels the
	// distance twice.
	speedOfSoundCMPerSec = 34300.0

	// edgeBuffer sizes the echo event channel. Edges arrive in pairs;
	// a small buffer absorbs stale edges from an aborted measurement.
	edgeBuffer = 8
)

// hcsr04 measures distance with an HC-SR04 ultrasonic sensor wired to the
// Linux GPIO character device: a short pulse on the trigger line, then the
// echo line goes high for a duration proportional to the distance.
type hcsr04 struct {
	// trigger is the output line driving TRIG.
	trigger *gpiocdev.Line
	// echo is the input line watching ECHO edges.
	echo *gpiocdev.Line
	// edges receives timestamped echo line events from the kernel.
	edges chan gpiocdev.LineEvent
	// maxDistanceCM caps readings at the supply-dependent reliable range.
	maxDistanceCM float64
	// mu serializes measurements; overlapping pulses corrupt each other.
	mu sync.Mutex
}

// newHCSR04 requests both GPIO lines. The echo line is requested with edge
// detection so pulse width comes from kernel event timestamps instead of
// userspace polling.
func newHCSR04(settings config.SensorSettings) (*hcsr04, error) {
	s := &hcsr04{
		edges:         make(chan gpiocdev.LineEvent, edgeBuffer),
		maxDistanceCM: settings.MaxDistanceM * 100,
	}

	trigger, err := gpiocdev.RequestLine(settings.Chip, settings.TriggerPin,
		gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request trigger line %d: %w", settings.TriggerPin, err)
	}

	echo, err := gpiocdev.RequestLine(settings.Chip, settings.EchoPin,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(s.handleEdge))
	if err != nil {
		_ = trigger.Close()

		return nil, fmt.Errorf("request echo line %d: %w", settings.EchoPin, err)
	}

	s.trigger = trigger
	s.echo = echo

	return s, nil
}

// handleEdge forwards echo edges to the measuring goroutine.
// Drops instead of blocking: the event handler runs on the library's
// goroutine and must never stall.
func (s *hcsr04) handleEdge(event gpiocdev.LineEvent) {
	select {
	case s.edges <- event:
	default:
	}
}

// Read performs one measurement. A missing echo is not an error: it means
// nothing reflected within the sensor's range, so the reading saturates at
// the configured maximum distance, matching how the original deployment
// treated open space.
func (s *hcsr04) Read(ctx context.Context) (detection.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drainEdges()

	if err := s.pulse(); err != nil {
		return detection.Sample{}, err
	}

	rise, ok, err := s.waitEdge(ctx, gpiocdev.LineEventRisingEdge)
	if err != nil {
		return detection.Sample{}, err
	}

	if !ok {
		return s.sample(s.maxDistanceCM), nil
	}

	fall, ok, err := s.waitEdge(ctx, gpiocdev.LineEventFallingEdge)
	if err != nil {
		return detection.Sample{}, err
	}

	if !ok {
		return s.sample(s.maxDistanceCM), nil
	}

	width := fall.Timestamp - rise.Timestamp

	distanceCM := width.Seconds() * speedOfSoundCMPerSec / 2
	if distanceCM > s.maxDistanceCM {
		distanceCM = s.maxDistanceCM
	}

	return s.sample(distanceCM), nil
}

// Name identifies the backend for logs and status output.
func (s *hcsr04) Name() string {
	return "gpio (hc-sr04)"
}

// Close releases both GPIO lines.
func (s *hcsr04) Close() error {
	triggerErr := s.trigger.Close()
	if err := s.echo.Close(); err != nil {
		return err
	}

	return triggerErr
}

// pulse emits the 10µs trigger pulse that starts a measurement.
func (s *hcsr04) pulse() error {
	if err := s.trigger.SetValue(1); err != nil {
		return fmt.Errorf("raise trigger: %w", err)
	}

	time.Sleep(triggerPulseWidth)

	if err := s.trigger.SetValue(0); err != nil {
		return fmt.Errorf("drop trigger: %w", err)
	}

	return nil
}

// waitEdge waits for the next echo edge of the wanted type.
// The boolean result is false on echo timeout.
func (s *hcsr04) waitEdge(
	ctx context.Context,
	wanted gpiocdev.LineEventType,
) (gpiocdev.LineEvent, bool, error) {
	deadline := time.NewTimer(echoTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return gpiocdev.LineEvent{}, false, ctx.Err()
		case <-deadline.C:
			return gpiocdev.LineEvent{}, false, nil
		case event := <-s.edges:
			if event.Type == wanted {
				return event, true, nil
			}
			// Stale edge from a previous measurement; keep waiting.
		}
	}
}

// drainEdges discards edges left over from an aborted measurement.
func (s *hcsr04) drainEdges() {
	for {
		select {
		case <-s.edges:
		default:
			return
		}
	}
}

// sample stamps a distance with the current wall clock.
func (s *hcsr04) sample(distanceCM float64) detection.Sample {
	return detection.Sample{DistanceCM: distanceCM, Timestamp: time.Now()}
}
