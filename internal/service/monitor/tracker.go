package monitor

import (
	"sync"
	"time"

	"github.com/oshokin/intruder-sentry/internal/api/httpapi"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
)

// tracker accumulates the read-only counters served by the status endpoint.
// It is the only state shared between the sampling loop and the HTTP surface.
type tracker struct {
	mu     sync.Mutex
	status httpapi.Status
}

// newTracker creates a tracker for the given sensor backend.
func newTracker(sensorBackend string, startedAt time.Time) *tracker {
	return &tracker{
		status: httpapi.Status{
			SensorBackend: sensorBackend,
			StartedAt:     startedAt,
		},
	}
}

// RecordTick folds one sample and its engine decision into the snapshot.
func (t *tracker) RecordTick(sample detection.Sample, event detection.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.SamplesRead++
	t.status.LastDistanceCM = sample.DistanceCM

	switch event.Kind {
	case detection.EventTriggerSend:
		t.status.AlertsSent++
		at := sample.Timestamp
		t.status.LastAlertAt = &at
		t.status.InRange = true
	case detection.EventTriggerCooldown, detection.EventTriggerSkipped:
		t.status.InRange = true
	case detection.EventClear, detection.EventNone:
		t.status.InRange = false
	}
}

// Snapshot returns a copy of the current status.
func (t *tracker) Snapshot() httpapi.Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.status

	if t.status.LastAlertAt != nil {
		at := *t.status.LastAlertAt
		snapshot.LastAlertAt = &at
	}

	return snapshot
}
