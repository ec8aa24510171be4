package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/intruder-sentry/internal/domain/detection"
)

// scriptedSource replays a fixed list of distances, then repeats the last one.
type scriptedSource struct {
	distances []float64
	reads     int
	closed    bool
}

func (s *scriptedSource) Read(_ context.Context) (detection.Sample, error) {
	index := s.reads
	if index >= len(s.distances) {
		index = len(s.distances) - 1
	}

	s.reads++

	return detection.Sample{DistanceCM: s.distances[index], Timestamp: time.Now()}, nil
}

func (s *scriptedSource) Name() string {
	return "scripted"
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

// TestRunLoopDrivesEngineAndTracker runs the loop against a scripted sensor
// and checks samples flow into the tracker until cancellation.
func TestRunLoopDrivesEngineAndTracker(t *testing.T) {
	t.Parallel()

	source := &scriptedSource{distances: []float64{120, 20, 20, 120}}
	notif := &fakeNotifier{}
	dispatcher := newAlertDispatcher(false, "", &fakeCapturer{}, notif)
	engine := detection.NewEngine(35, time.Hour, dispatcher)
	track := newTracker(source.Name(), time.Now())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})

	go func() {
		runLoop(ctx, time.Millisecond, source, engine, track)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return track.Snapshot().SamplesRead >= 6
	}, time.Second, time.Millisecond)

	cancel()
	<-done
	dispatcher.Wait()

	snapshot := track.Snapshot()
	require.GreaterOrEqual(t, snapshot.SamplesRead, uint64(6))
	require.Equal(t, uint64(1), snapshot.AlertsSent)
	require.NotNil(t, snapshot.LastAlertAt)
	require.Len(t, notif.sent(), 1)
}

// TestTrackerInRangeFollowsEvents checks the in-range flag tracks trigger
// and clear decisions.
func TestTrackerInRangeFollowsEvents(t *testing.T) {
	t.Parallel()

	track := newTracker("scripted", time.Now())
	sample := detection.Sample{DistanceCM: 20, Timestamp: time.Now()}

	track.RecordTick(sample, detection.Event{Kind: detection.EventTriggerSend, DistanceCM: 20})
	require.True(t, track.Snapshot().InRange)

	track.RecordTick(sample, detection.Event{Kind: detection.EventTriggerCooldown, DistanceCM: 20})
	require.True(t, track.Snapshot().InRange)

	track.RecordTick(detection.Sample{DistanceCM: 90}, detection.Event{Kind: detection.EventClear, DistanceCM: 90})

	snapshot := track.Snapshot()
	require.False(t, snapshot.InRange)
	require.InDelta(t, 90.0, snapshot.LastDistanceCM, 0.001)
	require.Equal(t, uint64(3), snapshot.SamplesRead)
}
