package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/intruder-sentry/internal/capture"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
	"github.com/oshokin/intruder-sentry/internal/notify"
)

// fakeCapturer scripts capture results and can create the output file.
type fakeCapturer struct {
	succeed bool
	calls   int
}

func (c *fakeCapturer) Capture(_ context.Context, outputPath string) capture.Result {
	c.calls++

	if !c.succeed {
		return capture.Result{}
	}

	_ = os.WriteFile(outputPath, []byte("jpeg"), 0o600)

	return capture.Result{Succeeded: true, Path: outputPath, Backend: "fake"}
}

// fakeNotifier records alerts and optionally blocks until released.
type fakeNotifier struct {
	mu      sync.Mutex
	alerts  []notify.Alert
	outcome notify.Outcome
	err     error
	block   chan struct{}
}

func (n *fakeNotifier) Send(_ context.Context, alert notify.Alert) (notify.Outcome, error) {
	if n.block != nil {
		<-n.block
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.alerts = append(n.alerts, alert)

	return n.outcome, n.err
}

func (n *fakeNotifier) sent() []notify.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]notify.Alert(nil), n.alerts...)
}

func testSample() detection.Sample {
	return detection.Sample{DistanceCM: 21.5, Timestamp: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
}

// TestDispatchAttachesAndRemovesImage checks the happy path: a successful
// capture travels with the alert and the file is cleaned up afterwards.
func TestDispatchAttachesAndRemovesImage(t *testing.T) {
	t.Parallel()

	photoPath := filepath.Join(t.TempDir(), "intruder.jpg")
	notif := &fakeNotifier{outcome: notify.Outcome{Delivered: true, StatusDetail: "204 No Content"}}
	d := newAlertDispatcher(true, photoPath, &fakeCapturer{succeed: true}, notif)

	require.True(t, d.Begin(context.Background(), testSample()))
	d.Wait()

	alerts := notif.sent()
	require.Len(t, alerts, 1)
	require.Equal(t, photoPath, alerts[0].ImagePath)
	require.NoFileExists(t, photoPath)
}

// TestDispatchDegradesToTextOnly checks that capture failure still sends
// the alert, without an image.
func TestDispatchDegradesToTextOnly(t *testing.T) {
	t.Parallel()

	notif := &fakeNotifier{outcome: notify.Outcome{Delivered: true}}
	d := newAlertDispatcher(true, filepath.Join(t.TempDir(), "intruder.jpg"), &fakeCapturer{}, notif)

	require.True(t, d.Begin(context.Background(), testSample()))
	d.Wait()

	alerts := notif.sent()
	require.Len(t, alerts, 1)
	require.Empty(t, alerts[0].ImagePath)
}

// TestDispatchSkipsCaptureWhenDisabled checks the photo flag.
func TestDispatchSkipsCaptureWhenDisabled(t *testing.T) {
	t.Parallel()

	capt := &fakeCapturer{succeed: true}
	notif := &fakeNotifier{outcome: notify.Outcome{Delivered: true}}
	d := newAlertDispatcher(false, filepath.Join(t.TempDir(), "intruder.jpg"), capt, notif)

	require.True(t, d.Begin(context.Background(), testSample()))
	d.Wait()

	require.Zero(t, capt.calls)
	require.Len(t, notif.sent(), 1)
}

// TestDispatchSingleFlight checks at most one sequence runs at a time and
// the slot frees up once the sequence completes.
func TestDispatchSingleFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	notif := &fakeNotifier{outcome: notify.Outcome{Delivered: true}, block: release}
	d := newAlertDispatcher(false, "", &fakeCapturer{}, notif)

	require.True(t, d.Begin(context.Background(), testSample()))
	require.False(t, d.Begin(context.Background(), testSample()))

	close(release)
	d.Wait()

	require.Len(t, notif.sent(), 1)
	require.True(t, d.Begin(context.Background(), testSample()))
	d.Wait()
}

// TestDispatchToleratesMissingWebhook checks the configuration error path
// does not panic or leak the in-flight slot.
func TestDispatchToleratesMissingWebhook(t *testing.T) {
	t.Parallel()

	notif := &fakeNotifier{err: notify.ErrNoWebhookURL}
	d := newAlertDispatcher(false, "", &fakeCapturer{}, notif)

	require.True(t, d.Begin(context.Background(), testSample()))
	d.Wait()
	require.True(t, d.Begin(context.Background(), testSample()))
	d.Wait()
}
