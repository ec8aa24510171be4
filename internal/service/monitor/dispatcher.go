package monitor

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/oshokin/intruder-sentry/internal/capture"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
	"github.com/oshokin/intruder-sentry/internal/logger"
	"github.com/oshokin/intruder-sentry/internal/notify"
)

// capturer abstracts the capture provider for tests.
type capturer interface {
	Capture(ctx context.Context, outputPath string) capture.Result
}

// notifier abstracts the webhook notifier for tests.
type notifier interface {
	Send(ctx context.Context, alert notify.Alert) (notify.Outcome, error)
}

// alertDispatcher runs the capture+notify sequence off the sampling loop.
// At most one sequence is in flight at a time; the engine starts the
// cooldown at initiation, so the sequence itself never touches engine state.
type alertDispatcher struct {
	// photoEnabled controls whether a capture is attempted before sending.
	photoEnabled bool
	// photoPath is where the captured image is written.
	photoPath string
	// capturer produces the still image.
	capturer capturer
	// notifier delivers the alert.
	notifier notifier

	// inFlight guards the single-flight invariant.
	inFlight atomic.Bool
	// wg tracks the dispatch goroutine for a clean shutdown.
	wg sync.WaitGroup
}

// newAlertDispatcher wires a dispatcher from its collaborators.
func newAlertDispatcher(photoEnabled bool, photoPath string, c capturer, n notifier) *alertDispatcher {
	return &alertDispatcher{
		photoEnabled: photoEnabled,
		photoPath:    photoPath,
		capturer:     c,
		notifier:     n,
	}
}

// Begin starts the capture+notify sequence for the sample unless one is
// already running. The boolean result feeds the engine's cooldown decision.
func (d *alertDispatcher) Begin(ctx context.Context, sample detection.Sample) bool {
	if !d.inFlight.CompareAndSwap(false, true) {
		return false
	}

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		defer d.inFlight.Store(false)

		d.dispatch(ctx, sample)
	}()

	return true
}

// Wait blocks until any in-flight sequence has finished. Called on shutdown
// after the context is canceled, so a hung tool cannot delay exit for long.
func (d *alertDispatcher) Wait() {
	d.wg.Wait()
}

// dispatch performs one capture+notify sequence. Every failure mode here is
// contained: capture failure degrades to a text-only alert, webhook failure
// is logged and never retried.
func (d *alertDispatcher) dispatch(ctx context.Context, sample detection.Sample) {
	imagePath := ""

	if d.photoEnabled {
		if result := d.capturer.Capture(ctx, d.photoPath); result.Succeeded {
			imagePath = result.Path
		} else {
			logger.Warn(ctx, "Camera: capture failed, sending text-only")
		}
	}

	outcome, err := d.notifier.Send(ctx, notify.Alert{
		DistanceCM: sample.DistanceCM,
		At:         sample.Timestamp,
		ImagePath:  imagePath,
	})

	switch {
	case errors.Is(err, notify.ErrNoWebhookURL):
		logger.Error(ctx, "No webhook URL configured, skipping notification for this cycle")
	case err != nil:
		logger.ErrorKV(ctx, "Webhook dispatch failed", "error", err)
	case outcome.Delivered:
		logger.InfoKV(ctx, "Webhook: alert sent", "status", outcome.StatusDetail)
	default:
		logger.WarnKV(ctx, "Webhook: alert failed", "status", outcome.StatusDetail)
	}

	// The image belongs to this notification only.
	if imagePath != "" {
		_ = os.Remove(imagePath)
	}
}
