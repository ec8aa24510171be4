package detection

import (
	"context"
	"time"

	"github.com/oshokin/intruder-sentry/internal/logger"
)

// Dispatcher runs the capture+notify sequence for a triggered sample.
// Begin reports whether the sequence was actually started; it returns false
// when a previous sequence is still in flight, in which case the engine does
// not start a new cooldown window.
type Dispatcher interface {
	Begin(ctx context.Context, sample Sample) bool
}

// Engine converts raw distance samples into discrete trigger/clear decisions.
//
// Stored state is deliberately tiny: whether the previous sample was in range
// (to emit CLEAR exactly once per excursion) and when the last alert dispatch
// was initiated (to gate duplicates). The cooldown is measured from the last
// attempted send, not the last successful delivery, so a flapping webhook
// cannot cause a capture+send storm while a genuine presence persists.
//
// The engine is not safe for concurrent use; it is driven by a single
// sampling loop and the dispatcher must not call back into it.
type Engine struct {
	// thresholdCM is the trigger distance in centimeters.
	thresholdCM float64
	// cooldown is the minimum gap between alert dispatches.
	cooldown time.Duration
	// dispatcher starts the capture+notify sequence on trigger.
	dispatcher Dispatcher

	// wasInRange tracks the previous sample's side of the threshold.
	wasInRange bool
	// lastSentAt is when the last alert dispatch was initiated.
	lastSentAt time.Time
}

// NewEngine creates an engine with the given decision policy and dispatcher.
func NewEngine(thresholdCM float64, cooldown time.Duration, dispatcher Dispatcher) *Engine {
	return &Engine{
		thresholdCM: thresholdCM,
		cooldown:    cooldown,
		dispatcher:  dispatcher,
	}
}

// Tick processes one sample at the given time and returns the decision.
// All side effects (capture, notification) happen through the dispatcher;
// per-cycle failures there never propagate back into the engine.
func (e *Engine) Tick(ctx context.Context, sample Sample, now time.Time) Event {
	inRange := sample.DistanceCM <= e.thresholdCM

	if !inRange {
		if !e.wasInRange {
			return Event{Kind: EventNone, DistanceCM: sample.DistanceCM}
		}

		// Log CLEAR only on the in-range to out-of-range edge to avoid
		// spamming at the sample rate.
		e.wasInRange = false

		logger.Info(ctx, "CLEAR: out of range")

		return Event{Kind: EventClear, DistanceCM: sample.DistanceCM}
	}

	e.wasInRange = true

	if left := e.cooldownLeft(now); left > 0 {
		logger.InfoKV(ctx, "TRIGGER: on cooldown, not sending",
			"distance_cm", sample.DistanceCM,
			"cooldown_left", left.Round(time.Second).String())

		return Event{Kind: EventTriggerCooldown, DistanceCM: sample.DistanceCM, CooldownLeft: left}
	}

	if !e.dispatcher.Begin(ctx, sample) {
		// The previous capture+notify sequence has not finished yet.
		// Only possible when the cooldown is shorter than the dispatch
		// latency; skip without starting a new cooldown window.
		logger.DebugKV(ctx, "TRIGGER: dispatch already in flight, skipping",
			"distance_cm", sample.DistanceCM)

		return Event{Kind: EventTriggerSkipped, DistanceCM: sample.DistanceCM}
	}

	// Cooldown starts at dispatch initiation, regardless of whether the
	// notification is eventually delivered.
	e.lastSentAt = now

	logger.InfoKV(ctx, "TRIGGER: sending alert",
		"distance_cm", sample.DistanceCM,
		"cooldown_s", e.cooldown.Seconds())

	return Event{Kind: EventTriggerSend, DistanceCM: sample.DistanceCM}
}

// LastSentAt returns when the last alert dispatch was initiated.
// The zero time means no alert has been dispatched yet.
func (e *Engine) LastSentAt() time.Time {
	return e.lastSentAt
}

// InRange reports whether the most recent sample was inside the threshold.
func (e *Engine) InRange() bool {
	return e.wasInRange
}

// cooldownLeft returns the remaining cooldown at the given time,
// treating "never sent" as an elapsed cooldown.
func (e *Engine) cooldownLeft(now time.Time) time.Duration {
	if e.lastSentAt.IsZero() {
		return 0
	}

	left := e.cooldown - now.Sub(e.lastSentAt)
	if left < 0 {
		return 0
	}

	return left
}
