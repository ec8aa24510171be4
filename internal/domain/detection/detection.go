package detection

import "time"

// Sample is a single distance reading produced by the range sensor.
// It is consumed by exactly one engine tick.
type Sample struct {
	// DistanceCM is the measured distance in centimeters.
	DistanceCM float64
	// Timestamp is when the reading was taken.
	Timestamp time.Time
}

// EventKind classifies the decision the engine made for one tick.
type EventKind string

const (
	// EventNone means the sample was out of range with no pending transition.
	EventNone EventKind = ""
	// EventTriggerSend means the sample was in range, cooldown had elapsed
	// and an alert dispatch was initiated.
	EventTriggerSend EventKind = "trigger-send"
	// EventTriggerCooldown means the sample was in range but a previous
	// alert is still cooling down, so nothing was dispatched.
	EventTriggerCooldown EventKind = "trigger-cooldown"
	// EventTriggerSkipped means the sample warranted an alert but the
	// previous capture+notify sequence is still in flight.
	EventTriggerSkipped EventKind = "trigger-skipped"
	// EventClear means the sample crossed from in range to out of range.
	EventClear EventKind = "clear"
)

// Event describes the outcome of one engine tick.
type Event struct {
	// Kind is the decision class for the tick.
	Kind EventKind
	// DistanceCM echoes the sample distance for logging and status.
	DistanceCM float64
	// CooldownLeft is the remaining cooldown for trigger-cooldown events.
	CooldownLeft time.Duration
}
