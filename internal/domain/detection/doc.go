// Package detection contains the presence-detection state machine.
//
// The Engine consumes distance samples and converts them into trigger,
// cooldown and clear decisions. It carries no clock and no goroutines of
// its own: the caller supplies the sample and the current time, which makes
// the policy fully testable with synthetic inputs.
package detection
