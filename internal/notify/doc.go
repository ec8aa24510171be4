// Package notify delivers presence alerts to a Discord-compatible webhook.
//
// Delivery is best effort: requests are bounded by a timeout, failures are
// reported back as an Outcome for logging and never retried automatically.
package notify
