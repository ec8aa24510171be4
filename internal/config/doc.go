// Package config defines the monitor settings and provides helpers to load,
// validate and save them in YAML format with environment overrides.
//
// The environment keys match the original deployment (INTRUDER_THRESHOLD_CM,
// INTRUDER_SAMPLE_S, INTRUDER_COOLDOWN, SEND_PHOTO, WEBHOOK_URL), so an
// existing systemd unit keeps working unchanged.
package config
