// Package httpapi serves a small read-only HTTP surface (/healthz, /status)
// for inspecting the running monitor. It is off by default and meant for
// localhost or a trusted LAN; it exposes no mutating operations.
package httpapi
