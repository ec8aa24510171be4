// Package sensor abstracts the range sensor behind the RangeSource
// interface and provides ordered backend auto-selection: the GPIO-wired
// HC-SR04, a UART ultrasonic rangefinder, and a simulated source for
// development without hardware.
package sensor
