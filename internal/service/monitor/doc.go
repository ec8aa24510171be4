// Package monitor owns the sampling loop: it acquires the sensor, drives
// the detection engine once per interval and hands triggered samples to a
// single-flight capture+notify dispatcher so a slow camera or webhook
// never stalls the sampling cadence.
package monitor
