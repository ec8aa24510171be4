// Package common holds shared service helpers: actor detection for the
// startup banner and the single-instance guard protecting the sensor from
// concurrent pollers.
package common
