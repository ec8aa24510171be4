// Package capture takes still images through an ordered fallback chain of
// command-line camera tools (rpicam-still, libcamera-still, fswebcam).
//
// A capture attempt counts as successful only when the tool exits cleanly
// and the output file actually exists afterwards, because some of these
// tools exit zero without writing anything when the camera is missing.
package capture
