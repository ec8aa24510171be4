package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/oshokin/intruder-sentry/internal/config"
	"github.com/oshokin/intruder-sentry/internal/domain/detection"
)

const (
	// serialBaudRate matches US-100 style ultrasonic rangefinders in UART mode.
	serialBaudRate = 9600

	// serialReadTimeout bounds a single response read.
	serialReadTimeout = 200 * time.Millisecond

	// rangeRequest asks the rangefinder for one distance measurement.
	rangeRequest = 0x55

	// rangeFrameSize is the response length: distance in millimeters, big endian.
	rangeFrameSize = 2
)

var (
	// errShortFrame is returned when the rangefinder reply is truncated.
	errShortFrame = errors.New("short rangefinder frame")
	// errNoReading is returned when the rangefinder reports no measurement.
	errNoReading = errors.New("rangefinder reported no reading")
)

// serialRangefinder reads a UART ultrasonic rangefinder with the widespread
// request/response protocol: send one 0x55 byte, receive the distance in
// millimeters as two big-endian bytes.
type serialRangefinder struct {
	// port is the open UART device.
	port serial.Port
	// portName is kept for log output.
	portName string
	// maxDistanceCM caps readings at the configured reliable range.
	maxDistanceCM float64
	// mu serializes request/response exchanges on the port.
	mu sync.Mutex
}

// newSerialRangefinder opens the configured UART device.
func newSerialRangefinder(settings config.SensorSettings) (*serialRangefinder, error) {
	mode := &serial.Mode{
		BaudRate: serialBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(settings.SerialPort, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", settings.SerialPort, err)
	}

	if err = port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()

		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return &serialRangefinder{
		port:          port,
		portName:      settings.SerialPort,
		maxDistanceCM: settings.MaxDistanceM * 100,
	}, nil
}

// Read requests one measurement over the UART.
func (s *serialRangefinder) Read(ctx context.Context) (detection.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return detection.Sample{}, err
	}

	distanceCM, err := exchange(s.port)
	if err != nil {
		return detection.Sample{}, fmt.Errorf("read %s: %w", s.portName, err)
	}

	if distanceCM > s.maxDistanceCM {
		distanceCM = s.maxDistanceCM
	}

	return detection.Sample{DistanceCM: distanceCM, Timestamp: time.Now()}, nil
}

// Name identifies the backend for logs and status output.
func (s *serialRangefinder) Name() string {
	return "serial (" + s.portName + ")"
}

// Close releases the UART device.
func (s *serialRangefinder) Close() error {
	return s.port.Close()
}

// exchange performs one request/response round trip and decodes the frame.
// It is split out on io.ReadWriter so the protocol is testable without a port.
// The read loop caps its attempts because a timed-out serial read reports
// zero bytes without an error.
func exchange(port io.ReadWriter) (float64, error) {
	if _, err := port.Write([]byte{rangeRequest}); err != nil {
		return 0, fmt.Errorf("write request: %w", err)
	}

	var (
		frame = make([]byte, rangeFrameSize)
		total int
	)

	for attempts := 0; total < rangeFrameSize && attempts < rangeFrameSize+1; attempts++ {
		n, err := port.Read(frame[total:])
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read response: %w", err)
		}

		if n == 0 {
			break
		}

		total += n
	}

	if total < rangeFrameSize {
		return 0, errShortFrame
	}

	return decodeFrame(frame)
}

// decodeFrame converts the two-byte millimeter reply to centimeters.
// An all-ones frame is the sensor's "no echo" marker.
func decodeFrame(frame []byte) (float64, error) {
	if len(frame) < rangeFrameSize {
		return 0, errShortFrame
	}

	millimeters := uint16(frame[0])<<8 | uint16(frame[1])
	if millimeters == 0xFFFF {
		return 0, errNoReading
	}

	return float64(millimeters) / 10, nil
}
