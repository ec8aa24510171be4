package sensor

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/intruder-sentry/internal/config"
)

// TestOpenSimBackend verifies the explicit sim backend opens without hardware.
func TestOpenSimBackend(t *testing.T) {
	t.Parallel()

	settings := config.Default().Sensor
	settings.Backend = "sim"

	source, err := Open(context.Background(), settings)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, source.Close()) })

	require.Equal(t, "sim", source.Name())
}

// TestOpenUnknownBackend verifies unknown backend names are rejected.
func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	settings := config.Default().Sensor
	settings.Backend = "telepathy"

	_, err := Open(context.Background(), settings)
	require.Error(t, err)
}

// TestSimulatedSweep verifies the simulated source stays within range and
// actually approaches the sensor during a sweep.
func TestSimulatedSweep(t *testing.T) {
	t.Parallel()

	settings := config.Default().Sensor
	source := newSimulated(settings)

	var sawNear, sawFar bool

	for i := 0; i < simStepsPerSweep*2; i++ {
		sample, err := source.Read(context.Background())
		require.NoError(t, err)
		require.GreaterOrEqual(t, sample.DistanceCM, simMinDistanceCM-0.001)
		require.LessOrEqual(t, sample.DistanceCM, settings.MaxDistanceM*100+0.001)

		if sample.DistanceCM < simMinDistanceCM+1 {
			sawNear = true
		}

		if sample.DistanceCM > settings.MaxDistanceM*100-1 {
			sawFar = true
		}
	}

	require.True(t, sawNear)
	require.True(t, sawFar)
}

// fakePort scripts a rangefinder reply for the serial protocol exchange.
type fakePort struct {
	reply *bytes.Reader
	wrote []byte
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.reply.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.wrote = append(p.wrote, b...)
	return len(b), nil
}

// TestSerialExchange verifies the request byte and millimeter decoding.
func TestSerialExchange(t *testing.T) {
	t.Parallel()

	// 0x01F4 = 500 mm = 50 cm.
	port := &fakePort{reply: bytes.NewReader([]byte{0x01, 0xF4})}

	distanceCM, err := exchange(port)
	require.NoError(t, err)
	require.InDelta(t, 50.0, distanceCM, 0.001)
	require.Equal(t, []byte{rangeRequest}, port.wrote)
}

// TestSerialExchangeShortReply verifies truncated frames are rejected.
func TestSerialExchangeShortReply(t *testing.T) {
	t.Parallel()

	port := &fakePort{reply: bytes.NewReader([]byte{0x01})}

	_, err := exchange(port)
	require.ErrorIs(t, err, errShortFrame)
}

// TestDecodeFrameNoReading verifies the sensor's no-echo marker maps to an error.
func TestDecodeFrameNoReading(t *testing.T) {
	t.Parallel()

	_, err := decodeFrame([]byte{0xFF, 0xFF})
	require.ErrorIs(t, err, errNoReading)
}
