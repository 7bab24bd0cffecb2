package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm16(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

// square returns a constant-amplitude chunk whose RMS is amp/32768.
func square(amp int16, n int) []byte {
	s := make([]int16, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = amp
		} else {
			s[i] = -amp
		}
	}
	return pcm16(s...)
}

func TestRMS16(t *testing.T) {
	assert.Zero(t, RMS16(nil))
	assert.Zero(t, RMS16(pcm16(0, 0, 0)))
	assert.InDelta(t, 0.5, RMS16(square(16384, 64)), 1e-9)
	assert.InDelta(t, 1.0, RMS16(pcm16(-32768)), 1e-9)
}

func TestLevelFromRMS(t *testing.T) {
	tests := []struct {
		rms  float64
		want float64
	}{
		{0, 0},
		{-1, 0},
		{math.NaN(), 0},
		{0.0001, 0},       // -80 dBFS
		{0.001, 0},        // -60 dBFS
		{0.01, 100.0 / 3}, // -40 dBFS
		{0.1, 200.0 / 3},  // -20 dBFS
		{1, 100},
		{2, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, LevelFromRMS(tt.rms, -60), 1e-9, "rms %v", tt.rms)
	}
}

func TestMeter_Smooths(t *testing.T) {
	m := NewMeter(DefaultMeterConfig())

	loud := square(32767, 256)
	got, err := m.ProcessPCM16(loud)
	require.NoError(t, err)
	assert.InDelta(t, 50, got, 0.01)

	got, _ = m.ProcessPCM16(loud)
	assert.InDelta(t, 75, got, 0.01)

	got, _ = m.ProcessPCM16(pcm16(0, 0))
	assert.InDelta(t, 37.5, got, 0.01)
	assert.Equal(t, got, m.Level())

	m.Reset()
	assert.Zero(t, m.Level())
}

func TestMeter_OddChunk(t *testing.T) {
	m := NewMeter(MeterConfig{FloorDB: -60, Smoothing: 0})
	level, err := m.ProcessPCM16(append(square(32767, 4), 0x01))

	assert.ErrorIs(t, err, ErrOddLength)
	assert.InDelta(t, 100, level, 0.01)
}

func TestNewMeter_FixesBadConfig(t *testing.T) {
	m := NewMeter(MeterConfig{FloorDB: 10, Smoothing: 1})
	assert.Equal(t, DefaultMeterConfig(), m.cfg)
}
