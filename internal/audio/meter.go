// Package audio measures the loudness of PCM audio chunks for lip sync and
// speaking detection.
package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
)

// ErrOddLength is returned for PCM16 chunks that end mid-sample.
var ErrOddLength = errors.New("pcm16 chunk has odd length")

// MeterConfig holds loudness meter configuration
type MeterConfig struct {
	FloorDB   float64 // level 0 at and below this dBFS, default -60
	Smoothing float64 // weight of the previous level in [0,1), default 0.5
}

func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		FloorDB:   -60,
		Smoothing: 0.5,
	}
}

// Meter turns raw audio chunks into a smoothed 0-100 loudness level, the
// unit the rig's lip sync expects.
type Meter struct {
	cfg MeterConfig

	mu    sync.Mutex
	level float64
}

func NewMeter(cfg MeterConfig) *Meter {
	if cfg.FloorDB >= 0 {
		cfg.FloorDB = DefaultMeterConfig().FloorDB
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		cfg.Smoothing = DefaultMeterConfig().Smoothing
	}
	return &Meter{cfg: cfg}
}

// ProcessPCM16 measures a little-endian signed 16-bit chunk and returns the
// smoothed level. A trailing odd byte is ignored and reported.
func (m *Meter) ProcessPCM16(chunk []byte) (float64, error) {
	level := LevelFromRMS(RMS16(chunk), m.cfg.FloorDB)

	m.mu.Lock()
	m.level = m.cfg.Smoothing*m.level + (1-m.cfg.Smoothing)*level
	out := m.level
	m.mu.Unlock()

	if len(chunk)%2 != 0 {
		return out, ErrOddLength
	}
	return out, nil
}

// Level returns the last smoothed level.
func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = 0
}

// RMS16 returns the RMS of a PCM16 chunk normalised to full scale 1.
func RMS16(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(chunk[2*i:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// LevelFromRMS maps an RMS amplitude onto 0-100 over [floorDB, 0] dBFS.
func LevelFromRMS(rms, floorDB float64) float64 {
	if rms <= 0 || math.IsNaN(rms) {
		return 0
	}
	db := 20 * math.Log10(rms)
	switch {
	case db <= floorDB:
		return 0
	case db >= 0:
		return 100
	}
	return (db - floorDB) / -floorDB * 100
}
