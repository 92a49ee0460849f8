package sensor

import (
	"math"
	"sync/atomic"
)

// Synthetic generates a PPG-like waveform: a sharp systolic peak followed by
// a smaller dicrotic wave, repeating at a fixed heart rate.
type Synthetic struct {
	samplesPerBeat float64
	n              atomic.Uint64
}

// NewSynthetic creates a waveform at bpm beats per minute, sampled at rate Hz.
func NewSynthetic(bpm float64, rate int) *Synthetic {
	return &Synthetic{
		samplesPerBeat: float64(rate) * 60 / bpm,
	}
}

func (s *Synthetic) ReadRawSample() (uint16, error) {
	n := s.n.Add(1) - 1
	return s.At(n), nil
}

// At returns the waveform value of sample n.
func (s *Synthetic) At(n uint64) uint16 {
	phase := math.Mod(float64(n), s.samplesPerBeat) / s.samplesPerBeat

	systolic := math.Exp(-math.Pow((phase-0.2)/0.06, 2))
	dicrotic := math.Exp(-math.Pow((phase-0.5)/0.08, 2))
	v := 30000 + 14000*systolic + 3500*dicrotic

	return uint16(math.Round(v))
}

func (*Synthetic) Close() error {
	return nil
}
