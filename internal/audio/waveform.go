package audio

import "time"

// Waveform is a mono buffer of samples nominally in [-1, 1].
// SampleRate never changes as a waveform moves through the pipeline.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples.
func (w *Waveform) Len() int {
	return len(w.Samples)
}

// Duration returns the playback length.
func (w *Waveform) Duration() time.Duration {
	return durationOf(len(w.Samples), w.SampleRate)
}

// Seconds returns the playback length in seconds.
func (w *Waveform) Seconds() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Clone returns a deep copy.
func (w *Waveform) Clone() *Waveform {
	out := make([]float64, len(w.Samples))
	copy(out, w.Samples)
	return &Waveform{Samples: out, SampleRate: w.SampleRate}
}

// WithSamples returns a waveform at the same rate carrying the given buffer.
func (w *Waveform) WithSamples(samples []float64) *Waveform {
	return &Waveform{Samples: samples, SampleRate: w.SampleRate}
}

// Millis converts a duration in milliseconds to a sample count at the waveform's rate.
func (w *Waveform) Millis(ms int) int {
	return ms * w.SampleRate / 1000
}
