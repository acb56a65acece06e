package processor

import (
	"math"

	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/dsp"
)

// noiseFloorWindowMs is the block length used for the noise floor estimate.
const noiseFloorWindowMs = 50

// humHarmonics is how many multiples of the mains frequency are checked.
const humHarmonics = 3

// Measurements holds level statistics for a waveform at one point in the pipeline
type Measurements struct {
	Duration   float64 // seconds
	RMSLevel   float64 // dBFS
	PeakLevel  float64 // dBFS
	NoiseFloor float64 // dBFS, 10th percentile of 50 ms block RMS
	HumLevel   float64 // dBFS, strongest of the first mains harmonics
	HumFreq    float64 // Hz, the harmonic HumLevel was measured at
}

// AnalyzeWaveform measures w. mainsHz selects the hum fundamental (50 or 60).
func AnalyzeWaveform(w *audio.Waveform, mainsHz int) *Measurements {
	m := &Measurements{
		Duration:   w.Seconds(),
		RMSLevel:   dsp.LinearToDb(dsp.RMS(w.Samples)),
		PeakLevel:  dsp.LinearToDb(dsp.Peak(w.Samples)),
		NoiseFloor: noiseFloor(w),
		HumLevel:   dsp.SilenceFloorDB,
	}

	for h := 1; h <= humHarmonics && mainsHz > 0; h++ {
		freq := float64(h * mainsHz)
		if level := dsp.ToneLevel(w.Samples, w.SampleRate, freq); level > m.HumLevel {
			m.HumLevel = level
			m.HumFreq = freq
		}
	}
	return m
}

// noiseFloor estimates the background level from the quietest blocks.
func noiseFloor(w *audio.Waveform) float64 {
	size := w.Millis(noiseFloorWindowMs)
	if size < 1 || w.Len() < size {
		return dsp.LinearToDb(dsp.RMS(w.Samples))
	}
	levels := make([]float64, 0, w.Len()/size)
	for start := 0; start+size <= w.Len(); start += size {
		levels = append(levels, dsp.RMS(w.Samples[start:start+size]))
	}
	floor := dsp.Percentile(levels, 10)
	if math.IsNaN(floor) {
		return dsp.SilenceFloorDB
	}
	return dsp.LinearToDb(floor)
}
