package processor

import (
	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/dsp"
)

// Normalise applies RMS-based loudness normalisation.
//
// The buffer is scaled so its RMS equals targetRMS, then, if the scaled peak
// exceeds ceiling, the whole buffer is scaled down again so the peak sits
// exactly at ceiling. A silent buffer is copied through unchanged.
//
// Returns the new waveform and the total linear gain applied.
func Normalise(w *audio.Waveform, targetRMS, ceiling float64) (*audio.Waveform, float64) {
	out := w.Clone()
	gain := 1.0

	if rms := dsp.RMS(out.Samples); rms > 0 {
		gain = targetRMS / rms
		scale(out.Samples, gain)
	}

	if peak := dsp.Peak(out.Samples); peak > ceiling {
		limit := ceiling / peak
		scale(out.Samples, limit)
		gain *= limit
	}

	return out, gain
}

func scale(x []float64, k float64) {
	for i := range x {
		x[i] *= k
	}
}
