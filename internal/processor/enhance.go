package processor

import (
	"fmt"
	"strings"

	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/dsp"
)

// EnhanceParams configures the spectral enhancer.
type EnhanceParams struct {
	HighpassEnabled bool
	HighpassFreq    float64
	HighpassOrder   int
	GateEnabled     bool
	GatePercentile  float64
	GateNFFT        int
	GateHop         int
}

// EnhanceReport describes what the enhancer did to one waveform.
type EnhanceReport struct {
	HighpassApplied bool
	HighpassCutoff  float64 // normalised to Nyquist
	GateApplied     bool
	GateThreshold   float64 // linear STFT magnitude
	GatedFraction   float64 // share of time-frequency cells zeroed
}

func (r EnhanceReport) String() string {
	var parts []string
	if r.HighpassApplied {
		parts = append(parts, fmt.Sprintf("high-pass wn=%.4f", r.HighpassCutoff))
	} else {
		parts = append(parts, "high-pass skipped")
	}
	if r.GateApplied {
		parts = append(parts, fmt.Sprintf("gated %.1f%%", r.GatedFraction*100))
	}
	return strings.Join(parts, ", ")
}

// Enhance removes low-frequency rumble and low-energy spectral content.
//
// Step one is a zero-phase Butterworth high-pass, skipped when the cutoff is
// not strictly below Nyquist (taken as the integer half of the sample rate).
// Step two zeroes every STFT cell whose magnitude is at or below the chosen
// percentile of all magnitudes and resynthesises. The output length is
// Hop*(frames-1) and can be shorter than the input.
//
// A signal too short for zero-phase padding is an error.
func Enhance(w *audio.Waveform, p EnhanceParams) (*audio.Waveform, EnhanceReport, error) {
	var report EnhanceReport
	samples := w.Samples

	if p.HighpassEnabled {
		nyquist := w.SampleRate / 2
		if nyquist > 0 {
			report.HighpassCutoff = p.HighpassFreq / float64(nyquist)
		}
		if nyquist > 0 && report.HighpassCutoff < 1 {
			b, a, err := dsp.Butterworth(p.HighpassOrder, report.HighpassCutoff, dsp.HighPass)
			if err != nil {
				return nil, report, fmt.Errorf("design high-pass: %w", err)
			}
			samples, err = dsp.FiltFilt(b, a, samples)
			if err != nil {
				return nil, report, fmt.Errorf("apply high-pass: %w", err)
			}
			report.HighpassApplied = true
		}
	}

	if p.GateEnabled {
		gated, threshold, fraction, err := spectralGate(samples, p.GatePercentile, dsp.STFTConfig{NFFT: p.GateNFFT, Hop: p.GateHop})
		if err != nil {
			return nil, report, fmt.Errorf("spectral gate: %w", err)
		}
		samples = gated
		report.GateApplied = true
		report.GateThreshold = threshold
		report.GatedFraction = fraction
	}

	if !report.HighpassApplied && !report.GateApplied {
		return w.Clone(), report, nil
	}
	return w.WithSamples(samples), report, nil
}

// spectralGate zeroes STFT cells with magnitude at or below the percentile of
// all cell magnitudes. Returns the resynthesised signal, the threshold and the
// fraction of cells zeroed.
func spectralGate(x []float64, percentile float64, cfg dsp.STFTConfig) ([]float64, float64, float64, error) {
	spec, err := dsp.STFT(x, cfg)
	if err != nil {
		return nil, 0, 0, err
	}
	mags := spec.Magnitudes()

	all := make([]float64, 0, spec.NumBins()*spec.NumFrames())
	for _, row := range mags {
		all = append(all, row...)
	}
	threshold := dsp.Percentile(all, percentile)

	zeroed := 0
	for f, row := range spec.Bins {
		for t := range row {
			if !(mags[f][t] > threshold) {
				row[t] = 0
				zeroed++
			}
		}
	}

	fraction := 0.0
	if len(all) > 0 {
		fraction = float64(zeroed) / float64(len(all))
	}
	return dsp.ISTFT(spec, 0), threshold, fraction, nil
}
