// Package dsp holds the signal-processing primitives shared by the cleaning
// stages: short-time Fourier transforms, IIR filter design and zero-phase
// filtering, and a handful of level measurements.
package dsp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// STFTConfig describes the analysis frame.
type STFTConfig struct {
	NFFT int // frame and window length
	Hop  int // samples between frame starts
}

// Spectrogram is a one-sided complex STFT laid out as Bins[frequency][frame].
type Spectrogram struct {
	Bins   [][]complex128
	Config STFTConfig
}

// NumBins returns the number of frequency rows (NFFT/2 + 1).
func (s *Spectrogram) NumBins() int { return len(s.Bins) }

// NumFrames returns the number of time columns.
func (s *Spectrogram) NumFrames() int {
	if len(s.Bins) == 0 {
		return 0
	}
	return len(s.Bins[0])
}

// HannWindow returns a periodic Hann window of length n.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Validate reports a frame length that is odd or too short, or a hop outside
// (0, NFFT].
func (c STFTConfig) Validate() error {
	if c.NFFT < 2 || c.NFFT%2 != 0 {
		return fmt.Errorf("frame length %d must be even and at least 2", c.NFFT)
	}
	if c.Hop < 1 || c.Hop > c.NFFT {
		return fmt.Errorf("hop %d out of range for frame length %d", c.Hop, c.NFFT)
	}
	return nil
}

// STFT computes a centred short-time Fourier transform. The signal is padded
// with NFFT/2 zeros on each side, giving 1 + len(x)/Hop frames.
func STFT(x []float64, cfg STFTConfig) (*Spectrogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pad := cfg.NFFT / 2
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)

	frames := 1 + len(x)/cfg.Hop
	bins := cfg.NFFT/2 + 1

	spec := &Spectrogram{Bins: make([][]complex128, bins), Config: cfg}
	for f := range spec.Bins {
		spec.Bins[f] = make([]complex128, frames)
	}

	fft := fourier.NewFFT(cfg.NFFT)
	window := HannWindow(cfg.NFFT)
	frame := make([]float64, cfg.NFFT)
	coeffs := make([]complex128, bins)

	for t := 0; t < frames; t++ {
		start := t * cfg.Hop
		for i := range frame {
			frame[i] = padded[start+i] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for f := 0; f < bins; f++ {
			spec.Bins[f][t] = coeffs[f]
		}
	}
	return spec, nil
}

// ISTFT inverts a spectrogram by weighted overlap-add, normalising by the
// summed squared window. With length <= 0 the output spans Hop*(frames-1)
// samples; otherwise it is trimmed or zero-padded to exactly length.
func ISTFT(spec *Spectrogram, length int) []float64 {
	cfg := spec.Config
	frames := spec.NumFrames()
	if frames == 0 {
		if length > 0 {
			return make([]float64, length)
		}
		return nil
	}

	total := cfg.NFFT + cfg.Hop*(frames-1)
	y := make([]float64, total)
	norm := make([]float64, total)

	fft := fourier.NewFFT(cfg.NFFT)
	window := HannWindow(cfg.NFFT)
	coeffs := make([]complex128, spec.NumBins())
	frame := make([]float64, cfg.NFFT)
	scale := 1 / float64(cfg.NFFT)

	for t := 0; t < frames; t++ {
		for f := range coeffs {
			coeffs[f] = spec.Bins[f][t]
		}
		frame = fft.Sequence(frame, coeffs)
		start := t * cfg.Hop
		for i, v := range frame {
			y[start+i] += v * scale * window[i]
			norm[start+i] += window[i] * window[i]
		}
	}

	tiny := math.SmallestNonzeroFloat64
	for i := range y {
		if norm[i] > tiny {
			y[i] /= norm[i]
		}
	}

	start := cfg.NFFT / 2
	if length <= 0 {
		return y[start : total-start]
	}
	out := make([]float64, length)
	if start < total {
		copy(out, y[start:])
	}
	return out
}

// Magnitudes returns |S| for every bin, laid out like the spectrogram.
func (s *Spectrogram) Magnitudes() [][]float64 {
	mags := make([][]float64, len(s.Bins))
	for f, row := range s.Bins {
		mags[f] = make([]float64, len(row))
		for t, c := range row {
			mags[f][t] = cmplxAbs(c)
		}
	}
	return mags
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
