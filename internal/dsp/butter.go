package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrInvalidCutoff is returned when a normalised cutoff is outside (0, 1).
var ErrInvalidCutoff = errors.New("cutoff must be between 0 and 1 (fraction of Nyquist)")

// FilterType selects the Butterworth response.
type FilterType int

const (
	LowPass FilterType = iota
	HighPass
)

func (t FilterType) String() string {
	if t == HighPass {
		return "highpass"
	}
	return "lowpass"
}

// Butterworth designs a digital Butterworth filter of the given order.
// wn is the cutoff as a fraction of the Nyquist frequency. The analog
// prototype is frequency-transformed, prewarped and mapped through the
// bilinear transform, and the result is returned as transfer-function
// coefficients (b, a) with a[0] == 1.
func Butterworth(order int, wn float64, kind FilterType) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("filter order %d must be positive", order)
	}
	if !(wn > 0 && wn < 1) {
		return nil, nil, fmt.Errorf("%s cutoff %g: %w", kind, wn, ErrInvalidCutoff)
	}

	// analog prototype: poles on the left half of the unit circle, no zeros
	poles := make([]complex128, 0, order)
	for m := -order + 1; m < order; m += 2 {
		poles = append(poles, -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*order))))
	}

	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*wn/fs)

	var zeros []complex128
	gain := 1.0
	switch kind {
	case HighPass:
		zeros, poles, gain = lowToHigh(poles, warped)
	default:
		zeros, poles, gain = lowToLow(poles, warped)
	}

	zeros, poles, gain = bilinear(zeros, poles, gain, fs)

	b = realPoly(zeros, gain)
	a = realPoly(poles, 1)
	return b, a, nil
}

// lowToLow scales a unity-cutoff prototype to cutoff wo.
func lowToLow(p []complex128, wo float64) ([]complex128, []complex128, float64) {
	out := make([]complex128, len(p))
	for i, v := range p {
		out[i] = v * complex(wo, 0)
	}
	return nil, out, math.Pow(wo, float64(len(p)))
}

// lowToHigh maps a zero-free prototype to a highpass at wo, placing one zero
// at the origin per pole.
func lowToHigh(p []complex128, wo float64) ([]complex128, []complex128, float64) {
	out := make([]complex128, len(p))
	prod := complex(1, 0)
	for i, v := range p {
		out[i] = complex(wo, 0) / v
		prod *= -v
	}
	zeros := make([]complex128, len(p))
	return zeros, out, real(1 / prod)
}

// bilinear maps analog zeros/poles onto the z-plane. Any excess poles over
// zeros gain a matching zero at Nyquist (z = -1).
func bilinear(z, p []complex128, k, fs float64) ([]complex128, []complex128, float64) {
	fs2 := complex(2*fs, 0)
	zd := make([]complex128, 0, len(p))
	num := complex(1, 0)
	for _, v := range z {
		zd = append(zd, (fs2+v)/(fs2-v))
		num *= fs2 - v
	}
	pd := make([]complex128, len(p))
	den := complex(1, 0)
	for i, v := range p {
		pd[i] = (fs2 + v) / (fs2 - v)
		den *= fs2 - v
	}
	for len(zd) < len(pd) {
		zd = append(zd, -1)
	}
	return zd, pd, k * real(num/den)
}

// realPoly expands prod(x - r) scaled by gain and keeps the real parts.
func realPoly(roots []complex128, gain float64) []float64 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v) * gain
	}
	return out
}
