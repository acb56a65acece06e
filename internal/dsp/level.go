package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SilenceFloorDB is reported for buffers with no energy.
const SilenceFloorDB = -120.0

// DbToLinear converts decibels to a linear amplitude ratio.
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDb converts a linear amplitude ratio to decibels, flooring at SilenceFloorDB.
func LinearToDb(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return SilenceFloorDB
	}
	return math.Max(20*math.Log10(v), SilenceFloorDB)
}

// RMS returns sqrt(mean(x^2)), or 0 for an empty buffer.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Peak returns the largest absolute sample value.
func Peak(x []float64) float64 {
	var p float64
	for _, v := range x {
		if a := math.Abs(v); a > p {
			p = a
		}
	}
	return p
}

// Percentile returns the p-th percentile (0-100) of values, interpolating
// between closest ranks at (n-1)*p/100 the way numpy's default does. values
// is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	// stat.LinInterp interpolates at rank n*q, so shift q onto the
	// (n-1)*p+1 rank.
	n := float64(len(sorted))
	q := ((n-1)*math.Min(math.Max(p, 0), 100)/100 + 1) / n
	return stat.Quantile(math.Min(q, 1), stat.LinInterp, sorted, nil)
}

// ToneLevel measures the amplitude of a single frequency component with the
// Goertzel algorithm, in dB relative to a full-scale sine.
func ToneLevel(x []float64, sampleRate int, freq float64) float64 {
	n := len(x)
	if n == 0 || sampleRate <= 0 || freq <= 0 || freq >= float64(sampleRate)/2 {
		return SilenceFloorDB
	}
	w := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(w)
	var s1, s2 float64
	for _, v := range x {
		s0 := v + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	re := s1 - s2*math.Cos(w)
	im := s2 * math.Sin(w)
	amp := 2 * math.Hypot(re, im) / float64(n)
	return LinearToDb(amp)
}
