package dsp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrSignalTooShort is returned when a signal cannot be padded for zero-phase filtering.
var ErrSignalTooShort = errors.New("signal too short for zero-phase filtering")

// LFilter runs a direct-form II transposed IIR filter over x. zi, when
// non-nil, sets the initial delay-line state and must have max(len(a), len(b))-1 entries.
func LFilter(b, a, x, zi []float64) []float64 {
	n := max(len(a), len(b))
	bn := make([]float64, n)
	an := make([]float64, n)
	copy(bn, b)
	copy(an, a)
	a0 := an[0]
	for i := range bn {
		bn[i] /= a0
		an[i] /= a0
	}

	z := make([]float64, n-1)
	copy(z, zi)

	y := make([]float64, len(x))
	for i, xi := range x {
		var yi float64
		if n > 1 {
			yi = bn[0]*xi + z[0]
			for k := 0; k < n-2; k++ {
				z[k] = bn[k+1]*xi + z[k+1] - an[k+1]*yi
			}
			z[n-2] = bn[n-1]*xi - an[n-1]*yi
		} else {
			yi = bn[0] * xi
		}
		y[i] = yi
	}
	return y
}

// LFilterZI returns the delay-line state for which a unit step input
// produces a steady-state output from the first sample.
func LFilterZI(b, a []float64) ([]float64, error) {
	n := max(len(a), len(b))
	if n < 2 {
		return nil, nil
	}
	bn := make([]float64, n)
	an := make([]float64, n)
	copy(bn, b)
	copy(an, a)
	if an[0] == 0 {
		return nil, errors.New("leading denominator coefficient must be non-zero")
	}
	a0 := an[0]
	for i := range bn {
		bn[i] /= a0
		an[i] /= a0
	}

	m := n - 1
	// I - companion(a)^T
	lhs := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		lhs.Set(i, 0, an[i+1])
		if i+1 < m {
			lhs.Set(i, i+1, -1)
		}
		lhs.Set(i, i, lhs.At(i, i)+1)
	}
	rhs := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		rhs.SetVec(i, bn[i+1]-an[i+1]*bn[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(lhs, rhs); err != nil {
		return nil, fmt.Errorf("solve filter initial state: %w", err)
	}
	out := make([]float64, m)
	for i := range out {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

// PadLen is the odd-extension length used by FiltFilt.
func PadLen(b, a []float64) int {
	return 3 * max(len(a), len(b))
}

// FiltFilt applies the filter forward and then backward for zero phase
// distortion. The signal is extended by odd reflection at both ends and the
// filter state is initialised to the steady state for each edge sample.
func FiltFilt(b, a, x []float64) ([]float64, error) {
	padlen := PadLen(b, a)
	if len(x) <= padlen {
		return nil, fmt.Errorf("%d samples, need more than %d: %w", len(x), padlen, ErrSignalTooShort)
	}

	zi, err := LFilterZI(b, a)
	if err != nil {
		return nil, err
	}

	ext := oddExtend(x, padlen)

	y := LFilter(b, a, ext, scaled(zi, ext[0]))
	reverse(y)
	y = LFilter(b, a, y, scaled(zi, y[0]))
	reverse(y)

	return y[padlen : len(y)-padlen], nil
}

// oddExtend reflects n samples about each endpoint: 2*x[0]-x[n..1] before,
// 2*x[last]-x[last-1..last-n] after.
func oddExtend(x []float64, n int) []float64 {
	last := len(x) - 1
	out := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		out = append(out, 2*x[0]-x[i])
	}
	out = append(out, x...)
	for i := 1; i <= n; i++ {
		out = append(out, 2*x[last]-x[last-i])
	}
	return out
}

func scaled(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
