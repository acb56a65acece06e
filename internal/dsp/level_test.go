package dsp

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	values := make([]float64, 1000)
	for i := range values {
		values[999-i] = float64(i)
	}
	got := Percentile(values, 10)
	if got < 98 || got > 101 {
		t.Errorf("Percentile(10) = %g, want about 99", got)
	}
	if values[0] != 999 {
		t.Error("Percentile reordered its input")
	}
	for _, tt := range []struct {
		values []float64
		p      float64
		want   float64
	}{
		{[]float64{4, 1, 3, 2}, 10, 1.3},
		{[]float64{4, 1, 3, 2}, 50, 2.5},
		{[]float64{4, 1, 3, 2}, 0, 1},
		{[]float64{4, 1, 3, 2}, 100, 4},
		{[]float64{10, 20, 30, 40, 50}, 25, 20},
		{[]float64{7}, 90, 7},
	} {
		if got := Percentile(tt.values, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v, %g) = %g, want %g", tt.values, tt.p, got, tt.want)
		}
	}
	if !math.IsNaN(Percentile(nil, 10)) {
		t.Error("Percentile(nil) should be NaN")
	}
}

func TestLevels(t *testing.T) {
	x := []float64{0.5, -0.5, 0.5, -0.5}
	if got := RMS(x); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("RMS = %g", got)
	}
	if got := Peak([]float64{0.1, -0.9, 0.3}); got != 0.9 {
		t.Errorf("Peak = %g", got)
	}
	if RMS(nil) != 0 {
		t.Error("RMS(nil) != 0")
	}
	if got := LinearToDb(0); got != SilenceFloorDB {
		t.Errorf("LinearToDb(0) = %g", got)
	}
	if got := DbToLinear(-40); math.Abs(got-0.01) > 1e-12 {
		t.Errorf("DbToLinear(-40) = %g", got)
	}
}

func TestToneLevel(t *testing.T) {
	const sr = 16000
	x := make([]float64, sr)
	for i := range x {
		x[i] = 0.1 * math.Sin(2*math.Pi*50*float64(i)/sr)
	}
	if got := ToneLevel(x, sr, 50); math.Abs(got-(-20)) > 0.1 {
		t.Errorf("ToneLevel(50 Hz) = %.2f dB, want -20", got)
	}
	if got := ToneLevel(x, sr, 1000); got > -60 {
		t.Errorf("ToneLevel(1000 Hz) = %.2f dB, want well below the tone", got)
	}
	if got := ToneLevel(x, sr, 9000); got != SilenceFloorDB {
		t.Errorf("above Nyquist = %g", got)
	}
}
