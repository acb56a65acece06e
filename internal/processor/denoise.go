package processor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/dsp"
)

// ErrDenoiseConfig is returned when the mask smoothing window collapses to
// less than one bin or frame at the file's sample rate.
var ErrDenoiseConfig = errors.New("noise suppressor smoothing window too small for sample rate")

// machineEps keeps log10 finite on empty bins.
const machineEps = 2.220446049250313e-16

// DefaultDenoiseChunk is the number of samples filtered per pass.
const DefaultDenoiseChunk = 600000

// DenoiseParams configures stationary spectral gating.
type DenoiseParams struct {
	NFFT         int
	Hop          int
	PropDecrease float64
	NStd         float64
	FreqSmoothHz float64
	TimeSmoothMs float64
	TopDB        float64
	ChunkSize    int // samples per pass, rounded up to a whole hop; 0 filters the file at once
}

// Denoise removes stationary background noise.
//
// The noise profile is taken from the signal itself: for every frequency bin
// the mean and standard deviation of its dB level over time give a threshold
// of mean + NStd*std. Time-frequency cells above the threshold are kept, the
// binary mask is smoothed with a triangular kernel spanning FreqSmoothHz by
// TimeSmoothMs, and cells below it are attenuated by PropDecrease.
//
// Long files are analysed and filtered ChunkSize samples at a time, each
// chunk padded with enough neighbouring audio that its frames and mask match
// a whole-file pass. The profile always covers the whole file.
func Denoise(w *audio.Waveform, p DenoiseParams) (*audio.Waveform, error) {
	sr := float64(w.SampleRate)
	if sr <= 0 {
		return nil, fmt.Errorf("sample rate %d: %w", w.SampleRate, ErrDenoiseConfig)
	}
	gradFreq := int(p.FreqSmoothHz / (sr / float64(p.NFFT/2)))
	gradTime := int(p.TimeSmoothMs / (float64(p.Hop) / sr * 1000))
	if gradFreq < 1 || gradTime < 1 {
		return nil, fmt.Errorf("%d Hz gives %d frequency and %d time steps: %w",
			w.SampleRate, gradFreq, gradTime, ErrDenoiseConfig)
	}
	stft := dsp.STFTConfig{NFFT: p.NFFT, Hop: p.Hop}
	if err := stft.Validate(); err != nil {
		return nil, err
	}

	plan := chunkPlan(w.Len(), p, gradTime)
	var whole *dsp.Spectrogram
	analyse := func(c chunk) (*dsp.Spectrogram, error) {
		if whole != nil {
			return whole, nil
		}
		spec, err := dsp.STFT(w.Samples[c.lo:c.hi], stft)
		if err != nil {
			return nil, err
		}
		if len(plan) == 1 {
			whole = spec
		}
		return spec, nil
	}

	bins := p.NFFT/2 + 1
	floor := make([]float64, bins)
	for f := range floor {
		floor[f] = math.Inf(-1)
	}
	for _, c := range plan {
		spec, err := analyse(c)
		if err != nil {
			return nil, err
		}
		first, last := c.owned(spec.NumFrames(), p.Hop)
		for f, row := range spec.Bins {
			for _, v := range row[first:last] {
				floor[f] = math.Max(floor[f], cellDecibels(v))
			}
		}
	}
	for f := range floor {
		floor[f] -= p.TopDB
	}

	profile := make([]binStats, bins)
	var db []float64
	for _, c := range plan {
		spec, err := analyse(c)
		if err != nil {
			return nil, err
		}
		first, last := c.owned(spec.NumFrames(), p.Hop)
		for f, row := range spec.Bins {
			db = binDecibels(db[:0], row[first:last], floor[f])
			mean, std := stat.PopMeanStdDev(db, nil)
			profile[f].merge(len(db), mean, std*std)
		}
	}
	thresh := make([]float64, bins)
	for f, b := range profile {
		thresh[f] = b.mean + p.NStd*math.Sqrt(b.variance())
	}

	out := make([]float64, w.Len())
	attenuation := 1 - p.PropDecrease
	for _, c := range plan {
		spec, err := analyse(c)
		if err != nil {
			return nil, err
		}
		mask := make([][]float64, bins)
		for f, row := range spec.Bins {
			db = binDecibels(db[:0], row, floor[f])
			mask[f] = make([]float64, len(row))
			for t, v := range db {
				if v > thresh[f] {
					mask[f][t] = 1
				}
			}
		}
		mask = smoothMask(mask, triangle(gradFreq), triangle(gradTime))
		for f, row := range spec.Bins {
			for t := range row {
				row[t] *= complex(mask[f][t]*p.PropDecrease+attenuation, 0)
			}
		}
		y := dsp.ISTFT(spec, c.hi-c.lo)
		copy(out[c.from:c.to], y[c.from-c.lo:c.to-c.lo])
	}

	return w.WithSamples(out), nil
}

// chunk is one pass of the denoiser: the signal is read from lo to hi and
// the result kept from from to to.
type chunk struct {
	lo, hi   int
	from, to int
	final    bool
}

// owned returns the frame range whose centres fall inside the kept span.
func (c chunk) owned(frames, hop int) (int, int) {
	first := (c.from - c.lo) / hop
	if c.final {
		return first, frames
	}
	return first, (c.to - c.lo) / hop
}

// chunkPlan splits n samples into hop-aligned chunks. The padding covers a
// full frame plus the time smoothing span so no kept sample sees a chunk edge.
func chunkPlan(n int, p DenoiseParams, gradTime int) []chunk {
	size := p.ChunkSize
	if size <= 0 || size >= n {
		return []chunk{{lo: 0, hi: n, from: 0, to: n, final: true}}
	}
	size = roundUp(max(size, p.NFFT), p.Hop)
	pad := roundUp(max(size/20, p.NFFT+(gradTime+1)*p.Hop), p.Hop)

	var plan []chunk
	for from := 0; from < n; from += size {
		to := min(from+size, n)
		plan = append(plan, chunk{
			lo:    max(from-pad, 0),
			hi:    min(to+pad, n),
			from:  from,
			to:    to,
			final: to == n,
		})
	}
	return plan
}

func roundUp(n, step int) int {
	return (n + step - 1) / step * step
}

// binStats pools per-chunk population statistics for one frequency bin.
type binStats struct {
	n    int
	mean float64
	m2   float64 // sum of squared deviations
}

func (b *binStats) merge(n int, mean, variance float64) {
	if n == 0 {
		return
	}
	total := b.n + n
	delta := mean - b.mean
	b.m2 += variance*float64(n) + delta*delta*float64(b.n)*float64(n)/float64(total)
	b.mean += delta * float64(n) / float64(total)
	b.n = total
}

func (b binStats) variance() float64 {
	if b.n == 0 {
		return 0
	}
	return b.m2 / float64(b.n)
}

func cellDecibels(c complex128) float64 {
	return 20 * math.Log10(math.Hypot(real(c), imag(c))+machineEps)
}

// binDecibels appends the dB level of every cell in row to dst, floored at
// floor.
func binDecibels(dst []float64, row []complex128, floor float64) []float64 {
	for _, c := range row {
		dst = append(dst, math.Max(cellDecibels(c), floor))
	}
	return dst
}

// triangle returns a unit-sum triangular kernel of width 2n+1 whose taps fall
// linearly from the centre to 1/(n+1) at the edges.
func triangle(n int) []float64 {
	k := make([]float64, 2*n+1)
	var sum float64
	for i := range k {
		d := math.Abs(float64(i - n))
		k[i] = 1 - d/float64(n+1)
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// smoothMask convolves the mask with the outer product of kf (frequency) and
// kt (time), keeping the input's shape and treating cells outside as zero.
// The kernel is separable so the two passes run independently.
func smoothMask(mask [][]float64, kf, kt []float64) [][]float64 {
	bins := len(mask)
	if bins == 0 {
		return mask
	}
	frames := len(mask[0])

	// time pass
	tmp := make([][]float64, bins)
	ht := len(kt) / 2
	for f := 0; f < bins; f++ {
		tmp[f] = make([]float64, frames)
		for t := 0; t < frames; t++ {
			var acc float64
			for k, c := range kt {
				if j := t + k - ht; j >= 0 && j < frames {
					acc += c * mask[f][j]
				}
			}
			tmp[f][t] = acc
		}
	}

	// frequency pass
	out := make([][]float64, bins)
	hf := len(kf) / 2
	for f := 0; f < bins; f++ {
		out[f] = make([]float64, frames)
		for k, c := range kf {
			j := f + k - hf
			if j < 0 || j >= bins {
				continue
			}
			for t := 0; t < frames; t++ {
				out[f][t] += c * tmp[j][t]
			}
		}
	}
	return out
}
