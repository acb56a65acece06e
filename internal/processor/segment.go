package processor

import (
	"fmt"
	"math"

	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/dsp"
)

// GapPolicy decides where synthetic silence goes when stitching chunks.
type GapPolicy string

const (
	// GapBetweenKept inserts a gap only between two consecutive kept chunks.
	GapBetweenKept GapPolicy = "kept"
	// GapAfterOriginal inserts a gap after every kept chunk that was not the
	// last detected chunk, so a discarded final chunk leaves a trailing gap.
	GapAfterOriginal GapPolicy = "original"
)

// ParseGapPolicy validates a policy name. The empty string selects GapBetweenKept.
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch GapPolicy(s) {
	case "", GapBetweenKept:
		return GapBetweenKept, nil
	case GapAfterOriginal:
		return GapAfterOriginal, nil
	}
	return "", fmt.Errorf("unknown gap policy %q (want %q or %q)", s, GapBetweenKept, GapAfterOriginal)
}

// SegmentParams configures silence detection and stitching. Durations are milliseconds.
type SegmentParams struct {
	MinSilenceMs    int
	SilenceThreshDB float64
	KeepSilenceMs   int
	SeekStepMs      int
	MinChunkMs      int
	GapMs           int
	Policy          GapPolicy
}

// Range is a half-open millisecond interval [StartMs, EndMs).
type Range struct {
	StartMs int
	EndMs   int
}

// Millis returns the interval length.
func (r Range) Millis() int { return r.EndMs - r.StartMs }

// Chunk is a contiguous piece of a track bounded by detected silence.
type Chunk struct {
	Range
	Samples []float64
}

// SegmentResult describes the segmenter's output for one track.
type SegmentResult struct {
	Waveform  *audio.Waveform
	Chunks    int  // detected after splitting
	Kept      int  // longer than MinChunkMs
	Gaps      int  // synthetic gaps inserted
	Stitched  bool // false when the input track was returned as-is
	NoSpeech  bool // every window was below the silence threshold
	Recovered bool // segmentation failed and the input track was returned
	Err       error
}

// trackMillis is the track length rounded to the nearest millisecond.
func trackMillis(w *audio.Waveform) int {
	if w.SampleRate <= 0 {
		return 0
	}
	return int(math.Round(float64(w.Len()) * 1000 / float64(w.SampleRate)))
}

// msToSample maps a millisecond offset to a sample index, clamped to the track.
func msToSample(w *audio.Waveform, ms int) int {
	i := ms * w.SampleRate / 1000
	return min(max(i, 0), w.Len())
}

// DetectSilence finds silent ranges at least minSilenceMs long.
//
// A window of minSilenceMs slides across the track in seekStepMs steps and is
// silent when its RMS is at or below threshDB relative to full scale.
// Overlapping silent windows merge into one range.
func DetectSilence(w *audio.Waveform, minSilenceMs int, threshDB float64, seekStepMs int) ([]Range, error) {
	if w.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", w.SampleRate)
	}
	if minSilenceMs < 1 || seekStepMs < 1 {
		return nil, fmt.Errorf("silence length %d ms and seek step %d ms must be positive", minSilenceMs, seekStepMs)
	}

	length := trackMillis(w)
	if length < minSilenceMs {
		return nil, nil
	}
	threshold := dsp.DbToLinear(threshDB)

	// prefix sums of squares give each window's energy in O(1)
	energy := make([]float64, w.Len()+1)
	for i, v := range w.Samples {
		energy[i+1] = energy[i] + v*v
	}
	silent := func(startMs int) bool {
		lo, hi := msToSample(w, startMs), msToSample(w, startMs+minSilenceMs)
		if hi <= lo {
			return true
		}
		return math.Sqrt((energy[hi]-energy[lo])/float64(hi-lo)) <= threshold
	}

	last := length - minSilenceMs
	var starts []int
	for i := 0; i <= last; i += seekStepMs {
		if silent(i) {
			starts = append(starts, i)
		}
	}
	if last%seekStepMs != 0 && silent(last) {
		starts = append(starts, last)
	}
	if len(starts) == 0 {
		return nil, nil
	}

	var ranges []Range
	prev := starts[0]
	current := prev
	for _, s := range starts[1:] {
		continuous := s == prev+seekStepMs
		hasGap := s > prev+minSilenceMs
		if !continuous && hasGap {
			ranges = append(ranges, Range{current, prev + minSilenceMs})
			current = s
		}
		prev = s
	}
	return append(ranges, Range{current, prev + minSilenceMs}), nil
}

// DetectNonsilent returns the ranges between silences. A track without
// silence is one range; a track that is silent throughout has none.
func DetectNonsilent(w *audio.Waveform, minSilenceMs int, threshDB float64, seekStepMs int) ([]Range, error) {
	silences, err := DetectSilence(w, minSilenceMs, threshDB, seekStepMs)
	if err != nil {
		return nil, err
	}
	length := trackMillis(w)
	if len(silences) == 0 {
		return []Range{{0, length}}, nil
	}
	if silences[0].StartMs == 0 && silences[0].EndMs == length {
		return nil, nil
	}

	var ranges []Range
	prevEnd := 0
	for _, s := range silences {
		ranges = append(ranges, Range{prevEnd, s.StartMs})
		prevEnd = s.EndMs
	}
	if silences[len(silences)-1].EndMs != length {
		ranges = append(ranges, Range{prevEnd, length})
	}
	if ranges[0] == (Range{0, 0}) {
		ranges = ranges[1:]
	}
	return ranges, nil
}

// SplitOnSilence cuts the track into chunks around the non-silent ranges,
// padding each side by KeepSilenceMs. Padding from neighbouring chunks that
// would overlap meets at the midpoint instead.
func SplitOnSilence(w *audio.Waveform, p SegmentParams) ([]Chunk, error) {
	nonsilent, err := DetectNonsilent(w, p.MinSilenceMs, p.SilenceThreshDB, p.SeekStepMs)
	if err != nil {
		return nil, err
	}

	padded := make([]Range, len(nonsilent))
	for i, r := range nonsilent {
		padded[i] = Range{r.StartMs - p.KeepSilenceMs, r.EndMs + p.KeepSilenceMs}
	}
	for i := 0; i+1 < len(padded); i++ {
		if next := padded[i+1].StartMs; next < padded[i].EndMs {
			mid := (padded[i].EndMs + next) / 2
			padded[i].EndMs = mid
			padded[i+1].StartMs = mid
		}
	}

	length := trackMillis(w)
	chunks := make([]Chunk, 0, len(padded))
	for _, r := range padded {
		r = Range{max(r.StartMs, 0), min(r.EndMs, length)}
		lo, hi := msToSample(w, r.StartMs), msToSample(w, r.EndMs)
		chunks = append(chunks, Chunk{Range: r, Samples: w.Samples[lo:hi]})
	}
	return chunks, nil
}

// Stitch joins chunks longer than MinChunkMs with GapMs of silence placed
// according to the policy. With one chunk or none the input track is returned.
func Stitch(w *audio.Waveform, chunks []Chunk, p SegmentParams) *SegmentResult {
	res := &SegmentResult{Chunks: len(chunks), NoSpeech: len(chunks) == 0}
	if len(chunks) <= 1 {
		res.Waveform = w.Clone()
		res.Kept = len(chunks)
		return res
	}

	gap := make([]float64, w.Millis(p.GapMs))
	var out []float64
	lastKept := -1
	for i, c := range chunks {
		if c.Millis() <= p.MinChunkMs {
			continue
		}
		if p.Policy != GapAfterOriginal && lastKept >= 0 {
			out = append(out, gap...)
			res.Gaps++
		}
		out = append(out, c.Samples...)
		res.Kept++
		lastKept = i
		if p.Policy == GapAfterOriginal && i < len(chunks)-1 {
			out = append(out, gap...)
			res.Gaps++
		}
	}

	if out == nil {
		out = []float64{}
	}
	res.Waveform = w.WithSamples(out)
	res.Stitched = true
	return res
}

// Segment splits a track on silence and stitches the speech back together.
// If splitting fails the input track is returned with Recovered set.
func Segment(w *audio.Waveform, p SegmentParams) *SegmentResult {
	chunks, err := SplitOnSilence(w, p)
	if err != nil {
		return &SegmentResult{Waveform: w.Clone(), Recovered: true, Err: err}
	}
	return Stitch(w, chunks, p)
}

// SegmentFile reads the intermediate file at path and segments it. Failure to
// read the file is returned; failures after that fall back to the file's
// unmodified contents.
func SegmentFile(path string, p SegmentParams) (*SegmentResult, error) {
	w, _, err := audio.ReadWAV(path)
	if err != nil {
		return nil, fmt.Errorf("read intermediate: %w", err)
	}
	return Segment(w, p), nil
}
