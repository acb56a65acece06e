// Package processor handles audio cleaning and segmentation
package processor

import (
	"fmt"

	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/dsp"
)

// StageID identifies a stage in the cleaning pipeline
type StageID string

// Stage identifiers, in pipeline order
const (
	StageDecode       StageID = "decode"       // WAV → mono float waveform
	StageNormalise    StageID = "normalise"    // RMS gain + clip guard
	StageDenoise      StageID = "denoise"      // stationary spectral gating (fail-open)
	StageEnhance      StageID = "enhance"      // 80 Hz Butterworth high-pass + percentile gate
	StageIntermediate StageID = "intermediate" // 16-bit hand-off file
	StageSegment      StageID = "segment"      // silence split + stitch (fail-open)
	StageEncode       StageID = "encode"       // final output file
)

// InMemoryOrder defines the chain run on the decoded waveform before the
// intermediate hand-off. Normalising first gives the noise estimate a
// consistent level to work from; the enhancer runs last because its gate
// threshold is relative to whatever energy remains.
var InMemoryOrder = []StageID{
	StageNormalise,
	StageDenoise,
	StageEnhance,
}

// stageFunc runs one in-memory stage. A returned error is fatal for the file;
// recoverable problems are reported through Outcome.Err instead.
type stageFunc func(*ChainConfig, *audio.Waveform) (Outcome, error)

var stageRunners = map[StageID]stageFunc{
	StageNormalise: (*ChainConfig).runNormalise,
	StageDenoise:   (*ChainConfig).runDenoise,
	StageEnhance:   (*ChainConfig).runEnhance,
}

// ChainConfig holds configuration for the cleaning pipeline
type ChainConfig struct {
	// Normaliser - RMS-based loudness approximation
	NormaliseEnabled bool
	TargetRMS        float64 // linear RMS target (default: 0.1)
	TargetLUFS       float64 // accepted for a future true-loudness mode; not used by the RMS policy
	ClipCeiling      float64 // peak ceiling after gain (default: 0.95)

	// Noise suppressor - stationary profile estimated from the signal itself
	DenoiseEnabled      bool
	DenoisePropDecrease float64 // fraction of estimated noise removed (default: 0.8)
	DenoiseNStd         float64 // threshold in standard deviations above the per-bin mean (default: 1.5)
	DenoiseNFFT         int     // analysis frame (default: 1024)
	DenoiseHop          int     // default: NFFT/4
	DenoiseFreqSmoothHz float64 // mask smoothing span across frequency (default: 500)
	DenoiseTimeSmoothMs float64 // mask smoothing span across time (default: 50)
	DenoiseTopDB        float64 // per-bin dynamic range floor (default: 80)
	DenoiseChunkSize    int     // samples filtered per pass (default: 600000)

	// Spectral enhancer - Butterworth high-pass then percentile gate
	HighpassEnabled bool
	HighpassFreq    float64 // Hz (default: 80)
	HighpassOrder   int     // default: 5
	GateEnabled     bool
	GatePercentile  float64 // magnitude percentile used as the floor (default: 10)
	GateNFFT        int     // default: 2048
	GateHop         int     // default: 512

	// Segmenter - silence detection, chunk filter and stitching
	SegmentEnabled  bool
	MinSilenceMs    int       // default: 500
	SilenceThreshDB float64   // dBFS (default: -40)
	KeepSilenceMs   int       // padding kept around each chunk (default: 100)
	SeekStepMs      int       // detection stride (default: 1)
	MinChunkMs      int       // chunks must be strictly longer than this (default: 1000)
	GapMs           int       // synthetic silence between chunks (default: 100)
	GapPolicy       GapPolicy // default: GapBetweenKept

	// Output naming and format
	OutputPrefix string // default: "clean_"
	TempPrefix   string // default: "temp_"
	BitDepth     int    // default: 16

	// MainsHz is the local mains frequency used for hum measurement (50 or 60).
	MainsHz int
}

// DefaultChainConfig returns the default configuration for speech corpus cleaning.
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		NormaliseEnabled: true,
		TargetRMS:        0.1,
		TargetLUFS:       -23.0,
		ClipCeiling:      0.95,

		DenoiseEnabled:      true,
		DenoisePropDecrease: 0.8,
		DenoiseNStd:         1.5,
		DenoiseNFFT:         1024,
		DenoiseHop:          256,
		DenoiseFreqSmoothHz: 500,
		DenoiseTimeSmoothMs: 50,
		DenoiseTopDB:        80,
		DenoiseChunkSize:    DefaultDenoiseChunk,

		HighpassEnabled: true,
		HighpassFreq:    80,
		HighpassOrder:   5,
		GateEnabled:     true,
		GatePercentile:  10,
		GateNFFT:        2048,
		GateHop:         512,

		SegmentEnabled:  true,
		MinSilenceMs:    500,
		SilenceThreshDB: -40,
		KeepSilenceMs:   100,
		SeekStepMs:      1,
		MinChunkMs:      1000,
		GapMs:           100,
		GapPolicy:       GapBetweenKept,

		OutputPrefix: "clean_",
		TempPrefix:   "temp_",
		BitDepth:     audio.DefaultBitDepth,

		MainsHz: 50,
	}
}

// Validate rejects configurations the stages cannot run with.
func (cfg *ChainConfig) Validate() error {
	switch {
	case cfg.TargetRMS <= 0:
		return fmt.Errorf("target RMS must be positive, got %g", cfg.TargetRMS)
	case cfg.ClipCeiling <= 0 || cfg.ClipCeiling > 1:
		return fmt.Errorf("clip ceiling must be in (0, 1], got %g", cfg.ClipCeiling)
	case cfg.DenoisePropDecrease < 0 || cfg.DenoisePropDecrease > 1:
		return fmt.Errorf("denoise proportion must be in [0, 1], got %g", cfg.DenoisePropDecrease)
	case cfg.DenoiseChunkSize < 0:
		return fmt.Errorf("denoise chunk size cannot be negative, got %d", cfg.DenoiseChunkSize)
	case cfg.HighpassFreq <= 0:
		return fmt.Errorf("high-pass cutoff must be positive, got %g", cfg.HighpassFreq)
	case cfg.HighpassOrder < 1:
		return fmt.Errorf("high-pass order must be positive, got %d", cfg.HighpassOrder)
	case cfg.GatePercentile < 0 || cfg.GatePercentile > 100:
		return fmt.Errorf("gate percentile must be in [0, 100], got %g", cfg.GatePercentile)
	case cfg.MinSilenceMs < 1 || cfg.SeekStepMs < 1:
		return fmt.Errorf("silence length and seek step must be at least 1 ms")
	case cfg.KeepSilenceMs < 0 || cfg.GapMs < 0 || cfg.MinChunkMs < 0:
		return fmt.Errorf("segment durations cannot be negative")
	case cfg.BitDepth != 8 && cfg.BitDepth != 16 && cfg.BitDepth != 24 && cfg.BitDepth != 32:
		return fmt.Errorf("unsupported output bit depth %d", cfg.BitDepth)
	}
	if err := (dsp.STFTConfig{NFFT: cfg.DenoiseNFFT, Hop: cfg.DenoiseHop}).Validate(); err != nil {
		return fmt.Errorf("denoise: %w", err)
	}
	if err := (dsp.STFTConfig{NFFT: cfg.GateNFFT, Hop: cfg.GateHop}).Validate(); err != nil {
		return fmt.Errorf("spectral gate: %w", err)
	}
	if _, err := ParseGapPolicy(string(cfg.GapPolicy)); err != nil {
		return err
	}
	return nil
}

func (cfg *ChainConfig) denoiseParams() DenoiseParams {
	return DenoiseParams{
		NFFT:         cfg.DenoiseNFFT,
		Hop:          cfg.DenoiseHop,
		PropDecrease: cfg.DenoisePropDecrease,
		NStd:         cfg.DenoiseNStd,
		FreqSmoothHz: cfg.DenoiseFreqSmoothHz,
		TimeSmoothMs: cfg.DenoiseTimeSmoothMs,
		TopDB:        cfg.DenoiseTopDB,
		ChunkSize:    cfg.DenoiseChunkSize,
	}
}

func (cfg *ChainConfig) enhanceParams() EnhanceParams {
	return EnhanceParams{
		HighpassEnabled: cfg.HighpassEnabled,
		HighpassFreq:    cfg.HighpassFreq,
		HighpassOrder:   cfg.HighpassOrder,
		GateEnabled:     cfg.GateEnabled,
		GatePercentile:  cfg.GatePercentile,
		GateNFFT:        cfg.GateNFFT,
		GateHop:         cfg.GateHop,
	}
}

func (cfg *ChainConfig) segmentParams() SegmentParams {
	return SegmentParams{
		MinSilenceMs:    cfg.MinSilenceMs,
		SilenceThreshDB: cfg.SilenceThreshDB,
		KeepSilenceMs:   cfg.KeepSilenceMs,
		SeekStepMs:      cfg.SeekStepMs,
		MinChunkMs:      cfg.MinChunkMs,
		GapMs:           cfg.GapMs,
		Policy:          cfg.GapPolicy,
	}
}

func (cfg *ChainConfig) runNormalise(w *audio.Waveform) (Outcome, error) {
	if !cfg.NormaliseEnabled {
		return skipped(w, "disabled"), nil
	}
	out, gain := Normalise(w, cfg.TargetRMS, cfg.ClipCeiling)
	return Outcome{Waveform: out, Applied: gain != 1, Detail: fmt.Sprintf("gain %.2f dB", dsp.LinearToDb(gain))}, nil
}

func (cfg *ChainConfig) runDenoise(w *audio.Waveform) (Outcome, error) {
	if !cfg.DenoiseEnabled {
		return skipped(w, "disabled"), nil
	}
	out, err := Denoise(w, cfg.denoiseParams())
	if err != nil {
		return failOpen(w, err), nil
	}
	return Outcome{Waveform: out, Applied: true}, nil
}

func (cfg *ChainConfig) runEnhance(w *audio.Waveform) (Outcome, error) {
	out, report, err := Enhance(w, cfg.enhanceParams())
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Waveform: out,
		Applied:  report.HighpassApplied || report.GateApplied,
		Detail:   report.String(),
		Enhance:  &report,
	}, nil
}
