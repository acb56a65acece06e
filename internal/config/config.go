// Package config loads cleanspeech settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"

	"github.com/linuxmatters/cleanspeech/internal/processor"
)

// Environment variables read by Load.
const (
	EnvInputDir  = "CLEANSPEECH_INPUT_DIR"
	EnvOutputDir = "CLEANSPEECH_OUTPUT_DIR"
	EnvMains     = "CLEANSPEECH_MAINS_HZ"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// Config is the full set of user-tunable settings.
type Config struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	InputGlob string `yaml:"input_glob"`
	// Mains is "auto", "50" or "60".
	Mains string `yaml:"mains"`

	Normalise  NormaliseConfig  `yaml:"normalise"`
	Denoise    DenoiseConfig    `yaml:"denoise"`
	Enhance    EnhanceConfig    `yaml:"enhance"`
	Segment    SegmentConfig    `yaml:"segment"`
	Output     OutputConfig     `yaml:"output"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Strip      StripConfig      `yaml:"strip"`
}

type NormaliseConfig struct {
	Enabled     bool    `yaml:"enabled"`
	TargetRMS   float64 `yaml:"target_rms"`
	TargetLUFS  float64 `yaml:"target_lufs"`
	ClipCeiling float64 `yaml:"clip_ceiling"`
}

type DenoiseConfig struct {
	Enabled      bool    `yaml:"enabled"`
	PropDecrease float64 `yaml:"prop_decrease"`
	NStd         float64 `yaml:"n_std"`
	NFFT         int     `yaml:"n_fft"`
	Hop          int     `yaml:"hop"`
	FreqSmoothHz float64 `yaml:"freq_smooth_hz"`
	TimeSmoothMs float64 `yaml:"time_smooth_ms"`
	ChunkSize    int     `yaml:"chunk_size"`
}

type EnhanceConfig struct {
	Highpass       bool    `yaml:"highpass"`
	HighpassHz     float64 `yaml:"highpass_hz"`
	HighpassOrder  int     `yaml:"highpass_order"`
	Gate           bool    `yaml:"gate"`
	GatePercentile float64 `yaml:"gate_percentile"`
	NFFT           int     `yaml:"n_fft"`
	Hop            int     `yaml:"hop"`
}

type SegmentConfig struct {
	Enabled         bool    `yaml:"enabled"`
	MinSilenceMs    int     `yaml:"min_silence_ms"`
	SilenceThreshDB float64 `yaml:"silence_thresh_db"`
	KeepSilenceMs   int     `yaml:"keep_silence_ms"`
	SeekStepMs      int     `yaml:"seek_step_ms"`
	MinChunkMs      int     `yaml:"min_chunk_ms"`
	GapMs           int     `yaml:"gap_ms"`
	GapPolicy       string  `yaml:"gap_policy"`
}

type OutputConfig struct {
	Prefix     string `yaml:"prefix"`
	TempPrefix string `yaml:"temp_prefix"`
	BitDepth   int    `yaml:"bit_depth"`
}

type TranscribeConfig struct {
	// APIKey is only taken from the environment.
	APIKey     string `yaml:"-"`
	Model      string `yaml:"model"`
	Language   string `yaml:"language"`
	Label      string `yaml:"label"`
	RenamedDir string `yaml:"renamed_dir"`
	OutputDir  string `yaml:"output_dir"`
}

type StripConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	Words     int    `yaml:"words"`
	Suffix    string `yaml:"suffix"`
}

// Default returns the documented defaults.
func Default() *Config {
	chain := processor.DefaultChainConfig()
	return &Config{
		InputDir:  "downloaded_audio",
		OutputDir: "clean_audio",
		InputGlob: "*.wav",
		Mains:     "auto",
		Normalise: NormaliseConfig{
			Enabled:     chain.NormaliseEnabled,
			TargetRMS:   chain.TargetRMS,
			TargetLUFS:  chain.TargetLUFS,
			ClipCeiling: chain.ClipCeiling,
		},
		Denoise: DenoiseConfig{
			Enabled:      chain.DenoiseEnabled,
			PropDecrease: chain.DenoisePropDecrease,
			NStd:         chain.DenoiseNStd,
			NFFT:         chain.DenoiseNFFT,
			Hop:          chain.DenoiseHop,
			FreqSmoothHz: chain.DenoiseFreqSmoothHz,
			TimeSmoothMs: chain.DenoiseTimeSmoothMs,
			ChunkSize:    chain.DenoiseChunkSize,
		},
		Enhance: EnhanceConfig{
			Highpass:       chain.HighpassEnabled,
			HighpassHz:     chain.HighpassFreq,
			HighpassOrder:  chain.HighpassOrder,
			Gate:           chain.GateEnabled,
			GatePercentile: chain.GatePercentile,
			NFFT:           chain.GateNFFT,
			Hop:            chain.GateHop,
		},
		Segment: SegmentConfig{
			Enabled:         chain.SegmentEnabled,
			MinSilenceMs:    chain.MinSilenceMs,
			SilenceThreshDB: chain.SilenceThreshDB,
			KeepSilenceMs:   chain.KeepSilenceMs,
			SeekStepMs:      chain.SeekStepMs,
			MinChunkMs:      chain.MinChunkMs,
			GapMs:           chain.GapMs,
			GapPolicy:       string(chain.GapPolicy),
		},
		Output: OutputConfig{
			Prefix:     chain.OutputPrefix,
			TempPrefix: chain.TempPrefix,
			BitDepth:   chain.BitDepth,
		},
		Transcribe: TranscribeConfig{
			Model:      "whisper-1",
			Language:   "ar",
			Label:      "عينة",
			RenamedDir: "renamed_audio",
			OutputDir:  "transcripts",
		},
		Strip: StripConfig{
			InputDir:  "juz_amma_surahs",
			OutputDir: "simple_clean_surahs",
			Words:     4,
			Suffix:    "_بسيط",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.InputDir = envStr(EnvInputDir, c.InputDir)
	c.OutputDir = envStr(EnvOutputDir, c.OutputDir)
	c.Mains = envStr(EnvMains, c.Mains)
	c.Transcribe.APIKey = envStr(EnvOpenAIKey, c.Transcribe.APIKey)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate reports every invalid setting, not just the first.
func (c *Config) Validate() error {
	var errs error
	if c.InputDir == "" {
		errs = multierr.Append(errs, errors.New("input directory is required"))
	}
	if c.OutputDir == "" {
		errs = multierr.Append(errs, errors.New("output directory is required"))
	}
	if c.InputGlob == "" {
		errs = multierr.Append(errs, errors.New("input glob is required"))
	}
	switch c.Mains {
	case "", "auto", "50", "60":
	default:
		errs = multierr.Append(errs, fmt.Errorf("mains must be auto, 50 or 60, got %q", c.Mains))
	}
	if c.Denoise.NFFT < 2 || c.Denoise.NFFT%2 != 0 || c.Denoise.Hop < 1 || c.Denoise.Hop > c.Denoise.NFFT {
		errs = multierr.Append(errs, fmt.Errorf("denoise frame %d/%d is invalid (frame must be even)", c.Denoise.NFFT, c.Denoise.Hop))
	}
	if c.Enhance.NFFT < 2 || c.Enhance.NFFT%2 != 0 || c.Enhance.Hop < 1 || c.Enhance.Hop > c.Enhance.NFFT {
		errs = multierr.Append(errs, fmt.Errorf("gate frame %d/%d is invalid (frame must be even)", c.Enhance.NFFT, c.Enhance.Hop))
	}
	if c.Output.Prefix == "" {
		errs = multierr.Append(errs, errors.New("output prefix is required"))
	}
	if c.Strip.Words < 1 {
		errs = multierr.Append(errs, fmt.Errorf("strip words must be at least 1, got %d", c.Strip.Words))
	}
	if _, err := c.Chain(processor.DefaultChainConfig().MainsHz); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Chain converts the settings into a processing chain configuration.
func (c *Config) Chain(mainsHz int) (*processor.ChainConfig, error) {
	policy, err := processor.ParseGapPolicy(c.Segment.GapPolicy)
	if err != nil {
		return nil, err
	}
	chain := &processor.ChainConfig{
		NormaliseEnabled: c.Normalise.Enabled,
		TargetRMS:        c.Normalise.TargetRMS,
		TargetLUFS:       c.Normalise.TargetLUFS,
		ClipCeiling:      c.Normalise.ClipCeiling,

		DenoiseEnabled:      c.Denoise.Enabled,
		DenoisePropDecrease: c.Denoise.PropDecrease,
		DenoiseNStd:         c.Denoise.NStd,
		DenoiseNFFT:         c.Denoise.NFFT,
		DenoiseHop:          c.Denoise.Hop,
		DenoiseFreqSmoothHz: c.Denoise.FreqSmoothHz,
		DenoiseTimeSmoothMs: c.Denoise.TimeSmoothMs,
		DenoiseTopDB:        processor.DefaultChainConfig().DenoiseTopDB,
		DenoiseChunkSize:    c.Denoise.ChunkSize,

		HighpassEnabled: c.Enhance.Highpass,
		HighpassFreq:    c.Enhance.HighpassHz,
		HighpassOrder:   c.Enhance.HighpassOrder,
		GateEnabled:     c.Enhance.Gate,
		GatePercentile:  c.Enhance.GatePercentile,
		GateNFFT:        c.Enhance.NFFT,
		GateHop:         c.Enhance.Hop,

		SegmentEnabled:  c.Segment.Enabled,
		MinSilenceMs:    c.Segment.MinSilenceMs,
		SilenceThreshDB: c.Segment.SilenceThreshDB,
		KeepSilenceMs:   c.Segment.KeepSilenceMs,
		SeekStepMs:      c.Segment.SeekStepMs,
		MinChunkMs:      c.Segment.MinChunkMs,
		GapMs:           c.Segment.GapMs,
		GapPolicy:       policy,

		OutputPrefix: c.Output.Prefix,
		TempPrefix:   c.Output.TempPrefix,
		BitDepth:     c.Output.BitDepth,
		MainsHz:      mainsHz,
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}
	return chain, nil
}
