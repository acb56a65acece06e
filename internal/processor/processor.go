package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/linuxmatters/cleanspeech/internal/audio"
)

// ProgressFunc receives a stage name, overall progress through the file
// (0.0 to 1.0), and measurements when a measuring point is reached.
type ProgressFunc func(stage StageID, progress float64, m *Measurements)

// Options controls how ProcessFile runs.
type Options struct {
	Config    *ChainConfig
	OutputDir string
	Logger    *zap.Logger
	Progress  ProgressFunc
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) progress(stage StageID, p float64, m *Measurements) {
	if o.Progress != nil {
		o.Progress(stage, p, m)
	}
}

// SegmentSummary is the segmenter's contribution to a ProcessingResult.
type SegmentSummary struct {
	Chunks    int
	Kept      int
	Gaps      int
	Stitched  bool
	NoSpeech  bool
	Recovered bool
}

// ProcessingResult contains the results of cleaning one file
type ProcessingResult struct {
	Name             string
	InputPath        string
	OutputPath       string
	OriginalDuration float64 // seconds
	FinalDuration    float64 // seconds
	Reduction        float64 // percent of the original duration removed
	SampleRate       int
	Channels         int

	Input    *Measurements // decoded input
	Enhanced *Measurements // after the in-memory chain
	Final    *Measurements // written output

	Stages  []StageRecord
	Segment SegmentSummary
	Elapsed time.Duration
	Config  *ChainConfig
}

// Warnings returns the recoverable stage failures recorded for the file.
func (r *ProcessingResult) Warnings() []string {
	var out []string
	for _, s := range r.Stages {
		if s.Warning != "" {
			out = append(out, fmt.Sprintf("%s: %s", s.Stage, s.Warning))
		}
	}
	return out
}

// OutputName returns the output file name for an input base name.
func OutputName(prefix, inputName string) string {
	base := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	return prefix + base + ".wav"
}

// ProcessFile cleans a single source:
// - decode to mono and measure
// - normalise → denoise → enhance in memory
// - hand off through a 16-bit intermediate file in the output directory
// - segment and stitch, then write <prefix><base>.wav
//
// Recoverable stage failures are logged and recorded on the result. Any other
// failure is returned as a *StageError and leaves no output behind.
func ProcessFile(src Source, opts Options) (*ProcessingResult, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultChainConfig()
	}
	log := opts.logger().With(zap.String("file", src.Name))
	start := time.Now()

	opts.progress(StageDecode, 0, nil)
	w, meta, err := src.load()
	if err != nil {
		return nil, stageErr(src.Name, StageDecode, err)
	}
	if w.Len() == 0 {
		return nil, stageErr(src.Name, StageDecode, audio.ErrEmptyAudio)
	}

	res := &ProcessingResult{
		Name:             src.Name,
		InputPath:        src.Path,
		OriginalDuration: w.Seconds(),
		SampleRate:       w.SampleRate,
		Channels:         1,
		Config:           cfg,
	}
	if meta != nil {
		res.Channels = meta.Channels
	}
	res.Input = AnalyzeWaveform(w, cfg.MainsHz)
	log.Info("decoded",
		zap.Float64("duration_s", res.OriginalDuration),
		zap.Int("sample_rate", w.SampleRate),
		zap.Int("channels", res.Channels),
		zap.Float64("rms_dbfs", res.Input.RMSLevel))
	opts.progress(StageDecode, 0.1, res.Input)

	for i, id := range InMemoryOrder {
		out, err := stageRunners[id](cfg, w)
		if err != nil {
			return nil, stageErr(src.Name, id, err)
		}
		rec := StageRecord{Stage: id, Applied: out.Applied, Detail: out.Detail}
		if out.Recovered() {
			rec.Warning = out.Err.Error()
			log.Warn("stage failed, continuing with its input", zap.String("stage", string(id)), zap.Error(out.Err))
		} else {
			log.Debug("stage complete", zap.String("stage", string(id)), zap.Bool("applied", out.Applied), zap.String("detail", out.Detail))
		}
		res.Stages = append(res.Stages, rec)
		w = out.Waveform
		opts.progress(id, 0.1+0.6*float64(i+1)/float64(len(InMemoryOrder)), nil)
	}

	if w.Len() == 0 {
		return nil, stageErr(src.Name, StageEnhance, fmt.Errorf("nothing left to segment: %w", audio.ErrEmptyAudio))
	}
	res.Enhanced = AnalyzeWaveform(w, cfg.MainsHz)
	opts.progress(StageEnhance, 0.7, res.Enhanced)

	seg, err := segmentViaIntermediate(w, src.Name, cfg, opts.OutputDir)
	if err != nil {
		return nil, err
	}
	res.Segment = SegmentSummary{
		Chunks:    seg.Chunks,
		Kept:      seg.Kept,
		Gaps:      seg.Gaps,
		Stitched:  seg.Stitched,
		NoSpeech:  seg.NoSpeech,
		Recovered: seg.Recovered,
	}
	segRec := StageRecord{Stage: StageSegment, Applied: seg.Stitched,
		Detail: fmt.Sprintf("%d chunks, %d kept, %d gaps", seg.Chunks, seg.Kept, seg.Gaps)}
	switch {
	case seg.Recovered:
		segRec.Warning = seg.Err.Error()
		log.Warn("segmentation failed, keeping the enhanced track", zap.Error(seg.Err))
	case seg.NoSpeech:
		segRec.Warning = "no speech detected"
		log.Warn("no speech detected, keeping the track unmodified")
	default:
		log.Debug("segmented", zap.Int("chunks", seg.Chunks), zap.Int("kept", seg.Kept), zap.Int("gaps", seg.Gaps))
	}
	res.Stages = append(res.Stages, segRec)
	opts.progress(StageSegment, 0.9, nil)

	final := seg.Waveform
	res.OutputPath = filepath.Join(opts.OutputDir, OutputName(cfg.OutputPrefix, src.Name))
	if err := audio.WriteWAV(res.OutputPath, final, cfg.BitDepth); err != nil {
		return nil, stageErr(src.Name, StageEncode, err)
	}

	res.Final = AnalyzeWaveform(final, cfg.MainsHz)
	res.FinalDuration = final.Seconds()
	res.Reduction = (1 - res.FinalDuration/res.OriginalDuration) * 100
	res.Elapsed = time.Since(start)

	log.Info("cleaned",
		zap.String("output", res.OutputPath),
		zap.Float64("final_s", res.FinalDuration),
		zap.Float64("reduction_pct", res.Reduction),
		zap.Duration("elapsed", res.Elapsed))
	opts.progress(StageEncode, 1, res.Final)
	return res, nil
}

// segmentViaIntermediate writes w to a scoped temporary file in dir, runs the
// segmenter on that file and removes it on every path out.
func segmentViaIntermediate(w *audio.Waveform, name string, cfg *ChainConfig, dir string) (seg *SegmentResult, err error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	tmp, err := os.CreateTemp(dir, cfg.TempPrefix+base+"-*.wav")
	if err != nil {
		return nil, stageErr(name, StageIntermediate, err)
	}
	tmpPath := tmp.Name()
	defer multierr.AppendInvoke(&err, multierr.Invoke(func() error {
		return removeIfExists(tmpPath)
	}))

	if err = tmp.Close(); err != nil {
		return nil, stageErr(name, StageIntermediate, err)
	}
	if err = audio.WriteWAV(tmpPath, w, cfg.BitDepth); err != nil {
		return nil, stageErr(name, StageIntermediate, err)
	}

	if !cfg.SegmentEnabled {
		back, _, err := audio.ReadWAV(tmpPath)
		if err != nil {
			return nil, stageErr(name, StageSegment, err)
		}
		return &SegmentResult{Waveform: back, Chunks: 1, Kept: 1}, nil
	}

	seg, err = SegmentFile(tmpPath, cfg.segmentParams())
	if err != nil {
		return nil, stageErr(name, StageSegment, err)
	}
	return seg, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
