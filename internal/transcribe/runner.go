package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// ErrNoSamples is returned when the input directory has no cleaned files.
var ErrNoSamples = errors.New("no cleaned recordings found")

// Failure records a sample that could not be transcribed.
type Failure struct {
	Sample Sample
	Err    error
}

// Summary describes one transcription run.
type Summary struct {
	Samples     []Sample
	Transcripts []string // JSON paths written
	Failures    []Failure
	Cancelled   bool
}

// Runner renames cleaned recordings and transcribes each one.
type Runner struct {
	Model      Model
	Options    Options
	Logger     *zap.Logger
	Prefix     string // cleaned file prefix, "clean_"
	Label      string // sample label used for renamed copies
	RenamedDir string
	OutputDir  string

	// Now stamps transcripts; defaults to time.Now.
	Now func() time.Time
	// OnFile is called after each sample with its index and total.
	OnFile func(index, total int, s Sample, err error)
}

// Run processes every cleaned file in srcDir. Per-sample failures are
// collected and do not stop the run. Cancellation is checked between samples.
func (r *Runner) Run(ctx context.Context, srcDir string) (*Summary, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", r.OutputDir, err)
	}

	samples, err := RenameSamples(srcDir, r.RenamedDir, r.Prefix, r.Label)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, srcDir)
	}
	log.Info("samples renamed", zap.Int("count", len(samples)), zap.String("dir", r.RenamedDir))

	summary := &Summary{Samples: samples}
	for i, s := range samples {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		path, err := r.transcribeOne(ctx, s, now())
		if err != nil {
			log.Warn("transcription failed", zap.String("file", s.Name), zap.Error(err))
			summary.Failures = append(summary.Failures, Failure{Sample: s, Err: err})
		} else {
			log.Info("transcript written", zap.String("file", s.Name), zap.String("path", path))
			summary.Transcripts = append(summary.Transcripts, path)
		}
		if r.OnFile != nil {
			r.OnFile(i, len(samples), s, err)
		}
	}
	return summary, nil
}

func (r *Runner) transcribeOne(ctx context.Context, s Sample, at time.Time) (string, error) {
	raw, err := r.Model.Transcribe(ctx, s.Path, r.Options)
	if err != nil {
		return "", err
	}
	t := BuildTranscript(raw, s.Name, r.Model.Name(), r.Options.Language, at)
	return WriteJSON(r.OutputDir, t)
}
