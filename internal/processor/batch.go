package processor

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linuxmatters/cleanspeech/internal/audio"
)

// Source is one input to the batch. Load is called once when the file's
// turn comes; ScanDir wires it to audio.ReadWAV.
type Source struct {
	Name string
	Path string
	Load func() (*audio.Waveform, *audio.Metadata, error)
}

func (s Source) load() (*audio.Waveform, *audio.Metadata, error) {
	if s.Load != nil {
		return s.Load()
	}
	return audio.ReadWAV(s.Path)
}

// FileSource returns a Source that decodes path when loaded.
func FileSource(path string) Source {
	return Source{Name: filepath.Base(path), Path: path}
}

// Queue is an ordered, finite list of sources that can be iterated any number of times.
type Queue struct {
	sources []Source
}

// NewQueue builds a queue from explicit sources, keeping their order.
func NewQueue(sources ...Source) *Queue {
	return &Queue{sources: sources}
}

// ScanDir lists files in dir matching pattern, sorted by name.
func ScanDir(dir, pattern string) (*Queue, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	q := &Queue{}
	for _, m := range matches {
		if info, err := os.Stat(m); err != nil || info.IsDir() {
			continue
		}
		q.sources = append(q.sources, FileSource(m))
	}
	return q, nil
}

// Len returns the number of queued sources.
func (q *Queue) Len() int { return len(q.sources) }

// Names returns the source names in order.
func (q *Queue) Names() []string {
	names := make([]string, len(q.sources))
	for i, s := range q.sources {
		names[i] = s.Name
	}
	return names
}

// All yields the sources in order.
func (q *Queue) All() iter.Seq[Source] {
	return func(yield func(Source) bool) {
		for _, s := range q.sources {
			if !yield(s) {
				return
			}
		}
	}
}

// FileFailure names a file that could not be processed.
type FileFailure struct {
	Name  string
	Stage StageID
	Err   error
}

// BatchSummary is the structured outcome of a batch run
type BatchSummary struct {
	RunID     string
	InputDir  string // where the sources came from, when known
	OutputDir string
	Attempted int
	Succeeded int
	Failures  []FileFailure
	Results   []*ProcessingResult
	Cancelled bool
	Elapsed   time.Duration

	// means over successful files only
	MeanOriginalDuration float64
	MeanFinalDuration    float64
	MeanReduction        float64
}

// Failed returns the number of files that failed.
func (s *BatchSummary) Failed() int { return len(s.Failures) }

// NoSpeech returns the successful files where no speech was detected.
func (s *BatchSummary) NoSpeech() []string {
	var names []string
	for _, r := range s.Results {
		if r.Segment.NoSpeech {
			names = append(names, r.Name)
		}
	}
	return names
}

func (s *BatchSummary) computeMeans() {
	if len(s.Results) == 0 {
		return
	}
	var orig, final, red float64
	for _, r := range s.Results {
		orig += r.OriginalDuration
		final += r.FinalDuration
		red += r.Reduction
	}
	n := float64(len(s.Results))
	s.MeanOriginalDuration = orig / n
	s.MeanFinalDuration = final / n
	s.MeanReduction = red / n
}

// Batch processes sources one at a time into a single output directory.
type Batch struct {
	Options Options
	RunID   string
	// InputDir is reported in the summary; the sources themselves may come
	// from anywhere.
	InputDir string

	// OnFileStart and OnFileDone, when set, observe progress through the batch.
	OnFileStart func(index int, src Source)
	OnFileDone  func(index int, src Source, res *ProcessingResult, err error)
}

// NewBatch returns a batch with a fresh run identifier.
func NewBatch(opts Options) *Batch {
	return &Batch{Options: opts, RunID: uuid.NewString()}
}

// Run processes every source in order. A failing file is recorded and the
// batch moves on; cancellation of ctx is honoured between files. The only
// error returned is failure to create the output directory.
func (b *Batch) Run(ctx context.Context, sources iter.Seq[Source]) (*BatchSummary, error) {
	start := time.Now()
	summary := &BatchSummary{RunID: b.RunID, InputDir: b.InputDir, OutputDir: b.Options.OutputDir}
	if abs, err := filepath.Abs(b.Options.OutputDir); err == nil {
		summary.OutputDir = abs
	}

	if err := os.MkdirAll(b.Options.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	log := b.Options.logger().With(zap.String("run_id", b.RunID))
	opts := b.Options
	opts.Logger = log

	index := 0
	for src := range sources {
		if ctx.Err() != nil {
			summary.Cancelled = true
			log.Warn("batch cancelled", zap.Int("processed", summary.Attempted))
			break
		}
		index++
		summary.Attempted++
		if b.OnFileStart != nil {
			b.OnFileStart(index, src)
		}

		res, err := ProcessFile(src, opts)
		if err != nil {
			stage, _ := FailedStage(err)
			summary.Failures = append(summary.Failures, FileFailure{Name: src.Name, Stage: stage, Err: err})
			log.Error("file failed", zap.String("file", src.Name), zap.String("stage", string(stage)), zap.Error(err))
		} else {
			summary.Succeeded++
			summary.Results = append(summary.Results, res)
		}

		if b.OnFileDone != nil {
			b.OnFileDone(index, src, res, err)
		}
	}

	if summary.Attempted == 0 && !summary.Cancelled {
		log.Warn(ErrNoInputFiles.Error(), zap.String("input", b.InputDir))
	}
	summary.computeMeans()
	summary.Elapsed = time.Since(start)
	log.Info("batch complete",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed()))
	return summary, nil
}
