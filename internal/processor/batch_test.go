package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/cleanspeech/internal/audio"
)

var errCorrupt = errors.New("corrupt header")

func memorySource(name string, secs float64) Source {
	return Source{
		Name: name,
		Load: func() (*audio.Waveform, *audio.Metadata, error) {
			w := synthesise(TestAudioOptions{SampleRate: 16000, Sections: []section{tone(secs, 300, -12)}})
			return w, &audio.Metadata{SampleRate: 16000, Channels: 1, Duration: secs}, nil
		},
	}
}

func brokenSource(name string) Source {
	return Source{
		Name: name,
		Load: func() (*audio.Waveform, *audio.Metadata, error) {
			return nil, nil, fmt.Errorf("decode %s: %w", name, errCorrupt)
		},
	}
}

func TestBatchContinuesPastFailures(t *testing.T) {
	queue := NewQueue(
		memorySource("a.wav", 1.5),
		brokenSource("b.wav"),
		memorySource("c.wav", 2),
		brokenSource("d.wav"),
		memorySource("e.wav", 2.5),
	)

	var started, finished []string
	b := NewBatch(Options{Config: newTestConfig(), OutputDir: t.TempDir()})
	b.OnFileStart = func(i int, s Source) { started = append(started, s.Name) }
	b.OnFileDone = func(i int, s Source, _ *ProcessingResult, _ error) { finished = append(finished, s.Name) }

	summary, err := b.Run(context.Background(), queue.All())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Attempted != 5 || summary.Succeeded != 3 || summary.Failed() != 2 {
		t.Fatalf("attempted/succeeded/failed = %d/%d/%d, want 5/3/2",
			summary.Attempted, summary.Succeeded, summary.Failed())
	}
	if summary.Succeeded+summary.Failed() != summary.Attempted {
		t.Error("success and failure counts do not add up")
	}
	for i, want := range []string{"b.wav", "d.wav"} {
		f := summary.Failures[i]
		if f.Name != want || f.Stage != StageDecode || !errors.Is(f.Err, errCorrupt) {
			t.Errorf("failure %d = %+v, want %s at decode", i, f, want)
		}
	}

	if !approx(summary.MeanOriginalDuration, 2, 1e-9) {
		t.Errorf("MeanOriginalDuration = %g, want 2", summary.MeanOriginalDuration)
	}
	var final, reduction float64
	for _, r := range summary.Results {
		final += r.FinalDuration
		reduction += r.Reduction
	}
	if !approx(summary.MeanFinalDuration, final/3, 1e-9) {
		t.Errorf("MeanFinalDuration = %g, want %g", summary.MeanFinalDuration, final/3)
	}
	if !approx(summary.MeanReduction, reduction/3, 1e-9) {
		t.Errorf("MeanReduction = %g, want %g", summary.MeanReduction, reduction/3)
	}

	if len(started) != 5 || len(finished) != 5 {
		t.Errorf("observer saw %d starts and %d finishes, want 5 each", len(started), len(finished))
	}
	if summary.RunID == "" || summary.RunID != b.RunID {
		t.Errorf("RunID = %q, batch has %q", summary.RunID, b.RunID)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	in := t.TempDir()
	q, err := ScanDir(in, "*.wav")
	if err != nil {
		t.Fatal(err)
	}
	b := NewBatch(Options{OutputDir: t.TempDir()})
	b.InputDir = in
	summary, err := b.Run(context.Background(), q.All())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 0 || summary.Succeeded != 0 || summary.Failed() != 0 {
		t.Errorf("summary = %+v, want all zero", summary)
	}
	if summary.InputDir != in {
		t.Errorf("InputDir = %q, want %q", summary.InputDir, in)
	}
	if summary.MeanOriginalDuration != 0 {
		t.Error("means should be zero without successes")
	}
}

func TestBatchCancelledBetweenFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBatch(Options{Config: newTestConfig(), OutputDir: t.TempDir()})
	b.OnFileDone = func(int, Source, *ProcessingResult, error) { cancel() }

	summary, err := b.Run(ctx, NewQueue(memorySource("a.wav", 1.5), memorySource("b.wav", 1.5)).All())
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Cancelled || summary.Attempted != 1 {
		t.Errorf("cancelled=%v attempted=%d, want true and 1", summary.Cancelled, summary.Attempted)
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "a.wav", "notes.txt", "c.wav"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.wav"), 0o755); err != nil {
		t.Fatal(err)
	}

	q, err := ScanDir(dir, "*.wav")
	if err != nil {
		t.Fatal(err)
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	// the sequence restarts from the top on every range
	for pass := 0; pass < 2; pass++ {
		var names []string
		for s := range q.All() {
			names = append(names, s.Name)
		}
		if fmt.Sprint(names) != "[a.wav b.wav c.wav]" {
			t.Errorf("pass %d: names = %v", pass, names)
		}
	}
	if got := fmt.Sprint(q.Names()); got != "[a.wav b.wav c.wav]" {
		t.Errorf("Names() = %s", got)
	}
}

func TestBatchScannedDirectory(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	generateTestAudio(t, in, "one.wav", speechWithPauses())
	if err := os.WriteFile(filepath.Join(in, "two.wav"), []byte("RIFF junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	q, err := ScanDir(in, "*.wav")
	if err != nil {
		t.Fatal(err)
	}
	summary, err := NewBatch(Options{Config: newTestConfig(), OutputDir: out}).Run(context.Background(), q.All())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 1 || summary.Failed() != 1 || summary.Failures[0].Name != "two.wav" {
		t.Errorf("summary = %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(out, "clean_one.wav")); err != nil {
		t.Errorf("missing output: %v", err)
	}
	assertNoLeftovers(t, out)
}
