package ui

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/processor"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func sampleResult() *processor.ProcessingResult {
	return &processor.ProcessingResult{
		Name:             "a.wav",
		OutputPath:       "/out/clean_a.wav",
		OriginalDuration: 10,
		FinalDuration:    7,
		Reduction:        30,
		Segment:          processor.SegmentSummary{Chunks: 3, Kept: 2},
	}
}

func TestModelTracksFiles(t *testing.T) {
	m := NewModel([]string{"a.wav", "b.wav"}, nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = update(t, m, FileStartMsg{Index: 0, Name: "a.wav"})
	if m.CurrentIndex != 0 || m.Files[0].Status != StatusActive {
		t.Fatalf("file not active: %+v", m.Files[0])
	}

	input := &processor.Measurements{Duration: 10, RMSLevel: -30, NoiseFloor: -60}
	m = update(t, m, StageMsg{Stage: processor.StageDecode, Progress: 0.1, Measurements: input})
	m = update(t, m, StageMsg{Stage: processor.StageDenoise, Progress: 0.5, Measurements: &processor.Measurements{}})
	if m.Files[0].Stage != processor.StageDenoise || m.Files[0].Progress != 0.5 {
		t.Errorf("stage not updated: %+v", m.Files[0])
	}
	if m.Files[0].Input != input {
		t.Error("input measurements should be kept from the first report")
	}
	if view := m.View(); !strings.Contains(view, "Suppressing noise") || !strings.Contains(view, "50%") {
		t.Errorf("active view missing stage:\n%s", view)
	}

	m = update(t, m, FileDoneMsg{Index: 0, Result: sampleResult()})
	m = update(t, m, FileStartMsg{Index: 1, Name: "b.wav"})
	m = update(t, m, FileDoneMsg{Index: 1, Err: errors.New("decode: not a wav")})

	if m.CompletedFiles != 1 || m.FailedFiles != 1 {
		t.Errorf("completed=%d failed=%d", m.CompletedFiles, m.FailedFiles)
	}
	if m.Files[1].Status != StatusError {
		t.Errorf("status = %v, want error", m.Files[1].Status)
	}

	summary := &processor.BatchSummary{OutputDir: "/out", Attempted: 2, Succeeded: 1,
		Failures: []processor.FileFailure{{Name: "b.wav"}}, MeanOriginalDuration: 10, MeanFinalDuration: 7, MeanReduction: 30}
	next, cmd := m.Update(BatchDoneMsg{Summary: summary})
	m = next.(Model)
	if !m.Done || cmd == nil {
		t.Fatal("batch done should finish the program")
	}

	view := m.View()
	for _, want := range []string{"Cleaning Complete", "clean_a.wav", "2 of 3 chunks kept", "1 succeeded, 1 failed", "not a wav", "/out"} {
		if !strings.Contains(view, want) {
			t.Errorf("summary missing %q:\n%s", want, view)
		}
	}
}

func TestModelIgnoresOutOfRangeIndex(t *testing.T) {
	m := NewModel([]string{"a.wav"}, nil)
	m = update(t, m, FileStartMsg{Index: 3})
	m = update(t, m, FileDoneMsg{Index: -1})
	if m.CurrentIndex != -1 || m.CompletedFiles != 0 {
		t.Errorf("unexpected state %+v", m)
	}
}

func TestQuitCancelsOnce(t *testing.T) {
	calls := 0
	m := NewModel([]string{"a.wav"}, func() { calls++ })
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if calls != 1 || !m.Cancelling {
		t.Errorf("cancel called %d times, cancelling=%v", calls, m.Cancelling)
	}
	m = update(t, m, FileStartMsg{Index: 0})
	m.Width = 80
	if !strings.Contains(m.View(), "stopping after the current file") {
		t.Error("view should show the pending stop")
	}
}

type recorder struct{ msgs []tea.Msg }

func (r *recorder) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

func TestAttachSendsMessages(t *testing.T) {
	rec := &recorder{}
	b := processor.NewBatch(processor.Options{})
	Attach(rec, b)

	src := processor.Source{Name: "a.wav"}
	b.OnFileStart(1, src)
	b.Options.Progress(processor.StageSegment, 0.9, nil)
	b.OnFileDone(1, src, sampleResult(), nil)

	if len(rec.msgs) != 3 {
		t.Fatalf("got %d messages", len(rec.msgs))
	}
	if start, ok := rec.msgs[0].(FileStartMsg); !ok || start.Index != 0 {
		t.Errorf("first message %#v", rec.msgs[0])
	}
	if stage, ok := rec.msgs[1].(StageMsg); !ok || stage.Stage != processor.StageSegment {
		t.Errorf("second message %#v", rec.msgs[1])
	}
	if done, ok := rec.msgs[2].(FileDoneMsg); !ok || done.Index != 0 || done.Result == nil {
		t.Errorf("third message %#v", rec.msgs[2])
	}
}

func TestAttachPrinter(t *testing.T) {
	var buf bytes.Buffer
	b := processor.NewBatch(processor.Options{})
	AttachPrinter(&buf, b, 2)

	res := sampleResult()
	res.Stages = []processor.StageRecord{{Stage: processor.StageDenoise, Warning: "bad smoothing"}}
	b.OnFileStart(1, processor.Source{Name: "a.wav"})
	b.OnFileDone(1, processor.Source{Name: "a.wav"}, res, nil)
	b.OnFileStart(2, processor.Source{Name: "b.wav"})
	b.OnFileDone(2, processor.Source{Name: "b.wav"}, nil, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"[1/2] a.wav", "denoise: bad smoothing", "clean_a.wav", "[2/2] b.wav", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("printer output missing %q:\n%s", want, out)
		}
	}
}

func TestAttachPrinterDescribesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talk.wav")
	w := &audio.Waveform{Samples: make([]float64, 8000), SampleRate: 8000}
	if err := audio.WriteWAV(path, w, 16); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	var buf bytes.Buffer
	b := processor.NewBatch(processor.Options{})
	AttachPrinter(&buf, b, 1)
	b.OnFileStart(1, processor.FileSource(path))
	b.OnFileStart(2, processor.FileSource(filepath.Join(t.TempDir(), "missing.wav")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "talk.wav (1.0s, 8000 Hz, mono)") {
		t.Errorf("header not described: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "missing.wav") {
		t.Errorf("unreadable file should print its name only: %q", lines[1])
	}
}

func TestRenderProgressBarClamps(t *testing.T) {
	if got := renderProgressBar(1.5, 4); got != "████ 100%" {
		t.Errorf("got %q", got)
	}
	if got := renderProgressBar(-1, 4); got != "░░░░ 0%" {
		t.Errorf("got %q", got)
	}
}
