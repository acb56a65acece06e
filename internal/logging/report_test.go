package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linuxmatters/cleanspeech/internal/processor"
)

func sampleResult(dir string) *processor.ProcessingResult {
	cfg := processor.DefaultChainConfig()
	return &processor.ProcessingResult{
		Name:             "talk.wav",
		InputPath:        filepath.Join(dir, "talk.wav"),
		OutputPath:       filepath.Join(dir, "clean_talk.wav"),
		OriginalDuration: 10,
		FinalDuration:    7.2,
		Reduction:        28,
		SampleRate:       16000,
		Channels:         2,
		Input:            &processor.Measurements{Duration: 10, RMSLevel: -40, PeakLevel: -12, NoiseFloor: -72, HumLevel: -110, HumFreq: 50},
		Final:            &processor.Measurements{Duration: 7.2, RMSLevel: -20, PeakLevel: -3, NoiseFloor: -80, HumLevel: -120, HumFreq: 50},
		Stages: []processor.StageRecord{
			{Stage: processor.StageNormalise, Applied: true, Detail: "gain +20.0 dB"},
			{Stage: processor.StageDenoise, Warning: "denoise: bad smoothing"},
			{Stage: processor.StageSegment, Applied: true, Detail: "2 kept"},
		},
		Segment: processor.SegmentSummary{Chunks: 2, Kept: 2, Gaps: 1, Stitched: true},
		Elapsed: 1500 * time.Millisecond,
		Config:  cfg,
	}
}

func TestGenerateReport(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult(dir)

	path, err := GenerateReport(ReportData{Result: result, StartTime: time.Now()})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if want := filepath.Join(dir, "clean_talk.log"); path != want {
		t.Errorf("report path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)

	for _, want := range []string{
		"cleanspeech report: talk.wav",
		"16000 Hz, stereo, downmixed",
		"Reduction: 28.0%",
		"+ normalise",
		"! denoise",
		"denoise: bad smoothing",
		"2 chunk(s), 2 kept, 1 gap(s)",
		"Result:    stitched",
		"Measurements",
		"Warnings",
		"Recording Tips",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}
}

func TestGenerateReportNeedsOutput(t *testing.T) {
	if _, err := GenerateReport(ReportData{}); err == nil {
		t.Error("expected an error without a result")
	}
}

func TestReportPath(t *testing.T) {
	if got := ReportPath("/out/clean_a.wav"); got != "/out/clean_a.log" {
		t.Errorf("ReportPath = %q", got)
	}
}

func TestWriteBatchReport(t *testing.T) {
	dir := t.TempDir()
	quiet := sampleResult(dir)
	quiet.Name = "quiet.wav"
	quiet.Segment = processor.SegmentSummary{NoSpeech: true}

	summary := &processor.BatchSummary{
		RunID:     "run-1",
		OutputDir: dir,
		Attempted: 3,
		Succeeded: 2,
		Failures: []processor.FileFailure{
			{Name: "broken.wav", Stage: processor.StageDecode, Err: errors.New("not a wav")},
		},
		Results:              []*processor.ProcessingResult{sampleResult(dir), quiet},
		Elapsed:              3 * time.Second,
		MeanOriginalDuration: 10,
		MeanFinalDuration:    8.6,
		MeanReduction:        14,
	}

	var buf bytes.Buffer
	WriteBatchReport(&buf, summary)
	out := buf.String()

	for _, want := range []string{
		"Run:        run-1",
		"Processed:  2/3 succeeded, 1 failed",
		"Mean final duration:    8.60s",
		"Mean reduction:         14.0%",
		"No speech detected:\n  quiet.wav",
		"broken.wav [decode]: not a wav",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("batch report missing %q\n%s", want, out)
		}
	}
}

func TestWriteBatchReportNothingSucceeded(t *testing.T) {
	var buf bytes.Buffer
	WriteBatchReport(&buf, &processor.BatchSummary{RunID: "r", Attempted: 0, Cancelled: true})
	out := buf.String()
	if strings.Contains(out, "Mean") {
		t.Errorf("means reported without successes:\n%s", out)
	}
	if !strings.Contains(out, "Cancelled") {
		t.Errorf("cancellation not reported:\n%s", out)
	}
}

func TestWriteBatchReportEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	WriteBatchReport(&buf, &processor.BatchSummary{RunID: "r", InputDir: "downloaded_audio"})
	if out := buf.String(); !strings.Contains(out, "Nothing to do: no input files found in downloaded_audio") {
		t.Errorf("empty input not reported:\n%s", out)
	}

	buf.Reset()
	WriteBatchReport(&buf, &processor.BatchSummary{RunID: "r", Cancelled: true})
	if out := buf.String(); strings.Contains(out, "Nothing to do") {
		t.Errorf("a cancelled run is not an empty input:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute + 3*time.Second, "2h 5m 3s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
