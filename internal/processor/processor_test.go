package processor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxmatters/cleanspeech/internal/audio"
)

// speechWithPauses is 3 s tone, 2 s silence, 4 s tone, 1 s silence over a faint noise bed.
func speechWithPauses() TestAudioOptions {
	return TestAudioOptions{
		SampleRate: 16000,
		Sections:   []section{tone(3, 440, -20), silence(2), tone(4, 440, -20), silence(1)},
		NoiseDB:    -70,
	}
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "temp_") || strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("leftover file %s", e.Name())
		}
	}
}

func TestProcessFile(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	path := generateTestAudio(t, in, "lesson.wav", speechWithPauses())

	var stages []StageID
	res, err := ProcessFile(FileSource(path), Options{
		Config:    newTestConfig(),
		OutputDir: out,
		Progress: func(stage StageID, progress float64, m *Measurements) {
			if len(stages) == 0 || stages[len(stages)-1] != stage {
				stages = append(stages, stage)
			}
		},
	})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}

	if want := filepath.Join(out, "clean_lesson.wav"); res.OutputPath != want {
		t.Errorf("OutputPath = %s, want %s", res.OutputPath, want)
	}
	if !approx(res.OriginalDuration, 10, 1e-9) {
		t.Errorf("OriginalDuration = %g, want 10", res.OriginalDuration)
	}
	if res.FinalDuration < 6.9 || res.FinalDuration > 7.8 {
		t.Errorf("FinalDuration = %.3f, want about 7.1-7.5 s", res.FinalDuration)
	}
	if res.FinalDuration > res.OriginalDuration {
		t.Error("final duration exceeds original")
	}
	if want := (1 - res.FinalDuration/res.OriginalDuration) * 100; !approx(res.Reduction, want, 1e-9) {
		t.Errorf("Reduction = %g, want %g", res.Reduction, want)
	}
	if res.Segment.Kept != 2 || res.Segment.Gaps != 1 {
		t.Errorf("kept/gaps = %d/%d, want 2/1", res.Segment.Kept, res.Segment.Gaps)
	}
	if w := res.Warnings(); len(w) != 0 {
		t.Errorf("unexpected warnings: %v", w)
	}
	if res.Input == nil || res.Enhanced == nil || res.Final == nil {
		t.Fatal("missing measurements")
	}
	if res.Input.PeakLevel < -21 || res.Input.PeakLevel > -19 {
		t.Errorf("input peak = %.2f dBFS, want about -20", res.Input.PeakLevel)
	}

	written, _, err := audio.ReadWAV(res.OutputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !approx(written.Seconds(), res.FinalDuration, 1e-9) {
		t.Errorf("output file is %.3f s, result says %.3f s", written.Seconds(), res.FinalDuration)
	}

	wantStages := []StageID{StageDecode, StageNormalise, StageDenoise, StageEnhance, StageSegment, StageEncode}
	if strings.Join(stageNames(stages), ",") != strings.Join(stageNames(wantStages), ",") {
		t.Errorf("progress stages = %v, want %v", stages, wantStages)
	}
	assertNoLeftovers(t, out)
}

func TestProcessFileSilentInput(t *testing.T) {
	out := t.TempDir()
	src := Source{
		Name: "quiet.wav",
		Load: func() (*audio.Waveform, *audio.Metadata, error) {
			return synthesise(TestAudioOptions{SampleRate: 16000, Sections: []section{silence(3)}}), nil, nil
		},
	}
	res, err := ProcessFile(src, Options{Config: newTestConfig(), OutputDir: out})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if !res.Segment.NoSpeech {
		t.Error("expected the file to be flagged as containing no speech")
	}
	if res.Segment.Stitched {
		t.Error("a silent file should be kept as-is")
	}
	if len(res.Warnings()) == 0 {
		t.Error("expected a no-speech warning")
	}
	if res.FinalDuration <= 0 || res.FinalDuration > res.OriginalDuration {
		t.Errorf("FinalDuration = %g", res.FinalDuration)
	}
}

func TestProcessFileDenoiseFailsOpen(t *testing.T) {
	out := t.TempDir()
	opts := speechWithPauses()
	opts.SampleRate = 4000
	path := generateTestAudio(t, t.TempDir(), "narrowband.wav", opts)

	res, err := ProcessFile(FileSource(path), Options{Config: newTestConfig(), OutputDir: out})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || !strings.HasPrefix(warnings[0], string(StageDenoise)) {
		t.Errorf("warnings = %v, want one denoise warning", warnings)
	}
	if _, err := os.Stat(res.OutputPath); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestProcessFileErrors(t *testing.T) {
	t.Run("undecodable input", func(t *testing.T) {
		in, out := t.TempDir(), t.TempDir()
		path := filepath.Join(in, "broken.wav")
		if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ProcessFile(FileSource(path), Options{Config: newTestConfig(), OutputDir: out})
		if stage, ok := FailedStage(err); !ok || stage != StageDecode {
			t.Fatalf("err = %v, want a decode StageError", err)
		}
		if !errors.Is(err, audio.ErrInvalidWAV) {
			t.Errorf("err = %v, want ErrInvalidWAV in chain", err)
		}
		if _, err := os.Stat(filepath.Join(out, "clean_broken.wav")); !os.IsNotExist(err) {
			t.Error("output written for a failed file")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		src := Source{Name: "empty.wav", Load: func() (*audio.Waveform, *audio.Metadata, error) {
			return &audio.Waveform{SampleRate: 16000}, nil, nil
		}}
		_, err := ProcessFile(src, Options{Config: newTestConfig(), OutputDir: t.TempDir()})
		if !errors.Is(err, audio.ErrEmptyAudio) {
			t.Errorf("err = %v, want ErrEmptyAudio", err)
		}
	})

	t.Run("too short to filter", func(t *testing.T) {
		src := Source{Name: "blip.wav", Load: func() (*audio.Waveform, *audio.Metadata, error) {
			return &audio.Waveform{Samples: make([]float64, 12), SampleRate: 16000}, nil, nil
		}}
		_, err := ProcessFile(src, Options{Config: newTestConfig(), OutputDir: t.TempDir()})
		if stage, _ := FailedStage(err); stage != StageEnhance {
			t.Errorf("err = %v, want an enhance failure", err)
		}
	})

	t.Run("output blocked cleans up intermediate", func(t *testing.T) {
		in, out := t.TempDir(), t.TempDir()
		path := generateTestAudio(t, in, "blocked.wav", speechWithPauses())
		// a directory where the output file should go makes the final rename fail
		if err := os.Mkdir(filepath.Join(out, "clean_blocked.wav"), 0o755); err != nil {
			t.Fatal(err)
		}
		_, err := ProcessFile(FileSource(path), Options{Config: newTestConfig(), OutputDir: out})
		if stage, _ := FailedStage(err); stage != StageEncode {
			t.Fatalf("err = %v, want an encode failure", err)
		}
		assertNoLeftovers(t, out)
	})
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"surah-001.wav":         "clean_surah-001.wav",
		"/data/in/lesson.WAV":   "clean_lesson.wav",
		"no-extension":          "clean_no-extension.wav",
		"dotted.name.part1.wav": "clean_dotted.name.part1.wav",
	}
	for in, want := range tests {
		if got := OutputName("clean_", in); got != want {
			t.Errorf("OutputName(%q) = %q, want %q", in, got, want)
		}
	}
}

func stageNames(ids []StageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
