package processor

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/cleanspeech/internal/audio"
)

// section is one span of synthetic test audio.
type section struct {
	Secs     float64
	ToneFreq float64 // 0 = no tone
	ToneDB   float64 // tone level in dBFS
}

// TestAudioOptions configures the synthetic audio to generate
type TestAudioOptions struct {
	SampleRate int       // default: 16000
	Sections   []section // played back to back
	NoiseDB    float64   // white noise level in dBFS under everything (0 = none)
}

func tone(secs, freq, db float64) section { return section{Secs: secs, ToneFreq: freq, ToneDB: db} }
func silence(secs float64) section       { return section{Secs: secs} }

// synthesise renders the options to a waveform.
func synthesise(opts TestAudioOptions) *audio.Waveform {
	if opts.SampleRate == 0 {
		opts.SampleRate = 16000
	}
	sr := float64(opts.SampleRate)

	// deterministic LCG noise
	rng := uint32(12345)
	next := func() float64 {
		rng = rng*1664525 + 1013904223
		return float64(rng)/float64(math.MaxUint32)*2 - 1
	}
	noiseAmp := 0.0
	if opts.NoiseDB < 0 {
		noiseAmp = math.Pow(10, opts.NoiseDB/20)
	}

	var samples []float64
	for _, s := range opts.Sections {
		n := int(math.Round(s.Secs * sr))
		amp := 0.0
		if s.ToneFreq > 0 {
			amp = math.Pow(10, s.ToneDB/20)
		}
		for i := 0; i < n; i++ {
			v := amp * math.Sin(2*math.Pi*s.ToneFreq*float64(i)/sr)
			if noiseAmp > 0 {
				v += noiseAmp * next()
			}
			samples = append(samples, v)
		}
	}
	return &audio.Waveform{Samples: samples, SampleRate: opts.SampleRate}
}

// generateTestAudio writes synthetic audio to dir/name as 16-bit WAV and
// returns the path. The directory is owned by the caller (usually t.TempDir()).
func generateTestAudio(t *testing.T, dir, name string, opts TestAudioOptions) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := audio.WriteWAV(path, synthesise(opts), 16); err != nil {
		t.Fatalf("failed to write test audio: %v", err)
	}
	return path
}

func sineSamples(sampleRate int, secs, freq, amp float64) []float64 {
	n := int(secs * float64(sampleRate))
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return s
}

func newTestConfig() *ChainConfig {
	return DefaultChainConfig()
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
