package processor

import (
	"github.com/linuxmatters/cleanspeech/internal/audio"
)

// Outcome is the result of one pipeline stage. When a recoverable stage
// fails, Err is set and Waveform is the stage's unmodified input.
type Outcome struct {
	Waveform *audio.Waveform
	Applied  bool
	Detail   string
	Err      error

	// Enhance carries enhancer diagnostics when the stage is StageEnhance.
	Enhance *EnhanceReport
}

// Recovered reports whether the stage failed open.
func (o Outcome) Recovered() bool {
	return o.Err != nil
}

func skipped(w *audio.Waveform, reason string) Outcome {
	return Outcome{Waveform: w, Detail: reason}
}

func failOpen(w *audio.Waveform, err error) Outcome {
	return Outcome{Waveform: w, Err: err, Detail: "input passed through"}
}

// StageRecord is the per-stage entry kept on a ProcessingResult.
type StageRecord struct {
	Stage   StageID
	Applied bool
	Detail  string
	Warning string
}
