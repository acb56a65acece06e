// Package transcribe renames cleaned recordings into numbered samples and
// produces word-timed transcripts for them.
package transcribe

import (
	"context"
	"errors"
)

// ErrNoAPIKey is returned when a hosted model is created without credentials.
var ErrNoAPIKey = errors.New("transcription API key is not set")

// Options are passed to every Transcribe call.
type Options struct {
	Language string // ISO-639-1, e.g. "ar"
	Prompt   string
}

// RawWord is one timed word as reported by a model.
type RawWord struct {
	Word        string
	Start       float64
	End         float64
	Probability float64 // 0 when the model does not report one
}

// RawSegment is one timed phrase as reported by a model.
type RawSegment struct {
	ID    int
	Start float64
	End   float64
	Text  string
	Words []RawWord
}

// RawResult is a model's unrounded output.
type RawResult struct {
	Text     string
	Language string
	Duration float64
	Segments []RawSegment
	// Words is the flat word list when the model reports one separately
	// from segments.
	Words []RawWord
}

// Model turns an audio file into timed text. Implementations are not
// required to be safe for concurrent use.
type Model interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string, opts Options) (*RawResult, error)
	Close() error
}
