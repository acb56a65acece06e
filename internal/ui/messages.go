package ui

import (
	"github.com/linuxmatters/cleanspeech/internal/processor"
)

// FileStartMsg indicates a new file has started processing
type FileStartMsg struct {
	Index int // 0-based position in the queue
	Name  string
}

// StageMsg reports progress through the current file
type StageMsg struct {
	Stage        processor.StageID
	Progress     float64 // 0.0 to 1.0
	Measurements *processor.Measurements
}

// FileDoneMsg indicates a file has finished, successfully or not
type FileDoneMsg struct {
	Index  int
	Result *processor.ProcessingResult
	Err    error
}

// BatchDoneMsg carries the run summary and ends the program
type BatchDoneMsg struct {
	Summary *processor.BatchSummary
	Err     error
}

// tickMsg advances the spinner
type tickMsg struct{}
