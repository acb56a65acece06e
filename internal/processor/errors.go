package processor

import (
	"errors"
	"fmt"
)

// ErrNoInputFiles is reported when a batch finds nothing to process.
var ErrNoInputFiles = errors.New("no input files found")

// StageError records which stage a file failed in.
type StageError struct {
	File  string
	Stage StageID
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.File, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(file string, stage StageID, err error) error {
	return &StageError{File: file, Stage: stage, Err: err}
}

// FailedStage returns the stage named by a StageError in err's chain.
func FailedStage(err error) (StageID, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
