// Package ui provides the Bubbletea terminal user interface for cleanspeech
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/cleanspeech/internal/processor"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusActive
	StatusComplete
	StatusError
)

// FileProgress tracks progress for a single audio file
type FileProgress struct {
	Name     string
	Status   FileStatus
	Stage    processor.StageID
	Progress float64

	StartTime time.Time
	Elapsed   time.Duration

	// Latest measurements seen for the file, input first.
	Input  *processor.Measurements
	Result *processor.ProcessingResult
	Error  error
}

// Model is the Bubbletea model for a cleaning run
type Model struct {
	Files          []FileProgress
	CurrentIndex   int
	CompletedFiles int
	FailedFiles    int

	StartTime time.Time
	Done      bool
	Summary   *processor.BatchSummary
	Err       error

	// Cancel is called on q or ctrl+c so the batch stops after the
	// current file.
	Cancel     func()
	Cancelling bool

	spinnerIndex int

	Width  int
	Height int
}

// spinnerFrames animate the active file
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewModel creates a UI model for the named files
func NewModel(names []string, cancel func()) Model {
	files := make([]FileProgress, len(names))
	for i, n := range names {
		files[i] = FileProgress{Name: n, Status: StatusQueued}
	}
	return Model{
		Files:        files,
		CurrentIndex: -1,
		StartTime:    time.Now(),
		Cancel:       cancel,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.Done {
				return m, tea.Quit
			}
			if !m.Cancelling && m.Cancel != nil {
				m.Cancelling = true
				m.Cancel()
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		if f := m.current(); f != nil {
			f.Elapsed = time.Since(f.StartTime)
		}
		return m, tick()

	case FileStartMsg:
		if msg.Index < 0 || msg.Index >= len(m.Files) {
			return m, nil
		}
		m.CurrentIndex = msg.Index
		f := &m.Files[msg.Index]
		f.Status = StatusActive
		f.StartTime = time.Now()
		f.Progress = 0

	case StageMsg:
		if f := m.current(); f != nil {
			f.Stage = msg.Stage
			f.Progress = msg.Progress
			if msg.Measurements != nil && f.Input == nil {
				f.Input = msg.Measurements
			}
		}

	case FileDoneMsg:
		if msg.Index < 0 || msg.Index >= len(m.Files) {
			return m, nil
		}
		f := &m.Files[msg.Index]
		f.Elapsed = time.Since(f.StartTime)
		f.Result = msg.Result
		f.Error = msg.Err
		if msg.Err != nil {
			f.Status = StatusError
			m.FailedFiles++
		} else {
			f.Status = StatusComplete
			f.Progress = 1
			m.CompletedFiles++
		}

	case BatchDoneMsg:
		m.Done = true
		m.Summary = msg.Summary
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) current() *FileProgress {
	if m.CurrentIndex < 0 || m.CurrentIndex >= len(m.Files) {
		return nil
	}
	return &m.Files[m.CurrentIndex]
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 && !m.Done {
		return fmt.Sprintf("Starting...\nFiles: %d\n", len(m.Files))
	}
	if m.Done {
		return renderCompletionSummary(m)
	}
	return renderProcessingView(m)
}

// Sender is the part of *tea.Program the batch hooks need.
type Sender interface {
	Send(msg tea.Msg)
}

// Attach routes a batch's callbacks into the program as messages.
func Attach(p Sender, b *processor.Batch) {
	b.OnFileStart = func(index int, src processor.Source) {
		p.Send(FileStartMsg{Index: index - 1, Name: src.Name})
	}
	b.OnFileDone = func(index int, _ processor.Source, res *processor.ProcessingResult, err error) {
		p.Send(FileDoneMsg{Index: index - 1, Result: res, Err: err})
	}
	b.Options.Progress = func(stage processor.StageID, progress float64, m *processor.Measurements) {
		p.Send(StageMsg{Stage: stage, Progress: progress, Measurements: m})
	}
}
