package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/linuxmatters/cleanspeech/internal/config"
	"github.com/linuxmatters/cleanspeech/internal/logging"
	"github.com/linuxmatters/cleanspeech/internal/mains"
	"github.com/linuxmatters/cleanspeech/internal/processor"
	"github.com/linuxmatters/cleanspeech/internal/ui"
)

// CleanCmd runs the cleaning pipeline over a directory
type CleanCmd struct {
	Input     string `short:"i" type:"path" placeholder:"DIR" help:"Directory of raw recordings"`
	Output    string `short:"o" type:"path" placeholder:"DIR" help:"Directory for cleaned files"`
	Plain     bool   `help:"Print plain progress lines instead of the interactive display"`
	Logs      bool   `help:"Save an analysis report next to each cleaned file"`
	GapPolicy string `name:"gap-policy" placeholder:"POLICY" help:"Where stitching gaps go: kept or original"`
}

// Run loads settings, then processes every matching file.
func (c *CleanCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	if c.Input != "" {
		cfg.InputDir = c.Input
	}
	if c.Output != "" {
		cfg.OutputDir = c.Output
	}
	if c.GapPolicy != "" {
		cfg.Segment.GapPolicy = c.GapPolicy
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	hum, err := mains.Resolve(cfg.Mains)
	if err != nil {
		return err
	}
	chain, err := cfg.Chain(hum.Hz)
	if err != nil {
		return err
	}

	log, closeLog, err := logging.NewLogger(logging.LoggerOptions{DebugLogPath: g.DebugLog, Console: c.Plain})
	if err != nil {
		return err
	}
	defer closeLog()

	queue, err := processor.ScanDir(cfg.InputDir, cfg.InputGlob)
	if err != nil {
		return err
	}

	batch := processor.NewBatch(processor.Options{Config: chain, OutputDir: cfg.OutputDir, Logger: log})
	batch.InputDir = cfg.InputDir
	log.Info("starting batch",
		zap.String("run_id", batch.RunID),
		zap.String("input", cfg.InputDir),
		zap.String("output", cfg.OutputDir),
		zap.Int("files", queue.Len()),
		zap.Stringer("mains", hum))

	ctx, cancel := interruptContext()
	defer cancel()

	// An empty directory is reported like any other run, so skip the
	// interactive display that would only flash on screen.
	if c.Plain || queue.Len() == 0 {
		return runPlain(ctx, batch, queue, c.Logs, log)
	}
	return runInteractive(ctx, cancel, batch, queue, c.Logs, log)
}

func runPlain(ctx context.Context, batch *processor.Batch, queue *processor.Queue, logs bool, log *zap.Logger) error {
	ui.AttachPrinter(os.Stdout, batch, queue.Len())
	if logs {
		attachReports(batch, log)
	}

	summary, err := batch.Run(ctx, queue.All())
	if err != nil {
		return err
	}
	fmt.Println()
	logging.WriteBatchReport(os.Stdout, summary)
	return nil
}

func runInteractive(ctx context.Context, cancel context.CancelFunc, batch *processor.Batch, queue *processor.Queue, logs bool, log *zap.Logger) error {
	model := ui.NewModel(queue.Names(), cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ui.Attach(p, batch)
	if logs {
		attachReports(batch, log)
	}

	go func() {
		summary, err := batch.Run(ctx, queue.All())
		p.Send(ui.BatchDoneMsg{Summary: summary, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("UI error: %w", err)
	}

	// The alternate screen is gone once the program exits, so repeat the
	// summary on the normal terminal.
	m, ok := final.(ui.Model)
	if !ok {
		return nil
	}
	if m.Summary != nil {
		logging.WriteBatchReport(os.Stdout, m.Summary)
	}
	return m.Err
}

// attachReports writes an analysis report for every cleaned file, keeping
// whatever callbacks the display already installed.
func attachReports(batch *processor.Batch, log *zap.Logger) {
	onStart, onDone := batch.OnFileStart, batch.OnFileDone
	var began time.Time

	batch.OnFileStart = func(index int, src processor.Source) {
		began = time.Now()
		if onStart != nil {
			onStart(index, src)
		}
	}
	batch.OnFileDone = func(index int, src processor.Source, res *processor.ProcessingResult, err error) {
		if err == nil {
			path, rerr := logging.GenerateReport(logging.ReportData{Result: res, StartTime: began, EndTime: time.Now()})
			if rerr != nil {
				log.Warn("failed to write report", zap.String("file", src.Name), zap.Error(rerr))
			} else {
				log.Debug("report written", zap.String("file", src.Name), zap.String("path", path))
			}
		}
		if onDone != nil {
			onDone(index, src, res, err)
		}
	}
}
