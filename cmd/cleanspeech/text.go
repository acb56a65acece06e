package main

import (
	"fmt"
	"os"

	"github.com/linuxmatters/cleanspeech/internal/cli"
	"github.com/linuxmatters/cleanspeech/internal/config"
	"github.com/linuxmatters/cleanspeech/internal/logging"
	"github.com/linuxmatters/cleanspeech/internal/textclean"
	"github.com/linuxmatters/cleanspeech/internal/transcribe"
)

// TranscribeCmd renames cleaned files to sample names and transcribes them
type TranscribeCmd struct {
	Input    string `short:"i" type:"path" placeholder:"DIR" help:"Directory of cleaned recordings (defaults to the clean output directory)"`
	Renamed  string `type:"path" placeholder:"DIR" help:"Directory for renamed copies"`
	Output   string `short:"o" type:"path" placeholder:"DIR" help:"Directory for transcript JSON"`
	Language string `placeholder:"CODE" help:"Spoken language as an ISO-639-1 code"`
}

// Run transcribes every cleaned recording, continuing past failures.
func (t *TranscribeCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	tc := cfg.Transcribe
	input := cfg.OutputDir
	if t.Input != "" {
		input = t.Input
	}
	if t.Renamed != "" {
		tc.RenamedDir = t.Renamed
	}
	if t.Output != "" {
		tc.OutputDir = t.Output
	}
	if t.Language != "" {
		tc.Language = t.Language
	}

	log, closeLog, err := logging.NewLogger(logging.LoggerOptions{DebugLogPath: g.DebugLog, Console: true})
	if err != nil {
		return err
	}
	defer closeLog()

	model, err := transcribe.NewOpenAIModel(tc.APIKey, transcribe.WithModel(tc.Model))
	if err != nil {
		return err
	}
	defer model.Close()

	runner := &transcribe.Runner{
		Model:      model,
		Options:    transcribe.Options{Language: tc.Language},
		Logger:     log,
		Prefix:     cfg.Output.Prefix,
		Label:      tc.Label,
		RenamedDir: tc.RenamedDir,
		OutputDir:  tc.OutputDir,
		OnFile: func(index, total int, s transcribe.Sample, err error) {
			status := "ok"
			if err != nil {
				status = err.Error()
			}
			fmt.Printf("[%d/%d] %s: %s\n", index+1, total, s.Name, status)
		},
	}

	ctx, cancel := interruptContext()
	defer cancel()

	summary, err := runner.Run(ctx, input)
	if err != nil {
		return err
	}

	fmt.Println()
	printCount("Samples", len(summary.Samples))
	printCount("Written", len(summary.Transcripts))
	printCount("Failed", len(summary.Failures))
	cli.PrintField(os.Stdout, "Output", tc.OutputDir)
	if summary.Cancelled {
		cli.PrintError("transcription stopped before every sample was processed")
	}
	return nil
}

// StripCmd removes the opening phrase from verse transcript files
type StripCmd struct {
	Input  string `short:"i" type:"path" placeholder:"DIR" help:"Directory of surah JSON files"`
	Output string `short:"o" type:"path" placeholder:"DIR" help:"Directory for cleaned files"`
	Words  int    `placeholder:"N" help:"Number of leading words to remove from the first verse"`
}

// Run cleans every surah file in the input directory.
func (s *StripCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	sc := cfg.Strip
	if s.Input != "" {
		sc.InputDir = s.Input
	}
	if s.Output != "" {
		sc.OutputDir = s.Output
	}
	if s.Words > 0 {
		sc.Words = s.Words
	}

	log, closeLog, err := logging.NewLogger(logging.LoggerOptions{DebugLogPath: g.DebugLog, Console: true})
	if err != nil {
		return err
	}
	defer closeLog()

	cleaner := &textclean.Cleaner{Words: sc.Words, Suffix: sc.Suffix, Logger: log}
	rep, err := cleaner.CleanDir(sc.InputDir, sc.OutputDir)
	if err != nil {
		return err
	}

	printCount("Processed", rep.Processed)
	printCount("Stripped", rep.Stripped)
	printCount("Skipped", len(rep.Skipped))
	printCount("Failed", len(rep.Failed))
	cli.PrintField(os.Stdout, "Output", sc.OutputDir)
	for name, ferr := range rep.Failed {
		cli.PrintError(fmt.Sprintf("%s: %v", name, ferr))
	}
	return nil
}
