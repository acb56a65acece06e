package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/linuxmatters/cleanspeech/internal/cli"
)

var (
	version = "0.1.0"
)

// Globals are flags shared by every command
type Globals struct {
	Version  bool   `short:"v" help:"Show version information"`
	Config   string `short:"c" type:"path" placeholder:"FILE" help:"Path to YAML config file (optional)"`
	DebugLog string `name:"debug-log" type:"path" placeholder:"FILE" help:"Write a JSON debug log to FILE"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Clean      CleanCmd      `cmd:"" default:"withargs" help:"Clean a directory of speech recordings (default)"`
	Transcribe TranscribeCmd `cmd:"" help:"Rename cleaned recordings and transcribe them with Whisper"`
	Strip      StripCmd      `cmd:"" help:"Strip the opening phrase from verse transcripts"`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("cleanspeech"),
		kong.Description("Offline speech audio cleaner"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if err := ctx.Run(&cliArgs.Globals); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// interruptContext is cancelled on SIGINT. The TUI reads ctrl+c as a key
// instead, so this only matters for plain output and the text commands.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printCount(label string, n int) {
	cli.PrintField(os.Stdout, label, n)
}
