package ui

import (
	"fmt"
	"io"

	"github.com/linuxmatters/cleanspeech/internal/audio"
	"github.com/linuxmatters/cleanspeech/internal/processor"
)

// AttachPrinter reports a batch as plain lines on w, for terminals without
// the full-screen interface or for piping to a file.
func AttachPrinter(w io.Writer, b *processor.Batch, total int) {
	b.OnFileStart = func(index int, src processor.Source) {
		fmt.Fprintf(w, "[%d/%d] %s%s\n", index, total, src.Name, describeSource(src))
	}
	b.OnFileDone = func(_ int, _ processor.Source, res *processor.ProcessingResult, err error) {
		if err != nil {
			fmt.Fprintf(w, "  %s %v\n", errorIcon, err)
			return
		}
		icon := okIcon
		for _, msg := range res.Warnings() {
			icon = warnIcon
			fmt.Fprintf(w, "  %s %s\n", warnIcon, msg)
		}
		fmt.Fprintf(w, "  %s %s → %s\n", icon, resultLine(res), outputName(res))
	}
}

// describeSource reads the file header for a short description of what is
// about to be cleaned. Sources without a path, or unreadable headers, get
// nothing; decoding reports the real error.
func describeSource(src processor.Source) string {
	if src.Path == "" {
		return ""
	}
	meta, err := audio.Probe(src.Path)
	if err != nil {
		return ""
	}
	channels := "mono"
	if meta.Channels > 1 {
		channels = fmt.Sprintf("%d channels", meta.Channels)
	}
	return " " + mutedStyle.Render(fmt.Sprintf("(%.1fs, %d Hz, %s)", meta.Duration, meta.SampleRate, channels))
}
