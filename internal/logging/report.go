package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/linuxmatters/cleanspeech/internal/processor"
)

// writeSection writes a title with a dashed underline of the same length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// ReportData contains everything needed to write the per-file report
type ReportData struct {
	Result    *processor.ProcessingResult
	StartTime time.Time
	EndTime   time.Time
}

// ReportPath returns the report path for an output file:
// clean_talk.wav becomes clean_talk.log.
func ReportPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".log"
}

// GenerateReport writes a report alongside the cleaned output file and
// returns its path.
func GenerateReport(data ReportData) (path string, err error) {
	if data.Result == nil || data.Result.OutputPath == "" {
		return "", errors.New("report needs a processing result with an output path")
	}
	path = ReportPath(data.Result.OutputPath)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	WriteFileReport(f, data)
	return path, nil
}

// WriteFileReport renders the per-file report to w.
func WriteFileReport(w io.Writer, data ReportData) {
	r := data.Result

	fmt.Fprintf(w, "cleanspeech report: %s\n", r.Name)
	fmt.Fprintln(w, strings.Repeat("=", 20+len(r.Name)))
	fmt.Fprintf(w, "Input:     %s\n", r.InputPath)
	fmt.Fprintf(w, "Output:    %s\n", r.OutputPath)
	fmt.Fprintf(w, "Format:    %d Hz, %s\n", r.SampleRate, channelName(r.Channels))
	if !data.StartTime.IsZero() {
		fmt.Fprintf(w, "Processed: %s\n", data.StartTime.Format(time.RFC1123))
	}
	fmt.Fprintf(w, "Elapsed:   %s\n", formatDuration(r.Elapsed))
	fmt.Fprintln(w)

	writeSection(w, "Duration")
	fmt.Fprintf(w, "Original:  %ss\n", formatMetric(r.OriginalDuration, 3))
	fmt.Fprintf(w, "Final:     %ss\n", formatMetric(r.FinalDuration, 3))
	fmt.Fprintf(w, "Reduction: %s%%\n", formatMetric(r.Reduction, 1))
	fmt.Fprintln(w)

	writeSection(w, "Stages")
	writeStages(w, r.Stages)
	fmt.Fprintln(w)

	writeSection(w, "Segmentation")
	writeSegment(w, r.Segment, r.Config)
	fmt.Fprintln(w)

	writeSection(w, "Measurements")
	fmt.Fprint(w, MeasurementTable(r.Input, r.Enhanced, r.Final).String())

	if warnings := r.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w)
		writeSection(w, "Warnings")
		for _, msg := range warnings {
			fmt.Fprintf(w, "  ! %s\n", msg)
		}
	}

	if tips := GenerateRecordingTips(r.Input); len(tips) > 0 {
		fmt.Fprintln(w)
		writeSection(w, "Recording Tips")
		for _, tip := range tips {
			fmt.Fprintf(w, "  * %s\n", wrapText(tip.Message, 72, "    "))
		}
	}
}

func writeStages(w io.Writer, stages []processor.StageRecord) {
	width := 0
	for _, s := range stages {
		width = max(width, len(s.Stage))
	}
	for _, s := range stages {
		mark := "-"
		if s.Applied {
			mark = "+"
		}
		if s.Warning != "" {
			mark = "!"
		}
		detail := s.Detail
		if s.Warning != "" {
			detail = s.Warning
		}
		fmt.Fprintf(w, "%s %-*s  %s\n", mark, width, s.Stage, detail)
	}
}

func writeSegment(w io.Writer, s processor.SegmentSummary, cfg *processor.ChainConfig) {
	if cfg != nil {
		fmt.Fprintf(w, "Silence:   >= %d ms below %s dBFS\n", cfg.MinSilenceMs, formatMetric(cfg.SilenceThreshDB, 0))
		fmt.Fprintf(w, "Chunks:    kept when longer than %d ms, %d ms padding, %d ms gaps (%s)\n",
			cfg.MinChunkMs, cfg.KeepSilenceMs, cfg.GapMs, cfg.GapPolicy)
	}
	fmt.Fprintf(w, "Found:     %d chunk(s), %d kept, %d gap(s)\n", s.Chunks, s.Kept, s.Gaps)
	switch {
	case s.NoSpeech:
		fmt.Fprintln(w, "Result:    no speech detected, original track kept")
	case s.Recovered:
		fmt.Fprintln(w, "Result:    segmentation failed, enhanced track kept")
	case s.Stitched:
		fmt.Fprintln(w, "Result:    stitched")
	default:
		fmt.Fprintln(w, "Result:    unchanged")
	}
}

// WriteBatchReport renders the end-of-run summary.
func WriteBatchReport(w io.Writer, s *processor.BatchSummary) {
	writeSection(w, "Batch Summary")
	fmt.Fprintf(w, "Run:        %s\n", s.RunID)
	fmt.Fprintf(w, "Output:     %s\n", s.OutputDir)
	fmt.Fprintf(w, "Processed:  %d/%d succeeded", s.Succeeded, s.Attempted)
	if s.Failed() > 0 {
		fmt.Fprintf(w, ", %d failed", s.Failed())
	}
	fmt.Fprintln(w)
	if s.Cancelled {
		fmt.Fprintln(w, "Cancelled:  remaining files were not processed")
	}
	fmt.Fprintf(w, "Elapsed:    %s\n", formatDuration(s.Elapsed))

	if s.Attempted == 0 && !s.Cancelled {
		fmt.Fprintln(w)
		if s.InputDir != "" {
			fmt.Fprintf(w, "Nothing to do: %v in %s\n", processor.ErrNoInputFiles, s.InputDir)
		} else {
			fmt.Fprintf(w, "Nothing to do: %v\n", processor.ErrNoInputFiles)
		}
	}

	if s.Succeeded > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Mean original duration: %ss\n", formatMetric(s.MeanOriginalDuration, 2))
		fmt.Fprintf(w, "Mean final duration:    %ss\n", formatMetric(s.MeanFinalDuration, 2))
		fmt.Fprintf(w, "Mean reduction:         %s%%\n", formatMetric(s.MeanReduction, 1))
	}

	if names := s.NoSpeech(); len(names) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No speech detected:")
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}

	if len(s.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed files:")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %s [%s]: %v\n", f.Name, f.Stage, f.Err)
		}
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", minutes/60, minutes%60, seconds)
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo, downmixed"
	default:
		return fmt.Sprintf("%d channels, downmixed", channels)
	}
}
