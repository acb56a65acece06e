package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/cleanspeech/internal/processor"
)

var (
	accentColor = lipgloss.Color("#2E8B57")
	mutedColor  = lipgloss.Color("#888888")
	warnColor   = lipgloss.Color("#FFA500")
	errorColor  = lipgloss.Color("#A40000")

	okIcon     = lipgloss.NewStyle().Foreground(accentColor).Render("✓")
	warnIcon   = lipgloss.NewStyle().Foreground(warnColor).Render("!")
	errorIcon  = lipgloss.NewStyle().Foreground(errorColor).Render("✗")
	queuedIcon = lipgloss.NewStyle().Foreground(mutedColor).Render("○")

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// stageLabels names the pipeline steps shown while a file is active
var stageLabels = map[processor.StageID]string{
	processor.StageDecode:       "Decoding",
	processor.StageNormalise:    "Normalising loudness",
	processor.StageDenoise:      "Suppressing noise",
	processor.StageEnhance:      "Enhancing speech",
	processor.StageIntermediate: "Writing intermediate",
	processor.StageSegment:      "Removing silences",
	processor.StageEncode:       "Writing output",
}

func renderProcessingView(m Model) string {
	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	for _, f := range m.Files {
		b.WriteString(renderFileEntry(f, m.spinnerIndex))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(renderOverallProgress(m))
	return b.String()
}

func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render("cleanspeech - Speech Audio Cleaner")

	sub := fmt.Sprintf("Cleaning %d file(s)", len(m.Files))
	if m.Cancelling {
		sub += " - stopping after the current file"
	}
	return title + "\n" + lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render(sub)
}

func renderFileEntry(f FileProgress, spinner int) string {
	switch f.Status {
	case StatusComplete:
		icon := okIcon
		if f.Result != nil && len(f.Result.Warnings()) > 0 {
			icon = warnIcon
		}
		return fmt.Sprintf(" %s %s\n   %s", icon, f.Name, resultLine(f.Result))

	case StatusError:
		return fmt.Sprintf(" %s %s\n   %s", errorIcon, f.Name,
			lipgloss.NewStyle().Foreground(errorColor).Render(fmt.Sprintf("Error: %v", f.Error)))

	case StatusActive:
		icon := lipgloss.NewStyle().Foreground(warnColor).Render(spinnerFrames[spinner%len(spinnerFrames)])
		return fmt.Sprintf(" %s %s\n%s", icon, f.Name, renderFileDetails(f))

	default:
		return fmt.Sprintf(" %s %s", queuedIcon, mutedStyle.Render(f.Name))
	}
}

// resultLine summarises a finished file in one line
func resultLine(r *processor.ProcessingResult) string {
	if r == nil {
		return ""
	}
	line := fmt.Sprintf("%.1fs → %.1fs (-%.0f%%)", r.OriginalDuration, r.FinalDuration, r.Reduction)
	switch {
	case r.Segment.NoSpeech:
		line += " | no speech detected"
	case r.Segment.Recovered:
		line += " | segmentation skipped"
	default:
		line += fmt.Sprintf(" | %d of %d chunks kept", r.Segment.Kept, r.Segment.Chunks)
	}
	return line
}

func renderFileDetails(f FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Width(60)

	var content strings.Builder
	label := stageLabels[f.Stage]
	if label == "" {
		label = "Starting"
	}
	content.WriteString(label)
	content.WriteString("\n")
	content.WriteString(renderProgressBar(f.Progress, 40))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("⏱  Elapsed: %.1fs", f.Elapsed.Seconds()))
	if f.Input != nil {
		content.WriteString(fmt.Sprintf("\n📊 Input: %.1fs | RMS %.1f dBFS | Noise floor %.1f dBFS",
			f.Input.Duration, f.Input.RMSLevel, f.Input.NoiseFloor))
	}
	return box.Render(content.String())
}

func renderProgressBar(progress float64, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %d%%", bar, int(progress*100))
}

func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(60)

	var content string
	if m.CurrentIndex >= 0 {
		content = fmt.Sprintf("File %d of %d (%d done, %d failed)",
			m.CurrentIndex+1, len(m.Files), m.CompletedFiles, m.FailedFiles)
	} else {
		content = fmt.Sprintf("Waiting to start: %d file(s)", len(m.Files))
	}
	return box.Render(content + "\n" + mutedStyle.Render("q to stop after the current file"))
}

func renderCompletionSummary(m Model) string {
	var b strings.Builder

	headline := "✨ Cleaning Complete!"
	colour := accentColor
	switch {
	case m.Err != nil:
		headline, colour = "Cleaning Failed", errorColor
	case m.Summary != nil && m.Summary.Cancelled:
		headline, colour = "Cleaning Stopped", warnColor
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colour).Render(headline))
	b.WriteString("\n\n")

	if m.Err != nil {
		b.WriteString(fmt.Sprintf("Error: %v\n", m.Err))
		return b.String()
	}

	for _, f := range m.Files {
		switch f.Status {
		case StatusComplete:
			b.WriteString(fmt.Sprintf(" %s %s → %s\n   %s\n", okIcon, f.Name, outputName(f.Result), resultLine(f.Result)))
		case StatusError:
			b.WriteString(fmt.Sprintf(" %s %s\n   %v\n", errorIcon, f.Name, f.Error))
		}
	}

	if s := m.Summary; s != nil {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", 60))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%d succeeded, %d failed in %.1fs\n", s.Succeeded, s.Failed(), s.Elapsed.Seconds()))
		if s.Succeeded > 0 {
			b.WriteString(fmt.Sprintf("Mean duration %.1fs → %.1fs (-%.0f%%)\n",
				s.MeanOriginalDuration, s.MeanFinalDuration, s.MeanReduction))
		}
		b.WriteString(mutedStyle.Render("Output: "+s.OutputDir) + "\n")
	}
	return b.String()
}

func outputName(r *processor.ProcessingResult) string {
	if r == nil {
		return ""
	}
	return filepath.Base(r.OutputPath)
}
