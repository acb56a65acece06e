package logging

import (
	"fmt"
	"slices"
	"strings"

	"github.com/linuxmatters/cleanspeech/internal/processor"
)

// RecordingTip is one piece of advice derived from the input measurements.
type RecordingTip struct {
	Priority int    // 1-10, higher first
	Message  string
	RuleID   string
}

// MaxRecordingTips caps how many tips a report carries.
const MaxRecordingTips = 4

type tipRule func(m *processor.Measurements) *RecordingTip

// GenerateRecordingTips inspects the decoded input and returns prioritised
// advice for the next recording session.
func GenerateRecordingTips(m *processor.Measurements) []RecordingTip {
	if m == nil || isDigitalSilence(m.RMSLevel) {
		return nil
	}

	rules := []tipRule{
		tipClipping,
		tipTooQuiet,
		tipBackgroundNoise,
		tipMainsHum,
		tipPoorSNR,
	}

	var tips []RecordingTip
	fired := make(map[string]bool)
	for _, rule := range rules {
		if tip := rule(m); tip != nil {
			tips = append(tips, *tip)
			fired[tip.RuleID] = true
		}
	}
	tips = slices.DeleteFunc(tips, func(t RecordingTip) bool {
		// A noisy room already explains a poor ratio.
		return t.RuleID == "poor_snr" && fired["background_noise"]
	})

	slices.SortStableFunc(tips, func(a, b RecordingTip) int {
		return b.Priority - a.Priority
	})
	if len(tips) > MaxRecordingTips {
		tips = tips[:MaxRecordingTips]
	}
	return tips
}

func tipClipping(m *processor.Measurements) *RecordingTip {
	if m.PeakLevel < -0.1 {
		return nil
	}
	return &RecordingTip{
		Priority: 10,
		RuleID:   "clipping",
		Message:  "Your recording reaches full scale - turn the microphone gain down by 6 dB to avoid distortion.",
	}
}

func tipTooQuiet(m *processor.Measurements) *RecordingTip {
	if m.RMSLevel >= -35 {
		return nil
	}
	return &RecordingTip{
		Priority: 8,
		RuleID:   "too_quiet",
		Message:  fmt.Sprintf("Your recording is quiet (%.0f dBFS RMS) - raising the gain by about %.0f dB keeps speech well above the noise.", m.RMSLevel, -20-m.RMSLevel),
	}
}

func tipBackgroundNoise(m *processor.Measurements) *RecordingTip {
	if isDigitalSilence(m.NoiseFloor) || m.NoiseFloor <= -50 {
		return nil
	}
	return &RecordingTip{
		Priority: 9,
		RuleID:   "background_noise",
		Message:  fmt.Sprintf("Background noise is high (%.0f dBFS) - turn off fans or air conditioning before recording.", m.NoiseFloor),
	}
}

func tipMainsHum(m *processor.Measurements) *RecordingTip {
	if isDigitalSilence(m.HumLevel) || m.HumLevel < -65 {
		return nil
	}
	// Hum only matters when it stands out from the broadband floor.
	if !isDigitalSilence(m.NoiseFloor) && m.HumLevel < m.NoiseFloor+6 {
		return nil
	}
	return &RecordingTip{
		Priority: 7,
		RuleID:   "mains_hum",
		Message:  fmt.Sprintf("There is a %.0f Hz hum in your recording - move power supplies and chargers away from the microphone.", m.HumFreq),
	}
}

func tipPoorSNR(m *processor.Measurements) *RecordingTip {
	if isDigitalSilence(m.NoiseFloor) || m.RMSLevel-m.NoiseFloor >= 20 {
		return nil
	}
	return &RecordingTip{
		Priority: 6,
		RuleID:   "poor_snr",
		Message:  "Speech is close to the noise floor - move closer to the microphone.",
	}
}

// wrapText wraps at word boundaries, prefixing continuation lines with indent.
func wrapText(text string, maxWidth int, indent string) string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= maxWidth:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"+indent)
}
