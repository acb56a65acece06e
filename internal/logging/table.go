// Package logging provides structured logging and the text reports written
// for cleaned files and batch runs.
package logging

import (
	"fmt"
	"math"
	"strings"

	"github.com/linuxmatters/cleanspeech/internal/processor"
)

// MetricRow is one labelled row of a comparison table.
// Values are pre-formatted so rows can mix precisions.
type MetricRow struct {
	Label          string
	Values         []string // one per header
	Unit           string
	Interpretation string // optional, column shown only when a row sets it
}

// MetricTable renders aligned columns comparing a metric across
// processing points (Input, Enhanced, Final).
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// MissingValue is the placeholder for unavailable measurements
const MissingValue = "-"

// DigitalSilenceThreshold is the dBFS level at or below which a level is
// reported as silence rather than a number.
const DigitalSilenceThreshold = -120.0

// NewMetricTable creates a table with the Input/Enhanced/Final headers.
func NewMetricTable() *MetricTable {
	return &MetricTable{Headers: []string{"Input", "Enhanced", "Final"}}
}

// AddRow appends a row of pre-formatted values.
func (t *MetricTable) AddRow(label string, values []string, unit, interpretation string) {
	t.Rows = append(t.Rows, MetricRow{Label: label, Values: values, Unit: unit, Interpretation: interpretation})
}

// String renders the table. Labels are left-aligned, values right-aligned,
// and units follow the last value column.
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth, unitWidth := 0, 0
	hasInterpretation := false
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
		unitWidth = max(unitWidth, len(row.Unit))
		if row.Interpretation != "" {
			hasInterpretation = true
		}
		for i, v := range row.Values {
			if i < len(widths) {
				widths[i] = max(widths[i], len(v))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, h := range t.Headers {
		fmt.Fprintf(&sb, "%*s  ", widths[i], h)
	}
	if hasInterpretation {
		if unitWidth > 0 {
			sb.WriteString(strings.Repeat(" ", unitWidth+1))
		}
		sb.WriteString("Interpretation")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		fmt.Fprintf(&sb, "%-*s  ", labelWidth, row.Label)
		for i := range t.Headers {
			v := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				v = row.Values[i]
			}
			fmt.Fprintf(&sb, "%*s  ", widths[i], v)
		}
		if unitWidth > 0 {
			fmt.Fprintf(&sb, "%-*s ", unitWidth, row.Unit)
		}
		if hasInterpretation {
			sb.WriteString(row.Interpretation)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// MeasurementTable lays out the three measuring points of a file. Any of the
// measurements may be nil and renders as missing.
func MeasurementTable(input, enhanced, final *processor.Measurements) *MetricTable {
	points := []*processor.Measurements{input, enhanced, final}
	column := func(f func(m *processor.Measurements) string) []string {
		out := make([]string, len(points))
		for i, m := range points {
			if m == nil {
				out[i] = MissingValue
				continue
			}
			out[i] = f(m)
		}
		return out
	}

	t := NewMetricTable()
	t.AddRow("Duration", column(func(m *processor.Measurements) string {
		return formatMetric(m.Duration, 2)
	}), "s", "")
	t.AddRow("RMS Level", column(func(m *processor.Measurements) string {
		return formatMetricDB(m.RMSLevel, 1)
	}), "dBFS", interpretRMS(final))
	t.AddRow("Peak Level", column(func(m *processor.Measurements) string {
		return formatMetricDB(m.PeakLevel, 1)
	}), "dBFS", interpretPeak(final))
	t.AddRow("Noise Floor", column(func(m *processor.Measurements) string {
		return formatMetricDB(m.NoiseFloor, 1)
	}), "dBFS", interpretNoiseFloor(final))
	t.AddRow("Mains Hum", column(func(m *processor.Measurements) string {
		return formatMetricDB(m.HumLevel, 1)
	}), "dBFS", "")
	return t
}

func interpretRMS(m *processor.Measurements) string {
	if m == nil || isDigitalSilence(m.RMSLevel) {
		return ""
	}
	switch {
	case m.RMSLevel < -30:
		return "quiet"
	case m.RMSLevel > -12:
		return "hot"
	default:
		return "normal"
	}
}

func interpretPeak(m *processor.Measurements) string {
	if m == nil || isDigitalSilence(m.PeakLevel) {
		return ""
	}
	if m.PeakLevel > -0.1 {
		return "clipping risk"
	}
	return "headroom ok"
}

func interpretNoiseFloor(m *processor.Measurements) string {
	if m == nil {
		return ""
	}
	switch {
	case isDigitalSilence(m.NoiseFloor):
		return "digital silence"
	case m.NoiseFloor < -60:
		return "clean"
	case m.NoiseFloor < -45:
		return "audible hiss"
	default:
		return "noisy"
	}
}

func isDigitalSilence(value float64) bool {
	return math.IsInf(value, -1) || value <= DigitalSilenceThreshold
}

// formatMetric formats a value to the given decimals, using scientific
// notation below 1e-4 and MissingValue for NaN or Inf.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricDB shows "< -120" at or below the silence floor.
func formatMetricDB(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 1) {
		return MissingValue
	}
	if isDigitalSilence(value) {
		return "< -120"
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricSigned keeps an explicit sign, for gains like "+2.5".
func formatMetricSigned(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, value)
}
