package transcribe

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metadata heads every transcript file.
type Metadata struct {
	Filename          string  `json:"filename"`
	Model             string  `json:"model"`
	Language          string  `json:"language"`
	TranscriptionDate string  `json:"transcription_date"`
	TotalDuration     float64 `json:"total_duration"`
	TotalWords        int     `json:"total_words"`
}

type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the JSON document written per sample.
type Transcript struct {
	Metadata Metadata  `json:"metadata"`
	FullText string    `json:"full_text"`
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words"`
}

// round6 keeps timestamps precise enough to cut individual words.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// BuildTranscript trims and rounds a raw result. Words come from the flat
// list when present, otherwise from the segments in order. The total
// duration is the end of the last segment.
func BuildTranscript(raw *RawResult, filename, model, language string, now time.Time) Transcript {
	t := Transcript{
		Metadata: Metadata{
			Filename:          filename,
			Model:             model,
			Language:          language,
			TranscriptionDate: now.Format("2006-01-02T15:04:05.000000"),
		},
		FullText: strings.TrimSpace(raw.Text),
		Segments: make([]Segment, 0, len(raw.Segments)),
		Words:    []Word{},
	}

	for _, s := range raw.Segments {
		t.Segments = append(t.Segments, Segment{
			ID:    s.ID,
			Start: round6(s.Start),
			End:   round6(s.End),
			Text:  strings.TrimSpace(s.Text),
		})
	}
	if n := len(raw.Segments); n > 0 {
		t.Metadata.TotalDuration = round6(raw.Segments[n-1].End)
	}

	words := raw.Words
	if len(words) == 0 {
		for _, s := range raw.Segments {
			words = append(words, s.Words...)
		}
	}
	for _, w := range words {
		t.Words = append(t.Words, Word{
			Word:       strings.TrimSpace(w.Word),
			Start:      round6(w.Start),
			End:        round6(w.End),
			Confidence: round6(w.Probability),
		})
	}
	t.Metadata.TotalWords = len(t.Words)
	return t
}

// WriteJSON writes t to dir as "<sample base name>.json" and returns the path.
// Non-ASCII text is written as is.
func WriteJSON(dir string, t Transcript) (string, error) {
	base := strings.TrimSuffix(t.Metadata.Filename, filepath.Ext(t.Metadata.Filename))
	path := filepath.Join(dir, base+".json")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
