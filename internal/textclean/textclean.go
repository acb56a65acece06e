// Package textclean removes the opening phrase from the first verse of
// surah text files.
package textclean

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultWords is the length of the opening phrase in words.
const DefaultWords = 4

// ErrNoVerses marks a file without any verses.
var ErrNoVerses = errors.New("no verses in file")

// Verse is one numbered verse. Other per-verse fields, such as timings or
// audio references, are kept in Extra.
type Verse struct {
	Number int
	Text   string

	Extra map[string]json.RawMessage
}

// UnmarshalJSON reads a verse, keeping unknown fields.
func (v *Verse) UnmarshalJSON(data []byte) error {
	extra, err := decodeKnown(data, []field{
		{"verse_number", &v.Number},
		{"text", &v.Text},
	})
	if err != nil {
		return err
	}
	v.Extra = extra
	return nil
}

// MarshalJSON writes the verse with any kept extras.
func (v Verse) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Extra)+2)
	for k, raw := range v.Extra {
		out[k] = raw
	}
	out["verse_number"] = v.Number
	out["text"] = v.Text
	return encode(out, false)
}

// Surah is a surah document. Fields this package does not know about are
// kept in Extra and written back unchanged.
type Surah struct {
	Name   string
	Verses []Verse

	BasmalahRemoved    bool
	OriginalFirstVerse string
	RemovedBasmalah    string
	CorrectionNote     string
	Note               string

	Extra map[string]json.RawMessage
}

// StripResult tells what StripLeadingWords did.
type StripResult int

const (
	Stripped      StripResult = iota // words removed
	OnlyOpening                      // first verse was exactly the opening phrase
	TooShort                         // first verse had fewer words than the phrase
	NoVerses
)

// StripLeadingWords removes the first n words of the first verse when it
// has more than n words, recording what was removed. A first verse of
// exactly n words, or fewer, is left alone with a note.
func StripLeadingWords(s *Surah, n int) StripResult {
	if len(s.Verses) == 0 {
		return NoVerses
	}
	first := &s.Verses[0]
	words := strings.Fields(first.Text)

	switch {
	case len(words) > n:
		s.BasmalahRemoved = true
		s.OriginalFirstVerse = first.Text
		s.RemovedBasmalah = strings.Join(words[:n], " ")
		s.CorrectionNote = fmt.Sprintf("removed the first %d words (the basmalah) from the first verse", n)
		first.Text = strings.Join(words[n:], " ")
		return Stripped
	case len(words) == n:
		s.Note = "the first verse contained only the basmalah"
		return OnlyOpening
	default:
		s.Note = fmt.Sprintf("the first verse contains only %d words", len(words))
		return TooShort
	}
}

// field binds a JSON key to the value it decodes into.
type field struct {
	key string
	dst any
}

// decodeKnown decodes the listed keys of a JSON object and returns the rest,
// or nil when there is nothing else.
func decodeKnown(data []byte, fields []field) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		delete(raw, f.key)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// UnmarshalJSON reads a surah document, keeping unknown fields.
func (s *Surah) UnmarshalJSON(data []byte) error {
	extra, err := decodeKnown(data, []field{
		{"surah_name", &s.Name},
		{"verses", &s.Verses},
		{"basmalah_removed", &s.BasmalahRemoved},
		{"original_first_verse", &s.OriginalFirstVerse},
		{"removed_basmalah", &s.RemovedBasmalah},
		{"correction_note", &s.CorrectionNote},
		{"note", &s.Note},
	})
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

// MarshalJSON writes the known fields and any kept extras. Empty cleanup
// fields are omitted.
func (s Surah) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+7)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.Name != "" {
		out["surah_name"] = s.Name
	}
	out["verses"] = s.Verses
	if s.BasmalahRemoved {
		out["basmalah_removed"] = true
		out["original_first_verse"] = s.OriginalFirstVerse
		out["removed_basmalah"] = s.RemovedBasmalah
		out["correction_note"] = s.CorrectionNote
	}
	if s.Note != "" {
		out["note"] = s.Note
	}
	return encode(out, true)
}

// encode writes v without HTML escaping so Arabic and punctuation stay
// readable in the output files.
func encode(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Report counts the outcome of CleanDir.
type Report struct {
	Processed int // files written
	Stripped  int // files whose first verse was shortened
	Skipped   []string
	Failed    map[string]error
}

// Cleaner strips the opening phrase from every surah file in a directory.
type Cleaner struct {
	Words  int
	Suffix string // appended to output base names
	Logger *zap.Logger
}

// CleanDir processes inDir/*.json in name order, writing the cleaned JSON
// and a numbered text listing per surah to outDir.
func (c *Cleaner) CleanDir(inDir, outDir string) (*Report, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	words := c.Words
	if words <= 0 {
		words = DefaultWords
	}

	files, err := filepath.Glob(filepath.Join(inDir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no JSON files in %s", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	rep := &Report{Failed: make(map[string]error)}
	for _, path := range files {
		name := filepath.Base(path)
		res, err := c.cleanFile(path, outDir, words)
		switch {
		case errors.Is(err, ErrNoVerses):
			log.Warn("no verses", zap.String("file", name))
			rep.Skipped = append(rep.Skipped, name)
		case err != nil:
			log.Warn("clean failed", zap.String("file", name), zap.Error(err))
			rep.Failed[name] = err
		default:
			rep.Processed++
			if res == Stripped {
				rep.Stripped++
			}
			log.Debug("surah cleaned", zap.String("file", name), zap.Int("result", int(res)))
		}
	}
	return rep, nil
}

func (c *Cleaner) cleanFile(path, outDir string, words int) (StripResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return NoVerses, err
	}
	var s Surah
	if err := json.Unmarshal(data, &s); err != nil {
		return NoVerses, fmt.Errorf("parse: %w", err)
	}
	res := StripLeadingWords(&s, words)
	if res == NoVerses {
		return res, ErrNoVerses
	}

	base := strings.TrimSuffix(filepath.Base(path), ".json") + c.Suffix
	out, err := s.MarshalJSON()
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(filepath.Join(outDir, base+".json"), out, 0o644); err != nil {
		return res, err
	}
	return res, writeListing(filepath.Join(outDir, base+".txt"), &s)
}

// writeListing writes the surah name, an underline and "(N) text" per verse.
func writeListing(path string, s *Surah) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	name := s.Name
	if name == "" {
		name = "unnamed"
	}
	if _, err := fmt.Fprintf(f, "%s\n%s\n\n", name, strings.Repeat("=", 50)); err != nil {
		return err
	}
	for _, v := range s.Verses {
		if _, err := fmt.Fprintf(f, "(%d) %s\n", v.Number, v.Text); err != nil {
			return err
		}
	}
	return nil
}
