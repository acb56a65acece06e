package transcribe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
)

// Sample is a renamed copy of a cleaned recording.
type Sample struct {
	Source string // original cleaned file
	Path   string // copy in the renamed directory
	Name   string // base name of the copy, e.g. "sample 3.wav"
}

// RenameSamples copies every <prefix>*.wav file in srcDir, in name order,
// to dstDir as "<label> N.wav" with N counting from 1. The sources are
// left in place.
func RenameSamples(srcDir, dstDir, prefix, label string) ([]Sample, error) {
	matches, err := filepath.Glob(filepath.Join(srcDir, prefix+"*.wav"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dstDir, err)
	}

	samples := make([]Sample, 0, len(matches))
	for i, src := range matches {
		name := fmt.Sprintf("%s %d.wav", label, i+1)
		dst := filepath.Join(dstDir, name)
		if err := copyFile(src, dst); err != nil {
			return samples, fmt.Errorf("copy %s: %w", filepath.Base(src), err)
		}
		samples = append(samples, Sample{Source: src, Path: dst, Name: name})
	}
	return samples, nil
}

// copyFile copies contents and modification time.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(in))

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return multierr.Append(err, out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
