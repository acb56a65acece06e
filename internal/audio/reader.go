// Package audio provides WAV file I/O using go-audio
package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

var (
	// ErrInvalidWAV is returned when a file does not carry a readable RIFF/WAVE header.
	ErrInvalidWAV = errors.New("invalid WAV file")
	// ErrUnsupportedFormat is returned for encodings other than integer PCM.
	ErrUnsupportedFormat = errors.New("unsupported WAV encoding")
	// ErrEmptyAudio is returned when a file decodes to zero samples.
	ErrEmptyAudio = errors.New("audio contains no samples")
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag.
const wavFormatPCM = 1

// Metadata contains audio file metadata
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitDepth   int
}

// Probe reads the header of a WAV file without decoding the sample data.
func Probe(filename string) (*Metadata, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", filename, ErrInvalidWAV)
	}

	meta := &Metadata{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if d, err := dec.Duration(); err == nil {
		meta.Duration = d.Seconds()
	}
	return meta, nil
}

// ReadWAV decodes an integer PCM WAV file into a mono waveform.
// Multi-channel audio is downmixed by averaging the channels of each frame.
func ReadWAV(filename string) (*Waveform, *Metadata, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, nil, fmt.Errorf("%s: %w", filename, ErrInvalidWAV)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, nil, fmt.Errorf("%s: format tag %d: %w", filename, dec.WavAudioFormat, ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode PCM data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, nil, fmt.Errorf("%s: %d channels: %w", filename, channels, ErrInvalidWAV)
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}

	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, nil, fmt.Errorf("%s: %w", filename, ErrEmptyAudio)
	}

	scale, offset, err := intScale(bitDepth)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}

	meta := &Metadata{
		SampleRate: buf.Format.SampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
		Duration:   float64(frames) / float64(buf.Format.SampleRate),
	}
	return &Waveform{Samples: samples, SampleRate: buf.Format.SampleRate}, meta, nil
}

// intScale returns the divisor and DC offset mapping integer samples of the
// given depth onto [-1, 1). 8-bit WAV is unsigned.
func intScale(bitDepth int) (scale, offset float64, err error) {
	switch bitDepth {
	case 8:
		return 128, 128, nil
	case 16:
		return 1 << 15, 0, nil
	case 24:
		return 1 << 23, 0, nil
	case 32:
		return 1 << 31, 0, nil
	default:
		return 0, 0, fmt.Errorf("%d-bit samples: %w", bitDepth, ErrUnsupportedFormat)
	}
}

// durationOf converts a sample count at a rate into a time.Duration.
func durationOf(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
