package audio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/multierr"
)

// DefaultBitDepth is the depth used for intermediate and final artifacts.
const DefaultBitDepth = 16

// WriteWAV encodes a mono waveform as integer PCM. Samples are clipped to
// [-1, 1]. The file is written to a .part sibling and renamed into place, so a
// failed write never leaves a truncated file at path.
func WriteWAV(path string, w *Waveform, bitDepth int) (err error) {
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	scale, offset, err := intScale(bitDepth)
	if err != nil {
		return err
	}

	partial := path + ".part"
	f, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err != nil {
			multierr.AppendInvoke(&err, multierr.Invoke(func() error {
				if rmErr := os.Remove(partial); rmErr != nil && !os.IsNotExist(rmErr) {
					return rmErr
				}
				return nil
			}))
		}
	}()

	enc := wav.NewEncoder(f, w.SampleRate, bitDepth, 1, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           quantize(w.Samples, scale, offset),
		SourceBitDepth: bitDepth,
	}

	if err = enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err = enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to finalise WAV header: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err = os.Rename(partial, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// quantize maps float samples onto the integer grid, clipping at full scale.
func quantize(samples []float64, scale, offset float64) []int {
	hi := scale - 1
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(s * hi)
		if math.IsNaN(v) {
			v = 0
		}
		if v > hi {
			v = hi
		} else if v < -scale {
			v = -scale
		}
		out[i] = int(v + offset)
	}
	return out
}
