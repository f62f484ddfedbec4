// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"capstan/internal/engine"
)

// Render drives the engine offline for the given duration, writing
// 16-bit mono WAV to filename, and returns the rendered samples for
// analysis. The engine is stepped block by block exactly as a device
// would step it, just without a deadline; file I/O stays on this
// goroutine, never on a callback.
func Render(e *engine.Engine, blockSize int, sampleRate float64, duration time.Duration, filename string) ([]float32, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	encoder := wav.NewEncoder(file, int(sampleRate), 16, 1, 1)
	sampleBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(sampleRate),
		},
		Data: make([]int, blockSize),
	}

	totalFrames := int(duration.Seconds() * sampleRate)
	blocks := (totalFrames + blockSize - 1) / blockSize

	rendered := make([]float32, 0, blocks*blockSize)
	block := make([]float32, blockSize)
	for i := 0; i < blocks; i++ {
		e.OnBlock(block)
		rendered = append(rendered, block...)

		for j, s := range block {
			sampleBuf.Data[j] = int(clamp(s) * (math.MaxInt16 - 1))
		}
		if err := encoder.Write(sampleBuf); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write WAV block: %w", err)
		}
	}

	if err := encoder.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to finalize WAV: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	return rendered, nil
}

func clamp(s float32) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return float64(s)
}
