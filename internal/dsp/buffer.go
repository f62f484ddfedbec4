// SPDX-License-Identifier: MIT
/*
Package dsp holds the sample buffer type, the Processor contract every
graph node implements, and the built-in node kinds (sources, effects,
mixers).

Thread Safety:
- Buffers and node state are single-owner: after a node is handed to a
  graph it is touched only by the audio thread (Process, SetParam from
  the engine's command drain)
- Nothing in this package allocates or locks on the audio path
*/
package dsp

// Buffer is a fixed-capacity block of float32 samples. It is allocated
// once and reused every callback; its backing array never moves.
type Buffer struct {
	samples []float32
}

// NewBuffer allocates a zeroed buffer of frames samples. This is the
// only allocation in the buffer's lifetime.
func NewBuffer(frames int) *Buffer {
	return &Buffer{samples: make([]float32, frames)}
}

// Samples returns the backing slice for reading or writing.
func (b *Buffer) Samples() []float32 {
	return b.samples
}

// Len returns the fixed frame count.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Zero fills the buffer with silence.
func (b *Buffer) Zero() {
	clear(b.samples)
}

// Silence writes zeros into an arbitrary output slice. Used by the
// engine whenever no plan is installed or the stream has stopped.
func Silence(out []float32) {
	clear(out)
}
