// SPDX-License-Identifier: MIT
package dsp

// ParamKey identifies one controllable parameter of a node. Keys are
// small integers so a parameter-change command stays fixed-size with
// no embedded allocation.
type ParamKey uint32

const (
	// ParamGain is linear gain (1.0 = unity, 0.0 = silence).
	ParamGain ParamKey = iota
	// ParamFrequency is an oscillator frequency in Hz.
	ParamFrequency
	// ParamLevel is a constant source's output value.
	ParamLevel
	// ParamMix0..ParamMix3 are per-input mixer gains.
	ParamMix0
	ParamMix1
	ParamMix2
	ParamMix3
	// ParamDelay is a delay time in samples.
	ParamDelay
	// ParamFeedback is delay feedback in [0, 1).
	ParamFeedback
	// ParamCutoff is a filter cutoff frequency in Hz.
	ParamCutoff
)

// Processor is the contract every node in the graph implements.
//
// Process must fully populate out on every call, run in time
// proportional to the block length, and must not allocate, lock, or
// block; it is called on the audio thread once per callback for as
// long as the node's plan is installed. inputs carries one slice per
// declared input slot; unconnected slots arrive as a shared all-zero
// block.
//
// SetParam is called only from the engine's command drain, on the
// audio thread, before Process runs for that callback. It reports
// whether the node recognized the key. Implementations own all their
// state; the control side never touches a node after handing it to a
// graph.
type Processor interface {
	Inputs() int
	Process(inputs [][]float32, out []float32)
	SetParam(key ParamKey, value float32) bool
}
