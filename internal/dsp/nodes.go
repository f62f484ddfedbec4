// SPDX-License-Identifier: MIT
package dsp

import "math"

// Sine generates a sine wave. Phase lives in [0, 1) and is carried
// across blocks so swapping plans that share the node stays click-free.
type Sine struct {
	freq       float32
	sampleRate float32
	phase      float32
}

// NewSine creates a sine source at freq Hz for the given sample rate.
func NewSine(freq float32, sampleRate float64) *Sine {
	return &Sine{freq: freq, sampleRate: float32(sampleRate)}
}

func (s *Sine) Inputs() int { return 0 }

func (s *Sine) Process(_ [][]float32, out []float32) {
	step := s.freq / s.sampleRate
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * float64(s.phase)))
		s.phase += step
		if s.phase >= 1 {
			s.phase -= 1
		}
	}
}

func (s *Sine) SetParam(key ParamKey, value float32) bool {
	if key != ParamFrequency {
		return false
	}
	s.freq = value
	return true
}

// Constant emits a fixed sample value. Mostly useful for tests and
// control signals.
type Constant struct {
	level float32
}

func NewConstant(level float32) *Constant {
	return &Constant{level: level}
}

func (c *Constant) Inputs() int { return 0 }

func (c *Constant) Process(_ [][]float32, out []float32) {
	for i := range out {
		out[i] = c.level
	}
}

func (c *Constant) SetParam(key ParamKey, value float32) bool {
	if key != ParamLevel {
		return false
	}
	c.level = value
	return true
}

// Noise is a white-noise source backed by an xorshift64 generator, so
// generating a block needs no allocation and no global rand state.
type Noise struct {
	state uint64
	gain  float32
}

// NewNoise seeds the generator. A zero seed is replaced because
// xorshift has a fixed point at zero.
func NewNoise(seed uint64) *Noise {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &Noise{state: seed, gain: 1}
}

func (n *Noise) Inputs() int { return 0 }

func (n *Noise) Process(_ [][]float32, out []float32) {
	x := n.state
	for i := range out {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		// Map the top 24 bits onto [-1, 1).
		out[i] = n.gain * (float32(x>>40)/float32(1<<23) - 1)
	}
	n.state = x
}

func (n *Noise) SetParam(key ParamKey, value float32) bool {
	if key != ParamGain {
		return false
	}
	n.gain = value
	return true
}

// Gain multiplies its single input by a linear factor.
type Gain struct {
	gain float32
}

func NewGain(gain float32) *Gain {
	return &Gain{gain: gain}
}

func (g *Gain) Inputs() int { return 1 }

func (g *Gain) Process(inputs [][]float32, out []float32) {
	in := inputs[0]
	for i := range out {
		out[i] = in[i] * g.gain
	}
}

func (g *Gain) SetParam(key ParamKey, value float32) bool {
	if key != ParamGain {
		return false
	}
	g.gain = value
	return true
}

// MaxMixerInputs bounds a mixer's fan-in; each input has its own gain
// addressable as ParamMix0..ParamMix3.
const MaxMixerInputs = 4

// Mixer sums up to MaxMixerInputs inputs with per-input linear gains.
type Mixer struct {
	inputs int
	gains  [MaxMixerInputs]float32
}

// NewMixer creates a mixer with the given fan-in, unity gain on every
// input. inputs is clamped to [1, MaxMixerInputs].
func NewMixer(inputs int) *Mixer {
	if inputs < 1 {
		inputs = 1
	}
	if inputs > MaxMixerInputs {
		inputs = MaxMixerInputs
	}
	m := &Mixer{inputs: inputs}
	for i := range m.gains {
		m.gains[i] = 1
	}
	return m
}

func (m *Mixer) Inputs() int { return m.inputs }

func (m *Mixer) Process(inputs [][]float32, out []float32) {
	for i := range out {
		var sum float32
		for j, in := range inputs {
			sum += in[i] * m.gains[j]
		}
		out[i] = sum
	}
}

func (m *Mixer) SetParam(key ParamKey, value float32) bool {
	if key < ParamMix0 || key > ParamMix3 {
		return false
	}
	m.gains[key-ParamMix0] = value
	return true
}
