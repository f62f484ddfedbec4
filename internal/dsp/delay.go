// SPDX-License-Identifier: MIT
package dsp

// Delay is a feedback delay on a fixed-capacity circular line. The
// line is allocated once at construction; changing the delay time only
// moves the read offset, so SetParam is real-time safe.
type Delay struct {
	line     []float32
	writePos int
	delay    int     // read offset in samples, <= len(line)-1
	feedback float32 // [0, 1)
	mix      float32 // 0 = dry, 1 = wet
}

// NewDelay creates a delay with the given maximum line length and
// initial delay, both in samples.
func NewDelay(maxSamples, delaySamples int) *Delay {
	if maxSamples < 1 {
		maxSamples = 1
	}
	d := &Delay{
		line:     make([]float32, maxSamples),
		feedback: 0.3,
		mix:      0.5,
	}
	d.setDelay(delaySamples)
	return d
}

func (d *Delay) setDelay(samples int) {
	if samples < 0 {
		samples = 0
	}
	if samples > len(d.line)-1 {
		samples = len(d.line) - 1
	}
	d.delay = samples
}

func (d *Delay) Inputs() int { return 1 }

func (d *Delay) Process(inputs [][]float32, out []float32) {
	in := inputs[0]
	size := len(d.line)
	for i := range out {
		readPos := d.writePos - d.delay
		if readPos < 0 {
			readPos += size
		}
		wet := d.line[readPos]
		d.line[d.writePos] = in[i] + wet*d.feedback
		d.writePos++
		if d.writePos >= size {
			d.writePos = 0
		}
		out[i] = in[i]*(1-d.mix) + wet*d.mix
	}
}

func (d *Delay) SetParam(key ParamKey, value float32) bool {
	switch key {
	case ParamDelay:
		d.setDelay(int(value))
	case ParamFeedback:
		if value < 0 {
			value = 0
		}
		if value > 0.99 {
			value = 0.99
		}
		d.feedback = value
	case ParamGain:
		d.mix = value
	default:
		return false
	}
	return true
}
