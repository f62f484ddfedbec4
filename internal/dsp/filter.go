// SPDX-License-Identifier: MIT
package dsp

import "math"

// LowPass is a second-order low-pass filter (RBJ cookbook biquad) in
// Direct Form II Transposed:
//
//	y  = b0*x + d0
//	d0 = b1*x - a1*y + d1
//	d1 = b2*x - a2*y
//
// Coefficients are recomputed on SetParam(ParamCutoff); that is a
// handful of float ops, fine for the audio thread.
type LowPass struct {
	sampleRate float64
	cutoff     float64
	q          float64

	b0, b1, b2 float32
	a1, a2     float32
	d0, d1     float32
}

// NewLowPass creates a low-pass at cutoff Hz with Butterworth Q.
func NewLowPass(cutoff float32, sampleRate float64) *LowPass {
	f := &LowPass{sampleRate: sampleRate, q: 1 / math.Sqrt2}
	f.setCutoff(float64(cutoff))
	return f
}

func (f *LowPass) setCutoff(cutoff float64) {
	// Keep the pole inside the stable region.
	nyquist := f.sampleRate / 2
	if cutoff < 10 {
		cutoff = 10
	}
	if cutoff > nyquist*0.99 {
		cutoff = nyquist * 0.99
	}
	f.cutoff = cutoff

	w0 := 2 * math.Pi * cutoff / f.sampleRate
	alpha := math.Sin(w0) / (2 * f.q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	f.b0 = float32((1 - cosw0) / 2 / a0)
	f.b1 = float32((1 - cosw0) / a0)
	f.b2 = f.b0
	f.a1 = float32(-2 * cosw0 / a0)
	f.a2 = float32((1 - alpha) / a0)
}

func (f *LowPass) Inputs() int { return 1 }

func (f *LowPass) Process(inputs [][]float32, out []float32) {
	in := inputs[0]
	for i := range out {
		x := in[i]
		y := f.b0*x + f.d0
		f.d0 = f.b1*x - f.a1*y + f.d1
		f.d1 = f.b2*x - f.a2*y
		out[i] = y
	}
}

func (f *LowPass) SetParam(key ParamKey, value float32) bool {
	if key != ParamCutoff {
		return false
	}
	f.setCutoff(float64(value))
	return true
}
