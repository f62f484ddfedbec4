// SPDX-License-Identifier: MIT
package dsp

// SamplePlayer loops a pre-loaded clip. The clip is decoded and
// converted on the control side before the node is handed to a graph;
// playback just walks the slice.
type SamplePlayer struct {
	clip []float32
	pos  int
	gain float32
}

// NewSamplePlayer wraps an already-decoded mono clip. An empty clip
// plays silence.
func NewSamplePlayer(clip []float32) *SamplePlayer {
	return &SamplePlayer{clip: clip, gain: 1}
}

func (p *SamplePlayer) Inputs() int { return 0 }

func (p *SamplePlayer) Process(_ [][]float32, out []float32) {
	if len(p.clip) == 0 {
		Silence(out)
		return
	}
	for i := range out {
		out[i] = p.clip[p.pos] * p.gain
		p.pos++
		if p.pos >= len(p.clip) {
			p.pos = 0
		}
	}
}

func (p *SamplePlayer) SetParam(key ParamKey, value float32) bool {
	if key != ParamGain {
		return false
	}
	p.gain = value
	return true
}
