// SPDX-License-Identifier: MIT
package graph

import "capstan/internal/dsp"

// step is one scheduled node: its prebuilt input views and either a
// scratch buffer index or, for the terminal node, out = -1.
type step struct {
	id    NodeID
	proc  dsp.Processor
	views [][]float32
	out   int
}

// Plan is an execution-ready snapshot of a graph: nodes in dependency
// order plus every scratch buffer they will ever need. Nothing in a
// plan is added, removed, or resized after Compile, so the audio
// thread can run it without locks while the control side keeps a
// reference until the engine reports it retired.
type Plan struct {
	steps     []step
	scratch   []*dsp.Buffer
	silence   *dsp.Buffer
	byID      map[NodeID]dsp.Processor
	blockSize int
}

// BlockSize returns the frame count the plan was compiled for. The
// engine refuses to run a plan against a differently-sized callback.
func (p *Plan) BlockSize() int {
	return p.blockSize
}

// Nodes returns the number of scheduled nodes.
func (p *Plan) Nodes() int {
	return len(p.steps)
}

// Processor looks up a node's processor for parameter routing. Reading
// the map does not allocate, so this is safe in the command drain.
func (p *Plan) Processor(id NodeID) (dsp.Processor, bool) {
	proc, ok := p.byID[id]
	return proc, ok
}

// Run executes one block. Every node runs after all of its producers;
// the terminal node writes directly into out. len(out) must equal
// BlockSize; the engine guarantees this before calling. No step
// allocates, locks, or blocks.
func (p *Plan) Run(out []float32) {
	for i := range p.steps {
		s := &p.steps[i]
		dst := out
		if s.out >= 0 {
			dst = p.scratch[s.out].Samples()
		}
		s.proc.Process(s.views, dst)
	}
}
