// SPDX-License-Identifier: MIT
package graph

import (
	"fmt"

	"capstan/internal/dsp"
)

// Compile freezes the current node/edge set into an immutable Plan
// for the given block size. It fails without touching the graph if the
// graph is empty, cyclic, or does not have exactly one sink.
//
// Ordering is Kahn's algorithm: repeatedly schedule the ready node
// with the lowest id, so identical graphs always compile to identical
// plans. Scratch policy is one buffer per non-terminal node output
// (consumers read the producer's buffer directly); the terminal node
// writes straight into the callback's output slice. A single shared
// zero buffer feeds unconnected input slots.
func (g *Graph) Compile(blockSize int) (*Plan, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadBlock, blockSize)
	}
	if len(g.nodes) == 0 {
		return nil, ErrEmpty
	}

	// The sink is the unique node nothing consumes.
	var sink NodeID
	for id := range g.nodes {
		hasConsumer := false
		for e := range g.edges {
			if e.from == id {
				hasConsumer = true
				break
			}
		}
		if hasConsumer {
			continue
		}
		if sink != 0 {
			return nil, fmt.Errorf("%w: nodes %d and %d", ErrManySinks, sink, id)
		}
		sink = id
	}
	if sink == 0 {
		return nil, ErrNoSink
	}

	order, err := g.topoOrder()
	if err != nil {
		return nil, err
	}

	// One scratch buffer per non-terminal node output.
	silence := dsp.NewBuffer(blockSize)
	scratch := make([]*dsp.Buffer, 0, len(order)-1)
	outIndex := make(map[NodeID]int, len(order))
	for _, id := range order {
		if id == sink {
			continue
		}
		outIndex[id] = len(scratch)
		scratch = append(scratch, dsp.NewBuffer(blockSize))
	}

	steps := make([]step, 0, len(order))
	byID := make(map[NodeID]dsp.Processor, len(order))
	for _, id := range order {
		n := g.nodes[id]
		views := make([][]float32, n.proc.Inputs())
		for slot := range views {
			views[slot] = silence.Samples()
		}
		for e := range g.edges {
			if e.to == id {
				views[e.slot] = scratch[outIndex[e.from]].Samples()
			}
		}
		s := step{id: id, proc: n.proc, views: views, out: -1}
		if id != sink {
			s.out = outIndex[id]
		}
		steps = append(steps, s)
		byID[id] = n.proc
	}

	return &Plan{
		steps:     steps,
		scratch:   scratch,
		silence:   silence,
		byID:      byID,
		blockSize: blockSize,
	}, nil
}

// topoOrder runs Kahn's algorithm. Remaining unscheduled nodes after
// the ready set empties mean a cycle.
func (g *Graph) topoOrder() ([]NodeID, error) {
	inDegree := make(map[NodeID]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for e := range g.edges {
		inDegree[e.to]++
	}

	ready := make([]NodeID, 0, len(g.nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		// Lowest id first, for deterministic plans.
		minIdx := 0
		for i := 1; i < len(ready); i++ {
			if ready[i] < ready[minIdx] {
				minIdx = i
			}
		}
		id := ready[minIdx]
		ready[minIdx] = ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		order = append(order, id)

		for e := range g.edges {
			if e.from != id {
				continue
			}
			inDegree[e.to]--
			if inDegree[e.to] == 0 {
				ready = append(ready, e.to)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, ErrCycle
	}
	return order, nil
}
