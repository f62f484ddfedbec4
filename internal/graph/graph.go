// SPDX-License-Identifier: MIT
/*
Package graph holds the control-side editable audio graph and the
immutable execution plan compiled from it.

Thread Safety:
- Graph is owned by the control goroutine and never shared
- Plan is immutable after Compile and may be handed to the audio
  thread; the only cross-thread traffic is the plan pointer itself,
  carried through the engine's command/event channels
*/
package graph

import (
	"errors"
	"fmt"
	"sort"

	"capstan/internal/dsp"
)

// NodeID references one node in a graph. IDs are assigned by AddNode,
// never reused, and stay valid until RemoveNode. Their numeric order
// doubles as the deterministic tie-break during compilation.
type NodeID uint64

// Edit-time errors. All of them reject the edit synchronously and
// leave the graph unchanged.
var (
	ErrUnknownNode = errors.New("graph: unknown node id")
	ErrUnknownEdge = errors.New("graph: no such edge")
	ErrSelfLoop    = errors.New("graph: self loops are not allowed")
	ErrBadSlot     = errors.New("graph: input slot out of range")
	ErrSlotInUse   = errors.New("graph: input slot already connected")
	ErrCycle       = errors.New("graph: cycle detected")
	ErrNoSink      = errors.New("graph: no sink node (every node has consumers)")
	ErrManySinks   = errors.New("graph: more than one sink node")
	ErrBadBlock    = errors.New("graph: block size must be positive")
	ErrEmpty       = errors.New("graph: no nodes to compile")
)

type node struct {
	name string
	proc dsp.Processor
}

type edge struct {
	from NodeID
	to   NodeID
	slot int
}

// Graph is the editable node/edge set. All mutation happens here, on
// the control side; the audio side only ever sees compiled plans.
type Graph struct {
	nodes  map[NodeID]*node
	edges  map[edge]struct{}
	nextID NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*node),
		edges: make(map[edge]struct{}),
	}
}

// AddNode registers a processor under a human-readable name and
// returns its id. The graph takes ownership of proc: after this call
// the control side must not touch it again, parameter changes go
// through the engine's command path.
func (g *Graph) AddNode(name string, proc dsp.Processor) NodeID {
	g.nextID++
	id := g.nextID
	g.nodes[id] = &node{name: name, proc: proc}
	return id
}

// RemoveNode deletes a node and every edge touching it. The id is
// invalid afterwards.
func (g *Graph) RemoveNode(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return ErrUnknownNode
	}
	delete(g.nodes, id)
	for e := range g.edges {
		if e.from == id || e.to == id {
			delete(g.edges, e)
		}
	}
	return nil
}

// AddEdge connects from's output to input slot of to. It fails if
// either node is unknown, the slot is out of range or taken, or the
// edge would close a cycle.
func (g *Graph) AddEdge(from, to NodeID, slot int) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, from)
	}
	consumer, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, to)
	}
	if from == to {
		return ErrSelfLoop
	}
	if slot < 0 || slot >= consumer.proc.Inputs() {
		return fmt.Errorf("%w: slot %d of node %d (%d inputs)",
			ErrBadSlot, slot, to, consumer.proc.Inputs())
	}
	for e := range g.edges {
		if e.to == to && e.slot == slot {
			return fmt.Errorf("%w: slot %d of node %d", ErrSlotInUse, slot, to)
		}
	}
	if g.reaches(to, from) {
		return fmt.Errorf("%w: %d -> %d", ErrCycle, from, to)
	}
	g.edges[edge{from: from, to: to, slot: slot}] = struct{}{}
	return nil
}

// RemoveEdge disconnects input slot of to from from.
func (g *Graph) RemoveEdge(from, to NodeID, slot int) error {
	e := edge{from: from, to: to, slot: slot}
	if _, ok := g.edges[e]; !ok {
		return ErrUnknownEdge
	}
	delete(g.edges, e)
	return nil
}

// Find returns the id of the node with the given name.
func (g *Graph) Find(name string) (NodeID, bool) {
	for id, n := range g.nodes {
		if n.name == name {
			return id, true
		}
	}
	return 0, false
}

// Name returns the registered name of a node.
func (g *Graph) Name(id NodeID) (string, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return "", false
	}
	return n.name, true
}

// Names returns all node names in ascending id order.
func (g *Graph) Names() []string {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = g.nodes[id].name
	}
	return names
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// reaches reports whether dst is reachable from src along edges.
// Depth-first over the successor relation; graphs are small enough
// that recomputing adjacency per call is not worth caching.
func (g *Graph) reaches(src, dst NodeID) bool {
	if src == dst {
		return true
	}
	seen := map[NodeID]bool{src: true}
	stack := []NodeID{src}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for e := range g.edges {
			if e.from != n || seen[e.to] {
				continue
			}
			if e.to == dst {
				return true
			}
			seen[e.to] = true
			stack = append(stack, e.to)
		}
	}
	return false
}
