// SPDX-License-Identifier: MIT
package graph

import (
	"errors"
	"testing"

	"capstan/internal/dsp"
)

func TestAddEdgeRejectsUnknownNodes(t *testing.T) {
	g := New()
	id := g.AddNode("gain", dsp.NewGain(1))

	if err := g.AddEdge(id, 999, 0); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("edge to unknown node = %v, expected ErrUnknownNode", err)
	}
	if err := g.AddEdge(999, id, 0); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("edge from unknown node = %v, expected ErrUnknownNode", err)
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	g := New()
	id := g.AddNode("gain", dsp.NewGain(1))
	if err := g.AddEdge(id, id, 0); !errors.Is(err, ErrSelfLoop) {
		t.Errorf("self loop = %v, expected ErrSelfLoop", err)
	}
}

func TestAddEdgeRejectsBadSlot(t *testing.T) {
	g := New()
	src := g.AddNode("src", dsp.NewConstant(1))
	gain := g.AddNode("gain", dsp.NewGain(1))

	if err := g.AddEdge(src, gain, 1); !errors.Is(err, ErrBadSlot) {
		t.Errorf("slot 1 on a 1-input node = %v, expected ErrBadSlot", err)
	}
	if err := g.AddEdge(gain, src, 0); !errors.Is(err, ErrBadSlot) {
		t.Errorf("slot 0 on a 0-input node = %v, expected ErrBadSlot", err)
	}
}

func TestAddEdgeRejectsOccupiedSlot(t *testing.T) {
	g := New()
	a := g.AddNode("a", dsp.NewConstant(1))
	b := g.AddNode("b", dsp.NewConstant(1))
	gain := g.AddNode("gain", dsp.NewGain(1))

	if err := g.AddEdge(a, gain, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b, gain, 0); !errors.Is(err, ErrSlotInUse) {
		t.Errorf("second producer on slot 0 = %v, expected ErrSlotInUse", err)
	}
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g := New()
	a := g.AddNode("a", dsp.NewGain(1))
	b := g.AddNode("b", dsp.NewGain(1))
	c := g.AddNode("c", dsp.NewMixer(2))

	if err := g.AddEdge(a, b, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(b, c, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(c, a, 0); !errors.Is(err, ErrCycle) {
		t.Errorf("closing edge = %v, expected ErrCycle", err)
	}
	// The rejected edge must not have been recorded.
	if len(g.edges) != 2 {
		t.Errorf("graph has %d edges after rejected add, expected 2", len(g.edges))
	}
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	g := New()
	src := g.AddNode("src", dsp.NewConstant(1))
	gain := g.AddNode("gain", dsp.NewGain(1))
	if err := g.AddEdge(src, gain, 0); err != nil {
		t.Fatal(err)
	}

	if err := g.RemoveNode(gain); err != nil {
		t.Fatal(err)
	}
	if len(g.edges) != 0 {
		t.Errorf("%d edges survive node removal, expected 0", len(g.edges))
	}
	if err := g.RemoveNode(gain); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("double remove = %v, expected ErrUnknownNode", err)
	}
}

func TestRemoveEdge(t *testing.T) {
	g := New()
	src := g.AddNode("src", dsp.NewConstant(1))
	gain := g.AddNode("gain", dsp.NewGain(1))
	if err := g.AddEdge(src, gain, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.RemoveEdge(src, gain, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.RemoveEdge(src, gain, 0); !errors.Is(err, ErrUnknownEdge) {
		t.Errorf("removing absent edge = %v, expected ErrUnknownEdge", err)
	}
}

func TestFindByName(t *testing.T) {
	g := New()
	id := g.AddNode("osc", dsp.NewSine(440, 48000))
	found, ok := g.Find("osc")
	if !ok || found != id {
		t.Errorf("Find(osc) = (%d, %v), expected (%d, true)", found, ok, id)
	}
	if _, ok := g.Find("nope"); ok {
		t.Error("Find matched a name that was never added")
	}
}
