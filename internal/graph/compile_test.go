// SPDX-License-Identifier: MIT
package graph

import (
	"errors"
	"testing"

	"capstan/internal/dsp"
)

// chain builds src(Constant 1) → gain(0.5) and returns the graph.
func chain(t *testing.T) (*Graph, NodeID, NodeID) {
	t.Helper()
	g := New()
	src := g.AddNode("src", dsp.NewConstant(1))
	gain := g.AddNode("gain", dsp.NewGain(0.5))
	if err := g.AddEdge(src, gain, 0); err != nil {
		t.Fatal(err)
	}
	return g, src, gain
}

func TestCompileChainProducesScaledOutput(t *testing.T) {
	g, _, _ := chain(t)
	plan, err := g.Compile(4)
	if err != nil {
		t.Fatal(err)
	}

	out := make([]float32, 4)
	plan.Run(out)
	for i, s := range out {
		if s != 0.5 {
			t.Errorf("out[%d] = %f, expected 0.5", i, s)
		}
	}
}

func TestCompileRejectsEmptyGraph(t *testing.T) {
	if _, err := New().Compile(64); !errors.Is(err, ErrEmpty) {
		t.Errorf("Compile on empty graph = %v, expected ErrEmpty", err)
	}
}

func TestCompileRejectsBadBlockSize(t *testing.T) {
	g, _, _ := chain(t)
	for _, size := range []int{0, -1} {
		if _, err := g.Compile(size); !errors.Is(err, ErrBadBlock) {
			t.Errorf("Compile(%d) = %v, expected ErrBadBlock", size, err)
		}
	}
}

func TestCompileRejectsMultipleSinks(t *testing.T) {
	g := New()
	g.AddNode("a", dsp.NewConstant(1))
	g.AddNode("b", dsp.NewConstant(1))
	if _, err := g.Compile(64); !errors.Is(err, ErrManySinks) {
		t.Errorf("two disconnected sources = %v, expected ErrManySinks", err)
	}
}

func TestCompileOrdersProducersFirst(t *testing.T) {
	// Diamond: two sines into a mixer, then a gain.
	g := New()
	s0 := g.AddNode("s0", dsp.NewSine(440, 48000))
	s1 := g.AddNode("s1", dsp.NewSine(660, 48000))
	mix := g.AddNode("mix", dsp.NewMixer(2))
	gain := g.AddNode("gain", dsp.NewGain(1))
	for _, e := range []struct {
		from, to NodeID
		slot     int
	}{
		{s0, mix, 0},
		{s1, mix, 1},
		{mix, gain, 0},
	} {
		if err := g.AddEdge(e.from, e.to, e.slot); err != nil {
			t.Fatal(err)
		}
	}

	plan, err := g.Compile(64)
	if err != nil {
		t.Fatal(err)
	}

	pos := make(map[NodeID]int, plan.Nodes())
	for i := range plan.steps {
		pos[plan.steps[i].id] = i
	}
	for _, pair := range [][2]NodeID{{s0, mix}, {s1, mix}, {mix, gain}} {
		if pos[pair[0]] >= pos[pair[1]] {
			t.Errorf("node %d scheduled at %d, after its consumer %d at %d",
				pair[0], pos[pair[0]], pair[1], pos[pair[1]])
		}
	}
	// Tie-break: both sines are ready first and must appear in id order.
	if pos[s0] > pos[s1] {
		t.Errorf("ready nodes not scheduled in id order: s0 at %d, s1 at %d", pos[s0], pos[s1])
	}
}

// TestCompileRejectsCycle forces a cycle past the edit-time guard to
// prove the compiler's own detection holds on its own.
func TestCompileRejectsCycle(t *testing.T) {
	g := New()
	a := g.AddNode("a", dsp.NewGain(1))
	b := g.AddNode("b", dsp.NewMixer(2))
	c := g.AddNode("c", dsp.NewGain(1))
	g.edges[edge{from: a, to: b, slot: 0}] = struct{}{}
	g.edges[edge{from: b, to: a, slot: 0}] = struct{}{}
	g.edges[edge{from: b, to: c, slot: 0}] = struct{}{}

	if _, err := g.Compile(64); !errors.Is(err, ErrCycle) {
		t.Errorf("Compile on cyclic edge set = %v, expected ErrCycle", err)
	}
	if len(g.nodes) != 3 || len(g.edges) != 3 {
		t.Error("failed compile modified the graph")
	}
}

func TestCompiledPlanIsDeterministic(t *testing.T) {
	build := func() *Plan {
		g := New()
		s0 := g.AddNode("s0", dsp.NewSine(440, 48000))
		s1 := g.AddNode("s1", dsp.NewSine(660, 48000))
		mix := g.AddNode("mix", dsp.NewMixer(2))
		_ = g.AddEdge(s0, mix, 0)
		_ = g.AddEdge(s1, mix, 1)
		plan, err := g.Compile(128)
		if err != nil {
			t.Fatal(err)
		}
		return plan
	}

	a, b := build(), build()
	outA := make([]float32, 128)
	outB := make([]float32, 128)
	a.Run(outA)
	b.Run(outB)
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("identical graphs diverge at sample %d: %f vs %f", i, outA[i], outB[i])
		}
	}
}

func TestUnconnectedInputReadsSilence(t *testing.T) {
	g := New()
	src := g.AddNode("src", dsp.NewConstant(1))
	mix := g.AddNode("mix", dsp.NewMixer(2))
	if err := g.AddEdge(src, mix, 0); err != nil {
		t.Fatal(err)
	}
	// Slot 1 stays unconnected and must contribute zeros.
	plan, err := g.Compile(8)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 8)
	plan.Run(out)
	for i, s := range out {
		if s != 1 {
			t.Errorf("out[%d] = %f, expected 1 (silence on open slot)", i, s)
		}
	}
}

func TestPlanRunDoesNotAllocate(t *testing.T) {
	g, _, _ := chain(t)
	plan, err := g.Compile(256)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 256)

	allocs := testing.AllocsPerRun(100, func() {
		plan.Run(out)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Plan.Run, got %.1f", allocs)
	}
}

func TestProcessorLookup(t *testing.T) {
	g, src, _ := chain(t)
	plan, err := g.Compile(16)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := plan.Processor(src); !ok {
		t.Error("compiled plan lost a node")
	}
	if _, ok := plan.Processor(12345); ok {
		t.Error("lookup matched an id that was never in the graph")
	}
}

func BenchmarkPlanRun(b *testing.B) {
	g := New()
	s0 := g.AddNode("s0", dsp.NewSine(440, 48000))
	lp := g.AddNode("lp", dsp.NewLowPass(2000, 48000))
	gain := g.AddNode("gain", dsp.NewGain(0.5))
	_ = g.AddEdge(s0, lp, 0)
	_ = g.AddEdge(lp, gain, 0)
	plan, err := g.Compile(512)
	if err != nil {
		b.Fatal(err)
	}
	out := make([]float32, 512)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		plan.Run(out)
	}
}
