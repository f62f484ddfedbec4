// SPDX-License-Identifier: MIT
package config

import (
	"fmt"

	"capstan/internal/dsp"
	"capstan/internal/graph"
)

// ClipLoader decodes an audio file into mono float32 samples. The
// audio package provides the WAV implementation; tests stub it.
type ClipLoader func(path string) ([]float32, error)

// param reads a construction parameter with a fallback.
func (n NodeConfig) param(key string, fallback float64) float64 {
	if v, ok := n.Params[key]; ok {
		return v
	}
	return fallback
}

// BuildGraph turns the declarative graph section into an editable
// graph. All allocation happens here, on the control side, before
// anything reaches the engine.
func (c *Config) BuildGraph(loadClip ClipLoader) (*graph.Graph, error) {
	g := graph.New()
	sr := c.Engine.SampleRate

	for _, n := range c.Graph.Nodes {
		var proc dsp.Processor
		switch n.Type {
		case "sine":
			proc = dsp.NewSine(float32(n.param("frequency", 440)), sr)
		case "constant":
			proc = dsp.NewConstant(float32(n.param("level", 0)))
		case "noise":
			proc = dsp.NewNoise(uint64(n.param("seed", 1)))
		case "gain":
			proc = dsp.NewGain(float32(n.param("gain", 1)))
		case "mixer":
			proc = dsp.NewMixer(int(n.param("inputs", 2)))
		case "delay":
			maxS := int(n.param("max_ms", 1000) / 1000 * sr)
			delayS := int(n.param("delay_ms", 250) / 1000 * sr)
			d := dsp.NewDelay(maxS, delayS)
			d.SetParam(dsp.ParamFeedback, float32(n.param("feedback", 0.3)))
			d.SetParam(dsp.ParamGain, float32(n.param("mix", 0.5)))
			proc = d
		case "lowpass":
			proc = dsp.NewLowPass(float32(n.param("cutoff", 1000)), sr)
		case "sample":
			if loadClip == nil {
				return nil, fmt.Errorf("node %q: no clip loader available", n.Name)
			}
			clip, err := loadClip(n.File)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", n.Name, err)
			}
			proc = dsp.NewSamplePlayer(clip)
		default:
			return nil, fmt.Errorf("node %q: unknown type %q", n.Name, n.Type)
		}
		g.AddNode(n.Name, proc)
	}

	for _, e := range c.Graph.Connections {
		from, ok := g.Find(e.From)
		if !ok {
			return nil, fmt.Errorf("connection %s -> %s: undeclared node %q", e.From, e.To, e.From)
		}
		to, ok := g.Find(e.To)
		if !ok {
			return nil, fmt.Errorf("connection %s -> %s: undeclared node %q", e.From, e.To, e.To)
		}
		if err := g.AddEdge(from, to, e.Slot); err != nil {
			return nil, fmt.Errorf("connection %s -> %s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}
