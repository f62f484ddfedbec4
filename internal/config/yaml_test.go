// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capstan.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing path")
	}

	// Empty path with no capstan.yaml in cwd falls back to defaults.
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %v, expected %v", cfg.Engine.SampleRate, DefaultSampleRate)
	}
	if cfg.Engine.BlockSize != DefaultBlockSize {
		t.Errorf("BlockSize = %v, expected %v", cfg.Engine.BlockSize, DefaultBlockSize)
	}
}

func TestLoadParsesGraphSection(t *testing.T) {
	path := writeConfig(t, `
engine:
  sample_rate: 44100
  block_size: 256
graph:
  nodes:
    - name: osc
      type: sine
      params: {frequency: 220}
    - name: vol
      type: gain
      params: {gain: 0.5}
  connections:
    - {from: osc, to: vol, slot: 0}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Graph.Nodes) != 2 || len(cfg.Graph.Connections) != 1 {
		t.Fatalf("graph section = %d nodes, %d connections", len(cfg.Graph.Nodes), len(cfg.Graph.Connections))
	}
	if cfg.Graph.Nodes[0].Params["frequency"] != 220 {
		t.Errorf("frequency = %v, expected 220", cfg.Graph.Nodes[0].Params["frequency"])
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad sample rate", "engine: {sample_rate: 100, block_size: 512, channel_capacity: 16}"},
		{"non power-of-2 block", "engine: {sample_rate: 48000, block_size: 500, channel_capacity: 16}"},
		{"oversized block", "engine: {sample_rate: 48000, block_size: 16384, channel_capacity: 16}"},
		{"zero channel capacity", "engine: {sample_rate: 48000, block_size: 512, channel_capacity: 0}"},
		{"duplicate node name", `
engine: {sample_rate: 48000, block_size: 512, channel_capacity: 16}
graph:
  nodes:
    - {name: a, type: sine}
    - {name: a, type: gain}
`},
		{"dangling connection", `
engine: {sample_rate: 48000, block_size: 512, channel_capacity: 16}
graph:
  nodes:
    - {name: a, type: sine}
  connections:
    - {from: a, to: ghost, slot: 0}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAPSTAN_DEBUG", "true")
	t.Setenv("CAPSTAN_MONITOR_ADDR", "127.0.0.1:9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("CAPSTAN_DEBUG override not applied")
	}
	if cfg.Monitor.Addr != "127.0.0.1:9999" {
		t.Errorf("Monitor.Addr = %q, expected override", cfg.Monitor.Addr)
	}
}

func TestBuildGraphCompiles(t *testing.T) {
	path := writeConfig(t, `
engine: {sample_rate: 48000, block_size: 128, channel_capacity: 16}
graph:
  nodes:
    - {name: osc, type: sine, params: {frequency: 440}}
    - {name: lp, type: lowpass, params: {cutoff: 2000}}
    - {name: vol, type: gain, params: {gain: 0.5}}
  connections:
    - {from: osc, to: lp, slot: 0}
    - {from: lp, to: vol, slot: 0}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := cfg.BuildGraph(nil)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := g.Compile(cfg.Engine.BlockSize)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Nodes() != 3 {
		t.Errorf("plan has %d nodes, expected 3", plan.Nodes())
	}
}

// TestBuildGraphNamesUndeclaredEndpoint calls BuildGraph directly,
// without Load's validation pass, and expects the error to name the
// missing node rather than report a bare id.
func TestBuildGraphNamesUndeclaredEndpoint(t *testing.T) {
	cfg := &Config{Graph: GraphConfig{
		Nodes:       []NodeConfig{{Name: "osc", Type: "sine"}},
		Connections: []EdgeConfig{{From: "osc", To: "ghost", Slot: 0}},
	}}
	cfg.Engine.SampleRate = 48000

	_, err := cfg.BuildGraph(nil)
	if err == nil {
		t.Fatal("expected error for undeclared connection endpoint")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error %q does not name the undeclared node", err)
	}
}

func TestBuildGraphRejectsUnknownType(t *testing.T) {
	cfg := &Config{Graph: GraphConfig{Nodes: []NodeConfig{{Name: "x", Type: "theremin"}}}}
	cfg.Engine.SampleRate = 48000
	if _, err := cfg.BuildGraph(nil); err == nil {
		t.Error("expected error for unknown node type")
	}
}

func TestBuildGraphUsesClipLoader(t *testing.T) {
	cfg := &Config{Graph: GraphConfig{Nodes: []NodeConfig{{Name: "clip", Type: "sample", File: "loop.wav"}}}}
	cfg.Engine.SampleRate = 48000

	loaded := ""
	g, err := cfg.BuildGraph(func(path string) ([]float32, error) {
		loaded = path
		return []float32{0.1, 0.2}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if loaded != "loop.wav" {
		t.Errorf("loader called with %q, expected loop.wav", loaded)
	}
	if _, ok := g.Find("clip"); !ok {
		t.Error("sample node missing from graph")
	}
}
