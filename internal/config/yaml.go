// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"capstan/pkg/bitint"
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	Debug    bool          `yaml:"debug"`     // Verbose logging and debug features.
	LogLevel string        `yaml:"log_level"` // "debug", "info", "warn", "error".
	Engine   EngineConfig  `yaml:"engine"`    // Real-time engine settings.
	Monitor  MonitorConfig `yaml:"monitor"`   // Websocket event monitor.
	Graph    GraphConfig   `yaml:"graph"`     // Initial graph, compiled and installed at startup.
}

// EngineConfig holds the settings that size the real-time path.
type EngineConfig struct {
	OutputDevice    int     `yaml:"output_device"`    // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`      // Sample rate in Hz (e.g. 44100, 48000).
	BlockSize       int     `yaml:"block_size"`       // Frames per callback; power of 2.
	LowLatency      bool    `yaml:"low_latency"`      // Request low-latency settings from the device.
	ChannelCapacity int     `yaml:"channel_capacity"` // Command/event ring capacity.
}

// MonitorConfig holds settings for the websocket diagnostics monitor.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // listen address, e.g. "127.0.0.1:8080"
}

// GraphConfig declares the initial node graph.
type GraphConfig struct {
	Nodes       []NodeConfig `yaml:"nodes"`
	Connections []EdgeConfig `yaml:"connections"`
}

// NodeConfig declares one node. Params are construction-time values
// keyed by type-specific names ("frequency", "gain", "cutoff", ...).
type NodeConfig struct {
	Name   string             `yaml:"name"`
	Type   string             `yaml:"type"` // sine|constant|noise|gain|mixer|delay|lowpass|sample
	File   string             `yaml:"file,omitempty"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// EdgeConfig declares one connection into a named input slot.
type EdgeConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Slot int    `yaml:"slot"`
}

// Load reads configuration from a YAML file. An empty path searches
// "capstan.yaml" in the working directory; when no file is found the
// built-in defaults apply. Environment overrides (CAPSTAN_*) run after
// the file, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := Config{
		Debug:    false,
		LogLevel: "info",
		Engine: EngineConfig{
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			BlockSize:       DefaultBlockSize,
			LowLatency:      false,
			ChannelCapacity: DefaultChannelCapacity,
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Addr:    DefaultMonitorAddr,
		},
	}

	if path == "" {
		if _, err := os.Stat("capstan.yaml"); err == nil {
			path = "capstan.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the bounds the real-time path depends on.
func (c *Config) Validate() error {
	if c.Engine.SampleRate < MinSampleRate || c.Engine.SampleRate > MaxSampleRate {
		return fmt.Errorf("engine.sample_rate %v outside [%d, %d]",
			c.Engine.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Engine.BlockSize) || c.Engine.BlockSize > MaxBlockSize {
		return fmt.Errorf("engine.block_size %d must be a power of 2 <= %d",
			c.Engine.BlockSize, MaxBlockSize)
	}
	if c.Engine.ChannelCapacity < 1 {
		return fmt.Errorf("engine.channel_capacity %d must be >= 1", c.Engine.ChannelCapacity)
	}
	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return fmt.Errorf("monitor.addr must be set when the monitor is enabled")
	}
	seen := make(map[string]bool, len(c.Graph.Nodes))
	for _, n := range c.Graph.Nodes {
		if n.Name == "" {
			return fmt.Errorf("graph node of type %q has no name", n.Type)
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate graph node name %q", n.Name)
		}
		seen[n.Name] = true
	}
	for _, e := range c.Graph.Connections {
		if !seen[e.From] || !seen[e.To] {
			return fmt.Errorf("connection %s -> %s references an undeclared node", e.From, e.To)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("CAPSTAN_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("CAPSTAN_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("CAPSTAN_MONITOR_ADDR"); ok {
		c.Monitor.Addr = val
	}
}
