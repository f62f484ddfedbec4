// SPDX-License-Identifier: MIT
// Package config loads and validates the engine configuration,
// including the declarative initial graph, from YAML with environment
// overrides.
package config

// Limits and defaults for the engine configuration.
const (
	DefaultSampleRate      = 48000 // Pro-audio default
	DefaultBlockSize       = 512   // Balanced latency/robustness
	DefaultChannelCapacity = 256   // Command/event ring slots
	DefaultDeviceID        = MinDeviceID
	DefaultMonitorAddr     = "127.0.0.1:8080"

	MinDeviceID   = -1     // -1 selects the system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxBlockSize  = 8192   // Maximum frames per block (power of 2)
)
