// SPDX-License-Identifier: MIT
package audio

import (
	"runtime"
	"time"

	"github.com/gordonklaus/portaudio"

	"capstan/internal/config"
	"capstan/internal/engine"
)

// Stream drives an Engine from a PortAudio output stream. The
// callback is the real-time boundary: it locks its OS thread and
// forwards the device-supplied slice straight to Engine.OnBlock.
type Stream struct {
	engine        *engine.Engine
	device        *portaudio.DeviceInfo
	outputLatency time.Duration
	blockSize     int
	sampleRate    float64
	stream        *portaudio.Stream
}

// NewStream resolves the configured output device and prepares a
// mono output stream for the engine. Nothing starts until Start.
func NewStream(cfg *config.EngineConfig, e *engine.Engine) (*Stream, error) {
	device, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		engine:     e,
		device:     device,
		blockSize:  cfg.BlockSize,
		sampleRate: cfg.SampleRate,
	}
	if cfg.LowLatency {
		s.outputLatency = device.DefaultLowOutputLatency
	} else {
		s.outputLatency = device.DefaultHighOutputLatency
	}
	return s, nil
}

// Start opens the output stream and begins callbacks. From the first
// callback on, the engine's hot path is live.
func (s *Stream) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   s.device,
			Latency:  s.outputLatency,
		},
		FramesPerBuffer: s.blockSize,
		SampleRate:      s.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.processOutputStream)
	if err != nil {
		return err
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		return err
	}
	return nil
}

// Stop halts and closes the stream. The engine keeps its state; a
// stopped engine stays silent if the stream is restarted.
func (s *Stream) Stop() error {
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			return err
		}
		if err := s.stream.Close(); err != nil {
			return err
		}
		s.stream = nil
	}
	return nil
}

// processOutputStream is the core audio callback.
// Performance Critical:
// - Runs on PortAudio's dedicated audio thread (LockOSThread)
// - No allocations, no locks; the engine drains its command ring and
//   runs the installed plan directly into the device buffer
func (s *Stream) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.engine.OnBlock(out)
}
