// SPDX-License-Identifier: MIT
// Package analysis provides control-side spectrum analysis of rendered
// audio. Nothing here runs on the real-time path.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"capstan/pkg/bitint"
)

// workspace holds pre-allocated buffers for FFT calculations, so one
// Spectrum can analyze many windows without churning the GC.
type workspace struct {
	input     []float64    // real input samples (windowed)
	fftOutput []complex128 // FFT complex output
	magnitude []float64    // magnitude per bin
	window    []float64    // Hann window coefficients
}

// Spectrum computes magnitude spectra over fixed-size windows.
type Spectrum struct {
	fftSize    int
	sampleRate float64
	workspace  workspace
	fftObj     *fourier.FFT
}

// NewSpectrum creates an analyzer for the given window size, which
// must be a power of 2.
func NewSpectrum(fftSize int, sampleRate float64) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("FFT size must be a power of 2, got %d", fftSize)
	}

	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	outputSize := fftSize/2 + 1
	return &Spectrum{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		fftObj:     fourier.NewFFT(fftSize),
		workspace: workspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    window,
		},
	}, nil
}

// Analyze windows the first fftSize samples (zero-padding a short
// input) and returns the magnitude per bin. The returned slice aliases
// internal state and is valid until the next call.
func (s *Spectrum) Analyze(samples []float32) []float64 {
	for i := range s.fftSize {
		if i < len(samples) {
			s.workspace.input[i] = float64(samples[i]) * s.workspace.window[i]
		} else {
			s.workspace.input[i] = 0
		}
	}

	s.fftObj.Coefficients(s.workspace.fftOutput, s.workspace.input)
	for i, c := range s.workspace.fftOutput {
		s.workspace.magnitude[i] = cmplx.Abs(c) / float64(s.fftSize)
	}
	return s.workspace.magnitude
}

// Peak returns the dominant frequency and its magnitude in the most
// recent Analyze result. The DC bin is skipped.
func (s *Spectrum) Peak() (freqHz, magnitude float64) {
	peakBin := 1
	for bin := 2; bin < len(s.workspace.magnitude); bin++ {
		if s.workspace.magnitude[bin] > s.workspace.magnitude[peakBin] {
			peakBin = bin
		}
	}
	return s.FrequencyForBin(peakBin), s.workspace.magnitude[peakBin]
}

// FrequencyForBin maps a bin index to its center frequency in Hz.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	return float64(bin) * s.sampleRate / float64(s.fftSize)
}
