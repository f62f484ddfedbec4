// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func sineWave(size int, sampleRate, freq float64) []float32 {
	buf := make([]float32, size)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return buf
}

func TestNewSpectrumRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := NewSpectrum(1000, 48000); err == nil {
		t.Error("expected error for non power-of-2 size")
	}
}

func TestPeakFindsDominantFrequency(t *testing.T) {
	tests := []struct {
		freq float64
	}{
		{440},
		{880},
		{4000},
	}

	const size = 4096
	const sr = 48000.0
	s, err := NewSpectrum(size, sr)
	if err != nil {
		t.Fatal(err)
	}

	binWidth := sr / float64(size)
	for _, tt := range tests {
		s.Analyze(sineWave(size, sr, tt.freq))
		peak, mag := s.Peak()
		if math.Abs(peak-tt.freq) > binWidth {
			t.Errorf("peak for %v Hz sine = %v Hz (±%v expected)", tt.freq, peak, binWidth)
		}
		if mag <= 0 {
			t.Errorf("peak magnitude for %v Hz = %v, expected > 0", tt.freq, mag)
		}
	}
}

func TestAnalyzeZeroPadsShortInput(t *testing.T) {
	s, err := NewSpectrum(1024, 48000)
	if err != nil {
		t.Fatal(err)
	}
	mags := s.Analyze(make([]float32, 100))
	for bin, m := range mags {
		if m != 0 {
			t.Errorf("silent input produced magnitude %v at bin %d", m, bin)
		}
	}
}

func TestAnalyzeReusesBuffers(t *testing.T) {
	s, err := NewSpectrum(2048, 48000)
	if err != nil {
		t.Fatal(err)
	}
	wave := sineWave(2048, 48000, 440)
	s.Analyze(wave)

	allocs := testing.AllocsPerRun(50, func() {
		s.Analyze(wave)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Analyze, got %.1f", allocs)
	}
}
