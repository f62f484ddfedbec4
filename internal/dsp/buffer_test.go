// SPDX-License-Identifier: MIT
package dsp

import "testing"

func TestNewBufferIsZeroed(t *testing.T) {
	b := NewBuffer(128)
	if b.Len() != 128 {
		t.Fatalf("Len() = %d, expected 128", b.Len())
	}
	for i, s := range b.Samples() {
		if s != 0 {
			t.Fatalf("sample %d = %f, expected 0", i, s)
		}
	}
}

func TestZeroClearsWrites(t *testing.T) {
	b := NewBuffer(16)
	for i := range b.Samples() {
		b.Samples()[i] = 1
	}
	b.Zero()
	for i, s := range b.Samples() {
		if s != 0 {
			t.Fatalf("sample %d = %f after Zero", i, s)
		}
	}
}

func TestBufferIdentityIsStable(t *testing.T) {
	b := NewBuffer(16)
	first := &b.Samples()[0]
	b.Zero()
	if first != &b.Samples()[0] {
		t.Error("backing array moved")
	}
}
