package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tavolo/tavolo/internal/sounds"
)

func TestWriteTypingWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyboard-typing.wav")
	if err := writeTypingWAV(path); err != nil {
		t.Fatalf("writeTypingWAV() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading generated file: %v", err)
	}

	// The generated file must pass the same validation applied to
	// uploaded sounds.
	info, err := sounds.ValidateWAV(data)
	if err != nil {
		t.Fatalf("ValidateWAV() error: %v", err)
	}
	if info.SampleRate != sampleRate {
		t.Errorf("SampleRate = %d, want %d", info.SampleRate, sampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Channels = %d, want 1", info.Channels)
	}
	if info.BitDepth != bitDepth {
		t.Errorf("BitDepth = %d, want %d", info.BitDepth, bitDepth)
	}
	want := time.Duration(durationMs) * time.Millisecond
	if diff := info.Duration - want; diff < -50*time.Millisecond || diff > 50*time.Millisecond {
		t.Errorf("Duration = %s, want about %s", info.Duration, want)
	}
}
