// Command gen creates the default keyboard typing sound as a PCM WAV
// file (8kHz, mono, 16-bit): short decaying noise bursts spaced like
// keystrokes. Replace with a real recording for production use.
//
// Usage: go run ./internal/sounds/gen
package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	sampleRate = 8000
	bitDepth   = 16
	durationMs = 2000
)

func main() {
	dir := filepath.Join("internal", "sounds", "system")
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating directory: %v\n", err)
		os.Exit(1)
	}

	path := filepath.Join(dir, "keyboard-typing.wav")
	if err := writeTypingWAV(path); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", path, err)
		os.Exit(1)
	}
	fi, _ := os.Stat(path)
	fmt.Printf("created %s (%d bytes)\n", path, fi.Size())
}

func writeTypingWAV(path string) error {
	n := sampleRate * durationMs / 1000
	samples := make([]float64, n)

	// Seeded so the generated file is reproducible.
	rng := rand.New(rand.NewSource(42))
	for t := 0.05; t < float64(durationMs)/1000-0.08; t += 0.08 + rng.Float64()*0.1 {
		start := int(t * sampleRate)
		burst := int(sampleRate * (0.015 + rng.Float64()*0.02))
		amp := 0.25 + rng.Float64()*0.25
		for i := 0; i < burst && start+i < n; i++ {
			decay := math.Exp(-float64(i) / (sampleRate * 0.006))
			samples[start+i] += amp * decay * (rng.Float64()*2 - 1)
		}
	}

	data := make([]int, n)
	for i, s := range samples {
		data[i] = int(math.Max(-32767, math.Min(32767, s*32767)))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav samples: %w", err)
	}
	return enc.Close()
}
