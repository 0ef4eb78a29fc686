package sounds

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-audio/wav"
)

// Limits for uploaded feedback sounds. Telephony playback wants small
// mono files at phone-line sample rates.
const (
	MaxFileSize   = 100 * 1024 // 100KB
	MaxDuration   = 10 * time.Second
	MinSampleRate = 8000
	MaxSampleRate = 16000
)

// Info describes a validated WAV file.
type Info struct {
	SampleRate int
	BitDepth   int
	Channels   int
	Duration   time.Duration
	FileSize   int64
}

// ValidateWAV checks that data is a WAV file suitable for playback to a
// caller: valid RIFF/WAVE, mono, 8-16kHz, at most 100KB and 10 seconds.
func ValidateWAV(data []byte) (*Info, error) {
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("file is %d bytes, limit is %d", len(data), MaxFileSize)
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	if d.NumChans != 1 {
		return nil, fmt.Errorf("got %d channels, want mono", d.NumChans)
	}
	if d.SampleRate < MinSampleRate || d.SampleRate > MaxSampleRate {
		return nil, fmt.Errorf("sample rate %dHz outside %d-%dHz", d.SampleRate, MinSampleRate, MaxSampleRate)
	}

	dur, err := d.Duration()
	if err != nil {
		return nil, fmt.Errorf("reading duration: %w", err)
	}
	if dur > MaxDuration {
		return nil, fmt.Errorf("duration %s exceeds %s", dur, MaxDuration)
	}

	return &Info{
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Channels:   int(d.NumChans),
		Duration:   dur,
		FileSize:   int64(len(data)),
	}, nil
}
