// Package sounds manages the feedback audio played to callers while
// the agent is thinking. The default typing sound is embedded in the
// binary and extracted to the data directory on first boot; custom
// sounds uploaded through the API are stored alongside it and validated
// for telephony playback.
package sounds

import "embed"

// SystemFS holds the default feedback sounds embedded in the binary.
// Files are under system/ (e.g. system/keyboard-typing.wav).
//
//go:embed system/*.wav
var SystemFS embed.FS

// TypingSound is the keyboard sound played inside Gather while the
// model call is in flight, so the line never goes dead quiet.
const TypingSound = "keyboard-typing.wav"

// SystemSounds lists the filenames of all default feedback sounds.
// These are extracted to $DATA_DIR/sounds/system/ on first boot.
var SystemSounds = []string{
	TypingSound,
}
