package sounds

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// SystemDir returns the path to the system sounds directory.
func SystemDir(dataDir string) string {
	return filepath.Join(dataDir, "sounds", "system")
}

// CustomDir returns the path to the custom (user-uploaded) sounds
// directory.
func CustomDir(dataDir string) string {
	return filepath.Join(dataDir, "sounds", "custom")
}

// ExtractToDataDir copies the embedded system sounds to the data
// directory so they can be served over /static/sounds/ and referenced
// in TwiML. Files that already exist on disk are skipped, preserving
// any replacements. The custom sounds directory is created too so
// uploads never need on-demand creation.
func ExtractToDataDir(dataDir string) error {
	sysDir := SystemDir(dataDir)
	if err := os.MkdirAll(sysDir, 0750); err != nil {
		return fmt.Errorf("creating system sounds directory: %w", err)
	}

	custDir := CustomDir(dataDir)
	if err := os.MkdirAll(custDir, 0750); err != nil {
		return fmt.Errorf("creating custom sounds directory: %w", err)
	}

	for _, name := range SystemSounds {
		dest := filepath.Join(sysDir, name)

		if _, err := os.Stat(dest); err == nil {
			slog.Debug("system sound already exists, skipping", "file", name)
			continue
		}

		data, err := fs.ReadFile(SystemFS, "system/"+name)
		if err != nil {
			return fmt.Errorf("reading embedded sound %s: %w", name, err)
		}

		if err := os.WriteFile(dest, data, 0640); err != nil {
			return fmt.Errorf("writing sound %s: %w", name, err)
		}

		slog.Info("extracted system sound", "file", name, "path", dest)
	}

	return nil
}
