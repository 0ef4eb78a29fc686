package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tavolo/tavolo/internal/database/models"
	"github.com/tavolo/tavolo/internal/sounds"
)

// soundJSON is the API shape of a feedback sound.
type soundJSON struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	FileSize   int64     `json:"file_size"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toSoundJSON(snd *models.Sound) soundJSON {
	return soundJSON{
		ID:        snd.ID,
		Name:      snd.Name,
		Filename:  snd.Filename,
		Format:    snd.Format,
		FileSize:  snd.FileSize,
		CreatedAt: snd.CreatedAt,
	}
}

// handleListSounds returns the uploaded feedback sounds.
func (s *Server) handleListSounds(w http.ResponseWriter, r *http.Request) {
	list, err := s.sounds.List(r.Context())
	if err != nil {
		slog.Error("failed to list sounds", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sounds")
		return
	}

	out := make([]soundJSON, 0, len(list))
	for i := range list {
		out = append(out, toSoundJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetSound returns one sound's metadata.
func (s *Server) handleGetSound(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sound id")
		return
	}

	snd, err := s.sounds.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to get sound", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get sound")
		return
	}
	if snd == nil {
		writeError(w, http.StatusNotFound, "sound not found")
		return
	}
	writeJSON(w, http.StatusOK, toSoundJSON(snd))
}

// handleUploadSound accepts a multipart WAV upload, validates it
// against the telephony constraints and stores it in the custom sounds
// directory.
func (s *Server) handleUploadSound(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, sounds.MaxFileSize+4096)
	if err := r.ParseMultipartForm(sounds.MaxFileSize + 4096); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	if msg := validateRequiredStringLen("name", name, maxSoundNameLen); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	// WAV files get full container inspection; MP3 is accepted on
	// extension and size alone.
	format := "wav"
	if strings.EqualFold(filepath.Ext(header.Filename), ".mp3") {
		format = "mp3"
		if int64(len(data)) > sounds.MaxFileSize {
			writeError(w, http.StatusUnprocessableEntity, "file too large")
			return
		}
	} else {
		if _, err := sounds.ValidateWAV(data); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	// Stored filename is server-generated, never the client's path.
	storedName := fmt.Sprintf("%d-%s.%s", time.Now().UnixNano(), sanitizeSoundName(name), format)
	dir := sounds.CustomDir(s.cfg.DataDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		slog.Error("failed to create sounds dir", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store sound")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, storedName), data, 0640); err != nil {
		slog.Error("failed to write sound file", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store sound")
		return
	}

	snd := &models.Sound{
		Name:     name,
		Filename: filepath.Base(header.Filename),
		Format:   format,
		FileSize: int64(len(data)),
		FilePath: storedName,
	}
	if err := s.sounds.Create(r.Context(), snd); err != nil {
		slog.Error("failed to save sound record", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store sound")
		return
	}

	slog.Info("sound uploaded", "id", snd.ID, "name", snd.Name, "size", snd.FileSize)
	writeJSON(w, http.StatusCreated, toSoundJSON(snd))
}

// handleSoundAudio streams a sound's WAV data.
func (s *Server) handleSoundAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sound id")
		return
	}

	snd, err := s.sounds.GetByID(r.Context(), id)
	if err != nil || snd == nil {
		writeError(w, http.StatusNotFound, "sound not found")
		return
	}

	path := filepath.Join(sounds.CustomDir(s.cfg.DataDir), filepath.Base(snd.FilePath))
	f, err := os.Open(path)
	if err != nil {
		slog.Error("sound file missing on disk", "id", id, "path", path)
		writeError(w, http.StatusNotFound, "sound file not found")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", soundContentType(snd.FilePath))
	http.ServeContent(w, r, snd.Filename, snd.CreatedAt, f)
}

// handleDeleteSound removes a sound record and its file.
func (s *Server) handleDeleteSound(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sound id")
		return
	}

	snd, err := s.sounds.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to get sound", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete sound")
		return
	}
	if snd == nil {
		writeError(w, http.StatusNotFound, "sound not found")
		return
	}

	if err := s.sounds.Delete(r.Context(), id); err != nil {
		slog.Error("failed to delete sound record", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete sound")
		return
	}

	path := filepath.Join(sounds.CustomDir(s.cfg.DataDir), filepath.Base(snd.FilePath))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove sound file", "path", path, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleServeSound serves audio for Twilio <Play> verbs. System sounds
// extracted at startup take precedence over uploaded ones.
func (s *Server) handleServeSound(w http.ResponseWriter, r *http.Request) {
	s.serveSoundFile(w, r,
		sounds.SystemDir(s.cfg.DataDir),
		sounds.CustomDir(s.cfg.DataDir),
	)
}

// handleServeScopedSound serves /static/sounds/{scope}/{filename} where
// scope pins the lookup to the system or custom directory.
func (s *Server) handleServeScopedSound(w http.ResponseWriter, r *http.Request) {
	var dir string
	switch chi.URLParam(r, "scope") {
	case "system":
		dir = sounds.SystemDir(s.cfg.DataDir)
	case "custom":
		dir = sounds.CustomDir(s.cfg.DataDir)
	default:
		writeError(w, http.StatusNotFound, "sound not found")
		return
	}
	s.serveSoundFile(w, r, dir)
}

func (s *Server) serveSoundFile(w http.ResponseWriter, r *http.Request, dirs ...string) {
	filename := filepath.Base(chi.URLParam(r, "filename"))
	if !strings.HasSuffix(filename, ".wav") && !strings.HasSuffix(filename, ".mp3") {
		writeError(w, http.StatusNotFound, "sound not found")
		return
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, filename)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil {
			continue
		}
		w.Header().Set("Content-Type", soundContentType(filename))
		http.ServeContent(w, r, filename, fi.ModTime(), f)
		return
	}

	writeError(w, http.StatusNotFound, "sound not found")
}

func soundContentType(filename string) string {
	if strings.HasSuffix(filename, ".mp3") {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// sanitizeSoundName reduces a display name to a safe filename stem.
func sanitizeSoundName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ', c == '-', c == '_':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "sound"
	}
	return out
}
