package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tavolo/tavolo/internal/database/models"
)

// soundRepo implements SoundRepository.
type soundRepo struct {
	db *DB
}

// NewSoundRepository creates a new SoundRepository.
func NewSoundRepository(db *DB) SoundRepository {
	return &soundRepo{db: db}
}

// Create inserts a new sound record.
func (r *soundRepo) Create(ctx context.Context, snd *models.Sound) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sounds (name, filename, format, file_size, file_path, created_at)
		 VALUES (?, ?, ?, ?, ?, datetime('now'))`,
		snd.Name, snd.Filename, snd.Format, snd.FileSize, snd.FilePath,
	)
	if err != nil {
		return fmt.Errorf("inserting sound: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	snd.ID = id
	return nil
}

// GetByID returns a sound by ID, or nil if not found.
func (r *soundRepo) GetByID(ctx context.Context, id int64) (*models.Sound, error) {
	var s models.Sound
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, filename, format, file_size, file_path, created_at
		 FROM sounds WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Filename, &s.Format, &s.FileSize, &s.FilePath, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning sound: %w", err)
	}
	return &s, nil
}

// List returns all sounds ordered by name.
func (r *soundRepo) List(ctx context.Context) ([]models.Sound, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, filename, format, file_size, file_path, created_at
		 FROM sounds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying sounds: %w", err)
	}
	defer rows.Close()

	var sounds []models.Sound
	for rows.Next() {
		var s models.Sound
		if err := rows.Scan(&s.ID, &s.Name, &s.Filename, &s.Format, &s.FileSize,
			&s.FilePath, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning sound row: %w", err)
		}
		sounds = append(sounds, s)
	}
	return sounds, rows.Err()
}

// Delete removes a sound by ID.
func (r *soundRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sounds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting sound: %w", err)
	}
	return nil
}
