package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tavolo/tavolo/internal/database/models"
)

// diningTableRepo implements DiningTableRepository.
type diningTableRepo struct {
	db *DB
}

// NewDiningTableRepository creates a new DiningTableRepository.
func NewDiningTableRepository(db *DB) DiningTableRepository {
	return &diningTableRepo{db: db}
}

// List returns all tables ordered by table number.
func (r *diningTableRepo) List(ctx context.Context) ([]models.DiningTable, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, table_number, capacity, is_active
		 FROM dining_tables ORDER BY table_number`)
	if err != nil {
		return nil, fmt.Errorf("listing dining tables: %w", err)
	}
	defer rows.Close()

	return scanDiningTables(rows)
}

// GetByID returns a table by ID, or nil if not found.
func (r *diningTableRepo) GetByID(ctx context.Context, id int64) (*models.DiningTable, error) {
	var t models.DiningTable
	err := r.db.QueryRowContext(ctx,
		`SELECT id, table_number, capacity, is_active
		 FROM dining_tables WHERE id = ?`, id,
	).Scan(&t.ID, &t.TableNumber, &t.Capacity, &t.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning dining table: %w", err)
	}
	return &t, nil
}

// ListActiveWithCapacity returns active tables seating at least minSeats,
// smallest capacity first so callers can assign the tightest fit.
func (r *diningTableRepo) ListActiveWithCapacity(ctx context.Context, minSeats int) ([]models.DiningTable, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, table_number, capacity, is_active
		 FROM dining_tables
		 WHERE capacity >= ? AND is_active = 1
		 ORDER BY capacity, table_number`, minSeats)
	if err != nil {
		return nil, fmt.Errorf("listing suitable dining tables: %w", err)
	}
	defer rows.Close()

	return scanDiningTables(rows)
}

func scanDiningTables(rows *sql.Rows) ([]models.DiningTable, error) {
	var tables []models.DiningTable
	for rows.Next() {
		var t models.DiningTable
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.Capacity, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scanning dining table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
