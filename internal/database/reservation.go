package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tavolo/tavolo/internal/database/models"
)

// reservationRepo implements ReservationRepository.
type reservationRepo struct {
	db *DB
}

// NewReservationRepository creates a new ReservationRepository.
func NewReservationRepository(db *DB) ReservationRepository {
	return &reservationRepo{db: db}
}

// Create inserts a new reservation.
func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (name, phone, party_size, date, time, status,
		 assigned_table_id, call_sid, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))`,
		res.Name, res.Phone, res.PartySize, res.Date, res.Time, res.Status,
		res.AssignedTableID, res.CallSID,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	res.ID = id
	return nil
}

// GetByID returns a reservation by ID, or nil if not found.
func (r *reservationRepo) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, name, phone, party_size, date, time, status,
		 assigned_table_id, call_sid, created_at, updated_at
		 FROM reservations WHERE id = ?`, id,
	))
}

// List returns reservations matching the filter, most recent slot first.
func (r *reservationRepo) List(ctx context.Context, filter ReservationListFilter) ([]models.Reservation, error) {
	where := "1=1"
	args := []any{}

	if filter.Date != "" {
		where += " AND date = ?"
		args = append(args, filter.Date)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone, party_size, date, time, status,
		 assigned_table_id, call_sid, created_at, updated_at
		 FROM reservations WHERE `+where+` ORDER BY date DESC, time DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// ListConfirmedAt returns confirmed reservations with an assigned table for
// the given slot.
func (r *reservationRepo) ListConfirmedAt(ctx context.Context, date, timeSlot string) ([]models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone, party_size, date, time, status,
		 assigned_table_id, call_sid, created_at, updated_at
		 FROM reservations
		 WHERE date = ? AND time = ? AND status = ? AND assigned_table_id IS NOT NULL`,
		date, timeSlot, models.ReservationConfirmed)
	if err != nil {
		return nil, fmt.Errorf("listing reservations for slot: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// UpdateStatus sets the status of a reservation.
func (r *reservationRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id)
	if err != nil {
		return fmt.Errorf("updating reservation status: %w", err)
	}
	return nil
}

// Count returns the total number of reservations.
func (r *reservationRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting reservations: %w", err)
	}
	return count, nil
}

// CountByStatus returns reservation counts grouped by status.
func (r *reservationRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting reservations by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *reservationRepo) scanOne(row *sql.Row) (*models.Reservation, error) {
	var res models.Reservation
	err := row.Scan(&res.ID, &res.Name, &res.Phone, &res.PartySize, &res.Date,
		&res.Time, &res.Status, &res.AssignedTableID, &res.CallSID,
		&res.CreatedAt, &res.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning reservation: %w", err)
	}
	return &res, nil
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(&res.ID, &res.Name, &res.Phone, &res.PartySize,
			&res.Date, &res.Time, &res.Status, &res.AssignedTableID,
			&res.CallSID, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}
