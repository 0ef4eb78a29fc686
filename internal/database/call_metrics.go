package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tavolo/tavolo/internal/database/models"
)

// callMetricsRepo implements CallMetricsRepository.
type callMetricsRepo struct {
	db *DB
}

// NewCallMetricsRepository creates a new CallMetricsRepository.
func NewCallMetricsRepository(db *DB) CallMetricsRepository {
	return &callMetricsRepo{db: db}
}

// Create inserts the metrics record for a finished call.
func (r *callMetricsRepo) Create(ctx context.Context, m *models.CallMetrics) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO call_metrics (call_sid, call_start, call_end, total_duration_sec,
		 user_turns, agent_turns, clarifications_needed, booking_completed,
		 intent_fulfilled, user_hung_up_early, tools_called, total_latency_ms,
		 api_errors, prompt_version, caller_phone, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		m.CallSID, m.CallStart, m.CallEnd, m.TotalDurationSec,
		m.UserTurns, m.AgentTurns, m.ClarificationsNeeded, m.BookingCompleted,
		m.IntentFulfilled, m.UserHungUpEarly, m.ToolsCalled, m.TotalLatencyMS,
		m.APIErrors, m.PromptVersion, m.CallerPhone,
	)
	if err != nil {
		return fmt.Errorf("inserting call metrics: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// GetByCallSID returns the metrics for a call, or nil if not found.
func (r *callMetricsRepo) GetByCallSID(ctx context.Context, callSID string) (*models.CallMetrics, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		selectCallMetrics+` WHERE call_sid = ?`, callSID,
	))
}

// List returns call metrics newest first, along with the total count.
func (r *callMetricsRepo) List(ctx context.Context, limit, offset int) ([]models.CallMetrics, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_metrics`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting call metrics: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectCallMetrics+` ORDER BY call_start DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing call metrics: %w", err)
	}
	defer rows.Close()

	metrics, err := scanCallMetrics(rows)
	if err != nil {
		return nil, 0, err
	}
	return metrics, total, nil
}

// ListPendingAnalysis returns calls without a quality record, or whose
// AI-scored dimensions still carry the given default score.
func (r *callMetricsRepo) ListPendingAnalysis(ctx context.Context, defaultScore float64, limit int) ([]models.CallMetrics, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.call_sid, m.call_start, m.call_end, m.total_duration_sec,
		 m.user_turns, m.agent_turns, m.clarifications_needed, m.booking_completed,
		 m.intent_fulfilled, m.user_hung_up_early, m.tools_called, m.total_latency_ms,
		 m.api_errors, m.prompt_version, m.caller_phone, m.created_at
		 FROM call_metrics m
		 LEFT JOIN call_quality q ON q.call_sid = m.call_sid
		 WHERE q.call_sid IS NULL OR q.naturalness_score = ?
		 ORDER BY m.call_start
		 LIMIT ?`, defaultScore, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending calls: %w", err)
	}
	defer rows.Close()

	return scanCallMetrics(rows)
}

// Count returns the total number of recorded calls.
func (r *callMetricsRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_metrics`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting call metrics: %w", err)
	}
	return count, nil
}

// CountBookingsCompleted returns the number of calls that ended in a booking.
func (r *callMetricsRepo) CountBookingsCompleted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM call_metrics WHERE booking_completed = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting completed bookings: %w", err)
	}
	return count, nil
}

const selectCallMetrics = `SELECT id, call_sid, call_start, call_end, total_duration_sec,
	 user_turns, agent_turns, clarifications_needed, booking_completed,
	 intent_fulfilled, user_hung_up_early, tools_called, total_latency_ms,
	 api_errors, prompt_version, caller_phone, created_at
	 FROM call_metrics`

func (r *callMetricsRepo) scanOne(row *sql.Row) (*models.CallMetrics, error) {
	var m models.CallMetrics
	err := row.Scan(&m.ID, &m.CallSID, &m.CallStart, &m.CallEnd, &m.TotalDurationSec,
		&m.UserTurns, &m.AgentTurns, &m.ClarificationsNeeded, &m.BookingCompleted,
		&m.IntentFulfilled, &m.UserHungUpEarly, &m.ToolsCalled, &m.TotalLatencyMS,
		&m.APIErrors, &m.PromptVersion, &m.CallerPhone, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning call metrics: %w", err)
	}
	return &m, nil
}

func scanCallMetrics(rows *sql.Rows) ([]models.CallMetrics, error) {
	var metrics []models.CallMetrics
	for rows.Next() {
		var m models.CallMetrics
		if err := rows.Scan(&m.ID, &m.CallSID, &m.CallStart, &m.CallEnd,
			&m.TotalDurationSec, &m.UserTurns, &m.AgentTurns,
			&m.ClarificationsNeeded, &m.BookingCompleted, &m.IntentFulfilled,
			&m.UserHungUpEarly, &m.ToolsCalled, &m.TotalLatencyMS,
			&m.APIErrors, &m.PromptVersion, &m.CallerPhone, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning call metrics row: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
