package database

import (
	"context"

	"github.com/tavolo/tavolo/internal/database/models"
)

// SystemConfigRepository manages key-value system configuration.
type SystemConfigRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	GetAll(ctx context.Context) ([]models.SystemConfig, error)
}

// ReservationListFilter specifies filtering for reservation list queries.
type ReservationListFilter struct {
	Date   string // YYYY-MM-DD, empty for all dates
	Status string // empty for all statuses
}

// ReservationRepository manages table bookings.
type ReservationRepository interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
	List(ctx context.Context, filter ReservationListFilter) ([]models.Reservation, error)
	// ListConfirmedAt returns confirmed reservations with an assigned table
	// for the given date and time slot.
	ListConfirmedAt(ctx context.Context, date, timeSlot string) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// DiningTableRepository manages the restaurant's physical tables.
type DiningTableRepository interface {
	List(ctx context.Context) ([]models.DiningTable, error)
	GetByID(ctx context.Context, id int64) (*models.DiningTable, error)
	// ListActiveWithCapacity returns active tables seating at least minSeats,
	// smallest capacity first.
	ListActiveWithCapacity(ctx context.Context, minSeats int) ([]models.DiningTable, error)
}

// CallMetricsRepository manages the objective per-call measurements.
type CallMetricsRepository interface {
	Create(ctx context.Context, m *models.CallMetrics) error
	GetByCallSID(ctx context.Context, callSID string) (*models.CallMetrics, error)
	List(ctx context.Context, limit, offset int) ([]models.CallMetrics, int, error)
	// ListPendingAnalysis returns calls that have no quality record yet, or
	// whose AI-scored dimensions still carry the given default score.
	ListPendingAnalysis(ctx context.Context, defaultScore float64, limit int) ([]models.CallMetrics, error)
	Count(ctx context.Context) (int64, error)
	CountBookingsCompleted(ctx context.Context) (int64, error)
}

// CallQualityRepository manages five-dimension quality scores.
type CallQualityRepository interface {
	Upsert(ctx context.Context, q *models.CallQuality) error
	GetByCallSID(ctx context.Context, callSID string) (*models.CallQuality, error)
	CountByTier(ctx context.Context) (map[string]int64, error)
}

// ConversationTurnRepository manages call transcripts.
type ConversationTurnRepository interface {
	Create(ctx context.Context, turn *models.ConversationTurn) error
	ListByCall(ctx context.Context, callSID string) ([]models.ConversationTurn, error)
}

// SoundRepository manages feedback audio assets.
type SoundRepository interface {
	Create(ctx context.Context, snd *models.Sound) error
	GetByID(ctx context.Context, id int64) (*models.Sound, error)
	List(ctx context.Context) ([]models.Sound, error)
	Delete(ctx context.Context, id int64) error
}
