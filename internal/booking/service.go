package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/database/models"
)

// Notifier delivers booking confirmations and cancellations to the
// customer out of band. Implementations must be safe to call with a
// best-effort contract: the booking itself never fails on a
// notification error.
type Notifier interface {
	SendConfirmation(ctx context.Context, toPhone, name string, partySize int, date, timeSlot string, tableNumber int) error
	SendCancellation(ctx context.Context, toPhone, name, date, timeSlot string) error
}

// TableOption describes one table free at a requested slot.
type TableOption struct {
	ID       int64 `json:"id"`
	Number   int   `json:"number"`
	Capacity int   `json:"capacity"`
}

// Availability is the answer to "can you seat N people at this slot".
type Availability struct {
	Available    bool          `json:"available"`
	Reason       string        `json:"reason,omitempty"`
	Tables       []TableOption `json:"available_tables,omitempty"`
	Alternatives []string      `json:"suggested_alternatives,omitempty"`
}

// UnavailableError is returned by CreateReservation when no table fits
// the requested slot. It carries alternative times the agent can offer.
type UnavailableError struct {
	Reason       string
	Alternatives []string
}

func (e *UnavailableError) Error() string { return e.Reason }

// BookingResult is a created reservation together with its table.
type BookingResult struct {
	Reservation *models.Reservation
	Table       TableOption
}

// CancelResult describes a completed cancellation.
type CancelResult struct {
	Reservation *models.Reservation
	TableNumber int // 0 when the reservation had no assigned table
}

// Service implements the reservation workflow: availability checks,
// table assignment, lookup and cancellation.
type Service struct {
	reservations database.ReservationRepository
	tables       database.DiningTableRepository
	notifier     Notifier
	openHour     int
	closeHour    int
	logger       *slog.Logger
	now          func() time.Time
}

// NewService builds a Service. notifier may be nil when SMS is not
// configured.
func NewService(reservations database.ReservationRepository, tables database.DiningTableRepository, notifier Notifier, openHour, closeHour int, logger *slog.Logger) *Service {
	return &Service{
		reservations: reservations,
		tables:       tables,
		notifier:     notifier,
		openHour:     openHour,
		closeHour:    closeHour,
		logger:       logger,
		now:          time.Now,
	}
}

// CheckAvailability returns the tables free for a party at a slot. When
// every suitable table is taken it suggests up to three nearby times.
func (s *Service) CheckAvailability(ctx context.Context, partySize int, date, timeSlot string) (*Availability, error) {
	if partySize < 1 {
		return nil, fmt.Errorf("party size must be at least 1")
	}
	date = NormalizeDate(date, s.now())
	timeSlot = NormalizeTime(timeSlot)
	if err := ValidateSlot(date, timeSlot); err != nil {
		return nil, err
	}

	suitable, err := s.tables.ListActiveWithCapacity(ctx, partySize)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if len(suitable) == 0 {
		return &Availability{
			Available: false,
			Reason:    fmt.Sprintf("No tables large enough for %d people", partySize),
		}, nil
	}

	free, err := s.freeTables(ctx, suitable, date, timeSlot)
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		alts, err := s.suggestAlternatives(ctx, suitable, date, timeSlot)
		if err != nil {
			return nil, err
		}
		return &Availability{
			Available:    false,
			Reason:       fmt.Sprintf("All tables for %d+ people are booked at %s", partySize, timeSlot),
			Alternatives: alts,
		}, nil
	}

	return &Availability{Available: true, Tables: free}, nil
}

// freeTables filters suitable tables down to those not already assigned
// to a confirmed reservation at the slot. Order is preserved, so the
// first entry is the smallest fit.
func (s *Service) freeTables(ctx context.Context, suitable []models.DiningTable, date, timeSlot string) ([]TableOption, error) {
	booked, err := s.reservations.ListConfirmedAt(ctx, date, timeSlot)
	if err != nil {
		return nil, fmt.Errorf("list booked tables: %w", err)
	}
	taken := make(map[int64]bool, len(booked))
	for _, r := range booked {
		if r.AssignedTableID != nil {
			taken[*r.AssignedTableID] = true
		}
	}

	var free []TableOption
	for _, t := range suitable {
		if !taken[t.ID] {
			free = append(free, TableOption{ID: t.ID, Number: t.TableNumber, Capacity: t.Capacity})
		}
	}
	return free, nil
}

// suggestAlternatives probes slots at 30, 60 and 90 minutes either side
// of the requested time, inside opening hours, and returns up to three
// that still have a free table.
func (s *Service) suggestAlternatives(ctx context.Context, suitable []models.DiningTable, date, timeSlot string) ([]string, error) {
	base, err := time.Parse("15:04", timeSlot)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: %w", timeSlot, err)
	}

	var alts []string
	for _, offset := range []int{-90, -60, -30, 30, 60, 90} {
		alt := base.Add(time.Duration(offset) * time.Minute)
		if alt.Hour() < s.openHour || alt.Hour() >= s.closeHour {
			continue
		}
		altSlot := alt.Format("15:04")

		free, err := s.freeTables(ctx, suitable, date, altSlot)
		if err != nil {
			return nil, err
		}
		if len(free) > 0 {
			alts = append(alts, altSlot)
			if len(alts) >= 3 {
				break
			}
		}
	}
	return alts, nil
}

// CreateRequest holds the details for a new reservation.
type CreateRequest struct {
	Name      string
	PartySize int
	Date      string
	Time      string
	Phone     string
	CallSID   string
}

// CreateReservation books the smallest free table that fits the party
// and sends a confirmation SMS when a phone number is known. Returns
// *UnavailableError when nothing is free at the slot.
func (s *Service) CreateReservation(ctx context.Context, req CreateRequest) (*BookingResult, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	req.Date = NormalizeDate(req.Date, s.now())
	req.Time = NormalizeTime(req.Time)

	avail, err := s.CheckAvailability(ctx, req.PartySize, req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, &UnavailableError{Reason: avail.Reason, Alternatives: avail.Alternatives}
	}

	// Tables arrive smallest first, so the head is the optimal fit.
	table := avail.Tables[0]

	res := &models.Reservation{
		Name:            req.Name,
		Phone:           req.Phone,
		PartySize:       req.PartySize,
		Date:            req.Date,
		Time:            req.Time,
		Status:          models.ReservationConfirmed,
		AssignedTableID: &table.ID,
		CallSID:         req.CallSID,
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.logger.Info("reservation created",
		"reservation_id", res.ID,
		"name", req.Name,
		"party_size", req.PartySize,
		"date", req.Date,
		"time", req.Time,
		"table", table.Number)

	if s.notifier != nil && req.Phone != "" {
		if err := s.notifier.SendConfirmation(ctx, req.Phone, req.Name, req.PartySize, req.Date, req.Time, table.Number); err != nil {
			s.logger.Warn("confirmation sms failed", "reservation_id", res.ID, "error", err)
		}
	}

	return &BookingResult{Reservation: res, Table: table}, nil
}

// FindReservations lists confirmed reservations, optionally narrowed by
// date and fuzzy-matched name.
func (s *Service) FindReservations(ctx context.Context, date, name string) ([]models.Reservation, error) {
	if date != "" {
		date = NormalizeDate(date, s.now())
		if err := ValidateSlot(date, "12:00"); err != nil {
			return nil, err
		}
	}

	all, err := s.reservations.List(ctx, database.ReservationListFilter{
		Date:   date,
		Status: models.ReservationConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	if name == "" {
		return all, nil
	}

	var matched []models.Reservation
	for _, r := range all {
		if MatchName(name, r.Name) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// CancelReservation cancels by ID when given, otherwise by the best
// fuzzy name match among confirmed reservations. Cancelling frees the
// assigned table for the slot.
func (s *Service) CancelReservation(ctx context.Context, id int64, name, date string) (*CancelResult, error) {
	if date != "" {
		date = NormalizeDate(date, s.now())
	}

	var res *models.Reservation
	var err error

	switch {
	case id > 0:
		res, err = s.reservations.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get reservation: %w", err)
		}
	case name != "":
		res, err = s.bestMatch(ctx, name, date)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("need either a reservation id or a name to cancel")
	}

	if res == nil {
		return nil, fmt.Errorf("no reservation found matching %q", name)
	}

	tableNumber := 0
	if res.AssignedTableID != nil {
		if t, err := s.tables.GetByID(ctx, *res.AssignedTableID); err == nil && t != nil {
			tableNumber = t.TableNumber
		}
	}

	if err := s.reservations.UpdateStatus(ctx, res.ID, models.ReservationCancelled); err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}
	res.Status = models.ReservationCancelled

	s.logger.Info("reservation cancelled",
		"reservation_id", res.ID,
		"name", res.Name,
		"date", res.Date,
		"time", res.Time)

	if s.notifier != nil && res.Phone != "" {
		if err := s.notifier.SendCancellation(ctx, res.Phone, res.Name, res.Date, res.Time); err != nil {
			s.logger.Warn("cancellation sms failed", "reservation_id", res.ID, "error", err)
		}
	}

	return &CancelResult{Reservation: res, TableNumber: tableNumber}, nil
}

func (s *Service) bestMatch(ctx context.Context, name, date string) (*models.Reservation, error) {
	candidates, err := s.reservations.List(ctx, database.ReservationListFilter{
		Date:   date,
		Status: models.ReservationConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	var best *models.Reservation
	bestScore := 0
	for i := range candidates {
		score := nameScore(name, candidates[i].Name)
		if score >= matchThreshold && score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}
	return best, nil
}
