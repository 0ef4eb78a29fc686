package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tavolo/tavolo/internal/booking"
	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/database/models"
)

// reservationJSON is the API shape of a reservation.
type reservationJSON struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone,omitempty"`
	PartySize       int       `json:"party_size"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Status          string    `json:"status"`
	AssignedTableID *int64    `json:"assigned_table_id,omitempty"`
	CallSID         string    `json:"call_sid,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toReservationJSON(res *models.Reservation) reservationJSON {
	return reservationJSON{
		ID:              res.ID,
		Name:            res.Name,
		Phone:           res.Phone,
		PartySize:       res.PartySize,
		Date:            res.Date,
		Time:            res.Time,
		Status:          res.Status,
		AssignedTableID: res.AssignedTableID,
		CallSID:         res.CallSID,
		CreatedAt:       res.CreatedAt,
	}
}

// handleListReservations returns reservations, optionally filtered by
// ?date=YYYY-MM-DD and ?status=.
func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	filter := database.ReservationListFilter{
		Date:   r.URL.Query().Get("date"),
		Status: r.URL.Query().Get("status"),
	}

	list, err := s.reservations.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list reservations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}

	out := make([]reservationJSON, 0, len(list))
	for i := range list {
		out = append(out, toReservationJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetReservation returns a single reservation by ID.
func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	res, err := s.reservations.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to get reservation", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get reservation")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, toReservationJSON(res))
}

type createReservationRequest struct {
	Name      string `json:"name"`
	PartySize int    `json:"party_size"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Phone     string `json:"phone"`
}

// handleCreateReservation books a table through the same workflow the
// phone agent uses, table assignment and confirmation SMS included.
func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateRequiredStringLen("name", req.Name, maxNameLen); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateStringLen("phone", req.Phone, maxPhoneLen); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.booking.CreateReservation(r.Context(), booking.CreateRequest{
		Name:      req.Name,
		PartySize: req.PartySize,
		Date:      req.Date,
		Time:      req.Time,
		Phone:     req.Phone,
	})
	if err != nil {
		var unavail *booking.UnavailableError
		if errors.As(err, &unavail) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"available":              false,
				"reason":                 unavail.Reason,
				"suggested_alternatives": unavail.Alternatives,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"reservation": toReservationJSON(result.Reservation),
		"table":       result.Table,
	})
}

// handleCancelReservation cancels a reservation by ID and frees its
// table.
func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	result, err := s.booking.CancelReservation(r.Context(), id, "", "")
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reservation":  toReservationJSON(result.Reservation),
		"table_number": result.TableNumber,
	})
}

// handleCheckAvailability answers ?party_size=&date=&time= with free
// tables or alternative slots.
func (s *Server) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	partySize := queryInt(r, "party_size", 0)
	date := r.URL.Query().Get("date")
	timeSlot := r.URL.Query().Get("time")

	avail, err := s.booking.CheckAvailability(r.Context(), partySize, date, timeSlot)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// tableJSON is the API shape of a dining table.
type tableJSON struct {
	ID          int64 `json:"id"`
	TableNumber int   `json:"table_number"`
	Capacity    int   `json:"capacity"`
	IsActive    bool  `json:"is_active"`
}

// handleListTables returns the restaurant's tables.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.tables.List(r.Context())
	if err != nil {
		slog.Error("failed to list tables", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tables")
		return
	}

	out := make([]tableJSON, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableJSON{
			ID:          t.ID,
			TableNumber: t.TableNumber,
			Capacity:    t.Capacity,
			IsActive:    t.IsActive,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
