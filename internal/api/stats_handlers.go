package api

import (
	"log/slog"
	"net/http"
	"time"
)

// handleHealth returns basic health status including database
// reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	reservations, err := s.reservations.Count(r.Context())
	if err != nil {
		slog.Error("health check database query failed", "error", err)
		dbStatus = "error"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"database":       dbStatus,
		"reservations":   reservations,
		"active_calls":   s.calls.Active(),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

// handleStats aggregates operational counters for the dashboard.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	byStatus, err := s.reservations.CountByStatus(ctx)
	if err != nil {
		slog.Error("failed to count reservations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	totalCalls, err := s.callMetrics.Count(ctx)
	if err != nil {
		slog.Error("failed to count calls", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	booked, err := s.callMetrics.CountBookingsCompleted(ctx)
	if err != nil {
		slog.Error("failed to count bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	byTier, err := s.callQuality.CountByTier(ctx)
	if err != nil {
		slog.Error("failed to count quality tiers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	var bookingRate float64
	if totalCalls > 0 {
		bookingRate = float64(booked) / float64(totalCalls) * 100
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reservations_by_status": byStatus,
		"total_calls":            totalCalls,
		"bookings_completed":     booked,
		"booking_rate_pct":       bookingRate,
		"calls_by_quality_tier":  byTier,
		"active_conversations":   s.agent.ActiveConversations(),
	})
}
