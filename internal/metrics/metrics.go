package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversationCounter exposes the number of calls currently in
// conversation with the agent.
type ConversationCounter interface {
	ActiveConversations() int
}

// ReservationCounter returns reservation counts grouped by status.
type ReservationCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// CallCounter returns totals over finished calls.
type CallCounter interface {
	Count(ctx context.Context) (int64, error)
	CountBookingsCompleted(ctx context.Context) (int64, error)
}

// TierCounter returns analyzed call counts grouped by quality tier.
type TierCounter interface {
	CountByTier(ctx context.Context) (map[string]int64, error)
}

// Collector is a prometheus.Collector that gathers Tavolo metrics at
// scrape time.
type Collector struct {
	conversations ConversationCounter
	reservations  ReservationCounter
	calls         CallCounter
	quality       TierCounter
	startTime     time.Time

	// Metric descriptors.
	conversationsDesc *prometheus.Desc
	reservationsDesc  *prometheus.Desc
	callsTotalDesc    *prometheus.Desc
	bookingsDesc      *prometheus.Desc
	qualityTierDesc   *prometheus.Desc
	uptimeDesc        *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil
// if unavailable.
func NewCollector(
	conversations ConversationCounter,
	reservations ReservationCounter,
	calls CallCounter,
	quality TierCounter,
	startTime time.Time,
) *Collector {
	return &Collector{
		conversations: conversations,
		reservations:  reservations,
		calls:         calls,
		quality:       quality,
		startTime:     startTime,

		conversationsDesc: prometheus.NewDesc(
			"tavolo_active_conversations",
			"Number of phone calls currently in conversation with the agent",
			nil, nil,
		),
		reservationsDesc: prometheus.NewDesc(
			"tavolo_reservations",
			"Number of reservations by status",
			[]string{"status"}, nil,
		),
		callsTotalDesc: prometheus.NewDesc(
			"tavolo_calls_total",
			"Total number of finished phone calls",
			nil, nil,
		),
		bookingsDesc: prometheus.NewDesc(
			"tavolo_calls_booked_total",
			"Total number of finished calls that completed a booking",
			nil, nil,
		),
		qualityTierDesc: prometheus.NewDesc(
			"tavolo_calls_by_quality_tier",
			"Number of analyzed calls per quality tier",
			[]string{"tier"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"tavolo_uptime_seconds",
			"Seconds since the Tavolo process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.conversationsDesc
	ch <- c.reservationsDesc
	ch <- c.callsTotalDesc
	ch <- c.bookingsDesc
	ch <- c.qualityTierDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at
// scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.conversations != nil {
		ch <- prometheus.MustNewConstMetric(
			c.conversationsDesc, prometheus.GaugeValue,
			float64(c.conversations.ActiveConversations()),
		)
	}

	if c.reservations != nil {
		counts, err := c.reservations.CountByStatus(ctx)
		if err != nil {
			slog.Error("metrics: failed to count reservations", "error", err)
		} else {
			// Per-status counts shrink when reservations are cancelled,
			// so they are gauges, not counters.
			for status, n := range counts {
				ch <- prometheus.MustNewConstMetric(
					c.reservationsDesc, prometheus.GaugeValue,
					float64(n), status,
				)
			}
		}
	}

	if c.calls != nil {
		total, err := c.calls.Count(ctx)
		if err != nil {
			slog.Error("metrics: failed to count calls", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.callsTotalDesc, prometheus.CounterValue, float64(total),
			)
		}

		booked, err := c.calls.CountBookingsCompleted(ctx)
		if err != nil {
			slog.Error("metrics: failed to count bookings", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.bookingsDesc, prometheus.CounterValue, float64(booked),
			)
		}
	}

	if c.quality != nil {
		tiers, err := c.quality.CountByTier(ctx)
		if err != nil {
			slog.Error("metrics: failed to count quality tiers", "error", err)
		} else {
			for tier, n := range tiers {
				ch <- prometheus.MustNewConstMetric(
					c.qualityTierDesc, prometheus.GaugeValue,
					float64(n), tier,
				)
			}
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
