package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tavolo/tavolo/internal/booking"
	"github.com/tavolo/tavolo/internal/database/models"
)

// Tool names the model may call.
const (
	toolGetCurrentDate    = "get_current_date"
	toolCheckAvailability = "check_availability"
	toolCreateReservation = "create_reservation"
	toolGetReservations   = "get_reservations"
	toolCancelReservation = "cancel_reservation"
)

// toolDefinitions declares the reservation tools in OpenAI function
// calling form. Schemas are static JSON.
func toolDefinitions() []openai.Tool {
	def := func(name, description, params string) openai.Tool {
		return openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  json.RawMessage(params),
			},
		}
	}

	return []openai.Tool{
		def(toolGetCurrentDate,
			"Get today's date and time. ALWAYS use this first when user says 'today', 'tomorrow', 'this week', 'next week', or any relative date. This tells you what the actual calendar date is.",
			`{"type":"object","properties":{},"required":[]}`),
		def(toolCheckAvailability,
			"Check if restaurant has available tables for a given party size, date, and time. Use this BEFORE creating a reservation.",
			`{"type":"object","properties":{
				"party_size":{"type":"integer","description":"Number of people in the party"},
				"date":{"type":"string","description":"Date in YYYY-MM-DD format (e.g., 2024-01-15)"},
				"time":{"type":"string","description":"Time in HH:MM 24-hour format (e.g., 19:00 for 7pm)"}
			},"required":["party_size","date","time"]}`),
		def(toolCreateReservation,
			"Create a confirmed reservation. Only use this AFTER checking availability and getting customer confirmation.",
			`{"type":"object","properties":{
				"name":{"type":"string","description":"Customer's full name"},
				"party_size":{"type":"integer","description":"Number of people"},
				"date":{"type":"string","description":"Date in YYYY-MM-DD format"},
				"time":{"type":"string","description":"Time in HH:MM 24-hour format"}
			},"required":["name","party_size","date","time"]}`),
		def(toolGetReservations,
			"Look up existing reservations by date or customer name",
			`{"type":"object","properties":{
				"date":{"type":"string","description":"Filter by date (YYYY-MM-DD format)"},
				"name":{"type":"string","description":"Filter by customer name"}
			}}`),
		def(toolCancelReservation,
			"Cancel an existing reservation",
			`{"type":"object","properties":{
				"name":{"type":"string","description":"Customer name"},
				"date":{"type":"string","description":"Date of reservation (YYYY-MM-DD)"}
			},"required":["name"]}`),
	}
}

// toolOutcome reports side effects of a tool execution back to the
// conversation loop.
type toolOutcome struct {
	BookingCompleted bool
	IntentFulfilled  bool
}

// dispatcher executes tool calls against the booking service and
// renders the results as JSON for the model.
type dispatcher struct {
	booking *booking.Service
	now     func() time.Time
	logger  *slog.Logger
}

func newDispatcher(svc *booking.Service, logger *slog.Logger) *dispatcher {
	return &dispatcher{booking: svc, now: time.Now, logger: logger}
}

// execute runs one tool call. The caller's phone number and call SID
// ride along so a created reservation can be texted and traced; the
// model never supplies those.
func (d *dispatcher) execute(ctx context.Context, call openai.ToolCall, callerPhone, callSID string) (string, toolOutcome, error) {
	args := call.Function.Arguments
	if args == "" {
		args = "{}"
	}

	switch call.Function.Name {
	case toolGetCurrentDate:
		return marshalResult(booking.CurrentDateInfo(d.now()))

	case toolCheckAvailability:
		var in struct {
			PartySize int    `json:"party_size"`
			Date      string `json:"date"`
			Time      string `json:"time"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", toolOutcome{}, fmt.Errorf("bad %s arguments: %w", call.Function.Name, err)
		}
		avail, err := d.booking.CheckAvailability(ctx, in.PartySize, in.Date, in.Time)
		if err != nil {
			return "", toolOutcome{}, err
		}
		return marshalResult(avail)

	case toolCreateReservation:
		var in struct {
			Name      string `json:"name"`
			PartySize int    `json:"party_size"`
			Date      string `json:"date"`
			Time      string `json:"time"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", toolOutcome{}, fmt.Errorf("bad %s arguments: %w", call.Function.Name, err)
		}
		result, err := d.booking.CreateReservation(ctx, booking.CreateRequest{
			Name:      in.Name,
			PartySize: in.PartySize,
			Date:      in.Date,
			Time:      in.Time,
			Phone:     callerPhone,
			CallSID:   callSID,
		})
		var unavail *booking.UnavailableError
		if errors.As(err, &unavail) {
			out, _, merr := marshalResult(map[string]any{
				"success":                false,
				"error":                  unavail.Reason,
				"suggested_alternatives": unavail.Alternatives,
			})
			return out, toolOutcome{}, merr
		}
		if err != nil {
			return "", toolOutcome{}, err
		}
		out, _, merr := marshalResult(map[string]any{
			"success":        true,
			"reservation_id": result.Reservation.ID,
			"name":           in.Name,
			"party_size":     in.PartySize,
			"date":           in.Date,
			"time":           in.Time,
			"status":         models.ReservationConfirmed,
			"assigned_table": map[string]any{
				"table_id":       result.Table.ID,
				"table_number":   result.Table.Number,
				"table_capacity": result.Table.Capacity,
			},
		})
		return out, toolOutcome{BookingCompleted: true, IntentFulfilled: true}, merr

	case toolGetReservations:
		var in struct {
			Date string `json:"date"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", toolOutcome{}, fmt.Errorf("bad %s arguments: %w", call.Function.Name, err)
		}
		found, err := d.booking.FindReservations(ctx, in.Date, in.Name)
		if err != nil {
			return "", toolOutcome{}, err
		}
		items := make([]map[string]any, 0, len(found))
		for _, r := range found {
			items = append(items, map[string]any{
				"id":         r.ID,
				"name":       r.Name,
				"party_size": r.PartySize,
				"date":       r.Date,
				"time":       r.Time,
				"status":     r.Status,
			})
		}
		out, _, merr := marshalResult(items)
		return out, toolOutcome{IntentFulfilled: len(found) > 0}, merr

	case toolCancelReservation:
		var in struct {
			Name string `json:"name"`
			Date string `json:"date"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", toolOutcome{}, fmt.Errorf("bad %s arguments: %w", call.Function.Name, err)
		}
		result, err := d.booking.CancelReservation(ctx, 0, in.Name, in.Date)
		if err != nil {
			out, _, merr := marshalResult(map[string]any{
				"success": false,
				"error":   err.Error(),
			})
			return out, toolOutcome{}, merr
		}
		tableInfo := ""
		if result.TableNumber > 0 {
			tableInfo = fmt.Sprintf(" (Table %d)", result.TableNumber)
		}
		out, _, merr := marshalResult(map[string]any{
			"success": true,
			"message": fmt.Sprintf("Cancelled reservation for %s on %s at %s%s",
				result.Reservation.Name, result.Reservation.Date, result.Reservation.Time, tableInfo),
		})
		return out, toolOutcome{IntentFulfilled: true}, merr

	default:
		return "", toolOutcome{}, fmt.Errorf("unknown tool %q", call.Function.Name)
	}
}

func marshalResult(v any) (string, toolOutcome, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", toolOutcome{}, fmt.Errorf("marshal tool result: %w", err)
	}
	return string(b), toolOutcome{}, nil
}
