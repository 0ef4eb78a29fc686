// Package sms sends reservation confirmations and cancellations to the
// caller's phone via Twilio.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Venue holds the restaurant details printed in every message. Values
// come from system config, with these defaults when unset.
type Venue struct {
	Name    string
	Address string
	Phone   string
}

// DefaultVenue is used until the settings API overrides it.
var DefaultVenue = Venue{
	Name:    "Luigi's Italian Restaurant",
	Address: "123 Main Street, San Jose, CA",
	Phone:   "(408) 555-LUIGI",
}

// messageCreator is the slice of the Twilio REST client used here. The
// client's Api service satisfies it.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Sender delivers SMS through Twilio. The zero value is a disabled
// sender that drops every message, which is what runs when Twilio
// credentials are not configured.
type Sender struct {
	api    messageCreator
	from   string
	venue  Venue
	logger *slog.Logger
}

// NewSender builds a Sender against the Twilio REST API.
func NewSender(accountSID, authToken, fromNumber string, venue Venue, logger *slog.Logger) *Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Sender{api: client.Api, from: fromNumber, venue: venue, logger: logger}
}

// NewDisabledSender builds a Sender that logs and drops every message.
func NewDisabledSender(logger *slog.Logger) *Sender {
	return &Sender{logger: logger}
}

func newSenderWithAPI(api messageCreator, from string, venue Venue, logger *slog.Logger) *Sender {
	return &Sender{api: api, from: from, venue: venue, logger: logger}
}

// Enabled reports whether the sender can actually deliver messages.
func (s *Sender) Enabled() bool { return s.api != nil }

// SendConfirmation texts the customer their confirmed booking details.
func (s *Sender) SendConfirmation(ctx context.Context, toPhone, name string, partySize int, date, timeSlot string, tableNumber int) error {
	tableInfo := ""
	if tableNumber > 0 {
		tableInfo = fmt.Sprintf(" at Table %d", tableNumber)
	}
	body := fmt.Sprintf(`%s

Your reservation is CONFIRMED!

Name: %s
Party: %d people
Date: %s
Time: %s%s

%s
%s

See you soon!`,
		s.venue.Name, name, partySize,
		longDate(date), spokenTime(timeSlot), tableInfo,
		s.venue.Address, s.venue.Phone)

	return s.send(ctx, toPhone, body, "confirmation")
}

// SendCancellation texts the customer that their booking was cancelled.
func (s *Sender) SendCancellation(ctx context.Context, toPhone, name, date, timeSlot string) error {
	body := fmt.Sprintf(`%s

Your reservation has been CANCELLED.

Name: %s
Date: %s
Time: %s

To make a new reservation, call us at:
%s

Hope to see you soon!`,
		s.venue.Name, name, shortDate(date), spokenTime(timeSlot), s.venue.Phone)

	return s.send(ctx, toPhone, body, "cancellation")
}

func (s *Sender) send(_ context.Context, toPhone, body, kind string) error {
	if s.api == nil {
		s.logger.Debug("sms disabled, dropping message", "kind", kind, "to", toPhone)
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toPhone)
	params.SetFrom(s.from)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send %s sms: %w", kind, err)
	}

	sid := ""
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	s.logger.Info("sms sent", "kind", kind, "to", toPhone, "sid", sid)
	return nil
}

// longDate renders 2025-06-20 as "Friday, June 20, 2025". Unparseable
// input passes through.
func longDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}

func shortDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2")
}

func spokenTime(timeSlot string) string {
	t, err := time.Parse("15:04", timeSlot)
	if err != nil {
		return timeSlot
	}
	return t.Format("3:04 PM")
}
