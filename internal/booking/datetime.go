package booking

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// DateInfo anchors relative dates like "today" and "tomorrow" for the
// agent, which otherwise has no notion of the current calendar.
type DateInfo struct {
	CurrentDatetime   string `json:"current_datetime"`
	Today             string `json:"today"`
	TodayDayOfWeek    string `json:"today_day_of_week"`
	Tomorrow          string `json:"tomorrow"`
	TomorrowDayOfWeek string `json:"tomorrow_day_of_week"`
	NextWeek          string `json:"next_week"`
	CurrentTime       string `json:"current_time"`
	Year              int    `json:"year"`
	Month             int    `json:"month"`
	Day               int    `json:"day"`
}

// CurrentDateInfo builds a DateInfo for the given instant.
func CurrentDateInfo(now time.Time) DateInfo {
	tomorrow := now.AddDate(0, 0, 1)
	nextWeek := now.AddDate(0, 0, 7)
	return DateInfo{
		CurrentDatetime:   now.Format(time.RFC3339),
		Today:             now.Format("2006-01-02"),
		TodayDayOfWeek:    now.Weekday().String(),
		Tomorrow:          tomorrow.Format("2006-01-02"),
		TomorrowDayOfWeek: tomorrow.Weekday().String(),
		NextWeek:          nextWeek.Format("2006-01-02"),
		CurrentTime:       now.Format("15:04"),
		Year:              now.Year(),
		Month:             int(now.Month()),
		Day:               now.Day(),
	}
}

// NormalizeDate resolves the relative words callers use into
// YYYY-MM-DD. Anything else passes through for ValidateSlot to judge.
func NormalizeDate(raw string, now time.Time) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "today", "tonight":
		return now.Format("2006-01-02")
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	}
	return strings.TrimSpace(raw)
}

// NormalizeTime converts spoken 12-hour forms like "7pm" or "7:30 PM"
// to HH:MM 24-hour. Anything unrecognized passes through.
func NormalizeTime(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	for _, layout := range []string{"3pm", "3 pm", "3:04pm", "3:04 pm"} {
		if t, err := time.Parse(layout, lower); err == nil {
			return t.Format("15:04")
		}
	}
	return trimmed
}

// ValidateSlot checks that a date is YYYY-MM-DD and a time is HH:MM
// 24-hour, the only formats the storage layer understands.
func ValidateSlot(date, timeSlot string) error {
	if !dateRe.MatchString(date) {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	if !timeRe.MatchString(timeSlot) {
		return fmt.Errorf("invalid time %q, want HH:MM 24-hour", timeSlot)
	}
	return nil
}

// SpokenDate renders a YYYY-MM-DD date the way it would be read aloud
// or written in an SMS, e.g. "Friday, January 17".
func SpokenDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2")
}

// SpokenTime renders an HH:MM 24-hour slot as 12-hour with AM/PM.
func SpokenTime(timeSlot string) string {
	t, err := time.Parse("15:04", timeSlot)
	if err != nil {
		return timeSlot
	}
	return t.Format("3:04 PM")
}
