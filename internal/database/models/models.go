package models

import "time"

// Reservation statuses.
const (
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationCompleted = "completed"
)

// Reservation represents a confirmed, cancelled or completed table booking.
type Reservation struct {
	ID              int64
	Name            string
	Phone           string
	PartySize       int
	Date            string // YYYY-MM-DD
	Time            string // HH:MM, 24-hour
	Status          string // confirmed | cancelled | completed
	AssignedTableID *int64
	CallSID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DiningTable represents a physical table in the restaurant.
type DiningTable struct {
	ID          int64
	TableNumber int
	Capacity    int
	IsActive    bool
}

// CallMetrics holds the objective measurements collected during one call.
type CallMetrics struct {
	ID                   int64
	CallSID              string
	CallStart            time.Time
	CallEnd              *time.Time
	TotalDurationSec     float64
	UserTurns            int
	AgentTurns           int
	ClarificationsNeeded int
	BookingCompleted     bool
	IntentFulfilled      bool
	UserHungUpEarly      bool
	ToolsCalled          string // JSON array of tool names
	TotalLatencyMS       float64
	APIErrors            int
	PromptVersion        string
	CallerPhone          string
	CreatedAt            time.Time
}

// CallQuality holds the five-dimension quality scores for a call.
type CallQuality struct {
	ID                   int64
	CallSID              string
	EfficiencyScore      float64
	AccuracyScore        float64
	HelpfulnessScore     float64
	NaturalnessScore     float64
	ProfessionalismScore float64
	OverallScore         float64
	QualityTier          string
	AnalyzedAt           time.Time
}

// ConversationTurn is a single utterance in a call transcript.
type ConversationTurn struct {
	ID         int64
	CallSID    string
	TurnNumber int
	Speaker    string // "user" | "agent"
	Transcript string
	Timestamp  time.Time
}

// Sound represents an uploaded or embedded feedback audio asset.
type Sound struct {
	ID        int64
	Name      string
	Filename  string
	Format    string // "wav" | "mp3"
	FileSize  int64
	FilePath  string // stored filename under the sounds directory
	CreatedAt time.Time
}

// SystemConfig represents a key-value configuration entry.
type SystemConfig struct {
	ID        int64
	Key       string
	Value     string
	UpdatedAt time.Time
}
