package database

import (
	"context"
	"fmt"

	"github.com/tavolo/tavolo/internal/database/models"
)

// conversationTurnRepo implements ConversationTurnRepository.
type conversationTurnRepo struct {
	db *DB
}

// NewConversationTurnRepository creates a new ConversationTurnRepository.
func NewConversationTurnRepository(db *DB) ConversationTurnRepository {
	return &conversationTurnRepo{db: db}
}

// Create inserts a transcript turn.
func (r *conversationTurnRepo) Create(ctx context.Context, turn *models.ConversationTurn) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO conversation_turns (call_sid, turn_number, speaker, transcript, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		turn.CallSID, turn.TurnNumber, turn.Speaker, turn.Transcript, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation turn: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	turn.ID = id
	return nil
}

// ListByCall returns all transcript turns for a call in order.
func (r *conversationTurnRepo) ListByCall(ctx context.Context, callSID string) ([]models.ConversationTurn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, call_sid, turn_number, speaker, transcript, timestamp
		 FROM conversation_turns WHERE call_sid = ? ORDER BY turn_number`, callSID)
	if err != nil {
		return nil, fmt.Errorf("listing conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		if err := rows.Scan(&t.ID, &t.CallSID, &t.TurnNumber, &t.Speaker,
			&t.Transcript, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning conversation turn row: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
