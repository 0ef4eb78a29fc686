package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tavolo/tavolo/internal/database/models"
)

// callQualityRepo implements CallQualityRepository.
type callQualityRepo struct {
	db *DB
}

// NewCallQualityRepository creates a new CallQualityRepository.
func NewCallQualityRepository(db *DB) CallQualityRepository {
	return &callQualityRepo{db: db}
}

// Upsert inserts or replaces the quality record for a call.
func (r *callQualityRepo) Upsert(ctx context.Context, q *models.CallQuality) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO call_quality (call_sid, efficiency_score, accuracy_score,
		 helpfulness_score, naturalness_score, professionalism_score,
		 overall_score, quality_tier, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(call_sid) DO UPDATE SET
		 efficiency_score = excluded.efficiency_score,
		 accuracy_score = excluded.accuracy_score,
		 helpfulness_score = excluded.helpfulness_score,
		 naturalness_score = excluded.naturalness_score,
		 professionalism_score = excluded.professionalism_score,
		 overall_score = excluded.overall_score,
		 quality_tier = excluded.quality_tier,
		 analyzed_at = datetime('now')`,
		q.CallSID, q.EfficiencyScore, q.AccuracyScore,
		q.HelpfulnessScore, q.NaturalnessScore, q.ProfessionalismScore,
		q.OverallScore, q.QualityTier,
	)
	if err != nil {
		return fmt.Errorf("upserting call quality: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		q.ID = id
	}
	return nil
}

// GetByCallSID returns the quality record for a call, or nil if not found.
func (r *callQualityRepo) GetByCallSID(ctx context.Context, callSID string) (*models.CallQuality, error) {
	var q models.CallQuality
	err := r.db.QueryRowContext(ctx,
		`SELECT id, call_sid, efficiency_score, accuracy_score, helpfulness_score,
		 naturalness_score, professionalism_score, overall_score, quality_tier, analyzed_at
		 FROM call_quality WHERE call_sid = ?`, callSID,
	).Scan(&q.ID, &q.CallSID, &q.EfficiencyScore, &q.AccuracyScore,
		&q.HelpfulnessScore, &q.NaturalnessScore, &q.ProfessionalismScore,
		&q.OverallScore, &q.QualityTier, &q.AnalyzedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning call quality: %w", err)
	}
	return &q, nil
}

// CountByTier returns call counts grouped by quality tier.
func (r *callQualityRepo) CountByTier(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT quality_tier, COUNT(*) FROM call_quality GROUP BY quality_tier`)
	if err != nil {
		return nil, fmt.Errorf("counting quality tiers: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var tier string
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("scanning tier count: %w", err)
		}
		counts[tier] = count
	}
	return counts, rows.Err()
}
