package postgres

import (
	"context"
	"fmt"

	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScoreRepository persists the outputs of the scoring pipeline: typology
// detections, CQI scores and signed audit entries.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// SaveDetections inserts a batch of typology detections
func (r *ScoreRepository) SaveDetections(ctx context.Context, detections []domain.TypologyDetection) error {
	const query = `
		INSERT INTO typology_detections (id, sar_id, detection_type, score, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, d := range detections {
		if _, err := r.pool.Exec(ctx, query, d.ID, d.SARID, d.DetectionType, d.Score, d.Details, d.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}
	return nil
}

// ReplaceCQIScore overwrites the single CQI row for a SAR. The score is
// always re-inserted whole; partial updates are never performed.
func (r *ScoreRepository) ReplaceCQIScore(ctx context.Context, score *domain.CQIScore) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cqi_scores WHERE sar_id = $1`, score.SARID); err != nil {
		return fmt.Errorf("failed to clear prior cqi score: %w", err)
	}

	const insert = `
		INSERT INTO cqi_scores (
			id, sar_id, evidence_coverage, completeness, confidence,
			traceability, overall_score, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(ctx, insert,
		score.ID, score.SARID, score.EvidenceCoverage, score.Completeness,
		score.Confidence, score.Traceability, score.OverallScore, score.CalculatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert cqi score: %w", err)
	}

	return tx.Commit(ctx)
}

// AppendAuditEntry inserts a signed audit entry. This is an APPEND-ONLY
// operation; no update or delete is ever issued against this table.
func (r *ScoreRepository) AppendAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
		INSERT INTO scoring_audit_entries (id, action, entity_type, entity_id, metadata, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.pool.Exec(ctx, query,
		entry.ID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Metadata, entry.Signature, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}
