package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoringAction identifies the pipeline stage that produced an audit entry
type ScoringAction string

const (
	ActionRiskAnalysis          ScoringAction = "RISK_ANALYSIS"
	ActionTypologyDetection     ScoringAction = "TYPOLOGY_DETECTION"
	ActionRegulatorySimulation  ScoringAction = "REGULATORY_SIMULATION"
	ActionCQICalculated         ScoringAction = "CQI_CALCULATED"
	ActionIntelligenceGenerated ScoringAction = "CROSS_CASE_INTELLIGENCE_GENERATED"
)

// AuditEntry is an append-only record of a completed scoring run.
// Entries are HMAC-signed for non-repudiation and never updated or deleted.
type AuditEntry struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Action     ScoringAction `json:"action" db:"action"`
	EntityType string        `json:"entity_type" db:"entity_type"`
	EntityID   string        `json:"entity_id" db:"entity_id"`
	Metadata   string        `json:"metadata,omitempty" db:"metadata"`
	Signature  string        `json:"signature" db:"signature"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// NewAuditEntry creates an unsigned audit entry with generated identity
func NewAuditEntry(action ScoringAction, entityType, entityID, metadata string) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}
