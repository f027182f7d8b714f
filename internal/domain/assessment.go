package domain

import (
	"time"

	"github.com/google/uuid"
)

// TypologyDetection is a persisted typology signal derived from a single
// SAR narrative (or from the risk analyzer, in which case SARID is nil).
type TypologyDetection struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	SARID         *uuid.UUID    `json:"sar_id,omitempty" db:"sar_id"`
	DetectionType DetectionType `json:"detection_type" db:"detection_type"`
	Score         float64       `json:"score" db:"score"`
	Details       string        `json:"details" db:"details"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// RequirementScore is the scored outcome for one rubric requirement
type RequirementScore struct {
	Score         float64 `json:"score"` // one of 0, 0.40, 0.65, 0.85, 1.0
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// Gap flags a requirement scoring below the acceptance threshold
type Gap struct {
	Requirement         string   `json:"requirement"`
	Severity            Severity `json:"severity"`
	CurrentScore        float64  `json:"current_score"`
	Gap                 string   `json:"gap"`
	RequiredImprovement string   `json:"required_improvement"`
}

// Strength flags a requirement with excellent coverage
type Strength struct {
	Requirement string  `json:"requirement"`
	Score       float64 `json:"score"`
	Note        string  `json:"note"`
}

// Recommendation is an actionable narrative improvement
type Recommendation struct {
	Priority       Severity `json:"priority"`
	Requirement    string   `json:"requirement"`
	Action         string   `json:"action"`
	ExpectedImpact string   `json:"expected_impact"`
}

// StructureQuality measures narrative organization
type StructureQuality struct {
	ParagraphCount    int     `json:"paragraph_count"`
	SentenceCount     int     `json:"sentence_count"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	HasClearSections  bool    `json:"has_clear_sections"`
	StructuralScore   float64 `json:"structural_score"`
}

// RegulatoryReadiness is the filing-readiness verdict
type RegulatoryReadiness string

const (
	ReadinessReadyToFile          RegulatoryReadiness = "READY_TO_FILE"
	ReadinessMinorRevisions       RegulatoryReadiness = "MINOR_REVISIONS_NEEDED"
	ReadinessSignificantRevisions RegulatoryReadiness = "SIGNIFICANT_REVISIONS_REQUIRED"
	ReadinessMajorRework          RegulatoryReadiness = "MAJOR_REWORK_REQUIRED"
	ReadinessNotReady             RegulatoryReadiness = "NOT_READY_FOR_FILING"
)

// DefensibilityAssessment is a complete regulatory-review simulation result.
// Every simulation builds a fresh assessment; prior results are never
// mutated in place.
type DefensibilityAssessment struct {
	SARID                     uuid.UUID                   `json:"sar_id,omitempty"`
	SARRef                    string                      `json:"sar_ref,omitempty"`
	OverallDefensibilityScore float64                     `json:"overall_defensibility_score"`
	Grade                     string                      `json:"grade"`
	RequirementScores         map[string]RequirementScore `json:"requirement_scores"`
	Gaps                      []Gap                       `json:"gaps"`
	Strengths                 []Strength                  `json:"strengths"`
	Recommendations           []Recommendation            `json:"recommendations"`
	RegulatoryReadiness       RegulatoryReadiness         `json:"regulatory_readiness"`
	StructureQuality          StructureQuality            `json:"structure_quality"`
	SimulatedAt               time.Time                   `json:"simulated_at"`
}

// PlanState describes a current or target defensibility state
type PlanState struct {
	Score     float64             `json:"score"`
	Grade     string              `json:"grade"`
	Readiness RegulatoryReadiness `json:"readiness"`
}

// ImprovementPlan orders the assessment's recommendations by priority and
// estimates the revision effort
type ImprovementPlan struct {
	CurrentState         PlanState        `json:"current_state"`
	TargetState          PlanState        `json:"target_state"`
	RequiredImprovements int              `json:"required_improvements"`
	EstimatedEffort      string           `json:"estimated_effort"`
	PriorityActions      []Recommendation `json:"priority_actions"`
}

// CQIScore is the Compliance Quality Index for one SAR. One row per SAR;
// recomputation replaces the row wholesale.
type CQIScore struct {
	ID               uuid.UUID `json:"id" db:"id"`
	SARID            uuid.UUID `json:"sar_id" db:"sar_id"`
	EvidenceCoverage float64   `json:"evidence_coverage" db:"evidence_coverage"`
	Completeness     float64   `json:"completeness" db:"completeness"`
	Confidence       float64   `json:"confidence" db:"confidence"`
	Traceability     float64   `json:"traceability" db:"traceability"`
	OverallScore     float64   `json:"overall_score" db:"overall_score"`
	CalculatedAt     time.Time `json:"calculated_at" db:"calculated_at"`
}
