package domain

import (
	"github.com/google/uuid"
)

// Severity of an individual detection or gap
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// RiskLevel is the categorical band of an overall risk score
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "CRITICAL"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMinimal  RiskLevel = "MINIMAL"
)

// BandRiskLevel maps an overall risk score in [0,1] to its band
func BandRiskLevel(score float64) RiskLevel {
	switch {
	case score >= 0.85:
		return RiskLevelCritical
	case score >= 0.70:
		return RiskLevelHigh
	case score >= 0.50:
		return RiskLevelMedium
	case score >= 0.30:
		return RiskLevelLow
	}
	return RiskLevelMinimal
}

// DetectionType names a money-laundering typology signal
type DetectionType string

const (
	DetectionStructuring      DetectionType = "structuring"
	DetectionLayering         DetectionType = "layering"
	DetectionVelocityAnomaly  DetectionType = "velocity_anomaly"
	DetectionIncomeMismatch   DetectionType = "income_mismatch"
	DetectionGeographicRisk   DetectionType = "geographic_risk"
	DetectionCounterpartyRisk DetectionType = "counterparty_risk"
)

// Detection is a single typology signal emitted by the risk analyzer
type Detection struct {
	Type           DetectionType `json:"type"`
	Score          float64       `json:"score"` // [0,1]
	Severity       Severity      `json:"severity"`
	Evidence       string        `json:"evidence"`
	Recommendation string        `json:"recommendation"`
}

// CaseRiskProfile is the derived risk assessment for one customer's
// transaction history. Recomputed on demand; never mutated in place.
type CaseRiskProfile struct {
	CustomerID        uuid.UUID   `json:"customer_id"`
	CustomerRef       string      `json:"customer_ref"`
	CustomerName      string      `json:"customer_name"`
	RiskRating        int         `json:"risk_rating"`
	TotalTransactions int         `json:"total_transactions"`
	TotalVolume       float64     `json:"total_volume"`
	Detections        []Detection `json:"detections"`
	OverallRiskScore  float64     `json:"overall_risk_score"`
	RiskLevel         RiskLevel   `json:"risk_level"`
}
