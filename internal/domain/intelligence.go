package domain

import (
	"time"

	"github.com/google/uuid"
)

// CorpusSnapshot is the batch view of accumulated records the cross-case
// engine analyzes. The caller assembles it from a single snapshot read;
// the engine never touches the store itself.
type CorpusSnapshot struct {
	SARs       []SARReport
	Detections []TypologyDetection
	Cases      []Case
	Customers  []Customer
}

// PatternCluster groups SARs with similar narrative text
type PatternCluster struct {
	ClusterID      int      `json:"cluster_id"`
	Size           int      `json:"size"`
	SARRefs        []string `json:"sar_refs"`
	CommonKeywords []string `json:"common_keywords"`
	PatternType    string   `json:"pattern_type"`
	Error          string   `json:"error,omitempty"` // set when clustering itself failed
}

// TrendDirection for drift alerts and temporal trends
type TrendDirection string

const (
	TrendIncreasing       TrendDirection = "INCREASING"
	TrendDecreasing       TrendDirection = "DECREASING"
	TrendStable           TrendDirection = "STABLE"
	TrendInsufficientData TrendDirection = "INSUFFICIENT_DATA"
)

// DriftAlert reports a significant period-over-period shift in the
// detection frequency of one typology
type DriftAlert struct {
	Typology         DetectionType  `json:"typology"`
	Trend            TrendDirection `json:"trend"`
	ChangePercentage string         `json:"change_percentage"`
	RecentCount      int            `json:"recent_count"`
	PreviousCount    int            `json:"previous_count"`
	Severity         Severity       `json:"severity"`
	Recommendation   string         `json:"recommendation"`
}

// EmergingTypology flags a threat keyword gaining traction in recent SARs
type EmergingTypology struct {
	PatternKeyword string    `json:"pattern_keyword"`
	Frequency      int       `json:"frequency"`
	EmergenceDate  time.Time `json:"emergence_date"`
	RiskLevel      Severity  `json:"risk_level"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
}

// NetworkRisk flags a customer linked to multiple suspicious cases
type NetworkRisk struct {
	CustomerRef    string   `json:"customer_ref"`
	CustomerName   string   `json:"customer_name"`
	LinkedCases    []string `json:"linked_cases"`
	CaseCount      int      `json:"case_count"`
	RiskScore      float64  `json:"risk_score"`
	Pattern        string   `json:"pattern"`
	Recommendation string   `json:"recommendation"`
}

// TemporalTrends summarizes SAR filing volume over calendar months
type TemporalTrends struct {
	MonthlyVolumes   map[string]int `json:"monthly_volumes"`
	TrendDirection   TrendDirection `json:"trend_direction"`
	VolumeChangePct  string         `json:"volume_change_pct"`
	RecentMonthlyAvg string         `json:"recent_monthly_avg"`
}

// ExecutiveRecommendation is a strategic finding derived from the report
type ExecutiveRecommendation struct {
	Category string   `json:"category"`
	Priority Severity `json:"priority"`
	Finding  string   `json:"finding"`
	Action   string   `json:"action"`
	Impact   string   `json:"impact"`
}

// IntelligenceReport is the process-scoped cross-case aggregate. It holds no
// persistent identity; each invocation computes a fresh report.
type IntelligenceReport struct {
	ReportID           uuid.UUID                 `json:"report_id"`
	TotalCasesAnalyzed int                       `json:"total_cases_analyzed"`
	AnalysisDate       time.Time                 `json:"analysis_date"`
	Message            string                    `json:"message,omitempty"` // set for insufficient-data results
	PatternClusters    []PatternCluster          `json:"pattern_clusters"`
	DriftAlerts        []DriftAlert              `json:"drift_alerts"`
	EmergingTypologies []EmergingTypology        `json:"emerging_typologies"`
	NetworkRisks       []NetworkRisk             `json:"network_risks"`
	TemporalTrends     TemporalTrends            `json:"temporal_trends"`
	Recommendations    []ExecutiveRecommendation `json:"recommendations"`
}

// InsufficientData reports whether the corpus was too small to analyze
func (r *IntelligenceReport) InsufficientData() bool {
	return r.Message != ""
}
