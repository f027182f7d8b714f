package intelligence

import (
	"fmt"
	"testing"
	"time"

	"github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(config.DefaultIntelligence())
}

func mkSAR(ref, narrative string, createdAt time.Time) domain.SARReport {
	return domain.SARReport{
		ID:        uuid.New(),
		SARRef:    ref,
		CaseID:    uuid.New(),
		Narrative: narrative,
		CreatedAt: createdAt,
	}
}

func mkDetections(typ domain.DetectionType, n int, createdAt time.Time) []domain.TypologyDetection {
	out := make([]domain.TypologyDetection, n)
	for i := range out {
		out[i] = domain.TypologyDetection{
			ID:            uuid.New(),
			DetectionType: typ,
			Score:         0.8,
			CreatedAt:     createdAt,
		}
	}
	return out
}

func TestGenerateInsufficientData(t *testing.T) {
	report := newTestEngine().GenerateAt(domain.CorpusSnapshot{
		SARs: []domain.SARReport{mkSAR("SAR-1", "single filing", testNow)},
	}, testNow)

	assert.True(t, report.InsufficientData())
	assert.Equal(t, "Insufficient data for cross-case analysis", report.Message)
	assert.Equal(t, 1, report.TotalCasesAnalyzed)
	assert.Empty(t, report.PatternClusters)
	assert.Empty(t, report.DriftAlerts)
}

func TestDetectTypologyDrift(t *testing.T) {
	e := newTestEngine()

	var detections []domain.TypologyDetection
	// Structuring surged: 4 in the previous window, 10 in the recent one
	detections = append(detections, mkDetections(domain.DetectionStructuring, 10, testNow.AddDate(0, 0, -5))...)
	detections = append(detections, mkDetections(domain.DetectionStructuring, 4, testNow.AddDate(0, 0, -40))...)
	// Layering is new this window; no previous base means no alert
	detections = append(detections, mkDetections(domain.DetectionLayering, 5, testNow.AddDate(0, 0, -5))...)
	// Velocity declined from 4 to 1
	detections = append(detections, mkDetections(domain.DetectionVelocityAnomaly, 1, testNow.AddDate(0, 0, -5))...)
	detections = append(detections, mkDetections(domain.DetectionVelocityAnomaly, 4, testNow.AddDate(0, 0, -40))...)

	alerts := e.detectTypologyDrift(detections, testNow)
	require.Len(t, alerts, 2)

	// Ordered by absolute change, largest first
	assert.Equal(t, domain.DetectionStructuring, alerts[0].Typology)
	assert.Equal(t, domain.TrendIncreasing, alerts[0].Trend)
	assert.Equal(t, "+150.0%", alerts[0].ChangePercentage)
	assert.Equal(t, 10, alerts[0].RecentCount)
	assert.Equal(t, 4, alerts[0].PreviousCount)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)

	assert.Equal(t, domain.DetectionVelocityAnomaly, alerts[1].Typology)
	assert.Equal(t, domain.TrendDecreasing, alerts[1].Trend)
	assert.Equal(t, "-75.0%", alerts[1].ChangePercentage)
	assert.Equal(t, domain.SeverityMedium, alerts[1].Severity)
}

func TestDetectTypologyDriftNeedsMinimumVolume(t *testing.T) {
	e := newTestEngine()
	detections := mkDetections(domain.DetectionStructuring, 5, testNow.AddDate(0, 0, -5))
	assert.Empty(t, e.detectTypologyDrift(detections, testNow))
}

func TestIdentifyEmergingTypologies(t *testing.T) {
	e := newTestEngine()
	sars := []domain.SARReport{
		mkSAR("SAR-1", "cryptocurrency wallet mixer activity observed", testNow.AddDate(0, 0, -2)),
		mkSAR("SAR-2", "cryptocurrency wallet transfers noted", testNow.AddDate(0, 0, -3)),
		mkSAR("SAR-3", "suspicious cryptocurrency mixer usage", testNow.AddDate(0, 0, -4)),
	}

	emerging := e.identifyEmergingTypologies(sars, testNow)
	require.NotEmpty(t, emerging)

	assert.Equal(t, "cryptocurrency", emerging[0].PatternKeyword)
	assert.Equal(t, 3, emerging[0].Frequency)
	assert.Equal(t, domain.SeverityMedium, emerging[0].RiskLevel)

	for _, et := range emerging {
		assert.GreaterOrEqual(t, et.Frequency, 2, "single mentions never qualify")
	}
}

func TestIdentifyEmergingTypologiesHighRisk(t *testing.T) {
	e := newTestEngine()
	sars := []domain.SARReport{
		mkSAR("SAR-1", "ransomware payment demanded, ransomware wallet identified", testNow.AddDate(0, 0, -2)),
		mkSAR("SAR-2", "further ransomware proceeds traced", testNow.AddDate(0, 0, -3)),
		mkSAR("SAR-3", "ransomware linked counterparties", testNow.AddDate(0, 0, -4)),
	}

	emerging := e.identifyEmergingTypologies(sars, testNow)
	require.NotEmpty(t, emerging)
	assert.Equal(t, "ransomware", emerging[0].PatternKeyword)
	assert.Equal(t, 4, emerging[0].Frequency)
	assert.Equal(t, domain.SeverityHigh, emerging[0].RiskLevel)
}

func TestIdentifyEmergingTypologiesNeedsRecentVolume(t *testing.T) {
	e := newTestEngine()
	sars := []domain.SARReport{
		mkSAR("SAR-1", "cryptocurrency cryptocurrency", testNow.AddDate(0, 0, -2)),
		mkSAR("SAR-2", "cryptocurrency mixer", testNow.AddDate(0, -6, 0)), // outside window
	}
	assert.Empty(t, e.identifyEmergingTypologies(sars, testNow))
}

func TestAnalyzeNetworkPatterns(t *testing.T) {
	e := newTestEngine()

	repeat := domain.Customer{ID: uuid.New(), CustomerRef: "CUST-100", Name: "Repeat Subject"}
	single := domain.Customer{ID: uuid.New(), CustomerRef: "CUST-200", Name: "One-Off Subject"}

	cases := []domain.Case{
		{ID: uuid.New(), CaseRef: "CASE-1", CustomerID: &repeat.ID},
		{ID: uuid.New(), CaseRef: "CASE-2", CustomerID: &single.ID},
		{ID: uuid.New(), CaseRef: "CASE-3", CustomerID: &repeat.ID},
		{ID: uuid.New(), CaseRef: "CASE-4", CustomerID: &repeat.ID},
		{ID: uuid.New(), CaseRef: "CASE-5", CustomerID: nil},
	}

	risks := e.analyzeNetworkPatterns(cases, []domain.Customer{repeat, single})
	require.Len(t, risks, 1)

	assert.Equal(t, "CUST-100", risks[0].CustomerRef)
	assert.Equal(t, 3, risks[0].CaseCount)
	assert.InDelta(t, 0.6, risks[0].RiskScore, 1e-9)
	assert.ElementsMatch(t, []string{"CASE-1", "CASE-3", "CASE-4"}, risks[0].LinkedCases)
}

func TestAnalyzeTemporalTrends(t *testing.T) {
	var sars []domain.SARReport
	counts := map[string]int{"2025-01": 2, "2025-02": 2, "2025-03": 4, "2025-04": 6, "2025-05": 8}
	for month, n := range counts {
		ts, err := time.Parse("2006-01", month)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			sars = append(sars, mkSAR(fmt.Sprintf("SAR-%s-%d", month, i), "narrative", ts))
		}
	}

	trends := analyzeTemporalTrends(sars)

	assert.Equal(t, domain.TrendIncreasing, trends.TrendDirection)
	assert.Equal(t, "+200.0%", trends.VolumeChangePct) // recent avg 6 vs previous avg 2
	assert.Equal(t, "6.0", trends.RecentMonthlyAvg)
	assert.Equal(t, 4, trends.MonthlyVolumes["2025-03"])
}

func TestAnalyzeTemporalTrendsSingleMonth(t *testing.T) {
	sars := []domain.SARReport{
		mkSAR("SAR-1", "narrative", testNow),
		mkSAR("SAR-2", "narrative", testNow),
	}

	trends := analyzeTemporalTrends(sars)
	assert.Equal(t, domain.TrendInsufficientData, trends.TrendDirection)
	assert.Equal(t, "N/A", trends.RecentMonthlyAvg)
}

func TestGenerateFullReport(t *testing.T) {
	snapshot := domain.CorpusSnapshot{
		SARs: []domain.SARReport{
			mkSAR("SAR-1", "Customer split deposits below the reporting threshold repeatedly.", testNow.AddDate(0, -3, 0)),
			mkSAR("SAR-2", "Deposits split below threshold again, classic structuring behavior.", testNow.AddDate(0, -2, 0)),
			mkSAR("SAR-3", "Layered transfers through offshore shell companies.", testNow.AddDate(0, -1, 0)),
			mkSAR("SAR-4", "Rapid movement of funds, offshore transfers layered repeatedly.", testNow.AddDate(0, 0, -5)),
		},
	}

	report := newTestEngine().GenerateAt(snapshot, testNow)

	assert.False(t, report.InsufficientData())
	assert.Equal(t, 4, report.TotalCasesAnalyzed)
	assert.NotEqual(t, uuid.Nil, report.ReportID)

	total := 0
	seen := map[string]bool{}
	for _, cluster := range report.PatternClusters {
		assert.Empty(t, cluster.Error)
		total += cluster.Size
		for _, ref := range cluster.SARRefs {
			assert.False(t, seen[ref], "each SAR belongs to exactly one cluster")
			seen[ref] = true
		}
	}
	assert.Equal(t, len(snapshot.SARs), total)

	assert.NotNil(t, report.TemporalTrends.MonthlyVolumes)
	assert.NotNil(t, report.Recommendations)
}

func TestExecutiveRecommendationsFromSections(t *testing.T) {
	report := &domain.IntelligenceReport{
		DriftAlerts: []domain.DriftAlert{
			{Typology: domain.DetectionStructuring, Severity: domain.SeverityHigh},
		},
		NetworkRisks: []domain.NetworkRisk{{CustomerRef: "CUST-1"}},
		TemporalTrends: domain.TemporalTrends{
			TrendDirection:  domain.TrendIncreasing,
			VolumeChangePct: "+120.0%",
		},
	}

	recs := executiveRecommendations(report)
	require.Len(t, recs, 3)

	assert.Equal(t, "Typology Drift", recs[0].Category)
	assert.Equal(t, domain.SeverityCritical, recs[0].Priority)
	assert.Equal(t, "Network Risk", recs[1].Category)
	assert.Equal(t, "Volume Trend", recs[2].Category)
	assert.Contains(t, recs[2].Finding, "+120.0%")
}
