package risk

import (
	"testing"
	"time"

	"github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(config.DefaultScoring())
}

func txn(amount float64, txnType domain.TransactionType, at time.Time, metadata string) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:        uuid.New(),
		TxnID:     uuid.NewString(),
		AccountID: uuid.New(),
		Amount:    amount,
		Type:      txnType,
		Timestamp: at,
		Metadata:  metadata,
	}
}

func testCustomer(riskRating int) domain.Customer {
	return domain.Customer{
		ID:          uuid.New(),
		CustomerRef: "CUST-001",
		Name:        "Test Customer",
		RiskRating:  riskRating,
	}
}

func findDetection(profile domain.CaseRiskProfile, typ domain.DetectionType) *domain.Detection {
	for i := range profile.Detections {
		if profile.Detections[i].Type == typ {
			return &profile.Detections[i]
		}
	}
	return nil
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	profile := newTestAnalyzer().Analyze(testCustomer(2), nil)

	assert.Empty(t, profile.Detections)
	assert.Zero(t, profile.OverallRiskScore)
	assert.Equal(t, domain.RiskLevelMinimal, profile.RiskLevel)
	assert.Zero(t, profile.TotalTransactions)
}

func TestDetectStructuringClusteredBelowThreshold(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	transactions := []domain.TransactionRecord{
		txn(9800, domain.TxnTypeCash, base, ""),
		txn(9900, domain.TxnTypeCash, base.Add(2*time.Hour), ""),
		txn(9750, domain.TxnTypeCash, base.Add(4*time.Hour), ""),
	}

	profile := newTestAnalyzer().Analyze(testCustomer(2), transactions)

	detection := findDetection(profile, domain.DetectionStructuring)
	require.NotNil(t, detection, "three sub-threshold deposits within 24h must flag structuring")
	assert.GreaterOrEqual(t, detection.Score, 0.7)
	assert.Equal(t, "Multiple transactions below reporting threshold detected", detection.Evidence)

	// Both clustered deltas are under 24 hours: 0.6 + 2/3*0.4
	assert.InDelta(t, 0.8667, detection.Score, 0.001)
	assert.Equal(t, domain.SeverityMedium, detection.Severity) // 0.9 boundary not crossed
	assert.Equal(t, domain.RiskLevelHigh, profile.RiskLevel)
}

func TestDetectStructuringIgnoresAmountsOutsideBand(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	transactions := []domain.TransactionRecord{
		txn(500, domain.TxnTypeCash, base, ""),
		txn(12000, domain.TxnTypeCash, base.Add(time.Hour), ""),
		txn(7000, domain.TxnTypeCash, base.Add(2*time.Hour), ""),
	}

	profile := newTestAnalyzer().Analyze(testCustomer(2), transactions)
	assert.Nil(t, findDetection(profile, domain.DetectionStructuring))
}

func TestLayeringAndVelocityBothFire(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var transactions []domain.TransactionRecord
	for i := 0; i < 20; i++ {
		transactions = append(transactions, txn(500, domain.TxnTypeWire, base.Add(time.Duration(i)*10*time.Minute), ""))
	}

	profile := newTestAnalyzer().Analyze(testCustomer(2), transactions)

	layering := findDetection(profile, domain.DetectionLayering)
	require.NotNil(t, layering)
	assert.InDelta(t, 1.0, layering.Score, 0.001)
	assert.Equal(t, domain.SeverityHigh, layering.Severity)

	velocity := findDetection(profile, domain.DetectionVelocityAnomaly)
	require.NotNil(t, velocity, "20 transactions in one day is 20/day velocity")
	assert.InDelta(t, 1.0, velocity.Score, 0.001)
	assert.Equal(t, domain.SeverityHigh, velocity.Severity)

	assert.Equal(t, domain.RiskLevelCritical, profile.RiskLevel)
}

func TestVelocityBands(t *testing.T) {
	a := newTestAnalyzer()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 12 transactions over one day lands in the middle band
	var transactions []domain.TransactionRecord
	for i := 0; i < 12; i++ {
		transactions = append(transactions, txn(100, domain.TxnTypeACH, base.Add(time.Duration(i)*time.Hour), ""))
	}
	assert.InDelta(t, 0.75, a.detectVelocityAnomaly(transactions), 0.001)

	// 8 transactions over one day lands in the lower band
	transactions = transactions[:8]
	assert.InDelta(t, 0.6, a.detectVelocityAnomaly(transactions), 0.001)

	// Slow activity scores zero
	slow := []domain.TransactionRecord{
		txn(100, domain.TxnTypeACH, base, ""),
		txn(100, domain.TxnTypeACH, base.AddDate(0, 0, 30), ""),
	}
	assert.Zero(t, a.detectVelocityAnomaly(slow))
}

func TestIncomeMismatchHighRiskCustomer(t *testing.T) {
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	var transactions []domain.TransactionRecord
	for i := 0; i < 4; i++ {
		transactions = append(transactions, txn(150000, domain.TxnTypeCheck, base.AddDate(0, i, 0), ""))
	}

	profile := newTestAnalyzer().Analyze(testCustomer(5), transactions)

	mismatch := findDetection(profile, domain.DetectionIncomeMismatch)
	require.NotNil(t, mismatch, "600k volume against risk rating 5 must flag")
	assert.InDelta(t, 0.9, mismatch.Score, 0.001)
	assert.Equal(t, domain.SeverityHigh, mismatch.Severity)

	// The same volume also trips the large-transaction counterparty proxy
	counterparty := findDetection(profile, domain.DetectionCounterpartyRisk)
	require.NotNil(t, counterparty)
	assert.InDelta(t, 0.8, counterparty.Score, 0.001)
	assert.Equal(t, domain.SeverityHigh, counterparty.Severity)
}

func TestGeographicRiskKeywords(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	transactions := []domain.TransactionRecord{
		txn(1000, domain.TxnTypeWire, base, "Transfer to offshore account in Cayman Islands"),
		txn(1000, domain.TxnTypeWire, base.AddDate(0, 0, 10), "Payment via Panama intermediary"),
		txn(1000, domain.TxnTypeACH, base.AddDate(0, 0, 20), "Domestic vendor payment"),
		txn(1000, domain.TxnTypeACH, base.AddDate(0, 0, 30), "Payroll"),
	}

	profile := newTestAnalyzer().Analyze(testCustomer(2), transactions)

	geo := findDetection(profile, domain.DetectionGeographicRisk)
	require.NotNil(t, geo)
	assert.InDelta(t, 1.0, geo.Score, 0.001) // 2/4 + 0.5 boost
	assert.Equal(t, domain.SeverityMedium, geo.Severity)
}

func TestOverallScoreIsDetectionMean(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var transactions []domain.TransactionRecord
	for i := 0; i < 20; i++ {
		transactions = append(transactions, txn(500, domain.TxnTypeWire, base.Add(time.Duration(i)*10*time.Minute), ""))
	}

	profile := newTestAnalyzer().Analyze(testCustomer(2), transactions)
	require.NotEmpty(t, profile.Detections)

	var sum float64
	for _, d := range profile.Detections {
		sum += d.Score
	}
	assert.InDelta(t, sum/float64(len(profile.Detections)), profile.OverallRiskScore, 1e-9)
}

func TestBandRiskLevel(t *testing.T) {
	assert.Equal(t, domain.RiskLevelCritical, domain.BandRiskLevel(0.85))
	assert.Equal(t, domain.RiskLevelHigh, domain.BandRiskLevel(0.70))
	assert.Equal(t, domain.RiskLevelMedium, domain.BandRiskLevel(0.50))
	assert.Equal(t, domain.RiskLevelLow, domain.BandRiskLevel(0.30))
	assert.Equal(t, domain.RiskLevelMinimal, domain.BandRiskLevel(0.29))
}
