package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/domain"
)

// Analyzer scores a customer's transaction history across six typology
// signals. Stateless; every call computes a fresh profile from the inputs.
type Analyzer struct {
	cfg config.ScoringConfig
}

// NewAnalyzer creates a risk analyzer with the given scoring constants
func NewAnalyzer(cfg config.ScoringConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze runs all sub-detectors over one customer's transactions (across
// all accounts) and returns the derived risk profile. A detection is emitted
// only when its sub-detector score exceeds that detector's threshold.
func (a *Analyzer) Analyze(customer domain.Customer, transactions []domain.TransactionRecord) domain.CaseRiskProfile {
	var volume float64
	for _, t := range transactions {
		volume += t.Amount
	}

	profile := domain.CaseRiskProfile{
		CustomerID:        customer.ID,
		CustomerRef:       customer.CustomerRef,
		CustomerName:      customer.Name,
		RiskRating:        customer.RiskRating,
		TotalTransactions: len(transactions),
		TotalVolume:       volume,
		Detections:        []domain.Detection{},
	}

	if score := a.detectStructuring(transactions); score > a.cfg.StructuringThreshold {
		severity := domain.SeverityMedium
		if score > 0.9 {
			severity = domain.SeverityHigh
		}
		profile.Detections = append(profile.Detections, domain.Detection{
			Type:           domain.DetectionStructuring,
			Score:          score,
			Severity:       severity,
			Evidence:       "Multiple transactions below reporting threshold detected",
			Recommendation: "Flag for enhanced due diligence",
		})
	}

	if score := a.detectLayering(transactions); score > a.cfg.LayeringThreshold {
		severity := domain.SeverityMedium
		if score > 0.8 {
			severity = domain.SeverityHigh
		}
		profile.Detections = append(profile.Detections, domain.Detection{
			Type:           domain.DetectionLayering,
			Score:          score,
			Severity:       severity,
			Evidence:       "Complex transaction chains indicating obfuscation",
			Recommendation: "Investigate transaction origins",
		})
	}

	if score := a.detectVelocityAnomaly(transactions); score > a.cfg.VelocityThreshold {
		severity := domain.SeverityMedium
		if score > 0.9 {
			severity = domain.SeverityHigh
		}
		profile.Detections = append(profile.Detections, domain.Detection{
			Type:           domain.DetectionVelocityAnomaly,
			Score:          score,
			Severity:       severity,
			Evidence:       fmt.Sprintf("Abnormally high transaction frequency: %d in short period", len(transactions)),
			Recommendation: "Review customer business profile",
		})
	}

	if score := a.detectIncomeMismatch(customer, transactions); score > a.cfg.IncomeMismatchThreshold {
		profile.Detections = append(profile.Detections, domain.Detection{
			Type:           domain.DetectionIncomeMismatch,
			Score:          score,
			Severity:       domain.SeverityHigh,
			Evidence:       "Transaction volume inconsistent with stated income/business profile",
			Recommendation: "Request updated KYC documentation",
		})
	}

	if score := a.evaluateGeographicRisk(transactions); score > a.cfg.GeographicThreshold {
		profile.Detections = append(profile.Detections, domain.Detection{
			Type:           domain.DetectionGeographicRisk,
			Score:          score,
			Severity:       domain.SeverityMedium,
			Evidence:       "Transactions involving high-risk jurisdictions",
			Recommendation: "Enhanced monitoring for sanctions compliance",
		})
	}

	if score := a.analyzeCounterpartyRisk(transactions); score > a.cfg.CounterpartyThreshold {
		severity := domain.SeverityMedium
		if score >= 0.8 {
			severity = domain.SeverityHigh
		}
		profile.Detections = append(profile.Detections, domain.Detection{
			Type:           domain.DetectionCounterpartyRisk,
			Score:          score,
			Severity:       severity,
			Evidence:       "Transactions with potentially high-risk counterparties",
			Recommendation: "Conduct counterparty due diligence",
		})
	}

	if len(profile.Detections) > 0 {
		var sum float64
		for _, d := range profile.Detections {
			sum += d.Score
		}
		profile.OverallRiskScore = sum / float64(len(profile.Detections))
	}
	profile.RiskLevel = domain.BandRiskLevel(profile.OverallRiskScore)

	return profile
}

// detectStructuring flags repeated transactions just below the $10,000
// reporting threshold, boosted when they cluster in time.
func (a *Analyzer) detectStructuring(transactions []domain.TransactionRecord) float64 {
	if len(transactions) < 3 {
		return 0
	}

	var suspicious []domain.TransactionRecord
	for _, t := range transactions {
		if t.Amount >= a.cfg.StructuringBandLow && t.Amount <= a.cfg.StructuringBandHigh {
			suspicious = append(suspicious, t)
		}
	}

	if len(suspicious) >= 3 {
		// Temporal clustering: consecutive deltas under 24 hours
		clustered := 0
		for i := 0; i+1 < len(suspicious); i++ {
			delta := suspicious[i+1].Timestamp.Sub(suspicious[i].Timestamp).Hours()
			if delta < 24 {
				clustered++
			}
		}
		boost := a.cfg.StructuringBoostBase + float64(clustered)/float64(len(transactions))*a.cfg.StructuringBoostFactor
		return math.Min(1, boost)
	}

	return math.Min(1, float64(len(suspicious))/float64(len(transactions)))
}

// detectLayering treats a high wire-transfer share as a proxy for layering
func (a *Analyzer) detectLayering(transactions []domain.TransactionRecord) float64 {
	if len(transactions) < 5 {
		return 0
	}

	wireCount := 0
	for _, t := range transactions {
		if strings.Contains(strings.ToLower(string(t.Type)), "wire") {
			wireCount++
		}
	}

	if wireCount >= 3 {
		return math.Min(1, float64(wireCount)/float64(len(transactions))+a.cfg.LayeringWireBoost)
	}
	return math.Min(0.8, float64(wireCount)/10)
}

// detectVelocityAnomaly scores transaction frequency over the observed span.
// Normal business runs a handful per day; sustained double digits is unusual.
func (a *Analyzer) detectVelocityAnomaly(transactions []domain.TransactionRecord) float64 {
	if len(transactions) < 2 {
		return 0
	}

	timestamps := make([]int64, len(transactions))
	for i, t := range transactions {
		timestamps[i] = t.Timestamp.Unix()
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	spanDays := float64(timestamps[len(timestamps)-1]-timestamps[0]) / 86400
	if spanDays < 1 {
		spanDays = 1
	}

	velocity := float64(len(transactions)) / spanDays
	switch {
	case velocity > 15:
		return math.Min(1, velocity/20)
	case velocity > 10:
		return 0.75
	case velocity > 7:
		return 0.6
	}
	return 0
}

// detectIncomeMismatch compares aggregate volume against the customer's
// risk rating as a stand-in for declared income
func (a *Analyzer) detectIncomeMismatch(customer domain.Customer, transactions []domain.TransactionRecord) float64 {
	if len(transactions) == 0 {
		return 0
	}

	var volume float64
	for _, t := range transactions {
		volume += t.Amount
	}

	if customer.RiskRating >= 4 {
		if volume > 500000 {
			return 0.9
		}
		if volume > 250000 {
			return 0.75
		}
	}
	if volume > 1000000 {
		return 0.85
	}
	return math.Min(1, volume/2000000)
}

// evaluateGeographicRisk matches transaction metadata against the
// high-risk-jurisdiction keyword list
func (a *Analyzer) evaluateGeographicRisk(transactions []domain.TransactionRecord) float64 {
	matched := 0
	for _, t := range transactions {
		meta := strings.ToLower(t.Metadata)
		for _, keyword := range a.cfg.HighRiskKeywords {
			if strings.Contains(meta, keyword) {
				matched++
				break
			}
		}
	}

	if matched > 0 {
		return math.Min(1, float64(matched)/float64(len(transactions))+a.cfg.GeographicBoost)
	}
	return 0
}

// analyzeCounterpartyRisk uses the share of large transactions as a proxy
// for counterparty exposure; real counterparty screening lives elsewhere
func (a *Analyzer) analyzeCounterpartyRisk(transactions []domain.TransactionRecord) float64 {
	large := 0
	for _, t := range transactions {
		if t.Amount > a.cfg.LargeTransactionAmount {
			large++
		}
	}

	if large > 0 {
		return math.Min(0.8, float64(large)/float64(len(transactions))+a.cfg.CounterpartyBoost)
	}
	return 0
}
