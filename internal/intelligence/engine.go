package intelligence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/google/uuid"
)

// insufficientDataMessage marks a degraded report; not an error condition
const insufficientDataMessage = "Insufficient data for cross-case analysis"

// emergingThreatKeywords is the fixed watchlist scanned in recent narratives
var emergingThreatKeywords = []string{
	"cryptocurrency", "crypto", "bitcoin", "wallet", "mixer", "tumbler",
	"darknet", "ransomware", "mule", "synthetic", "identity", "deepfake",
	"nft", "defi", "stablecoin", "metaverse", "gaming",
}

// Engine aggregates across the full SAR corpus to surface pattern clusters,
// typology drift, emerging threats, network risk and volume trends.
// Stateless: every report is computed fresh from the snapshot it is given.
type Engine struct {
	cfg config.IntelligenceConfig
}

// NewEngine creates a cross-case intelligence engine
func NewEngine(cfg config.IntelligenceConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Generate produces an intelligence report over the corpus snapshot
func (e *Engine) Generate(snapshot domain.CorpusSnapshot) domain.IntelligenceReport {
	return e.GenerateAt(snapshot, time.Now().UTC())
}

// GenerateAt is Generate with an explicit evaluation time; the drift and
// emerging-typology windows are anchored to it
func (e *Engine) GenerateAt(snapshot domain.CorpusSnapshot, now time.Time) domain.IntelligenceReport {
	report := domain.IntelligenceReport{
		ReportID:           uuid.New(),
		TotalCasesAnalyzed: len(snapshot.SARs),
		AnalysisDate:       now,
		PatternClusters:    []domain.PatternCluster{},
		DriftAlerts:        []domain.DriftAlert{},
		EmergingTypologies: []domain.EmergingTypology{},
		NetworkRisks:       []domain.NetworkRisk{},
		Recommendations:    []domain.ExecutiveRecommendation{},
	}

	if len(snapshot.SARs) < 2 {
		report.Message = insufficientDataMessage
		return report
	}

	if clusters := clusterNarratives(snapshot.SARs, e.cfg.MaxClusters, e.cfg.ClusterSeed); clusters != nil {
		report.PatternClusters = clusters
	}
	report.DriftAlerts = e.detectTypologyDrift(snapshot.Detections, now)
	report.EmergingTypologies = e.identifyEmergingTypologies(snapshot.SARs, now)
	report.NetworkRisks = e.analyzeNetworkPatterns(snapshot.Cases, snapshot.Customers)
	report.TemporalTrends = analyzeTemporalTrends(snapshot.SARs)
	report.Recommendations = executiveRecommendations(&report)

	return report
}

// detectTypologyDrift compares per-typology detection counts in the most
// recent window against the preceding window. Typologies with no activity
// in the previous window never alert; the percent-change base would be zero.
func (e *Engine) detectTypologyDrift(detections []domain.TypologyDetection, now time.Time) []domain.DriftAlert {
	alerts := []domain.DriftAlert{}
	if len(detections) < e.cfg.DriftMinDetections {
		return alerts
	}

	window := time.Duration(e.cfg.DriftWindowDays) * 24 * time.Hour
	recentCutoff := now.Add(-window)
	previousCutoff := now.Add(-2 * window)

	recent := map[domain.DetectionType]int{}
	previous := map[domain.DetectionType]int{}
	var types []domain.DetectionType
	seen := map[domain.DetectionType]bool{}
	for _, d := range detections {
		if !seen[d.DetectionType] {
			seen[d.DetectionType] = true
			types = append(types, d.DetectionType)
		}
		switch {
		case !d.CreatedAt.Before(recentCutoff):
			recent[d.DetectionType]++
		case !d.CreatedAt.Before(previousCutoff):
			previous[d.DetectionType]++
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, typ := range types {
		prev := previous[typ]
		if prev == 0 {
			continue
		}
		changePct := float64(recent[typ]-prev) / float64(prev) * 100
		if abs(changePct) <= 50 {
			continue
		}

		trend := domain.TrendIncreasing
		if changePct < 0 {
			trend = domain.TrendDecreasing
		}
		severity := domain.SeverityMedium
		if abs(changePct) > 100 {
			severity = domain.SeverityHigh
		}

		alerts = append(alerts, domain.DriftAlert{
			Typology:         typ,
			Trend:            trend,
			ChangePercentage: fmt.Sprintf("%+.1f%%", changePct),
			RecentCount:      recent[typ],
			PreviousCount:    prev,
			Severity:         severity,
			Recommendation:   driftRecommendation(typ, changePct),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return absChange(alerts[i]) > absChange(alerts[j])
	})
	return alerts
}

func absChange(a domain.DriftAlert) float64 {
	return abs(float64(a.RecentCount-a.PreviousCount) / float64(a.PreviousCount) * 100)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func driftRecommendation(typology domain.DetectionType, changePct float64) string {
	if changePct > 0 {
		return fmt.Sprintf("Increasing %s activity detected. Recommend enhanced monitoring and resource allocation.", typology)
	}
	return fmt.Sprintf("Decreasing %s activity. Review detection rules for potential evasion techniques.", typology)
}

// identifyEmergingTypologies scans recent narratives for the emerging
// threat watchlist
func (e *Engine) identifyEmergingTypologies(sars []domain.SARReport, now time.Time) []domain.EmergingTypology {
	emerging := []domain.EmergingTypology{}

	cutoff := now.Add(-time.Duration(e.cfg.EmergingWindowDays) * 24 * time.Hour)
	var recent []domain.SARReport
	for _, sar := range sars {
		if !sar.CreatedAt.Before(cutoff) {
			recent = append(recent, sar)
		}
	}
	if len(recent) < e.cfg.EmergingMinRecentSARs {
		return emerging
	}

	// Token extraction is limited to words of five letters or more, so
	// short watchlist entries only count when they appear as longer tokens
	frequency := map[string]int{}
	for _, sar := range recent {
		for _, word := range emergingTokenPattern.FindAllString(strings.ToLower(sar.Narrative), -1) {
			frequency[word]++
		}
	}

	for _, keyword := range emergingThreatKeywords {
		count := frequency[keyword]
		if count < 2 {
			continue
		}
		riskLevel := domain.SeverityMedium
		if count >= 4 {
			riskLevel = domain.SeverityHigh
		}
		emerging = append(emerging, domain.EmergingTypology{
			PatternKeyword: keyword,
			Frequency:      count,
			EmergenceDate:  cutoff,
			RiskLevel:      riskLevel,
			Description:    fmt.Sprintf("New pattern involving '%s' detected in %d recent SARs", keyword, count),
			Recommendation: fmt.Sprintf("Establish monitoring protocols for %s-related activities", keyword),
		})
	}

	sort.SliceStable(emerging, func(i, j int) bool {
		return emerging[i].Frequency > emerging[j].Frequency
	})
	return emerging
}

// analyzeNetworkPatterns flags customers linked to two or more cases.
// This is a repeat-customer count, not graph traversal.
func (e *Engine) analyzeNetworkPatterns(cases []domain.Case, customers []domain.Customer) []domain.NetworkRisk {
	risks := []domain.NetworkRisk{}

	byCustomer := map[uuid.UUID][]string{}
	var order []uuid.UUID
	for _, c := range cases {
		if c.CustomerID == nil {
			continue
		}
		id := *c.CustomerID
		if _, ok := byCustomer[id]; !ok {
			order = append(order, id)
		}
		byCustomer[id] = append(byCustomer[id], c.CaseRef)
	}

	lookup := map[uuid.UUID]domain.Customer{}
	for _, c := range customers {
		lookup[c.ID] = c
	}

	for _, id := range order {
		refs := byCustomer[id]
		if len(refs) < 2 {
			continue
		}
		customer := lookup[id]
		score := float64(len(refs)) / 5
		if score > 1 {
			score = 1
		}
		risks = append(risks, domain.NetworkRisk{
			CustomerRef:    customer.CustomerRef,
			CustomerName:   customer.Name,
			LinkedCases:    refs,
			CaseCount:      len(refs),
			RiskScore:      score,
			Pattern:        "Repeat suspicious activity",
			Recommendation: "Conduct comprehensive relationship review",
		})
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].CaseCount > risks[j].CaseCount
	})
	return risks
}

// analyzeTemporalTrends buckets SAR counts by calendar month and compares
// the mean of the last three months against the mean of everything earlier
func analyzeTemporalTrends(sars []domain.SARReport) domain.TemporalTrends {
	trends := domain.TemporalTrends{
		MonthlyVolumes:   map[string]int{},
		TrendDirection:   domain.TrendInsufficientData,
		VolumeChangePct:  "+0.0%",
		RecentMonthlyAvg: "N/A",
	}
	if len(sars) == 0 {
		return trends
	}

	for _, sar := range sars {
		trends.MonthlyVolumes[sar.CreatedAt.Format("2006-01")]++
	}

	months := make([]string, 0, len(trends.MonthlyVolumes))
	for month := range trends.MonthlyVolumes {
		months = append(months, month)
	}
	sort.Strings(months)

	if len(months) < 2 {
		return trends
	}

	recentStart := len(months) - 3
	if recentStart < 0 {
		recentStart = 0
	}
	recentAvg := meanCounts(months[recentStart:], trends.MonthlyVolumes)

	previousAvg := recentAvg
	if len(months) > 3 {
		previousAvg = meanCounts(months[:recentStart], trends.MonthlyVolumes)
	}

	switch {
	case recentAvg > previousAvg:
		trends.TrendDirection = domain.TrendIncreasing
	case recentAvg < previousAvg:
		trends.TrendDirection = domain.TrendDecreasing
	default:
		trends.TrendDirection = domain.TrendStable
	}

	change := 0.0
	if previousAvg > 0 {
		change = (recentAvg - previousAvg) / previousAvg * 100
	}
	trends.VolumeChangePct = fmt.Sprintf("%+.1f%%", change)
	trends.RecentMonthlyAvg = fmt.Sprintf("%.1f", recentAvg)

	return trends
}

func meanCounts(months []string, volumes map[string]int) float64 {
	if len(months) == 0 {
		return 0
	}
	var sum int
	for _, m := range months {
		sum += volumes[m]
	}
	return float64(sum) / float64(len(months))
}

// executiveRecommendations derives strategic findings deterministically
// from the assembled report sections
func executiveRecommendations(report *domain.IntelligenceReport) []domain.ExecutiveRecommendation {
	recommendations := []domain.ExecutiveRecommendation{}

	highDrift := 0
	for _, alert := range report.DriftAlerts {
		if alert.Severity == domain.SeverityHigh {
			highDrift++
		}
	}
	if highDrift > 0 {
		recommendations = append(recommendations, domain.ExecutiveRecommendation{
			Category: "Typology Drift",
			Priority: domain.SeverityCritical,
			Finding:  fmt.Sprintf("%d typologies showing significant drift", highDrift),
			Action:   "Immediate review of detection rules and analyst training",
			Impact:   "Potential regulatory exposure if emerging patterns not addressed",
		})
	}

	if len(report.EmergingTypologies) > 0 {
		recommendations = append(recommendations, domain.ExecutiveRecommendation{
			Category: "Emerging Threats",
			Priority: domain.SeverityHigh,
			Finding:  fmt.Sprintf("%d new suspicious patterns detected", len(report.EmergingTypologies)),
			Action:   "Establish dedicated monitoring and enhance detection capabilities",
			Impact:   "Proactive risk mitigation and regulatory readiness",
		})
	}

	if len(report.NetworkRisks) > 0 {
		recommendations = append(recommendations, domain.ExecutiveRecommendation{
			Category: "Network Risk",
			Priority: domain.SeverityHigh,
			Finding:  fmt.Sprintf("%d customers with multiple suspicious cases", len(report.NetworkRisks)),
			Action:   "Conduct comprehensive relationship reviews and consider account closure",
			Impact:   "Reduce institutional exposure to repeat offenders",
		})
	}

	if report.TemporalTrends.TrendDirection == domain.TrendIncreasing {
		recommendations = append(recommendations, domain.ExecutiveRecommendation{
			Category: "Volume Trend",
			Priority: domain.SeverityMedium,
			Finding:  fmt.Sprintf("SAR volume increasing by %s", report.TemporalTrends.VolumeChangePct),
			Action:   "Assess resource adequacy and process efficiency",
			Impact:   "Maintain quality standards while handling increased workload",
		})
	}

	return recommendations
}
