package cqi

import (
	"math"
	"strings"
	"time"

	"github.com/banking/sar-intelligence/internal/domain"
)

// DefaultDefensibility is used when the regulatory simulation for a SAR is
// unavailable; the composite then leans on the traditional metrics alone.
const DefaultDefensibility = 0.5

// Compose blends four traditional narrative-quality metrics with the
// regulatory defensibility score into one Compliance Quality Index.
// 60% traditional metrics, 40% defensibility.
//
// The keyword probes are case-sensitive over the raw narrative; SAR
// narratives are analyst prose and the historical scoring behaved this way.
func Compose(narrative string, defensibilityScore float64) domain.CQIScore {
	evidenceCoverage := math.Min(1, float64(strings.Count(narrative, "txn_id"))/5)
	completeness := math.Min(1, float64(len(narrative))/2000)

	confidence := 0.6
	if strings.Contains(narrative, "likely") || strings.Contains(narrative, "probable") {
		confidence = 0.8
	}

	traceability := 0.5
	if strings.Contains(narrative, "evidence") || strings.Contains(narrative, "transaction") {
		traceability = 0.7
	}

	traditional := (evidenceCoverage + completeness + confidence + traceability) / 4

	return domain.CQIScore{
		EvidenceCoverage: evidenceCoverage,
		Completeness:     completeness,
		Confidence:       confidence,
		Traceability:     traceability,
		OverallScore:     traditional*0.6 + defensibilityScore*0.4,
		CalculatedAt:     time.Now().UTC(),
	}
}
