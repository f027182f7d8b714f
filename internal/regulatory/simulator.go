package regulatory

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/banking/sar-intelligence/internal/domain"
)

// requirement is one entry in the regulatory review rubric
type requirement struct {
	name          string
	weight        float64
	keywords      []string
	minReferences int
}

// rubric is the regulatory requirements checklist. Weights sum to 1.0; the
// slice is ordered so every simulation evaluates requirements in the same
// sequence.
var rubric = []requirement{
	{
		name:          "subject_identification",
		weight:        0.20,
		keywords:      []string{"customer", "subject", "account holder", "individual", "entity", "name"},
		minReferences: 2,
	},
	{
		name:          "suspicious_activity_description",
		weight:        0.25,
		keywords:      []string{"suspicious", "unusual", "red flag", "indicator", "pattern", "activity"},
		minReferences: 3,
	},
	{
		name:          "transaction_details",
		weight:        0.20,
		keywords:      []string{"transaction", "amount", "date", "txn_id", "transfer", "payment"},
		minReferences: 4,
	},
	{
		name:          "timeline_chronology",
		weight:        0.15,
		keywords:      []string{"timeline", "period", "between", "occurred", "date", "when"},
		minReferences: 2,
	},
	{
		name:          "evidence_citations",
		weight:        0.10,
		keywords:      []string{"evidence", "documented", "recorded", "observed", "noted", "reference"},
		minReferences: 3,
	},
	{
		name:          "regulatory_reasoning",
		weight:        0.10,
		keywords:      []string{"reasonable", "belief", "suspicious", "indicates", "suggests", "likely"},
		minReferences: 2,
	},
}

// recommendationCatalog maps a gap requirement to its fixed improvement
// recommendation
var recommendationCatalog = map[string]domain.Recommendation{
	"subject_identification": {
		Priority:       domain.SeverityHigh,
		Requirement:    "subject_identification",
		Action:         "Add clear identification of subject including full name, account numbers, and role",
		ExpectedImpact: "+15-20% defensibility improvement",
	},
	"suspicious_activity_description": {
		Priority:       domain.SeverityCritical,
		Requirement:    "suspicious_activity_description",
		Action:         "Provide detailed description of suspicious patterns with specific red flag indicators",
		ExpectedImpact: "+20-25% defensibility improvement",
	},
	"transaction_details": {
		Priority:       domain.SeverityHigh,
		Requirement:    "transaction_details",
		Action:         "Include specific transaction amounts, dates, and reference numbers",
		ExpectedImpact: "+15-18% defensibility improvement",
	},
	"timeline_chronology": {
		Priority:       domain.SeverityMedium,
		Requirement:    "timeline_chronology",
		Action:         "Create clear chronological timeline of events with specific dates",
		ExpectedImpact: "+10-12% defensibility improvement",
	},
	"evidence_citations": {
		Priority:       domain.SeverityHigh,
		Requirement:    "evidence_citations",
		Action:         "Reference specific evidence sources and documentation",
		ExpectedImpact: "+12-15% defensibility improvement",
	},
	"regulatory_reasoning": {
		Priority:       domain.SeverityCritical,
		Requirement:    "regulatory_reasoning",
		Action:         "Articulate clear reasoning for why activity is considered suspicious under regulations",
		ExpectedImpact: "+18-22% defensibility improvement",
	},
}

var structureRecommendation = domain.Recommendation{
	Priority:       domain.SeverityMedium,
	Requirement:    "narrative_structure",
	Action:         "Improve narrative organization with clear sections and logical flow",
	ExpectedImpact: "+8-10% defensibility improvement",
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Simulate runs a regulatory review simulation over a narrative and returns
// a complete, freshly constructed assessment. Prior assessments are never
// mutated; every call builds a new object.
func Simulate(narrative string) domain.DefensibilityAssessment {
	assessment := domain.DefensibilityAssessment{
		RequirementScores: make(map[string]domain.RequirementScore, len(rubric)),
		Gaps:              []domain.Gap{},
		Strengths:         []domain.Strength{},
		Recommendations:   []domain.Recommendation{},
		SimulatedAt:       time.Now().UTC(),
	}

	var total float64
	for _, req := range rubric {
		score := scoreRequirement(narrative, req)
		assessment.RequirementScores[req.name] = domain.RequirementScore{
			Score:         score,
			Weight:        req.weight,
			WeightedScore: score * req.weight,
		}
		total += score * req.weight

		if score < 0.7 {
			assessment.Gaps = append(assessment.Gaps, domain.Gap{
				Requirement:         req.name,
				Severity:            gapSeverity(score),
				CurrentScore:        score,
				Gap:                 fmt.Sprintf("Missing or insufficient %s", strings.ReplaceAll(req.name, "_", " ")),
				RequiredImprovement: fmt.Sprintf("%.0f%% improvement needed", (0.9-score)*100),
			})
		} else if score >= 0.85 {
			assessment.Strengths = append(assessment.Strengths, domain.Strength{
				Requirement: req.name,
				Score:       score,
				Note:        fmt.Sprintf("Excellent %s coverage", strings.ReplaceAll(req.name, "_", " ")),
			})
		}
	}

	assessment.OverallDefensibilityScore = total
	assessment.Grade = assignGrade(total)
	assessment.RegulatoryReadiness = assessReadiness(total, len(assessment.Gaps))
	assessment.StructureQuality = analyzeStructure(narrative)

	for _, gap := range assessment.Gaps {
		if rec, ok := recommendationCatalog[gap.Requirement]; ok {
			assessment.Recommendations = append(assessment.Recommendations, rec)
		}
	}
	if assessment.StructureQuality.StructuralScore < 0.7 {
		assessment.Recommendations = append(assessment.Recommendations, structureRecommendation)
	}

	return assessment
}

// scoreRequirement counts keyword occurrences against the requirement's
// minimum-reference bar. Scores land on the fixed ladder
// {0, 0.40, 0.65, 0.85, 1.0}.
func scoreRequirement(narrative string, req requirement) float64 {
	lowered := strings.ToLower(narrative)

	matches := 0
	for _, keyword := range req.keywords {
		matches += strings.Count(lowered, keyword)
	}

	min := req.minReferences
	switch {
	case matches >= min*2:
		return 1.0
	case matches >= min:
		return 0.85
	case float64(matches) >= float64(min)*0.7:
		return 0.65
	case matches > 0:
		return 0.40
	}
	return 0
}

func gapSeverity(score float64) domain.Severity {
	switch {
	case score < 0.4:
		return domain.SeverityCritical
	case score < 0.6:
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

// analyzeStructure measures narrative organization from paragraph and
// sentence counts. The sentence split keeps the trailing empty segment a
// terminal punctuation mark produces, so counts line up with the historical
// scoring behavior.
func analyzeStructure(narrative string) domain.StructureQuality {
	paragraphs := 0
	for _, p := range strings.Split(narrative, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}

	sentences := len(sentenceSplit.Split(narrative, -1))

	denom := sentences
	if denom < 1 {
		denom = 1
	}

	return domain.StructureQuality{
		ParagraphCount:    paragraphs,
		SentenceCount:     sentences,
		AvgSentenceLength: float64(len(narrative)) / float64(denom),
		HasClearSections:  paragraphs >= 3,
		StructuralScore:   math.Min(1, float64(paragraphs)/4)*0.5 + math.Min(1, float64(sentences)/10)*0.5,
	}
}

func assignGrade(score float64) string {
	switch {
	case score >= 0.90:
		return "A+ (Excellent)"
	case score >= 0.85:
		return "A (Very Strong)"
	case score >= 0.80:
		return "B+ (Strong)"
	case score >= 0.75:
		return "B (Good)"
	case score >= 0.70:
		return "C+ (Acceptable)"
	case score >= 0.65:
		return "C (Marginal)"
	case score >= 0.60:
		return "D (Weak)"
	}
	return "F (Inadequate)"
}

func assessReadiness(score float64, gapCount int) domain.RegulatoryReadiness {
	switch {
	case score >= 0.85 && gapCount == 0:
		return domain.ReadinessReadyToFile
	case score >= 0.75 && gapCount <= 1:
		return domain.ReadinessMinorRevisions
	case score >= 0.65:
		return domain.ReadinessSignificantRevisions
	case score >= 0.50:
		return domain.ReadinessMajorRework
	}
	return domain.ReadinessNotReady
}

// ImprovementPlan orders the assessment's recommendations by priority and
// estimates revision effort from the overall score band
func ImprovementPlan(assessment domain.DefensibilityAssessment) domain.ImprovementPlan {
	plan := domain.ImprovementPlan{
		CurrentState: domain.PlanState{
			Score:     assessment.OverallDefensibilityScore,
			Grade:     assessment.Grade,
			Readiness: assessment.RegulatoryReadiness,
		},
		TargetState: domain.PlanState{
			Score:     0.90,
			Grade:     "A+",
			Readiness: domain.ReadinessReadyToFile,
		},
		RequiredImprovements: len(assessment.Gaps),
		PriorityActions:      []domain.Recommendation{},
	}

	for _, priority := range []domain.Severity{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium} {
		for _, rec := range assessment.Recommendations {
			if rec.Priority == priority {
				plan.PriorityActions = append(plan.PriorityActions, rec)
			}
		}
	}

	switch {
	case assessment.OverallDefensibilityScore >= 0.75:
		plan.EstimatedEffort = "1-2 hours of revision"
	case assessment.OverallDefensibilityScore >= 0.65:
		plan.EstimatedEffort = "3-5 hours of revision"
	default:
		plan.EstimatedEffort = "6-10 hours of major rework"
	}

	return plan
}
