package regulatory

import (
	"strings"
	"testing"

	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// strongNarrative clears every rubric requirement at double its minimum
// reference count
func strongNarrative() string {
	base := "The customer subject account holder was observed. " +
		"Suspicious unusual pattern activity red flag indicator. " +
		"Transaction amount date txn_id transfer payment. " +
		"Timeline period between occurred date when. " +
		"Evidence documented recorded observed noted reference. " +
		"Reasonable belief suspicious indicates suggests likely."
	return strings.Repeat(base+" ", 2)
}

func requirementByName(t *testing.T, name string) requirement {
	t.Helper()
	for _, req := range rubric {
		if req.name == name {
			return req
		}
	}
	t.Fatalf("unknown requirement %s", name)
	return requirement{}
}

func TestRubricWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, req := range rubric {
		sum += req.weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestScoreRequirementLadder(t *testing.T) {
	req := requirementByName(t, "transaction_details") // minReferences 4

	assert.Equal(t, 0.0, scoreRequirement("", req))
	assert.Equal(t, 0.40, scoreRequirement("one transfer noted", req))
	assert.Equal(t, 0.65, scoreRequirement("transaction transfer payment", req))
	assert.Equal(t, 0.85, scoreRequirement("transaction transfer payment amount", req))
	assert.Equal(t, 1.0, scoreRequirement(
		"transaction amount date txn_id transfer payment transaction amount", req))
}

func TestScoresStayOnLadder(t *testing.T) {
	ladder := map[float64]bool{0: true, 0.40: true, 0.65: true, 0.85: true, 1.0: true}

	for _, narrative := range []string{"", "customer transaction", strongNarrative()} {
		assessment := Simulate(narrative)
		for name, rs := range assessment.RequirementScores {
			assert.Truef(t, ladder[rs.Score], "requirement %s scored off-ladder value %v", name, rs.Score)
		}
	}
}

func TestOverallScoreIsWeightedSum(t *testing.T) {
	assessment := Simulate("customer transaction evidence suspicious timeline likely")

	var sum float64
	for _, rs := range assessment.RequirementScores {
		assert.InDelta(t, rs.Score*rs.Weight, rs.WeightedScore, 1e-9)
		sum += rs.WeightedScore
	}
	assert.InDelta(t, sum, assessment.OverallDefensibilityScore, 1e-9)
}

func TestSimulateEmptyNarrative(t *testing.T) {
	assessment := Simulate("")

	assert.Zero(t, assessment.OverallDefensibilityScore)
	assert.Equal(t, "F (Inadequate)", assessment.Grade)
	assert.Equal(t, domain.ReadinessNotReady, assessment.RegulatoryReadiness)
	require.Len(t, assessment.Gaps, len(rubric))
	for _, gap := range assessment.Gaps {
		assert.Equal(t, domain.SeverityCritical, gap.Severity)
	}
	assert.Empty(t, assessment.Strengths)
}

func TestSimulateStrongNarrativeReadyToFile(t *testing.T) {
	assessment := Simulate(strongNarrative())

	assert.InDelta(t, 1.0, assessment.OverallDefensibilityScore, 1e-9)
	assert.Equal(t, "A+ (Excellent)", assessment.Grade)
	assert.Equal(t, domain.ReadinessReadyToFile, assessment.RegulatoryReadiness)
	assert.Empty(t, assessment.Gaps)
	assert.Len(t, assessment.Strengths, len(rubric))
}

func TestSimulateBuildsFreshAssessment(t *testing.T) {
	first := Simulate("customer transaction")
	second := Simulate("customer transaction")

	// Same inputs, equal scores, distinct gap slices
	assert.Equal(t, first.RequirementScores, second.RequirementScores)
	if len(first.Gaps) > 0 {
		first.Gaps[0].Requirement = "mutated"
		assert.NotEqual(t, first.Gaps[0].Requirement, second.Gaps[0].Requirement)
	}
}

func TestAnalyzeStructure(t *testing.T) {
	narrative := "Para one. Has two sentences.\n\nPara two here. More text.\n\nPara three. End."
	quality := analyzeStructure(narrative)

	assert.Equal(t, 3, quality.ParagraphCount)
	assert.Equal(t, 7, quality.SentenceCount) // trailing empty segment counts
	assert.True(t, quality.HasClearSections)
	assert.InDelta(t, 0.725, quality.StructuralScore, 0.001)
}

func TestAssignGradeBoundaries(t *testing.T) {
	assert.Equal(t, "A+ (Excellent)", assignGrade(0.90))
	assert.Equal(t, "A (Very Strong)", assignGrade(0.85))
	assert.Equal(t, "B+ (Strong)", assignGrade(0.80))
	assert.Equal(t, "B (Good)", assignGrade(0.75))
	assert.Equal(t, "C+ (Acceptable)", assignGrade(0.70))
	assert.Equal(t, "C (Marginal)", assignGrade(0.65))
	assert.Equal(t, "D (Weak)", assignGrade(0.60))
	assert.Equal(t, "F (Inadequate)", assignGrade(0.59))
}

func TestAssessReadinessBands(t *testing.T) {
	assert.Equal(t, domain.ReadinessReadyToFile, assessReadiness(0.90, 0))
	assert.Equal(t, domain.ReadinessMinorRevisions, assessReadiness(0.90, 1))
	assert.Equal(t, domain.ReadinessMinorRevisions, assessReadiness(0.78, 1))
	assert.Equal(t, domain.ReadinessSignificantRevisions, assessReadiness(0.78, 2))
	assert.Equal(t, domain.ReadinessMajorRework, assessReadiness(0.55, 4))
	assert.Equal(t, domain.ReadinessNotReady, assessReadiness(0.40, 6))
}

func TestImprovementPlanOrdersByPriority(t *testing.T) {
	plan := ImprovementPlan(Simulate(""))

	assert.Equal(t, len(rubric), plan.RequiredImprovements)
	assert.Equal(t, "6-10 hours of major rework", plan.EstimatedEffort)
	assert.Equal(t, domain.ReadinessReadyToFile, plan.TargetState.Readiness)

	require.NotEmpty(t, plan.PriorityActions)
	rank := map[domain.Severity]int{
		domain.SeverityCritical: 0,
		domain.SeverityHigh:     1,
		domain.SeverityMedium:   2,
	}
	for i := 1; i < len(plan.PriorityActions); i++ {
		assert.LessOrEqual(t,
			rank[plan.PriorityActions[i-1].Priority],
			rank[plan.PriorityActions[i].Priority],
			"actions must be ordered critical, high, medium",
		)
	}
	assert.Equal(t, domain.SeverityCritical, plan.PriorityActions[0].Priority)
}

func TestImprovementPlanEffortBands(t *testing.T) {
	high := ImprovementPlan(domain.DefensibilityAssessment{OverallDefensibilityScore: 0.80})
	assert.Equal(t, "1-2 hours of revision", high.EstimatedEffort)

	mid := ImprovementPlan(domain.DefensibilityAssessment{OverallDefensibilityScore: 0.70})
	assert.Equal(t, "3-5 hours of revision", mid.EstimatedEffort)

	low := ImprovementPlan(domain.DefensibilityAssessment{OverallDefensibilityScore: 0.40})
	assert.Equal(t, "6-10 hours of major rework", low.EstimatedEffort)
}
