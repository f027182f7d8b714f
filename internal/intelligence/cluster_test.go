package intelligence

import (
	"testing"
	"time"

	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterCorpus() []domain.SARReport {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []domain.SARReport{
		mkSAR("SAR-1", "Customer split cash deposits below the reporting threshold on consecutive days.", at),
		mkSAR("SAR-2", "Deposits split below threshold repeatedly across branches.", at),
		mkSAR("SAR-3", "Funds layered through a complex chain of shell company transfers.", at),
		mkSAR("SAR-4", "Complex layered transfer chain designed to obscure origin of funds.", at),
		mkSAR("SAR-5", "Rapid frequent transfers, many small movements within hours.", at),
		mkSAR("SAR-6", "Frequent rapid outbound wires, velocity far above customer baseline.", at),
	}
}

func TestClusterNarrativesDeterministic(t *testing.T) {
	sars := clusterCorpus()

	first := clusterNarratives(sars, 5, 42)
	second := clusterNarratives(sars, 5, 42)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "identical corpus and seed must produce identical clusters")
}

func TestClusterNarrativesPartitionsCorpus(t *testing.T) {
	sars := clusterCorpus()
	clusters := clusterNarratives(sars, 5, 42)
	require.NotEmpty(t, clusters)

	total := 0
	seen := map[string]bool{}
	for _, cluster := range clusters {
		assert.Empty(t, cluster.Error)
		assert.Equal(t, len(cluster.SARRefs), cluster.Size)
		assert.NotEmpty(t, cluster.PatternType)
		total += cluster.Size
		for _, ref := range cluster.SARRefs {
			assert.False(t, seen[ref])
			seen[ref] = true
		}
	}
	assert.Equal(t, len(sars), total)

	// min(5, 6/2) caps the partition
	assert.LessOrEqual(t, len(clusters), 3)
}

func TestClusterNarrativesSmallCorpus(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sars := []domain.SARReport{
		mkSAR("SAR-1", "one", at),
		mkSAR("SAR-2", "two", at),
	}
	assert.Nil(t, clusterNarratives(sars, 5, 42))
}

func TestCommonKeywords(t *testing.T) {
	keywords := commonKeywords([]string{
		"deposits deposits deposits threshold branches",
		"deposits threshold threshold",
	})

	require.NotEmpty(t, keywords)
	assert.Equal(t, "deposits", keywords[0])
	assert.Equal(t, "threshold", keywords[1])
	assert.NotContains(t, keywords, "this")
}

func TestCommonKeywordsFiltersStopWords(t *testing.T) {
	keywords := commonKeywords([]string{"this that with from have been were will"})
	assert.Empty(t, keywords)
}

func TestInferPatternType(t *testing.T) {
	assert.Equal(t, "Structuring Pattern", inferPatternType([]string{"split", "deposits"}))
	assert.Equal(t, "Layering Pattern", inferPatternType([]string{"chain", "shell"}))
	assert.Equal(t, "Velocity Anomaly", inferPatternType([]string{"rapid", "wires"}))
	assert.Equal(t, "Geographic Risk Pattern", inferPatternType([]string{"offshore"}))
	assert.Equal(t, "Mixed/Unknown Pattern", inferPatternType([]string{"deposits", "unrelated"}))
}

func TestKmeansLabelsWithinRange(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0, 0.9, 0.1}, {0, 0, 1},
	}
	labels := kmeans(vectors, 2, 42)

	require.Len(t, labels, len(vectors))
	for _, label := range labels {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, 2)
	}

	assert.Equal(t, labels, kmeans(vectors, 2, 42))
}
