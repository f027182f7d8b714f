package intelligence

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/banking/sar-intelligence/internal/domain"
)

const (
	maxVocabularyTerms = 100
	topClusterKeywords = 15
	kmeansMaxIter      = 100
)

// vectorizerStopWords are excluded from the TF-IDF vocabulary
var vectorizerStopWords = map[string]bool{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "cannot",
		"could", "did", "do", "does", "doing", "down", "during", "each",
		"few", "for", "from", "further", "had", "has", "have", "having",
		"he", "her", "here", "hers", "him", "his", "how", "i", "if", "in",
		"into", "is", "it", "its", "itself", "me", "more", "most", "my",
		"no", "nor", "not", "of", "off", "on", "once", "only", "or",
		"other", "our", "ours", "out", "over", "own", "same", "she",
		"should", "so", "some", "such", "than", "that", "the", "their",
		"theirs", "them", "then", "there", "these", "they", "this",
		"those", "through", "to", "too", "under", "until", "up", "very",
		"was", "we", "were", "what", "when", "where", "which", "while",
		"who", "whom", "why", "will", "with", "would", "you", "your",
		"yours",
	} {
		vectorizerStopWords[w] = true
	}
}

// keywordStopWords filter the per-cluster common-keyword summary
var keywordStopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "will": true, "their": true, "there": true,
	"what": true, "when": true, "which": true, "would": true, "could": true,
	"should": true,
}

// patternGroups map keyword membership to an inferred typology label,
// checked in order
var patternGroups = []struct {
	label    string
	keywords []string
}{
	{"Structuring Pattern", []string{"structur", "split", "multiple", "below"}},
	{"Layering Pattern", []string{"layer", "complex", "chain", "obfusc"}},
	{"Velocity Anomaly", []string{"rapid", "velocity", "frequent", "many"}},
	{"Geographic Risk Pattern", []string{"offshore", "international", "foreign"}},
}

var (
	tokenPattern         = regexp.MustCompile(`\b[a-z][a-z0-9]+\b`)
	keywordPattern       = regexp.MustCompile(`\b[a-z]{4,}\b`)
	emergingTokenPattern = regexp.MustCompile(`\b[a-z]{5,}\b`)
)

// clusterNarratives vectorizes the SAR narratives and partitions them into
// min(maxClusters, n/2) groups. The whole stage is guarded: a panic inside
// vectorization or k-means is converted into a single error entry so the
// rest of the intelligence report still goes out.
func clusterNarratives(sars []domain.SARReport, maxClusters int, seed int64) (clusters []domain.PatternCluster) {
	if len(sars) < 3 {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			clusters = []domain.PatternCluster{{Error: fmt.Sprintf("clustering failed: %v", r)}}
		}
	}()

	narratives := make([]string, len(sars))
	refs := make([]string, len(sars))
	for i, sar := range sars {
		narratives[i] = sar.Narrative
		refs[i] = sar.SARRef
	}

	vectors := vectorize(narratives)

	k := maxClusters
	if half := len(sars) / 2; half < k {
		k = half
	}
	labels := kmeans(vectors, k, seed)

	for clusterID := 0; clusterID < k; clusterID++ {
		var memberRefs []string
		var memberNarratives []string
		for i, label := range labels {
			if label == clusterID {
				memberRefs = append(memberRefs, refs[i])
				memberNarratives = append(memberNarratives, narratives[i])
			}
		}
		if len(memberRefs) == 0 {
			continue
		}

		keywords := commonKeywords(memberNarratives)
		top := keywords
		if len(top) > 10 {
			top = top[:10]
		}

		clusters = append(clusters, domain.PatternCluster{
			ClusterID:      clusterID,
			Size:           len(memberRefs),
			SARRefs:        memberRefs,
			CommonKeywords: top,
			PatternType:    inferPatternType(keywords),
		})
	}

	return clusters
}

// vectorize builds L2-normalized TF-IDF vectors over the top terms of the
// corpus, English stop words removed. Term selection breaks frequency ties
// alphabetically so repeated runs see the same vocabulary.
func vectorize(narratives []string) [][]float64 {
	docTokens := make([][]string, len(narratives))
	termTotals := map[string]int{}
	docFreq := map[string]int{}

	for i, narrative := range narratives {
		tokens := tokenPattern.FindAllString(strings.ToLower(narrative), -1)
		seen := map[string]bool{}
		var kept []string
		for _, tok := range tokens {
			if vectorizerStopWords[tok] {
				continue
			}
			kept = append(kept, tok)
			termTotals[tok]++
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
		docTokens[i] = kept
	}

	terms := make([]string, 0, len(termTotals))
	for term := range termTotals {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termTotals[terms[i]] != termTotals[terms[j]] {
			return termTotals[terms[i]] > termTotals[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxVocabularyTerms {
		terms = terms[:maxVocabularyTerms]
	}

	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}

	n := float64(len(narratives))
	vectors := make([][]float64, len(narratives))
	for i, tokens := range docTokens {
		vec := make([]float64, len(terms))
		for _, tok := range tokens {
			if j, ok := index[tok]; ok {
				vec[j]++
			}
		}
		var norm float64
		for j := range vec {
			if vec[j] > 0 {
				idf := math.Log((1+n)/(1+float64(docFreq[terms[j]]))) + 1
				vec[j] *= idf
			}
			norm += vec[j] * vec[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		vectors[i] = vec
	}

	return vectors
}

// kmeans runs Lloyd's algorithm with a seeded initialization. Determinism:
// centroids start from a fixed-seed shuffle of the input, assignment ties
// go to the lowest centroid index, and iteration stops at convergence or
// the fixed cap, so identical input order yields identical labels.
func kmeans(vectors [][]float64, k int, seed int64) []int {
	if k < 1 {
		k = 1
	}
	if k > len(vectors) {
		k = len(vectors)
	}

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(len(vectors))

	dims := len(vectors[0])
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), vectors[order[i]]...)
	}

	labels := make([]int, len(vectors))
	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, vec := range vectors {
			best := 0
			bestDist := math.MaxFloat64
			for c, centroid := range centroids {
				d := squaredDistance(vec, centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; empty clusters keep their position
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, vec := range vectors {
			counts[labels[i]]++
			for j, v := range vec {
				sums[labels[i]][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	return labels
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// commonKeywords returns the most frequent non-stop-word terms of a cluster,
// most frequent first; ties keep first-seen order.
func commonKeywords(narratives []string) []string {
	counts := map[string]int{}
	var order []string
	for _, narrative := range narratives {
		for _, word := range keywordPattern.FindAllString(strings.ToLower(narrative), -1) {
			if keywordStopWords[word] {
				continue
			}
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topClusterKeywords {
		order = order[:topClusterKeywords]
	}
	return order
}

// inferPatternType labels a cluster by exact keyword membership against the
// fixed pattern groups
func inferPatternType(keywords []string) string {
	set := map[string]bool{}
	for _, k := range keywords {
		set[k] = true
	}

	for _, group := range patternGroups {
		for _, k := range group.keywords {
			if set[k] {
				return group.label
			}
		}
	}
	return "Mixed/Unknown Pattern"
}
