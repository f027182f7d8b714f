package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/domain"
	elastic "github.com/elastic/go-elasticsearch/v8"
)

// NarrativeRepository indexes scored SAR narratives so analysts can search
// the corpus. Indexing is best-effort; the scoring pipeline does not depend
// on it.
type NarrativeRepository struct {
	client *elastic.Client
	index  string
}

// indexedNarrative is the search document for one scored SAR
type indexedNarrative struct {
	SARRef             string   `json:"sar_ref"`
	Narrative          string   `json:"narrative"`
	DefensibilityScore float64  `json:"defensibility_score"`
	Grade              string   `json:"grade"`
	Readiness          string   `json:"readiness"`
	DetectedTypologies []string `json:"detected_typologies"`
}

// NewNarrativeRepository creates a new narrative search repository
func NewNarrativeRepository(cfg config.ElasticsearchConfig) (*NarrativeRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	if _, err = client.Info(); err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &NarrativeRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexNarrative indexes a scored SAR narrative with its assessment summary
func (r *NarrativeRepository) IndexNarrative(ctx context.Context, sar *domain.SARReport, assessment *domain.DefensibilityAssessment, detections []domain.TypologyDetection) error {
	doc := indexedNarrative{
		SARRef:    sar.SARRef,
		Narrative: sar.Narrative,
	}
	if assessment != nil {
		doc.DefensibilityScore = assessment.OverallDefensibilityScore
		doc.Grade = assessment.Grade
		doc.Readiness = string(assessment.RegulatoryReadiness)
	}
	for _, d := range detections {
		doc.DetectedTypologies = append(doc.DetectedTypologies, string(d.DetectionType))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal narrative doc: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(sar.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index narrative: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// SearchNarratives runs a query-string search over indexed narratives and
// returns matching SAR references
func (r *NarrativeRepository) SearchNarratives(ctx context.Context, query string, from, size int) ([]string, int64, error) {
	esQuery := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query":  query,
				"fields": []string{"narrative", "detected_typologies"},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source indexedNarrative `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	refs := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		refs = append(refs, hit.Source.SARRef)
	}
	return refs, result.Hits.Total.Value, nil
}
