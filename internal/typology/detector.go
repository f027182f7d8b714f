package typology

import (
	"strings"

	"github.com/banking/sar-intelligence/internal/domain"
)

// family is one keyword family in the static detection table
type family struct {
	detectionType domain.DetectionType
	score         float64
	keywords      []string
	details       string
}

// families is the rule table: each matched family yields one detection with
// a fixed score. Families are independent; several may fire for one
// narrative.
var families = []family{
	{
		detectionType: domain.DetectionStructuring,
		score:         0.9,
		keywords:      []string{"structur", "split"},
		details:       "Detected keywords indicating structuring.",
	},
	{
		detectionType: domain.DetectionLayering,
		score:         0.8,
		keywords:      []string{"layer", "obfusc"},
		details:       "Possible layering / layering patterns.",
	},
	{
		detectionType: domain.DetectionVelocityAnomaly,
		score:         0.85,
		keywords:      []string{"rapid", "velocity", "many tx"},
		details:       "High transaction velocity detected.",
	},
}

// Detect scans a narrative for typology keyword indicators. A narrative with
// no indicators returns an empty slice, not an error.
func Detect(narrative string) []domain.TypologyDetection {
	lowered := strings.ToLower(narrative)

	var detections []domain.TypologyDetection
	for _, f := range families {
		for _, keyword := range f.keywords {
			if strings.Contains(lowered, keyword) {
				detections = append(detections, domain.TypologyDetection{
					DetectionType: f.detectionType,
					Score:         f.score,
					Details:       f.details,
				})
				break
			}
		}
	}
	return detections
}
