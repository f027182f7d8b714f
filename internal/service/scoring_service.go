package service

import (
	"context"
	"fmt"
	"time"

	"github.com/banking/sar-intelligence/internal/cqi"
	"github.com/banking/sar-intelligence/internal/crypto"
	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/banking/sar-intelligence/internal/regulatory"
	"github.com/banking/sar-intelligence/internal/repository/elasticsearch"
	"github.com/banking/sar-intelligence/internal/repository/postgres"
	"github.com/banking/sar-intelligence/internal/repository/s3"
	"github.com/banking/sar-intelligence/internal/risk"
	"github.com/banking/sar-intelligence/internal/typology"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScoringService orchestrates the per-case and per-SAR scoring pipeline:
// transaction risk analysis, typology detection, regulatory simulation and
// CQI composition. Every completed run appends a signed audit entry.
type ScoringService struct {
	caseRepo  *postgres.CaseRepository
	scoreRepo *postgres.ScoreRepository
	esRepo    *elasticsearch.NarrativeRepository
	s3Repo    *s3.ReportRepository
	analyzer  *risk.Analyzer
	signer    *crypto.AuditSigner
	logger    *zap.Logger
}

func NewScoringService(
	caseRepo *postgres.CaseRepository,
	scoreRepo *postgres.ScoreRepository,
	esRepo *elasticsearch.NarrativeRepository,
	s3Repo *s3.ReportRepository,
	analyzer *risk.Analyzer,
	signer *crypto.AuditSigner,
	logger *zap.Logger,
) *ScoringService {
	return &ScoringService{
		caseRepo:  caseRepo,
		scoreRepo: scoreRepo,
		esRepo:    esRepo,
		s3Repo:    s3Repo,
		analyzer:  analyzer,
		signer:    signer,
		logger:    logger,
	}
}

// AnalyzeCaseRisk runs the transaction risk analyzer over the full
// transaction history of the case's customer
func (s *ScoringService) AnalyzeCaseRisk(ctx context.Context, caseRef string) (*domain.CaseRiskProfile, error) {
	c, err := s.caseRepo.GetCaseByRef(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	if c.CustomerID == nil {
		return nil, fmt.Errorf("case %s has no customer: %w", caseRef, domain.ErrNotFound)
	}

	customer, err := s.caseRepo.GetCustomer(ctx, *c.CustomerID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.caseRepo.GetCustomerTransactions(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	profile := s.analyzer.Analyze(*customer, transactions)

	// Persist each detection as a typology record. Analyzer detections are
	// customer-level, not tied to a SAR, so sar_id stays null.
	records := make([]domain.TypologyDetection, 0, len(profile.Detections))
	for _, d := range profile.Detections {
		records = append(records, domain.TypologyDetection{
			ID:            uuid.New(),
			DetectionType: d.Type,
			Score:         d.Score,
			Details:       fmt.Sprintf("%s | %s", d.Evidence, d.Recommendation),
			CreatedAt:     time.Now().UTC(),
		})
	}
	if err := s.scoreRepo.SaveDetections(ctx, records); err != nil {
		return nil, err
	}

	metadata := fmt.Sprintf("Risk Score: %.2f, Level: %s, Detections: %d",
		profile.OverallRiskScore, profile.RiskLevel, len(profile.Detections))
	if err := s.appendAudit(ctx, domain.ActionRiskAnalysis, "case", c.ID.String(), metadata); err != nil {
		return nil, err
	}

	s.logger.Info("Risk analysis complete",
		zap.String("case_ref", caseRef),
		zap.String("customer_ref", crypto.MaskCustomerRef(customer.CustomerRef)),
		zap.Float64("risk_score", profile.OverallRiskScore),
		zap.String("risk_level", string(profile.RiskLevel)),
	)
	return &profile, nil
}

// DetectTypologies scans a SAR narrative for known typology families and
// persists the detections
func (s *ScoringService) DetectTypologies(ctx context.Context, sarRef string) ([]domain.TypologyDetection, error) {
	sar, err := s.caseRepo.GetSARByRef(ctx, sarRef)
	if err != nil {
		return nil, err
	}

	detections := typology.Detect(sar.Narrative)
	for i := range detections {
		detections[i].SARID = &sar.ID
	}
	if err := s.scoreRepo.SaveDetections(ctx, detections); err != nil {
		return nil, err
	}

	metadata := fmt.Sprintf("Detections: %d", len(detections))
	if err := s.appendAudit(ctx, domain.ActionTypologyDetection, "sar", sar.ID.String(), metadata); err != nil {
		return nil, err
	}

	s.logger.Info("Typology detection complete",
		zap.String("sar_ref", sarRef),
		zap.Int("detections", len(detections)),
	)
	return detections, nil
}

// SimulateRegulatoryReview scores a SAR narrative against the regulatory
// rubric and returns the full defensibility assessment
func (s *ScoringService) SimulateRegulatoryReview(ctx context.Context, sarRef string) (*domain.DefensibilityAssessment, error) {
	sar, err := s.caseRepo.GetSARByRef(ctx, sarRef)
	if err != nil {
		return nil, err
	}

	assessment := regulatory.Simulate(sar.Narrative)
	assessment.SARID = sar.ID
	assessment.SARRef = sar.SARRef

	metadata := fmt.Sprintf("Defensibility Score: %.2f, Grade: %s, Gaps: %d",
		assessment.OverallDefensibilityScore, assessment.Grade, len(assessment.Gaps))
	if err := s.appendAudit(ctx, domain.ActionRegulatorySimulation, "sar", sar.ID.String(), metadata); err != nil {
		return nil, err
	}

	s.asyncIndexNarrative(sar, &assessment)
	s.asyncArchiveAssessment(sar.SARRef, &assessment)

	s.logger.Info("Regulatory simulation complete",
		zap.String("sar_ref", sarRef),
		zap.Float64("defensibility_score", assessment.OverallDefensibilityScore),
		zap.String("grade", assessment.Grade),
		zap.String("readiness", string(assessment.RegulatoryReadiness)),
	)
	return &assessment, nil
}

// BuildImprovementPlan derives a prioritized revision plan from a fresh
// regulatory simulation
func (s *ScoringService) BuildImprovementPlan(ctx context.Context, sarRef string) (*domain.ImprovementPlan, error) {
	assessment, err := s.SimulateRegulatoryReview(ctx, sarRef)
	if err != nil {
		return nil, err
	}
	plan := regulatory.ImprovementPlan(*assessment)
	return &plan, nil
}

// CalculateCQI computes the Compliance Quality Index for a SAR and replaces
// any prior score
func (s *ScoringService) CalculateCQI(ctx context.Context, sarRef string) (*domain.CQIScore, error) {
	sar, err := s.caseRepo.GetSARByRef(ctx, sarRef)
	if err != nil {
		return nil, err
	}

	// The defensibility dimension comes from a fresh simulation of the same
	// narrative. If simulation cannot run, composition falls back to the
	// neutral default inside the composer.
	assessment := regulatory.Simulate(sar.Narrative)

	score := cqi.Compose(sar.Narrative, assessment.OverallDefensibilityScore)
	score.ID = uuid.New()
	score.SARID = sar.ID
	if err := s.scoreRepo.ReplaceCQIScore(ctx, &score); err != nil {
		return nil, err
	}

	metadata := fmt.Sprintf("Overall Score: %.2f", score.OverallScore)
	if err := s.appendAudit(ctx, domain.ActionCQICalculated, "sar", sar.ID.String(), metadata); err != nil {
		return nil, err
	}

	s.logger.Info("CQI calculated",
		zap.String("sar_ref", sarRef),
		zap.Float64("overall_score", score.OverallScore),
	)
	return &score, nil
}

// SearchNarratives proxies full-text search over indexed narratives
func (s *ScoringService) SearchNarratives(ctx context.Context, query string, from, size int) ([]string, int64, error) {
	return s.esRepo.SearchNarratives(ctx, query, from, size)
}

// appendAudit signs and persists an audit entry. Audit persistence is the
// critical path: a scoring result without its ledger entry is not reportable.
func (s *ScoringService) appendAudit(ctx context.Context, action domain.ScoringAction, entityType, entityID, metadata string) error {
	entry := domain.NewAuditEntry(action, entityType, entityID, metadata)
	entry.Signature = s.signer.Sign(
		entry.ID.String(),
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err := s.scoreRepo.AppendAuditEntry(ctx, entry); err != nil {
		s.logger.Error("Failed to persist audit entry",
			zap.String("action", string(action)),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}

// asyncIndexNarrative handles background search indexing with panic protection
func (s *ScoringService) asyncIndexNarrative(sar *domain.SARReport, assessment *domain.DefensibilityAssessment) {
	if s.esRepo == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async narrative indexing", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		detections := typology.Detect(sar.Narrative)
		if err := s.esRepo.IndexNarrative(asyncCtx, sar, assessment, detections); err != nil {
			s.logger.Error("Failed to index narrative",
				zap.String("sar_ref", sar.SARRef),
				zap.Error(err),
			)
		}
	}()
}

// asyncArchiveAssessment uploads the assessment to S3 in the background
func (s *ScoringService) asyncArchiveAssessment(sarRef string, assessment *domain.DefensibilityAssessment) {
	if s.s3Repo == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async assessment archival", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.s3Repo.StoreAssessment(asyncCtx, sarRef, assessment); err != nil {
			s.logger.Error("Failed to archive assessment",
				zap.String("sar_ref", sarRef),
				zap.Error(err),
			)
		}
	}()
}
