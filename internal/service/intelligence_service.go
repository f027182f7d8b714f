package service

import (
	"context"
	"fmt"
	"time"

	"github.com/banking/sar-intelligence/internal/crypto"
	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/banking/sar-intelligence/internal/intelligence"
	"github.com/banking/sar-intelligence/internal/repository/postgres"
	"github.com/banking/sar-intelligence/internal/repository/s3"
	"go.uber.org/zap"
)

// IntelligenceService runs the cross-case intelligence engine over a corpus
// snapshot and archives the resulting report
type IntelligenceService struct {
	caseRepo  *postgres.CaseRepository
	scoreRepo *postgres.ScoreRepository
	s3Repo    *s3.ReportRepository
	engine    *intelligence.Engine
	signer    *crypto.AuditSigner
	logger    *zap.Logger
}

func NewIntelligenceService(
	caseRepo *postgres.CaseRepository,
	scoreRepo *postgres.ScoreRepository,
	s3Repo *s3.ReportRepository,
	engine *intelligence.Engine,
	signer *crypto.AuditSigner,
	logger *zap.Logger,
) *IntelligenceService {
	return &IntelligenceService{
		caseRepo:  caseRepo,
		scoreRepo: scoreRepo,
		s3Repo:    s3Repo,
		engine:    engine,
		signer:    signer,
		logger:    logger,
	}
}

// GenerateReport snapshots the corpus, runs every analysis dimension and
// appends the audit entry. The report itself is process-scoped; only the
// S3 archive retains past runs.
func (s *IntelligenceService) GenerateReport(ctx context.Context) (*domain.IntelligenceReport, error) {
	snapshot, err := s.caseRepo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot corpus: %w", err)
	}

	report := s.engine.Generate(snapshot)

	entry := domain.NewAuditEntry(
		domain.ActionIntelligenceGenerated,
		"intelligence_report",
		report.ReportID.String(),
		fmt.Sprintf("Analyzed %d cases, %d drift alerts", report.TotalCasesAnalyzed, len(report.DriftAlerts)),
	)
	entry.Signature = s.signer.Sign(
		entry.ID.String(),
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err := s.scoreRepo.AppendAuditEntry(ctx, entry); err != nil {
		s.logger.Error("Failed to persist audit entry",
			zap.String("report_id", report.ReportID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("audit persistence failed: %w", err)
	}

	if !report.InsufficientData() {
		s.asyncArchiveReport(&report)
	}

	s.logger.Info("Intelligence report generated",
		zap.String("report_id", report.ReportID.String()),
		zap.Int("total_cases", report.TotalCasesAnalyzed),
		zap.Int("drift_alerts", len(report.DriftAlerts)),
		zap.Int("emerging_typologies", len(report.EmergingTypologies)),
		zap.Int("network_risks", len(report.NetworkRisks)),
	)
	return &report, nil
}

// asyncArchiveReport uploads the report to S3 with panic protection
func (s *IntelligenceService) asyncArchiveReport(report *domain.IntelligenceReport) {
	if s.s3Repo == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async report archival", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.s3Repo.StoreIntelligenceReport(asyncCtx, report); err != nil {
			s.logger.Error("Failed to archive intelligence report",
				zap.String("report_id", report.ReportID.String()),
				zap.Error(err),
			)
		}
	}()
}
