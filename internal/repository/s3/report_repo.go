package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/domain"
)

// ReportRepository archives generated intelligence reports to S3 so that
// historical runs remain available after the corpus changes.
type ReportRepository struct {
	client *s3.Client
	bucket string
}

// NewReportRepository creates a new S3 report repository
func NewReportRepository(ctx context.Context, cfg appConfig.S3Config) (*ReportRepository, error) {
	// Custom resolver for MinIO/Localstack support
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// returning EndpointNotFoundError will allow the service to fallback to it's default resolution
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO
	})

	return &ReportRepository{
		client: client,
		bucket: cfg.ReportsBucket,
	}, nil
}

// StoreIntelligenceReport uploads a cross-case intelligence report.
// Key format: intelligence/year/month/reportID.json
func (r *ReportRepository) StoreIntelligenceReport(ctx context.Context, report *domain.IntelligenceReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal intelligence report: %w", err)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("intelligence/%d/%02d/%s.json", now.Year(), now.Month(), report.ReportID)

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to s3: %w", err)
	}

	return nil
}

// StoreAssessment uploads a defensibility assessment keyed by SAR reference.
// Key format: assessments/year/month/sarRef.json
func (r *ReportRepository) StoreAssessment(ctx context.Context, sarRef string, assessment *domain.DefensibilityAssessment) error {
	data, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("assessments/%d/%02d/%s.json", now.Year(), now.Month(), sarRef)

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload assessment to s3: %w", err)
	}

	return nil
}
