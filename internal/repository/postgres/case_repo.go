package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRepository supplies read-only snapshots of cases, customers,
// transactions and SARs. The scoring core never writes through it.
type CaseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(pool *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{pool: pool}
}

// GetCaseByRef fetches a case by its reference
func (r *CaseRepository) GetCaseByRef(ctx context.Context, caseRef string) (*domain.Case, error) {
	const query = `
		SELECT id, case_ref, title, description, customer_id, status, created_at, updated_at
		FROM cases WHERE case_ref = $1
	`
	var c domain.Case
	err := r.pool.QueryRow(ctx, query, caseRef).Scan(
		&c.ID, &c.CaseRef, &c.Title, &c.Description, &c.CustomerID, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", caseRef, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query case: %w", err)
	}
	return &c, nil
}

// GetCustomer fetches a customer by ID
func (r *CaseRepository) GetCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	const query = `
		SELECT id, customer_ref, name, risk_rating, kyc_notes, created_at
		FROM customers WHERE id = $1
	`
	var c domain.Customer
	err := r.pool.QueryRow(ctx, query, customerID).Scan(
		&c.ID, &c.CustomerRef, &c.Name, &c.RiskRating, &c.KYCNotes, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", customerID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return &c, nil
}

// GetCustomerTransactions fetches all transactions across a customer's
// accounts, ordered by timestamp
func (r *CaseRepository) GetCustomerTransactions(ctx context.Context, customerID uuid.UUID) ([]domain.TransactionRecord, error) {
	const query = `
		SELECT t.id, t.txn_id, t.account_id, t.amount, t.txn_type, t.timestamp, t.metadata
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.customer_id = $1
		ORDER BY t.timestamp
	`
	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.TransactionRecord
	for rows.Next() {
		var t domain.TransactionRecord
		if err := rows.Scan(&t.ID, &t.TxnID, &t.AccountID, &t.Amount, &t.Type, &t.Timestamp, &t.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// GetSARByRef fetches a SAR by its reference
func (r *CaseRepository) GetSARByRef(ctx context.Context, sarRef string) (*domain.SARReport, error) {
	const query = `
		SELECT id, sar_ref, case_id, narrative, approved, created_at, updated_at
		FROM sar_reports WHERE sar_ref = $1
	`
	var s domain.SARReport
	err := r.pool.QueryRow(ctx, query, sarRef).Scan(
		&s.ID, &s.SARRef, &s.CaseID, &s.Narrative, &s.Approved, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sar %s: %w", sarRef, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query sar: %w", err)
	}
	return &s, nil
}

// Snapshot reads the full corpus in one pass for cross-case analysis.
// Consistency is a single-query-per-table snapshot; the engine does not
// need transactional isolation beyond that.
func (r *CaseRepository) Snapshot(ctx context.Context) (domain.CorpusSnapshot, error) {
	var snapshot domain.CorpusSnapshot

	rows, err := r.pool.Query(ctx, `
		SELECT id, sar_ref, case_id, narrative, approved, created_at, updated_at
		FROM sar_reports ORDER BY created_at
	`)
	if err != nil {
		return snapshot, fmt.Errorf("failed to query sars: %w", err)
	}
	for rows.Next() {
		var s domain.SARReport
		if err := rows.Scan(&s.ID, &s.SARRef, &s.CaseID, &s.Narrative, &s.Approved, &s.CreatedAt, &s.UpdatedAt); err != nil {
			rows.Close()
			return snapshot, fmt.Errorf("failed to scan sar: %w", err)
		}
		snapshot.SARs = append(snapshot.SARs, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snapshot, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, sar_id, detection_type, score, details, created_at
		FROM typology_detections ORDER BY created_at
	`)
	if err != nil {
		return snapshot, fmt.Errorf("failed to query detections: %w", err)
	}
	for rows.Next() {
		var d domain.TypologyDetection
		if err := rows.Scan(&d.ID, &d.SARID, &d.DetectionType, &d.Score, &d.Details, &d.CreatedAt); err != nil {
			rows.Close()
			return snapshot, fmt.Errorf("failed to scan detection: %w", err)
		}
		snapshot.Detections = append(snapshot.Detections, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snapshot, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, case_ref, title, description, customer_id, status, created_at, updated_at
		FROM cases ORDER BY created_at
	`)
	if err != nil {
		return snapshot, fmt.Errorf("failed to query cases: %w", err)
	}
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(&c.ID, &c.CaseRef, &c.Title, &c.Description, &c.CustomerID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			rows.Close()
			return snapshot, fmt.Errorf("failed to scan case: %w", err)
		}
		snapshot.Cases = append(snapshot.Cases, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snapshot, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, customer_ref, name, risk_rating, kyc_notes, created_at
		FROM customers ORDER BY created_at
	`)
	if err != nil {
		return snapshot, fmt.Errorf("failed to query customers: %w", err)
	}
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.CustomerRef, &c.Name, &c.RiskRating, &c.KYCNotes, &c.CreatedAt); err != nil {
			rows.Close()
			return snapshot, fmt.Errorf("failed to scan customer: %w", err)
		}
		snapshot.Customers = append(snapshot.Customers, c)
	}
	rows.Close()

	return snapshot, rows.Err()
}
