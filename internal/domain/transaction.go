package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced case, customer or SAR is absent.
// Surfaced to the caller as-is; never retried.
var ErrNotFound = errors.New("not found")

// TransactionType represents the channel of a monetary transaction
type TransactionType string

const (
	TxnTypeWire  TransactionType = "wire"
	TxnTypeCash  TransactionType = "cash"
	TxnTypeCheck TransactionType = "check"
	TxnTypeACH   TransactionType = "ach"
	TxnTypeATM   TransactionType = "atm"
	TxnTypeOther TransactionType = "other"
)

// TransactionRecord is an immutable transaction fact owned by an Account.
// The scoring core only ever reads these.
type TransactionRecord struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	TxnID     string          `json:"txn_id" db:"txn_id"`
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	Amount    float64         `json:"amount" db:"amount"` // dollars, >= 0
	Type      TransactionType `json:"txn_type" db:"txn_type"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	Metadata  string          `json:"metadata,omitempty" db:"metadata"` // free-form counterparty/geography notes
}

// Account groups transactions under a customer
type Account struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AccountRef  string    `json:"account_ref" db:"account_ref"`
	CustomerID  uuid.UUID `json:"customer_id" db:"customer_id"`
	AccountType string    `json:"account_type,omitempty" db:"account_type"`
	Balance     float64   `json:"balance" db:"balance"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Customer is the subject of cases and risk analysis
type Customer struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CustomerRef string    `json:"customer_ref" db:"customer_ref"`
	Name        string    `json:"name" db:"name"`
	RiskRating  int       `json:"risk_rating" db:"risk_rating"` // 1 (low) to 5 (high)
	KYCNotes    string    `json:"kyc_notes,omitempty" db:"kyc_notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CaseStatus represents the lifecycle state of an investigation case
type CaseStatus string

const (
	CaseStatusOpen      CaseStatus = "OPEN"
	CaseStatusAssigned  CaseStatus = "ASSIGNED"
	CaseStatusInReview  CaseStatus = "IN_REVIEW"
	CaseStatusClosed    CaseStatus = "CLOSED"
	CaseStatusEscalated CaseStatus = "ESCALATED"
)

// Case is an investigation case, optionally linked to a customer and a SAR
type Case struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	CaseRef     string     `json:"case_ref" db:"case_ref"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	Status      CaseStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// SARReport is the suspicious activity report under scoring.
// The narrative text is produced by an external narrative-generation
// collaborator; the core only scores it.
type SARReport struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SARRef    string    `json:"sar_ref" db:"sar_ref"`
	CaseID    uuid.UUID `json:"case_id" db:"case_id"`
	Narrative string    `json:"narrative" db:"narrative"`
	Approved  bool      `json:"approved" db:"approved"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
