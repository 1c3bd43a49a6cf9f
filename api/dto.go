/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Request amounts are decoded into decimal.Decimal, which accepts both JSON
  numbers and quoted strings, then converted to cents at the boundary.
  Responses carry plain JSON numbers with two decimal places of meaning.

SEE ALSO:
  - handlers.go: Uses these types
  - budget/money.go: Money conversions
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bucket-ledger/budget"
)

// =============================================================================
// BUCKETS
// =============================================================================

// BucketDTO represents a bucket in API responses.
type BucketDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Balance   float64 `json:"balance"`
	CreatedAt string  `json:"created_at"`
}

// CreateBucketRequest is the request to create a bucket.
type CreateBucketRequest struct {
	Name    string           `json:"name"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

// UpdateBucketRequest renames a bucket and/or overrides its balance.
type UpdateBucketRequest struct {
	Name    *string          `json:"name,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

// LedgerRequest drives income, allocate, expense and transfer.
type LedgerRequest struct {
	Action       string           `json:"action"`
	Amount       *decimal.Decimal `json:"amount"`
	BucketID     string           `json:"bucket_id,omitempty"`
	FromBucketID string           `json:"from_bucket_id,omitempty"`
	ToBucketID   string           `json:"to_bucket_id,omitempty"`
	Description  string           `json:"description,omitempty"`
}

// LedgerResponse reports the outcome of a ledger operation.
type LedgerResponse struct {
	Success     bool            `json:"success"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
	FreeMoney   float64         `json:"free_money"`
	Bucket      *BucketDTO      `json:"bucket,omitempty"`
	FromBucket  *BucketDTO      `json:"from_bucket,omitempty"`
	ToBucket    *BucketDTO      `json:"to_bucket,omitempty"`
	Error       string          `json:"error,omitempty"`
	Code        string          `json:"code,omitempty"`
}

// FreeMoneyDTO is the free-money pool.
type FreeMoneyDTO struct {
	Amount float64 `json:"amount"`
}

// =============================================================================
// LEGACY BALANCE
// =============================================================================

// BalanceRequest drives deposit and payment.
type BalanceRequest struct {
	Action      string           `json:"action"`
	Amount      *decimal.Decimal `json:"amount"`
	BucketID    string           `json:"bucket_id,omitempty"`
	Description string           `json:"description,omitempty"`
}

// BalanceResponse is returned by a successful deposit or payment.
type BalanceResponse struct {
	Balance     float64        `json:"balance"`
	Transaction TransactionDTO `json:"transaction"`
	Bucket      *BucketDTO     `json:"bucket,omitempty"`
}

// SummaryDTO is the ledger overview.
type SummaryDTO struct {
	TotalBalance float64 `json:"total_balance"`
	FreeMoney    float64 `json:"free_money"`
	Allocated    float64 `json:"allocated"`
	Unallocated  float64 `json:"unallocated"`
	NetWorth     float64 `json:"net_worth"`
	BucketCount  int     `json:"bucket_count"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a log entry in API responses.
type TransactionDTO struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	Timestamp      string  `json:"timestamp"`
	Description    string  `json:"description,omitempty"`
	BucketID       string  `json:"bucket_id,omitempty"`
	BucketName     string  `json:"bucket_name,omitempty"`
	FromBucketID   string  `json:"from_bucket_id,omitempty"`
	FromBucketName string  `json:"from_bucket_name,omitempty"`
	ToBucketID     string  `json:"to_bucket_id,omitempty"`
	ToBucketName   string  `json:"to_bucket_name,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBucketDTO(b budget.Bucket) BucketDTO {
	return BucketDTO{
		ID:        string(b.ID),
		Name:      b.Name,
		Balance:   b.Balance.Float64(),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}

func toBucketDTOPtr(b *budget.Bucket) *BucketDTO {
	if b == nil {
		return nil
	}
	dto := toBucketDTO(*b)
	return &dto
}

func toTransactionDTO(tx budget.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          string(tx.ID),
		Type:        string(tx.Type),
		Amount:      tx.Amount.Float64(),
		Timestamp:   tx.Timestamp.Format(time.RFC3339Nano),
		Description: tx.Description,
	}
	if tx.Bucket != nil {
		dto.BucketID, dto.BucketName = string(tx.Bucket.ID), tx.Bucket.Name
	}
	if tx.From != nil {
		dto.FromBucketID, dto.FromBucketName = string(tx.From.ID), tx.From.Name
	}
	if tx.To != nil {
		dto.ToBucketID, dto.ToBucketName = string(tx.To.ID), tx.To.Name
	}
	return dto
}

func toTransactionDTOs(txs []budget.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toSummaryDTO(s budget.Summary) SummaryDTO {
	return SummaryDTO{
		TotalBalance: s.TotalBalance.Float64(),
		FreeMoney:    s.FreeMoney.Float64(),
		Allocated:    s.Allocated.Float64(),
		Unallocated:  s.Unallocated.Float64(),
		NetWorth:     s.NetWorth.Float64(),
		BucketCount:  s.BucketCount,
	}
}
