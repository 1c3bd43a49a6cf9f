/*
journal.go - Append-only transaction log

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Append is the only mutator. No update, no delete.
  2. SAME UNIT OF WORK: Append is called on the Store passed to WithTx, so the
     entry commits with the balance change it describes.
  3. SNAPSHOTS: Bucket names are copied into the entry and never refreshed.
*/
package budget

import (
	"context"
	"fmt"
)

// TransactionLog is the audit trail of every completed movement.
type TransactionLog struct {
	Store Store
}

func NewTransactionLog(store Store) *TransactionLog {
	return &TransactionLog{Store: store}
}

// Append validates and persists a transaction, returning it with Seq set.
func (l *TransactionLog) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	if err := ValidateTransaction(tx); err != nil {
		return Transaction{}, err
	}
	return l.Store.AppendTransaction(ctx, tx)
}

// List returns entries newest first. Safe to call repeatedly.
func (l *TransactionLog) List(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	txs, err := l.Store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, internal("list transactions", err)
	}
	return txs, nil
}

func (l *TransactionLog) Get(ctx context.Context, id TransactionID) (Transaction, error) {
	tx, err := l.Store.GetTransaction(ctx, id)
	if err != nil {
		return Transaction{}, internal("get transaction", err)
	}
	return tx, nil
}

// ValidateTransaction checks that an entry is well formed: a known type, a
// positive amount, and exactly the bucket references its type calls for.
func ValidateTransaction(tx Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, tx.Type)
	}
	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive, got %s", ErrInvalidAmount, tx.Amount)
	}
	if tx.Timestamp.IsZero() {
		return fmt.Errorf("%w: transaction timestamp is required", ErrInvalidInput)
	}

	hasBucket, hasPair := tx.Bucket != nil, tx.From != nil || tx.To != nil
	switch tx.Type {
	case TxIncome, TxDeposit:
		if hasBucket || hasPair {
			return fmt.Errorf("%w: %s takes no bucket reference", ErrInvalidInput, tx.Type)
		}
	case TxAllocation, TxExpense, TxPayment:
		if !hasBucket || hasPair {
			return fmt.Errorf("%w: %s needs exactly one bucket reference", ErrInvalidInput, tx.Type)
		}
	case TxTransfer:
		if hasBucket || tx.From == nil || tx.To == nil {
			return fmt.Errorf("%w: transfer needs from and to references", ErrInvalidInput)
		}
	}
	return nil
}
