/*
store.go - Persistence interface for buckets, scalars and the log

PURPOSE:
  Defines the boundary between ledger logic and the database. The engine
  does read-check-write sequences against a Store handed to it by
  TxStore.WithTx, so every operation is one serializable unit.

APPEND-ONLY CONTRACT:
  Transactions have AppendTransaction and read methods only. There is no
  update or delete for log entries.

IMPLEMENTATIONS:
  - store/sqlite: Durable SQLite store
  - budget/store: In-memory store for tests and development
*/
package budget

import "context"

// Store handles persistence of ledger state.
type Store interface {
	// Buckets
	InsertBucket(ctx context.Context, b Bucket) error
	GetBucket(ctx context.Context, id BucketID) (Bucket, error)
	ListBuckets(ctx context.Context) ([]Bucket, error) // insertion order
	UpdateBucket(ctx context.Context, b Bucket) error
	DeleteBucket(ctx context.Context, id BucketID) error

	// Scalars. Both exist exactly once and start at zero.
	FreeMoney(ctx context.Context) (Money, error)
	SetFreeMoney(ctx context.Context, amount Money) error
	TotalBalance(ctx context.Context) (Money, error)
	SetTotalBalance(ctx context.Context, amount Money) error

	// AppendTransaction persists a log entry and returns it with Seq assigned.
	// This is the ONLY log write operation.
	AppendTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	GetTransaction(ctx context.Context, id TransactionID) (Transaction, error)
	// ListTransactions returns matching entries newest first, ordered by
	// (Timestamp, Seq) descending.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction that no other WithTx call can
	// interleave with. If fn returns an error, every write made through the
	// Store passed to fn is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
