/*
Package budget provides the bucket budgeting ledger engine.

PURPOSE:
  Tracks money held in named buckets, an unallocated free-money pool and a
  chronological transaction log. Every money movement (income, allocation,
  expense, transfer, and the legacy deposit/payment pair) is applied as one
  atomic update to balances plus one appended log entry.

KEY CONCEPTS IN THIS FILE (types.go):
  - Bucket: A named pot of money with a non-negative balance
  - Transaction: An immutable log entry describing one completed movement
  - TransactionType: Exactly one type per movement, never ambiguous
  - Result: What an engine operation hands back on success

DESIGN PRINCIPLES:
  1. Atomicity: Balance mutations and the log append commit together or not at all
  2. Precision: Money is integer cents, never float
  3. Snapshots: Transactions copy bucket names at write time. Renaming or
     deleting a bucket later does not rewrite history.
  4. Auditability: The log is append-only

USAGE:
  engine := budget.NewEngine(store)
  res, err := engine.Income(ctx, budget.Units(100), "salary")
  res, err = engine.Allocate(ctx, rentID, budget.Units(40), "")

SEE ALSO:
  - money.go: Fixed-point amounts
  - engine.go: Money-movement operations
  - registry.go: Bucket CRUD
  - journal.go: Transaction log
  - store.go: Persistence interface
*/
package budget

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BucketID string
type TransactionID string

// =============================================================================
// BUCKET
// =============================================================================

type Bucket struct {
	ID        BucketID
	Name      string
	Balance   Money
	CreatedAt time.Time
}

// BucketPatch is an administrative update. Nil fields are left unchanged.
type BucketPatch struct {
	Name    *string
	Balance *Money
}

// =============================================================================
// TRANSACTION - Immutable record of a completed movement
// =============================================================================

type TransactionType string

const (
	TxIncome     TransactionType = "income"     // External money into the free pool
	TxAllocation TransactionType = "allocation" // Free pool -> bucket
	TxExpense    TransactionType = "expense"    // Bucket -> out of the system
	TxTransfer   TransactionType = "transfer"   // Bucket -> bucket
	TxDeposit    TransactionType = "deposit"    // Legacy: external money into the total balance
	TxPayment    TransactionType = "payment"    // Legacy: bucket and total balance -> out of the system
)

// TransactionTypes lists every valid type.
var TransactionTypes = []TransactionType{TxIncome, TxAllocation, TxExpense, TxTransfer, TxDeposit, TxPayment}

func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// BucketRef is a bucket reference with the name as it was when the
// transaction was written.
type BucketRef struct {
	ID   BucketID
	Name string
}

func refOf(b Bucket) *BucketRef { return &BucketRef{ID: b.ID, Name: b.Name} }

type Transaction struct {
	ID          TransactionID
	Type        TransactionType
	Amount      Money
	Timestamp   time.Time
	Description string

	// Bucket is set for allocation, expense and payment.
	Bucket *BucketRef
	// From and To are set for transfer.
	From *BucketRef
	To   *BucketRef

	// Seq is the insertion sequence assigned by the store. It breaks
	// timestamp ties in the log ordering.
	Seq int64
}

// References reports whether the transaction names the given bucket in any role.
func (t Transaction) References(id BucketID) bool {
	for _, ref := range []*BucketRef{t.Bucket, t.From, t.To} {
		if ref != nil && ref.ID == id {
			return true
		}
	}
	return false
}

// TransactionFilter narrows a log query. The zero value matches everything.
type TransactionFilter struct {
	BucketID BucketID
	Types    []TransactionType
	Limit    int // <= 0 means unbounded
}

func (f TransactionFilter) Matches(t Transaction) bool {
	if f.BucketID != "" && !t.References(f.BucketID) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, typ := range f.Types {
		if t.Type == typ {
			return true
		}
	}
	return false
}

// =============================================================================
// RESULTS
// =============================================================================

// Result is returned by every successful engine operation. Bucket fields
// carry the post-operation state of the buckets the operation touched.
type Result struct {
	Transaction  Transaction
	FreeMoney    Money
	TotalBalance Money

	Bucket *Bucket // allocation, expense, payment
	From   *Bucket // transfer
	To     *Bucket // transfer
}

// Summary is the read-only overview of the whole ledger.
type Summary struct {
	FreeMoney    Money
	TotalBalance Money
	Allocated    Money // sum of bucket balances
	Unallocated  Money // TotalBalance - Allocated, the legacy view; may be negative
	NetWorth     Money // Allocated + FreeMoney
	BucketCount  int
}
