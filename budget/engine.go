/*
engine.go - Money-movement operations

PURPOSE:
  Every operation checks its preconditions against current state, computes
  new balances, and commits the balance writes plus one log entry inside a
  single TxStore.WithTx call. Either all of it lands or none of it does.

OPERATIONS:
  Income    free += amount                         log income
  Allocate  free -= amount, bucket += amount       log allocation
  Expense   bucket -= amount                       log expense
  Transfer  from -= amount, to += amount           log transfer
  Deposit   total += amount                        log deposit   (legacy)
  Payment   bucket -= amount, total -= amount      log payment   (legacy)

CONSERVATION:
  sum(buckets) + free is unchanged by Allocate and Transfer, raised by Income
  and lowered by Expense, each by exactly the amount.

CONCURRENCY:
  WithTx serializes the whole read-check-write-log sequence, so two callers
  can never both pass a balance check against stale state.
*/
package budget

import (
	"context"
	"fmt"
	"log/slog"
)

// Engine applies ledger operations. Build one per process and share it.
type Engine struct {
	store  TxStore
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger

	Buckets *Registry
	Log     *TransactionLog
}

func NewEngine(store TxStore, opts ...Option) *Engine {
	o := buildOptions(opts)
	return &Engine{
		store:   store,
		clock:   o.clock,
		ids:     o.ids,
		logger:  o.logger.With("component", "engine"),
		Buckets: newRegistry(store, o),
		Log:     NewTransactionLog(store),
	}
}

// Resume moves the clock floor past the newest logged entry so a restarted
// process keeps the log ordering strictly increasing.
func (e *Engine) Resume(ctx context.Context) error {
	latest, err := e.store.ListTransactions(ctx, TransactionFilter{Limit: 1})
	if err != nil {
		return internal("resume", err)
	}
	if len(latest) == 1 {
		if mc, ok := e.clock.(*MonotonicClock); ok {
			mc.Observe(latest[0].Timestamp)
		}
	}
	return nil
}

// =============================================================================
// RICH MODEL - free money, allocation, transfer
// =============================================================================

func (e *Engine) Income(ctx context.Context, amount Money, description string) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}
	return e.commit(ctx, TxIncome, func(s Store, res *Result) (Transaction, error) {
		free, err := s.FreeMoney(ctx)
		if err != nil {
			return Transaction{}, err
		}
		if free, err = free.addChecked(amount); err != nil {
			return Transaction{}, err
		}
		if err := s.SetFreeMoney(ctx, free); err != nil {
			return Transaction{}, err
		}
		return e.newTransaction(TxIncome, amount, description), nil
	})
}

func (e *Engine) Allocate(ctx context.Context, bucketID BucketID, amount Money, description string) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}
	return e.commit(ctx, TxAllocation, func(s Store, res *Result) (Transaction, error) {
		b, err := s.GetBucket(ctx, bucketID)
		if err != nil {
			return Transaction{}, err
		}
		free, err := s.FreeMoney(ctx)
		if err != nil {
			return Transaction{}, err
		}
		if free < amount {
			return Transaction{}, &InsufficientFundsError{Source: SourcePool, Available: free, Requested: amount}
		}
		if b.Balance, err = b.Balance.addChecked(amount); err != nil {
			return Transaction{}, err
		}
		free -= amount
		if err := s.SetFreeMoney(ctx, free); err != nil {
			return Transaction{}, err
		}
		if err := s.UpdateBucket(ctx, b); err != nil {
			return Transaction{}, err
		}
		res.Bucket = &b
		tx := e.newTransaction(TxAllocation, amount, description)
		tx.Bucket = refOf(b)
		return tx, nil
	})
}

func (e *Engine) Expense(ctx context.Context, bucketID BucketID, amount Money, description string) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}
	return e.commit(ctx, TxExpense, func(s Store, res *Result) (Transaction, error) {
		b, err := debitBucket(ctx, s, bucketID, amount)
		if err != nil {
			return Transaction{}, err
		}
		res.Bucket = &b
		tx := e.newTransaction(TxExpense, amount, description)
		tx.Bucket = refOf(b)
		return tx, nil
	})
}

func (e *Engine) Transfer(ctx context.Context, fromID, toID BucketID, amount Money, description string) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}
	if fromID == toID {
		return Result{}, fmt.Errorf("%w: cannot transfer a bucket to itself", ErrInvalidInput)
	}
	return e.commit(ctx, TxTransfer, func(s Store, res *Result) (Transaction, error) {
		// Both sides must exist before anything is written.
		to, err := s.GetBucket(ctx, toID)
		if err != nil {
			return Transaction{}, err
		}
		from, err := debitBucket(ctx, s, fromID, amount)
		if err != nil {
			return Transaction{}, err
		}
		if to.Balance, err = to.Balance.addChecked(amount); err != nil {
			return Transaction{}, err
		}
		if err := s.UpdateBucket(ctx, to); err != nil {
			return Transaction{}, err
		}
		res.From, res.To = &from, &to
		tx := e.newTransaction(TxTransfer, amount, description)
		tx.From, tx.To = refOf(from), refOf(to)
		return tx, nil
	})
}

// =============================================================================
// LEGACY MODEL - total balance, deposit, payment
// =============================================================================

func (e *Engine) Deposit(ctx context.Context, amount Money, description string) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}
	return e.commit(ctx, TxDeposit, func(s Store, res *Result) (Transaction, error) {
		total, err := s.TotalBalance(ctx)
		if err != nil {
			return Transaction{}, err
		}
		if total, err = total.addChecked(amount); err != nil {
			return Transaction{}, err
		}
		if err := s.SetTotalBalance(ctx, total); err != nil {
			return Transaction{}, err
		}
		return e.newTransaction(TxDeposit, amount, description), nil
	})
}

// Payment debits a bucket and the total balance together. The total must
// cover the amount as well as the bucket; older ledgers let the total go
// negative here.
func (e *Engine) Payment(ctx context.Context, bucketID BucketID, amount Money, description string) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}
	return e.commit(ctx, TxPayment, func(s Store, res *Result) (Transaction, error) {
		total, err := s.TotalBalance(ctx)
		if err != nil {
			return Transaction{}, err
		}
		b, err := debitBucket(ctx, s, bucketID, amount)
		if err != nil {
			return Transaction{}, err
		}
		if total < amount {
			return Transaction{}, &InsufficientFundsError{Source: SourceTotal, Available: total, Requested: amount}
		}
		total -= amount
		if err := s.SetTotalBalance(ctx, total); err != nil {
			return Transaction{}, err
		}
		res.Bucket = &b
		tx := e.newTransaction(TxPayment, amount, description)
		tx.Bucket = refOf(b)
		return tx, nil
	})
}

// =============================================================================
// READS
// =============================================================================

func (e *Engine) FreeMoney(ctx context.Context) (Money, error) {
	m, err := e.store.FreeMoney(ctx)
	return m, internal("free money", err)
}

func (e *Engine) TotalBalance(ctx context.Context) (Money, error) {
	m, err := e.store.TotalBalance(ctx)
	return m, internal("total balance", err)
}

// Summary reads every scalar and bucket in one consistent view.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	var (
		sum      Summary
		balances []Money
	)
	err := e.store.WithTx(ctx, func(s Store) error {
		buckets, err := s.ListBuckets(ctx)
		if err != nil {
			return err
		}
		if sum.FreeMoney, err = s.FreeMoney(ctx); err != nil {
			return err
		}
		if sum.TotalBalance, err = s.TotalBalance(ctx); err != nil {
			return err
		}
		for _, b := range buckets {
			balances = append(balances, b.Balance)
		}
		sum.BucketCount = len(buckets)
		return nil
	})
	if err != nil {
		return Summary{}, internal("summary", err)
	}
	if sum.Allocated, err = Sum(balances...); err != nil {
		return Summary{}, internal("summary allocated", err)
	}
	if sum.NetWorth, err = Sum(sum.Allocated, sum.FreeMoney); err != nil {
		return Summary{}, internal("summary net worth", err)
	}
	// Both operands are non-negative, so this cannot overflow.
	sum.Unallocated = sum.TotalBalance - sum.Allocated
	return sum, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

type mutation func(s Store, res *Result) (Transaction, error)

// commit runs m and the log append in one store transaction and fills in
// the post-commit scalars.
func (e *Engine) commit(ctx context.Context, typ TransactionType, m mutation) (Result, error) {
	var res Result
	err := e.store.WithTx(ctx, func(s Store) error {
		tx, err := m(s, &res)
		if err != nil {
			return err
		}
		if res.FreeMoney, err = s.FreeMoney(ctx); err != nil {
			return err
		}
		if res.TotalBalance, err = s.TotalBalance(ctx); err != nil {
			return err
		}
		logged, err := NewTransactionLog(s).Append(ctx, tx)
		if err != nil {
			return err
		}
		res.Transaction = logged
		return nil
	})
	if err != nil {
		if isBusiness(err) {
			e.logger.DebugContext(ctx, "operation rejected", "type", typ, "error", err)
			return Result{}, err
		}
		err = internal(string(typ), err)
		e.logger.ErrorContext(ctx, "operation failed", "type", typ, "error", err)
		return Result{}, err
	}
	e.logger.InfoContext(ctx, "operation committed",
		"type", typ,
		"transaction_id", res.Transaction.ID,
		"amount", res.Transaction.Amount.String(),
		"free_money", res.FreeMoney.String(),
		"total_balance", res.TotalBalance.String())
	return res, nil
}

func (e *Engine) newTransaction(typ TransactionType, amount Money, description string) Transaction {
	return Transaction{
		ID:          TransactionID(e.ids()),
		Type:        typ,
		Amount:      amount,
		Timestamp:   e.clock.Now(),
		Description: description,
	}
}

// debitBucket loads a bucket, checks it covers amount and writes the new balance.
func debitBucket(ctx context.Context, s Store, id BucketID, amount Money) (Bucket, error) {
	b, err := s.GetBucket(ctx, id)
	if err != nil {
		return Bucket{}, err
	}
	if b.Balance < amount {
		return Bucket{}, &InsufficientFundsError{Source: SourceBucket, BucketID: id, Available: b.Balance, Requested: amount}
	}
	b.Balance -= amount
	if err := s.UpdateBucket(ctx, b); err != nil {
		return Bucket{}, err
	}
	return b, nil
}

func checkAmount(amount Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, amount)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%w: amount exceeds the maximum of %s", ErrInvalidAmount, MaxAmount)
	}
	return nil
}
