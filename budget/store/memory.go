// Package store provides in-memory budget.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/bucket-ledger/budget"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	buckets      map[budget.BucketID]budget.Bucket
	order        []budget.BucketID
	freeMoney    budget.Money
	totalBalance budget.Money
	transactions []budget.Transaction // Seq order
	nextSeq      int64
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[budget.BucketID]budget.Bucket)}
}

func (m *Memory) InsertBucket(_ context.Context, b budget.Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertBucketLocked(b)
}

func (m *Memory) GetBucket(_ context.Context, id budget.BucketID) (budget.Bucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBucketLocked(id)
}

func (m *Memory) ListBuckets(_ context.Context) ([]budget.Bucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listBucketsLocked(), nil
}

func (m *Memory) UpdateBucket(_ context.Context, b budget.Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateBucketLocked(b)
}

func (m *Memory) DeleteBucket(_ context.Context, id budget.BucketID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteBucketLocked(id)
}

func (m *Memory) FreeMoney(_ context.Context) (budget.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.freeMoney, nil
}

func (m *Memory) SetFreeMoney(_ context.Context, amount budget.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setFreeMoneyLocked(amount)
}

func (m *Memory) TotalBalance(_ context.Context) (budget.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalBalance, nil
}

func (m *Memory) SetTotalBalance(_ context.Context, amount budget.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setTotalBalanceLocked(amount)
}

// AppendTransaction adds a log entry. Append-only.
func (m *Memory) AppendTransaction(_ context.Context, tx budget.Transaction) (budget.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

func (m *Memory) GetTransaction(_ context.Context, id budget.TransactionID) (budget.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTransactionLocked(id)
}

func (m *Memory) ListTransactions(_ context.Context, filter budget.TransactionFilter) ([]budget.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTransactionsLocked(filter), nil
}

// =============================================================================
// LOCKED HELPERS - caller holds mu
// =============================================================================

func (m *Memory) insertBucketLocked(b budget.Bucket) error {
	if _, ok := m.buckets[b.ID]; ok {
		return errDuplicateBucket(b.ID)
	}
	m.buckets[b.ID] = b
	m.order = append(m.order, b.ID)
	return nil
}

func (m *Memory) getBucketLocked(id budget.BucketID) (budget.Bucket, error) {
	b, ok := m.buckets[id]
	if !ok {
		return budget.Bucket{}, &budget.BucketNotFoundError{ID: id}
	}
	return b, nil
}

func (m *Memory) listBucketsLocked() []budget.Bucket {
	result := make([]budget.Bucket, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.buckets[id])
	}
	return result
}

func (m *Memory) updateBucketLocked(b budget.Bucket) error {
	if _, ok := m.buckets[b.ID]; !ok {
		return &budget.BucketNotFoundError{ID: b.ID}
	}
	if b.Balance.IsNegative() {
		return errNegative("bucket balance", b.Balance)
	}
	m.buckets[b.ID] = b
	return nil
}

func (m *Memory) deleteBucketLocked(id budget.BucketID) error {
	if _, ok := m.buckets[id]; !ok {
		return &budget.BucketNotFoundError{ID: id}
	}
	delete(m.buckets, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) setFreeMoneyLocked(amount budget.Money) error {
	if amount.IsNegative() {
		return errNegative("free money", amount)
	}
	m.freeMoney = amount
	return nil
}

func (m *Memory) setTotalBalanceLocked(amount budget.Money) error {
	if amount.IsNegative() {
		return errNegative("total balance", amount)
	}
	m.totalBalance = amount
	return nil
}

func (m *Memory) appendLocked(tx budget.Transaction) (budget.Transaction, error) {
	for _, existing := range m.transactions {
		if existing.ID == tx.ID {
			return budget.Transaction{}, errDuplicateTransaction(tx.ID)
		}
	}
	m.nextSeq++
	tx.Seq = m.nextSeq
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

func (m *Memory) getTransactionLocked(id budget.TransactionID) (budget.Transaction, error) {
	for _, tx := range m.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return budget.Transaction{}, budget.ErrTransactionNotFound
}

func (m *Memory) listTransactionsLocked(filter budget.TransactionFilter) []budget.Transaction {
	result := make([]budget.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		if filter.Matches(tx) {
			result = append(result, tx)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].Seq > result[j].Seq
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

var _ budget.TxStore = (*TxMemory)(nil)

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn while holding the write lock.
// Rollback is simulated with a snapshot + restore on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(budget.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	buckets      map[budget.BucketID]budget.Bucket
	order        []budget.BucketID
	freeMoney    budget.Money
	totalBalance budget.Money
	transactions []budget.Transaction
	nextSeq      int64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	buckets := make(map[budget.BucketID]budget.Bucket, len(tm.buckets))
	for k, v := range tm.buckets {
		buckets[k] = v
	}
	return memorySnapshot{
		buckets:      buckets,
		order:        append([]budget.BucketID{}, tm.order...),
		freeMoney:    tm.freeMoney,
		totalBalance: tm.totalBalance,
		transactions: append([]budget.Transaction{}, tm.transactions...),
		nextSeq:      tm.nextSeq,
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.buckets = s.buckets
	tm.order = s.order
	tm.freeMoney = s.freeMoney
	tm.totalBalance = s.totalBalance
	tm.transactions = s.transactions
	tm.nextSeq = s.nextSeq
}

// txMemoryView is the Store handed to WithTx callbacks. The lock is already held.
type txMemoryView struct {
	parent *Memory
}

func (v *txMemoryView) InsertBucket(_ context.Context, b budget.Bucket) error {
	return v.parent.insertBucketLocked(b)
}

func (v *txMemoryView) GetBucket(_ context.Context, id budget.BucketID) (budget.Bucket, error) {
	return v.parent.getBucketLocked(id)
}

func (v *txMemoryView) ListBuckets(_ context.Context) ([]budget.Bucket, error) {
	return v.parent.listBucketsLocked(), nil
}

func (v *txMemoryView) UpdateBucket(_ context.Context, b budget.Bucket) error {
	return v.parent.updateBucketLocked(b)
}

func (v *txMemoryView) DeleteBucket(_ context.Context, id budget.BucketID) error {
	return v.parent.deleteBucketLocked(id)
}

func (v *txMemoryView) FreeMoney(_ context.Context) (budget.Money, error) {
	return v.parent.freeMoney, nil
}

func (v *txMemoryView) SetFreeMoney(_ context.Context, amount budget.Money) error {
	return v.parent.setFreeMoneyLocked(amount)
}

func (v *txMemoryView) TotalBalance(_ context.Context) (budget.Money, error) {
	return v.parent.totalBalance, nil
}

func (v *txMemoryView) SetTotalBalance(_ context.Context, amount budget.Money) error {
	return v.parent.setTotalBalanceLocked(amount)
}

func (v *txMemoryView) AppendTransaction(_ context.Context, tx budget.Transaction) (budget.Transaction, error) {
	return v.parent.appendLocked(tx)
}

func (v *txMemoryView) GetTransaction(_ context.Context, id budget.TransactionID) (budget.Transaction, error) {
	return v.parent.getTransactionLocked(id)
}

func (v *txMemoryView) ListTransactions(_ context.Context, filter budget.TransactionFilter) ([]budget.Transaction, error) {
	return v.parent.listTransactionsLocked(filter), nil
}

func errDuplicateBucket(id budget.BucketID) error {
	return fmt.Errorf("bucket %s already exists", id)
}

func errDuplicateTransaction(id budget.TransactionID) error {
	return fmt.Errorf("transaction %s already exists", id)
}

func errNegative(what string, amount budget.Money) error {
	return fmt.Errorf("%s cannot be negative: %s", what, amount)
}
