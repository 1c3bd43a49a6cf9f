/*
Package sqlite provides a SQLite-backed implementation of budget.TxStore.

KEY TABLES:
  buckets:       Named buckets, insertion order kept by seq
  ledger_state:  Single row with the free-money pool and legacy total balance
  transactions:  Append-only log; UPDATE and DELETE are rejected by triggers

INVARIANTS IN THE SCHEMA:
  CHECK constraints keep every balance and scalar >= 0 and every logged
  amount > 0, so even a buggy caller cannot commit a negative balance.

CONCURRENCY:
  One connection, a store mutex held for the whole of WithTx, and
  BEGIN IMMEDIATE transactions (_txlock=immediate) so a second process on
  the same file waits instead of interleaving a read-check-write.

AMOUNTS AND TIME:
  Money is stored as integer cents. Timestamps are Unix microseconds.

MIGRATION:
  Schema is migrated on New() with golang-migrate from embedded SQL files.

USAGE:
  store, err := sqlite.New("./data/budget.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := budget.NewEngine(store)
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/bucket-ledger/budget"
)

// Store implements budget.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ budget.TxStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and makes the
	// store mutex the only writer queue.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// BUCKETS
// =============================================================================

func (s *Store) InsertBucket(ctx context.Context, b budget.Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBucket(ctx, s.db, b)
}

func (s *Store) GetBucket(ctx context.Context, id budget.BucketID) (budget.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBucket(ctx, s.db, id)
}

func (s *Store) ListBuckets(ctx context.Context) ([]budget.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBuckets(ctx, s.db)
}

func (s *Store) UpdateBucket(ctx context.Context, b budget.Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBucket(ctx, s.db, b)
}

func (s *Store) DeleteBucket(ctx context.Context, id budget.BucketID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBucket(ctx, s.db, id)
}

func insertBucket(ctx context.Context, q querier, b budget.Bucket) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO buckets (id, name, balance_cents, created_at) VALUES (?, ?, ?, ?)`,
		string(b.ID), b.Name, b.Balance.Cents(), b.CreatedAt.UnixMicro())
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("bucket %s already exists: %w", b.ID, err)
		}
		return fmt.Errorf("failed to insert bucket: %w", err)
	}
	return nil
}

func getBucket(ctx context.Context, q querier, id budget.BucketID) (budget.Bucket, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, balance_cents, created_at FROM buckets WHERE id = ?`, string(id))
	b, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Bucket{}, &budget.BucketNotFoundError{ID: id}
	}
	if err != nil {
		return budget.Bucket{}, fmt.Errorf("failed to get bucket: %w", err)
	}
	return b, nil
}

func listBuckets(ctx context.Context, q querier) ([]budget.Bucket, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, balance_cents, created_at FROM buckets ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	buckets := []budget.Bucket{}
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func updateBucket(ctx context.Context, q querier, b budget.Bucket) error {
	res, err := q.ExecContext(ctx,
		`UPDATE buckets SET name = ?, balance_cents = ? WHERE id = ?`,
		b.Name, b.Balance.Cents(), string(b.ID))
	if err != nil {
		return fmt.Errorf("failed to update bucket: %w", err)
	}
	return requireRow(res, b.ID)
}

func deleteBucket(ctx context.Context, q querier, id budget.BucketID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM buckets WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	return requireRow(res, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBucket(sc scanner) (budget.Bucket, error) {
	var (
		b         budget.Bucket
		id        string
		cents     int64
		createdAt int64
	)
	if err := sc.Scan(&id, &b.Name, &cents, &createdAt); err != nil {
		return budget.Bucket{}, err
	}
	b.ID = budget.BucketID(id)
	b.Balance = budget.Cents(cents)
	b.CreatedAt = time.UnixMicro(createdAt).UTC()
	return b, nil
}

func requireRow(res sql.Result, id budget.BucketID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return &budget.BucketNotFoundError{ID: id}
	}
	return nil
}

// =============================================================================
// SCALARS
// =============================================================================

func (s *Store) FreeMoney(ctx context.Context) (budget.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readScalar(ctx, s.db, "free_money_cents")
}

func (s *Store) SetFreeMoney(ctx context.Context, amount budget.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeScalar(ctx, s.db, "free_money_cents", amount)
}

func (s *Store) TotalBalance(ctx context.Context) (budget.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readScalar(ctx, s.db, "total_balance_cents")
}

func (s *Store) SetTotalBalance(ctx context.Context, amount budget.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeScalar(ctx, s.db, "total_balance_cents", amount)
}

// column is always one of the two constants above, never caller input.
func readScalar(ctx context.Context, q querier, column string) (budget.Money, error) {
	var cents int64
	err := q.QueryRowContext(ctx, `SELECT `+column+` FROM ledger_state WHERE id = 1`).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", column, err)
	}
	return budget.Cents(cents), nil
}

func writeScalar(ctx context.Context, q querier, column string, amount budget.Money) error {
	_, err := q.ExecContext(ctx, `UPDATE ledger_state SET `+column+` = ? WHERE id = 1`, amount.Cents())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", column, err)
	}
	return nil
}

// =============================================================================
// TRANSACTION LOG (append-only)
// =============================================================================

const transactionColumns = `seq, id, tx_type, amount_cents, bucket_id, bucket_name,
	from_bucket_id, from_bucket_name, to_bucket_id, to_bucket_name, description, occurred_at`

// AppendTransaction adds a log entry and returns it with Seq assigned.
func (s *Store) AppendTransaction(ctx context.Context, tx budget.Transaction) (budget.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func (s *Store) GetTransaction(ctx context.Context, id budget.TransactionID) (budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, id)
}

func (s *Store) ListTransactions(ctx context.Context, filter budget.TransactionFilter) ([]budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db, filter)
}

func appendTransaction(ctx context.Context, q querier, tx budget.Transaction) (budget.Transaction, error) {
	bucketID, bucketName := refColumns(tx.Bucket)
	fromID, fromName := refColumns(tx.From)
	toID, toName := refColumns(tx.To)

	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions
		(id, tx_type, amount_cents, bucket_id, bucket_name, from_bucket_id, from_bucket_name,
		 to_bucket_id, to_bucket_name, description, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.ID),
		string(tx.Type),
		tx.Amount.Cents(),
		bucketID, bucketName,
		fromID, fromName,
		toID, toName,
		nullString(tx.Description),
		tx.Timestamp.UnixMicro(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return budget.Transaction{}, fmt.Errorf("transaction %s already exists: %w", tx.ID, err)
		}
		return budget.Transaction{}, fmt.Errorf("failed to append transaction: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return budget.Transaction{}, fmt.Errorf("failed to read transaction seq: %w", err)
	}
	tx.Seq = seq
	return tx, nil
}

func getTransaction(ctx context.Context, q querier, id budget.TransactionID) (budget.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, string(id))
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Transaction{}, budget.ErrTransactionNotFound
	}
	if err != nil {
		return budget.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func listTransactions(ctx context.Context, q querier, filter budget.TransactionFilter) ([]budget.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.BucketID != "" {
		where = append(where, `(bucket_id = ? OR from_bucket_id = ? OR to_bucket_id = ?)`)
		id := string(filter.BucketID)
		args = append(args, id, id, id)
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, `tx_type IN (`+strings.Join(placeholders, ", ")+`)`)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY occurred_at DESC, seq DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []budget.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(sc scanner) (budget.Transaction, error) {
	var (
		tx                   budget.Transaction
		id, txType           string
		cents, occurredAt    int64
		bucketID, bucketName sql.NullString
		fromID, fromName     sql.NullString
		toID, toName         sql.NullString
		description          sql.NullString
	)
	err := sc.Scan(&tx.Seq, &id, &txType, &cents, &bucketID, &bucketName,
		&fromID, &fromName, &toID, &toName, &description, &occurredAt)
	if err != nil {
		return budget.Transaction{}, err
	}

	tx.ID = budget.TransactionID(id)
	tx.Type = budget.TransactionType(txType)
	tx.Amount = budget.Cents(cents)
	tx.Description = description.String
	tx.Timestamp = time.UnixMicro(occurredAt).UTC()
	tx.Bucket = refFromColumns(bucketID, bucketName)
	tx.From = refFromColumns(fromID, fromName)
	tx.To = refFromColumns(toID, toName)
	return tx, nil
}

// =============================================================================
// TRANSACTIONAL STORE (budget.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store mutex is held
// throughout, so WithTx calls never interleave.
func (s *Store) WithTx(ctx context.Context, fn func(store budget.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore routes every call through the open *sql.Tx. It never takes the
// store mutex: WithTx already holds it.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertBucket(ctx context.Context, b budget.Bucket) error {
	return insertBucket(ctx, ts.tx, b)
}

func (ts *txStore) GetBucket(ctx context.Context, id budget.BucketID) (budget.Bucket, error) {
	return getBucket(ctx, ts.tx, id)
}

func (ts *txStore) ListBuckets(ctx context.Context) ([]budget.Bucket, error) {
	return listBuckets(ctx, ts.tx)
}

func (ts *txStore) UpdateBucket(ctx context.Context, b budget.Bucket) error {
	return updateBucket(ctx, ts.tx, b)
}

func (ts *txStore) DeleteBucket(ctx context.Context, id budget.BucketID) error {
	return deleteBucket(ctx, ts.tx, id)
}

func (ts *txStore) FreeMoney(ctx context.Context) (budget.Money, error) {
	return readScalar(ctx, ts.tx, "free_money_cents")
}

func (ts *txStore) SetFreeMoney(ctx context.Context, amount budget.Money) error {
	return writeScalar(ctx, ts.tx, "free_money_cents", amount)
}

func (ts *txStore) TotalBalance(ctx context.Context) (budget.Money, error) {
	return readScalar(ctx, ts.tx, "total_balance_cents")
}

func (ts *txStore) SetTotalBalance(ctx context.Context, amount budget.Money) error {
	return writeScalar(ctx, ts.tx, "total_balance_cents", amount)
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx budget.Transaction) (budget.Transaction, error) {
	return appendTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) GetTransaction(ctx context.Context, id budget.TransactionID) (budget.Transaction, error) {
	return getTransaction(ctx, ts.tx, id)
}

func (ts *txStore) ListTransactions(ctx context.Context, filter budget.TransactionFilter) ([]budget.Transaction, error) {
	return listTransactions(ctx, ts.tx, filter)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func refColumns(ref *budget.BucketRef) (sql.NullString, sql.NullString) {
	if ref == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: string(ref.ID), Valid: true}, sql.NullString{String: ref.Name, Valid: true}
}

func refFromColumns(id, name sql.NullString) *budget.BucketRef {
	if !id.Valid {
		return nil
	}
	return &budget.BucketRef{ID: budget.BucketID(id.String), Name: name.String}
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}
