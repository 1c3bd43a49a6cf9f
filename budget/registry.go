package budget

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Registry is CRUD over buckets. Updates here are administrative: they log no
// transaction and leave the free-money pool alone.
type Registry struct {
	store  TxStore
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
}

func NewRegistry(store TxStore, opts ...Option) *Registry {
	o := buildOptions(opts)
	return newRegistry(store, o)
}

func newRegistry(store TxStore, o options) *Registry {
	return &Registry{store: store, clock: o.clock, ids: o.ids, logger: o.logger.With("component", "registry")}
}

// Create adds a bucket. The balance is optional and defaults to zero.
func (r *Registry) Create(ctx context.Context, name string, initialBalance ...Money) (Bucket, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Bucket{}, err
	}
	var balance Money
	if len(initialBalance) > 0 {
		balance = initialBalance[0]
	}
	if err := checkBalance(balance); err != nil {
		return Bucket{}, err
	}

	b := Bucket{
		ID:        BucketID(r.ids()),
		Name:      name,
		Balance:   balance,
		CreatedAt: r.clock.Now(),
	}
	err = r.store.WithTx(ctx, func(s Store) error {
		return s.InsertBucket(ctx, b)
	})
	if err != nil {
		return Bucket{}, internal("create bucket", err)
	}
	r.logger.InfoContext(ctx, "bucket created", "bucket_id", b.ID, "name", b.Name, "balance", b.Balance.String())
	return b, nil
}

func (r *Registry) Get(ctx context.Context, id BucketID) (Bucket, error) {
	b, err := r.store.GetBucket(ctx, id)
	if err != nil {
		return Bucket{}, internal("get bucket", err)
	}
	return b, nil
}

func (r *Registry) List(ctx context.Context) ([]Bucket, error) {
	buckets, err := r.store.ListBuckets(ctx)
	if err != nil {
		return nil, internal("list buckets", err)
	}
	return buckets, nil
}

// Update renames a bucket and/or overrides its balance.
func (r *Registry) Update(ctx context.Context, id BucketID, patch BucketPatch) (Bucket, error) {
	var name string
	if patch.Name != nil {
		n, err := normalizeName(*patch.Name)
		if err != nil {
			return Bucket{}, err
		}
		name = n
	}
	if patch.Balance != nil {
		if err := checkBalance(*patch.Balance); err != nil {
			return Bucket{}, err
		}
	}

	var updated Bucket
	err := r.store.WithTx(ctx, func(s Store) error {
		b, err := s.GetBucket(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			b.Name = name
		}
		if patch.Balance != nil {
			b.Balance = *patch.Balance
		}
		if err := s.UpdateBucket(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return Bucket{}, internal("update bucket", err)
	}
	r.logger.InfoContext(ctx, "bucket updated", "bucket_id", id, "name", updated.Name, "balance", updated.Balance.String())
	return updated, nil
}

// Rename is Update with only a name.
func (r *Registry) Rename(ctx context.Context, id BucketID, name string) (Bucket, error) {
	return r.Update(ctx, id, BucketPatch{Name: &name})
}

// SetBalance is Update with only a balance.
func (r *Registry) SetBalance(ctx context.Context, id BucketID, balance Money) (Bucket, error) {
	return r.Update(ctx, id, BucketPatch{Balance: &balance})
}

// Delete removes a bucket. Its balance is dropped, not returned to the free
// pool. Log entries that reference it keep their name snapshots.
func (r *Registry) Delete(ctx context.Context, id BucketID) error {
	var dropped Bucket
	err := r.store.WithTx(ctx, func(s Store) error {
		b, err := s.GetBucket(ctx, id)
		if err != nil {
			return err
		}
		dropped = b
		return s.DeleteBucket(ctx, id)
	})
	if err != nil {
		return internal("delete bucket", err)
	}
	if dropped.Balance.IsPositive() {
		r.logger.WarnContext(ctx, "bucket deleted with non-zero balance; money dropped",
			"bucket_id", id, "name", dropped.Name, "balance", dropped.Balance.String())
	} else {
		r.logger.InfoContext(ctx, "bucket deleted", "bucket_id", id, "name", dropped.Name)
	}
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: bucket name is required", ErrInvalidInput)
	}
	return name, nil
}

func checkBalance(m Money) error {
	if m.IsNegative() {
		return fmt.Errorf("%w: balance cannot be negative, got %s", ErrInvalidAmount, m)
	}
	if m > MaxBalance {
		return fmt.Errorf("%w: balance exceeds the maximum of %s", ErrInvalidAmount, MaxBalance)
	}
	return nil
}
