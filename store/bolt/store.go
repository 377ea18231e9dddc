// Package bolt implements store.Store on a single bbolt file. Every
// changeset is written in one bbolt transaction.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/store"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

var (
	bucketPool      = []byte("pool")
	bucketShares    = []byte("shares")
	bucketTransfers = []byte("transfers")
	bucketFundings  = []byte("fundings")

	keyState = []byte("state")
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store persists faucet records in bbolt.
type Store struct {
	db     *bbolt.DB
	closed atomic.Bool
}

// Open opens or creates the bbolt database at path.
// The parent directory is created if it does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("faucet/bolt: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("faucet/bolt: open %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying bbolt database for direct access.
func (s *Store) DB() *bbolt.DB { return s.db }

// Migrate creates the buckets.
func (s *Store) Migrate(_ context.Context) error {
	return s.update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPool, bucketShares, bucketTransfers, bucketFundings} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("faucet/bolt: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
}

// Ping reports whether the database is still open.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return faucet.ErrStoreClosed
	}
	return nil
}

// Close closes the database. Further calls fail with faucet.ErrStoreClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// ==================== Pool Store ====================

func (s *Store) InitPool(_ context.Context, p *pool.State) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPool)
		if b.Get(keyState) != nil {
			return faucet.ErrAlreadyInitialized
		}
		return put(b, keyState, p)
	})
}

func (s *Store) GetPool(_ context.Context) (*pool.State, error) {
	var state pool.State
	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPool).Get(keyState)
		if data == nil {
			return faucet.ErrNotInitialized
		}
		return decode(data, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// ==================== Share Store ====================

func (s *Store) GetShare(_ context.Context, account types.AccountID) (types.Amount, error) {
	var e share.Entry
	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketShares).Get([]byte(account))
		if data == nil {
			return nil
		}
		return decode(data, &e)
	})
	if err != nil {
		return types.Amount{}, err
	}
	return e.Amount, nil
}

// ListShares walks the bucket in key order, which is account order.
func (s *Store) ListShares(_ context.Context, opts share.ListOpts) ([]*share.Entry, error) {
	var result []*share.Entry
	err := s.view(func(tx *bbolt.Tx) (err error) {
		result, err = list[share.Entry](tx.Bucket(bucketShares), opts.Limit, opts.Offset, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ==================== Transfer Store ====================

func (s *Store) GetTransfer(_ context.Context, transferID id.TransferID) (*transfer.Transfer, error) {
	t := new(transfer.Transfer)
	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTransfers).Get([]byte(transferID.String()))
		if data == nil {
			return faucet.ErrTransferNotFound
		}
		return decode(data, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransfers walks the bucket in key order. TypeIDs sort by creation
// time, so results come out oldest first.
func (s *Store) ListTransfers(_ context.Context, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	match := func(t *transfer.Transfer) bool {
		if opts.AccountID != "" && t.AccountID != opts.AccountID {
			return false
		}
		return opts.Status == "" || t.Status == opts.Status
	}

	var result []*transfer.Transfer
	err := s.view(func(tx *bbolt.Tx) (err error) {
		result, err = list(tx.Bucket(bucketTransfers), opts.Limit, opts.Offset, match)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ==================== Funding Store ====================

func (s *Store) ListFundings(_ context.Context, opts funding.ListOpts) ([]*funding.Record, error) {
	var result []*funding.Record
	err := s.view(func(tx *bbolt.Tx) (err error) {
		result, err = list[funding.Record](tx.Bucket(bucketFundings), opts.Limit, opts.Offset, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ==================== Changeset ====================

// Apply writes the changeset in one transaction.
func (s *Store) Apply(_ context.Context, cs *store.Changeset) error {
	if err := cs.Validate(); err != nil {
		return err
	}

	return s.update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket(bucketPool)
		if pb.Get(keyState) == nil {
			return faucet.ErrNotInitialized
		}

		if cs.Share != nil {
			sb := tx.Bucket(bucketShares)
			key := []byte(cs.Share.AccountID)
			e := *cs.Share
			if data := sb.Get(key); data != nil {
				var existing share.Entry
				if err := decode(data, &existing); err != nil {
					return err
				}
				e.CreatedAt = existing.CreatedAt
			}
			if err := put(sb, key, &e); err != nil {
				return err
			}
		}
		if cs.Transfer != nil {
			if err := put(tx.Bucket(bucketTransfers), []byte(cs.Transfer.ID.String()), cs.Transfer); err != nil {
				return err
			}
		}
		if cs.Funding != nil {
			fb := tx.Bucket(bucketFundings)
			key := []byte(cs.Funding.ID.String())
			if fb.Get(key) != nil {
				return fmt.Errorf("%w: %s", store.ErrDuplicateFunding, cs.Funding.ID)
			}
			if err := put(fb, key, cs.Funding); err != nil {
				return err
			}
		}
		return put(pb, keyState, cs.Pool)
	})
}

// ==================== Helpers ====================

func (s *Store) view(fn func(tx *bbolt.Tx) error) error {
	if s.closed.Load() {
		return faucet.ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(tx *bbolt.Tx) error) error {
	if s.closed.Load() {
		return faucet.ErrStoreClosed
	}
	err := s.db.Update(fn)
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return faucet.ErrStoreClosed
	}
	return err
}

// list decodes the values of b in key order. Offset and limit apply to the
// values accepted by match; a nil match accepts everything.
func list[T any](b *bbolt.Bucket, limit, offset int, match func(*T) bool) ([]*T, error) {
	result := make([]*T, 0)
	skipped := 0

	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if limit > 0 && len(result) >= limit {
			break
		}
		item := new(T)
		if err := decode(v, item); err != nil {
			return nil, err
		}
		if match != nil && !match(item) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func put(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("faucet/bolt: encode %s: %w", key, err)
	}
	if err := b.Put(key, data); err != nil {
		return fmt.Errorf("faucet/bolt: put %s: %w", key, err)
	}
	return nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("faucet/bolt: decode: %w", err)
	}
	return nil
}
