// Package memory provides an in-process store for tests and single-node use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/store"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Pool singleton
	pool *pool.State

	// Share storage keyed by account
	shares map[types.AccountID]*share.Entry

	// Transfer storage keyed by ID, plus insertion order
	transfers     map[string]*transfer.Transfer
	transferOrder []string

	// Funding storage in insertion order, plus the IDs seen
	fundings   []*funding.Record
	fundingIDs map[string]struct{}
}

func New() *Store {
	return &Store{
		shares:     make(map[types.AccountID]*share.Entry),
		transfers:  make(map[string]*transfer.Transfer),
		fundingIDs: make(map[string]struct{}),
	}
}

// Pool Store implementation
func (s *Store) InitPool(_ context.Context, p *pool.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return faucet.ErrAlreadyInitialized
	}
	s.pool = p.Clone()
	return nil
}

func (s *Store) GetPool(_ context.Context) (*pool.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pool == nil {
		return nil, faucet.ErrNotInitialized
	}
	return s.pool.Clone(), nil
}

// Share Store implementation
func (s *Store) GetShare(_ context.Context, account types.AccountID) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.shares[account]; ok {
		return e.Amount, nil
	}
	return types.Amount{}, nil
}

func (s *Store) ListShares(_ context.Context, opts share.ListOpts) ([]*share.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*share.Entry, 0, len(s.shares))
	for _, e := range s.shares {
		c := *e
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountID < result[j].AccountID
	})

	return paginate(result, opts.Limit, opts.Offset), nil
}

// Transfer Store implementation
func (s *Store) GetTransfer(_ context.Context, transferID id.TransferID) (*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.transfers[transferID.String()]; ok {
		return t.Clone(), nil
	}
	return nil, faucet.ErrTransferNotFound
}

func (s *Store) ListTransfers(_ context.Context, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transfer.Transfer, 0)
	for _, key := range s.transferOrder {
		t := s.transfers[key]
		if opts.AccountID != "" && t.AccountID != opts.AccountID {
			continue
		}
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		result = append(result, t.Clone())
	}

	return paginate(result, opts.Limit, opts.Offset), nil
}

// Funding Store implementation
func (s *Store) ListFundings(_ context.Context, opts funding.ListOpts) ([]*funding.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*funding.Record, 0, len(s.fundings))
	for _, r := range s.fundings {
		c := *r
		result = append(result, &c)
	}

	return paginate(result, opts.Limit, opts.Offset), nil
}

// Apply writes the whole changeset under one lock.
func (s *Store) Apply(_ context.Context, cs *store.Changeset) error {
	if err := cs.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return faucet.ErrNotInitialized
	}
	if cs.Funding != nil {
		if _, dup := s.fundingIDs[cs.Funding.ID.String()]; dup {
			return fmt.Errorf("%w: %s", store.ErrDuplicateFunding, cs.Funding.ID)
		}
	}

	if cs.Share != nil {
		e := *cs.Share
		if existing, ok := s.shares[e.AccountID]; ok {
			e.CreatedAt = existing.CreatedAt
		}
		s.shares[e.AccountID] = &e
	}
	if cs.Transfer != nil {
		key := cs.Transfer.ID.String()
		if _, exists := s.transfers[key]; !exists {
			s.transferOrder = append(s.transferOrder, key)
		}
		s.transfers[key] = cs.Transfer.Clone()
	}
	if cs.Funding != nil {
		r := *cs.Funding
		s.fundings = append(s.fundings, &r)
		s.fundingIDs[r.ID.String()] = struct{}{}
	}
	s.pool = cs.Pool.Clone()
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }
func (s *Store) Close() error                    { return nil }

func paginate[T any](items []T, limit, offset int) []T {
	start := max(offset, 0)
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
