// Package memory is an in-process store. Transactions are serialised and
// run against a copy of the state that replaces the live state on commit.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

type quotaKey struct {
	configID uint
	userID   string
}

type state struct {
	nextID       uint
	giveaways    map[uint]domain.Giveaway
	configs      map[uint]domain.SpinConfiguration
	quotas       map[quotaKey]int
	pool         map[uint][]domain.PoolCode
	tickets      []domain.Ticket
	wallets      map[string]domain.Wallet
	transactions []domain.Transaction
	reservations map[string]domain.SpinReservation
	usage        []domain.UsageEntry
}

func newState() *state {
	return &state{
		giveaways:    map[uint]domain.Giveaway{},
		configs:      map[uint]domain.SpinConfiguration{},
		quotas:       map[quotaKey]int{},
		pool:         map[uint][]domain.PoolCode{},
		wallets:      map[string]domain.Wallet{},
		reservations: map[string]domain.SpinReservation{},
	}
}

func (s *state) clone() *state {
	c := &state{
		nextID:       s.nextID,
		giveaways:    maps.Clone(s.giveaways),
		configs:      make(map[uint]domain.SpinConfiguration, len(s.configs)),
		quotas:       maps.Clone(s.quotas),
		pool:         make(map[uint][]domain.PoolCode, len(s.pool)),
		tickets:      slices.Clone(s.tickets),
		wallets:      maps.Clone(s.wallets),
		transactions: slices.Clone(s.transactions),
		reservations: maps.Clone(s.reservations),
		usage:        slices.Clone(s.usage),
	}
	for id, cfg := range s.configs {
		cfg.Tiers = slices.Clone(cfg.Tiers)
		c.configs[id] = cfg
	}
	for id, codes := range s.pool {
		c.pool[id] = slices.Clone(codes)
	}
	return c
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

// Store is a goroutine-safe in-memory store.Store
type Store struct {
	mu         sync.Mutex
	state      *state
	failCommit int
}

// New creates an empty store
func New() *Store {
	return &Store{state: newState()}
}

// FailNextCommits makes the next n transactions run to completion and then
// fail with store.ErrTransient instead of committing.
func (s *Store) FailNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = n
}

// WithinTx runs fn against a private copy of the state and commits it if fn succeeds
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, &Tx{st: work}); err != nil {
		return err
	}
	if s.failCommit > 0 {
		s.failCommit--
		return fmt.Errorf("%w: injected commit failure", store.ErrTransient)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}
