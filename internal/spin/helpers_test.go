package spin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
	"lucky_spin/internal/store/memory"
)

// scriptedRandom replays queued values, then falls back to a seeded source
type scriptedRandom struct {
	mu       sync.Mutex
	floats   []float64
	ints     []int
	fallback Random
}

func newScripted(floats []float64, ints []int) *scriptedRandom {
	return &scriptedRandom{floats: floats, ints: ints, fallback: NewSeededRandom(7)}
}

func (r *scriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return r.fallback.Float64()
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return r.fallback.IntN(n)
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

func (r *scriptedRandom) Int64N(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fallback.Int64N(n)
}

// constRandom always returns the same values
type constRandom struct {
	f float64
	i int
}

func (r constRandom) Float64() float64     { return r.f }
func (r constRandom) IntN(n int) int       { return r.i % n }
func (r constRandom) Int64N(n int64) int64 { return int64(r.i) % n }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	st    *memory.Store
	svc   *Service
	clock *fakeClock
}

type campaign struct {
	cost       int64
	dailySpins int
	jackpot    float64
	tiers      []domain.RewardTier
	inactive   bool
	expired    bool
	pool       int
}

func newFixture(t *testing.T, rnd Random, tune ...func(*Options)) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	opts := Options{
		Random:       rnd,
		Now:          clock.Now,
		Logger:       logger,
		RetryBackoff: time.Millisecond,
	}
	for _, fn := range tune {
		fn(&opts)
	}
	st := memory.New()
	return &fixture{t: t, ctx: context.Background(), st: st, svc: NewService(st, opts), clock: clock}
}

// campaign creates a giveaway with one spin configuration and returns the configuration ID
func (f *fixture) campaign(c campaign) uint {
	f.t.Helper()
	now := f.clock.Now()
	var id uint
	err := f.st.WithinTx(f.ctx, func(ctx context.Context, tx store.Tx) error {
		g := &domain.Giveaway{
			BrandName:   "Acme",
			Title:       "Spring giveaway",
			CostPerSpin: c.cost,
			IsActive:    true,
			StartDate:   now.Add(-24 * time.Hour),
			ExpiryDate:  now.Add(30 * 24 * time.Hour),
		}
		if c.expired {
			g.ExpiryDate = now.Add(-time.Hour)
		}
		if err := tx.CreateGiveaway(ctx, g); err != nil {
			return err
		}
		cfg := &domain.SpinConfiguration{
			Code:               "SPRING",
			ProductName:        "Headphones",
			GiveawayID:         g.ID,
			DailySpins:         c.dailySpins,
			JackpotProbability: c.jackpot,
			IsActive:           !c.inactive,
			Tiers:              c.tiers,
		}
		if err := tx.CreateConfiguration(ctx, cfg); err != nil {
			return err
		}
		id = cfg.ID
		return nil
	})
	require.NoError(f.t, err)
	if c.pool > 0 {
		_, err := f.svc.PreCreateLotteryTickets(f.ctx, id, c.pool)
		require.NoError(f.t, err)
	}
	return id
}

func (f *fixture) wallet(userID string, balance int64) {
	f.t.Helper()
	_, err := f.svc.CreateWallet(f.ctx, userID)
	require.NoError(f.t, err)
	for balance > 0 {
		amount := min(balance, MaxCreditAmount) // Deposits are capped per call
		_, err = f.svc.Deposit(f.ctx, userID, amount)
		require.NoError(f.t, err)
		balance -= amount
	}
}

func (f *fixture) balance(userID string) int64 {
	f.t.Helper()
	w, err := f.svc.Wallet(f.ctx, userID)
	require.NoError(f.t, err)
	return w.PointsBalance
}

func (f *fixture) read(fn func(ctx context.Context, tx store.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.st.WithinTx(f.ctx, fn))
}

func (f *fixture) tickets(filter store.TicketFilter) []domain.Ticket {
	f.t.Helper()
	var out []domain.Ticket
	f.read(func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Tickets(ctx, filter)
		return err
	})
	return out
}

func (f *fixture) reservation(id string) *domain.SpinReservation {
	f.t.Helper()
	var out *domain.SpinReservation
	f.read(func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Reservation(ctx, id)
		return err
	})
	return out
}

func coinTier(position int, lo, hi int64, weight float64) domain.RewardTier {
	return domain.RewardTier{Position: position, Kind: domain.RewardCoin, MinAmount: lo, MaxAmount: hi, Weight: weight}
}

func (f *fixture) configuration(id uint) *domain.SpinConfiguration {
	f.t.Helper()
	var out *domain.SpinConfiguration
	f.read(func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Configuration(ctx, id)
		return err
	})
	return out
}
