package spin

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

func TestSpinBalanceMovesByCostAndReward(t *testing.T) {
	f := newFixture(t, NewSeededRandom(11))
	id := f.campaign(campaign{cost: 10, dailySpins: 5, tiers: []domain.RewardTier{
		coinTier(1, 5, 20, 2),
		{Position: 2, Kind: domain.RewardDiscount, MinAmount: 1, MaxAmount: 3, Weight: 1},
	}})
	f.wallet("u1", 100)

	for i := range 5 {
		before := f.balance("u1")
		res, err := f.svc.Spin(f.ctx, id, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(10), res.Cost)
		assert.Equal(t, 4-i, res.RemainingSpins)
		assert.NotEmpty(t, res.SpinID)
		assert.Equal(t, before-res.Cost+res.Reward.Amount, f.balance("u1"))
		assert.Equal(t, domain.ReservationCommitted, f.reservation(res.SpinID).Status)
	}

	page, err := f.svc.Transactions(f.ctx, "u1", 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Total) // Deposit plus a cost and a reward per spin
	assert.Equal(t, domain.TxSpinReward, page.Transactions[0].Type)
}

func TestSpinQuotaExceededRegardlessOfBalance(t *testing.T) {
	f := newFixture(t, NewSeededRandom(2))
	id := f.campaign(campaign{cost: 10, dailySpins: 1})
	f.wallet("u1", 10)

	_, err := f.svc.Spin(f.ctx, id, "u1")
	require.NoError(t, err)

	_, err = f.svc.Spin(f.ctx, id, "u1")
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.Deposit(f.ctx, "u1", 10)
	require.NoError(t, err)
	_, err = f.svc.Spin(f.ctx, id, "u1")
	assert.NoError(t, err, "quota resets on the next UTC day")
}

func TestSpinInsufficientFundsKeepsQuota(t *testing.T) {
	f := newFixture(t, NewSeededRandom(2))
	id := f.campaign(campaign{cost: 10, dailySpins: 3})
	f.wallet("u1", 5)

	_, err := f.svc.Spin(f.ctx, id, "u1")
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)
	assert.Equal(t, int64(5), f.balance("u1"))

	quota, err := f.svc.GetQuota(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, quota.Remaining)
}

func TestSpinRejections(t *testing.T) {
	tests := []struct {
		name     string
		campaign campaign
		user     string
		wallet   bool
		config   uint
		want     error
	}{
		{name: "inactive configuration", campaign: campaign{cost: 1, inactive: true}, user: "u1", wallet: true, want: apperr.ErrInactiveConfiguration},
		{name: "expired giveaway", campaign: campaign{cost: 1, expired: true}, user: "u1", wallet: true, want: apperr.ErrInactiveConfiguration},
		{name: "missing wallet", campaign: campaign{cost: 1}, user: "u1", want: apperr.ErrNotFound},
		{name: "unknown configuration", campaign: campaign{cost: 1}, user: "u1", wallet: true, config: 999, want: apperr.ErrNotFound},
		{name: "empty user", campaign: campaign{cost: 1}, want: apperr.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, NewSeededRandom(1))
			id := f.campaign(tt.campaign)
			if tt.config != 0 {
				id = tt.config
			}
			if tt.wallet {
				f.wallet(tt.user, 100)
			}
			_, err := f.svc.Spin(f.ctx, id, tt.user)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConcurrentSpinsRespectQuota(t *testing.T) {
	f := newFixture(t, NewSeededRandom(8))
	id := f.campaign(campaign{cost: 10, dailySpins: 3, tiers: []domain.RewardTier{coinTier(1, 1, 5, 1)}})
	f.wallet("u1", 1_000)

	const spins = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int64
		ok      int
		limited int
	)
	for range spins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Spin(f.ctx, id, "u1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
				won += res.Reward.Amount
			case apperr.From(err).Code == apperr.CodeQuotaExceeded:
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, spins-3, limited)
	assert.Equal(t, int64(1_000)-3*10+won, f.balance("u1"))
}

func TestSpinPoolExhaustedCompensates(t *testing.T) {
	f := newFixture(t, constRandom{f: 0})
	id := f.campaign(campaign{cost: 10, dailySpins: 2, jackpot: 1})
	f.wallet("u1", 50)

	_, err := f.svc.Spin(f.ctx, id, "u1")
	assert.ErrorIs(t, err, apperr.ErrPoolExhausted)
	assert.Equal(t, int64(50), f.balance("u1"))

	quota, err := f.svc.GetQuota(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, quota.Remaining)

	page, err := f.svc.Transactions(f.ctx, "u1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 3)
	assert.Equal(t, domain.TxSpinRefund, page.Transactions[0].Type)
	assert.Equal(t, domain.TxSpinCost, page.Transactions[1].Type)
	refund := page.Transactions[0].Reference

	r := f.reservation(refund)
	assert.Equal(t, domain.ReservationCompensated, r.Status)
	assert.NotEmpty(t, r.Reason)
	assert.Empty(t, f.tickets(store.TicketFilter{}))
}

func TestSpinCompensationRefundsCostAboveCreditCap(t *testing.T) {
	const cost = 2 * MaxCreditAmount
	f := newFixture(t, constRandom{f: 0})
	id := f.campaign(campaign{cost: cost, jackpot: 1})
	f.wallet("u1", cost)

	_, err := f.svc.Spin(f.ctx, id, "u1")
	assert.ErrorIs(t, err, apperr.ErrPoolExhausted)
	assert.Equal(t, int64(cost), f.balance("u1"))

	page, err := f.svc.Transactions(f.ctx, "u1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, domain.TxSpinRefund, page.Transactions[0].Type)
	assert.Equal(t, int64(cost), page.Transactions[0].Amount)
}

func TestReconcileRefundsCostAboveCreditCap(t *testing.T) {
	const cost = 2 * MaxCreditAmount
	f := newFixture(t, constRandom{f: 0}, func(o *Options) { o.RetryAttempts = 1 })
	id := f.campaign(campaign{cost: cost, jackpot: 1})
	f.wallet("u1", cost)

	r, _, err := f.svc.reserve(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Zero(t, f.balance("u1"))

	f.clock.Advance(2 * time.Minute)
	report, err := f.svc.Reconcile(f.ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Scanned: 1, Compensated: 1}, report)
	assert.Equal(t, domain.ReservationCompensated, f.reservation(r.ID).Status)
	assert.Equal(t, int64(cost), f.balance("u1"))
}

func TestSpinRejectsUnpayableRewardTable(t *testing.T) {
	f := newFixture(t, constRandom{f: 0.5})
	id := f.campaign(campaign{cost: 10, tiers: []domain.RewardTier{coinTier(1, 1, MaxCreditAmount+1, 1)}})
	f.wallet("u1", 50)

	_, err := f.svc.Spin(f.ctx, id, "u1")
	assert.ErrorIs(t, err, apperr.ErrInactiveConfiguration)
	assert.Equal(t, int64(50), f.balance("u1"))

	quota, err := f.svc.GetQuota(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDailySpins, quota.Remaining)
}

func TestTicketRewardIssuesCode(t *testing.T) {
	f := newFixture(t, NewSeededRandom(4))
	id := f.campaign(campaign{cost: 1, jackpot: 1, pool: 50})
	f.wallet("u1", 10)

	res, err := f.svc.Spin(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RewardLotteryTicket, res.Reward.Kind)
	assert.Zero(t, res.Reward.Amount)
	assert.Regexp(t, codePattern, res.Reward.TicketCode)
	assert.Equal(t, int64(9), f.balance("u1"))

	tickets := f.tickets(store.TicketFilter{UserID: "u1"})
	require.Len(t, tickets, 1)
	assert.Equal(t, res.Reward.TicketCode, tickets[0].Code)
	assert.Equal(t, domain.TicketPending, tickets[0].Status)
}

func TestDrawThenIssueWinningCode(t *testing.T) {
	f := newFixture(t, NewSeededRandom(4))
	id := f.campaign(campaign{cost: 1, jackpot: 1, pool: 1})
	f.wallet("u1", 10)
	f.wallet("u2", 10)

	draw, err := f.svc.DrawWinner(f.ctx, id)
	require.NoError(t, err)
	assert.True(t, draw.Drawn)
	assert.Equal(t, int64(1), draw.Cycle)

	res, err := f.svc.Spin(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, draw.WinnerCode, res.Reward.TicketCode)
	tickets := f.tickets(store.TicketFilter{Code: draw.WinnerCode})
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketWinner, tickets[0].Status)

	_, err = f.svc.Claim(f.ctx, "u2", id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	claimed, err := f.svc.Claim(f.ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketClaimed, claimed.Status)
	assert.True(t, claimed.IsWinner)

	_, err = f.svc.Claim(f.ctx, "u1", id)
	assert.ErrorIs(t, err, apperr.ErrAlreadyClaimed)

	winners, err := f.svc.Winners(f.ctx, id)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, "Headphones", winners[0].Prize)
}

func TestDrawSettlesPendingTickets(t *testing.T) {
	f := newFixture(t, NewSeededRandom(6))
	id := f.campaign(campaign{cost: 1, jackpot: 1, pool: 2})
	for _, user := range []string{"u1", "u2"} {
		f.wallet(user, 10)
		_, err := f.svc.Spin(f.ctx, id, user)
		require.NoError(t, err)
	}

	draw, err := f.svc.DrawWinner(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), draw.Winners)
	assert.Equal(t, int64(1), draw.Losers)

	winners := f.tickets(store.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketWinner}})
	require.Len(t, winners, 1)
	assert.Equal(t, draw.WinnerCode, winners[0].Code)
	losers := f.tickets(store.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketBetterLuck}})
	require.Len(t, losers, 1)

	again, err := f.svc.DrawWinner(f.ctx, id)
	require.NoError(t, err)
	assert.False(t, again.Drawn)
	assert.Equal(t, draw.WinnerCode, again.WinnerCode)
	assert.Equal(t, draw.Cycle, again.Cycle)

	// The next day's draw closes the unclaimed winner of the previous cycle
	f.clock.Advance(24 * time.Hour)
	next, err := f.svc.DrawWinner(f.ctx, id)
	require.NoError(t, err)
	assert.True(t, next.Drawn)
	assert.Equal(t, int64(2), next.Cycle)
	assert.Equal(t, int64(1), next.Superseded)
	closed := f.tickets(store.TicketFilter{Code: draw.WinnerCode})
	require.Len(t, closed, 1)
	assert.Equal(t, domain.TicketNotClaimed, closed[0].Status)
}

func TestDrawEmptyPool(t *testing.T) {
	f := newFixture(t, NewSeededRandom(6))
	id := f.campaign(campaign{cost: 1})
	_, err := f.svc.DrawWinner(f.ctx, id)
	assert.ErrorIs(t, err, apperr.ErrPoolExhausted)
}

func TestDrawAllContinuesPastFailures(t *testing.T) {
	f := newFixture(t, NewSeededRandom(6))
	empty := f.campaign(campaign{cost: 1})
	stocked := f.campaign(campaign{cost: 1, pool: 5})
	f.campaign(campaign{cost: 1, pool: 5, inactive: true})

	results, err := f.svc.DrawAll(f.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPoolExhausted)
	assert.Contains(t, err.Error(), fmt.Sprintf("spin %d", empty))
	require.Len(t, results, 1)
	assert.Equal(t, stocked, results[0].ConfigurationID)
}

func TestConcurrentClaimsSucceedOnce(t *testing.T) {
	f := newFixture(t, NewSeededRandom(4))
	id := f.campaign(campaign{cost: 1, jackpot: 1, pool: 1})
	f.wallet("u1", 10)
	_, err := f.svc.Spin(f.ctx, id, "u1")
	require.NoError(t, err)
	_, err = f.svc.DrawWinner(f.ctx, id)
	require.NoError(t, err)

	const claims = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		already int
	)
	for range claims {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Claim(f.ctx, "u1", id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperr.From(err).Code == apperr.CodeAlreadyClaimed {
				already++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, claims-1, already)
}

func TestClaimWithoutDraw(t *testing.T) {
	f := newFixture(t, NewSeededRandom(4))
	id := f.campaign(campaign{cost: 1, pool: 3})
	_, err := f.svc.Claim(f.ctx, "u1", id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSpinRetriesTransientFailures(t *testing.T) {
	f := newFixture(t, NewSeededRandom(3), func(o *Options) { o.RetryAttempts = 3 })
	id := f.campaign(campaign{cost: 10, dailySpins: 2})
	f.wallet("u1", 30)

	f.st.FailNextCommits(2)
	res, err := f.svc.Spin(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30-10+res.Reward.Amount, f.balance("u1"))

	quota, err := f.svc.GetQuota(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, quota.Remaining)
}

func TestSpinGivesUpAfterRetries(t *testing.T) {
	f := newFixture(t, NewSeededRandom(3), func(o *Options) { o.RetryAttempts = 2 })
	id := f.campaign(campaign{cost: 10})
	f.wallet("u1", 30)

	f.st.FailNextCommits(2)
	_, err := f.svc.Spin(f.ctx, id, "u1")
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.ErrorIs(t, err, store.ErrTransient)
	assert.Equal(t, int64(30), f.balance("u1"))
}

func TestSettleIsIdempotent(t *testing.T) {
	f := newFixture(t, NewSeededRandom(3))
	id := f.campaign(campaign{cost: 10, tiers: []domain.RewardTier{coinTier(1, 5, 50, 1)}})
	f.wallet("u1", 30)

	r, _, err := f.svc.reserve(f.ctx, id, "u1")
	require.NoError(t, err)
	first, err := f.svc.settle(f.ctx, r.ID)
	require.NoError(t, err)
	balance := f.balance("u1")

	second, err := f.svc.settle(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, balance, f.balance("u1"))
}

func TestReconcileCompensatesStalePendingSpins(t *testing.T) {
	f := newFixture(t, NewSeededRandom(3), func(o *Options) { o.RetryAttempts = 1 })
	id := f.campaign(campaign{cost: 10, dailySpins: 2})
	f.wallet("u1", 30)

	r, remaining, err := f.svc.reserve(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	f.st.FailNextCommits(1)
	_, err = f.svc.settle(f.ctx, r.ID)
	require.ErrorIs(t, err, store.ErrTransient)
	assert.Equal(t, domain.ReservationPending, f.reservation(r.ID).Status)
	assert.Equal(t, int64(20), f.balance("u1"))

	report, err := f.svc.Reconcile(f.ctx, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, report.Scanned, "fresh reservations are left alone")

	f.clock.Advance(2 * time.Minute)
	report, err = f.svc.Reconcile(f.ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Scanned: 1, Compensated: 1}, report)
	assert.Equal(t, domain.ReservationCompensated, f.reservation(r.ID).Status)
	assert.Equal(t, int64(30), f.balance("u1"))

	quota, err := f.svc.GetQuota(f.ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, quota.Remaining)

	_, err = f.svc.settle(f.ctx, r.ID)
	assert.ErrorIs(t, err, apperr.ErrInternal, "a compensated spin never pays out")
}

func TestPreCreateLotteryTicketsBounds(t *testing.T) {
	f := newFixture(t, NewSeededRandom(3))
	id := f.campaign(campaign{cost: 1})

	for _, n := range []int{0, -1, MaxPreCreate + 1} {
		_, err := f.svc.PreCreateLotteryTickets(f.ctx, id, n)
		assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
	}
	codes, err := f.svc.PreCreateLotteryTickets(f.ctx, id, 25)
	require.NoError(t, err)
	assert.Len(t, codes, 25)

	_, err = f.svc.PreCreateLotteryTickets(f.ctx, 404, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetQuotaUnknownUser(t *testing.T) {
	f := newFixture(t, NewSeededRandom(3))
	id := f.campaign(campaign{cost: 1, dailySpins: 4})

	quota, err := f.svc.GetQuota(f.ctx, id, "stranger")
	require.NoError(t, err)
	assert.Equal(t, &QuotaInfo{ConfigurationID: id, UserID: "stranger", Remaining: 4, DailySpins: 4}, quota)

	_, err = f.svc.GetQuota(f.ctx, 404, "stranger")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, NewSeededRandom(4), func(o *Options) { o.Publisher = pub })
	id := f.campaign(campaign{cost: 1, jackpot: 1, pool: 1})
	f.wallet("u1", 10)
	f.wallet("u2", 10)

	_, err := f.svc.Spin(f.ctx, id, "u1")
	require.NoError(t, err)
	_, err = f.svc.Spin(f.ctx, id, "u2") // Pool is empty now
	require.Error(t, err)
	_, err = f.svc.DrawWinner(f.ctx, id)
	require.NoError(t, err)
	_, err = f.svc.DrawWinner(f.ctx, id)
	require.NoError(t, err)
	_, err = f.svc.Claim(f.ctx, "u1", id)
	require.NoError(t, err)

	assert.Equal(t, []string{"spin.completed", "spin.compensated", "winner.drawn", "ticket.claimed"}, pub.topics())
}

type recordingPublisher struct {
	mu   sync.Mutex
	seen []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab", truncate("abc", 2))

	got := truncate("aé", 2) // é is two bytes
	assert.Equal(t, "a", got)
	assert.True(t, utf8.ValidString(got))

	long := truncate(strings.Repeat("ü", 200), 255)
	assert.True(t, utf8.ValidString(long))
	assert.Len(t, long, 254)
}

func TestTransactionsPageBounds(t *testing.T) {
	f := newFixture(t, NewSeededRandom(1))
	f.wallet("u1", 5)

	page, err := f.svc.Transactions(f.ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Transactions, 1)

	page, err = f.svc.Transactions(f.ctx, "u1", MaxTransactionPage, 100)
	require.NoError(t, err)
	assert.Empty(t, page.Transactions)

	_, err = f.svc.Transactions(f.ctx, "u1", math.MaxInt, 100)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}
