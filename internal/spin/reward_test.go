package spin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
)

func TestRewardSelectorDraw(t *testing.T) {
	tests := []struct {
		name   string
		tiers  []domain.RewardTier
		floats []float64
		want   domain.RewardKind
		lo, hi int64
	}{
		{
			name:   "jackpot hit grants a ticket",
			tiers:  []domain.RewardTier{coinTier(1, 5, 5, 1)},
			floats: []float64{0.0001},
			want:   domain.RewardLotteryTicket,
		},
		{
			name:   "walk lands in the second tier",
			tiers:  []domain.RewardTier{coinTier(1, 1, 1, 1), {Position: 2, Kind: domain.RewardDiscount, MinAmount: 20, MaxAmount: 30, Weight: 3}},
			floats: []float64{0.5, 0.3}, // 0.3 * 4 = 1.2 falls past the first boundary
			want:   domain.RewardDiscount,
			lo:     20,
			hi:     30,
		},
		{
			name:   "walk lands in the first tier",
			tiers:  []domain.RewardTier{coinTier(1, 7, 7, 1), coinTier(2, 100, 100, 3)},
			floats: []float64{0.5, 0.1},
			want:   domain.RewardCoin,
			lo:     7,
			hi:     7,
		},
		{
			name:   "ticket tier is a jackpot",
			tiers:  []domain.RewardTier{{Position: 1, Kind: domain.RewardLotteryTicket, Weight: 1}},
			floats: []float64{0.5, 0.5},
			want:   domain.RewardLotteryTicket,
		},
		{
			name:   "no tiers falls back to coins",
			floats: []float64{0.5},
			want:   domain.RewardCoin,
			lo:     fallbackMinCoins,
			hi:     fallbackMaxCoins,
		},
		{
			name:   "zero weights fall back to coins",
			tiers:  []domain.RewardTier{coinTier(1, 500, 500, 0), coinTier(2, 500, 500, -2)},
			floats: []float64{0.5},
			want:   domain.RewardCoin,
			lo:     fallbackMinCoins,
			hi:     fallbackMaxCoins,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &domain.SpinConfiguration{JackpotProbability: 0.001, Tiers: tt.tiers}
			got := NewRewardSelector(newScripted(tt.floats, nil)).Draw(cfg)

			assert.Equal(t, tt.want, got.Kind)
			assert.Empty(t, got.TicketCode)
			if tt.want == domain.RewardLotteryTicket {
				assert.Zero(t, got.Amount)
				return
			}
			assert.GreaterOrEqual(t, got.Amount, tt.lo)
			assert.LessOrEqual(t, got.Amount, tt.hi)
		})
	}
}

func TestRewardSelectorWeights(t *testing.T) {
	cfg := &domain.SpinConfiguration{Tiers: []domain.RewardTier{
		coinTier(1, 1, 1, 1),
		coinTier(2, 2, 2, 3),
	}}
	selector := NewRewardSelector(NewSeededRandom(42))

	const draws = 20_000
	var first int
	for range draws {
		if selector.Draw(cfg).Amount == 1 {
			first++
		}
	}
	assert.InDelta(t, 0.25, float64(first)/draws, 0.02)
}

func TestRewardSelectorJackpotNeverFiresAtZero(t *testing.T) {
	cfg := &domain.SpinConfiguration{Tiers: []domain.RewardTier{coinTier(1, 1, 10, 1)}}
	selector := NewRewardSelector(NewSeededRandom(1))
	for range 1_000 {
		assert.False(t, selector.Draw(cfg).IsTicket())
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		jackpot float64
		tiers   []domain.RewardTier
		valid   bool
	}{
		{name: "empty table", valid: true},
		{name: "amount at the credit cap", tiers: []domain.RewardTier{coinTier(1, 0, MaxCreditAmount, 1)}, valid: true},
		{name: "ticket tier ignores amounts", tiers: []domain.RewardTier{{Position: 1, Kind: domain.RewardLotteryTicket, MaxAmount: -1, Weight: 1}}, valid: true},
		{name: "amount above the credit cap", tiers: []domain.RewardTier{coinTier(1, 1, MaxCreditAmount+1, 1)}},
		{name: "inverted range", tiers: []domain.RewardTier{coinTier(1, 5, 4, 1)}},
		{name: "negative amount", tiers: []domain.RewardTier{coinTier(1, -1, 4, 1)}},
		{name: "negative weight", tiers: []domain.RewardTier{coinTier(1, 1, 4, -1)}},
		{name: "jackpot above one", jackpot: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfiguration(&domain.SpinConfiguration{JackpotProbability: tt.jackpot, Tiers: tt.tiers})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrInactiveConfiguration)
		})
	}
}
