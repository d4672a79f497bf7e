package spin

import (
	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
)

// Fallback coin range used when no tier can be selected
const (
	fallbackMinCoins = 1
	fallbackMaxCoins = 10
)

// ValidateConfiguration rejects reward tables whose draws could not be paid out
func ValidateConfiguration(cfg *domain.SpinConfiguration) error {
	if cfg.JackpotProbability < 0 || cfg.JackpotProbability > 1 {
		return apperr.Newf(apperr.CodeInactiveConfiguration, "spin %d: jackpot probability %g outside [0, 1]", cfg.ID, cfg.JackpotProbability)
	}
	for _, tier := range cfg.Tiers {
		if tier.Weight < 0 {
			return apperr.Newf(apperr.CodeInactiveConfiguration, "spin %d: tier %d has negative weight", cfg.ID, tier.Position)
		}
		if tier.Kind == domain.RewardLotteryTicket {
			continue
		}
		if tier.MinAmount < 0 || tier.MaxAmount < tier.MinAmount || tier.MaxAmount > MaxCreditAmount {
			return apperr.Newf(apperr.CodeInactiveConfiguration, "spin %d: tier %d amount range [%d, %d] outside [0, %d]",
				cfg.ID, tier.Position, tier.MinAmount, tier.MaxAmount, MaxCreditAmount)
		}
	}
	return nil
}

// RewardSelector draws the reward of a spin
type RewardSelector struct {
	rnd Random
}

// NewRewardSelector creates a selector over the given random source
func NewRewardSelector(rnd Random) *RewardSelector {
	return &RewardSelector{rnd: rnd}
}

// Draw picks a reward. A ticket outcome carries no code yet; the caller issues it.
func (s *RewardSelector) Draw(cfg *domain.SpinConfiguration) domain.Reward {
	if s.rnd.Float64() < cfg.JackpotProbability {
		return domain.Reward{Kind: domain.RewardLotteryTicket}
	}

	var total float64
	for _, tier := range cfg.Tiers {
		if tier.Weight > 0 {
			total += tier.Weight
		}
	}
	if total <= 0 {
		return s.fallback()
	}

	pick := s.rnd.Float64() * total
	var cumulative float64
	for _, tier := range cfg.Tiers {
		if tier.Weight <= 0 {
			continue
		}
		cumulative += tier.Weight
		if pick < cumulative {
			return s.fromTier(tier)
		}
	}
	return s.fallback() // Rounding left pick past the last boundary
}

func (s *RewardSelector) fromTier(tier domain.RewardTier) domain.Reward {
	if tier.Kind == domain.RewardLotteryTicket {
		return domain.Reward{Kind: domain.RewardLotteryTicket}
	}
	return domain.Reward{Kind: tier.Kind, Amount: s.amount(tier.MinAmount, tier.MaxAmount)}
}

func (s *RewardSelector) fallback() domain.Reward {
	return domain.Reward{Kind: domain.RewardCoin, Amount: s.amount(fallbackMinCoins, fallbackMaxCoins)}
}

// amount draws uniformly from [lo, hi]
func (s *RewardSelector) amount(lo, hi int64) int64 {
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		return lo
	}
	return lo + s.rnd.Int64N(hi-lo+1)
}
