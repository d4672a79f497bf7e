package db

import (
	"context" // Transaction context
	"time"    // Campaign window

	"lucky_spin/internal/domain" // Importing domain models
	"lucky_spin/internal/spin"   // Reward table checks
	"lucky_spin/internal/store"  // Store contract
)

// SeedDemo creates one open giveaway with a spin configuration and its reward table.
// Campaign setup lives outside this service; the demo data makes a fresh
// in-memory server usable.
func SeedDemo(ctx context.Context, st store.Store, now time.Time) (uint, error) {
	var configID uint
	err := st.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		g := &domain.Giveaway{
			BrandName:       "Demo",
			Title:           "Demo giveaway",
			NumberOfWinners: 1,
			CostPerSpin:     10,
			IsActive:        true,
			StartDate:       now,
			ExpiryDate:      now.AddDate(0, 1, 0),
		}
		if err := tx.CreateGiveaway(ctx, g); err != nil {
			return err
		}
		cfg := &domain.SpinConfiguration{
			Code:               "DEMO",
			ProductName:        "Demo prize",
			GiveawayID:         g.ID,
			DailySpins:         domain.DefaultDailySpins,
			JackpotProbability: domain.DefaultJackpotProbability,
			IsActive:           true,
			Tiers: []domain.RewardTier{
				{Position: 1, Kind: domain.RewardCoin, MinAmount: 1, MaxAmount: 20, Weight: 70},
				{Position: 2, Kind: domain.RewardDiscount, MinAmount: 5, MaxAmount: 15, Weight: 25},
				{Position: 3, Kind: domain.RewardLotteryTicket, Weight: 5},
			},
		}
		if err := spin.ValidateConfiguration(cfg); err != nil {
			return err
		}
		if err := tx.CreateConfiguration(ctx, cfg); err != nil {
			return err
		}
		configID = cfg.ID
		return nil
	})
	return configID, err
}
