package spin

import (
	"context"
	"fmt"
	"time"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// QuotaTracker enforces the per-user daily spin allowance of a configuration.
// Every method must run inside the transaction that holds the configuration lock.
type QuotaTracker struct{}

// CheckAndConsume takes one spin from the user's allowance and returns what is left.
// A configuration whose last reset predates today is reset first, once, on this access.
func (QuotaTracker) CheckAndConsume(ctx context.Context, tx store.Tx, cfg *domain.SpinConfiguration, userID string, now time.Time) (int, error) {
	if cfg.QuotaStale(now) {
		if err := tx.ResetQuotas(ctx, cfg.ID); err != nil {
			return 0, fmt.Errorf("reset quotas: %w", err)
		}
		cfg.LastDailySpinsUpdate = now
		if err := tx.UpdateConfiguration(ctx, cfg); err != nil {
			return 0, fmt.Errorf("stamp quota reset: %w", err)
		}
	}

	remaining, found, err := tx.Quota(ctx, cfg.ID, userID)
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	if !found {
		remaining = cfg.Allowance()
	}
	if remaining <= 0 {
		return 0, apperr.ErrQuotaExceeded
	}
	remaining--
	if err := tx.SetQuota(ctx, cfg.ID, userID, remaining); err != nil {
		return 0, fmt.Errorf("write quota: %w", err)
	}
	return remaining, nil
}

// Remaining returns the user's effective allowance without mutating anything
func (QuotaTracker) Remaining(ctx context.Context, tx store.Tx, cfg *domain.SpinConfiguration, userID string, now time.Time) (int, error) {
	if cfg.QuotaStale(now) {
		return cfg.Allowance(), nil // Would be reset on the next spin
	}
	remaining, found, err := tx.Quota(ctx, cfg.ID, userID)
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	if !found {
		return cfg.Allowance(), nil
	}
	return remaining, nil
}

// Refund hands back one unit taken on quotaDay. Units from an earlier day
// were already wiped by the reset and are not restored.
func (QuotaTracker) Refund(ctx context.Context, tx store.Tx, cfg *domain.SpinConfiguration, userID, quotaDay string) error {
	if domain.DayKey(cfg.LastDailySpinsUpdate) != quotaDay {
		return nil
	}
	remaining, found, err := tx.Quota(ctx, cfg.ID, userID)
	if err != nil {
		return fmt.Errorf("read quota: %w", err)
	}
	if !found {
		return nil
	}
	return tx.SetQuota(ctx, cfg.ID, userID, min(remaining+1, cfg.Allowance()))
}
