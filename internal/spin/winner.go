package spin

import (
	"context"
	"fmt"
	"time"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// DrawResult describes the outcome of a winner draw
type DrawResult struct {
	ConfigurationID uint   `json:"configuration_id"`
	WinnerCode      string `json:"winner_code"`
	Epoch           string `json:"epoch"`
	Cycle           int64  `json:"cycle"`
	Drawn           bool   `json:"drawn"` // False when the epoch was already drawn
	Winners         int64  `json:"winners"`
	Losers          int64  `json:"losers"`
	Superseded      int64  `json:"superseded"`
}

// WinnerSelector draws one winning code per configuration and epoch
type WinnerSelector struct {
	rnd Random
}

// NewWinnerSelector creates a selector over the given random source
func NewWinnerSelector(rnd Random) *WinnerSelector {
	return &WinnerSelector{rnd: rnd}
}

var (
	winnerUpdate     = store.TicketUpdate{Status: domain.TicketWinner}
	betterLuckUpdate = store.TicketUpdate{Status: domain.TicketBetterLuck}
	notClaimedUpdate = store.TicketUpdate{Status: domain.TicketNotClaimed}
)

// Draw picks the epoch's winning code from the whole pre-generated pool and
// settles every pending ticket against it. cfg must be locked by tx.
func (w *WinnerSelector) Draw(ctx context.Context, tx store.Tx, cfg *domain.SpinConfiguration, now time.Time) (DrawResult, error) {
	result := DrawResult{ConfigurationID: cfg.ID, Epoch: domain.DayKey(now)}
	if cfg.DrawnOn(now) {
		result.WinnerCode = cfg.WinnerTicketCode
		result.Cycle = cfg.DrawCycle
		return result, nil
	}

	pool, err := tx.PoolCodes(ctx, cfg.ID, false)
	if err != nil {
		return result, fmt.Errorf("load pool: %w", err)
	}
	if len(pool) == 0 {
		return result, apperr.ErrPoolExhausted
	}
	code := pool[w.rnd.IntN(len(pool))].Code
	configs := []uint{cfg.ID}

	// Winners of the previous cycle that never claimed lose their chance
	result.Superseded, err = tx.UpdateTickets(ctx, store.TicketFilter{
		ConfigurationIDs: configs,
		Statuses:         []domain.TicketStatus{domain.TicketWinner},
	}, notClaimedUpdate)
	if err != nil {
		return result, fmt.Errorf("supersede previous winners: %w", err)
	}
	result.Winners, err = tx.UpdateTickets(ctx, store.TicketFilter{
		ConfigurationIDs: configs,
		Code:             code,
		Statuses:         []domain.TicketStatus{domain.TicketPending},
	}, winnerUpdate)
	if err != nil {
		return result, fmt.Errorf("mark winners: %w", err)
	}
	result.Losers, err = tx.UpdateTickets(ctx, store.TicketFilter{
		ConfigurationIDs: configs,
		ExcludeCode:      code,
		Statuses:         []domain.TicketStatus{domain.TicketPending},
	}, betterLuckUpdate)
	if err != nil {
		return result, fmt.Errorf("mark losers: %w", err)
	}

	drawnAt := now
	cfg.WinnerTicketCode = code
	cfg.DrawEpoch = result.Epoch
	cfg.DrawCycle++
	cfg.LastDrawAt = &drawnAt
	if err := tx.UpdateConfiguration(ctx, cfg); err != nil {
		return result, fmt.Errorf("store winner: %w", err)
	}

	result.WinnerCode = code
	result.Cycle = cfg.DrawCycle
	result.Drawn = true
	return result, nil
}
