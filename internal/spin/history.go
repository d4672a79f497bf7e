package spin

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo" // Collection helpers

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// Summary aggregates a user's spins of the current UTC day
type Summary struct {
	UserID          string   `json:"user_id"`
	ConfigurationID uint     `json:"configuration_id"`
	TotalCoins      int64    `json:"total_coins"`
	TotalTickets    int      `json:"total_tickets"`
	TicketNumbers   []string `json:"ticket_numbers"`
}

// WinnerEntry is a winning ticket with the prize it stands for
type WinnerEntry struct {
	domain.Ticket
	Prize string `json:"prize"`
}

// HistoryEntry is either one of the user's spins or a winning ticket
type HistoryEntry struct {
	ConfigurationID uint               `json:"configuration_id"`
	Prize           string             `json:"prize"`
	Spin            *domain.UsageEntry `json:"spin,omitempty"`
	Winner          *domain.Ticket     `json:"winner,omitempty"`
}

// Summary totals today's rewards. It is refused while the user is part way
// through today's allowance.
func (s *Service) Summary(ctx context.Context, userID string, configID uint) (*Summary, error) {
	var summary *Summary
	err := s.inTx(ctx, "summary", func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		cfg, err := tx.Configuration(ctx, configID)
		if err != nil {
			return notFound(err, "spin %d not found", configID)
		}
		// Only a count taken today can hold spins back; a user who has not
		// spun today has nothing left to wait for.
		remaining, found, err := tx.Quota(ctx, cfg.ID, userID)
		if err != nil {
			return fmt.Errorf("read quota: %w", err)
		}
		if found && !cfg.QuotaStale(now) && remaining > 0 {
			return apperr.ErrSpinsRemaining
		}

		dayStart := now.UTC().Truncate(24 * time.Hour)
		entries, err := tx.Usage(ctx, store.UsageFilter{
			ConfigurationIDs: []uint{cfg.ID},
			UserID:           userID,
			Since:            dayStart,
			Until:            dayStart.Add(24 * time.Hour),
		})
		if err != nil {
			return err
		}
		coins := lo.Filter(entries, func(e domain.UsageEntry, _ int) bool { return e.RewardKind == domain.RewardCoin })
		tickets := lo.FilterMap(entries, func(e domain.UsageEntry, _ int) (string, bool) {
			return e.TicketCode, e.RewardKind == domain.RewardLotteryTicket
		})
		summary = &Summary{
			UserID:          userID,
			ConfigurationID: cfg.ID,
			TotalCoins:      lo.SumBy(coins, func(e domain.UsageEntry) int64 { return e.RewardAmount }),
			TotalTickets:    len(tickets),
			TicketNumbers:   tickets,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return summary, nil
}

// History lists the user's spins and the winning tickets across every
// configuration of a giveaway.
func (s *Service) History(ctx context.Context, userID string, giveawayID uint) ([]HistoryEntry, error) {
	var history []HistoryEntry
	err := s.inTx(ctx, "history", func(ctx context.Context, tx store.Tx) error {
		cfgs, err := tx.Configurations(ctx, store.ConfigurationFilter{GiveawayID: giveawayID})
		if err != nil {
			return err
		}
		if len(cfgs) == 0 {
			return apperr.Newf(apperr.CodeNotFound, "no spins found for giveaway %d", giveawayID)
		}
		ids := lo.Map(cfgs, func(c domain.SpinConfiguration, _ int) uint { return c.ID })
		prizes := lo.SliceToMap(cfgs, func(c domain.SpinConfiguration) (uint, string) { return c.ID, c.ProductName })

		usage, err := tx.Usage(ctx, store.UsageFilter{ConfigurationIDs: ids, UserID: userID})
		if err != nil {
			return err
		}
		winners, err := tx.Tickets(ctx, store.TicketFilter{ConfigurationIDs: ids, WinnersOnly: true})
		if err != nil {
			return err
		}

		history = make([]HistoryEntry, 0, len(usage)+len(winners))
		for i := range usage {
			e := &usage[i]
			history = append(history, HistoryEntry{ConfigurationID: e.ConfigurationID, Prize: prizes[e.ConfigurationID], Spin: e})
		}
		for i := range winners {
			t := &winners[i]
			history = append(history, HistoryEntry{ConfigurationID: t.ConfigurationID, Prize: prizes[t.ConfigurationID], Winner: t})
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return history, nil
}

// Winners lists the claimed winning tickets of a configuration
func (s *Service) Winners(ctx context.Context, configID uint) ([]WinnerEntry, error) {
	var winners []WinnerEntry
	err := s.inTx(ctx, "winners", func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.Configuration(ctx, configID)
		if err != nil {
			return notFound(err, "spin %d not found", configID)
		}
		tickets, err := tx.Tickets(ctx, store.TicketFilter{ConfigurationIDs: []uint{cfg.ID}, WinnersOnly: true})
		if err != nil {
			return err
		}
		winners = lo.Map(tickets, func(t domain.Ticket, _ int) WinnerEntry {
			return WinnerEntry{Ticket: t, Prize: cfg.ProductName}
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return winners, nil
}

// ActiveTickets lists the user's tickets in active configurations whose giveaway is still open
func (s *Service) ActiveTickets(ctx context.Context, userID string) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := s.inTx(ctx, "active tickets", func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		cfgs, err := tx.Configurations(ctx, store.ConfigurationFilter{ActiveOnly: true})
		if err != nil {
			return err
		}
		open := make(map[uint]bool)
		for _, id := range lo.Uniq(lo.Map(cfgs, func(c domain.SpinConfiguration, _ int) uint { return c.GiveawayID })) {
			g, err := tx.Giveaway(ctx, id)
			if err != nil {
				return notFound(err, "giveaway %d not found", id)
			}
			open[id] = g.OpenAt(now)
		}
		ids := lo.FilterMap(cfgs, func(c domain.SpinConfiguration, _ int) (uint, bool) { return c.ID, open[c.GiveawayID] })
		if len(ids) == 0 {
			tickets = []domain.Ticket{}
			return nil
		}
		tickets, err = tx.Tickets(ctx, store.TicketFilter{ConfigurationIDs: ids, UserID: userID})
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return tickets, nil
}
