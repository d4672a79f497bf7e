package spin

import (
	"context"
	"fmt"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// ClaimWorkflow turns a winning ticket into a claimed one
type ClaimWorkflow struct{}

var claimedUpdate = store.TicketUpdate{Status: domain.TicketClaimed, IsWinner: ptr(true)}

// Claim transitions the user's WINNER ticket for the stored winning code to CLAIMED,
// and every other holder of that code to NOT_CLAIMED. cfg must be locked by tx.
func (ClaimWorkflow) Claim(ctx context.Context, tx store.Tx, cfg *domain.SpinConfiguration, userID string) (*domain.Ticket, error) {
	code := cfg.WinnerTicketCode
	if code == "" {
		return nil, apperr.Newf(apperr.CodeNotFound, "no winner drawn for spin %d", cfg.ID)
	}
	configs := []uint{cfg.ID}

	n, err := tx.UpdateTickets(ctx, store.TicketFilter{
		ConfigurationIDs: configs,
		Code:             code,
		UserID:           userID,
		Statuses:         []domain.TicketStatus{domain.TicketWinner},
	}, claimedUpdate)
	if err != nil {
		return nil, fmt.Errorf("claim ticket: %w", err)
	}
	if n == 0 {
		claimed, err := tx.Tickets(ctx, store.TicketFilter{
			ConfigurationIDs: configs,
			Code:             code,
			UserID:           userID,
			Statuses:         []domain.TicketStatus{domain.TicketClaimed},
		})
		if err != nil {
			return nil, fmt.Errorf("check claimed ticket: %w", err)
		}
		if len(claimed) > 0 {
			return nil, apperr.ErrAlreadyClaimed
		}
		return nil, apperr.Newf(apperr.CodeNotFound, "no winning ticket %s for user %s in spin %d", code, userID, cfg.ID)
	}

	if _, err := tx.UpdateTickets(ctx, store.TicketFilter{
		ConfigurationIDs: configs,
		Code:             code,
		ExcludeUserID:    userID,
		Statuses:         []domain.TicketStatus{domain.TicketWinner},
	}, notClaimedUpdate); err != nil {
		return nil, fmt.Errorf("close other winners: %w", err)
	}

	tickets, err := tx.Tickets(ctx, store.TicketFilter{ConfigurationIDs: configs, Code: code, UserID: userID, Statuses: []domain.TicketStatus{domain.TicketClaimed}})
	if err != nil {
		return nil, fmt.Errorf("reload claimed ticket: %w", err)
	}
	if len(tickets) == 0 {
		return nil, apperr.Newf(apperr.CodeInternal, "claimed ticket %s vanished", code)
	}
	return &tickets[0], nil
}

func ptr[T any](v T) *T { return &v }
