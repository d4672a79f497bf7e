package spin

import (
	"context"
	"fmt"
	"slices"
	"time"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MaxGenerationAttemptsFactor caps rejection sampling at this many draws per requested code
	MaxGenerationAttemptsFactor = 20

	// MaxPreCreate bounds a single pre-generation request
	MaxPreCreate = 10_000

	// DefaultTicketThreshold is the distinct-holder count past which every issue grows the pool by one
	DefaultTicketThreshold = 100
)

// TicketPool hands out pre-generated ticket codes. Callers hold the configuration lock,
// which makes issuance and replenishment mutually exclusive per configuration.
type TicketPool struct {
	rnd       Random
	threshold int
}

// NewTicketPool creates a pool over the given random source
func NewTicketPool(rnd Random, threshold int) *TicketPool {
	if threshold <= 0 {
		threshold = DefaultTicketThreshold
	}
	return &TicketPool{rnd: rnd, threshold: threshold}
}

// GenerateCodes returns n codes absent from existing and from each other
func (p *TicketPool) GenerateCodes(existing []string, n int) ([]string, error) {
	seen := make(map[string]struct{}, len(existing)+n)
	for _, code := range existing {
		seen[code] = struct{}{}
	}
	codes := make([]string, 0, n)
	maxAttempts := n*MaxGenerationAttemptsFactor + MaxGenerationAttemptsFactor
	for attempts := 0; len(codes) < n; attempts++ {
		if attempts >= maxAttempts {
			return nil, apperr.Newf(apperr.CodeInternal, "gave up generating ticket codes after %d attempts", attempts)
		}
		code := p.randomCode()
		if _, dup := seen[code]; dup {
			continue // Reject and draw again
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func (p *TicketPool) randomCode() string {
	b := make([]byte, domain.TicketCodeLength)
	for i := range b {
		b[i] = codeAlphabet[p.rnd.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// Replenish adds count fresh codes to the configuration's pool
func (p *TicketPool) Replenish(ctx context.Context, tx store.Tx, cfg *domain.SpinConfiguration, count int) ([]string, error) {
	pool, err := tx.PoolCodes(ctx, cfg.ID, false)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}
	existing := make([]string, len(pool))
	for i, pc := range pool {
		existing[i] = pc.Code
	}
	codes, err := p.GenerateCodes(existing, count)
	if err != nil {
		return nil, err
	}
	if err := tx.AddPoolCodes(ctx, cfg.ID, codes); err != nil {
		return nil, fmt.Errorf("add pool codes: %w", err)
	}
	return codes, nil
}

// Issue pops a random available code and records it as the user's ticket
func (p *TicketPool) Issue(ctx context.Context, tx store.Tx, cfg *domain.SpinConfiguration, userID string, now time.Time) (*domain.Ticket, error) {
	holders, err := tx.TicketHolders(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("count ticket holders: %w", err)
	}
	distinct := len(holders)
	if !slices.Contains(holders, userID) {
		distinct++
	}
	if distinct > p.threshold {
		if _, err := p.Replenish(ctx, tx, cfg, 1); err != nil {
			return nil, err
		}
	}

	available, err := tx.PoolCodes(ctx, cfg.ID, true)
	if err != nil {
		return nil, fmt.Errorf("load available codes: %w", err)
	}
	if len(available) == 0 {
		return nil, apperr.ErrPoolExhausted
	}
	code := available[p.rnd.IntN(len(available))].Code
	ok, err := tx.MarkIssued(ctx, cfg.ID, code)
	if err != nil {
		return nil, fmt.Errorf("mark code issued: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("code %s already issued: %w", code, store.ErrTransient)
	}

	status := domain.TicketPending
	if cfg.WinnerTicketCode != "" && code == cfg.WinnerTicketCode {
		status = domain.TicketWinner // Drawn before it was handed out
	}
	ticket := &domain.Ticket{
		ConfigurationID: cfg.ID,
		Code:            code,
		UserID:          userID,
		Status:          status,
		CreatedAt:       now,
	}
	if err := tx.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return ticket, nil
}
