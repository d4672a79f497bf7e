package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// Tx is the in-memory store.Tx
type Tx struct {
	st *state
}

var _ store.Tx = (*Tx)(nil)

// Giveaway loads a giveaway by ID
func (t *Tx) Giveaway(_ context.Context, id uint) (*domain.Giveaway, error) {
	g, ok := t.st.giveaways[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &g, nil
}

// CreateGiveaway inserts a giveaway, assigning an ID when unset
func (t *Tx) CreateGiveaway(_ context.Context, g *domain.Giveaway) error {
	if g.ID == 0 {
		g.ID = t.st.id()
	}
	t.st.giveaways[g.ID] = *g
	return nil
}

// CreateConfiguration inserts a configuration together with its tiers
func (t *Tx) CreateConfiguration(_ context.Context, cfg *domain.SpinConfiguration) error {
	if cfg.ID == 0 {
		cfg.ID = t.st.id()
	}
	now := time.Now()
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	for i := range cfg.Tiers {
		cfg.Tiers[i].ConfigurationID = cfg.ID
		if cfg.Tiers[i].ID == 0 {
			cfg.Tiers[i].ID = t.st.id()
		}
	}
	stored := *cfg
	stored.Tiers = slices.Clone(cfg.Tiers)
	t.st.configs[cfg.ID] = stored
	return nil
}

// LockConfiguration loads a configuration; the store mutex already serialises writers
func (t *Tx) LockConfiguration(ctx context.Context, id uint) (*domain.SpinConfiguration, error) {
	return t.Configuration(ctx, id)
}

// Configuration loads a configuration with its tiers in configured order
func (t *Tx) Configuration(_ context.Context, id uint) (*domain.SpinConfiguration, error) {
	cfg, ok := t.st.configs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cfg.Tiers = slices.Clone(cfg.Tiers)
	slices.SortStableFunc(cfg.Tiers, func(a, b domain.RewardTier) int { return cmp.Compare(a.Position, b.Position) })
	return &cfg, nil
}

// Configurations lists configurations matching the filter, ordered by ID
func (t *Tx) Configurations(_ context.Context, filter store.ConfigurationFilter) ([]domain.SpinConfiguration, error) {
	var out []domain.SpinConfiguration
	for _, cfg := range t.st.configs {
		if filter.Matches(cfg) {
			cfg.Tiers = slices.Clone(cfg.Tiers)
			out = append(out, cfg)
		}
	}
	slices.SortFunc(out, func(a, b domain.SpinConfiguration) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// UpdateConfiguration writes the draw and quota-reset fields
func (t *Tx) UpdateConfiguration(_ context.Context, cfg *domain.SpinConfiguration) error {
	stored, ok := t.st.configs[cfg.ID]
	if !ok {
		return store.ErrNotFound
	}
	stored.WinnerTicketCode = cfg.WinnerTicketCode
	stored.DrawEpoch = cfg.DrawEpoch
	stored.DrawCycle = cfg.DrawCycle
	stored.LastDrawAt = cfg.LastDrawAt
	stored.LastDailySpinsUpdate = cfg.LastDailySpinsUpdate
	stored.UpdatedAt = time.Now()
	t.st.configs[cfg.ID] = stored
	return nil
}

// ResetQuotas drops every per-user quota of a configuration
func (t *Tx) ResetQuotas(_ context.Context, configID uint) error {
	for k := range t.st.quotas {
		if k.configID == configID {
			delete(t.st.quotas, k)
		}
	}
	return nil
}

// Quota reads a user's remaining spins
func (t *Tx) Quota(_ context.Context, configID uint, userID string) (int, bool, error) {
	remaining, ok := t.st.quotas[quotaKey{configID, userID}]
	return remaining, ok, nil
}

// SetQuota stores a user's remaining spins
func (t *Tx) SetQuota(_ context.Context, configID uint, userID string, remaining int) error {
	t.st.quotas[quotaKey{configID, userID}] = remaining
	return nil
}

// PoolCodes lists the codes of a configuration in insertion order
func (t *Tx) PoolCodes(_ context.Context, configID uint, availableOnly bool) ([]domain.PoolCode, error) {
	var out []domain.PoolCode
	for _, pc := range t.st.pool[configID] {
		if availableOnly && pc.Issued {
			continue
		}
		out = append(out, pc)
	}
	return out, nil
}

// AddPoolCodes appends fresh codes, rejecting duplicates
func (t *Tx) AddPoolCodes(_ context.Context, configID uint, codes []string) error {
	now := time.Now()
	for _, code := range codes {
		if slices.ContainsFunc(t.st.pool[configID], func(pc domain.PoolCode) bool { return pc.Code == code }) {
			return store.ErrDuplicate
		}
		t.st.pool[configID] = append(t.st.pool[configID], domain.PoolCode{
			ID: t.st.id(), ConfigurationID: configID, Code: code, CreatedAt: now,
		})
	}
	return nil
}

// MarkIssued consumes a pool code if it is still available
func (t *Tx) MarkIssued(_ context.Context, configID uint, code string) (bool, error) {
	codes := t.st.pool[configID]
	for i := range codes {
		if codes[i].Code == code && !codes[i].Issued {
			codes[i].Issued = true
			return true, nil
		}
	}
	return false, nil
}

// CreateTicket stores an issued ticket
func (t *Tx) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = t.st.id()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	t.st.tickets = append(t.st.tickets, *ticket)
	return nil
}

// TicketHolders lists the distinct users who ever received a ticket
func (t *Tx) TicketHolders(_ context.Context, configID uint) ([]string, error) {
	var holders []string
	for _, ticket := range t.st.tickets {
		if ticket.ConfigurationID == configID && !slices.Contains(holders, ticket.UserID) {
			holders = append(holders, ticket.UserID)
		}
	}
	return holders, nil
}

// Tickets lists tickets matching the filter
func (t *Tx) Tickets(_ context.Context, filter store.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range t.st.tickets {
		if filter.Matches(ticket) {
			out = append(out, ticket)
		}
	}
	return out, nil
}

// UpdateTickets applies update to every ticket matching the filter
func (t *Tx) UpdateTickets(_ context.Context, filter store.TicketFilter, update store.TicketUpdate) (int64, error) {
	var n int64
	for i := range t.st.tickets {
		if filter.Matches(t.st.tickets[i]) {
			update.Apply(&t.st.tickets[i])
			n++
		}
	}
	return n, nil
}

// Wallet loads a user's wallet
func (t *Tx) Wallet(_ context.Context, userID string) (*domain.Wallet, error) {
	w, ok := t.st.wallets[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

// CreateWallet inserts a wallet, one per user
func (t *Tx) CreateWallet(_ context.Context, w *domain.Wallet) error {
	if _, ok := t.st.wallets[w.UserID]; ok {
		return store.ErrDuplicate
	}
	w.ID = t.st.id()
	t.st.wallets[w.UserID] = *w
	return nil
}

// Debit decrements the balance only if it covers amount
func (t *Tx) Debit(_ context.Context, userID string, amount int64) error {
	w, ok := t.st.wallets[userID]
	if !ok {
		return store.ErrNotFound
	}
	if w.PointsBalance < amount {
		return store.ErrInsufficientFunds
	}
	w.PointsBalance -= amount
	w.TotalPointsBurned += amount
	t.st.wallets[userID] = w
	return nil
}

// Credit increments the balance
func (t *Tx) Credit(_ context.Context, userID string, amount int64) error {
	w, ok := t.st.wallets[userID]
	if !ok {
		return store.ErrNotFound
	}
	w.PointsBalance += amount
	w.TotalPointsEarned += amount
	t.st.wallets[userID] = w
	return nil
}

// RecordTransaction journals a wallet movement
func (t *Tx) RecordTransaction(_ context.Context, tr *domain.Transaction) error {
	tr.ID = t.st.id()
	if tr.CreatedAt == 0 {
		tr.CreatedAt = time.Now().UnixMilli()
	}
	t.st.transactions = append(t.st.transactions, *tr)
	return nil
}

// Transactions pages through a user's wallet journal, newest first
func (t *Tx) Transactions(_ context.Context, userID string, offset, limit int) ([]domain.Transaction, int64, error) {
	var all []domain.Transaction
	for i := len(t.st.transactions) - 1; i >= 0; i-- {
		if t.st.transactions[i].UserID == userID {
			all = append(all, t.st.transactions[i])
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

// CreateReservation stores a pending spin
func (t *Tx) CreateReservation(_ context.Context, r *domain.SpinReservation) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	t.st.reservations[r.ID] = *r
	return nil
}

// Reservation loads a spin reservation
func (t *Tx) Reservation(_ context.Context, id string) (*domain.SpinReservation, error) {
	r, ok := t.st.reservations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

// SettleReservation moves a pending reservation to its final status
func (t *Tx) SettleReservation(_ context.Context, id string, status domain.ReservationStatus, reason string, at time.Time) (bool, error) {
	r, ok := t.st.reservations[id]
	if !ok || r.Status != domain.ReservationPending {
		return false, nil
	}
	r.Status = status
	r.Reason = reason
	r.SettledAt = &at
	t.st.reservations[id] = r
	return true, nil
}

// PendingReservations lists reservations stuck in pending, oldest first
func (t *Tx) PendingReservations(_ context.Context, createdBefore time.Time, limit int) ([]domain.SpinReservation, error) {
	var out []domain.SpinReservation
	for _, r := range t.st.reservations {
		if r.Status == domain.ReservationPending && r.CreatedAt.Before(createdBefore) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.SpinReservation) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendUsage stores a usage entry, one per reservation
func (t *Tx) AppendUsage(_ context.Context, e *domain.UsageEntry) error {
	for _, existing := range t.st.usage {
		if existing.ReservationID == e.ReservationID {
			return store.ErrDuplicate
		}
	}
	t.st.usage = append(t.st.usage, *e)
	return nil
}

// UsageByReservation loads the usage entry of a committed spin
func (t *Tx) UsageByReservation(_ context.Context, reservationID string) (*domain.UsageEntry, error) {
	for _, e := range t.st.usage {
		if e.ReservationID == reservationID {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

// Usage lists usage entries matching the filter
func (t *Tx) Usage(_ context.Context, filter store.UsageFilter) ([]domain.UsageEntry, error) {
	var out []domain.UsageEntry
	for _, e := range t.st.usage {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
