package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Locking and upsert clauses

	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// Tx is the GORM-backed store.Tx, bound to one database transaction
type Tx struct {
	db *gorm.DB
}

var _ store.Tx = (*Tx)(nil)

// orderedTiers preloads reward tiers in configured order
func orderedTiers(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Giveaway loads a giveaway by ID
func (t *Tx) Giveaway(ctx context.Context, id uint) (*domain.Giveaway, error) {
	var g domain.Giveaway
	if err := t.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

// CreateGiveaway inserts a giveaway
func (t *Tx) CreateGiveaway(ctx context.Context, g *domain.Giveaway) error {
	return translate(t.db.WithContext(ctx).Create(g).Error)
}

// CreateConfiguration inserts a configuration together with its tiers
func (t *Tx) CreateConfiguration(ctx context.Context, cfg *domain.SpinConfiguration) error {
	return translate(t.db.WithContext(ctx).Create(cfg).Error)
}

// LockConfiguration loads a configuration with SELECT ... FOR UPDATE
func (t *Tx) LockConfiguration(ctx context.Context, id uint) (*domain.SpinConfiguration, error) {
	var cfg domain.SpinConfiguration
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}). // Row lock held until commit
		Preload("Tiers", orderedTiers).
		First(&cfg, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cfg, nil
}

// Configuration loads a configuration without locking it
func (t *Tx) Configuration(ctx context.Context, id uint) (*domain.SpinConfiguration, error) {
	var cfg domain.SpinConfiguration
	if err := t.db.WithContext(ctx).Preload("Tiers", orderedTiers).First(&cfg, id).Error; err != nil {
		return nil, translate(err)
	}
	return &cfg, nil
}

// Configurations lists configurations matching the filter
func (t *Tx) Configurations(ctx context.Context, filter store.ConfigurationFilter) ([]domain.SpinConfiguration, error) {
	query := t.db.WithContext(ctx).Model(&domain.SpinConfiguration{}) // Start building the query
	if filter.GiveawayID != 0 {
		query = query.Where("giveaway_id = ?", filter.GiveawayID) // Filter by giveaway
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true) // Skip deactivated spins
	}
	var cfgs []domain.SpinConfiguration
	if err := query.Preload("Tiers", orderedTiers).Order("id ASC").Find(&cfgs).Error; err != nil {
		return nil, translate(err)
	}
	return cfgs, nil
}

// UpdateConfiguration writes the draw and quota-reset columns, zero values included
func (t *Tx) UpdateConfiguration(ctx context.Context, cfg *domain.SpinConfiguration) error {
	err := t.db.WithContext(ctx).Model(cfg).
		Select("winner_ticket_code", "draw_epoch", "draw_cycle", "last_draw_at", "last_daily_spins_update").
		Updates(cfg).Error
	return translate(err)
}

// ResetQuotas drops every per-user quota of a configuration
func (t *Tx) ResetQuotas(ctx context.Context, configID uint) error {
	return translate(t.db.WithContext(ctx).Where("configuration_id = ?", configID).Delete(&domain.DailyQuota{}).Error)
}

// Quota reads a user's remaining spins
func (t *Tx) Quota(ctx context.Context, configID uint, userID string) (int, bool, error) {
	var q domain.DailyQuota
	err := t.db.WithContext(ctx).Where("configuration_id = ? AND user_id = ?", configID, userID).Limit(1).Find(&q).Error
	if err != nil {
		return 0, false, translate(err)
	}
	if q.UserID == "" {
		return 0, false, nil // No row yet for this user
	}
	return q.Remaining, true, nil
}

// SetQuota upserts a user's remaining spins
func (t *Tx) SetQuota(ctx context.Context, configID uint, userID string, remaining int) error {
	q := domain.DailyQuota{ConfigurationID: configID, UserID: userID, Remaining: remaining}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "configuration_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"remaining"}),
	}).Create(&q).Error
	return translate(err)
}

// PoolCodes lists the pre-generated codes of a configuration
func (t *Tx) PoolCodes(ctx context.Context, configID uint, availableOnly bool) ([]domain.PoolCode, error) {
	query := t.db.WithContext(ctx).Where("configuration_id = ?", configID)
	if availableOnly {
		query = query.Where("issued = ?", false) // Only codes not handed out yet
	}
	var codes []domain.PoolCode
	if err := query.Order("id ASC").Find(&codes).Error; err != nil {
		return nil, translate(err)
	}
	return codes, nil
}

// AddPoolCodes appends fresh codes to the pool
func (t *Tx) AddPoolCodes(ctx context.Context, configID uint, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]domain.PoolCode, len(codes))
	for i, code := range codes {
		rows[i] = domain.PoolCode{ConfigurationID: configID, Code: code}
	}
	return translate(t.db.WithContext(ctx).CreateInBatches(rows, 500).Error)
}

// MarkIssued conditionally consumes a pool code
func (t *Tx) MarkIssued(ctx context.Context, configID uint, code string) (bool, error) {
	res := t.db.WithContext(ctx).Model(&domain.PoolCode{}).
		Where("configuration_id = ? AND code = ? AND issued = ?", configID, code, false).
		Update("issued", true)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CreateTicket inserts an issued ticket
func (t *Tx) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	return translate(t.db.WithContext(ctx).Create(ticket).Error)
}

// TicketHolders lists the distinct users who ever received a ticket
func (t *Tx) TicketHolders(ctx context.Context, configID uint) ([]string, error) {
	var holders []string
	err := t.db.WithContext(ctx).Model(&domain.Ticket{}).
		Where("configuration_id = ?", configID).
		Distinct().Pluck("user_id", &holders).Error
	if err != nil {
		return nil, translate(err)
	}
	return holders, nil
}

// Tickets lists tickets matching the filter
func (t *Tx) Tickets(ctx context.Context, filter store.TicketFilter) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := t.db.WithContext(ctx).Scopes(ticketScope(filter)).Order("id ASC").Find(&tickets).Error; err != nil {
		return nil, translate(err)
	}
	return tickets, nil
}

// UpdateTickets applies a conditional status transition
func (t *Tx) UpdateTickets(ctx context.Context, filter store.TicketFilter, update store.TicketUpdate) (int64, error) {
	values := map[string]any{"status": update.Status}
	if update.IsWinner != nil {
		values["is_winner"] = *update.IsWinner
	}
	res := t.db.WithContext(ctx).Model(&domain.Ticket{}).Scopes(ticketScope(filter)).Updates(values)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// ticketScope turns a TicketFilter into WHERE clauses
func ticketScope(f store.TicketFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(f.ConfigurationIDs) > 0 {
			db = db.Where("configuration_id IN ?", f.ConfigurationIDs)
		}
		if f.Code != "" {
			db = db.Where("code = ?", f.Code)
		}
		if f.ExcludeCode != "" {
			db = db.Where("code <> ?", f.ExcludeCode)
		}
		if f.UserID != "" {
			db = db.Where("user_id = ?", f.UserID)
		}
		if f.ExcludeUserID != "" {
			db = db.Where("user_id <> ?", f.ExcludeUserID)
		}
		if len(f.Statuses) > 0 {
			db = db.Where("status IN ?", f.Statuses)
		}
		if f.WinnersOnly {
			db = db.Where("is_winner = ?", true)
		}
		return db
	}
}

// Wallet loads a user's wallet
func (t *Tx) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := t.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

// CreateWallet inserts an empty wallet
func (t *Tx) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	return translate(t.db.WithContext(ctx).Create(w).Error)
}

// Debit decrements the balance only if it covers amount
func (t *Tx) Debit(ctx context.Context, userID string, amount int64) error {
	res := t.db.WithContext(ctx).Model(&domain.Wallet{}).
		Where("user_id = ? AND points_balance >= ?", userID, amount). // Check and decrement in one statement
		Updates(map[string]any{
			"points_balance":      gorm.Expr("points_balance - ?", amount),
			"total_points_burned": gorm.Expr("total_points_burned + ?", amount),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := t.Wallet(ctx, userID); err != nil {
			return err // Wallet is missing
		}
		return store.ErrInsufficientFunds
	}
	return nil
}

// Credit increments the balance
func (t *Tx) Credit(ctx context.Context, userID string, amount int64) error {
	res := t.db.WithContext(ctx).Model(&domain.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"points_balance":      gorm.Expr("points_balance + ?", amount),
			"total_points_earned": gorm.Expr("total_points_earned + ?", amount),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecordTransaction journals a wallet movement
func (t *Tx) RecordTransaction(ctx context.Context, tr *domain.Transaction) error {
	return translate(t.db.WithContext(ctx).Create(tr).Error)
}

// Transactions pages through a user's wallet journal, newest first
func (t *Tx) Transactions(ctx context.Context, userID string, offset, limit int) ([]domain.Transaction, int64, error) {
	query := t.db.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", userID)
	var total int64 // Total count of transactions
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var txs []domain.Transaction
	if err := query.Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, translate(err)
	}
	return txs, total, nil
}

// CreateReservation inserts a pending spin
func (t *Tx) CreateReservation(ctx context.Context, r *domain.SpinReservation) error {
	return translate(t.db.WithContext(ctx).Create(r).Error)
}

// Reservation loads a spin reservation
func (t *Tx) Reservation(ctx context.Context, id string) (*domain.SpinReservation, error) {
	var r domain.SpinReservation
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// SettleReservation moves a pending reservation to its final status
func (t *Tx) SettleReservation(ctx context.Context, id string, status domain.ReservationStatus, reason string, at time.Time) (bool, error) {
	res := t.db.WithContext(ctx).Model(&domain.SpinReservation{}).
		Where("id = ? AND status = ?", id, domain.ReservationPending). // First writer wins
		Updates(map[string]any{"status": status, "reason": reason, "settled_at": at})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PendingReservations lists reservations stuck in pending
func (t *Tx) PendingReservations(ctx context.Context, createdBefore time.Time, limit int) ([]domain.SpinReservation, error) {
	query := t.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.ReservationPending, createdBefore).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []domain.SpinReservation
	if err := query.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// AppendUsage inserts a usage history entry
func (t *Tx) AppendUsage(ctx context.Context, e *domain.UsageEntry) error {
	return translate(t.db.WithContext(ctx).Create(e).Error)
}

// UsageByReservation loads the history entry of a committed spin
func (t *Tx) UsageByReservation(ctx context.Context, reservationID string) (*domain.UsageEntry, error) {
	var e domain.UsageEntry
	if err := t.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// Usage lists usage history matching the filter, oldest first
func (t *Tx) Usage(ctx context.Context, filter store.UsageFilter) ([]domain.UsageEntry, error) {
	query := t.db.WithContext(ctx).Model(&domain.UsageEntry{})
	if len(filter.ConfigurationIDs) > 0 {
		query = query.Where("configuration_id IN ?", filter.ConfigurationIDs)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("usage_date >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("usage_date < ?", filter.Until)
	}
	var out []domain.UsageEntry
	if err := query.Order("usage_date ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}
