// Package store defines the persistence contract of the spin engine.
package store

import (
	"context"
	"errors"
	"time"

	"lucky_spin/internal/domain"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicate         = errors.New("duplicate record")
	ErrTransient         = errors.New("transient storage failure")
)

// IsTransient reports whether a failed transaction may be retried from scratch
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Store runs units of work atomically.
type Store interface {
	// WithinTx runs fn in one transaction. fn's error rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	CampaignStore
	ConfigurationStore
	WalletStore
	JournalStore
}

// CampaignStore is the read-only view of giveaways.
type CampaignStore interface {
	Giveaway(ctx context.Context, id uint) (*domain.Giveaway, error)
	CreateGiveaway(ctx context.Context, g *domain.Giveaway) error
}

// ConfigurationStore loads and mutates the spin configuration aggregate.
type ConfigurationStore interface {
	CreateConfiguration(ctx context.Context, cfg *domain.SpinConfiguration) error
	// LockConfiguration loads a configuration with its tiers and holds it
	// exclusively until the transaction ends.
	LockConfiguration(ctx context.Context, id uint) (*domain.SpinConfiguration, error)
	Configuration(ctx context.Context, id uint) (*domain.SpinConfiguration, error)
	Configurations(ctx context.Context, filter ConfigurationFilter) ([]domain.SpinConfiguration, error)
	// UpdateConfiguration persists the draw and quota-reset columns.
	UpdateConfiguration(ctx context.Context, cfg *domain.SpinConfiguration) error

	ResetQuotas(ctx context.Context, configID uint) error
	Quota(ctx context.Context, configID uint, userID string) (remaining int, found bool, err error)
	SetQuota(ctx context.Context, configID uint, userID string, remaining int) error

	PoolCodes(ctx context.Context, configID uint, availableOnly bool) ([]domain.PoolCode, error)
	AddPoolCodes(ctx context.Context, configID uint, codes []string) error
	// MarkIssued flips an unissued code to issued and reports whether it was still unissued.
	MarkIssued(ctx context.Context, configID uint, code string) (bool, error)

	CreateTicket(ctx context.Context, t *domain.Ticket) error
	TicketHolders(ctx context.Context, configID uint) ([]string, error)
	Tickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// UpdateTickets applies update to every ticket matching filter and returns the count.
	UpdateTickets(ctx context.Context, filter TicketFilter, update TicketUpdate) (int64, error)
}

// WalletStore is the atomic view of user wallets.
type WalletStore interface {
	Wallet(ctx context.Context, userID string) (*domain.Wallet, error)
	CreateWallet(ctx context.Context, w *domain.Wallet) error
	// Debit fails with ErrInsufficientFunds unless balance >= amount, checked and applied in one write.
	Debit(ctx context.Context, userID string, amount int64) error
	Credit(ctx context.Context, userID string, amount int64) error
	RecordTransaction(ctx context.Context, t *domain.Transaction) error
	Transactions(ctx context.Context, userID string, offset, limit int) ([]domain.Transaction, int64, error)
}

// JournalStore holds spin reservations and usage history.
type JournalStore interface {
	CreateReservation(ctx context.Context, r *domain.SpinReservation) error
	Reservation(ctx context.Context, id string) (*domain.SpinReservation, error)
	// SettleReservation moves a pending reservation to status and reports whether it was still pending.
	SettleReservation(ctx context.Context, id string, status domain.ReservationStatus, reason string, at time.Time) (bool, error)
	PendingReservations(ctx context.Context, createdBefore time.Time, limit int) ([]domain.SpinReservation, error)

	AppendUsage(ctx context.Context, e *domain.UsageEntry) error
	UsageByReservation(ctx context.Context, reservationID string) (*domain.UsageEntry, error)
	Usage(ctx context.Context, filter UsageFilter) ([]domain.UsageEntry, error)
}
