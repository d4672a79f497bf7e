package domain

import "time"

// ReservationStatus tracks a spin through reserve, settle and compensate
type ReservationStatus string

const (
	ReservationPending     ReservationStatus = "pending"     // Cost debited, reward not yet recorded
	ReservationCommitted   ReservationStatus = "committed"   // Reward recorded in usage history
	ReservationCompensated ReservationStatus = "compensated" // Cost and quota handed back
)

// SpinReservation is the journal row of one spin attempt
type SpinReservation struct {
	ID              string            `gorm:"primaryKey;size:36" json:"id"`           // Spin ID
	ConfigurationID uint              `gorm:"index;not null" json:"configuration_id"` // Spun configuration
	UserID          string            `gorm:"size:64;index;not null" json:"user_id"`  // Spinning user
	Cost            int64             `gorm:"not null" json:"cost"`                   // Points debited
	QuotaDay        string            `gorm:"size:10;not null" json:"quota_day"`      // UTC day the quota unit was taken from
	Status          ReservationStatus `gorm:"size:16;index;not null" json:"status"`   // Journal state
	Reason          string            `gorm:"size:255" json:"reason,omitempty"`       // Why it was compensated
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
	SettledAt       *time.Time        `json:"settled_at,omitempty"`
}

// UsageEntry is an append-only record of a committed spin
type UsageEntry struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`                // Primary key
	ReservationID   string     `gorm:"size:36;uniqueIndex;not null" json:"spin_id"` // Committed reservation
	ConfigurationID uint       `gorm:"index;not null" json:"configuration_id"`      // Spun configuration
	UserID          string     `gorm:"size:64;index;not null" json:"user_id"`       // Spinning user
	UsageDate       time.Time  `gorm:"index" json:"usage_date"`                     // Commit time
	RewardKind      RewardKind `gorm:"size:32" json:"reward_kind"`                  // Granted reward type
	RewardAmount    int64      `json:"reward_amount"`                               // Points credited
	TicketCode      string     `gorm:"size:12" json:"ticket_code,omitempty"`        // Issued ticket code
}

// Reward rebuilds the granted reward
func (u UsageEntry) Reward() Reward {
	return Reward{Kind: u.RewardKind, Amount: u.RewardAmount, TicketCode: u.TicketCode}
}
