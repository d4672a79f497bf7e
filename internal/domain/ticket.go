package domain

import "time"

// TicketCodeLength is the length of every lottery ticket code
const TicketCodeLength = 12

// TicketStatus is the claim state of an issued ticket
type TicketStatus string

// PENDING -> WINNER -> CLAIMED | NOT_CLAIMED, PENDING -> BETTER_LUCK_NEXT_TIME
const (
	TicketPending    TicketStatus = "pending"
	TicketWinner     TicketStatus = "winner"
	TicketClaimed    TicketStatus = "claimed"
	TicketNotClaimed TicketStatus = "not_claimed"
	TicketBetterLuck TicketStatus = "better_luck_next_time"
)

// Terminal reports whether no further transition is allowed
func (s TicketStatus) Terminal() bool {
	return s == TicketClaimed || s == TicketNotClaimed || s == TicketBetterLuck
}

// PoolCode is a pre-generated ticket code waiting to be issued
type PoolCode struct {
	ID              uint      `gorm:"primaryKey" json:"id"`                               // Primary key
	ConfigurationID uint      `gorm:"not null;uniqueIndex:idx_pool_config_code" json:"-"` // Owning configuration
	Code            string    `gorm:"size:12;not null;uniqueIndex:idx_pool_config_code" json:"code"`
	Issued          bool      `gorm:"not null;default:false;index" json:"issued"` // Consumed by a spin
	CreatedAt       time.Time `json:"created_at"`
}

// Ticket Model
type Ticket struct {
	ID              uint         `gorm:"primaryKey" json:"id"` // Primary key
	ConfigurationID uint         `gorm:"not null;uniqueIndex:idx_ticket_config_code" json:"configuration_id"`
	Code            string       `gorm:"size:12;not null;uniqueIndex:idx_ticket_config_code" json:"code"`
	UserID          string       `gorm:"size:64;not null;index" json:"user_id"`   // Ticket holder
	IsWinner        bool         `gorm:"not null;default:false" json:"is_winner"` // Set once claimed
	Status          TicketStatus `gorm:"size:32;not null;index" json:"status"`    // Claim state
	CreatedAt       time.Time    `json:"created_at"`
}
