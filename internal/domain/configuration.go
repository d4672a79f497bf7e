package domain

import "time"

// Defaults applied when a configuration leaves them unset
const (
	DefaultDailySpins         = 5
	DefaultJackpotProbability = 0.001
)

// SpinConfiguration Model, one reward-bearing spin of a giveaway
type SpinConfiguration struct {
	ID                   uint         `gorm:"primaryKey" json:"id"`                              // Primary key
	Code                 string       `gorm:"size:64;not null" json:"code"`                      // Public code
	ProductName          string       `gorm:"size:255" json:"product_name"`                      // Prize shown to winners
	GiveawayID           uint         `gorm:"index;not null" json:"giveaway_id"`                 // Linked campaign
	DailySpins           int          `gorm:"not null;default:5" json:"daily_spins"`             // Per-user daily allowance
	JackpotProbability   float64      `gorm:"not null;default:0.001" json:"jackpot_probability"` // Chance that a spin grants a ticket
	IsActive             bool         `gorm:"not null;default:true;index" json:"is_active"`      // Deactivation switch
	WinnerTicketCode     string       `gorm:"size:12" json:"winner_ticket_code"`                 // Code drawn in the current cycle
	DrawEpoch            string       `gorm:"size:10" json:"draw_epoch"`                         // UTC day of the last draw
	DrawCycle            int64        `gorm:"not null;default:0" json:"draw_cycle"`              // Number of draws so far
	LastDrawAt           *time.Time   `json:"last_draw_at,omitempty"`                            // Time of the last draw
	LastDailySpinsUpdate time.Time    `json:"last_daily_spins_update"`                           // Last quota reset
	Tiers                []RewardTier `gorm:"foreignKey:ConfigurationID" json:"tiers,omitempty"` // Reward table in configured order
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// Allowance returns the daily spin allowance, falling back to the default
func (c *SpinConfiguration) Allowance() int {
	if c.DailySpins <= 0 {
		return DefaultDailySpins
	}
	return c.DailySpins
}

// QuotaStale reports whether the per-user quotas belong to an earlier UTC day
func (c *SpinConfiguration) QuotaStale(now time.Time) bool {
	return DayKey(c.LastDailySpinsUpdate) < DayKey(now)
}

// DrawnOn reports whether a winner was already drawn for the given day
func (c *SpinConfiguration) DrawnOn(now time.Time) bool {
	return c.DrawEpoch != "" && c.DrawEpoch == DayKey(now)
}

// DayKey formats t as its UTC calendar date
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
