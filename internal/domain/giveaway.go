package domain

import "time"

// Giveaway Model, owned by campaign setup and read-only to the spin engine
type Giveaway struct {
	ID              uint      `gorm:"primaryKey" json:"id"`                // Primary key
	BrandName       string    `gorm:"size:128;not null" json:"brand_name"` // Sponsoring brand
	Title           string    `gorm:"size:255;not null" json:"title"`      // Giveaway title
	NumberOfWinners int       `gorm:"not null;default:1" json:"number_of_winners"`
	CostPerSpin     int64     `gorm:"not null" json:"cost_per_spin"`          // Points debited per spin
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"` // Campaign switch
	StartDate       time.Time `json:"start_date"`                             // Campaign start
	ExpiryDate      time.Time `json:"expiry_date"`                            // Campaign end
}

// OpenAt reports whether the giveaway accepts spins at the given instant
func (g *Giveaway) OpenAt(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	if !g.StartDate.IsZero() && now.Before(g.StartDate) {
		return false
	}
	return g.ExpiryDate.IsZero() || now.Before(g.ExpiryDate)
}
