package domain

// Wallet Model
type Wallet struct {
	ID                uint   `gorm:"primaryKey" json:"id"`                          // Primary key
	UserID            string `gorm:"size:64;uniqueIndex;not null" json:"user_id"`   // Owning user
	PointsBalance     int64  `gorm:"not null;default:0" json:"points_balance"`      // Spendable points
	TotalPointsEarned int64  `gorm:"not null;default:0" json:"total_points_earned"` // Lifetime credited points
	TotalPointsBurned int64  `gorm:"not null;default:0" json:"total_points_burned"` // Lifetime debited points
}
