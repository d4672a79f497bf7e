package domain

// DailyQuota is the remaining spin count of one user on one configuration.
// Rows are dropped wholesale when the configuration rolls over to a new UTC day.
type DailyQuota struct {
	ConfigurationID uint   `gorm:"primaryKey;autoIncrement:false" json:"configuration_id"` // Owning configuration
	UserID          string `gorm:"primaryKey;size:64" json:"user_id"`                      // Spinning user
	Remaining       int    `gorm:"not null" json:"remaining"`                              // Spins left today
}
