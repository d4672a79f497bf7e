package domain

// RewardKind is the type of reward a spin can yield
type RewardKind string

const (
	RewardCoin          RewardKind = "coin"           // Points credited to the wallet
	RewardDiscount      RewardKind = "discount"       // Cashback-style deal, credited as points
	RewardLotteryTicket RewardKind = "lottery_ticket" // A ticket issued from the pool
)

// RewardTier is one weighted entry of a configuration's reward table
type RewardTier struct {
	ID              uint       `gorm:"primaryKey" json:"id"`                   // Primary key
	ConfigurationID uint       `gorm:"index;not null" json:"configuration_id"` // Owning configuration
	Position        int        `gorm:"not null" json:"position"`               // Configured order, ties go to the lower position
	Kind            RewardKind `gorm:"size:32;not null" json:"kind"`           // Reward type
	MinAmount       int64      `gorm:"not null;default:0" json:"min_amount"`   // Lower bound of the point amount
	MaxAmount       int64      `gorm:"not null;default:0" json:"max_amount"`   // Upper bound of the point amount, inclusive
	Weight          float64    `gorm:"not null;default:0" json:"weight"`       // Relative probability
}

// Reward is what a single spin granted
type Reward struct {
	Kind       RewardKind `json:"kind"`                  // Reward type
	Amount     int64      `json:"amount"`                // Points credited, zero for tickets
	TicketCode string     `json:"ticket_code,omitempty"` // Issued ticket code
}

// IsTicket reports whether the reward is a lottery ticket grant
func (r Reward) IsTicket() bool {
	return r.Kind == RewardLotteryTicket
}
