package domain

// Transaction types recorded by the wallet ledger
const (
	TxSpinCost   = "spin_cost"   // Cost debited for a spin
	TxSpinReward = "spin_reward" // Points won on a spin
	TxSpinRefund = "spin_refund" // Cost returned for a compensated spin
	TxDeposit    = "deposit"     // Points granted by an operator
)

// Transaction Model
type Transaction struct {
	ID        uint   `gorm:"primaryKey" json:"id"`                   // Primary key
	UserID    string `gorm:"size:64;index;not null" json:"user_id"`  // Wallet owner
	Amount    int64  `json:"amount"`                                 // Points moved
	Type      string `gorm:"size:32" json:"type"`                    // Transaction type: spin_cost, spin_reward, spin_refund, deposit
	Reference string `gorm:"size:36;index" json:"reference"`         // Spin reservation ID, if any
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}
