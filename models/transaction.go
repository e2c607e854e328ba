package models

import "time"

// TransactionType labels a ledger entry with the activity that produced it
type TransactionType string

const (
	TxVisit          TransactionType = "visit"
	TxGame           TransactionType = "game"
	TxShare          TransactionType = "share"
	TxReferral       TransactionType = "referral"
	TxFairCoinRedeem TransactionType = "fair-coin-redeem"
	TxRedeem         TransactionType = "redeem"
	TxAdmin          TransactionType = "admin"
)

// CoinTransaction is one append-only ledger entry. Rows are never updated or
// deleted; a user's coin balance must always equal the sum of their amounts.
type CoinTransaction struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string          `gorm:"index;not null" json:"user_id"` // ExternalUserID
	Type        TransactionType `gorm:"type:varchar(32);not null;index" json:"type"`
	Amount      int64           `gorm:"not null" json:"amount"` // negative for debits
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
}
