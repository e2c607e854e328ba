package models

import "time"

// ReferralStatus only moves forward: pending → completed
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
)

// Referral tracks one referrer/referred pair. Token-based referrals start
// pending and pay out on confirmation; code-based referrals are written
// already completed. At most one row per pair, enforced by the index.
type Referral struct {
	ID         string         `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string         `gorm:"uniqueIndex:idx_referral_pair;not null" json:"referrer_id"` // ExternalUserID
	ReferredID string         `gorm:"uniqueIndex:idx_referral_pair;not null" json:"referred_id"` // ExternalUserID
	Status     ReferralStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	// Token is single-use: confirmation looks it up filtered on
	// status=pending, so a completed row can never be replayed.
	Token string `gorm:"uniqueIndex;not null" json:"-"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}
