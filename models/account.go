package models

import (
	"time"

	"gorm.io/gorm"
)

// RewardAccount is the local snapshot of a user plus their reward state.
// Identity is owned by the profile service; the sync worker keeps the
// username/email columns fresh, everything else is owned here.
type RewardAccount struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	Username       string `gorm:"index" json:"username"`
	Email          string `json:"email,omitempty"`

	Coins             int64 `json:"coins" gorm:"default:0"`
	FairPlayCoins     int64 `json:"fair_play_coins" gorm:"default:0"`
	DailyCoinEarnings int64 `json:"daily_coin_earnings" gorm:"default:0"`

	// LastVisitDate scopes DailyCoinEarnings: the counter only means "today's
	// earnings" while this equals the current UTC date. Nothing ever zeroes
	// the counter on its own; stale values are ignored at read time.
	LastVisitDate *string `gorm:"type:varchar(10)" json:"last_visit_date,omitempty"`

	// WeeklyFairPlayAwarded is the date of the most recent fair-play coin
	// grant, compared by ISO week to block double awards within one cycle.
	WeeklyFairPlayAwarded *string `gorm:"type:varchar(10)" json:"weekly_fair_play_awarded,omitempty"`

	LoginStreak int `json:"login_streak" gorm:"default:0"`

	ReferralCode string  `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredBy   *string `gorm:"index" json:"referred_by,omitempty"` // set at most once

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
