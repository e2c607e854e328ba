package models

import "time"

// UserVisit marks one user as active on one UTC day. The composite unique
// index is what makes visit logging idempotent — check-then-insert alone
// would race under concurrent awards.
type UserVisit struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_visit_day;not null" json:"user_id"` // ExternalUserID
	VisitDate string    `gorm:"uniqueIndex:idx_user_visit_day;type:varchar(10);not null" json:"visit_date"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
