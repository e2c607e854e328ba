// services/fairplay_service.go
package services

import (
	"log"
	"time"

	"game-rewards-system/models"
	"game-rewards-system/utils"

	"gorm.io/gorm"
)

// FairPlayService awards one fair-play coin to every user who visited on all
// of the last 7 UTC days. Meant to run every Sunday at 00:00 UTC, but the
// ISO-week guard makes more frequent invocation harmless: a user can be
// awarded at most once per Mon–Sun cycle.
type FairPlayService struct {
	DB    *gorm.DB
	Clock utils.Clock
}

func NewFairPlayService(db *gorm.DB, clock utils.Clock) *FairPlayService {
	return &FairPlayService{DB: db, Clock: clock}
}

// RunWeeklyAward evaluates every account and returns how many were awarded.
// Per-user failures are logged and skipped; one bad row must not sink the
// batch.
func (s *FairPlayService) RunWeeklyAward() (int, error) {
	now := s.Clock.Now()
	today := utils.DateUTC(now)
	weekStart := isoWeekStart(now)
	window := lastSevenDates(now)

	var accounts []models.RewardAccount
	if err := s.DB.Find(&accounts).Error; err != nil {
		return 0, err
	}

	awarded := 0
	for _, acct := range accounts {
		// YYYY-MM-DD compares lexicographically, so >= weekStart means
		// "already awarded this cycle".
		if acct.WeeklyFairPlayAwarded != nil && *acct.WeeklyFairPlayAwarded >= weekStart {
			continue
		}

		var visited int64
		if err := s.DB.Model(&models.UserVisit{}).
			Where("user_id = ? AND visit_date IN ?", acct.ExternalUserID, window).
			Count(&visited).Error; err != nil {
			log.Printf("[FAIRPLAY] ⚠️ visit lookup failed for %s, skipping: %v", acct.ExternalUserID, err)
			continue
		}
		if visited < int64(len(window)) {
			continue
		}

		res := s.DB.Model(&models.RewardAccount{}).
			Where("id = ? AND (weekly_fair_play_awarded IS NULL OR weekly_fair_play_awarded < ?)", acct.ID, weekStart).
			Updates(map[string]interface{}{
				"fair_play_coins":          gorm.Expr("fair_play_coins + 1"),
				"weekly_fair_play_awarded": today,
			})
		if res.Error != nil {
			log.Printf("[FAIRPLAY] ⚠️ award failed for %s, skipping: %v", acct.ExternalUserID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue // another run got there first
		}

		awarded++
		log.Printf("[FAIRPLAY] 🏅 %s completed the 7-day streak", acct.ExternalUserID)
	}

	log.Printf("[FAIRPLAY] weekly run complete: %d of %d account(s) awarded", awarded, len(accounts))
	return awarded, nil
}

// lastSevenDates returns the 7 UTC day keys ending today, inclusive.
func lastSevenDates(now time.Time) []string {
	dates := make([]string, 0, 7)
	for i := 6; i >= 0; i-- {
		dates = append(dates, utils.DateUTC(now.AddDate(0, 0, -i)))
	}
	return dates
}

// isoWeekStart returns the Monday of now's ISO week as a day key.
func isoWeekStart(now time.Time) string {
	now = now.UTC()
	wd := int(now.Weekday())
	if wd == 0 {
		wd = 7 // Sunday closes the ISO week
	}
	return utils.DateUTC(now.AddDate(0, 0, -(wd - 1)))
}
