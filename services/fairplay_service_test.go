package services

import (
	"testing"
	"time"

	"game-rewards-system/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-06-15 is a Sunday, the scheduled run day; its ISO week starts Monday
// 2025-06-09, so the 7-day window and the ISO week coincide.
var testSunday = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func newFairPlayService(t *testing.T) (*FairPlayService, *fixedClock) {
	clock := &fixedClock{now: testSunday}
	return NewFairPlayService(newTestDB(t), clock), clock
}

func seedVisitRange(t *testing.T, svc *FairPlayService, userID string, end time.Time, days int) {
	t.Helper()
	for i := 0; i < days; i++ {
		seedVisit(t, svc.DB, userID, utils.DateUTC(end.AddDate(0, 0, -i)))
	}
}

func TestWeeklyAwardFullStreak(t *testing.T) {
	svc, clock := newFairPlayService(t)
	seedAccount(t, svc.DB, "user-1", "alice", "alice@example.com")
	seedVisitRange(t, svc, "user-1", clock.Now(), 7)

	awarded, err := svc.RunWeeklyAward()
	require.NoError(t, err)
	assert.Equal(t, 1, awarded)

	acct := reloadAccount(t, svc.DB, "user-1")
	assert.Equal(t, int64(1), acct.FairPlayCoins)
	require.NotNil(t, acct.WeeklyFairPlayAwarded)
	assert.Equal(t, utils.DateUTC(clock.Now()), *acct.WeeklyFairPlayAwarded)

	// The fair-play currency is not part of the coin ledger.
	assert.Zero(t, ledgerSum(t, svc.DB, "user-1"))

	// Re-running the same day awards nothing more.
	awarded, err = svc.RunWeeklyAward()
	require.NoError(t, err)
	assert.Zero(t, awarded)
	assert.Equal(t, int64(1), reloadAccount(t, svc.DB, "user-1").FairPlayCoins)
}

func TestWeeklyAwardRequiresAllSevenDays(t *testing.T) {
	svc, clock := newFairPlayService(t)
	seedAccount(t, svc.DB, "user-1", "alice", "alice@example.com")

	// 6 of the last 7 days: yesterday is missing.
	seedVisitRange(t, svc, "user-1", clock.Now().AddDate(0, 0, -2), 5)
	seedVisit(t, svc.DB, "user-1", utils.DateUTC(clock.Now()))

	awarded, err := svc.RunWeeklyAward()
	require.NoError(t, err)
	assert.Zero(t, awarded)
	assert.Zero(t, reloadAccount(t, svc.DB, "user-1").FairPlayCoins)
}

func TestWeeklyAwardOncePerISOWeek(t *testing.T) {
	svc, clock := newFairPlayService(t)
	seedAccount(t, svc.DB, "user-1", "alice", "alice@example.com")

	// Award mid-week (Wednesday the 11th, streak reaching back to the 5th).
	clock.now = time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	seedVisitRange(t, svc, "user-1", clock.Now(), 7)
	awarded, err := svc.RunWeeklyAward()
	require.NoError(t, err)
	assert.Equal(t, 1, awarded)

	// The user keeps visiting through Sunday; the scheduled Sunday run must
	// not award again within the same Mon–Sun cycle.
	clock.now = testSunday
	seedVisitRange(t, svc, "user-1", clock.Now(), 4)
	awarded, err = svc.RunWeeklyAward()
	require.NoError(t, err)
	assert.Zero(t, awarded)
	assert.Equal(t, int64(1), reloadAccount(t, svc.DB, "user-1").FairPlayCoins)

	// The following week's run is a fresh cycle.
	clock.now = testSunday.AddDate(0, 0, 7)
	seedVisitRange(t, svc, "user-1", clock.Now(), 7)
	awarded, err = svc.RunWeeklyAward()
	require.NoError(t, err)
	assert.Equal(t, 1, awarded)
	assert.Equal(t, int64(2), reloadAccount(t, svc.DB, "user-1").FairPlayCoins)
}

func TestWeeklyAwardEvaluatesUsersIndependently(t *testing.T) {
	svc, clock := newFairPlayService(t)
	seedAccount(t, svc.DB, "user-1", "alice", "alice@example.com")
	seedAccount(t, svc.DB, "user-2", "bob", "bob@example.com")

	seedVisitRange(t, svc, "user-1", clock.Now(), 7)
	seedVisitRange(t, svc, "user-2", clock.Now(), 3)

	awarded, err := svc.RunWeeklyAward()
	require.NoError(t, err)
	assert.Equal(t, 1, awarded)
	assert.Equal(t, int64(1), reloadAccount(t, svc.DB, "user-1").FairPlayCoins)
	assert.Zero(t, reloadAccount(t, svc.DB, "user-2").FairPlayCoins)
}

func TestISOWeekStart(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	assert.Equal(t, "2025-06-09", isoWeekStart(testSunday))
	assert.Equal(t, "2025-06-09", isoWeekStart(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-16", isoWeekStart(time.Date(2025, 6, 16, 23, 59, 0, 0, time.UTC)))
}
