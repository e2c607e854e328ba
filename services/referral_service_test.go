package services

import (
	"database/sql"
	"testing"

	"game-rewards-system/models"
	"game-rewards-system/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReferralService(t *testing.T) *ReferralService {
	return NewReferralService(newTestDB(t), &fixedClock{now: testDay})
}

func TestCreateAndConfirmReferral(t *testing.T) {
	svc := newReferralService(t)
	referrer := seedAccount(t, svc.DB, "user-a", "alice", "alice@example.com")
	seedAccount(t, svc.DB, "user-b", "bob", "bob@example.com")

	// The confirmation bonus must ignore the referrer's daily earnings.
	today := utils.DateUTC(testDay)
	require.NoError(t, svc.DB.Model(referrer).Updates(map[string]interface{}{
		"daily_coin_earnings": 1200,
		"last_visit_date":     today,
	}).Error)

	token, err := svc.CreateReferral("user-a", "bob@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Creation alone moves no coins.
	assert.Zero(t, reloadAccount(t, svc.DB, "user-a").Coins)

	err = svc.ConfirmReferral("not-the-token")
	assert.ErrorIs(t, err, ErrReferralTokenInvalid)

	require.NoError(t, svc.ConfirmReferral(token))

	acct := reloadAccount(t, svc.DB, "user-a")
	assert.Equal(t, int64(ConfirmedReferralBonus), acct.Coins)
	assert.Equal(t, int64(1200), acct.DailyCoinEarnings, "bonus must not touch daily earnings")
	assert.Equal(t, int64(ConfirmedReferralBonus), ledgerSum(t, svc.DB, "user-a"))

	referred := reloadAccount(t, svc.DB, "user-b")
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, "user-a", *referred.ReferredBy)

	// The token is single-use.
	err = svc.ConfirmReferral(token)
	assert.ErrorIs(t, err, ErrReferralTokenInvalid)
	assert.Equal(t, int64(ConfirmedReferralBonus), reloadAccount(t, svc.DB, "user-a").Coins)
}

func TestCreateReferralRejections(t *testing.T) {
	svc := newReferralService(t)
	seedAccount(t, svc.DB, "user-a", "alice", "alice@example.com")
	seedAccount(t, svc.DB, "user-b", "bob", "bob@example.com")

	_, err := svc.CreateReferral("user-a", "nobody@example.com")
	assert.ErrorIs(t, err, ErrReferredUserNotFound)

	_, err = svc.CreateReferral("user-a", "alice@example.com")
	assert.ErrorIs(t, err, ErrSelfReferral)

	_, err = svc.CreateReferral("nobody", "bob@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.CreateReferral("user-a", "bob@example.com")
	require.NoError(t, err)

	_, err = svc.CreateReferral("user-a", "bob@example.com")
	assert.ErrorIs(t, err, ErrDuplicateReferral)
}

func TestProcessReferralCode(t *testing.T) {
	svc := newReferralService(t)
	referrer := seedAccount(t, svc.DB, "user-a", "alice", "alice@example.com")
	seedAccount(t, svc.DB, "user-b", "bob", "bob@example.com")

	_, err := svc.ProcessReferralCode("user-b", "no-such-code")
	assert.ErrorIs(t, err, ErrReferralCodeInvalid)

	_, err = svc.ProcessReferralCode("user-a", referrer.ReferralCode)
	assert.ErrorIs(t, err, ErrSelfReferral)

	coins, err := svc.ProcessReferralCode("user-b", referrer.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, int64(CodeReferralBonus), coins)
	assert.Equal(t, int64(CodeReferralBonus), ledgerSum(t, svc.DB, "user-a"))

	referred := reloadAccount(t, svc.DB, "user-b")
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, "user-a", *referred.ReferredBy)

	var referral models.Referral
	require.NoError(t, svc.DB.Where("referrer_id = ? AND referred_id = ?", "user-a", "user-b").First(&referral).Error)
	assert.Equal(t, models.ReferralStatusCompleted, referral.Status)

	// One referral per referred user, regardless of flow.
	_, err = svc.ProcessReferralCode("user-b", referrer.ReferralCode)
	assert.ErrorIs(t, err, ErrAlreadyReferred)
	assert.Equal(t, int64(CodeReferralBonus), reloadAccount(t, svc.DB, "user-a").Coins)
}

func TestApplyReferralCodeReportsTransactionBalance(t *testing.T) {
	svc := newReferralService(t)
	referrer := seedAccount(t, svc.DB, "user-a", "alice", "alice@example.com")
	seedAccount(t, svc.DB, "user-b", "bob", "bob@example.com")

	// The reported referrer balance must be captured inside the referral
	// transaction; a read after commit could absorb unrelated concurrent
	// awards. Flag any account read taken outside a transaction once the
	// referral is already committed.
	var readAfterCommit bool
	err := svc.DB.Callback().Query().Before("gorm:query").Register("watch_late_reads", func(db *gorm.DB) {
		if _, ok := db.Statement.Dest.(*models.RewardAccount); !ok {
			return
		}
		if _, inTx := db.Statement.ConnPool.(*sql.Tx); inTx {
			return
		}
		var completed int64
		row := db.Statement.ConnPool.QueryRowContext(db.Statement.Context,
			"SELECT COUNT(*) FROM referrals WHERE status = ?", string(models.ReferralStatusCompleted))
		if row.Scan(&completed) == nil && completed > 0 {
			readAfterCommit = true
		}
	})
	require.NoError(t, err)

	coins, err := svc.ProcessReferralCode("user-b", referrer.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, int64(CodeReferralBonus), coins)
	assert.False(t, readAfterCommit, "referrer balance must come from inside the referral transaction")
}

func TestNewReferralCode(t *testing.T) {
	code := NewReferralCode("Alice Müller")
	assert.Regexp(t, `^alice-muller-[0-9a-f]{8}$`, code)

	// Codes must stay unique and non-empty even for unusable usernames.
	assert.NotEqual(t, NewReferralCode(""), NewReferralCode(""))
	assert.Regexp(t, `^player-[0-9a-f]{8}$`, NewReferralCode("!!!"))
}
