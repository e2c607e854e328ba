package services

import (
	"fmt"
	"testing"
	"time"

	"game-rewards-system/models"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixedClock pins "today" so the date arithmetic in award policy and batch
// jobs is deterministic.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) AdvanceDays(days int) { c.now = c.now.AddDate(0, 0, days) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DB keeps the schema visible across the pool's
	// connections, unlike a plain :memory: DSN.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.RewardAccount{},
		&models.CoinTransaction{},
		&models.UserVisit{},
		&models.Referral{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, externalID, username, email string) *models.RewardAccount {
	t.Helper()
	acct := &models.RewardAccount{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       username,
		Email:          email,
		ReferralCode:   NewReferralCode(username),
	}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("failed to seed account %s: %v", externalID, err)
	}
	return acct
}

func reloadAccount(t *testing.T, db *gorm.DB, externalID string) *models.RewardAccount {
	t.Helper()
	var acct models.RewardAccount
	if err := db.Where("external_user_id = ?", externalID).First(&acct).Error; err != nil {
		t.Fatalf("failed to reload account %s: %v", externalID, err)
	}
	return &acct
}

func seedVisit(t *testing.T, db *gorm.DB, externalID, date string) {
	t.Helper()
	visit := models.UserVisit{ID: uuid.NewString(), UserID: externalID, VisitDate: date}
	if err := db.Create(&visit).Error; err != nil {
		t.Fatalf("failed to seed visit %s/%s: %v", externalID, date, err)
	}
}

func ledgerSum(t *testing.T, db *gorm.DB, externalID string) int64 {
	t.Helper()
	var sum int64
	if err := db.Model(&models.CoinTransaction{}).
		Where("user_id = ?", externalID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		t.Fatalf("failed to sum ledger for %s: %v", externalID, err)
	}
	return sum
}
