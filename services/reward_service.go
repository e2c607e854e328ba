// services/reward_service.go
package services

import (
	"errors"
	"fmt"
	"log"

	"game-rewards-system/models"
	"game-rewards-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DailyCoinLimit caps same-day earnings across cap-subject activities.
	DailyCoinLimit = 1200
	// FairCoinRedeemValue is the coin value of one fair-play coin.
	FairCoinRedeemValue = 20
	// CashRedeemAmount is the coin balance consumed by one cash-out request.
	CashRedeemAmount = 1000000

	// casRetries bounds the optimistic-update loop before the conflict is
	// surfaced to the caller.
	casRetries = 3
)

// ActivityReward is one row of the award table. Referral bonuses bypass the
// daily cap; everything else counts toward it.
type ActivityReward struct {
	Amount    int64
	CapExempt bool
}

var ActivityRewards = map[models.TransactionType]ActivityReward{
	models.TxVisit:    {Amount: 10},
	models.TxGame:     {Amount: 50},
	models.TxShare:    {Amount: 20},
	models.TxReferral: {Amount: 1000, CapExempt: true},
}

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidActivity       = errors.New("unknown activity")
	ErrDailyLimitExceeded    = errors.New("daily coin limit reached")
	ErrInsufficientFairCoins = errors.New("insufficient fair play coins")
	ErrInsufficientBalance   = errors.New("insufficient coin balance")
	ErrConcurrentUpdate      = errors.New("account was updated concurrently, retry")

	// errCASMiss signals one lost compare-and-swap round inside the retry loop
	errCASMiss = errors.New("stale account read")
)

type RewardService struct {
	DB    *gorm.DB
	Clock utils.Clock
}

func NewRewardService(db *gorm.DB, clock utils.Clock) *RewardService {
	return &RewardService{DB: db, Clock: clock}
}

// AwardResult is the post-award balance snapshot returned to the caller.
type AwardResult struct {
	Coins             int64 `json:"coins"`
	DailyCoinEarnings int64 `json:"daily_coin_earnings"`
}

// Award applies the coin policy for one activity: lazy daily reset, cap
// check, balance update, ledger append, and (for visits) the idempotent
// visit marker — all in one DB transaction. The balance write is a
// compare-and-swap on the values read at the top of the transaction, so two
// concurrent awards can never both pass the cap check against stale state.
func (s *RewardService) Award(externalUserID string, activity models.TransactionType, description string) (*AwardResult, error) {
	reward, ok := ActivityRewards[activity]
	if !ok {
		return nil, ErrInvalidActivity
	}
	if description == "" {
		description = fmt.Sprintf("%s reward", activity)
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		result, err := s.tryAward(externalUserID, activity, reward, description)
		if errors.Is(err, errCASMiss) {
			log.Printf("[AWARD] stale read for user %s (attempt %d), retrying", externalUserID, attempt+1)
			continue
		}
		return result, err
	}
	return nil, ErrConcurrentUpdate
}

func (s *RewardService) tryAward(externalUserID string, activity models.TransactionType, reward ActivityReward, description string) (*AwardResult, error) {
	today := utils.DateUTC(s.Clock.Now())

	var result *AwardResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var acct models.RewardAccount
		if err := tx.Where("external_user_id = ?", externalUserID).First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// Lazy reset: the stored counter only counts if it is today's.
		effective := int64(0)
		if acct.LastVisitDate != nil && *acct.LastVisitDate == today {
			effective = acct.DailyCoinEarnings
		}

		newDaily := effective
		if !reward.CapExempt {
			if effective+reward.Amount > DailyCoinLimit {
				return ErrDailyLimitExceeded
			}
			newDaily = effective + reward.Amount
		}
		newCoins := acct.Coins + reward.Amount

		update := tx.Model(&models.RewardAccount{}).
			Where("id = ? AND coins = ? AND daily_coin_earnings = ?", acct.ID, acct.Coins, acct.DailyCoinEarnings).
			Updates(map[string]interface{}{
				"coins":               newCoins,
				"daily_coin_earnings": newDaily,
				"last_visit_date":     today,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return errCASMiss
		}

		entry := models.CoinTransaction{
			ID:          uuid.NewString(),
			UserID:      externalUserID,
			Type:        activity,
			Amount:      reward.Amount,
			Description: description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if activity == models.TxVisit {
			if err := s.recordVisit(tx, &acct, today); err != nil {
				return err
			}
		}

		result = &AwardResult{Coins: newCoins, DailyCoinEarnings: newDaily}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[AWARD] 🪙 %s +%d (%s) → coins=%d, daily=%d",
		externalUserID, reward.Amount, activity, result.Coins, result.DailyCoinEarnings)
	return result, nil
}

// recordVisit inserts today's visit marker if absent and, only when a new
// row was actually created, maintains the login streak.
func (s *RewardService) recordVisit(tx *gorm.DB, acct *models.RewardAccount, today string) error {
	visit := models.UserVisit{
		ID:        uuid.NewString(),
		UserID:    acct.ExternalUserID,
		VisitDate: today,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "visit_date"}},
		DoNothing: true,
	}).Create(&visit)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // already visited today
	}

	yesterday := utils.DateUTC(s.Clock.Now().AddDate(0, 0, -1))
	var visitedYesterday int64
	if err := tx.Model(&models.UserVisit{}).
		Where("user_id = ? AND visit_date = ?", acct.ExternalUserID, yesterday).
		Count(&visitedYesterday).Error; err != nil {
		return err
	}

	streak := 1
	if visitedYesterday > 0 {
		streak = acct.LoginStreak + 1
	}
	return tx.Model(&models.RewardAccount{}).
		Where("id = ?", acct.ID).
		Update("login_streak", streak).Error
}

// RedeemResult is the post-redemption balance snapshot.
type RedeemResult struct {
	Coins         int64 `json:"coins"`
	FairPlayCoins int64 `json:"fair_play_coins"`
}

// RedeemFairCoin converts one fair-play coin into coins at the fixed rate.
func (s *RewardService) RedeemFairCoin(externalUserID string) (*RedeemResult, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		result, err := s.tryRedeemFairCoin(externalUserID)
		if errors.Is(err, errCASMiss) {
			continue
		}
		return result, err
	}
	return nil, ErrConcurrentUpdate
}

func (s *RewardService) tryRedeemFairCoin(externalUserID string) (*RedeemResult, error) {
	var result *RedeemResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var acct models.RewardAccount
		if err := tx.Where("external_user_id = ?", externalUserID).First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if acct.FairPlayCoins < 1 {
			return ErrInsufficientFairCoins
		}

		newCoins := acct.Coins + FairCoinRedeemValue
		newFair := acct.FairPlayCoins - 1

		update := tx.Model(&models.RewardAccount{}).
			Where("id = ? AND coins = ? AND fair_play_coins = ?", acct.ID, acct.Coins, acct.FairPlayCoins).
			Updates(map[string]interface{}{
				"coins":           newCoins,
				"fair_play_coins": newFair,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return errCASMiss
		}

		entry := models.CoinTransaction{
			ID:          uuid.NewString(),
			UserID:      externalUserID,
			Type:        models.TxFairCoinRedeem,
			Amount:      FairCoinRedeemValue,
			Description: "Fair play coin redeemed",
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &RedeemResult{Coins: newCoins, FairPlayCoins: newFair}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RedeemCash converts CashRedeemAmount coins into a cash-out request. Only
// the ledger record is produced here; the payout itself is handled
// out-of-band by an operator.
func (s *RewardService) RedeemCash(externalUserID string) (int64, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		coins, err := s.tryRedeemCash(externalUserID)
		if errors.Is(err, errCASMiss) {
			continue
		}
		return coins, err
	}
	return 0, ErrConcurrentUpdate
}

func (s *RewardService) tryRedeemCash(externalUserID string) (int64, error) {
	var newCoins int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var acct models.RewardAccount
		if err := tx.Where("external_user_id = ?", externalUserID).First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if acct.Coins < CashRedeemAmount {
			return ErrInsufficientBalance
		}
		newCoins = acct.Coins - CashRedeemAmount

		update := tx.Model(&models.RewardAccount{}).
			Where("id = ? AND coins = ?", acct.ID, acct.Coins).
			Update("coins", newCoins)
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return errCASMiss
		}

		entry := models.CoinTransaction{
			ID:          uuid.NewString(),
			UserID:      externalUserID,
			Type:        models.TxRedeem,
			Amount:      -CashRedeemAmount,
			Description: "Cash redemption request",
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[REDEEM] 💸 cash-out recorded for %s, remaining coins=%d", externalUserID, newCoins)
	return newCoins, nil
}

// GrantCoins is the admin path: cap-exempt, always logged with the reason.
func (s *RewardService) GrantCoins(externalUserID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidActivity
	}
	if reason == "" {
		reason = "Admin grant"
	}

	var newCoins int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var acct models.RewardAccount
		if err := tx.Where("external_user_id = ?", externalUserID).First(&acct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if err := tx.Model(&models.RewardAccount{}).
			Where("id = ?", acct.ID).
			Update("coins", gorm.Expr("coins + ?", amount)).Error; err != nil {
			return err
		}

		// Re-read inside the transaction: the increment is expression-based,
		// so the pre-read value may be stale by now.
		var updated models.RewardAccount
		if err := tx.Where("id = ?", acct.ID).First(&updated).Error; err != nil {
			return err
		}
		newCoins = updated.Coins

		entry := models.CoinTransaction{
			ID:          uuid.NewString(),
			UserID:      externalUserID,
			Type:        models.TxAdmin,
			Amount:      amount,
			Description: reason,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return 0, err
	}
	return newCoins, nil
}

// RewardData is the user-facing reward snapshot.
type RewardData struct {
	Coins         int64                    `json:"coins"`
	FairPlayCoins int64                    `json:"fair_play_coins"`
	LoginStreak   int                      `json:"login_streak"`
	Transactions  []models.CoinTransaction `json:"transactions"`
}

// GetRewardData returns balances plus the 20 most recent ledger entries.
func (s *RewardService) GetRewardData(externalUserID string) (*RewardData, error) {
	var acct models.RewardAccount
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var transactions []models.CoinTransaction
	if err := s.DB.Where("user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(20).
		Find(&transactions).Error; err != nil {
		return nil, err
	}

	return &RewardData{
		Coins:         acct.Coins,
		FairPlayCoins: acct.FairPlayCoins,
		LoginStreak:   acct.LoginStreak,
		Transactions:  transactions,
	}, nil
}

// AdminRewardRow is one line of the admin overview.
type AdminRewardRow struct {
	ExternalUserID   string `json:"id"`
	Email            string `json:"email"`
	Coins            int64  `json:"coins"`
	FairPlayCoins    int64  `json:"fair_play_coins"`
	TransactionCount int64  `json:"transaction_count"`
}

// GetAllRewards returns the per-user balance overview for the admin panel.
func (s *RewardService) GetAllRewards() ([]AdminRewardRow, error) {
	var rows []AdminRewardRow
	err := s.DB.Model(&models.RewardAccount{}).
		Select("reward_accounts.external_user_id, reward_accounts.email, reward_accounts.coins, reward_accounts.fair_play_coins, COUNT(coin_transactions.id) AS transaction_count").
		Joins("LEFT JOIN coin_transactions ON coin_transactions.user_id = reward_accounts.external_user_id").
		Group("reward_accounts.id").
		Order("reward_accounts.coins DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
