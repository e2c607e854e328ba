// services/referral_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"game-rewards-system/models"
	"game-rewards-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	// ConfirmedReferralBonus pays out on the token-confirmed flow.
	ConfirmedReferralBonus = 2000
	// CodeReferralBonus pays out immediately on the code-based flow.
	CodeReferralBonus = 1000
)

var (
	ErrReferredUserNotFound = errors.New("referred user not found")
	ErrSelfReferral         = errors.New("cannot refer yourself")
	ErrDuplicateReferral    = errors.New("referral already exists for this pair")
	ErrReferralTokenInvalid = errors.New("invalid or already consumed referral token")
	ErrReferralCodeInvalid  = errors.New("invalid referral code")
	ErrAlreadyReferred      = errors.New("user was already referred")
)

type ReferralService struct {
	DB    *gorm.DB
	Clock utils.Clock
}

func NewReferralService(db *gorm.DB, clock utils.Clock) *ReferralService {
	return &ReferralService{DB: db, Clock: clock}
}

// NewReferralCode mints a shareable code from the username plus a random
// suffix. Used by the account sync worker when it first sees a user.
func NewReferralCode(username string) string {
	base := slug.Make(username)
	if base == "" {
		base = "player"
	}
	return fmt.Sprintf("%s-%s", base, strings.Split(uuid.NewString(), "-")[0])
}

// CreateReferral opens the token flow: it records a pending referral and
// returns the single-use token. No coins move until confirmation, so merely
// knowing someone's email address credits nothing.
func (s *ReferralService) CreateReferral(referrerID, referredEmail string) (string, error) {
	var referrer models.RewardAccount
	if err := s.DB.Where("external_user_id = ?", referrerID).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	var referred models.RewardAccount
	if err := s.DB.Where("email = ?", referredEmail).First(&referred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrReferredUserNotFound
		}
		return "", err
	}

	if referred.ExternalUserID == referrerID {
		return "", ErrSelfReferral
	}

	var existing int64
	if err := s.DB.Model(&models.Referral{}).
		Where("referrer_id = ? AND referred_id = ?", referrerID, referred.ExternalUserID).
		Count(&existing).Error; err != nil {
		return "", err
	}
	if existing > 0 {
		return "", ErrDuplicateReferral
	}

	referral := models.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrerID,
		ReferredID: referred.ExternalUserID,
		Status:     models.ReferralStatusPending,
		Token:      uuid.NewString(),
	}
	if err := s.DB.Create(&referral).Error; err != nil {
		// the pair index closes the check-then-insert race
		return "", ErrDuplicateReferral
	}

	log.Printf("[REFERRAL] ✉️ pending referral %s → %s", referrerID, referred.ExternalUserID)
	return referral.Token, nil
}

// ConfirmReferral completes the token flow and pays the referrer. The status
// transition is a conditional update on status=pending, which is what makes
// the token single-use even under concurrent confirmation attempts.
func (s *ReferralService) ConfirmReferral(token string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var referral models.Referral
		if err := tx.Where("token = ? AND status = ?", token, models.ReferralStatusPending).
			First(&referral).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferralTokenInvalid
			}
			return err
		}

		now := s.Clock.Now()
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND status = ?", referral.ID, models.ReferralStatusPending).
			Updates(map[string]interface{}{
				"status":       models.ReferralStatusCompleted,
				"confirmed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReferralTokenInvalid
		}

		if _, err := s.payReferrer(tx, referral.ReferrerID, referral.ReferredID, ConfirmedReferralBonus); err != nil {
			return err
		}

		// Record the relationship on the referred account, once.
		if err := tx.Model(&models.RewardAccount{}).
			Where("external_user_id = ? AND referred_by IS NULL", referral.ReferredID).
			Update("referred_by", referral.ReferrerID).Error; err != nil {
			return err
		}

		log.Printf("[REFERRAL] ✅ confirmed %s → %s (+%d)", referral.ReferrerID, referral.ReferredID, ConfirmedReferralBonus)
		return nil
	})
}

// ProcessReferralCode is the self-serve flow: the referred user presents a
// referral code at signup and the referrer is paid immediately. Returns the
// referrer's new coin balance.
func (s *ReferralService) ProcessReferralCode(userID, code string) (int64, error) {
	var referrer models.RewardAccount
	if err := s.DB.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrReferralCodeInvalid
		}
		return 0, err
	}

	if referrer.ExternalUserID == userID {
		return 0, ErrSelfReferral
	}

	var referred models.RewardAccount
	if err := s.DB.Where("external_user_id = ?", userID).First(&referred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	if referred.ReferredBy != nil {
		return 0, ErrAlreadyReferred
	}

	var referrerCoins int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RewardAccount{}).
			Where("external_user_id = ? AND referred_by IS NULL", userID).
			Update("referred_by", referrer.ExternalUserID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReferred
		}

		now := s.Clock.Now()
		referral := models.Referral{
			ID:          uuid.NewString(),
			ReferrerID:  referrer.ExternalUserID,
			ReferredID:  userID,
			Status:      models.ReferralStatusCompleted,
			Token:       uuid.NewString(),
			ConfirmedAt: &now,
		}
		if err := tx.Create(&referral).Error; err != nil {
			return ErrDuplicateReferral
		}

		var err error
		referrerCoins, err = s.payReferrer(tx, referrer.ExternalUserID, userID, CodeReferralBonus)
		return err
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[REFERRAL] ✅ code %s applied by %s (+%d to %s)", code, userID, CodeReferralBonus, referrer.ExternalUserID)
	return referrerCoins, nil
}

// payReferrer credits the bonus outside the daily cap and appends the ledger
// entry. The increment is expression-based so it cannot lose a concurrent
// award's update. Returns the referrer's balance as of this transaction —
// callers must not re-read it after commit, where unrelated awards could
// already have landed.
func (s *ReferralService) payReferrer(tx *gorm.DB, referrerID, referredID string, bonus int64) (int64, error) {
	res := tx.Model(&models.RewardAccount{}).
		Where("external_user_id = ?", referrerID).
		Update("coins", gorm.Expr("coins + ?", bonus))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrUserNotFound
	}

	var acct models.RewardAccount
	if err := tx.Where("external_user_id = ?", referrerID).First(&acct).Error; err != nil {
		return 0, err
	}

	entry := models.CoinTransaction{
		ID:          uuid.NewString(),
		UserID:      referrerID,
		Type:        models.TxReferral,
		Amount:      bonus,
		Description: fmt.Sprintf("Referral bonus for inviting %s", referredID),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}
	return acct.Coins, nil
}
