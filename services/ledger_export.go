// services/ledger_export.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"game-rewards-system/models"
	"game-rewards-system/utils"

	"gorm.io/gorm"
)

// ErrExportDisabled means R2 is not configured; the scheduled job logs and
// skips, the admin endpoint surfaces it.
var ErrExportDisabled = errors.New("ledger export disabled: R2 not configured")

// LedgerExportService dumps the full transaction ledger to object storage as
// a CSV audit snapshot.
type LedgerExportService struct {
	DB    *gorm.DB
	Clock utils.Clock
}

func NewLedgerExportService(db *gorm.DB, clock utils.Clock) *LedgerExportService {
	return &LedgerExportService{DB: db, Clock: clock}
}

// Export serializes every ledger row and uploads it under
// ledger-exports/<date>.csv. Returns the object key.
func (s *LedgerExportService) Export(ctx context.Context) (string, error) {
	if !utils.R2Configured() {
		return "", ErrExportDisabled
	}

	var transactions []models.CoinTransaction
	if err := s.DB.Order("created_at ASC").Find(&transactions).Error; err != nil {
		return "", fmt.Errorf("failed to read ledger: %w", err)
	}

	payload, err := marshalLedgerCSV(transactions)
	if err != nil {
		return "", fmt.Errorf("failed to serialize ledger: %w", err)
	}

	key := fmt.Sprintf("ledger-exports/%s.csv", utils.DateUTC(s.Clock.Now()))
	if err := utils.UploadBytesToR2(ctx, key, payload, "text/csv"); err != nil {
		return "", err
	}

	log.Printf("[EXPORT] 📦 uploaded %d ledger row(s) to %s", len(transactions), key)
	return key, nil
}

func marshalLedgerCSV(transactions []models.CoinTransaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "user_id", "type", "amount", "description", "created_at"})
	for _, t := range transactions {
		_ = w.Write([]string{
			t.ID,
			t.UserID,
			string(t.Type),
			strconv.FormatInt(t.Amount, 10),
			t.Description,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
