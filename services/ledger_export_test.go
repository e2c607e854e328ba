package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"game-rewards-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalLedgerCSV(t *testing.T) {
	created := time.Date(2025, 6, 11, 8, 30, 0, 0, time.UTC)
	payload, err := marshalLedgerCSV([]models.CoinTransaction{
		{ID: "t1", UserID: "user-1", Type: models.TxGame, Amount: 50, Description: "game reward", CreatedAt: created},
		{ID: "t2", UserID: "user-1", Type: models.TxRedeem, Amount: -1000000, Description: "Cash redemption request", CreatedAt: created},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,user_id,type,amount,description,created_at", lines[0])
	assert.Equal(t, "t1,user-1,game,50,game reward,2025-06-11T08:30:00Z", lines[1])
	assert.Equal(t, "t2,user-1,redeem,-1000000,Cash redemption request,2025-06-11T08:30:00Z", lines[2])
}

func TestExportDisabledWithoutR2(t *testing.T) {
	svc := NewLedgerExportService(newTestDB(t), &fixedClock{now: testDay})

	_, err := svc.Export(context.Background())
	assert.ErrorIs(t, err, ErrExportDisabled)
}
