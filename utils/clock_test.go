package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateUTCNormalizesZone(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	local := time.Date(2025, 6, 11, 23, 30, 0, 0, loc)

	assert.Equal(t, "2025-06-12", DateUTC(local))
	assert.Equal(t, "2025-06-11", DateUTC(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)))
}
