package helpers_test

import (
	"testing"
	"time"

	"bed-booking-service/internal/pkg/helpers"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	d, err := helpers.ParseDate("2024-08-01")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = helpers.ParseDate("01/08/2024")
	assert.Error(t, err)
}

func TestTruncateDay(t *testing.T) {
	in := time.Date(2024, 8, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), helpers.TruncateDay(in))
}

func TestDurationCalculation(t *testing.T) {
	assert.Equal(t, time.Duration(0), helpers.DurationCalculation(time.Now().Add(-time.Hour)))
	assert.True(t, helpers.DurationCalculation(time.Now().Add(time.Hour)) > 59*time.Minute)
}
