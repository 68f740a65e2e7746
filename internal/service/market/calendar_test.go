package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegularSession(t *testing.T) {
	c, err := New("America/New_York", "09:30", "16:00")
	require.NoError(t, err)

	loc, _ := time.LoadLocation("America/New_York")
	// Tuesday 2024-10-08
	assert.True(t, c.IsOpen(time.Date(2024, 10, 8, 9, 30, 0, 0, loc)))
	assert.True(t, c.IsOpen(time.Date(2024, 10, 8, 15, 59, 0, 0, loc)))
	assert.False(t, c.IsOpen(time.Date(2024, 10, 8, 9, 29, 0, 0, loc)))
	assert.False(t, c.IsOpen(time.Date(2024, 10, 8, 16, 0, 0, 0, loc)))
	// Saturday
	assert.False(t, c.IsOpen(time.Date(2024, 10, 12, 12, 0, 0, 0, loc)))
}

func TestTimezoneConversion(t *testing.T) {
	c, err := New("America/New_York", "09:30", "16:00")
	require.NoError(t, err)

	// 14:00 UTC on a Tuesday is 10:00 in New York (EDT): open.
	assert.True(t, c.IsOpen(time.Date(2024, 10, 8, 14, 0, 0, 0, time.UTC)))
	// 03:00 UTC is 23:00 the previous evening: closed.
	assert.False(t, c.IsOpen(time.Date(2024, 10, 8, 3, 0, 0, 0, time.UTC)))
}

func TestInvalidConfig(t *testing.T) {
	_, err := New("Mars/Olympus", "09:30", "16:00")
	assert.Error(t, err)

	_, err = New("", "16:00", "09:30")
	assert.Error(t, err)
}
