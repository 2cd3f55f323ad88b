package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextStreakFirstCompletionStartsAtOne(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, nextStreak(nil, 0, now))
}

func TestNextStreakExtendsOnConsecutiveDay(t *testing.T) {
	yesterday := time.Date(2025, 3, 9, 23, 55, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, 5, nextStreak(&yesterday, 4, now))
}

func TestNextStreakUnchangedOnSameDay(t *testing.T) {
	earlier := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	later := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, 4, nextStreak(&earlier, 4, later))
}

func TestNextStreakResetsAfterGap(t *testing.T) {
	old := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, nextStreak(&old, 9, now))
}

func TestNextStreakUsesUTCDayBoundaries(t *testing.T) {
	// 23:30 UTC-5 on March 9 is already March 10 in UTC.
	loc := time.FixedZone("EST", -5*3600)
	last := time.Date(2025, 3, 9, 23, 30, 0, 0, loc)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, nextStreak(&last, 3, now), "same UTC day keeps the streak")
}
