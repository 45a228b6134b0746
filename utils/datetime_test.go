package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDateTimeFromText(t *testing.T) {
	// Wednesday 15 July 2026, 09:30 UTC
	now := time.Date(2026, 7, 15, 9, 30, 0, 0, time.UTC)

	t.Run("TomorrowWithTime", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("demo tomorrow at 3 pm", now)
		assert.True(t, ok)
		assert.Equal(t, time.Date(2026, 7, 16, 15, 0, 0, 0, time.UTC), got)
	})

	t.Run("TomorrowDefaultsToFourPM", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("let's meet tomorrow", now)
		assert.True(t, ok)
		assert.Equal(t, time.Date(2026, 7, 16, 16, 0, 0, 0, time.UTC), got)
	})

	t.Run("TodayWithMinutes", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("call today at 11:45 am", now)
		assert.True(t, ok)
		assert.Equal(t, time.Date(2026, 7, 15, 11, 45, 0, 0, time.UTC), got)
	})

	t.Run("HindiTomorrow", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("kal milte hain", now)
		assert.True(t, ok)
		assert.Equal(t, 16, got.Day())
	})

	t.Run("InNDays", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("in 2 days", now)
		assert.True(t, ok)
		// The day count is not a time of day; the default 16:00 applies
		assert.Equal(t, time.Date(2026, 7, 17, 16, 0, 0, 0, time.UTC), got)
	})

	t.Run("InNDaysWithTime", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("in 2 days at 4:30 pm", now)
		assert.True(t, ok)
		assert.Equal(t, time.Date(2026, 7, 17, 16, 30, 0, 0, time.UTC), got)
	})

	t.Run("NextWeekday", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("monday at 11 am", now)
		assert.True(t, ok)
		// Next Monday after Wednesday 15 July is 20 July
		assert.Equal(t, time.Date(2026, 7, 20, 11, 0, 0, 0, time.UTC), got)
	})

	t.Run("SameWeekdayRollsAWeek", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("wednesday at 10 am", now)
		assert.True(t, ok)
		assert.Equal(t, time.Date(2026, 7, 22, 10, 0, 0, 0, time.UTC), got)
	})

	t.Run("TwelveAMIsMidnight", func(t *testing.T) {
		got, ok := ParseDateTimeFromText("tomorrow at 12 am", now)
		assert.True(t, ok)
		assert.Equal(t, 0, got.Hour())
	})

	t.Run("NoDate", func(t *testing.T) {
		_, ok := ParseDateTimeFromText("sounds good, thanks", now)
		assert.False(t, ok)
	})
}

func TestExtractMentionedName(t *testing.T) {
	assert.Equal(t, "Minesh", ExtractMentionedName("schedule demo with Minesh"))
	assert.Equal(t, "Priya", ExtractMentionedName("assigned to Priya for review"))
	assert.Equal(t, "", ExtractMentionedName("schedule a demo next week"))
}
