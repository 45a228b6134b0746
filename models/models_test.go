package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntent(t *testing.T) {
	t.Run("AllIntentsValid", func(t *testing.T) {
		for _, intent := range AllIntents() {
			assert.True(t, intent.Valid(), "intent %s", intent)
		}
	})

	t.Run("UnknownLabelInvalid", func(t *testing.T) {
		assert.False(t, Intent("SHRUG").Valid())
		assert.False(t, Intent("").Valid())
	})
}

func TestLeadStatus(t *testing.T) {
	t.Run("PreConfirmation", func(t *testing.T) {
		assert.True(t, LeadStatusNew.IsPreConfirmation())
		assert.True(t, LeadStatusNeedsCorrection.IsPreConfirmation())
		assert.False(t, LeadStatusConfirmed.IsPreConfirmation())
		assert.False(t, LeadStatusProblemReported.IsPreConfirmation())
	})

	t.Run("Valid", func(t *testing.T) {
		for _, s := range []LeadStatus{
			LeadStatusNew, LeadStatusConfirmed, LeadStatusNeedsCorrection,
			LeadStatusProblemReported, LeadStatusRequirementReceived,
			LeadStatusFollowUpRequested, LeadStatusTaskAssigned,
		} {
			assert.True(t, s.Valid(), "status %s", s)
		}
		assert.False(t, LeadStatus("archived").Valid())
	})
}

func TestAssignmentStatus(t *testing.T) {
	assert.False(t, AssignmentStatusActive.IsTerminal())
	assert.False(t, AssignmentStatusPaused.IsTerminal())
	assert.True(t, AssignmentStatusStopped.IsTerminal())
}

func TestMessageStatus(t *testing.T) {
	t.Run("TerminalStates", func(t *testing.T) {
		assert.True(t, MessageStatusSent.IsTerminal())
		assert.True(t, MessageStatusFailed.IsTerminal())
		assert.True(t, MessageStatusCancelled.IsTerminal())
		assert.True(t, MessageStatusSkipped.IsTerminal())
	})

	t.Run("LiveStates", func(t *testing.T) {
		assert.False(t, MessageStatusPending.IsTerminal())
		assert.False(t, MessageStatusClaimed.IsTerminal())
	})
}

func TestMessageSlotScheduledFor(t *testing.T) {
	base := time.Date(2026, 8, 3, 14, 25, 0, 0, time.UTC)

	t.Run("DayZeroFiresInOneMinute", func(t *testing.T) {
		slot := &MessageSlot{DayOffset: 0, TimeOfDay: "10:00"}
		got, err := slot.ScheduledFor(base)
		require.NoError(t, err)
		assert.Equal(t, base.Add(time.Minute), got)
	})

	t.Run("DayNUsesSlotWallClock", func(t *testing.T) {
		slot := &MessageSlot{DayOffset: 3, TimeOfDay: "09:30"}
		got, err := slot.ScheduledFor(base)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 6, 9, 30, 0, 0, time.UTC), got)
	})

	t.Run("BareHour", func(t *testing.T) {
		slot := &MessageSlot{DayOffset: 1, TimeOfDay: "18"}
		got, err := slot.ScheduledFor(base)
		require.NoError(t, err)
		assert.Equal(t, 18, got.Hour())
		assert.Equal(t, 0, got.Minute())
	})

	t.Run("NegativeOffsetRejected", func(t *testing.T) {
		slot := &MessageSlot{DayOffset: -1, TimeOfDay: "10:00"}
		_, err := slot.ScheduledFor(base)
		assert.Error(t, err)
	})

	t.Run("BadTimeOfDayRejected", func(t *testing.T) {
		slot := &MessageSlot{DayOffset: 2, TimeOfDay: "25:00"}
		_, err := slot.ScheduledFor(base)
		assert.Error(t, err)
	})
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseTimeOfDay("10:60")
	assert.Error(t, err)

	_, _, err = ParseTimeOfDay("half past nine")
	assert.Error(t, err)
}

func TestManualFollowUpTier(t *testing.T) {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	f := &ManualFollowUp{CreatedAt: created}

	assert.Equal(t, EscalationTierFirst, f.Tier(created.Add(2*time.Hour)))
	assert.Equal(t, EscalationTierFirst, f.Tier(created.Add(71*time.Hour)))
	assert.Equal(t, EscalationTierSecond, f.Tier(created.Add(72*time.Hour)))
	assert.Equal(t, EscalationTierSecond, f.Tier(created.Add(119*time.Hour)))
	assert.Equal(t, EscalationTierThird, f.Tier(created.Add(120*time.Hour)))
	assert.Equal(t, EscalationTierThird, f.Tier(created.Add(900*time.Hour)))
}

func TestFollowUpStatus(t *testing.T) {
	assert.False(t, FollowUpStatusPending.IsTerminal())
	assert.True(t, FollowUpStatusCompleted.IsTerminal())
	assert.True(t, FollowUpStatusCancelled.IsTerminal())
	assert.True(t, FollowUpStatusFailed.IsTerminal())
}
