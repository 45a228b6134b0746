package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	testingutil "github.com/engageworks/drip-engine/testing"
	"github.com/engageworks/drip-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDripFlow(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures, DripFlow) {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	if errors.Is(err, testingutil.ErrNoTestDatabase) {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	fixtures := testingutil.NewTestFixtures(testDB)
	flow := NewDripFlow(
		testDB.DB,
		repository.NewLeadRepository(testDB.DB),
		repository.NewDripTemplateRepository(testDB.DB),
		repository.NewLeadDripAssignmentRepository(testDB.DB),
		repository.NewScheduledMessageRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
	)
	return testDB, fixtures, flow
}

func defaultSlots() []testingutil.SlotSpec {
	return []testingutil.SlotSpec{
		{DayOffset: 0, TimeOfDay: "10:00", Body: "Hi {{name}}, thanks for connecting."},
		{DayOffset: 2, TimeOfDay: "09:30", Body: "Hi {{name}}, did you get a chance to review?"},
		{DayOffset: 5, TimeOfDay: "15:00", Body: "Hi {{name}}, closing the loop."},
	}
}

func TestDripFlowApply(t *testing.T) {
	testDB, fixtures, flow := setupDripFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", defaultSlots())
	require.NoError(t, err)

	t.Run("SchedulesAllSlots", func(t *testing.T) {
		before := utils.UTCNow()
		resp, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, resp.ScheduledCount)
		assert.False(t, resp.StoppedPrevious)

		var messages []models.ScheduledMessage
		require.NoError(t, testDB.DB.Where("assignment_id = ?", resp.AssignmentID).Order("scheduled_at").Find(&messages).Error)
		require.Len(t, messages, 3)

		// Day-zero slot fires roughly one minute out
		assert.WithinDuration(t, before.Add(time.Minute), messages[0].ScheduledAt, 5*time.Second)

		// Day-two slot lands on the slot's wall clock two days ahead
		dayTwo := messages[1].ScheduledAt.UTC()
		assert.Equal(t, before.AddDate(0, 0, 2).Day(), dayTwo.Day())
		assert.Equal(t, 9, dayTwo.Hour())
		assert.Equal(t, 30, dayTwo.Minute())
	})

	t.Run("ReapplyStopsPreviousAndCancelsPending", func(t *testing.T) {
		resp, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
		require.NoError(t, err)
		assert.True(t, resp.StoppedPrevious)

		var stopped int64
		require.NoError(t, testDB.DB.Model(&models.LeadDripAssignment{}).
			Where("lead_id = ? AND status = ?", lead.ID, models.AssignmentStatusStopped).
			Count(&stopped).Error)
		assert.Equal(t, int64(1), stopped)

		// Only the new assignment may hold pending messages
		var pendingElsewhere int64
		require.NoError(t, testDB.DB.Model(&models.ScheduledMessage{}).
			Where("lead_id = ? AND status = ? AND assignment_id <> ?", lead.ID, models.MessageStatusPending, resp.AssignmentID).
			Count(&pendingElsewhere).Error)
		assert.Zero(t, pendingElsewhere)
	})

	t.Run("LeadNotFound", func(t *testing.T) {
		_, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: 999999, TemplateID: template.ID}, nil)
		assert.True(t, IsLeadNotFound(err))
	})

	t.Run("TemplateNotFound", func(t *testing.T) {
		_, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: 999999}, nil)
		assert.True(t, IsTemplateNotFound(err))
	})

	t.Run("InactiveTemplateRejected", func(t *testing.T) {
		inactive, err := fixtures.CreateTestTemplate("retired", defaultSlots())
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(inactive).Update("is_active", false).Error)

		_, err = flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: inactive.ID}, nil)
		assert.True(t, IsTemplateInactive(err))
	})

	t.Run("EmptyTemplateRejected", func(t *testing.T) {
		empty, err := fixtures.CreateTestTemplate("empty", nil)
		require.NoError(t, err)

		_, err = flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: empty.ID}, nil)
		assert.True(t, IsTemplateHasNoSlots(err))
	})
}

func TestDripFlowStop(t *testing.T) {
	testDB, fixtures, flow := setupDripFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", defaultSlots())
	require.NoError(t, err)

	applied, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)

	t.Run("CancelsAllPending", func(t *testing.T) {
		resp, err := flow.Stop(ctx, &dto.StopDripRequest{LeadID: lead.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.StoppedAssignments)
		assert.Equal(t, int64(3), resp.CancelledMessages)

		var pending int64
		require.NoError(t, testDB.DB.Model(&models.ScheduledMessage{}).
			Where("assignment_id = ? AND status = ?", applied.AssignmentID, models.MessageStatusPending).
			Count(&pending).Error)
		assert.Zero(t, pending)
	})

	t.Run("StopWithoutLiveAssignment", func(t *testing.T) {
		_, err := flow.Stop(ctx, &dto.StopDripRequest{LeadID: lead.ID}, nil)
		assert.True(t, IsAssignmentNotFound(err))
	})

	t.Run("StopByAssignmentIDOfOtherLead", func(t *testing.T) {
		other, err := fixtures.CreateTestLead()
		require.NoError(t, err)
		_, err = flow.Stop(ctx, &dto.StopDripRequest{LeadID: other.ID, AssignmentID: &applied.AssignmentID}, nil)
		assert.True(t, IsAssignmentNotFound(err))
	})
}

func TestDripFlowPauseResume(t *testing.T) {
	testDB, fixtures, flow := setupDripFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", defaultSlots())
	require.NoError(t, err)

	applied, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)

	t.Run("PauseKeepsMessagesPending", func(t *testing.T) {
		require.NoError(t, flow.Pause(ctx, &dto.PauseDripRequest{LeadID: lead.ID}, nil))

		var assignment models.LeadDripAssignment
		require.NoError(t, testDB.DB.First(&assignment, applied.AssignmentID).Error)
		assert.Equal(t, models.AssignmentStatusPaused, assignment.Status)
		assert.NotNil(t, assignment.PausedAt)

		var pending int64
		require.NoError(t, testDB.DB.Model(&models.ScheduledMessage{}).
			Where("assignment_id = ? AND status = ?", applied.AssignmentID, models.MessageStatusPending).
			Count(&pending).Error)
		assert.Equal(t, int64(3), pending)
	})

	t.Run("PauseAlreadyPaused", func(t *testing.T) {
		err := flow.Pause(ctx, &dto.PauseDripRequest{LeadID: lead.ID}, nil)
		assert.True(t, IsAssignmentNotActive(err))
	})

	t.Run("ResumeReactivates", func(t *testing.T) {
		require.NoError(t, flow.Resume(ctx, &dto.ResumeDripRequest{LeadID: lead.ID}, nil))

		var assignment models.LeadDripAssignment
		require.NoError(t, testDB.DB.First(&assignment, applied.AssignmentID).Error)
		assert.Equal(t, models.AssignmentStatusActive, assignment.Status)
	})

	t.Run("ResumeActiveRejected", func(t *testing.T) {
		err := flow.Resume(ctx, &dto.ResumeDripRequest{LeadID: lead.ID}, nil)
		assert.True(t, IsAssignmentNotPaused(err))
	})
}

func TestDripFlowSkipMessage(t *testing.T) {
	testDB, fixtures, flow := setupDripFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", defaultSlots())
	require.NoError(t, err)

	applied, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)

	var message models.ScheduledMessage
	require.NoError(t, testDB.DB.Where("assignment_id = ?", applied.AssignmentID).Order("scheduled_at").First(&message).Error)

	t.Run("SkipsPending", func(t *testing.T) {
		require.NoError(t, flow.SkipMessage(ctx, message.ID, nil))

		var reloaded models.ScheduledMessage
		require.NoError(t, testDB.DB.First(&reloaded, message.ID).Error)
		assert.Equal(t, models.MessageStatusSkipped, reloaded.Status)
	})

	t.Run("TerminalIsNoOp", func(t *testing.T) {
		require.NoError(t, flow.SkipMessage(ctx, message.ID, nil))

		var reloaded models.ScheduledMessage
		require.NoError(t, testDB.DB.First(&reloaded, message.ID).Error)
		assert.Equal(t, models.MessageStatusSkipped, reloaded.Status)
	})

	t.Run("UnknownMessage", func(t *testing.T) {
		err := flow.SkipMessage(ctx, 999999, nil)
		assert.True(t, IsMessageNotFound(err))
	})
}

func TestDripFlowStatus(t *testing.T) {
	_, fixtures, flow := setupDripFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", defaultSlots())
	require.NoError(t, err)

	applied, err := flow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)
	require.NoError(t, flow.SkipMessage(ctx, firstMessageID(t, flow, applied.AssignmentID), nil))

	resp, err := flow.Status(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)

	status := resp.Assignments[0]
	assert.Equal(t, applied.AssignmentID, status.AssignmentID)
	assert.Equal(t, "onboarding", status.TemplateName)
	assert.Equal(t, models.AssignmentStatusActive.String(), status.Status)

	// The per-message schedule is listed alongside the counters, in firing order
	require.Len(t, resp.ScheduledMessages, 3)
	assert.Equal(t, []int{0, 2, 5}, []int{
		resp.ScheduledMessages[0].DayOffset,
		resp.ScheduledMessages[1].DayOffset,
		resp.ScheduledMessages[2].DayOffset,
	})
	assert.Equal(t, models.MessageStatusSkipped.String(), resp.ScheduledMessages[0].Status)
	assert.Equal(t, models.MessageStatusPending.String(), resp.ScheduledMessages[1].Status)
	for _, message := range resp.ScheduledMessages {
		assert.Equal(t, applied.AssignmentID, message.AssignmentID)
		assert.NotEmpty(t, message.ScheduledAt)
	}
}

// firstMessageID loads the earliest scheduled message of an assignment
func firstMessageID(t *testing.T, flow DripFlow, assignmentID uint) uint {
	t.Helper()
	impl, ok := flow.(*DripFlowImpl)
	require.True(t, ok)

	var message models.ScheduledMessage
	require.NoError(t, impl.db.Session(&gorm.Session{}).
		Where("assignment_id = ?", assignmentID).Order("scheduled_at").First(&message).Error)
	return message.ID
}
