package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/app/services"
	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	testingutil "github.com/engageworks/drip-engine/testing"
	"github.com/engageworks/drip-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDispatchFlow(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures, DripFlow, DispatchFlow, *services.MockWhatsAppGateway) {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	if errors.Is(err, testingutil.ErrNoTestDatabase) {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	fixtures := testingutil.NewTestFixtures(testDB)
	gateway := services.NewMockWhatsAppGateway()
	cfg := &config.DispatchConfig{
		DripInterval:     5 * time.Minute,
		FollowUpInterval: time.Hour,
		SendTimeout:      10 * time.Second,
		DefaultCountry:   "91",
	}

	leadRepo := repository.NewLeadRepository(testDB.DB)
	templateRepo := repository.NewDripTemplateRepository(testDB.DB)
	messageRepo := repository.NewScheduledMessageRepository(testDB.DB)
	followUpRepo := repository.NewManualFollowUpRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	dripFlow := NewDripFlow(testDB.DB, leadRepo, templateRepo,
		repository.NewLeadDripAssignmentRepository(testDB.DB), messageRepo, auditRepo)
	dispatchFlow := NewDispatchFlow(leadRepo, templateRepo, messageRepo, followUpRepo, auditRepo, gateway, cfg)

	return testDB, fixtures, dripFlow, dispatchFlow, gateway
}

// backdate makes every pending message of an assignment due immediately
func backdate(t *testing.T, testDB *testingutil.TestDB, assignmentID uint) {
	t.Helper()
	require.NoError(t, testDB.DB.Model(&models.ScheduledMessage{}).
		Where("assignment_id = ? AND status = ?", assignmentID, models.MessageStatusPending).
		Update("scheduled_at", utils.UTCNow().Add(-time.Minute)).Error)
}

func TestProcessDueMessages(t *testing.T) {
	testDB, fixtures, dripFlow, dispatchFlow, gateway := setupDispatchFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLeadWithPhone("9876543210")
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", []testingutil.SlotSpec{
		{DayOffset: 0, TimeOfDay: "10:00", Body: "Hi {{name}} from {{company}}"},
		{DayOffset: 1, TimeOfDay: "10:00", Body: "Checking in, {{name}}"},
	})
	require.NoError(t, err)

	applied, err := dripFlow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)

	t.Run("NothingDueYet", func(t *testing.T) {
		resp, err := dispatchFlow.ProcessDueMessages(ctx)
		require.NoError(t, err)
		assert.Zero(t, resp.Total)
	})

	t.Run("SendsDuePersonalized", func(t *testing.T) {
		backdate(t, testDB, applied.AssignmentID)

		resp, err := dispatchFlow.ProcessDueMessages(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Processed)
		assert.Zero(t, resp.Failed)
		assert.Equal(t, 2, resp.Total)

		require.Len(t, gateway.SentMessages, 2)
		assert.Equal(t, "Hi Asha Verma from Verma Industries", gateway.SentMessages[0].Body)
		assert.Equal(t, "919876543210", gateway.SentMessages[0].Recipient)

		var sent int64
		require.NoError(t, testDB.DB.Model(&models.ScheduledMessage{}).
			Where("assignment_id = ? AND status = ?", applied.AssignmentID, models.MessageStatusSent).
			Count(&sent).Error)
		assert.Equal(t, int64(2), sent)
	})

	t.Run("SecondPassIsIdempotent", func(t *testing.T) {
		resp, err := dispatchFlow.ProcessDueMessages(ctx)
		require.NoError(t, err)
		assert.Zero(t, resp.Total)
		assert.Len(t, gateway.SentMessages, 2)
	})
}

func TestProcessDueMessagesAfterStop(t *testing.T) {
	testDB, fixtures, dripFlow, dispatchFlow, gateway := setupDispatchFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLeadWithPhone("9876543211")
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", []testingutil.SlotSpec{
		{DayOffset: 0, TimeOfDay: "10:00", Body: "Hi {{name}}"},
	})
	require.NoError(t, err)

	applied, err := dripFlow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)
	backdate(t, testDB, applied.AssignmentID)

	_, err = dripFlow.Stop(ctx, &dto.StopDripRequest{LeadID: lead.ID}, nil)
	require.NoError(t, err)

	resp, err := dispatchFlow.ProcessDueMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
	assert.Empty(t, gateway.SentMessages)
}

func TestProcessDueMessagesPauseResume(t *testing.T) {
	testDB, fixtures, dripFlow, dispatchFlow, gateway := setupDispatchFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLeadWithPhone("9876543212")
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", []testingutil.SlotSpec{
		{DayOffset: 0, TimeOfDay: "10:00", Body: "Hi {{name}}"},
		{DayOffset: 1, TimeOfDay: "10:00", Body: "Checking in, {{name}}"},
	})
	require.NoError(t, err)

	applied, err := dripFlow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)
	backdate(t, testDB, applied.AssignmentID)

	require.NoError(t, dripFlow.Pause(ctx, &dto.PauseDripRequest{LeadID: lead.ID}, nil))

	// Due messages of a paused assignment never reach the gateway
	resp, err := dispatchFlow.ProcessDueMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
	assert.Empty(t, gateway.SentMessages)

	var pending int64
	require.NoError(t, testDB.DB.Model(&models.ScheduledMessage{}).
		Where("assignment_id = ? AND status = ?", applied.AssignmentID, models.MessageStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(2), pending)

	// Resume makes the past-due messages immediately eligible again
	require.NoError(t, dripFlow.Resume(ctx, &dto.ResumeDripRequest{LeadID: lead.ID}, nil))

	resp, err = dispatchFlow.ProcessDueMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Processed)
	assert.Zero(t, resp.Failed)
	assert.Len(t, gateway.SentMessages, 2)
}

func TestProcessDueMessagesGatewayFailure(t *testing.T) {
	testDB, fixtures, dripFlow, dispatchFlow, gateway := setupDispatchFlow(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLeadWithPhone("9876543212")
	require.NoError(t, err)
	template, err := fixtures.CreateTestTemplate("onboarding", []testingutil.SlotSpec{
		{DayOffset: 0, TimeOfDay: "10:00", Body: "Hi {{name}}"},
	})
	require.NoError(t, err)

	applied, err := dripFlow.Apply(ctx, &dto.ApplyDripRequest{LeadID: lead.ID, TemplateID: template.ID}, nil)
	require.NoError(t, err)
	backdate(t, testDB, applied.AssignmentID)

	gateway.FailNext = true
	resp, err := dispatchFlow.ProcessDueMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	assert.Zero(t, resp.Processed)

	var message models.ScheduledMessage
	require.NoError(t, testDB.DB.Where("assignment_id = ?", applied.AssignmentID).First(&message).Error)
	assert.Equal(t, models.MessageStatusFailed, message.Status)
	assert.NotNil(t, message.ErrorMessage)
}

func TestProcessDueFollowUps(t *testing.T) {
	testDB, fixtures, _, dispatchFlow, gateway := setupDispatchFlow(t)
	ctx := context.Background()

	t.Run("SendsTierOneReminder", func(t *testing.T) {
		lead, err := fixtures.CreateTestLeadWithPhone("9876543213")
		require.NoError(t, err)
		followUp, err := fixtures.CreateTestFollowUp(lead.ID, models.FollowUpActionReminder, utils.UTCNow().Add(-time.Minute))
		require.NoError(t, err)

		resp, err := dispatchFlow.ProcessDueFollowUps(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Processed)

		require.NotEmpty(t, gateway.SentMessages)
		last := gateway.SentMessages[len(gateway.SentMessages)-1]
		assert.Contains(t, last.Body, "just checking in")

		var reloaded models.ManualFollowUp
		require.NoError(t, testDB.DB.First(&reloaded, followUp.ID).Error)
		assert.Equal(t, models.FollowUpStatusCompleted, reloaded.Status)
		assert.NotNil(t, reloaded.CompletedAt)
	})

	t.Run("ConfirmedLeadFallsOut", func(t *testing.T) {
		lead, err := fixtures.CreateTestLeadWithPhone("9876543214")
		require.NoError(t, err)
		_, err = fixtures.CreateTestFollowUp(lead.ID, models.FollowUpActionReminder, utils.UTCNow().Add(-time.Minute))
		require.NoError(t, err)

		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).
			Updates(map[string]any{"confirmed": true, "status": models.LeadStatusConfirmed}).Error)

		resp, err := dispatchFlow.ProcessDueFollowUps(ctx)
		require.NoError(t, err)
		assert.Zero(t, resp.Total)
	})

	t.Run("EscalatedTierBody", func(t *testing.T) {
		lead, err := fixtures.CreateTestLeadWithPhone("9876543215")
		require.NoError(t, err)
		followUp, err := fixtures.CreateTestFollowUp(lead.ID, models.FollowUpActionReminder, utils.UTCNow().Add(-time.Minute))
		require.NoError(t, err)

		// Age the follow-up past the 72h threshold
		require.NoError(t, testDB.DB.Model(&models.ManualFollowUp{}).Where("id = ?", followUp.ID).
			Update("created_at", utils.UTCNow().Add(-80*time.Hour)).Error)

		resp, err := dispatchFlow.ProcessDueFollowUps(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Processed)

		last := gateway.SentMessages[len(gateway.SentMessages)-1]
		assert.Contains(t, last.Body, "gentle reminder")
	})
}
