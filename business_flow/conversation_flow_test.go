package businessflow

import (
	"context"
	"errors"
	"fmt"
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

func TestKeywordIntent(t *testing.T) {
	cases := []struct {
		text    string
		intent  models.Intent
		matched bool
	}{
		{"yes", models.IntentConfirmYes, true},
		{"  Yes!  ", models.IntentConfirmYes, true},
		{"haan", models.IntentConfirmYes, true},
		{"theek", models.IntentConfirmYes, true},
		{"no", models.IntentConfirmNo, true},
		{"galat", models.IntentConfirmNo, true},
		{"name: Rajesh Sharma", models.IntentCorrection, true},
		{"can we get a demo", models.IntentDemoRequest, true},
		{"let's have a meeting friday", models.IntentMeetingSchedule, true},
		{"there is a problem with the login", models.IntentProblemStatement, true},
		{"we are looking for bulk pricing", models.IntentRequirementNote, true},
		{"please call me back tomorrow", models.IntentFollowUpNote, true},
		{"assign this to your sales team", models.IntentTaskAssign, true},
		{"interesting, tell me more", "", false},
		{"yes please send the brochure", "", false},
	}

	for _, tc := range cases {
		intent, matched := keywordIntent(tc.text)
		assert.Equal(t, tc.matched, matched, "text %q", tc.text)
		if tc.matched {
			assert.Equal(t, tc.intent, intent, "text %q", tc.text)
		}
	}
}

func TestGeneralReply(t *testing.T) {
	assert.Equal(t, "Hello! How can we help you today?", generalReply("hi"))
	assert.Contains(t, generalReply("धन्यवाद, ठीक है"), "धन्यवाद")
	assert.Contains(t, generalReply("what is your pricing"), "Our team will get back")
}

type conversationHarness struct {
	testDB     *testingutil.TestDB
	fixtures   *testingutil.TestFixtures
	flow       ConversationFlow
	gateway    *services.MockWhatsAppGateway
	classifier *services.MockIntentClassifier
	extractor  *services.MockLeadExtractor
}

func setupConversationFlow(t *testing.T) *conversationHarness {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	if errors.Is(err, testingutil.ErrNoTestDatabase) {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	fixtures := testingutil.NewTestFixtures(testDB)
	gateway := services.NewMockWhatsAppGateway()
	classifier := services.NewMockIntentClassifier(models.IntentGeneral)
	extractor := services.NewMockLeadExtractor(nil)

	dispatchCfg := &config.DispatchConfig{
		SendTimeout:    10 * time.Second,
		DefaultCountry: "91",
	}

	leadRepo := repository.NewLeadRepository(testDB.DB)
	employeeRepo := repository.NewEmployeeRepository(testDB.DB)
	followUpRepo := repository.NewManualFollowUpRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	followUpFlow := NewFollowUpFlow(leadRepo, employeeRepo, followUpRepo, auditRepo, services.NewMockStaffNotifier())

	flow := NewConversationFlow(
		leadRepo,
		employeeRepo,
		repository.NewWhatsAppMessageRepository(testDB.DB),
		auditRepo,
		followUpFlow,
		classifier,
		extractor,
		gateway,
		nil, // redis absent; the message ledger backstops dedupe
		&config.CacheConfig{},
		&config.WebhookConfig{DedupeTTL: time.Hour},
		dispatchCfg,
	)

	return &conversationHarness{
		testDB:     testDB,
		fixtures:   fixtures,
		flow:       flow,
		gateway:    gateway,
		classifier: classifier,
		extractor:  extractor,
	}
}

func inboundText(from, body string) *dto.InboundWebhookRequest {
	return &dto.InboundWebhookRequest{
		Event: "message.received",
		Payload: dto.InboundMessageData{
			MessageID: fmt.Sprintf("wamid.%s.%d", utils.DigitsOnly(from), time.Now().UnixNano()),
			From:      from,
			To:        "911234567890@s.whatsapp.net",
			Type:      "text",
			Body:      body,
			Timestamp: time.Now().Unix(),
		},
	}
}

func inboundImage(from, mediaURL string) *dto.InboundWebhookRequest {
	req := inboundText(from, "")
	req.Payload.Type = "image"
	req.Payload.MediaURL = mediaURL
	return req
}

func TestResolveSenderPrecedence(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	employee, err := h.fixtures.CreateTestEmployee("9876500001")
	require.NoError(t, err)
	// A lead sharing the employee's number must lose the tie
	_, err = h.fixtures.CreateTestLeadWithPhone("9876500001")
	require.NoError(t, err)

	exactLead, err := h.fixtures.CreateTestLeadWithPhone("9876500002")
	require.NoError(t, err)
	e164Lead, err := h.fixtures.CreateTestLeadWithPhone("+91 98765 00003")
	require.NoError(t, err)

	t.Run("EmployeeBeatsLead", func(t *testing.T) {
		sender, err := h.flow.ResolveSender(ctx, "919876500001@s.whatsapp.net")
		require.NoError(t, err)
		assert.Equal(t, SenderKindEmployee, sender.Kind)
		assert.Equal(t, employee.ID, sender.Employee.ID)
	})

	t.Run("LeadByLocalNumber", func(t *testing.T) {
		sender, err := h.flow.ResolveSender(ctx, "919876500002@s.whatsapp.net")
		require.NoError(t, err)
		assert.Equal(t, SenderKindLead, sender.Kind)
		assert.Equal(t, exactLead.ID, sender.Lead.ID)
	})

	t.Run("LeadBySuffixWhenStoredFormatted", func(t *testing.T) {
		sender, err := h.flow.ResolveSender(ctx, "919876500003@s.whatsapp.net")
		require.NoError(t, err)
		assert.Equal(t, SenderKindLead, sender.Kind)
		assert.Equal(t, e164Lead.ID, sender.Lead.ID)
	})

	t.Run("UnknownNumber", func(t *testing.T) {
		sender, err := h.flow.ResolveSender(ctx, "919999999999@s.whatsapp.net")
		require.NoError(t, err)
		assert.Equal(t, SenderKindUnknown, sender.Kind)
		assert.False(t, sender.Masked)
	})

	t.Run("MaskedNeverPhoneMatched", func(t *testing.T) {
		// The masked id happens to look like the employee's number
		sender, err := h.flow.ResolveSender(ctx, "919876500001@lid")
		require.NoError(t, err)
		assert.Equal(t, SenderKindUnknown, sender.Kind)
		assert.True(t, sender.Masked)
	})

	t.Run("MaskedResolvesThroughEarlierLink", func(t *testing.T) {
		linked, err := h.fixtures.CreateTestLeadWithPhone("9876500004")
		require.NoError(t, err)
		_, err = h.fixtures.CreateTestInboundMessage("77001234@lid", true, &linked.ID, "earlier message")
		require.NoError(t, err)

		sender, err := h.flow.ResolveSender(ctx, "77001234@lid")
		require.NoError(t, err)
		assert.Equal(t, SenderKindLead, sender.Kind)
		assert.True(t, sender.Masked)
		assert.Equal(t, linked.ID, sender.Lead.ID)
	})
}

func TestHandleInboundConfirmYes(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	lead, err := h.fixtures.CreateTestLeadWithPhone("9876510001")
	require.NoError(t, err)
	template, err := h.fixtures.CreateTestTemplate("onboarding", []testingutil.SlotSpec{
		{DayOffset: 2, TimeOfDay: "10:00", Body: "Hi {{name}}"},
	})
	require.NoError(t, err)
	assignment, err := h.fixtures.CreateTestAssignment(lead.ID, template.ID, models.AssignmentStatusActive)
	require.NoError(t, err)
	_, err = h.fixtures.CreateTestScheduledMessage(assignment, template.Slots[0].ID, utils.UTCNow().Add(48*time.Hour))
	require.NoError(t, err)

	require.NoError(t, h.flow.HandleInbound(ctx, inboundText("919876510001@s.whatsapp.net", "yes"), nil))

	var reloaded models.Lead
	require.NoError(t, h.testDB.DB.First(&reloaded, lead.ID).Error)
	assert.True(t, utils.IsTrue(reloaded.Confirmed))
	assert.Equal(t, models.LeadStatusConfirmed, reloaded.Status)

	// Confirmation thanks the lead but leaves the drip sequence running
	var pending int64
	require.NoError(t, h.testDB.DB.Model(&models.ScheduledMessage{}).
		Where("assignment_id = ? AND status = ?", assignment.ID, models.MessageStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)

	require.NotEmpty(t, h.gateway.SentMessages)
	assert.Contains(t, h.gateway.SentMessages[0].Body, "confirmed")
}

func TestHandleInboundConfirmNo(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	lead, err := h.fixtures.CreateTestLeadWithPhone("9876510002")
	require.NoError(t, err)

	require.NoError(t, h.flow.HandleInbound(ctx, inboundText("919876510002@s.whatsapp.net", "nahi"), nil))

	var reloaded models.Lead
	require.NoError(t, h.testDB.DB.First(&reloaded, lead.ID).Error)
	assert.Equal(t, models.LeadStatusNeedsCorrection, reloaded.Status)
	require.NotNil(t, reloaded.ConversationState)
	assert.Equal(t, models.ConversationStateCorrectionPending, *reloaded.ConversationState)
}

func TestHandleInboundCorrection(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	t.Run("ParsedCorrectionApplied", func(t *testing.T) {
		lead, err := h.fixtures.CreateTestLeadWithPhone("9876510003")
		require.NoError(t, err)

		req := inboundText("919876510003@s.whatsapp.net", "name: Sunita Rao\ncompany: Rao Textiles")
		require.NoError(t, h.flow.HandleInbound(ctx, req, nil))

		var reloaded models.Lead
		require.NoError(t, h.testDB.DB.First(&reloaded, lead.ID).Error)
		require.NotNil(t, reloaded.Name)
		assert.Equal(t, "Sunita Rao", *reloaded.Name)
		require.NotNil(t, reloaded.Company)
		assert.Equal(t, "Rao Textiles", *reloaded.Company)
		assert.True(t, utils.IsTrue(reloaded.Confirmed))

		last := h.gateway.SentMessages[len(h.gateway.SentMessages)-1]
		assert.Contains(t, last.Body, "Updated and confirmed")
		assert.Contains(t, last.Body, "Sunita Rao")
	})

	t.Run("UnparsedCorrectionPrompts", func(t *testing.T) {
		lead, err := h.fixtures.CreateTestLeadWithPhone("9876510004")
		require.NoError(t, err)

		h.classifier.NextIntent = models.IntentCorrection
		req := inboundText("919876510004@s.whatsapp.net", "that is all wrong and jumbled")
		require.NoError(t, h.flow.HandleInbound(ctx, req, nil))
		h.classifier.NextIntent = models.IntentGeneral

		var reloaded models.Lead
		require.NoError(t, h.testDB.DB.First(&reloaded, lead.ID).Error)
		assert.Equal(t, models.LeadStatusNeedsCorrection, reloaded.Status)

		last := h.gateway.SentMessages[len(h.gateway.SentMessages)-1]
		assert.Contains(t, last.Body, "couldn't read that correction")
	})
}

func TestHandleInboundDemoRequest(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	lead, err := h.fixtures.CreateTestLeadWithPhone("9876510005")
	require.NoError(t, err)

	before := utils.UTCNow()
	require.NoError(t, h.flow.HandleInbound(ctx, inboundText("919876510005@s.whatsapp.net", "can we get a demo"), nil))

	var followUp models.ManualFollowUp
	require.NoError(t, h.testDB.DB.Where("lead_id = ?", lead.ID).First(&followUp).Error)
	assert.Equal(t, models.FollowUpActionDemo, followUp.ActionType)

	// No parseable datetime in the text: defaults to tomorrow 16:00 UTC
	tomorrow := before.AddDate(0, 0, 1)
	expected := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 16, 0, 0, 0, time.UTC)
	assert.WithinDuration(t, expected, followUp.ScheduledAt, time.Minute)
}

func TestHandleInboundDuplicateDelivery(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	_, err := h.fixtures.CreateTestLeadWithPhone("9876510006")
	require.NoError(t, err)

	req := inboundText("919876510006@s.whatsapp.net", "hello")
	require.NoError(t, h.flow.HandleInbound(ctx, req, nil))
	require.NoError(t, h.flow.HandleInbound(ctx, req, nil))

	var count int64
	require.NoError(t, h.testDB.DB.Model(&models.WhatsAppMessage{}).
		Where("external_message_id = ?", req.Payload.MessageID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleInboundMaskedSenderSuppressed(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	req := inboundText("55009876@lid", "hello there")
	require.NoError(t, h.flow.HandleInbound(ctx, req, nil))

	// Inbound persisted, flagged masked, but never answered
	var record models.WhatsAppMessage
	require.NoError(t, h.testDB.DB.Where("external_message_id = ?", req.Payload.MessageID).First(&record).Error)
	assert.True(t, record.SenderMasked)
	assert.Empty(t, h.gateway.SentMessages)
}

func TestHandleInboundImages(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	t.Run("EmployeeImageCreatesAssignedLead", func(t *testing.T) {
		employee, err := h.fixtures.CreateTestEmployee("9876520001")
		require.NoError(t, err)
		h.extractor.NextCard = &services.LeadCard{
			Name:    "Vikram Shah",
			Company: "Shah Exports",
			Phone:   "+91 98765 20099",
		}

		req := inboundImage("919876520001@s.whatsapp.net", "https://cdn.example.com/card1.jpg")
		require.NoError(t, h.flow.HandleInbound(ctx, req, nil))

		var lead models.Lead
		require.NoError(t, h.testDB.DB.Where("name = ?", "Vikram Shah").First(&lead).Error)
		require.NotNil(t, lead.AssignedEmployeeID)
		assert.Equal(t, employee.ID, *lead.AssignedEmployeeID)
		require.NotNil(t, lead.Phone)
		assert.Equal(t, "919876520099", *lead.Phone)

		last := h.gateway.SentMessages[len(h.gateway.SentMessages)-1]
		assert.Contains(t, last.Body, "New lead captured")
		assert.Contains(t, last.Body, "Vikram Shah")
	})

	t.Run("UnknownSenderImageUsesSenderPhone", func(t *testing.T) {
		h.extractor.NextCard = &services.LeadCard{Name: "Meera Joshi", Phone: "12345"}

		req := inboundImage("919876520002@s.whatsapp.net", "https://cdn.example.com/card2.jpg")
		require.NoError(t, h.flow.HandleInbound(ctx, req, nil))

		var lead models.Lead
		require.NoError(t, h.testDB.DB.Where("name = ?", "Meera Joshi").First(&lead).Error)
		require.NotNil(t, lead.Phone)
		// The sender's number wins over the unreadable card phone
		assert.Equal(t, "919876520002", *lead.Phone)

		var record models.WhatsAppMessage
		require.NoError(t, h.testDB.DB.Where("external_message_id = ?", req.Payload.MessageID).First(&record).Error)
		require.NotNil(t, record.LeadID)
		assert.Equal(t, lead.ID, *record.LeadID)
	})

	t.Run("MaskedRelinkIsIdempotent", func(t *testing.T) {
		linked, err := h.fixtures.CreateTestLeadWithPhone("9876520003")
		require.NoError(t, err)
		_, err = h.fixtures.CreateTestInboundMessage("66001234@lid", true, &linked.ID, "first contact")
		require.NoError(t, err)

		var leadsBefore int64
		require.NoError(t, h.testDB.DB.Model(&models.Lead{}).Count(&leadsBefore).Error)

		req := inboundImage("66001234@lid", "https://cdn.example.com/card3.jpg")
		require.NoError(t, h.flow.HandleInbound(ctx, req, nil))

		// No new lead; the image lands on the already linked lead
		var leadsAfter int64
		require.NoError(t, h.testDB.DB.Model(&models.Lead{}).Count(&leadsAfter).Error)
		assert.Equal(t, leadsBefore, leadsAfter)

		var record models.WhatsAppMessage
		require.NoError(t, h.testDB.DB.Where("external_message_id = ?", req.Payload.MessageID).First(&record).Error)
		require.NotNil(t, record.LeadID)
		assert.Equal(t, linked.ID, *record.LeadID)
	})
}

func TestHandleInboundEmployeeWithoutLeadContext(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	_, err := h.fixtures.CreateTestEmployee("9876530001")
	require.NoError(t, err)

	require.NoError(t, h.flow.HandleInbound(ctx, inboundText("919876530001@s.whatsapp.net", "yes"), nil))

	require.NotEmpty(t, h.gateway.SentMessages)
	assert.Contains(t, h.gateway.SentMessages[0].Body, "No lead of yours")
}

func TestHandleInboundEmployeeConfirmsLatestLead(t *testing.T) {
	h := setupConversationFlow(t)
	ctx := context.Background()

	employee, err := h.fixtures.CreateTestEmployee("9876530002")
	require.NoError(t, err)
	lead, err := h.fixtures.CreateTestLeadWithPhone("9876530099")
	require.NoError(t, err)
	require.NoError(t, h.testDB.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).
		Update("assigned_employee_id", employee.ID).Error)

	require.NoError(t, h.flow.HandleInbound(ctx, inboundText("919876530002@s.whatsapp.net", "yes"), nil))

	var reloaded models.Lead
	require.NoError(t, h.testDB.DB.First(&reloaded, lead.ID).Error)
	assert.True(t, utils.IsTrue(reloaded.Confirmed))
}
