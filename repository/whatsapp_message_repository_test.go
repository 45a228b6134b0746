package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/engageworks/drip-engine/models"
	testingutil "github.com/engageworks/drip-engine/testing"
	"github.com/engageworks/drip-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMessageRepo(t *testing.T) (*testingutil.TestFixtures, WhatsAppMessageRepository) {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	if errors.Is(err, testingutil.ErrNoTestDatabase) {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })
	return testingutil.NewTestFixtures(testDB), NewWhatsAppMessageRepository(testDB.DB)
}

func TestWhatsAppMessageByFilter(t *testing.T) {
	fixtures, repo := setupMessageRepo(t)
	ctx := context.Background()

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)
	_, err = fixtures.CreateTestInboundMessage("919876543210@s.whatsapp.net", false, &lead.ID, "plain")
	require.NoError(t, err)
	masked, err := fixtures.CreateTestInboundMessage("12345678@lid", true, &lead.ID, "hidden")
	require.NoError(t, err)

	image := &models.WhatsAppMessage{
		LeadID:      &lead.ID,
		Direction:   models.MessageDirectionInbound,
		FromNumber:  "919876543210@s.whatsapp.net",
		ToNumber:    "business",
		MessageType: models.InboundMessageTypeImage,
		MediaURL:    utils.ToPtr("https://cdn.example.com/card.jpg"),
		Status:      "received",
	}
	require.NoError(t, repo.Save(ctx, image))

	t.Run("BySenderMasked", func(t *testing.T) {
		rows, err := repo.ByFilter(ctx, models.WhatsAppMessageFilter{SenderMasked: utils.ToPtr(true)}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, masked.ID, rows[0].ID)
	})

	t.Run("ByMessageType", func(t *testing.T) {
		rows, err := repo.ByFilter(ctx, models.WhatsAppMessageFilter{MessageType: utils.ToPtr(models.InboundMessageTypeImage)}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, image.ID, rows[0].ID)
	})

	t.Run("CountByLead", func(t *testing.T) {
		count, err := repo.Count(ctx, models.WhatsAppMessageFilter{LeadID: &lead.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}
