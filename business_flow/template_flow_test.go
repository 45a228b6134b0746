package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	testingutil "github.com/engageworks/drip-engine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTemplateFlow(t *testing.T) (*testingutil.TestDB, TemplateFlow) {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	if errors.Is(err, testingutil.ErrNoTestDatabase) {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	flow := NewTemplateFlow(
		testDB.DB,
		repository.NewDripTemplateRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
	)
	return testDB, flow
}

func TestTemplateFlowCreate(t *testing.T) {
	_, flow := setupTemplateFlow(t)
	ctx := context.Background()

	req := &dto.CreateTemplateRequest{
		Name:     "pilot-outreach",
		Category: "sales",
		Slots: []dto.MessageSlotDTO{
			{DayOffset: 0, Body: "Hi {{name}}"},
			{DayOffset: 3, TimeOfDay: "10:30", SortOrder: 0, Body: "Following up, {{name}}"},
		},
	}

	t.Run("CreatesTemplateWithSlots", func(t *testing.T) {
		resp, err := flow.CreateTemplate(ctx, req, nil)
		require.NoError(t, err)
		assert.NotZero(t, resp.TemplateID)
		assert.Equal(t, 2, resp.SlotCount)
	})

	t.Run("DuplicateNameRejected", func(t *testing.T) {
		_, err := flow.CreateTemplate(ctx, req, nil)
		require.Error(t, err)
		var be *BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "TEMPLATE_CONFLICT", be.Code)
	})

	t.Run("UnknownCategoryRejected", func(t *testing.T) {
		bad := &dto.CreateTemplateRequest{
			Name:     "other",
			Category: "vip",
			Slots:    []dto.MessageSlotDTO{{DayOffset: 0, Body: "hi"}},
		}
		_, err := flow.CreateTemplate(ctx, bad, nil)
		assert.Error(t, err)
	})

	t.Run("BadSlotTimeRejected", func(t *testing.T) {
		bad := &dto.CreateTemplateRequest{
			Name:     "other",
			Category: "sales",
			Slots:    []dto.MessageSlotDTO{{DayOffset: 0, TimeOfDay: "25:00", Body: "hi"}},
		}
		_, err := flow.CreateTemplate(ctx, bad, nil)
		assert.Error(t, err)
	})

	t.Run("NoSlotsRejected", func(t *testing.T) {
		bad := &dto.CreateTemplateRequest{Name: "empty", Category: "sales"}
		_, err := flow.CreateTemplate(ctx, bad, nil)
		assert.Error(t, err)
	})
}

func TestTemplateFlowSeedDefaults(t *testing.T) {
	testDB, flow := setupTemplateFlow(t)
	ctx := context.Background()

	require.NoError(t, flow.SeedDefaults(ctx))

	var count int64
	require.NoError(t, testDB.DB.Model(&models.DripTemplate{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	// Every seeded category carries the full day-offset ladder
	var slots int64
	require.NoError(t, testDB.DB.Model(&models.MessageSlot{}).Count(&slots).Error)
	assert.Equal(t, int64(30), slots)

	// A second startup run leaves the catalog unchanged
	require.NoError(t, flow.SeedDefaults(ctx))
	require.NoError(t, testDB.DB.Model(&models.DripTemplate{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	list, err := flow.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, list.Total)
}
