// Package testing provides test utilities and database setup for the drip engine
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestLead creates a lead with a random 10-digit phone number
func (tf *TestFixtures) CreateTestLead() (*models.Lead, error) {
	phone := fmt.Sprintf("9%09d", rand.Intn(900000000)+100000000)
	return tf.CreateTestLeadWithPhone(phone)
}

// CreateTestLeadWithPhone creates a lead with the given phone number
func (tf *TestFixtures) CreateTestLeadWithPhone(phone string) (*models.Lead, error) {
	lead := &models.Lead{
		UUID:      uuid.New(),
		Name:      utils.ToPtr("Asha Verma"),
		Company:   utils.ToPtr("Verma Industries"),
		Phone:     utils.ToPtr(phone),
		Status:    models.LeadStatusNew,
		Confirmed: utils.ToPtr(false),
		CreatedAt: utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}

	return lead, nil
}

// CreateTestEmployee creates an active employee with the given phone number
func (tf *TestFixtures) CreateTestEmployee(phone string) (*models.Employee, error) {
	suffix := rand.Intn(1000000)
	employee := &models.Employee{
		UUID:      uuid.New(),
		FullName:  "Ravi Kumar",
		LoginName: fmt.Sprintf("ravi.kumar.%d", suffix),
		Phone:     utils.ToPtr(phone),
		IsActive:  utils.ToPtr(true),
		CreatedAt: utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(employee).Error; err != nil {
		return nil, fmt.Errorf("failed to create test employee: %w", err)
	}

	return employee, nil
}

// CreateTestOperator creates an active operator with a bcrypt-hashed password
func (tf *TestFixtures) CreateTestOperator(username, password string) (*models.Operator, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	operator := &models.Operator{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hashed),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(operator).Error; err != nil {
		return nil, fmt.Errorf("failed to create test operator: %w", err)
	}

	return operator, nil
}

// SlotSpec describes one slot of a test template
type SlotSpec struct {
	DayOffset int
	TimeOfDay string
	Body      string
}

// CreateTestTemplate creates an active template with the given slots
func (tf *TestFixtures) CreateTestTemplate(name string, slots []SlotSpec) (*models.DripTemplate, error) {
	template := &models.DripTemplate{
		UUID:      uuid.New(),
		Name:      name,
		Category:  models.TemplateCategoryGeneral,
		IsActive:  utils.ToPtr(true),
		CreatedAt: utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}

	for i, spec := range slots {
		slot := &models.MessageSlot{
			TemplateID: template.ID,
			DayOffset:  spec.DayOffset,
			TimeOfDay:  spec.TimeOfDay,
			SortOrder:  i,
			Body:       spec.Body,
			CreatedAt:  utils.UTCNow(),
		}
		if err := tf.DB.DB.Create(slot).Error; err != nil {
			return nil, fmt.Errorf("failed to create test slot %d: %w", i, err)
		}
		template.Slots = append(template.Slots, *slot)
	}

	return template, nil
}

// CreateTestAssignment attaches a template to a lead in the given status
func (tf *TestFixtures) CreateTestAssignment(leadID, templateID uint, status models.AssignmentStatus) (*models.LeadDripAssignment, error) {
	assignment := &models.LeadDripAssignment{
		UUID:       uuid.New(),
		LeadID:     leadID,
		TemplateID: templateID,
		Status:     status,
		StartedAt:  utils.UTCNow(),
		CreatedAt:  utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to create test assignment: %w", err)
	}

	return assignment, nil
}

// CreateTestScheduledMessage creates a pending message due at the given time
func (tf *TestFixtures) CreateTestScheduledMessage(assignment *models.LeadDripAssignment, slotID uint, scheduledAt time.Time) (*models.ScheduledMessage, error) {
	message := &models.ScheduledMessage{
		UUID:         uuid.New(),
		AssignmentID: assignment.ID,
		LeadID:       assignment.LeadID,
		SlotID:       slotID,
		ScheduledAt:  scheduledAt,
		Status:       models.MessageStatusPending,
		CreatedAt:    utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create test scheduled message: %w", err)
	}

	return message, nil
}

// CreateTestInboundMessage records an inbound message from a raw sender id,
// optionally linked to a lead
func (tf *TestFixtures) CreateTestInboundMessage(senderRaw string, masked bool, leadID *uint, body string) (*models.WhatsAppMessage, error) {
	externalID := fmt.Sprintf("wamid.test.%d", rand.Int63())
	message := &models.WhatsAppMessage{
		LeadID:            leadID,
		Direction:         models.MessageDirectionInbound,
		FromNumber:        senderRaw,
		ToNumber:          "business",
		MessageType:       models.InboundMessageTypeText,
		Body:              utils.ToPtr(body),
		SenderRawID:       utils.ToPtr(senderRaw),
		SenderMasked:      masked,
		ExternalMessageID: utils.ToPtr(externalID),
		Status:            "received",
		CreatedAt:         utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create test inbound message: %w", err)
	}

	return message, nil
}

// CreateTestFollowUp creates a pending manual follow-up for a lead
func (tf *TestFixtures) CreateTestFollowUp(leadID uint, action models.FollowUpAction, scheduledAt time.Time) (*models.ManualFollowUp, error) {
	followUp := &models.ManualFollowUp{
		UUID:        uuid.New(),
		LeadID:      leadID,
		ActionType:  action,
		ScheduledAt: scheduledAt,
		Status:      models.FollowUpStatusPending,
		CreatedAt:   utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(followUp).Error; err != nil {
		return nil, fmt.Errorf("failed to create test follow-up: %w", err)
	}

	return followUp, nil
}
