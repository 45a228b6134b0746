// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/engageworks/drip-engine/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// DripTemplateRepository defines operations for drip templates and their slots
type DripTemplateRepository interface {
	Repository[models.DripTemplate, models.DripTemplateFilter]
	ByIDWithSlots(ctx context.Context, id uint) (*models.DripTemplate, error)
	ByName(ctx context.Context, name string) (*models.DripTemplate, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.DripTemplate, error)
	SaveSlots(ctx context.Context, slots []*models.MessageSlot) error
	SlotByID(ctx context.Context, slotID uint) (*models.MessageSlot, error)
}

// LeadDripAssignmentRepository defines operations for drip assignments
type LeadDripAssignmentRepository interface {
	Repository[models.LeadDripAssignment, models.LeadDripAssignmentFilter]
	ListLiveByLead(ctx context.Context, leadID uint) ([]*models.LeadDripAssignment, error)
	UpdateStatus(ctx context.Context, assignment *models.LeadDripAssignment, newStatus models.AssignmentStatus, at time.Time) error
	ListAllWithCounts(ctx context.Context) ([]*models.AssignmentReport, error)
}

// ScheduledMessageRepository defines operations for scheduled messages,
// including the claim step that guards against double dispatch.
type ScheduledMessageRepository interface {
	Repository[models.ScheduledMessage, models.ScheduledMessageFilter]
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledMessage, error)
	Claim(ctx context.Context, messageID uint) (bool, error)
	MarkSent(ctx context.Context, messageID uint, externalMessageID string, at time.Time) error
	MarkFailed(ctx context.Context, messageID uint, reason string) error
	Skip(ctx context.Context, messageID uint) (bool, error)
	CancelPendingByAssignment(ctx context.Context, assignmentID uint) (int64, error)
	CancelPendingByLead(ctx context.Context, leadID uint) (int64, error)
	CountByAssignmentAndStatus(ctx context.Context, assignmentID uint, status models.MessageStatus) (int64, error)
}

// ManualFollowUpRepository defines operations for manual follow-ups
type ManualFollowUpRepository interface {
	Repository[models.ManualFollowUp, models.ManualFollowUpFilter]
	ListDueForUnconfirmedLeads(ctx context.Context, now time.Time, limit int) ([]*models.ManualFollowUp, error)
	MarkCompleted(ctx context.Context, followUpID uint, at time.Time) error
	MarkFailed(ctx context.Context, followUpID uint) error
	CancelPendingByLead(ctx context.Context, leadID uint) (int64, error)
}

// LeadRepository defines the lead-store operations the engine consumes
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByPhone(ctx context.Context, phone string) (*models.Lead, error)
	ByPhoneSuffix(ctx context.Context, suffix string) (*models.Lead, error)
	LatestByAssignedEmployee(ctx context.Context, employeeID uint) (*models.Lead, error)
	UpdateStatus(ctx context.Context, leadID uint, status models.LeadStatus, conversationState *string) error
	MarkConfirmed(ctx context.Context, leadID uint) error
	ApplyCorrections(ctx context.Context, leadID uint, updates map[string]string) error
}

// EmployeeRepository defines staff directory lookups
type EmployeeRepository interface {
	Repository[models.Employee, models.EmployeeFilter]
	ByPhone(ctx context.Context, phone, countryCode string) (*models.Employee, error)
	ByName(ctx context.Context, name string) (*models.Employee, error)
}

// WhatsAppMessageRepository defines operations for the message ledger
type WhatsAppMessageRepository interface {
	Repository[models.WhatsAppMessage, models.WhatsAppMessageFilter]
	ByExternalID(ctx context.Context, externalID string) (*models.WhatsAppMessage, error)
	LatestLinkedBySenderRaw(ctx context.Context, senderRawID string) (*models.WhatsAppMessage, error)
	LinkToLead(ctx context.Context, messageID, leadID uint) error
}

// OperatorRepository defines operations for back-office operators
type OperatorRepository interface {
	Repository[models.Operator, models.OperatorFilter]
	ByUsername(ctx context.Context, username string) (*models.Operator, error)
	UpdateLastLogin(ctx context.Context, operatorID uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ByLeadID(ctx context.Context, leadID uint, limit, offset int) ([]*models.AuditLog, error)
}
