package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/engageworks/drip-engine/app/services"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	"github.com/engageworks/drip-engine/utils"
)

// FollowUpFlow creates and settles manual follow-ups. Demo and meeting
// requests arriving over the webhook land here, as do operator-created
// callbacks.
type FollowUpFlow interface {
	CreateFollowUp(ctx context.Context, leadID uint, action models.FollowUpAction, scheduledAt time.Time, notes string, metadata *ClientMetadata) (*models.ManualFollowUp, error)
	CompleteFollowUp(ctx context.Context, followUpID uint, metadata *ClientMetadata) error
	CancelLeadFollowUps(ctx context.Context, leadID uint) (int64, error)
}

// FollowUpFlowImpl implements FollowUpFlow
type FollowUpFlowImpl struct {
	leadRepo     repository.LeadRepository
	employeeRepo repository.EmployeeRepository
	followUpRepo repository.ManualFollowUpRepository
	auditRepo    repository.AuditLogRepository
	notifier     services.StaffNotifier
}

func NewFollowUpFlow(
	leadRepo repository.LeadRepository,
	employeeRepo repository.EmployeeRepository,
	followUpRepo repository.ManualFollowUpRepository,
	auditRepo repository.AuditLogRepository,
	notifier services.StaffNotifier,
) FollowUpFlow {
	return &FollowUpFlowImpl{
		leadRepo:     leadRepo,
		employeeRepo: employeeRepo,
		followUpRepo: followUpRepo,
		auditRepo:    auditRepo,
		notifier:     notifier,
	}
}

// CreateFollowUp persists the follow-up and notifies the lead's assigned
// employee. Notification failure does not roll the follow-up back.
func (f *FollowUpFlowImpl) CreateFollowUp(ctx context.Context, leadID uint, action models.FollowUpAction, scheduledAt time.Time, notes string, metadata *ClientMetadata) (*models.ManualFollowUp, error) {
	if !action.Valid() {
		return nil, NewBusinessError("VALIDATION_ERROR", "Unknown follow-up action", nil)
	}

	lead, err := f.leadRepo.ByID(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}

	followUp := &models.ManualFollowUp{
		LeadID:      leadID,
		ActionType:  action,
		ScheduledAt: scheduledAt.UTC(),
		Status:      models.FollowUpStatusPending,
	}
	if notes != "" {
		followUp.Notes = &notes
	}
	if err := f.followUpRepo.Save(ctx, followUp); err != nil {
		return nil, NewBusinessError("FOLLOWUP_CREATE_FAILED", "Failed to create follow-up", err)
	}

	msg := fmt.Sprintf("Follow-up %d (%s) created for lead %d at %s", followUp.ID, action, leadID, scheduledAt.UTC().Format(time.RFC3339))
	_ = f.createAuditLog(ctx, &leadID, models.AuditActionFollowUpCreated, msg, true, nil, metadata)

	// A name mentioned in the request ("demo with Ravi") outranks the
	// lead's assigned employee for the notification.
	var employee *models.Employee
	if name := utils.ExtractMentionedName(notes); name != "" {
		employee, _ = f.employeeRepo.ByName(ctx, name)
	}
	if employee == nil && lead.AssignedEmployeeID != nil {
		employee, _ = f.employeeRepo.ByID(ctx, *lead.AssignedEmployeeID)
	}
	notice := fmt.Sprintf("%s requested by %s (%s) for %s. Notes: %s",
		action, strVal(lead.Name), strVal(lead.Company), scheduledAt.Format("Mon 02 Jan 15:04"), notes)
	_ = f.notifier.NotifyEmployee(ctx, employee, notice)

	return followUp, nil
}

// CompleteFollowUp settles a pending follow-up.
func (f *FollowUpFlowImpl) CompleteFollowUp(ctx context.Context, followUpID uint, metadata *ClientMetadata) error {
	followUp, err := f.followUpRepo.ByID(ctx, followUpID)
	if err != nil {
		return NewBusinessError("FOLLOWUP_LOOKUP_FAILED", "Failed to lookup follow-up", err)
	}
	if followUp == nil {
		return NewBusinessError("FOLLOWUP_NOT_FOUND", "Follow-up not found", nil)
	}
	if err := f.followUpRepo.MarkCompleted(ctx, followUpID, utils.UTCNow()); err != nil {
		return NewBusinessError("FOLLOWUP_COMPLETE_FAILED", "Failed to complete follow-up", err)
	}

	msg := fmt.Sprintf("Follow-up %d completed", followUpID)
	_ = f.createAuditLog(ctx, &followUp.LeadID, models.AuditActionFollowUpCompleted, msg, true, nil, metadata)
	return nil
}

// CancelLeadFollowUps cancels every pending follow-up of the lead.
func (f *FollowUpFlowImpl) CancelLeadFollowUps(ctx context.Context, leadID uint) (int64, error) {
	n, err := f.followUpRepo.CancelPendingByLead(ctx, leadID)
	if err != nil {
		return 0, NewBusinessError("FOLLOWUP_CANCEL_FAILED", "Failed to cancel follow-ups", err)
	}
	return n, nil
}

func (f *FollowUpFlowImpl) createAuditLog(ctx context.Context, leadID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		LeadID:       leadID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}
	return f.auditRepo.Save(ctx, audit)
}
