package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	"github.com/engageworks/drip-engine/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// DripFlow manages the lifecycle of drip sequences assigned to leads
type DripFlow interface {
	Apply(ctx context.Context, req *dto.ApplyDripRequest, metadata *ClientMetadata) (*dto.ApplyDripResponse, error)
	Stop(ctx context.Context, req *dto.StopDripRequest, metadata *ClientMetadata) (*dto.StopDripResponse, error)
	Pause(ctx context.Context, req *dto.PauseDripRequest, metadata *ClientMetadata) error
	Resume(ctx context.Context, req *dto.ResumeDripRequest, metadata *ClientMetadata) error
	SkipMessage(ctx context.Context, messageID uint, metadata *ClientMetadata) error
	Status(ctx context.Context, leadID uint) (*dto.DripStatusResponse, error)
	ExportAssignments(ctx context.Context) (string, []byte, error)
}

// DripFlowImpl implements DripFlow
type DripFlowImpl struct {
	db             *gorm.DB
	leadRepo       repository.LeadRepository
	templateRepo   repository.DripTemplateRepository
	assignmentRepo repository.LeadDripAssignmentRepository
	messageRepo    repository.ScheduledMessageRepository
	auditRepo      repository.AuditLogRepository
}

func NewDripFlow(
	db *gorm.DB,
	leadRepo repository.LeadRepository,
	templateRepo repository.DripTemplateRepository,
	assignmentRepo repository.LeadDripAssignmentRepository,
	messageRepo repository.ScheduledMessageRepository,
	auditRepo repository.AuditLogRepository,
) DripFlow {
	return &DripFlowImpl{
		db:             db,
		leadRepo:       leadRepo,
		templateRepo:   templateRepo,
		assignmentRepo: assignmentRepo,
		messageRepo:    messageRepo,
		auditRepo:      auditRepo,
	}
}

// Apply starts the template's message sequence for the lead. Any live
// assignment of the lead is stopped first, its pending messages cancelled,
// inside the same transaction that creates the new assignment.
func (f *DripFlowImpl) Apply(ctx context.Context, req *dto.ApplyDripRequest, metadata *ClientMetadata) (*dto.ApplyDripResponse, error) {
	if req == nil || req.LeadID == 0 || req.TemplateID == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Lead ID and template ID are required", nil)
	}

	lead, err := f.leadRepo.ByID(ctx, req.LeadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}

	template, err := f.templateRepo.ByIDWithSlots(ctx, req.TemplateID)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to lookup template", err)
	}
	if template == nil {
		return nil, NewBusinessError("TEMPLATE_NOT_FOUND", "Drip template not found", ErrTemplateNotFound)
	}
	if !utils.IsTrue(template.IsActive) {
		return nil, NewBusinessError("TEMPLATE_INACTIVE", "Drip template is inactive", ErrTemplateInactive)
	}
	if len(template.Slots) == 0 {
		return nil, NewBusinessError("TEMPLATE_EMPTY", "Drip template has no message slots", ErrTemplateHasNoSlots)
	}

	now := utils.UTCNow()
	var assignment *models.LeadDripAssignment
	var messages []*models.ScheduledMessage
	stoppedPrevious := false

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		live, err := f.assignmentRepo.ListLiveByLead(txCtx, req.LeadID)
		if err != nil {
			return err
		}
		for _, prev := range live {
			if _, err := f.messageRepo.CancelPendingByAssignment(txCtx, prev.ID); err != nil {
				return err
			}
			if err := f.assignmentRepo.UpdateStatus(txCtx, prev, models.AssignmentStatusStopped, now); err != nil {
				return err
			}
			stoppedPrevious = true
		}

		assignment = &models.LeadDripAssignment{
			LeadID:     req.LeadID,
			TemplateID: template.ID,
			Status:     models.AssignmentStatusActive,
			StartedAt:  now,
		}
		if err := f.assignmentRepo.Save(txCtx, assignment); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrAssignmentAlreadyLive
			}
			return err
		}

		messages = make([]*models.ScheduledMessage, 0, len(template.Slots))
		for i := range template.Slots {
			slot := template.Slots[i]
			scheduledAt, err := slot.ScheduledFor(now)
			if err != nil {
				return fmt.Errorf("slot %d: %w", slot.ID, err)
			}
			messages = append(messages, &models.ScheduledMessage{
				AssignmentID: assignment.ID,
				LeadID:       req.LeadID,
				SlotID:       slot.ID,
				ScheduledAt:  scheduledAt,
				Status:       models.MessageStatusPending,
			})
		}
		return f.messageRepo.SaveBatch(txCtx, messages)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Drip apply failed for lead %d: %s", req.LeadID, err.Error())
		_ = f.createAuditLog(ctx, &req.LeadID, models.AuditActionDripApplied, errMsg, false, &errMsg, metadata)
		if IsAssignmentAlreadyLive(err) {
			return nil, NewBusinessError("ASSIGNMENT_CONFLICT", "Lead already has a live drip assignment", err)
		}
		return nil, NewBusinessError("DRIP_APPLY_FAILED", "Failed to apply drip sequence", err)
	}

	msg := fmt.Sprintf("Drip template %d applied to lead %d (%d messages)", template.ID, req.LeadID, len(messages))
	_ = f.createAuditLog(ctx, &req.LeadID, models.AuditActionDripApplied, msg, true, nil, metadata)

	first := messages[0].ScheduledAt
	for _, m := range messages[1:] {
		if m.ScheduledAt.Before(first) {
			first = m.ScheduledAt
		}
	}

	return &dto.ApplyDripResponse{
		AssignmentID:     assignment.ID,
		LeadID:           req.LeadID,
		TemplateID:       template.ID,
		ScheduledCount:   len(messages),
		StoppedPrevious:  stoppedPrevious,
		FirstScheduledAt: first.UTC().Format(time.RFC3339),
	}, nil
}

// Stop terminates drip assignments for a lead. With an assignment ID only
// that assignment is stopped, otherwise every live assignment of the lead.
// Cancelling pending messages and flipping the assignment status happen in
// one transaction so the dispatcher never sees a half-stopped sequence.
func (f *DripFlowImpl) Stop(ctx context.Context, req *dto.StopDripRequest, metadata *ClientMetadata) (*dto.StopDripResponse, error) {
	if req == nil || req.LeadID == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Lead ID is required", nil)
	}

	targets, err := f.resolveTargets(ctx, req.LeadID, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	var cancelled int64
	stopped := 0

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, assignment := range targets {
			if assignment.Status.IsTerminal() {
				continue
			}
			n, err := f.messageRepo.CancelPendingByAssignment(txCtx, assignment.ID)
			if err != nil {
				return err
			}
			if err := f.assignmentRepo.UpdateStatus(txCtx, assignment, models.AssignmentStatusStopped, now); err != nil {
				return err
			}
			cancelled += n
			stopped++
		}
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Drip stop failed for lead %d: %s", req.LeadID, err.Error())
		_ = f.createAuditLog(ctx, &req.LeadID, models.AuditActionDripStopped, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("DRIP_STOP_FAILED", "Failed to stop drip sequence", err)
	}

	msg := fmt.Sprintf("Stopped %d drip assignment(s) for lead %d, cancelled %d pending message(s)", stopped, req.LeadID, cancelled)
	_ = f.createAuditLog(ctx, &req.LeadID, models.AuditActionDripStopped, msg, true, nil, metadata)

	return &dto.StopDripResponse{
		StoppedAssignments: stopped,
		CancelledMessages:  cancelled,
	}, nil
}

// Pause suspends dispatch without cancelling anything. Pending messages keep
// their scheduled times and fall due immediately on resume if already past.
func (f *DripFlowImpl) Pause(ctx context.Context, req *dto.PauseDripRequest, metadata *ClientMetadata) error {
	if req == nil || req.LeadID == 0 {
		return NewBusinessError("VALIDATION_ERROR", "Lead ID is required", nil)
	}

	targets, err := f.resolveTargets(ctx, req.LeadID, req.AssignmentID)
	if err != nil {
		return err
	}

	now := utils.UTCNow()
	for _, assignment := range targets {
		if assignment.Status != models.AssignmentStatusActive {
			return NewBusinessError("ASSIGNMENT_NOT_ACTIVE", "Drip assignment is not active", ErrAssignmentNotActive)
		}
		if err := f.assignmentRepo.UpdateStatus(ctx, assignment, models.AssignmentStatusPaused, now); err != nil {
			return NewBusinessError("DRIP_PAUSE_FAILED", "Failed to pause drip sequence", err)
		}
	}

	msg := fmt.Sprintf("Paused %d drip assignment(s) for lead %d", len(targets), req.LeadID)
	_ = f.createAuditLog(ctx, &req.LeadID, models.AuditActionDripPaused, msg, true, nil, metadata)
	return nil
}

// Resume reactivates paused assignments.
func (f *DripFlowImpl) Resume(ctx context.Context, req *dto.ResumeDripRequest, metadata *ClientMetadata) error {
	if req == nil || req.LeadID == 0 {
		return NewBusinessError("VALIDATION_ERROR", "Lead ID is required", nil)
	}

	targets, err := f.resolveTargets(ctx, req.LeadID, req.AssignmentID)
	if err != nil {
		return err
	}

	now := utils.UTCNow()
	for _, assignment := range targets {
		if assignment.Status != models.AssignmentStatusPaused {
			return NewBusinessError("ASSIGNMENT_NOT_PAUSED", "Drip assignment is not paused", ErrAssignmentNotPaused)
		}
		if err := f.assignmentRepo.UpdateStatus(ctx, assignment, models.AssignmentStatusActive, now); err != nil {
			return NewBusinessError("DRIP_RESUME_FAILED", "Failed to resume drip sequence", err)
		}
	}

	msg := fmt.Sprintf("Resumed %d drip assignment(s) for lead %d", len(targets), req.LeadID)
	_ = f.createAuditLog(ctx, &req.LeadID, models.AuditActionDripResumed, msg, true, nil, metadata)
	return nil
}

// SkipMessage marks a pending message skipped. A message already in a
// terminal state is left untouched and reported as success.
func (f *DripFlowImpl) SkipMessage(ctx context.Context, messageID uint, metadata *ClientMetadata) error {
	message, err := f.messageRepo.ByID(ctx, messageID)
	if err != nil {
		return NewBusinessError("MESSAGE_LOOKUP_FAILED", "Failed to lookup scheduled message", err)
	}
	if message == nil {
		return NewBusinessError("MESSAGE_NOT_FOUND", "Scheduled message not found", ErrMessageNotFound)
	}
	if message.Status.IsTerminal() {
		return nil
	}

	skipped, err := f.messageRepo.Skip(ctx, messageID)
	if err != nil {
		return NewBusinessError("MESSAGE_SKIP_FAILED", "Failed to skip scheduled message", err)
	}
	if skipped {
		msg := fmt.Sprintf("Skipped scheduled message %d for lead %d", messageID, message.LeadID)
		_ = f.createAuditLog(ctx, &message.LeadID, models.AuditActionMessageSkipped, msg, true, nil, metadata)
	}
	return nil
}

// Status reports all assignments of the lead together with message counters.
func (f *DripFlowImpl) Status(ctx context.Context, leadID uint) (*dto.DripStatusResponse, error) {
	if leadID == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "Lead ID is required", nil)
	}

	lead, err := f.leadRepo.ByID(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}

	assignments, err := f.assignmentRepo.ByFilter(ctx, models.LeadDripAssignmentFilter{LeadID: &leadID}, "id DESC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ASSIGNMENT_LOOKUP_FAILED", "Failed to list assignments", err)
	}

	resp := &dto.DripStatusResponse{
		LeadID:            leadID,
		Assignments:       make([]dto.AssignmentStatusDTO, 0, len(assignments)),
		ScheduledMessages: make([]dto.ScheduledMessageDTO, 0),
	}
	statuses := []models.MessageStatus{
		models.MessageStatusPending,
		models.MessageStatusSent,
		models.MessageStatusFailed,
		models.MessageStatusCancelled,
		models.MessageStatusSkipped,
	}
	for _, assignment := range assignments {
		counts := make(map[models.MessageStatus]int64, len(statuses))
		for _, status := range statuses {
			n, err := f.messageRepo.CountByAssignmentAndStatus(ctx, assignment.ID, status)
			if err != nil {
				return nil, NewBusinessError("MESSAGE_COUNT_FAILED", "Failed to count scheduled messages", err)
			}
			counts[status] = n
		}
		templateName := ""
		slotOffsets := make(map[uint]int)
		if template, err := f.templateRepo.ByIDWithSlots(ctx, assignment.TemplateID); err == nil && template != nil {
			templateName = template.Name
			for _, slot := range template.Slots {
				slotOffsets[slot.ID] = slot.DayOffset
			}
		}
		resp.Assignments = append(resp.Assignments, ToAssignmentStatusDTO(*assignment, templateName, counts))

		messages, err := f.messageRepo.ByFilter(ctx, models.ScheduledMessageFilter{AssignmentID: &assignment.ID}, "scheduled_at ASC", 0, 0)
		if err != nil {
			return nil, NewBusinessError("MESSAGE_LOOKUP_FAILED", "Failed to list scheduled messages", err)
		}
		for _, message := range messages {
			item := dto.ScheduledMessageDTO{
				MessageID:    message.ID,
				AssignmentID: message.AssignmentID,
				DayOffset:    slotOffsets[message.SlotID],
				ScheduledAt:  message.ScheduledAt.UTC().Format(time.RFC3339),
				Status:       message.Status.String(),
				ErrorMessage: message.ErrorMessage,
			}
			if message.SentAt != nil {
				item.SentAt = utils.ToPtr(message.SentAt.UTC().Format(time.RFC3339))
			}
			resp.ScheduledMessages = append(resp.ScheduledMessages, item)
		}
	}
	return resp, nil
}

// ExportAssignments renders every assignment with its message counters into
// an xlsx workbook for operator reporting.
func (f *DripFlowImpl) ExportAssignments(ctx context.Context) (string, []byte, error) {
	rows, err := f.assignmentRepo.ListAllWithCounts(ctx)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Failed to list assignments", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "assignments"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"assignment_id", "lead_id", "template_id", "template_name", "status", "started_at", "total", "sent", "pending", "failed"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, r := range rows {
		record := []string{
			strconv.FormatUint(uint64(r.AssignmentID), 10),
			strconv.FormatUint(uint64(r.LeadID), 10),
			strconv.FormatUint(uint64(r.TemplateID), 10),
			r.TemplateName,
			r.Status.String(),
			r.StartedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(r.TotalCount, 10),
			strconv.FormatInt(r.SentCount, 10),
			strconv.FormatInt(r.PendingCount, 10),
			strconv.FormatInt(r.FailedCount, 10),
		}
		cell := fmt.Sprintf("A%d", ri+2)
		_ = xl.SetSheetRow(sheet, cell, &record)
	}

	var buf bytes.Buffer
	if err := xl.Write(&buf); err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Failed to render workbook", err)
	}

	filename := fmt.Sprintf("drip_assignments_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

// resolveTargets loads the assignments a lifecycle operation applies to.
func (f *DripFlowImpl) resolveTargets(ctx context.Context, leadID uint, assignmentID *uint) ([]*models.LeadDripAssignment, error) {
	if assignmentID != nil {
		assignment, err := f.assignmentRepo.ByID(ctx, *assignmentID)
		if err != nil {
			return nil, NewBusinessError("ASSIGNMENT_LOOKUP_FAILED", "Failed to lookup assignment", err)
		}
		if assignment == nil || assignment.LeadID != leadID {
			return nil, NewBusinessError("ASSIGNMENT_NOT_FOUND", "Drip assignment not found", ErrAssignmentNotFound)
		}
		return []*models.LeadDripAssignment{assignment}, nil
	}

	live, err := f.assignmentRepo.ListLiveByLead(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("ASSIGNMENT_LOOKUP_FAILED", "Failed to list assignments", err)
	}
	if len(live) == 0 {
		return nil, NewBusinessError("ASSIGNMENT_NOT_FOUND", "Lead has no live drip assignment", ErrAssignmentNotFound)
	}
	return live, nil
}

// createAuditLog records a drip lifecycle event
func (f *DripFlowImpl) createAuditLog(ctx context.Context, leadID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	requestID := ctx.Value(utils.RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}
