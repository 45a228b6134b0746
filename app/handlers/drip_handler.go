// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	businessflow "github.com/engageworks/drip-engine/business_flow"
	"github.com/engageworks/drip-engine/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// DripHandlerInterface defines the contract for drip scheduling handlers
type DripHandlerInterface interface {
	Apply(c fiber.Ctx) error
	Stop(c fiber.Ctx) error
	Pause(c fiber.Ctx) error
	Resume(c fiber.Ctx) error
	Skip(c fiber.Ctx) error
	Status(c fiber.Ctx) error
	Process(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// DripHandler handles drip scheduling HTTP requests
type DripHandler struct {
	dripFlow     businessflow.DripFlow
	dispatchFlow businessflow.DispatchFlow
	validator    *validator.Validate
}

// NewDripHandler creates a new drip scheduling handler
func NewDripHandler(dripFlow businessflow.DripFlow, dispatchFlow businessflow.DispatchFlow) *DripHandler {
	return &DripHandler{
		dripFlow:     dripFlow,
		dispatchFlow: dispatchFlow,
		validator:    validator.New(),
	}
}

func (h *DripHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse(message, errorCode, details))
}

func (h *DripHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.SuccessResponse(message, data))
}

// Apply assigns a drip template to a lead, replacing any live assignment
func (h *DripHandler) Apply(c fiber.Ctx) error {
	var req dto.ApplyDripRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dripFlow.Apply(h.createRequestContext(c, "/api/v1/drip/apply"), &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		if businessflow.IsTemplateInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template is inactive", "TEMPLATE_INACTIVE", nil)
		}
		if businessflow.IsTemplateHasNoSlots(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template has no message slots", "TEMPLATE_HAS_NO_SLOTS", nil)
		}
		if businessflow.IsAssignmentAlreadyLive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Lead already has a live assignment", "ASSIGNMENT_CONFLICT", nil)
		}
		log.Println("Apply drip failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to apply drip template", "APPLY_DRIP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Drip template applied successfully", result)
}

// Stop cancels pending messages and stops assignments for a lead
func (h *DripHandler) Stop(c fiber.Ctx) error {
	leadID, err := parseLeadID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead id", "INVALID_LEAD_ID", nil)
	}

	req := dto.StopDripRequest{LeadID: leadID, AssignmentID: parseAssignmentID(c)}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dripFlow.Stop(h.createRequestContext(c, "/api/v1/drip/lead/:leadId/stop"), &req, metadata)
	if err != nil {
		if businessflow.IsAssignmentNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No live assignment found", "ASSIGNMENT_NOT_FOUND", nil)
		}
		log.Println("Stop drip failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to stop drip", "STOP_DRIP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Drip stopped successfully", result)
}

// Pause suspends delivery for a lead's assignments without cancelling messages
func (h *DripHandler) Pause(c fiber.Ctx) error {
	leadID, err := parseLeadID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead id", "INVALID_LEAD_ID", nil)
	}

	req := dto.PauseDripRequest{LeadID: leadID, AssignmentID: parseAssignmentID(c)}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.dripFlow.Pause(h.createRequestContext(c, "/api/v1/drip/lead/:leadId/pause"), &req, metadata); err != nil {
		if businessflow.IsAssignmentNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No live assignment found", "ASSIGNMENT_NOT_FOUND", nil)
		}
		if businessflow.IsAssignmentNotActive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Assignment is not active", "ASSIGNMENT_NOT_ACTIVE", nil)
		}
		log.Println("Pause drip failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to pause drip", "PAUSE_DRIP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Drip paused successfully", nil)
}

// Resume reactivates paused assignments; past-due messages become immediately due
func (h *DripHandler) Resume(c fiber.Ctx) error {
	leadID, err := parseLeadID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead id", "INVALID_LEAD_ID", nil)
	}

	req := dto.ResumeDripRequest{LeadID: leadID, AssignmentID: parseAssignmentID(c)}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.dripFlow.Resume(h.createRequestContext(c, "/api/v1/drip/lead/:leadId/resume"), &req, metadata); err != nil {
		if businessflow.IsAssignmentNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No live assignment found", "ASSIGNMENT_NOT_FOUND", nil)
		}
		if businessflow.IsAssignmentNotPaused(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Assignment is not paused", "ASSIGNMENT_NOT_PAUSED", nil)
		}
		log.Println("Resume drip failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resume drip", "RESUME_DRIP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Drip resumed successfully", nil)
}

// Skip marks a pending scheduled message as skipped. Terminal messages are left untouched
func (h *DripHandler) Skip(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("messageId"), 10, 32)
	if err != nil || id == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message id", "INVALID_MESSAGE_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.dripFlow.SkipMessage(h.createRequestContext(c, "/api/v1/drip/message/:messageId/skip"), uint(id), metadata); err != nil {
		if businessflow.IsMessageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Scheduled message not found", "MESSAGE_NOT_FOUND", nil)
		}
		log.Println("Skip message failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to skip message", "SKIP_MESSAGE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message skipped", nil)
}

// Status reports every assignment of the lead with per-status message counts
func (h *DripHandler) Status(c fiber.Ctx) error {
	leadID, err := parseLeadID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead id", "INVALID_LEAD_ID", nil)
	}

	result, err := h.dripFlow.Status(h.createRequestContext(c, "/api/v1/drip/lead/:leadId/status"), leadID)
	if err != nil {
		log.Println("Drip status failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve drip status", "DRIP_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Drip status retrieved successfully", result)
}

// Process runs one dispatch pass over due messages, same as the background loop
func (h *DripHandler) Process(c fiber.Ctx) error {
	result, err := h.dispatchFlow.ProcessDueMessages(h.createRequestContextWithTimeout(c, "/api/v1/drip/process", 5*time.Minute))
	if err != nil {
		log.Println("Process due messages failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process due messages", "PROCESS_DUE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Due messages processed", result)
}

// Export streams all assignments with message counts as an xlsx workbook
func (h *DripHandler) Export(c fiber.Ctx) error {
	filename, content, err := h.dripFlow.ExportAssignments(h.createRequestContextWithTimeout(c, "/api/v1/drip/export", 2*time.Minute))
	if err != nil {
		log.Println("Export assignments failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export assignments", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	return c.Send(content)
}

func parseLeadID(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("leadId"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func parseAssignmentID(c fiber.Ctx) *uint {
	raw := c.Query("assignmentId")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

func (h *DripHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *DripHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
