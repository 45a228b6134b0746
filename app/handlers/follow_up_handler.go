package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	businessflow "github.com/engageworks/drip-engine/business_flow"
	"github.com/engageworks/drip-engine/utils"
	"github.com/gofiber/fiber/v3"
)

// FollowUpHandlerInterface defines the contract for manual follow-up handlers
type FollowUpHandlerInterface interface {
	Complete(c fiber.Ctx) error
	CancelForLead(c fiber.Ctx) error
}

// FollowUpHandler handles manual follow-up HTTP requests
type FollowUpHandler struct {
	followUpFlow businessflow.FollowUpFlow
}

// NewFollowUpHandler creates a new follow-up handler
func NewFollowUpHandler(followUpFlow businessflow.FollowUpFlow) *FollowUpHandler {
	return &FollowUpHandler{followUpFlow: followUpFlow}
}

func (h *FollowUpHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse(message, errorCode, details))
}

func (h *FollowUpHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.SuccessResponse(message, data))
}

// Complete marks a pending follow-up as done
func (h *FollowUpHandler) Complete(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("followUpId"), 10, 32)
	if err != nil || id == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid follow-up id", "INVALID_FOLLOWUP_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.followUpFlow.CompleteFollowUp(h.createRequestContext(c, "/api/v1/follow-ups/:followUpId/complete"), uint(id), metadata); err != nil {
		log.Println("Complete follow-up failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to complete follow-up", "COMPLETE_FOLLOWUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Follow-up completed", nil)
}

// CancelForLead cancels every pending follow-up of a lead
func (h *FollowUpHandler) CancelForLead(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("leadId"), 10, 32)
	if err != nil || id == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead id", "INVALID_LEAD_ID", nil)
	}

	cancelled, err := h.followUpFlow.CancelLeadFollowUps(h.createRequestContext(c, "/api/v1/follow-ups/lead/:leadId/cancel"), uint(id))
	if err != nil {
		log.Println("Cancel follow-ups failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel follow-ups", "CANCEL_FOLLOWUPS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Follow-ups cancelled", fiber.Map{"cancelled": cancelled})
}

func (h *FollowUpHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
