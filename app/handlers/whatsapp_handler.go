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

// WhatsAppHandlerInterface defines the contract for operator-initiated sends
type WhatsAppHandlerInterface interface {
	Send(c fiber.Ctx) error
	SendConfirmation(c fiber.Ctx) error
}

// WhatsAppHandler handles outbound messaging HTTP requests
type WhatsAppHandler struct {
	messagingFlow businessflow.MessagingFlow
	validator     *validator.Validate
}

// NewWhatsAppHandler creates a new outbound messaging handler
func NewWhatsAppHandler(messagingFlow businessflow.MessagingFlow) *WhatsAppHandler {
	return &WhatsAppHandler{
		messagingFlow: messagingFlow,
		validator:     validator.New(),
	}
}

func (h *WhatsAppHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse(message, errorCode, details))
}

func (h *WhatsAppHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.SuccessResponse(message, data))
}

// Send delivers an ad-hoc text message to a phone number
func (h *WhatsAppHandler) Send(c fiber.Ctx) error {
	var req dto.SendMessageRequest
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

	result, err := h.messagingFlow.SendDirect(h.createRequestContext(c, "/api/v1/messages/send"), &req, metadata)
	if err != nil {
		if businessflow.IsRecipientUnroutable(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Recipient identifier is not routable", "RECIPIENT_UNROUTABLE", nil)
		}
		if businessflow.IsRecipientInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Recipient phone number is invalid", "RECIPIENT_INVALID", nil)
		}
		log.Println("Direct send failed", err)
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Failed to send message", "SEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message sent successfully", result)
}

// SendConfirmation sends a lead their captured details for confirmation
func (h *WhatsAppHandler) SendConfirmation(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("leadId"), 10, 32)
	if err != nil || id == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead id", "INVALID_LEAD_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.messagingFlow.SendConfirmation(h.createRequestContext(c, "/api/v1/messages/send-confirmation/:leadId"), uint(id), metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsLeadHasNoPhone(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Lead has no phone number", "LEAD_NO_PHONE", nil)
		}
		if businessflow.IsLeadPhoneInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Lead phone number is invalid", "LEAD_PHONE_INVALID", nil)
		}
		log.Println("Send confirmation failed", err)
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Failed to send confirmation message", "SEND_CONFIRMATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Confirmation message sent", result)
}

func (h *WhatsAppHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
