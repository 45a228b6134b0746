package handlers

import (
	"context"
	"log"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	businessflow "github.com/engageworks/drip-engine/business_flow"
	"github.com/engageworks/drip-engine/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// TemplateHandlerInterface defines the contract for drip template handlers
type TemplateHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
}

// TemplateHandler handles drip template HTTP requests
type TemplateHandler struct {
	templateFlow businessflow.TemplateFlow
	validator    *validator.Validate
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateFlow businessflow.TemplateFlow) *TemplateHandler {
	return &TemplateHandler{
		templateFlow: templateFlow,
		validator:    validator.New(),
	}
}

func (h *TemplateHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse(message, errorCode, details))
}

func (h *TemplateHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.SuccessResponse(message, data))
}

// Create registers a new drip template with its message slots
func (h *TemplateHandler) Create(c fiber.Ctx) error {
	var req dto.CreateTemplateRequest
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

	result, err := h.templateFlow.CreateTemplate(h.createRequestContext(c, "/api/v1/templates"), &req, metadata)
	if err != nil {
		if businessflow.IsTemplateNameRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template name is required", "TEMPLATE_NAME_REQUIRED", nil)
		}
		if businessflow.IsTemplateHasNoSlots(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template needs at least one message slot", "TEMPLATE_HAS_NO_SLOTS", nil)
		}
		if businessflow.IsSlotTimeInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Slot time must be HH:MM", "SLOT_TIME_INVALID", nil)
		}
		log.Println("Create template failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create template", "CREATE_TEMPLATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Template created successfully", result)
}

// List returns every active template with its slots
func (h *TemplateHandler) List(c fiber.Ctx) error {
	result, err := h.templateFlow.ListTemplates(h.createRequestContext(c, "/api/v1/templates"))
	if err != nil {
		log.Println("List templates failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list templates", "LIST_TEMPLATES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Templates retrieved successfully", result)
}

func (h *TemplateHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
