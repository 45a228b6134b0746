package handlers

import (
	"context"
	"log"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	businessflow "github.com/engageworks/drip-engine/business_flow"
	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/utils"
	"github.com/gofiber/fiber/v3"
)

// WebhookHandlerInterface defines the contract for gateway webhook handlers
type WebhookHandlerInterface interface {
	Verify(c fiber.Ctx) error
	Receive(c fiber.Ctx) error
}

// WebhookHandler handles gateway webhook verification and inbound deliveries
type WebhookHandler struct {
	conversationFlow businessflow.ConversationFlow
	cfg              *config.WebhookConfig
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(conversationFlow businessflow.ConversationFlow, cfg *config.WebhookConfig) *WebhookHandler {
	return &WebhookHandler{
		conversationFlow: conversationFlow,
		cfg:              cfg,
	}
}

// Verify answers the provider's subscription handshake: when the mode is
// "subscribe" and the token matches, the challenge is echoed back verbatim.
func (h *WebhookHandler) Verify(c fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.cfg.VerifyToken {
		return c.Status(fiber.StatusOK).SendString(challenge)
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// Receive accepts an inbound event. The response is always success-shaped so
// the provider never retries a delivery the engine chose not to act on;
// processing failures are logged, not surfaced.
func (h *WebhookHandler) Receive(c fiber.Ctx) error {
	var req dto.InboundWebhookRequest
	if err := c.Bind().JSON(&req); err != nil {
		log.Println("Webhook payload malformed", err)
		return c.Status(fiber.StatusOK).JSON(dto.SuccessResponse("Event received", nil))
	}

	if req.Event != "message.received" {
		return c.Status(fiber.StatusOK).JSON(dto.SuccessResponse("Event ignored", nil))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.conversationFlow.HandleInbound(h.createRequestContext(c, "/api/v1/webhook"), &req, metadata); err != nil {
		log.Println("Inbound message handling failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.SuccessResponse("Event received", nil))
}

func (h *WebhookHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
