package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/engageworks/drip-engine/app/dto"
	businessflow "github.com/engageworks/drip-engine/business_flow"
	"github.com/engageworks/drip-engine/config"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConversationFlow struct {
	handled []*dto.InboundWebhookRequest
	err     error
}

func (s *stubConversationFlow) HandleInbound(ctx context.Context, req *dto.InboundWebhookRequest, metadata *businessflow.ClientMetadata) error {
	s.handled = append(s.handled, req)
	return s.err
}

func (s *stubConversationFlow) ResolveSender(ctx context.Context, rawFrom string) (*businessflow.ResolvedSender, error) {
	return &businessflow.ResolvedSender{Kind: businessflow.SenderKindUnknown, RawID: rawFrom}, nil
}

func newWebhookTestApp(flow businessflow.ConversationFlow) *fiber.App {
	handler := NewWebhookHandler(flow, &config.WebhookConfig{VerifyToken: "topsecret"})
	app := fiber.New()
	app.Get("/webhook", handler.Verify)
	app.Post("/webhook", handler.Receive)
	return app
}

func TestWebhookVerify(t *testing.T) {
	app := newWebhookTestApp(&stubConversationFlow{})

	t.Run("EchoesChallengeOnMatch", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=topsecret&hub.challenge=1158201444", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "1158201444", string(body))
	})

	t.Run("WrongTokenForbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=guess&hub.challenge=abc", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("WrongModeForbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/webhook?hub.mode=unsubscribe&hub.verify_token=topsecret", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestWebhookReceive(t *testing.T) {
	t.Run("RoutesMessageReceived", func(t *testing.T) {
		flow := &stubConversationFlow{}
		app := newWebhookTestApp(flow)

		payload := `{"event":"message.received","payload":{"message_id":"wamid.1","from":"919876543210@s.whatsapp.net","type":"text","body":"yes"}}`
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Len(t, flow.handled, 1)
		assert.Equal(t, "wamid.1", flow.handled[0].Payload.MessageID)
	})

	t.Run("IgnoresOtherEvents", func(t *testing.T) {
		flow := &stubConversationFlow{}
		app := newWebhookTestApp(flow)

		payload := `{"event":"message.status","payload":{"message_id":"wamid.2"}}`
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, flow.handled)
	})

	t.Run("ProcessingErrorStillSucceeds", func(t *testing.T) {
		flow := &stubConversationFlow{err: businessflow.NewBusinessError("LEAD_CREATE_FAILED", "boom", nil)}
		app := newWebhookTestApp(flow)

		payload := `{"event":"message.received","payload":{"message_id":"wamid.3","from":"919876543210@s.whatsapp.net","type":"text","body":"hi"}}`
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var parsed dto.APIResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		assert.True(t, parsed.Success)
	})

	t.Run("MalformedBodyStillSucceeds", func(t *testing.T) {
		flow := &stubConversationFlow{}
		app := newWebhookTestApp(flow)

		req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, flow.handled)
	})
}
