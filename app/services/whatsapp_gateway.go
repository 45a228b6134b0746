// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/utils"
)

// WhatsAppGateway sends outbound WhatsApp messages through the provider API
type WhatsAppGateway interface {
	SendText(ctx context.Context, recipient, body string) (*SendResult, error)
	SendImage(ctx context.Context, recipient, caption, mediaURL string) (*SendResult, error)
}

// SendResult carries the provider's identifier for a delivered message
type SendResult struct {
	ExternalMessageID string `json:"message_id"`
	Status            string `json:"status"`
}

// WhatsAppGatewayImpl implements WhatsAppGateway
type WhatsAppGatewayImpl struct {
	config *config.GatewayConfig
	client *http.Client
}

// gatewaySendRequest represents the request payload for the provider send API
type gatewaySendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Body     string `json:"body,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Type     string `json:"type"`
}

// gatewaySendResponse represents the provider send API response
type gatewaySendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// NewWhatsAppGateway creates a new WhatsApp gateway instance
func NewWhatsAppGateway(cfg *config.GatewayConfig) WhatsAppGateway {
	return &WhatsAppGatewayImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendText sends a text message. Unroutable identifiers (masked senders,
// groups, broadcast lists) and numbers outside 7 to 15 digits are rejected
// before any network call is made.
func (s *WhatsAppGatewayImpl) SendText(ctx context.Context, recipient, body string) (*SendResult, error) {
	if err := validateRecipient(recipient); err != nil {
		return &SendResult{Status: "blocked"}, err
	}
	return s.send(ctx, gatewaySendRequest{
		From: s.config.SourceNumber,
		To:   utils.DigitsOnly(recipient),
		Body: body,
		Type: "text",
	})
}

// SendImage sends an image message with an optional caption.
func (s *WhatsAppGatewayImpl) SendImage(ctx context.Context, recipient, caption, mediaURL string) (*SendResult, error) {
	if err := validateRecipient(recipient); err != nil {
		return &SendResult{Status: "blocked"}, err
	}
	return s.send(ctx, gatewaySendRequest{
		From:     s.config.SourceNumber,
		To:       utils.DigitsOnly(recipient),
		MediaURL: mediaURL,
		Caption:  caption,
		Type:     "image",
	})
}

func (s *WhatsAppGatewayImpl) send(ctx context.Context, payload gatewaySendRequest) (*SendResult, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway send request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/messages/send", s.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.config.AccountToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send gateway request: %w", err)
	}
	defer resp.Body.Close()

	var result gatewaySendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || result.Error != "" {
		return nil, fmt.Errorf("gateway send failed (%d): %s", resp.StatusCode, result.Error)
	}

	return &SendResult{
		ExternalMessageID: result.MessageID,
		Status:            result.Status,
	}, nil
}

func validateRecipient(recipient string) error {
	if utils.IsUnroutableIdentifier(recipient) {
		return fmt.Errorf("recipient %q is not routable", recipient)
	}
	digits := utils.DigitsOnly(recipient)
	if !utils.IsValidPhoneDigits(digits) {
		return fmt.Errorf("recipient %q is not a valid phone number", recipient)
	}
	return nil
}

// MockWhatsAppGateway implements WhatsAppGateway for testing
type MockWhatsAppGateway struct {
	mu           sync.Mutex
	SentMessages []MockGatewayMessage
	FailNext     bool
	nextID       int
}

// MockGatewayMessage represents a message recorded by the mock gateway
type MockGatewayMessage struct {
	Recipient string
	Body      string
	MediaURL  string
	SentAt    time.Time
}

// NewMockWhatsAppGateway creates a new mock WhatsApp gateway
func NewMockWhatsAppGateway() *MockWhatsAppGateway {
	return &MockWhatsAppGateway{
		SentMessages: make([]MockGatewayMessage, 0),
	}
}

func (m *MockWhatsAppGateway) SendText(ctx context.Context, recipient, body string) (*SendResult, error) {
	if err := validateRecipient(recipient); err != nil {
		return &SendResult{Status: "blocked"}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return nil, fmt.Errorf("gateway send failed (mock)")
	}
	m.nextID++
	m.SentMessages = append(m.SentMessages, MockGatewayMessage{
		Recipient: recipient,
		Body:      body,
		SentAt:    utils.UTCNow(),
	})
	return &SendResult{
		ExternalMessageID: fmt.Sprintf("mock-%d", m.nextID),
		Status:            "sent",
	}, nil
}

func (m *MockWhatsAppGateway) SendImage(ctx context.Context, recipient, caption, mediaURL string) (*SendResult, error) {
	if err := validateRecipient(recipient); err != nil {
		return &SendResult{Status: "blocked"}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.SentMessages = append(m.SentMessages, MockGatewayMessage{
		Recipient: recipient,
		Body:      caption,
		MediaURL:  mediaURL,
		SentAt:    utils.UTCNow(),
	})
	return &SendResult{
		ExternalMessageID: fmt.Sprintf("mock-%d", m.nextID),
		Status:            "sent",
	}, nil
}
