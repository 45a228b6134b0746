package dto

import "encoding/json"

// InboundWebhookRequest represents the provider webhook payload for inbound events
type InboundWebhookRequest struct {
	Event   string             `json:"event" example:"message.received"`
	Payload InboundMessageData `json:"payload"`
}

// InboundMessageData represents the inbound message fields inside a webhook event
type InboundMessageData struct {
	MessageID string          `json:"message_id" example:"wamid.HBgLOTE5ODc2NTQzMjEw"`
	From      string          `json:"from" example:"919876543210@s.whatsapp.net"`
	To        string          `json:"to" example:"911234567890@s.whatsapp.net"`
	Type      string          `json:"type" example:"text"`
	Body      string          `json:"body,omitempty" example:"yes, details are correct"`
	MediaURL  string          `json:"media_url,omitempty"`
	Timestamp int64           `json:"timestamp" example:"1705312200"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// SendMessageRequest represents a direct outbound message send
type SendMessageRequest struct {
	To   string `json:"to" validate:"required,min=7,max=64" example:"919876543210"`
	Body string `json:"body" validate:"required,min=1,max=4096" example:"Hello from the team"`
}

// SendMessageResponse represents the result of a direct send
type SendMessageResponse struct {
	ExternalMessageID string `json:"external_message_id" example:"wamid.HBgLOTE5ODc2NTQzMjEw"`
	Status            string `json:"status" example:"sent"`
}

// SendConfirmationResponse represents the result of sending a detail-confirmation message
type SendConfirmationResponse struct {
	LeadID            uint   `json:"lead_id" example:"42"`
	ExternalMessageID string `json:"external_message_id"`
	ConversationState string `json:"conversation_state" example:"awaiting_confirmation"`
}
