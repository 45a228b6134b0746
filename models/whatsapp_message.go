package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageDirection distinguishes inbound webhook deliveries from outbound sends
type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

func (d MessageDirection) String() string {
	return string(d)
}

func (d MessageDirection) Valid() bool {
	return d == MessageDirectionInbound || d == MessageDirectionOutbound
}

// Scan implements the sql.Scanner interface for MessageDirection
func (d *MessageDirection) Scan(value any) error {
	if value == nil {
		*d = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*d = MessageDirection(v)
	case []byte:
		*d = MessageDirection(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageDirection", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageDirection
func (d MessageDirection) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid MessageDirection: %s", d)
	}
	return string(d), nil
}

// InboundMessageType is the payload kind reported by the gateway
type InboundMessageType string

const (
	InboundMessageTypeText     InboundMessageType = "text"
	InboundMessageTypeImage    InboundMessageType = "image"
	InboundMessageTypeAudio    InboundMessageType = "audio"
	InboundMessageTypeDocument InboundMessageType = "document"
)

func (t InboundMessageType) String() string {
	return string(t)
}

func (t InboundMessageType) Valid() bool {
	switch t {
	case InboundMessageTypeText, InboundMessageTypeImage,
		InboundMessageTypeAudio, InboundMessageTypeDocument:
		return true
	default:
		return false
	}
}

// WhatsAppMessage records every message crossing the gateway in either
// direction. ExternalMessageID is the gateway's id; the unique index on it is
// what makes duplicate webhook deliveries a no-op. SenderRawID preserves the
// exact identifier including masked forms, so masked senders can be re-linked
// by raw equality without any phone matching.
type WhatsAppMessage struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uk_whatsapp_messages_uuid" json:"uuid"`
	LeadID            *uint              `gorm:"index:idx_whatsapp_messages_lead_id" json:"lead_id,omitempty"`
	Direction         MessageDirection   `gorm:"size:16;not null" json:"direction"`
	FromNumber        string             `gorm:"size:255;not null;index:idx_whatsapp_messages_from_number" json:"from_number"`
	ToNumber          string             `gorm:"size:255;not null" json:"to_number"`
	MessageType       InboundMessageType `gorm:"size:32;not null;default:'text'" json:"message_type"`
	Body              *string            `gorm:"type:text" json:"body,omitempty"`
	MediaURL          *string            `gorm:"size:1024" json:"media_url,omitempty"`
	SenderRawID       *string            `gorm:"size:255;index:idx_whatsapp_messages_sender_raw_id" json:"sender_raw_id,omitempty"`
	SenderMasked      bool               `gorm:"not null;default:false" json:"sender_masked"`
	ExternalMessageID *string            `gorm:"size:255;uniqueIndex:uk_whatsapp_messages_external_id,where:external_message_id IS NOT NULL" json:"external_message_id,omitempty"`
	RawPayload        json.RawMessage    `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	Status            string             `gorm:"size:32;not null;default:'received'" json:"status"`
	CreatedAt         time.Time          `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_whatsapp_messages_created_at" json:"created_at"`

	// Relations
	Lead *Lead `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
}

func (WhatsAppMessage) TableName() string {
	return "whatsapp_messages"
}

// BeforeCreate is called before creating a new record
func (m *WhatsAppMessage) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.MessageType == "" {
		m.MessageType = InboundMessageTypeText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// WhatsAppMessageFilter represents filter criteria for message queries
type WhatsAppMessageFilter struct {
	ID                *uint
	UUID              *uuid.UUID
	LeadID            *uint
	Direction         *MessageDirection
	FromNumber        *string
	SenderRawID       *string
	SenderMasked      *bool
	MessageType       *InboundMessageType
	ExternalMessageID *string
	CreatedAfter      *time.Time
	CreatedBefore     *time.Time
}
