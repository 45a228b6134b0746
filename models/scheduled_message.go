package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus represents the delivery state of a scheduled message.
// Transitions are monotonic: once terminal, a row never changes again.
// "claimed" is the interim state reserving a due row for exactly one dispatch
// attempt before any gateway I/O happens.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusClaimed   MessageStatus = "claimed"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusCancelled MessageStatus = "cancelled"
	MessageStatusSkipped   MessageStatus = "skipped"
)

// String returns the string representation of the status
func (s MessageStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusPending, MessageStatusClaimed, MessageStatusSent,
		MessageStatusFailed, MessageStatusCancelled, MessageStatusSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transitions
func (s MessageStatus) IsTerminal() bool {
	switch s {
	case MessageStatusSent, MessageStatusFailed, MessageStatusCancelled, MessageStatusSkipped:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MessageStatus
func (s *MessageStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = MessageStatus(v)
	case []byte:
		*s = MessageStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageStatus
func (s MessageStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid MessageStatus: %s", s)
	}
	return string(s), nil
}

// ScheduledMessage is one concrete delivery materialized from a message slot
// when a drip sequence is applied to a lead.
type ScheduledMessage struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uk_scheduled_messages_uuid" json:"uuid"`
	AssignmentID      uint          `gorm:"not null;index:idx_scheduled_messages_assignment_id" json:"assignment_id"`
	LeadID            uint          `gorm:"not null;index:idx_scheduled_messages_lead_id" json:"lead_id"`
	SlotID            uint          `gorm:"not null" json:"slot_id"`
	ScheduledAt       time.Time     `gorm:"not null;index:idx_scheduled_messages_scheduled_at" json:"scheduled_at"`
	Status            MessageStatus `gorm:"size:32;not null;default:'pending';index:idx_scheduled_messages_status" json:"status"`
	SentAt            *time.Time    `json:"sent_at,omitempty"`
	ExternalMessageID *string       `gorm:"size:255" json:"external_message_id,omitempty"`
	ErrorMessage      *string       `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt         time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt         *time.Time    `json:"updated_at,omitempty"`

	// Relations
	Assignment *LeadDripAssignment `gorm:"foreignKey:AssignmentID;references:ID" json:"assignment,omitempty"`
	Slot       *MessageSlot        `gorm:"foreignKey:SlotID;references:ID" json:"slot,omitempty"`
}

func (ScheduledMessage) TableName() string {
	return "scheduled_messages"
}

// BeforeCreate is called before creating a new record
func (m *ScheduledMessage) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MessageStatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (m *ScheduledMessage) BeforeUpdate() error {
	now := time.Now().UTC()
	m.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the message can transition to the given status
func (m *ScheduledMessage) CanTransitionTo(newStatus MessageStatus) bool {
	switch m.Status {
	case MessageStatusPending:
		return newStatus == MessageStatusClaimed ||
			newStatus == MessageStatusCancelled ||
			newStatus == MessageStatusSkipped
	case MessageStatusClaimed:
		return newStatus == MessageStatusSent || newStatus == MessageStatusFailed
	default:
		return false
	}
}

// IsDue reports whether the message's scheduled instant has passed
func (m *ScheduledMessage) IsDue(now time.Time) bool {
	return !m.ScheduledAt.After(now)
}

// ScheduledMessageFilter represents filter criteria for scheduled message queries
type ScheduledMessageFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	AssignmentID    *uint
	LeadID          *uint
	Status          *MessageStatus
	ScheduledAfter  *time.Time
	ScheduledBefore *time.Time
}
