package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FollowUpStatus represents the lifecycle state of a manual follow-up
type FollowUpStatus string

const (
	FollowUpStatusPending   FollowUpStatus = "pending"
	FollowUpStatusCompleted FollowUpStatus = "completed"
	FollowUpStatusCancelled FollowUpStatus = "cancelled"
	FollowUpStatusFailed    FollowUpStatus = "failed"
)

// String returns the string representation of the status
func (s FollowUpStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s FollowUpStatus) Valid() bool {
	switch s {
	case FollowUpStatusPending, FollowUpStatusCompleted,
		FollowUpStatusCancelled, FollowUpStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transitions
func (s FollowUpStatus) IsTerminal() bool {
	return s != FollowUpStatusPending
}

// Scan implements the sql.Scanner interface for FollowUpStatus
func (s *FollowUpStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = FollowUpStatus(v)
	case []byte:
		*s = FollowUpStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into FollowUpStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for FollowUpStatus
func (s FollowUpStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid FollowUpStatus: %s", s)
	}
	return string(s), nil
}

// FollowUpAction categorizes what a follow-up is for
type FollowUpAction string

const (
	FollowUpActionDemo       FollowUpAction = "demo"
	FollowUpActionMeeting    FollowUpAction = "meeting"
	FollowUpActionCallback   FollowUpAction = "callback"
	FollowUpActionReminder   FollowUpAction = "reminder"
	FollowUpActionEscalation FollowUpAction = "escalation"
)

func (a FollowUpAction) String() string {
	return string(a)
}

func (a FollowUpAction) Valid() bool {
	switch a {
	case FollowUpActionDemo, FollowUpActionMeeting, FollowUpActionCallback,
		FollowUpActionReminder, FollowUpActionEscalation:
		return true
	default:
		return false
	}
}

// EscalationTier is the canned-message ladder for reminder follow-ups,
// selected by elapsed time since the follow-up was created.
type EscalationTier int

const (
	EscalationTierFirst  EscalationTier = 1 // 24h
	EscalationTierSecond EscalationTier = 2 // 72h
	EscalationTierThird  EscalationTier = 3 // 120h
)

// ManualFollowUp is a one-shot scheduled action, independent of drip
// assignments but sharing the same due-polling contract.
type ManualFollowUp struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_manual_follow_ups_uuid" json:"uuid"`
	LeadID      uint           `gorm:"not null;index:idx_manual_follow_ups_lead_id" json:"lead_id"`
	ActionType  FollowUpAction `gorm:"size:64;not null" json:"action_type"`
	ScheduledAt time.Time      `gorm:"not null;index:idx_manual_follow_ups_scheduled_at" json:"scheduled_at"`
	Status      FollowUpStatus `gorm:"size:32;not null;default:'pending';index:idx_manual_follow_ups_status" json:"status"`
	Notes       *string        `gorm:"type:text" json:"notes,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`

	// Relations
	Lead *Lead `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
}

func (ManualFollowUp) TableName() string {
	return "manual_follow_ups"
}

// BeforeCreate is called before creating a new record
func (f *ManualFollowUp) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	if f.Status == "" {
		f.Status = FollowUpStatusPending
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (f *ManualFollowUp) BeforeUpdate() error {
	now := time.Now().UTC()
	f.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the follow-up can transition to the given status
func (f *ManualFollowUp) CanTransitionTo(newStatus FollowUpStatus) bool {
	if f.Status != FollowUpStatusPending {
		return false
	}
	return newStatus == FollowUpStatusCompleted ||
		newStatus == FollowUpStatusCancelled ||
		newStatus == FollowUpStatusFailed
}

// Tier returns the escalation tier for the elapsed time since creation. The
// ladder is closed: anything past 120h stays on the third tier.
func (f *ManualFollowUp) Tier(now time.Time) EscalationTier {
	elapsed := now.Sub(f.CreatedAt)
	switch {
	case elapsed >= 120*time.Hour:
		return EscalationTierThird
	case elapsed >= 72*time.Hour:
		return EscalationTierSecond
	default:
		return EscalationTierFirst
	}
}

// ManualFollowUpFilter represents filter criteria for follow-up queries
type ManualFollowUpFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	LeadID          *uint
	ActionType      *FollowUpAction
	Status          *FollowUpStatus
	ScheduledAfter  *time.Time
	ScheduledBefore *time.Time
}
