package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadStatus is the coarse conversational flag the router maintains on a lead.
// The engine never owns the lead's full schema; these are the only fields it
// reads or mutates.
type LeadStatus string

const (
	LeadStatusNew                 LeadStatus = "new"
	LeadStatusConfirmed           LeadStatus = "confirmed"
	LeadStatusNeedsCorrection     LeadStatus = "needs_correction"
	LeadStatusProblemReported     LeadStatus = "problem_reported"
	LeadStatusRequirementReceived LeadStatus = "requirement_received"
	LeadStatusFollowUpRequested   LeadStatus = "followup_requested"
	LeadStatusTaskAssigned        LeadStatus = "task_assigned"
)

// String returns the string representation of the status
func (s LeadStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusConfirmed, LeadStatusNeedsCorrection,
		LeadStatusProblemReported, LeadStatusRequirementReceived,
		LeadStatusFollowUpRequested, LeadStatusTaskAssigned:
		return true
	default:
		return false
	}
}

// IsPreConfirmation reports whether the lead is still awaiting a confirmed
// card, i.e. an employee text from the same device may address it.
func (s LeadStatus) IsPreConfirmation() bool {
	return s == LeadStatusNew || s == LeadStatusNeedsCorrection
}

// Scan implements the sql.Scanner interface for LeadStatus
func (s *LeadStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = LeadStatus(v)
	case []byte:
		*s = LeadStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadStatus
func (s LeadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid LeadStatus: %s", s)
	}
	return string(s), nil
}

// Conversation state markers recorded alongside the lead status
const (
	ConversationStateAwaitingConfirmation = "awaiting_confirmation"
	ConversationStateCorrectionApplied    = "correction_applied"
	ConversationStateCorrectionPending    = "correction_pending"
)

// Lead carries the subset of the lead record the drip engine touches.
type Lead struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UUID               uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	Name               *string    `gorm:"size:255" json:"name,omitempty"`
	Company            *string    `gorm:"size:255" json:"company,omitempty"`
	Designation        *string    `gorm:"size:255" json:"designation,omitempty"`
	Email              *string    `gorm:"size:255" json:"email,omitempty"`
	Phone              *string    `gorm:"size:32;index:idx_leads_phone" json:"phone,omitempty"`
	Status             LeadStatus `gorm:"size:64;not null;default:'new';index:idx_leads_status" json:"status"`
	Confirmed          *bool      `gorm:"default:false;index:idx_leads_confirmed" json:"confirmed"`
	ConversationState  *string    `gorm:"size:64" json:"conversation_state,omitempty"`
	AssignedEmployeeID *uint      `gorm:"index:idx_leads_assigned_employee_id" json:"assigned_employee_id,omitempty"`
	CreatedAt          time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_leads_created_at" json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`

	// Relations
	AssignedEmployee *Employee `gorm:"foreignKey:AssignedEmployeeID;references:ID" json:"assigned_employee,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate is called before creating a new record
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (l *Lead) BeforeUpdate() error {
	now := time.Now().UTC()
	l.UpdatedAt = &now
	return nil
}

// IsConfirmed reports whether the lead confirmed its card via the channel
func (l *Lead) IsConfirmed() bool {
	return l.Confirmed != nil && *l.Confirmed
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID                 *uint
	UUID               *uuid.UUID
	Phone              *string
	Status             *LeadStatus
	Confirmed          *bool
	AssignedEmployeeID *uint
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
}
