package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignmentStatus represents the lifecycle state of a drip assignment
type AssignmentStatus string

const (
	AssignmentStatusActive  AssignmentStatus = "active"
	AssignmentStatusPaused  AssignmentStatus = "paused"
	AssignmentStatusStopped AssignmentStatus = "stopped"
)

// String returns the string representation of the status
func (s AssignmentStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusActive, AssignmentStatusPaused, AssignmentStatusStopped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transitions
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusStopped
}

// Scan implements the sql.Scanner interface for AssignmentStatus
func (s *AssignmentStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = AssignmentStatus(v)
	case []byte:
		*s = AssignmentStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AssignmentStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AssignmentStatus
func (s AssignmentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid AssignmentStatus: %s", s)
	}
	return string(s), nil
}

// LeadDripAssignment attaches a drip sequence to one lead. The partial unique
// index enforces at most one non-stopped assignment per lead; a concurrent
// second apply surfaces as a unique violation instead of a duplicate drip.
type LeadDripAssignment struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_drip_assignments_uuid" json:"uuid"`
	LeadID     uint             `gorm:"not null;index:idx_drip_assignments_lead_id;uniqueIndex:uk_drip_assignments_live_lead,where:status <> 'stopped'" json:"lead_id"`
	TemplateID uint             `gorm:"not null;index:idx_drip_assignments_template_id" json:"template_id"`
	Status     AssignmentStatus `gorm:"size:32;not null;default:'active';index:idx_drip_assignments_status" json:"status"`
	StartedAt  time.Time        `gorm:"not null" json:"started_at"`
	PausedAt   *time.Time       `json:"paused_at,omitempty"`
	StoppedAt  *time.Time       `json:"stopped_at,omitempty"`
	CreatedAt  time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_drip_assignments_created_at" json:"created_at"`
	UpdatedAt  *time.Time       `json:"updated_at,omitempty"`

	// Relations
	Template *DripTemplate `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	Lead     *Lead         `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
}

func (LeadDripAssignment) TableName() string {
	return "lead_drip_assignments"
}

// BeforeCreate is called before creating a new record
func (a *LeadDripAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AssignmentStatusActive
	}
	now := time.Now().UTC()
	if a.StartedAt.IsZero() {
		a.StartedAt = now
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (a *LeadDripAssignment) BeforeUpdate() error {
	now := time.Now().UTC()
	a.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the assignment can transition to the given status
func (a *LeadDripAssignment) CanTransitionTo(newStatus AssignmentStatus) bool {
	switch a.Status {
	case AssignmentStatusActive:
		return newStatus == AssignmentStatusPaused || newStatus == AssignmentStatusStopped
	case AssignmentStatusPaused:
		return newStatus == AssignmentStatusActive || newStatus == AssignmentStatusStopped
	default:
		return false
	}
}

// AssignmentReport is a read-only projection of an assignment with per-status
// message counts, used by status queries and the operator export.
type AssignmentReport struct {
	AssignmentID uint             `json:"assignment_id"`
	LeadID       uint             `json:"lead_id"`
	TemplateID   uint             `json:"template_id"`
	TemplateName string           `json:"template_name"`
	Status       AssignmentStatus `json:"status"`
	StartedAt    time.Time        `json:"started_at"`
	TotalCount   int64            `json:"total_count"`
	SentCount    int64            `json:"sent_count"`
	PendingCount int64            `json:"pending_count"`
	FailedCount  int64            `json:"failed_count"`
}

// LeadDripAssignmentFilter represents filter criteria for assignment queries
type LeadDripAssignmentFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	LeadID        *uint
	TemplateID    *uint
	Status        *AssignmentStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
