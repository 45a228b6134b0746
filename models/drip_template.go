// Package models contains domain entities and business models for the drip engine
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateCategory selects the message catalog variant for an audience type.
type TemplateCategory string

const (
	TemplateCategoryDecisionMaker TemplateCategory = "decision_maker"
	TemplateCategoryTechnical     TemplateCategory = "technical"
	TemplateCategoryPurchase      TemplateCategory = "purchase"
	TemplateCategorySales         TemplateCategory = "sales"
	TemplateCategoryGeneral       TemplateCategory = "general"
)

func (c TemplateCategory) String() string {
	return string(c)
}

func (c TemplateCategory) Valid() bool {
	switch c {
	case TemplateCategoryDecisionMaker, TemplateCategoryTechnical,
		TemplateCategoryPurchase, TemplateCategorySales, TemplateCategoryGeneral:
		return true
	default:
		return false
	}
}

// DripTemplate is a reusable, named drip sequence. Templates referenced by an
// active assignment are treated as immutable; edits affect future assignments
// only.
type DripTemplate struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_drip_templates_uuid" json:"uuid"`
	Name      string           `gorm:"size:255;not null;index:idx_drip_templates_name" json:"name"`
	Category  TemplateCategory `gorm:"size:64;not null;default:'general'" json:"category"`
	IsActive  *bool            `gorm:"default:true;index:idx_drip_templates_is_active" json:"is_active"`
	CreatedAt time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_drip_templates_created_at" json:"created_at"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`

	// Relations
	Slots []MessageSlot `gorm:"foreignKey:TemplateID;references:ID" json:"slots,omitempty"`
}

func (DripTemplate) TableName() string {
	return "drip_templates"
}

// BeforeCreate is called before creating a new record
func (t *DripTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Category == "" {
		t.Category = TemplateCategoryGeneral
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *DripTemplate) BeforeUpdate() error {
	now := time.Now().UTC()
	t.UpdatedAt = &now
	return nil
}

// MessageSlot is one position in a drip sequence. DayOffset 0 fires within a
// minute of assignment; DayOffset N fires on the Nth day after assignment at
// TimeOfDay. (DayOffset, SortOrder) is unique within a template.
type MessageSlot struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TemplateID uint      `gorm:"not null;index:idx_message_slots_template_id;uniqueIndex:uk_message_slots_position,priority:1" json:"template_id"`
	DayOffset  int       `gorm:"not null;uniqueIndex:uk_message_slots_position,priority:2" json:"day_offset"`
	TimeOfDay  string    `gorm:"size:8;not null;default:'10:00'" json:"time_of_day"`
	SortOrder  int       `gorm:"not null;default:0;uniqueIndex:uk_message_slots_position,priority:3" json:"sort_order"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Template *DripTemplate `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
}

func (MessageSlot) TableName() string {
	return "message_slots"
}

// ScheduledFor resolves the slot into an absolute instant for an assignment
// started at base. Day-zero slots fire one minute after base so they never
// race the creating transaction.
func (s *MessageSlot) ScheduledFor(base time.Time) (time.Time, error) {
	if s.DayOffset < 0 {
		return time.Time{}, fmt.Errorf("negative day offset %d", s.DayOffset)
	}
	if s.DayOffset == 0 {
		return base.Add(time.Minute), nil
	}
	hour, minute, err := ParseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	day := base.AddDate(0, 0, s.DayOffset)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, base.Location()), nil
}

// ParseTimeOfDay parses an "HH:MM" (or bare "HH") wall-clock string. Minute
// defaults to zero when absent.
func ParseTimeOfDay(v string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time of day %q", v)
	}
	if len(parts) == 2 && parts[1] != "" {
		minute, err = strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("invalid time of day %q", v)
		}
	}
	return hour, minute, nil
}

// DripTemplateFilter represents filter criteria for template queries
type DripTemplateFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Name          *string
	Category      *TemplateCategory
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
