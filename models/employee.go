package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is a staff directory entry used for sender identification and
// follow-up notification routing.
type Employee struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_employees_uuid" json:"uuid"`
	FullName  string     `gorm:"size:255;not null;index:idx_employees_full_name" json:"full_name"`
	LoginName string     `gorm:"size:255;not null;uniqueIndex:uk_employees_login_name" json:"login_name"`
	Phone     *string    `gorm:"size:32;index:idx_employees_phone" json:"phone,omitempty"`
	Email     *string    `gorm:"size:255" json:"email,omitempty"`
	IsActive  *bool      `gorm:"default:true;index:idx_employees_is_active" json:"is_active"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (Employee) TableName() string {
	return "employees"
}

// BeforeCreate is called before creating a new record
func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == uuid.Nil {
		e.UUID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (e *Employee) BeforeUpdate() error {
	now := time.Now().UTC()
	e.UpdatedAt = &now
	return nil
}

// EmployeeFilter represents filter criteria for employee queries
type EmployeeFilter struct {
	ID        *uint
	UUID      *uuid.UUID
	FullName  *string
	LoginName *string
	Phone     *string
	IsActive  *bool
}
