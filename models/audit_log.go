package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	LeadID       *uint           `gorm:"index:idx_audit_lead_id" json:"lead_id,omitempty"`
	OperatorID   *uint           `gorm:"index:idx_audit_operator_id" json:"operator_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionDripApplied       = "drip_applied"
	AuditActionDripStopped       = "drip_stopped"
	AuditActionDripPaused        = "drip_paused"
	AuditActionDripResumed       = "drip_resumed"
	AuditActionMessageSkipped    = "message_skipped"
	AuditActionMessageSent       = "message_sent"
	AuditActionMessageFailed     = "message_failed"
	AuditActionFollowUpCreated   = "followup_created"
	AuditActionFollowUpCompleted = "followup_completed"
	AuditActionInboundReceived   = "inbound_received"
	AuditActionLeadConfirmed     = "lead_confirmed"
	AuditActionCorrectionApplied = "correction_applied"
	AuditActionTemplateCreated   = "template_created"
	AuditActionOperatorLogin     = "operator_login"
	AuditActionOperatorLoginFail = "operator_login_failed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	LeadID        *uint
	OperatorID    *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
