// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/models"
)

const RequestIDKey = "X-Request-ID"

// strVal dereferences an optional string column.
func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToAssignmentStatusDTO converts an assignment and its message counters into
// the status response shape.
func ToAssignmentStatusDTO(assignment models.LeadDripAssignment, templateName string, counts map[models.MessageStatus]int64) dto.AssignmentStatusDTO {
	out := dto.AssignmentStatusDTO{
		AssignmentID: assignment.ID,
		LeadID:       assignment.LeadID,
		TemplateID:   assignment.TemplateID,
		TemplateName: templateName,
		Status:       assignment.Status.String(),
		StartedAt:    assignment.StartedAt.UTC().Format(time.RFC3339),
		Pending:      counts[models.MessageStatusPending],
		Sent:         counts[models.MessageStatusSent],
		Failed:       counts[models.MessageStatusFailed],
		Cancelled:    counts[models.MessageStatusCancelled],
		Skipped:      counts[models.MessageStatusSkipped],
	}
	if assignment.PausedAt != nil {
		v := assignment.PausedAt.UTC().Format(time.RFC3339)
		out.PausedAt = &v
	}
	if assignment.StoppedAt != nil {
		v := assignment.StoppedAt.UTC().Format(time.RFC3339)
		out.StoppedAt = &v
	}
	return out
}

