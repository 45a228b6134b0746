// Package dto contains Data Transfer Objects for API request and response structures
package dto

// ApplyDripRequest represents the request to start a drip sequence for a lead
type ApplyDripRequest struct {
	LeadID     uint  `json:"lead_id" validate:"required" example:"42"`
	TemplateID uint  `json:"template_id" validate:"required" example:"3"`
	Restart    *bool `json:"restart,omitempty" example:"false"`
}

// ApplyDripResponse represents the result of starting a drip sequence
type ApplyDripResponse struct {
	AssignmentID     uint   `json:"assignment_id" example:"17"`
	LeadID           uint   `json:"lead_id" example:"42"`
	TemplateID       uint   `json:"template_id" example:"3"`
	ScheduledCount   int    `json:"scheduled_count" example:"6"`
	StoppedPrevious  bool   `json:"stopped_previous" example:"true"`
	FirstScheduledAt string `json:"first_scheduled_at" example:"2024-01-15T10:31:00Z"`
}

// StopDripRequest represents the request to stop a lead's drip sequences.
// AssignmentID narrows the stop to one assignment; when omitted all live
// assignments of the lead are stopped.
type StopDripRequest struct {
	LeadID       uint  `json:"-"`
	AssignmentID *uint `json:"assignment_id,omitempty" example:"17"`
}

// StopDripResponse represents the result of stopping drip sequences
type StopDripResponse struct {
	StoppedAssignments int   `json:"stopped_assignments" example:"1"`
	CancelledMessages  int64 `json:"cancelled_messages" example:"4"`
}

// PauseDripRequest represents the request to pause a lead's drip sequence
type PauseDripRequest struct {
	LeadID       uint  `json:"-"`
	AssignmentID *uint `json:"assignment_id,omitempty"`
}

// ResumeDripRequest represents the request to resume a paused drip sequence
type ResumeDripRequest struct {
	LeadID       uint  `json:"-"`
	AssignmentID *uint `json:"assignment_id,omitempty"`
}

// AssignmentStatusDTO represents one assignment with message counters
type AssignmentStatusDTO struct {
	AssignmentID uint    `json:"assignment_id" example:"17"`
	LeadID       uint    `json:"lead_id" example:"42"`
	TemplateID   uint    `json:"template_id" example:"3"`
	TemplateName string  `json:"template_name" example:"decision_maker"`
	Status       string  `json:"status" example:"active"`
	StartedAt    string  `json:"started_at" example:"2024-01-15T10:30:00Z"`
	PausedAt     *string `json:"paused_at,omitempty"`
	StoppedAt    *string `json:"stopped_at,omitempty"`
	Pending      int64   `json:"pending" example:"4"`
	Sent         int64   `json:"sent" example:"2"`
	Failed       int64   `json:"failed" example:"0"`
	Cancelled    int64   `json:"cancelled" example:"0"`
	Skipped      int64   `json:"skipped" example:"0"`
}

// ScheduledMessageDTO represents one scheduled message of an assignment
type ScheduledMessageDTO struct {
	MessageID    uint    `json:"message_id" example:"210"`
	AssignmentID uint    `json:"assignment_id" example:"17"`
	DayOffset    int     `json:"day_offset" example:"2"`
	ScheduledAt  string  `json:"scheduled_at" example:"2024-01-17T10:00:00Z"`
	Status       string  `json:"status" example:"pending"`
	SentAt       *string `json:"sent_at,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// DripStatusResponse represents the drip status of a lead
type DripStatusResponse struct {
	LeadID            uint                  `json:"lead_id" example:"42"`
	Assignments       []AssignmentStatusDTO `json:"assignments"`
	ScheduledMessages []ScheduledMessageDTO `json:"scheduled_messages"`
}

// ProcessDueResponse represents one dispatch pass over due messages
type ProcessDueResponse struct {
	Processed int `json:"processed" example:"5"`
	Failed    int `json:"failed" example:"1"`
	Total     int `json:"total" example:"6"`
}
