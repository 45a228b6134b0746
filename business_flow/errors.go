// Package businessflow contains the core business logic and use cases for drip scheduling and inbound routing workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Lead-related errors
	ErrLeadNotFound     = errors.New("lead not found")
	ErrLeadHasNoPhone   = errors.New("lead has no phone number")
	ErrLeadPhoneInvalid = errors.New("lead phone number is invalid")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmployeeInactive = errors.New("employee is inactive")

	// Template errors
	ErrTemplateNotFound     = errors.New("drip template not found")
	ErrTemplateInactive     = errors.New("drip template is inactive")
	ErrTemplateHasNoSlots   = errors.New("drip template has no message slots")
	ErrTemplateNameRequired = errors.New("template name is required")
	ErrSlotTimeInvalid      = errors.New("slot time of day is invalid")

	// Assignment errors
	ErrAssignmentNotFound      = errors.New("drip assignment not found")
	ErrAssignmentNotActive     = errors.New("drip assignment is not active")
	ErrAssignmentNotPaused     = errors.New("drip assignment is not paused")
	ErrAssignmentAlreadyLive   = errors.New("lead already has a live drip assignment")
	ErrAssignmentStatusChanged = errors.New("drip assignment status changed concurrently")

	// Message errors
	ErrMessageNotFound = errors.New("scheduled message not found")
	ErrMessageTerminal = errors.New("scheduled message is already in a terminal state")

	// Gateway errors
	ErrRecipientUnroutable = errors.New("recipient identifier is not routable")
	ErrRecipientInvalid    = errors.New("recipient phone number is invalid")
	ErrGatewayUnavailable  = errors.New("messaging gateway unavailable")

	// Webhook errors
	ErrWebhookTokenMismatch = errors.New("webhook verify token mismatch")
	ErrDuplicateInbound     = errors.New("inbound message already processed")

	// Operator errors
	ErrOperatorNotFound  = errors.New("operator not found")
	ErrOperatorInactive  = errors.New("operator account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsLeadHasNoPhone(err error) bool {
	return errors.Is(err, ErrLeadHasNoPhone)
}

func IsLeadPhoneInvalid(err error) bool {
	return errors.Is(err, ErrLeadPhoneInvalid)
}

func IsEmployeeNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

func IsEmployeeInactive(err error) bool {
	return errors.Is(err, ErrEmployeeInactive)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsTemplateInactive(err error) bool {
	return errors.Is(err, ErrTemplateInactive)
}

func IsTemplateHasNoSlots(err error) bool {
	return errors.Is(err, ErrTemplateHasNoSlots)
}

func IsTemplateNameRequired(err error) bool {
	return errors.Is(err, ErrTemplateNameRequired)
}

func IsSlotTimeInvalid(err error) bool {
	return errors.Is(err, ErrSlotTimeInvalid)
}

func IsAssignmentNotFound(err error) bool {
	return errors.Is(err, ErrAssignmentNotFound)
}

func IsAssignmentNotActive(err error) bool {
	return errors.Is(err, ErrAssignmentNotActive)
}

func IsAssignmentNotPaused(err error) bool {
	return errors.Is(err, ErrAssignmentNotPaused)
}

func IsAssignmentAlreadyLive(err error) bool {
	return errors.Is(err, ErrAssignmentAlreadyLive)
}

func IsAssignmentStatusChanged(err error) bool {
	return errors.Is(err, ErrAssignmentStatusChanged)
}

func IsMessageNotFound(err error) bool {
	return errors.Is(err, ErrMessageNotFound)
}

func IsMessageTerminal(err error) bool {
	return errors.Is(err, ErrMessageTerminal)
}

func IsRecipientUnroutable(err error) bool {
	return errors.Is(err, ErrRecipientUnroutable)
}

func IsRecipientInvalid(err error) bool {
	return errors.Is(err, ErrRecipientInvalid)
}

func IsGatewayUnavailable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}

func IsWebhookTokenMismatch(err error) bool {
	return errors.Is(err, ErrWebhookTokenMismatch)
}

func IsDuplicateInbound(err error) bool {
	return errors.Is(err, ErrDuplicateInbound)
}

func IsOperatorNotFound(err error) bool {
	return errors.Is(err, ErrOperatorNotFound)
}

func IsOperatorInactive(err error) bool {
	return errors.Is(err, ErrOperatorInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
