package businessflow

import (
	"context"
	"fmt"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/app/services"
	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	"github.com/engageworks/drip-engine/utils"
)

// MessagingFlow covers operator-initiated outbound sends: ad-hoc messages and
// the detail-confirmation message that opens a lead conversation.
type MessagingFlow interface {
	SendDirect(ctx context.Context, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error)
	SendConfirmation(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.SendConfirmationResponse, error)
}

// MessagingFlowImpl implements MessagingFlow
type MessagingFlowImpl struct {
	leadRepo    repository.LeadRepository
	messageRepo repository.WhatsAppMessageRepository
	auditRepo   repository.AuditLogRepository
	gateway     services.WhatsAppGateway
	cfg         *config.DispatchConfig
}

func NewMessagingFlow(
	leadRepo repository.LeadRepository,
	messageRepo repository.WhatsAppMessageRepository,
	auditRepo repository.AuditLogRepository,
	gateway services.WhatsAppGateway,
	cfg *config.DispatchConfig,
) MessagingFlow {
	return &MessagingFlowImpl{
		leadRepo:    leadRepo,
		messageRepo: messageRepo,
		auditRepo:   auditRepo,
		gateway:     gateway,
		cfg:         cfg,
	}
}

// SendDirect sends an arbitrary text to a phone number.
func (f *MessagingFlowImpl) SendDirect(ctx context.Context, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error) {
	if req == nil || req.To == "" || req.Body == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Recipient and body are required", nil)
	}
	if utils.IsUnroutableIdentifier(req.To) {
		return nil, NewBusinessError("RECIPIENT_UNROUTABLE", "Recipient identifier is not routable", ErrRecipientUnroutable)
	}

	recipient := utils.DigitsOnly(utils.NormalizeE164(req.To, f.cfg.DefaultCountry))
	if !utils.IsValidPhoneDigits(recipient) {
		return nil, NewBusinessError("RECIPIENT_INVALID", "Recipient phone number is invalid", ErrRecipientInvalid)
	}

	sendCtx, cancel := context.WithTimeout(ctx, f.cfg.SendTimeout)
	defer cancel()
	result, err := f.gateway.SendText(sendCtx, recipient, req.Body)
	if err != nil {
		return nil, NewBusinessError("SEND_FAILED", "Failed to send message", err)
	}

	f.persistOutbound(ctx, nil, recipient, req.Body, result.ExternalMessageID)

	return &dto.SendMessageResponse{
		ExternalMessageID: result.ExternalMessageID,
		Status:            result.Status,
	}, nil
}

// SendConfirmation sends the lead their captured details and asks them to
// confirm. The lead moves into the awaiting-confirmation conversation state.
func (f *MessagingFlowImpl) SendConfirmation(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.SendConfirmationResponse, error) {
	lead, err := f.leadRepo.ByID(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}
	if lead.Phone == nil || *lead.Phone == "" {
		return nil, NewBusinessError("LEAD_NO_PHONE", "Lead has no phone number", ErrLeadHasNoPhone)
	}

	local := utils.SanitizePhone(*lead.Phone, f.cfg.DefaultCountry)
	if !utils.IsValidLocalMobile(local) {
		return nil, NewBusinessError("LEAD_PHONE_INVALID", "Lead phone number is not a valid mobile number", ErrLeadPhoneInvalid)
	}

	body := buildConfirmationBody(lead)
	recipient := f.cfg.DefaultCountry + local

	sendCtx, cancel := context.WithTimeout(ctx, f.cfg.SendTimeout)
	defer cancel()
	result, err := f.gateway.SendText(sendCtx, recipient, body)
	if err != nil {
		return nil, NewBusinessError("SEND_FAILED", "Failed to send confirmation message", err)
	}

	state := models.ConversationStateAwaitingConfirmation
	if err := f.leadRepo.UpdateStatus(ctx, leadID, lead.Status, &state); err != nil {
		return nil, NewBusinessError("LEAD_UPDATE_FAILED", "Failed to update conversation state", err)
	}

	f.persistOutbound(ctx, &leadID, recipient, body, result.ExternalMessageID)

	msg := fmt.Sprintf("Confirmation message sent to lead %d as %s", leadID, result.ExternalMessageID)
	_ = f.auditSend(ctx, &leadID, msg, metadata)

	return &dto.SendConfirmationResponse{
		LeadID:            leadID,
		ExternalMessageID: result.ExternalMessageID,
		ConversationState: state,
	}, nil
}

func buildConfirmationBody(lead *models.Lead) string {
	name := strVal(lead.Name)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s! Please confirm your details:\n\nName: %s\nCompany: %s\nDesignation: %s\nEmail: %s\n\nReply YES if correct, or send corrections like \"name: John Smith\".",
		name, strVal(lead.Name), strVal(lead.Company), strVal(lead.Designation), strVal(lead.Email),
	)
}

func (f *MessagingFlowImpl) persistOutbound(ctx context.Context, leadID *uint, to, body, externalID string) {
	record := &models.WhatsAppMessage{
		LeadID:      leadID,
		Direction:   models.MessageDirectionOutbound,
		FromNumber:  "",
		ToNumber:    to,
		MessageType: models.InboundMessageTypeText,
		Body:        &body,
		Status:      "sent",
	}
	if externalID != "" {
		record.ExternalMessageID = &externalID
	}
	_ = f.messageRepo.Save(ctx, record)
}

func (f *MessagingFlowImpl) auditSend(ctx context.Context, leadID *uint, description string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}
	audit := &models.AuditLog{
		LeadID:      leadID,
		Action:      models.AuditActionMessageSent,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}
	return f.auditRepo.Save(ctx, audit)
}
