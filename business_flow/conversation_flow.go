package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/app/services"
	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	"github.com/engageworks/drip-engine/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var inboundRoutedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "drip_engine_inbound_routed_total",
		Help: "Inbound messages routed, labeled by sender kind and intent",
	},
	[]string{"sender_kind", "intent"},
)

// SenderKind is the resolver's verdict on who sent an inbound message.
type SenderKind string

const (
	SenderKindEmployee SenderKind = "employee"
	SenderKindLead     SenderKind = "lead"
	SenderKindUnknown  SenderKind = "unknown"
)

// ResolvedSender is the outcome of sender-identity resolution. ID is the
// gateway identifier with its suffix stripped; for masked senders it is not a
// phone number and must never be used as an outbound recipient.
type ResolvedSender struct {
	Kind     SenderKind
	RawID    string
	ID       string
	Masked   bool
	Employee *models.Employee
	Lead     *models.Lead
}

// ConversationFlow resolves inbound sender identity and routes each message
// through keyword rules and the intent classifier to a handler.
type ConversationFlow interface {
	HandleInbound(ctx context.Context, req *dto.InboundWebhookRequest, metadata *ClientMetadata) error
	ResolveSender(ctx context.Context, rawFrom string) (*ResolvedSender, error)
}

// ConversationFlowImpl implements ConversationFlow
type ConversationFlowImpl struct {
	leadRepo     repository.LeadRepository
	employeeRepo repository.EmployeeRepository
	messageRepo  repository.WhatsAppMessageRepository
	auditRepo    repository.AuditLogRepository
	followUpFlow FollowUpFlow
	classifier   services.IntentClassifier
	extractor    services.LeadExtractor
	gateway      services.WhatsAppGateway
	rc           *redis.Client
	cacheCfg     *config.CacheConfig
	webhookCfg   *config.WebhookConfig
	dispatchCfg  *config.DispatchConfig
}

func NewConversationFlow(
	leadRepo repository.LeadRepository,
	employeeRepo repository.EmployeeRepository,
	messageRepo repository.WhatsAppMessageRepository,
	auditRepo repository.AuditLogRepository,
	followUpFlow FollowUpFlow,
	classifier services.IntentClassifier,
	extractor services.LeadExtractor,
	gateway services.WhatsAppGateway,
	rc *redis.Client,
	cacheCfg *config.CacheConfig,
	webhookCfg *config.WebhookConfig,
	dispatchCfg *config.DispatchConfig,
) ConversationFlow {
	return &ConversationFlowImpl{
		leadRepo:     leadRepo,
		employeeRepo: employeeRepo,
		messageRepo:  messageRepo,
		auditRepo:    auditRepo,
		followUpFlow: followUpFlow,
		classifier:   classifier,
		extractor:    extractor,
		gateway:      gateway,
		rc:           rc,
		cacheCfg:     cacheCfg,
		webhookCfg:   webhookCfg,
		dispatchCfg:  dispatchCfg,
	}
}

// ResolveSender maps a raw gateway identifier to an employee, a lead, or
// unknown. Masked identifiers short-circuit: they are only ever linked to a
// lead through an earlier message carrying the same raw id, never by phone
// matching. Plain identifiers try the staff directory first, then exact lead
// phone forms, then an eight-digit suffix match.
func (f *ConversationFlowImpl) ResolveSender(ctx context.Context, rawFrom string) (*ResolvedSender, error) {
	id, masked := utils.StripJID(rawFrom)
	sender := &ResolvedSender{Kind: SenderKindUnknown, RawID: rawFrom, ID: id, Masked: masked}

	if masked {
		prev, err := f.messageRepo.LatestLinkedBySenderRaw(ctx, rawFrom)
		if err != nil {
			return nil, NewBusinessError("SENDER_LOOKUP_FAILED", "Failed to lookup masked sender", err)
		}
		if prev != nil && prev.LeadID != nil {
			lead, err := f.leadRepo.ByID(ctx, *prev.LeadID)
			if err != nil {
				return nil, NewBusinessError("SENDER_LOOKUP_FAILED", "Failed to load linked lead", err)
			}
			if lead != nil {
				sender.Kind = SenderKindLead
				sender.Lead = lead
			}
		}
		return sender, nil
	}

	phone := utils.DigitsOnly(id)
	if phone == "" {
		return sender, nil
	}

	employee, err := f.employeeRepo.ByPhone(ctx, phone, f.dispatchCfg.DefaultCountry)
	if err != nil {
		return nil, NewBusinessError("SENDER_LOOKUP_FAILED", "Failed to lookup employee by phone", err)
	}
	if employee != nil {
		sender.Kind = SenderKindEmployee
		sender.Employee = employee
		return sender, nil
	}

	for _, candidate := range leadPhoneCandidates(phone, f.dispatchCfg.DefaultCountry) {
		lead, err := f.leadRepo.ByPhone(ctx, candidate)
		if err != nil {
			return nil, NewBusinessError("SENDER_LOOKUP_FAILED", "Failed to lookup lead by phone", err)
		}
		if lead != nil {
			sender.Kind = SenderKindLead
			sender.Lead = lead
			return sender, nil
		}
	}

	if suffix := utils.LastNDigits(phone, 8); len(suffix) == 8 {
		lead, err := f.leadRepo.ByPhoneSuffix(ctx, suffix)
		if err != nil {
			return nil, NewBusinessError("SENDER_LOOKUP_FAILED", "Failed to lookup lead by phone suffix", err)
		}
		if lead != nil {
			sender.Kind = SenderKindLead
			sender.Lead = lead
			return sender, nil
		}
	}

	return sender, nil
}

// leadPhoneCandidates lists the exact phone forms tried against the lead
// store, in order: the digits as received, the local subscriber number, and
// the E.164 form.
func leadPhoneCandidates(phone, countryCode string) []string {
	candidates := []string{phone}
	if local := utils.SanitizePhone(phone, countryCode); local != phone {
		candidates = append(candidates, local)
	}
	if e164 := utils.NormalizeE164(phone, countryCode); e164 != "" {
		candidates = append(candidates, e164)
	}
	return candidates
}

// HandleInbound processes one webhook delivery end to end: dedupe, persist,
// resolve, route. Duplicate deliveries are a no-op. Errors during routing are
// returned for logging; the HTTP layer still acknowledges the delivery.
func (f *ConversationFlowImpl) HandleInbound(ctx context.Context, req *dto.InboundWebhookRequest, metadata *ClientMetadata) error {
	if req == nil || req.Payload.From == "" {
		return NewBusinessError("VALIDATION_ERROR", "Inbound payload is missing a sender", nil)
	}
	data := &req.Payload

	if data.MessageID != "" {
		seen, err := f.alreadySeen(ctx, data.MessageID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	sender, err := f.ResolveSender(ctx, data.From)
	if err != nil {
		return err
	}

	record, err := f.persistInbound(ctx, sender, data)
	if err != nil {
		return err
	}
	if record == nil {
		// A concurrent delivery of the same external id won the insert.
		return nil
	}

	f.auditInbound(ctx, sender, data, metadata)

	if data.MediaURL != "" || models.InboundMessageType(data.Type) == models.InboundMessageTypeImage {
		return f.handleImage(ctx, sender, data, record, metadata)
	}
	return f.handleText(ctx, sender, data.Body, metadata)
}

// alreadySeen reports whether an external message id was delivered before.
// Redis answers first when available; the unique index on the message ledger
// is the durable backstop.
func (f *ConversationFlowImpl) alreadySeen(ctx context.Context, externalID string) (bool, error) {
	if f.rc != nil {
		key := f.cacheCfg.RedisPrefix + utils.WebhookDedupeKey + externalID
		fresh, err := f.rc.SetNX(ctx, key, 1, f.webhookCfg.DedupeTTL).Result()
		if err == nil && !fresh {
			return true, nil
		}
	}
	existing, err := f.messageRepo.ByExternalID(ctx, externalID)
	if err != nil {
		return false, NewBusinessError("DEDUPE_LOOKUP_FAILED", "Failed to check for duplicate delivery", err)
	}
	return existing != nil, nil
}

func (f *ConversationFlowImpl) persistInbound(ctx context.Context, sender *ResolvedSender, data *dto.InboundMessageData) (*models.WhatsAppMessage, error) {
	msgType := models.InboundMessageType(data.Type)
	if !msgType.Valid() {
		msgType = models.InboundMessageTypeText
		if data.MediaURL != "" {
			msgType = models.InboundMessageTypeImage
		}
	}

	record := &models.WhatsAppMessage{
		Direction:    models.MessageDirectionInbound,
		FromNumber:   data.From,
		ToNumber:     data.To,
		MessageType:  msgType,
		SenderRawID:  &data.From,
		SenderMasked: sender.Masked,
		RawPayload:   data.Raw,
		Status:       "received",
	}
	if sender.Lead != nil {
		record.LeadID = &sender.Lead.ID
	}
	if data.Body != "" {
		record.Body = &data.Body
	}
	if data.MediaURL != "" {
		record.MediaURL = &data.MediaURL
	}
	if data.MessageID != "" {
		record.ExternalMessageID = &data.MessageID
	}

	if err := f.messageRepo.Save(ctx, record); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, nil
		}
		return nil, NewBusinessError("INBOUND_PERSIST_FAILED", "Failed to persist inbound message", err)
	}
	return record, nil
}

func (f *ConversationFlowImpl) handleText(ctx context.Context, sender *ResolvedSender, text string, metadata *ClientMetadata) error {
	switch sender.Kind {
	case SenderKindEmployee:
		lead, err := f.leadRepo.LatestByAssignedEmployee(ctx, sender.Employee.ID)
		if err != nil {
			return NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup employee's lead context", err)
		}
		if lead == nil {
			f.reply(ctx, sender, "No lead of yours is awaiting confirmation right now.")
			return nil
		}
		return f.routeIntent(ctx, sender, lead, text, metadata)
	case SenderKindLead:
		return f.routeIntent(ctx, sender, sender.Lead, text, metadata)
	default:
		f.reply(ctx, sender, generalReply(text))
		return nil
	}
}

func (f *ConversationFlowImpl) routeIntent(ctx context.Context, sender *ResolvedSender, lead *models.Lead, text string, metadata *ClientMetadata) error {
	intent, matched := keywordIntent(text)
	if !matched {
		classified, err := f.classifier.Classify(ctx, text, fmt.Sprintf("lead status: %s", lead.Status))
		if err != nil || !classified.Valid() {
			classified = models.IntentGeneral
		}
		intent = classified
	}
	inboundRoutedTotal.WithLabelValues(string(sender.Kind), intent.String()).Inc()

	switch intent {
	case models.IntentConfirmYes:
		return f.handleConfirmYes(ctx, sender, lead, metadata)
	case models.IntentConfirmNo:
		return f.handleConfirmNo(ctx, sender, lead)
	case models.IntentCorrection:
		return f.handleCorrection(ctx, sender, lead, text, metadata)
	case models.IntentDemoRequest:
		return f.handleSchedule(ctx, sender, lead, text, models.FollowUpActionDemo, 16, metadata)
	case models.IntentMeetingSchedule:
		return f.handleSchedule(ctx, sender, lead, text, models.FollowUpActionMeeting, 12, metadata)
	case models.IntentProblemStatement:
		return f.handleStatusNote(ctx, sender, lead, models.LeadStatusProblemReported)
	case models.IntentRequirementNote:
		return f.handleStatusNote(ctx, sender, lead, models.LeadStatusRequirementReceived)
	case models.IntentFollowUpNote:
		return f.handleStatusNote(ctx, sender, lead, models.LeadStatusFollowUpRequested)
	case models.IntentTaskAssign:
		return f.handleStatusNote(ctx, sender, lead, models.LeadStatusTaskAssigned)
	default:
		f.reply(ctx, sender, generalReply(text))
		return nil
	}
}

func (f *ConversationFlowImpl) handleConfirmYes(ctx context.Context, sender *ResolvedSender, lead *models.Lead, metadata *ClientMetadata) error {
	if err := f.leadRepo.MarkConfirmed(ctx, lead.ID); err != nil {
		return NewBusinessError("LEAD_UPDATE_FAILED", "Failed to mark lead confirmed", err)
	}
	f.audit(ctx, &lead.ID, models.AuditActionLeadConfirmed,
		fmt.Sprintf("Lead %d confirmed details", lead.ID), metadata)
	f.reply(ctx, sender, "Thank you! Your details are confirmed.")
	return nil
}

func (f *ConversationFlowImpl) handleConfirmNo(ctx context.Context, sender *ResolvedSender, lead *models.Lead) error {
	state := models.ConversationStateCorrectionPending
	if err := f.leadRepo.UpdateStatus(ctx, lead.ID, models.LeadStatusNeedsCorrection, &state); err != nil {
		return NewBusinessError("LEAD_UPDATE_FAILED", "Failed to flag lead for correction", err)
	}
	f.reply(ctx, sender, "No problem. Please send the correct details, for example:\nname: John Smith\ncompany: Acme Corp")
	return nil
}

func (f *ConversationFlowImpl) handleCorrection(ctx context.Context, sender *ResolvedSender, lead *models.Lead, text string, metadata *ClientMetadata) error {
	updates := utils.ParseCorrections(text)
	if len(updates) == 0 {
		state := models.ConversationStateCorrectionPending
		if err := f.leadRepo.UpdateStatus(ctx, lead.ID, models.LeadStatusNeedsCorrection, &state); err != nil {
			return NewBusinessError("LEAD_UPDATE_FAILED", "Failed to flag lead for correction", err)
		}
		f.reply(ctx, sender, "I couldn't read that correction. Please send it field by field, for example:\nname: John Smith\nphone: 9876543210")
		return nil
	}

	if err := f.leadRepo.ApplyCorrections(ctx, lead.ID, updates); err != nil {
		return NewBusinessError("CORRECTION_FAILED", "Failed to apply corrections", err)
	}
	f.audit(ctx, &lead.ID, models.AuditActionCorrectionApplied,
		fmt.Sprintf("Applied corrections to lead %d: %s", lead.ID, correctionSummary(updates)), metadata)
	f.reply(ctx, sender, "Updated and confirmed:\n"+correctionSummary(updates))
	return nil
}

func (f *ConversationFlowImpl) handleSchedule(ctx context.Context, sender *ResolvedSender, lead *models.Lead, text string, action models.FollowUpAction, defaultHour int, metadata *ClientMetadata) error {
	now := utils.UTCNow()
	when, ok := utils.ParseDateTimeFromText(text, now)
	if !ok {
		tomorrow := now.AddDate(0, 0, 1)
		when = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), defaultHour, 0, 0, 0, time.UTC)
	}

	if _, err := f.followUpFlow.CreateFollowUp(ctx, lead.ID, action, when, text, metadata); err != nil {
		return err
	}
	f.reply(ctx, sender, fmt.Sprintf("Got it. A %s is scheduled for %s. Our team will reach out.",
		action, when.Format("Mon 02 Jan 15:04")))
	return nil
}

func (f *ConversationFlowImpl) handleStatusNote(ctx context.Context, sender *ResolvedSender, lead *models.Lead, status models.LeadStatus) error {
	if err := f.leadRepo.UpdateStatus(ctx, lead.ID, status, nil); err != nil {
		return NewBusinessError("LEAD_UPDATE_FAILED", "Failed to update lead status", err)
	}
	f.reply(ctx, sender, "Thanks, we have noted this. Our team will follow up shortly.")
	return nil
}

func (f *ConversationFlowImpl) handleImage(ctx context.Context, sender *ResolvedSender, data *dto.InboundMessageData, record *models.WhatsAppMessage, metadata *ClientMetadata) error {
	switch sender.Kind {
	case SenderKindEmployee:
		lead, err := f.createLeadFromImage(ctx, data.MediaURL, "", &sender.Employee.ID)
		if err != nil {
			f.reply(ctx, sender, "Couldn't read a lead card from that image. Please try a clearer photo.")
			return err
		}
		f.linkRecord(ctx, record, lead.ID)
		f.reply(ctx, sender, "New lead captured:\n"+leadSummary(lead))
		return nil
	case SenderKindLead:
		// Already linked at persist time; the image stays on the lead's
		// message trail as an attachment.
		return nil
	default:
		if sender.Masked {
			if sender.Lead != nil {
				// Re-linking the same masked id is a no-op.
				f.linkRecord(ctx, record, sender.Lead.ID)
				return nil
			}
			lead, err := f.createLeadFromImage(ctx, data.MediaURL, "", nil)
			if err != nil {
				return err
			}
			f.linkRecord(ctx, record, lead.ID)
			return nil
		}
		lead, err := f.createLeadFromImage(ctx, data.MediaURL, utils.DigitsOnly(sender.ID), nil)
		if err != nil {
			return err
		}
		f.linkRecord(ctx, record, lead.ID)
		return nil
	}
}

// createLeadFromImage extracts a lead card from an image and persists a new
// lead. senderPhone, when non-empty, wins over any phone printed on the card.
func (f *ConversationFlowImpl) createLeadFromImage(ctx context.Context, mediaURL, senderPhone string, assignedEmployeeID *uint) (*models.Lead, error) {
	lead := &models.Lead{
		Status:             models.LeadStatusNew,
		AssignedEmployeeID: assignedEmployeeID,
	}

	if mediaURL != "" {
		card, err := f.extractor.ExtractLead(ctx, mediaURL)
		if err == nil && card != nil {
			if card.Name != "" {
				lead.Name = &card.Name
			}
			if card.Company != "" {
				lead.Company = &card.Company
			}
			if card.Designation != "" {
				lead.Designation = &card.Designation
			}
			if card.Email != "" {
				lead.Email = &card.Email
			}
			if digits := utils.DigitsOnly(card.Phone); utils.IsValidPhoneDigits(digits) {
				lead.Phone = &digits
			}
		}
	}
	if senderPhone != "" && utils.IsValidPhoneDigits(senderPhone) {
		lead.Phone = &senderPhone
	}

	if err := f.leadRepo.Save(ctx, lead); err != nil {
		return nil, NewBusinessError("LEAD_CREATE_FAILED", "Failed to create lead from image", err)
	}
	return lead, nil
}

func (f *ConversationFlowImpl) linkRecord(ctx context.Context, record *models.WhatsAppMessage, leadID uint) {
	if record == nil || (record.LeadID != nil && *record.LeadID == leadID) {
		return
	}
	_ = f.messageRepo.LinkToLead(ctx, record.ID, leadID)
}

// reply sends a text back to the inbound sender. Masked senders are never
// replied to; their inbound messages are persisted and routed, but the masked
// id cannot be dialed.
func (f *ConversationFlowImpl) reply(ctx context.Context, sender *ResolvedSender, body string) {
	if sender.Masked || body == "" {
		return
	}
	recipient := utils.DigitsOnly(utils.NormalizeE164(sender.ID, f.dispatchCfg.DefaultCountry))
	if !utils.IsValidPhoneDigits(recipient) {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, f.dispatchCfg.SendTimeout)
	defer cancel()
	result, err := f.gateway.SendText(sendCtx, recipient, body)
	if err != nil {
		return
	}

	outbound := &models.WhatsAppMessage{
		Direction:   models.MessageDirectionOutbound,
		ToNumber:    recipient,
		MessageType: models.InboundMessageTypeText,
		Body:        &body,
		Status:      "sent",
	}
	if sender.Lead != nil {
		outbound.LeadID = &sender.Lead.ID
	}
	if result.ExternalMessageID != "" {
		outbound.ExternalMessageID = &result.ExternalMessageID
	}
	_ = f.messageRepo.Save(ctx, outbound)
}

func (f *ConversationFlowImpl) auditInbound(ctx context.Context, sender *ResolvedSender, data *dto.InboundMessageData, metadata *ClientMetadata) {
	desc := fmt.Sprintf("Inbound %s message from %s resolved as %s", data.Type, data.From, sender.Kind)
	var leadID *uint
	if sender.Lead != nil {
		leadID = &sender.Lead.ID
	}
	f.audit(ctx, leadID, models.AuditActionInboundReceived, desc, metadata)
}

func (f *ConversationFlowImpl) audit(ctx context.Context, leadID *uint, action, description string, metadata *ClientMetadata) {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}
	entry := &models.AuditLog{
		LeadID:      leadID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}
	_ = f.auditRepo.Save(ctx, entry)
}

// Keyword rules run in a fixed order before the classifier. A rule that fires
// settles the intent; the classifier only sees text no rule claims.
var yesWords = []string{"yes", "y", "yeah", "yep", "ok", "okay", "correct", "confirm", "confirmed", "right", "done", "haan", "han", "ha", "sahi", "theek", "thik"}

var noWords = []string{"no", "nope", "wrong", "incorrect", "galat", "nahi", "nahin"}

func keywordIntent(text string) (models.Intent, bool) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(text), "!.,? "))

	for _, w := range yesWords {
		if normalized == w {
			return models.IntentConfirmYes, true
		}
	}
	for _, w := range noWords {
		if normalized == w {
			return models.IntentConfirmNo, true
		}
	}
	if len(utils.ParseCorrections(text)) > 0 {
		return models.IntentCorrection, true
	}
	if strings.Contains(normalized, "demo") {
		return models.IntentDemoRequest, true
	}
	if strings.Contains(normalized, "meeting") || strings.Contains(normalized, "meet ") ||
		strings.Contains(normalized, "schedule a call") {
		return models.IntentMeetingSchedule, true
	}
	if strings.Contains(normalized, "problem") || strings.Contains(normalized, "issue") ||
		strings.Contains(normalized, "not working") || strings.Contains(normalized, "complaint") {
		return models.IntentProblemStatement, true
	}
	if strings.Contains(normalized, "requirement") || strings.Contains(normalized, "looking for") {
		return models.IntentRequirementNote, true
	}
	if strings.Contains(normalized, "follow up") || strings.Contains(normalized, "followup") ||
		strings.Contains(normalized, "call me") || strings.Contains(normalized, "call back") {
		return models.IntentFollowUpNote, true
	}
	if strings.Contains(normalized, "assign") {
		return models.IntentTaskAssign, true
	}
	return "", false
}

func generalReply(text string) string {
	if utils.IsGreeting(text) {
		return "Hello! How can we help you today?"
	}
	if utils.IsHindiText(text) {
		return "धन्यवाद! हमारी टीम जल्द ही आपसे संपर्क करेगी।"
	}
	return "Thanks for your message. Our team will get back to you shortly."
}

func correctionSummary(updates map[string]string) string {
	order := []string{
		utils.CorrectionFieldName,
		utils.CorrectionFieldCompany,
		utils.CorrectionFieldDesignation,
		utils.CorrectionFieldPhone,
		utils.CorrectionFieldEmail,
	}
	var lines []string
	for _, field := range order {
		if v, ok := updates[field]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", titleCase(field), v))
		}
	}
	return strings.Join(lines, "\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func leadSummary(lead *models.Lead) string {
	return fmt.Sprintf("Name: %s\nCompany: %s\nDesignation: %s\nPhone: %s\nEmail: %s",
		strVal(lead.Name), strVal(lead.Company), strVal(lead.Designation),
		strVal(lead.Phone), strVal(lead.Email))
}
