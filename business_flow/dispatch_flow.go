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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound drip sends partitioned by outcome
	dispatchMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_messages_total",
			Help: "Scheduled drip messages processed, by outcome",
		},
		[]string{"outcome"},
	)

	// Follow-up sends partitioned by escalation tier
	dispatchFollowUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_followups_total",
			Help: "Manual follow-up messages processed, by tier",
		},
		[]string{"tier", "outcome"},
	)
)

// Follow-up reminder bodies per escalation tier
var followUpBodies = map[models.EscalationTier]string{
	models.EscalationTierFirst:  "Hi {{name}}, just checking in. Could you confirm the details we shared earlier?",
	models.EscalationTierSecond: "Hi {{name}}, a gentle reminder from {{company}}. We are still waiting for your confirmation.",
	models.EscalationTierThird:  "Hi {{name}}, this is our final reminder. Please reply so we can keep your request moving.",
}

// DispatchFlow drains due scheduled messages and follow-up reminders through
// the gateway. Both entry points are invoked by the scheduler tickers and by
// the manual processing endpoint.
type DispatchFlow interface {
	ProcessDueMessages(ctx context.Context) (*dto.ProcessDueResponse, error)
	ProcessDueFollowUps(ctx context.Context) (*dto.ProcessDueResponse, error)
}

// DispatchFlowImpl implements DispatchFlow
type DispatchFlowImpl struct {
	leadRepo     repository.LeadRepository
	templateRepo repository.DripTemplateRepository
	messageRepo  repository.ScheduledMessageRepository
	followUpRepo repository.ManualFollowUpRepository
	auditRepo    repository.AuditLogRepository
	gateway      services.WhatsAppGateway
	cfg          *config.DispatchConfig
}

func NewDispatchFlow(
	leadRepo repository.LeadRepository,
	templateRepo repository.DripTemplateRepository,
	messageRepo repository.ScheduledMessageRepository,
	followUpRepo repository.ManualFollowUpRepository,
	auditRepo repository.AuditLogRepository,
	gateway services.WhatsAppGateway,
	cfg *config.DispatchConfig,
) DispatchFlow {
	return &DispatchFlowImpl{
		leadRepo:     leadRepo,
		templateRepo: templateRepo,
		messageRepo:  messageRepo,
		followUpRepo: followUpRepo,
		auditRepo:    auditRepo,
		gateway:      gateway,
		cfg:          cfg,
	}
}

const dispatchBatchSize = 200

// ProcessDueMessages sends every due message of an active assignment. Each
// message is claimed with a conditional update before the gateway call, so a
// stop or pause landing mid-pass loses at most the message already claimed.
// A failed send is terminal for that message.
func (f *DispatchFlowImpl) ProcessDueMessages(ctx context.Context) (*dto.ProcessDueResponse, error) {
	now := utils.UTCNow()
	due, err := f.messageRepo.ListDue(ctx, now, dispatchBatchSize)
	if err != nil {
		return nil, NewBusinessError("DISPATCH_LIST_FAILED", "Failed to list due messages", err)
	}

	resp := &dto.ProcessDueResponse{}
	for _, message := range due {
		claimed, err := f.messageRepo.Claim(ctx, message.ID)
		if err != nil {
			return resp, NewBusinessError("DISPATCH_CLAIM_FAILED", "Failed to claim scheduled message", err)
		}
		if !claimed {
			// Stopped, paused, or taken by a concurrent pass since listing
			continue
		}

		if err := f.deliver(ctx, message); err != nil {
			reason := err.Error()
			_ = f.messageRepo.MarkFailed(ctx, message.ID, reason)
			_ = f.auditDispatch(ctx, message.LeadID, models.AuditActionMessageFailed,
				fmt.Sprintf("Scheduled message %d failed: %s", message.ID, reason), false, &reason)
			dispatchMessagesTotal.WithLabelValues("failed").Inc()
			resp.Failed++
		} else {
			dispatchMessagesTotal.WithLabelValues("sent").Inc()
			resp.Processed++
		}
		resp.Total++
	}
	return resp, nil
}

// deliver resolves the message body and recipient, then sends and marks sent.
func (f *DispatchFlowImpl) deliver(ctx context.Context, message *models.ScheduledMessage) error {
	lead, err := f.leadRepo.ByID(ctx, message.LeadID)
	if err != nil {
		return fmt.Errorf("lead lookup: %w", err)
	}
	if lead == nil {
		return ErrLeadNotFound
	}
	if lead.Phone == nil || *lead.Phone == "" {
		return ErrLeadHasNoPhone
	}

	recipient := utils.DigitsOnly(utils.NormalizeE164(*lead.Phone, f.cfg.DefaultCountry))
	if !utils.IsValidPhoneDigits(recipient) {
		return ErrLeadPhoneInvalid
	}

	slot, err := f.templateRepo.SlotByID(ctx, message.SlotID)
	if err != nil {
		return fmt.Errorf("slot lookup: %w", err)
	}
	if slot == nil {
		return fmt.Errorf("message slot %d vanished", message.SlotID)
	}

	body := utils.PersonalizeMessage(slot.Body, map[string]string{
		"name":    strVal(lead.Name),
		"company": strVal(lead.Company),
	})

	sendCtx, cancel := context.WithTimeout(ctx, f.cfg.SendTimeout)
	defer cancel()

	result, err := f.gateway.SendText(sendCtx, recipient, body)
	if err != nil {
		return err
	}

	now := utils.UTCNow()
	if err := f.messageRepo.MarkSent(ctx, message.ID, result.ExternalMessageID, now); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	_ = f.auditDispatch(ctx, message.LeadID, models.AuditActionMessageSent,
		fmt.Sprintf("Scheduled message %d sent as %s", message.ID, result.ExternalMessageID), true, nil)
	return nil
}

// ProcessDueFollowUps sends tiered reminders for pending follow-ups whose
// leads have still not confirmed their details.
func (f *DispatchFlowImpl) ProcessDueFollowUps(ctx context.Context) (*dto.ProcessDueResponse, error) {
	now := utils.UTCNow()
	due, err := f.followUpRepo.ListDueForUnconfirmedLeads(ctx, now, dispatchBatchSize)
	if err != nil {
		return nil, NewBusinessError("FOLLOWUP_LIST_FAILED", "Failed to list due follow-ups", err)
	}

	resp := &dto.ProcessDueResponse{}
	for _, followUp := range due {
		tier := followUp.Tier(now)
		tierLabel := fmt.Sprintf("%d", tier)

		lead, err := f.leadRepo.ByID(ctx, followUp.LeadID)
		if err != nil || lead == nil || lead.Phone == nil || *lead.Phone == "" {
			_ = f.followUpRepo.MarkFailed(ctx, followUp.ID)
			dispatchFollowUpsTotal.WithLabelValues(tierLabel, "failed").Inc()
			resp.Failed++
			resp.Total++
			continue
		}

		body := utils.PersonalizeMessage(followUpBodies[tier], map[string]string{
			"name":    strVal(lead.Name),
			"company": strVal(lead.Company),
		})

		recipient := utils.DigitsOnly(utils.NormalizeE164(*lead.Phone, f.cfg.DefaultCountry))
		sendCtx, cancel := context.WithTimeout(ctx, f.cfg.SendTimeout)
		_, err = f.gateway.SendText(sendCtx, recipient, body)
		cancel()

		if err != nil {
			reason := err.Error()
			_ = f.followUpRepo.MarkFailed(ctx, followUp.ID)
			_ = f.auditDispatch(ctx, followUp.LeadID, models.AuditActionMessageFailed,
				fmt.Sprintf("Follow-up %d tier %s failed: %s", followUp.ID, tierLabel, reason), false, &reason)
			dispatchFollowUpsTotal.WithLabelValues(tierLabel, "failed").Inc()
			resp.Failed++
		} else {
			_ = f.followUpRepo.MarkCompleted(ctx, followUp.ID, utils.UTCNow())
			_ = f.auditDispatch(ctx, followUp.LeadID, models.AuditActionFollowUpCompleted,
				fmt.Sprintf("Follow-up %d tier %s reminder sent", followUp.ID, tierLabel), true, nil)
			dispatchFollowUpsTotal.WithLabelValues(tierLabel, "sent").Inc()
			resp.Processed++
		}
		resp.Total++
	}
	return resp, nil
}

func (f *DispatchFlowImpl) auditDispatch(ctx context.Context, leadID uint, action, description string, success bool, errorMsg *string) error {
	audit := &models.AuditLog{
		LeadID:       &leadID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		ErrorMessage: errorMsg,
	}
	return f.auditRepo.Save(ctx, audit)
}
