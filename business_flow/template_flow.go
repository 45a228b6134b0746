package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	"github.com/engageworks/drip-engine/utils"
	"gorm.io/gorm"
)

// TemplateFlow manages drip templates and their message slots
type TemplateFlow interface {
	CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest, metadata *ClientMetadata) (*dto.CreateTemplateResponse, error)
	ListTemplates(ctx context.Context) (*dto.ListTemplatesResponse, error)
	SeedDefaults(ctx context.Context) error
}

// TemplateFlowImpl implements TemplateFlow
type TemplateFlowImpl struct {
	db           *gorm.DB
	templateRepo repository.DripTemplateRepository
	auditRepo    repository.AuditLogRepository
}

func NewTemplateFlow(db *gorm.DB, templateRepo repository.DripTemplateRepository, auditRepo repository.AuditLogRepository) TemplateFlow {
	return &TemplateFlowImpl{
		db:           db,
		templateRepo: templateRepo,
		auditRepo:    auditRepo,
	}
}

// CreateTemplate persists a template and its slots in one transaction.
func (f *TemplateFlowImpl) CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest, metadata *ClientMetadata) (*dto.CreateTemplateResponse, error) {
	if req == nil || req.Name == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Template name is required", ErrTemplateNameRequired)
	}
	category := models.TemplateCategory(req.Category)
	if !category.Valid() {
		return nil, NewBusinessError("VALIDATION_ERROR", "Unknown template category", nil)
	}
	if len(req.Slots) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "At least one message slot is required", ErrTemplateHasNoSlots)
	}
	for _, slot := range req.Slots {
		if slot.TimeOfDay != "" {
			if _, _, err := models.ParseTimeOfDay(slot.TimeOfDay); err != nil {
				return nil, NewBusinessError("VALIDATION_ERROR", fmt.Sprintf("Invalid time of day %q", slot.TimeOfDay), ErrSlotTimeInvalid)
			}
		}
	}

	existing, err := f.templateRepo.ByName(ctx, req.Name)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to lookup template", err)
	}
	if existing != nil {
		return nil, NewBusinessError("TEMPLATE_CONFLICT", "A template with this name already exists", nil)
	}

	template := &models.DripTemplate{
		Name:     req.Name,
		Category: category,
		IsActive: utils.ToPtr(true),
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.templateRepo.Save(txCtx, template); err != nil {
			return err
		}
		slots := make([]*models.MessageSlot, 0, len(req.Slots))
		for _, s := range req.Slots {
			slot := &models.MessageSlot{
				TemplateID: template.ID,
				DayOffset:  s.DayOffset,
				SortOrder:  s.SortOrder,
				Body:       s.Body,
			}
			if s.TimeOfDay != "" {
				slot.TimeOfDay = s.TimeOfDay
			}
			slots = append(slots, slot)
		}
		return f.templateRepo.SaveSlots(txCtx, slots)
	})
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_CREATE_FAILED", "Failed to create template", err)
	}

	msg := fmt.Sprintf("Template %q created with %d slots", req.Name, len(req.Slots))
	_ = f.createAuditLog(ctx, models.AuditActionTemplateCreated, msg, metadata)

	return &dto.CreateTemplateResponse{
		TemplateID: template.ID,
		UUID:       template.UUID.String(),
		Name:       template.Name,
		SlotCount:  len(req.Slots),
	}, nil
}

// ListTemplates returns active templates with their slots.
func (f *TemplateFlowImpl) ListTemplates(ctx context.Context) (*dto.ListTemplatesResponse, error) {
	templates, err := f.templateRepo.ListActive(ctx, 0, 0)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LIST_FAILED", "Failed to list templates", err)
	}

	resp := &dto.ListTemplatesResponse{Templates: make([]dto.TemplateDTO, 0, len(templates))}
	for _, t := range templates {
		full, err := f.templateRepo.ByIDWithSlots(ctx, t.ID)
		if err != nil || full == nil {
			continue
		}
		item := dto.TemplateDTO{
			ID:        full.ID,
			UUID:      full.UUID.String(),
			Name:      full.Name,
			Category:  full.Category.String(),
			IsActive:  utils.IsTrue(full.IsActive),
			CreatedAt: full.CreatedAt.UTC().Format(time.RFC3339),
			Slots:     make([]dto.MessageSlotDTO, 0, len(full.Slots)),
		}
		for _, s := range full.Slots {
			item.Slots = append(item.Slots, dto.MessageSlotDTO{
				DayOffset: s.DayOffset,
				TimeOfDay: s.TimeOfDay,
				SortOrder: s.SortOrder,
				Body:      s.Body,
			})
		}
		resp.Templates = append(resp.Templates, item)
	}
	resp.Total = len(resp.Templates)
	return resp, nil
}

// defaultCatalog is the built-in drip sequence per audience category. Each
// entry runs on day offsets 0, 1, 2, 4, 7 and 14.
var defaultCatalog = map[models.TemplateCategory][]string{
	models.TemplateCategoryDecisionMaker: {
		"Hi {{name}}, great connecting with you. Sharing a quick overview of what we do for teams like {{company}}.",
		"Hi {{name}}, following up on yesterday's note. Happy to walk you through a short demo whenever convenient.",
		"Hi {{name}}, leaders at companies like {{company}} use us to cut manual follow-up work. Worth a quick chat?",
		"Hi {{name}}, checking in. Would a 15-minute call this week work for you?",
		"Hi {{name}}, circling back once more. I can share a case study relevant to {{company}} if useful.",
		"Hi {{name}}, closing the loop here. Reply anytime and we will pick this right up.",
	},
	models.TemplateCategoryTechnical: {
		"Hi {{name}}, good to meet you. Sharing our technical overview and integration docs.",
		"Hi {{name}}, our API covers scheduling, delivery and inbound routing end to end. Questions welcome.",
		"Hi {{name}}, teams usually integrate in under a week. Want a sandbox account for {{company}}?",
		"Hi {{name}}, following up. I can set up a technical deep-dive with our engineers.",
		"Hi {{name}}, checking in on the evaluation. Anything blocking you?",
		"Hi {{name}}, last note from me. The sandbox stays open whenever you want to continue.",
	},
	models.TemplateCategoryPurchase: {
		"Hi {{name}}, thanks for your interest. Sharing our plans and pricing.",
		"Hi {{name}}, happy to tailor a quote for {{company}}. What volumes are you expecting?",
		"Hi {{name}}, a quick note that onboarding support is included in every plan.",
		"Hi {{name}}, following up on the quote. Can I answer anything?",
		"Hi {{name}}, checking in. We can hold current pricing for you this month.",
		"Hi {{name}}, final follow-up on pricing. Ping me anytime to continue.",
	},
	models.TemplateCategorySales: {
		"Hi {{name}}, great meeting you. Here is a one-pager on how we help teams like {{company}}.",
		"Hi {{name}}, quick follow-up. Would you like a walkthrough this week?",
		"Hi {{name}}, most teams see results within the first month. Happy to show you how.",
		"Hi {{name}}, checking in. Does a short call on Thursday work?",
		"Hi {{name}}, circling back. I can loop in a specialist for {{company}}'s use case.",
		"Hi {{name}}, closing out my follow-ups. Reply anytime and we will resume.",
	},
	models.TemplateCategoryGeneral: {
		"Hi {{name}}, thanks for connecting. We will share more about what we do shortly.",
		"Hi {{name}}, here is a short intro to our product. Questions welcome.",
		"Hi {{name}}, following up in case the earlier note got buried.",
		"Hi {{name}}, checking in. Is this something {{company}} is exploring right now?",
		"Hi {{name}}, circling back once more this week.",
		"Hi {{name}}, final note from me. Reach out anytime.",
	},
}

var defaultDayOffsets = []int{0, 1, 2, 4, 7, 14}

// SeedDefaults creates the built-in template catalog for categories that do
// not exist yet. Safe to run at every startup.
func (f *TemplateFlowImpl) SeedDefaults(ctx context.Context) error {
	for category, bodies := range defaultCatalog {
		name := category.String()
		existing, err := f.templateRepo.ByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		template := &models.DripTemplate{
			Name:     name,
			Category: category,
			IsActive: utils.ToPtr(true),
		}
		err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
			if err := f.templateRepo.Save(txCtx, template); err != nil {
				return err
			}
			slots := make([]*models.MessageSlot, 0, len(bodies))
			for i, body := range bodies {
				slots = append(slots, &models.MessageSlot{
					TemplateID: template.ID,
					DayOffset:  defaultDayOffsets[i],
					SortOrder:  0,
					Body:       body,
				})
			}
			return f.templateRepo.SaveSlots(txCtx, slots)
		})
		if err != nil {
			return fmt.Errorf("seed template %q: %w", name, err)
		}
	}
	return nil
}

func (f *TemplateFlowImpl) createAuditLog(ctx context.Context, action, description string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}
	audit := &models.AuditLog{
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}
	return f.auditRepo.Save(ctx, audit)
}
