package repository

import (
	"context"
	"errors"

	"github.com/engageworks/drip-engine/models"
	"gorm.io/gorm"
)

// WhatsAppMessageRepositoryImpl implements WhatsAppMessageRepository
type WhatsAppMessageRepositoryImpl struct {
	*BaseRepository[models.WhatsAppMessage, models.WhatsAppMessageFilter]
}

func NewWhatsAppMessageRepository(db *gorm.DB) WhatsAppMessageRepository {
	return &WhatsAppMessageRepositoryImpl{BaseRepository: NewBaseRepository[models.WhatsAppMessage, models.WhatsAppMessageFilter](db)}
}

func (r *WhatsAppMessageRepositoryImpl) ByExternalID(ctx context.Context, externalID string) (*models.WhatsAppMessage, error) {
	if externalID == "" {
		return nil, nil
	}
	db := r.getDB(ctx)
	var row models.WhatsAppMessage
	if err := db.Where("external_message_id = ?", externalID).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// LatestLinkedBySenderRaw returns the newest message from the given raw sender
// identifier that has already been linked to a lead. Masked senders carry no
// phone number, so this linkage is the only way to route them.
func (r *WhatsAppMessageRepositoryImpl) LatestLinkedBySenderRaw(ctx context.Context, senderRawID string) (*models.WhatsAppMessage, error) {
	db := r.getDB(ctx)
	var row models.WhatsAppMessage
	err := db.Where("sender_raw_id = ? AND lead_id IS NOT NULL", senderRawID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *WhatsAppMessageRepositoryImpl) LinkToLead(ctx context.Context, messageID uint, leadID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.WhatsAppMessage{}).Where("id = ?", messageID).
		Update("lead_id", leadID).Error
}

func (r *WhatsAppMessageRepositoryImpl) applyFilter(db *gorm.DB, f models.WhatsAppMessageFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
	}
	if f.Direction != nil {
		db = db.Where("direction = ?", *f.Direction)
	}
	if f.FromNumber != nil {
		db = db.Where("from_number = ?", *f.FromNumber)
	}
	if f.SenderRawID != nil {
		db = db.Where("sender_raw_id = ?", *f.SenderRawID)
	}
	if f.SenderMasked != nil {
		db = db.Where("sender_masked = ?", *f.SenderMasked)
	}
	if f.MessageType != nil {
		db = db.Where("message_type = ?", *f.MessageType)
	}
	if f.ExternalMessageID != nil {
		db = db.Where("external_message_id = ?", *f.ExternalMessageID)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *WhatsAppMessageRepositoryImpl) ByFilter(ctx context.Context, filter models.WhatsAppMessageFilter, orderBy string, limit, offset int) ([]*models.WhatsAppMessage, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.WhatsAppMessage{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.WhatsAppMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *WhatsAppMessageRepositoryImpl) Count(ctx context.Context, filter models.WhatsAppMessageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.WhatsAppMessage{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *WhatsAppMessageRepositoryImpl) Exists(ctx context.Context, filter models.WhatsAppMessageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
