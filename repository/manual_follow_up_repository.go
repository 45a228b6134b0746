package repository

import (
	"context"
	"time"

	"github.com/engageworks/drip-engine/models"
	"gorm.io/gorm"
)

// ManualFollowUpRepositoryImpl implements ManualFollowUpRepository
type ManualFollowUpRepositoryImpl struct {
	*BaseRepository[models.ManualFollowUp, models.ManualFollowUpFilter]
}

func NewManualFollowUpRepository(db *gorm.DB) ManualFollowUpRepository {
	return &ManualFollowUpRepositoryImpl{BaseRepository: NewBaseRepository[models.ManualFollowUp, models.ManualFollowUpFilter](db)}
}

// ListDueForUnconfirmedLeads returns due pending follow-ups whose lead has not
// yet confirmed. Confirmed leads fall out of the reminder ladder without any
// explicit cancellation.
func (r *ManualFollowUpRepositoryImpl) ListDueForUnconfirmedLeads(ctx context.Context, now time.Time, limit int) ([]*models.ManualFollowUp, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ManualFollowUp{}).
		Joins("JOIN leads ON leads.id = manual_follow_ups.lead_id").
		Where("manual_follow_ups.status = ?", models.FollowUpStatusPending).
		Where("manual_follow_ups.scheduled_at <= ?", now).
		Where("leads.confirmed = ? OR leads.confirmed IS NULL", false).
		Where("leads.status <> ?", models.LeadStatusConfirmed).
		Order("manual_follow_ups.scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []*models.ManualFollowUp
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ManualFollowUpRepositoryImpl) MarkCompleted(ctx context.Context, followUpID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.ManualFollowUp{}).
		Where("id = ? AND status = ?", followUpID, models.FollowUpStatusPending).
		Updates(map[string]any{
			"status":       models.FollowUpStatusCompleted,
			"completed_at": at,
			"updated_at":   at,
		}).Error
}

func (r *ManualFollowUpRepositoryImpl) MarkFailed(ctx context.Context, followUpID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.ManualFollowUp{}).
		Where("id = ? AND status = ?", followUpID, models.FollowUpStatusPending).
		Updates(map[string]any{
			"status":     models.FollowUpStatusFailed,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *ManualFollowUpRepositoryImpl) CancelPendingByLead(ctx context.Context, leadID uint) (int64, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.ManualFollowUp{}).
		Where("lead_id = ? AND status = ?", leadID, models.FollowUpStatusPending).
		Updates(map[string]any{
			"status":     models.FollowUpStatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *ManualFollowUpRepositoryImpl) applyFilter(db *gorm.DB, f models.ManualFollowUpFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
	}
	if f.ActionType != nil {
		db = db.Where("action_type = ?", *f.ActionType)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.ScheduledAfter != nil {
		db = db.Where("scheduled_at >= ?", *f.ScheduledAfter)
	}
	if f.ScheduledBefore != nil {
		db = db.Where("scheduled_at < ?", *f.ScheduledBefore)
	}
	return db
}

func (r *ManualFollowUpRepositoryImpl) ByFilter(ctx context.Context, filter models.ManualFollowUpFilter, orderBy string, limit, offset int) ([]*models.ManualFollowUp, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ManualFollowUp{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ManualFollowUp
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ManualFollowUpRepositoryImpl) Count(ctx context.Context, filter models.ManualFollowUpFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ManualFollowUp{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ManualFollowUpRepositoryImpl) Exists(ctx context.Context, filter models.ManualFollowUpFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
