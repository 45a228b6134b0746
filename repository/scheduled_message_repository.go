package repository

import (
	"context"
	"time"

	"github.com/engageworks/drip-engine/models"
	"gorm.io/gorm"
)

// ScheduledMessageRepositoryImpl implements ScheduledMessageRepository
type ScheduledMessageRepositoryImpl struct {
	*BaseRepository[models.ScheduledMessage, models.ScheduledMessageFilter]
}

func NewScheduledMessageRepository(db *gorm.DB) ScheduledMessageRepository {
	return &ScheduledMessageRepositoryImpl{BaseRepository: NewBaseRepository[models.ScheduledMessage, models.ScheduledMessageFilter](db)}
}

// ListDue returns pending messages whose scheduled instant has passed and
// whose assignment is active. The join keeps eligibility a single read; the
// claim step re-checks it before any gateway call.
func (r *ScheduledMessageRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledMessage, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ScheduledMessage{}).
		Joins("JOIN lead_drip_assignments ON lead_drip_assignments.id = scheduled_messages.assignment_id").
		Where("scheduled_messages.status = ?", models.MessageStatusPending).
		Where("scheduled_messages.scheduled_at <= ?", now).
		Where("lead_drip_assignments.status = ?", models.AssignmentStatusActive).
		Order("scheduled_messages.scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []*models.ScheduledMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Claim atomically reserves a due row for one dispatch attempt. The
// conditional UPDATE transitions pending to claimed only while the owning
// assignment is still active, so a message can never be claimed after a
// concurrent stop. Returns false when another worker won the row or the
// assignment left the active state.
func (r *ScheduledMessageRepositoryImpl) Claim(ctx context.Context, messageID uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Exec(`UPDATE scheduled_messages
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
		AND EXISTS (
			SELECT 1 FROM lead_drip_assignments
			WHERE lead_drip_assignments.id = scheduled_messages.assignment_id
			AND lead_drip_assignments.status = ?
		)`,
		models.MessageStatusClaimed, time.Now().UTC(), messageID,
		models.MessageStatusPending, models.AssignmentStatusActive)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkSent records a successful dispatch on a claimed row.
func (r *ScheduledMessageRepositoryImpl) MarkSent(ctx context.Context, messageID uint, externalMessageID string, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.ScheduledMessage{}).
		Where("id = ? AND status = ?", messageID, models.MessageStatusClaimed).
		Updates(map[string]any{
			"status":              models.MessageStatusSent,
			"sent_at":             at,
			"external_message_id": externalMessageID,
			"updated_at":          at,
		}).Error
}

// MarkFailed records a terminal failure. Failed messages are never retried.
func (r *ScheduledMessageRepositoryImpl) MarkFailed(ctx context.Context, messageID uint, reason string) error {
	db := r.getDB(ctx)
	now := time.Now().UTC()
	return db.Model(&models.ScheduledMessage{}).
		Where("id = ? AND status = ?", messageID, models.MessageStatusClaimed).
		Updates(map[string]any{
			"status":        models.MessageStatusFailed,
			"error_message": reason,
			"updated_at":    now,
		}).Error
}

// Skip transitions pending to skipped. Terminal rows are left untouched and
// reported as not skipped.
func (r *ScheduledMessageRepositoryImpl) Skip(ctx context.Context, messageID uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.ScheduledMessage{}).
		Where("id = ? AND status = ?", messageID, models.MessageStatusPending).
		Updates(map[string]any{
			"status":     models.MessageStatusSkipped,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CancelPendingByAssignment flips every pending message under an assignment to
// cancelled. Runs inside the stop transaction so no dispatch can interleave.
func (r *ScheduledMessageRepositoryImpl) CancelPendingByAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.ScheduledMessage{}).
		Where("assignment_id = ? AND status = ?", assignmentID, models.MessageStatusPending).
		Updates(map[string]any{
			"status":     models.MessageStatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CancelPendingByLead cancels pending messages across all of a lead's
// assignments.
func (r *ScheduledMessageRepositoryImpl) CancelPendingByLead(ctx context.Context, leadID uint) (int64, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.ScheduledMessage{}).
		Where("lead_id = ? AND status = ?", leadID, models.MessageStatusPending).
		Updates(map[string]any{
			"status":     models.MessageStatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *ScheduledMessageRepositoryImpl) CountByAssignmentAndStatus(ctx context.Context, assignmentID uint, status models.MessageStatus) (int64, error) {
	return r.Count(ctx, models.ScheduledMessageFilter{AssignmentID: &assignmentID, Status: &status})
}

func (r *ScheduledMessageRepositoryImpl) applyFilter(db *gorm.DB, f models.ScheduledMessageFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.AssignmentID != nil {
		db = db.Where("assignment_id = ?", *f.AssignmentID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
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

func (r *ScheduledMessageRepositoryImpl) ByFilter(ctx context.Context, filter models.ScheduledMessageFilter, orderBy string, limit, offset int) ([]*models.ScheduledMessage, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ScheduledMessage{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ScheduledMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduledMessageRepositoryImpl) Count(ctx context.Context, filter models.ScheduledMessageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ScheduledMessage{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ScheduledMessageRepositoryImpl) Exists(ctx context.Context, filter models.ScheduledMessageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
