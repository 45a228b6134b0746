package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/engageworks/drip-engine/models"
	"gorm.io/gorm"
)

// LeadDripAssignmentRepositoryImpl implements LeadDripAssignmentRepository
type LeadDripAssignmentRepositoryImpl struct {
	*BaseRepository[models.LeadDripAssignment, models.LeadDripAssignmentFilter]
}

func NewLeadDripAssignmentRepository(db *gorm.DB) LeadDripAssignmentRepository {
	return &LeadDripAssignmentRepositoryImpl{BaseRepository: NewBaseRepository[models.LeadDripAssignment, models.LeadDripAssignmentFilter](db)}
}

// ListLiveByLead returns the lead's active and paused assignments. There is at
// most one by invariant, but the sweep in stop-all still walks a list.
func (r *LeadDripAssignmentRepositoryImpl) ListLiveByLead(ctx context.Context, leadID uint) ([]*models.LeadDripAssignment, error) {
	db := r.getDB(ctx)
	var rows []*models.LeadDripAssignment
	err := db.Where("lead_id = ? AND status IN ?", leadID,
		[]models.AssignmentStatus{models.AssignmentStatusActive, models.AssignmentStatusPaused}).
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus transitions an assignment and stamps the matching timestamp
// column. The WHERE clause repeats the current status so a concurrent
// transition loses cleanly instead of overwriting.
func (r *LeadDripAssignmentRepositoryImpl) UpdateStatus(ctx context.Context, assignment *models.LeadDripAssignment, newStatus models.AssignmentStatus, at time.Time) error {
	if !assignment.CanTransitionTo(newStatus) {
		return fmt.Errorf("assignment %d cannot transition from %s to %s", assignment.ID, assignment.Status, newStatus)
	}

	updates := map[string]any{
		"status":     newStatus,
		"updated_at": at,
	}
	switch newStatus {
	case models.AssignmentStatusPaused:
		updates["paused_at"] = at
	case models.AssignmentStatusActive:
		updates["paused_at"] = nil
	case models.AssignmentStatusStopped:
		updates["stopped_at"] = at
	}

	db := r.getDB(ctx)
	res := db.Model(&models.LeadDripAssignment{}).
		Where("id = ? AND status = ?", assignment.ID, assignment.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assignment %d changed concurrently, transition to %s not applied", assignment.ID, newStatus)
	}

	assignment.Status = newStatus
	return nil
}

// ListAllWithCounts joins assignments against their scheduled messages and
// template for the status report and the xlsx export.
func (r *LeadDripAssignmentRepositoryImpl) ListAllWithCounts(ctx context.Context) ([]*models.AssignmentReport, error) {
	db := r.getDB(ctx)
	var rows []*models.AssignmentReport
	err := db.Model(&models.LeadDripAssignment{}).
		Select(`lead_drip_assignments.id AS assignment_id,
			lead_drip_assignments.lead_id,
			lead_drip_assignments.template_id,
			drip_templates.name AS template_name,
			lead_drip_assignments.status,
			lead_drip_assignments.started_at,
			COUNT(scheduled_messages.id) AS total_count,
			COUNT(scheduled_messages.id) FILTER (WHERE scheduled_messages.status = 'sent') AS sent_count,
			COUNT(scheduled_messages.id) FILTER (WHERE scheduled_messages.status = 'pending') AS pending_count,
			COUNT(scheduled_messages.id) FILTER (WHERE scheduled_messages.status = 'failed') AS failed_count`).
		Joins("JOIN drip_templates ON drip_templates.id = lead_drip_assignments.template_id").
		Joins("LEFT JOIN scheduled_messages ON scheduled_messages.assignment_id = lead_drip_assignments.id").
		Group("lead_drip_assignments.id, drip_templates.name").
		Order("lead_drip_assignments.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LeadDripAssignmentRepositoryImpl) applyFilter(db *gorm.DB, f models.LeadDripAssignmentFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
	}
	if f.TemplateID != nil {
		db = db.Where("template_id = ?", *f.TemplateID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LeadDripAssignmentRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadDripAssignmentFilter, orderBy string, limit, offset int) ([]*models.LeadDripAssignment, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.LeadDripAssignment{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.LeadDripAssignment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LeadDripAssignmentRepositoryImpl) Count(ctx context.Context, filter models.LeadDripAssignmentFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.LeadDripAssignment{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LeadDripAssignmentRepositoryImpl) Exists(ctx context.Context, filter models.LeadDripAssignmentFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
