package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/utils"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements LeadRepository
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db)}
}

func (r *LeadRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	db := r.getDB(ctx)
	var row models.Lead
	if err := db.Where("phone = ?", phone).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByPhoneSuffix matches leads whose stored phone ends with the given digits,
// ignoring '+' and spaces. Handles gateway-mangled sender numbers.
func (r *LeadRepositoryImpl) ByPhoneSuffix(ctx context.Context, suffix string) (*models.Lead, error) {
	if suffix == "" {
		return nil, nil
	}
	db := r.getDB(ctx)
	var row models.Lead
	err := db.Where("RIGHT(REPLACE(REPLACE(phone, '+', ''), ' ', ''), ?) = ?", len(suffix), suffix).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// LatestByAssignedEmployee returns the employee's most recently created lead
// still awaiting confirmation, used to pair an employee text with the card
// they just scanned.
func (r *LeadRepositoryImpl) LatestByAssignedEmployee(ctx context.Context, employeeID uint) (*models.Lead, error) {
	db := r.getDB(ctx)
	var row models.Lead
	err := db.Where("assigned_employee_id = ? AND status IN ?", employeeID,
		[]models.LeadStatus{models.LeadStatusNew, models.LeadStatusNeedsCorrection}).
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

func (r *LeadRepositoryImpl) UpdateStatus(ctx context.Context, leadID uint, status models.LeadStatus, conversationState *string) error {
	db := r.getDB(ctx)
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if conversationState != nil {
		updates["conversation_state"] = *conversationState
	}
	return db.Model(&models.Lead{}).Where("id = ?", leadID).Updates(updates).Error
}

func (r *LeadRepositoryImpl) MarkConfirmed(ctx context.Context, leadID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Lead{}).Where("id = ?", leadID).Updates(map[string]any{
		"status":     models.LeadStatusConfirmed,
		"confirmed":  true,
		"updated_at": time.Now().UTC(),
	}).Error
}

// ApplyCorrections writes parsed field:value updates onto the lead and marks
// it confirmed with a correction-applied conversation state. Unknown fields
// are rejected so router parsing bugs cannot mutate arbitrary columns.
func (r *LeadRepositoryImpl) ApplyCorrections(ctx context.Context, leadID uint, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	columns := map[string]any{
		"status":             models.LeadStatusConfirmed,
		"confirmed":          true,
		"conversation_state": models.ConversationStateCorrectionApplied,
		"updated_at":         time.Now().UTC(),
	}
	for field, value := range updates {
		switch field {
		case utils.CorrectionFieldName:
			columns["name"] = value
		case utils.CorrectionFieldCompany:
			columns["company"] = value
		case utils.CorrectionFieldDesignation:
			columns["designation"] = value
		case utils.CorrectionFieldPhone:
			columns["phone"] = utils.DigitsOnly(value)
		case utils.CorrectionFieldEmail:
			columns["email"] = value
		default:
			return fmt.Errorf("unknown correction field %q", field)
		}
	}

	db := r.getDB(ctx)
	return db.Model(&models.Lead{}).Where("id = ?", leadID).Updates(columns).Error
}

func (r *LeadRepositoryImpl) applyFilter(db *gorm.DB, f models.LeadFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.Confirmed != nil {
		db = db.Where("confirmed = ?", *f.Confirmed)
	}
	if f.AssignedEmployeeID != nil {
		db = db.Where("assigned_employee_id = ?", *f.AssignedEmployeeID)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
