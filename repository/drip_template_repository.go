package repository

import (
	"context"
	"errors"

	"github.com/engageworks/drip-engine/models"
	"gorm.io/gorm"
)

// DripTemplateRepositoryImpl implements DripTemplateRepository
type DripTemplateRepositoryImpl struct {
	*BaseRepository[models.DripTemplate, models.DripTemplateFilter]
}

func NewDripTemplateRepository(db *gorm.DB) DripTemplateRepository {
	return &DripTemplateRepositoryImpl{BaseRepository: NewBaseRepository[models.DripTemplate, models.DripTemplateFilter](db)}
}

// ByIDWithSlots loads a template with its slots ordered by position.
func (r *DripTemplateRepositoryImpl) ByIDWithSlots(ctx context.Context, id uint) (*models.DripTemplate, error) {
	db := r.getDB(ctx)
	var row models.DripTemplate
	err := db.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("day_offset ASC, sort_order ASC")
	}).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *DripTemplateRepositoryImpl) ByName(ctx context.Context, name string) (*models.DripTemplate, error) {
	db := r.getDB(ctx)
	var row models.DripTemplate
	if err := db.Where("name = ?", name).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *DripTemplateRepositoryImpl) ListActive(ctx context.Context, limit, offset int) ([]*models.DripTemplate, error) {
	active := true
	return r.ByFilter(ctx, models.DripTemplateFilter{IsActive: &active}, "id ASC", limit, offset)
}

// SaveSlots inserts slots for a template in one batch.
func (r *DripTemplateRepositoryImpl) SaveSlots(ctx context.Context, slots []*models.MessageSlot) error {
	if len(slots) == 0 {
		return nil
	}
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}
	err = db.CreateInBatches(slots, 100).Error
	return err
}

func (r *DripTemplateRepositoryImpl) SlotByID(ctx context.Context, slotID uint) (*models.MessageSlot, error) {
	db := r.getDB(ctx)
	var slot models.MessageSlot
	if err := db.Where("id = ?", slotID).Last(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *DripTemplateRepositoryImpl) applyFilter(db *gorm.DB, f models.DripTemplateFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Name != nil {
		db = db.Where("name = ?", *f.Name)
	}
	if f.Category != nil {
		db = db.Where("category = ?", *f.Category)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *DripTemplateRepositoryImpl) ByFilter(ctx context.Context, filter models.DripTemplateFilter, orderBy string, limit, offset int) ([]*models.DripTemplate, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DripTemplate{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.DripTemplate
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DripTemplateRepositoryImpl) Count(ctx context.Context, filter models.DripTemplateFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DripTemplate{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DripTemplateRepositoryImpl) Exists(ctx context.Context, filter models.DripTemplateFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
