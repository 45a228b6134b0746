package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/engageworks/drip-engine/models"
	"gorm.io/gorm"
)

// EmployeeRepositoryImpl implements EmployeeRepository
type EmployeeRepositoryImpl struct {
	*BaseRepository[models.Employee, models.EmployeeFilter]
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &EmployeeRepositoryImpl{BaseRepository: NewBaseRepository[models.Employee, models.EmployeeFilter](db)}
}

// ByPhone looks up an active employee by phone, trying the number as stored,
// with the country code stripped, and with the country code prepended.
// Employee phones are entered by hand so all three shapes occur in practice.
func (r *EmployeeRepositoryImpl) ByPhone(ctx context.Context, phone string, countryCode string) (*models.Employee, error) {
	candidates := []string{phone}
	if countryCode != "" {
		if strings.HasPrefix(phone, countryCode) && len(phone) > len(countryCode) {
			candidates = append(candidates, phone[len(countryCode):])
		} else {
			candidates = append(candidates, countryCode+phone)
		}
	}

	db := r.getDB(ctx)
	for _, candidate := range candidates {
		var row models.Employee
		err := db.Where("phone = ? AND is_active = ?", candidate, true).Last(&row).Error
		if err == nil {
			return &row, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// ByName resolves a mentioned employee name, preferring an exact match, then
// a prefix match, then a contains match. Only active employees are considered.
func (r *EmployeeRepositoryImpl) ByName(ctx context.Context, name string) (*models.Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	db := r.getDB(ctx)
	patterns := []string{name, name + "%", "%" + name + "%"}
	for _, pattern := range patterns {
		var row models.Employee
		err := db.Where("full_name ILIKE ? AND is_active = ?", pattern, true).
			Order("id ASC").
			First(&row).Error
		if err == nil {
			return &row, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (r *EmployeeRepositoryImpl) applyFilter(db *gorm.DB, f models.EmployeeFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.LoginName != nil {
		db = db.Where("login_name = ?", *f.LoginName)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	return db
}

func (r *EmployeeRepositoryImpl) ByFilter(ctx context.Context, filter models.EmployeeFilter, orderBy string, limit, offset int) ([]*models.Employee, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Employee{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Employee
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EmployeeRepositoryImpl) Count(ctx context.Context, filter models.EmployeeFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Employee{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EmployeeRepositoryImpl) Exists(ctx context.Context, filter models.EmployeeFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
