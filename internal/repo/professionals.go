package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
)

type ProfessionalFilter struct {
	Roles          []string
	Specialization string
	MinRating      *float64
	Active         *bool
	SortBy         string
	Descending     bool
}

var professionalSorts = map[string]string{
	"rating":     "professional_infos.rating",
	"experience": "professional_infos.experience",
	"name":       "users.name",
}

func (f ProfessionalFilter) apply(db *gorm.DB) *gorm.DB {
	db = db.Joins("JOIN professional_infos ON professional_infos.user_id = users.id")
	if len(f.Roles) > 0 {
		db = db.Where("users.role IN ?", f.Roles)
	}
	if f.Specialization != "" {
		db = db.Where("LOWER(professional_infos.specialization) LIKE ?", "%"+strings.ToLower(f.Specialization)+"%")
	}
	if f.MinRating != nil {
		db = db.Where("professional_infos.rating >= ?", *f.MinRating)
	}
	if f.Active != nil {
		db = db.Where("professional_infos.active = ?", *f.Active)
	}
	return db.Where("users.active = ?", true)
}

func (r *GormRepo) ListProfessionals(ctx context.Context, f ProfessionalFilter, p Page) (int64, []models.User, error) {
	var total int64
	if err := f.apply(r.db(ctx).Model(&models.User{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	col, ok := professionalSorts[f.SortBy]
	if !ok {
		col = professionalSorts["rating"]
	}
	dir := " ASC"
	if f.Descending {
		dir = " DESC"
	}

	var users []models.User
	q := f.apply(r.db(ctx).Model(&models.User{})).Preload("ProfessionalInfo")
	if err := p.apply(q).Order(col + dir).Order("users.id ASC").Find(&users).Error; err != nil {
		return 0, nil, err
	}
	return total, users, nil
}

func (r *GormRepo) CreateProfessional(ctx context.Context, u *models.User) error {
	return r.db(ctx).Create(u).Error
}

func (r *GormRepo) GetProfessionalInfo(ctx context.Context, userID uuid.UUID) (*models.ProfessionalInfo, error) {
	var info models.ProfessionalInfo
	if err := r.db(ctx).Where("user_id = ?", userID).First(&info).Error; err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *GormRepo) UpdateProfessionalInfo(ctx context.Context, userID uuid.UUID, info *models.ProfessionalInfo, fields ...string) error {
	res := r.db(ctx).Model(&models.ProfessionalInfo{}).
		Where("user_id = ?", userID).
		Select(fields).
		Updates(info)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
