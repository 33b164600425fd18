package repo

import (
	"context"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
)

func (r *GormRepo) CreateReview(ctx context.Context, rv *models.Review) error {
	return r.db(ctx).Create(rv).Error
}

func (r *GormRepo) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var rv models.Review
	if err := r.db(ctx).Where("id = ?", id).First(&rv).Error; err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *GormRepo) ListReviews(ctx context.Context, productID uuid.UUID, p Page) (int64, []models.Review, error) {
	var total int64
	if err := r.db(ctx).Model(&models.Review{}).Where("product_id = ?", productID).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	var items []models.Review
	q := r.db(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Where("product_id = ?", productID)
	if err := p.apply(q).Order("created_at DESC").Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) UpdateReview(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecomputeProductRating stores the average rounded to one decimal.
func (r *GormRepo) RecomputeProductRating(ctx context.Context, productID uuid.UUID) error {
	var agg struct {
		Avg   float64
		Count int64
	}
	err := r.db(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	return r.db(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"average_rating": math.Round(agg.Avg*10) / 10,
			"num_reviews":    agg.Count,
		}).Error
}
