package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
)

type ProductFilter struct {
	CategoryID      *uuid.UUID
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	MinRating       *float64
	Search          string
	IncludeInactive bool
	Sort            string
}

var productSorts = map[string]string{
	"-createdAt": "created_at DESC",
	"createdAt":  "created_at ASC",
	"price":      "price ASC",
	"-price":     "price DESC",
	"rating":     "average_rating DESC",
	"title":      "title ASC",
}

func (f ProductFilter) apply(db *gorm.DB) *gorm.DB {
	if !f.IncludeInactive {
		db = db.Where("active = ?", true)
	}
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		db = db.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where("price <= ?", *f.MaxPrice)
	}
	if f.MinRating != nil {
		db = db.Where("average_rating >= ?", *f.MinRating)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		db = db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}
	return db
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter, p Page) (int64, []models.Product, error) {
	var total int64
	if err := f.apply(r.db(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	order, ok := productSorts[f.Sort]
	if !ok {
		order = productSorts["-createdAt"]
	}

	var items []models.Product
	q := f.apply(r.db(ctx).Model(&models.Product{})).Preload("Category").Preload("Images")
	if err := p.apply(q).Order(order).Order("id ASC").Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db(ctx).Preload("Category").Preload("Images").Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs keeps the order of ids and skips missing ones.
func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Product
	if err := r.db(ctx).Preload("Images").Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]models.Product, 0, len(items))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// LockProducts locks every listed product in id order so concurrent
// checkouts over overlapping carts queue instead of deadlocking. Missing ids
// are absent from the map.
func (r *GormRepo) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	var products []models.Product
	if err := forUpdate(r.db(ctx)).Where("id IN ?", ids).Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}


func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.db(ctx).Create(prod).Error
}

func (r *GormRepo) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock only succeeds while enough stock remains; false means it did not.
func (r *GormRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *GormRepo) SuggestProductTitles(ctx context.Context, prefix string, limit int) ([]string, error) {
	var titles []string
	err := r.db(ctx).Model(&models.Product{}).
		Where("active = ? AND LOWER(title) LIKE LOWER(?)", true, prefix+"%").
		Order("title ASC").
		Limit(limit).
		Pluck("title", &titles).Error
	return titles, err
}

func (r *GormRepo) AddProductImage(ctx context.Context, img *models.ProductImage) error {
	return r.db(ctx).Create(img).Error
}

func (r *GormRepo) GetProductImage(ctx context.Context, productID, imageID uuid.UUID) (*models.ProductImage, error) {
	var img models.ProductImage
	if err := r.db(ctx).Where("id = ? AND product_id = ?", imageID, productID).First(&img).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *GormRepo) DeleteProductImage(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Delete(&models.ProductImage{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	q := r.db(ctx).Model(&models.Category{})
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var items []models.Category
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var cat models.Category
	if err := r.db(ctx).Where("id = ?", id).First(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, cat *models.Category) error {
	return r.db(ctx).Create(cat).Error
}

func (r *GormRepo) UpdateCategory(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
