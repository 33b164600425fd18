package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
)

type OrderFilter struct {
	UserID *uuid.UUID
	Status string
}

func (f OrderFilter) apply(db *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	return db
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(r.db(ctx)).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	if err := r.db(ctx).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, p Page) (int64, []models.Order, error) {
	var total int64
	if err := f.apply(r.db(ctx).Model(&models.Order{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	var orders []models.Order
	q := f.apply(r.db(ctx).Model(&models.Order{})).Preload("Items")
	if err := p.apply(q).Order("created_at DESC").Order("id ASC").Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) UpdateOrder(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindOrderByTransaction matches a gateway reference to the order that stored it.
func (r *GormRepo) FindOrderByTransaction(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := r.db(ctx).
		Where("payment_transaction_id = ? OR payment_capture_id = ?", ref, ref).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// HasDeliveredOrderWith reports whether the user received the product.
func (r *GormRepo) HasDeliveredOrderWith(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.db(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?", userID, models.OrderDelivered, productID).
		Count(&n).Error
	return n > 0, err
}
