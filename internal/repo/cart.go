package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
)

func (r *GormRepo) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreateCart tolerates a concurrent first insert for the same user.
func (r *GormRepo) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := r.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.Cart{UserID: userID, Discount: decimal.Zero}
	if err := r.db(ctx).Create(fresh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetCart(ctx, userID)
		}
		return nil, err
	}
	fresh.Items = []models.CartItem{}
	return fresh, nil
}

func (r *GormRepo) FindCartItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return r.db(ctx).Create(item).Error
}

func (r *GormRepo) SetCartItem(ctx context.Context, itemID uuid.UUID, qty int, price decimal.Decimal) error {
	return r.db(ctx).Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": qty, "price": price}).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	res := r.db(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SetCartDiscount(ctx context.Context, cartID uuid.UUID, code string, amount decimal.Decimal) error {
	return r.db(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"discount_code": code, "discount": amount}).Error
}

// ClearCart removes every line and resets the discount; the cart row stays.
func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if err := r.db(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.SetCartDiscount(ctx, cartID, "", decimal.Zero)
}
