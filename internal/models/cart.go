package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	Base
	UserID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"           json:"userId"`
	Items        []CartItem      `gorm:"constraint:OnDelete:CASCADE"              json:"items"`
	Discount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"    json:"discount"`
	DiscountCode string          `json:"discountCode,omitempty"`
}

type CartItem struct {
	Base
	CartID    uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null"    json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null"    json:"productId"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `gorm:"not null;default:1;check:quantity > 0"              json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"                        json:"price"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// TotalItems and TotalAmount use the captured prices; checkout reprices.
func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
