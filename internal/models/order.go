package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

var PaymentMethods = []string{"credit_card", "paypal", "stripe", "cash_on_delivery"}

type PaymentDetails struct {
	Provider      string          `json:"provider,omitempty"`
	TransactionID string          `gorm:"index"              json:"transactionId,omitempty"`
	CaptureID     string          `gorm:"index"              json:"captureId,omitempty"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
}

type Order struct {
	Base
	UserID            uuid.UUID       `gorm:"type:uuid;index;not null"                          json:"userId"`
	Items             []OrderItem     `gorm:"constraint:OnDelete:CASCADE"                       json:"items"`
	TotalItems        int             `gorm:"not null"                                          json:"totalItems"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null"                       json:"totalAmount"`
	Discount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"             json:"discount"`
	DiscountCode      string          `json:"discountCode,omitempty"`
	ShippingAddress   Address         `gorm:"serializer:json;type:text"                         json:"shippingAddress"`
	PaymentMethod     string          `gorm:"not null"                                          json:"paymentMethod"`
	Status            string          `gorm:"index;not null;default:pending"                    json:"status"`
	PaymentStatus     string          `gorm:"index;not null;default:pending"                    json:"paymentStatus"`
	PaymentDetails    PaymentDetails  `gorm:"embedded;embeddedPrefix:payment_"                  json:"paymentDetails"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	DeliveredAt       *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt       *time.Time      `json:"cancelledAt,omitempty"`
}

// PayableAmount is what the customer is charged.
func (o *Order) PayableAmount() decimal.Decimal {
	amt := o.TotalAmount.Sub(o.Discount)
	if amt.IsNegative() {
		return decimal.Zero
	}
	return amt
}

type OrderItem struct {
	Base
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"            json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;index;not null"            json:"productId"`
	Title     string          `gorm:"not null"                            json:"title"`
	Quantity  int             `gorm:"not null;check:quantity > 0"         json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"         json:"price"`
}
