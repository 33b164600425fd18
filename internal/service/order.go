package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/notify"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/events"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

var orderFlow = []string{models.OrderPending, models.OrderProcessing, models.OrderShipped, models.OrderDelivered}

var OrderStatuses = append(slices.Clone(orderFlow), models.OrderCancelled)

var PaymentStatuses = []string{models.PaymentPending, models.PaymentCompleted, models.PaymentFailed, models.PaymentRefunded}

type OrderService struct {
	Repo     *repo.GormRepo
	Events   events.Publisher
	Notifier notify.Notifier
	Topic    string
}

type CheckoutInput struct {
	ShippingAddress models.Address
	PaymentMethod   string
	Notes           string
}

type StatusUpdate struct {
	Status            string
	TrackingNumber    string
	EstimatedDelivery *time.Time
	Notes             string
}

type PaymentUpdate struct {
	PaymentStatus string
	TransactionID string
	PaymentDate   *time.Time
}

// Checkout turns the user's cart into a pending order. Repricing, stock
// checks, the order insert, stock decrements and clearing the cart commit
// together or not at all.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout", "user_id", userID)

	if !slices.Contains(models.PaymentMethods, in.PaymentMethod) {
		return nil, Validation("Invalid payment method")
	}

	var order *models.Order
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Validation(MsgEmptyCart)
			}
			return err
		}
		if len(cart.Items) == 0 {
			return Validation(MsgEmptyCart)
		}

		totalItems := 0
		totalAmount := decimal.Zero
		items := make([]models.OrderItem, 0, len(cart.Items))

		ids := make([]uuid.UUID, 0, len(cart.Items))
		for _, line := range cart.Items {
			ids = append(ids, line.ProductID)
		}
		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		for _, line := range cart.Items {
			product, ok := locked[line.ProductID]
			if !ok {
				l.Warn("checkout_error", "reason", "product not found", "product_id", line.ProductID)
				return NotFound(MsgProductNotFound)
			}
			if !product.Active {
				l.Warn("checkout_error", "reason", "inactive product", "product_id", product.ID)
				return Validation("Product %s is not available", product.Title)
			}
			if product.Stock < line.Quantity {
				l.Warn("checkout_error", "reason", "insufficient stock", "product_id", product.ID)
				return Conflict("Insufficient stock for %s", product.Title)
			}

			totalItems += line.Quantity
			totalAmount = totalAmount.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Title:     product.Title,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
		}

		discount := Discount(cart.DiscountCode, totalAmount)
		code := ""
		if cart.DiscountCode != "" {
			if _, ok := discountRates[cart.DiscountCode]; ok {
				code = cart.DiscountCode
			} else {
				l.Warn("invalid_discount_code", "code", cart.DiscountCode)
			}
		}

		order = &models.Order{
			UserID:          userID,
			Items:           items,
			TotalItems:      totalItems,
			TotalAmount:     totalAmount,
			Discount:        discount,
			DiscountCode:    code,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			Notes:           in.Notes,
			Status:          models.OrderPending,
			PaymentStatus:   models.PaymentPending,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		for _, it := range items {
			ok, err := tx.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return Conflict("Insufficient stock for %s", it.Title)
			}
		}

		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	l.Info("checkout_success", "order_id", order.ID, "total_items", order.TotalItems, "total_amount", order.TotalAmount.String())
	publish(ctx, s.Events, s.Topic, order.ID.String(), EventOrderCreated, order)

	s.notifyUser(ctx, userID, notify.Message{
		Subject:  "Order Confirmation",
		Template: notify.TemplateOrderConfirmation,
		Data: map[string]any{
			"orderId":     order.ID,
			"totalAmount": order.TotalAmount,
			"discount":    order.Discount,
			"items":       order.Items,
		},
	})
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	if order.UserID != actorID && !isAdmin {
		return nil, Forbidden("Not authorized to view this order")
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, p repo.Page) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, repo.OrderFilter{UserID: &userID}, p)
}

func (s *OrderService) ListAll(ctx context.Context, status string, p repo.Page) (int64, []models.Order, error) {
	if status != "" && !slices.Contains(OrderStatuses, status) {
		return 0, nil, Validation("Invalid order status")
	}
	return s.Repo.ListOrders(ctx, repo.OrderFilter{Status: status}, p)
}

// Cancel is allowed for the owner or an admin while the order is pending or
// processing; reserved stock goes back to the products.
func (s *OrderService) Cancel(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) (*models.Order, error) {
	var order *models.Order
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		if o.UserID != actorID && !isAdmin {
			return Forbidden("Not authorized to cancel this order")
		}
		if err := cancelLocked(ctx, tx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCancel(ctx, order)
	return order, nil
}

func cancelLocked(ctx context.Context, tx *repo.GormRepo, o *models.Order) error {
	if o.Status != models.OrderPending && o.Status != models.OrderProcessing {
		return Validation(MsgOrderNotCancelled)
	}
	if err := restoreStock(ctx, tx, o.Items); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := tx.UpdateOrder(ctx, o.ID, map[string]any{"status": models.OrderCancelled, "cancelled_at": now}); err != nil {
		return err
	}
	o.Status = models.OrderCancelled
	o.CancelledAt = &now
	return nil
}

// restoreStock walks items in product id order, the same order checkout
// locks them in.
func restoreStock(ctx context.Context, tx *repo.GormRepo, items []models.OrderItem) error {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b models.OrderItem) int {
		return strings.Compare(a.ProductID.String(), b.ProductID.String())
	})
	for _, it := range sorted {
		if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) afterCancel(ctx context.Context, o *models.Order) {
	logging.FromContext(ctx).Info("order_cancelled", "order_id", o.ID)
	publish(ctx, s.Events, s.Topic, o.ID.String(), EventOrderCancelled, o)
	s.notifyUser(ctx, o.UserID, notify.Message{
		Subject:  "Order Cancelled",
		Template: notify.TemplateOrderCancelled,
		Data:     map[string]any{"orderId": o.ID},
	})
}

// UpdateStatus moves an order forward along pending, processing, shipped,
// delivered. Cancelling follows the cancellation rule.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, in StatusUpdate) (*models.Order, error) {
	next := slices.Index(OrderStatuses, in.Status)
	if next < 0 {
		return nil, Validation("Invalid order status")
	}

	var order *models.Order
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}

		if in.Status == models.OrderCancelled {
			if err := cancelLocked(ctx, tx, o); err != nil {
				return err
			}
			order = o
			return nil
		}

		cur := slices.Index(orderFlow, o.Status)
		if cur < 0 || o.Status == models.OrderDelivered && in.Status != models.OrderDelivered {
			return Validation("Order status cannot be changed from %s", o.Status)
		}
		if slices.Index(orderFlow, in.Status) < cur {
			return Validation("Order status cannot move from %s back to %s", o.Status, in.Status)
		}

		fields := map[string]any{"status": in.Status}
		if in.TrackingNumber != "" {
			fields["tracking_number"] = in.TrackingNumber
			o.TrackingNumber = in.TrackingNumber
		}
		if in.EstimatedDelivery != nil {
			fields["estimated_delivery"] = in.EstimatedDelivery.UTC()
			o.EstimatedDelivery = in.EstimatedDelivery
		}
		if in.Notes != "" {
			fields["notes"] = in.Notes
			o.Notes = in.Notes
		}
		if in.Status == models.OrderDelivered && o.DeliveredAt == nil {
			now := time.Now().UTC()
			fields["delivered_at"] = now
			o.DeliveredAt = &now
		}
		if err := tx.UpdateOrder(ctx, o.ID, fields); err != nil {
			return err
		}
		o.Status = in.Status
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderCancelled {
		s.afterCancel(ctx, order)
		return order, nil
	}

	publish(ctx, s.Events, s.Topic, order.ID.String(), EventOrderStatusChanged, map[string]any{
		"orderId": order.ID,
		"status":  order.Status,
	})
	s.notifyUser(ctx, order.UserID, notify.Message{
		Subject:  "Order Status Update",
		Template: notify.TemplateOrderStatusUpdate,
		Data: map[string]any{
			"orderId":           order.ID,
			"status":            order.Status,
			"trackingNumber":    order.TrackingNumber,
			"estimatedDelivery": order.EstimatedDelivery,
		},
	})
	return order, nil
}

// UpdatePayment is the admin override for the payment sub-state.
func (s *OrderService) UpdatePayment(ctx context.Context, id uuid.UUID, in PaymentUpdate) (*models.Order, error) {
	if !slices.Contains(PaymentStatuses, in.PaymentStatus) {
		return nil, Validation("Invalid payment status")
	}

	var order *models.Order
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		if err := checkPaymentTransition(o.PaymentStatus, in.PaymentStatus); err != nil {
			return err
		}

		if in.PaymentStatus == models.PaymentRefunded {
			if err := refundLocked(ctx, tx, o); err != nil {
				return err
			}
			order = o
			return nil
		}

		fields := map[string]any{"payment_status": in.PaymentStatus}
		if in.TransactionID != "" {
			date := time.Now().UTC()
			if in.PaymentDate != nil {
				date = in.PaymentDate.UTC()
			}
			fields["payment_transaction_id"] = in.TransactionID
			fields["payment_payment_date"] = date
			fields["payment_amount"] = o.PayableAmount()
			o.PaymentDetails.TransactionID = in.TransactionID
			o.PaymentDetails.PaymentDate = &date
			o.PaymentDetails.Amount = o.PayableAmount()
		}
		if err := tx.UpdateOrder(ctx, o.ID, fields); err != nil {
			return err
		}
		o.PaymentStatus = in.PaymentStatus
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterPayment(ctx, order)
	return order, nil
}

func (s *OrderService) afterPayment(ctx context.Context, o *models.Order) {
	publish(ctx, s.Events, s.Topic, o.ID.String(), EventPaymentUpdated, map[string]any{
		"orderId":       o.ID,
		"paymentStatus": o.PaymentStatus,
		"status":        o.Status,
	})
	s.notifyUser(ctx, o.UserID, notify.Message{
		Subject:  "Payment Status Update",
		Template: notify.TemplatePaymentStatus,
		Data: map[string]any{
			"orderId":       o.ID,
			"paymentStatus": o.PaymentStatus,
			"amount":        o.PayableAmount(),
		},
	})
}

// checkPaymentTransition: refunded is terminal, completed may only be refunded.
func checkPaymentTransition(from, to string) error {
	switch {
	case from == to:
		return nil
	case from == models.PaymentRefunded:
		return Validation("Payment has already been refunded")
	case from == models.PaymentCompleted && to != models.PaymentRefunded:
		return Validation("Payment has already been completed")
	case to == models.PaymentRefunded && from != models.PaymentCompleted:
		return Validation("Only completed payments can be refunded")
	}
	return nil
}

// refundLocked sets refunded and cancelled in one update and returns stock
// unless the order was already cancelled.
func refundLocked(ctx context.Context, tx *repo.GormRepo, o *models.Order) error {
	if o.PaymentStatus == models.PaymentRefunded {
		return nil
	}
	if o.Status != models.OrderCancelled {
		if err := restoreStock(ctx, tx, o.Items); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	fields := map[string]any{
		"payment_status": models.PaymentRefunded,
		"status":         models.OrderCancelled,
	}
	if o.CancelledAt == nil {
		fields["cancelled_at"] = now
		o.CancelledAt = &now
	}
	if err := tx.UpdateOrder(ctx, o.ID, fields); err != nil {
		return err
	}
	o.PaymentStatus = models.PaymentRefunded
	o.Status = models.OrderCancelled
	return nil
}

func (s *OrderService) notifyUser(ctx context.Context, userID uuid.UUID, msg notify.Message) {
	if s.Notifier == nil {
		return
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Warn("notification_failed", "template", msg.Template, "user_id", userID, "error", err)
		return
	}
	msg.To = user.Email
	if msg.Data == nil {
		msg.Data = map[string]any{}
	}
	msg.Data["name"] = user.Name
	notify.Send(ctx, s.Notifier, msg)
}
