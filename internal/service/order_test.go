package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/notify"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/testutil"
)

var testAddress = models.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func decimalOf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func checkoutInput() CheckoutInput {
	return CheckoutInput{ShippingAddress: testAddress, PaymentMethod: "credit_card"}
}

func TestCheckout_RepricesAndDecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.User(t, env.DB, models.RoleCustomer)
	food := testutil.Product(t, env.DB, "Dog food", "10.00", 10)
	toy := testutil.Product(t, env.DB, "Chew toy", "4.50", 3)

	_, err := env.Cart.Add(ctx, user.ID, food.ID, 3)
	require.NoError(t, err)
	_, err = env.Cart.Add(ctx, user.ID, toy.ID, 2)
	require.NoError(t, err)

	order, err := env.Orders.Checkout(ctx, user.ID, checkoutInput())
	require.NoError(t, err)

	assert.Equal(t, 5, order.TotalItems)
	assertDecimal(t, "39", order.TotalAmount)
	assertDecimal(t, "0", order.Discount)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, testAddress, order.ShippingAddress)
	require.Len(t, order.Items, 2)

	assert.Equal(t, 7, testutil.ReloadProduct(t, env.DB, food.ID).Stock)
	assert.Equal(t, 1, testutil.ReloadProduct(t, env.DB, toy.ID).Stock)

	cart, err := env.Cart.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	assert.Contains(t, env.Events.types(), EventOrderCreated)
	assert.Contains(t, env.Notifier.templates(), notify.TemplateOrderConfirmation)
}

func TestCheckout_IgnoresTamperedCartPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.User(t, env.DB, models.RoleCustomer)
	p := testutil.Product(t, env.DB, "Cat tree", "80.00", 5)

	_, err := env.Cart.Add(ctx, user.ID, p.ID, 1)
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("product_id = ?", p.ID).
		Update("price", decimal.RequireFromString("0.01")).Error)

	order, err := env.Orders.Checkout(ctx, user.ID, checkoutInput())
	require.NoError(t, err)
	assertDecimal(t, "80", order.TotalAmount)
	require.Len(t, order.Items, 1)
	assertDecimal(t, "80", order.Items[0].Price)
}

func TestCheckout_DiscountCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		discount string
	}{
		{name: "known code", code: "SUMMER10", discount: "3"},
		{name: "lowercase does not match", code: "summer10", discount: "0"},
		{name: "unknown code", code: "WINTER50", discount: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			user := testutil.User(t, env.DB, models.RoleCustomer)
			p := testutil.Product(t, env.DB, "Leash", "15.00", 10)

			_, err := env.Cart.Add(ctx, user.ID, p.ID, 2)
			require.NoError(t, err)
			_, err = env.Cart.ApplyDiscount(ctx, user.ID, tt.code)
			require.NoError(t, err)

			order, err := env.Orders.Checkout(ctx, user.ID, checkoutInput())
			require.NoError(t, err)
			assertDecimal(t, "30", order.TotalAmount)
			assertDecimal(t, tt.discount, order.Discount)
		})
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.User(t, env.DB, models.RoleCustomer)

	_, err := env.Orders.Checkout(ctx, user.ID, checkoutInput())
	require.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, MsgEmptyCart)

	_, err = env.Cart.Get(ctx, user.ID)
	require.NoError(t, err)
	_, err = env.Orders.Checkout(ctx, user.ID, checkoutInput())
	require.ErrorIs(t, err, ErrValidation)
}

func TestCheckout_InvalidPaymentMethod(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.User(t, env.DB, models.RoleCustomer)

	_, err := env.Orders.Checkout(context.Background(), user.ID, CheckoutInput{ShippingAddress: testAddress, PaymentMethod: "bitcoin"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCheckout_InsufficientStockLeavesEverythingUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.User(t, env.DB, models.RoleCustomer)
	p := testutil.Product(t, env.DB, "Aquarium", "120.00", 5)

	_, err := env.Cart.Add(ctx, user.ID, p.ID, 20)
	require.ErrorIs(t, err, ErrConflict)

	_, err = env.Cart.Add(ctx, user.ID, p.ID, 5)
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock", 2).Error)

	_, err = env.Orders.Checkout(ctx, user.ID, checkoutInput())
	require.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, 2, testutil.ReloadProduct(t, env.DB, p.ID).Stock)
	var orders int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	cart, err := env.Cart.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCheckout_InactiveProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.User(t, env.DB, models.RoleCustomer)
	p := testutil.Product(t, env.DB, "Bird cage", "40.00", 5)
	_, err := env.Cart.Add(ctx, user.ID, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("active", false).Error)
	_, err = env.Orders.Checkout(ctx, user.ID, checkoutInput())
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 5, testutil.ReloadProduct(t, env.DB, p.ID).Stock)
}

func TestCheckout_ConcurrentBuyersNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.Product(t, env.DB, "Heated bed", "60.00", 7)
	buyers := []*models.User{
		testutil.User(t, env.DB, models.RoleCustomer),
		testutil.User(t, env.DB, models.RoleCustomer),
	}
	for _, u := range buyers {
		_, err := env.Cart.Add(ctx, u.ID, p.ID, 5)
		require.NoError(t, err)
	}

	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, u := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.Orders.Checkout(ctx, u.ID, checkoutInput())
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, testutil.ReloadProduct(t, env.DB, p.ID).Stock)
}

func placeOrder(t *testing.T, env *testEnv, user *models.User, product *models.Product, qty int) *models.Order {
	t.Helper()
	ctx := context.Background()
	_, err := env.Cart.Add(ctx, user.ID, product.ID, qty)
	require.NoError(t, err)
	order, err := env.Orders.Checkout(ctx, user.ID, checkoutInput())
	require.NoError(t, err)
	return order
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := testutil.User(t, env.DB, models.RoleCustomer)
	stranger := testutil.User(t, env.DB, models.RoleCustomer)
	p := testutil.Product(t, env.DB, "Scratching post", "25.00", 4)
	order := placeOrder(t, env, owner, p, 3)

	_, err := env.Orders.Cancel(ctx, order.ID, stranger.ID, false)
	require.ErrorIs(t, err, ErrForbidden)

	cancelled, err := env.Orders.Cancel(ctx, order.ID, owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 4, testutil.ReloadProduct(t, env.DB, p.ID).Stock)

	_, err = env.Orders.Cancel(ctx, order.ID, owner.ID, false)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 4, testutil.ReloadProduct(t, env.DB, p.ID).Stock)
}

func TestUpdateStatus_MovesForwardOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.User(t, env.DB, models.RoleCustomer)
	p := testutil.Product(t, env.DB, "Collar", "9.99", 10)
	order := placeOrder(t, env, user, p, 1)

	shipped, err := env.Orders.UpdateStatus(ctx, order.ID, StatusUpdate{Status: models.OrderShipped, TrackingNumber: "TRK-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, shipped.Status)
	assert.Equal(t, "TRK-1", shipped.TrackingNumber)

	_, err = env.Orders.UpdateStatus(ctx, order.ID, StatusUpdate{Status: models.OrderProcessing})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Orders.UpdateStatus(ctx, order.ID, StatusUpdate{Status: models.OrderCancelled})
	require.ErrorIs(t, err, ErrValidation)

	delivered, err := env.Orders.UpdateStatus(ctx, order.ID, StatusUpdate{Status: models.OrderDelivered})
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	_, err = env.Orders.UpdateStatus(ctx, order.ID, StatusUpdate{Status: "lost"})
	require.ErrorIs(t, err, ErrValidation)

	assert.Contains(t, env.Events.types(), EventOrderStatusChanged)
}

func TestUpdatePayment_RefundCancelsAndRestocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.User(t, env.DB, models.RoleCustomer)
	p := testutil.Product(t, env.DB, "Bowl", "5.00", 10)
	order := placeOrder(t, env, user, p, 4)

	_, err := env.Orders.UpdatePayment(ctx, order.ID, PaymentUpdate{PaymentStatus: models.PaymentRefunded})
	require.ErrorIs(t, err, ErrValidation)

	paid, err := env.Orders.UpdatePayment(ctx, order.ID, PaymentUpdate{PaymentStatus: models.PaymentCompleted, TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", paid.PaymentDetails.TransactionID)
	assertDecimal(t, "20", paid.PaymentDetails.Amount)
	assert.Equal(t, 6, testutil.ReloadProduct(t, env.DB, p.ID).Stock)

	_, err = env.Orders.UpdatePayment(ctx, order.ID, PaymentUpdate{PaymentStatus: models.PaymentFailed})
	require.ErrorIs(t, err, ErrValidation)

	refunded, err := env.Orders.UpdatePayment(ctx, order.ID, PaymentUpdate{PaymentStatus: models.PaymentRefunded})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, refunded.Status)
	assert.Equal(t, 10, testutil.ReloadProduct(t, env.DB, p.ID).Stock)

	stored, err := env.Repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, stored.Status)
}

func TestGetOrder_OwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := testutil.User(t, env.DB, models.RoleCustomer)
	other := testutil.User(t, env.DB, models.RoleCustomer)
	admin := testutil.User(t, env.DB, models.RoleAdmin)
	p := testutil.Product(t, env.DB, "Brush", "7.00", 10)
	order := placeOrder(t, env, owner, p, 1)

	_, err := env.Orders.Get(ctx, order.ID, owner.ID, false)
	require.NoError(t, err)
	_, err = env.Orders.Get(ctx, order.ID, admin.ID, true)
	require.NoError(t, err)
	_, err = env.Orders.Get(ctx, order.ID, other.ID, false)
	require.ErrorIs(t, err, ErrForbidden)

	total, mine, err := env.Orders.ListMine(ctx, owner.ID, repo.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)
}
