package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type CartService struct {
	Repo *repo.GormRepo
}

func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.Repo.GetOrCreateCart(ctx, userID)
}

// Add merges into an existing line, summing quantities and refreshing the price.
func (s *CartService) Add(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add", "user_id", userID, "product_id", productID)
	if qty < 1 {
		return nil, Validation("Quantity must be at least 1")
	}

	product, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.Repo.FindCartItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		total := existing.Quantity + qty
		if product.Stock < total {
			l.Warn("add_to_cart_error", "reason", "insufficient stock", "requested", total, "stock", product.Stock)
			return nil, Conflict("Insufficient stock")
		}
		if err := s.Repo.SetCartItem(ctx, existing.ID, total, product.Price); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if product.Stock < qty {
			l.Warn("add_to_cart_error", "reason", "insufficient stock", "requested", qty, "stock", product.Stock)
			return nil, Conflict("Insufficient stock")
		}
		item := &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty, Price: product.Price}
		if err := s.Repo.CreateCartItem(ctx, item); err != nil {
			if repo.IsDuplicate(err) {
				return s.Add(ctx, userID, productID, qty)
			}
			return nil, err
		}
	default:
		return nil, err
	}

	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, Validation("Quantity must be at least 1")
	}
	cart, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}
	item, err := s.Repo.FindCartItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, notFoundOr(err, "Item not found in cart")
	}
	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, MsgProductNotFound)
	}
	if product.Stock < qty {
		return nil, Conflict("Insufficient stock")
	}
	if err := s.Repo.SetCartItem(ctx, item.ID, qty, product.Price); err != nil {
		return nil, err
	}
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) Remove(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}
	if err := s.Repo.DeleteCartItem(ctx, cart.ID, productID); err != nil {
		return nil, notFoundOr(err, "Item not found in cart")
	}
	return s.Repo.GetCart(ctx, userID)
}

// ApplyDiscount stores the code as-is; it is only priced at checkout.
func (s *CartService) ApplyDiscount(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error) {
	cart, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}
	if err := s.Repo.SetCartDiscount(ctx, cart.ID, code, decimal.Zero); err != nil {
		return nil, err
	}
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}
	if err := s.Repo.ClearCart(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) activeProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, MsgProductNotFound)
	}
	if !product.Active {
		return nil, NotFound(MsgProductNotFound)
	}
	return product, nil
}
