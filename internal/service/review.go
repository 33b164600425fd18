package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
)

type ReviewService struct {
	Repo *repo.GormRepo
}

type ReviewInput struct {
	Rating  *int
	Comment *string
}

// Create accepts one review per user and product, from buyers whose order
// with that product has been delivered.
func (s *ReviewService) Create(ctx context.Context, userID, productID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if in.Rating == nil || in.Comment == nil {
		return nil, Validation("rating and comment are required")
	}
	if err := validateReview(in); err != nil {
		return nil, err
	}
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, MsgProductNotFound)
	}

	bought, err := s.Repo.HasDeliveredOrderWith(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !bought {
		return nil, Forbidden("You can only review products you have purchased and received")
	}

	rv := &models.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    *in.Rating,
		Comment:   strings.TrimSpace(*in.Comment),
	}
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateReview(ctx, rv); err != nil {
			if repo.IsDuplicate(err) {
				return Validation("You have already reviewed this product")
			}
			return err
		}
		return tx.RecomputeProductRating(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID uuid.UUID, p repo.Page) (int64, []models.Review, error) {
	return s.Repo.ListReviews(ctx, productID, p)
}

func (s *ReviewService) Update(ctx context.Context, id uuid.UUID, actor Actor, in ReviewInput) (*models.Review, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}
	rv, err := s.Repo.GetReview(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Review not found")
	}
	if rv.UserID != actor.ID {
		return nil, Forbidden("Not authorized to update this review")
	}

	fields := map[string]any{}
	if in.Rating != nil {
		fields["rating"] = *in.Rating
	}
	if in.Comment != nil {
		fields["comment"] = strings.TrimSpace(*in.Comment)
	}
	if len(fields) == 0 {
		return rv, nil
	}
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateReview(ctx, id, fields); err != nil {
			return notFoundOr(err, "Review not found")
		}
		return tx.RecomputeProductRating(ctx, rv.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return s.Repo.GetReview(ctx, id)
}

func (s *ReviewService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	rv, err := s.Repo.GetReview(ctx, id)
	if err != nil {
		return notFoundOr(err, "Review not found")
	}
	if rv.UserID != actor.ID && !actor.IsAdmin() {
		return Forbidden("Not authorized to delete this review")
	}
	return s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.DeleteReview(ctx, id); err != nil {
			return notFoundOr(err, "Review not found")
		}
		return tx.RecomputeProductRating(ctx, rv.ProductID)
	})
}

func validateReview(in ReviewInput) error {
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return Validation("Rating must be between 1 and 5")
	}
	if in.Comment != nil && strings.TrimSpace(*in.Comment) == "" {
		return Validation("Comment cannot be empty")
	}
	return nil
}
