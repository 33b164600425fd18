package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type ReviewHTTP struct {
	Svc *service.ReviewService
}

func (h *ReviewHTTP) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.create_review")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "review_create_failed", err)
	}
	var req transport.CreateReviewRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "review_create_failed", err)
	}

	review, err := h.Svc.Create(ctx, userID, req.ProductID, service.ReviewInput{Rating: &req.Rating, Comment: &req.Comment})
	if err != nil {
		return fail(l, "review_create_failed", err)
	}

	l.Info("review_create_success", "review_id", review.ID, "product_id", req.ProductID)
	return ok(c, http.StatusCreated, review)
}

func (h *ReviewHTTP) ProductReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.product_reviews")

	productID, err := pathID(c, "productId")
	if err != nil {
		return fail(l, "product_reviews_failed", err)
	}
	p := parsePage(c)
	total, items, err := h.Svc.ListForProduct(ctx, productID, p.repo())
	if err != nil {
		return fail(l, "product_reviews_failed", err)
	}
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *ReviewHTTP) PatchReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.patch_review")

	a, err := actor(c)
	if err != nil {
		return fail(l, "review_patch_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "review_patch_failed", err)
	}
	var req transport.UpdateReviewRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "review_patch_failed", err)
	}

	review, err := h.Svc.Update(ctx, id, a, service.ReviewInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		return fail(l, "review_patch_failed", err)
	}
	return ok(c, http.StatusOK, review)
}

func (h *ReviewHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.delete_review")

	a, err := actor(c)
	if err != nil {
		return fail(l, "review_delete_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "review_delete_failed", err)
	}
	if err := h.Svc.Delete(ctx, id, a); err != nil {
		return fail(l, "review_delete_failed", err)
	}

	l.Info("review_delete_success", "review_id", id, "actor_id", a.ID)
	return c.NoContent(http.StatusNoContent)
}
