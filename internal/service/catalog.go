package service

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/events"
	"github.com/Skotchmaster/petstore/pkg/logging"
	"github.com/Skotchmaster/petstore/pkg/search"
	"github.com/Skotchmaster/petstore/pkg/storage"
)

// ProductIndex is the search backend; *search.Index satisfies it.
type ProductIndex interface {
	Put(ctx context.Context, doc search.Document) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q search.Query) (int64, []search.Document, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Index  ProductIndex
	Images storage.ImageStore
	Events events.Publisher
	Topic  string
}

type ProductInput struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *uuid.UUID
	Brand       *string
	Active      *bool
}

type SearchInput struct {
	Query      string
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	MinRating  *float64
}

type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func (s *CatalogService) ListProducts(ctx context.Context, f repo.ProductFilter, p repo.Page) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, f, p)
}

// GetProduct hides inactive products from non-admins.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID, includeInactive bool) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, MsgProductNotFound)
	}
	if !p.Active && !includeInactive {
		return nil, NotFound(MsgProductNotFound)
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" || in.Price == nil || in.Stock == nil {
		return nil, Validation("title, price and stock are required")
	}
	if err := validateProductNumbers(in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	p := &models.Product{
		Title:      strings.TrimSpace(*in.Title),
		Price:      in.Price.Round(2),
		Stock:      *in.Stock,
		CategoryID: in.CategoryID,
		Active:     true,
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Brand != nil {
		p.Brand = *in.Brand
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.afterProductChange(ctx, EventProductCreated, p)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	if err := validateProductNumbers(in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, Validation("title cannot be empty")
		}
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		fields["price"] = in.Price.Round(2)
	}
	if in.Stock != nil {
		fields["stock"] = *in.Stock
	}
	if in.CategoryID != nil {
		fields["category_id"] = *in.CategoryID
	}
	if in.Brand != nil {
		fields["brand"] = *in.Brand
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) == 0 {
		return s.GetProduct(ctx, id, true)
	}

	if err := s.Repo.UpdateProduct(ctx, id, fields); err != nil {
		return nil, notFoundOr(err, MsgProductNotFound)
	}
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, MsgProductNotFound)
	}
	s.afterProductChange(ctx, EventProductUpdated, p)
	return p, nil
}

// DeleteProduct is a soft delete; orders and carts keep their references.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return notFoundOr(err, MsgProductNotFound)
	}
	if err := s.Repo.UpdateProduct(ctx, id, map[string]any{"active": false}); err != nil {
		return notFoundOr(err, MsgProductNotFound)
	}
	p.Active = false

	logging.FromContext(ctx).Info("product_deleted", "product_id", id)
	publish(ctx, s.Events, s.Topic, id.String(), EventProductDeleted, map[string]any{"productId": id})
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id.String()); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "product_id", id, "error", err)
		}
	}
	return nil
}

func (s *CatalogService) AddImages(ctx context.Context, id uuid.UUID, files []Upload) (*models.Product, error) {
	if len(files) == 0 {
		return nil, Validation("Please upload at least one image")
	}
	if _, err := s.Repo.GetProduct(ctx, id); err != nil {
		return nil, notFoundOr(err, "No product found with that ID")
	}

	for _, f := range files {
		img, err := s.Images.Upload(ctx, "products/"+id.String(), f.Filename, f.ContentType, f.Body)
		if err != nil {
			if err == storage.ErrNotConfigured {
				return nil, Gateway("Image storage is not available")
			}
			return nil, Gateway("Image upload failed: %v", err)
		}
		if err := s.Repo.AddProductImage(ctx, &models.ProductImage{ProductID: id, URL: img.URL, PublicID: img.PublicID}); err != nil {
			return nil, err
		}
	}

	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterProductChange(ctx, EventProductUpdated, p)
	return p, nil
}

func (s *CatalogService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) (*models.Product, error) {
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, MsgProductNotFound)
	}
	img, err := s.Repo.GetProductImage(ctx, productID, imageID)
	if err != nil {
		return nil, notFoundOr(err, "Image not found")
	}
	if err := s.Images.Delete(ctx, img.PublicID); err != nil {
		logging.FromContext(ctx).Warn("image_delete_failed", "public_id", img.PublicID, "error", err)
	}
	if err := s.Repo.DeleteProductImage(ctx, img.ID); err != nil {
		return nil, notFoundOr(err, "Image not found")
	}
	return s.Repo.GetProduct(ctx, productID)
}

// Search uses the index when configured and falls back to a database scan.
func (s *CatalogService) Search(ctx context.Context, in SearchInput, p repo.Page) (int64, []models.Product, error) {
	if s.Index != nil {
		total, items, err := s.searchIndex(ctx, in, p)
		if err == nil {
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "query", in.Query, "error", err)
	}
	return s.Repo.ListProducts(ctx, repo.ProductFilter{
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		MinRating:  in.MinRating,
		Search:     in.Query,
		Sort:       "rating",
	}, p)
}

func (s *CatalogService) searchIndex(ctx context.Context, in SearchInput, p repo.Page) (int64, []models.Product, error) {
	q := search.Query{Text: in.Query, MinRating: in.MinRating, From: p.Offset, Size: p.Limit}
	if in.CategoryID != nil {
		q.CategoryID = in.CategoryID.String()
	}
	if in.MinPrice != nil {
		v := in.MinPrice.InexactFloat64()
		q.MinPrice = &v
	}
	if in.MaxPrice != nil {
		v := in.MaxPrice.InexactFloat64()
		q.MaxPrice = &v
	}

	total, docs, err := s.Index.Search(ctx, q)
	if err != nil {
		return 0, nil, err
	}
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		if id, err := uuid.Parse(d.ID); err == nil {
			ids = append(ids, id)
		}
	}
	items, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (s *CatalogService) Suggest(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	if s.Index != nil {
		names, err := s.Index.Suggest(ctx, prefix, 5)
		if err == nil {
			return names, nil
		}
		logging.FromContext(ctx).Warn("search_suggest_failed", "query", prefix, "error", err)
	}
	return s.Repo.SuggestProductTitles(ctx, prefix, 5)
}

func (s *CatalogService) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx, includeInactive)
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Category not found")
	}
	return c, nil
}

type CategoryInput struct {
	Name        *string
	Description *string
	ParentID    *uuid.UUID
	Image       *string
	Active      *bool
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, Validation("Category name is required")
	}
	if err := s.checkParent(ctx, uuid.Nil, in.ParentID); err != nil {
		return nil, err
	}
	c := &models.Category{
		Name:     strings.TrimSpace(*in.Name),
		Slug:     Slugify(*in.Name),
		ParentID: in.ParentID,
		Active:   true,
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Image != nil {
		c.Image = *in.Image
	}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		if repo.IsDuplicate(err) {
			return nil, Validation("Category with this name already exists")
		}
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	if err := s.checkParent(ctx, id, in.ParentID); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, Validation("Category name is required")
		}
		fields["name"] = strings.TrimSpace(*in.Name)
		fields["slug"] = Slugify(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.ParentID != nil {
		fields["parent_id"] = *in.ParentID
	}
	if in.Image != nil {
		fields["image"] = *in.Image
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) > 0 {
		if err := s.Repo.UpdateCategory(ctx, id, fields); err != nil {
			if repo.IsDuplicate(err) {
				return nil, Validation("Category with this name already exists")
			}
			return nil, notFoundOr(err, "Category not found")
		}
	}
	return s.GetCategory(ctx, id)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.UpdateCategory(ctx, id, map[string]any{"active": false}); err != nil {
		return notFoundOr(err, "Category not found")
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-"), "-")
}

func validateProductNumbers(in ProductInput) error {
	if in.Price != nil && in.Price.IsNegative() {
		return Validation("price must be non-negative")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return Validation("stock must be non-negative")
	}
	return nil
}

func (s *CatalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.Repo.GetCategory(ctx, *id); err != nil {
		return notFoundOr(err, "Category not found")
	}
	return nil
}

func (s *CatalogService) checkParent(ctx context.Context, self uuid.UUID, parent *uuid.UUID) error {
	if parent == nil {
		return nil
	}
	if *parent == self {
		return Validation("A category cannot be its own parent")
	}
	return s.checkCategory(ctx, parent)
}

func (s *CatalogService) afterProductChange(ctx context.Context, eventType string, p *models.Product) {
	publish(ctx, s.Events, s.Topic, p.ID.String(), eventType, p)
	if s.Index == nil {
		return
	}
	if err := s.Index.Put(ctx, ToDocument(p)); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}

func ToDocument(p *models.Product) search.Document {
	doc := search.Document{
		ID:          p.ID.String(),
		Name:        p.Title,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Rating:      p.AverageRating,
		Active:      p.Active,
	}
	if p.CategoryID != nil {
		doc.CategoryID = p.CategoryID.String()
	}
	return doc
}
