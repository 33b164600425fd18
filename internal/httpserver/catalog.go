package httpserver

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/internal/util"
	"github.com/Skotchmaster/petstore/pkg/logging"
	middleware "github.com/Skotchmaster/petstore/pkg/middleware/auth"
)

const maxImagesPerUpload = 5

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, service.Validation("Invalid category")
	}
	return &id, nil
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	category, err := optionalUUID(c.QueryParam("category"))
	if err != nil {
		return fail(l, "get_products_failed", err)
	}
	p := parsePage(c)
	f := repo.ProductFilter{
		CategoryID: category,
		MinPrice:   util.ParseDecimal(c.QueryParam("minPrice")),
		MaxPrice:   util.ParseDecimal(c.QueryParam("maxPrice")),
		MinRating:  util.ParseFloat(c.QueryParam("rating")),
		Search:     strings.TrimSpace(c.QueryParam("search")),
		Sort:       c.QueryParam("sort"),
	}
	if inc := util.ParseBool(c.QueryParam("includeInactive")); inc != nil && *inc && middleware.IsAdmin(c) {
		f.IncludeInactive = true
	}

	total, items, err := h.Svc.ListProducts(ctx, f, p.repo())
	if err != nil {
		return fail(l, "get_products_failed", err)
	}

	l.Info("get_products_success", "total", total)
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	product, err := h.Svc.GetProduct(ctx, id, middleware.IsAdmin(c))
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return ok(c, http.StatusOK, product)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.CreateProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "product_create_failed", err)
	}

	product, err := h.Svc.CreateProduct(ctx, service.ProductInput{
		Title:       &req.Title,
		Description: &req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Brand:       &req.Brand,
	})
	if err != nil {
		return fail(l, "product_create_failed", err)
	}

	l.Info("product_create_success", "product_id", product.ID)
	return ok(c, http.StatusCreated, product)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "product_patch_failed", err)
	}
	var req transport.PatchProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "product_patch_failed", err)
	}

	product, err := h.Svc.UpdateProduct(ctx, id, service.ProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Brand:       req.Brand,
		Active:      req.Active,
	})
	if err != nil {
		return fail(l, "product_patch_failed", err)
	}

	l.Info("product_patch_success", "product_id", id)
	return ok(c, http.StatusOK, product)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "product_delete_failed", err)
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return fail(l, "product_delete_failed", err)
	}

	l.Info("product_delete_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

// UploadImages accepts up to five files in the "images" multipart field.
func (h *CatalogHTTP) UploadImages(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.upload_images")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "upload_images_failed", err)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return fail(l, "upload_images_failed", service.Validation("Please upload at least one image"))
	}
	files := form.File["images"]
	if len(files) > maxImagesPerUpload {
		return fail(l, "upload_images_failed", service.Validation("You can upload at most %d images at once", maxImagesPerUpload))
	}

	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		ct := fh.Header.Get(echo.HeaderContentType)
		if !strings.HasPrefix(ct, "image/") {
			return fail(l, "upload_images_failed", service.Validation("Only image files are allowed"))
		}
		f, err := fh.Open()
		if err != nil {
			return fail(l, "upload_images_failed", err)
		}
		defer f.Close()
		uploads = append(uploads, service.Upload{Filename: fh.Filename, ContentType: ct, Body: io.Reader(f)})
	}

	product, err := h.Svc.AddImages(ctx, id, uploads)
	if err != nil {
		return fail(l, "upload_images_failed", err)
	}

	l.Info("upload_images_success", "product_id", id, "count", len(uploads))
	return ok(c, http.StatusOK, product)
}

func (h *CatalogHTTP) DeleteImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_image")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "delete_image_failed", err)
	}
	imageID, err := pathID(c, "imageId")
	if err != nil {
		return fail(l, "delete_image_failed", err)
	}
	product, err := h.Svc.DeleteImage(ctx, id, imageID)
	if err != nil {
		return fail(l, "delete_image_failed", err)
	}
	return ok(c, http.StatusOK, product)
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.search")

	category, err := optionalUUID(c.QueryParam("category"))
	if err != nil {
		return fail(l, "search_failed", err)
	}
	p := parsePage(c)
	in := service.SearchInput{
		Query:      strings.TrimSpace(c.QueryParam("query")),
		CategoryID: category,
		MinPrice:   util.ParseDecimal(c.QueryParam("minPrice")),
		MaxPrice:   util.ParseDecimal(c.QueryParam("maxPrice")),
		MinRating:  util.ParseFloat(c.QueryParam("rating")),
	}

	total, items, err := h.Svc.Search(ctx, in, p.repo())
	if err != nil {
		return fail(l, "search_failed", err)
	}

	l.Info("search_success", "query", in.Query, "total", total)
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *CatalogHTTP) Suggestions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.suggestions")

	names, err := h.Svc.Suggest(ctx, c.QueryParam("query"))
	if err != nil {
		return fail(l, "suggestions_failed", err)
	}
	return ok(c, http.StatusOK, names)
}

func (h *CatalogHTTP) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get_categories")

	items, err := h.Svc.ListCategories(ctx, middleware.IsAdmin(c))
	if err != nil {
		return fail(l, "get_categories_failed", err)
	}
	return ok(c, http.StatusOK, items)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get_category")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_category_failed", err)
	}
	cat, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "get_category_failed", err)
	}
	return ok(c, http.StatusOK, cat)
}

func categoryInput(req transport.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		Image:       req.Image,
		Active:      req.Active,
	}
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create_category")

	var req transport.CategoryRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "category_create_failed", err)
	}
	cat, err := h.Svc.CreateCategory(ctx, categoryInput(req))
	if err != nil {
		return fail(l, "category_create_failed", err)
	}
	l.Info("category_create_success", "category_id", cat.ID)
	return ok(c, http.StatusCreated, cat)
}

func (h *CatalogHTTP) PatchCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.patch_category")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "category_patch_failed", err)
	}
	var req transport.CategoryRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "category_patch_failed", err)
	}
	cat, err := h.Svc.UpdateCategory(ctx, id, categoryInput(req))
	if err != nil {
		return fail(l, "category_patch_failed", err)
	}
	return ok(c, http.StatusOK, cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete_category")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "category_delete_failed", err)
	}
	if err := h.Svc.DeleteCategory(ctx, id); err != nil {
		return fail(l, "category_delete_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
