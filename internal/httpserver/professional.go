package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/internal/util"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type ProfessionalHTTP struct {
	Svc *service.ProfessionalService
}

func (h *ProfessionalHTTP) GetProfessionals(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.get_professionals")

	f := repo.ProfessionalFilter{
		Specialization: strings.TrimSpace(c.QueryParam("specialization")),
		MinRating:      util.ParseFloat(c.QueryParam("minRating")),
		Active:         util.ParseBool(c.QueryParam("isActive")),
		SortBy:         c.QueryParam("sortBy"),
		Descending:     c.QueryParam("sortOrder") != "asc",
	}
	if role := c.QueryParam("role"); role != "" {
		f.Roles = []string{role}
	}
	p := parsePage(c)

	total, items, err := h.Svc.List(ctx, f, p.repo())
	if err != nil {
		return fail(l, "get_professionals_failed", err)
	}
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *ProfessionalHTTP) GetAvailable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.get_available")

	items, err := h.Svc.Available(ctx, c.QueryParam("role"), c.QueryParam("day"), c.QueryParam("time"))
	if err != nil {
		return fail(l, "get_available_failed", err)
	}
	return ok(c, http.StatusOK, items)
}

func (h *ProfessionalHTTP) GetByRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.get_by_role")

	items, err := h.Svc.ByRole(ctx, c.Param("role"))
	if err != nil {
		return fail(l, "get_by_role_failed", err)
	}
	return ok(c, http.StatusOK, items)
}

func (h *ProfessionalHTTP) GetProfessional(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.get_professional")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_professional_failed", err)
	}
	u, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_professional_failed", err)
	}
	return ok(c, http.StatusOK, u)
}

func (h *ProfessionalHTTP) CreateProfessional(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.create_professional")

	var req transport.CreateProfessionalRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "professional_create_failed", err)
	}

	u, err := h.Svc.Create(ctx, service.ProfessionalInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		PhoneNumber:    req.PhoneNumber,
		Specialization: req.Specialization,
		Experience:     req.Experience,
		Qualifications: req.Qualifications,
		Services:       req.Services,
		Bio:            req.Bio,
		Availability:   req.Availability,
	})
	if err != nil {
		return fail(l, "professional_create_failed", err)
	}

	l.Info("professional_create_success", "user_id", u.ID, "role", u.Role)
	return ok(c, http.StatusCreated, u)
}

func (h *ProfessionalHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.update_profile")

	a, err := actor(c)
	if err != nil {
		return fail(l, "professional_profile_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "professional_profile_failed", err)
	}
	var req transport.UpdateProfessionalProfileRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "professional_profile_failed", err)
	}

	u, err := h.Svc.UpdateProfile(ctx, id, a, service.ProfessionalProfileInput{
		Name:           req.Name,
		PhoneNumber:    req.PhoneNumber,
		Specialization: req.Specialization,
		Experience:     req.Experience,
		Qualifications: req.Qualifications,
		Services:       req.Services,
		Bio:            req.Bio,
	})
	if err != nil {
		return fail(l, "professional_profile_failed", err)
	}
	return ok(c, http.StatusOK, u)
}

func (h *ProfessionalHTTP) UpdateAvailability(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.update_availability")

	a, err := actor(c)
	if err != nil {
		return fail(l, "professional_availability_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "professional_availability_failed", err)
	}
	var req transport.UpdateAvailabilityRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "professional_availability_failed", err)
	}

	u, err := h.Svc.UpdateAvailability(ctx, id, a, req.Availability)
	if err != nil {
		return fail(l, "professional_availability_failed", err)
	}
	return ok(c, http.StatusOK, u)
}

func (h *ProfessionalHTTP) ToggleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.toggle_status")

	a, err := actor(c)
	if err != nil {
		return fail(l, "professional_status_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "professional_status_failed", err)
	}

	u, err := h.Svc.ToggleStatus(ctx, id, a)
	if err != nil {
		return fail(l, "professional_status_failed", err)
	}

	l.Info("professional_status_success", "user_id", id, "active", u.ProfessionalInfo.Active)
	return ok(c, http.StatusOK, u)
}

func (h *ProfessionalHTTP) UpdateRating(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.update_rating")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "professional_rating_failed", err)
	}
	var req transport.UpdateRatingRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "professional_rating_failed", err)
	}

	u, err := h.Svc.UpdateRating(ctx, id, *req.Rating, req.NumReviews)
	if err != nil {
		return fail(l, "professional_rating_failed", err)
	}
	return ok(c, http.StatusOK, u)
}

func (h *ProfessionalHTTP) UploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "professional.upload_image")

	a, err := actor(c)
	if err != nil {
		return fail(l, "professional_image_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "professional_image_failed", err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(l, "professional_image_failed", service.Validation("Please upload an image"))
	}
	ct := fh.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, "image/") {
		return fail(l, "professional_image_failed", service.Validation("Only image files are allowed"))
	}
	f, err := fh.Open()
	if err != nil {
		return fail(l, "professional_image_failed", err)
	}
	defer f.Close()

	u, err := h.Svc.UploadImage(ctx, id, a, service.Upload{Filename: fh.Filename, ContentType: ct, Body: f})
	if err != nil {
		return fail(l, "professional_image_failed", err)
	}

	l.Info("professional_image_success", "user_id", id)
	return ok(c, http.StatusOK, u)
}
