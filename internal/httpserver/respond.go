package httpserver

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/util"
	middleware "github.com/Skotchmaster/petstore/pkg/middleware/auth"
)

type envelope struct {
	Success    bool             `json:"success"`
	Data       any              `json:"data"`
	Message    string           `json:"message,omitempty"`
	Pagination *util.Pagination `json:"pagination,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func okMessage(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: true, Message: msg})
}

func okPage(c echo.Context, status int, data any, meta util.Pagination) error {
	return c.JSON(status, envelope{Success: true, Data: data, Pagination: &meta})
}

type pageParams struct {
	page  int
	limit int
}

func (p pageParams) repo() repo.Page {
	offset, limit := util.Calculate(p.page, p.limit)
	return repo.Page{Offset: offset, Limit: limit}
}

func (p pageParams) meta(total int64) util.Pagination {
	return util.Meta(p.page, p.limit, total)
}

func parsePage(c echo.Context) pageParams {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	limit := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > util.MaxPageSize {
		limit = util.DefaultPageSize
	}
	return pageParams{page: page, limit: limit}
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, service.Validation("Invalid %s", name)
	}
	return id, nil
}

func currentUser(c echo.Context) (uuid.UUID, error) {
	id, err := middleware.UserID(c)
	if err != nil {
		return uuid.Nil, service.Unauthorized("You are not logged in. Please log in to get access")
	}
	return id, nil
}

func actor(c echo.Context) (service.Actor, error) {
	id, err := currentUser(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{ID: id, Role: middleware.Role(c)}, nil
}
