package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type PetHTTP struct {
	Svc *service.PetService
}

func (h *PetHTTP) CreatePet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pet.create_pet")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "pet_create_failed", err)
	}
	var req transport.CreatePetRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "pet_create_failed", err)
	}

	pet, err := h.Svc.Create(ctx, userID, service.PetInput{
		Name:   &req.Name,
		Type:   &req.Type,
		Breed:  &req.Breed,
		Age:    req.Age,
		Gender: &req.Gender,
		Color:  &req.Color,
		Weight: req.Weight,
		Notes:  &req.Notes,
	})
	if err != nil {
		return fail(l, "pet_create_failed", err)
	}

	l.Info("pet_create_success", "pet_id", pet.ID, "owner_id", userID)
	return ok(c, http.StatusCreated, pet)
}

func (h *PetHTTP) GetPets(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pet.get_pets")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "get_pets_failed", err)
	}
	pets, err := h.Svc.List(ctx, userID)
	if err != nil {
		return fail(l, "get_pets_failed", err)
	}
	return ok(c, http.StatusOK, pets)
}

func (h *PetHTTP) GetPet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pet.get_pet")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "get_pet_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_pet_failed", err)
	}
	pet, err := h.Svc.Get(ctx, userID, id)
	if err != nil {
		return fail(l, "get_pet_failed", err)
	}
	return ok(c, http.StatusOK, pet)
}

func (h *PetHTTP) PatchPet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pet.patch_pet")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "pet_patch_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "pet_patch_failed", err)
	}
	var req transport.PatchPetRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "pet_patch_failed", err)
	}

	pet, err := h.Svc.Update(ctx, userID, id, service.PetInput{
		Name:   req.Name,
		Type:   req.Type,
		Breed:  req.Breed,
		Age:    req.Age,
		Gender: req.Gender,
		Color:  req.Color,
		Weight: req.Weight,
		Notes:  req.Notes,
	})
	if err != nil {
		return fail(l, "pet_patch_failed", err)
	}
	return ok(c, http.StatusOK, pet)
}

func (h *PetHTTP) DeletePet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pet.delete_pet")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "pet_delete_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "pet_delete_failed", err)
	}
	if err := h.Svc.Delete(ctx, userID, id); err != nil {
		return fail(l, "pet_delete_failed", err)
	}

	l.Info("pet_delete_success", "pet_id", id)
	return c.NoContent(http.StatusNoContent)
}
