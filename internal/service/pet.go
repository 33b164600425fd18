package service

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
)

var PetGenders = []string{"male", "female", "other"}

const maxPetAge = 30

type PetService struct {
	Repo *repo.GormRepo
}

type PetInput struct {
	Name   *string
	Type   *string
	Breed  *string
	Age    *int
	Gender *string
	Color  *string
	Weight *float64
	Notes  *string
}

func (s *PetService) Create(ctx context.Context, ownerID uuid.UUID, in PetInput) (*models.Pet, error) {
	for _, f := range []*string{in.Name, in.Type, in.Breed, in.Color} {
		if f == nil || strings.TrimSpace(*f) == "" {
			return nil, Validation("name, type, breed and color are required")
		}
	}
	if in.Age == nil || in.Gender == nil {
		return nil, Validation("age and gender are required")
	}
	if err := validatePet(in); err != nil {
		return nil, err
	}

	pet := &models.Pet{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(*in.Name),
		Type:    strings.TrimSpace(*in.Type),
		Breed:   strings.TrimSpace(*in.Breed),
		Age:     *in.Age,
		Gender:  *in.Gender,
		Color:   strings.TrimSpace(*in.Color),
	}
	if in.Weight != nil {
		pet.Weight = *in.Weight
	}
	if in.Notes != nil {
		pet.Notes = *in.Notes
	}
	if err := s.Repo.CreatePet(ctx, pet); err != nil {
		return nil, err
	}
	return pet, nil
}

func (s *PetService) List(ctx context.Context, ownerID uuid.UUID) ([]models.Pet, error) {
	return s.Repo.ListPets(ctx, ownerID)
}

func (s *PetService) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Pet, error) {
	return s.owned(ctx, ownerID, id)
}

func (s *PetService) Update(ctx context.Context, ownerID, id uuid.UUID, in PetInput) (*models.Pet, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if err := validatePet(in); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	for col, v := range map[string]*string{"name": in.Name, "type": in.Type, "breed": in.Breed, "color": in.Color} {
		if v == nil {
			continue
		}
		if strings.TrimSpace(*v) == "" {
			return nil, Validation("%s cannot be empty", col)
		}
		fields[col] = strings.TrimSpace(*v)
	}
	if in.Age != nil {
		fields["age"] = *in.Age
	}
	if in.Gender != nil {
		fields["gender"] = *in.Gender
	}
	if in.Weight != nil {
		fields["weight"] = *in.Weight
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if len(fields) > 0 {
		if err := s.Repo.UpdatePet(ctx, id, fields); err != nil {
			return nil, notFoundOr(err, "Pet not found")
		}
	}
	return s.owned(ctx, ownerID, id)
}

// Delete refuses while the pet still holds a pending or confirmed appointment.
func (s *PetService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	n, err := s.Repo.CountActiveAppointmentsForPet(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return Validation("Cannot delete pet with active appointments")
	}
	return notFoundOr(s.Repo.DeletePet(ctx, id), "Pet not found")
}

// owned hides other users' pets behind a 404.
func (s *PetService) owned(ctx context.Context, ownerID, id uuid.UUID) (*models.Pet, error) {
	pet, err := s.Repo.GetPet(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Pet not found")
	}
	if pet.OwnerID != ownerID {
		return nil, NotFound("Pet not found")
	}
	return pet, nil
}

func validatePet(in PetInput) error {
	if in.Age != nil && (*in.Age < 0 || *in.Age > maxPetAge) {
		return Validation("Age must be between 0 and %d", maxPetAge)
	}
	if in.Gender != nil && !slices.Contains(PetGenders, *in.Gender) {
		return Validation("Gender must be one of male, female, other")
	}
	if in.Weight != nil && *in.Weight < 0 {
		return Validation("Weight must be non-negative")
	}
	return nil
}
