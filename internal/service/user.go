package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type UserService struct {
	Repo *repo.GormRepo
}

type ProfileInput struct {
	Name        *string
	PhoneNumber *string
	Address     *models.Address
}

func (s *UserService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return u, nil
}

// UpdateProfile touches only name, phone and address. Email, role and
// password have their own flows.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*models.User, error) {
	var patch models.User
	var cols []string
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, Validation("Name cannot be empty")
		}
		patch.Name = strings.TrimSpace(*in.Name)
		cols = append(cols, "name")
	}
	if in.PhoneNumber != nil {
		patch.PhoneNumber = *in.PhoneNumber
		cols = append(cols, "phone_number")
	}
	if in.Address != nil {
		patch.Address = *in.Address
		cols = append(cols, "address")
	}
	if len(cols) > 0 {
		if err := s.Repo.UpdateUserColumns(ctx, id, &patch, cols...); err != nil {
			return nil, notFoundOr(err, "User not found")
		}
	}
	return s.Me(ctx, id)
}

// DeleteAccount deactivates the user and revokes every session.
func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateUser(ctx, id, map[string]any{"active": false}); err != nil {
			return notFoundOr(err, "User not found")
		}
		return tx.RevokeUserRefreshTokens(ctx, id)
	})
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("account_deactivated", "user_id", id)
	return nil
}
