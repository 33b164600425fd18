package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
)

var ErrTokenRevoked = errors.New("token expired or revoked")

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.db(ctx).Create(u).Error
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db(ctx).Preload("ProfessionalInfo").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UpdateUser(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.db(ctx).Create(t).Error
}

func (r *GormRepo) refreshExpiredOrRevoked(db *gorm.DB, jti string) (*models.RefreshToken, bool, error) {
	var refresh models.RefreshToken
	if err := forUpdate(db).Where("jti = ?", jti).First(&refresh).Error; err != nil {
		return nil, false, err
	}
	if refresh.Revoked || refresh.ExpiresAt.Before(time.Now()) {
		return &refresh, true, nil
	}
	return &refresh, false, nil
}

// RotateRefreshToken revokes the old token and stores its replacement atomically.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, newToken *models.RefreshToken) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		old, expired, err := r.refreshExpiredOrRevoked(tx, oldJTI)
		if err != nil {
			return err
		}
		if expired || old.UserID != newToken.UserID {
			return ErrTokenRevoked
		}
		if err := tx.Model(&models.RefreshToken{}).Where("jti = ?", oldJTI).Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(newToken).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return r.db(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

func (r *GormRepo) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return r.db(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func (r *GormRepo) CreateUserToken(ctx context.Context, t *models.UserToken) error {
	return r.db(ctx).Create(t).Error
}

// ConsumeUserToken marks a live token used and returns it. Unknown, used and
// expired tokens all report gorm.ErrRecordNotFound.
func (r *GormRepo) ConsumeUserToken(ctx context.Context, kind, tokenHash string) (*models.UserToken, error) {
	var tok models.UserToken
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			Where("kind = ? AND token_hash = ? AND used_at IS NULL AND expires_at > ?", kind, tokenHash, time.Now().UTC()).
			First(&tok).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&models.UserToken{}).Where("id = ? AND used_at IS NULL", tok.ID).Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		tok.UsedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// UpdateUserColumns writes the selected columns from u; serializer columns
// such as address need the struct form.
func (r *GormRepo) UpdateUserColumns(ctx context.Context, id uuid.UUID, u *models.User, columns ...string) error {
	res := r.db(ctx).Model(&models.User{}).Where("id = ?", id).Select(columns).Updates(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
