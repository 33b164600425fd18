package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/notify"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/hash"
	"github.com/Skotchmaster/petstore/pkg/logging"
	"github.com/Skotchmaster/petstore/pkg/tokens"
)

const (
	resetTokenTTL  = 10 * time.Minute
	verifyTokenTTL = 24 * time.Hour
)

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Notifier      notify.Notifier
}

type SignupInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Address     models.Address
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashNewPassword(pw string) (string, error) {
	if len(pw) < 8 {
		return "", Validation("Password must be at least 8 characters long")
	}
	h, err := hash.HashPassword(pw)
	if errors.Is(err, hash.ErrPasswordTooLong) {
		return "", Validation("Password must be at most 72 characters long")
	}
	return h, err
}

// Signup creates a customer account, sends the verification mail and logs
// the new user in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, *tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	pwHash, err := hashNewPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: pwHash,
		Role:         models.RoleCustomer,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		Active:       true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if repo.IsDuplicate(err) {
			return nil, nil, Validation("Email already exists")
		}
		return nil, nil, err
	}
	l.Info("user_registered", "user_id", user.ID)

	s.sendVerification(ctx, user)
	notify.Send(ctx, s.Notifier, notify.Message{
		To:       user.Email,
		Subject:  "Welcome to the Pet Store",
		Template: notify.TemplateWelcome,
		Data:     map[string]any{"name": user.Name},
	})

	pair, err := s.issue(ctx, s.Repo, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *tokens.Pair, error) {
	user, err := s.Repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, Unauthorized("Incorrect email or password")
		}
		return nil, nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, nil, Unauthorized("Incorrect email or password")
	}
	if !user.Active {
		return nil, nil, Unauthorized("This account has been deactivated")
	}

	pair, err := s.issue(ctx, s.Repo, user)
	if err != nil {
		return nil, nil, err
	}
	logging.FromContext(ctx).Info("user_logged_in", "user_id", user.ID)
	return user, pair, nil
}

// Refresh rotates a refresh token. The presented token is revoked in the
// same transaction that stores its replacement.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, Unauthorized("Invalid or expired refresh token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, Unauthorized("Invalid or expired refresh token")
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil || !user.Active {
		return nil, Unauthorized("Invalid or expired refresh token")
	}

	pair, record, err := s.sign(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, record); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Unauthorized("Invalid or expired refresh token")
		}
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, tokens.Sha256Hex(refreshToken))
}

// ForgotPassword never reveals whether the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.Repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	raw, err := s.createUserToken(ctx, user.ID, models.TokenPasswordReset, resetTokenTTL)
	if err != nil {
		return err
	}
	notify.Send(ctx, s.Notifier, notify.Message{
		To:       user.Email,
		Subject:  "Your password reset token (valid for 10 minutes)",
		Template: notify.TemplatePasswordReset,
		Data:     map[string]any{"name": user.Name, "resetToken": raw},
	})
	return nil
}

// ResetPassword consumes a reset token, replaces the password, revokes every
// refresh token and logs the user in.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*models.User, *tokens.Pair, error) {
	pwHash, err := hashNewPassword(password)
	if err != nil {
		return nil, nil, err
	}

	var user *models.User
	var pair *tokens.Pair
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		tok, err := tx.ConsumeUserToken(ctx, models.TokenPasswordReset, tokens.Sha256Hex(token))
		if err != nil {
			return notFoundAsInvalid(err)
		}
		if err := tx.UpdateUser(ctx, tok.UserID, map[string]any{"password_hash": pwHash}); err != nil {
			return err
		}
		if err := tx.RevokeUserRefreshTokens(ctx, tok.UserID); err != nil {
			return err
		}
		u, err := tx.GetUserByID(ctx, tok.UserID)
		if err != nil {
			return err
		}
		p, err := s.issue(ctx, tx, u)
		if err != nil {
			return err
		}
		user, pair = u, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	logging.FromContext(ctx).Info("password_reset", "user_id", user.ID)
	return user, pair, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	return s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		tok, err := tx.ConsumeUserToken(ctx, models.TokenEmailVerify, tokens.Sha256Hex(token))
		if err != nil {
			return notFoundAsInvalid(err)
		}
		return tx.UpdateUser(ctx, tok.UserID, map[string]any{"is_email_verified": true})
	})
}

func (s *AuthService) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	if user.IsEmailVerified {
		return Validation("Email is already verified")
	}
	s.sendVerification(ctx, user)
	return nil
}

// ChangePassword checks the current password, then behaves like a reset.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) (*tokens.Pair, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if !hash.CheckPassword(user.PasswordHash, current) {
		return nil, Unauthorized("Your current password is wrong")
	}
	pwHash, err := hashNewPassword(next)
	if err != nil {
		return nil, err
	}

	var pair *tokens.Pair
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateUser(ctx, userID, map[string]any{"password_hash": pwHash}); err != nil {
			return err
		}
		if err := tx.RevokeUserRefreshTokens(ctx, userID); err != nil {
			return err
		}
		p, err := s.issue(ctx, tx, user)
		pair = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User) {
	raw, err := s.createUserToken(ctx, user.ID, models.TokenEmailVerify, verifyTokenTTL)
	if err != nil {
		logging.FromContext(ctx).Warn("verification_token_failed", "user_id", user.ID, "error", err)
		return
	}
	notify.Send(ctx, s.Notifier, notify.Message{
		To:       user.Email,
		Subject:  "Please verify your email address",
		Template: notify.TemplateVerifyEmail,
		Data:     map[string]any{"name": user.Name, "verificationToken": raw},
	})
}

// createUserToken stores the sha256 of a random token and returns the raw value.
func (s *AuthService) createUserToken(ctx context.Context, userID uuid.UUID, kind string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(buf)
	err := s.Repo.CreateUserToken(ctx, &models.UserToken{
		UserID:    userID,
		Kind:      kind,
		TokenHash: tokens.Sha256Hex(raw),
		ExpiresAt: time.Now().UTC().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (s *AuthService) sign(user *models.User) (*tokens.Pair, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	access, err := tokens.SignAccess(s.AccessSecret, user.ID.String(), user.Role, accessExp)
	if err != nil {
		return nil, nil, err
	}
	refresh, jti, err := tokens.SignRefresh(s.RefreshSecret, user.ID.String(), refreshExp)
	if err != nil {
		return nil, nil, err
	}

	pair := &tokens.Pair{AccessToken: access, RefreshToken: refresh, AccessExp: accessExp, RefreshExp: refreshExp}
	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: tokens.Sha256Hex(refresh),
		JTI:       jti,
		ExpiresAt: refreshExp.UTC(),
	}
	return pair, record, nil
}

func (s *AuthService) issue(ctx context.Context, r *repo.GormRepo, user *models.User) (*tokens.Pair, error) {
	pair, record, err := s.sign(user)
	if err != nil {
		return nil, err
	}
	if err := r.SaveRefreshToken(ctx, record); err != nil {
		return nil, err
	}
	return pair, nil
}

func notFoundAsInvalid(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Validation(MsgInvalidToken)
	}
	return err
}
