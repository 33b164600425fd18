package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/notify"
	"github.com/Skotchmaster/petstore/internal/testutil"
	"github.com/Skotchmaster/petstore/pkg/tokens"
)

func newAuthService(env *testEnv) *AuthService {
	return &AuthService{
		Repo:          env.Repo,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Notifier:      env.Notifier,
	}
}

// sentToken returns a value from the newest notification with the template.
func (n *recordingNotifier) sentToken(t *testing.T, template, key string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.msgs) - 1; i >= 0; i-- {
		if n.msgs[i].Template == template {
			v, ok := n.msgs[i].Data[key].(string)
			require.True(t, ok, "notification %s has no %s", template, key)
			return v
		}
	}
	t.Fatalf("no %s notification sent", template)
	return ""
}

func signupInput(email string) SignupInput {
	return SignupInput{Name: "Ada", Email: email, Password: testutil.Password}
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()

	user, pair, err := svc.Signup(ctx, signupInput("  Ada@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.False(t, user.IsEmailVerified)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Contains(t, env.Notifier.templates(), notify.TemplateVerifyEmail)

	claims, err := tokens.AccessClaimsFromToken(pair.AccessToken, svc.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	_, _, err = svc.Signup(ctx, signupInput("ada@example.com"))
	require.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Email already exists")

	in := signupInput("short@example.com")
	in.Password = "short"
	_, _, err = svc.Signup(ctx, in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()
	u := testutil.User(t, env.DB, models.RoleCustomer)

	_, pair, err := svc.Login(ctx, u.Email, testutil.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)

	_, _, err = svc.Login(ctx, u.Email, "wrong-password")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.Login(ctx, "nobody@example.com", testutil.Password)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.DB.Model(&models.User{}).Where("id = ?", u.ID).Update("active", false).Error)
	_, _, err = svc.Login(ctx, u.Email, testutil.Password)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()
	u := testutil.User(t, env.DB, models.RoleCustomer)

	_, first, err := svc.Login(ctx, u.Email, testutil.Password)
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, second.RefreshToken))
	_, err = svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()
	u := testutil.User(t, env.DB, models.RoleCustomer)

	_, old, err := svc.Login(ctx, u.Email, testutil.Password)
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "unknown@example.com"))
	assert.Empty(t, env.Notifier.templates())

	require.NoError(t, svc.ForgotPassword(ctx, u.Email))
	raw := env.Notifier.sentToken(t, notify.TemplatePasswordReset, "resetToken")

	_, _, err = svc.ResetPassword(ctx, "not-a-token", "new-password-1")
	require.ErrorIs(t, err, ErrValidation)

	_, pair, err := svc.ResetPassword(ctx, raw, "new-password-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, _, err = svc.ResetPassword(ctx, raw, "new-password-2")
	require.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, MsgInvalidToken)

	_, err = svc.Refresh(ctx, old.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.Login(ctx, u.Email, testutil.Password)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = svc.Login(ctx, u.Email, "new-password-1")
	require.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()

	user, _, err := svc.Signup(ctx, signupInput("verify@example.com"))
	require.NoError(t, err)
	raw := env.Notifier.sentToken(t, notify.TemplateVerifyEmail, "verificationToken")

	require.NoError(t, svc.VerifyEmail(ctx, raw))
	require.ErrorIs(t, svc.VerifyEmail(ctx, raw), ErrValidation)

	var got models.User
	require.NoError(t, env.DB.First(&got, "id = ?", user.ID).Error)
	assert.True(t, got.IsEmailVerified)

	require.ErrorIs(t, svc.ResendVerification(ctx, user.ID), ErrValidation)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()
	u := testutil.User(t, env.DB, models.RoleCustomer)

	_, old, err := svc.Login(ctx, u.Email, testutil.Password)
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, u.ID, "wrong-password", "another-pass")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.ChangePassword(ctx, u.ID, testutil.Password, "short")
	require.ErrorIs(t, err, ErrValidation)

	pair, err := svc.ChangePassword(ctx, u.ID, testutil.Password, "another-pass")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, old.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}
