package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/testutil"
)

// The check* helpers run against both sqlite and the postgres container.

func checkDecrementStock(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	r := repo.New(db)
	p := testutil.Product(t, db, "Kibble", "10.00", 3)

	ok, err := r.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "stock must not go negative")
	assert.Equal(t, 1, testutil.ReloadProduct(t, db, p.ID).Stock)

	require.NoError(t, r.IncrementStock(ctx, p.ID, 4))
	assert.Equal(t, 5, testutil.ReloadProduct(t, db, p.ID).Stock)
}

func checkUniqueSlots(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	r := repo.New(db)
	customer := testutil.User(t, db, models.RoleCustomer)
	vet := testutil.Professional(t, db, models.RoleVeterinarian, nil)
	pet := testutil.Pet(t, db, customer.ID)
	at := time.Date(2031, 3, 4, 10, 0, 0, 0, time.UTC)

	first := &models.Appointment{
		CustomerID: customer.ID, ProfessionalID: vet.ID, PetID: pet.ID,
		Type: "veterinary", DateTime: at, Duration: 60, Status: models.AppointmentPending,
	}
	require.NoError(t, r.CreateAppointment(ctx, first))

	proBusy, petBusy, err := r.SlotTaken(ctx, vet.ID, pet.ID, at)
	require.NoError(t, err)
	assert.True(t, proBusy)
	assert.True(t, petBusy)

	dup := &models.Appointment{
		CustomerID: customer.ID, ProfessionalID: vet.ID, PetID: pet.ID,
		Type: "veterinary", DateTime: at, Duration: 60, Status: models.AppointmentPending,
	}
	err = r.CreateAppointment(ctx, dup)
	require.Error(t, err)
	assert.True(t, repo.IsDuplicate(err), "got %v", err)

	require.NoError(t, r.UpdateAppointment(ctx, first.ID, map[string]any{"status": models.AppointmentCancelled}))

	proBusy, petBusy, err = r.SlotTaken(ctx, vet.ID, pet.ID, at)
	require.NoError(t, err)
	assert.False(t, proBusy)
	assert.False(t, petBusy)

	again := &models.Appointment{
		CustomerID: customer.ID, ProfessionalID: vet.ID, PetID: pet.ID,
		Type: "veterinary", DateTime: at, Duration: 60, Status: models.AppointmentPending,
	}
	require.NoError(t, r.CreateAppointment(ctx, again))
}

func checkUserTokens(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	r := repo.New(db)
	u := testutil.User(t, db, models.RoleCustomer)

	live := &models.UserToken{
		UserID: u.ID, Kind: models.TokenPasswordReset,
		TokenHash: "live-" + uuid.NewString(), ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	expired := &models.UserToken{
		UserID: u.ID, Kind: models.TokenPasswordReset,
		TokenHash: "old-" + uuid.NewString(), ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, r.CreateUserToken(ctx, live))
	require.NoError(t, r.CreateUserToken(ctx, expired))

	_, err := r.ConsumeUserToken(ctx, models.TokenEmailVerify, live.TokenHash)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "kind must match")

	tok, err := r.ConsumeUserToken(ctx, models.TokenPasswordReset, live.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, u.ID, tok.UserID)
	require.NotNil(t, tok.UsedAt)

	_, err = r.ConsumeUserToken(ctx, models.TokenPasswordReset, live.TokenHash)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "tokens are single use")

	_, err = r.ConsumeUserToken(ctx, models.TokenPasswordReset, expired.TokenHash)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func checkDuplicateEmail(t *testing.T, db *gorm.DB) {
	r := repo.New(db)
	u := testutil.User(t, db, models.RoleCustomer)

	clone := &models.User{Name: "clone", Email: u.Email, PasswordHash: "x", Role: models.RoleCustomer}
	err := r.CreateUser(context.Background(), clone)
	require.Error(t, err)
	assert.True(t, repo.IsDuplicate(err), "got %v", err)
}

func TestDecrementStock(t *testing.T)   { checkDecrementStock(t, testutil.NewDB(t)) }
func TestUniqueSlots(t *testing.T)      { checkUniqueSlots(t, testutil.NewDB(t)) }
func TestConsumeUserToken(t *testing.T) { checkUserTokens(t, testutil.NewDB(t)) }
func TestIsDuplicate(t *testing.T)      { checkDuplicateEmail(t, testutil.NewDB(t)) }

func TestIsDuplicate_Messages(t *testing.T) {
	assert.False(t, repo.IsDuplicate(nil))
	assert.False(t, repo.IsDuplicate(gorm.ErrRecordNotFound))
	assert.True(t, repo.IsDuplicate(gorm.ErrDuplicatedKey))
	assert.True(t, repo.IsDuplicate(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, repo.IsDuplicate(errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email"`)))
}

func TestRotateRefreshToken(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	r := repo.New(db)
	u := testutil.User(t, db, models.RoleCustomer)

	old := &models.RefreshToken{UserID: u.ID, TokenHash: "h1", JTI: "j1", ExpiresAt: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, r.SaveRefreshToken(ctx, old))

	next := &models.RefreshToken{UserID: u.ID, TokenHash: "h2", JTI: "j2", ExpiresAt: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, r.RotateRefreshToken(ctx, "j1", next))

	reused := &models.RefreshToken{UserID: u.ID, TokenHash: "h3", JTI: "j3", ExpiresAt: time.Now().UTC().Add(time.Hour)}
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "j1", reused), repo.ErrTokenRevoked)
}

func TestRecomputeProductRating(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	r := repo.New(db)
	p := testutil.Product(t, db, "Leash", "5.00", 1)

	for _, rating := range []int{5, 4, 4} {
		u := testutil.User(t, db, models.RoleCustomer)
		require.NoError(t, r.CreateReview(ctx, &models.Review{UserID: u.ID, ProductID: p.ID, Rating: rating, Comment: "fine product"}))
	}
	require.NoError(t, r.RecomputeProductRating(ctx, p.ID))

	got := testutil.ReloadProduct(t, db, p.ID)
	assert.InDelta(t, 4.3, got.AverageRating, 0.001)
	assert.Equal(t, 3, got.NumReviews)
}

func TestLockProducts(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	r := repo.New(db)
	a := testutil.Product(t, db, "Bowl", "6.00", 2)
	b := testutil.Product(t, db, "Brush", "8.00", 4)

	var locked map[uuid.UUID]*models.Product
	err := r.InTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		locked, err = tx.LockProducts(ctx, []uuid.UUID{b.ID, uuid.New(), a.ID})
		return err
	})
	require.NoError(t, err)
	require.Len(t, locked, 2)
	assert.Equal(t, 2, locked[a.ID].Stock)
	assert.Equal(t, 4, locked[b.ID].Stock)
}
