package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/testutil"
	"github.com/Skotchmaster/petstore/pkg/storage"
)

type memoryImages struct {
	mu      sync.Mutex
	stored  map[string]string
	deleted []string
}

func (m *memoryImages) Upload(_ context.Context, folder, filename, _ string, body io.Reader) (storage.Image, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Image{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		m.stored = map[string]string{}
	}
	id := storage.ObjectKey(folder, filename)
	m.stored[id] = string(data)
	return storage.Image{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (m *memoryImages) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, publicID)
	m.deleted = append(m.deleted, publicID)
	return nil
}

var weekdayShift = models.Availability{
	"monday":  {{Start: "09:00", End: "17:00"}},
	"tuesday": {{Start: "09:00", End: "12:00"}, {Start: "13:00", End: "17:00"}},
}

func TestProfessionalCreate(t *testing.T) {
	env := newTestEnv(t)
	svc := &ProfessionalService{Repo: env.Repo}
	ctx := context.Background()

	in := ProfessionalInput{
		Name:           "Dr. Bell",
		Email:          "Bell@Clinic.test",
		Password:       "long-enough",
		Role:           models.RoleVeterinarian,
		Specialization: "surgery",
		Experience:     7,
		Availability:   weekdayShift,
	}
	u, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "bell@clinic.test", u.Email)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProfessionalInfo)
	assert.Equal(t, "surgery", got.ProfessionalInfo.Specialization)
	assert.Len(t, got.ProfessionalInfo.Availability["tuesday"], 2)

	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrValidation)

	bad := in
	bad.Email = "other@clinic.test"
	bad.Role = models.RoleCustomer
	_, err = svc.Create(ctx, bad)
	require.ErrorIs(t, err, ErrValidation)

	bad = in
	bad.Email = "other@clinic.test"
	bad.Availability = models.Availability{"funday": {{Start: "09:00", End: "10:00"}}}
	_, err = svc.Create(ctx, bad)
	require.ErrorIs(t, err, ErrValidation)

	customer := testutil.User(t, env.DB, models.RoleCustomer)
	_, err = svc.Get(ctx, customer.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateAvailability(t *testing.T) {
	tests := []struct {
		name string
		av   models.Availability
		ok   bool
	}{
		{"empty", nil, true},
		{"regular week", weekdayShift, true},
		{"unknown day", models.Availability{"Monday": {{Start: "09:00", End: "10:00"}}}, false},
		{"bad clock", models.Availability{"monday": {{Start: "9am", End: "10:00"}}}, false},
		{"end before start", models.Availability{"monday": {{Start: "12:00", End: "10:00"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAvailability(tt.av)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestProfessionalAvailable(t *testing.T) {
	env := newTestEnv(t)
	svc := &ProfessionalService{Repo: env.Repo}
	ctx := context.Background()

	vet := testutil.Professional(t, env.DB, models.RoleVeterinarian, weekdayShift)
	testutil.Professional(t, env.DB, models.RoleGroomer, weekdayShift)
	testutil.Professional(t, env.DB, models.RoleVeterinarian, models.Availability{"friday": {{Start: "08:00", End: "12:00"}}})

	got, err := svc.Available(ctx, models.RoleVeterinarian, "Tuesday", "09:30")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, vet.ID, got[0].ID)

	got, err = svc.Available(ctx, models.RoleVeterinarian, "tuesday", "12:30")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Available(ctx, "", "monday", "16:59")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.Available(ctx, "", "someday", "10:00")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Available(ctx, "", "monday", "10am")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Available(ctx, models.RoleAdmin, "monday", "10:00")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.ToggleStatus(ctx, vet.ID, actorOf(vet))
	require.NoError(t, err)
	got, err = svc.Available(ctx, models.RoleVeterinarian, "monday", "10:00")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProfessional_SelfOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	svc := &ProfessionalService{Repo: env.Repo}
	ctx := context.Background()

	vet := testutil.Professional(t, env.DB, models.RoleVeterinarian, nil)
	other := testutil.Professional(t, env.DB, models.RoleGroomer, nil)
	admin := testutil.User(t, env.DB, models.RoleAdmin)

	_, err := svc.UpdateProfile(ctx, vet.ID, actorOf(other), ProfessionalProfileInput{Bio: ptr("hijacked")})
	require.ErrorIs(t, err, ErrForbidden)

	u, err := svc.UpdateProfile(ctx, vet.ID, actorOf(admin), ProfessionalProfileInput{Bio: ptr("Cats and dogs"), Experience: ptr(9)})
	require.NoError(t, err)
	assert.Equal(t, "Cats and dogs", u.ProfessionalInfo.Bio)
	assert.Equal(t, 9, u.ProfessionalInfo.Experience)

	_, err = svc.UpdateAvailability(ctx, vet.ID, actorOf(admin), weekdayShift)
	require.ErrorIs(t, err, ErrForbidden)
	u, err = svc.UpdateAvailability(ctx, vet.ID, actorOf(vet), weekdayShift)
	require.NoError(t, err)
	assert.Len(t, u.ProfessionalInfo.Availability, 2)

	u, err = svc.ToggleStatus(ctx, vet.ID, actorOf(admin))
	require.NoError(t, err)
	assert.False(t, u.ProfessionalInfo.Active)
	u, err = svc.ToggleStatus(ctx, vet.ID, actorOf(vet))
	require.NoError(t, err)
	assert.True(t, u.ProfessionalInfo.Active)
}

func TestProfessionalUpdateRating(t *testing.T) {
	env := newTestEnv(t)
	svc := &ProfessionalService{Repo: env.Repo}
	ctx := context.Background()
	vet := testutil.Professional(t, env.DB, models.RoleVeterinarian, nil)

	u, err := svc.UpdateRating(ctx, vet.ID, 4.5, ptr(12))
	require.NoError(t, err)
	assert.InDelta(t, 4.5, u.ProfessionalInfo.Rating, 0.001)
	assert.Equal(t, 12, u.ProfessionalInfo.NumReviews)

	_, err = svc.UpdateRating(ctx, vet.ID, 5.5, nil)
	require.ErrorIs(t, err, ErrValidation)

	minRating := 4.0
	total, list, err := svc.List(ctx, repo.ProfessionalFilter{MinRating: &minRating, Descending: true}, repo.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, vet.ID, list[0].ID)
}

func TestProfessionalUploadImage_ReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)
	images := &memoryImages{}
	svc := &ProfessionalService{Repo: env.Repo, Images: images}
	ctx := context.Background()
	vet := testutil.Professional(t, env.DB, models.RoleVeterinarian, nil)

	first, err := svc.UploadImage(ctx, vet.ID, actorOf(vet), Upload{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("one")})
	require.NoError(t, err)
	firstID := first.ProfessionalInfo.ProfileImageID
	assert.NotEmpty(t, first.ProfessionalInfo.ProfileImage)

	second, err := svc.UploadImage(ctx, vet.ID, actorOf(vet), Upload{Filename: "b.png", ContentType: "image/png", Body: strings.NewReader("two")})
	require.NoError(t, err)
	assert.NotEqual(t, firstID, second.ProfessionalInfo.ProfileImageID)
	assert.Equal(t, []string{firstID}, images.deleted)

	disabled := &ProfessionalService{Repo: env.Repo, Images: storage.Disabled{}}
	_, err = disabled.UploadImage(ctx, vet.ID, actorOf(vet), Upload{Filename: "c.png", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrGateway)
}
