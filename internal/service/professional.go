package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/logging"
	"github.com/Skotchmaster/petstore/pkg/storage"
)

var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type ProfessionalService struct {
	Repo   *repo.GormRepo
	Images storage.ImageStore
}

type ProfessionalInput struct {
	Name           string
	Email          string
	Password       string
	Role           string
	PhoneNumber    string
	Specialization string
	Experience     int
	Qualifications []string
	Services       []string
	Bio            string
	Availability   models.Availability
}

type ProfessionalProfileInput struct {
	Name           *string
	PhoneNumber    *string
	Specialization *string
	Experience     *int
	Qualifications []string
	Services       []string
	Bio            *string
}

func (s *ProfessionalService) List(ctx context.Context, f repo.ProfessionalFilter, p repo.Page) (int64, []models.User, error) {
	for _, r := range f.Roles {
		if !models.IsProfessionalRole(r) {
			return 0, nil, Validation("Invalid professional role")
		}
	}
	if len(f.Roles) == 0 {
		f.Roles = models.ProfessionalRoles
	}
	return s.Repo.ListProfessionals(ctx, f, p)
}

func (s *ProfessionalService) ByRole(ctx context.Context, role string) ([]models.User, error) {
	if !models.IsProfessionalRole(role) {
		return nil, Validation("Invalid professional role")
	}
	_, users, err := s.Repo.ListProfessionals(ctx, repo.ProfessionalFilter{Roles: []string{role}, Descending: true}, repo.Page{})
	return users, err
}

// Available returns active professionals whose schedule covers day at hhmm.
func (s *ProfessionalService) Available(ctx context.Context, role, day, hhmm string) ([]models.User, error) {
	day = strings.ToLower(strings.TrimSpace(day))
	if !slices.Contains(Weekdays, day) {
		return nil, Validation("day must be a weekday name")
	}
	if _, err := time.Parse("15:04", hhmm); err != nil {
		return nil, Validation("time must be formatted as HH:MM")
	}
	roles := models.ProfessionalRoles
	if role != "" {
		if !models.IsProfessionalRole(role) {
			return nil, Validation("Invalid professional role")
		}
		roles = []string{role}
	}

	active := true
	_, users, err := s.Repo.ListProfessionals(ctx, repo.ProfessionalFilter{Roles: roles, Active: &active, Descending: true}, repo.Page{})
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ProfessionalInfo != nil && worksAt(u.ProfessionalInfo.Availability, day, hhmm) {
			out = append(out, u)
		}
	}
	return out, nil
}

func worksAt(av models.Availability, day, hhmm string) bool {
	for _, slot := range av[day] {
		if slot.Start <= hhmm && hhmm < slot.End {
			return true
		}
	}
	return false
}

func (s *ProfessionalService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Professional not found")
	}
	if !models.IsProfessionalRole(u.Role) || u.ProfessionalInfo == nil {
		return nil, NotFound("Professional not found")
	}
	return u, nil
}

// Create registers a professional account together with its profile.
func (s *ProfessionalService) Create(ctx context.Context, in ProfessionalInput) (*models.User, error) {
	if !models.IsProfessionalRole(in.Role) {
		return nil, Validation("Role must be veterinarian, groomer or trainer")
	}
	if in.Experience < 0 {
		return nil, Validation("Experience must be non-negative")
	}
	if err := validateAvailability(in.Availability); err != nil {
		return nil, err
	}
	pwHash, err := hashNewPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: pwHash,
		Role:         in.Role,
		PhoneNumber:  in.PhoneNumber,
		Active:       true,
		ProfessionalInfo: &models.ProfessionalInfo{
			Specialization: in.Specialization,
			Experience:     in.Experience,
			Qualifications: in.Qualifications,
			Services:       in.Services,
			Bio:            in.Bio,
			Availability:   in.Availability,
			Active:         true,
		},
	}
	if err := s.Repo.CreateProfessional(ctx, u); err != nil {
		if repo.IsDuplicate(err) {
			return nil, Validation("Email already exists")
		}
		return nil, err
	}
	logging.FromContext(ctx).Info("professional_created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *ProfessionalService) UpdateProfile(ctx context.Context, id uuid.UUID, actor Actor, in ProfessionalProfileInput) (*models.User, error) {
	if err := selfOrAdmin(id, actor); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	var user models.User
	var userCols []string
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, Validation("Name cannot be empty")
		}
		user.Name = strings.TrimSpace(*in.Name)
		userCols = append(userCols, "name")
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
		userCols = append(userCols, "phone_number")
	}

	var info models.ProfessionalInfo
	var infoCols []string
	if in.Specialization != nil {
		info.Specialization = *in.Specialization
		infoCols = append(infoCols, "specialization")
	}
	if in.Experience != nil {
		if *in.Experience < 0 {
			return nil, Validation("Experience must be non-negative")
		}
		info.Experience = *in.Experience
		infoCols = append(infoCols, "experience")
	}
	if in.Qualifications != nil {
		info.Qualifications = in.Qualifications
		infoCols = append(infoCols, "qualifications")
	}
	if in.Services != nil {
		info.Services = in.Services
		infoCols = append(infoCols, "services")
	}
	if in.Bio != nil {
		info.Bio = *in.Bio
		infoCols = append(infoCols, "bio")
	}

	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if len(userCols) > 0 {
			if err := tx.UpdateUserColumns(ctx, id, &user, userCols...); err != nil {
				return err
			}
		}
		if len(infoCols) > 0 {
			return tx.UpdateProfessionalInfo(ctx, id, &info, infoCols...)
		}
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "Professional not found")
	}
	return s.Get(ctx, id)
}

// UpdateAvailability replaces the weekly schedule; only the professional may.
func (s *ProfessionalService) UpdateAvailability(ctx context.Context, id uuid.UUID, actor Actor, av models.Availability) (*models.User, error) {
	if actor.ID != id {
		return nil, Forbidden(MsgNoPermission)
	}
	if err := validateAvailability(av); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateProfessionalInfo(ctx, id, &models.ProfessionalInfo{Availability: av}, "availability"); err != nil {
		return nil, notFoundOr(err, "Professional not found")
	}
	return s.Get(ctx, id)
}

func (s *ProfessionalService) ToggleStatus(ctx context.Context, id uuid.UUID, actor Actor) (*models.User, error) {
	if err := selfOrAdmin(id, actor); err != nil {
		return nil, err
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	info := &models.ProfessionalInfo{Active: !u.ProfessionalInfo.Active}
	if err := s.Repo.UpdateProfessionalInfo(ctx, id, info, "active"); err != nil {
		return nil, notFoundOr(err, "Professional not found")
	}
	u.ProfessionalInfo.Active = info.Active
	return u, nil
}

func (s *ProfessionalService) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, numReviews *int) (*models.User, error) {
	if rating < 0 || rating > 5 {
		return nil, Validation("Rating must be between 0 and 5")
	}
	info := &models.ProfessionalInfo{Rating: rating}
	cols := []string{"rating"}
	if numReviews != nil {
		if *numReviews < 0 {
			return nil, Validation("numReviews must be non-negative")
		}
		info.NumReviews = *numReviews
		cols = append(cols, "num_reviews")
	}
	if err := s.Repo.UpdateProfessionalInfo(ctx, id, info, cols...); err != nil {
		return nil, notFoundOr(err, "Professional not found")
	}
	return s.Get(ctx, id)
}

// UploadImage stores a new profile image and drops the previous one.
func (s *ProfessionalService) UploadImage(ctx context.Context, id uuid.UUID, actor Actor, f Upload) (*models.User, error) {
	if err := selfOrAdmin(id, actor); err != nil {
		return nil, err
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	img, err := s.Images.Upload(ctx, "professionals/"+id.String(), f.Filename, f.ContentType, f.Body)
	if err != nil {
		if err == storage.ErrNotConfigured {
			return nil, Gateway("Image storage is not available")
		}
		return nil, Gateway("Image upload failed: %v", err)
	}

	old := u.ProfessionalInfo.ProfileImageID
	info := &models.ProfessionalInfo{ProfileImage: img.URL, ProfileImageID: img.PublicID}
	if err := s.Repo.UpdateProfessionalInfo(ctx, id, info, "profile_image", "profile_image_id"); err != nil {
		return nil, notFoundOr(err, "Professional not found")
	}
	if old != "" {
		if err := s.Images.Delete(ctx, old); err != nil {
			logging.FromContext(ctx).Warn("image_delete_failed", "public_id", old, "error", err)
		}
	}
	return s.Get(ctx, id)
}

func validateAvailability(av models.Availability) error {
	for day, slots := range av {
		if !slices.Contains(Weekdays, day) {
			return Validation("Invalid availability day %q", day)
		}
		for _, slot := range slots {
			start, err1 := time.Parse("15:04", slot.Start)
			end, err2 := time.Parse("15:04", slot.End)
			if err1 != nil || err2 != nil {
				return Validation("Availability times must be formatted as HH:MM")
			}
			if !start.Before(end) {
				return Validation("Availability start must be before end")
			}
		}
	}
	return nil
}

func selfOrAdmin(id uuid.UUID, actor Actor) error {
	if actor.ID != id && !actor.IsAdmin() {
		return Forbidden(MsgNoPermission)
	}
	return nil
}
