package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
)

func (r *GormRepo) CreatePet(ctx context.Context, pet *models.Pet) error {
	return r.db(ctx).Create(pet).Error
}

func (r *GormRepo) GetPet(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	if err := r.db(ctx).Where("id = ?", id).First(&pet).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *GormRepo) ListPets(ctx context.Context, ownerID uuid.UUID) ([]models.Pet, error) {
	var pets []models.Pet
	if err := r.db(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&pets).Error; err != nil {
		return nil, err
	}
	return pets, nil
}

func (r *GormRepo) UpdatePet(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.Pet{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DeletePet(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Delete(&models.Pet{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) CountActiveAppointmentsForPet(ctx context.Context, petID uuid.UUID) (int64, error) {
	var n int64
	err := r.db(ctx).Model(&models.Appointment{}).
		Where("pet_id = ? AND status IN ?", petID, models.ActiveAppointmentStatuses).
		Count(&n).Error
	return n, err
}

// SlotTaken reports whether a live appointment already holds the
// professional's or the pet's slot.
func (r *GormRepo) SlotTaken(ctx context.Context, professionalID, petID uuid.UUID, at time.Time) (professionalBusy, petBusy bool, err error) {
	var busy []models.Appointment
	err = r.db(ctx).Model(&models.Appointment{}).
		Select("professional_id", "pet_id").
		Where("date_time = ? AND status IN ?", at, models.ActiveAppointmentStatuses).
		Where("professional_id = ? OR pet_id = ?", professionalID, petID).
		Find(&busy).Error
	if err != nil {
		return false, false, err
	}
	for _, a := range busy {
		if a.ProfessionalID == professionalID {
			professionalBusy = true
		}
		if a.PetID == petID {
			petBusy = true
		}
	}
	return professionalBusy, petBusy, nil
}

func (r *GormRepo) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return r.db(ctx).Create(a).Error
}

func (r *GormRepo) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db(ctx).
		Preload("Pet").
		Preload("Customer").
		Preload("Professional").
		Preload("Professional.ProfessionalInfo").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) LockAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	if err := forUpdate(r.db(ctx)).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

type AppointmentFilter struct {
	CustomerID     *uuid.UUID
	ProfessionalID *uuid.UUID
	Statuses       []string
	From           *time.Time
}

func (r *GormRepo) ListAppointments(ctx context.Context, f AppointmentFilter, p Page) (int64, []models.Appointment, error) {
	q := r.db(ctx).Model(&models.Appointment{})
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.ProfessionalID != nil {
		q = q.Where("professional_id = ?", *f.ProfessionalID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.From != nil {
		q = q.Where("date_time >= ?", *f.From)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Appointment
	err := p.apply(q.Session(&gorm.Session{})).
		Preload("Pet").
		Preload("Customer").
		Preload("Professional").
		Order("date_time ASC").
		Find(&items).Error
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) UpdateAppointment(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
