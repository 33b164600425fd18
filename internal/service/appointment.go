package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/notify"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

// appointmentTypes maps a bookable service to the role that provides it.
var appointmentTypes = map[string]string{
	"veterinary": models.RoleVeterinarian,
	"grooming":   models.RoleGroomer,
	"training":   models.RoleTrainer,
}

const (
	minDuration     = 15
	maxDuration     = 240
	defaultDuration = 60
)

type AppointmentService struct {
	Repo     *repo.GormRepo
	Notifier notify.Notifier
	Now      func() time.Time
}

type AppointmentInput struct {
	ProfessionalID uuid.UUID
	PetID          uuid.UUID
	Type           string
	DateTime       time.Time
	Duration       int
	Reason         string
	Notes          string
}

type AppointmentStatusInput struct {
	Status             string
	Notes              string
	CancellationReason string
}

// Actor is the authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// BookedSlot is the public view of a professional's calendar.
type BookedSlot struct {
	DateTime time.Time `json:"dateTime"`
	Duration int       `json:"duration"`
	Status   string    `json:"status"`
}

func (s *AppointmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func AppointmentRole(appointmentType string) (string, bool) {
	role, ok := appointmentTypes[strings.ToLower(strings.TrimSpace(appointmentType))]
	return role, ok
}

// Create books a slot. The professional must provide the requested service
// and be active, the pet must belong to the customer, and neither the
// professional nor the pet may already hold a live appointment at that time.
func (s *AppointmentService) Create(ctx context.Context, customerID uuid.UUID, in AppointmentInput) (*models.Appointment, error) {
	l := logging.FromContext(ctx).With("svc", "appointment.create", "customer_id", customerID)

	role, ok := AppointmentRole(in.Type)
	if !ok {
		return nil, Validation("Invalid appointment type")
	}
	duration := in.Duration
	if duration == 0 {
		duration = defaultDuration
	}
	if duration < minDuration || duration > maxDuration {
		return nil, Validation("Duration must be between %d and %d minutes", minDuration, maxDuration)
	}

	at := in.DateTime.UTC().Truncate(time.Minute)
	if !at.After(s.now()) {
		return nil, Validation("Appointment date must be in the future")
	}

	pro, err := s.Repo.GetUserByID(ctx, in.ProfessionalID)
	if err != nil {
		return nil, notFoundOr(err, "Professional not found")
	}
	if pro.Role != role {
		return nil, Validation("Professional does not provide %s appointments", strings.ToLower(in.Type))
	}
	if !pro.Active || pro.ProfessionalInfo == nil || !pro.ProfessionalInfo.Active {
		return nil, Validation("Professional is not available")
	}

	pet, err := s.Repo.GetPet(ctx, in.PetID)
	if err != nil {
		return nil, notFoundOr(err, "Pet not found")
	}
	if pet.OwnerID != customerID {
		return nil, NotFound("Pet not found")
	}

	appt := &models.Appointment{
		CustomerID:     customerID,
		ProfessionalID: pro.ID,
		PetID:          pet.ID,
		Type:           strings.ToLower(strings.TrimSpace(in.Type)),
		DateTime:       at,
		Duration:       duration,
		Status:         models.AppointmentPending,
		Reason:         in.Reason,
		Notes:          in.Notes,
	}

	var lostRace bool
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if err := slotConflict(ctx, tx, pro.ID, pet.ID, at); err != nil {
			return err
		}
		if err := tx.CreateAppointment(ctx, appt); err != nil {
			if repo.IsDuplicate(err) {
				lostRace = true
			}
			return err
		}
		return nil
	})
	if lostRace {
		// The winning booking has committed by now; read it to tell which
		// side of the slot it took.
		if err = slotConflict(ctx, s.Repo, pro.ID, pet.ID, at); err == nil {
			err = Conflict(MsgSlotBooked)
		}
	}
	if err != nil {
		l.Warn("appointment_rejected", "professional_id", pro.ID, "pet_id", pet.ID, "date_time", at, "error", err)
		return nil, err
	}
	l.Info("appointment_booked", "appointment_id", appt.ID, "professional_id", pro.ID)

	full, err := s.Repo.GetAppointment(ctx, appt.ID)
	if err != nil {
		return appt, nil
	}
	s.notifyParty(ctx, full.Professional, notify.Message{
		Subject:  "New Appointment Request",
		Template: notify.TemplateAppointmentRequest,
		Data: map[string]any{
			"appointmentId": full.ID,
			"customerName":  nameOf(full.Customer),
			"petName":       pet.Name,
			"dateTime":      full.DateTime,
			"reason":        full.Reason,
		},
	})
	s.notifyParty(ctx, full.Customer, notify.Message{
		Subject:  "Appointment Request Confirmation",
		Template: notify.TemplateAppointmentBooked,
		Data: map[string]any{
			"appointmentId":    full.ID,
			"professionalName": pro.Name,
			"type":             full.Type,
			"petName":          pet.Name,
			"dateTime":         full.DateTime,
		},
	})
	return full, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Appointment, error) {
	a, err := s.Repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Appointment not found")
	}
	if a.CustomerID != actor.ID && a.ProfessionalID != actor.ID && !actor.IsAdmin() {
		return nil, Forbidden("Not authorized to view this appointment")
	}
	return a, nil
}

func (s *AppointmentService) ListMine(ctx context.Context, customerID uuid.UUID, p repo.Page) (int64, []models.Appointment, error) {
	return s.Repo.ListAppointments(ctx, repo.AppointmentFilter{CustomerID: &customerID}, p)
}

func (s *AppointmentService) ListForProfessional(ctx context.Context, professionalID uuid.UUID, status string, p repo.Page) (int64, []models.Appointment, error) {
	f := repo.AppointmentFilter{ProfessionalID: &professionalID}
	if status != "" {
		f.Statuses = []string{strings.ToUpper(status)}
	}
	return s.Repo.ListAppointments(ctx, f, p)
}

// BookedSlots lists a professional's upcoming live appointments without
// any customer details.
func (s *AppointmentService) BookedSlots(ctx context.Context, professionalID uuid.UUID) ([]BookedSlot, error) {
	from := s.now().UTC()
	_, items, err := s.Repo.ListAppointments(ctx, repo.AppointmentFilter{
		ProfessionalID: &professionalID,
		Statuses:       models.ActiveAppointmentStatuses,
		From:           &from,
	}, repo.Page{})
	if err != nil {
		return nil, err
	}
	slots := make([]BookedSlot, 0, len(items))
	for _, a := range items {
		slots = append(slots, BookedSlot{DateTime: a.DateTime, Duration: a.Duration, Status: a.Status})
	}
	return slots, nil
}

// UpdateStatus applies a role-gated transition. Confirm, reject and complete
// belong to the assigned professional or an admin; any party may cancel a
// live appointment.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id uuid.UUID, actor Actor, in AppointmentStatusInput) (*models.Appointment, error) {
	next := strings.ToUpper(strings.TrimSpace(in.Status))

	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		a, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return notFoundOr(err, "Appointment not found")
		}

		isPro := a.ProfessionalID == actor.ID
		isCustomer := a.CustomerID == actor.ID
		switch next {
		case models.AppointmentConfirmed, models.AppointmentRejected, models.AppointmentCompleted:
			if !isPro && !actor.IsAdmin() {
				return Forbidden("Not authorized to update this appointment")
			}
		case models.AppointmentCancelled:
			if !isPro && !isCustomer && !actor.IsAdmin() {
				return Forbidden("Not authorized to update this appointment")
			}
		default:
			return Validation("Invalid appointment status")
		}

		if !appointmentTransitionAllowed(a.Status, next) {
			return Validation("Cannot change appointment status from %s to %s", a.Status, next)
		}

		fields := map[string]any{"status": next}
		if in.Notes != "" {
			fields["notes"] = in.Notes
		}
		if next == models.AppointmentCancelled {
			fields["cancellation_reason"] = in.CancellationReason
			fields["cancelled_by"] = actor.ID
		}
		return tx.UpdateAppointment(ctx, a.ID, fields)
	})
	if err != nil {
		return nil, err
	}

	a, err := s.Repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("appointment_status_changed", "appointment_id", id, "status", next, "actor_id", actor.ID)
	s.afterStatusChange(ctx, a, actor)
	return a, nil
}

// Cancel is the DELETE form of a cancellation.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, actor Actor, reason string) (*models.Appointment, error) {
	return s.UpdateStatus(ctx, id, actor, AppointmentStatusInput{Status: models.AppointmentCancelled, CancellationReason: reason})
}

func appointmentTransitionAllowed(from, to string) bool {
	switch from {
	case models.AppointmentPending:
		return to == models.AppointmentConfirmed || to == models.AppointmentRejected || to == models.AppointmentCancelled
	case models.AppointmentConfirmed:
		return to == models.AppointmentCompleted || to == models.AppointmentCancelled
	}
	return false
}

func (s *AppointmentService) afterStatusChange(ctx context.Context, a *models.Appointment, actor Actor) {
	if a.Status != models.AppointmentCancelled {
		s.notifyParty(ctx, a.Customer, notify.Message{
			Subject:  "Appointment Status Update",
			Template: notify.TemplateAppointmentStatus,
			Data:     map[string]any{"appointmentId": a.ID, "status": a.Status, "notes": a.Notes},
		})
		return
	}

	recipient := a.Professional
	if a.ProfessionalID == actor.ID {
		recipient = a.Customer
	}
	s.notifyParty(ctx, recipient, notify.Message{
		Subject:  "Appointment Cancelled",
		Template: notify.TemplateAppointmentCanceled,
		Data:     map[string]any{"appointmentId": a.ID, "cancellationReason": a.CancellationReason},
	})
}

func (s *AppointmentService) notifyParty(ctx context.Context, u *models.User, msg notify.Message) {
	if u == nil {
		return
	}
	msg.To = u.Email
	if msg.Data == nil {
		msg.Data = map[string]any{}
	}
	msg.Data["name"] = u.Name
	notify.Send(ctx, s.Notifier, msg)
}

func nameOf(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

// slotConflict reports which live appointment already holds the slot. The
// professional wins when both do.
func slotConflict(ctx context.Context, r *repo.GormRepo, professionalID, petID uuid.UUID, at time.Time) error {
	proBusy, petBusy, err := r.SlotTaken(ctx, professionalID, petID, at)
	switch {
	case err != nil:
		return err
	case proBusy:
		return Conflict(MsgSlotBooked)
	case petBusy:
		return Conflict(MsgPetSlotBooked)
	}
	return nil
}
