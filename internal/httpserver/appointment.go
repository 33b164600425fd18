package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/internal/transport"
	"github.com/Skotchmaster/petstore/pkg/logging"
)

type AppointmentHTTP struct {
	Svc *service.AppointmentService
}

func (h *AppointmentHTTP) CreateAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointment.create_appointment")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "appointment_create_failed", err)
	}
	var req transport.CreateAppointmentRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "appointment_create_failed", err)
	}

	appt, err := h.Svc.Create(ctx, userID, service.AppointmentInput{
		ProfessionalID: req.ProfessionalID,
		PetID:          req.PetID,
		Type:           req.Type,
		DateTime:       req.DateTime,
		Duration:       req.Duration,
		Reason:         req.Reason,
		Notes:          req.Notes,
	})
	if err != nil {
		return fail(l, "appointment_create_failed", err)
	}

	l.Info("appointment_create_success", "appointment_id", appt.ID, "professional_id", req.ProfessionalID, "date_time", appt.DateTime)
	return ok(c, http.StatusCreated, appt)
}

func (h *AppointmentHTTP) MyAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointment.my_appointments")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "my_appointments_failed", err)
	}
	p := parsePage(c)
	total, items, err := h.Svc.ListMine(ctx, userID, p.repo())
	if err != nil {
		return fail(l, "my_appointments_failed", err)
	}
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *AppointmentHTTP) ProfessionalAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointment.professional_appointments")

	userID, err := currentUser(c)
	if err != nil {
		return fail(l, "professional_appointments_failed", err)
	}
	p := parsePage(c)
	total, items, err := h.Svc.ListForProfessional(ctx, userID, c.QueryParam("status"), p.repo())
	if err != nil {
		return fail(l, "professional_appointments_failed", err)
	}
	return okPage(c, http.StatusOK, items, p.meta(total))
}

func (h *AppointmentHTTP) BookedSlots(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointment.booked_slots")

	id, err := pathID(c, "professionalId")
	if err != nil {
		return fail(l, "booked_slots_failed", err)
	}
	slots, err := h.Svc.BookedSlots(ctx, id)
	if err != nil {
		return fail(l, "booked_slots_failed", err)
	}
	return ok(c, http.StatusOK, slots)
}

func (h *AppointmentHTTP) GetAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointment.get_appointment")

	a, err := actor(c)
	if err != nil {
		return fail(l, "get_appointment_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_appointment_failed", err)
	}
	appt, err := h.Svc.Get(ctx, id, a)
	if err != nil {
		return fail(l, "get_appointment_failed", err)
	}
	return ok(c, http.StatusOK, appt)
}

func (h *AppointmentHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointment.update_status")

	a, err := actor(c)
	if err != nil {
		return fail(l, "appointment_status_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "appointment_status_failed", err)
	}
	var req transport.UpdateAppointmentStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "appointment_status_failed", err)
	}

	appt, err := h.Svc.UpdateStatus(ctx, id, a, service.AppointmentStatusInput{
		Status:             req.Status,
		Notes:              req.Notes,
		CancellationReason: req.CancellationReason,
	})
	if err != nil {
		return fail(l, "appointment_status_failed", err)
	}

	l.Info("appointment_status_success", "appointment_id", id, "status", appt.Status, "actor_id", a.ID)
	return ok(c, http.StatusOK, appt)
}

func (h *AppointmentHTTP) CancelAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "appointment.cancel_appointment")

	a, err := actor(c)
	if err != nil {
		return fail(l, "appointment_cancel_failed", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "appointment_cancel_failed", err)
	}
	var req transport.CancelAppointmentRequest
	if c.Request().ContentLength > 0 {
		if err := bind(c, &req); err != nil {
			return fail(l, "appointment_cancel_failed", err)
		}
	}

	appt, err := h.Svc.Cancel(ctx, id, a, req.CancellationReason)
	if err != nil {
		return fail(l, "appointment_cancel_failed", err)
	}

	l.Info("appointment_cancel_success", "appointment_id", id, "actor_id", a.ID)
	return ok(c, http.StatusOK, appt)
}
