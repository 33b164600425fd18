package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AppointmentPending   = "PENDING"
	AppointmentConfirmed = "CONFIRMED"
	AppointmentCompleted = "COMPLETED"
	AppointmentCancelled = "CANCELLED"
	AppointmentRejected  = "REJECTED"
)

// ActiveAppointmentStatuses hold a slot; every other status frees it.
var ActiveAppointmentStatuses = []string{AppointmentPending, AppointmentConfirmed}

type Pet struct {
	Base
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null"     json:"ownerId"`
	Name    string    `gorm:"not null"                     json:"name"`
	Type    string    `gorm:"not null"                     json:"type"`
	Breed   string    `gorm:"not null"                     json:"breed"`
	Age     int       `gorm:"not null;default:0"           json:"age"`
	Gender  string    `gorm:"not null"                     json:"gender"`
	Color   string    `gorm:"not null"                     json:"color"`
	Weight  float64   `json:"weight,omitempty"`
	Notes   string    `json:"notes,omitempty"`
}

// The partial unique indexes keep one live appointment per professional
// slot and per pet slot.
type Appointment struct {
	Base
	CustomerID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"customerId"`
	ProfessionalID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_appointment_professional_slot,where:status <> 'COMPLETED' AND status <> 'CANCELLED' AND status <> 'REJECTED'" json:"professionalId"`
	PetID              uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_appointment_pet_slot,where:status <> 'COMPLETED' AND status <> 'CANCELLED' AND status <> 'REJECTED'" json:"petId"`
	Type               string     `gorm:"not null"                 json:"type"`
	DateTime           time.Time  `gorm:"not null;uniqueIndex:idx_appointment_professional_slot;uniqueIndex:idx_appointment_pet_slot" json:"dateTime"`
	Duration           int        `gorm:"not null;default:60"      json:"duration"`
	Status             string     `gorm:"index;not null;default:PENDING" json:"status"`
	Reason             string     `json:"reason,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledBy        *uuid.UUID `gorm:"type:uuid"                json:"cancelledBy,omitempty"`
	Customer           *User      `gorm:"foreignKey:CustomerID"    json:"customer,omitempty"`
	Professional       *User      `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	Pet                *Pet       `json:"pet,omitempty"`
}

func IsActiveAppointment(status string) bool {
	return status == AppointmentPending || status == AppointmentConfirmed
}

type Review struct {
	Base
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_product" json:"userId"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_product;index" json:"productId"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5"             json:"rating"`
	Comment   string    `gorm:"not null"                                               json:"comment"`
	User      *User     `json:"user,omitempty"`
}
