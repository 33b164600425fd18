package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/petstore/internal/models"
)

type AddressRequest struct {
	Street  string `json:"street"  validate:"required,max=200"`
	City    string `json:"city"    validate:"required,max=100"`
	State   string `json:"state"   validate:"required,max=100"`
	ZipCode string `json:"zipCode" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

func (a *AddressRequest) ToModel() models.Address {
	if a == nil {
		return models.Address{}
	}
	return models.Address{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
}

// auth

type SignupRequest struct {
	Name        string          `json:"name"        validate:"required,min=2,max=50"`
	Email       string          `json:"email"       validate:"required,email"`
	Password    string          `json:"password"    validate:"required,min=8,max=72"`
	PhoneNumber string          `json:"phoneNumber" validate:"omitempty,max=30"`
	Address     *AddressRequest `json:"address"     validate:"omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// users

type UpdateProfileRequest struct {
	Name        *string         `json:"name"        validate:"omitempty,min=2,max=50"`
	PhoneNumber *string         `json:"phoneNumber" validate:"omitempty,max=30"`
	Address     *AddressRequest `json:"address"     validate:"omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=72"`
}

// catalog

type CreateProductRequest struct {
	Title       string           `json:"title"       validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Price       *decimal.Decimal `json:"price"       validate:"required"`
	Stock       *int             `json:"stock"       validate:"required,min=0"`
	CategoryID  *uuid.UUID       `json:"category"`
	Brand       string           `json:"brand"       validate:"max=100"`
}

type PatchProductRequest struct {
	Title       *string          `json:"title"       validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"       validate:"omitempty,min=0"`
	CategoryID  *uuid.UUID       `json:"category"`
	Brand       *string          `json:"brand"       validate:"omitempty,max=100"`
	Active      *bool            `json:"active"`
}

type CategoryRequest struct {
	Name        *string    `json:"name"        validate:"omitempty,min=2,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	ParentID    *uuid.UUID `json:"parent"`
	Image       *string    `json:"image"       validate:"omitempty,url"`
	Active      *bool      `json:"active"`
}

// cart

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity"  validate:"required,min=1,max=100"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=100"`
}

type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

// orders

type CreateOrderRequest struct {
	ShippingAddress *AddressRequest `json:"shippingAddress" validate:"required"`
	PaymentMethod   string          `json:"paymentMethod"   validate:"required,oneof=credit_card paypal stripe cash_on_delivery"`
	Notes           string          `json:"notes"           validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status            string     `json:"status"            validate:"required,oneof=pending processing shipped delivered cancelled"`
	TrackingNumber    string     `json:"trackingNumber"    validate:"max=100"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	Notes             string     `json:"notes"             validate:"max=500"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string     `json:"paymentStatus" validate:"required,oneof=pending completed failed refunded"`
	TransactionID string     `json:"transactionId" validate:"max=200"`
	PaymentDate   *time.Time `json:"paymentDate"`
}

// payments

type InitializePaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=stripe paypal"`
}

// pets

type CreatePetRequest struct {
	Name   string   `json:"name"   validate:"required,max=50"`
	Type   string   `json:"type"   validate:"required,max=50"`
	Breed  string   `json:"breed"  validate:"required,max=50"`
	Age    *int     `json:"age"    validate:"required,min=0,max=30"`
	Gender string   `json:"gender" validate:"required,oneof=male female other"`
	Color  string   `json:"color"  validate:"required,max=50"`
	Weight *float64 `json:"weight" validate:"omitempty,gt=0"`
	Notes  string   `json:"notes"  validate:"max=500"`
}

type PatchPetRequest struct {
	Name   *string  `json:"name"   validate:"omitempty,min=1,max=50"`
	Type   *string  `json:"type"   validate:"omitempty,min=1,max=50"`
	Breed  *string  `json:"breed"  validate:"omitempty,min=1,max=50"`
	Age    *int     `json:"age"    validate:"omitempty,min=0,max=30"`
	Gender *string  `json:"gender" validate:"omitempty,oneof=male female other"`
	Color  *string  `json:"color"  validate:"omitempty,min=1,max=50"`
	Weight *float64 `json:"weight" validate:"omitempty,gt=0"`
	Notes  *string  `json:"notes"  validate:"omitempty,max=500"`
}

// appointments

type CreateAppointmentRequest struct {
	ProfessionalID uuid.UUID `json:"professionalId" validate:"required"`
	PetID          uuid.UUID `json:"petId"          validate:"required"`
	Type           string    `json:"appointmentType" validate:"required"`
	DateTime       time.Time `json:"dateTime"       validate:"required"`
	Duration       int       `json:"duration"       validate:"omitempty,min=15,max=240"`
	Reason         string    `json:"reason"         validate:"max=500"`
	Notes          string    `json:"notes"          validate:"max=1000"`
}

type UpdateAppointmentStatusRequest struct {
	Status             string `json:"status"             validate:"required"`
	Notes              string `json:"notes"              validate:"max=500"`
	CancellationReason string `json:"cancellationReason" validate:"max=500"`
}

type CancelAppointmentRequest struct {
	CancellationReason string `json:"cancellationReason" validate:"max=500"`
}

// professionals

type CreateProfessionalRequest struct {
	Name           string              `json:"name"           validate:"required,min=2,max=50"`
	Email          string              `json:"email"          validate:"required,email"`
	Password       string              `json:"password"       validate:"required,min=8,max=72"`
	Role           string              `json:"role"           validate:"required,oneof=veterinarian groomer trainer"`
	PhoneNumber    string              `json:"phoneNumber"    validate:"omitempty,max=30"`
	Specialization string              `json:"specialization" validate:"required,max=100"`
	Experience     int                 `json:"experience"     validate:"min=0,max=80"`
	Qualifications []string            `json:"qualifications"`
	Services       []string            `json:"services"`
	Bio            string              `json:"bio"            validate:"max=1000"`
	Availability   models.Availability `json:"availability"`
}

type UpdateProfessionalProfileRequest struct {
	Name           *string  `json:"name"           validate:"omitempty,min=2,max=50"`
	PhoneNumber    *string  `json:"phoneNumber"    validate:"omitempty,max=30"`
	Specialization *string  `json:"specialization" validate:"omitempty,max=100"`
	Experience     *int     `json:"experience"     validate:"omitempty,min=0,max=80"`
	Qualifications []string `json:"qualifications"`
	Services       []string `json:"services"`
	Bio            *string  `json:"bio"            validate:"omitempty,max=1000"`
}

type UpdateAvailabilityRequest struct {
	Availability models.Availability `json:"availability" validate:"required"`
}

type UpdateRatingRequest struct {
	Rating     *float64 `json:"rating"     validate:"required,min=0,max=5"`
	NumReviews *int     `json:"numReviews" validate:"omitempty,min=0"`
}

// reviews

type CreateReviewRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Rating    int       `json:"rating"    validate:"required,min=1,max=5"`
	Comment   string    `json:"comment"   validate:"required,max=1000"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"  validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,min=1,max=1000"`
}
