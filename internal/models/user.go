package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCustomer     = "customer"
	RoleVeterinarian = "veterinarian"
	RoleGroomer      = "groomer"
	RoleTrainer      = "trainer"
	RoleAdmin        = "admin"
)

var ProfessionalRoles = []string{RoleVeterinarian, RoleGroomer, RoleTrainer}

func IsProfessionalRole(role string) bool {
	switch role {
	case RoleVeterinarian, RoleGroomer, RoleTrainer:
		return true
	}
	return false
}

type User struct {
	Base
	Name             string            `gorm:"not null"                        json:"name"`
	Email            string            `gorm:"uniqueIndex;not null"            json:"email"`
	PasswordHash     string            `gorm:"not null"                        json:"-"`
	Role             string            `gorm:"index;not null;default:customer" json:"role"`
	PhoneNumber      string            `json:"phoneNumber,omitempty"`
	Address          Address           `gorm:"serializer:json;type:text"       json:"address"`
	IsEmailVerified  bool              `gorm:"not null;default:false"          json:"isEmailVerified"`
	Active           bool              `gorm:"not null;default:true"           json:"active"`
	ProfessionalInfo *ProfessionalInfo `gorm:"foreignKey:UserID"               json:"professionalInfo,omitempty"`
}

type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Availability maps a lowercase weekday to its working slots ("09:00"-"17:00").
type Availability map[string][]TimeSlot

type ProfessionalInfo struct {
	Base
	UserID         uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null"  json:"userId"`
	Specialization string       `gorm:"index"                           json:"specialization"`
	Experience     int          `gorm:"not null;default:0"              json:"experience"`
	Qualifications []string     `gorm:"serializer:json;type:text"       json:"qualifications"`
	Services       []string     `gorm:"serializer:json;type:text"       json:"services"`
	Bio            string       `json:"bio,omitempty"`
	Rating         float64      `gorm:"not null;default:0"              json:"rating"`
	NumReviews     int          `gorm:"not null;default:0"              json:"numReviews"`
	Availability   Availability `gorm:"serializer:json;type:text"       json:"availability"`
	Active         bool         `gorm:"not null;default:true"           json:"isActive"`
	ProfileImage   string       `json:"profileImage,omitempty"`
	ProfileImageID string       `json:"-"`
}

func (ProfessionalInfo) TableName() string {
	return "professional_infos"
}

type RefreshToken struct {
	Base
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	TokenHash string    `gorm:"uniqueIndex;not null"     json:"-"`
	JTI       string    `gorm:"uniqueIndex;not null"     json:"jti"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expiresAt"`
	Revoked   bool      `gorm:"not null;default:false"   json:"revoked"`
}

const (
	TokenPasswordReset = "password_reset"
	TokenEmailVerify   = "email_verify"
)

// UserToken is a single-use emailed token, stored hashed.
type UserToken struct {
	Base
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"userId"`
	Kind      string     `gorm:"index;not null"           json:"kind"`
	TokenHash string     `gorm:"uniqueIndex;not null"     json:"-"`
	ExpiresAt time.Time  `gorm:"not null"                 json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}
