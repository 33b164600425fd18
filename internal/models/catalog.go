package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	Base
	Name        string     `gorm:"uniqueIndex;not null"   json:"name"`
	Slug        string     `gorm:"uniqueIndex;not null"   json:"slug"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"        json:"parentId,omitempty"`
	Image       string     `json:"image,omitempty"`
	Active      bool       `gorm:"not null;default:true"  json:"isActive"`
}

type Product struct {
	Base
	Title         string          `gorm:"index;not null"                                json:"title"`
	Description   string          `gorm:"not null"                                      json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null;check:price >= 0"  json:"price"`
	Stock         int             `gorm:"not null;default:0;check:stock >= 0"           json:"stock"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid;index"                               json:"categoryId,omitempty"`
	Category      *Category       `json:"category,omitempty"`
	Brand         string          `json:"brand,omitempty"`
	Active        bool            `gorm:"index;not null;default:true"                   json:"isActive"`
	AverageRating float64         `gorm:"not null;default:0"                            json:"averageRating"`
	NumReviews    int             `gorm:"not null;default:0"                            json:"numReviews"`
	Images        []ProductImage  `gorm:"constraint:OnDelete:CASCADE"                   json:"images"`
}

type ProductImage struct {
	Base
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"productId"`
	URL       string    `gorm:"not null"                 json:"url"`
	PublicID  string    `gorm:"not null"                 json:"publicId"`
}
