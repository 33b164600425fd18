// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/petstore/internal/models"
	pkgdb "github.com/Skotchmaster/petstore/pkg/db"
	"github.com/Skotchmaster/petstore/pkg/hash"
)

const Password = "password123"

func init() {
	hash.Cost = bcrypt.MinCost
}

// NewDB opens a migrated in-memory sqlite database. A single connection keeps
// the in-memory database alive and serializes transactions.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := pkgdb.GormConfig()
	cfg.PrepareStmt = false
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, pkgdb.Migrate(context.Background(), db, models.All()...))
	return db
}

func User(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()

	pw, err := hash.HashPassword(Password)
	require.NoError(t, err)

	id := uuid.New()
	u := &models.User{
		Base:         models.Base{ID: id},
		Name:         "user " + id.String()[:8],
		Email:        id.String()[:8] + "@example.com",
		PasswordHash: pw,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Professional(t *testing.T, db *gorm.DB, role string, av models.Availability) *models.User {
	t.Helper()

	u := User(t, db, role)
	info := &models.ProfessionalInfo{
		UserID:         u.ID,
		Specialization: "general",
		Experience:     5,
		Availability:   av,
		Active:         true,
	}
	require.NoError(t, db.Create(info).Error)
	u.ProfessionalInfo = info
	return u
}

func Product(t *testing.T, db *gorm.DB, title, price string, stock int) *models.Product {
	t.Helper()

	p := &models.Product{
		Title:       title,
		Description: title + " description",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Active:      true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func Pet(t *testing.T, db *gorm.DB, ownerID uuid.UUID) *models.Pet {
	t.Helper()

	p := &models.Pet{
		OwnerID: ownerID,
		Name:    "Rex",
		Type:    "dog",
		Breed:   "beagle",
		Age:     3,
		Gender:  "male",
		Color:   "brown",
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func ReloadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()

	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}
