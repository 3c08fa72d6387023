package testutil

import (
	"testing"

	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database.
// A single connection keeps every query on the same in-memory database,
// which also serializes concurrent transactions.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given auth0 id and role
func CreateUser(t *testing.T, db *gorm.DB, auth0ID, role string) *models.User {
	t.Helper()

	user := &models.User{
		Auth0ID: auth0ID,
		Name:    auth0ID,
		Email:   auth0ID + "@example.com",
		Role:    role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", auth0ID, err)
	}
	return user
}

// CreateMenuItem inserts a menu item priced from a decimal string
func CreateMenuItem(t *testing.T, db *gorm.DB, name, price string, available bool) *models.MenuItem {
	t.Helper()

	item := &models.MenuItem{
		Name:      name,
		Category:  "bakery",
		Price:     decimal.RequireFromString(price),
		Available: available,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to create menu item %s: %v", name, err)
	}
	return item
}
