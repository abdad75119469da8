package database

import (
	"log"

	"relief-backend/internal/config"
	"relief-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection pool and runs migrations.
// The returned handle is process-wide, constructed once in main and
// injected into every handler that needs it.
func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("Database connection established, migrations complete.")
	return db
}

// Migrate is separate from Connect so integration tests can run it
// against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.InventoryItem{},
		&models.InventoryRecord{},
		&models.Allocation{},
		&models.AuditLog{},
	)
}
