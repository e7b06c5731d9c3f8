package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates/updates the gateway tables
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&File{},
		&FileRequestLog{},
	); err != nil {
		return err
	}
	log.Println("Database migrations completed")
	return nil
}
