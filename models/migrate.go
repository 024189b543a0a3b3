package models

import "gorm.io/gorm"

// Migrate creates or updates the tables of the durable store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Message{})
}
