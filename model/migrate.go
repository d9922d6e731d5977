package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the trade ledger table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&LedgerEntry{}); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}
