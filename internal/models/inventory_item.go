package models

import "time"

// InventoryItem: catalog entry, immutable reference data.
type InventoryItem struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	Category  string `gorm:"size:50;index"` // food, medical, shelter, water...
	Unit      string `gorm:"size:20;not null"` // kg, box, liter, unit
	CreatedAt time.Time
	UpdatedAt time.Time
}
