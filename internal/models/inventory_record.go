package models

import "time"

// InventoryRecord: stock level of one item at one organization.
// Quantity is only mutated through conditional updates so it can
// never be observed negative.
type InventoryRecord struct {
	ID             uint `gorm:"primaryKey"`
	OrganizationID uint `gorm:"not null;uniqueIndex:idx_org_item"`
	Organization   Organization
	ItemID         uint `gorm:"not null;uniqueIndex:idx_org_item"`
	Item           InventoryItem
	Quantity       int   `gorm:"not null"`
	MinThreshold   int   `gorm:"not null;default:0"` // checked against quantity at creation only
	MaxCapacity    *int  // optional upper bound
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
