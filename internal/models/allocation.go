package models

import "time"

type AllocationStatus string

const (
	StatusPending   AllocationStatus = "PENDING"
	StatusApproved  AllocationStatus = "APPROVED"
	StatusInTransit AllocationStatus = "IN_TRANSIT"
	StatusCompleted AllocationStatus = "COMPLETED"
	StatusRejected  AllocationStatus = "REJECTED"
	StatusCancelled AllocationStatus = "CANCELLED"
)

// Allocation: a request to transfer a quantity of one item from an
// optional source organization to a recipient organization.
// FromOrgID nil means external restock, no source decrement.
type Allocation struct {
	ID        uint   `gorm:"primaryKey"`
	Reference string `gorm:"size:36;uniqueIndex;not null"` // external tracking code
	FromOrgID *uint  `gorm:"index"`
	FromOrg   *Organization
	ToOrgID   uint `gorm:"index;not null"`
	ToOrg     Organization
	ItemID    uint `gorm:"index;not null"`
	Item      InventoryItem
	Quantity  int              `gorm:"not null"`
	Status    AllocationStatus `gorm:"size:20;index;not null;default:'PENDING'"`

	RequestedBy   string `gorm:"size:100;not null"`
	ApprovedBy    *uint // identity reference, set from APPROVED onward
	RequestDate   time.Time `gorm:"index;not null"`
	ApprovedDate  *time.Time
	CompletedDate *time.Time
	Notes         string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
