package allocation

import (
	"context"
	"errors"
	"time"

	"relief-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound               = errors.New("allocation not found")
	ErrOrganizationNotFound   = errors.New("organization not found")
	ErrItemNotFound           = errors.New("inventory item not found")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrMissingApprover        = errors.New("approver is required for approval")
	ErrMissingSourceOrg       = errors.New("source organization no longer exists")
	ErrMissingInventoryRecord = errors.New("source organization has no inventory record for this item")
	ErrInsufficientInventory  = errors.New("insufficient inventory at source organization")
	ErrSameOrganization       = errors.New("source and recipient organization must differ")
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
)

// allowedTransitions is the workflow table. Statuses not listed as a
// key are terminal.
var allowedTransitions = map[models.AllocationStatus][]models.AllocationStatus{
	models.StatusPending:   {models.StatusApproved, models.StatusRejected, models.StatusCancelled},
	models.StatusApproved:  {models.StatusInTransit, models.StatusCancelled},
	models.StatusInTransit: {models.StatusCompleted, models.StatusCancelled},
}

func CanTransition(from, to models.AllocationStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func IsTerminal(status models.AllocationStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// Engine executes allocation lifecycle operations against the store.
// The approval transition couples the status update and the inventory
// decrement inside one transaction, which is the correctness core of
// the whole system.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

type CreateInput struct {
	FromOrgID   *uint
	ToOrgID     uint
	ItemID      uint
	Quantity    int
	RequestedBy string
	Notes       string
}

func (e *Engine) Create(ctx context.Context, in CreateInput) (*models.Allocation, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.FromOrgID != nil && *in.FromOrgID == in.ToOrgID {
		return nil, ErrSameOrganization
	}

	db := e.db.WithContext(ctx)

	var toOrg models.Organization
	if err := db.First(&toOrg, in.ToOrgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	if in.FromOrgID != nil {
		var fromOrg models.Organization
		if err := db.First(&fromOrg, *in.FromOrgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOrganizationNotFound
			}
			return nil, err
		}
	}
	var item models.InventoryItem
	if err := db.First(&item, in.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	alloc := models.Allocation{
		Reference:   uuid.NewString(),
		FromOrgID:   in.FromOrgID,
		ToOrgID:     in.ToOrgID,
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		Status:      models.StatusPending,
		RequestedBy: in.RequestedBy,
		RequestDate: time.Now(),
		Notes:       in.Notes,
	}
	if err := db.Create(&alloc).Error; err != nil {
		return nil, err
	}

	return e.Get(ctx, alloc.ID)
}

type TransitionInput struct {
	Target        models.AllocationStatus
	ApprovedBy    *uint
	CompletedDate *time.Time
	Notes         *string
}

// Transition moves an allocation to the requested target status. The
// pre-check against the in-memory copy rejects obviously bad requests;
// the guarded UPDATE inside each branch makes the decision race-safe:
// under concurrent attempts only one request matches the current status.
func (e *Engine) Transition(ctx context.Context, id uint, in TransitionInput) (*models.Allocation, error) {
	db := e.db.WithContext(ctx)

	var alloc models.Allocation
	if err := db.First(&alloc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !CanTransition(alloc.Status, in.Target) {
		return nil, ErrInvalidTransition
	}
	if in.Target == models.StatusApproved && in.ApprovedBy == nil {
		return nil, ErrMissingApprover
	}

	var err error
	switch in.Target {
	case models.StatusApproved:
		err = e.approve(ctx, &alloc, *in.ApprovedBy)
	case models.StatusCompleted:
		completed := time.Now()
		if in.CompletedDate != nil {
			completed = *in.CompletedDate
		}
		err = e.advance(ctx, &alloc, in.Target, map[string]any{"completed_date": completed})
	default:
		err = e.advance(ctx, &alloc, in.Target, nil)
	}
	if err != nil {
		return nil, err
	}

	if in.Notes != nil {
		if err := db.Model(&models.Allocation{}).Where("id = ?", alloc.ID).
			Update("notes", *in.Notes).Error; err != nil {
			return nil, err
		}
	}

	return e.Get(ctx, alloc.ID)
}

// approve commits the status change and the source inventory decrement
// as one atomic unit. External restocks (nil source) skip the ledger
// step entirely. Any ledger failure rolls back the status change.
func (e *Engine) approve(ctx context.Context, alloc *models.Allocation, approverID uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Allocation{}).
			Where("id = ? AND status = ?", alloc.ID, models.StatusPending).
			Updates(map[string]any{
				"status":        models.StatusApproved,
				"approved_by":   approverID,
				"approved_date": now,
			})
		if res.Error != nil {
			return res.Error
		}
		// A concurrent transition got there first.
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		if alloc.FromOrgID == nil {
			return nil
		}

		var org models.Organization
		if err := tx.First(&org, *alloc.FromOrgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMissingSourceOrg
			}
			return err
		}

		// Conditional decrement: the quantity guard in the WHERE clause
		// makes a lost update impossible, the row can never go negative.
		dec := tx.Model(&models.InventoryRecord{}).
			Where("organization_id = ? AND item_id = ? AND quantity >= ?",
				*alloc.FromOrgID, alloc.ItemID, alloc.Quantity).
			Update("quantity", gorm.Expr("quantity - ?", alloc.Quantity))
		if dec.Error != nil {
			return dec.Error
		}
		if dec.RowsAffected == 0 {
			var rec models.InventoryRecord
			err := tx.Where("organization_id = ? AND item_id = ?", *alloc.FromOrgID, alloc.ItemID).
				First(&rec).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMissingInventoryRecord
			}
			if err != nil {
				return err
			}
			return ErrInsufficientInventory
		}

		return nil
	})
}

// advance performs a plain status transition guarded on the status the
// caller observed.
func (e *Engine) advance(ctx context.Context, alloc *models.Allocation, target models.AllocationStatus, extra map[string]any) error {
	updates := map[string]any{"status": target}
	for k, v := range extra {
		updates[k] = v
	}

	res := e.db.WithContext(ctx).Model(&models.Allocation{}).
		Where("id = ? AND status = ?", alloc.ID, alloc.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (e *Engine) Get(ctx context.Context, id uint) (*models.Allocation, error) {
	var alloc models.Allocation
	err := e.db.WithContext(ctx).
		Preload("FromOrg").
		Preload("ToOrg").
		Preload("Item").
		First(&alloc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

type ListFilter struct {
	Page      int
	Limit     int
	Status    models.AllocationStatus
	ToOrgID   uint
	FromOrgID uint
}

func (e *Engine) List(ctx context.Context, f ListFilter) ([]models.Allocation, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	q := e.db.WithContext(ctx).Model(&models.Allocation{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ToOrgID > 0 {
		q = q.Where("to_org_id = ?", f.ToOrgID)
	}
	if f.FromOrgID > 0 {
		q = q.Where("from_org_id = ?", f.FromOrgID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var allocs []models.Allocation
	err := q.Preload("FromOrg").
		Preload("ToOrg").
		Preload("Item").
		Order("request_date DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&allocs).Error
	if err != nil {
		return nil, 0, err
	}
	return allocs, total, nil
}

// Delete removes an allocation unconditionally. This is an
// administrative override, not a workflow transition.
func (e *Engine) Delete(ctx context.Context, id uint) (*models.Allocation, error) {
	alloc, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.db.WithContext(ctx).Delete(&models.Allocation{}, id).Error; err != nil {
		return nil, err
	}
	return alloc, nil
}
