package inventory

import (
	"errors"
	"fmt"

	"relief-backend/internal/audit"
	"relief-backend/internal/auth"
	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RecordRequest struct {
	OrganizationID uint `json:"organizationId"`
	ItemID         uint `json:"itemId"`
	Quantity       int  `json:"quantity"`
	MinThreshold   int  `json:"minThreshold"`
	MaxCapacity    *int `json:"maxCapacity"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type RecordResponse struct {
	ID             uint   `json:"id"`
	OrganizationID uint   `json:"organizationId"`
	ItemID         uint   `json:"itemId"`
	ItemName       string `json:"itemName"`
	Quantity       int    `json:"quantity"`
	MinThreshold   int    `json:"minThreshold"`
	MaxCapacity    *int   `json:"maxCapacity"`
	BelowThreshold bool   `json:"belowThreshold"`
}

func toRecordResponse(r *models.InventoryRecord) RecordResponse {
	return RecordResponse{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		ItemID:         r.ItemID,
		ItemName:       r.Item.Name,
		Quantity:       r.Quantity,
		MinThreshold:   r.MinThreshold,
		MaxCapacity:    r.MaxCapacity,
		BelowThreshold: r.Quantity < r.MinThreshold,
	}
}

// POST /api/inventory
// minThreshold <= quantity is validated here at creation only; later
// decrements may push the quantity below the threshold.
func CreateRecordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecordRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}

		if body.OrganizationID == 0 || body.ItemID == 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "organizationId and itemId are required")
		}
		if body.Quantity < 0 || body.MinThreshold < 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "quantity and minThreshold must not be negative")
		}
		if body.MinThreshold > body.Quantity {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "minThreshold must not exceed quantity")
		}
		if body.MaxCapacity != nil && *body.MaxCapacity < body.Quantity {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "maxCapacity must not be below quantity")
		}

		if err := db.First(&models.Organization{}, body.OrganizationID).Error; err != nil {
			return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Organization not found")
		}
		if err := db.First(&models.InventoryItem{}, body.ItemID).Error; err != nil {
			return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Inventory item not found")
		}

		var count int64
		db.Model(&models.InventoryRecord{}).
			Where("organization_id = ? AND item_id = ?", body.OrganizationID, body.ItemID).
			Count(&count)
		if count > 0 {
			return httpx.NewError(fiber.StatusConflict, httpx.CodeValidation, "This organization already has a record for this item")
		}

		rec := models.InventoryRecord{
			OrganizationID: body.OrganizationID,
			ItemID:         body.ItemID,
			Quantity:       body.Quantity,
			MinThreshold:   body.MinThreshold,
			MaxCapacity:    body.MaxCapacity,
		}
		if err := db.Create(&rec).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not create inventory record")
		}

		db.Preload("Item").First(&rec, rec.ID)
		return httpx.OK(c, fiber.StatusCreated, "Inventory record created", toRecordResponse(&rec))
	}
}

// GET /api/inventory?organizationId=1
func ListRecordsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.InventoryRecord{}).Preload("Item")
		if orgID := c.QueryInt("organizationId", 0); orgID > 0 {
			q = q.Where("organization_id = ?", orgID)
		}

		var recs []models.InventoryRecord
		if err := q.Order("organization_id ASC, item_id ASC").Find(&recs).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not list inventory records")
		}

		resp := make([]RecordResponse, 0, len(recs))
		for i := range recs {
			resp = append(resp, toRecordResponse(&recs[i]))
		}
		return httpx.OK(c, fiber.StatusOK, "OK", resp)
	}
}

// POST /api/inventory/:id/adjust
// Direct stock correction outside the allocation workflow. Negative
// deltas use the same conditional guard as the approval decrement so the
// quantity can never be observed negative; positive deltas respect the
// optional capacity bound.
func AdjustStockHandler(db *gorm.DB, auditor *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid record id")
		}

		var body AdjustStockRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}
		if body.Delta == 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "delta must not be zero")
		}

		var before models.InventoryRecord
		if err := db.Preload("Item").First(&before, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Inventory record not found")
			}
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not load inventory record")
		}

		q := db.Model(&models.InventoryRecord{}).Where("id = ?", id)
		if body.Delta < 0 {
			q = q.Where("quantity >= ?", -body.Delta)
		} else {
			q = q.Where("max_capacity IS NULL OR quantity + ? <= max_capacity", body.Delta)
		}

		res := q.Update("quantity", gorm.Expr("quantity + ?", body.Delta))
		if res.Error != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not adjust stock")
		}
		if res.RowsAffected == 0 {
			if body.Delta < 0 {
				return httpx.NewError(fiber.StatusConflict, httpx.CodeInsufficientInventory, "Stock would go negative")
			}
			return httpx.NewError(fiber.StatusConflict, httpx.CodeValidation, "Stock would exceed maximum capacity")
		}

		var rec models.InventoryRecord
		db.Preload("Item").First(&rec, id)

		if userID, userName, _, err := auth.UserInfo(c); err == nil {
			_ = auditor.Record(audit.Entry{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "inventory_record",
				EntityID:    rec.ID,
				Action:      models.AuditActionAdjust,
				Description: fmt.Sprintf("Stock adjusted by %+d (%s)", body.Delta, body.Reason),
				Before:      before,
				After:       rec,
			})
		}

		return httpx.OK(c, fiber.StatusOK, "Stock adjusted", toRecordResponse(&rec))
	}
}
