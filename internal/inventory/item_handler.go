package inventory

import (
	"strings"

	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

type ItemResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// POST /api/items
func CreateItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ItemRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" || body.Unit == "" {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "name and unit are required")
		}

		item := models.InventoryItem{Name: body.Name, Category: body.Category, Unit: body.Unit}
		if err := db.Create(&item).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not create item")
		}

		return httpx.OK(c, fiber.StatusCreated, "Item created", ItemResponse{
			ID: item.ID, Name: item.Name, Category: item.Category, Unit: item.Unit,
		})
	}
}

// GET /api/items?category=medical
func ListItemsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.InventoryItem{})
		if category := c.Query("category"); category != "" {
			q = q.Where("category = ?", category)
		}

		var items []models.InventoryItem
		if err := q.Order("name ASC").Find(&items).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not list items")
		}

		resp := make([]ItemResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, ItemResponse{ID: it.ID, Name: it.Name, Category: it.Category, Unit: it.Unit})
		}
		return httpx.OK(c, fiber.StatusOK, "OK", resp)
	}
}
