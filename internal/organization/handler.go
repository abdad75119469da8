package organization

import (
	"errors"
	"strings"

	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type OrganizationRequest struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	ContactEmail       string `json:"contactEmail"`
	ContactPhone       string `json:"contactPhone"`
	Address            string `json:"address"`
	Active             *bool  `json:"active"`
}

type OrganizationResponse struct {
	ID                 uint   `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	ContactEmail       string `json:"contactEmail"`
	ContactPhone       string `json:"contactPhone"`
	Address            string `json:"address"`
	Active             bool   `json:"active"`
	CreatedAt          string `json:"createdAt"`
}

func toResponse(o *models.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:                 o.ID,
		Name:               o.Name,
		RegistrationNumber: o.RegistrationNumber,
		ContactEmail:       o.ContactEmail,
		ContactPhone:       o.ContactPhone,
		Address:            o.Address,
		Active:             o.Active,
		CreatedAt:          o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/organizations
func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OrganizationRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.RegistrationNumber = strings.TrimSpace(body.RegistrationNumber)
		if body.Name == "" || body.RegistrationNumber == "" {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "name and registrationNumber are required")
		}

		var count int64
		db.Model(&models.Organization{}).
			Where("registration_number = ?", body.RegistrationNumber).
			Count(&count)
		if count > 0 {
			return httpx.NewError(fiber.StatusConflict, httpx.CodeValidation, "An organization with this registration number already exists")
		}

		org := models.Organization{
			Name:               body.Name,
			RegistrationNumber: body.RegistrationNumber,
			ContactEmail:       body.ContactEmail,
			ContactPhone:       body.ContactPhone,
			Address:            body.Address,
			Active:             true,
		}
		if body.Active != nil {
			org.Active = *body.Active
		}

		if err := db.Create(&org).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not create organization")
		}

		return httpx.OK(c, fiber.StatusCreated, "Organization created", toResponse(&org))
	}
}

// GET /api/organizations
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Organization{})
		if c.Query("active") == "true" {
			q = q.Where("active = ?", true)
		}

		var orgs []models.Organization
		if err := q.Order("name ASC").Find(&orgs).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not list organizations")
		}

		resp := make([]OrganizationResponse, 0, len(orgs))
		for i := range orgs {
			resp = append(resp, toResponse(&orgs[i]))
		}
		return httpx.OK(c, fiber.StatusOK, "OK", resp)
	}
}

// GET /api/organizations/:id
func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid organization id")
		}

		var org models.Organization
		if err := db.First(&org, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Organization not found")
			}
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not load organization")
		}

		return httpx.OK(c, fiber.StatusOK, "OK", toResponse(&org))
	}
}

// PUT /api/organizations/:id
func UpdateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid organization id")
		}

		var org models.Organization
		if err := db.First(&org, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Organization not found")
			}
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not load organization")
		}

		var body OrganizationRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}

		if body.Name != "" {
			org.Name = strings.TrimSpace(body.Name)
		}
		if body.ContactEmail != "" {
			org.ContactEmail = body.ContactEmail
		}
		if body.ContactPhone != "" {
			org.ContactPhone = body.ContactPhone
		}
		if body.Address != "" {
			org.Address = body.Address
		}
		if body.Active != nil {
			org.Active = *body.Active
		}

		if err := db.Save(&org).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not update organization")
		}

		return httpx.OK(c, fiber.StatusOK, "Organization updated", toResponse(&org))
	}
}

// DELETE /api/organizations/:id
func DeleteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid organization id")
		}

		res := db.Delete(&models.Organization{}, id)
		if res.Error != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not delete organization")
		}
		if res.RowsAffected == 0 {
			return httpx.NewError(fiber.StatusNotFound, httpx.CodeNotFound, "Organization not found")
		}

		return httpx.OK(c, fiber.StatusOK, "Organization deleted", fiber.Map{"id": id})
	}
}
