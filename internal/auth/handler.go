package auth

import (
	"strings"

	"relief-backend/internal/config"
	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterAdminHandler bootstraps the first admin account. It refuses
// to create a second one.
func RegisterAdminHandler(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Email == "" || body.Password == "" || body.Name == "" {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Name, email and password are required")
		}

		var count int64
		db.Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).
			Count(&count)
		if count > 0 {
			return httpx.NewError(fiber.StatusForbidden, httpx.CodeInsufficientPermissions, "An admin account already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		}

		if err := db.Create(&user).Error; err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not create user")
		}

		return httpx.OK(c, fiber.StatusCreated, "Admin account created", fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

func LoginHandler(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return httpx.NewError(fiber.StatusBadRequest, httpx.CodeValidation, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := db.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return httpx.NewError(fiber.StatusUnauthorized, httpx.CodeInvalidCredential, "Wrong email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return httpx.NewError(fiber.StatusUnauthorized, httpx.CodeInvalidCredential, "Wrong email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.TokenTTL, &user)
		if err != nil {
			return httpx.NewError(fiber.StatusInternalServerError, httpx.CodePersistence, "Could not issue token")
		}

		c.Cookie(&fiber.Cookie{
			Name:     TokenCookie,
			Value:    token,
			MaxAge:   int(cfg.TokenTTL.Seconds()),
			HTTPOnly: true,
		})

		return httpx.OK(c, fiber.StatusOK, "Login successful", fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, email, role, err := UserInfo(c)
		if err != nil {
			return httpx.NewError(fiber.StatusUnauthorized, httpx.CodeAuthenticationRequired, "Authentication required")
		}

		var user models.User
		if err := db.First(&user, userID).Error; err == nil {
			return httpx.OK(c, fiber.StatusOK, "OK", fiber.Map{
				"user_id":         user.ID,
				"name":            user.Name,
				"email":           user.Email,
				"role":            user.Role,
				"organization_id": user.OrganizationID,
			})
		}

		// Fall back to the verified claims if the row is gone.
		return httpx.OK(c, fiber.StatusOK, "OK", fiber.Map{
			"user_id": userID,
			"email":   email,
			"role":    role,
		})
	}
}
