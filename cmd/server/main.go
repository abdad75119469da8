package main

import (
	"log"
	"strings"

	"relief-backend/internal/allocation"
	"relief-backend/internal/audit"
	"relief-backend/internal/auth"
	"relief-backend/internal/cache"
	"relief-backend/internal/config"
	"relief-backend/internal/database"
	"relief-backend/internal/httpx"
	"relief-backend/internal/inventory"
	"relief-backend/internal/models"
	"relief-backend/internal/organization"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg)
	store := cache.Connect(cfg)

	engine := allocation.NewEngine(db)
	auditor := audit.NewService(db)

	app := fiber.New(fiber.Config{
		ErrorHandler: httpx.ErrorHandler(cfg.IsDevelopment()),
	})

	app.Use(logger.New())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public
	api.Get("/health", func(c *fiber.Ctx) error {
		return httpx.OK(c, fiber.StatusOK, "OK", fiber.Map{"status": "up"})
	})
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg, db))
	api.Post("/auth/login", auth.SkipIfAuthenticated(cfg), auth.LoginHandler(cfg, db))

	// Protected
	protected := api.Group("")
	protected.Use(auth.Gate(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Allocations: create and read are open to any authenticated
	// identity, transitions need a coordinator, deletion an admin.
	protected.Get("/allocations", allocation.ListHandler(engine, store))
	protected.Get("/allocations/:id", allocation.GetHandler(engine, store))
	protected.Post("/allocations", allocation.CreateHandler(engine, store, auditor))
	protected.Put("/allocations/:id",
		auth.RequireRole(models.RoleAdmin, models.RoleCoordinator),
		allocation.TransitionHandler(engine, store, auditor))
	protected.Delete("/allocations/:id",
		auth.RequireRole(models.RoleAdmin),
		allocation.DeleteHandler(engine, store, auditor))

	// Organizations
	protected.Get("/organizations", organization.ListHandler(db))
	protected.Get("/organizations/:id", organization.GetHandler(db))
	adminOrgs := protected.Group("/organizations", auth.RequireRole(models.RoleAdmin))
	adminOrgs.Post("", organization.CreateHandler(db))
	adminOrgs.Put("/:id", organization.UpdateHandler(db))
	adminOrgs.Delete("/:id", organization.DeleteHandler(db))

	// Item catalog
	protected.Get("/items", inventory.ListItemsHandler(db))
	protected.Post("/items", auth.RequireRole(models.RoleAdmin), inventory.CreateItemHandler(db))

	// Inventory records
	protected.Get("/inventory", inventory.ListRecordsHandler(db))
	protected.Post("/inventory",
		auth.RequireRole(models.RoleAdmin, models.RoleCoordinator),
		inventory.CreateRecordHandler(db))
	protected.Post("/inventory/:id/adjust",
		auth.RequireRole(models.RoleAdmin, models.RoleCoordinator),
		inventory.AdjustStockHandler(db, auditor))

	// Audit trail
	protected.Get("/audit-logs", auth.RequireRole(models.RoleAdmin), audit.ListAuditLogsHandler(db))

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
