package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/http/handlers"
	"github.com/landsale/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Sale       *handlers.SaleHandler
	Collection *handlers.CollectionHandler
	Factory    *handlers.FactoryHandler
	Role       *handlers.RoleHandler
	Balance    *handlers.BalanceHandler
	Audit      *handlers.AuditHandler
	WS         *handlers.WSHub
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Rate-limited public endpoints
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))
	}

	// Auth (public)
	api.Post("/auth/challenge", h.Auth.Challenge)
	api.Post("/auth/login", h.Auth.Login)

	// Reads (public)
	api.Get("/factory", h.Factory.GetFactory)
	api.Get("/sales/:sale", h.Sale.GetSale)
	api.Get("/sales/:sale/listings", h.Sale.ListListings)
	api.Get("/sales/:sale/listings/:id", h.Sale.GetListing)
	api.Get("/collections/:c", h.Collection.GetCollection)
	api.Get("/collections/:c/owners/:owner", h.Collection.BalanceOf)
	api.Get("/collections/:c/schedules/:type", h.Collection.GetSchedule)
	api.Get("/collections/:c/tokens/:id", h.Collection.GetToken)
	api.Get("/collections/:c/tokens/:id/installments", h.Collection.GetPlan)
	api.Get("/collections/:c/tokens/:id/installments/paid", h.Collection.IsFullyPaid)
	api.Get("/collections/:c/tokens/:id/installments/:index/quote", h.Collection.Quote)
	api.Get("/roles/:scope/:role/:account", h.Role.HasRole)
	api.Get("/balances/:scope/:account", h.Balance.GetBalance)
	api.Get("/audit/:entity/*", h.Audit.GetEntityLog)

	// Protected endpoints: caller = wallet from JWT
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Sales
	protected.Post("/sales/:sale/buy", h.Sale.Buy)
	protected.Post("/sales/:sale/listings", h.Sale.AddListing)
	protected.Put("/sales/:sale/listings/:id/price", h.Sale.UpdatePrice)
	protected.Put("/sales/:sale/listings/:id/limit", h.Sale.UpdateUnitLimit)
	protected.Post("/sales/:sale/blacklist", h.Sale.AddBlacklist)
	protected.Delete("/sales/:sale/blacklist", h.Sale.RemoveBlacklist)
	protected.Put("/sales/:sale/expiry", h.Sale.UpdateExpiry)

	// Installments
	protected.Put("/collections/:c/schedules/:type", h.Collection.UpdateSchedule)
	protected.Post("/collections/:c/tokens/:id/installments/:index/pay", h.Collection.PayInstallment)

	// Factory
	protected.Post("/factory/instances", h.Factory.CreateInstance)
	protected.Post("/factory/collections", h.Factory.CreateCollection)
	protected.Post("/factory/sales", h.Factory.CreateSale)
	protected.Put("/factory/fee", h.Factory.UpdateFee)

	// Roles and balances
	protected.Post("/roles/:scope/grant", h.Role.Grant)
	protected.Post("/roles/:scope/revoke", h.Role.Revoke)
	protected.Post("/balances/:scope/withdraw", h.Balance.Withdraw)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WS.HandleWS))
}
