package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/db"
	"github.com/landsale/backend/internal/events"
	apphttp "github.com/landsale/backend/internal/http"
	"github.com/landsale/backend/internal/http/handlers"
	"github.com/landsale/backend/internal/repositories"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, "landsale-api", log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Storage and events
	ledgerStore := repositories.NewStore(pool, log)
	auditRepo := repositories.NewAuditRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	ledger := services.NewLedger(ledgerStore, publisher, log)
	factoryService := services.NewFactoryService(ledger, cfg, log)
	saleService := services.NewSaleService(ledger, cfg, log)
	installmentService := services.NewInstallmentService(ledger, cfg, log)
	collectionService := services.NewCollectionService(ledger, log)
	roleService := services.NewRoleService(ledger, log)
	balanceService := services.NewBalanceService(ledger, log)
	authService := services.NewAuthService(services.NewRedisNonceStore(rdb), cfg, log)

	// Factory bootstrap: владелец получает DEFAULT_ADMIN
	if cfg.FactoryOwner != (common.Address{}) {
		f, err := factoryService.EnsureFactory(ctx, cfg.FactoryOwner, cfg.FactoryFee)
		if err != nil {
			log.Fatal("failed to bootstrap factory", zap.Error(err))
		}
		log.Info("factory ready", zap.String("address", f.Address.Hex()), zap.String("owner", f.Owner.Hex()))
	}

	wsHub := handlers.NewWSHub(cfg, subscriber, log)
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, apphttp.Handlers{
		Auth:       handlers.NewAuthHandler(authService, log),
		Sale:       handlers.NewSaleHandler(saleService, log),
		Collection: handlers.NewCollectionHandler(collectionService, installmentService, log),
		Factory:    handlers.NewFactoryHandler(factoryService, cfg, log),
		Role:       handlers.NewRoleHandler(roleService, log),
		Balance:    handlers.NewBalanceHandler(balanceService, log),
		Audit:      handlers.NewAuditHandler(auditRepo, log),
		WS:         wsHub,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
