package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/logging"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/repositories"
	"storefront/internal/seed"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	// --- Database ---
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	// --- RabbitMQ (optional) ---
	var publisher events.Publisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			logger.Warn("rabbitmq unavailable, order events disabled", "error", err)
		} else {
			defer mqClient.Close()
			publisher = mqClient

			go func() {
				if err := mqClient.Consume(ctx, events.LogHandler(ctx)); err != nil {
					logger.Error("order event consumer stopped", "error", err)
				}
			}()
		}
	}

	app, err := buildApp(ctx, cfg, db, publisher, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	// --- Start HTTP Server ---
	go func() {
		logger.Info("starting server", "addr", cfg.AppPort)
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server gracefully stopped")
}

// buildApp wires repositories, services and handlers onto a new Fiber app.
// A nil publisher disables order events.
func buildApp(ctx context.Context, cfg *config.Config, db *gorm.DB, publisher events.Publisher, logger *slog.Logger) (*fiber.App, error) {
	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	voucherRepo := repositories.NewGORMVoucherRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	// --- Services ---
	var gateway services.PaymentGateway
	if cfg.VNPay.Enabled() {
		gateway = payment.NewVNPay(payment.VNPayConfig{
			TmnCode:    cfg.VNPay.TmnCode,
			HashSecret: cfg.VNPay.HashSecret,
			PayURL:     cfg.VNPay.PayURL,
			ReturnURL:  cfg.VNPay.ReturnURL,
		})
	} else {
		logger.Warn("vnpay is not configured, online payment disabled")
	}
	notifier := events.NewNotifier(publisher)

	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	productService := services.NewProductService(productRepo)
	voucherService := services.NewVoucherService(voucherRepo)
	checkoutService := services.NewCheckoutService(orderRepo, productRepo, voucherService, gateway, notifier)
	orderService := services.NewOrderService(orderRepo, notifier)

	if cfg.SeedDemoData {
		if err := seed.Demo(ctx, productRepo, voucherRepo, authService); err != nil {
			return nil, err
		}
	}

	// --- Fiber App ---
	app := fiber.New(fiber.Config{AppName: "storefront"})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))

	auth := middleware.AuthRequired(authService)
	ping := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	handlers.NewHealthHandler(ping, publisher != nil).RegisterRoutes(app)
	handlers.NewAuthHandler(authService).RegisterRoutes(app.Group("/api/v1"))
	handlers.NewProductHandler(productService).RegisterRoutes(app, auth)
	handlers.NewVoucherHandler(voucherService).RegisterRoutes(app, auth)
	handlers.NewCheckoutHandler(checkoutService).RegisterRoutes(app, auth)
	handlers.NewOrderHandler(orderService).RegisterRoutes(app, auth)

	return app, nil
}
