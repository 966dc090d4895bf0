package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/obiora-dev/taskpay/internal/alerts"
	"github.com/obiora-dev/taskpay/internal/config"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/gateway"
	"github.com/obiora-dev/taskpay/internal/logger"
	"github.com/obiora-dev/taskpay/internal/marketplace"
	"github.com/obiora-dev/taskpay/internal/metrics"
	appmw "github.com/obiora-dev/taskpay/internal/middleware"
	"github.com/obiora-dev/taskpay/internal/wallet"
	"github.com/obiora-dev/taskpay/internal/webhook"
	"github.com/obiora-dev/taskpay/internal/withdrawal"
)

func main() {
	cfg := config.Load()
	slog := logger.New(cfg.Env)

	// Init subsystems
	db.Init(cfg.DatabaseURL)
	metrics.Init()
	alerts.Init(cfg.RedisAddr)
	defer alerts.Close()

	appmw.SetJWTSecret(cfg.JWTSecret)
	marketplace.FeeBps = cfg.PlatformFeeBps

	// Payment providers resolved once at startup
	registry := gateway.NewRegistry()
	if cfg.PaystackSecret != "" {
		registry.Register(gateway.NewPaystack(cfg.PaystackSecret))
	}
	if cfg.FlutterwaveSecret != "" {
		registry.Register(gateway.NewFlutterwave(cfg.FlutterwaveKey, cfg.FlutterwaveSecret))
	}
	registry.Register(gateway.NewMock(cfg.GatewayTestMode))
	wallet.Gateways = registry
	withdrawal.Gateways = registry
	webhook.Gateways = registry
	webhook.Policy = webhook.RetryPolicy{RetryTransient: cfg.WebhookRetryTransient}

	slog.Info("gateways registered", "providers", registry.Names())

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(appmw.Metrics)

	// Health and metrics
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/ready", func(c echo.Context) error {
		if err := db.Conn.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Gateway callbacks (authenticated by signature, not by JWT)
	e.POST("/webhooks/:gateway", webhook.Handle)

	// Public discovery
	e.GET("/marketplace/listings", marketplace.GetAllListings)

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	// Wallet
	g.GET("/wallet/balance", wallet.Balance)
	g.GET("/wallet/transactions", wallet.GetUserTransactions)
	g.POST("/wallet/deposits", wallet.DepositInit)

	// Listings
	g.POST("/marketplace/listings", marketplace.CreateListing, appmw.RequireRoles("seller"))
	g.GET("/marketplace/listings/me", marketplace.GetMyListings, appmw.RequireRoles("seller"))

	// Orders
	g.POST("/marketplace/orders", marketplace.CreateOrder)
	g.POST("/marketplace/orders/:id/accept", marketplace.AcceptOrder, appmw.RequireRoles("seller"))
	g.POST("/marketplace/orders/:id/deliver", marketplace.DeliverOrder, appmw.RequireRoles("seller"))
	g.POST("/marketplace/orders/:id/complete", marketplace.CompleteOrder)
	g.POST("/marketplace/orders/:id/dispute", marketplace.DisputeOrder)
	g.POST("/marketplace/orders/:id/cancel", marketplace.CancelOrder)
	g.GET("/marketplace/orders", marketplace.GetUserOrders)

	// Withdrawals
	g.POST("/wallet/withdrawals", withdrawal.RequestWithdrawal, appmw.RequireRoles("seller"))
	g.GET("/wallet/withdrawals", withdrawal.GetMyWithdrawals)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWTMiddleware)
	adminGroup.Use(appmw.AdminGuard)
	adminGroup.GET("/transactions", wallet.AdminGetAllTransactions)
	adminGroup.GET("/transactions/stuck", wallet.AdminListStuckTransactions)
	adminGroup.GET("/withdrawals", withdrawal.ListPending)
	adminGroup.POST("/withdrawals/:id/approve", withdrawal.Approve)
	adminGroup.POST("/withdrawals/:id/deny", withdrawal.Deny)
	adminGroup.POST("/withdrawals/:id/pay", withdrawal.MarkPaid)
	adminGroup.POST("/disputes/:id/resolve", marketplace.ResolveDispute)

	slog.Info("API server listening", "port", cfg.HTTPPort)
	if err := e.Start(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
