package router

import (
	"time"

	"restock/internal/config"
	"restock/internal/handler"
	"restock/internal/infra"
	"restock/internal/middleware"
	"restock/internal/repository"
	"restock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// The sync service is built in main (the cron schedule and the one-shot
// runner need it too) and injected here.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, breaker *infra.CircuitBreaker, courier *infra.POCourier, syncSvc service.SyncService) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	inventoryRepo := repository.NewInventoryRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(cfg)
	inventorySvc := service.NewInventoryService(inventoryRepo)
	vendorSvc := service.NewVendorService(vendorRepo)
	poSvc := service.NewPurchaseOrderService(poRepo, inventoryRepo, vendorRepo, courier)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	syncH := handler.NewSyncHandler(syncSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	vendorsH := handler.NewVendorsHandler(vendorSvc)
	poH := handler.NewPurchaseOrdersHandler(poSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, breaker))
	r.POST("/v1/auth/login", middleware.LoginRateLimiter(), authH.Login)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		sync := v1.Group("/sync")
		{
			sync.POST("", syncH.Trigger)
			sync.GET("/logs", syncH.History)
		}

		inv := v1.Group("/inventory")
		{
			inv.GET("", inventoryH.List)
			inv.GET("/:sku", inventoryH.Get)
		}

		po := v1.Group("/purchase-orders")
		{
			po.GET("/suggestions", poH.Suggestions)
			po.POST("", poH.Create)
			po.GET("", poH.List)
			po.GET("/:id", poH.Get)
			po.GET("/:id/audit", poH.Audit)
			po.POST("/:id/submit", poH.Submit)
			po.POST("/:id/approve", poH.Approve)
			po.POST("/:id/reject", poH.Reject)
			po.POST("/:id/send", poH.Send)
			po.POST("/:id/cancel", poH.Cancel)
			po.POST("/:id/receive", poH.Receive)
		}

		vendors := v1.Group("/vendors")
		{
			vendors.GET("", vendorsH.List)
			vendors.GET("/:id", vendorsH.Get)
			vendors.PUT("", vendorsH.Upsert)
			vendors.DELETE("/:id", vendorsH.Deactivate)
		}
	}

	return r
}
