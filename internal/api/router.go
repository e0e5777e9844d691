package api

import (
	"context"
	"time"

	"meal-engine/internal/api/handlers"
	"meal-engine/internal/api/handlers/confirmation"
	"meal-engine/internal/api/handlers/health"
	"meal-engine/internal/api/handlers/swaps"
	"meal-engine/internal/api/middleware"
	"meal-engine/internal/core/session"
	"meal-engine/internal/core/swap"
	"meal-engine/internal/infrastructure/config"
	"meal-engine/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 單一請求的處理時限（含營養計算外呼）
const timeoutDuration = 30 * time.Second

// Dependencies 路由需要的服務；Calculator 與 History 可為 nil
type Dependencies struct {
	Store      session.Store
	Planner    *swap.Planner
	Calculator confirmation.Calculator
	History    confirmation.History
	// Checks 額外的就緒檢查（會話儲存自動加入）
	Checks map[string]health.Pinger
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.Server.MaxBodyBytes > 0 {
		router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(requestTimeout(timeoutDuration))

	checks := map[string]health.Pinger{"sessions": deps.Store}
	for name, p := range deps.Checks {
		checks[name] = p
	}
	health.NewHandler(cfg.App.Version, checks).Register(router)

	planner := deps.Planner
	if planner == nil {
		planner = swap.NewPlanner(nil)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Deduplication(cfg.DedupWindow))
	{
		confirmation.NewHandler(deps.Store, deps.Calculator, deps.History).
			Register(api.Group("/confirmations"))
		swaps.NewHandler(planner).Register(api.Group("/swaps"))
	}

	router.NoRoute(func(c *gin.Context) {
		handlers.WriteError(c, common.ErrNotFound)
	})

	common.LogInfo("Router setup completed successfully",
		zap.String("session_backend", cfg.Session.Backend),
		zap.Bool("nutrition_enabled", deps.Calculator != nil),
		zap.Bool("history_enabled", deps.History != nil),
		zap.Strings("swap_categories", planner.Catalog().IDs()),
		zap.Duration("timeout", timeoutDuration),
	)

	return router
}

// requestTimeout 為請求設定時限，超時以 504 回應
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", handlers.RequestID(c)),
				zap.Duration("timeout", d),
			)
			c.AbortWithStatusJSON(common.ErrGatewayTimeout.Status, common.ErrorResponse{
				Code:    common.ErrGatewayTimeout.Code,
				Message: common.ErrGatewayTimeout.Message,
				Details: gin.H{"timeout": d.String()},
			})
		}
	}
}
