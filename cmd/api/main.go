package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-engine/internal/api"
	"meal-engine/internal/api/handlers/health"
	"meal-engine/internal/core/nutrition"
	"meal-engine/internal/core/session"
	"meal-engine/internal/core/swap"
	"meal-engine/internal/infrastructure/config"
	"meal-engine/internal/infrastructure/storage"
	"meal-engine/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（.env 可省略）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("session_backend", cfg.Session.Backend),
		zap.Bool("nutrition_enabled", cfg.Nutrition.Enabled),
		zap.String("nutrition_api_key", config.MaskAPIKey(cfg.Nutrition.APIKey)),
		zap.Bool("storage_enabled", cfg.Storage.Enabled),
	)

	// 會話儲存
	store, err := session.NewStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize session store", zap.Error(err))
	}
	defer store.Close()

	// 替換目錄
	catalog, err := swap.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		common.LogFatal("Failed to load swap catalog", zap.Error(err))
	}

	deps := api.Dependencies{
		Store:   store,
		Planner: swap.NewPlanner(catalog),
		Checks:  map[string]health.Pinger{},
	}

	// 營養計算服務（可選）
	if client := nutrition.NewClient(&cfg.Nutrition); client.Enabled() {
		deps.Calculator = client
	}

	// 確認紀錄（可選）
	if cfg.Storage.Enabled {
		history, err := storage.NewSQLiteStorage(cfg.Storage.Path)
		if err != nil {
			common.LogFatal("Failed to open confirmation history", zap.Error(err))
		}
		defer history.Close()
		deps.History = history
		deps.Checks["history"] = history
	}

	router := api.SetupRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
