package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"farmfresh/config"
	_ "farmfresh/docs"
	"farmfresh/inventory"
	"farmfresh/middleware"
	"farmfresh/routes"
)

// @title FarmFresh API
// @version 1.0
// @description Grocery storefront API with stock reservation
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	config.ConnectDB()
	defer config.CloseDB()

	config.InitRedis()

	store := inventory.NewPostgresStore(config.DB)
	coord := inventory.NewCoordinator(store,
		inventory.WithTxTimeout(cfg.TxTimeout),
		inventory.WithMaxAttempts(cfg.TxMaxRetries),
	)
	committer := inventory.NewCommitter(coord)
	reclaimer := inventory.NewReclaimer(store, coord, cfg.CartTTL, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reclaimer.Sweep(ctx)
			}
		}
	}()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	routes.SetupRoutes(router, store, coord, committer)

	logrus.WithField("port", cfg.Port).Info("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
