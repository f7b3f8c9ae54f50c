package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/config"
	"github.com/yeremiapane/restobook/database"
	"github.com/yeremiapane/restobook/hub"
	"github.com/yeremiapane/restobook/router"
	"github.com/yeremiapane/restobook/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.SetLogLevel(cfg.LogLevel)
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}
	if err := database.SeedTags(db); err != nil {
		utils.ErrorLogger.Printf("Error seeding tags: %v", err)
	}
	if err := database.SeedStaff(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		utils.ErrorLogger.Printf("Error seeding staff account: %v", err)
	}

	events := hub.New()
	r := router.SetupRouter(db, cfg, events)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down server...")

	events.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	utils.InfoLogger.Println("Server exited")
}
