package main

import (
	"context"
	"time"

	"github.com/lifeflow/lifeflow/config"
	"github.com/lifeflow/lifeflow/routes"
	"github.com/lifeflow/lifeflow/store"
	"github.com/lifeflow/lifeflow/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	db := config.InitDatabase()
	habitStore := store.NewHabitStore(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SeedPath != "" {
		seed, err := store.LoadSeed(cfg.SeedPath)
		if err != nil {
			utils.Sugar.Fatalf("load seed file: %v", err)
		}
		res, err := habitStore.Seed(ctx, seed, utils.HashPassword)
		if err != nil {
			utils.Sugar.Fatalf("apply seed: %v", err)
		}
		utils.Sugar.Infof("seed applied: user=%d created=%v habits=%d", res.UserID, res.UserCreated, res.Habits)
	}

	r := routes.SetupRouter(db)

	// Zero-count logs are equivalent to missing rows; prune old ones (best-effort)
	utils.StartLogCompactor(ctx, habitStore, time.Duration(cfg.CompactIntervalMinutes)*time.Minute, cfg.CompactRetentionDays)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(ctx, ":"+cfg.AppPort, r, cancel); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
