package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/api"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/config"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/ledger"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/service"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/storage"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Missing or invalid configuration", err, logging.Fields{"hint": "set DUEL_JWT_SECRET and check the DUEL_* variables"})
	}
	catalog := loadCatalogOrExit(cfg.CatalogPath)
	db := openDatabaseOrExit(cfg.DBDriver, cfg.DBDSN)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := storage.NewRepository(db)
	inv := ledger.New(db, catalog, cfg.BaseBackpackSlots)
	pub, redisPub := buildPublisher(ctx, cfg)
	mgr := service.NewManager(ctx, repo, inv, pub, cfg.Settings())

	if n, err := mgr.SweepOrphans(ctx, 0); err != nil {
		logging.Error("startup orphan sweep failed", err, nil)
	} else if n > 0 {
		logging.Warn("released duels left by a previous run", logging.Fields{"swept": n})
	}

	handler := api.NewHandler(mgr, inv, repo, cfg.HealthMax).WithHistory(repo, snapshotSource(redisPub))
	router := api.NewRouter(handler, []byte(cfg.JWTSecret))

	logging.Info("Starting duel server", logging.Fields{"version": version.Version, "commit": version.Commit, "items": catalog.Len()})
	if err := run(ctx, cfg, router, mgr); err != nil {
		logging.Fatal("Server stopped with error", err, nil)
	}
	logging.Info("Server stopped", nil)
}
