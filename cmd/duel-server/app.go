package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/api"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/config"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/events"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/storage"
	"gorm.io/gorm"
)

func loadCatalogOrExit(path string) *game.Catalog {
	catalog, err := config.LoadCatalog(path)
	if err != nil {
		logging.Fatal("Missing or invalid item catalog", err, logging.Fields{"catalog_path": path, "hint": "create a YAML file with an 'items' list (id,name,type,...) or point DUEL_CATALOG at one"})
	}
	return catalog
}

func openDatabaseOrExit(driver, dsn string) *gorm.DB {
	// sqlite file databases live in a directory that may not exist yet
	if driver == storage.DriverSQLite && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			logging.Fatal("Failed to create database directory", err, logging.Fields{"dsn": dsn})
		}
	}
	db, err := storage.OpenAndMigrate(driver, dsn)
	if err != nil {
		logging.Fatal("Failed to initialize database", err, logging.Fields{"driver": driver})
	}
	return db
}

// buildPublisher logs every event and, when a Redis address is configured,
// also publishes it to the session's channel. The redis publisher is
// returned separately so its snapshots can be served; it is nil without
// redis.
func buildPublisher(ctx context.Context, cfg *config.Server) (events.Publisher, *events.RedisPublisher) {
	pubs := events.Fanout{events.LogPublisher{}}
	if cfg.RedisAddr == "" {
		return pubs, nil
	}
	client, err := events.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logging.Fatal("Failed to connect to redis", err, logging.Fields{constants.LogFieldAddr: cfg.RedisAddr})
	}
	logging.Info("Publishing duel events to redis", logging.Fields{constants.LogFieldAddr: cfg.RedisAddr})
	rp := events.NewRedisPublisher(client, cfg.SnapshotTTL)
	return append(pubs, rp), rp
}

// snapshotSource avoids handing a nil *RedisPublisher to the API as a
// non-nil interface.
func snapshotSource(rp *events.RedisPublisher) api.Snapshots {
	if rp == nil {
		return nil
	}
	return rp
}
