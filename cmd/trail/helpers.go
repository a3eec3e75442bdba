package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/paper-trail/internal/cache"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/executor"
	"github.com/Veraticus/paper-trail/internal/intent"
	"github.com/Veraticus/paper-trail/internal/query"
	"github.com/Veraticus/paper-trail/internal/storage"
)

// initStorage opens the receipt database and applies migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/trail/trail.db"
	}
	dbPath = expandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("Couldn't open your receipt database at %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, common.NewUserError("Couldn't update your receipt database schema", err)
	}

	return store, nil
}

// initCache builds the result cache from configuration.
func initCache() *cache.ResultCache {
	cfg := cache.Config{
		TTL:           viper.GetDuration("cache.ttl"),
		MaxBytes:      viper.GetInt("cache.max_bytes"),
		SweepInterval: viper.GetDuration("cache.sweep_interval"),
	}
	return cache.New(cfg)
}

// initOrchestrator assembles the full query pipeline.
func initOrchestrator(store *storage.SQLiteStorage, resultCache *cache.ResultCache) *query.Orchestrator {
	timeout := viper.GetDuration("store.timeout")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return query.New(
		intent.New(nil),
		executor.New(store, timeout),
		resultCache,
	)
}

// expandPath expands ~ and environment variables in a file path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return os.ExpandEnv(path)
}
