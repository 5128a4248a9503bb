package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"todoey/internal/snapshot"
)

const (
	BackendSQLite = "sqlite"
	BackendPlist  = "plist"
	BackendMemory = "memory"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend     string
	DatabaseURL string
	PlistPath   string
	RedisURL    string
	CacheTTL    time.Duration
}

// Store bundles the repositories of one backend.
type Store struct {
	Categories Categories
	Items      Items
	exporter   Exporter
	closers    []func() error
}

func (s *Store) Snapshot(ctx context.Context) (snapshot.Snapshot, error) {
	return s.exporter.Snapshot(ctx)
}

func (s *Store) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the configured backend and, when a Redis URL is set, puts the
// list cache in front of it.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	store := &Store{}

	switch opts.Backend {
	case "", BackendSQLite:
		db, err := NewDB(opts.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			store.closers = append(store.closers, sqlDB.Close)
		}
		store.Categories = NewCategoryRepository(db)
		store.Items = NewItemRepository(db)
		store.exporter = NewSQLExporter(db)
	case BackendPlist:
		mem, err := NewPlistStore(opts.PlistPath)
		if err != nil {
			return nil, err
		}
		store.Categories, store.Items, store.exporter = mem.Categories(), mem.Items(), mem
	case BackendMemory:
		mem := NewMemoryStore()
		store.Categories, store.Items, store.exporter = mem.Categories(), mem.Items(), mem
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}

	if opts.RedisURL != "" {
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		store.closers = append(store.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unavailable, cache reads will fall back to the store", zap.Error(err))
		}

		items := NewCachedItems(store.Items, client, opts.CacheTTL, log)
		store.Categories = NewCachedCategories(store.Categories, items, client, opts.CacheTTL, log)
		store.Items = items
	}

	log.Info("store opened",
		zap.String("backend", opts.Backend),
		zap.Bool("cache", opts.RedisURL != ""),
	)
	return store, nil
}
