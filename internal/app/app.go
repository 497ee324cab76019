// Package app assembles the selection service from configuration. Both
// binaries build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-selection/internal/config"
	"github.com/mind-engage/mindengage-selection/internal/db"
	"github.com/mind-engage/mindengage-selection/internal/grading"
	"github.com/mind-engage/mindengage-selection/internal/records"
	"github.com/mind-engage/mindengage-selection/internal/selection"
	"github.com/mind-engage/mindengage-selection/internal/storage"
	syncx "github.com/mind-engage/mindengage-selection/internal/sync"
)

type App struct {
	DB      *sql.DB
	Store   records.Store
	Service *selection.Service
	Events  *syncx.EventRepo
	Blobs   *storage.FSStore
	Redis   *redis.Client

	log *zap.Logger
}

// Build opens the database, the record store and the blob store. Close
// releases them.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	rubric, err := grading.LoadRubricFile(cfg.RubricFile)
	if err != nil {
		return nil, err
	}

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a := &App{DB: dbh, Events: syncx.NewEventRepo(dbh), log: log}

	store, err := a.openStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = records.NewCached(store, a.Redis, cfg.CacheTTL, log)
	}
	a.Store = store

	if a.Blobs, err = storage.NewFSStore(cfg.BlobBasePath); err != nil {
		a.Close()
		return nil, fmt.Errorf("blob store: %w", err)
	}

	opts := []selection.Option{
		selection.WithCollections(selection.Collections{
			Applicants: cfg.ApplicantsCollection,
			Scores:     cfg.ScoresCollection,
			Tasks:      cfg.TasksCollection,
		}),
		selection.WithCutoff(cfg.SelectionCutoff),
		selection.WithEventLog(a.Events),
		selection.WithLogger(log),
	}
	if cfg.RecordsDriver != config.RecordsAirtable {
		// only Airtable computes the total columns as formulas
		opts = append(opts, selection.WithDerivedTotals())
	}
	a.Service = selection.NewService(store, rubric, opts...)
	return a, nil
}

func (a *App) openStore(cfg config.Config) (records.Store, error) {
	switch cfg.RecordsDriver {
	case config.RecordsAirtable:
		return records.NewAirtable(records.AirtableConfig{
			BaseURL: cfg.AirtableURL,
			BaseID:  cfg.AirtableBaseID,
			Token:   cfg.AirtableToken,
			Views:   cfg.Views(),
		})
	case config.RecordsSQL:
		return records.NewSQLStore(a.DB), nil
	case config.RecordsMemory:
		m := records.NewMemory()
		SeedDemo(m, cfg)
		a.log.Warn("using in-memory record store with demo data; nothing is persisted")
		return m, nil
	default:
		return nil, fmt.Errorf("unknown records driver %q", cfg.RecordsDriver)
	}
}

// Ping checks the database and, when configured, redis.
func (a *App) Ping(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
