// Package store persists boundaries, store locations, raw transactions, the
// store-to-boundary mapping, and the materialized daily rollup. Two backends
// are provided: Postgres over pgx for deployments, SQLite via modernc for
// single-binary use and tests. Geometry and raw properties are stored as
// JSON text so both backends share one schema shape.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/scout-pos/geo-analytics/internal/config"
	"github.com/scout-pos/geo-analytics/internal/model"
)

// RollupStats summarizes the materialized rollup for refresh reporting.
type RollupStats struct {
	ActiveRegions int `json:"active_regions"`
	TotalRecords  int `json:"total_records"`
}

// Store defines the persistence interface for the analytics pipeline.
//
// ReplaceBoundaries and ReplaceRollup each execute inside a single storage
// transaction: readers observe either the previous complete set or the new
// complete set, never a partial one.
type Store interface {
	// Boundaries. BoundaryStore owns geometry; ingestion is a full replace
	// and IDs are assigned in insert order.
	ReplaceBoundaries(ctx context.Context, boundaries []model.Boundary, batchSize int) error
	ListBoundaries(ctx context.Context) ([]model.Boundary, error)

	// Point-of-sale source data.
	ListStoreLocations(ctx context.Context) ([]model.StoreLocation, error)
	UpsertStoreLocations(ctx context.Context, stores []model.StoreLocation) (int64, error)
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	InsertTransactions(ctx context.Context, txns []model.Transaction) (int64, error)

	// Store-to-boundary mapping; at most one row per store, latest wins.
	UpsertMapping(ctx context.Context, m model.StoreBoundaryMapping) error
	ListMappings(ctx context.Context) ([]model.StoreBoundaryMapping, error)
	MappingCounts(ctx context.Context) (map[model.MatchType]int, error)

	// Materialized rollup; MetricAggregator is the only writer.
	ReplaceRollup(ctx context.Context, rows []model.DailyBoundaryMetric) error
	ListRollupRange(ctx context.Context, r model.DateRange) ([]model.DailyBoundaryMetric, error)
	RollupStats(ctx context.Context) (RollupStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres", "":
		return NewPostgres(ctx, cfg.DatabaseURL, cfg.Pool)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
