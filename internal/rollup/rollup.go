// Package rollup materializes daily per-boundary metrics from raw
// transactions and the current store-to-boundary mapping. Every recompute
// rebuilds the whole table; the rollup is stale between refreshes.
package rollup

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/model"
	"github.com/scout-pos/geo-analytics/internal/store"
)

// MetricAggregator is the only writer of the daily rollup.
type MetricAggregator struct {
	store store.Store
	log   *zap.Logger
}

func NewMetricAggregator(st store.Store, log *zap.Logger) *MetricAggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &MetricAggregator{store: st, log: log}
}

type rollupKey struct {
	date       string
	boundaryID int64
}

// Recompute rebuilds the daily rollup from scratch. Transactions from
// unmatched or unmapped stores are excluded rather than zero-filled. The
// replace is one storage transaction. Returns the number of rollup rows
// written.
func (a *MetricAggregator) Recompute(ctx context.Context) (int, error) {
	mappings, err := a.store.ListMappings(ctx)
	if err != nil {
		return 0, model.Dependency(err, "rollup: list mappings")
	}
	boundaries, err := a.store.ListBoundaries(ctx)
	if err != nil {
		return 0, model.Dependency(err, "rollup: list boundaries")
	}
	txns, err := a.store.ListTransactions(ctx)
	if err != nil {
		return 0, model.Dependency(err, "rollup: list transactions")
	}

	storeToBoundary := make(map[int64]int64, len(mappings))
	for _, m := range mappings {
		if m.MatchType == model.MatchUnmatched {
			continue
		}
		storeToBoundary[m.StoreID] = m.BoundaryID
	}
	boundaryByID := make(map[int64]model.Boundary, len(boundaries))
	for _, b := range boundaries {
		boundaryByID[b.ID] = b
	}

	acc := make(map[rollupKey]*model.DailyBoundaryMetric)
	var skipped int
	for _, t := range txns {
		boundaryID, ok := storeToBoundary[t.StoreID]
		if !ok {
			skipped++
			continue
		}
		b, ok := boundaryByID[boundaryID]
		if !ok {
			// Mapping points at a boundary id from a previous ingest run.
			skipped++
			continue
		}
		key := rollupKey{date: t.Date, boundaryID: boundaryID}
		m := acc[key]
		if m == nil {
			m = &model.DailyBoundaryMetric{
				Date:            t.Date,
				BoundaryID:      boundaryID,
				RegionCode:      b.RegionCode,
				RegionName:      b.RegionName,
				ProvinceName:    b.ProvinceName,
				UniqueCustomers: model.NewCustomerSet(),
			}
			acc[key] = m
		}
		m.TotalSales += t.Amount
		m.TransactionCount++
		m.UniqueCustomers.Add(t.CustomerID)
	}

	rows := make([]model.DailyBoundaryMetric, 0, len(acc))
	for _, m := range acc {
		rows = append(rows, *m)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].BoundaryID < rows[j].BoundaryID
	})

	if err := a.store.ReplaceRollup(ctx, rows); err != nil {
		return 0, model.Dependency(err, "rollup: replace")
	}

	a.log.Info("rollup recomputed",
		zap.Int("rows", len(rows)),
		zap.Int("transactions", len(txns)),
		zap.Int("excluded_transactions", skipped),
	)
	return len(rows), nil
}
