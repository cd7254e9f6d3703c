// Package mapping assigns point-of-sale store locations to administrative
// boundaries. Containment is decided in-process over the boundary polygons;
// stores outside every polygon fall back to the nearest boundary centroid.
package mapping

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scout-pos/geo-analytics/internal/geo"
	"github.com/scout-pos/geo-analytics/internal/model"
	"github.com/scout-pos/geo-analytics/internal/store"
)

// StoreMapper matches stores to boundaries and persists one mapping row
// per store.
type StoreMapper struct {
	store       store.Store
	log         *zap.Logger
	concurrency int
}

func NewStoreMapper(st store.Store, log *zap.Logger, concurrency int) *StoreMapper {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &StoreMapper{store: st, log: log, concurrency: concurrency}
}

type centroid struct {
	boundaryID int64
	lng, lat   float64
}

// MapStores matches every store with coordinates against the current
// boundary set and upserts the result. Stores without coordinates get no
// row. Matching runs concurrently; results are merged in store order so
// repeated runs over the same data persist identically.
func (m *StoreMapper) MapStores(ctx context.Context) (map[model.MatchType]int, error) {
	boundaries, err := m.store.ListBoundaries(ctx)
	if err != nil {
		return nil, model.Dependency(err, "mapping: list boundaries")
	}
	stores, err := m.store.ListStoreLocations(ctx)
	if err != nil {
		return nil, model.Dependency(err, "mapping: list stores")
	}

	// Centroids for the nearest fallback, in ascending boundary id order so
	// a distance tie resolves to the lowest id.
	centroids := make([]centroid, 0, len(boundaries))
	for _, b := range boundaries {
		if lng, lat, ok := geo.Centroid(b.Geometry); ok {
			centroids = append(centroids, centroid{boundaryID: b.ID, lng: lng, lat: lat})
		}
	}

	results := make([]model.StoreBoundaryMapping, len(stores))
	mapped := make([]bool, len(stores))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, st := range stores {
		if st.Latitude == nil || st.Longitude == nil {
			continue
		}
		i, st := i, st
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = m.matchOne(st, boundaries, centroids)
			mapped[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(map[model.MatchType]int)
	for i := range stores {
		if !mapped[i] {
			continue
		}
		if err := m.store.UpsertMapping(ctx, results[i]); err != nil {
			return nil, model.Dependency(err, "mapping: persist mapping")
		}
		counts[results[i].MatchType]++
	}

	m.log.Info("store mapping complete",
		zap.Int("stores", len(stores)),
		zap.Int("exact", counts[model.MatchExact]),
		zap.Int("nearest", counts[model.MatchNearest]),
		zap.Int("unmatched", counts[model.MatchUnmatched]),
	)
	return counts, nil
}

// matchOne picks the boundary for a single store. Boundaries arrive in
// ascending id order, so the first containment hit is the lowest-id match.
func (m *StoreMapper) matchOne(st model.StoreLocation, boundaries []model.Boundary, centroids []centroid) model.StoreBoundaryMapping {
	lng, lat := *st.Longitude, *st.Latitude

	for _, b := range boundaries {
		if geo.Contains(b.Geometry, lng, lat) {
			return model.StoreBoundaryMapping{StoreID: st.ID, BoundaryID: b.ID, MatchType: model.MatchExact}
		}
	}

	bestID := int64(0)
	bestDist := 0.0
	found := false
	for _, c := range centroids {
		d := geo.DistanceSq(lng, lat, c.lng, c.lat)
		if !found || d < bestDist {
			found = true
			bestID = c.boundaryID
			bestDist = d
		}
	}
	if !found {
		return model.StoreBoundaryMapping{StoreID: st.ID, MatchType: model.MatchUnmatched}
	}
	return model.StoreBoundaryMapping{StoreID: st.ID, BoundaryID: bestID, MatchType: model.MatchNearest}
}
