package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/scout-pos/geo-analytics/internal/config"
	"github.com/scout-pos/geo-analytics/internal/model"
)

func configStore(driver string) config.StoreConfig {
	return config.StoreConfig{Driver: driver}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func testBoundary(regionCode, regionName string) model.Boundary {
	poly := geom.NewPolygonFlat(geom.XY, []float64{
		120, 10, 121, 10, 121, 11, 120, 11, 120, 10,
	}, []int{10}).SetSRID(4326)
	return model.Boundary{
		RegionCode:   regionCode,
		RegionName:   regionName,
		ProvinceCode: "PH-" + regionCode,
		ProvinceName: regionName + " Province",
		Geometry:     poly,
		Properties: map[string]model.PropValue{
			"NAME_1": model.StringProp(regionName),
		},
	}
}

func TestNewSQLite_InvalidDSN(t *testing.T) {
	_, err := NewSQLite("/nonexistent/dir/subdir/test.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestSQLite_ReplaceBoundaries_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	in := []model.Boundary{
		testBoundary("NCR", "Metro Manila"),
		testBoundary("III", "Central Luzon"),
		testBoundary("IV-A", "CALABARZON"),
	}
	require.NoError(t, s.ReplaceBoundaries(ctx, in, 2))

	out, err := s.ListBoundaries(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// IDs are assigned in insert order.
	assert.Less(t, out[0].ID, out[1].ID)
	assert.Less(t, out[1].ID, out[2].ID)
	assert.Equal(t, "NCR", out[0].RegionCode)
	assert.Equal(t, "IV-A", out[2].RegionCode)

	// Geometry and properties survive the JSON round trip.
	require.NotNil(t, out[0].Geometry)
	poly, ok := out[0].Geometry.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, []float64{120, 10}, poly.FlatCoords()[:2])
	assert.Equal(t, model.StringProp("Metro Manila"), out[0].Properties["NAME_1"])
}

func TestSQLite_ReplaceBoundaries_Replaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceBoundaries(ctx, []model.Boundary{
		testBoundary("NCR", "Metro Manila"),
		testBoundary("III", "Central Luzon"),
	}, 0))
	require.NoError(t, s.ReplaceBoundaries(ctx, []model.Boundary{
		testBoundary("V", "Bicol"),
	}, 0))

	out, err := s.ListBoundaries(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "V", out[0].RegionCode)
}

func TestSQLite_ReplaceBoundaries_FailureKeepsOldSet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceBoundaries(ctx, []model.Boundary{
		testBoundary("NCR", "Metro Manila"),
		testBoundary("III", "Central Luzon"),
	}, 0))

	// A NaN coordinate cannot be encoded as GeoJSON, so the second batch
	// fails after the delete and first insert have already run.
	bad := testBoundary("V", "Bicol")
	bad.Geometry = geom.NewPolygonFlat(geom.XY, []float64{
		math.NaN(), 10, 121, 10, 121, 11, math.NaN(), 10,
	}, []int{8}).SetSRID(4326)

	err := s.ReplaceBoundaries(ctx, []model.Boundary{
		testBoundary("XI", "Davao"),
		bad,
	}, 1)
	require.Error(t, err)

	out, err := s.ListBoundaries(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "NCR", out[0].RegionCode)
	assert.Equal(t, "III", out[1].RegionCode)
}

func TestSQLite_StoreLocations_Upsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	lat, lng := 14.5995, 120.9842
	n, err := s.UpsertStoreLocations(ctx, []model.StoreLocation{
		{ID: 1, Name: "Sari-sari A", Latitude: &lat, Longitude: &lng},
		{ID: 2, Name: "No coords"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Upsert again with a new name: latest wins, no duplicate row.
	_, err = s.UpsertStoreLocations(ctx, []model.StoreLocation{
		{ID: 1, Name: "Sari-sari A renamed", Latitude: &lat, Longitude: &lng},
	})
	require.NoError(t, err)

	out, err := s.ListStoreLocations(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Sari-sari A renamed", out[0].Name)
	require.NotNil(t, out[0].Latitude)
	assert.InDelta(t, 14.5995, *out[0].Latitude, 1e-9)
	assert.Nil(t, out[1].Latitude)
}

func TestSQLite_Transactions_InsertList(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.InsertTransactions(ctx, []model.Transaction{
		{ID: 10, StoreID: 1, CustomerID: "c-1", Amount: 150.50, Date: "2025-06-01"},
		{ID: 11, StoreID: 2, CustomerID: "c-2", Amount: 99.00, Date: "2025-06-02"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	out, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c-1", out[0].CustomerID)
	assert.Equal(t, "2025-06-02", out[1].Date)
}

func TestSQLite_Mappings_LatestWins(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMapping(ctx, model.StoreBoundaryMapping{
		StoreID: 1, BoundaryID: 5, MatchType: model.MatchExact,
	}))
	require.NoError(t, s.UpsertMapping(ctx, model.StoreBoundaryMapping{
		StoreID: 1, BoundaryID: 7, MatchType: model.MatchNearest,
	}))
	require.NoError(t, s.UpsertMapping(ctx, model.StoreBoundaryMapping{
		StoreID: 2, MatchType: model.MatchUnmatched,
	}))

	out, err := s.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(7), out[0].BoundaryID)
	assert.Equal(t, model.MatchNearest, out[0].MatchType)
	assert.Equal(t, int64(0), out[1].BoundaryID)
	assert.Equal(t, model.MatchUnmatched, out[1].MatchType)

	counts, err := s.MappingCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.MatchNearest])
	assert.Equal(t, 1, counts[model.MatchUnmatched])
	assert.Zero(t, counts[model.MatchExact])
}

func TestSQLite_Rollup_ReplaceListStats(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rows := []model.DailyBoundaryMetric{
		{
			Date: "2025-06-01", BoundaryID: 1,
			RegionCode: "NCR", RegionName: "Metro Manila", ProvinceName: "Metro Manila Province",
			TotalSales: 5000, TransactionCount: 3,
			UniqueCustomers: model.NewCustomerSet("c-1", "c-2"),
		},
		{
			Date: "2025-06-02", BoundaryID: 1,
			RegionCode: "NCR", RegionName: "Metro Manila", ProvinceName: "Metro Manila Province",
			TotalSales: 0, TransactionCount: 0,
			UniqueCustomers: model.NewCustomerSet(),
		},
		{
			Date: "2025-06-02", BoundaryID: 2,
			RegionCode: "III", RegionName: "Central Luzon", ProvinceName: "Central Luzon Province",
			TotalSales: 1200, TransactionCount: 1,
			UniqueCustomers: model.NewCustomerSet("c-3"),
		},
	}
	require.NoError(t, s.ReplaceRollup(ctx, rows))

	got, err := s.ListRollupRange(ctx, model.DateRange{From: "2025-06-01", To: "2025-06-01"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].BoundaryID)
	assert.Equal(t, 2, got[0].UniqueCustomers.Len())

	all, err := s.ListRollupRange(ctx, model.DateRange{From: "2025-06-01", To: "2025-06-30"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	stats, err := s.RollupStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveRegions)
	assert.Equal(t, 3, stats.TotalRecords)

	// A second refresh fully replaces the previous rollup.
	require.NoError(t, s.ReplaceRollup(ctx, rows[:1]))
	stats, err = s.RollupStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRecords)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), configStore("mysql"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	cfg := configStore("sqlite")
	cfg.SQLitePath = filepath.Join(t.TempDir(), "open.db")
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
