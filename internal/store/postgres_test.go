package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scout-pos/geo-analytics/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

// anyArgs builds n wildcard argument matchers for multi-row inserts.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS boundaries").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceBoundaries_Batched(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM boundaries").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	// Three boundaries with batch size 2 need two INSERT statements,
	// six bind args per row.
	mock.ExpectExec("INSERT INTO boundaries").
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec("INSERT INTO boundaries").
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	in := []model.Boundary{
		testBoundary("NCR", "Metro Manila"),
		testBoundary("III", "Central Luzon"),
		testBoundary("V", "Bicol"),
	}
	require.NoError(t, s.ReplaceBoundaries(context.Background(), in, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceBoundaries_BatchFailureRollsBack(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM boundaries").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO boundaries").
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO boundaries").
		WithArgs(anyArgs(6)...).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	in := []model.Boundary{
		testBoundary("NCR", "Metro Manila"),
		testBoundary("III", "Central Luzon"),
	}
	err := s.ReplaceBoundaries(context.Background(), in, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "insert batch")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertMapping(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO store_mappings").
		WithArgs(int64(1), int64(5), "exact").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertMapping(context.Background(), model.StoreBoundaryMapping{
		StoreID: 1, BoundaryID: 5, MatchType: model.MatchExact,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertMapping_UnmatchedHasNullBoundary(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO store_mappings").
		WithArgs(int64(2), nil, "unmatched").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertMapping(context.Background(), model.StoreBoundaryMapping{
		StoreID: 2, MatchType: model.MatchUnmatched,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MappingCounts(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT match_type, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"match_type", "count"}).
			AddRow("exact", 12).
			AddRow("nearest", 3).
			AddRow("unmatched", 1))

	counts, err := s.MappingCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, counts[model.MatchExact])
	assert.Equal(t, 3, counts[model.MatchNearest])
	assert.Equal(t, 1, counts[model.MatchUnmatched])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceRollup(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM daily_boundary_metrics").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"daily_boundary_metrics"},
		[]string{"date", "boundary_id", "region_code", "region_name", "province_name", "total_sales", "transaction_count", "unique_customers"}).
		WillReturnResult(1)
	mock.ExpectCommit()

	rows := []model.DailyBoundaryMetric{
		{
			Date: "2025-06-01", BoundaryID: 1,
			RegionCode: "NCR", RegionName: "Metro Manila", ProvinceName: "Metro Manila Province",
			TotalSales: 5000, TransactionCount: 3,
			UniqueCustomers: model.NewCustomerSet("c-1"),
		},
	}
	require.NoError(t, s.ReplaceRollup(context.Background(), rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceRollup_EmptySkipsCopy(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM daily_boundary_metrics").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceRollup(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RollupStats(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"active", "total"}).AddRow(4, 120))

	stats, err := s.RollupStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.ActiveRegions)
	assert.Equal(t, 120, stats.TotalRecords)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRollupRange(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("FROM daily_boundary_metrics").
		WithArgs("2025-06-01", "2025-06-30").
		WillReturnRows(pgxmock.NewRows([]string{
			"date", "boundary_id", "region_code", "region_name", "province_name",
			"total_sales", "transaction_count", "unique_customers",
		}).AddRow("2025-06-01", int64(1), "NCR", "Metro Manila", "Metro Manila Province",
			5000.0, 3, []byte(`["c-1","c-2"]`)))

	out, err := s.ListRollupRange(context.Background(), model.DateRange{From: "2025-06-01", To: "2025-06-30"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].UniqueCustomers.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertTransactions_UsesCopy(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectCopyFrom(pgx.Identifier{"transactions"},
		[]string{"id", "store_id", "customer_id", "amount", "date"}).
		WillReturnResult(2)

	n, err := s.InsertTransactions(context.Background(), []model.Transaction{
		{ID: 1, StoreID: 1, CustomerID: "c-1", Amount: 10, Date: "2025-06-01"},
		{ID: 2, StoreID: 1, CustomerID: "c-2", Amount: 20, Date: "2025-06-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
