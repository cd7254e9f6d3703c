package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scout-pos/geo-analytics/internal/config"
	"github.com/scout-pos/geo-analytics/internal/db"
	"github.com/scout-pos/geo-analytics/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg.MaxConns > 0 {
		maxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		minConns = poolCfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS boundaries (
	id            BIGSERIAL PRIMARY KEY,
	region_code   TEXT NOT NULL,
	region_name   TEXT NOT NULL,
	province_code TEXT NOT NULL,
	province_name TEXT NOT NULL,
	geometry      JSONB,
	properties    JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stores (
	id        BIGINT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	latitude  DOUBLE PRECISION,
	longitude DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS transactions (
	id          BIGINT PRIMARY KEY,
	store_id    BIGINT NOT NULL,
	customer_id TEXT NOT NULL,
	amount      DOUBLE PRECISION NOT NULL,
	date        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_store_id ON transactions(store_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);

CREATE TABLE IF NOT EXISTS store_mappings (
	store_id    BIGINT PRIMARY KEY,
	boundary_id BIGINT,
	match_type  TEXT NOT NULL,
	mapped_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_store_mappings_match_type ON store_mappings(match_type);

CREATE TABLE IF NOT EXISTS daily_boundary_metrics (
	date              TEXT NOT NULL,
	boundary_id       BIGINT NOT NULL,
	region_code       TEXT NOT NULL,
	region_name       TEXT NOT NULL,
	province_name     TEXT NOT NULL,
	total_sales       DOUBLE PRECISION NOT NULL,
	transaction_count INTEGER NOT NULL,
	unique_customers  JSONB NOT NULL,
	PRIMARY KEY (date, boundary_id)
);

CREATE INDEX IF NOT EXISTS idx_daily_metrics_date ON daily_boundary_metrics(date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ReplaceBoundaries swaps the full boundary set inside one transaction.
// A failure on any batch rolls everything back, so readers keep the
// previous complete set.
func (s *PostgresStore) ReplaceBoundaries(ctx context.Context, boundaries []model.Boundary, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: replace boundaries: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM boundaries`); err != nil {
		return eris.Wrap(err, "postgres: replace boundaries: clear")
	}

	for i := 0; i < len(boundaries); i += batchSize {
		end := batchSpan(i, batchSize, len(boundaries))
		sql, args, err := boundaryInsertBatch(boundaries[i:end])
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return eris.Wrapf(err, "postgres: replace boundaries: insert batch at %d", i)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: replace boundaries: commit")
	}
	return nil
}

// boundaryInsertBatch builds one multi-row INSERT for a batch of boundaries.
// Rows are inserted in order so BIGSERIAL ids ascend in feature order.
func boundaryInsertBatch(batch []model.Boundary) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO boundaries (region_code, region_name, province_code, province_name, geometry, properties) VALUES `)

	args := make([]any, 0, len(batch)*6)
	for i, b := range batch {
		geomJSON, propsJSON, err := encodeBoundary(b)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, b.RegionCode, b.RegionName, b.ProvinceCode, b.ProvinceName, geomJSON, propsJSON)
	}
	return sb.String(), args, nil
}

func (s *PostgresStore) ListBoundaries(ctx context.Context) ([]model.Boundary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, region_code, region_name, province_code, province_name, geometry, properties
		FROM boundaries ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list boundaries")
	}
	defer rows.Close()

	var boundaries []model.Boundary
	for rows.Next() {
		var b model.Boundary
		var geomJSON, propsJSON []byte
		if err := rows.Scan(&b.ID, &b.RegionCode, &b.RegionName, &b.ProvinceCode, &b.ProvinceName, &geomJSON, &propsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan boundary")
		}
		if err := decodeBoundary(&b, geomJSON, propsJSON); err != nil {
			return nil, err
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, eris.Wrap(rows.Err(), "postgres: list boundaries iterate")
}

func (s *PostgresStore) ListStoreLocations(ctx context.Context) ([]model.StoreLocation, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, latitude, longitude FROM stores ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stores")
	}
	defer rows.Close()

	var stores []model.StoreLocation
	for rows.Next() {
		var st model.StoreLocation
		if err := rows.Scan(&st.ID, &st.Name, &st.Latitude, &st.Longitude); err != nil {
			return nil, eris.Wrap(err, "postgres: scan store")
		}
		stores = append(stores, st)
	}
	return stores, eris.Wrap(rows.Err(), "postgres: list stores iterate")
}

func (s *PostgresStore) UpsertStoreLocations(ctx context.Context, stores []model.StoreLocation) (int64, error) {
	rows := make([][]any, len(stores))
	for i, st := range stores {
		rows[i] = []any{st.ID, st.Name, st.Latitude, st.Longitude}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "stores",
		Columns:      []string{"id", "name", "latitude", "longitude"},
		ConflictKeys: []string{"id"},
	}, rows)
}

func (s *PostgresStore) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, store_id, customer_id, amount, date FROM transactions ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transactions")
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.StoreID, &t.CustomerID, &t.Amount, &t.Date); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction")
		}
		txns = append(txns, t)
	}
	return txns, eris.Wrap(rows.Err(), "postgres: list transactions iterate")
}

func (s *PostgresStore) InsertTransactions(ctx context.Context, txns []model.Transaction) (int64, error) {
	rows := make([][]any, len(txns))
	for i, t := range txns {
		rows[i] = []any{t.ID, t.StoreID, t.CustomerID, t.Amount, t.Date}
	}
	return db.CopyFrom(ctx, s.pool, "transactions",
		[]string{"id", "store_id", "customer_id", "amount", "date"}, rows)
}

func (s *PostgresStore) UpsertMapping(ctx context.Context, m model.StoreBoundaryMapping) error {
	var boundaryID any
	if m.BoundaryID != 0 {
		boundaryID = m.BoundaryID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO store_mappings (store_id, boundary_id, match_type, mapped_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (store_id) DO UPDATE SET
			boundary_id = EXCLUDED.boundary_id,
			match_type = EXCLUDED.match_type,
			mapped_at = now()`,
		m.StoreID, boundaryID, string(m.MatchType),
	)
	return eris.Wrapf(err, "postgres: upsert mapping for store %d", m.StoreID)
}

func (s *PostgresStore) ListMappings(ctx context.Context) ([]model.StoreBoundaryMapping, error) {
	rows, err := s.pool.Query(ctx, `SELECT store_id, boundary_id, match_type FROM store_mappings ORDER BY store_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list mappings")
	}
	defer rows.Close()

	var mappings []model.StoreBoundaryMapping
	for rows.Next() {
		var m model.StoreBoundaryMapping
		var boundaryID *int64
		if err := rows.Scan(&m.StoreID, &boundaryID, &m.MatchType); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mapping")
		}
		if boundaryID != nil {
			m.BoundaryID = *boundaryID
		}
		mappings = append(mappings, m)
	}
	return mappings, eris.Wrap(rows.Err(), "postgres: list mappings iterate")
}

func (s *PostgresStore) MappingCounts(ctx context.Context) (map[model.MatchType]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT match_type, COUNT(*) FROM store_mappings GROUP BY match_type`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: mapping counts")
	}
	defer rows.Close()

	counts := make(map[model.MatchType]int)
	for rows.Next() {
		var mt string
		var n int
		if err := rows.Scan(&mt, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mapping count")
		}
		counts[model.MatchType(mt)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: mapping counts iterate")
}

// ReplaceRollup rewrites the materialized rollup inside one transaction
// using COPY for the insert leg.
func (s *PostgresStore) ReplaceRollup(ctx context.Context, metricRows []model.DailyBoundaryMetric) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: replace rollup: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM daily_boundary_metrics`); err != nil {
		return eris.Wrap(err, "postgres: replace rollup: clear")
	}

	copyRows := make([][]any, len(metricRows))
	for i, r := range metricRows {
		customers, err := encodeCustomers(r.UniqueCustomers)
		if err != nil {
			return err
		}
		copyRows[i] = []any{r.Date, r.BoundaryID, r.RegionCode, r.RegionName, r.ProvinceName, r.TotalSales, r.TransactionCount, customers}
	}
	if len(copyRows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"daily_boundary_metrics"},
			[]string{"date", "boundary_id", "region_code", "region_name", "province_name", "total_sales", "transaction_count", "unique_customers"},
			pgx.CopyFromRows(copyRows),
		); err != nil {
			return eris.Wrap(err, "postgres: replace rollup: copy")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: replace rollup: commit")
	}
	return nil
}

func (s *PostgresStore) ListRollupRange(ctx context.Context, r model.DateRange) ([]model.DailyBoundaryMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, boundary_id, region_code, region_name, province_name, total_sales, transaction_count, unique_customers
		FROM daily_boundary_metrics
		WHERE date >= $1 AND date <= $2
		ORDER BY date, boundary_id`,
		r.From, r.To,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rollup range")
	}
	defer rows.Close()

	var metrics []model.DailyBoundaryMetric
	for rows.Next() {
		var m model.DailyBoundaryMetric
		var customersJSON []byte
		if err := rows.Scan(&m.Date, &m.BoundaryID, &m.RegionCode, &m.RegionName, &m.ProvinceName, &m.TotalSales, &m.TransactionCount, &customersJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rollup row")
		}
		set, err := decodeCustomers(customersJSON)
		if err != nil {
			return nil, err
		}
		m.UniqueCustomers = set
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "postgres: list rollup range iterate")
}

func (s *PostgresStore) RollupStats(ctx context.Context) (RollupStats, error) {
	var stats RollupStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT CASE WHEN total_sales > 0 THEN boundary_id END), COUNT(*)
		FROM daily_boundary_metrics`,
	).Scan(&stats.ActiveRegions, &stats.TotalRecords)
	if err != nil {
		return RollupStats{}, eris.Wrap(err, "postgres: rollup stats")
	}
	return stats, nil
}
