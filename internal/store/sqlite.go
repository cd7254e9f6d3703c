package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scout-pos/geo-analytics/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS boundaries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	region_code   TEXT NOT NULL,
	region_name   TEXT NOT NULL,
	province_code TEXT NOT NULL,
	province_name TEXT NOT NULL,
	geometry      TEXT,
	properties    TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stores (
	id        INTEGER PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	latitude  REAL,
	longitude REAL
);

CREATE TABLE IF NOT EXISTS transactions (
	id          INTEGER PRIMARY KEY,
	store_id    INTEGER NOT NULL,
	customer_id TEXT NOT NULL,
	amount      REAL NOT NULL,
	date        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_store_id ON transactions(store_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);

CREATE TABLE IF NOT EXISTS store_mappings (
	store_id    INTEGER PRIMARY KEY,
	boundary_id INTEGER,
	match_type  TEXT NOT NULL,
	mapped_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_store_mappings_match_type ON store_mappings(match_type);

CREATE TABLE IF NOT EXISTS daily_boundary_metrics (
	date              TEXT NOT NULL,
	boundary_id       INTEGER NOT NULL,
	region_code       TEXT NOT NULL,
	region_name       TEXT NOT NULL,
	province_name     TEXT NOT NULL,
	total_sales       REAL NOT NULL,
	transaction_count INTEGER NOT NULL,
	unique_customers  TEXT NOT NULL,
	PRIMARY KEY (date, boundary_id)
);

CREATE INDEX IF NOT EXISTS idx_daily_metrics_date ON daily_boundary_metrics(date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceBoundaries(ctx context.Context, boundaries []model.Boundary, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: replace boundaries: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM boundaries`); err != nil {
		return eris.Wrap(err, "sqlite: replace boundaries: clear")
	}

	for i := 0; i < len(boundaries); i += batchSize {
		end := batchSpan(i, batchSize, len(boundaries))
		batch := boundaries[i:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO boundaries (region_code, region_name, province_code, province_name, geometry, properties) VALUES `)
		args := make([]any, 0, len(batch)*6)
		for j, b := range batch {
			geomJSON, propsJSON, err := encodeBoundary(b)
			if err != nil {
				return err
			}
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?)")
			args = append(args, b.RegionCode, b.RegionName, b.ProvinceCode, b.ProvinceName, string(geomJSON), string(propsJSON))
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return eris.Wrapf(err, "sqlite: replace boundaries: insert batch at %d", i)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: replace boundaries: commit")
}

func (s *SQLiteStore) ListBoundaries(ctx context.Context) ([]model.Boundary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region_code, region_name, province_code, province_name, geometry, properties
		FROM boundaries ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list boundaries")
	}
	defer rows.Close()

	var boundaries []model.Boundary
	for rows.Next() {
		var b model.Boundary
		var geomJSON, propsJSON sql.NullString
		if err := rows.Scan(&b.ID, &b.RegionCode, &b.RegionName, &b.ProvinceCode, &b.ProvinceName, &geomJSON, &propsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boundary")
		}
		if err := decodeBoundary(&b, []byte(geomJSON.String), []byte(propsJSON.String)); err != nil {
			return nil, err
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, eris.Wrap(rows.Err(), "sqlite: list boundaries iterate")
}

func (s *SQLiteStore) ListStoreLocations(ctx context.Context) ([]model.StoreLocation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, latitude, longitude FROM stores ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stores")
	}
	defer rows.Close()

	var stores []model.StoreLocation
	for rows.Next() {
		var st model.StoreLocation
		if err := rows.Scan(&st.ID, &st.Name, &st.Latitude, &st.Longitude); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan store")
		}
		stores = append(stores, st)
	}
	return stores, eris.Wrap(rows.Err(), "sqlite: list stores iterate")
}

func (s *SQLiteStore) UpsertStoreLocations(ctx context.Context, stores []model.StoreLocation) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert stores: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stores (id, name, latitude, longitude) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert stores: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, st := range stores {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.Latitude, st.Longitude); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert store %d", st.ID)
		}
		n++
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: upsert stores: commit")
}

func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, store_id, customer_id, amount, date FROM transactions ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transactions")
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.StoreID, &t.CustomerID, &t.Amount, &t.Date); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transaction")
		}
		txns = append(txns, t)
	}
	return txns, eris.Wrap(rows.Err(), "sqlite: list transactions iterate")
}

func (s *SQLiteStore) InsertTransactions(ctx context.Context, txns []model.Transaction) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert transactions: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (id, store_id, customer_id, amount, date) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert transactions: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, t := range txns {
		if _, err := stmt.ExecContext(ctx, t.ID, t.StoreID, t.CustomerID, t.Amount, t.Date); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert transaction %d", t.ID)
		}
		n++
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: insert transactions: commit")
}

func (s *SQLiteStore) UpsertMapping(ctx context.Context, m model.StoreBoundaryMapping) error {
	var boundaryID any
	if m.BoundaryID != 0 {
		boundaryID = m.BoundaryID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_mappings (store_id, boundary_id, match_type, mapped_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (store_id) DO UPDATE SET
			boundary_id = excluded.boundary_id,
			match_type = excluded.match_type,
			mapped_at = datetime('now')`,
		m.StoreID, boundaryID, string(m.MatchType),
	)
	return eris.Wrapf(err, "sqlite: upsert mapping for store %d", m.StoreID)
}

func (s *SQLiteStore) ListMappings(ctx context.Context) ([]model.StoreBoundaryMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT store_id, boundary_id, match_type FROM store_mappings ORDER BY store_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list mappings")
	}
	defer rows.Close()

	var mappings []model.StoreBoundaryMapping
	for rows.Next() {
		var m model.StoreBoundaryMapping
		var boundaryID sql.NullInt64
		if err := rows.Scan(&m.StoreID, &boundaryID, &m.MatchType); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mapping")
		}
		if boundaryID.Valid {
			m.BoundaryID = boundaryID.Int64
		}
		mappings = append(mappings, m)
	}
	return mappings, eris.Wrap(rows.Err(), "sqlite: list mappings iterate")
}

func (s *SQLiteStore) MappingCounts(ctx context.Context) (map[model.MatchType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT match_type, COUNT(*) FROM store_mappings GROUP BY match_type`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: mapping counts")
	}
	defer rows.Close()

	counts := make(map[model.MatchType]int)
	for rows.Next() {
		var mt string
		var n int
		if err := rows.Scan(&mt, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mapping count")
		}
		counts[model.MatchType(mt)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: mapping counts iterate")
}

func (s *SQLiteStore) ReplaceRollup(ctx context.Context, metricRows []model.DailyBoundaryMetric) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: replace rollup: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_boundary_metrics`); err != nil {
		return eris.Wrap(err, "sqlite: replace rollup: clear")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_boundary_metrics
			(date, boundary_id, region_code, region_name, province_name, total_sales, transaction_count, unique_customers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: replace rollup: prepare")
	}
	defer stmt.Close()

	for _, r := range metricRows {
		customers, err := encodeCustomers(r.UniqueCustomers)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.Date, r.BoundaryID, r.RegionCode, r.RegionName, r.ProvinceName,
			r.TotalSales, r.TransactionCount, string(customers),
		); err != nil {
			return eris.Wrapf(err, "sqlite: replace rollup: insert %s/%d", r.Date, r.BoundaryID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: replace rollup: commit")
}

func (s *SQLiteStore) ListRollupRange(ctx context.Context, r model.DateRange) ([]model.DailyBoundaryMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, boundary_id, region_code, region_name, province_name, total_sales, transaction_count, unique_customers
		FROM daily_boundary_metrics
		WHERE date >= ? AND date <= ?
		ORDER BY date, boundary_id`,
		r.From, r.To,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rollup range")
	}
	defer rows.Close()

	var metrics []model.DailyBoundaryMetric
	for rows.Next() {
		var m model.DailyBoundaryMetric
		var customersJSON string
		if err := rows.Scan(&m.Date, &m.BoundaryID, &m.RegionCode, &m.RegionName, &m.ProvinceName, &m.TotalSales, &m.TransactionCount, &customersJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rollup row")
		}
		set, err := decodeCustomers([]byte(customersJSON))
		if err != nil {
			return nil, err
		}
		m.UniqueCustomers = set
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "sqlite: list rollup range iterate")
}

func (s *SQLiteStore) RollupStats(ctx context.Context) (RollupStats, error) {
	var stats RollupStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT CASE WHEN total_sales > 0 THEN boundary_id END), COUNT(*)
		FROM daily_boundary_metrics`,
	).Scan(&stats.ActiveRegions, &stats.TotalRecords)
	if err != nil {
		return RollupStats{}, eris.Wrap(err, "sqlite: rollup stats")
	}
	return stats, nil
}
