// Package model defines the domain types shared across the geographic
// analytics pipeline: boundaries, store locations, raw transactions, the
// store-to-boundary mapping, and the materialized daily rollup.
package model

import (
	"github.com/twpayne/go-geom"
)

// Metric selects which rollup column a query reports on.
type Metric string

const (
	MetricSales        Metric = "sales"
	MetricTransactions Metric = "transactions"
	MetricCustomers    Metric = "customers"
)

// ParseMetric validates a metric name from the wire.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricSales, MetricTransactions, MetricCustomers:
		return Metric(s), nil
	}
	return "", Validationf("unknown metric %q", s)
}

// MatchType classifies how a store was assigned to a boundary.
type MatchType string

const (
	// MatchExact means the store point is contained by the boundary polygon.
	MatchExact MatchType = "exact"
	// MatchNearest means no polygon contains the point and the store was
	// assigned to the boundary with the closest centroid.
	MatchNearest MatchType = "nearest"
	// MatchUnmatched means no usable boundary geometry exists; the store is
	// excluded from aggregation.
	MatchUnmatched MatchType = "unmatched"
)

// Boundary is an administrative polygon with denormalized region and
// province names. Ingestion is a full replace, so IDs may be reassigned
// between runs; callers must not cache them across runs.
type Boundary struct {
	ID           int64                `json:"id"`
	RegionCode   string               `json:"region_code"`
	RegionName   string               `json:"region_name"`
	ProvinceCode string               `json:"province_code"`
	ProvinceName string               `json:"province_name"`
	Geometry     geom.T               `json:"-"`
	Properties   map[string]PropValue `json:"properties,omitempty"`
}

// StoreLocation is a point-of-sale site. Coordinates may be absent; such
// stores are skipped by the mapper.
type StoreLocation struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Transaction is a single point-of-sale record.
type Transaction struct {
	ID         int64   `json:"id"`
	StoreID    int64   `json:"store_id"`
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"` // YYYY-MM-DD
}

// StoreBoundaryMapping assigns a store to at most one boundary. BoundaryID
// is zero for unmatched stores.
type StoreBoundaryMapping struct {
	StoreID    int64     `json:"store_id"`
	BoundaryID int64     `json:"boundary_id,omitempty"`
	MatchType  MatchType `json:"match_type"`
}

// DailyBoundaryMetric is one row of the materialized rollup: metrics for a
// single (date, boundary) pair. Region and province names are denormalized
// at aggregation time so historical rows stay self-describing after a
// boundary rename.
type DailyBoundaryMetric struct {
	Date             string      `json:"date"`
	BoundaryID       int64       `json:"boundary_id"`
	RegionCode       string      `json:"region_code"`
	RegionName       string      `json:"region_name"`
	ProvinceName     string      `json:"province_name"`
	TotalSales       float64     `json:"total_sales"`
	TransactionCount int         `json:"transaction_count"`
	UniqueCustomers  CustomerSet `json:"unique_customers"`
}

// Value returns the rollup column selected by metric.
func (m *DailyBoundaryMetric) Value(metric Metric) float64 {
	switch metric {
	case MetricTransactions:
		return float64(m.TransactionCount)
	case MetricCustomers:
		return float64(m.UniqueCustomers.Len())
	default:
		return m.TotalSales
	}
}

// DateRange is an inclusive ISO-8601 date window.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate checks both bounds parse as dates and from does not exceed to.
// ISO dates compare correctly as strings.
func (r DateRange) Validate() error {
	for _, d := range []string{r.From, r.To} {
		if !ValidDate(d) {
			return Validationf("invalid date %q, want YYYY-MM-DD", d)
		}
	}
	if r.From > r.To {
		return Validationf("invalid date range: from %s after to %s", r.From, r.To)
	}
	return nil
}

// Contains reports whether date falls inside the range.
func (r DateRange) Contains(date string) bool {
	return date >= r.From && date <= r.To
}
