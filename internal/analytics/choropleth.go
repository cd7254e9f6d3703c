// Package analytics derives the read-side views over the materialized
// rollup: the choropleth feature collection and the ranked dot strip. Both
// are computed per request and own no persisted state.
package analytics

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/geo"
	"github.com/scout-pos/geo-analytics/internal/model"
	"github.com/scout-pos/geo-analytics/internal/store"
)

// Classifier reads the rollup and boundary set; it never writes.
type Classifier struct {
	store store.Store
	log   *zap.Logger
}

func NewClassifier(st store.Store, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{store: st, log: log}
}

// FeatureProperties is the per-boundary payload of a choropleth feature.
type FeatureProperties struct {
	ID               int64   `json:"id"`
	ProvinceCode     string  `json:"province_code"`
	ProvinceName     string  `json:"province_name"`
	RegionName       string  `json:"region_name"`
	Value            float64 `json:"value"`
	TotalSales       float64 `json:"total_sales"`
	TransactionCount int     `json:"transaction_count"`
	UniqueCustomers  int     `json:"unique_customers"`
}

// Feature is one GeoJSON-shaped choropleth feature.
type Feature struct {
	Type       string            `json:"type"`
	Properties FeatureProperties `json:"properties"`
	Geometry   json.RawMessage   `json:"geometry"`
}

// ChoroplethSummary totals the returned boundaries; total_customers is the
// true union across boundaries, not the sum of per-boundary counts.
type ChoroplethSummary struct {
	TotalSales        float64         `json:"total_sales"`
	TotalTransactions int             `json:"total_transactions"`
	TotalCustomers    int             `json:"total_customers"`
	DateRange         model.DateRange `json:"date_range"`
}

// ChoroplethResponse is a FeatureCollection plus the shared quantile scale.
type ChoroplethResponse struct {
	Type      string            `json:"type"`
	Features  []Feature         `json:"features"`
	Quantiles []float64         `json:"quantiles"`
	Summary   ChoroplethSummary `json:"summary"`
}

// boundaryAgg accumulates rollup rows for one boundary across the range.
type boundaryAgg struct {
	totalSales       float64
	transactionCount int
	customers        model.CustomerSet
}

// Choropleth aggregates the rollup over the range per boundary and merges
// with geometry. Every boundary in the store yields a feature; boundaries
// without metric rows report zeroes so the map keeps full coverage.
func (c *Classifier) Choropleth(ctx context.Context, r model.DateRange, metric model.Metric) (*ChoroplethResponse, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	rows, err := c.store.ListRollupRange(ctx, r)
	if err != nil {
		return nil, model.Dependency(err, "analytics: read rollup")
	}
	boundaries, err := c.store.ListBoundaries(ctx)
	if err != nil {
		return nil, model.Dependency(err, "analytics: read boundaries")
	}

	agg := make(map[int64]*boundaryAgg)
	allCustomers := model.NewCustomerSet()
	for _, row := range rows {
		a := agg[row.BoundaryID]
		if a == nil {
			a = &boundaryAgg{customers: model.NewCustomerSet()}
			agg[row.BoundaryID] = a
		}
		a.totalSales += row.TotalSales
		a.transactionCount += row.TransactionCount
		a.customers.Union(row.UniqueCustomers)
		allCustomers.Union(row.UniqueCustomers)
	}

	var summary ChoroplethSummary
	values := make([]float64, 0, len(agg))
	for _, a := range agg {
		summary.TotalSales += a.totalSales
		summary.TotalTransactions += a.transactionCount
		values = append(values, metricValue(metric, a))
	}
	summary.TotalCustomers = allCustomers.Len()
	summary.DateRange = r

	features := make([]Feature, 0, len(boundaries))
	for _, b := range boundaries {
		props := FeatureProperties{
			ID:           b.ID,
			ProvinceCode: b.ProvinceCode,
			ProvinceName: b.ProvinceName,
			RegionName:   b.RegionName,
		}
		if a := agg[b.ID]; a != nil {
			props.Value = metricValue(metric, a)
			props.TotalSales = a.totalSales
			props.TransactionCount = a.transactionCount
			props.UniqueCustomers = a.customers.Len()
		}
		geometry, err := geo.EncodeGeometry(b.Geometry)
		if err != nil {
			return nil, model.Dependency(err, "analytics: encode geometry")
		}
		features = append(features, Feature{Type: "Feature", Properties: props, Geometry: geometry})
	}

	return &ChoroplethResponse{
		Type:      "FeatureCollection",
		Features:  features,
		Quantiles: QuantileScale(values),
		Summary:   summary,
	}, nil
}

func metricValue(metric model.Metric, a *boundaryAgg) float64 {
	switch metric {
	case model.MetricTransactions:
		return float64(a.transactionCount)
	case model.MetricCustomers:
		return float64(a.customers.Len())
	default:
		return a.totalSales
	}
}
