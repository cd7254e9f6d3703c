package analytics

import (
	"context"
	"sort"

	"github.com/scout-pos/geo-analytics/internal/model"
)

// DefaultRankLimit caps the dot strip when the caller gives no limit.
const DefaultRankLimit = 10

// RankedRegion is one entry of the dot strip.
type RankedRegion struct {
	Rank               int     `json:"rank"`
	RegionCode         string  `json:"region_code"`
	RegionName         string  `json:"region_name"`
	Value              float64 `json:"value"`
	FormattedValue     string  `json:"formatted_value"`
	PercentageOfLeader float64 `json:"percentage_of_leader"`
	ColorBucket        int     `json:"color_bucket"`
}

// DotstripSummary reports what was ranked and the total across the
// returned entries only.
type DotstripSummary struct {
	Metric    model.Metric    `json:"metric"`
	DateRange model.DateRange `json:"date_range"`
	Total     float64         `json:"total"`
}

// DotstripResponse carries the ranking plus its own quantile scale. The
// scale covers the ranked, limited values only and is not interchangeable
// with a choropleth scale from the same range.
type DotstripResponse struct {
	Dotstrip  []RankedRegion  `json:"dotstrip"`
	Quantiles []float64       `json:"quantiles"`
	Summary   DotstripSummary `json:"summary"`
}

type regionAgg struct {
	code             string
	name             string
	totalSales       float64
	transactionCount int
	customers        model.CustomerSet
}

// Dotstrip aggregates the rollup by region, ranks descending by the chosen
// metric, and truncates to limit after the full sort. Ties sort by region
// code ascending so ordering is stable across runs.
func (c *Classifier) Dotstrip(ctx context.Context, r model.DateRange, metric model.Metric, limit int) (*DotstripResponse, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRankLimit
	}

	rows, err := c.store.ListRollupRange(ctx, r)
	if err != nil {
		return nil, model.Dependency(err, "analytics: read rollup")
	}

	agg := make(map[string]*regionAgg)
	for _, row := range rows {
		a := agg[row.RegionCode]
		if a == nil {
			a = &regionAgg{code: row.RegionCode, name: row.RegionName, customers: model.NewCustomerSet()}
			agg[row.RegionCode] = a
		}
		a.totalSales += row.TotalSales
		a.transactionCount += row.TransactionCount
		a.customers.Union(row.UniqueCustomers)
	}

	type ranked struct {
		*regionAgg
		value float64
	}
	regions := make([]ranked, 0, len(agg))
	for _, a := range agg {
		regions = append(regions, ranked{regionAgg: a, value: regionValue(metric, a)})
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].value != regions[j].value {
			return regions[i].value > regions[j].value
		}
		return regions[i].code < regions[j].code
	})
	if len(regions) > limit {
		regions = regions[:limit]
	}

	values := make([]float64, len(regions))
	for i, reg := range regions {
		values[i] = reg.value
	}
	scale := QuantileScale(values)

	var leader float64
	if len(regions) > 0 {
		leader = regions[0].value
	}

	dotstrip := make([]RankedRegion, len(regions))
	var total float64
	for i, reg := range regions {
		pct := 0.0
		if leader > 0 {
			pct = reg.value / leader * 100
		}
		dotstrip[i] = RankedRegion{
			Rank:               i + 1,
			RegionCode:         reg.code,
			RegionName:         reg.name,
			Value:              reg.value,
			FormattedValue:     FormatValue(metric, reg.value),
			PercentageOfLeader: pct,
			ColorBucket:        colorBucket(reg.value, scale),
		}
		total += reg.value
	}

	return &DotstripResponse{
		Dotstrip:  dotstrip,
		Quantiles: scale,
		Summary:   DotstripSummary{Metric: metric, DateRange: r, Total: total},
	}, nil
}

func regionValue(metric model.Metric, a *regionAgg) float64 {
	switch metric {
	case model.MetricTransactions:
		return float64(a.transactionCount)
	case model.MetricCustomers:
		return float64(a.customers.Len())
	default:
		return a.totalSales
	}
}
