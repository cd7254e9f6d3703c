// Package ingest normalizes raw boundary features into the canonical
// boundary model and replaces the stored boundary set. GeoJSON feature
// collections are the primary input; shapefiles are converted into the
// same feature shape and flow through identical normalization.
package ingest

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/geo"
	"github.com/scout-pos/geo-analytics/internal/model"
	"github.com/scout-pos/geo-analytics/internal/store"
)

// Refresher re-runs store mapping and the metric rollup after a boundary
// replace invalidates previous boundary ids.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Report summarizes one ingestion run.
type Report struct {
	RunID     string `json:"run_id"`
	Inserted  int    `json:"inserted"`
	Regions   int    `json:"regions"`
	Provinces int    `json:"provinces"`
}

// BoundaryIngestor replaces the boundary set from normalized features.
type BoundaryIngestor struct {
	store     store.Store
	refresher Refresher
	log       *zap.Logger
	batchSize int
}

func NewBoundaryIngestor(st store.Store, refresher Refresher, log *zap.Logger, batchSize int) *BoundaryIngestor {
	if log == nil {
		log = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = store.DefaultBatchSize
	}
	return &BoundaryIngestor{store: st, refresher: refresher, log: log, batchSize: batchSize}
}

// IngestGeoJSON replaces the boundary set from a GeoJSON FeatureCollection.
// The replace is one storage transaction; a failed batch leaves the previous
// set intact and is reported as a consistency error. On success the refresher
// is triggered so mappings and the rollup catch up with the new boundary ids.
func (bi *BoundaryIngestor) IngestGeoJSON(ctx context.Context, data []byte) (*Report, error) {
	fc, err := geo.DecodeFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	boundaries := make([]model.Boundary, 0, len(fc.Features))
	regions := make(map[string]struct{})
	for _, f := range fc.Features {
		b := bi.normalize(f.Geometry, f.Properties)
		regions[b.RegionName] = struct{}{}
		boundaries = append(boundaries, b)
	}

	return bi.replace(ctx, boundaries, len(regions))
}

func (bi *BoundaryIngestor) replace(ctx context.Context, boundaries []model.Boundary, regionCount int) (*Report, error) {
	if err := bi.store.ReplaceBoundaries(ctx, boundaries, bi.batchSize); err != nil {
		return nil, model.Consistency(err, "ingest: boundary replace failed")
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Inserted:  len(boundaries),
		Regions:   regionCount,
		Provinces: len(boundaries),
	}
	bi.log.Info("boundary set replaced",
		zap.String("run_id", report.RunID),
		zap.Int("inserted", report.Inserted),
		zap.Int("regions", report.Regions),
	)

	if bi.refresher != nil {
		if err := bi.refresher.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Candidate property keys, checked in order; first non-empty string wins.
var (
	regionNameKeys   = []string{"NAME_1", "region", "REGION"}
	provinceNameKeys = []string{"NAME_2", "province", "PROVINCE"}
	provinceCodeKeys = []string{"HASC_2", "ADM2_PCODE", "province_code"}
)

func (bi *BoundaryIngestor) normalize(g geom.T, props map[string]any) model.Boundary {
	regionName := firstString(props, regionNameKeys)
	provinceName := firstString(props, provinceNameKeys)

	provinceCode := firstString(props, provinceCodeKeys)
	if provinceCode == "" {
		provinceCode = synthesizeProvinceCode(provinceName)
	}

	regionCode, ok := RegionCode(regionName)
	if !ok {
		regionCode = truncateRunes(regionName, 5)
		bi.log.Warn("region name not in lookup table, using truncated code",
			zap.String("region_name", regionName),
			zap.String("region_code", regionCode),
		)
	}

	return model.Boundary{
		RegionCode:   regionCode,
		RegionName:   regionName,
		ProvinceCode: provinceCode,
		ProvinceName: provinceName,
		Geometry:     g,
		Properties:   model.PropsFromAny(props),
	}
}

func firstString(props map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// synthesizeProvinceCode builds "PH-" plus the uppercased first three
// letters of the whitespace-stripped province name.
func synthesizeProvinceCode(provinceName string) string {
	stripped := strings.Join(strings.Fields(provinceName), "")
	return "PH-" + strings.ToUpper(truncateRunes(stripped, 3))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
