package ingest

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/geo"
	"github.com/scout-pos/geo-analytics/internal/model"
)

// IngestShapefile replaces the boundary set from a polygon shapefile. DBF
// attributes become the feature properties, so the same candidate keys used
// for GeoJSON (NAME_1, NAME_2, HASC_2 and friends) resolve here too.
func (bi *BoundaryIngestor) IngestShapefile(ctx context.Context, path string) (*Report, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrValidation, "ingest: open shapefile %s: %s", path, err.Error())
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var boundaries []model.Boundary
	regions := make(map[string]struct{})
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		g := geo.ShapeToGeometry(shape)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				props[name] = val
			}
		}

		b := bi.normalize(g, props)
		regions[b.RegionName] = struct{}{}
		boundaries = append(boundaries, b)
	}

	if skipped > 0 {
		bi.log.Debug("skipped non-polygon shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return bi.replace(ctx, boundaries, len(regions))
}
