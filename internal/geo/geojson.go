// Package geo holds the in-process geometry operations for the analytics
// pipeline: GeoJSON decoding, point-in-polygon containment, centroid
// fallback, and shapefile conversion. Geometry is evaluated in Go rather
// than in the database so the store layer stays backend-agnostic.
package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/scout-pos/geo-analytics/internal/model"
)

// DecodeFeatureCollection parses a GeoJSON FeatureCollection. Malformed
// input classifies as a validation failure.
func DecodeFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(model.ErrValidation, "geo: malformed GeoJSON: %s", err.Error())
	}
	return &fc, nil
}

// DecodeGeometry parses a bare GeoJSON geometry.
func DecodeGeometry(data []byte) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "geo: decode geometry")
	}
	return g, nil
}

// EncodeGeometry serializes a geometry back to GeoJSON.
func EncodeGeometry(g geom.T) (json.RawMessage, error) {
	if g == nil {
		return nil, nil
	}
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode geometry")
	}
	return data, nil
}
