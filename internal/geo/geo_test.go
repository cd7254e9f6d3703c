package geo

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/scout-pos/geo-analytics/internal/model"
)

// square builds a closed ring polygon covering [minX,maxX]x[minY,maxY].
func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}, []int{10})
}

func TestContainsPolygon(t *testing.T) {
	sq := square(120, 18, 121, 19)

	assert.True(t, Contains(sq, 120.5, 18.5))
	assert.False(t, Contains(sq, 121.5, 18.5))
	assert.False(t, Contains(sq, 120.5, 19.5))
}

func TestContainsPolygonWithHole(t *testing.T) {
	// Outer 0..10, hole 4..6.
	poly := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 10, 0, 10, 10, 0, 10, 0, 0,
		4, 4, 6, 4, 6, 6, 4, 6, 4, 4,
	}, []int{10, 20})

	assert.True(t, Contains(poly, 2, 2))
	assert.False(t, Contains(poly, 5, 5), "point inside hole is not contained")
}

func TestContainsMultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(square(0, 0, 1, 1)))
	require.NoError(t, mp.Push(square(5, 5, 6, 6)))

	assert.True(t, Contains(mp, 0.5, 0.5))
	assert.True(t, Contains(mp, 5.5, 5.5))
	assert.False(t, Contains(mp, 3, 3))
}

func TestContainsNonAreal(t *testing.T) {
	point := geom.NewPointFlat(geom.XY, []float64{1, 1})
	assert.False(t, Contains(point, 1, 1))
	assert.False(t, Contains(nil, 1, 1))
}

func TestCentroid(t *testing.T) {
	lng, lat, ok := Centroid(square(120, 18, 122, 20))
	require.True(t, ok)
	assert.InDelta(t, 121.0, lng, 1e-9)
	assert.InDelta(t, 19.0, lat, 1e-9)

	_, _, ok = Centroid(nil)
	assert.False(t, ok)
}

func TestDistanceSqOrdering(t *testing.T) {
	near := DistanceSq(0, 0, 1, 1)
	far := DistanceSq(0, 0, 3, 4)
	assert.Less(t, near, far)
	assert.Equal(t, 25.0, far)
}

func TestDecodeFeatureCollection(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"properties": {"NAME_2": "Cebu", "pop": 964169},
			"geometry": {"type": "Polygon", "coordinates": [[[120,18],[121,18],[121,19],[120,19],[120,18]]]}
		}]
	}`)

	fc, err := DecodeFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Cebu", fc.Features[0].Properties["NAME_2"])
	assert.True(t, Contains(fc.Features[0].Geometry, 120.5, 18.5))
}

func TestDecodeFeatureCollectionMalformed(t *testing.T) {
	_, err := DecodeFeatureCollection([]byte(`{"type": "FeatureCollection", "features": [`))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestGeometryRoundTrip(t *testing.T) {
	sq := square(120, 18, 121, 19)
	data, err := EncodeGeometry(sq)
	require.NoError(t, err)

	back, err := DecodeGeometry(data)
	require.NoError(t, err)
	assert.True(t, Contains(back, 120.5, 18.5))
	assert.False(t, Contains(back, 119.5, 18.5))
}

func TestEncodeGeometryNil(t *testing.T) {
	data, err := EncodeGeometry(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestShapeToGeometry(t *testing.T) {
	polygon := &shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: 120, Y: 18}, {X: 121, Y: 18}, {X: 121, Y: 19}, {X: 120, Y: 19}, {X: 120, Y: 18},
		},
	}

	g := ShapeToGeometry(polygon)
	require.NotNil(t, g)
	assert.True(t, Contains(g, 120.5, 18.5))
	assert.False(t, Contains(g, 122, 18.5))
}

func TestShapeToGeometryUnsupported(t *testing.T) {
	assert.Nil(t, ShapeToGeometry(nil))
	assert.Nil(t, ShapeToGeometry(&shp.Point{X: 1, Y: 2}))
	assert.Nil(t, ShapeToGeometry(&shp.Polygon{}))
}
