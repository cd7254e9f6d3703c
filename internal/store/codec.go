package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/scout-pos/geo-analytics/internal/geo"
	"github.com/scout-pos/geo-analytics/internal/model"
)

// Geometry and property bags cross the driver boundary as JSON text so the
// Postgres and SQLite schemas stay in lockstep.

func encodeBoundary(b model.Boundary) (geomJSON, propsJSON []byte, err error) {
	geomJSON, err = geo.EncodeGeometry(b.Geometry)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: encode boundary geometry")
	}
	if len(b.Properties) > 0 {
		propsJSON, err = json.Marshal(b.Properties)
		if err != nil {
			return nil, nil, eris.Wrap(err, "store: encode boundary properties")
		}
	}
	return geomJSON, propsJSON, nil
}

func decodeBoundary(b *model.Boundary, geomJSON, propsJSON []byte) error {
	if len(geomJSON) > 0 {
		g, err := geo.DecodeGeometry(geomJSON)
		if err != nil {
			return eris.Wrap(err, "store: decode boundary geometry")
		}
		b.Geometry = g
	}
	if len(propsJSON) > 0 {
		if err := json.Unmarshal(propsJSON, &b.Properties); err != nil {
			return eris.Wrap(err, "store: decode boundary properties")
		}
	}
	return nil
}

func encodeCustomers(set model.CustomerSet) ([]byte, error) {
	data, err := json.Marshal(set)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode customer set")
	}
	return data, nil
}

func decodeCustomers(data []byte) (model.CustomerSet, error) {
	if len(data) == 0 {
		return model.CustomerSet{}, nil
	}
	var set model.CustomerSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, eris.Wrap(err, "store: decode customer set")
	}
	return set, nil
}

// batchSpan clamps a batch window [i, end) over n rows.
func batchSpan(i, batchSize, n int) int {
	end := i + batchSize
	if end > n {
		end = n
	}
	return end
}

// DefaultBatchSize bounds rows per insert statement during boundary replace.
const DefaultBatchSize = 50
