package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// PropKind tags the dynamic type of a boundary property value.
type PropKind int

const (
	PropNull PropKind = iota
	PropString
	PropNumber
	PropBool
)

// PropValue is a tagged scalar for raw boundary properties. Source GeoJSON
// property bags are heterogeneous; keeping them as a scalar union preserves
// passthrough without loosening types elsewhere. Nested arrays and objects
// are carried as their raw JSON text in Str.
type PropValue struct {
	Kind PropKind
	Str  string
	Num  float64
	Bool bool
}

// StringProp builds a string-valued property.
func StringProp(s string) PropValue { return PropValue{Kind: PropString, Str: s} }

// NumberProp builds a numeric property.
func NumberProp(n float64) PropValue { return PropValue{Kind: PropNumber, Num: n} }

// BoolProp builds a boolean property.
func BoolProp(b bool) PropValue { return PropValue{Kind: PropBool, Bool: b} }

// MarshalJSON writes the underlying scalar.
func (v PropValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case PropString:
		return json.Marshal(v.Str)
	case PropNumber:
		return json.Marshal(v.Num)
	case PropBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reads any JSON value, mapping scalars onto the union and
// keeping composite values as raw text.
func (v *PropValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode property value")
	}
	switch t := raw.(type) {
	case nil:
		*v = PropValue{Kind: PropNull}
	case string:
		*v = PropValue{Kind: PropString, Str: t}
	case float64:
		*v = PropValue{Kind: PropNumber, Num: t}
	case bool:
		*v = PropValue{Kind: PropBool, Bool: t}
	default:
		*v = PropValue{Kind: PropString, Str: string(data)}
	}
	return nil
}

// PropsFromAny converts a decoded GeoJSON property bag into the tagged form.
func PropsFromAny(in map[string]any) map[string]PropValue {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]PropValue, len(in))
	for k, raw := range in {
		switch t := raw.(type) {
		case nil:
			out[k] = PropValue{Kind: PropNull}
		case string:
			out[k] = StringProp(t)
		case float64:
			out[k] = NumberProp(t)
		case bool:
			out[k] = BoolProp(t)
		default:
			data, err := json.Marshal(raw)
			if err != nil {
				continue
			}
			out[k] = StringProp(string(data))
		}
	}
	return out
}
