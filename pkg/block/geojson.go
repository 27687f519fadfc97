package block

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// MarshalGeoJSON encodes the table as a GeoJSON FeatureCollection with
// one feature per unit. Attributes ride along as feature properties so
// a round trip through UnmarshalGeoJSON is lossless. The encoding is
// also what the cache stores for an assembled table.
func (t *Table) MarshalGeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, u := range t.units {
		f := geojson.NewFeature(u.Geometry)
		f.Properties["geoid"] = u.GEOID
		f.Properties["pop"] = u.Pop
		f.Properties["baseline"] = u.Baseline
		f.Properties["partisan"] = u.Partisan
		if u.COI {
			f.Properties["coi"] = true
		}
		if len(u.Subtotals) > 0 {
			f.Properties["subtotals"] = u.Subtotals
		}
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "failed to encode unit table")
	}
	return data, nil
}

// UnmarshalGeoJSON decodes a FeatureCollection produced by
// MarshalGeoJSON back into a table.
func UnmarshalGeoJSON(data []byte) (*Table, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "failed to decode unit table")
	}
	if len(fc.Features) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "unit table has no features")
	}

	units := make([]*Unit, 0, len(fc.Features))
	for _, f := range fc.Features {
		geoid := f.Properties.MustString("geoid", "")
		pop := int64(math.Round(f.Properties.MustFloat64("pop", 0)))
		baseline := int64(math.Round(f.Properties.MustFloat64("baseline", 0)))
		partisan := f.Properties.MustFloat64("partisan", NeutralPartisan)

		u, err := NewUnit(geoid, pop, baseline, partisan, f.Geometry)
		if err != nil {
			return nil, err
		}
		u.COI = f.Properties.MustBool("coi", false)
		u.Subtotals = decodeSubtotals(f.Properties["subtotals"])
		units = append(units, u)
	}
	return NewTable(units)
}

func decodeSubtotals(v any) map[string]int64 {
	raw, ok := v.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]int64, len(raw))
	for key, val := range raw {
		if n, ok := val.(float64); ok {
			out[key] = int64(math.Round(n))
		}
	}
	return out
}

// BoundingBox returns the union bounding box of all unit geometries.
func (t *Table) BoundingBox() orb.Bound {
	var bound orb.Bound
	for i, u := range t.units {
		b := u.Geometry.Bound()
		if i == 0 {
			bound = b
			continue
		}
		bound = bound.Union(b)
	}
	return bound
}
