package plan

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/geo"
)

// WriteJSON encodes the plan as indented JSON and writes it to w. The
// output round-trips through [ReadJSON].
func WriteJSON(p *Plan, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes the plan to a JSON file at path.
func ExportJSON(p *Plan, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(p, f)
}

// WriteCSV writes the unit-to-district assignment as CSV with a
// GEOID,district header, rows sorted by GEOID.
func WriteCSV(p *Plan, w io.Writer) error {
	assignment := p.Assignment()
	ids := make([]string, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"GEOID", "district"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, id := range ids {
		if err := cw.Write([]string{id, strconv.Itoa(assignment[id])}); err != nil {
			return fmt.Errorf("write row %s: %w", id, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the assignment CSV to a file at path.
func ExportCSV(p *Plan, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(p, f)
}

// WriteGeoJSON writes one feature per district: the dissolved district
// geometry with the district's metrics as properties. The table
// supplies unit geometry; the engine is only used to measure
// compactness, the exported shapes always come from the true polygon
// union.
func WriteGeoJSON(p *Plan, table *block.Table, engine geo.Engine, w io.Writer) error {
	districts, err := p.Resolve(table)
	if err != nil {
		return err
	}
	metrics := Summarize(engine, districts, p.SeatsRequested)

	fc := geojson.NewFeatureCollection()
	for i, d := range districts {
		geom, err := geo.Union(d.Units)
		if err != nil {
			return fmt.Errorf("district %d: %w", p.Districts[i].ID, err)
		}
		f := geojson.NewFeature(geom)
		f.Properties["district"] = metrics[i].District
		f.Properties["population"] = metrics[i].Pop
		f.Properties["deviation_pct"] = metrics[i].DeviationPct
		f.Properties["polsby_popper"] = metrics[i].PolsbyPopper
		f.Properties["partisan_share"] = metrics[i].PartisanShare
		f.Properties["minority_share"] = metrics[i].MinorityShare
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ExportGeoJSON writes the district GeoJSON to a file at path.
func ExportGeoJSON(p *Plan, table *block.Table, engine geo.Engine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGeoJSON(p, table, engine, f)
}
