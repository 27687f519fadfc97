// Package tiger downloads TIGER/Line boundary archives and decodes them
// into planar unit geometries.
//
// Archives are per-state shapefile zips. Coordinates arrive as lon/lat
// and are projected to Web-Mercator meters at load, so everything
// downstream works in a planar frame.
package tiger

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/httputil"
)

// baseURL serves the TIGER/Line 2024 products.
const baseURL = "https://www2.census.gov/geo/tiger/TIGER2024"

// Unit resolutions with a published boundary product.
const (
	ResolutionTract = "tract"
	ResolutionBlock = "block"
)

// Client downloads and decodes boundary archives.
type Client struct {
	URL string

	fetcher *httputil.Fetcher
}

// NewClient creates a boundary client on top of a shared fetcher.
func NewClient(f *httputil.Fetcher) *Client {
	return &Client{URL: baseURL, fetcher: f}
}

// Shapes fetches the boundary archive for a state at the given
// resolution and returns projected geometries keyed by GEOID.
func (c *Client) Shapes(ctx context.Context, stateFIPS, resolution string) (map[string]orb.MultiPolygon, error) {
	if err := apperrors.ValidateStateFIPS(stateFIPS); err != nil {
		return nil, err
	}
	url, err := c.archiveURL(stateFIPS, resolution)
	if err != nil {
		return nil, err
	}

	body, _, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	shapes, err := decodeArchive(body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "decode %s", url)
	}
	return shapes, nil
}

func (c *Client) archiveURL(stateFIPS, resolution string) (string, error) {
	switch resolution {
	case ResolutionTract:
		return fmt.Sprintf("%s/TRACT/tl_2024_%s_tract.zip", c.URL, stateFIPS), nil
	case ResolutionBlock:
		return fmt.Sprintf("%s/TABBLOCK20/tl_2024_%s_tabblock20.zip", c.URL, stateFIPS), nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidResolution,
			"unknown resolution %q (want %s or %s)", resolution, ResolutionTract, ResolutionBlock)
	}
}

// decodeArchive extracts the shapefile sidecars from an archive and
// decodes every shape. The GEOID20 attribute wins over GEOID when both
// are present.
func decodeArchive(archive []byte) (map[string]orb.MultiPolygon, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	dir, err := os.MkdirTemp("", "wardline-tiger-")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	shpPath := ""
	for _, f := range zr.File {
		name := strings.ToLower(filepath.Base(f.Name))
		switch filepath.Ext(name) {
		case ".shp", ".shx", ".dbf", ".prj":
		default:
			continue
		}
		path := filepath.Join(dir, filepath.Base(f.Name))
		if err := extractFile(f, path); err != nil {
			return nil, err
		}
		if filepath.Ext(name) == ".shp" {
			shpPath = path
		}
	}
	if shpPath == "" {
		return nil, fmt.Errorf("archive contains no .shp file")
	}

	return readShapefile(shpPath)
}

func extractFile(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}

func readShapefile(path string) (map[string]orb.MultiPolygon, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	geoidField := -1
	for i, f := range r.Fields() {
		switch strings.ToUpper(strings.TrimRight(f.String(), "\x00")) {
		case "GEOID20":
			geoidField = i
		case "GEOID":
			if geoidField < 0 {
				geoidField = i
			}
		}
	}
	if geoidField < 0 {
		return nil, fmt.Errorf("shapefile has no GEOID attribute")
	}

	shapes := make(map[string]orb.MultiPolygon)
	for r.Next() {
		n, s := r.Shape()
		geoid := strings.TrimSpace(r.ReadAttribute(n, geoidField))
		if geoid == "" {
			return nil, fmt.Errorf("shape %d has an empty GEOID", n)
		}

		poly, ok := s.(*shp.Polygon)
		if !ok {
			return nil, fmt.Errorf("unit %s is %T, want polygon", geoid, s)
		}
		mp, err := shapeToMultiPolygon(poly.Points, poly.Parts)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", geoid, err)
		}
		shapes[geoid] = project.MultiPolygon(mp, project.WGS84.ToMercator)
	}
	if err := r.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}
	if len(shapes) == 0 {
		return nil, fmt.Errorf("shapefile has no shapes")
	}
	return shapes, nil
}

// shapeToMultiPolygon regroups a shapefile's rings into polygons.
// Shapefile outer rings wind clockwise; counter-clockwise rings are
// holes in the preceding outer ring.
func shapeToMultiPolygon(points []shp.Point, parts []int32) (orb.MultiPolygon, error) {
	if len(points) == 0 || len(parts) == 0 {
		return nil, fmt.Errorf("shape has no rings")
	}

	var mp orb.MultiPolygon
	var cur orb.Polygon
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) >= end || end > len(points) {
			return nil, fmt.Errorf("ring %d is out of bounds", i)
		}

		ring := make(orb.Ring, 0, end-int(start)+1)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if len(ring) < 4 {
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}

		if ring.Orientation() == orb.CW || cur == nil {
			if cur != nil {
				mp = append(mp, cur)
			}
			cur = orb.Polygon{ring}
		} else {
			cur = append(cur, ring)
		}
	}
	if cur != nil {
		mp = append(mp, cur)
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("shape has no usable rings")
	}
	return mp, nil
}
