package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
	"github.com/wardline/wardline/pkg/plan"
)

// Color modes for the district map.
const (
	ColorByDistrict = "district"
	ColorByPartisan = "partisan"
)

// categorical is the district fill cycle, a tab20-style palette.
var categorical = []string{
	"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
	"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
	"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
	"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
}

// MapOption configures the choropleth renderer.
type MapOption func(*mapRenderer)

type mapRenderer struct {
	size    float64
	stroke  string
	strokeW float64
	mode    string
	title   string
}

// WithSize sets the output width in pixels. Height follows the map's
// aspect ratio.
func WithSize(px int) MapOption { return func(r *mapRenderer) { r.size = float64(px) } }

// WithStroke sets the district border color and width.
func WithStroke(color string, width float64) MapOption {
	return func(r *mapRenderer) { r.stroke, r.strokeW = color, width }
}

// WithColorMode selects categorical district fills or the red-blue
// partisan ramp.
func WithColorMode(mode string) MapOption { return func(r *mapRenderer) { r.mode = mode } }

// WithTitle adds a heading above the map.
func WithTitle(title string) MapOption { return func(r *mapRenderer) { r.title = title } }

// MapSVG draws districts as a choropleth map. District fills cycle a
// categorical palette, or encode the population-weighted partisan share
// on a diverging red-blue ramp. Districts are drawn dissolved, so only
// district borders are stroked.
func MapSVG(districts []*district.District, opts ...MapOption) ([]byte, error) {
	r := mapRenderer{size: 1000, stroke: "#1a1a1a", strokeW: 1, mode: ColorByDistrict}
	for _, opt := range opts {
		opt(&r)
	}
	if len(districts) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "no districts to render")
	}
	if r.mode != ColorByDistrict && r.mode != ColorByPartisan {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"unknown color mode %q (want %s or %s)", r.mode, ColorByDistrict, ColorByPartisan)
	}

	geoms := make([]orb.MultiPolygon, len(districts))
	bound := orb.Bound{}
	for i, d := range districts {
		geoms[i] = districtGeometry(d)
		if i == 0 {
			bound = geoms[i].Bound()
		} else {
			bound = bound.Union(geoms[i].Bound())
		}
	}
	spanX := bound.Max[0] - bound.Min[0]
	spanY := bound.Max[1] - bound.Min[1]
	if spanX <= 0 || spanY <= 0 {
		return nil, apperrors.New(apperrors.ErrCodeDegenerateRegion, "map extent is empty")
	}

	margin := r.size * 0.03
	titleBand := 0.0
	if r.title != "" {
		titleBand = r.size * 0.06
	}
	scale := (r.size - 2*margin) / spanX
	width := r.size
	height := spanY*scale + 2*margin + titleBand

	tx := func(p orb.Point) (float64, float64) {
		return margin + (p[0]-bound.Min[0])*scale, titleBand + margin + (bound.Max[1]-p[1])*scale
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	if r.title != "" {
		fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="%.1f">%s</text>`+"\n",
			width/2, titleBand*0.65, r.size*0.035, escapeText(r.title))
	}
	for i, d := range districts {
		fmt.Fprintf(&buf, `  <path d="%s" fill="%s" fill-rule="evenodd" stroke="%s" stroke-width="%.2f"/>`+"\n",
			pathData(geoms[i], tx), r.fill(i, d), r.stroke, r.strokeW)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

func (r *mapRenderer) fill(i int, d *district.District) string {
	if r.mode == ColorByPartisan {
		return partisanColor(plan.WeightedPartisanShare(d.Units))
	}
	return categorical[i%len(categorical)]
}

// districtGeometry dissolves a district's units. When the union fails
// the raw unit polygons are drawn instead, which keeps the map usable
// at the cost of visible interior borders.
func districtGeometry(d *district.District) orb.MultiPolygon {
	mp, err := geo.Union(d.Units)
	if err == nil {
		return mp
	}
	var merged orb.MultiPolygon
	for _, u := range d.Units {
		merged = append(merged, u.Geometry...)
	}
	return merged
}

func pathData(mp orb.MultiPolygon, tx func(orb.Point) (float64, float64)) string {
	var b strings.Builder
	for _, poly := range mp {
		for _, ring := range poly {
			for k, p := range ring {
				x, y := tx(p)
				if k == 0 {
					fmt.Fprintf(&b, "M%.2f %.2f", x, y)
				} else {
					fmt.Fprintf(&b, " L%.2f %.2f", x, y)
				}
			}
			b.WriteString(" Z ")
		}
	}
	return strings.TrimSpace(b.String())
}

// Diverging ramp endpoints, the usual red-blue extremes with a near
// white midpoint at 0.5.
var (
	rampRed   = [3]float64{178, 24, 43}
	rampWhite = [3]float64{247, 247, 247}
	rampBlue  = [3]float64{33, 102, 172}
)

// partisanColor maps a share in [0,1] onto the ramp: 0 is deep red,
// 0.5 neutral, 1 deep blue.
func partisanColor(share float64) string {
	share = math.Max(0, math.Min(1, share))

	from, to := rampRed, rampWhite
	t := share / 0.5
	if share > 0.5 {
		from, to = rampWhite, rampBlue
		t = (share - 0.5) / 0.5
	}

	var rgb [3]int
	for i := range rgb {
		rgb[i] = int(math.Round(from[i] + t*(to[i]-from[i])))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string { return textEscaper.Replace(s) }
