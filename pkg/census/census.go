// Package census fetches PL 94-171 redistricting tables from the
// decennial census API.
//
// The API is row-oriented JSON: the first row names the columns, the
// requested geography columns are appended after the data fields. Tract
// resolution is a single state-wide request; block resolution issues one
// request per county because the API caps block queries at county scope.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/httputil"
)

// apiURL serves the 2020 decennial PL 94-171 tables.
const apiURL = "https://api.census.gov/data/2020/dec/pl"

// blockWorkers bounds concurrent per-county block requests.
const blockWorkers = 4

// pl94Fields are the requested columns: total population, the
// non-minority baseline, and the remaining P1 race subtotals.
var pl94Fields = []string{"P1_001N", "P1_003N", "P1_004N", "P1_005N", "P1_006N", "P1_007N", "P1_008N"}

// Client talks to the census API. The API key is optional; unkeyed
// requests work at low volume.
type Client struct {
	URL    string
	APIKey string

	fetcher *httputil.Fetcher
}

// NewClient creates a census client on top of a shared fetcher.
func NewClient(f *httputil.Fetcher, apiKey string) *Client {
	return &Client{URL: apiURL, APIKey: apiKey, fetcher: f}
}

// Tracts fetches tract-resolution rows for a state in one request.
func (c *Client) Tracts(ctx context.Context, stateFIPS string) ([]block.Row, error) {
	if err := apperrors.ValidateStateFIPS(stateFIPS); err != nil {
		return nil, err
	}

	table, err := c.query(ctx, url.Values{
		"get": {strings.Join(pl94Fields, ",")},
		"for": {"tract:*"},
		"in":  {"state:" + stateFIPS},
	})
	if err != nil {
		return nil, err
	}
	return reduceRows(table, []string{"state", "county", "tract"})
}

// Blocks fetches block-resolution rows county by county. progress, when
// non-nil, is called after each completed county.
func (c *Client) Blocks(ctx context.Context, stateFIPS string, progress func(done, total int)) ([]block.Row, error) {
	if err := apperrors.ValidateStateFIPS(stateFIPS); err != nil {
		return nil, err
	}

	counties, err := c.Counties(ctx, stateFIPS)
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		rows []block.Row
		done int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(blockWorkers)
	for _, county := range counties {
		g.Go(func() error {
			table, err := c.query(ctx, url.Values{
				"get": {strings.Join(pl94Fields, ",")},
				"for": {"block:*"},
				"in":  {fmt.Sprintf("state:%s county:%s", stateFIPS, county)},
			})
			if err != nil {
				return fmt.Errorf("county %s: %w", county, err)
			}
			parsed, err := reduceRows(table, []string{"state", "county", "tract", "block"})
			if err != nil {
				return fmt.Errorf("county %s: %w", county, err)
			}

			mu.Lock()
			rows = append(rows, parsed...)
			done++
			if progress != nil {
				progress(done, len(counties))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].GEOID < rows[j].GEOID })
	return rows, nil
}

// Counties lists the county FIPS codes of a state in ascending order.
func (c *Client) Counties(ctx context.Context, stateFIPS string) ([]string, error) {
	if err := apperrors.ValidateStateFIPS(stateFIPS); err != nil {
		return nil, err
	}

	table, err := c.query(ctx, url.Values{
		"get": {"NAME"},
		"for": {"county:*"},
		"in":  {"state:" + stateFIPS},
	})
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, name := range table[0] {
		if name == "county" {
			idx = i
		}
	}
	if idx < 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "census response lacks column %q", "county")
	}

	counties := make([]string, 0, len(table)-1)
	for _, cells := range table[1:] {
		if idx < len(cells) && cells[idx] != "" {
			counties = append(counties, cells[idx])
		}
	}
	sort.Strings(counties)
	return counties, nil
}

// query issues one API request and decodes the row-oriented payload.
func (c *Client) query(ctx context.Context, params url.Values) ([][]string, error) {
	if c.APIKey != "" {
		params.Set("key", c.APIKey)
	}

	body, _, err := c.fetcher.Get(ctx, c.URL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "census response is not a row array")
	}
	if len(raw) < 2 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "census response has no data rows")
	}

	table := make([][]string, len(raw))
	for i, row := range raw {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = coerce(cell)
		}
		table[i] = cells
	}
	return table, nil
}

// coerce renders one JSON cell as a string. Nulls become empty.
func coerce(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// reduceRows converts an API table into rows keyed by the concatenated
// geography columns. Blank counts coerce to zero.
func reduceRows(table [][]string, geography []string) ([]block.Row, error) {
	col := make(map[string]int, len(table[0]))
	for i, name := range table[0] {
		col[name] = i
	}
	for _, name := range pl94Fields {
		if _, ok := col[name]; !ok {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "census response lacks column %q", name)
		}
	}
	for _, name := range geography {
		if _, ok := col[name]; !ok {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "census response lacks column %q", name)
		}
	}

	rows := make([]block.Row, 0, len(table)-1)
	for _, cells := range table[1:] {
		var geoid strings.Builder
		for _, g := range geography {
			if i := col[g]; i < len(cells) {
				geoid.WriteString(cells[i])
			}
		}
		id := geoid.String()

		pop, err := count(cells, col["P1_001N"])
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "unit %s", id)
		}
		baseline, err := count(cells, col["P1_003N"])
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "unit %s", id)
		}

		subtotals := make(map[string]int64, len(pl94Fields)-2)
		for _, field := range pl94Fields[2:] {
			v, err := count(cells, col[field])
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "unit %s", id)
			}
			subtotals[field] = v
		}

		rows = append(rows, block.Row{GEOID: id, Pop: pop, Baseline: baseline, Subtotals: subtotals})
	}
	return rows, nil
}

// count parses one numeric cell. Blank is zero.
func count(cells []string, i int) (int64, error) {
	if i >= len(cells) {
		return 0, nil
	}
	s := strings.TrimSpace(cells[i])
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a count", s)
	}
	return n, nil
}
