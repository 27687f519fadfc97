package census

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/httputil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(httputil.NewFetcher(nil, nil, "census"), "")
	c.URL = srv.URL + "/data/2020/dec/pl"
	return c
}

func writeTable(t *testing.T, w http.ResponseWriter, rows [][]any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		t.Errorf("encode table: %v", err)
	}
}

func plHeader(geography ...string) []any {
	header := []any{"P1_001N", "P1_003N", "P1_004N", "P1_005N", "P1_006N", "P1_007N", "P1_008N"}
	for _, g := range geography {
		header = append(header, g)
	}
	return header
}

func TestTracts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("for"); got != "tract:*" {
			t.Errorf("for = %q, want tract:*", got)
		}
		if got := r.URL.Query().Get("in"); got != "state:06" {
			t.Errorf("in = %q, want state:06", got)
		}
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Errorf("key = %q, want secret", got)
		}
		writeTable(t, w, [][]any{
			plHeader("state", "county", "tract"),
			{"4000", "2500", "600", "0", "", nil, "10", "06", "001", "400100"},
			{"", "0", "0", "0", "0", "0", "0", "06", "001", "400200"},
		})
	})
	c.APIKey = "secret"

	rows, err := c.Tracts(context.Background(), "06")
	if err != nil {
		t.Fatalf("Tracts() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Tracts() returned %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.GEOID != "06001400100" {
		t.Errorf("GEOID = %q, want 06001400100", first.GEOID)
	}
	if first.Pop != 4000 || first.Baseline != 2500 {
		t.Errorf("Pop/Baseline = %d/%d, want 4000/2500", first.Pop, first.Baseline)
	}
	// Blank and null subtotal cells coerce to zero.
	wantSub := map[string]int64{"P1_004N": 600, "P1_005N": 0, "P1_006N": 0, "P1_007N": 0, "P1_008N": 10}
	if !reflect.DeepEqual(first.Subtotals, wantSub) {
		t.Errorf("Subtotals = %v, want %v", first.Subtotals, wantSub)
	}
	if rows[1].Pop != 0 {
		t.Errorf("blank population = %d, want 0", rows[1].Pop)
	}
}

func TestTractsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body [][]any
		raw  string
	}{
		{name: "not json rows", raw: "<html>maintenance</html>"},
		{name: "header only", body: [][]any{plHeader("state", "county", "tract")}},
		{
			name: "missing column",
			body: [][]any{
				{"P1_001N", "state", "county", "tract"},
				{"4000", "06", "001", "400100"},
			},
		},
		{
			name: "non-numeric count",
			body: [][]any{
				plHeader("state", "county", "tract"),
				{"lots", "0", "0", "0", "0", "0", "0", "06", "001", "400100"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.raw != "" {
					_, _ = w.Write([]byte(tt.raw))
					return
				}
				writeTable(t, w, tt.body)
			})
			if _, err := c.Tracts(context.Background(), "06"); apperrors.GetCode(err) != apperrors.ErrCodeUpstreamData {
				t.Errorf("Tracts() error = %v, want UPSTREAM_DATA", err)
			}
		})
	}
}

func TestTractsRejectsUnknownState(t *testing.T) {
	c := NewClient(httputil.NewFetcher(nil, nil, "census"), "")
	if _, err := c.Tracts(context.Background(), "99"); apperrors.GetCode(err) != apperrors.ErrCodeInvalidState {
		t.Errorf("Tracts(99) error = %v, want INVALID_STATE", err)
	}
}

func TestCounties(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeTable(t, w, [][]any{
			{"NAME", "state", "county"},
			{"Baker", "06", "003"},
			{"Alpine", "06", "001"},
		})
	})

	counties, err := c.Counties(context.Background(), "06")
	if err != nil {
		t.Fatalf("Counties() error = %v", err)
	}
	if want := []string{"001", "003"}; !reflect.DeepEqual(counties, want) {
		t.Errorf("Counties() = %v, want %v", counties, want)
	}
}

func blockHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("for") == "county:*":
			writeTable(t, w, [][]any{
				{"NAME", "state", "county"},
				{"Baker", "06", "003"},
				{"Alpine", "06", "001"},
			})
		case q.Get("in") == "state:06 county:001":
			writeTable(t, w, [][]any{
				plHeader("state", "county", "tract", "block"),
				{"120", "80", "0", "0", "0", "0", "0", "06", "001", "400100", "1001"},
				{"100", "60", "0", "0", "0", "0", "0", "06", "001", "400100", "1000"},
			})
		case q.Get("in") == "state:06 county:003":
			writeTable(t, w, [][]any{
				plHeader("state", "county", "tract", "block"),
				{"90", "30", "0", "0", "0", "0", "0", "06", "003", "400200", "2000"},
			})
		default:
			http.NotFound(w, r)
		}
	}
}

func TestBlocks(t *testing.T) {
	c := newTestClient(t, blockHandler(t))

	var doneSeq []int
	rows, err := c.Blocks(context.Background(), "06", func(done, total int) {
		if total != 2 {
			t.Errorf("progress total = %d, want 2", total)
		}
		doneSeq = append(doneSeq, done)
	})
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}

	var got []string
	for _, row := range rows {
		got = append(got, row.GEOID)
	}
	want := []string{"060014001001000", "060014001001001", "060034002002000"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Blocks() GEOIDs = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(doneSeq, []int{1, 2}) {
		t.Errorf("progress sequence = %v, want [1 2]", doneSeq)
	}
}

func TestBlocksCountyFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("for") == "county:*" {
			writeTable(t, w, [][]any{
				{"NAME", "state", "county"},
				{"Alpine", "06", "001"},
			})
			return
		}
		http.NotFound(w, r)
	})

	if _, err := c.Blocks(context.Background(), "06", nil); apperrors.GetCode(err) != apperrors.ErrCodeNotFound {
		t.Errorf("Blocks() error = %v, want NOT_FOUND", err)
	}
}
