package partisan

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/httputil"
)

type fakeProvider struct {
	meta   Metadata
	scores Scores
	err    error
	calls  int
}

func (f *fakeProvider) Meta() Metadata { return f.meta }

func (f *fakeProvider) TryFetch(ctx context.Context, state string, year int) (Scores, error) {
	f.calls++
	return f.scores, f.err
}

func TestScoresLookup(t *testing.T) {
	scores := Scores{
		"06":          0.2,
		"06037":       0.7,
		"06037000100": 0.9,
	}

	tests := []struct {
		name  string
		geoid string
		want  float64
	}{
		{"exact match", "06037000100", 0.9},
		{"county prefix", "06037999999999", 0.7},
		{"state prefix", "06075000100", 0.2},
		{"no match", "48001000100", block.NeutralPartisan},
		{"empty id", "", block.NeutralPartisan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scores.Lookup(tt.geoid); got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.geoid, got, tt.want)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	precinct := &fakeProvider{meta: Metadata{Key: "precinct", Granularity: GranularityPrecinct, Priority: 10}}
	county2020 := &fakeProvider{meta: Metadata{Key: "c2020", Granularity: GranularityCounty, Years: []int{2020}, Priority: 100}}
	county2016 := &fakeProvider{meta: Metadata{Key: "c2016", Granularity: GranularityCounty, Years: []int{2016}, Priority: 50}}
	chain := NewChain(county2020, county2016, precinct)

	tests := []struct {
		name string
		year int
		want []string
	}{
		{"year matches newer source", 2020, []string{"precinct", "c2020", "c2016"}},
		{"year matches older source", 2016, []string{"precinct", "c2016", "c2020"}},
		{"no year falls back to priority", 0, []string{"precinct", "c2016", "c2020"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, p := range chain.Order(tt.year) {
				got = append(got, p.Meta().Key)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Order(%d) = %v, want %v", tt.year, got, tt.want)
			}
		})
	}
}

func TestChainFetchFirstSuccessWins(t *testing.T) {
	failing := &fakeProvider{
		meta: Metadata{Key: "broken", Granularity: GranularityPrecinct, Priority: 1},
		err:  apperrors.New(apperrors.ErrCodeNetwork, "unreachable"),
	}
	good := &fakeProvider{
		meta:   Metadata{Key: "good", Granularity: GranularityCounty, Priority: 1},
		scores: Scores{"06037": 0.6},
	}
	spare := &fakeProvider{
		meta:   Metadata{Key: "spare", Granularity: GranularityCounty, Priority: 2},
		scores: Scores{"06037": 0.1},
	}

	scores, meta, err := NewChain(failing, good, spare).Fetch(context.Background(), "06", 2020)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if meta.Key != "good" {
		t.Errorf("Fetch() meta.Key = %q, want %q", meta.Key, "good")
	}
	if scores["06037"] != 0.6 {
		t.Errorf("Fetch() scores = %v, want the first successful source's", scores)
	}
	if failing.calls != 1 || good.calls != 1 || spare.calls != 0 {
		t.Errorf("calls = %d/%d/%d, want 1/1/0", failing.calls, good.calls, spare.calls)
	}
}

func TestChainFetchDegradesToNeutral(t *testing.T) {
	failing := &fakeProvider{
		meta: Metadata{Key: "broken", Granularity: GranularityCounty, Priority: 1},
		err:  apperrors.New(apperrors.ErrCodeNetwork, "unreachable"),
	}

	scores, meta, err := NewChain(failing).Fetch(context.Background(), "06", 2020)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if meta.Key != "neutral" {
		t.Errorf("Fetch() meta.Key = %q, want %q", meta.Key, "neutral")
	}
	if got := scores.Lookup("06037000100"); got != block.NeutralPartisan {
		t.Errorf("degraded Lookup() = %v, want neutral", got)
	}
}

func TestChainFetchUniformIsTerminal(t *testing.T) {
	failing := &fakeProvider{
		meta: Metadata{Key: "broken", Granularity: GranularityCounty, Priority: 1},
		err:  apperrors.New(apperrors.ErrCodeNetwork, "unreachable"),
	}

	scores, meta, err := NewChain(failing, Uniform{}).Fetch(context.Background(), "06", 2020)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if meta.Key != "uniform" {
		t.Errorf("Fetch() meta.Key = %q, want %q", meta.Key, "uniform")
	}
	if len(scores) != 0 {
		t.Errorf("uniform scores = %v, want empty", scores)
	}
}

func TestChainForKey(t *testing.T) {
	good := &fakeProvider{meta: Metadata{Key: "good", Granularity: GranularityCounty}}
	chain := NewChain(good, Uniform{})

	p, err := chain.ForKey("uniform")
	if err != nil {
		t.Fatalf("ForKey() error = %v", err)
	}
	if p.Meta().Key != "uniform" {
		t.Errorf("ForKey() = %q, want uniform", p.Meta().Key)
	}

	if _, err := chain.ForKey("nope"); apperrors.GetCode(err) != apperrors.ErrCodeInvalidConfig {
		t.Errorf("ForKey(unknown) error = %v, want INVALID_CONFIGURATION", err)
	}
}

func TestChainFetchFromReportsErrors(t *testing.T) {
	failing := &fakeProvider{
		meta: Metadata{Key: "broken", Granularity: GranularityCounty},
		err:  apperrors.New(apperrors.ErrCodeNetwork, "unreachable"),
	}

	_, _, err := NewChain(failing).FetchFrom(context.Background(), "broken", "06", 2020)
	if apperrors.GetCode(err) != apperrors.ErrCodeNetwork {
		t.Errorf("FetchFrom() error = %v, want NETWORK_ERROR", err)
	}
}

func countyReturnsTSV() string {
	rows := [][]string{
		{"year", "state_po", "county_fips", "office", "party", "candidatevotes"},
		{"2020", "CA", "06037", "US PRESIDENT", "DEMOCRAT", "3000"},
		{"2020", "CA", "06037", "US PRESIDENT", "REPUBLICAN", "1000"},
		{"2020", "CA", "06037", "US PRESIDENT", "GREEN", "500"},
		{"2020", "CA", "6001", "US PRESIDENT", "DEMOCRAT", "100"},
		{"2020", "CA", "06001", "US PRESIDENT", "REPUBLICAN", "100"},
		{"2016", "CA", "06037", "US PRESIDENT", "DEMOCRAT", "9999"},
		{"2020", "TX", "48001", "US PRESIDENT", "DEMOCRAT", "50"},
		{"2020", "CA", "06075", "US SENATE", "DEMOCRAT", "50"},
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, "\t")
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestMEDSLTryFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(countyReturnsTSV()))
	}))
	defer srv.Close()

	m := NewMEDSL(httputil.NewFetcher(nil, nil, "partisan"))
	m.URL = srv.URL + "/countypres"

	scores, err := m.TryFetch(context.Background(), "06", 2020)
	if err != nil {
		t.Fatalf("TryFetch() error = %v", err)
	}

	// Third parties are excluded, so 06037 is 3000 of 4000 two-party
	// votes. The 4-digit row folds into 06001 after zero padding.
	if len(scores) != 2 {
		t.Fatalf("TryFetch() returned %d counties, want 2: %v", len(scores), scores)
	}
	if got := scores["06037"]; math.Abs(got-0.75) > 1e-9 {
		t.Errorf("score[06037] = %v, want 0.75", got)
	}
	if got := scores["06001"]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("score[06001] = %v, want 0.5", got)
	}
}

func TestMEDSLTryFetchNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(countyReturnsTSV()))
	}))
	defer srv.Close()

	m := NewMEDSL(httputil.NewFetcher(nil, nil, "partisan"))
	m.URL = srv.URL + "/countypres"

	if _, err := m.TryFetch(context.Background(), "48", 2024); apperrors.GetCode(err) != apperrors.ErrCodeUpstreamData {
		t.Errorf("TryFetch(no rows) error = %v, want UPSTREAM_DATA", err)
	}
	if _, err := m.TryFetch(context.Background(), "99", 2020); apperrors.GetCode(err) != apperrors.ErrCodeInvalidState {
		t.Errorf("TryFetch(bad state) error = %v, want INVALID_STATE", err)
	}
}

func TestMEDSLMissingColumn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("year\tstate_po\toffice\n2020\tCA\tUS PRESIDENT\n"))
	}))
	defer srv.Close()

	m := NewMEDSL(httputil.NewFetcher(nil, nil, "partisan"))
	m.URL = srv.URL + "/countypres"

	if _, err := m.TryFetch(context.Background(), "06", 2020); apperrors.GetCode(err) != apperrors.ErrCodeUpstreamData {
		t.Errorf("TryFetch(missing column) error = %v, want UPSTREAM_DATA", err)
	}
}

func TestFileProvider(t *testing.T) {
	writeFile := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "scores.csv")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		return path
	}

	t.Run("with header", func(t *testing.T) {
		p := NewFileProvider(writeFile(t, "GEOID,score\n06037000100,0.8\n06037000200,0.3\n"))
		scores, err := p.TryFetch(context.Background(), "06", 0)
		if err != nil {
			t.Fatalf("TryFetch() error = %v", err)
		}
		if len(scores) != 2 || scores["06037000100"] != 0.8 {
			t.Errorf("TryFetch() = %v, want two scored units", scores)
		}
	})

	t.Run("headerless", func(t *testing.T) {
		p := NewFileProvider(writeFile(t, "06037000100,0.8\n"))
		scores, err := p.TryFetch(context.Background(), "06", 0)
		if err != nil {
			t.Fatalf("TryFetch() error = %v", err)
		}
		if scores["06037000100"] != 0.8 {
			t.Errorf("TryFetch() = %v, want score for 06037000100", scores)
		}
	})

	t.Run("score out of range", func(t *testing.T) {
		p := NewFileProvider(writeFile(t, "06037000100,1.8\n"))
		if _, err := p.TryFetch(context.Background(), "06", 0); apperrors.GetCode(err) != apperrors.ErrCodeUpstreamData {
			t.Errorf("TryFetch() error = %v, want UPSTREAM_DATA", err)
		}
	})

	t.Run("bad number past header", func(t *testing.T) {
		p := NewFileProvider(writeFile(t, "GEOID,score\n06037000100,abc\n"))
		if _, err := p.TryFetch(context.Background(), "06", 0); apperrors.GetCode(err) != apperrors.ErrCodeUpstreamData {
			t.Errorf("TryFetch() error = %v, want UPSTREAM_DATA", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		p := NewFileProvider(filepath.Join(t.TempDir(), "absent.csv"))
		if _, err := p.TryFetch(context.Background(), "06", 0); apperrors.GetCode(err) != apperrors.ErrCodeFileNotFound {
			t.Errorf("TryFetch() error = %v, want FILE_NOT_FOUND", err)
		}
	})
}

func TestUniform(t *testing.T) {
	scores, err := Uniform{}.TryFetch(context.Background(), "06", 2020)
	if err != nil {
		t.Fatalf("TryFetch() error = %v", err)
	}
	if scores == nil {
		t.Fatal("TryFetch() returned nil scores, want empty set")
	}
	if got := scores.Lookup("06037000100"); got != block.NeutralPartisan {
		t.Errorf("Lookup() = %v, want neutral", got)
	}
}
