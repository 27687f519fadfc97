package partisan

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/wardline/wardline/pkg/apportion"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/httputil"
)

// countyReturnsURL is the MEDSL county presidential returns dataset
// (2000-2024) on the Harvard Dataverse, published as one national
// tab-separated file.
const countyReturnsURL = "https://dataverse.harvard.edu/api/access/datafile/13256842"

// DefaultYear is the election year used when the caller does not pick
// one.
const DefaultYear = 2020

// electionYears lists the presidential elections the MEDSL dataset
// covers.
var electionYears = []int{2000, 2004, 2008, 2012, 2016, 2020, 2024}

// MEDSL provides county-level two-party presidential shares from the
// MEDSL returns dataset. Scores key by the 5-digit state+county GEOID
// prefix; the score is the Democratic share of the two-party vote.
type MEDSL struct {
	URL     string
	fetcher *httputil.Fetcher
}

// NewMEDSL creates the provider on the given fetcher, which supplies
// retries and download caching.
func NewMEDSL(f *httputil.Fetcher) *MEDSL {
	return &MEDSL{URL: countyReturnsURL, fetcher: f}
}

// Meta describes the source for chain ordering.
func (m *MEDSL) Meta() Metadata {
	return Metadata{
		Key:         "medsl",
		Label:       "County presidential returns (MEDSL)",
		Granularity: GranularityCounty,
		Years:       electionYears,
		Priority:    100,
		Note:        "certified county-level results, 2000-2024",
	}
}

// TryFetch downloads the national returns file and reduces it to
// per-county scores for one state and year. No rows for the requested
// combination is an error so the chain can fall through.
func (m *MEDSL) TryFetch(ctx context.Context, state string, year int) (Scores, error) {
	if err := apperrors.ValidateStateFIPS(state); err != nil {
		return nil, err
	}
	st, ok := apportion.StateByFIPS(state)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidState, "no reference data for state %s", state)
	}
	if year == 0 {
		year = DefaultYear
	}

	body, _, err := m.fetcher.Get(ctx, m.URL)
	if err != nil {
		return nil, err
	}
	return reduceCountyReturns(body, st.Abbr, state, year)
}

// reduceCountyReturns parses the tab-separated national file and
// aggregates the two-party presidential vote per county.
func reduceCountyReturns(data []byte, abbr, stateFIPS string, year int) (Scores, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "parse county returns")
	}
	if len(rows) < 2 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "county returns file is empty")
	}

	col := make(map[string]int)
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"year", "state_po", "county_fips", "office", "party", "candidatevotes"} {
		if _, ok := col[name]; !ok {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
				"county returns file lacks column %q", name)
		}
	}

	type tally struct{ dem, total float64 }
	counties := make(map[string]*tally)
	wantYear := strconv.Itoa(year)

	for _, row := range rows[1:] {
		if field(row, col["year"]) != wantYear || field(row, col["state_po"]) != abbr {
			continue
		}
		if !strings.Contains(strings.ToUpper(field(row, col["office"])), "PRESIDENT") {
			continue
		}
		party := strings.ToUpper(field(row, col["party"]))
		if party != "DEMOCRAT" && party != "REPUBLICAN" {
			continue
		}
		votes, err := strconv.ParseFloat(field(row, col["candidatevotes"]), 64)
		if err != nil || votes < 0 {
			continue
		}

		fips := normalizeCountyFIPS(field(row, col["county_fips"]), stateFIPS)
		if fips == "" {
			continue
		}
		t := counties[fips]
		if t == nil {
			t = &tally{}
			counties[fips] = t
		}
		t.total += votes
		if party == "DEMOCRAT" {
			t.dem += votes
		}
	}

	scores := make(Scores, len(counties))
	for fips, t := range counties {
		if t.total > 0 {
			scores[fips] = t.dem / t.total
		}
	}
	if len(scores) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
			"no county returns for state %s in %d", abbr, year)
	}
	return scores, nil
}

// normalizeCountyFIPS returns the 5-digit state+county code, restoring
// a leading zero the source sometimes drops. Codes for other states or
// malformed values return "".
func normalizeCountyFIPS(raw, stateFIPS string) string {
	fips := strings.TrimSpace(raw)
	if len(fips) == 4 {
		fips = "0" + fips
	}
	if len(fips) != 5 || !strings.HasPrefix(fips, stateFIPS) {
		return ""
	}
	for _, r := range fips {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return fips
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
