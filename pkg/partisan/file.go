package partisan

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// FileProvider reads scores from a local CSV of GEOID,score rows. An
// optional header row is skipped. Because rows carry full GEOIDs it
// ranks as a precinct-grade source.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider over the CSV at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Meta describes the source for chain ordering.
func (f *FileProvider) Meta() Metadata {
	return Metadata{
		Key:         "file",
		Label:       "Local score file",
		Granularity: GranularityPrecinct,
		Priority:    10,
		Note:        "user-supplied scores, taken at face value",
	}
}

// TryFetch loads the whole file; state and year do not filter it, since
// rows for other states simply never match a unit.
func (f *FileProvider) TryFetch(ctx context.Context, state string, year int) (Scores, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "score file %s", f.Path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "open score file %s", f.Path)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "parse score file %s", f.Path)
	}

	scores := make(Scores)
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		geoid := strings.TrimSpace(row[0])
		raw := strings.TrimSpace(row[1])

		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
				"score file %s row %d: %q is not a number", f.Path, i+1, raw)
		}
		if err := apperrors.ValidateGEOID(geoid); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err,
				"score file %s row %d", f.Path, i+1)
		}
		if score < 0 || score > 1 {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
				"score file %s row %d: score %g outside [0, 1]", f.Path, i+1, score)
		}
		scores[geoid] = score
	}
	if len(scores) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "score file %s has no rows", f.Path)
	}
	return scores, nil
}
