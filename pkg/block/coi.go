package block

import (
	"encoding/csv"
	"os"
	"strings"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// coiColumns lists the header names accepted for the id column, in
// preference order. Files written by common GIS tools use any of these.
var coiColumns = []string{"GEOID", "geoid", "geoid20", "GEOID20"}

// ReadCOI reads a community-of-interest CSV and returns the GEOIDs it
// designates. The file must have a header row; the id column is matched
// against the usual GEOID spellings and falls back to the first column.
// Blank cells are skipped.
func ReadCOI(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "COI file %s not found", path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "failed to open COI file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstreamData, err, "failed to parse COI file %s", path)
	}
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "COI file %s is empty", path)
	}

	header := records[0]
	col := 0
	found := false
	for _, name := range coiColumns {
		for idx, cell := range header {
			if strings.TrimSpace(cell) == name {
				col, found = idx, true
				break
			}
		}
		if found {
			break
		}
	}

	var ids []string
	rows := records[1:]
	if !found && len(header) > 0 && isGEOID(header[0]) {
		// Headerless file: the first row is already data.
		rows = records
	}
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[col])
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "COI file %s contains no GEOIDs", path)
	}
	return ids, nil
}

func isGEOID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
