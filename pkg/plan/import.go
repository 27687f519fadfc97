package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// ReadJSON decodes a plan from r and validates its structure: at least
// one district, no empty or duplicate unit ids. Structural problems
// surface as INVALID_PLAN errors; malformed JSON is wrapped the same
// way so callers can treat any unreadable plan file uniformly.
func ReadJSON(r io.Reader) (*Plan, error) {
	var p Plan
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPlan, err, "decode plan")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ImportJSON reads and validates a plan file at path.
func ImportJSON(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err,
				"plan file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
