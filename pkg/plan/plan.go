package plan

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

// Plan is one finished districting map: the assignment of every unit to
// a district, plus the parameters that produced it. Plans are the unit
// of persistence; everything else (metrics, exports, rendering) is
// derived from a Plan and the unit table it was built against.
type Plan struct {
	ID             string    `json:"id"`
	State          string    `json:"state,omitempty"`
	Mode           string    `json:"mode"`
	Engine         string    `json:"engine"`
	SeatsRequested int       `json:"seats_requested"`
	SeatsProduced  int       `json:"seats_produced"`
	CreatedAt      time.Time `json:"created_at"`
	Districts      []Entry   `json:"districts"`
}

// Entry is one district's row in the plan: a 1-based district number,
// the sorted GEOIDs of its units, and its total population.
type Entry struct {
	ID    int      `json:"id"`
	Units []string `json:"units"`
	Pop   int64    `json:"population"`
}

// New assembles a Plan from partitioner output. Unit ids inside each
// district are sorted so two runs that produce the same map serialize
// identically (apart from id and timestamp).
func New(state, mode, engine string, seatsRequested int, districts []*district.District) *Plan {
	p := &Plan{
		ID:             uuid.NewString(),
		State:          state,
		Mode:           mode,
		Engine:         engine,
		SeatsRequested: seatsRequested,
		SeatsProduced:  len(districts),
		CreatedAt:      time.Now().UTC(),
		Districts:      make([]Entry, len(districts)),
	}
	for i, d := range districts {
		ids := make([]string, len(d.Units))
		for j, u := range d.Units {
			ids[j] = u.GEOID
		}
		sort.Strings(ids)
		p.Districts[i] = Entry{ID: i + 1, Units: ids, Pop: d.Pop}
	}
	return p
}

// TotalPop returns the population across all districts.
func (p *Plan) TotalPop() int64 {
	var total int64
	for _, e := range p.Districts {
		total += e.Pop
	}
	return total
}

// Assignment maps every unit GEOID to its district number.
func (p *Plan) Assignment() map[string]int {
	m := make(map[string]int)
	for _, e := range p.Districts {
		for _, id := range e.Units {
			m[id] = e.ID
		}
	}
	return m
}

// Resolve rebuilds the district groups against a unit table, restoring
// the geometry and attributes a serialized plan does not carry. Every
// plan unit must exist in the table.
func (p *Plan) Resolve(table *block.Table) ([]*district.District, error) {
	districts := make([]*district.District, len(p.Districts))
	for i, e := range p.Districts {
		units := make([]*block.Unit, len(e.Units))
		var pop int64
		for j, id := range e.Units {
			u, ok := table.Lookup(id)
			if !ok {
				return nil, apperrors.New(apperrors.ErrCodeInvalidPlan,
					"district %d references unit %s not present in the table", e.ID, id)
			}
			units[j] = u
			pop += u.Pop
		}
		districts[i] = &district.District{Units: units, Pop: pop}
	}
	return districts, nil
}

// validate checks structural integrity: at least one district, no empty
// or duplicate unit ids, and entry populations that are non-negative.
// Read applies it to everything that comes off disk.
func (p *Plan) validate() error {
	if len(p.Districts) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidPlan, "plan has no districts")
	}
	seen := make(map[string]int)
	for _, e := range p.Districts {
		if len(e.Units) == 0 {
			return apperrors.New(apperrors.ErrCodeInvalidPlan, "district %d has no units", e.ID)
		}
		if e.Pop < 0 {
			return apperrors.New(apperrors.ErrCodeInvalidPlan,
				"district %d has negative population %d", e.ID, e.Pop)
		}
		for _, id := range e.Units {
			if id == "" {
				return apperrors.New(apperrors.ErrCodeInvalidPlan,
					"district %d contains an empty unit id", e.ID)
			}
			if prev, ok := seen[id]; ok {
				return apperrors.New(apperrors.ErrCodeInvalidPlan,
					"unit %s assigned to both district %d and district %d", id, prev, e.ID)
			}
			seen[id] = e.ID
		}
	}
	return nil
}
