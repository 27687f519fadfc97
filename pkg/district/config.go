package district

import (
	"runtime"

	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
)

// Operating modes. They differ only in the partisan weight: fair zeroes
// it, gerrymander forces it to 1 regardless of what the caller set.
const (
	ModeFair        = "fair"
	ModeGerrymander = "gerrymander"
)

// ValidModes is the set of supported operating modes.
var ValidModes = map[string]bool{
	ModeFair:        true,
	ModeGerrymander: true,
}

// Contiguity handling during the split search.
const (
	// ContiguityOff ignores contiguity entirely.
	ContiguityOff = "off"
	// ContiguityWarn leaves the search alone; callers check the final
	// districts and report the broken ones.
	ContiguityWarn = "warn"
	// ContiguityStrict discards candidate splits whose sides are not
	// contiguous, falling back like any other exhausted search.
	ContiguityStrict = "strict"
)

// ValidContiguity is the set of supported contiguity policies.
var ValidContiguity = map[string]bool{
	ContiguityOff:    true,
	ContiguityWarn:   true,
	ContiguityStrict: true,
}

// Default weights match the balanced search: population equality and
// compactness fully on, communities of interest honored when provided.
const (
	DefaultPopWeight     = 1.0
	DefaultCompactWeight = 1.0
	DefaultCOIWeight     = 1.0
)

// Config controls one partition run.
type Config struct {
	// Mode selects fair or gerrymander parameterization.
	Mode string

	// Scoring weights, each in [0, 1]. PartisanWeight is overwritten by
	// Mode during validation.
	PopWeight      float64
	CompactWeight  float64
	PartisanWeight float64
	COIWeight      float64

	// VRA enables the minority-share preservation term.
	VRA bool

	// COI designates community-of-interest units by GEOID. Empty
	// disables the term.
	COI map[string]bool

	// Engine is the geometry backend; nil selects the mesh engine.
	Engine geo.Engine

	// Contiguity selects off, warn, or strict handling.
	Contiguity string

	// Workers bounds concurrent scoring goroutines; 0 means GOMAXPROCS.
	Workers int

	// Progress, when set, receives monotonically non-decreasing
	// percentages in [0, 100] as districts complete. It is called from
	// worker goroutines and should return promptly.
	Progress func(pct int)

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// DefaultConfig returns a fair-mode configuration with balanced
// weights.
func DefaultConfig() *Config {
	return &Config{
		Mode:          ModeFair,
		PopWeight:     DefaultPopWeight,
		CompactWeight: DefaultCompactWeight,
		COIWeight:     DefaultCOIWeight,
	}
}

// ValidateAndSetDefaults checks the weights, resolves the engine, and
// applies the mode's partisan parameterization. Idempotent.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}

	if c.Mode == "" {
		c.Mode = ModeFair
	}
	if !ValidModes[c.Mode] {
		return apperrors.New(apperrors.ErrCodeInvalidConfig,
			"invalid mode %q (must be one of: %s, %s)", c.Mode, ModeFair, ModeGerrymander)
	}

	if c.Contiguity == "" {
		c.Contiguity = ContiguityOff
	}
	if !ValidContiguity[c.Contiguity] {
		return apperrors.New(apperrors.ErrCodeInvalidConfig,
			"invalid contiguity policy %q (must be one of: %s, %s, %s)",
			c.Contiguity, ContiguityOff, ContiguityWarn, ContiguityStrict)
	}

	if err := apperrors.ValidateWeight("population", c.PopWeight); err != nil {
		return err
	}
	if err := apperrors.ValidateWeight("compactness", c.CompactWeight); err != nil {
		return err
	}
	if err := apperrors.ValidateWeight("community", c.COIWeight); err != nil {
		return err
	}

	// The mode decides the partisan weight; caller-supplied values are
	// deliberately ignored.
	switch c.Mode {
	case ModeGerrymander:
		c.PartisanWeight = 1.0
	default:
		c.PartisanWeight = 0
	}

	if c.Engine == nil {
		engine, err := geo.ForName(geo.EngineMesh)
		if err != nil {
			return err
		}
		c.Engine = engine
	}

	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}

	c.validated = true
	return nil
}
