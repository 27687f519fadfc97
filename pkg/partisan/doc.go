// Package partisan acquires per-unit partisan scores from ranked
// sources.
//
// A score is the Democratic share of the two-party vote in [0, 1],
// keyed by GEOID prefix. The [Chain] tries its registered [Provider]
// sources in order of granularity, distance to the requested election
// year, and base priority; the first source that produces scores wins,
// and a chain where every source fails degrades to neutral scores
// rather than failing the run. [Scores.Lookup] attaches scores to units
// by longest-prefix match, so county-grade sources cover all tracts and
// blocks under each county.
//
// Sources: [MEDSL] (county presidential returns, 2000-2024),
// [FileProvider] (local GEOID,score CSV), [Uniform] (terminal neutral
// fallback).
package partisan
