package plan

import (
	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/district"
	"github.com/wardline/wardline/pkg/geo"
)

// Metrics summarizes one district.
type Metrics struct {
	District      int     `json:"district"`
	Pop           int64   `json:"population"`
	DeviationPct  float64 `json:"deviation_pct"`
	PolsbyPopper  float64 `json:"polsby_popper"`
	PartisanShare float64 `json:"partisan_share"`
	MinorityShare float64 `json:"minority_share"`
}

// Summarize computes per-district metrics. The deviation baseline is
// the ideal population for the requested seat count, so a degraded run
// that produced fewer districts still reports against the target it
// missed. seatsRequested below 1 falls back to the produced count.
func Summarize(engine geo.Engine, districts []*district.District, seatsRequested int) []Metrics {
	if seatsRequested < 1 {
		seatsRequested = len(districts)
	}
	var total int64
	for _, d := range districts {
		total += d.Pop
	}
	ideal := 0.0
	if seatsRequested > 0 {
		ideal = float64(total) / float64(seatsRequested)
	}

	out := make([]Metrics, len(districts))
	for i, d := range districts {
		m := Metrics{
			District:      i + 1,
			Pop:           d.Pop,
			PolsbyPopper:  geo.Compactness(engine, d.Units),
			PartisanShare: WeightedPartisanShare(d.Units),
			MinorityShare: minorityShare(d.Units),
		}
		if ideal > 0 {
			m.DeviationPct = (float64(d.Pop) - ideal) / ideal * 100
		}
		out[i] = m
	}
	return out
}

// WeightedPartisanShare is the population-weighted mean of the units'
// partisan scores. A zero-population group is neutral.
func WeightedPartisanShare(units []*block.Unit) float64 {
	var weighted float64
	var pop int64
	for _, u := range units {
		weighted += u.Partisan * float64(u.Pop)
		pop += u.Pop
	}
	if pop == 0 {
		return block.NeutralPartisan
	}
	return weighted / float64(pop)
}

func minorityShare(units []*block.Unit) float64 {
	var pop, baseline int64
	for _, u := range units {
		pop += u.Pop
		baseline += u.Baseline
	}
	if pop == 0 {
		return 0
	}
	return 1 - float64(baseline)/float64(pop)
}
