package cli

import (
	"strings"
	"testing"

	"github.com/wardline/wardline/pkg/plan"
)

func TestCheckPlanClean(t *testing.T) {
	p := &plan.Plan{SeatsRequested: 2, Districts: []plan.Entry{{ID: 1}, {ID: 2}}}
	metrics := []plan.Metrics{
		{District: 1, DeviationPct: 1.2},
		{District: 2, DeviationPct: -1.2},
	}

	issues := checkPlan(p, metrics, nil, 10.0)
	if len(issues) != 0 {
		t.Errorf("checkPlan() = %d issues, want 0: %v", len(issues), issues)
	}
}

func TestCheckPlanDeviation(t *testing.T) {
	p := &plan.Plan{SeatsRequested: 2, Districts: []plan.Entry{{ID: 1}, {ID: 2}}}
	metrics := []plan.Metrics{
		{District: 1, DeviationPct: 12.4},
		{District: 2, DeviationPct: -12.4},
	}

	issues := checkPlan(p, metrics, nil, 10.0)
	if len(issues) != 2 {
		t.Fatalf("checkPlan() = %d issues, want 2", len(issues))
	}
	if !strings.Contains(issues[0].Problem, "deviation") {
		t.Errorf("issue = %q, want deviation problem", issues[0].Problem)
	}
}

func TestCheckPlanContiguity(t *testing.T) {
	p := &plan.Plan{SeatsRequested: 3, Districts: []plan.Entry{{ID: 1}, {ID: 2}, {ID: 3}}}
	metrics := []plan.Metrics{{District: 1}, {District: 2}, {District: 3}}

	issues := checkPlan(p, metrics, []int{1}, 10.0)
	if len(issues) != 1 {
		t.Fatalf("checkPlan() = %d issues, want 1", len(issues))
	}
	if issues[0].District != 2 {
		t.Errorf("issue district = %d, want 2 (broken index 1)", issues[0].District)
	}
	if issues[0].Problem != "not contiguous" {
		t.Errorf("issue = %q, want %q", issues[0].Problem, "not contiguous")
	}
}

func TestCheckPlanSeatShortfall(t *testing.T) {
	p := &plan.Plan{SeatsRequested: 4, Districts: []plan.Entry{{ID: 1}, {ID: 2}, {ID: 3}}}
	metrics := []plan.Metrics{{District: 1}, {District: 2}, {District: 3}}

	issues := checkPlan(p, metrics, nil, 10.0)
	if len(issues) != 1 {
		t.Fatalf("checkPlan() = %d issues, want 1", len(issues))
	}
	if issues[0].District != 0 {
		t.Errorf("shortfall should be a plan-level issue, got district %d", issues[0].District)
	}
	if !strings.Contains(issues[0].Problem, "3 of 4") {
		t.Errorf("issue = %q, want seat counts", issues[0].Problem)
	}
}

func TestCheckPlanSorted(t *testing.T) {
	p := &plan.Plan{SeatsRequested: 3, Districts: []plan.Entry{{ID: 1}, {ID: 2}, {ID: 3}}}
	metrics := []plan.Metrics{
		{District: 1},
		{District: 2},
		{District: 3, DeviationPct: 50},
	}

	issues := checkPlan(p, metrics, []int{0}, 10.0)
	if len(issues) != 2 {
		t.Fatalf("checkPlan() = %d issues, want 2", len(issues))
	}
	if issues[0].District != 1 || issues[1].District != 3 {
		t.Errorf("issues not sorted by district: %v", issues)
	}
}
