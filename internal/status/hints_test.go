package status

import (
	"strings"
	"testing"

	"netmon/internal/model"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		status       Status
		wantIssues   bool
		wantSuggests bool
	}{
		{StatusDown, true, true},
		{StatusUnknown, true, true},
		{StatusUp, false, false},
	}

	for _, tt := range tests {
		h := Suggest("GigabitEthernet0/1", tt.status)
		if (len(h.Issues) > 0) != tt.wantIssues {
			t.Errorf("Suggest(%q).Issues = %v; want non-empty=%v", tt.status, h.Issues, tt.wantIssues)
		}
		if (len(h.Suggestions) > 0) != tt.wantSuggests {
			t.Errorf("Suggest(%q).Suggestions = %v; want non-empty=%v", tt.status, h.Suggestions, tt.wantSuggests)
		}
	}
}

func TestSuggestNameInterpolation(t *testing.T) {
	h := Suggest("eth9", StatusDown)
	if !strings.Contains(h.Issues[0], "eth9") {
		t.Errorf("first issue %q does not name the interface", h.Issues[0])
	}
	for _, s := range append(h.Issues, h.Suggestions...) {
		if strings.Contains(s, "%!") || strings.Contains(s, "%s") {
			t.Errorf("unrendered template: %q", s)
		}
	}
}

func TestSuggestDeterministic(t *testing.T) {
	a := Suggest("eth0", StatusDown)
	b := Suggest("eth0", StatusDown)
	if strings.Join(a.Issues, "|") != strings.Join(b.Issues, "|") {
		t.Error("Hints returned different issues for the same input")
	}
}

func TestAggregateWithHints(t *testing.T) {
	states := Aggregate(nil, Options{WithHints: true})
	if len(states) != 0 {
		t.Fatal("expected empty output")
	}

	down := Aggregate(downMetrics(), Options{WithHints: true})
	if len(down[0].Issues) == 0 {
		t.Error("down interface should carry issues")
	}
}

func downMetrics() []model.Metric {
	return []model.Metric{
		metric(100, "1", "eth0", "Interface eth0: Operational status", model.Number(2)),
	}
}
