package advisor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type stubLLM struct {
	reply string
	err   error
	got   string
}

func (s *stubLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.got = prompt
	return s.reply, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRuleBased(t *testing.T) {
	tests := []struct {
		name         string
		req          Request
		wantCause    string
		wantAction   string
		wantImpact   string
		wantFix      string
		wantHasIssue bool
	}{
		{
			name:         "cpu critical",
			req:          Request{Device: "sw-1", Metric: "CPU utilization", Value: "97", Severity: "critical"},
			wantCause:    "High CPU utilization (97) detected on sw-1",
			wantAction:   "Identify high CPU processes",
			wantImpact:   "High",
			wantFix:      "Immediate (0-30 minutes)",
			wantHasIssue: true,
		},
		{
			name:         "ram warning",
			req:          Request{Device: "rt-2", Metric: "Available RAM", Value: "12%", Severity: "warning"},
			wantCause:    "Memory usage issue (12%) on rt-2",
			wantAction:   "Check memory usage by process",
			wantImpact:   "Medium",
			wantFix:      "2-4 hours",
			wantHasIssue: true,
		},
		{
			name:         "unknown metric info",
			req:          Request{Device: "pc-3", Metric: "Fan speed", Value: "1200", Severity: "info"},
			wantCause:    "Fan speed anomaly (1200) detected on pc-3",
			wantAction:   "Review metric thresholds",
			wantImpact:   "Low",
			wantFix:      "4-24 hours",
			wantHasIssue: false,
		},
		{
			name:         "unlisted severity",
			req:          Request{Device: "sw-1", Metric: "Disk utilization", Value: "91", Severity: "major"},
			wantCause:    "Disk space/performance issue (91) on sw-1",
			wantAction:   "Free up disk space",
			wantImpact:   "Medium",
			wantFix:      "1-4 hours",
			wantHasIssue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := RuleBased(tt.req)
			if !strings.HasPrefix(a.RootCause, tt.wantCause) {
				t.Errorf("RootCause = %q", a.RootCause)
			}
			if a.ImmediateActions[0] != "Check system logs" || a.ImmediateActions[2] != tt.wantAction {
				t.Errorf("ImmediateActions = %v", a.ImmediateActions)
			}
			if a.EstimatedImpact != tt.wantImpact || a.EstimatedTimeToFix != tt.wantFix {
				t.Errorf("impact/fix = %s/%s", a.EstimatedImpact, a.EstimatedTimeToFix)
			}
			if a.HasIssue != tt.wantHasIssue {
				t.Errorf("HasIssue = %v", a.HasIssue)
			}
			if a.Source != SourceRules || strings.Contains(a.RootCause, "%!") {
				t.Errorf("bad rendering: %+v", a)
			}
		})
	}
}

func TestRuleBasedTroubleshootMode(t *testing.T) {
	a := RuleBased(Request{Device: "d", Metric: "cpu", Value: "1", Severity: "warning", Mode: ModeTroubleshoot})
	if len(a.TroubleshootingSteps) == 0 || len(a.PreventionTips) == 0 {
		t.Errorf("troubleshoot fields empty: %+v", a)
	}
}

func TestAnalyzeWithoutModel(t *testing.T) {
	a := New(nil, quietLogger()).Analyze(context.Background(), Request{Device: "d", Metric: "cpu", Value: "95", Severity: "critical"})
	if a.Source != SourceRules {
		t.Errorf("Source = %s", a.Source)
	}
}

func TestAnalyzeParsesModelReply(t *testing.T) {
	llm := &stubLLM{reply: "Here you go:\n```json\n{\"rootCause\": \"Uplink saturated\", \"immediateActions\": [\"Shape traffic\"], \"estimatedImpact\": \"High\", \"hasIssue\": true}\n```"}
	a := New(llm, quietLogger()).Analyze(context.Background(),
		Request{Device: "sw-1", Metric: "Bits received", Value: "9.8e8", Severity: "critical", Mode: ModeTroubleshoot, Suggestion: "check uplink"})

	if a.Source != SourceGemini || a.RootCause != "Uplink saturated" {
		t.Fatalf("got %+v", a)
	}
	if a.Severity != "critical" {
		t.Errorf("severity not defaulted from request: %q", a.Severity)
	}
	if !strings.Contains(llm.got, "Automated Suggestion: check uplink") {
		t.Errorf("troubleshoot prompt not used:\n%s", llm.got)
	}
}

func TestAnalyzeFallsBack(t *testing.T) {
	tests := []struct {
		name string
		llm  *stubLLM
	}{
		{name: "call fails", llm: &stubLLM{err: errors.New("quota exceeded")}},
		{name: "no json", llm: &stubLLM{reply: "All systems normal."}},
		{name: "empty root cause", llm: &stubLLM{reply: `{"summary": "fine"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.llm, quietLogger()).Analyze(context.Background(), Request{Device: "d", Metric: "cpu", Value: "1", Severity: "warning"})
			if a.Source != SourceRules {
				t.Errorf("Source = %s", a.Source)
			}
			if !strings.Contains(tt.llm.got, "preventiveActions") {
				t.Errorf("analysis prompt not used")
			}
		})
	}
}
