// Package advisor explains an alerting metric: root cause, actions, impact
// and time to fix. Gemini answers when configured; a rule table otherwise.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"netmon/internal/database/rag"
	"netmon/internal/health"
)

const (
	ModeAnalysis     = "analysis"
	ModeTroubleshoot = "troubleshoot"

	SourceGemini = "gemini"
	SourceRules  = "rules"
)

// Request describes the alerting metric to analyse.
type Request struct {
	Device     string `json:"device" validate:"required"`
	Metric     string `json:"metric" validate:"required"`
	Value      string `json:"-"`
	Severity   string `json:"severity" validate:"required"`
	Suggestion string `json:"suggestion,omitempty"`
	Mode       string `json:"mode,omitempty" validate:"omitempty,oneof=analysis troubleshoot"`
}

// Analysis is the advisor's answer.
type Analysis struct {
	RootCause            string   `json:"rootCause"`
	ImmediateActions     []string `json:"immediateActions"`
	PreventiveActions    []string `json:"preventiveActions,omitempty"`
	TroubleshootingSteps []string `json:"troubleshootingSteps,omitempty"`
	PreventionTips       []string `json:"preventionTips,omitempty"`
	RelatedMetrics       []string `json:"relatedMetrics,omitempty"`
	Severity             string   `json:"severity"`
	EstimatedImpact      string   `json:"estimatedImpact"`
	EstimatedTimeToFix   string   `json:"estimatedTimeToFix"`
	HasIssue             bool     `json:"hasIssue"`
	Summary              string   `json:"summary"`
	Source               string   `json:"source"`
}

// Advisor answers analysis requests. A nil generator means rules only.
type Advisor struct {
	llm rag.Generator
	log *logrus.Logger
}

func New(llm rag.Generator, log *logrus.Logger) *Advisor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Advisor{llm: llm, log: log}
}

// Analyze asks the model first and falls back to the rule table when no
// model is configured, the call fails or the reply holds no usable JSON.
func (a *Advisor) Analyze(ctx context.Context, req Request) Analysis {
	if req.Mode == "" {
		req.Mode = ModeAnalysis
	}
	if a.llm == nil {
		return RuleBased(req)
	}

	fields := logrus.Fields{"mode": req.Mode, "device": req.Device, "metric": req.Metric, "severity": req.Severity}
	text, err := a.llm.Generate(ctx, prompt(req))
	if err != nil {
		a.log.WithFields(fields).WithError(err).Warn("gemini analysis failed, using rules")
		return RuleBased(req)
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		a.log.WithFields(fields).WithError(err).Warn("unparseable gemini reply, using rules")
		return RuleBased(req)
	}
	if analysis.Severity == "" {
		analysis.Severity = req.Severity
	}
	if analysis.ImmediateActions == nil {
		analysis.ImmediateActions = []string{}
	}
	analysis.Source = SourceGemini
	a.log.WithFields(fields).Debug("gemini analysis complete")
	return analysis
}

var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// parseAnalysis extracts the outermost {...} block of a model reply.
func parseAnalysis(text string) (Analysis, error) {
	block := jsonBlock.FindString(text)
	if block == "" {
		return Analysis{}, fmt.Errorf("no JSON object in reply")
	}
	var out Analysis
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if out.RootCause == "" {
		return Analysis{}, fmt.Errorf("analysis has no root cause")
	}
	return out, nil
}

func prompt(req Request) string {
	if req.Mode == ModeTroubleshoot {
		suggestion := req.Suggestion
		if suggestion == "" {
			suggestion = "None"
		}
		return fmt.Sprintf(`You are an expert network troubleshooter. Given the following data, respond ONLY in JSON (no markdown, no extra text):

Device: %s
Metric: %s
Current Value: %s
Severity Level: %s
Automated Suggestion: %s

Instructions: If the value is close to or above typical thresholds (e.g., above 80%%), or if the metric is abnormal, always provide a root cause, actionable recommendations, and a summary. Do not return 'All Systems Normal' unless the value is clearly healthy.

Required JSON format:
{
  "rootCause": "Brief technical explanation of the likely cause",
  "immediateActions": ["Action 1", "Action 2", "Action 3"],
  "troubleshootingSteps": ["Step 1", "Step 2"],
  "preventionTips": ["Tip 1", "Tip 2"],
  "relatedMetrics": ["related.metric1", "related.metric2"],
  "severity": "%s",
  "estimatedImpact": "Low/Medium/High/Critical",
  "estimatedTimeToFix": "time estimate",
  "hasIssue": true,
  "summary": "One-sentence summary of the situation and recommendations"
}`, req.Device, req.Metric, req.Value, req.Severity, suggestion, req.Severity)
	}

	return fmt.Sprintf(`You are an expert network monitoring assistant. Analyze this network issue and respond ONLY in JSON (no markdown, no extra text):

Device: %s
Metric: %s
Current Value: %s
Severity Level: %s

Instructions: If the value is close to or above typical thresholds (e.g., above 80%%), or if the metric is abnormal, always provide a root cause, actionable recommendations, and a summary. Do not return 'All Systems Normal' unless the value is clearly healthy.

Required JSON format:
{
  "rootCause": "Brief technical explanation of the likely cause",
  "immediateActions": ["Action 1", "Action 2", "Action 3"],
  "preventiveActions": ["Prevention 1", "Prevention 2"],
  "severity": "%s",
  "estimatedImpact": "Low/Medium/High/Critical",
  "estimatedTimeToFix": "time estimate",
  "hasIssue": true,
  "summary": "One-sentence summary of the situation and recommendations"
}`, req.Device, req.Metric, req.Value, req.Severity, req.Severity)
}

// =============================================================================
// RULE TABLE
// =============================================================================

type metricRule struct {
	keywords   []string
	rootCause  string // %[1]s value, %[2]s device, %[3]s metric
	immediate  []string
	preventive []string
}

var baseActions = []string{"Check system logs", "Verify device connectivity"}

var metricRules = []metricRule{
	{
		keywords:   []string{"cpu"},
		rootCause:  "High CPU utilization (%[1]s) detected on %[2]s. Possible causes: resource-intensive processes, insufficient hardware capacity, or system bottlenecks.",
		immediate:  []string{"Identify high CPU processes", "Consider process termination if critical"},
		preventive: []string{"Implement CPU monitoring alerts", "Schedule regular performance reviews", "Consider hardware upgrades if recurring"},
	},
	{
		keywords:   []string{"memory", "ram"},
		rootCause:  "Memory usage issue (%[1]s) on %[2]s. Likely causes: memory leaks, insufficient RAM allocation, or high application demand.",
		immediate:  []string{"Check memory usage by process", "Restart memory-intensive applications"},
		preventive: []string{"Set up memory usage alerts", "Implement automated memory cleanup", "Review application memory requirements"},
	},
	{
		keywords:   []string{"disk"},
		rootCause:  "Disk space/performance issue (%[1]s) on %[2]s. Potential causes: storage full, disk I/O bottleneck, or hardware failure.",
		immediate:  []string{"Free up disk space", "Check disk health status"},
		preventive: []string{"Enable disk space monitoring", "Implement automated cleanup policies", "Schedule disk health checks"},
	},
	{
		keywords:   []string{"network", "bandwidth", "bits", "operational status"},
		rootCause:  "Network performance degradation (%[1]s) affecting %[2]s. Possible causes: bandwidth saturation, network congestion, or connectivity issues.",
		immediate:  []string{"Test network connectivity", "Check for bandwidth bottlenecks"},
		preventive: []string{"Deploy network monitoring tools", "Implement bandwidth management", "Review network architecture"},
	},
	{
		keywords:   []string{"temperature", "temp"},
		rootCause:  "Temperature anomaly (%[1]s) detected on %[2]s. Causes may include: cooling system failure, environmental factors, or hardware stress.",
		immediate:  []string{"Check cooling and airflow", "Reduce load until temperature normalizes"},
		preventive: []string{"Monitor environmental sensors", "Schedule hardware cleaning", "Review rack placement"},
	},
}

var defaultRule = metricRule{
	rootCause:  "%[3]s anomaly (%[1]s) detected on %[2]s. Requires investigation to determine root cause based on device type and metric characteristics.",
	immediate:  []string{"Review metric thresholds", "Escalate to technical team if severe"},
	preventive: []string{"Enable proactive monitoring", "Schedule routine maintenance", "Document troubleshooting procedures"},
}

func matchRule(metric string) metricRule {
	lower := strings.ToLower(metric)
	for _, r := range metricRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r
			}
		}
	}
	return defaultRule
}

// RuleBased builds an analysis from the metric keyword table and the
// severity impact and time-to-fix tables.
func RuleBased(req Request) Analysis {
	rule := matchRule(req.Metric)
	immediate := append(append([]string{}, baseActions...), rule.immediate...)

	sev := strings.ToLower(req.Severity)
	hasIssue := sev != "info" && sev != "low" && sev != "healthy" && sev != ""

	a := Analysis{
		RootCause:          fmt.Sprintf(rule.rootCause, req.Value, req.Device, req.Metric),
		ImmediateActions:   immediate,
		PreventiveActions:  append([]string{}, rule.preventive...),
		Severity:           req.Severity,
		EstimatedImpact:    health.ImpactLevel(req.Severity),
		EstimatedTimeToFix: health.TimeToFix(req.Severity),
		HasIssue:           hasIssue,
		Source:             SourceRules,
	}
	if req.Mode == ModeTroubleshoot {
		a.TroubleshootingSteps = immediate
		a.PreventionTips = a.PreventiveActions
	}
	if hasIssue {
		a.Summary = fmt.Sprintf("%s on %s needs attention (%s impact); start with: %s.",
			req.Metric, req.Device, strings.ToLower(a.EstimatedImpact), strings.ToLower(rule.immediate[0]))
	} else {
		a.Summary = fmt.Sprintf("%s on %s is within normal range.", req.Metric, req.Device)
	}
	return a
}
