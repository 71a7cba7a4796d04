package service

import (
	"context"
	"fmt"
	"strings"

	"netmon/internal/advisor"
)

// Analyze explains an alerting metric. It never fails on model errors; the
// advisor falls back to its rule table.
func (s *Service) Analyze(ctx context.Context, req advisor.Request) (advisor.Analysis, error) {
	if req.Device == "" || req.Metric == "" || req.Value == "" || req.Severity == "" {
		return advisor.Analysis{}, invalid("Missing required fields: device, metric, value, severity")
	}
	if req.Mode != "" && req.Mode != advisor.ModeAnalysis && req.Mode != advisor.ModeTroubleshoot {
		return advisor.Analysis{}, invalid("mode must be %q or %q", advisor.ModeAnalysis, advisor.ModeTroubleshoot)
	}
	return s.advisor.Analyze(ctx, req), nil
}

type AskResult struct {
	Success  bool   `json:"success"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Ask answers a free-form question over the location graph.
func (s *Service) Ask(ctx context.Context, question string) (AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AskResult{}, invalid("question is required")
	}
	if s.rag == nil {
		return AskResult{}, &RequestError{Kind: ErrUnavailable, Message: "graph question answering requires neo4j and gemini"}
	}
	answer, err := s.rag.Query(ctx, question)
	if err != nil {
		return AskResult{}, fmt.Errorf("failed to answer question: %w", err)
	}
	return AskResult{Success: true, Question: question, Answer: answer}, nil
}
