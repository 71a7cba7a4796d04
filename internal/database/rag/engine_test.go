package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"netmon/internal/model"
)

type fakeLLM struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", ErrEmptyResponse
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

type fakeGraph struct {
	results map[string][]map[string]any
	queries []string
}

func (g *fakeGraph) Close(context.Context) error { return nil }
func (g *fakeGraph) Reset(context.Context) error { return nil }
func (g *fakeGraph) SyncOffice(context.Context, model.Office) error { return nil }
func (g *fakeGraph) RemoveOffice(context.Context, model.Office) error { return nil }
func (g *fakeGraph) LinkDevice(context.Context, model.Device) error { return nil }
func (g *fakeGraph) IngestEvents(context.Context, []model.Event) error { return nil }
func (g *fakeGraph) ExecuteCypher(_ context.Context, q string) ([]map[string]any, error) {
	g.queries = append(g.queries, q)
	return g.results[q], nil
}

func TestQueryUsesGeneratedCypher(t *testing.T) {
	cypher := "MATCH (o:Office) RETURN o.name AS office LIMIT 10"
	g := &fakeGraph{results: map[string][]map[string]any{
		cypher: {{"office": "HQ"}},
	}}
	llm := &fakeLLM{replies: []string{"```cypher\n" + cypher + "\n```", "HQ is the only office."}}

	answer, err := NewGraphRAGEngine(g, llm).Query(context.Background(), "which offices exist?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if answer != "HQ is the only office." {
		t.Errorf("answer = %q", answer)
	}
	if len(g.queries) != 1 || g.queries[0] != cypher {
		t.Errorf("queries = %v", g.queries)
	}
	if !strings.Contains(llm.prompts[1], `"office": "HQ"`) {
		t.Errorf("synthesis prompt missing graph data:\n%s", llm.prompts[1])
	}
}

func TestQueryFallsBackOnWriteOrEmpty(t *testing.T) {
	tests := []struct {
		name      string
		generated string
		wantRuns  int
	}{
		{name: "write query never runs", generated: "MATCH (n) DETACH DELETE n", wantRuns: 1},
		{name: "empty result retries", generated: "MATCH (d:Device) RETURN d", wantRuns: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGraph{results: map[string][]map[string]any{}}
			llm := &fakeLLM{replies: []string{tt.generated, "nothing to report"}}

			if _, err := NewGraphRAGEngine(g, llm).Query(context.Background(), "q"); err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(g.queries) != tt.wantRuns {
				t.Fatalf("ran %d queries; want %d", len(g.queries), tt.wantRuns)
			}
			if g.queries[len(g.queries)-1] != fallbackCypher {
				t.Errorf("last query was not the fallback")
			}
		})
	}
}

func TestQueryPropagatesGeneratorError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota")}
	_, err := NewGraphRAGEngine(&fakeGraph{}, llm).Query(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Errorf("got %v", err)
	}
}

func TestResolveModel(t *testing.T) {
	if got := ResolveModel("pro").Name; got != "gemini-pro-latest" {
		t.Errorf("pro resolved to %s", got)
	}
	if got := ResolveModel("nope").Name; got != AvailableModels[DefaultModel].Name {
		t.Errorf("unknown key resolved to %s", got)
	}
}
