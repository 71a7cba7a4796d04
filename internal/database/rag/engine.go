package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"netmon/internal/database/graph"
)

// ModelConfig defines configuration for a Gemini model.
type ModelConfig struct {
	Name        string
	Temperature float32
	TopP        float32
	TopK        int32
}

// AvailableModels defines the available Gemini models and their configurations.
var AvailableModels = map[string]ModelConfig{
	"flash": {
		Name:        "gemini-flash-latest",
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	},
	"pro": {
		Name:        "gemini-pro-latest",
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	},
	"flash-2": {
		Name:        "gemini-2.0-flash",
		Temperature: 0.4,
		TopP:        0.95,
		TopK:        40,
	},
	"experimental": {
		Name:        "gemini-2.0-flash-exp",
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	},
}

// DefaultModel is used when no model key, or an unknown one, is given.
const DefaultModel = "flash-2"

// ErrEmptyResponse is returned when the model produced no candidates.
var ErrEmptyResponse = errors.New("no response from Gemini")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini is a Generator backed by a configured Gemini model.
type Gemini struct {
	client *genai.Client
	config ModelConfig
}

// NewGemini opens a Gemini client for the given API key and model key.
func NewGemini(ctx context.Context, apiKey, modelKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, config: ResolveModel(modelKey)}, nil
}

// ResolveModel returns the configuration for key, falling back to DefaultModel.
func ResolveModel(key string) ModelConfig {
	if cfg, ok := AvailableModels[key]; ok {
		return cfg
	}
	return AvailableModels[DefaultModel]
}

func (g *Gemini) ModelName() string { return g.config.Name }

// getModel returns a configured GenerativeModel instance.
func (g *Gemini) getModel() *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.config.Name)
	model.SetTemperature(g.config.Temperature)
	model.SetTopP(g.config.TopP)
	model.SetTopK(g.config.TopK)
	return model
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.getModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// GraphRAGEngine answers questions over the location graph.
type GraphRAGEngine struct {
	graph graph.GraphClient
	llm   Generator
}

func NewGraphRAGEngine(g graph.GraphClient, llm Generator) *GraphRAGEngine {
	return &GraphRAGEngine{graph: g, llm: llm}
}

// fallbackCypher summarises every office with its devices and recent alerts.
const fallbackCypher = `
	MATCH (co:Country)-[:HAS_CITY]->(ci:City)-[:HAS_OFFICE]->(o:Office)
	OPTIONAL MATCH (o)-[:HOSTS]->(d:Device)
	OPTIONAL MATCH (d)-[:RAISED]->(a:Alert)
	WITH co, ci, o,
		 count(DISTINCT d) AS devices,
		 collect(DISTINCT {device: d.device_id, severity: a.severity, metric: a.metric, at: a.detected_at})[0..10] AS alerts
	RETURN co.name AS country, ci.name AS city, o.name AS office, o.status AS status,
		   devices, alerts
	ORDER BY country, city, office
	LIMIT 25
`

// Query performs a GraphRAG search: generate Cypher, run it, synthesize.
func (e *GraphRAGEngine) Query(ctx context.Context, question string) (string, error) {
	cypher, err := e.generateCypher(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to generate cypher: %w", err)
	}

	var graphData []map[string]any
	if graph.IsReadOnly(cypher) {
		graphData, err = e.graph.ExecuteCypher(ctx, cypher)
	}
	if !graph.IsReadOnly(cypher) || err != nil || len(graphData) == 0 {
		graphData, err = e.graph.ExecuteCypher(ctx, fallbackCypher)
		if err != nil {
			return "", fmt.Errorf("failed to execute graph query: %w", err)
		}
	}

	answer, err := e.synthesizeAnswer(ctx, question, graphData)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}
	return answer, nil
}

func (e *GraphRAGEngine) generateCypher(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`You are a Neo4j Cypher query expert. Convert the following question into a read-only Cypher query for a network monitoring graph.

Graph Schema:
- Nodes: Country, City, Office, Device, Alert
- Relationships:
  - (Country)-[:HAS_CITY]->(City)
  - (City)-[:HAS_OFFICE]->(Office)
  - (Office)-[:HOSTS]->(Device)
  - (Device)-[:RAISED]->(Alert)

Country properties: name
City properties: name, country
Office properties: id, name, city, country, status ("active" or "inactive"), lat, lon, updated_at
Device properties: hostid, device_id, device_type, device_status ("occupied" or "available"), location
Alert properties: metric, severity ("info", "warning", "critical"), status, iface, value, detected_at (RFC3339)

Question: %s

Return ONLY the Cypher query, no explanation. Limit results to 10.`, question)

	text, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return cleanCypherQuery(text), nil
}

func (e *GraphRAGEngine) synthesizeAnswer(ctx context.Context, question string, graphData []map[string]any) (string, error) {
	graphJSON, err := json.MarshalIndent(graphData, "", "  ")
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a network operations expert. Answer the following question based on the graph database results.

Question: %s

Graph Data (from Neo4j):
%s

Provide a clear, concise answer explaining:
1. What the data shows
2. Which offices or devices are affected
3. Severity and impact
4. Recommended actions if relevant

If the graph data is empty or insufficient, say so clearly.`, question, string(graphJSON))

	answer, err := e.llm.Generate(ctx, prompt)
	if errors.Is(err, ErrEmptyResponse) {
		return "Unable to generate response from the available data.", nil
	}
	return answer, err
}

// cleanCypherQuery removes markdown code blocks from Cypher queries.
func cleanCypherQuery(query string) string {
	query = strings.TrimSpace(query)
	query = strings.TrimPrefix(query, "```cypher")
	query = strings.TrimPrefix(query, "```")
	query = strings.TrimSuffix(query, "```")
	return strings.TrimSpace(query)
}

