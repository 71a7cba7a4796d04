package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MaxRows caps the records one ExecuteCypher call returns.
const MaxRows = 500

// ErrWriteQuery rejects Cypher that would modify the location graph.
var ErrWriteQuery = errors.New("only read-only Cypher queries are allowed")

var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|LOAD\s+CSV|CALL\s+dbms|CALL\s+apoc)\b`)

// IsReadOnly reports whether a Cypher query contains no write clauses.
func IsReadOnly(query string) bool {
	return strings.TrimSpace(query) != "" && !writeClause.MatchString(query)
}

// entityKinds are the node labels of the location graph, most specific first.
var entityKinds = []string{"Alert", "Device", "Office", "City", "Country"}

// ExecuteCypher runs a read-only query and returns at most MaxRows rows.
// Nodes and relationships come back as flat maps (see shapeValue).
func (c *Neo4jClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	if !IsReadOnly(query) {
		return nil, ErrWriteQuery
	}
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0)
		for len(rows) < MaxRows && res.Next(ctx) {
			rec := res.Record()
			rows = append(rows, recordRow(rec.Keys, rec.Values))
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}
	return result.([]map[string]any), nil
}

func recordRow(keys []string, values []any) map[string]any {
	row := make(map[string]any, len(keys))
	for i, key := range keys {
		if i < len(values) {
			row[key] = shapeValue(values[i])
		}
	}
	return row
}

// entityKind names a node by its graph entity: "office", "device" and so on.
// Unknown labels fall back to the first label.
func entityKind(labels []string) string {
	for _, kind := range entityKinds {
		for _, l := range labels {
			if l == kind {
				return strings.ToLower(kind)
			}
		}
	}
	if len(labels) > 0 {
		return strings.ToLower(labels[0])
	}
	return ""
}

// shapeValue flattens driver values. A node becomes its properties plus
// "kind" and "element_id"; a relationship becomes its properties plus
// "relation", "from" and "to". Times render as RFC 3339.
func shapeValue(val any) any {
	switch v := val.(type) {
	case neo4j.Node:
		out := make(map[string]any, len(v.Props)+2)
		for k, p := range v.Props {
			out[k] = shapeValue(p)
		}
		out["kind"] = entityKind(v.Labels)
		out["element_id"] = v.ElementId
		return out
	case neo4j.Relationship:
		out := make(map[string]any, len(v.Props)+3)
		for k, p := range v.Props {
			out[k] = shapeValue(p)
		}
		out["relation"] = v.Type
		out["from"] = v.StartElementId
		out["to"] = v.EndElementId
		return out
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = shapeValue(item)
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, item := range v {
			result[k] = shapeValue(item)
		}
		return result
	default:
		return v
	}
}
