package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"netmon/internal/model"
)

func TestShapeValue(t *testing.T) {
	office := neo4j.Node{ElementId: "4:a:1", Labels: []string{"Office"}, Props: map[string]any{"name": "HQ", "status": "active"}}
	alert := neo4j.Node{ElementId: "4:a:9", Labels: []string{"Alert"}, Props: map[string]any{
		"severity":    "critical",
		"detected_at": time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
	}}
	rel := neo4j.Relationship{Type: "HOSTS", StartElementId: "4:a:1", EndElementId: "4:a:2", Props: map[string]any{}}

	officeRow := map[string]any{"name": "HQ", "status": "active", "kind": "office", "element_id": "4:a:1"}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "scalar", in: int64(3), want: int64(3)},
		{name: "office node", in: office, want: officeRow},
		{
			name: "alert node with time",
			in:   alert,
			want: map[string]any{"severity": "critical", "detected_at": "2024-05-01T10:00:00Z", "kind": "alert", "element_id": "4:a:9"},
		},
		{
			name: "relationship",
			in:   rel,
			want: map[string]any{"relation": "HOSTS", "from": "4:a:1", "to": "4:a:2"},
		},
		{name: "nested list", in: []any{"x", office}, want: []any{"x", officeRow}},
		{name: "nested map", in: map[string]any{"o": office}, want: map[string]any{"o": officeRow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shapeValue(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v; want %#v", got, tt.want)
			}
		})
	}
}

func TestEntityKind(t *testing.T) {
	tests := []struct {
		labels []string
		want   string
	}{
		{[]string{"Device"}, "device"},
		{[]string{"Legacy", "City"}, "city"},
		{[]string{"Alert", "Device"}, "alert"},
		{[]string{"Site"}, "site"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := entityKind(tt.labels); got != tt.want {
			t.Errorf("entityKind(%v) = %q; want %q", tt.labels, got, tt.want)
		}
	}
}

func TestRecordRow(t *testing.T) {
	got := recordRow([]string{"city", "offices", "dangling"}, []any{"Paris", int64(2)})
	want := map[string]any{"city": "Paris", "offices": int64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v; want %#v", got, want)
	}
}

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"MATCH (o:Office) RETURN o SKIP 5 LIMIT 10", true},
		{"match (d:Device) where d.device_status = 'occupied' return d", true},
		{"MATCH (n) DETACH DELETE n", false},
		{"MERGE (o:Office {id: 'x'})", false},
		{"MATCH (o) set o.status = 'inactive'", false},
		{"CALL apoc.periodic.iterate('x', 'y', {})", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := IsReadOnly(tt.query); got != tt.want {
			t.Errorf("IsReadOnly(%q) = %v; want %v", tt.query, got, tt.want)
		}
	}
}

func TestExecuteCypherRejectsWrites(t *testing.T) {
	c := &Neo4jClient{}
	_, err := c.ExecuteCypher(context.Background(), "MATCH (o:Office) DETACH DELETE o")
	if !errors.Is(err, ErrWriteQuery) {
		t.Errorf("err = %v; want ErrWriteQuery", err)
	}
}

func TestOfficeParams(t *testing.T) {
	o := model.Office{
		ID: "id-1", Office: "HQ", City: "Paris", Country: "France", Status: model.OfficeActive,
		Geo:       model.Geo{Lat: 48.85, Lon: 2.35},
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	p := officeParams(o)
	if p["id"] != "id-1" || p["office"] != "HQ" || p["country"] != "France" {
		t.Errorf("identity params wrong: %v", p)
	}
	if p["updated_at"] != "2024-05-01T12:00:00Z" {
		t.Errorf("updated_at = %v", p["updated_at"])
	}
}

func TestAlertParamsRendersValue(t *testing.T) {
	p := alertParams(model.Event{HostID: "h1", Value: model.Number(92.5), Severity: "critical"})
	if p["value"] != "92.5" || p["severity"] != "critical" {
		t.Errorf("got %v", p)
	}
}
