// Package mcpserver exposes netmon's monitoring data to AI agents as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"netmon/internal/collector"
	"netmon/internal/database/graph"
	"netmon/internal/model"
	"netmon/internal/service"
)

const (
	defaultAlertLimit = 20
	maxAlertLimit     = 200
)

// Server wraps the MCP server with netmon capabilities.
type Server struct {
	mcpServer *mcp.Server
	svc       *service.Service
	graph     graph.GraphClient
	probe     collector.Provider
	log       *logrus.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
}

// NewServer registers the tools against svc. The graph client and probe are
// optional; tools that need them report an error when they are missing.
func NewServer(cfg Config, svc *service.Service, g graph.GraphClient, probe collector.Provider, log *logrus.Logger) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "netmon"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		svc:       svc,
		graph:     g,
		probe:     probe,
		log:       log,
	}
	s.registerTools()
	return s
}

// AskArgs defines the input for ask_netmon tool.
type AskArgs struct {
	Question string `json:"question" jsonschema:"the question to ask about offices, devices and alerts"`
}

type AskResult struct {
	Answer string `json:"answer" jsonschema:"AI-generated answer"`
}

type HostInterfacesArgs struct {
	HostID string `json:"hostid" jsonschema:"host identifier"`
	Hours  int    `json:"hours,omitempty" jsonschema:"look-back window in hours (default 24)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum metrics to scan"`
}

type InterfaceRow struct {
	Key         string   `json:"key"`
	IfIndex     string   `json:"ifindex,omitempty"`
	IfDescr     string   `json:"ifdescr,omitempty"`
	Status      string   `json:"status"`
	LastSeen    string   `json:"last_seen"`
	MetricCount int      `json:"metric_count"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type HostInterfacesResult struct {
	HostID     string         `json:"hostid"`
	DeviceID   string         `json:"device_id"`
	Up         int            `json:"up"`
	Down       int            `json:"down"`
	Unknown    int            `json:"unknown"`
	Interfaces []InterfaceRow `json:"interfaces"`
}

type LocationHealthArgs struct {
	Country string `json:"country,omitempty" jsonschema:"restrict to one country"`
}

type CityRow struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Offices int    `json:"offices"`
	Devices int    `json:"devices"`
	Score   int    `json:"health_score"`
	Status  string `json:"status"`
}

type LocationHealthResult struct {
	Cities []CityRow `json:"cities"`
}

type RecentAlertsArgs struct {
	Severity string `json:"severity,omitempty" jsonschema:"critical, warning or info"`
	HostID   string `json:"hostid,omitempty" jsonschema:"host identifier"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of alerts to return (default 20)"`
}

type AlertRow struct {
	HostID     string `json:"hostid,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	Metric     string `json:"metric,omitempty"`
	Value      string `json:"value,omitempty"`
	Status     string `json:"status,omitempty"`
	Severity   string `json:"severity"`
	DetectedAt string `json:"detected_at"`
}

type RecentAlertsResult struct {
	Alerts []AlertRow `json:"alerts"`
}

// QueryGraphArgs defines the input for query_graph tool.
type QueryGraphArgs struct {
	Cypher string `json:"cypher" jsonschema:"read-only Cypher query to execute"`
}

// QueryGraphResult wraps graph query results.
type QueryGraphResult struct {
	Data any `json:"data" jsonschema:"query results"`
}

type ProbeMetricsArgs struct{}

type ProbeReading struct {
	Metric string  `json:"metric"`
	Iface  string  `json:"iface,omitempty"`
	Value  float64 `json:"value"`
}

type ProbeMetricsResult struct {
	HostID   string         `json:"hostid"`
	DeviceID string         `json:"device_id"`
	Readings []ProbeReading `json:"readings"`
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_netmon",
		Description: "Ask questions about offices, devices and alerts in plain language. The question is answered from the location graph (Country, City, Office, Device, Alert) with AI-generated Cypher.",
	}, s.handleAsk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_host_interfaces",
		Description: "Get the operational status of every interface of a monitored host, with issues and troubleshooting suggestions for the ones that are down.",
	}, s.handleHostInterfaces)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_location_health",
		Description: "Get the health score and classification (excellent, good, warning, critical) of every city, optionally restricted to one country.",
	}, s.handleLocationHealth)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recent_alerts",
		Description: "List the newest alert events, optionally filtered by severity or host.",
	}, s.handleRecentAlerts)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_graph",
		Description: "Execute a read-only Cypher query on the location graph. Nodes: Country, City, Office, Device, Alert. Write clauses are rejected.",
	}, s.handleQueryGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_probe_metrics",
		Description: "Read the netmon server's own CPU, memory, disk and interface metrics right now.",
	}, s.handleProbeMetrics)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, args AskArgs) (*mcp.CallToolResult, AskResult, error) {
	res, err := s.svc.Ask(ctx, args.Question)
	if err != nil {
		return nil, AskResult{}, fmt.Errorf("ask failed: %w", err)
	}
	return nil, AskResult{Answer: res.Answer}, nil
}

func (s *Server) handleHostInterfaces(ctx context.Context, _ *mcp.CallToolRequest, args HostInterfacesArgs) (*mcp.CallToolResult, HostInterfacesResult, error) {
	if args.HostID == "" {
		return nil, HostInterfacesResult{}, errors.New("hostid is required")
	}
	res, err := s.svc.DeviceInterfaces(ctx, args.HostID, args.Hours, args.Limit)
	if err != nil {
		return nil, HostInterfacesResult{}, fmt.Errorf("failed to get interfaces: %w", err)
	}

	out := HostInterfacesResult{
		HostID:     res.HostID,
		DeviceID:   res.DeviceID,
		Up:         res.Summary.Up,
		Down:       res.Summary.Down,
		Unknown:    res.Summary.Unknown,
		Interfaces: make([]InterfaceRow, 0, len(res.Interfaces)),
	}
	for _, st := range res.Interfaces {
		out.Interfaces = append(out.Interfaces, InterfaceRow{
			Key:         st.Key,
			IfIndex:     st.IfIndex,
			IfDescr:     st.IfDescr,
			Status:      string(st.Status),
			LastSeen:    st.LastSeen.UTC().Format(time.RFC3339),
			MetricCount: st.MetricCount,
			Issues:      st.Issues,
			Suggestions: st.Suggestions,
		})
	}
	return nil, out, nil
}

func (s *Server) handleLocationHealth(ctx context.Context, _ *mcp.CallToolRequest, args LocationHealthArgs) (*mcp.CallToolResult, LocationHealthResult, error) {
	res, err := s.svc.CityHealth(ctx, args.Country)
	if err != nil {
		return nil, LocationHealthResult{}, fmt.Errorf("failed to get city health: %w", err)
	}
	out := LocationHealthResult{Cities: make([]CityRow, 0, len(res.Cities))}
	for _, c := range res.Cities {
		out.Cities = append(out.Cities, CityRow{
			Country: c.Country,
			City:    c.City,
			Offices: c.Offices,
			Devices: c.Devices,
			Score:   c.Health.Score,
			Status:  string(c.Health.Status),
		})
	}
	return nil, out, nil
}

func (s *Server) handleRecentAlerts(ctx context.Context, _ *mcp.CallToolRequest, args RecentAlertsArgs) (*mcp.CallToolResult, RecentAlertsResult, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	res, err := s.svc.Alerts(ctx, service.AlertQuery{Limit: limit, Severity: args.Severity, HostID: args.HostID})
	if err != nil {
		return nil, RecentAlertsResult{}, fmt.Errorf("failed to list alerts: %w", err)
	}
	out := RecentAlertsResult{Alerts: make([]AlertRow, 0, len(res.Alerts))}
	for _, e := range res.Alerts {
		out.Alerts = append(out.Alerts, alertRow(e))
	}
	return nil, out, nil
}

func alertRow(e model.Event) AlertRow {
	row := AlertRow{
		HostID:     e.HostID,
		DeviceID:   e.DeviceID,
		Metric:     e.Metric,
		Status:     e.Status,
		Severity:   e.Severity,
		DetectedAt: e.DetectedAt.UTC().Format(time.RFC3339),
	}
	if !e.Value.IsZero() {
		row.Value = e.Value.String()
	}
	return row
}

// handleQueryGraph executes read-only Cypher queries.
func (s *Server) handleQueryGraph(ctx context.Context, _ *mcp.CallToolRequest, args QueryGraphArgs) (*mcp.CallToolResult, QueryGraphResult, error) {
	if s.graph == nil {
		return nil, QueryGraphResult{}, errors.New("graph database is not configured")
	}
	if !graph.IsReadOnly(args.Cypher) {
		return nil, QueryGraphResult{}, graph.ErrWriteQuery
	}
	result, err := s.graph.ExecuteCypher(ctx, args.Cypher)
	if err != nil {
		return nil, QueryGraphResult{}, fmt.Errorf("cypher query failed: %w", err)
	}
	return nil, QueryGraphResult{Data: result}, nil
}

func (s *Server) handleProbeMetrics(ctx context.Context, _ *mcp.CallToolRequest, _ ProbeMetricsArgs) (*mcp.CallToolResult, ProbeMetricsResult, error) {
	if s.probe == nil {
		return nil, ProbeMetricsResult{}, errors.New("host probe is not configured")
	}
	metrics, err := s.probe.Observe(ctx)
	if err != nil {
		return nil, ProbeMetricsResult{}, fmt.Errorf("failed to get metrics: %w", err)
	}

	out := ProbeMetricsResult{Readings: []ProbeReading{}}
	for _, m := range metrics {
		v, ok := m.Value.Float()
		if !ok {
			continue
		}
		if out.HostID == "" {
			out.HostID, out.DeviceID = m.Meta.HostID, m.Meta.DeviceID
		}
		iface := m.Meta.Iface
		if iface == model.GlobalIface {
			iface = ""
		}
		out.Readings = append(out.Readings, ProbeReading{Metric: m.Name, Iface: iface, Value: v})
	}
	return nil, out, nil
}

// Start runs the MCP server on stdio until ctx is done or the client leaves.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting netmon MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
