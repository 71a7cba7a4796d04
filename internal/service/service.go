// Package service implements the netmon dashboard operations on top of a
// database.Store. Every call reads the append-only records it needs and
// derives listings, interface states and health scores on the fly; nothing
// derived is cached between calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"netmon/internal/advisor"
	"netmon/internal/aggregate"
	"netmon/internal/config"
	"netmon/internal/database"
	"netmon/internal/database/graph"
	"netmon/internal/database/rag"
	"netmon/internal/health"
	"netmon/internal/idempotency"
	"netmon/internal/model"
)

var (
	// ErrValidation marks a request the caller must fix.
	ErrValidation = errors.New("invalid request")
	// ErrUnavailable marks an operation whose backing service is not configured.
	ErrUnavailable = errors.New("not configured")
)

// RequestError carries the message shown to the caller alongside the
// sentinel that decides the response status.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Kind }

func invalid(format string, args ...any) error {
	return &RequestError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(msg string) error {
	return &RequestError{Kind: database.ErrNotFound, Message: msg}
}

func conflict(msg string) error {
	return &RequestError{Kind: database.ErrConflict, Message: msg}
}

// Deps wires a Service. Store is required; Graph, RAG and Keys are optional.
type Deps struct {
	Store   database.Store
	Graph   graph.GraphClient
	RAG     *rag.GraphRAGEngine
	Advisor *advisor.Advisor
	Keys    idempotency.Store
	KeyTTL  time.Duration
	Health  *health.Classifier
	Query   config.QueryConfig
	Log     *logrus.Logger
}

type Service struct {
	store   database.Store
	graph   graph.GraphClient
	rag     *rag.GraphRAGEngine
	advisor *advisor.Advisor
	keys    idempotency.Store
	keyTTL  time.Duration
	health  *health.Classifier
	query   config.QueryConfig
	log     *logrus.Logger
	now     func() time.Time

	mu          sync.RWMutex
	subscribers []func([]model.Event)
}

func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Advisor == nil {
		d.Advisor = advisor.New(nil, d.Log)
	}
	if d.Health == nil {
		d.Health = health.NewClassifier(health.DefaultConfig())
	}
	if d.KeyTTL <= 0 {
		d.KeyTTL = idempotency.DefaultTTL
	}
	if d.Query.DefaultLimit <= 0 {
		d.Query = config.Default().Query
	}
	return &Service{
		store:   d.Store,
		graph:   d.Graph,
		rag:     d.RAG,
		advisor: d.Advisor,
		keys:    d.Keys,
		keyTTL:  d.KeyTTL,
		health:  d.Health,
		query:   d.Query,
		log:     d.Log,
		now:     time.Now,
	}
}

// Subscribe registers fn to receive every batch of ingested events.
func (s *Service) Subscribe(fn func([]model.Event)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Service) publish(events []model.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.subscribers {
		fn(events)
	}
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// limit applies the default when n is unset and caps it at max.
func (s *Service) limit(n, max int) int {
	if n <= 0 {
		n = s.query.DefaultLimit
	}
	if n > max {
		n = max
	}
	return n
}

// metrics reads metrics and overlays registry metadata, so device moves and
// renames show up without rewriting the stream.
func (s *Service) metrics(ctx context.Context, f model.MetricFilter) ([]model.Metric, error) {
	ms, err := s.store.FindMetrics(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	registry, err := s.store.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return aggregate.OverlayDevices(ms, registry), nil
}

func (s *Service) events(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	es, err := s.store.FindEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return es, nil
}

// hosts groups every metric into host summaries with their latest alert.
func (s *Service) hosts(ctx context.Context, f model.MetricFilter) ([]aggregate.HostSummary, error) {
	ms, err := s.metrics(ctx, f)
	if err != nil {
		return nil, err
	}
	es, err := s.events(ctx, model.EventFilter{})
	if err != nil {
		return nil, err
	}
	return aggregate.ApplyAlerts(aggregate.GroupHosts(ms), aggregate.LatestAlerts(es)), nil
}

// knownHost returns the registry entry of a host, or one derived from its
// newest metric when the host only exists in the stream.
func (s *Service) knownHost(ctx context.Context, hostID string) (model.Device, error) {
	d, err := s.store.GetDevice(ctx, hostID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return model.Device{}, fmt.Errorf("failed to get device: %w", err)
	}
	ms, err := s.store.FindMetrics(ctx, model.MetricFilter{HostID: hostID, Limit: 1})
	if err != nil {
		return model.Device{}, fmt.Errorf("failed to query metrics: %w", err)
	}
	if len(ms) == 0 {
		return model.Device{}, database.ErrNotFound
	}
	m := ms[0].Meta
	return model.Device{
		HostID:       hostID,
		DeviceID:     m.DeviceID,
		Location:     m.Location,
		Geo:          m.Geo,
		DeviceType:   m.DeviceType,
		DeviceStatus: model.DeviceAvailable,
	}, nil
}

// syncGraph runs a best-effort graph update. The registry stays the source
// of truth, so failures are only logged.
func (s *Service) syncGraph(what string, fn func(g graph.GraphClient) error) {
	if s.graph == nil {
		return
	}
	if err := fn(s.graph); err != nil {
		s.log.WithError(err).WithField("op", what).Warn("graph sync failed")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
