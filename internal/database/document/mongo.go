// Package document stores netmon data in MongoDB using the collection layout
// the monitoring agent writes to: metrics_ts, events, offices and devices.
package document

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"netmon/internal/model"
)

// Config names the deployment and its collections.
type Config struct {
	URI               string
	Database          string
	MetricsCollection string
	EventsCollection  string
	Timeout           time.Duration
}

func DefaultConfig() Config {
	return Config{
		URI:               "mongodb://localhost:27017",
		Database:          "netmon",
		MetricsCollection: "metrics_ts",
		EventsCollection:  "events",
		Timeout:           10 * time.Second,
	}
}

// Store implements database.Store on MongoDB.
type Store struct {
	client  *mongo.Client
	metrics *mongo.Collection
	events  *mongo.Collection
	offices *mongo.Collection
	devices *mongo.Collection
	now     func() time.Time
}

// Open connects, verifies the deployment and ensures indexes.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:  client,
		metrics: db.Collection(cfg.MetricsCollection),
		events:  db.Collection(cfg.EventsCollection),
		offices: db.Collection("offices"),
		devices: db.Collection("devices"),
		now:     time.Now,
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the query and identity indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.metrics, []mongo.IndexModel{
			{Keys: bson.D{{Key: "meta.device_id", Value: 1}, {Key: "metric", Value: 1}}},
			{Keys: bson.D{{Key: "meta.hostid", Value: 1}, {Key: "ts", Value: -1}}},
		}},
		{s.events, []mongo.IndexModel{
			{Keys: bson.D{{Key: "device_id", Value: 1}, {Key: "detected_at", Value: -1}}},
			{Keys: bson.D{{Key: "hostid", Value: 1}, {Key: "detected_at", Value: -1}}},
		}},
		{s.offices, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "office", Value: 1}, {Key: "city", Value: 1}, {Key: "country", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// =============================================================================
// DOCUMENT SHAPES
// =============================================================================

type geoDoc struct {
	Lat     float64 `bson:"lat"`
	Lon     float64 `bson:"lon"`
	City    string  `bson:"city,omitempty"`
	Country string  `bson:"country,omitempty"`
	Source  string  `bson:"source,omitempty"`
}

type metaDoc struct {
	HostID     string  `bson:"hostid,omitempty"`
	DeviceID   string  `bson:"device_id,omitempty"`
	IfIndex    string  `bson:"ifindex,omitempty"`
	IfDescr    string  `bson:"ifdescr,omitempty"`
	Iface      string  `bson:"iface,omitempty"`
	Location   string  `bson:"location,omitempty"`
	Geo        *geoDoc `bson:"geo,omitempty"`
	DeviceType string  `bson:"device_type,omitempty"`
	ServerType string  `bson:"server_type,omitempty"`
}

type metricDoc struct {
	TS        time.Time `bson:"ts"`
	Meta      metaDoc   `bson:"meta"`
	Metric    string    `bson:"metric"`
	Value     any       `bson:"value"`
	ValueType string    `bson:"value_type"`
}

type eventDoc struct {
	DeviceID   string         `bson:"device_id,omitempty"`
	HostID     string         `bson:"hostid,omitempty"`
	Iface      string         `bson:"iface,omitempty"`
	Metric     string         `bson:"metric,omitempty"`
	Value      any            `bson:"value"`
	Status     string         `bson:"status,omitempty"`
	Severity   string         `bson:"severity"`
	DetectedAt time.Time      `bson:"detected_at"`
	Evidence   map[string]any `bson:"evidence,omitempty"`
	Labels     []string       `bson:"labels,omitempty"`
}

type officeDoc struct {
	ID          string         `bson:"_id"`
	Office      string         `bson:"office"`
	City        string         `bson:"city"`
	Country     string         `bson:"country"`
	Geo         geoDoc         `bson:"geo"`
	Description string         `bson:"description"`
	ContactInfo map[string]any `bson:"contact_info"`
	DeviceIDs   []string       `bson:"device_ids"`
	Status      string         `bson:"status"`
	CreatedAt   time.Time      `bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
}

type deviceDoc struct {
	HostID       string    `bson:"_id"`
	DeviceID     string    `bson:"device_id"`
	Location     string    `bson:"location,omitempty"`
	Geo          *geoDoc   `bson:"geo,omitempty"`
	DeviceType   string    `bson:"device_type,omitempty"`
	DeviceStatus string    `bson:"device_status,omitempty"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toGeoDoc(g *model.Geo) *geoDoc {
	if g == nil {
		return nil
	}
	d := geoDoc(*g)
	return &d
}

func fromGeoDoc(g *geoDoc) *model.Geo {
	if g == nil {
		return nil
	}
	m := model.Geo(*g)
	return &m
}

func toMetricDoc(m model.Metric) metricDoc {
	return metricDoc{
		TS: m.Timestamp.UTC(),
		Meta: metaDoc{
			HostID:     m.Meta.HostID,
			DeviceID:   m.Meta.DeviceID,
			IfIndex:    string(m.Meta.IfIndex),
			IfDescr:    m.Meta.IfDescr,
			Iface:      m.Meta.Iface,
			Location:   m.Meta.Location,
			Geo:        toGeoDoc(m.Meta.Geo),
			DeviceType: m.Meta.DeviceType,
			ServerType: m.Meta.ServerType,
		},
		Metric:    m.Name,
		Value:     m.Value.Interface(),
		ValueType: m.ValueType,
	}
}

func (d metricDoc) model() model.Metric {
	return model.Metric{
		Timestamp: d.TS.UTC(),
		Meta: model.Meta{
			HostID:     d.Meta.HostID,
			DeviceID:   d.Meta.DeviceID,
			IfIndex:    model.FlexString(d.Meta.IfIndex),
			IfDescr:    d.Meta.IfDescr,
			Iface:      d.Meta.Iface,
			Location:   d.Meta.Location,
			Geo:        fromGeoDoc(d.Meta.Geo),
			DeviceType: d.Meta.DeviceType,
			ServerType: d.Meta.ServerType,
		},
		Name:      d.Metric,
		Value:     model.ValueOf(d.Value),
		ValueType: d.ValueType,
	}
}

func toEventDoc(e model.Event) eventDoc {
	return eventDoc{
		DeviceID:   e.DeviceID,
		HostID:     e.HostID,
		Iface:      e.Iface,
		Metric:     e.Metric,
		Value:      e.Value.Interface(),
		Status:     e.Status,
		Severity:   e.Severity,
		DetectedAt: e.DetectedAt.UTC(),
		Evidence:   e.Evidence,
		Labels:     e.Labels,
	}
}

func (d eventDoc) model() model.Event {
	return model.Event{
		DeviceID:   d.DeviceID,
		HostID:     d.HostID,
		Iface:      d.Iface,
		Metric:     d.Metric,
		Value:      model.ValueOf(d.Value),
		Status:     d.Status,
		Severity:   d.Severity,
		DetectedAt: d.DetectedAt.UTC(),
		Evidence:   d.Evidence,
		Labels:     d.Labels,
	}
}

func toOfficeDoc(o model.Office) officeDoc {
	return officeDoc{
		ID:          o.ID,
		Office:      o.Office,
		City:        o.City,
		Country:     o.Country,
		Geo:         geoDoc(o.Geo),
		Description: o.Description,
		ContactInfo: o.ContactInfo,
		DeviceIDs:   o.DeviceIDs,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt.UTC(),
		UpdatedAt:   o.UpdatedAt.UTC(),
	}
}

func (d officeDoc) model() model.Office {
	o := model.Office{
		ID:          d.ID,
		Office:      d.Office,
		City:        d.City,
		Country:     d.Country,
		Geo:         model.Geo(d.Geo),
		Description: d.Description,
		ContactInfo: d.ContactInfo,
		DeviceIDs:   d.DeviceIDs,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if o.ContactInfo == nil {
		o.ContactInfo = map[string]any{}
	}
	if o.DeviceIDs == nil {
		o.DeviceIDs = []string{}
	}
	return o
}
