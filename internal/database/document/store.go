package document

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"netmon/internal/database"
	"netmon/internal/model"
)

var _ database.Store = (*Store)(nil)

// =============================================================================
// METRICS AND EVENTS
// =============================================================================

func (s *Store) InsertMetrics(ctx context.Context, metrics []model.Metric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}
	now := s.now()
	docs := make([]any, len(metrics))
	for i, m := range metrics {
		m.Normalize(now)
		docs[i] = toMetricDoc(m)
	}
	res, err := s.metrics.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return 0, fmt.Errorf("insert metrics: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (s *Store) InsertEvents(ctx context.Context, events []model.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := s.now()
	docs := make([]any, len(events))
	for i, e := range events {
		e.Normalize(now)
		docs[i] = toEventDoc(e)
	}
	res, err := s.events.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert events: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// metricQuery translates a filter into a conjunction of clauses. Clauses are
// kept separate because several of them constrain the same field.
func metricQuery(f model.MetricFilter) bson.M {
	var and []bson.M
	add := func(key string, cond any) { and = append(and, bson.M{key: cond}) }

	if f.HostID != "" {
		add("meta.hostid", f.HostID)
	}
	if len(f.HostIDs) > 0 {
		add("meta.hostid", bson.M{"$in": f.HostIDs})
	}
	if f.DeviceID != "" {
		add("meta.device_id", f.DeviceID)
	}
	if f.Metric != "" {
		add("metric", f.Metric)
	}
	if f.MetricPattern != "" {
		add("metric", substring(f.MetricPattern))
	}
	if f.Location != "" {
		add("meta.location", substring(f.Location))
	}
	if f.ServerType != "" {
		add("meta.server_type", f.ServerType)
	}
	if f.ExcludeInfrastructure {
		add("meta.device_id", bson.M{"$not": primitive.Regex{Pattern: "zabbix|server", Options: "i"}})
	}
	if f.ExcludeGlobalIface {
		add("meta.iface", bson.M{"$ne": model.GlobalIface})
	}
	if f.InterfacesOnly {
		add("meta.ifindex", bson.M{"$exists": true, "$nin": bson.A{nil, ""}})
	}
	if !f.Since.IsZero() {
		add("ts", bson.M{"$gte": f.Since.UTC()})
	}
	if !f.Until.IsZero() {
		add("ts", bson.M{"$lte": f.Until.UTC()})
	}

	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

func substring(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func (s *Store) FindMetrics(ctx context.Context, f model.MetricFilter) ([]model.Metric, error) {
	dir := -1
	if f.Ascending {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: dir}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.metrics.Find(ctx, metricQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find metrics: %w", err)
	}
	var docs []metricDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}

	out := make([]model.Metric, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func eventQuery(f model.EventFilter) bson.M {
	q := bson.M{}
	if f.HostID != "" && len(f.HostIDs) > 0 {
		q["$and"] = bson.A{bson.M{"hostid": f.HostID}, bson.M{"hostid": bson.M{"$in": f.HostIDs}}}
	} else if f.HostID != "" {
		q["hostid"] = f.HostID
	} else if len(f.HostIDs) > 0 {
		q["hostid"] = bson.M{"$in": f.HostIDs}
	}
	if f.DeviceID != "" {
		q["device_id"] = f.DeviceID
	}
	if f.Severity != "" {
		q["severity"] = f.Severity
	}
	window := bson.M{}
	if !f.Since.IsZero() {
		window["$gte"] = f.Since.UTC()
	}
	if !f.Until.IsZero() {
		window["$lte"] = f.Until.UTC()
	}
	if len(window) > 0 {
		q["detected_at"] = window
	}
	return q
}

func (s *Store) FindEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "detected_at", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := s.events.Find(ctx, eventQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	out := make([]model.Event, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (s *Store) DeleteHostData(ctx context.Context, hostID string) (int64, int64, error) {
	m, err := s.metrics.DeleteMany(ctx, bson.M{"meta.hostid": hostID})
	if err != nil {
		return 0, 0, fmt.Errorf("delete metrics for %s: %w", hostID, err)
	}
	e, err := s.events.DeleteMany(ctx, bson.M{"hostid": hostID})
	if err != nil {
		return m.DeletedCount, 0, fmt.Errorf("delete events for %s: %w", hostID, err)
	}
	return m.DeletedCount, e.DeletedCount, nil
}

// =============================================================================
// DEVICE REGISTRY
// =============================================================================

func (s *Store) GetDevice(ctx context.Context, hostID string) (model.Device, error) {
	var d deviceDoc
	err := s.devices.FindOne(ctx, bson.M{"_id": hostID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Device{}, fmt.Errorf("device %s: %w", hostID, database.ErrNotFound)
	}
	if err != nil {
		return model.Device{}, fmt.Errorf("get device: %w", err)
	}
	return d.model(), nil
}

func (s *Store) UpsertDevice(ctx context.Context, d model.Device) error {
	if d.HostID == "" {
		return errors.New("upsert device: hostid required")
	}
	doc := deviceDoc{
		HostID:       d.HostID,
		DeviceID:     d.DeviceID,
		Location:     d.Location,
		Geo:          toGeoDoc(d.Geo),
		DeviceType:   d.DeviceType,
		DeviceStatus: d.DeviceStatus,
		UpdatedAt:    s.now().UTC(),
	}
	_, err := s.devices.ReplaceOne(ctx, bson.M{"_id": d.HostID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

func (s *Store) ListDevices(ctx context.Context) ([]model.Device, error) {
	cur, err := s.devices.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find devices: %w", err)
	}
	var docs []deviceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	out := make([]model.Device, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (s *Store) DeleteDevice(ctx context.Context, hostID string) error {
	res, err := s.devices.DeleteOne(ctx, bson.M{"_id": hostID})
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("device %s: %w", hostID, database.ErrNotFound)
	}
	return nil
}

func (d deviceDoc) model() model.Device {
	return model.Device{
		HostID:       d.HostID,
		DeviceID:     d.DeviceID,
		Location:     d.Location,
		Geo:          fromGeoDoc(d.Geo),
		DeviceType:   d.DeviceType,
		DeviceStatus: d.DeviceStatus,
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// =============================================================================
// OFFICES
// =============================================================================

var officeSort = bson.D{{Key: "country", Value: 1}, {Key: "city", Value: 1}, {Key: "office", Value: 1}}

func (s *Store) ListOffices(ctx context.Context, f model.OfficeFilter) ([]model.Office, error) {
	q := bson.M{}
	if f.Office != "" {
		q["office"] = f.Office
	}
	if f.City != "" {
		q["city"] = f.City
	}
	if f.Country != "" {
		q["country"] = f.Country
	}
	cur, err := s.offices.Find(ctx, q, options.Find().SetSort(officeSort))
	if err != nil {
		return nil, fmt.Errorf("find offices: %w", err)
	}
	var docs []officeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode offices: %w", err)
	}
	out := make([]model.Office, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (s *Store) GetOffice(ctx context.Context, idOrName string) (model.Office, error) {
	var d officeDoc
	err := s.offices.FindOne(ctx, bson.M{"_id": idOrName}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = s.offices.FindOne(ctx, bson.M{"office": idOrName},
			options.FindOne().SetSort(officeSort)).Decode(&d)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Office{}, fmt.Errorf("office %s: %w", idOrName, database.ErrNotFound)
	}
	if err != nil {
		return model.Office{}, fmt.Errorf("get office: %w", err)
	}
	return d.model(), nil
}

func (s *Store) CreateOffice(ctx context.Context, o model.Office) (model.Office, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Normalize(s.now())

	_, err := s.offices.InsertOne(ctx, toOfficeDoc(o))
	if mongo.IsDuplicateKeyError(err) {
		return model.Office{}, fmt.Errorf("office %s/%s/%s: %w", o.Country, o.City, o.Office, database.ErrConflict)
	}
	if err != nil {
		return model.Office{}, fmt.Errorf("insert office: %w", err)
	}
	return o, nil
}

func (s *Store) UpdateOffice(ctx context.Context, o model.Office) (model.Office, error) {
	cur, err := s.GetOffice(ctx, o.ID)
	if err != nil {
		return model.Office{}, err
	}
	o.ID = cur.ID
	o.CreatedAt = cur.CreatedAt
	o.Normalize(s.now())

	_, err = s.offices.ReplaceOne(ctx, bson.M{"_id": o.ID}, toOfficeDoc(o))
	if mongo.IsDuplicateKeyError(err) {
		return model.Office{}, fmt.Errorf("office %s/%s/%s: %w", o.Country, o.City, o.Office, database.ErrConflict)
	}
	if err != nil {
		return model.Office{}, fmt.Errorf("update office: %w", err)
	}
	return o, nil
}

func (s *Store) DeleteOffice(ctx context.Context, id string) error {
	cur, err := s.GetOffice(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.offices.DeleteOne(ctx, bson.M{"_id": cur.ID}); err != nil {
		return fmt.Errorf("delete office: %w", err)
	}
	return nil
}

func (s *Store) CountOffices(ctx context.Context) (int, error) {
	n, err := s.offices.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count offices: %w", err)
	}
	return int(n), nil
}

// =============================================================================
// ADMIN
// =============================================================================

func (s *Store) Stats(ctx context.Context) (model.StoreStats, error) {
	var st model.StoreStats
	var err error

	if st.Metrics, err = s.metrics.CountDocuments(ctx, bson.M{}); err != nil {
		return model.StoreStats{}, fmt.Errorf("count metrics: %w", err)
	}
	if st.Events, err = s.events.CountDocuments(ctx, bson.M{}); err != nil {
		return model.StoreStats{}, fmt.Errorf("count events: %w", err)
	}
	counts, err := s.deviceCounts(ctx, time.Time{})
	if err != nil {
		return model.StoreStats{}, err
	}
	st.Devices = len(counts)

	if st.DateRange.Oldest, err = s.edgeTimestamp(ctx, 1); err != nil {
		return model.StoreStats{}, err
	}
	if st.DateRange.Newest, err = s.edgeTimestamp(ctx, -1); err != nil {
		return model.StoreStats{}, err
	}
	return st, nil
}

func (s *Store) edgeTimestamp(ctx context.Context, dir int) (*time.Time, error) {
	var d struct {
		TS time.Time `bson:"ts"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "ts", Value: dir}}).
		SetProjection(bson.M{"ts": 1})
	err := s.metrics.FindOne(ctx, bson.M{}, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metric date range: %w", err)
	}
	t := d.TS.UTC()
	return &t, nil
}

type deviceCounts struct {
	DeviceID *string `bson:"_id"`
	Total    int64   `bson:"total"`
	Old      int64   `bson:"old"`
}

func (c deviceCounts) id() string {
	if c.DeviceID == nil {
		return ""
	}
	return *c.DeviceID
}

// deviceCounts groups metrics by device id, counting those before cutoff.
// Missing and empty device ids fall in the same group.
func (s *Store) deviceCounts(ctx context.Context, cutoff time.Time) ([]deviceCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$ifNull": bson.A{"$meta.device_id", ""}}},
			{Key: "total", Value: bson.M{"$sum": 1}},
			{Key: "old", Value: bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$lt": bson.A{"$ts", cutoff}}, 1, 0},
			}}},
		}}},
	}
	cur, err := s.metrics.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count metrics per device: %w", err)
	}
	var out []deviceCounts
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode device counts: %w", err)
	}
	return out, nil
}

func deviceMatch(id string) bson.M {
	if id == "" {
		return bson.M{"meta.device_id": bson.M{"$in": bson.A{nil, ""}}}
	}
	return bson.M{"meta.device_id": id}
}

// Prune keeps each device's newest KeepCount metrics and drops events
// detected before the cutoff.
func (s *Store) Prune(ctx context.Context, plan model.PrunePlan) (model.PruneResult, error) {
	cutoff := plan.Cutoff(s.now())
	res := model.PruneResult{Cutoff: cutoff, DryRun: plan.DryRun}

	counts, err := s.deviceCounts(ctx, cutoff)
	if err != nil {
		return res, err
	}

	for _, c := range counts {
		keep := plan.KeepCount(c.Total, c.Old)
		if keep >= c.Total {
			continue
		}

		var edge struct {
			TS time.Time `bson:"ts"`
		}
		opts := options.FindOne().
			SetSort(bson.D{{Key: "ts", Value: -1}}).
			SetSkip(keep - 1).
			SetProjection(bson.M{"ts": 1})
		if err := s.metrics.FindOne(ctx, deviceMatch(c.id()), opts).Decode(&edge); err != nil {
			return res, fmt.Errorf("threshold for %q: %w", c.id(), err)
		}

		q := deviceMatch(c.id())
		q["ts"] = bson.M{"$lt": edge.TS}
		n, err := countOrDelete(ctx, s.metrics, plan.DryRun, q)
		if err != nil {
			return res, fmt.Errorf("prune metrics for %q: %w", c.id(), err)
		}
		res.MetricsDeleted += n
	}

	n, err := countOrDelete(ctx, s.events, plan.DryRun, bson.M{"detected_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return res, fmt.Errorf("prune events: %w", err)
	}
	res.EventsDeleted = n
	return res, nil
}

func countOrDelete(ctx context.Context, coll *mongo.Collection, dryRun bool, q bson.M) (int64, error) {
	if dryRun {
		return coll.CountDocuments(ctx, q)
	}
	res, err := coll.DeleteMany(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
