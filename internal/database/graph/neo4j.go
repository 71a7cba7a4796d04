// Package graph mirrors the location registry into Neo4j as
// (Country)-[:HAS_CITY]->(City)-[:HAS_OFFICE]->(Office)-[:HOSTS]->(Device),
// with (Device)-[:RAISED]->(Alert) for ingested alert events.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"netmon/internal/model"
)

// GraphClient defines the interface for graph database operations.
type GraphClient interface {
	Close(ctx context.Context) error
	Reset(ctx context.Context) error
	SyncOffice(ctx context.Context, o model.Office) error
	RemoveOffice(ctx context.Context, o model.Office) error
	LinkDevice(ctx context.Context, d model.Device) error
	IngestEvents(ctx context.Context, events []model.Event) error
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

// Neo4jClient implements GraphClient for Neo4j.
type Neo4jClient struct {
	driver neo4j.DriverWithContext
	dbName string
}

var _ GraphClient = (*Neo4jClient)(nil)

// NewNeo4jClient creates a new Neo4j client and verifies connectivity.
func NewNeo4jClient(uri, username, password, dbName string) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Neo4jClient{
		driver: driver,
		dbName: dbName,
	}, nil
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Neo4jClient) write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) error) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(tx)
	})
	return err
}

// Reset deletes all data in the graph.
func (c *Neo4jClient) Reset(ctx context.Context) error {
	return c.write(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		return err
	})
}

const syncOfficeQuery = `
	MERGE (co:Country {name: $country})
	MERGE (ci:City {name: $city, country: $country})
	MERGE (co)-[:HAS_CITY]->(ci)
	MERGE (o:Office {id: $id})
	SET o.name = $office,
		o.city = $city,
		o.country = $country,
		o.status = $status,
		o.lat = $lat,
		o.lon = $lon,
		o.updated_at = $updated_at
	WITH o, ci
	OPTIONAL MATCH (old:City)-[r:HAS_OFFICE]->(o) WHERE old <> ci
	DELETE r
	MERGE (ci)-[:HAS_OFFICE]->(o)
`

func officeParams(o model.Office) map[string]any {
	return map[string]any{
		"id":         o.ID,
		"office":     o.Office,
		"city":       o.City,
		"country":    o.Country,
		"status":     o.Status,
		"lat":        o.Geo.Lat,
		"lon":        o.Geo.Lon,
		"updated_at": o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// SyncOffice upserts an office node and moves it under its city.
func (c *Neo4jClient) SyncOffice(ctx context.Context, o model.Office) error {
	err := c.write(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, syncOfficeQuery, officeParams(o))
		return err
	})
	if err != nil {
		return fmt.Errorf("sync office %s: %w", o.ID, err)
	}
	return nil
}

// RemoveOffice deletes the office node; its devices stay in the graph unhosted.
func (c *Neo4jClient) RemoveOffice(ctx context.Context, o model.Office) error {
	err := c.write(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, `MATCH (o:Office {id: $id}) DETACH DELETE o`, map[string]any{"id": o.ID})
		return err
	})
	if err != nil {
		return fmt.Errorf("remove office %s: %w", o.ID, err)
	}
	return nil
}

const linkDeviceQuery = `
	MERGE (d:Device {hostid: $hostid})
	SET d.device_id = $device_id,
		d.device_type = $device_type,
		d.device_status = $device_status,
		d.location = $location
	WITH d
	OPTIONAL MATCH (:Office)-[r:HOSTS]->(d)
	DELETE r
	WITH d
	OPTIONAL MATCH (o:Office {name: $location})
	FOREACH (_ IN CASE WHEN o IS NULL THEN [] ELSE [1] END |
		MERGE (o)-[:HOSTS]->(d))
`

// LinkDevice upserts a device node and re-homes it under the office named by
// its location. Devices whose location names no office are left unhosted.
func (c *Neo4jClient) LinkDevice(ctx context.Context, d model.Device) error {
	params := map[string]any{
		"hostid":        d.HostID,
		"device_id":     d.DeviceID,
		"device_type":   d.DeviceType,
		"device_status": d.DeviceStatus,
		"location":      d.Location,
	}
	err := c.write(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, linkDeviceQuery, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("link device %s: %w", d.HostID, err)
	}
	return nil
}

const alertQuery = `
	MERGE (d:Device {hostid: $hostid})
	ON CREATE SET d.device_id = $device_id
	CREATE (a:Alert {
		metric: $metric,
		severity: $severity,
		status: $status,
		iface: $iface,
		value: $value,
		detected_at: $detected_at
	})
	CREATE (d)-[:RAISED]->(a)
`

// IngestEvents records alert events against their devices. Events without a
// host id are skipped.
func (c *Neo4jClient) IngestEvents(ctx context.Context, events []model.Event) error {
	err := c.write(ctx, func(tx neo4j.ManagedTransaction) error {
		for _, e := range events {
			if e.HostID == "" {
				continue
			}
			if _, err := tx.Run(ctx, alertQuery, alertParams(e)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ingest alerts: %w", err)
	}
	return nil
}

func alertParams(e model.Event) map[string]any {
	return map[string]any{
		"hostid":      e.HostID,
		"device_id":   e.DeviceID,
		"metric":      e.Metric,
		"severity":    e.Severity,
		"status":      e.Status,
		"iface":       e.Iface,
		"value":       e.Value.String(),
		"detected_at": e.DetectedAt.UTC().Format(time.RFC3339),
	}
}
