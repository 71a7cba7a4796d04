// Package services holds the gopsutil-backed sensors the host probe reads.
package services

import "context"

// Sensor is one source of host readings. Collect returns the sensor's own
// result type; callers assert it.
type Sensor interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Collect(ctx context.Context) (any, error)
}
