package services

import (
	"context"
	"net"
	"time"
)

type ReachResult struct {
	Endpoint  string
	Online    bool
	LatencyMS float64
}

// ReachSensor measures TCP connect latency to a fixed endpoint. A failed dial
// is a reading, not an error.
type ReachSensor struct {
	Endpoint string
	Timeout  time.Duration
}

func NewReachSensor(endpoint string, timeout time.Duration) *ReachSensor {
	return &ReachSensor{Endpoint: endpoint, Timeout: timeout}
}

func (s *ReachSensor) Name() string {
	return "Reachability"
}

func (s *ReachSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *ReachSensor) Disconnect(ctx context.Context) error {
	return nil
}

func (s *ReachSensor) Collect(ctx context.Context) (any, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Endpoint)
	if err != nil {
		return ReachResult{Endpoint: s.Endpoint}, nil
	}
	conn.Close()
	return ReachResult{
		Endpoint:  s.Endpoint,
		Online:    true,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}
