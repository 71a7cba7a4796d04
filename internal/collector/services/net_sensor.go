package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/shirou/gopsutil/v4/net"
)

type InterfaceStat struct {
	Name      string
	Index     int
	Up        bool
	Loopback  bool
	BytesSent uint64
	BytesRecv uint64
	ErrIn     uint64
	ErrOut    uint64
	DropIn    uint64
	DropOut   uint64
}

type NetResult struct {
	Interfaces []InterfaceStat
}

type NetSensor struct{}

func NewNetSensor() *NetSensor {
	return &NetSensor{}
}

func (s *NetSensor) Name() string {
	return "Network"
}

func (s *NetSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *NetSensor) Disconnect(ctx context.Context) error {
	return nil
}

func (s *NetSensor) Collect(ctx context.Context) (any, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get net io counters: %w", err)
	}
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	byName := make(map[string]net.InterfaceStat, len(ifaces))
	for _, i := range ifaces {
		byName[i.Name] = i
	}

	stats := make([]InterfaceStat, 0, len(counters))
	for _, c := range counters {
		st := InterfaceStat{
			Name:      c.Name,
			BytesSent: c.BytesSent,
			BytesRecv: c.BytesRecv,
			ErrIn:     c.Errin,
			ErrOut:    c.Errout,
			DropIn:    c.Dropin,
			DropOut:   c.Dropout,
		}
		if i, ok := byName[c.Name]; ok {
			st.Index = i.Index
			st.Up = slices.Contains(i.Flags, "up")
			st.Loopback = slices.Contains(i.Flags, "loopback")
		}
		stats = append(stats, st)
	}

	return NetResult{Interfaces: stats}, nil
}
