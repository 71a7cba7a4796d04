package services

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

type MountUsage struct {
	Mountpoint  string
	Device      string
	Fstype      string
	Total       uint64
	UsedPercent float64
}

type DiskResult struct {
	Mounts []MountUsage
}

// Root returns the usage of "/" or, failing that, the fullest mount.
func (r DiskResult) Root() (MountUsage, bool) {
	var fullest MountUsage
	found := false
	for _, m := range r.Mounts {
		if m.Mountpoint == "/" {
			return m, true
		}
		if !found || m.UsedPercent > fullest.UsedPercent {
			fullest, found = m, true
		}
	}
	return fullest, found
}

type DiskSensor struct{}

func NewDiskSensor() *DiskSensor {
	return &DiskSensor{}
}

func (s *DiskSensor) Name() string {
	return "Disk"
}

func (s *DiskSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *DiskSensor) Disconnect(ctx context.Context) error {
	return nil
}

func (s *DiskSensor) Collect(ctx context.Context) (any, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get partitions: %w", err)
	}

	var res DiskResult
	seen := make(map[string]bool)
	for _, p := range partitions {
		if seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true

		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		res.Mounts = append(res.Mounts, MountUsage{
			Mountpoint:  p.Mountpoint,
			Device:      p.Device,
			Fstype:      p.Fstype,
			Total:       u.Total,
			UsedPercent: u.UsedPercent,
		})
	}
	return res, nil
}
