package services

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
)

type CPUResult struct {
	Usage   float64
	PerCore []float64
	Cores   int
	Load1   float64
	Load5   float64
	Load15  float64
}

type CPUSensor struct{}

func NewCPUSensor() *CPUSensor {
	return &CPUSensor{}
}

func (s *CPUSensor) Name() string {
	return "CPU"
}

func (s *CPUSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *CPUSensor) Disconnect(ctx context.Context) error {
	return nil
}

func (s *CPUSensor) Collect(ctx context.Context) (any, error) {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get total cpu percent: %w", err)
	}
	if len(total) == 0 {
		return nil, fmt.Errorf("failed to get total cpu percent: no samples")
	}

	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get per-core cpu percent: %w", err)
	}

	cores, _ := cpu.CountsWithContext(ctx, true)

	res := CPUResult{
		Usage:   total[0],
		PerCore: perCore,
		Cores:   cores,
	}

	// load averages are missing on some platforms
	if avg, err := load.AvgWithContext(ctx); err == nil {
		res.Load1, res.Load5, res.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	return res, nil
}
