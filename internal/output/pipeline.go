package output

import (
	"context"
	"fmt"

	"netmon/internal/collector"
	"netmon/internal/model"
)

// PipelinePayload is one probe round ready for ingestion. Key is stable for
// the round so a retried ingest is recognised as a duplicate.
type PipelinePayload struct {
	Key     string
	Metrics []model.Metric
	Events  []model.Event
}

// DataFlagger turns observations into alert events.
type DataFlagger interface {
	Flag(metrics []model.Metric) []model.Event
}

// RunPipeline executes one probe round: Observe -> Flag -> Bundle.
func RunPipeline(ctx context.Context, col collector.Provider, flg DataFlagger) (*PipelinePayload, error) {
	metrics, err := col.Observe(ctx)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if len(metrics) == 0 {
		return &PipelinePayload{}, nil
	}

	var events []model.Event
	if flg != nil {
		events = flg.Flag(metrics)
	}

	return &PipelinePayload{
		Key:     BatchKey(metrics),
		Metrics: metrics,
		Events:  events,
	}, nil
}

// BatchKey derives the idempotency key of a probe round from its first
// observation's device and timestamp.
func BatchKey(metrics []model.Metric) string {
	if len(metrics) == 0 {
		return ""
	}
	m := metrics[0]
	return fmt.Sprintf("probe:%s:%d", m.Meta.DeviceID, m.Timestamp.UnixMilli())
}
