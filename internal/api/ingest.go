package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"

	"netmon/internal/model"
	"netmon/internal/service"
)

const IdempotencyHeader = "Idempotency-Key"

func ingestStatus(r *http.Request, res service.IngestResult) {
	if res.Duplicate {
		render.Status(r, http.StatusOK)
		return
	}
	render.Status(r, http.StatusCreated)
}

func (h *Handler) IngestMetrics(r *http.Request) (any, error) {
	var metrics []model.Metric
	if err := decodeArray(r, &metrics, "Expected array of metrics"); err != nil {
		return nil, err
	}
	res, err := h.svc.IngestMetrics(r.Context(), r.Header.Get(IdempotencyHeader), metrics)
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		DuplicateBatches.WithLabelValues("metrics").Inc()
	}
	IngestedRecords.WithLabelValues("metrics").Add(float64(res.Inserted))
	ingestStatus(r, res)
	return res, nil
}

func (h *Handler) IngestEvents(r *http.Request) (any, error) {
	var events []model.Event
	if err := decodeArray(r, &events, "Expected array of events"); err != nil {
		return nil, err
	}
	res, err := h.svc.IngestEvents(r.Context(), r.Header.Get(IdempotencyHeader), events)
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		DuplicateBatches.WithLabelValues("events").Inc()
	}
	IngestedRecords.WithLabelValues("events").Add(float64(res.Inserted))
	ingestStatus(r, res)
	return res, nil
}

// MetricSeries serves GET /metrics. start_ts and end_ts are epoch seconds.
func (h *Handler) MetricSeries(r *http.Request) (any, error) {
	q := r.URL.Query()
	deviceID, metric := q.Get("device_id"), q.Get("metric")
	if deviceID == "" || metric == "" || q.Get("start_ts") == "" || q.Get("end_ts") == "" {
		return nil, badRequest("device_id, metric, start_ts and end_ts are required")
	}
	start, ok := model.ParseEpoch(json.RawMessage(q.Get("start_ts")))
	if !ok {
		return nil, badRequest("start_ts must be epoch seconds")
	}
	end, ok := model.ParseEpoch(json.RawMessage(q.Get("end_ts")))
	if !ok {
		return nil, badRequest("end_ts must be epoch seconds")
	}
	return h.svc.MetricSeries(r.Context(), service.SeriesQuery{
		DeviceID: deviceID,
		Metric:   metric,
		Start:    start,
		End:      end,
		Limit:    intQuery(r, "limit", h.cfg.Query.MetricsSeriesLimit),
	})
}
