package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"netmon/internal/advisor"
	"netmon/internal/model"
	"netmon/internal/service"
)

const (
	defaultKeepDays            = 7
	defaultMinRecordsPerDevice = 100
)

type healthzResult struct {
	Status string `json:"status"`
}

func (h *Handler) Healthz(r *http.Request) (any, error) {
	if err := h.svc.Ping(r.Context()); err != nil {
		return nil, requestError(service.ErrUnavailable, "store unreachable")
	}
	return healthzResult{Status: "ok"}, nil
}

// analysisBody accepts value as any JSON scalar.
type analysisBody struct {
	Device     string `json:"device"`
	Metric     string `json:"metric"`
	Value      any    `json:"value"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
	Mode       string `json:"mode" validate:"omitempty,oneof=analysis troubleshoot"`
}

func (h *Handler) Analyze(r *http.Request) (any, error) {
	var body analysisBody
	if err := h.decode(r, &body, `mode must be "analysis" or "troubleshoot"`); err != nil {
		return nil, err
	}
	req := advisor.Request{
		Device:     body.Device,
		Metric:     body.Metric,
		Severity:   body.Severity,
		Suggestion: body.Suggestion,
		Mode:       body.Mode,
	}
	if body.Value != nil {
		req.Value = model.ValueOf(body.Value).String()
	}
	return h.svc.Analyze(r.Context(), req)
}

type askBody struct {
	Question string `json:"question"`
}

func (h *Handler) Ask(r *http.Request) (any, error) {
	var body askBody
	if err := h.decode(r, &body, ""); err != nil {
		return nil, err
	}
	return h.svc.Ask(r.Context(), body.Question)
}

func (h *Handler) CleanupStats(r *http.Request) (any, error) {
	return h.svc.CleanupStats(r.Context())
}

type cleanupBody struct {
	KeepDays            *int `json:"keepDays"`
	MinRecordsPerDevice *int `json:"minRecordsPerDevice"`
	DryRun              bool `json:"dryRun"`
}

// Cleanup accepts an empty body; missing fields take the defaults.
func (h *Handler) Cleanup(r *http.Request) (any, error) {
	var body cleanupBody
	if err := render.DecodeJSON(r.Body, &body); err != nil && !errors.Is(err, io.EOF) {
		return nil, badRequest("Invalid JSON body")
	}
	plan := model.PrunePlan{
		KeepDays:            defaultKeepDays,
		MinRecordsPerDevice: defaultMinRecordsPerDevice,
		DryRun:              body.DryRun,
	}
	if body.KeepDays != nil {
		plan.KeepDays = *body.KeepDays
	}
	if body.MinRecordsPerDevice != nil {
		plan.MinRecordsPerDevice = *body.MinRecordsPerDevice
	}

	entry := h.log.WithFields(logrus.Fields{
		"keep_days": plan.KeepDays,
		"dry_run":   plan.DryRun,
	})
	if claims, ok := ClaimsFrom(r.Context()); ok {
		entry = entry.WithField("admin", claims.Username)
	}
	entry.Info("cleanup requested")
	return h.svc.Cleanup(r.Context(), plan)
}
