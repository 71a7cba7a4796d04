package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"netmon/internal/service"
)

func (h *Handler) AllMetrics(r *http.Request) (any, error) {
	q := r.URL.Query()
	return h.svc.AllMetrics(r.Context(), service.MetricsQuery{
		Limit:  intQuery(r, "limit", 0),
		Metric: q.Get("metric"),
		HostID: q.Get("hostid"),
	})
}

func (h *Handler) HostMetrics(r *http.Request) (any, error) {
	return h.svc.HostMetrics(r.Context(), chi.URLParam(r, "hostid"))
}

func (h *Handler) Alerts(r *http.Request) (any, error) {
	q := r.URL.Query()
	return h.svc.Alerts(r.Context(), service.AlertQuery{
		Limit:    intQuery(r, "limit", 0),
		Severity: q.Get("severity"),
		HostID:   q.Get("hostid"),
	})
}

func (h *Handler) Troubleshoot(r *http.Request) (any, error) {
	return h.svc.Troubleshoot(r.Context(), chi.URLParam(r, "hostid"), intQuery(r, "limit", 0), intQuery(r, "hours", 0))
}

func (h *Handler) Hosts(r *http.Request) (any, error) {
	return h.svc.Hosts(r.Context())
}

func (h *Handler) AllHosts(r *http.Request) (any, error) {
	return h.svc.AllHosts(r.Context())
}

func (h *Handler) Host(r *http.Request) (any, error) {
	return h.svc.Host(r.Context(), chi.URLParam(r, "id"))
}

func (h *Handler) Devices(r *http.Request) (any, error) {
	q := r.URL.Query()
	return h.svc.Devices(r.Context(), q.Get("location"), q.Get("city"))
}

func (h *Handler) CreateDevice(r *http.Request) (any, error) {
	var in service.DeviceInput
	if err := h.decode(r, &in, "device_id and hostid are required"); err != nil {
		return nil, err
	}
	res, err := h.svc.CreateDevice(r.Context(), in)
	if err != nil {
		return nil, err
	}
	render.Status(r, http.StatusCreated)
	return res, nil
}

func (h *Handler) Device(r *http.Request) (any, error) {
	return h.svc.Device(r.Context(), chi.URLParam(r, "hostid"))
}

func (h *Handler) UpdateDevice(r *http.Request) (any, error) {
	var u service.DeviceUpdate
	if err := h.decode(r, &u, ""); err != nil {
		return nil, err
	}
	return h.svc.UpdateDevice(r.Context(), chi.URLParam(r, "hostid"), u)
}

func (h *Handler) DeleteDevice(r *http.Request) (any, error) {
	return h.svc.DeleteDevice(r.Context(), chi.URLParam(r, "hostid"))
}

func (h *Handler) DeviceInterfaces(r *http.Request) (any, error) {
	return h.svc.DeviceInterfaces(r.Context(), chi.URLParam(r, "hostid"), intQuery(r, "hours", 0), intQuery(r, "limit", 0))
}

func (h *Handler) DeviceStatus(r *http.Request) (any, error) {
	return h.svc.DeviceStatus(r.Context(), chi.URLParam(r, "hostid"))
}

type deviceStatusBody struct {
	DeviceStatus string `json:"device_status"`
}

func (h *Handler) SetDeviceStatus(r *http.Request) (any, error) {
	var body deviceStatusBody
	if err := h.decode(r, &body, ""); err != nil {
		return nil, err
	}
	return h.svc.SetDeviceStatus(r.Context(), chi.URLParam(r, "hostid"), body.DeviceStatus)
}
