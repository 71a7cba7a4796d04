package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"netmon/internal/model"
	"netmon/internal/service"
)

func (h *Handler) Locations(r *http.Request) (any, error) {
	return h.svc.Locations(r.Context(), r.URL.Query().Get("location"))
}

func locationQuery(r *http.Request) service.LocationQuery {
	q := r.URL.Query()
	return service.LocationQuery{
		Location: q.Get("location"),
		City:     q.Get("city"),
		Country:  q.Get("country"),
	}
}

func (h *Handler) LocationDevices(r *http.Request) (any, error) {
	return h.svc.LocationDevices(r.Context(), locationQuery(r))
}

func (h *Handler) CheckLocationDevices(r *http.Request) (any, error) {
	return h.svc.CheckLocationDevices(r.Context(), locationQuery(r))
}

func (h *Handler) OfficeDetails(r *http.Request) (any, error) {
	return h.svc.OfficeDetails(r.Context(),
		chi.URLParam(r, "country"),
		chi.URLParam(r, "city"),
		chi.URLParam(r, "office"),
	)
}

func (h *Handler) CityHealth(r *http.Request) (any, error) {
	return h.svc.CityHealth(r.Context(), r.URL.Query().Get("country"))
}

func (h *Handler) CountryHealth(r *http.Request) (any, error) {
	return h.svc.CountryHealth(r.Context())
}

func (h *Handler) OfficeHealth(r *http.Request) (any, error) {
	return h.svc.OfficeHealth(r.Context(), chi.URLParam(r, "id"))
}

func (h *Handler) Offices(r *http.Request) (any, error) {
	q := r.URL.Query()
	return h.svc.Offices(r.Context(), model.OfficeFilter{
		Office:  q.Get("office"),
		City:    q.Get("city"),
		Country: q.Get("country"),
	})
}

func (h *Handler) CreateOffice(r *http.Request) (any, error) {
	var in service.OfficeInput
	if err := h.decode(r, &in, "office, city, and country are required"); err != nil {
		return nil, err
	}
	res, err := h.svc.CreateOffice(r.Context(), in)
	if err != nil {
		return nil, err
	}
	render.Status(r, http.StatusCreated)
	return res, nil
}

func (h *Handler) Office(r *http.Request) (any, error) {
	return h.svc.Office(r.Context(), chi.URLParam(r, "id"))
}

func (h *Handler) UpdateOffice(r *http.Request) (any, error) {
	var p service.OfficePatch
	if err := h.decode(r, &p, `status must be "active" or "inactive"`); err != nil {
		return nil, err
	}
	return h.svc.UpdateOffice(r.Context(), chi.URLParam(r, "id"), p)
}

func (h *Handler) DeleteOffice(r *http.Request) (any, error) {
	return h.svc.DeleteOffice(r.Context(), chi.URLParam(r, "id"))
}

func (h *Handler) SetupOffices(r *http.Request) (any, error) {
	return h.svc.SetupOffices(r.Context())
}

func (h *Handler) SetupStatus(r *http.Request) (any, error) {
	return h.svc.SetupStatus(r.Context())
}

func (h *Handler) ZabbixServer(r *http.Request) (any, error) {
	return h.svc.ZabbixServer(r.Context())
}
