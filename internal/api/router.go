package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netmon/internal/database"
)

// NewRouter wires every route of the dashboard backend.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", h.plain(h.Healthz))
	r.Handle("/prometheus", promhttp.Handler())
	if h.hub != nil {
		r.Get("/ws/events", h.hub.ServeWS)
	}

	r.Group(func(r chi.Router) {
		if h.cfg.Server.MaxBodyBytes > 0 {
			r.Use(middleware.RequestSize(h.cfg.Server.MaxBodyBytes))
		}
		r.Post("/ingest/metrics", h.plain(h.IngestMetrics))
		r.Post("/ingest/events", h.plain(h.IngestEvents))
	})
	r.Get("/metrics", h.plain(h.MetricSeries))

	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics/all", h.plain(h.AllMetrics))
		r.Get("/metrics/{hostid}", h.flagged(h.HostMetrics))
		r.Get("/alerts", h.plain(h.Alerts))
		r.Get("/troubleshoot/{hostid}", h.plain(h.Troubleshoot))

		r.Get("/hosts", h.plain(h.Hosts))
		r.Get("/hosts/all", h.plain(h.AllHosts))
		r.Get("/hosts/{id}", h.plain(h.Host))

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", h.flagged(h.Devices))
			r.Post("/", h.flagged(h.CreateDevice))
			r.Get("/{hostid}", h.flagged(h.Device))
			r.Put("/{hostid}", h.flagged(h.UpdateDevice))
			r.Delete("/{hostid}", h.flagged(h.DeleteDevice))
			r.Get("/{hostid}/interfaces", h.plain(h.DeviceInterfaces))
			r.Get("/{hostid}/status", h.flagged(h.DeviceStatus))
			r.Put("/{hostid}/status", h.flagged(h.SetDeviceStatus))
		})

		r.Get("/locations", h.plain(h.Locations))
		r.Get("/locations/devices", h.flagged(h.LocationDevices))
		r.Get("/locations/check-devices", h.flagged(h.CheckLocationDevices))
		r.Get("/locations/{country}/{city}/{office}", h.plain(h.OfficeDetails))

		r.Get("/health/cities", h.flagged(h.CityHealth))
		r.Get("/health/countries", h.flagged(h.CountryHealth))

		r.Route("/offices", func(r chi.Router) {
			r.Get("/", h.flagged(h.Offices))
			r.Post("/", h.flagged(h.CreateOffice))
			r.Get("/{id}", h.flagged(h.Office))
			r.Put("/{id}", h.flagged(h.UpdateOffice))
			r.Delete("/{id}", h.flagged(h.DeleteOffice))
			r.Get("/{id}/health", h.flagged(h.OfficeHealth))
		})
		r.Get("/setup/offices", h.flagged(h.SetupStatus))
		r.Post("/setup/offices", h.flagged(h.SetupOffices))

		r.Get("/zabbix-server", h.flagged(h.ZabbixServer))

		r.Post("/ai-troubleshoot", h.plain(h.Analyze))
		r.Post("/analysis", h.plain(h.Analyze))
		r.Post("/ask", h.flagged(h.Ask))

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/cleanup", h.flagged(h.CleanupStats))
			r.Post("/cleanup", h.flagged(h.Cleanup))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.fail(w, r, requestError(database.ErrNotFound, "Not found"), false)
	})
	return r
}
