package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon/internal/config"
	"netmon/internal/database/memory"
	"netmon/internal/idempotency"
	"netmon/internal/service"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	cfg := config.Default().WithJWTSecret(testSecret)
	svc := service.New(service.Deps{
		Store: memory.New(),
		Keys:  idempotency.NewMemory(),
		Query: cfg.Query,
		Log:   log,
	})
	return NewRouter(NewHandler(svc, nil, cfg, log))
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestIngestMetrics(t *testing.T) {
	h := newTestRouter(t)
	ts := time.Now().Unix()
	batch := `[{"ts":` + jsonInt(ts) + `,"meta":{"hostid":"h1","device_id":"core-sw-01","ifindex":3},"metric":"Bits received","value":1200}]`

	tests := []struct {
		name       string
		body       string
		key        string
		wantStatus int
		wantBody   map[string]any
	}{
		{"Not an array", `{"metric":"x"}`, "", http.StatusBadRequest, map[string]any{"error": "Expected array of metrics"}},
		{"First batch", batch, "k1", http.StatusCreated, map[string]any{"inserted": float64(1)}},
		{"Replayed key", batch, "k1", http.StatusOK, map[string]any{"inserted": float64(0), "duplicate": true}},
		{"Empty array", `[]`, "", http.StatusCreated, map[string]any{"inserted": float64(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.key != "" {
				headers = []string{IdempotencyHeader, tt.key}
			}
			rec, body := do(t, h, http.MethodPost, "/ingest/metrics", tt.body, headers...)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, body)
		})
	}

	rec, body := do(t, h, http.MethodGet, "/metrics?device_id=core-sw-01&metric=Bits+received&start_ts=0&end_ts="+jsonInt(ts+1), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = do(t, h, http.MethodGet, "/metrics?device_id=core-sw-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestEventsRejectsObjects(t *testing.T) {
	h := newTestRouter(t)
	rec, body := do(t, h, http.MethodPost, "/ingest/events", `{"hostid":"h1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Expected array of events", body["error"])

	rec, body = do(t, h, http.MethodPost, "/ingest/events", `[{"hostid":"h1","severity":"critical","status":"Down"}]`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), body["inserted"])

	rec, body = do(t, h, http.MethodGet, "/api/alerts?severity=critical", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestDeviceRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/api/devices", `{"hostid":"h1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "device_id and hostid are required", body["error"])

	rec, body = do(t, h, http.MethodPost, "/api/devices", `{"hostid":"h1","device_id":"core-sw-01"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Device created successfully", body["message"])

	rec, _ = do(t, h, http.MethodPost, "/api/devices", `{"hostid":"h1","device_id":"core-sw-01"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = do(t, h, http.MethodPut, "/api/devices/h1/status", `{"device_status":"busy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Invalid device_status. Must be "occupied" or "available"`, body["error"])

	rec, body = do(t, h, http.MethodPut, "/api/devices/h1/status", `{"device_status":"occupied"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Device status updated to occupied", body["message"])

	rec, body = do(t, h, http.MethodGet, "/api/devices/h1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "occupied", body["device_status"])

	rec, body = do(t, h, http.MethodGet, "/api/devices/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Device not found", body["error"])

	rec, _ = do(t, h, http.MethodDelete, "/api/devices/h1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHostNotFoundIsPlainError(t *testing.T) {
	h := newTestRouter(t)
	rec, body := do(t, h, http.MethodGet, "/api/hosts/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"error": "Host not found"}, body)
}

func TestOfficeRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/api/offices", `{"office":"HQ"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "office, city, and country are required", body["error"])

	rec, body = do(t, h, http.MethodPost, "/api/offices", `{"office":"HQ","city":"Paris","country":"France"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	office := body["office"].(map[string]any)
	id := office["id"].(string)

	rec, _ = do(t, h, http.MethodPost, "/api/offices", `{"office":"HQ","city":"Paris","country":"France"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, h, http.MethodPut, "/api/offices/"+id, `{"status":"closed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/api/offices/HQ/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HQ", body["office"])

	rec, body = do(t, h, http.MethodGet, "/api/health/cities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = do(t, h, http.MethodDelete, "/api/offices/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/offices/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetupOfficesIsIdempotent(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/api/setup/offices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["created"])

	rec, body = do(t, h, http.MethodPost, "/api/setup/offices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["created"])
}

func TestLocationsRequireAllParts(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodGet, "/api/locations/devices?location=HQ&city=Paris", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "location, city, and country are required", body["error"])

	rec, body = do(t, h, http.MethodGet, "/api/locations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No location data found in monitoring data", body["message"])
}

func TestAnalysis(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/api/ai-troubleshoot", `{"device":"core-sw-01","metric":"CPU utilization"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: device, metric, value, severity", body["error"])

	rec, body = do(t, h, http.MethodPost, "/api/analysis", `{"device":"core-sw-01","metric":"CPU utilization","value":97.5,"severity":"critical","mode":"troubleshoot"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rules", body["source"])
	assert.NotEmpty(t, body["troubleshootingSteps"])

	rec, _ = do(t, h, http.MethodPost, "/api/ask", `{"question":"which offices are down?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminRequiresRole(t *testing.T) {
	h := newTestRouter(t)

	admin, err := NewToken(testSecret, "netmon", "alice", RoleAdmin, time.Hour)
	require.NoError(t, err)
	viewer, err := NewToken(testSecret, "netmon", "bob", "viewer", time.Hour)
	require.NoError(t, err)
	forged, err := NewToken("other-secret", "netmon", "eve", RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{"No header", "", http.StatusUnauthorized},
		{"Wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"Bad signature", "Bearer " + forged, http.StatusUnauthorized},
		{"Not an admin", "Bearer " + viewer, http.StatusForbidden},
		{"Admin", "Bearer " + admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.auth != "" {
				headers = []string{"Authorization", tt.auth}
			}
			rec, _ := do(t, h, http.MethodGet, "/api/admin/cleanup", "", headers...)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	rec, body := do(t, h, http.MethodPost, "/api/admin/cleanup", `{"keepDays":30,"dryRun":true}`, "Authorization", "Bearer "+admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dry run completed", body["message"])
	cfg := body["config"].(map[string]any)
	assert.Equal(t, float64(30), cfg["keepDays"])
	assert.Equal(t, float64(100), cfg["minRecordsPerDevice"])
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t)
	rec, body := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = do(t, h, http.MethodGet, "/prometheus", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCleanupLogsAdminFromClaims(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	cfg := config.Default().WithJWTSecret(testSecret)
	svc := service.New(service.Deps{
		Store: memory.New(),
		Keys:  idempotency.NewMemory(),
		Query: cfg.Query,
		Log:   log,
	})
	h := NewRouter(NewHandler(svc, nil, cfg, log))

	token, err := NewToken(testSecret, "netmon", "alice", RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec, _ := do(t, h, http.MethodPost, "/api/admin/cleanup", `{"dryRun":true}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)

	var found *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "cleanup requested" {
			found = e
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Data["admin"])
	assert.Equal(t, true, found.Data["dry_run"])
}

func TestClaimsFrom(t *testing.T) {
	_, ok := ClaimsFrom(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), claimsKey{}, &Claims{Username: "alice", Role: RoleAdmin})
	c, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", c.Username)
}
