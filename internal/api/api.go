// Package api exposes the netmon service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"netmon/internal/config"
	"netmon/internal/database"
	"netmon/internal/service"
	"netmon/internal/websocket"
)

// Handler holds what the HTTP handlers need.
type Handler struct {
	svc      *service.Service
	hub      *websocket.Hub
	cfg      config.Config
	validate *validator.Validate
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, hub *websocket.Hub, cfg config.Config, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		svc:      svc,
		hub:      hub,
		cfg:      cfg,
		validate: validator.New(),
		log:      log,
	}
}

// apiFunc returns the response body. Handlers that need a status other
// than 200 set it with render.Status.
type apiFunc func(r *http.Request) (any, error)

type errorBody struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

// plain serves fn and reports failures as {"error": msg}.
func (h *Handler) plain(fn apiFunc) http.HandlerFunc {
	return h.serve(fn, false)
}

// flagged serves fn and reports failures as {"success": false, "error": msg}.
func (h *Handler) flagged(fn apiFunc) http.HandlerFunc {
	return h.serve(fn, true)
}

func (h *Handler) serve(fn apiFunc, withSuccess bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r)
		if err != nil {
			h.fail(w, r, err, withSuccess)
			return
		}
		render.JSON(w, r, v)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, withSuccess bool) {
	code := statusFor(err)
	msg := err.Error()
	var re *service.RequestError
	if errors.As(err, &re) {
		msg = re.Message
	}
	if code == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		msg = "Internal server error"
	}

	body := errorBody{Error: msg}
	if withSuccess {
		f := false
		body.Success = &f
	}
	render.Status(r, code)
	render.JSON(w, r, body)
}

// statusFor maps service and store errors to response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func requestError(kind error, msg string) error {
	return &service.RequestError{Kind: kind, Message: msg}
}

func badRequest(msg string) error {
	return requestError(service.ErrValidation, msg)
}

// decode reads a JSON body into dst and validates it. Validation failures
// are reported with invalidMsg.
func (h *Handler) decode(r *http.Request, dst any, invalidMsg string) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return badRequest("Request body is required")
		}
		return badRequest("Invalid JSON body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && invalidMsg != "" {
			return badRequest(invalidMsg)
		}
		return badRequest(err.Error())
	}
	return nil
}

// decodeArray reads a JSON array body. Anything else is rejected with msg.
func decodeArray(r *http.Request, dst any, msg string) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("Request body too large")
		}
		return badRequest("Failed to read request body")
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return badRequest(msg)
	}
	if err := json.Unmarshal([]byte(trimmed), dst); err != nil {
		return badRequest(msg)
	}
	return nil
}

// intQuery parses an integer query parameter; missing or malformed values
// yield def.
func intQuery(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
