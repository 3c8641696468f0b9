package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"taskboard/internal/board"
	"taskboard/internal/store"
)

const maxBodySize = 1 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store  store.Store
	engine *board.Engine
	log    *logrus.Logger
}

// New creates a new Handlers instance.
func New(s store.Store, e *board.Engine, logger *logrus.Logger) *Handlers {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handlers{
		store:  s,
		engine: e,
		log:    logger,
	}
}

// Routes builds the router for the JSON API.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", h.Health)

	// Project API routes
	r.Get("/api/projects", h.ListProjects)
	r.Post("/api/projects", h.CreateProject)
	r.Get("/api/projects/{id}", h.GetProject)
	r.Put("/api/projects/{id}", h.UpdateProject)
	r.Delete("/api/projects/{id}", h.DeleteProject)

	// Task API routes
	r.Get("/api/projects/{id}/tasks", h.ListTasks)
	r.Post("/api/projects/{id}/tasks", h.CreateTask)
	r.Put("/api/projects/{id}/tasks/{taskId}", h.UpdateTask)
	r.Delete("/api/projects/{id}/tasks/{taskId}", h.DeleteTask)
	r.Put("/api/projects/{id}/tasks/{taskId}/reorder", h.ReorderTask)

	return r
}

func (h *Handlers) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		h.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
		}).Info("request")
	})
}

// parseID extracts and parses an integer ID from URL parameters.
func parseID(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

// decodeJSON reads a size-limited JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, code int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError sends an error response.
func (h *Handlers) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func (h *Handlers) respondServerError(w http.ResponseWriter, err error) {
	h.log.WithError(err).Error("internal server error")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"error":"internal server error","code":"internal"}`))
}

// respondErr maps store and board errors onto HTTP statuses.
func (h *Handlers) respondErr(w http.ResponseWriter, err error) {
	var blocked *board.BlockedError
	switch {
	case errors.As(err, &blocked):
		h.respondError(w, http.StatusConflict, "blocked", blocked.Error())
	case errors.Is(err, store.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, board.ErrInvalidArgument):
		h.respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, store.ErrConflict):
		h.respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.respondServerError(w, err)
	}
}

func (h *Handlers) badRequest(w http.ResponseWriter, message string) {
	h.respondError(w, http.StatusBadRequest, "invalid_argument", message)
}
