package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/catalog"
)

const (
	defaultRunLimit = 100
	maxRunLimit     = 1000
	maxBodyBytes    = 1 << 20
)

type Service interface {
	Experiments(ctx context.Context) ([]runstore.Experiment, error)
	Experiment(ctx context.Context, name string) (runstore.Experiment, error)
	CreateExperiment(ctx context.Context, e runstore.NewExperiment) (runstore.Experiment, error)

	Tags(ctx context.Context) ([]runstore.Tag, error)
	Tag(ctx context.Context, id uuid.UUID) (runstore.Tag, error)
	CreateTag(ctx context.Context, t runstore.NewTag) (runstore.Tag, error)
	DeleteTag(ctx context.Context, id uuid.UUID) error

	Run(ctx context.Context, hash string) (catalog.RunDetail, error)
	Runs(ctx context.Context, q runstore.RunQuery) ([]runstore.Run, error)
	CreateRun(ctx context.Context, r runstore.NewRun, experiment string) (runstore.Run, error)
	TagRun(ctx context.Context, hash string, tagID uuid.UUID) error
	UntagRun(ctx context.Context, hash string, tagID uuid.UUID) error

	Refresh()
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age" validate:"min=0"`
}

type HandlerConfig struct {
	ReadOnly bool
	CORS     CORSConfig
}

// Handler provides HTTP handlers for catalog operations.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// CreateRunRequest is the body of POST /api/runs. Experiment is an
// experiment name.
type CreateRunRequest struct {
	Hash       string `json:"hash"`
	Name       string `json:"name"`
	Experiment string `json:"experiment"`
}

// Router returns an http.Handler with all routes configured. Write routes are
// omitted in read-only mode.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/experiments", h.handleListExperiments)
		r.Get("/experiments/{name}", h.handleGetExperiment)
		r.Get("/tags", h.handleListTags)
		r.Get("/tags/{id}", h.handleGetTag)
		r.Get("/runs", h.handleListRuns)
		r.Get("/runs/{hash}", h.handleGetRun)
		r.Post("/cache/refresh", h.handleRefresh)

		if h.config.ReadOnly {
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(JSONContentType)
			r.Post("/experiments", h.handleCreateExperiment)
			r.Post("/tags", h.handleCreateTag)
			r.Delete("/tags/{id}", h.handleDeleteTag)
			r.Post("/runs", h.handleCreateRun)
			r.Put("/runs/{hash}/tags/{id}", h.handleTagRun)
			r.Delete("/runs/{hash}/tags/{id}", h.handleUntagRun)
		})
	})

	return r
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return nil
}

func tagIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("tag id %q: %w", chi.URLParam(r, "id"), runstore.ErrInvalidInput)
	}
	return id, nil
}

func (h *Handler) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Experiments(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ListResponse[runstore.Experiment]{Items: items})
}

func (h *Handler) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Experiment(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req runstore.NewExperiment
	if err := decode(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	e, err := h.service.CreateExperiment(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Tags(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ListResponse[runstore.Tag]{Items: items})
}

func (h *Handler) handleGetTag(w http.ResponseWriter, r *http.Request) {
	id, err := tagIDParam(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	t, err := h.service.Tag(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req runstore.NewTag
	if err := decode(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	t, err := h.service.CreateTag(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := tagIDParam(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.service.DeleteTag(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := runstore.RunQuery{Limit: defaultRunLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			q.Limit = max(1, min(maxRunLimit, parsed))
		}
	}

	if v := r.URL.Query().Get("include_archived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "include_archived must be a boolean")
			return
		}
		q.IncludeArchived = archived
	}

	if name := r.URL.Query().Get("experiment"); name != "" {
		e, err := h.service.Experiment(r.Context(), name)
		if err != nil {
			HandleError(w, err)
			return
		}
		q.ExperimentID = &e.ID
	}

	items, err := h.service.Runs(r.Context(), q)
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ListResponse[runstore.Run]{Items: items})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Run(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, run)
}

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decode(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	run, err := h.service.CreateRun(r.Context(), runstore.NewRun{Hash: req.Hash, Name: req.Name}, req.Experiment)
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, run)
}

func (h *Handler) handleTagRun(w http.ResponseWriter, r *http.Request) {
	id, err := tagIDParam(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.service.TagRun(r.Context(), chi.URLParam(r, "hash"), id); err != nil {
		HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUntagRun(w http.ResponseWriter, r *http.Request) {
	id, err := tagIDParam(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.service.UntagRun(r.Context(), chi.URLParam(r, "hash"), id); err != nil {
		HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	h.service.Refresh()
	w.WriteHeader(http.StatusNoContent)
}
