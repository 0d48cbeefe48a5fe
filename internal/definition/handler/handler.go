// Package handler exposes the definition registry over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/definition"
	"caseflow/internal/http/shared"
	"caseflow/internal/platform/middleware"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
)

// Service defines the registry operations the handler depends on.
type Service interface {
	Publish(ctx context.Context, def definition.ProcessDefinition) (definition.ProcessDefinition, error)
	Get(ctx context.Context, name string, version int) (definition.ProcessDefinition, error)
	ListVersions(ctx context.Context, name string) ([]int, error)
}

// Handler handles definition registry endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a definition Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the definition routes on r. Authentication is applied by
// the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/definitions", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/", h.handlePublish)
		r.Get("/{name}", h.handleGet)
		r.Get("/{name}/versions", h.handleListVersions)
	})
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var def definition.ProcessDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		h.logger.WarnContext(ctx, "invalid publish request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	published, err := h.service.Publish(ctx, def)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to publish definition",
			"request_id", requestcontext.RequestID(ctx),
			"definition", def.Name,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to publish definition"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, published)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	version := 0
	if raw := r.URL.Query().Get("version"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "version must be a positive integer"))
			return
		}
		version = parsed
	}

	def, err := h.service.Get(ctx, name, version)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load definition",
			"request_id", requestcontext.RequestID(ctx),
			"definition", name,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load definition"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, def)
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	versions, err := h.service.ListVersions(ctx, name)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to list versions",
			"request_id", requestcontext.RequestID(ctx),
			"definition", name,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list versions"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"name":     name,
		"versions": versions,
	})
}
