// Package handler exposes instance lifecycle operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/engine"
	"caseflow/internal/http/shared"
	"caseflow/internal/instance"
	"caseflow/internal/platform/middleware"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
)

// Orchestrator defines the engine operations the handler depends on.
type Orchestrator interface {
	Start(ctx context.Context, p engine.StartParams) (instance.ProcessInstance, error)
	Advance(ctx context.Context, instanceID, toStepID, actorID, actorRole, note string) (instance.ProcessInstance, error)
	AutoAdvance(ctx context.Context, instanceID, toStepID string) (instance.ProcessInstance, error)
	Cancel(ctx context.Context, instanceID, actorID, reason string) (instance.ProcessInstance, error)
	Get(ctx context.Context, instanceID string) (instance.ProcessInstance, error)
	Query(ctx context.Context, filter instance.Filter) ([]instance.ProcessInstance, error)
}

// Handler handles process instance endpoints.
type Handler struct {
	logger *slog.Logger
	engine Orchestrator
}

// New creates an instance Handler.
func New(engine Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// Register mounts the instance routes on r. Authentication is applied by
// the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/instances", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/", h.handleStart)
		r.Get("/", h.handleQuery)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/history", h.handleHistory)
		r.Post("/{id}/advance", h.handleAdvance)
		r.Post("/{id}/auto-advance", h.handleAutoAdvance)
		r.Post("/{id}/cancel", h.handleCancel)
	})
}

type startRequest struct {
	DefinitionName    string         `json:"definitionName"`
	DefinitionVersion int            `json:"definitionVersion"`
	InstanceID        string         `json:"instanceId"`
	Context           map[string]any `json:"context"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.DefinitionName == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "definitionName is required"))
		return
	}

	inst, err := h.engine.Start(ctx, engine.StartParams{
		DefinitionName:    req.DefinitionName,
		DefinitionVersion: req.DefinitionVersion,
		InstanceID:        req.InstanceID,
		Context:           req.Context,
		CallerID:          requestcontext.ActorID(ctx),
	})
	if err != nil {
		h.writeEngineError(ctx, w, err, "failed to start instance")
		return
	}

	shared.WriteJSON(w, http.StatusCreated, inst)
}

type advanceRequest struct {
	ToStepID string `json:"toStepId"`
	Role     string `json:"role"`
	Note     string `json:"note"`
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ToStepID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "toStepId is required"))
		return
	}

	role, err := resolveRole(ctx, req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	inst, err := h.engine.Advance(ctx, id, req.ToStepID, requestcontext.ActorID(ctx), role, req.Note)
	if err != nil {
		h.writeEngineError(ctx, w, err, "failed to advance instance")
		return
	}

	shared.WriteJSON(w, http.StatusOK, inst)
}

type autoAdvanceRequest struct {
	ToStepID string `json:"toStepId"`
}

func (h *Handler) handleAutoAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	// Only service accounts carrying the system role may resolve
	// system-action steps.
	if !slices.Contains(requestcontext.ActorRoles(ctx), engine.SystemActorID) {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "auto-advance requires the system role"))
		return
	}

	var req autoAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ToStepID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "toStepId is required"))
		return
	}

	inst, err := h.engine.AutoAdvance(ctx, id, req.ToStepID)
	if err != nil {
		h.writeEngineError(ctx, w, err, "failed to auto-advance instance")
		return
	}

	shared.WriteJSON(w, http.StatusOK, inst)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	inst, err := h.engine.Cancel(ctx, id, requestcontext.ActorID(ctx), req.Reason)
	if err != nil {
		h.writeEngineError(ctx, w, err, "failed to cancel instance")
		return
	}

	shared.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	inst, err := h.engine.Get(ctx, id)
	if err != nil {
		h.writeEngineError(ctx, w, err, "failed to load instance")
		return
	}

	shared.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	inst, err := h.engine.Get(ctx, id)
	if err != nil {
		h.writeEngineError(ctx, w, err, "failed to load instance")
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"instanceId": inst.ID,
		"history":    inst.History,
	})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := instance.Filter{
		DefinitionName: q.Get("definition"),
		ActorRole:      q.Get("role"),
	}
	if raw := q.Get("status"); raw != "" {
		status := instance.Status(raw)
		if !status.Valid() {
			shared.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", raw))
			return
		}
		filter.Status = status
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "offset must be a non-negative integer"))
		return
	}

	instances, err := h.engine.Query(ctx, filter)
	if err != nil {
		h.writeEngineError(ctx, w, err, "failed to query instances")
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"instances": instances,
		"count":     len(instances),
	})
}

// resolveRole picks the role the actor acts under for this transition. A
// requested role must be among the actor's granted roles; with no request,
// a single-role actor falls through to that role.
func resolveRole(ctx context.Context, requested string) (string, error) {
	roles := requestcontext.ActorRoles(ctx)
	if requested != "" {
		if !slices.Contains(roles, requested) {
			return "", dErrors.Newf(dErrors.CodeForbidden, "actor does not hold role %q", requested)
		}
		return requested, nil
	}
	if len(roles) == 1 {
		return roles[0], nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "role is required for actors with multiple roles")
}

func (h *Handler) writeEngineError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == "" {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	shared.WriteError(w, err)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
