// Package handler exposes savings goals over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/statements/internal/domain/goals/repository"
	"github.com/ledgerline/statements/internal/domain/goals/service"
	"github.com/ledgerline/statements/pkg/httputil"
	"github.com/ledgerline/statements/pkg/middleware"
)

// GoalHandler handles goal requests
type GoalHandler struct {
	svc    *service.GoalService
	logger *slog.Logger
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(svc *service.GoalService, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{svc: svc, logger: logger}
}

// Routes registers the goal endpoints
func (h *GoalHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{goalID}", h.Get)
	r.Patch("/{goalID}/status", h.SetStatus)
	r.Delete("/{goalID}", h.Delete)
	r.Post("/{goalID}/contributions", h.Contribute)
	r.Get("/{goalID}/contributions", h.ListContributions)
}

type createGoalRequest struct {
	Name              string     `json:"name"`
	TargetAmountMinor int64      `json:"target_amount_minor"`
	CurrencyCode      string     `json:"currency_code"`
	EndAt             *time.Time `json:"end_at"`
}

type goalResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	TargetAmountMinor  int64      `json:"target_amount_minor"`
	CurrentAmountMinor int64      `json:"current_amount_minor"`
	CurrencyCode       string     `json:"currency_code"`
	StartAt            time.Time  `json:"start_at"`
	EndAt              *time.Time `json:"end_at,omitempty"`
}

func toGoalResponse(g *repository.Goal) goalResponse {
	return goalResponse{
		ID:                 g.ID.String(),
		Name:               g.Name,
		Status:             string(g.Status),
		TargetAmountMinor:  g.TargetAmountMinor,
		CurrentAmountMinor: g.CurrentAmountMinor,
		CurrencyCode:       g.CurrencyCode,
		StartAt:            g.StartAt,
		EndAt:              g.EndAt,
	}
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body createGoalRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := h.svc.Create(r.Context(), userID, body.Name, body.TargetAmountMinor, body.CurrencyCode, body.EndAt)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, toGoalResponse(goal))
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var statusFilter *repository.GoalStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := repository.GoalStatus(raw)
		statusFilter = &status
	}

	goals, err := h.svc.List(r.Context(), userID, statusFilter)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	out := make([]goalResponse, len(goals))
	for i, g := range goals {
		out[i] = toGoalResponse(g)
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"goals": out})
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	goalID, err := uuid.Parse(chi.URLParam(r, "goalID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	goal, err := h.svc.GetOwned(r.Context(), goalID, userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toGoalResponse(goal))
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *GoalHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	goalID, err := uuid.Parse(chi.URLParam(r, "goalID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	var body setStatusRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.SetStatus(r.Context(), userID, goalID, repository.GoalStatus(body.Status)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	goalID, err := uuid.Parse(chi.URLParam(r, "goalID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, goalID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

type contributeRequest struct {
	AmountMinor   int64   `json:"amount_minor"`
	Note          *string `json:"note"`
	TransactionID *string `json:"transaction_id"`
}

type contributionResponse struct {
	ID            string    `json:"id"`
	AmountMinor   int64     `json:"amount_minor"`
	CurrencyCode  string    `json:"currency_code"`
	Note          *string   `json:"note,omitempty"`
	TransactionID *string   `json:"transaction_id,omitempty"`
	ContributedAt time.Time `json:"contributed_at"`
}

func toContributionResponse(c *repository.GoalContribution) contributionResponse {
	var transactionID *string
	if c.TransactionID != nil {
		s := c.TransactionID.String()
		transactionID = &s
	}
	return contributionResponse{
		ID:            c.ID.String(),
		AmountMinor:   c.AmountMinor,
		CurrencyCode:  c.CurrencyCode,
		Note:          c.Note,
		TransactionID: transactionID,
		ContributedAt: c.ContributedAt,
	}
}

func (h *GoalHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	goalID, err := uuid.Parse(chi.URLParam(r, "goalID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	var body contributeRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var transactionID *uuid.UUID
	if body.TransactionID != nil {
		id, err := uuid.Parse(*body.TransactionID)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}
		transactionID = &id
	}

	contribution, err := h.svc.Contribute(r.Context(), userID, goalID, body.AmountMinor, body.Note, transactionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, toContributionResponse(contribution))
}

func (h *GoalHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	goalID, err := uuid.Parse(chi.URLParam(r, "goalID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	contributions, err := h.svc.Contributions(r.Context(), userID, goalID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	out := make([]contributionResponse, len(contributions))
	for i, c := range contributions {
		out[i] = toContributionResponse(c)
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"contributions": out})
}

func (h *GoalHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidGoal):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("goal request failed", slog.Any("error", err))
		httputil.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
