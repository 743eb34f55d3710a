package categorization

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/statements/pkg/httputil"
	"github.com/ledgerline/statements/pkg/middleware"
)

// Handler exposes categorization over HTTP
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a new categorization handler
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes registers the categorization endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Get("/rules", h.ListRules)
	r.Post("/rules", h.CreateRule)
	r.Delete("/rules/{ruleID}", h.DeleteRule)
	r.Post("/apply-similar", h.ApplySimilar)
}

type ruleResponse struct {
	ID           string    `json:"id"`
	MatchPattern string    `json:"match_pattern"`
	Category     string    `json:"category"`
	Priority     int       `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
}

func toRuleResponse(rule CategoryRule) ruleResponse {
	return ruleResponse{
		ID:           rule.ID.String(),
		MatchPattern: rule.MatchPattern,
		Category:     rule.Category,
		Priority:     rule.Priority,
		CreatedAt:    rule.CreatedAt,
	}
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rules, err := h.svc.Rules(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	out := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		out[i] = toRuleResponse(rule)
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"rules": out})
}

type createRuleRequest struct {
	MatchPattern string `json:"match_pattern"`
	Category     string `json:"category"`
	Priority     int    `json:"priority"`
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body createRuleRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.svc.AddRule(r.Context(), userID, body.MatchPattern, body.Category, body.Priority)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, toRuleResponse(*rule))
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := h.svc.RemoveRule(r.Context(), ruleID, userID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

type applySimilarRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handler) ApplySimilar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body applySimilarRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.svc.ApplyToSimilar(r.Context(), userID, body.Description, body.Category)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRule):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		httputil.RespondError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("categorization request failed", slog.Any("error", err))
		httputil.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
