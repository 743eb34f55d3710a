// Package handler exposes account management over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/statements/internal/domain/accounts/repository"
	"github.com/ledgerline/statements/internal/domain/accounts/service"
	"github.com/ledgerline/statements/pkg/httputil"
	"github.com/ledgerline/statements/pkg/middleware"
)

// AccountHandler handles account requests
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// Routes registers the account endpoints
func (h *AccountHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{accountID}", h.Get)
	r.Delete("/{accountID}", h.Delete)
}

type createAccountRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	CurrencyCode string `json:"currency_code"`
}

type accountResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	CurrencyCode string    `json:"currency_code"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAccountResponse(a *repository.Account) accountResponse {
	return accountResponse{
		ID:           a.ID.String(),
		Name:         a.Name,
		Type:         string(a.Type),
		CurrencyCode: a.CurrencyCode,
		CreatedAt:    a.CreatedAt,
	}
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body createAccountRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.svc.Create(r.Context(), userID, body.Name, repository.AccountType(body.Type), body.CurrencyCode)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	accounts, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = toAccountResponse(a)
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.svc.GetOwned(r.Context(), accountID, userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := h.svc.Delete(r.Context(), accountID, userID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *AccountHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAccount):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("account request failed", slog.Any("error", err))
		httputil.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
