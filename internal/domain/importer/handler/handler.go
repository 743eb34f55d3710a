// Package handler exposes the import pipeline over HTTP.
package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/statements/internal/domain/importer/service"
	"github.com/ledgerline/statements/internal/domain/importer/session"
	"github.com/ledgerline/statements/pkg/httputil"
	"github.com/ledgerline/statements/pkg/middleware"
)

// ImportHandler handles statement preview and commit requests
type ImportHandler struct {
	svc    *service.ImportService
	logger *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(svc *service.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{svc: svc, logger: logger}
}

// Routes registers the import endpoints
func (h *ImportHandler) Routes(r chi.Router) {
	r.Post("/preview", h.Preview)
	r.Post("/commit", h.Commit)
	r.Get("/", h.ListJobs)
	r.Get("/files/{fileID}", h.DownloadFile)
	r.Get("/{jobID}", h.GetJob)
	r.Get("/{jobID}/errors.csv", h.ErrorReport)
}

// Preview accepts a multipart statement upload and returns the parsed
// rows plus a suggested column mapping.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	preview, err := h.svc.Preview(r.Context(), userID, header.Filename, data)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toPreviewResponse(preview))
}

// Commit writes a previewed session to an account
func (h *ImportHandler) Commit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body commitRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req, err := body.toServiceRequest()
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Commit(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// ListJobs returns the user's import history
func (h *ImportHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	jobs, err := h.svc.ListJobs(r.Context(), userID, 0)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toJobListResponse(jobs))
}

// GetJob returns a single import job
func (h *ImportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.svc.GetJob(r.Context(), jobID, userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toJobResponse(job))
}

// DownloadFile streams the original uploaded statement back to its owner
func (h *ImportHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	rc, file, err := h.svc.OpenFile(r.Context(), userID, fileID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream statement file", slog.Any("error", err))
	}
}

// ErrorReport downloads a job's row errors as CSV
func (h *ImportHandler) ErrorReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	report, err := h.svc.ErrorReportCSV(r.Context(), userID, jobID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "import-errors.csv"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report); err != nil {
		h.logger.Error("failed to write error report", slog.Any("error", err))
	}
}

func (h *ImportHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrInvalidMapping):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, session.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		httputil.RespondError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("import request failed", slog.Any("error", err))
		httputil.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
