package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/statements/pkg/middleware"
)

func newTestRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	h := NewImportHandler(nil, logger)
	r := chi.NewRouter()
	r.Route("/v1/imports", h.Routes)
	return r
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
}

func TestImportHandler_RequestValidation(t *testing.T) {
	router := newTestRouter()

	t.Run("preview requires auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/imports/preview", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("preview requires a file part", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/imports/preview", bytes.NewBufferString("not multipart")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing file upload")
	})

	t.Run("commit rejects malformed body", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/imports/commit", strings.NewReader("{")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("commit rejects bad session id", func(t *testing.T) {
		body := `{"session_id":"nope","account_id":"` + uuid.NewString() + `"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/imports/commit", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid session id")
	})

	t.Run("file download requires auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/imports/files/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("file download rejects bad id", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/v1/imports/files/not-a-uuid", nil))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid file id")
	})

	t.Run("job endpoints reject bad ids", func(t *testing.T) {
		for _, path := range []string{"/v1/imports/not-a-uuid", "/v1/imports/not-a-uuid/errors.csv"} {
			req := authed(httptest.NewRequest(http.MethodGet, path, nil))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		}
	})
}

func TestCommitRequestMapping(t *testing.T) {
	sessionID, accountID := uuid.New(), uuid.New()
	body := commitRequest{
		SessionID:       sessionID.String(),
		AccountID:       accountID.String(),
		BankName:        "Test Bank",
		RememberMapping: true,
	}

	req, err := body.toServiceRequest()
	require.NoError(t, err)
	assert.Equal(t, sessionID, req.SessionID)
	assert.Equal(t, accountID, req.AccountID)
	assert.True(t, req.RememberMapping)

	_, err = commitRequest{SessionID: sessionID.String(), AccountID: "bad"}.toServiceRequest()
	assert.Error(t, err)
}

// Keep context helpers honest: WithUserID must round-trip.
func TestAuthContextRoundTrip(t *testing.T) {
	userID := uuid.New()
	ctx := middleware.WithUserID(context.Background(), userID)
	got, ok := middleware.UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, userID, got)
}
