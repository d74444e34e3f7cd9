package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-push-dispatcher/internal/api"
	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

// --- Mocks ---
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) ListUsers(ctx context.Context) ([]fanout.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fanout.User), args.Error(1)
}

func (m *MockUserStore) GetUser(ctx context.Context, id string) (*fanout.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fanout.User), args.Error(1)
}

func (m *MockUserStore) SetToken(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *MockUserStore) ClearToken(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- Setup ---
func setupAPI(t *testing.T) (*api.TokenAPI, *MockUserStore) {
	t.Helper()
	mockStore := new(MockUserStore)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return api.NewTokenAPI(mockStore, logger), mockStore
}

// Helper to inject the user id into context (simulating the auth middleware)
func withUser(req *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(req.Context(), userID)
	return req.WithContext(ctx)
}

// --- Tests ---

func TestRegisterToken(t *testing.T) {
	apiHandler, mockStore := setupAPI(t)

	t.Run("Success", func(t *testing.T) {
		payload := map[string]string{"token": "fcm-token-abc"}
		body, _ := json.Marshal(payload)

		req := withUser(httptest.NewRequest("POST", "/api/v1/tokens/register", bytes.NewReader(body)), "user-123")
		w := httptest.NewRecorder()

		mockStore.On("SetToken", mock.Anything, "user-123", "fcm-token-abc").Return(nil)

		apiHandler.RegisterToken(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("Rejects Empty Token", func(t *testing.T) {
		payload := map[string]string{"token": ""}
		body, _ := json.Marshal(payload)
		req := withUser(httptest.NewRequest("POST", "/api/v1/tokens/register", bytes.NewReader(body)), "user-123")
		w := httptest.NewRecorder()

		apiHandler.RegisterToken(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Rejects Unauthenticated Caller", func(t *testing.T) {
		payload := map[string]string{"token": "fcm-token-abc"}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/api/v1/tokens/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		apiHandler.RegisterToken(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUnregisterToken(t *testing.T) {
	apiHandler, mockStore := setupAPI(t)

	t.Run("Success", func(t *testing.T) {
		req := withUser(httptest.NewRequest("POST", "/api/v1/tokens/unregister", nil), "user-123")
		w := httptest.NewRecorder()

		mockStore.On("ClearToken", mock.Anything, "user-123").Return(nil)

		apiHandler.UnregisterToken(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("Store failure still returns NoContent (idempotent unregister)", func(t *testing.T) {
		mockStore := new(MockUserStore)
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		apiHandler := api.NewTokenAPI(mockStore, logger)

		req := withUser(httptest.NewRequest("POST", "/api/v1/tokens/unregister", nil), "user-123")
		w := httptest.NewRecorder()

		mockStore.On("ClearToken", mock.Anything, "user-123").Return(assert.AnError)

		apiHandler.UnregisterToken(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
