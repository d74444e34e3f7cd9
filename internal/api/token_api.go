// Package api exposes the device-token lifecycle over HTTP so clients can
// register and drop the token held on their user record.
package api

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

type TokenAPI struct {
	Store  fanout.UserStore
	Logger *slog.Logger
}

func NewTokenAPI(store fanout.UserStore, logger *slog.Logger) *TokenAPI {
	return &TokenAPI{
		Store:  store,
		Logger: logger,
	}
}

type TokenRequest struct {
	Token string `json:"token"`
}

// RegisterToken stores the caller's device token on their user record. The
// user id comes from the auth middleware, never from the body.
func (api *TokenAPI) RegisterToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := api.Store.SetToken(ctx, userID, req.Token); err != nil {
		api.Logger.Error("failed to register token", "user_id", userID, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnregisterToken clears the caller's device token. Clearing an
// already-cleared token succeeds; idempotency is preferred for unregister.
func (api *TokenAPI) UnregisterToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := api.Store.ClearToken(ctx, userID); err != nil {
		// Log but don't fail hard
		api.Logger.Warn("failed to unregister token", "user_id", userID, "err", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
