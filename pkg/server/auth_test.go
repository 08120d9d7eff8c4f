package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chargee/sandboxd/pkg/ampere/amperemock"
	"github.com/chargee/sandboxd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAuthMiddleware(t *testing.T) {
	mc := &amperemock.MockClient{}
	mc.On("ListGroups", mock.Anything).Return([]types.Group{}, nil)

	srv := newTestServer(mc)
	srv.bypassAuth = false
	srv.adminEmails = []string{"admin@chargee.io"}
	srv.verifyToken = func(ctx context.Context, raw string) (string, error) {
		switch raw {
		case "admin-token":
			return "admin@chargee.io", nil
		case "user-token":
			return "user@chargee.io", nil
		case "empty-token":
			return "", nil
		}
		return "", errors.New("bad signature")
	}
	handler := srv.setupHandler()

	tests := []struct {
		name       string
		authHeader string
		statusCode int
	}{
		{
			name:       "Missing Header",
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "Not Bearer",
			authHeader: "Basic Zm9v",
			statusCode: http.StatusBadRequest,
		},
		{
			name:       "Invalid Token",
			authHeader: "Bearer garbage",
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "Missing Email Claim",
			authHeader: "Bearer empty-token",
			statusCode: http.StatusUnauthorized,
		},
		{
			name:       "Not An Admin",
			authHeader: "Bearer user-token",
			statusCode: http.StatusForbidden,
		},
		{
			name:       "Admin",
			authHeader: "Bearer admin-token",
			statusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/groups", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.statusCode, w.Result().StatusCode)
		})
	}

	t.Run("Healthz Skips Auth", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	})
}

func TestAuthBypass(t *testing.T) {
	mc := &amperemock.MockClient{}
	mc.On("ListGroups", mock.Anything).Return([]types.Group{}, nil)

	srv := newTestServer(mc)
	handler := srv.setupHandler()

	req := httptest.NewRequest("GET", "/api/groups", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}
