package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chargee/sandboxd/pkg/log"
)

// authMiddleware validates the bearer ID token on every API request and
// checks the email claim against the admin allowlist. With no OIDC audience
// configured the middleware passes everything through, which only happens in
// local development.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.bypassAuth {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}

		email, err := s.verifyToken(ctx, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if email == "" {
			log.Ctx(ctx).WarnContext(ctx, "missing email claim")
			writeJSONError(w, "invalid oidc claims", http.StatusUnauthorized)
			return
		}

		if !s.isAdmin(email) {
			log.Ctx(ctx).WarnContext(ctx, "email not in admin allowlist", slog.String("email", email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx = context.WithValue(ctx, userEmailContextKey, email)
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authEmail", email)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) isAdmin(email string) bool {
	for _, admin := range s.adminEmails {
		if email == admin {
			return true
		}
	}
	return false
}

func (s *Server) userEmail(r *http.Request) string {
	if email, ok := r.Context().Value(userEmailContextKey).(string); ok {
		return email
	}
	return ""
}
