package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/chargee/sandboxd/pkg/ampere"
	"github.com/chargee/sandboxd/pkg/analytics"
	"github.com/chargee/sandboxd/pkg/browse"
	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/storage"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
)

type contextKey string

const userEmailContextKey contextKey = "userEmail"

// tokenVerifier validates an OIDC ID token and returns its email claim.
type tokenVerifier func(ctx context.Context, rawIDToken string) (string, error)

// Server exposes the admin dashboard API: group browsing, device fan-outs,
// chart series, analytics, steering schedules and live readings, all backed
// by the Ampere platform.
type Server struct {
	client    ampere.Client
	db        storage.Database
	analytics *analytics.Aggregator
	fetcher   *browse.Fetcher
	live      *liveRegistry

	listenAddr string
	httpServer *http.Server

	adminEmails []string
	verifyToken tokenVerifier
	bypassAuth  bool
	serverName  string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(client ampere.Client, db storage.Database) *Server {
	srv := &Server{
		client:     client,
		db:         db,
		analytics:  analytics.New(client, db),
		fetcher:    browse.NewFetcher(client, db),
		live:       newLiveRegistry(),
		serverName: "sandboxd",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to use the dashboard")
	oidcAudience := lflag.String("oidc-audience", "", "Google OIDC audience/client ID to validate bearer tokens against")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *adminEmails != "" {
			srv.adminEmails = strings.Split(*adminEmails, ",")
			for i, email := range srv.adminEmails {
				srv.adminEmails[i] = strings.TrimSpace(email)
			}
		}
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			verify := provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify
			srv.verifyToken = func(ctx context.Context, raw string) (string, error) {
				idToken, err := verify(ctx, raw)
				if err != nil {
					return "", err
				}
				var claims struct {
					Email string `json:"email"`
				}
				if err := idToken.Claims(&claims); err != nil {
					return "", err
				}
				return claims.Email, nil
			}
		} else {
			srv.bypassAuth = true
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/groups", s.handleListGroups)
	apiMux.HandleFunc("GET /api/groups/{groupID}/energy", s.handleGroupEnergy)
	apiMux.HandleFunc("GET /api/groups/{groupID}/addresses", s.handleListAddresses)
	apiMux.HandleFunc("GET /api/groups/{groupID}/analytics", s.handleGroupAnalytics)
	apiMux.HandleFunc("GET /api/groups/{groupID}/analytics/population", s.handleAnalyticsPopulation)
	apiMux.HandleFunc("GET /api/groups/{groupID}/steerable-inverters", s.handleSteerableInverters)
	apiMux.HandleFunc("GET /api/addresses/{addressID}/devices", s.handleAddressDevices)
	apiMux.HandleFunc("GET /api/addresses/{addressID}/chart", s.handleChart)
	apiMux.HandleFunc("GET /api/addresses/{addressID}/solar-inverters/{inverterID}/schedules", s.handleListSchedules)
	apiMux.HandleFunc("POST /api/addresses/{addressID}/solar-inverters/{inverterID}/schedules", s.handleCreateSchedule)
	apiMux.HandleFunc("GET /api/addresses/{addressID}/solar-inverters/{inverterID}/schedules/{scheduleID}", s.handleGetSchedule)
	apiMux.HandleFunc("PUT /api/addresses/{addressID}/solar-inverters/{inverterID}/schedules/{scheduleID}", s.handleUpdateSchedule)
	apiMux.HandleFunc("DELETE /api/addresses/{addressID}/solar-inverters/{inverterID}/schedules/{scheduleID}", s.handleDeleteSchedule)
	apiMux.HandleFunc("GET /api/sparkies/{serial}", s.handleSparkyBundle)
	apiMux.HandleFunc("GET /api/lookup", s.handleLookup)
	apiMux.HandleFunc("GET /api/live/sparkies/{serial}", s.handleLiveSparky)
	apiMux.HandleFunc("DELETE /api/live/sparkies/{serial}", s.handleStopLiveSparky)
	apiMux.HandleFunc("GET /api/live/groups/{groupID}", s.handleLiveGroup)
	apiMux.HandleFunc("DELETE /api/live/groups/{groupID}", s.handleStopLiveGroup)
	apiMux.HandleFunc("GET /api/live/inverters", s.handleLiveInverter)
	apiMux.HandleFunc("DELETE /api/live/inverters", s.handleStopLiveInverter)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(mux))
}

// Run starts the HTTP server and blocks until the context is canceled or an
// error occurs. Live polling loops are stopped as part of shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		s.live.stopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		s.live.stopAll()
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// upstreamStatus maps an Ampere client error to the status the dashboard
// should see: a missing upstream record stays a 404, everything else is a
// bad gateway.
func upstreamStatus(err error) int {
	if errors.Is(err, ampere.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
