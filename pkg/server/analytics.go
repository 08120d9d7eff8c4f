package server

import (
	"log/slog"
	"net/http"

	"github.com/chargee/sandboxd/pkg/analytics"
	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/types"
)

// handleAnalyticsPopulation reports the group's address population so the
// dashboard can warn about sampling before kicking off a full aggregation.
func (s *Server) handleAnalyticsPopulation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := r.PathValue("groupID")

	total, sampled, isSampled, err := s.analytics.Population(ctx, groupID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to probe population", slog.String("group", groupID), slog.Any("error", err))
		writeJSONError(w, "failed to probe population", upstreamStatus(err))
		return
	}

	writeJSON(w, struct {
		Total     int  `json:"total"`
		Sampled   int  `json:"sampled"`
		IsSampled bool `json:"isSampled"`
	}{Total: total, Sampled: sampled, IsSampled: isSampled})
}

func (s *Server) handleGroupAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := r.PathValue("groupID")
	force := r.URL.Query().Get("refresh") == "true"

	snap, err := s.analytics.Snapshot(ctx, groupID, force, func(p analytics.Progress) {
		log.Ctx(ctx).DebugContext(ctx, "analytics walk progress",
			slog.String("group", groupID),
			slog.Int("fetched", p.FetchedAddresses),
			slog.Int("sampled", p.SampledAddresses))
	})
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to compute analytics", slog.String("group", groupID), slog.Any("error", err))
		writeJSONError(w, "failed to compute analytics", upstreamStatus(err))
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleSteerableInverters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := r.PathValue("groupID")

	inverters, err := s.analytics.SteerableInverters(ctx, groupID, nil)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list steerable inverters", slog.String("group", groupID), slog.Any("error", err))
		writeJSONError(w, "failed to list steerable inverters", upstreamStatus(err))
		return
	}

	// never null in the response body
	if inverters == nil {
		inverters = []types.SteerableInverter{}
	}
	writeJSON(w, inverters)
}
