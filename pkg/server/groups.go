package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chargee/sandboxd/pkg/log"
)

// DefaultPageSize is the address page size when the request doesn't pick one.
const DefaultPageSize = 25

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groups, err := s.client.ListGroups(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list groups", slog.Any("error", err))
		writeJSONError(w, "failed to list groups", upstreamStatus(err))
		return
	}
	writeJSON(w, groups)
}

func (s *Server) handleGroupEnergy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := r.PathValue("groupID")

	energy, err := s.client.GroupEnergyLatest(ctx, groupID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get group energy", slog.String("group", groupID), slog.Any("error", err))
		writeJSONError(w, "failed to get group energy", upstreamStatus(err))
		return
	}
	writeJSON(w, energy)
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := r.PathValue("groupID")

	page := queryInt(r, "page", 1)
	if page < 1 {
		writeJSONError(w, "page must be at least 1", http.StatusBadRequest)
		return
	}
	pageSize := queryInt(r, "pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		writeJSONError(w, "pageSize must be between 1 and 100", http.StatusBadRequest)
		return
	}
	// cache defaults on; cache=false forces a refetch
	useCache := r.URL.Query().Get("cache") != "false"

	addresses, fromCache, err := s.fetcher.Fetch(ctx, groupID, page, pageSize, useCache)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list addresses", slog.String("group", groupID), slog.Int("page", page), slog.Any("error", err))
		writeJSONError(w, "failed to list addresses", upstreamStatus(err))
		return
	}

	writeJSON(w, struct {
		Addresses interface{} `json:"addresses"`
		Total     int         `json:"total"`
		Page      int         `json:"page"`
		PageSize  int         `json:"pageSize"`
		FromCache bool        `json:"fromCache"`
	}{
		Addresses: addresses.Addresses,
		Total:     addresses.Total,
		Page:      page,
		PageSize:  pageSize,
		FromCache: fromCache,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
