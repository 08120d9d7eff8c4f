package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/types"
)

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, inverterID := r.PathValue("addressID"), r.PathValue("inverterID")

	schedules, err := s.client.ListSchedules(ctx, addressID, inverterID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list schedules", slog.String("address", addressID), slog.String("inverter", inverterID), slog.Any("error", err))
		writeJSONError(w, "failed to list schedules", upstreamStatus(err))
		return
	}
	if schedules == nil {
		schedules = []types.Schedule{}
	}
	writeJSON(w, schedules)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schedule, err := s.client.GetSchedule(ctx, r.PathValue("addressID"), r.PathValue("inverterID"), r.PathValue("scheduleID"))
	if err != nil {
		writeJSONError(w, "failed to get schedule", upstreamStatus(err))
		return
	}
	writeJSON(w, schedule)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schedule, ok := decodeSchedule(w, r)
	if !ok {
		return
	}

	created, err := s.client.CreateSchedule(ctx, r.PathValue("addressID"), r.PathValue("inverterID"), schedule)
	if err != nil {
		if writeFieldErrors(w, err) {
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to create schedule", slog.String("inverter", r.PathValue("inverterID")), slog.Any("error", err))
		writeJSONError(w, "failed to create schedule", upstreamStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schedule, ok := decodeSchedule(w, r)
	if !ok {
		return
	}

	updated, err := s.client.UpdateSchedule(ctx, r.PathValue("addressID"), r.PathValue("inverterID"), r.PathValue("scheduleID"), schedule)
	if err != nil {
		if writeFieldErrors(w, err) {
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to update schedule", slog.String("schedule", r.PathValue("scheduleID")), slog.Any("error", err))
		writeJSONError(w, "failed to update schedule", upstreamStatus(err))
		return
	}
	writeJSON(w, updated)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := s.client.DeleteSchedule(ctx, r.PathValue("addressID"), r.PathValue("inverterID"), r.PathValue("scheduleID"))
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to delete schedule", slog.String("schedule", r.PathValue("scheduleID")), slog.Any("error", err))
		writeJSONError(w, "failed to delete schedule", upstreamStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeSchedule parses and validates the request body, rendering the
// failure itself when the schedule is unusable.
func decodeSchedule(w http.ResponseWriter, r *http.Request) (types.Schedule, bool) {
	var schedule types.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		writeJSONError(w, "invalid schedule body", http.StatusBadRequest)
		return types.Schedule{}, false
	}
	if err := schedule.Validate(); err != nil {
		writeFieldErrors(w, err)
		return types.Schedule{}, false
	}
	return schedule, true
}

// writeFieldErrors renders a schedule validation failure as a 400 with the
// per-field messages, and reports whether it handled the error.
func writeFieldErrors(w http.ResponseWriter, err error) bool {
	var fieldErrs types.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if encErr := json.NewEncoder(w).Encode(struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}{Error: "invalid schedule", Fields: fieldErrs}); encErr != nil {
		panic(http.ErrAbortHandler)
	}
	return true
}
