package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chargee/sandboxd/pkg/ampere/amperemock"
	"github.com/chargee/sandboxd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const schedulesPath = "/api/addresses/addr-1/solar-inverters/inv-1/schedules"

func TestListSchedulesEndpoint(t *testing.T) {
	mc := &amperemock.MockClient{}
	mc.On("ListSchedules", mock.Anything, "addr-1", "inv-1").Return([]types.Schedule(nil), nil)

	handler := newTestServer(mc).setupHandler()

	req := httptest.NewRequest("GET", schedulesPath, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	// nil upstream list still renders as an empty array
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestCreateScheduleEndpoint(t *testing.T) {
	limit := 80
	mc := &amperemock.MockClient{}
	mc.On("CreateSchedule", mock.Anything, "addr-1", "inv-1", mock.MatchedBy(func(s types.Schedule) bool {
		return s.PowerLimit != nil && *s.PowerLimit == 80
	})).Return(types.Schedule{Identifier: "sch-1", Time: "2026-03-01T10:00:00Z", PowerLimit: &limit}, nil)

	handler := newTestServer(mc).setupHandler()

	t.Run("Created", func(t *testing.T) {
		body, _ := json.Marshal(types.Schedule{Time: "2026-03-01T10:00:00Z", PowerLimit: &limit})
		req := httptest.NewRequest("POST", schedulesPath, bytes.NewReader(body))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Result().StatusCode)

		var created types.Schedule
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, "sch-1", created.ID())
	})

	t.Run("Validation Failure", func(t *testing.T) {
		// both steering modes at once is rejected before any upstream call
		on := true
		bad, _ := json.Marshal(types.Schedule{Time: "2026-03-01T10:00:00Z", PowerLimit: &limit, ZeroExport: &on})
		req := httptest.NewRequest("POST", schedulesPath, bytes.NewReader(bad))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)

		var resp struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Contains(t, resp.Fields, "type")
	})

	t.Run("Garbage Body", func(t *testing.T) {
		req := httptest.NewRequest("POST", schedulesPath, bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	mc.AssertNumberOfCalls(t, "CreateSchedule", 1)
}

func TestDeleteScheduleEndpoint(t *testing.T) {
	mc := &amperemock.MockClient{}
	mc.On("DeleteSchedule", mock.Anything, "addr-1", "inv-1", "sch-1").Return(nil)

	handler := newTestServer(mc).setupHandler()

	req := httptest.NewRequest("DELETE", schedulesPath+"/sch-1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Result().StatusCode)
	mc.AssertExpectations(t)
}
