package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chargee/sandboxd/pkg/ampere/amperemock"
	"github.com/chargee/sandboxd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChart(t *testing.T) {
	hour := func(h int) types.FlexTime {
		return types.NewFlexTime(time.Date(2026, 3, 1, h, 0, 0, 0, time.UTC))
	}

	mc := &amperemock.MockClient{}
	mc.On("DeliveryForecast", mock.Anything, "addr-1", "m-1", "2026-03-01").
		Return([]types.ForecastInterval{{Start: hour(10), WhSum: 500}}, nil)
	mc.On("ReturnForecast", mock.Anything, "addr-1", "m-1", "2026-03-01").
		Return([]types.ForecastInterval{{Start: hour(10), WhSum: 100}}, nil)
	mc.On("ProductionForecast", mock.Anything, "addr-1", "inv-1", "2026-03-01").
		Return([]types.ForecastInterval{{Start: hour(11), WhSum: 800}}, nil)
	// the cumulative counter fails while everything else succeeds
	mc.On("ProductionEnergy", mock.Anything, "addr-1", "inv-1", "2026-03-01").
		Return(nil, errors.New("inverter offline"))
	mc.On("Electricity15Min", mock.Anything, "SN-1", "2026-03-01").
		Return([]types.Reading15Min{
			{From: hour(10), Delivery: 0.25, Return: 0.1},
		}, nil)

	handler := newTestServer(mc).setupHandler()

	req := httptest.NewRequest("GET", "/api/addresses/addr-1/chart?date=2026-03-01&meter=m-1&inverter=inv-1&serial=SN-1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp chartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "2026-03-01", resp.Date)
	assert.Equal(t, []string{"production-energy"}, resp.Failed)

	// 10:00 from three series plus 11:00 from the production forecast
	require.Len(t, resp.Points, 2)
	ten, eleven := resp.Points[0], resp.Points[1]

	assert.Equal(t, "10:00", ten.Label)
	require.NotNil(t, ten.Delivery)
	assert.Equal(t, 500.0, *ten.Delivery)
	require.NotNil(t, ten.Return)
	assert.Equal(t, 100.0, *ten.Return)
	require.NotNil(t, ten.ActualDelivery)
	assert.Equal(t, 250.0, *ten.ActualDelivery)
	assert.Nil(t, ten.Production)

	assert.Equal(t, "11:00", eleven.Label)
	require.NotNil(t, eleven.Production)
	assert.Equal(t, 800.0, *eleven.Production)
	assert.Nil(t, eleven.Delivery)
}

func TestChartValidation(t *testing.T) {
	handler := newTestServer(&amperemock.MockClient{}).setupHandler()

	t.Run("No Sections", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/addresses/addr-1/chart", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("Bad Date", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/addresses/addr-1/chart?serial=SN-1&date=yesterday", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), "invalid date")
	})
}

func TestChartAllSectionsFail(t *testing.T) {
	mc := &amperemock.MockClient{}
	mc.On("Electricity15Min", mock.Anything, "SN-1", mock.Anything).
		Return(nil, errors.New("gateway offline"))

	handler := newTestServer(mc).setupHandler()

	req := httptest.NewRequest("GET", "/api/addresses/addr-1/chart?serial=SN-1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp chartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.Points)
	assert.Equal(t, []string{"electricity-15min"}, resp.Failed)
}
