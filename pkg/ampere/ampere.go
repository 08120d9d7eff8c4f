// Package ampere is the client for the Ampere device-platform API: groups,
// addresses, the per-address device collections, gateway telemetry, forecasts
// and solar-inverter steering schedules.
package ampere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chargee/sandboxd/pkg/common"
	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/types"
)

const defaultBaseURL = "https://ampere.prod.thunder.chargee.io/api/v2"

var (
	// ErrUnauthorized is returned when the platform rejects the bearer token
	// even after the token source was given a chance to refresh it.
	ErrUnauthorized = errors.New("ampere: unauthorized")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("ampere: not found")
)

// REST talks to the Ampere API over HTTP.
type REST struct {
	client  *http.Client
	baseURL string
	tokens  TokenSource
}

var _ Client = (*REST)(nil)

// New returns a REST client for the given base URL, authenticating every
// request with tokens.
func New(baseURL string, tokens TokenSource) *REST {
	return &REST{
		client:  common.HTTPClient(time.Minute),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
	}
}

// do performs one API call. The request is rebuilt and retried once after a
// 401 so a token revoked upstream only costs a single round-trip.
func (r *REST) do(ctx context.Context, method, path string, params url.Values, body, dest interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := r.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}

		u, err := url.Parse(r.baseURL)
		if err != nil {
			return err
		}
		u.Path, err = url.JoinPath(u.Path, path)
		if err != nil {
			return err
		}
		if len(params) > 0 {
			u.RawQuery = params.Encode()
		}

		var reqBody io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reqBody = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			log.Ctx(ctx).DebugContext(ctx, "ampere token rejected", slog.String("path", path))
			r.tokens.Invalidate()
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		if resp.StatusCode >= 400 {
			log.Ctx(ctx).ErrorContext(ctx, "ampere api error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)
			return fmt.Errorf("ampere %s %s: status %d", method, path, resp.StatusCode)
		}

		if dest != nil && len(bytes.TrimSpace(respBody)) > 0 {
			if err := json.Unmarshal(respBody, dest); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to decode ampere response", slog.String("path", path), slog.Any("error", err))
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}
	return ErrUnauthorized
}

// normalizeList accepts the payload shapes the platform mixes freely: a bare
// JSON array, or an envelope carrying the array under "results" (some
// telemetry routes use "data"). The second return is the collection total,
// taken from meta.total when present and otherwise the page length. An
// unexpected shape yields an empty list so one malformed payload doesn't take
// down a whole screen.
func normalizeList[T any](ctx context.Context, raw json.RawMessage) ([]T, int) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, 0
	}

	if raw[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "unexpected list payload", slog.Any("error", err))
			return nil, 0
		}
		return list, len(list)
	}

	var env struct {
		Results []T `json:"results"`
		Data    []T `json:"data"`
		Meta    *struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "unexpected list payload", slog.Any("error", err))
		return nil, 0
	}
	list := env.Results
	if list == nil {
		list = env.Data
	}
	total := len(list)
	if env.Meta != nil && env.Meta.Total > 0 {
		total = env.Meta.Total
	}
	return list, total
}

func getList[T any](ctx context.Context, r *REST, path string, params url.Values) ([]T, int, error) {
	var raw json.RawMessage
	if err := r.do(ctx, http.MethodGet, path, params, nil, &raw); err != nil {
		return nil, 0, err
	}
	list, total := normalizeList[T](ctx, raw)
	return list, total, nil
}

// ListGroups returns every group visible to the token.
func (r *REST) ListGroups(ctx context.Context) ([]types.Group, error) {
	list, _, err := getList[types.Group](ctx, r, "groups", nil)
	return list, err
}

// GroupEnergyLatest returns the latest aggregate power reading for a group.
func (r *REST) GroupEnergyLatest(ctx context.Context, groupUUID string) (types.GroupEnergy, error) {
	var ge types.GroupEnergy
	err := r.do(ctx, http.MethodGet, "groups/"+groupUUID+"/energy/latest", nil, nil, &ge)
	return ge, err
}

// ListAddresses returns one offset/limit page of a group's addresses.
func (r *REST) ListAddresses(ctx context.Context, groupUUID string, offset, limit int) (types.AddressPage, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))

	list, total, err := getList[types.Address](ctx, r, "groups/"+groupUUID+"/addresses", params)
	if err != nil {
		return types.AddressPage{}, err
	}
	return types.AddressPage{Addresses: list, Total: total}, nil
}

func (r *REST) ListVehicles(ctx context.Context, addressUUID string) ([]types.Vehicle, error) {
	list, _, err := getList[types.Vehicle](ctx, r, "addresses/"+addressUUID+"/"+string(types.KindVehicles), nil)
	return list, err
}

func (r *REST) ListChargers(ctx context.Context, addressUUID string) ([]types.Charger, error) {
	list, _, err := getList[types.Charger](ctx, r, "addresses/"+addressUUID+"/"+string(types.KindChargers), nil)
	return list, err
}

func (r *REST) ListSolarInverters(ctx context.Context, addressUUID string) ([]types.SolarInverter, error) {
	list, _, err := getList[types.SolarInverter](ctx, r, "addresses/"+addressUUID+"/"+string(types.KindSolarInverters), nil)
	return list, err
}

func (r *REST) ListSmartMeters(ctx context.Context, addressUUID string) ([]types.SmartMeter, error) {
	list, _, err := getList[types.SmartMeter](ctx, r, "addresses/"+addressUUID+"/"+string(types.KindSmartMeters), nil)
	return list, err
}

func (r *REST) ListHvacs(ctx context.Context, addressUUID string) ([]types.Hvac, error) {
	list, _, err := getList[types.Hvac](ctx, r, "addresses/"+addressUUID+"/"+string(types.KindHvacs), nil)
	return list, err
}

func (r *REST) ListBatteries(ctx context.Context, addressUUID string) ([]types.Battery, error) {
	list, _, err := getList[types.Battery](ctx, r, "addresses/"+addressUUID+"/"+string(types.KindBatteries), nil)
	return list, err
}

func (r *REST) ListGridConnections(ctx context.Context, addressUUID string) ([]types.GridConnection, error) {
	list, _, err := getList[types.GridConnection](ctx, r, "addresses/"+addressUUID+"/"+string(types.KindGridConnections), nil)
	return list, err
}

// forecast fetches one forecast route and extracts the interval series. The
// platform usually wraps forecast results in an envelope but some deployments
// return the forecast object bare, so both are accepted; of multiple results
// the first is used.
func (r *REST) forecast(ctx context.Context, path, date string) ([]types.ForecastInterval, error) {
	params := url.Values{}
	params.Set("date", date)

	var raw json.RawMessage
	if err := r.do(ctx, http.MethodGet, path, params, nil, &raw); err != nil {
		return nil, err
	}

	results, _ := normalizeList[types.Forecast](ctx, raw)
	if len(results) > 0 {
		return results[0].Intervals, nil
	}

	var f types.Forecast
	if err := json.Unmarshal(bytes.TrimSpace(raw), &f); err == nil && len(f.Intervals) > 0 {
		return f.Intervals, nil
	}
	return nil, nil
}

func (r *REST) DeliveryForecast(ctx context.Context, addressUUID, meterUUID, date string) ([]types.ForecastInterval, error) {
	return r.forecast(ctx, "addresses/"+addressUUID+"/smart-meters/"+meterUUID+"/delivery-forecast", date)
}

func (r *REST) ReturnForecast(ctx context.Context, addressUUID, meterUUID, date string) ([]types.ForecastInterval, error) {
	return r.forecast(ctx, "addresses/"+addressUUID+"/smart-meters/"+meterUUID+"/return-forecast", date)
}

func (r *REST) ProductionForecast(ctx context.Context, addressUUID, inverterUUID, date string) ([]types.ForecastInterval, error) {
	return r.forecast(ctx, "addresses/"+addressUUID+"/solar-inverters/"+inverterUUID+"/production-forecast", date)
}

// ProductionEnergy returns the raw production samples of a solar inverter for
// the given date.
func (r *REST) ProductionEnergy(ctx context.Context, addressUUID, inverterUUID, date string) ([]types.ProductionSample, error) {
	params := url.Values{}
	params.Set("date", date)
	list, _, err := getList[types.ProductionSample](ctx, r, "addresses/"+addressUUID+"/solar-inverters/"+inverterUUID+"/energy/production", params)
	return list, err
}

// schedulePath builds a schedule route. The schedule routes are the one place
// the platform uses an underscore in the inverter segment.
func schedulePath(addressUUID, inverterUUID, scheduleID string) string {
	p := "addresses/" + addressUUID + "/solar_inverters/" + inverterUUID + "/schedules"
	if scheduleID != "" {
		p += "/" + scheduleID
	}
	return p
}

func (r *REST) ListSchedules(ctx context.Context, addressUUID, inverterUUID string) ([]types.Schedule, error) {
	list, _, err := getList[types.Schedule](ctx, r, schedulePath(addressUUID, inverterUUID, ""), nil)
	return list, err
}

func (r *REST) GetSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string) (types.Schedule, error) {
	var s types.Schedule
	err := r.do(ctx, http.MethodGet, schedulePath(addressUUID, inverterUUID, scheduleID), nil, nil, &s)
	return s, err
}

// CreateSchedule validates and submits a new steering schedule. Validation
// failures surface as FieldErrors and never reach the network.
func (r *REST) CreateSchedule(ctx context.Context, addressUUID, inverterUUID string, s types.Schedule) (types.Schedule, error) {
	if err := s.Validate(); err != nil {
		return types.Schedule{}, err
	}
	var out types.Schedule
	err := r.do(ctx, http.MethodPost, schedulePath(addressUUID, inverterUUID, ""), nil, s, &out)
	return out, err
}

func (r *REST) UpdateSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string, s types.Schedule) (types.Schedule, error) {
	if err := s.Validate(); err != nil {
		return types.Schedule{}, err
	}
	var out types.Schedule
	err := r.do(ctx, http.MethodPut, schedulePath(addressUUID, inverterUUID, scheduleID), nil, s, &out)
	return out, err
}

func (r *REST) DeleteSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string) error {
	return r.do(ctx, http.MethodDelete, schedulePath(addressUUID, inverterUUID, scheduleID), nil, nil, nil)
}

// SparkyDetails returns the standalone gateway record for a serial number.
func (r *REST) SparkyDetails(ctx context.Context, serial string) (types.SparkyDetails, error) {
	var d types.SparkyDetails
	err := r.do(ctx, http.MethodGet, "sparkies/"+serial, nil, nil, &d)
	return d, err
}

// LatestP1 returns the most recent instantaneous P1 reading, in kW.
func (r *REST) LatestP1(ctx context.Context, serial string) (types.P1Reading, error) {
	var p types.P1Reading
	err := r.do(ctx, http.MethodGet, "sparkies/"+serial+"/electricity/latest-p1", nil, nil, &p)
	return p, err
}

// Electricity15Min returns the 15-minute electricity intervals for a date.
func (r *REST) Electricity15Min(ctx context.Context, serial, date string) ([]types.Reading15Min, error) {
	params := url.Values{}
	params.Set("date", date)
	list, _, err := getList[types.Reading15Min](ctx, r, "sparkies/"+serial+"/electricity/15min", params)
	return list, err
}

func (r *REST) raw(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := r.do(ctx, http.MethodGet, path, params, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *REST) SparkyAccess(ctx context.Context, serial string) (json.RawMessage, error) {
	return r.raw(ctx, "sparkies/"+serial+"/access", nil)
}

func (r *REST) ElectricityLatest(ctx context.Context, serial string) (json.RawMessage, error) {
	return r.raw(ctx, "sparkies/"+serial+"/electricity/latest", nil)
}

func (r *REST) ElectricityFirst(ctx context.Context, serial string) (json.RawMessage, error) {
	return r.raw(ctx, "sparkies/"+serial+"/electricity/first", nil)
}

func (r *REST) Gas15Min(ctx context.Context, serial, date string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("date", date)
	return r.raw(ctx, "sparkies/"+serial+"/gas/15min", params)
}

func (r *REST) Total15Min(ctx context.Context, serial, date string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("date", date)
	return r.raw(ctx, "sparkies/"+serial+"/total/15min", params)
}
