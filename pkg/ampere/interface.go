package ampere

import (
	"context"
	"encoding/json"

	"github.com/chargee/sandboxd/pkg/types"
)

// Client defines the call surface of the Ampere platform API. Listing calls
// tolerate both payload shapes the platform emits (bare array or a
// {results, meta} envelope).
type Client interface {
	// ListGroups returns every group visible to the token.
	ListGroups(ctx context.Context) ([]types.Group, error)

	// GroupEnergyLatest returns the latest aggregate power reading for a group.
	GroupEnergyLatest(ctx context.Context, groupUUID string) (types.GroupEnergy, error)

	// ListAddresses returns one offset/limit page of a group's addresses plus
	// the collection total when the platform reports one.
	ListAddresses(ctx context.Context, groupUUID string, offset, limit int) (types.AddressPage, error)

	ListVehicles(ctx context.Context, addressUUID string) ([]types.Vehicle, error)
	ListChargers(ctx context.Context, addressUUID string) ([]types.Charger, error)
	ListSolarInverters(ctx context.Context, addressUUID string) ([]types.SolarInverter, error)
	ListSmartMeters(ctx context.Context, addressUUID string) ([]types.SmartMeter, error)
	ListHvacs(ctx context.Context, addressUUID string) ([]types.Hvac, error)
	ListBatteries(ctx context.Context, addressUUID string) ([]types.Battery, error)
	ListGridConnections(ctx context.Context, addressUUID string) ([]types.GridConnection, error)

	// DeliveryForecast returns the hourly delivery forecast intervals of a
	// smart meter for the given date (YYYY-MM-DD).
	DeliveryForecast(ctx context.Context, addressUUID, meterUUID, date string) ([]types.ForecastInterval, error)
	ReturnForecast(ctx context.Context, addressUUID, meterUUID, date string) ([]types.ForecastInterval, error)
	ProductionForecast(ctx context.Context, addressUUID, inverterUUID, date string) ([]types.ForecastInterval, error)

	// ProductionEnergy returns the raw production samples of a solar inverter
	// for the given date.
	ProductionEnergy(ctx context.Context, addressUUID, inverterUUID, date string) ([]types.ProductionSample, error)

	ListSchedules(ctx context.Context, addressUUID, inverterUUID string) ([]types.Schedule, error)
	GetSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string) (types.Schedule, error)
	CreateSchedule(ctx context.Context, addressUUID, inverterUUID string, s types.Schedule) (types.Schedule, error)
	UpdateSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string, s types.Schedule) (types.Schedule, error)
	DeleteSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string) error

	// SparkyDetails returns the standalone gateway record for a serial number.
	SparkyDetails(ctx context.Context, serial string) (types.SparkyDetails, error)

	// LatestP1 returns the most recent instantaneous P1 reading, in kW.
	LatestP1(ctx context.Context, serial string) (types.P1Reading, error)

	// Electricity15Min returns the 15-minute electricity intervals for a date.
	Electricity15Min(ctx context.Context, serial, date string) ([]types.Reading15Min, error)

	// The remaining gateway sections are display-only and not reshaped, so
	// they pass through as raw JSON.
	SparkyAccess(ctx context.Context, serial string) (json.RawMessage, error)
	ElectricityLatest(ctx context.Context, serial string) (json.RawMessage, error)
	ElectricityFirst(ctx context.Context, serial string) (json.RawMessage, error)
	Gas15Min(ctx context.Context, serial, date string) (json.RawMessage, error)
	Total15Min(ctx context.Context, serial, date string) (json.RawMessage, error)
}

// TokenSource supplies the bearer token attached to every request. Invalidate
// is called after the platform rejects the token with a 401 so the next Token
// call can mint or reload a fresh one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// StaticToken is a TokenSource wrapping a fixed token. Invalidate is a no-op
// since there is nothing to refresh.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }
func (s StaticToken) Invalidate()                           {}
