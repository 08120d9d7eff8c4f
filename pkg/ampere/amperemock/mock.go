// Package amperemock provides a testify mock of the ampere.Client interface.
package amperemock

import (
	"context"
	"encoding/json"

	"github.com/chargee/sandboxd/pkg/ampere"
	"github.com/chargee/sandboxd/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

var _ ampere.Client = (*MockClient)(nil)

func (m *MockClient) ListGroups(ctx context.Context) ([]types.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Group), args.Error(1)
}

func (m *MockClient) GroupEnergyLatest(ctx context.Context, groupUUID string) (types.GroupEnergy, error) {
	args := m.Called(ctx, groupUUID)
	return args.Get(0).(types.GroupEnergy), args.Error(1)
}

func (m *MockClient) ListAddresses(ctx context.Context, groupUUID string, offset, limit int) (types.AddressPage, error) {
	args := m.Called(ctx, groupUUID, offset, limit)
	return args.Get(0).(types.AddressPage), args.Error(1)
}

func (m *MockClient) ListVehicles(ctx context.Context, addressUUID string) ([]types.Vehicle, error) {
	args := m.Called(ctx, addressUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Vehicle), args.Error(1)
}

func (m *MockClient) ListChargers(ctx context.Context, addressUUID string) ([]types.Charger, error) {
	args := m.Called(ctx, addressUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Charger), args.Error(1)
}

func (m *MockClient) ListSolarInverters(ctx context.Context, addressUUID string) ([]types.SolarInverter, error) {
	args := m.Called(ctx, addressUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SolarInverter), args.Error(1)
}

func (m *MockClient) ListSmartMeters(ctx context.Context, addressUUID string) ([]types.SmartMeter, error) {
	args := m.Called(ctx, addressUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SmartMeter), args.Error(1)
}

func (m *MockClient) ListHvacs(ctx context.Context, addressUUID string) ([]types.Hvac, error) {
	args := m.Called(ctx, addressUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Hvac), args.Error(1)
}

func (m *MockClient) ListBatteries(ctx context.Context, addressUUID string) ([]types.Battery, error) {
	args := m.Called(ctx, addressUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Battery), args.Error(1)
}

func (m *MockClient) ListGridConnections(ctx context.Context, addressUUID string) ([]types.GridConnection, error) {
	args := m.Called(ctx, addressUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.GridConnection), args.Error(1)
}

func (m *MockClient) DeliveryForecast(ctx context.Context, addressUUID, meterUUID, date string) ([]types.ForecastInterval, error) {
	args := m.Called(ctx, addressUUID, meterUUID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ForecastInterval), args.Error(1)
}

func (m *MockClient) ReturnForecast(ctx context.Context, addressUUID, meterUUID, date string) ([]types.ForecastInterval, error) {
	args := m.Called(ctx, addressUUID, meterUUID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ForecastInterval), args.Error(1)
}

func (m *MockClient) ProductionForecast(ctx context.Context, addressUUID, inverterUUID, date string) ([]types.ForecastInterval, error) {
	args := m.Called(ctx, addressUUID, inverterUUID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ForecastInterval), args.Error(1)
}

func (m *MockClient) ProductionEnergy(ctx context.Context, addressUUID, inverterUUID, date string) ([]types.ProductionSample, error) {
	args := m.Called(ctx, addressUUID, inverterUUID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ProductionSample), args.Error(1)
}

func (m *MockClient) ListSchedules(ctx context.Context, addressUUID, inverterUUID string) ([]types.Schedule, error) {
	args := m.Called(ctx, addressUUID, inverterUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Schedule), args.Error(1)
}

func (m *MockClient) GetSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string) (types.Schedule, error) {
	args := m.Called(ctx, addressUUID, inverterUUID, scheduleID)
	return args.Get(0).(types.Schedule), args.Error(1)
}

func (m *MockClient) CreateSchedule(ctx context.Context, addressUUID, inverterUUID string, s types.Schedule) (types.Schedule, error) {
	args := m.Called(ctx, addressUUID, inverterUUID, s)
	return args.Get(0).(types.Schedule), args.Error(1)
}

func (m *MockClient) UpdateSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string, s types.Schedule) (types.Schedule, error) {
	args := m.Called(ctx, addressUUID, inverterUUID, scheduleID, s)
	return args.Get(0).(types.Schedule), args.Error(1)
}

func (m *MockClient) DeleteSchedule(ctx context.Context, addressUUID, inverterUUID, scheduleID string) error {
	args := m.Called(ctx, addressUUID, inverterUUID, scheduleID)
	return args.Error(0)
}

func (m *MockClient) SparkyDetails(ctx context.Context, serial string) (types.SparkyDetails, error) {
	args := m.Called(ctx, serial)
	return args.Get(0).(types.SparkyDetails), args.Error(1)
}

func (m *MockClient) LatestP1(ctx context.Context, serial string) (types.P1Reading, error) {
	args := m.Called(ctx, serial)
	return args.Get(0).(types.P1Reading), args.Error(1)
}

func (m *MockClient) Electricity15Min(ctx context.Context, serial, date string) ([]types.Reading15Min, error) {
	args := m.Called(ctx, serial, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Reading15Min), args.Error(1)
}

func (m *MockClient) SparkyAccess(ctx context.Context, serial string) (json.RawMessage, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockClient) ElectricityLatest(ctx context.Context, serial string) (json.RawMessage, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockClient) ElectricityFirst(ctx context.Context, serial string) (json.RawMessage, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockClient) Gas15Min(ctx context.Context, serial, date string) (json.RawMessage, error) {
	args := m.Called(ctx, serial, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockClient) Total15Min(ctx context.Context, serial, date string) (json.RawMessage, error) {
	args := m.Called(ctx, serial, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
