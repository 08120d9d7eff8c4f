// Package storagemock provides a testify mock of the storage.Database
// interface.
package storagemock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chargee/sandboxd/pkg/storage"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) Get(ctx context.Context, key string) (json.RawMessage, time.Time, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(time.Time), args.Error(2)
	}
	return args.Get(0).(json.RawMessage), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockDatabase) Put(ctx context.Context, key string, value json.RawMessage) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockDatabase) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
