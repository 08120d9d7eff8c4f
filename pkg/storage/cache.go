package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chargee/sandboxd/pkg/types"
)

// AddressPageKey is the cache key for one page of a group's addresses.
func AddressPageKey(groupUUID string, page int) string {
	return fmt.Sprintf("addresses_%s_page_%d", groupUUID, page)
}

// AnalyticsKey is the cache key for a group's analytics snapshot.
func AnalyticsKey(groupUUID string) string {
	return "analytics_" + groupUUID
}

func getJSON[T any](ctx context.Context, db Database, key string) (T, time.Time, error) {
	var v T
	raw, storedAt, err := db.Get(ctx, key)
	if err != nil {
		return v, time.Time{}, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, time.Time{}, fmt.Errorf("failed to unmarshal cache entry %s: %w", key, err)
	}
	return v, storedAt, nil
}

func putJSON(ctx context.Context, db Database, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}
	return db.Put(ctx, key, raw)
}

// GetAddressPage returns the cached address page for a group, if any.
func GetAddressPage(ctx context.Context, db Database, groupUUID string, page int) (types.AddressPage, time.Time, error) {
	return getJSON[types.AddressPage](ctx, db, AddressPageKey(groupUUID, page))
}

// PutAddressPage caches one page of a group's addresses.
func PutAddressPage(ctx context.Context, db Database, groupUUID string, page int, p types.AddressPage) error {
	return putJSON(ctx, db, AddressPageKey(groupUUID, page), p)
}

// GetAnalytics returns the cached analytics snapshot for a group, if any.
func GetAnalytics(ctx context.Context, db Database, groupUUID string) (types.GroupAnalyticsSnapshot, time.Time, error) {
	return getJSON[types.GroupAnalyticsSnapshot](ctx, db, AnalyticsKey(groupUUID))
}

// PutAnalytics caches a group's analytics snapshot.
func PutAnalytics(ctx context.Context, db Database, groupUUID string, snap types.GroupAnalyticsSnapshot) error {
	return putJSON(ctx, db, AnalyticsKey(groupUUID), snap)
}
