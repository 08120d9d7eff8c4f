package ampere

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/types"
)

// FetchDeviceSet loads every device collection of an address concurrently.
// A failed kind is isolated: it contributes an empty slice and is recorded in
// Failed so callers can render the kinds that did succeed with an inline
// warning for the rest.
func FetchDeviceSet(ctx context.Context, c Client, addressUUID string) types.DeviceSet {
	var (
		set types.DeviceSet
		mu  sync.Mutex
		wg  sync.WaitGroup
	)

	fail := func(kind types.DeviceKind, err error) {
		log.Ctx(ctx).WarnContext(ctx, "device fetch failed",
			slog.String("address", addressUUID),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		mu.Lock()
		set.Failed = append(set.Failed, kind)
		mu.Unlock()
	}

	fetch := func(kind types.DeviceKind, f func() error) {
		defer wg.Done()
		if err := f(); err != nil {
			fail(kind, err)
		}
	}

	wg.Add(len(types.AllDeviceKinds))
	go fetch(types.KindVehicles, func() error {
		v, err := c.ListVehicles(ctx, addressUUID)
		if err != nil {
			return err
		}
		mu.Lock()
		set.Vehicles = v
		mu.Unlock()
		return nil
	})
	go fetch(types.KindChargers, func() error {
		v, err := c.ListChargers(ctx, addressUUID)
		if err != nil {
			return err
		}
		mu.Lock()
		set.Chargers = v
		mu.Unlock()
		return nil
	})
	go fetch(types.KindSolarInverters, func() error {
		v, err := c.ListSolarInverters(ctx, addressUUID)
		if err != nil {
			return err
		}
		mu.Lock()
		set.SolarInverters = v
		mu.Unlock()
		return nil
	})
	go fetch(types.KindSmartMeters, func() error {
		v, err := c.ListSmartMeters(ctx, addressUUID)
		if err != nil {
			return err
		}
		mu.Lock()
		set.SmartMeters = v
		mu.Unlock()
		return nil
	})
	go fetch(types.KindHvacs, func() error {
		v, err := c.ListHvacs(ctx, addressUUID)
		if err != nil {
			return err
		}
		mu.Lock()
		set.Hvacs = v
		mu.Unlock()
		return nil
	})
	go fetch(types.KindBatteries, func() error {
		v, err := c.ListBatteries(ctx, addressUUID)
		if err != nil {
			return err
		}
		mu.Lock()
		set.Batteries = v
		mu.Unlock()
		return nil
	})
	go fetch(types.KindGridConnections, func() error {
		v, err := c.ListGridConnections(ctx, addressUUID)
		if err != nil {
			return err
		}
		mu.Lock()
		set.GridConnections = v
		mu.Unlock()
		return nil
	})
	wg.Wait()

	// report failures in render order
	slices.SortFunc(set.Failed, func(a, b types.DeviceKind) int {
		return slices.Index(types.AllDeviceKinds, a) - slices.Index(types.AllDeviceKinds, b)
	})
	return set
}
