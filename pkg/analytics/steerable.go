package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/types"
)

// SteerableInverters walks up to AddressSampleCap of the group's addresses
// and returns every inverter flagged steerable, annotated with its address
// and gateway serial and ordered by most recently reported first. An address
// whose inverter fetch fails contributes nothing.
func (a *Aggregator) SteerableInverters(ctx context.Context, groupUUID string, progress ProgressFunc) ([]types.SteerableInverter, error) {
	_, sampled, _, err := a.Population(ctx, groupUUID)
	if err != nil {
		return nil, err
	}

	addresses, err := a.walkAddresses(ctx, groupUUID, sampled, progress)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		steerable []types.SteerableInverter
	)
	for start := 0; start < len(addresses); start += DeviceBatchSize {
		end := min(start+DeviceBatchSize, len(addresses))

		var wg sync.WaitGroup
		for _, addr := range addresses[start:end] {
			wg.Add(1)
			go func(addr types.Address) {
				defer wg.Done()
				inverters, err := a.client.ListSolarInverters(ctx, addr.UUID)
				if err != nil {
					log.Ctx(ctx).WarnContext(ctx, "failed to list inverters", slog.String("address", addr.UUID), slog.Any("error", err))
					return
				}
				var serial string
				if addr.Sparky != nil {
					serial = addr.Sparky.SerialNumber
				}
				mu.Lock()
				for _, inv := range inverters {
					if !inv.Info.IsSteerable {
						continue
					}
					steerable = append(steerable, types.SteerableInverter{
						SolarInverter:      inv,
						AddressUUID:        addr.UUID,
						SparkySerialNumber: serial,
					})
				}
				mu.Unlock()
			}(addr)
		}
		wg.Wait()
	}

	sort.SliceStable(steerable, func(i, j int) bool {
		return steerable[i].LastReported().After(steerable[j].LastReported())
	})
	return steerable, nil
}
