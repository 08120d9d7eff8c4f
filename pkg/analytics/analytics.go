// Package analytics computes per-group device analytics by walking a sampled
// slice of the group's address population and extrapolating the counts back
// up to the full population.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/chargee/sandboxd/pkg/ampere"
	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/storage"
	"github.com/chargee/sandboxd/pkg/types"
)

const (
	// AddressSampleCap bounds how many addresses one aggregation pass walks.
	// Groups above the cap are sampled and their counts extrapolated.
	AddressSampleCap = 1000

	// AddressPageSize is the page size of the sequential address walk.
	AddressPageSize = 100

	// ReportingProbeCap bounds how many gateway liveness probes one pass
	// issues. Independent of AddressSampleCap.
	ReportingProbeCap = 100

	// DeviceBatchSize bounds concurrent device fetches: each batch's fetches
	// run in parallel, batches run sequentially.
	DeviceBatchSize = 50

	// SnapshotTTL is how long a cached snapshot stays fresh.
	SnapshotTTL = time.Hour
)

// Progress reports the state of the address walk after each fetched page.
type Progress struct {
	FetchedAddresses int
	SampledAddresses int
	Fraction         float64
}

// ProgressFunc receives walk progress. May be nil.
type ProgressFunc func(Progress)

// Aggregator computes and caches GroupAnalyticsSnapshots.
type Aggregator struct {
	client ampere.Client
	db     storage.Database

	// now is the clock, overridable in tests.
	now func() time.Time
}

func New(client ampere.Client, db storage.Database) *Aggregator {
	return &Aggregator{client: client, db: db, now: time.Now}
}

// Population probes the group's total address count and reports whether a
// full aggregation pass would sample, so callers can warn before committing
// to the walk.
func (a *Aggregator) Population(ctx context.Context, groupUUID string) (total, sampled int, isSampled bool, err error) {
	page, err := a.client.ListAddresses(ctx, groupUUID, 0, 1)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to count addresses: %w", err)
	}
	total = page.Total
	sampled = min(total, AddressSampleCap)
	return total, sampled, total > AddressSampleCap, nil
}

// Snapshot returns the analytics snapshot for a group. A cached snapshot
// younger than SnapshotTTL is served as-is unless force is set; otherwise a
// fresh aggregation pass runs and its result replaces the cache entry.
func (a *Aggregator) Snapshot(ctx context.Context, groupUUID string, force bool, progress ProgressFunc) (types.GroupAnalyticsSnapshot, error) {
	if !force {
		snap, storedAt, err := storage.GetAnalytics(ctx, a.db, groupUUID)
		if err == nil && a.now().Sub(storedAt) < SnapshotTTL {
			return snap, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Ctx(ctx).WarnContext(ctx, "failed to read analytics cache", slog.String("group", groupUUID), slog.Any("error", err))
		}
	}

	snap, err := a.compute(ctx, groupUUID, progress)
	if err != nil {
		return types.GroupAnalyticsSnapshot{}, err
	}

	if err := storage.PutAnalytics(ctx, a.db, groupUUID, snap); err != nil {
		// the snapshot is still good, only the cache write failed
		log.Ctx(ctx).WarnContext(ctx, "failed to cache analytics snapshot", slog.String("group", groupUUID), slog.Any("error", err))
	}
	return snap, nil
}

func (a *Aggregator) compute(ctx context.Context, groupUUID string, progress ProgressFunc) (types.GroupAnalyticsSnapshot, error) {
	// the total-count probe is the one fatal call: without a population size
	// there is nothing to extrapolate against
	total, sampled, isSampled, err := a.Population(ctx, groupUUID)
	if err != nil {
		return types.GroupAnalyticsSnapshot{}, err
	}

	addresses, err := a.walkAddresses(ctx, groupUUID, sampled, progress)
	if err != nil {
		return types.GroupAnalyticsSnapshot{}, err
	}

	var withSparky []types.Address
	for _, addr := range addresses {
		if addr.Sparky != nil {
			withSparky = append(withSparky, addr)
		}
	}

	reporting := a.probeReporting(ctx, withSparky)
	counts := a.countDevices(ctx, addresses)

	factor := 1.0
	if isSampled && len(addresses) > 0 {
		factor = float64(total) / float64(len(addresses))
	}
	scale := func(raw int) int {
		return int(math.Round(float64(raw) * factor))
	}

	return types.GroupAnalyticsSnapshot{
		ConnectedSparkies: scale(len(withSparky)),
		ReportingSparkies: scale(reporting),
		Vehicles:          scale(counts[types.KindVehicles]),
		Chargers:          scale(counts[types.KindChargers]),
		SolarInverters:    scale(counts[types.KindSolarInverters]),
		SmartMeters:       scale(counts[types.KindSmartMeters]),
		Hvacs:             scale(counts[types.KindHvacs]),
		Batteries:         scale(counts[types.KindBatteries]),
		GridConnections:   scale(counts[types.KindGridConnections]),

		TotalAddressCount:   total,
		SampledAddressCount: len(addresses),
		IsSampled:           isSampled,
		ComputedAt:          a.now(),
	}, nil
}

// walkAddresses fetches the first sampled addresses in sequential pages,
// reporting progress after each.
func (a *Aggregator) walkAddresses(ctx context.Context, groupUUID string, sampled int, progress ProgressFunc) ([]types.Address, error) {
	var addresses []types.Address
	for offset := 0; offset < sampled; offset += AddressPageSize {
		limit := min(AddressPageSize, sampled-offset)
		page, err := a.client.ListAddresses(ctx, groupUUID, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch addresses at offset %d: %w", offset, err)
		}
		addresses = append(addresses, page.Addresses...)
		if progress != nil {
			progress(Progress{
				FetchedAddresses: len(addresses),
				SampledAddresses: sampled,
				Fraction:         float64(len(addresses)) / float64(sampled),
			})
		}
		// a short page means the collection shrank under us
		if len(page.Addresses) < limit {
			break
		}
	}
	return addresses, nil
}

// probeReporting issues one parallel liveness probe per gateway-bearing
// address, capped at ReportingProbeCap, and counts the probes that answered.
// A failed probe means "not reporting", never an error.
func (a *Aggregator) probeReporting(ctx context.Context, withSparky []types.Address) int {
	probes := withSparky
	if len(probes) > ReportingProbeCap {
		probes = probes[:ReportingProbeCap]
	}

	var (
		mu        sync.Mutex
		reporting int
		wg        sync.WaitGroup
	)
	for _, addr := range probes {
		wg.Add(1)
		go func(serial string) {
			defer wg.Done()
			if _, err := a.client.LatestP1(ctx, serial); err != nil {
				return
			}
			mu.Lock()
			reporting++
			mu.Unlock()
		}(addr.Sparky.SerialNumber)
	}
	wg.Wait()
	return reporting
}

// countDevices sums per-kind device counts over every sampled address, in
// sequential batches of DeviceBatchSize with each batch's addresses fetched
// concurrently. An address whose fetches fail contributes zero to every
// counter.
func (a *Aggregator) countDevices(ctx context.Context, addresses []types.Address) map[types.DeviceKind]int {
	counts := make(map[types.DeviceKind]int, len(types.AllDeviceKinds))
	var mu sync.Mutex

	for start := 0; start < len(addresses); start += DeviceBatchSize {
		end := min(start+DeviceBatchSize, len(addresses))

		var wg sync.WaitGroup
		for _, addr := range addresses[start:end] {
			wg.Add(1)
			go func(addressUUID string) {
				defer wg.Done()
				set := ampere.FetchDeviceSet(ctx, a.client, addressUUID)
				mu.Lock()
				for kind, n := range set.Counts() {
					counts[kind] += n
				}
				mu.Unlock()
			}(addr.UUID)
		}
		wg.Wait()
	}
	return counts
}
