// Package series turns raw telemetry and forecast payloads into the hourly
// chart tables the dashboard renders. Bucketing is a pure pass over the input:
// samples are grouped per calendar hour in their own location and reduced to
// one value per metric.
package series

import (
	"sort"
	"time"

	"github.com/chargee/sandboxd/pkg/types"
)

// ForecastHour is one hour of a backend forecast, already aggregated upstream.
type ForecastHour struct {
	BucketStart time.Time
	BucketEnd   time.Time
	WhSum       float64
}

// MeterHour is one hour aggregated from 15-minute smart-meter intervals.
// NetWh = ReturnedWh - DeliveredWh: positive means net consumption from the
// grid, negative means net export.
type MeterHour struct {
	BucketStart time.Time
	BucketEnd   time.Time
	DeliveredWh float64
	ReturnedWh  float64
	NetWh       float64
}

// ProductionHour is one hour aggregated from inverter production samples.
type ProductionHour struct {
	BucketStart time.Time
	BucketEnd   time.Time
	// ProductionWh is the cumulative-counter delta for the hour, never negative.
	ProductionWh float64
	// AvgPowerW is the arithmetic mean of the instantaneous power readings.
	AvgPowerW float64
}

// bucketStart zeroes minutes, seconds and sub-seconds in the timestamp's own
// location. time.Truncate would shift hours in zones with non-hour offsets.
func bucketStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// BucketForecast buckets pre-aggregated hourly forecast intervals. Interval
// starts are expected aligned to the hour but are truncated anyway; intervals
// that land in the same hour are summed. Intervals without a parsable start
// are dropped.
func BucketForecast(intervals []types.ForecastInterval) []ForecastHour {
	buckets := make(map[int64]*ForecastHour)
	for _, iv := range intervals {
		if iv.Start.IsZero() {
			continue
		}
		start := bucketStart(iv.Start.Time)
		key := start.UnixMilli()
		b, ok := buckets[key]
		if !ok {
			b = &ForecastHour{BucketStart: start, BucketEnd: start.Add(time.Hour)}
			buckets[key] = b
		}
		b.WhSum += iv.WhSum.Float64()
	}
	return sortBuckets(buckets)
}

// Bucket15Min aggregates 15-minute delivery/return intervals into hours.
// Interval energies arrive in kWh and are converted to Wh before summing.
func Bucket15Min(readings []types.Reading15Min) []MeterHour {
	buckets := make(map[int64]*MeterHour)
	for _, r := range readings {
		if r.From.IsZero() {
			continue
		}
		start := bucketStart(r.From.Time)
		key := start.UnixMilli()
		b, ok := buckets[key]
		if !ok {
			b = &MeterHour{BucketStart: start, BucketEnd: start.Add(time.Hour)}
			buckets[key] = b
		}
		b.DeliveredWh += r.Delivery.Float64() * 1000
		b.ReturnedWh += r.Return.Float64() * 1000
	}
	hours := sortBuckets(buckets)
	for i := range hours {
		hours[i].NetWh = hours[i].ReturnedWh - hours[i].DeliveredWh
	}
	return hours
}

type productionAccum struct {
	start      time.Time
	powerSum   float64
	count      int
	lastEnergy float64
	lastTime   time.Time
}

// BucketProduction aggregates instantaneous power + cumulative-energy samples
// into hours. Each hour's energy is the cumulative counter at the hour's last
// sample minus the counter at the previous hour's last sample; the first hour
// falls back to its own counter, or to average power over one hour when no
// counter was reported. Counters are expected monotonic, so negative deltas
// clamp to zero.
func BucketProduction(samples []types.ProductionSample) []ProductionHour {
	accums := make(map[int64]*productionAccum)
	for _, s := range samples {
		if s.Time.IsZero() {
			continue
		}
		start := bucketStart(s.Time.Time)
		key := start.UnixMilli()
		a, ok := accums[key]
		if !ok {
			a = &productionAccum{start: start}
			accums[key] = a
		}
		a.powerSum += s.Power.Float64()
		a.count++
		if a.lastTime.IsZero() || !s.Time.Before(a.lastTime) {
			a.lastTime = s.Time.Time
			a.lastEnergy = s.EnergyTotal.Float64()
		}
	}

	ordered := make([]*productionAccum, 0, len(accums))
	for _, a := range accums {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].start.Before(ordered[j].start)
	})

	hours := make([]ProductionHour, 0, len(ordered))
	for i, a := range ordered {
		avgPower := 0.0
		if a.count > 0 {
			avgPower = a.powerSum / float64(a.count)
		}

		var energy float64
		if i > 0 {
			energy = a.lastEnergy - ordered[i-1].lastEnergy
		} else if a.lastEnergy > 0 {
			energy = a.lastEnergy
		} else {
			// no usable counter yet, estimate: W * 1h = Wh
			energy = avgPower
		}
		if energy < 0 {
			energy = 0
		}

		hours = append(hours, ProductionHour{
			BucketStart:  a.start,
			BucketEnd:    a.start.Add(time.Hour),
			ProductionWh: energy,
			AvgPowerW:    avgPower,
		})
	}
	return hours
}

type bucket interface {
	ForecastHour | MeterHour
}

func sortBuckets[B bucket](m map[int64]*B) []B {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]B, 0, len(m))
	for _, k := range keys {
		out = append(out, *m[k])
	}
	return out
}
