package series

import (
	"math/rand"
	"testing"
	"time"

	"github.com/chargee/sandboxd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ft(t time.Time) types.FlexTime {
	return types.NewFlexTime(t)
}

func TestBucket15Min(t *testing.T) {
	hour := time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)

	t.Run("unit conversion and net sign", func(t *testing.T) {
		// 4 quarters of 0.25 kWh delivered and 0.1 kWh returned
		var readings []types.Reading15Min
		for q := 0; q < 4; q++ {
			readings = append(readings, types.Reading15Min{
				From:     ft(hour.Add(time.Duration(q) * 15 * time.Minute)),
				Delivery: 0.25,
				Return:   0.1,
			})
		}

		hours := Bucket15Min(readings)
		require.Len(t, hours, 1)
		assert.Equal(t, hour, hours[0].BucketStart)
		assert.Equal(t, hour.Add(time.Hour), hours[0].BucketEnd)
		assert.InDelta(t, 1000, hours[0].DeliveredWh, 1e-9)
		assert.InDelta(t, 400, hours[0].ReturnedWh, 1e-9)
		// net = returned - delivered
		assert.InDelta(t, -600, hours[0].NetWh, 1e-9)
	})

	t.Run("order independence", func(t *testing.T) {
		var readings []types.Reading15Min
		for q := 0; q < 8; q++ {
			readings = append(readings, types.Reading15Min{
				From:     ft(hour.Add(time.Duration(q) * 15 * time.Minute)),
				Delivery: types.FlexFloat(float64(q) * 0.1),
				Return:   0.05,
			})
		}
		want := Bucket15Min(readings)

		shuffled := make([]types.Reading15Min, len(readings))
		copy(shuffled, readings)
		rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, want, Bucket15Min(shuffled))
	})

	t.Run("skips samples without a timestamp", func(t *testing.T) {
		hours := Bucket15Min([]types.Reading15Min{
			{Delivery: 1},
			{From: ft(hour), Delivery: 0.5},
		})
		require.Len(t, hours, 1)
		assert.InDelta(t, 500, hours[0].DeliveredWh, 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Bucket15Min(nil))
	})
}

func TestBucketForecast(t *testing.T) {
	hour := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	t.Run("defensive truncation", func(t *testing.T) {
		// a misaligned interval lands in its surrounding hour
		hours := BucketForecast([]types.ForecastInterval{
			{Start: ft(hour.Add(10 * time.Minute)), WhSum: 607},
		})
		require.Len(t, hours, 1)
		assert.Equal(t, hour, hours[0].BucketStart)
		assert.InDelta(t, 607, hours[0].WhSum, 1e-9)
	})

	t.Run("same hour sums, output sorted", func(t *testing.T) {
		hours := BucketForecast([]types.ForecastInterval{
			{Start: ft(hour.Add(2 * time.Hour)), WhSum: 300},
			{Start: ft(hour), WhSum: 100},
			{Start: ft(hour.Add(30 * time.Minute)), WhSum: 50},
		})
		require.Len(t, hours, 2)
		assert.Equal(t, hour, hours[0].BucketStart)
		assert.InDelta(t, 150, hours[0].WhSum, 1e-9)
		assert.Equal(t, hour.Add(2*time.Hour), hours[1].BucketStart)
	})
}

func TestBucketProduction(t *testing.T) {
	hourH := time.Date(2025, 6, 21, 11, 0, 0, 0, time.UTC)
	hourH1 := hourH.Add(time.Hour)

	t.Run("cumulative delta between hours", func(t *testing.T) {
		samples := []types.ProductionSample{
			{Time: ft(hourH.Add(5 * time.Minute)), Power: 100, EnergyTotal: 100},
			{Time: ft(hourH.Add(25 * time.Minute)), Power: 150, EnergyTotal: 150},
			{Time: ft(hourH.Add(45 * time.Minute)), Power: 200, EnergyTotal: 200},
			{Time: ft(hourH1.Add(5 * time.Minute)), Power: 120, EnergyTotal: 200},
			{Time: ft(hourH1.Add(25 * time.Minute)), Power: 180, EnergyTotal: 260},
			{Time: ft(hourH1.Add(45 * time.Minute)), Power: 240, EnergyTotal: 300},
		}

		hours := BucketProduction(samples)
		require.Len(t, hours, 2)

		// first hour uses its own last counter
		assert.InDelta(t, 200, hours[0].ProductionWh, 1e-9)
		assert.InDelta(t, 150, hours[0].AvgPowerW, 1e-9)

		// H+1 = last(H+1) - last(H) = 300 - 200
		assert.InDelta(t, 100, hours[1].ProductionWh, 1e-9)
		assert.InDelta(t, 180, hours[1].AvgPowerW, 1e-9)
	})

	t.Run("negative delta clamps to zero", func(t *testing.T) {
		samples := []types.ProductionSample{
			{Time: ft(hourH), Power: 100, EnergyTotal: 500},
			{Time: ft(hourH1), Power: 100, EnergyTotal: 400}, // counter went backwards
		}
		hours := BucketProduction(samples)
		require.Len(t, hours, 2)
		assert.Zero(t, hours[1].ProductionWh)
	})

	t.Run("no counter falls back to average power", func(t *testing.T) {
		samples := []types.ProductionSample{
			{Time: ft(hourH.Add(10 * time.Minute)), Power: 400},
			{Time: ft(hourH.Add(40 * time.Minute)), Power: 600},
		}
		hours := BucketProduction(samples)
		require.Len(t, hours, 1)
		// avg 500 W over one hour
		assert.InDelta(t, 500, hours[0].ProductionWh, 1e-9)
	})

	t.Run("last sample chosen by timestamp not input order", func(t *testing.T) {
		samples := []types.ProductionSample{
			{Time: ft(hourH.Add(45 * time.Minute)), Power: 200, EnergyTotal: 200},
			{Time: ft(hourH.Add(5 * time.Minute)), Power: 100, EnergyTotal: 100},
		}
		hours := BucketProduction(samples)
		require.Len(t, hours, 1)
		assert.InDelta(t, 200, hours[0].ProductionWh, 1e-9)
	})
}
