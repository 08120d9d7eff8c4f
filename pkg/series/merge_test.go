package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	base := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	fh := func(offset time.Duration, wh float64) ForecastHour {
		start := base.Add(offset)
		return ForecastHour{BucketStart: start, BucketEnd: start.Add(time.Hour), WhSum: wh}
	}

	t.Run("completeness across disjoint buckets", func(t *testing.T) {
		delivery := []ForecastHour{fh(0, 100), fh(time.Hour, 200), fh(2*time.Hour, 300)}
		// one overlapping bucket (12:00), one disjoint (15:00)
		production := []ForecastHour{fh(0, 50), fh(3*time.Hour, 75)}

		merged := Merge(Inputs{DeliveryForecast: delivery, ProductionForecast: production})
		require.Len(t, merged, 4)

		for i := 1; i < len(merged); i++ {
			assert.True(t, merged[i-1].BucketStart.Before(merged[i].BucketStart), "points must be sorted")
		}

		// overlapping bucket carries both series
		require.NotNil(t, merged[0].Delivery)
		require.NotNil(t, merged[0].Production)
		assert.Equal(t, 100.0, *merged[0].Delivery)
		assert.Equal(t, 50.0, *merged[0].Production)

		// production-only bucket leaves delivery unset
		last := merged[3]
		assert.Nil(t, last.Delivery)
		require.NotNil(t, last.Production)
		assert.Equal(t, 75.0, *last.Production)
	})

	t.Run("insertion order does not change output", func(t *testing.T) {
		in := Inputs{
			DeliveryForecast: []ForecastHour{fh(0, 100)},
			ReturnForecast:   []ForecastHour{fh(time.Hour, 40)},
			Actual: []MeterHour{{
				BucketStart: base,
				BucketEnd:   base.Add(time.Hour),
				DeliveredWh: 90,
				ReturnedWh:  30,
				NetWh:       -60,
			}},
		}
		a := Merge(in)

		// same data but presented with the actual series as the only overlap source
		b := Merge(Inputs{
			Actual:           in.Actual,
			ReturnForecast:   in.ReturnForecast,
			DeliveryForecast: in.DeliveryForecast,
		})
		assert.Equal(t, a, b)
	})

	t.Run("labels derived from bucket bounds", func(t *testing.T) {
		merged := Merge(Inputs{DeliveryForecast: []ForecastHour{fh(2*time.Hour, 1)}})
		require.Len(t, merged, 1)
		assert.Equal(t, "14:00", merged[0].Label)
		assert.Equal(t, "14:00 - 15:00", merged[0].RangeLabel)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Merge(Inputs{}))
	})
}
