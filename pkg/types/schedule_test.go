package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleMutualExclusivity(t *testing.T) {
	at := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	t.Run("power limit payload", func(t *testing.T) {
		s := PowerLimitSchedule(at, 75)
		require.NoError(t, s.Validate())

		b, err := json.Marshal(s)
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(b, &raw))
		assert.Equal(t, float64(75), raw["powerlimit"])
		assert.NotContains(t, raw, "zeroExport")
	})

	t.Run("zero export payload", func(t *testing.T) {
		s := ZeroExportSchedule(at)
		require.NoError(t, s.Validate())

		b, err := json.Marshal(s)
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(b, &raw))
		assert.Equal(t, true, raw["zeroExport"])
		assert.NotContains(t, raw, "powerlimit")
	})
}

func TestScheduleValidate(t *testing.T) {
	limit := func(v int) *int { return &v }
	yes := true

	tests := []struct {
		name      string
		schedule  Schedule
		wantField string
	}{
		{
			name:      "missing time",
			schedule:  Schedule{PowerLimit: limit(50)},
			wantField: "time",
		},
		{
			name:      "unparsable time",
			schedule:  Schedule{Time: "tomorrow-ish", PowerLimit: limit(50)},
			wantField: "time",
		},
		{
			name:      "limit above range",
			schedule:  Schedule{Time: "2026-03-01T14:00:00Z", PowerLimit: limit(101)},
			wantField: "powerlimit",
		},
		{
			name:      "limit below range",
			schedule:  Schedule{Time: "2026-03-01T14:00:00Z", PowerLimit: limit(-1)},
			wantField: "powerlimit",
		},
		{
			name:      "neither variant",
			schedule:  Schedule{Time: "2026-03-01T14:00:00Z"},
			wantField: "type",
		},
		{
			name:      "both variants",
			schedule:  Schedule{Time: "2026-03-01T14:00:00Z", PowerLimit: limit(50), ZeroExport: &yes},
			wantField: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			require.Error(t, err)
			var fieldErrs FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Contains(t, fieldErrs, tt.wantField)
		})
	}

	t.Run("valid boundary limits", func(t *testing.T) {
		assert.NoError(t, Schedule{Time: "2026-03-01T14:00:00Z", PowerLimit: limit(0)}.Validate())
		assert.NoError(t, Schedule{Time: "2026-03-01T14:00:00Z", PowerLimit: limit(100)}.Validate())
	})
}
