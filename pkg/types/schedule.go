package types

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is a steering entry on a solar inverter. Exactly one of PowerLimit
// and ZeroExport is set: a power-limit schedule caps output to a percentage,
// a zero-export schedule balances production against local consumption. The
// backend owns the authoritative copy; we only pass schedules through.
type Schedule struct {
	Identifier string `json:"identifier,omitempty"`
	UUID       string `json:"uuid,omitempty"`
	Time       string `json:"time"`
	PowerLimit *int   `json:"powerlimit,omitempty"`
	ZeroExport *bool  `json:"zeroExport,omitempty"`
}

// ID returns whichever identifier the backend populated.
func (s Schedule) ID() string {
	if s.Identifier != "" {
		return s.Identifier
	}
	return s.UUID
}

// IsZeroExport reports whether this is a zero-export schedule.
func (s Schedule) IsZeroExport() bool {
	return s.ZeroExport != nil && *s.ZeroExport
}

// PowerLimitSchedule builds a power-limit schedule payload.
func PowerLimitSchedule(t time.Time, limit int) Schedule {
	return Schedule{
		Time:       t.UTC().Format(time.RFC3339),
		PowerLimit: &limit,
	}
}

// ZeroExportSchedule builds a zero-export schedule payload.
func ZeroExportSchedule(t time.Time) Schedule {
	on := true
	return Schedule{
		Time:       t.UTC().Format(time.RFC3339),
		ZeroExport: &on,
	}
}

// FieldErrors maps a form field to its validation message so the caller can
// surface each error inline next to the offending field.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// Validate checks a schedule before it is submitted upstream. Invalid
// schedules never produce a network call.
func (s Schedule) Validate() error {
	errs := FieldErrors{}

	if s.Time == "" {
		errs["time"] = "schedule time is required"
	} else if _, err := time.Parse(time.RFC3339, s.Time); err != nil {
		errs["time"] = "invalid date/time"
	}

	if s.PowerLimit != nil && s.ZeroExport != nil {
		errs["type"] = "power limit and zero export are mutually exclusive"
	}
	if s.PowerLimit == nil && s.ZeroExport == nil {
		errs["type"] = "either power limit or zero export is required"
	}
	if s.PowerLimit != nil && (*s.PowerLimit < 0 || *s.PowerLimit > 100) {
		errs["powerlimit"] = "power limit must be between 0 and 100"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
