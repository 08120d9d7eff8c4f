package series

import (
	"sort"
	"time"
)

// Point is one row of the merged chart table: one distinct bucket start across
// every merged series. A nil metric means that series has no value for this
// bucket, which is distinct from a measured zero.
type Point struct {
	BucketStart time.Time `json:"start"`
	BucketEnd   time.Time `json:"end"`

	// Label is the bucket start formatted as "14:00"; RangeLabel covers the
	// full bucket, "14:00 - 15:00". Both are derived once from the bucket
	// bounds, not per series.
	Label      string `json:"time"`
	RangeLabel string `json:"timeRange"`

	Delivery         *float64 `json:"delivery,omitempty"`
	Return           *float64 `json:"return,omitempty"`
	Production       *float64 `json:"production,omitempty"`
	ActualDelivery   *float64 `json:"actualDelivery,omitempty"`
	ActualReturn     *float64 `json:"actualReturn,omitempty"`
	ActualNet        *float64 `json:"actualNet,omitempty"`
	ActualProduction *float64 `json:"actualProduction,omitempty"`
	AvgPowerW        *float64 `json:"avgPower,omitempty"`
}

// Inputs carries the independently bucketed series to merge. Any subset may be
// empty.
type Inputs struct {
	DeliveryForecast   []ForecastHour
	ReturnForecast     []ForecastHour
	ProductionForecast []ForecastHour
	Actual             []MeterHour
	ActualProduction   []ProductionHour
}

// Merge unions the input series into one table keyed by bucket start, sorted
// ascending. The result does not depend on which series is merged first: a
// bucket appearing in several inputs yields a single point carrying each
// series' value, and a bucket unique to one series still appears with only
// that field set.
func Merge(in Inputs) []Point {
	points := make(map[int64]*Point)

	at := func(start, end time.Time) *Point {
		key := start.UnixMilli()
		p, ok := points[key]
		if !ok {
			p = &Point{
				BucketStart: start,
				BucketEnd:   end,
				Label:       start.Format("15:04"),
				RangeLabel:  start.Format("15:04") + " - " + end.Format("15:04"),
			}
			points[key] = p
		}
		return p
	}

	for _, h := range in.DeliveryForecast {
		at(h.BucketStart, h.BucketEnd).Delivery = ptr(h.WhSum)
	}
	for _, h := range in.ReturnForecast {
		at(h.BucketStart, h.BucketEnd).Return = ptr(h.WhSum)
	}
	for _, h := range in.ProductionForecast {
		at(h.BucketStart, h.BucketEnd).Production = ptr(h.WhSum)
	}
	for _, h := range in.Actual {
		p := at(h.BucketStart, h.BucketEnd)
		p.ActualDelivery = ptr(h.DeliveredWh)
		p.ActualReturn = ptr(h.ReturnedWh)
		p.ActualNet = ptr(h.NetWh)
	}
	for _, h := range in.ActualProduction {
		p := at(h.BucketStart, h.BucketEnd)
		p.ActualProduction = ptr(h.ProductionWh)
		p.AvgPowerW = ptr(h.AvgPowerW)
	}

	merged := make([]Point, 0, len(points))
	for _, p := range points {
		merged = append(merged, *p)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].BucketStart.Before(merged[j].BucketStart)
	})
	return merged
}

func ptr(v float64) *float64 {
	return &v
}
