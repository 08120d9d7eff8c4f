package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/series"
)

// chartResponse is the merged chart table plus which series could not be
// fetched. A section listed in failed is absent from every point rather than
// zeroed.
type chartResponse struct {
	Date   string         `json:"date"`
	Points []series.Point `json:"points"`
	Failed []string       `json:"failed,omitempty"`
}

// handleChart assembles the energy chart of one address for one day. The
// meter, inverter and serial query params select which sections apply; every
// applicable section is fetched in parallel and a failed section drops out of
// the chart instead of failing the request.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID := r.PathValue("addressID")

	date := r.URL.Query().Get("date")
	if date == "" {
		date = todayDate()
	} else if !validDate(date) {
		writeJSONError(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	meterID := r.URL.Query().Get("meter")
	inverterID := r.URL.Query().Get("inverter")
	serial := r.URL.Query().Get("serial")
	if meterID == "" && inverterID == "" && serial == "" {
		writeJSONError(w, "at least one of meter, inverter or serial is required", http.StatusBadRequest)
		return
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		in     series.Inputs
		failed []string
	)
	section := func(name string, fetch func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fetch(); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "chart section failed",
					slog.String("address", addressID),
					slog.String("section", name),
					slog.Any("error", err))
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
		}()
	}

	if meterID != "" {
		section("delivery-forecast", func() error {
			intervals, err := s.client.DeliveryForecast(ctx, addressID, meterID, date)
			if err != nil {
				return err
			}
			mu.Lock()
			in.DeliveryForecast = series.BucketForecast(intervals)
			mu.Unlock()
			return nil
		})
		section("return-forecast", func() error {
			intervals, err := s.client.ReturnForecast(ctx, addressID, meterID, date)
			if err != nil {
				return err
			}
			mu.Lock()
			in.ReturnForecast = series.BucketForecast(intervals)
			mu.Unlock()
			return nil
		})
	}
	if inverterID != "" {
		section("production-forecast", func() error {
			intervals, err := s.client.ProductionForecast(ctx, addressID, inverterID, date)
			if err != nil {
				return err
			}
			mu.Lock()
			in.ProductionForecast = series.BucketForecast(intervals)
			mu.Unlock()
			return nil
		})
		section("production-energy", func() error {
			samples, err := s.client.ProductionEnergy(ctx, addressID, inverterID, date)
			if err != nil {
				return err
			}
			mu.Lock()
			in.ActualProduction = series.BucketProduction(samples)
			mu.Unlock()
			return nil
		})
	}
	if serial != "" {
		section("electricity-15min", func() error {
			readings, err := s.client.Electricity15Min(ctx, serial, date)
			if err != nil {
				return err
			}
			mu.Lock()
			in.Actual = series.Bucket15Min(readings)
			mu.Unlock()
			return nil
		})
	}
	wg.Wait()

	writeJSON(w, chartResponse{Date: date, Points: series.Merge(in), Failed: failed})
}

func todayDate() string {
	return time.Now().Format("2006-01-02")
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
