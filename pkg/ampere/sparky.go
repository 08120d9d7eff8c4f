package ampere

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/types"
)

// SparkyBundle groups every gateway section the detail screen shows. Sections
// that failed to load are absent, with the error string recorded per key in
// Failed.
type SparkyBundle struct {
	Details          *types.SparkyDetails `json:"details,omitempty"`
	Access           json.RawMessage      `json:"access,omitempty"`
	Latest           json.RawMessage      `json:"latest,omitempty"`
	LatestP1         *types.P1Reading     `json:"latestP1,omitempty"`
	First            json.RawMessage      `json:"first,omitempty"`
	Electricity15Min []types.Reading15Min `json:"electricity15min,omitempty"`
	Gas15Min         json.RawMessage      `json:"gas15min,omitempty"`
	Total15Min       json.RawMessage      `json:"total15min,omitempty"`

	Failed map[string]string `json:"failed,omitempty"`
}

// FetchSparkyBundle loads every section of a gateway's detail view
// concurrently. Each section fails independently so a dead telemetry route
// doesn't blank the whole screen.
func FetchSparkyBundle(ctx context.Context, c Client, serial, date string) SparkyBundle {
	var (
		b  SparkyBundle
		mu sync.Mutex
		wg sync.WaitGroup
	)

	section := func(key string, f func() error) {
		defer wg.Done()
		if err := f(); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "sparky section fetch failed",
				slog.String("serial", serial),
				slog.String("section", key),
				slog.Any("error", err),
			)
			mu.Lock()
			if b.Failed == nil {
				b.Failed = make(map[string]string)
			}
			b.Failed[key] = err.Error()
			mu.Unlock()
		}
	}

	wg.Add(8)
	go section("details", func() error {
		d, err := c.SparkyDetails(ctx, serial)
		if err != nil {
			return err
		}
		mu.Lock()
		b.Details = &d
		mu.Unlock()
		return nil
	})
	go section("access", func() error {
		raw, err := c.SparkyAccess(ctx, serial)
		if err != nil {
			return err
		}
		mu.Lock()
		b.Access = raw
		mu.Unlock()
		return nil
	})
	go section("latest", func() error {
		raw, err := c.ElectricityLatest(ctx, serial)
		if err != nil {
			return err
		}
		mu.Lock()
		b.Latest = raw
		mu.Unlock()
		return nil
	})
	go section("latest-p1", func() error {
		p, err := c.LatestP1(ctx, serial)
		if err != nil {
			return err
		}
		mu.Lock()
		b.LatestP1 = &p
		mu.Unlock()
		return nil
	})
	go section("first", func() error {
		raw, err := c.ElectricityFirst(ctx, serial)
		if err != nil {
			return err
		}
		mu.Lock()
		b.First = raw
		mu.Unlock()
		return nil
	})
	go section("electricity-15min", func() error {
		list, err := c.Electricity15Min(ctx, serial, date)
		if err != nil {
			return err
		}
		mu.Lock()
		b.Electricity15Min = list
		mu.Unlock()
		return nil
	})
	go section("gas-15min", func() error {
		raw, err := c.Gas15Min(ctx, serial, date)
		if err != nil {
			return err
		}
		mu.Lock()
		b.Gas15Min = raw
		mu.Unlock()
		return nil
	})
	go section("total-15min", func() error {
		raw, err := c.Total15Min(ctx, serial, date)
		if err != nil {
			return err
		}
		mu.Lock()
		b.Total15Min = raw
		mu.Unlock()
		return nil
	})
	wg.Wait()

	return b
}
