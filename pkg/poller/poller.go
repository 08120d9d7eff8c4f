// Package poller runs small periodic sampling loops and keeps their readings
// in fixed-size rolling windows.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chargee/sandboxd/pkg/ampere"
	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/storage"
)

const (
	// DefaultInterval is the live-reading poll cadence.
	DefaultInterval = time.Second

	// WindowSize is how many samples a rolling window retains.
	WindowSize = 60
)

// TickFunc runs one poll pass. Failures are the tick's own concern; the loop
// never stops on an error.
type TickFunc func(ctx context.Context)

// Poller runs a TickFunc on a fixed interval until stopped.
type Poller struct {
	interval time.Duration
	tick     TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, tick TickFunc) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{interval: interval, tick: tick}
}

// Start begins polling, running the first tick immediately. Calling Start on
// a running poller is a no-op. The loop also stops when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}(p.done)
}

// Stop halts the loop and waits for any in-progress tick to return. Safe to
// call repeatedly and on a poller that never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Sample is one timestamped reading, watts.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Window is a fixed-capacity rolling buffer of samples. Appending past
// capacity drops the oldest sample.
type Window struct {
	mu      sync.Mutex
	cap     int
	samples []Sample
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = WindowSize
	}
	return &Window{cap: capacity}
}

func (w *Window) Append(s Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, s)
	if len(w.samples) > w.cap {
		w.samples = w.samples[len(w.samples)-w.cap:]
	}
}

// Samples returns a copy of the window, oldest first.
func (w *Window) Samples() []Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}

// Latest returns the most recent sample, if any.
func (w *Window) Latest() (Sample, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}

// NetPower samples the gateway's live P1 reading and appends net grid power
// in watts, delivered minus returned. A failed read appends nothing.
func NetPower(client ampere.Client, serial string, w *Window) TickFunc {
	return func(ctx context.Context) {
		reading, err := client.LatestP1(ctx, serial)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to poll p1 reading", slog.String("serial", serial), slog.Any("error", err))
			return
		}
		net := (reading.PowerDelivered.Float64() - reading.PowerReturned.Float64()) * 1000
		w.Append(Sample{Time: time.Now(), Value: net})
	}
}

// InverterActivity samples the gateway's P1 reading and the inverter's
// production rate in one pass. The two reads run in parallel and fail
// independently; whichever succeeds appends to its window.
func InverterActivity(client ampere.Client, serial, addressUUID, inverterID string, grid, production *Window) TickFunc {
	gridTick := NetPower(client, serial, grid)
	return func(ctx context.Context) {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			gridTick(ctx)
		}()
		go func() {
			defer wg.Done()
			inverters, err := client.ListSolarInverters(ctx, addressUUID)
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to poll inverter state", slog.String("address", addressUUID), slog.Any("error", err))
				return
			}
			for _, inv := range inverters {
				if inv.Identifier != inverterID || inv.LastProductionState == nil {
					continue
				}
				production.Append(Sample{Time: time.Now(), Value: inv.LastProductionState.ProductionRate.Float64()})
				return
			}
		}()
		wg.Wait()
	}
}

// GroupNetPower samples a group's aggregate energy reading and appends net
// grid power in watts, delivery minus return.
func GroupNetPower(client ampere.Client, groupUUID string, w *Window) TickFunc {
	return func(ctx context.Context) {
		energy, err := client.GroupEnergyLatest(ctx, groupUUID)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to poll group energy", slog.String("group", groupUUID), slog.Any("error", err))
			return
		}
		w.Append(Sample{Time: time.Now(), Value: energy.Delivery.Float64() - energy.Return.Float64()})
	}
}

// PurgeCache drops cache entries older than retention. Meant to run on a
// slow interval from main.
func PurgeCache(db storage.Database, retention time.Duration) TickFunc {
	return func(ctx context.Context) {
		deleted, err := db.Purge(ctx, time.Now().Add(-retention))
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to purge cache", slog.Any("error", err))
			return
		}
		if deleted > 0 {
			log.Ctx(ctx).InfoContext(ctx, "purged stale cache entries", slog.Int("deleted", deleted))
		}
	}
}
