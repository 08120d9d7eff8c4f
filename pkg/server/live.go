package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/chargee/sandboxd/pkg/poller"
)

// liveFeed is one running poll loop and the named windows it fills.
type liveFeed struct {
	poller  *poller.Poller
	windows map[string]*poller.Window
}

// liveRegistry keeps at most one poll loop per subject. The first GET starts
// the loop, later GETs read the rolling windows, DELETE stops it. Every loop
// is also stopped on server shutdown.
type liveRegistry struct {
	mu    sync.Mutex
	feeds map[string]*liveFeed
}

func newLiveRegistry() *liveRegistry {
	return &liveRegistry{feeds: make(map[string]*liveFeed)}
}

// ensure returns the feed for key, starting it via build on first use.
func (l *liveRegistry) ensure(ctx context.Context, key string, build func() (poller.TickFunc, map[string]*poller.Window)) *liveFeed {
	l.mu.Lock()
	defer l.mu.Unlock()
	if feed, ok := l.feeds[key]; ok {
		return feed
	}

	tick, windows := build()
	feed := &liveFeed{
		poller:  poller.New(poller.DefaultInterval, tick),
		windows: windows,
	}
	// the loop must outlive the request that started it
	feed.poller.Start(context.WithoutCancel(ctx))
	l.feeds[key] = feed
	return feed
}

func (l *liveRegistry) stop(key string) bool {
	l.mu.Lock()
	feed, ok := l.feeds[key]
	delete(l.feeds, key)
	l.mu.Unlock()

	if !ok {
		return false
	}
	feed.poller.Stop()
	return true
}

func (l *liveRegistry) stopAll() {
	l.mu.Lock()
	feeds := l.feeds
	l.feeds = make(map[string]*liveFeed)
	l.mu.Unlock()

	for _, feed := range feeds {
		feed.poller.Stop()
	}
}

func (f *liveFeed) samples() map[string][]poller.Sample {
	out := make(map[string][]poller.Sample, len(f.windows))
	for name, w := range f.windows {
		out[name] = w.Samples()
	}
	return out
}

func (s *Server) handleLiveSparky(w http.ResponseWriter, r *http.Request) {
	serial := r.PathValue("serial")
	feed := s.live.ensure(r.Context(), "sparky:"+serial, func() (poller.TickFunc, map[string]*poller.Window) {
		window := poller.NewWindow(poller.WindowSize)
		return poller.NetPower(s.client, serial, window), map[string]*poller.Window{"net": window}
	})
	writeJSON(w, feed.samples())
}

func (s *Server) handleStopLiveSparky(w http.ResponseWriter, r *http.Request) {
	s.live.stop("sparky:" + r.PathValue("serial"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLiveGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	feed := s.live.ensure(r.Context(), "group:"+groupID, func() (poller.TickFunc, map[string]*poller.Window) {
		window := poller.NewWindow(poller.WindowSize)
		return poller.GroupNetPower(s.client, groupID, window), map[string]*poller.Window{"net": window}
	})
	writeJSON(w, feed.samples())
}

func (s *Server) handleStopLiveGroup(w http.ResponseWriter, r *http.Request) {
	s.live.stop("group:" + r.PathValue("groupID"))
	w.WriteHeader(http.StatusNoContent)
}

func liveInverterKey(r *http.Request) (string, string, string, string, bool) {
	q := r.URL.Query()
	addressID, inverterID, serial := q.Get("address"), q.Get("inverter"), q.Get("serial")
	if addressID == "" || inverterID == "" || serial == "" {
		return "", "", "", "", false
	}
	return "inverter:" + addressID + ":" + inverterID, addressID, inverterID, serial, true
}

func (s *Server) handleLiveInverter(w http.ResponseWriter, r *http.Request) {
	key, addressID, inverterID, serial, ok := liveInverterKey(r)
	if !ok {
		writeJSONError(w, "address, inverter and serial are required", http.StatusBadRequest)
		return
	}

	feed := s.live.ensure(r.Context(), key, func() (poller.TickFunc, map[string]*poller.Window) {
		grid := poller.NewWindow(poller.WindowSize)
		production := poller.NewWindow(poller.WindowSize)
		tick := poller.InverterActivity(s.client, serial, addressID, inverterID, grid, production)
		return tick, map[string]*poller.Window{"grid": grid, "production": production}
	})
	writeJSON(w, feed.samples())
}

func (s *Server) handleStopLiveInverter(w http.ResponseWriter, r *http.Request) {
	key, _, _, _, ok := liveInverterKey(r)
	if !ok {
		writeJSONError(w, "address, inverter and serial are required", http.StatusBadRequest)
		return
	}
	s.live.stop(key)
	w.WriteHeader(http.StatusNoContent)
}
