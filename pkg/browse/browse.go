// Package browse drives offset/limit pagination over a group's addresses: a
// short-lived cache on the first page, debounced search refetches and
// next/previous guards.
package browse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chargee/sandboxd/pkg/ampere"
	"github.com/chargee/sandboxd/pkg/log"
	"github.com/chargee/sandboxd/pkg/storage"
	"github.com/chargee/sandboxd/pkg/types"
)

const (
	// CacheTTL is how long a cached first page stays fresh.
	CacheTTL = time.Hour

	// SearchDebounce is how long search input must settle before the one
	// refetch is issued.
	SearchDebounce = 500 * time.Millisecond
)

// Fetcher performs address-page fetches with a TTL cache on the first page.
type Fetcher struct {
	client ampere.Client
	db     storage.Database

	// now is the clock used for freshness checks, overridable in tests.
	now func() time.Time
}

func NewFetcher(client ampere.Client, db storage.Database) *Fetcher {
	return &Fetcher{client: client, db: db, now: time.Now}
}

// Fetch returns one page (1-based) of a group's addresses. When useCache is
// set and page is 1, a cache entry younger than CacheTTL is served without a
// network call. A fresh fetch of page 1 always replaces the cache entry;
// later pages are never cached. The second return reports whether the page
// came from cache.
func (f *Fetcher) Fetch(ctx context.Context, groupUUID string, page, pageSize int, useCache bool) (types.AddressPage, bool, error) {
	if page < 1 {
		page = 1
	}

	if useCache && page == 1 {
		cached, storedAt, err := storage.GetAddressPage(ctx, f.db, groupUUID, page)
		if err == nil && f.now().Sub(storedAt) < CacheTTL {
			return cached, true, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Ctx(ctx).WarnContext(ctx, "failed to read address page cache", slog.String("group", groupUUID), slog.Any("error", err))
		}
	}

	fetched, err := f.client.ListAddresses(ctx, groupUUID, (page-1)*pageSize, pageSize)
	if err != nil {
		return types.AddressPage{}, false, err
	}

	if page == 1 {
		if err := storage.PutAddressPage(ctx, f.db, groupUUID, page, fetched); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to cache address page", slog.String("group", groupUUID), slog.Any("error", err))
		}
	}
	return fetched, false, nil
}

// Pager tracks one group's browsing position: current page, nav guards and
// the debounced search refetch.
type Pager struct {
	fetcher   *Fetcher
	groupUUID string
	pageSize  int

	mu       sync.Mutex
	page     int
	current  types.AddressPage
	inFlight bool

	searchMu    sync.Mutex
	searchTimer *time.Timer
}

func NewPager(fetcher *Fetcher, groupUUID string, pageSize int) *Pager {
	return &Pager{
		fetcher:   fetcher,
		groupUUID: groupUUID,
		pageSize:  pageSize,
		page:      1,
	}
}

// Page returns the current 1-based page number.
func (p *Pager) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Current returns the most recently fetched page.
func (p *Pager) Current() types.AddressPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Refresh fetches the current page, serving page 1 from cache when fresh.
func (p *Pager) Refresh(ctx context.Context) (types.AddressPage, error) {
	p.mu.Lock()
	page := p.page
	p.mu.Unlock()
	return p.fetch(ctx, page, true)
}

func (p *Pager) fetch(ctx context.Context, page int, useCache bool) (types.AddressPage, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return p.current, nil
	}
	p.inFlight = true
	p.mu.Unlock()

	fetched, _, err := p.fetcher.Fetch(ctx, p.groupUUID, page, p.pageSize, useCache)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	if err != nil {
		return types.AddressPage{}, err
	}
	p.page = page
	p.current = fetched
	return fetched, nil
}

// Next advances one page unless already at the last page or a fetch is in
// flight. The second return reports whether navigation happened.
func (p *Pager) Next(ctx context.Context) (types.AddressPage, bool, error) {
	p.mu.Lock()
	if p.inFlight || p.page >= p.lastPage() {
		current := p.current
		p.mu.Unlock()
		return current, false, nil
	}
	page := p.page + 1
	p.mu.Unlock()

	fetched, err := p.fetch(ctx, page, true)
	return fetched, err == nil, err
}

// Previous goes back one page unless already at the first page or a fetch is
// in flight.
func (p *Pager) Previous(ctx context.Context) (types.AddressPage, bool, error) {
	p.mu.Lock()
	if p.inFlight || p.page <= 1 {
		current := p.current
		p.mu.Unlock()
		return current, false, nil
	}
	page := p.page - 1
	p.mu.Unlock()

	fetched, err := p.fetch(ctx, page, true)
	return fetched, err == nil, err
}

// lastPage must be called with p.mu held.
func (p *Pager) lastPage() int {
	if p.current.Total <= 0 || p.pageSize <= 0 {
		return 1
	}
	last := (p.current.Total + p.pageSize - 1) / p.pageSize
	if last < 1 {
		last = 1
	}
	return last
}

// Search restarts the debounce timer; once input settles for SearchDebounce,
// exactly one page-1 refetch is issued, bypassing the cache. The done
// callback receives the refetch outcome and may be nil.
//
// Note the asymmetry with Filter: the refetch reloads page 1 while visible
// matching stays client-side, so searching never spans later pages. Both
// behaviors are kept as-is; pick one per screen.
func (p *Pager) Search(ctx context.Context, text string, done func(types.AddressPage, error)) {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	if p.searchTimer != nil {
		p.searchTimer.Stop()
	}
	p.searchTimer = time.AfterFunc(SearchDebounce, func() {
		fetched, err := p.fetch(ctx, 1, false)
		if done != nil {
			done(fetched, err)
		}
	})
}

// Stop cancels any pending debounced search. Safe to call repeatedly.
func (p *Pager) Stop() {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()
	if p.searchTimer != nil {
		p.searchTimer.Stop()
		p.searchTimer = nil
	}
}

// Filter matches the in-memory page against text: address UUID, gateway
// serial and box code, case-insensitive substring. Empty text matches all.
func (p *Pager) Filter(text string) []types.Address {
	p.mu.Lock()
	addresses := p.current.Addresses
	p.mu.Unlock()

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return addresses
	}

	var matched []types.Address
	for _, addr := range addresses {
		if strings.Contains(strings.ToLower(addr.UUID), text) {
			matched = append(matched, addr)
			continue
		}
		if addr.Sparky != nil &&
			(strings.Contains(strings.ToLower(addr.Sparky.SerialNumber), text) ||
				strings.Contains(strings.ToLower(addr.Sparky.BoxCode), text)) {
			matched = append(matched, addr)
		}
	}
	return matched
}
