package browse

import (
	"context"
	"testing"
	"time"

	"github.com/chargee/sandboxd/pkg/ampere/amperemock"
	"github.com/chargee/sandboxd/pkg/storage"
	"github.com/chargee/sandboxd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pageOf(uuids ...string) types.AddressPage {
	p := types.AddressPage{Total: len(uuids)}
	for _, u := range uuids {
		p.Addresses = append(p.Addresses, types.Address{UUID: u})
	}
	return p
}

func TestFetchCacheTTL(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start

	db := storage.NewMemory()
	db.Now = func() time.Time { return now }

	mc := &amperemock.MockClient{}
	mc.On("ListAddresses", mock.Anything, "g-1", 0, 25).Return(pageOf("a-1", "a-2"), nil)

	f := NewFetcher(mc, db)
	f.now = func() time.Time { return now }

	got, fromCache, err := f.Fetch(ctx, "g-1", 1, 25, true)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, got.Addresses, 2)
	mc.AssertNumberOfCalls(t, "ListAddresses", 1)

	// half an hour later the cache entry is still fresh
	now = start.Add(30 * time.Minute)
	got, fromCache, err = f.Fetch(ctx, "g-1", 1, 25, true)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Len(t, got.Addresses, 2)
	mc.AssertNumberOfCalls(t, "ListAddresses", 1)

	// past the TTL the entry is bypassed and refetched
	now = start.Add(61 * time.Minute)
	_, fromCache, err = f.Fetch(ctx, "g-1", 1, 25, true)
	require.NoError(t, err)
	assert.False(t, fromCache)
	mc.AssertNumberOfCalls(t, "ListAddresses", 2)

	// useCache=false ignores even a fresh entry
	_, fromCache, err = f.Fetch(ctx, "g-1", 1, 25, false)
	require.NoError(t, err)
	assert.False(t, fromCache)
	mc.AssertNumberOfCalls(t, "ListAddresses", 3)
}

func TestFetchOnlyFirstPageCached(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()

	mc := &amperemock.MockClient{}
	mc.On("ListAddresses", mock.Anything, "g-1", 25, 25).Return(pageOf("a-26"), nil)

	f := NewFetcher(mc, db)
	_, fromCache, err := f.Fetch(ctx, "g-1", 2, 25, true)
	require.NoError(t, err)
	assert.False(t, fromCache)

	_, _, err = storage.GetAddressPage(ctx, db, "g-1", 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// a second fetch of page 2 hits the network again
	_, _, err = f.Fetch(ctx, "g-1", 2, 25, true)
	require.NoError(t, err)
	mc.AssertNumberOfCalls(t, "ListAddresses", 2)
}

func TestPagerNavGuards(t *testing.T) {
	ctx := context.Background()

	mc := &amperemock.MockClient{}
	mc.On("ListAddresses", mock.Anything, "g-1", 0, 100).
		Return(types.AddressPage{Addresses: []types.Address{{UUID: "a-1"}}, Total: 150}, nil)
	mc.On("ListAddresses", mock.Anything, "g-1", 100, 100).
		Return(types.AddressPage{Addresses: []types.Address{{UUID: "a-101"}}, Total: 150}, nil)

	p := NewPager(NewFetcher(mc, storage.NewMemory()), "g-1", 100)

	_, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page())

	// already on the first page
	_, moved, err := p.Previous(ctx)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, p.Page())

	got, moved, err := p.Next(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 2, p.Page())
	assert.Equal(t, "a-101", got.Addresses[0].UUID)

	// 150 addresses at 100 per page means page 2 is the last
	_, moved, err = p.Next(ctx)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 2, p.Page())

	_, moved, err = p.Previous(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, p.Page())
}

func TestSearchDebounce(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()

	// a fresh cached page 1 that the search refetch must not serve
	require.NoError(t, storage.PutAddressPage(ctx, db, "g-1", 1, pageOf("stale")))

	mc := &amperemock.MockClient{}
	mc.On("ListAddresses", mock.Anything, "g-1", 0, 100).Return(pageOf("fresh"), nil)

	p := NewPager(NewFetcher(mc, db), "g-1", 100)
	defer p.Stop()

	done := make(chan types.AddressPage, 3)
	callback := func(fetched types.AddressPage, err error) {
		assert.NoError(t, err)
		done <- fetched
	}

	// rapid keystrokes; only the last survives the debounce
	p.Search(ctx, "s", callback)
	p.Search(ctx, "sn", callback)
	p.Search(ctx, "sn-1", callback)

	select {
	case fetched := <-done:
		assert.Equal(t, "fresh", fetched.Addresses[0].UUID)
	case <-time.After(SearchDebounce + 2*time.Second):
		t.Fatal("debounced search never fired")
	}

	// give any extra timers a chance to misfire
	time.Sleep(100 * time.Millisecond)
	mc.AssertNumberOfCalls(t, "ListAddresses", 1)
	assert.Empty(t, done)
}

func TestFilter(t *testing.T) {
	mc := &amperemock.MockClient{}
	mc.On("ListAddresses", mock.Anything, "g-1", 0, 100).Return(types.AddressPage{
		Addresses: []types.Address{
			{UUID: "addr-1", Sparky: &types.Sparky{SerialNumber: "SN-ALPHA", BoxCode: "BOX-9"}},
			{UUID: "addr-2", Sparky: &types.Sparky{SerialNumber: "SN-BETA"}},
			{UUID: "addr-3"},
		},
		Total: 3,
	}, nil)

	p := NewPager(NewFetcher(mc, storage.NewMemory()), "g-1", 100)
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Len(t, p.Filter(""), 3)
	assert.Len(t, p.Filter("  "), 3)

	bySerial := p.Filter("sn-alpha")
	require.Len(t, bySerial, 1)
	assert.Equal(t, "addr-1", bySerial[0].UUID)

	byBox := p.Filter("box-9")
	require.Len(t, byBox, 1)
	assert.Equal(t, "addr-1", byBox[0].UUID)

	byUUID := p.Filter("ADDR-3")
	require.Len(t, byUUID, 1)
	assert.Equal(t, "addr-3", byUUID[0].UUID)

	assert.Len(t, p.Filter("sn-"), 2)
	assert.Empty(t, p.Filter("nothing"))
}
