package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
)

// fakeAPI is an in-process wishlist with optional failures and a gate that
// holds Check calls until released.
type fakeAPI struct {
	mu        sync.Mutex
	products  []domain.Product
	members   map[string]int
	failAdd   error
	failRem   error
	failCheck error
	failLoad  error
	checkGate chan struct{}
	checks    int
}

func newFakeAPI(ids ...string) *fakeAPI {
	f := &fakeAPI{members: make(map[string]int)}
	for _, id := range ids {
		f.products = append(f.products, domain.Product{SelectedProduct: id, Name: id})
	}
	return f
}

func (f *fakeAPI) Products(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeAPI) Wishlist(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	out := []domain.Product{}
	for _, p := range f.products {
		if f.members[p.ID()] > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAPI) Add(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd != nil {
		return "", f.failAdd
	}
	f.members[id]++
	return "entry-" + id, nil
}

func (f *fakeAPI) Check(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	gate := f.checkGate
	f.checks++
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCheck != nil {
		return false, f.failCheck
	}
	return f.members[id] > 0, nil
}

func (f *fakeAPI) Remove(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRem != nil {
		return 0, f.failRem
	}
	n := f.members[id]
	delete(f.members, id)
	return n, nil
}

func product(id string) domain.Product {
	return domain.Product{SelectedProduct: id, Name: id}
}

func TestCard_MountChecksMembership(t *testing.T) {
	api := newFakeAPI("A")
	api.members["A"] = 1

	c := NewCard(api, product("A"))
	assert.False(t, c.IsFavorited())
	require.NoError(t, c.Mount(context.Background()))
	assert.True(t, c.IsFavorited())
	assert.Equal(t, IconFavorite, c.Icon())
}

func TestCard_WishlistedSkipsCheck(t *testing.T) {
	api := newFakeAPI("A")

	c := NewWishlistedCard(api, product("A"))
	require.NoError(t, c.Mount(context.Background()))
	assert.True(t, c.IsFavorited())
	assert.Equal(t, IconRemove, c.Icon())
	assert.Zero(t, api.checks)
}

func TestCard_ToggleTwiceRestoresBorderIcon(t *testing.T) {
	api := newFakeAPI("A")
	c := NewCard(api, product("A"))
	require.NoError(t, c.Mount(context.Background()))
	assert.Equal(t, IconFavoriteBorder, c.Icon())

	on, err := c.Toggle(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, IconFavorite, c.Icon())
	assert.Equal(t, 1, api.members["A"])

	on, err = c.Toggle(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, IconFavoriteBorder, c.Icon())
	assert.Zero(t, api.members["A"])
}

func TestCard_FailedToggleKeepsState(t *testing.T) {
	api := newFakeAPI("A")
	api.failAdd = errors.New("500")
	c := NewCard(api, product("A"))
	require.NoError(t, c.Mount(context.Background()))

	on, err := c.Toggle(context.Background())
	require.Error(t, err)
	assert.False(t, on)
	assert.False(t, c.IsFavorited())

	api.failAdd = nil
	api.members["A"] = 1
	require.NoError(t, c.Refresh(context.Background()))
	api.failRem = errors.New("500")

	on, err = c.Toggle(context.Background())
	require.Error(t, err)
	assert.True(t, on)
	assert.True(t, c.IsFavorited())
}

func TestCard_WishlistedIconStaysRemove(t *testing.T) {
	api := newFakeAPI("A")
	api.members["A"] = 1
	c := NewWishlistedCard(api, product("A"))

	on, err := c.Toggle(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, IconRemove, c.Icon())
}

func TestCard_CheckFailureKeepsState(t *testing.T) {
	api := newFakeAPI("A")
	api.failCheck = errors.New("boom")

	c := NewCard(api, product("A"))
	err := c.Mount(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStale)
	assert.False(t, c.IsFavorited())
}

func TestCard_CheckAfterUnmountIsDiscarded(t *testing.T) {
	api := newFakeAPI("A")
	api.members["A"] = 1
	api.checkGate = make(chan struct{})

	c := NewCard(api, product("A"))
	done := make(chan error, 1)
	go func() { done <- c.Mount(context.Background()) }()

	waitForChecks(t, api, 1)
	c.Unmount()
	close(api.checkGate)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.False(t, c.IsFavorited())
}

func TestCard_RefreshBeforeMountIsStale(t *testing.T) {
	api := newFakeAPI("A")
	c := NewCard(api, product("A"))

	assert.ErrorIs(t, c.Refresh(context.Background()), ErrStale)
	assert.Zero(t, api.checks)
}

func TestCard_CheckSupersededByToggle(t *testing.T) {
	api := newFakeAPI("A")
	gate := make(chan struct{})
	api.checkGate = gate

	c := NewCard(api, product("A"))
	done := make(chan error, 1)
	go func() { done <- c.Mount(context.Background()) }()
	waitForChecks(t, api, 1)

	on, err := c.Toggle(context.Background())
	require.NoError(t, err)
	require.True(t, on)

	// Make the pending check report a stale "not in wishlist".
	api.mu.Lock()
	api.members["A"] = 0
	api.mu.Unlock()
	close(gate)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.True(t, c.IsFavorited())
}

func waitForChecks(t *testing.T, api *fakeAPI, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.checks >= n
	}, time.Second, time.Millisecond)
}

func TestIcon_String(t *testing.T) {
	assert.Equal(t, "favorite_border", IconFavoriteBorder.String())
	assert.Equal(t, "favorite", IconFavorite.String())
	assert.Equal(t, "remove", IconRemove.String())
}
