package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsync/skillsync/internal/cache"
	"github.com/skillsync/skillsync/internal/jobsearch"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeProvider struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	err    error
	ids    []string
	ctxErr error
	got    jobsearch.SearchParams
}

func (p *fakeProvider) Search(ctx context.Context, params jobsearch.SearchParams) (*jobsearch.Batch, error) {
	n := p.calls.Add(1)
	if p.started != nil && n == 1 {
		close(p.started)
	}
	if p.release != nil {
		<-p.release
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctxErr = ctx.Err()
	p.got = params
	if p.err != nil {
		return nil, p.err
	}

	batch := &jobsearch.Batch{Params: params, FetchedAt: time.Now()}
	for i, id := range p.ids {
		batch.Items = append(batch.Items, &jobsearch.Listing{ID: id, Position: i})
	}
	return batch, nil
}

func (p *fakeProvider) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func newTestOrchestrator(p Provider) (*Orchestrator, *clock) {
	clk := &clock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryStore(4).WithClock(clk.Now)
	c := cache.New(store, cache.TTLs{}, nil)
	return New(c, p, Options{FetchTimeout: 5 * time.Second}, nil), clk
}

var params = jobsearch.SearchParams{Keywords: []string{"python", "sql"}, Location: "Berlin", Page: 1}

func TestSearchCachesLiveFetch(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{ids: []string{"a", "b"}}
	o, _ := newTestOrchestrator(p)
	ctx := context.Background()

	first, err := o.Search(ctx, params)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, jobsearch.TierLive, first.Tier)
	assert.Equal(t, params.CacheKey(), first.Key)

	reordered := jobsearch.SearchParams{Keywords: []string{" SQL ", "Python"}, Location: "berlin"}
	second, err := o.Search(ctx, reordered)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, jobsearch.TierLive, second.Tier)
	assert.Equal(t, []string{"a", "b"}, second.IDs())

	assert.Equal(t, int32(1), p.calls.Load())
}

func TestSearchSendsCallerPhrasing(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{ids: []string{"a"}}
	o, _ := newTestOrchestrator(p)

	batch, err := o.Search(context.Background(), jobsearch.SearchParams{Keywords: []string{" machine  learning", "Go"}})
	require.NoError(t, err)

	p.mu.Lock()
	got := p.got
	p.mu.Unlock()
	assert.Equal(t, []string{"machine learning", "Go"}, got.Keywords)
	assert.Equal(t, "machine learning Go", got.Query())
	assert.Equal(t, jobsearch.DefaultLocation, got.Location)
	assert.Equal(t, 1, got.Page)

	key := jobsearch.SearchParams{Keywords: []string{"go", "learning", "machine"}}.CacheKey()
	assert.Equal(t, key, batch.Key)
}

func TestSearchRefetchesAfterPrimaryExpiry(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{ids: []string{"a"}}
	o, clk := newTestOrchestrator(p)
	ctx := context.Background()

	_, err := o.Search(ctx, params)
	require.NoError(t, err)

	clk.Advance(61 * time.Minute)

	batch, err := o.Search(ctx, params)
	require.NoError(t, err)
	assert.False(t, batch.FromCache)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestSearchServesFallbackWhenProviderFails(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{ids: []string{"a", "b"}}
	o, clk := newTestOrchestrator(p)
	ctx := context.Background()

	_, err := o.Search(ctx, params)
	require.NoError(t, err)

	clk.Advance(90 * time.Minute)
	p.fail(&jobsearch.ProviderError{Op: "search", StatusCode: 503})

	batch, err := o.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, jobsearch.TierFallback, batch.Tier)
	assert.True(t, batch.FromCache)
	assert.Equal(t, []string{"a", "b"}, batch.IDs())

	clk.Advance(time.Hour)

	_, err = o.Search(ctx, params)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))

	var perr *jobsearch.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 503, perr.StatusCode)
}

func TestSearchUnavailableWithoutFallback(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	p.fail(errors.New("dial tcp: no route to host"))
	o, _ := newTestOrchestrator(p)

	batch, err := o.Search(context.Background(), params)
	assert.Nil(t, batch)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
}

func TestSearchCoalescesConcurrentMisses(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		ids:     []string{"a", "b", "c"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o, _ := newTestOrchestrator(p)

	const callers = 25
	var wg sync.WaitGroup
	results := make([]*jobsearch.Batch, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = o.Search(context.Background(), params)
		}(i)
	}

	<-p.started
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{"a", "b", "c"}, results[i].IDs())
	}

	results[0].ExcludeIDs([]string{"a"})
	assert.Equal(t, 3, results[1].Len(), "waiters must not share a batch")
}

func TestSearchCallerCancelDoesNotCancelSharedFetch(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		ids:     []string{"a"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o, _ := newTestOrchestrator(p)

	cancelCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := o.Search(cancelCtx, params)
		firstErr <- err
	}()

	<-p.started

	second := make(chan *jobsearch.Batch, 1)
	go func() {
		batch, err := o.Search(context.Background(), params)
		assert.NoError(t, err)
		second <- batch
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(p.release)
	batch := <-second
	require.NotNil(t, batch)
	assert.Equal(t, []string{"a"}, batch.IDs())

	p.mu.Lock()
	assert.NoError(t, p.ctxErr)
	p.mu.Unlock()
	assert.Equal(t, int32(1), p.calls.Load())

	cached, err := o.Search(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
}

func TestSearchDistinctKeysDoNotCoalesce(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{ids: []string{"a"}}
	o, _ := newTestOrchestrator(p)

	var wg sync.WaitGroup
	for _, loc := range []string{"Berlin", "Paris", "Oslo"} {
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()
			_, err := o.Search(context.Background(), jobsearch.SearchParams{Keywords: []string{"go"}, Location: loc})
			assert.NoError(t, err)
		}(loc)
	}
	wg.Wait()

	assert.Equal(t, int32(3), p.calls.Load())
}

type nilProvider struct{}

func (nilProvider) Search(context.Context, jobsearch.SearchParams) (*jobsearch.Batch, error) {
	return nil, nil
}

func TestSearchNilBatchIsProviderFailure(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(nilProvider{})
	_, err := o.Search(context.Background(), params)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
}
