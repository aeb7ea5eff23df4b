package listcache_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	"github.com/davicafu/listdash/internal/listing/infra/outbound/listcache"
	"github.com/davicafu/listdash/tests/mocks"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func filesDesc(t *testing.T, page int) domain.RequestDescriptor {
	t.Helper()
	spec, err := domain.LookupTable(domain.TableFiles)
	require.NoError(t, err)
	return domain.Serialize(domain.ListQuery{Page: page, PageSize: 25}, spec)
}

// versioned responde con un fichero cuyo S3Key indica el número de llamada.
func versioned(n int, _ domain.RequestDescriptor) (*domain.Page[domain.FileInfo], error) {
	return &domain.Page[domain.FileInfo]{
		Items: []domain.FileInfo{{ID: n, S3Key: fmt.Sprintf("v%d", n)}},
		Total: 1, Page: 1, PageSize: 25,
	}, nil
}

func firstKey(e listcache.Entry[domain.FileInfo]) string {
	if e.Data == nil || len(e.Data.Items) == 0 {
		return ""
	}
	return e.Data.Items[0].S3Key
}

func newFilesCache(opts ...listcache.Option) *listcache.Cache[domain.FileInfo] {
	opts = append([]listcache.Option{listcache.WithLogger(zap.NewNop())}, opts...)
	return listcache.New[domain.FileInfo]("files", opts...)
}

func TestResolve_DeduplicatesConcurrentCallers(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	f.Hold(1)
	c := newFilesCache()
	defer c.Close()
	d := filesDesc(t, 1)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := c.Resolve(context.Background(), []string{domain.TagDashboard}, d, f.Fetch)
			assert.NoError(t, err)
			assert.Equal(t, listcache.StatusPending, e.Status)
		}()
	}
	wg.Wait()
	<-f.Started()
	assert.Equal(t, 1, f.Calls())

	f.Release(1)
	e, err := c.Wait(context.Background(), d.QueryKey())
	require.NoError(t, err)
	assert.Equal(t, listcache.StatusReady, e.Status)
	assert.Equal(t, "v1", firstKey(e))
	assert.Equal(t, 1, f.Calls())
}

func TestResolve_HitDoesNotFetch(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	c := newFilesCache()
	defer c.Close()
	d := filesDesc(t, 1)

	_, err := c.ResolveWait(context.Background(), []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)
	e, err := c.Resolve(context.Background(), []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)

	assert.Equal(t, listcache.StatusReady, e.Status)
	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, []string{domain.TagDashboard}, e.Tags)
}

func TestInvalidate_ServesPreviousDataWhileRevalidating(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	c := newFilesCache()
	defer c.Close()
	d := filesDesc(t, 1)
	ctx := context.Background()

	_, err := c.ResolveWait(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)

	f.Hold(2)
	assert.Equal(t, 1, c.Invalidate(domain.TagDashboard))
	assert.Equal(t, 0, c.Invalidate(domain.TagUsers), "tag ajeno no afecta")

	stale, ok := c.Get(d.QueryKey())
	require.True(t, ok)
	assert.True(t, stale.Stale)
	assert.Equal(t, "v1", firstKey(stale))

	e, err := c.Resolve(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)
	assert.True(t, e.Refreshing())
	assert.Equal(t, "v1", firstKey(e), "sigue mostrando la página anterior")

	<-f.Started()
	<-f.Started()
	cur, _ := c.Get(d.QueryKey())
	assert.Equal(t, "v1", firstKey(cur))

	f.Release(2)
	e, err = c.Wait(ctx, d.QueryKey())
	require.NoError(t, err)
	assert.Equal(t, listcache.StatusReady, e.Status)
	assert.Equal(t, "v2", firstKey(e))
	assert.False(t, e.Stale)
}

func TestFetchError_RetainsLastGoodData(t *testing.T) {
	boom := errors.New("backend caído")
	f := mocks.NewListFetcher(func(n int, d domain.RequestDescriptor) (*domain.Page[domain.FileInfo], error) {
		if n == 2 {
			return nil, boom
		}
		return versioned(n, d)
	})
	c := newFilesCache()
	defer c.Close()
	d := filesDesc(t, 1)
	ctx := context.Background()

	_, err := c.ResolveWait(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)

	_, err = c.Refetch(ctx, d.QueryKey())
	require.NoError(t, err)
	e, err := c.Wait(ctx, d.QueryKey())
	require.NoError(t, err)

	assert.Equal(t, listcache.StatusError, e.Status)
	assert.ErrorIs(t, e.Err, boom)
	assert.Equal(t, "v1", firstKey(e))

	// Sin reintento automático.
	e, err = c.Resolve(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)
	assert.Equal(t, listcache.StatusError, e.Status)
	assert.Equal(t, 2, f.Calls())

	// Un reintento manual se recupera.
	_, err = c.Refetch(ctx, d.QueryKey())
	require.NoError(t, err)
	e, err = c.Wait(ctx, d.QueryKey())
	require.NoError(t, err)
	assert.Equal(t, listcache.StatusReady, e.Status)
	assert.Nil(t, e.Err)
	assert.Equal(t, "v3", firstKey(e))
}

func TestFetchPanic_BecomesError(t *testing.T) {
	f := mocks.NewListFetcher(func(int, domain.RequestDescriptor) (*domain.Page[domain.FileInfo], error) {
		panic("respuesta imposible")
	})
	c := newFilesCache()
	defer c.Close()

	e, err := c.ResolveWait(context.Background(), nil, filesDesc(t, 1), f.Fetch)
	require.NoError(t, err)
	assert.Equal(t, listcache.StatusError, e.Status)
	assert.Nil(t, e.Data)
}

func TestStaleCompletion_IsDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := mocks.NewListFetcher(versioned)
	f.Hold(1)
	c := newFilesCache(listcache.WithMetrics(listcache.NewMetrics(reg)))
	d := filesDesc(t, 1)
	ctx := context.Background()

	_, err := c.Resolve(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)
	<-f.Started()

	// Un segundo fetch supera al primero, que sigue retenido.
	_, err = c.Refetch(ctx, d.QueryKey())
	require.NoError(t, err)
	e, err := c.Wait(ctx, d.QueryKey())
	require.NoError(t, err)
	assert.Equal(t, "v2", firstKey(e))

	f.Release(1)
	c.Close() // espera a que termine el fetch retenido

	e, ok := c.Get(d.QueryKey())
	require.True(t, ok)
	assert.Equal(t, "v2", firstKey(e), "la respuesta antigua no pisa la nueva")

	expected := `
# HELP listdash_cache_stale_completions_total Fetch completions dropped because the entry moved on
# TYPE listdash_cache_stale_completions_total counter
listdash_cache_stale_completions_total{cache="files"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "listdash_cache_stale_completions_total"))
}

func TestInvalidate_DuringInflightFetchRestartsIt(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	f.Hold(1)
	c := newFilesCache()
	defer c.Close()
	d := filesDesc(t, 1)
	ctx := context.Background()

	_, err := c.Resolve(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)
	<-f.Started()

	// La mutación llega con el primer fetch aún en vuelo.
	assert.Equal(t, 1, c.Invalidate(domain.TagDashboard))
	e, err := c.Resolve(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)
	assert.Equal(t, listcache.StatusPending, e.Status)
	assert.False(t, e.Stale)
	assert.Equal(t, 2, f.Calls())

	e, err = c.Wait(ctx, d.QueryKey())
	require.NoError(t, err)
	assert.Equal(t, listcache.StatusReady, e.Status)
	assert.Equal(t, "v2", firstKey(e))
	assert.False(t, e.Stale)

	f.Release(1)
	assert.Never(t, func() bool {
		cur, _ := c.Get(d.QueryKey())
		return firstKey(cur) != "v2" || cur.Stale
	}, 50*time.Millisecond, tick)
	assert.Equal(t, 2, f.Calls())
}

func TestEvict_DropsInflightCompletion(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	f.Hold(1)
	c := newFilesCache()
	d := filesDesc(t, 1)

	_, err := c.Resolve(context.Background(), nil, d, f.Fetch)
	require.NoError(t, err)
	assert.True(t, c.Evict(d.QueryKey()))
	assert.False(t, c.Evict(d.QueryKey()))

	f.Release(1)
	c.Close()
	_, ok := c.Get(d.QueryKey())
	assert.False(t, ok)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	c := newFilesCache(listcache.WithMaxEntries(2))
	defer c.Close()
	ctx := context.Background()

	a, b, third := filesDesc(t, 1), filesDesc(t, 2), filesDesc(t, 3)
	for _, d := range []domain.RequestDescriptor{a, b} {
		_, err := c.ResolveWait(ctx, nil, d, f.Fetch)
		require.NoError(t, err)
	}
	// "a" pasa a ser la más reciente.
	_, err := c.Resolve(ctx, nil, a, f.Fetch)
	require.NoError(t, err)

	_, err = c.ResolveWait(ctx, nil, third, f.Fetch)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(b.QueryKey())
	assert.False(t, ok)
	_, ok = c.Get(a.QueryKey())
	assert.True(t, ok)
}

func TestLRU_KeepsSubscribedEntries(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	c := newFilesCache(listcache.WithMaxEntries(1))
	defer c.Close()
	ctx := context.Background()

	a, b := filesDesc(t, 1), filesDesc(t, 2)
	_, err := c.ResolveWait(ctx, nil, a, f.Fetch)
	require.NoError(t, err)
	_, cancel, err := c.Subscribe(a.QueryKey())
	require.NoError(t, err)
	defer cancel()

	_, err = c.ResolveWait(ctx, nil, b, f.Fetch)
	require.NoError(t, err)

	_, ok := c.Get(a.QueryKey())
	assert.True(t, ok)
}

func TestSubscribe_DeliversLatestSnapshot(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	c := newFilesCache()
	defer c.Close()
	d := filesDesc(t, 1)
	ctx := context.Background()

	_, err := c.ResolveWait(ctx, []string{domain.TagDashboard}, d, f.Fetch)
	require.NoError(t, err)

	ch, cancel, err := c.Subscribe(d.QueryKey())
	require.NoError(t, err)
	first := <-ch
	assert.Equal(t, "v1", firstKey(first))

	_, err = c.Refetch(ctx, d.QueryKey())
	require.NoError(t, err)
	_, err = c.Wait(ctx, d.QueryKey())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		select {
		case e := <-ch:
			return firstKey(e) == "v2" && e.Status == listcache.StatusReady
		default:
			return false
		}
	}, waitFor, tick)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	_, _, err = c.Subscribe("desconocida")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	c := newFilesCache()
	c.Close()
	c.Close()

	_, err := c.Resolve(context.Background(), nil, filesDesc(t, 1), f.Fetch)
	assert.ErrorIs(t, err, listcache.ErrClosed)
	assert.Equal(t, 0, c.Invalidate(domain.TagDashboard))
}

func TestResolve_CanceledContext(t *testing.T) {
	f := mocks.NewListFetcher(versioned)
	c := newFilesCache()
	defer c.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Resolve(ctx, nil, filesDesc(t, 1), f.Fetch)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.Calls())
}
