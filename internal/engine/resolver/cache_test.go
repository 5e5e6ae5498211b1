package resolver

import (
	"context"
	"sync"
	"testing"

	"crashmap/internal/shared/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceMapCache_SingleLoadUnderConcurrency(t *testing.T) {
	fs := newMemFS(map[string]string{"/app/source/main.brs.map": mainSourceMap})
	cache := NewSourceMapCache(fs)

	const callers = 32
	results := make([]*SourceMap, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			sm, err := cache.Get(context.Background(), "/app/source/main.brs.map")
			if err == nil {
				results[i] = sm
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, fs.readCount("/app/source/main.brs.map"))
	assert.Equal(t, 1, cache.Loads())
	for i := range results {
		require.NotNil(t, results[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestSourceMapCache_KeysAreIndependent(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/a.brs.map": mainSourceMap,
		"/b.brs.map": mainSourceMap,
	})
	cache := NewSourceMapCache(fs)

	a, err := cache.Get(context.Background(), "/a.brs.map")
	require.NoError(t, err)
	b, err := cache.Get(context.Background(), "/b.brs.map")
	require.NoError(t, err)
	again, err := cache.Get(context.Background(), "/a.brs.map")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Same(t, a, again)
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 2, cache.Loads())
}

func TestSourceMapCache_MissingFileIsMemoizedFailure(t *testing.T) {
	fs := newMemFS(nil)
	cache := NewSourceMapCache(fs)

	_, err := cache.Get(context.Background(), "/missing.map")
	require.Error(t, err)
	_, err = cache.Get(context.Background(), "/missing.map")
	require.Error(t, err)
	assert.Equal(t, 1, fs.readCount("/missing.map"))
}

func TestSourceMapCache_MissingCountedOncePerPath(t *testing.T) {
	cache := NewSourceMapCache(newMemFS(nil))
	missing := observability.SourceMapLoadsTotal.WithLabelValues(observability.SourceMapMissing)
	before := testutil.ToFloat64(missing)

	cache.MarkMissing("/app/source/main.brs.map")
	cache.MarkMissing("/app/source/main.brs.map")
	cache.MarkMissing("/app/source/util.brs.map")

	assert.Equal(t, before+2, testutil.ToFloat64(missing))
}
