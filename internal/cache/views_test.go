package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewCache_Layers(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	views := NewViewCache(time.Minute)
	calls := 0
	serve := func() (payload, string) {
		var got payload
		result, err := views.Serve(ctx, "/", &got, func() error {
			calls++
			got = payload{ID: uint(calls), Text: "feed"}
			return nil
		})
		require.NoError(t, err)
		return got, result
	}

	got, result := serve()
	assert.Equal(t, ViewMiss, result)
	assert.Equal(t, uint(1), got.ID)
	assert.True(t, mr.Exists("view:/"))

	got, result = serve()
	assert.Equal(t, ViewLocal, result)
	assert.Equal(t, uint(1), got.ID)

	views.Evict("/")
	got, result = serve()
	assert.Equal(t, ViewHit, result, "redis still holds the view")
	assert.Equal(t, uint(1), got.ID)
	assert.Equal(t, 1, calls)
}

func TestViewCache_LocalEntriesExpire(t *testing.T) {
	useMiniredis(t)
	views := NewViewCache(time.Minute)
	now := time.Now()
	views.now = func() time.Time { return now }

	var got payload
	fetch := func() error { got = payload{ID: 1}; return nil }
	_, err := views.Serve(context.Background(), "/", &got, fetch)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	result, err := views.Serve(context.Background(), "/", &got, fetch)
	require.NoError(t, err)
	assert.NotEqual(t, ViewLocal, result)
}

func TestViewCache_RevalidatorEvictsBothLayers(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	views := NewViewCache(time.Minute)
	text := "before"

	serve := func() (payload, string) {
		var got payload
		result, err := views.Serve(ctx, "/thread/1", &got, func() error {
			got = payload{ID: 1, Text: text}
			return nil
		})
		require.NoError(t, err)
		return got, result
	}
	serve()

	text = "after"
	NewViewRevalidator(nil, views).Revalidate(ctx, "/thread/1")
	assert.Zero(t, views.Len())

	got, result := serve()
	assert.Equal(t, ViewMiss, result)
	assert.Equal(t, "after", got.Text)
	assert.True(t, mr.Exists("view:/thread/1"))
}

func TestViewCache_ConcurrentMissesFetchOnce(t *testing.T) {
	useMiniredis(t)
	views := NewViewCache(time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32

	const readers = 8
	results := make([]payload, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := views.Serve(context.Background(), "/", &results[i], func() error {
				calls.Add(1)
				<-release
				results[i] = payload{ID: 5, Text: "shared"}
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, got := range results {
		assert.Equal(t, payload{ID: 5, Text: "shared"}, got)
	}
}

func TestViewCache_EvictDuringFillIsNotKeptLocally(t *testing.T) {
	useMiniredis(t)
	views := NewViewCache(time.Minute)

	var got payload
	_, err := views.Serve(context.Background(), "/", &got, func() error {
		got = payload{Text: "stale"}
		views.Evict("/")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", got.Text)
	assert.Zero(t, views.Len())
}

func TestViewCache_NilEvict(t *testing.T) {
	var views *ViewCache
	assert.NotPanics(t, func() { views.Evict("/") })
}
