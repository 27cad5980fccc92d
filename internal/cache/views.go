package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// View cache results, also sent as the X-View-Cache header.
const (
	ViewLocal = "local"
	ViewHit   = "hit"
	ViewMiss  = "miss"
)

// maxLocalViews bounds the in-process layer; past it expired entries are
// swept and, if that is not enough, the layer is dropped.
const maxLocalViews = 10000

type localView struct {
	payload []byte
	expires time.Time
}

type viewFill struct {
	payload []byte
	result  string
}

// ViewCache serves rendered views from an in-process layer in front of the
// shared Redis layer. Every instance keeps its own local layer, so a path
// revalidated anywhere must be evicted on each instance with Evict.
type ViewCache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu    sync.RWMutex
	local map[string]localView
	// epoch changes on every eviction; fills that started before one are not
	// kept locally.
	epoch uint64
}

// NewViewCache returns a view cache whose entries live for ttl in both layers.
func NewViewCache(ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = DefaultViewTTL
	}
	return &ViewCache{
		ttl:   ttl,
		now:   time.Now,
		local: make(map[string]localView),
	}
}

// Serve fills dest with the view at path and reports which layer answered.
// fetch must populate dest; it runs only when neither layer holds the path,
// and concurrent misses on one path share a single fetch.
func (v *ViewCache) Serve(ctx context.Context, path string, dest any, fetch func() error) (string, error) {
	if payload, ok := v.getLocal(path); ok {
		if err := json.Unmarshal(payload, dest); err == nil {
			return ViewLocal, nil
		}
	}

	epoch := v.currentEpoch()
	filled := false
	res, err, _ := v.group.Do(path, func() (any, error) {
		hit, err := Aside(ctx, ViewKey(path), dest, v.ttl, fetch)
		if err != nil {
			return nil, err
		}
		filled = true

		payload, err := json.Marshal(dest)
		if err != nil {
			return nil, err
		}
		v.setLocal(path, payload, epoch)

		result := ViewMiss
		if hit {
			result = ViewHit
		}
		return viewFill{payload: payload, result: result}, nil
	})
	if err != nil {
		return "", err
	}

	fill := res.(viewFill)
	if !filled {
		if err := json.Unmarshal(fill.payload, dest); err != nil {
			return "", err
		}
	}
	return fill.result, nil
}

// Evict drops path from this instance's local layer. Fills already in
// flight for path are not stored.
func (v *ViewCache) Evict(path string) {
	if v == nil {
		return
	}
	v.mu.Lock()
	delete(v.local, path)
	v.epoch++
	v.mu.Unlock()
	v.group.Forget(path)
}

// Len reports how many paths the local layer holds, expired ones included.
func (v *ViewCache) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.local)
}

func (v *ViewCache) currentEpoch() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.epoch
}

func (v *ViewCache) getLocal(path string) ([]byte, bool) {
	v.mu.RLock()
	entry, ok := v.local[path]
	v.mu.RUnlock()
	if !ok || !v.now().Before(entry.expires) {
		return nil, false
	}
	return entry.payload, true
}

func (v *ViewCache) setLocal(path string, payload []byte, epoch uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.epoch != epoch {
		return
	}

	now := v.now()
	if len(v.local) >= maxLocalViews {
		for p, entry := range v.local {
			if !now.Before(entry.expires) {
				delete(v.local, p)
			}
		}
		if len(v.local) >= maxLocalViews {
			v.local = make(map[string]localView)
		}
	}
	v.local[path] = localView{payload: payload, expires: now.Add(v.ttl)}
}
