package strategy

import (
	"context"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
)

// StaleWhileRevalidate is the default strategy for stale-tolerant API
// calls and unclassified requests: a cached entry is returned immediately
// without waiting on the network, while a concurrent fetch refreshes the
// cache entry for next time. Concurrent revalidations of the same key are
// collapsed; cache writes remain last-write-wins.
type StaleWhileRevalidate struct {
	Store     cache.Store
	Namespace string
	Fetch     core.Fetcher
	Logger    core.Logger
	// OnRevalidate, when set, is called after each background refresh
	// completes. Tests use it to synchronize on the refresh.
	OnRevalidate func(key string, err error)

	group singleflight.Group
}

var _ Strategy = (*StaleWhileRevalidate)(nil)

func (s *StaleWhileRevalidate) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := cache.Key(req.URL)

	ent, err := s.Store.Get(ctx, s.Namespace, key)
	if err == nil {
		go s.revalidate(key, req)
		return ent.Response(req), nil
	}
	if err != cache.ErrNotFound {
		s.Logger.Warn("cache read for "+key+" failed", err)
	}

	// no cached value: the caller waits on the in-flight fetch
	resp, err := fetchAndStore(ctx, s.Fetch, s.Store, s.Namespace, req, s.Logger)
	if err != nil {
		s.Logger.Debug("fetch for uncached " + key + " failed: " + err.Error())
		return OfflineJSON(req), nil
	}
	return resp, nil
}

// revalidate refreshes the cache entry in the background. It runs detached
// from the request context: the caller has already been answered with the
// stale entry.
func (s *StaleWhileRevalidate) revalidate(key string, req *http.Request) {
	_, err, _ := s.group.Do(key, func() (interface{}, error) {
		clone := req.Clone(context.Background())
		clone.Body = nil
		resp, err := s.Fetch.Do(clone)
		if err != nil {
			return nil, err
		}
		if !cache.Cacheable(clone, resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, nil
		}
		ent, err := cache.Snapshot(clone, resp)
		if err != nil {
			return nil, err
		}
		return nil, s.Store.Put(context.Background(), s.Namespace, ent)
	})
	if err != nil {
		s.Logger.Debug("revalidating " + key + " failed: " + err.Error())
	}
	if s.OnRevalidate != nil {
		s.OnRevalidate(key, err)
	}
}
