package strategy

import (
	"context"
	"net/http"
	"time"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
)

// NetworkFirst serves freshness-critical API calls: a live network
// response always wins; the cache is only a fallback for connectivity
// failures, never a substitute while the network answers.
type NetworkFirst struct {
	Store     cache.Store
	Namespace string
	Fetch     core.Fetcher
	Logger    core.Logger
	// Timeout bounds the network attempt before the cache fallback
	// engages. Zero preserves the unbounded wait of the original design.
	Timeout time.Duration
}

var _ Strategy = (*NetworkFirst)(nil)

func (s *NetworkFirst) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	fetchCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	resp, err := fetchAndStore(fetchCtx, s.Fetch, s.Store, s.Namespace, req, s.Logger)
	if err == nil {
		return resp, nil
	}

	key := cache.Key(req.URL)
	s.Logger.Debug("network-first fetch for " + key + " failed, trying cache: " + err.Error())

	ent, cacheErr := s.Store.Get(ctx, s.Namespace, key)
	if cacheErr == nil {
		return ent.Response(req), nil
	}
	if cacheErr != cache.ErrNotFound {
		s.Logger.Warn("cache read for "+key+" failed", cacheErr)
	}
	return OfflineJSON(req), nil
}
