package strategy

import (
	"context"
	"net/http"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
)

// CacheFirst serves static assets: a cached entry wins outright; the
// network is only consulted on a miss, and its response is stored for
// next time.
type CacheFirst struct {
	Store     cache.Store
	Namespace string
	Fetch     core.Fetcher
	Logger    core.Logger
}

var _ Strategy = (*CacheFirst)(nil)

func (s *CacheFirst) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := cache.Key(req.URL)

	ent, err := s.Store.Get(ctx, s.Namespace, key)
	if err == nil {
		return ent.Response(req), nil
	}
	if err != cache.ErrNotFound {
		s.Logger.Warn("cache read for "+key+" failed", err)
	}

	resp, err := fetchAndStore(ctx, s.Fetch, s.Store, s.Namespace, req, s.Logger)
	if err != nil {
		s.Logger.Debug("asset fetch for "+key+" failed while uncached: "+err.Error())
		return OfflineText(req, "Service unavailable: asset not cached and network unreachable"), nil
	}
	return resp, nil
}
