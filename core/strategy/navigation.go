package strategy

import (
	"context"
	"net/http"
	"net/url"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
)

// NavigationFallback serves document navigations: a live render is
// attempted first; when the network fails, the precached app shell is
// served so client-side routing can still render an offline-capable shell.
type NavigationFallback struct {
	Store cache.Store
	// ShellNamespace is the static namespace holding the app shell.
	ShellNamespace string
	// ShellKey is the cache key of the app-shell document.
	ShellKey string
	Fetch    core.Fetcher
	Logger   core.Logger
}

var _ Strategy = (*NavigationFallback)(nil)

// ShellKey derives the app-shell cache key from the app origin and the
// configured shell path.
func ShellKey(appOrigin, shellPath string) string {
	u, err := url.Parse(appOrigin)
	if err != nil {
		return shellPath
	}
	u.Path = shellPath
	return cache.Key(u)
}

func (s *NavigationFallback) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := s.Fetch.Do(req.WithContext(ctx))
	if err == nil {
		return resp, nil
	}
	s.Logger.Debug("navigation fetch for " + req.URL.Path + " failed, serving app shell: " + err.Error())

	ent, cacheErr := s.Store.Get(ctx, s.ShellNamespace, s.ShellKey)
	if cacheErr == nil {
		return ent.Response(req), nil
	}
	if cacheErr != cache.ErrNotFound {
		s.Logger.Warn("app shell read failed", cacheErr)
	}
	return OfflineText(req, "Service unavailable: application shell not cached"), nil
}
