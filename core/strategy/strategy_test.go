package strategy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/protextify/edge/core/cache"
	inmemcache "github.com/protextify/edge/storage/cache/inmem"
	testutil "github.com/protextify/edge/tests"
)

const (
	staticNS  = "protextify-static-v3"
	dynamicNS = "protextify-dynamic-v3"
)

var errConnRefused = errors.New("dial tcp: connection refused")

func seed(t *testing.T, store cache.Store, ns, key, body string) {
	t.Helper()
	err := store.Put(context.Background(), ns, cache.Entry{
		Key:      key,
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": {"application/json"}},
		Body:     []byte(body),
		CachedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seeding cache failed: %v", err)
	}
}

func TestCacheFirstHitSkipsNetwork(t *testing.T) {
	store := inmemcache.NewStore()
	fetch := &testutil.Fetcher{}
	seed(t, store, staticNS, "http://app.local/index.html", "<html>shell</html>")

	s := &CacheFirst{Store: store, Namespace: staticNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://app.local/index.html", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := testutil.ReadBody(t, resp); got != "<html>shell</html>" {
		t.Errorf("body = %q", got)
	}
	if fetch.CallCount() != 0 {
		t.Errorf("cache hit must not touch the network, got %d fetches", fetch.CallCount())
	}
}

func TestCacheFirstMissFetchesAndStores(t *testing.T) {
	store := inmemcache.NewStore()
	fetch := &testutil.Fetcher{Responses: map[string]*testutil.Response{
		"http://app.local/assets/app.js": {Status: 200, Body: "console.log(1)"},
	}}

	s := &CacheFirst{Store: store, Namespace: staticNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://app.local/assets/app.js", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if got := testutil.ReadBody(t, resp); got != "console.log(1)" {
		t.Errorf("body = %q", got)
	}

	ent, err := store.Get(context.Background(), staticNS, "http://app.local/assets/app.js")
	if err != nil {
		t.Fatalf("fetched asset was not cached: %v", err)
	}
	if string(ent.Body) != "console.log(1)" {
		t.Errorf("cached body = %q", ent.Body)
	}
}

func TestCacheFirstTotalUnavailability(t *testing.T) {
	store := inmemcache.NewStore()
	fetch := &testutil.Fetcher{Err: errConnRefused}

	s := &CacheFirst{Store: store, Namespace: staticNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://app.local/assets/app.js", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestNetworkFirstPrefersLiveResponse(t *testing.T) {
	store := inmemcache.NewStore()
	seed(t, store, dynamicNS, "http://api.local/api/submissions/42", `{"stale":true}`)
	fetch := &testutil.Fetcher{Responses: map[string]*testutil.Response{
		"http://api.local/api/submissions/42": {Status: 200, Body: `{"fresh":true}`},
	}}

	s := &NetworkFirst{Store: store, Namespace: dynamicNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/submissions/42", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	// network-first never substitutes cache when the network succeeds
	if got := testutil.ReadBody(t, resp); got != `{"fresh":true}` {
		t.Errorf("body = %q, want the live network response", got)
	}

	ent, err := store.Get(context.Background(), dynamicNS, "http://api.local/api/submissions/42")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(ent.Body) != `{"fresh":true}` {
		t.Errorf("cache not refreshed from the 2xx response: %q", ent.Body)
	}
}

func TestNetworkFirstFallsBackToCache(t *testing.T) {
	store := inmemcache.NewStore()
	seed(t, store, dynamicNS, "http://api.local/api/submissions/42", `{"stale":true}`)
	fetch := &testutil.Fetcher{Err: errConnRefused}

	s := &NetworkFirst{Store: store, Namespace: dynamicNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/submissions/42", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 from cache", resp.StatusCode)
	}
	if got := testutil.ReadBody(t, resp); got != `{"stale":true}` {
		t.Errorf("body = %q, want the cached entry", got)
	}
}

func TestNetworkFirstTotalUnavailability(t *testing.T) {
	store := inmemcache.NewStore()
	fetch := &testutil.Fetcher{Err: errConnRefused}

	s := &NetworkFirst{Store: store, Namespace: dynamicNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/submissions/42", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", resp.Header.Get("Content-Type"))
	}
	testutil.AssertEqualText(t, `{"error":"Network unavailable","offline":true}`, testutil.ReadBody(t, resp))
}

func TestNetworkFirstNonOKResponsePassesThrough(t *testing.T) {
	store := inmemcache.NewStore()
	seed(t, store, dynamicNS, "http://api.local/api/submissions/42", `{"stale":true}`)
	fetch := &testutil.Fetcher{Responses: map[string]*testutil.Response{
		"http://api.local/api/submissions/42": {Status: 404, Body: `{"error":"not found"}`},
	}}

	s := &NetworkFirst{Store: store, Namespace: dynamicNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/submissions/42", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	// a reachable network always answers, even with an error status
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want the live 404", resp.StatusCode)
	}

	ent, _ := store.Get(context.Background(), dynamicNS, "http://api.local/api/submissions/42")
	if string(ent.Body) != `{"stale":true}` {
		t.Error("non-2xx response must not overwrite the cache entry")
	}
}

func TestStaleWhileRevalidateServesCacheImmediately(t *testing.T) {
	store := inmemcache.NewStore()
	seed(t, store, dynamicNS, "http://api.local/api/classes", `[{"id":1}]`)
	fetch := &testutil.Fetcher{Responses: map[string]*testutil.Response{
		"http://api.local/api/classes": {Status: 200, Body: `[{"id":1},{"id":2}]`},
	}}

	done := make(chan error, 1)
	s := &StaleWhileRevalidate{
		Store: store, Namespace: dynamicNS, Fetch: fetch, Logger: &testutil.Logger{},
		OnRevalidate: func(key string, err error) { done <- err },
	}
	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/classes", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	// the caller gets the cached entry without waiting on the network
	if got := testutil.ReadBody(t, resp); got != `[{"id":1}]` {
		t.Errorf("body = %q, want the cached entry", got)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("revalidation failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("revalidation never completed")
	}

	ent, err := store.Get(context.Background(), dynamicNS, "http://api.local/api/classes")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(ent.Body) != `[{"id":1},{"id":2}]` {
		t.Errorf("cache entry not refreshed, got %q", ent.Body)
	}
}

func TestStaleWhileRevalidateMissWaitsOnNetwork(t *testing.T) {
	store := inmemcache.NewStore()
	fetch := &testutil.Fetcher{Responses: map[string]*testutil.Response{
		"http://api.local/api/classes": {Status: 200, Body: `[{"id":1}]`},
	}}

	s := &StaleWhileRevalidate{Store: store, Namespace: dynamicNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/classes", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if got := testutil.ReadBody(t, resp); got != `[{"id":1}]` {
		t.Errorf("body = %q", got)
	}
	if _, err := store.Get(context.Background(), dynamicNS, "http://api.local/api/classes"); err != nil {
		t.Errorf("response was not cached: %v", err)
	}
}

func TestStaleWhileRevalidateMissOffline(t *testing.T) {
	store := inmemcache.NewStore()
	fetch := &testutil.Fetcher{Err: errConnRefused}

	s := &StaleWhileRevalidate{Store: store, Namespace: dynamicNS, Fetch: fetch, Logger: &testutil.Logger{}}
	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/classes", nil)

	resp, err := s.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestNavigationFallback(t *testing.T) {
	shellKey := ShellKey("http://app.local", "/index.html")
	if shellKey != "http://app.local/index.html" {
		t.Fatalf("ShellKey() = %q", shellKey)
	}

	t.Run("network render wins", func(t *testing.T) {
		store := inmemcache.NewStore()
		fetch := &testutil.Fetcher{Responses: map[string]*testutil.Response{
			"http://app.local/dashboard": {Status: 200, Body: "<html>dashboard</html>"},
		}}
		s := &NavigationFallback{Store: store, ShellNamespace: staticNS, ShellKey: shellKey, Fetch: fetch, Logger: &testutil.Logger{}}
		req := httptest.NewRequest(http.MethodGet, "http://app.local/dashboard", nil)

		resp, err := s.Execute(context.Background(), req)
		if err != nil {
			t.Fatalf("Execute() failed: %v", err)
		}
		if got := testutil.ReadBody(t, resp); got != "<html>dashboard</html>" {
			t.Errorf("body = %q", got)
		}
	})

	t.Run("offline serves app shell", func(t *testing.T) {
		store := inmemcache.NewStore()
		seed(t, store, staticNS, shellKey, "<html>shell</html>")
		fetch := &testutil.Fetcher{Err: errConnRefused}
		s := &NavigationFallback{Store: store, ShellNamespace: staticNS, ShellKey: shellKey, Fetch: fetch, Logger: &testutil.Logger{}}
		req := httptest.NewRequest(http.MethodGet, "http://app.local/dashboard", nil)

		resp, err := s.Execute(context.Background(), req)
		if err != nil {
			t.Fatalf("Execute() failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if got := testutil.ReadBody(t, resp); got != "<html>shell</html>" {
			t.Errorf("body = %q, want the app shell", got)
		}
	})

	t.Run("offline without shell synthesizes 503", func(t *testing.T) {
		store := inmemcache.NewStore()
		fetch := &testutil.Fetcher{Err: errConnRefused}
		s := &NavigationFallback{Store: store, ShellNamespace: staticNS, ShellKey: shellKey, Fetch: fetch, Logger: &testutil.Logger{}}
		req := httptest.NewRequest(http.MethodGet, "http://app.local/dashboard", nil)

		resp, err := s.Execute(context.Background(), req)
		if err != nil {
			t.Fatalf("Execute() failed: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})
}
