// Package strategy implements the four fetch/cache interaction algorithms
// applied to intercepted requests: cache-first, network-first,
// stale-while-revalidate and navigation-fallback. Each executor takes an
// intercepted request and returns a response from cache, network, or a
// synthesized failure; cache writes are an optional side effect.
package strategy

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
)

// Strategy executes one fetch/cache algorithm for an intercepted request.
type Strategy interface {
	Execute(ctx context.Context, req *http.Request) (*http.Response, error)
}

// OfflineJSON synthesizes the 503 returned for API requests when both
// network and cache fail. The offline flag lets the calling page tell
// "you're offline" apart from a genuine server error.
func OfflineJSON(req *http.Request) *http.Response {
	body := []byte(`{"error":"Network unavailable","offline":true}`)
	return synthesized(req, body, "application/json")
}

// OfflineText synthesizes the 503 returned for asset and navigation
// requests when both network and cache fail.
func OfflineText(req *http.Request, msg string) *http.Response {
	return synthesized(req, []byte(msg), "text/plain; charset=utf-8")
}

func synthesized(req *http.Request, body []byte, contentType string) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusServiceUnavailable,
		Status:        http.StatusText(http.StatusServiceUnavailable),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {contentType}},
		Body:          ioutil.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// fetchAndStore fetches req and, when the response is cacheable, stores a
// snapshot under namespace and serves the snapshot instead. Non-cacheable
// responses pass through untouched. A store write failure is logged, never
// surfaced: serving beats caching.
func fetchAndStore(
	ctx context.Context,
	fetch core.Fetcher,
	store cache.Store,
	namespace string,
	req *http.Request,
	logger core.Logger,
) (*http.Response, error) {
	resp, err := fetch.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if !cache.Cacheable(req, resp.StatusCode) {
		return resp, nil
	}

	ent, err := cache.Snapshot(req, resp)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, namespace, ent); err != nil {
		logger.Warn("caching response for "+ent.Key+" failed", err)
	}
	return ent.Response(req), nil
}
