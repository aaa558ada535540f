// Package worker routes typed fetch, sync and push events to the
// component that handles them. Every event becomes an explicit task, so
// the whole pipeline is unit-testable without a browser runtime.
package worker

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"regexp"

	"github.com/pkg/errors"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/notify"
	"github.com/protextify/edge/core/outbox"
	"github.com/protextify/edge/core/routing"
	"github.com/protextify/edge/core/strategy"
)

type (
	// FetchEvent is an intercepted network request.
	FetchEvent struct {
		Request *http.Request
	}

	// SyncEvent is a background-sync trigger.
	SyncEvent struct {
		Tag string
	}

	// PushEvent is an inbound push message.
	PushEvent struct {
		Data []byte
	}
)

var ErrUnknownSyncTag = errors.New("unknown sync tag")

// autoSavePattern matches submission content auto-save endpoints and
// captures the submission ID.
var autoSavePattern = regexp.MustCompile(`^/api/submissions/([^/]+)/content$`)

// Worker owns the event pipeline. The two cache namespaces and the
// deferred-write queue are reached exclusively through it; pages
// communicate only via intercepted requests and sync triggers.
type Worker struct {
	classifier *routing.Classifier
	strategies map[routing.Class]strategy.Strategy
	fallback   strategy.Strategy
	fetch      core.Fetcher
	outbox     *outbox.Service
	notify     *notify.Service
	logger     core.Logger
}

func New(
	classifier *routing.Classifier,
	strategies map[routing.Class]strategy.Strategy,
	fallback strategy.Strategy,
	fetch core.Fetcher,
	outboxSvc *outbox.Service,
	notifySvc *notify.Service,
	logger core.Logger,
) *Worker {
	return &Worker{
		classifier: classifier,
		strategies: strategies,
		fallback:   fallback,
		fetch:      fetch,
		outbox:     outboxSvc,
		notify:     notifySvc,
		logger:     logger,
	}
}

// HandleFetch classifies the intercepted request once and hands it to
// exactly one strategy executor. Non-GET requests bypass the cache
// pipeline entirely and go straight to network, with one twist: a
// connectivity-failed auto-save is deferred instead of surfaced.
func (w *Worker) HandleFetch(ctx context.Context, ev FetchEvent) (*http.Response, error) {
	req := ev.Request
	if req.Method != http.MethodGet {
		return w.passthrough(ctx, req)
	}

	class := w.classifier.Classify(req)
	s, ok := w.strategies[class]
	if !ok {
		s = w.fallback
	}
	return s.Execute(ctx, req)
}

// HandleSync replays the deferred-write queue when the registered trigger
// fires. Unknown tags are rejected; the engine never registers triggers
// itself.
func (w *Worker) HandleSync(ctx context.Context, ev SyncEvent) error {
	if ev.Tag != w.outbox.Tag() {
		return errors.Wrap(ErrUnknownSyncTag, ev.Tag)
	}
	return w.outbox.Replay(ctx)
}

// HandlePush displays an inbound push message.
func (w *Worker) HandlePush(ev PushEvent) notify.Payload {
	return w.notify.HandlePush(ev.Data)
}

func (w *Worker) passthrough(ctx context.Context, req *http.Request) (*http.Response, error) {
	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = ioutil.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, errors.Wrap(err, "reading request body")
		}
		req.Body = ioutil.NopCloser(bytes.NewReader(payload))
	}

	resp, err := w.fetch.Do(req.WithContext(ctx))
	if err == nil {
		return resp, nil
	}
	if !outbox.IsConnectivityError(err) {
		return nil, err
	}

	if resource, ok := autoSaveResource(req); ok {
		token := bearerToken(req)
		if _, qErr := w.outbox.Enqueue(ctx, resource, req.URL.String(), payload, token); qErr != nil {
			w.logger.Error("queueing deferred auto-save failed", qErr)
			return strategy.OfflineJSON(req), nil
		}
		return queuedResponse(req), nil
	}

	w.logger.Debug("passthrough " + req.Method + " " + req.URL.Path + " failed: " + err.Error())
	return strategy.OfflineJSON(req), nil
}

func autoSaveResource(req *http.Request) (string, bool) {
	if req.Method != http.MethodPatch {
		return "", false
	}
	m := autoSavePattern.FindStringSubmatch(req.URL.Path)
	if m == nil {
		return "", false
	}
	return "submission " + m[1], true
}

func bearerToken(req *http.Request) string {
	const prefix = "Bearer "
	auth := req.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// queuedResponse tells the page its write was captured for later replay,
// distinguishable from both success and failure.
func queuedResponse(req *http.Request) *http.Response {
	body := []byte(`{"queued":true,"offline":true}`)
	return &http.Response{
		StatusCode:    http.StatusAccepted,
		Status:        http.StatusText(http.StatusAccepted),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"application/json"}},
		Body:          ioutil.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
