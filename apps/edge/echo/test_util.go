package echoedge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
	"github.com/protextify/edge/core/lifecycle"
	"github.com/protextify/edge/core/notify"
	"github.com/protextify/edge/core/outbox"
	"github.com/protextify/edge/core/routing"
	"github.com/protextify/edge/core/strategy"
	"github.com/protextify/edge/core/worker"
	notifysvc "github.com/protextify/edge/services/notifier"
	inmemcache "github.com/protextify/edge/storage/cache/inmem"
	inmemoutbox "github.com/protextify/edge/storage/outbox/inmem"
	testutil "github.com/protextify/edge/tests"
)

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

type testApp struct {
	server    Server
	store     *inmemcache.Store
	repo      *inmemoutbox.Repository
	fetch     *testutil.Fetcher
	lifecycle *lifecycle.Controller
}

func newTestConfig() *core.Config {
	conf := &core.Config{
		TestMode:        true,
		AppName:         "Protextify Edge",
		FrontendBaseURL: "http://app.local",
	}
	conf.Upstream.AppOrigin = "http://app.local"
	conf.Upstream.APIOrigin = "http://api.local"
	conf.Cache.Prefix = "protextify"
	conf.Cache.Version = "v3"
	conf.Cache.AppShell = "/index.html"
	conf.Cache.Precache = []string{"/index.html", "/manifest.json"}
	conf.Outbox.Tag = "auto-save-submission"
	return conf
}

func initApp(fetch *testutil.Fetcher) *testApp {
	conf := newTestConfig()
	logger := &testutil.Logger{}
	store := inmemcache.NewStore()
	repo := inmemoutbox.NewRepository()

	registry := cache.NewRegistry(conf.Cache.Prefix, conf.Cache.Version)
	outboxSvc := outbox.NewService(repo, fetch, logger, conf)
	notifySvc := notify.NewService(logger, conf, notifysvc.NewConsoleChannelMock(conf.AppName))

	apiURL, _ := url.Parse(conf.Upstream.APIOrigin)
	classifier := routing.NewClassifier(routing.DefaultRules(routing.RuleOptions{
		PrecachePaths: conf.Cache.Precache,
		APIHost:       apiURL.Host,
	})...)

	shellKey := strategy.ShellKey(conf.Upstream.AppOrigin, conf.Cache.AppShell)
	navigation := &strategy.NavigationFallback{
		Store: store, ShellNamespace: registry.Static(),
		ShellKey: shellKey, Fetch: fetch, Logger: logger,
	}
	swr := &strategy.StaleWhileRevalidate{Store: store, Namespace: registry.Dynamic(), Fetch: fetch, Logger: logger}
	strategies := map[routing.Class]strategy.Strategy{
		routing.StaticAsset:          &strategy.CacheFirst{Store: store, Namespace: registry.Static(), Fetch: fetch, Logger: logger},
		routing.FreshnessCriticalAPI: &strategy.NetworkFirst{Store: store, Namespace: registry.Dynamic(), Fetch: fetch, Logger: logger},
		routing.StaleTolerantAPI:     swr,
		routing.Navigation:           navigation,
	}
	wrk := worker.New(classifier, strategies, swr, fetch, outboxSvc, notifySvc, logger)

	ctrl := &lifecycle.Controller{
		Registry:  registry,
		Store:     store,
		Fetch:     fetch,
		Logger:    logger,
		AppOrigin: conf.Upstream.AppOrigin,
		Precache:  conf.Cache.Precache,
	}

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Worker:     wrk,
		Lifecycle:  ctrl,
		Outbox:     outboxSvc,
		Notify:     notifySvc,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{server: server, store: store, repo: repo, fetch: fetch, lifecycle: ctrl}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func seedEntry(t *testing.T, store cache.Store, ns, key, body string) {
	t.Helper()
	err := store.Put(context.Background(), ns, cache.Entry{Key: key, Status: http.StatusOK, Body: []byte(body)})
	if err != nil {
		t.Fatalf("seeding cache failed: %v", err)
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
