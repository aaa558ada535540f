package lifecycle

import (
	"context"
	"testing"

	"github.com/protextify/edge/core/cache"
	inmemcache "github.com/protextify/edge/storage/cache/inmem"
	testutil "github.com/protextify/edge/tests"
)

var precache = []string{"/index.html", "/manifest.json", "/icons/icon-192.png"}

func newController(store cache.Store, fetch *testutil.Fetcher) *Controller {
	return &Controller{
		Registry:  cache.NewRegistry("protextify", "v3"),
		Store:     store,
		Fetch:     fetch,
		Logger:    &testutil.Logger{},
		AppOrigin: "http://app.local",
		Precache:  precache,
	}
}

func assetResponses() map[string]*testutil.Response {
	return map[string]*testutil.Response{
		"http://app.local/index.html":         {Status: 200, Body: "<html>shell</html>"},
		"http://app.local/manifest.json":      {Status: 200, Body: "{}"},
		"http://app.local/icons/icon-192.png": {Status: 200, Body: "png"},
	}
}

func TestInstallSeedsStaticNamespace(t *testing.T) {
	store := inmemcache.NewStore()
	ctrl := newController(store, &testutil.Fetcher{Responses: assetResponses()})

	if got := ctrl.State(); got != Installing {
		t.Errorf("initial State() = %v, want Installing", got)
	}
	if err := ctrl.Install(context.Background()); err != nil {
		t.Fatalf("Install() failed: %v", err)
	}
	if got := ctrl.State(); got != Waiting {
		t.Errorf("State() after install = %v, want Waiting", got)
	}

	keys, err := store.Keys(context.Background(), "protextify-static-v3")
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	if len(keys) != len(precache) {
		t.Errorf("seeded %d assets, want %d: %v", len(keys), len(precache), keys)
	}
}

func TestInstallIsAtomic(t *testing.T) {
	store := inmemcache.NewStore()
	responses := assetResponses()
	delete(responses, "http://app.local/icons/icon-192.png") // scripted 404
	ctrl := newController(store, &testutil.Fetcher{Responses: responses})

	if err := ctrl.Install(context.Background()); err == nil {
		t.Fatal("Install() should fail when any listed asset cannot be fetched")
	}
	if got := ctrl.State(); got != Installing {
		t.Errorf("State() after failed install = %v, want Installing", got)
	}

	// all-or-nothing: no partial seeding
	keys, _ := store.Keys(context.Background(), "protextify-static-v3")
	if len(keys) != 0 {
		t.Errorf("failed install left %d seeded assets: %v", len(keys), keys)
	}
}

func TestActivateEvictsStaleVersions(t *testing.T) {
	store := inmemcache.NewStore()
	ctx := context.Background()
	ent := cache.Entry{Key: "k", Status: 200, Body: []byte("x")}
	for _, ns := range []string{
		"protextify-static-v2",
		"protextify-dynamic-v2",
		"protextify-static-v3",
		"protextify-dynamic-v3",
		"unrelated-app-cache",
	} {
		if err := store.Put(ctx, ns, ent); err != nil {
			t.Fatalf("seeding %s failed: %v", ns, err)
		}
	}

	claimed := false
	ctrl := newController(store, &testutil.Fetcher{Responses: assetResponses()})
	ctrl.OnClaim = func() { claimed = true }

	if err := ctrl.Activate(ctx); err != nil {
		t.Fatalf("Activate() failed: %v", err)
	}
	if got := ctrl.State(); got != Active {
		t.Errorf("State() = %v, want Active", got)
	}
	if !claimed {
		t.Error("OnClaim was not invoked")
	}

	names, _ := store.Namespaces(ctx)
	want := map[string]bool{
		"protextify-static-v3":  true,
		"protextify-dynamic-v3": true,
		"unrelated-app-cache":   true, // foreign namespaces are never evicted
	}
	if len(names) != len(want) {
		t.Fatalf("Namespaces() = %v, want exactly the current pair plus foreign", names)
	}
	for _, name := range names {
		if !want[name] {
			t.Errorf("stale namespace %s survived activation", name)
		}
	}
}
