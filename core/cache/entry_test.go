package cache

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain path", raw: "https://api.protextify.com/api/classes", want: "https://api.protextify.com/api/classes"},
		{name: "query kept", raw: "https://api.protextify.com/api/classes?page=2", want: "https://api.protextify.com/api/classes?page=2"},
		{name: "fragment dropped", raw: "https://app.protextify.com/index.html#editor", want: "https://app.protextify.com/index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatalf("url.Parse() failed: %v", err)
			}
			if got := Key(u); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheable(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/api/classes", nil)
	patch := httptest.NewRequest(http.MethodPatch, "/api/submissions/42/content", nil)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		want   bool
	}{
		{name: "GET 200", req: get, status: 200, want: true},
		{name: "GET 204", req: get, status: 204, want: true},
		{name: "GET 404", req: get, status: 404, want: false},
		{name: "GET 500", req: get, status: 500, want: false},
		{name: "PATCH 200", req: patch, status: 200, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cacheable(tt.req, tt.status); got != tt.want {
				t.Errorf("Cacheable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://app.protextify.com/index.html", nil)
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/html"}},
		Body:       ioutil.NopCloser(bytes.NewReader([]byte("<html>shell</html>"))),
	}

	ent, err := Snapshot(req, resp)
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if ent.Key != "https://app.protextify.com/index.html" {
		t.Errorf("unexpected key %q", ent.Key)
	}
	if ent.CachedAt.IsZero() {
		t.Error("CachedAt not set")
	}

	restored := ent.Response(req)
	if restored.StatusCode != http.StatusOK {
		t.Errorf("restored status = %d, want 200", restored.StatusCode)
	}
	if got := restored.Header.Get("Content-Type"); got != "text/html" {
		t.Errorf("restored Content-Type = %q", got)
	}
	body, _ := ioutil.ReadAll(restored.Body)
	if string(body) != "<html>shell</html>" {
		t.Errorf("restored body = %q", body)
	}

	// snapshots are independent copies
	restored.Header.Set("Content-Type", "mutated")
	if got := ent.Header.Get("Content-Type"); got != "text/html" {
		t.Errorf("entry header mutated through restored response: %q", got)
	}
}
