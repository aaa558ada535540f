package echoedge

import (
	"context"
	"net/http"
	"testing"

	"github.com/protextify/edge/core/notify"
	"github.com/protextify/edge/core/outbox"
	testutil "github.com/protextify/edge/tests"
)

func Test_controlApi_sync(t *testing.T) {
	app := initApp(&testutil.Fetcher{Responses: map[string]*testutil.Response{
		"http://api.local/api/submissions/42/content": {Status: 200},
	}})
	_ = app.repo.Save(context.Background(), outbox.Item{
		ID:       "itm-1",
		Resource: "submission 42",
		Endpoint: "http://api.local/api/submissions/42/content",
		Payload:  []byte(`{"content":"draft"}`),
	})

	tests := []httpTest{
		{
			name:     "missing tag fails",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"tag":"this field is required"}`),
		},
		{
			name:     "malformed tag fails",
			body:     []byte(`{"tag":"no spaces allowed!"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"tag":"only alphanumeric characters, underscores and dashes are allowed"}`),
		},
		{
			name:     "unregistered tag is rejected",
			body:     []byte(`{"tag":"unknown-tag"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"unknown-tag: unknown sync tag"}`),
		},
		{
			name:     "registered tag replays the queue",
			body:     []byte(`{"tag":"auto-save-submission"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"replayed":true}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/_edge/sync", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	items, err := app.repo.All(context.Background())
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("queue holds %d items after replay, want 0", len(items))
	}
}

func Test_controlApi_push(t *testing.T) {
	app := initApp(&testutil.Fetcher{})

	tests := []httpTest{
		{
			name:     "empty push falls back to defaults",
			body:     nil,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, notify.Payload{
				Title: notify.DefaultTitle,
				Body:  notify.DefaultBody,
				Tag:   notify.DefaultTag,
				Actions: []notify.Action{
					{Action: notify.ActionOpen, Title: "Buka"},
					{Action: notify.ActionClose, Title: "Tutup"},
				},
			}),
		},
		{
			name:     "structured push is displayed as sent",
			body:     []byte(`{"title":"Hasil cek plagiarisme","body":"Skor: 12%","tag":"check-7"}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, notify.Payload{
				Title: "Hasil cek plagiarisme",
				Body:  "Skor: 12%",
				Tag:   "check-7",
				Actions: []notify.Action{
					{Action: notify.ActionOpen, Title: "Buka"},
					{Action: notify.ActionClose, Title: "Tutup"},
				},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/_edge/push", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_controlApi_notificationClick(t *testing.T) {
	app := initApp(&testutil.Fetcher{})

	tests := []httpTest{
		{
			name:     "open focuses the app",
			body:     []byte(`{"action":"open"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"url":"http://app.local"}`),
		},
		{
			name:     "body click focuses the app",
			body:     []byte(`{"action":""}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"url":"http://app.local"}`),
		},
		{
			name:     "close dismisses",
			body:     []byte(`{"action":"close"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"url":""}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/_edge/notification-click", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_controlApi_healthz(t *testing.T) {
	app := initApp(&testutil.Fetcher{Responses: map[string]*testutil.Response{
		"http://app.local/index.html":    {Status: 200, Body: "<html>shell</html>"},
		"http://app.local/manifest.json": {Status: 200, Body: "{}"},
	}})

	ctx := context.Background()
	// run the full startup sequence first
	if err := app.lifecycle.Install(ctx); err != nil {
		t.Fatalf("Install() failed: %v", err)
	}
	if err := app.lifecycle.Activate(ctx); err != nil {
		t.Fatalf("Activate() failed: %v", err)
	}

	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: []byte(`{"status":"ok","state":"active","queueDepth":0}`),
	}
	req, rec := newRequest(http.MethodGet, "/_edge/healthz", nil)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
