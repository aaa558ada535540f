package testutil

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"sync"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// Logger is a no-op core.Logger that records every message, so tests can
// assert on (or ignore) log traffic.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg) }

// Fetcher is a scripted core.Fetcher. Responses are keyed by URL (minus
// fragment); URLs without a scripted response get Err (or a default 404).
type Fetcher struct {
	mu        sync.Mutex
	Responses map[string]*Response
	Err       error
	Requests  []*http.Request
}

// Response is a scripted network response.
type Response struct {
	Status int
	Header http.Header
	Body   string
}

func (f *Fetcher) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	scripted, ok := f.Responses[req.URL.String()]
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if !ok {
		scripted = &Response{Status: http.StatusNotFound}
	}
	header := scripted.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    scripted.Status,
		Status:        http.StatusText(scripted.Status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          ioutil.NopCloser(bytes.NewReader([]byte(scripted.Body))),
		ContentLength: int64(len(scripted.Body)),
		Request:       req,
	}, nil
}

// CallCount returns how many requests the fetcher has served.
func (f *Fetcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// ReadBody drains and returns a response body.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	_ = resp.Body.Close()
	return string(body)
}

// AssertEqualText fails the test with a unified diff when got != want.
func AssertEqualText(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("unexpected output:\n%s", diff)
}
