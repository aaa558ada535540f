package cache

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Entry is an immutable stored response snapshot. Entries are overwritten
// wholesale, never patched.
type Entry struct {
	Key      string      `json:"key"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	CachedAt time.Time   `json:"cachedAt"`
}

// Key derives the cache key for a request: the full URL minus the fragment.
// Only GET requests are ever stored, so the method is not part of the key,
// and header variations are deliberately ignored.
func Key(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return c.String()
}

// Cacheable reports whether a request/response pair may be stored:
// GET requests with 2xx responses only.
func Cacheable(req *http.Request, status int) bool {
	return req.Method == http.MethodGet && status >= 200 && status < 300
}

// Snapshot consumes resp.Body and captures the response as an Entry.
// The caller must serve the returned entry instead of resp.
func Snapshot(req *http.Request, resp *http.Response) (Entry, error) {
	body, err := ioutil.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return Entry{}, errors.Wrap(err, "reading response body")
	}
	return Entry{
		Key:      Key(req.URL),
		Status:   resp.StatusCode,
		Header:   cloneHeader(resp.Header),
		Body:     body,
		CachedAt: time.Now().UTC(),
	}, nil
}

// Response rebuilds an *http.Response that serves the snapshot.
func (e Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    e.Status,
		Status:        http.StatusText(e.Status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        cloneHeader(e.Header),
		Body:          ioutil.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func cloneHeader(h http.Header) http.Header {
	c := make(http.Header, len(h))
	for k, vv := range h {
		c[k] = append([]string(nil), vv...)
	}
	return c
}
