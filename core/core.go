package core

import "net/http"

type (
	// Logger is any service that can log leveled messages.
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// Fetcher issues an outbound HTTP request. *http.Client satisfies it;
	// tests substitute fakes.
	Fetcher interface {
		Do(req *http.Request) (*http.Response, error)
	}
)
