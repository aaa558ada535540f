// Package routing decides which caching strategy an intercepted request
// belongs to. Classification is a pure function of an ordered rule table;
// it is recomputed per request and never persisted.
package routing

import (
	"net/http"
	"path"
	"regexp"
	"strings"
)

// Class is the routing category of an intercepted GET request.
type Class int

const (
	Unclassified Class = iota
	StaticAsset
	FreshnessCriticalAPI
	StaleTolerantAPI
	Navigation
)

func (c Class) String() string {
	switch c {
	case StaticAsset:
		return "static-asset"
	case FreshnessCriticalAPI:
		return "freshness-critical-api"
	case StaleTolerantAPI:
		return "stale-tolerant-api"
	case Navigation:
		return "navigation"
	default:
		return "unclassified"
	}
}

// Rule pairs a named predicate with the Class it yields.
type Rule struct {
	Name  string
	Match func(req *http.Request) bool
	Class Class
}

// Classifier evaluates rules in order; the first match wins, so a request
// is never evaluated by more than one strategy.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the Class of req. Only GET requests are classified;
// anything else is Unclassified and must bypass the cache pipeline.
func (c *Classifier) Classify(req *http.Request) Class {
	if req.Method != http.MethodGet {
		return Unclassified
	}
	for _, r := range c.rules {
		if r.Match(req) {
			return r.Class
		}
	}
	return Unclassified
}

// Rules returns the rule table, for inspection in admin tooling and tests.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// RuleOptions carries the configuration the default rule table is built
// from.
type RuleOptions struct {
	// PrecachePaths is the seeded asset list; exact path matches are
	// static assets.
	PrecachePaths []string
	// AssetExtensions supplements the precache list with an extension
	// match for stylesheets, scripts, images and fonts.
	AssetExtensions []string
	// APIHost is the API origin host; requests to it are API calls.
	APIHost string
	// FreshnessCriticalPatterns flag API paths that must never serve
	// cached data while the network is reachable.
	FreshnessCriticalPatterns []*regexp.Regexp
}

var (
	defaultAssetExtensions = []string{
		".css", ".js", ".mjs", ".map",
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
		".woff", ".woff2", ".ttf", ".eot",
		".json", ".webmanifest",
	}

	// auth, submission writes and plagiarism actions must always be fresh
	defaultFreshnessCriticalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^/api/auth(/|$)`),
		regexp.MustCompile(`^/api/submissions(/|$)`),
		regexp.MustCompile(`^/api/plagiarism-checks(/|$)`),
		regexp.MustCompile(`^/api/payments(/|$)`),
	}
)

// DefaultRules builds the ordered rule table:
// static assets, then freshness-critical API paths, then remaining API
// calls, then document navigations. Anything else falls through to the
// default strategy via Unclassified.
func DefaultRules(opts RuleOptions) []Rule {
	if len(opts.AssetExtensions) == 0 {
		opts.AssetExtensions = defaultAssetExtensions
	}
	if len(opts.FreshnessCriticalPatterns) == 0 {
		opts.FreshnessCriticalPatterns = defaultFreshnessCriticalPatterns
	}

	precache := make(map[string]struct{}, len(opts.PrecachePaths))
	for _, p := range opts.PrecachePaths {
		precache[p] = struct{}{}
	}
	extensions := make(map[string]struct{}, len(opts.AssetExtensions))
	for _, ext := range opts.AssetExtensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	isAPI := func(req *http.Request) bool {
		if opts.APIHost != "" && req.URL.Host == opts.APIHost {
			return true
		}
		return strings.HasPrefix(req.URL.Path, "/api/")
	}

	return []Rule{
		{
			Name:  "precached-asset",
			Class: StaticAsset,
			Match: func(req *http.Request) bool {
				_, ok := precache[req.URL.Path]
				return ok && !isAPI(req)
			},
		},
		{
			Name:  "asset-extension",
			Class: StaticAsset,
			Match: func(req *http.Request) bool {
				if isAPI(req) {
					return false
				}
				_, ok := extensions[strings.ToLower(path.Ext(req.URL.Path))]
				return ok
			},
		},
		{
			Name:  "freshness-critical-api",
			Class: FreshnessCriticalAPI,
			Match: func(req *http.Request) bool {
				if !isAPI(req) {
					return false
				}
				for _, pat := range opts.FreshnessCriticalPatterns {
					if pat.MatchString(req.URL.Path) {
						return true
					}
				}
				return false
			},
		},
		{
			Name:  "stale-tolerant-api",
			Class: StaleTolerantAPI,
			Match: isAPI,
		},
		{
			Name:  "navigation",
			Class: Navigation,
			Match: IsNavigation,
		},
	}
}

// IsNavigation detects browser-initiated document loads via the request
// mode header or an Accept preferring text/html.
func IsNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
