// Package lifecycle drives the worker through its install/activate cycle:
// seeding the static cache, evicting stale namespace versions, and
// claiming clients for the new version.
package lifecycle

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
)

// State is the worker lifecycle state. Active persists until the process
// is replaced by a newer version, which restarts the cycle.
type State int

const (
	Installing State = iota
	Waiting
	Activating
	Active
)

func (s State) String() string {
	switch s {
	case Installing:
		return "installing"
	case Waiting:
		return "waiting"
	case Activating:
		return "activating"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Controller owns the lifecycle of the cache namespaces.
type Controller struct {
	Registry cache.Registry
	Store    cache.Store
	Fetch    core.Fetcher
	Logger   core.Logger

	// AppOrigin is the origin the precache assets are fetched from.
	AppOrigin string
	// Precache is the critical-asset list seeded at install time.
	Precache []string
	// OnClaim, when set, runs after activation so open clients are served
	// by the new version without a reload.
	OnClaim func()

	mu    sync.RWMutex
	state State
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Install seeds the static namespace with the precache asset list.
// Seeding is all-or-nothing: every asset is fetched before anything is
// written, and any fetch failure fails the whole install. The previous
// worker version keeps serving until a deploy installs cleanly.
func (c *Controller) Install(ctx context.Context) error {
	c.setState(Installing)

	entries := make([]cache.Entry, 0, len(c.Precache))
	for _, path := range c.Precache {
		ent, err := c.fetchAsset(ctx, path)
		if err != nil {
			return errors.Wrapf(err, "precaching %s", path)
		}
		entries = append(entries, ent)
	}

	static := c.Registry.Static()
	for _, ent := range entries {
		if err := c.Store.Put(ctx, static, ent); err != nil {
			return errors.Wrapf(core.NewShutdownError(err.Error()), "seeding %s", ent.Key)
		}
	}

	c.setState(Waiting)
	c.Logger.Info("installed " + static + ": seeded " + strconv.Itoa(len(entries)) + " assets")
	return nil
}

// Activate evicts every cache namespace version other than the current
// static/dynamic pair, then claims open clients. Skip-waiting callers
// invoke it straight after Install, trading a brief version-mismatch
// window for faster rollout.
func (c *Controller) Activate(ctx context.Context) error {
	c.setState(Activating)

	names, err := c.Store.Namespaces(ctx)
	if err != nil {
		return errors.Wrap(err, "enumerating cache namespaces")
	}
	for _, name := range names {
		if !c.Registry.Owns(name) || c.Registry.IsCurrent(name) {
			continue
		}
		if err := c.Store.Drop(ctx, name); err != nil {
			return errors.Wrapf(err, "evicting stale namespace %s", name)
		}
		c.Logger.Info("evicted stale cache namespace " + name)
	}

	c.setState(Active)
	if c.OnClaim != nil {
		c.OnClaim()
	}
	return nil
}

func (c *Controller) fetchAsset(ctx context.Context, path string) (cache.Entry, error) {
	u, err := url.Parse(c.AppOrigin)
	if err != nil {
		return cache.Entry{}, errors.Wrap(err, "parsing app origin")
	}
	u.Path = path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return cache.Entry{}, err
	}
	resp, err := c.Fetch.Do(req)
	if err != nil {
		return cache.Entry{}, err
	}
	if !cache.Cacheable(req, resp.StatusCode) {
		_ = resp.Body.Close()
		return cache.Entry{}, errors.Errorf("unexpected status %d", resp.StatusCode)
	}
	return cache.Snapshot(req, resp)
}
