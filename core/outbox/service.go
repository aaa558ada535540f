// Package outbox queues write operations that failed while offline and
// replays them once a background-sync trigger fires.
package outbox

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/protextify/edge/core"
)

var ErrNotFound = errors.New("queue item not found")

type (
	// Repository persists deferred write items across worker restarts.
	// The in-memory implementation is the degraded, session-scoped mode
	// used when durable storage is unavailable.
	Repository interface {
		Save(ctx context.Context, item Item) error
		// All returns every queued item ordered by EnqueuedAt.
		All(ctx context.Context) ([]Item, error)
		Delete(ctx context.Context, id string) error
	}

	Service struct {
		repo   Repository
		fetch  core.Fetcher
		logger core.Logger
		tag    string
	}
)

func NewService(repo Repository, fetch core.Fetcher, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		fetch:  fetch,
		logger: logger,
		tag:    conf.Outbox.Tag,
	}
}

// Tag is the background-sync trigger name this queue answers to.
func (svc *Service) Tag() string { return svc.tag }

// Enqueue captures a failed write for later replay. The item is persisted
// before returning so it survives a worker termination right after.
func (svc *Service) Enqueue(ctx context.Context, resource, endpoint string, payload []byte, authToken string) (Item, error) {
	item := Item{
		ID:         uuid.New().String(),
		Resource:   resource,
		Endpoint:   endpoint,
		Payload:    payload,
		AuthToken:  authToken,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := svc.repo.Save(ctx, item); err != nil {
		return Item{}, errors.Wrap(err, "saving deferred write")
	}
	svc.logger.Info("queued deferred write for " + resource)
	return item, nil
}

func (svc *Service) Items(ctx context.Context) ([]Item, error) {
	return svc.repo.All(ctx)
}

// Flush drops every queued item without replaying. Admin-only.
func (svc *Service) Flush(ctx context.Context) (int, error) {
	items, err := svc.repo.All(ctx)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if err := svc.repo.Delete(ctx, item.ID); err != nil && errors.Cause(err) != ErrNotFound {
			return 0, errors.Wrapf(err, "flushing item %s", item.ID)
		}
	}
	return len(items), nil
}

// Replay sends each queued item against its original endpoint with the
// auth token captured at enqueue time. Items are processed sequentially to
// avoid duplicate-submission races on the same resource, and removed only
// on a confirmed success; anything else stays queued for the next trigger.
func (svc *Service) Replay(ctx context.Context) error {
	items, err := svc.repo.All(ctx)
	if err != nil {
		return errors.Wrap(err, "reading deferred writes")
	}

	var replayed, remaining int
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tokenExpired(item.AuthToken) {
			svc.logger.Warn("deferred write for " + item.Resource + " holds an expired token; keeping for re-auth")
			remaining++
			continue
		}

		ok, err := svc.replayOne(ctx, item)
		if err != nil {
			svc.logger.Debug("replay of " + item.Resource + " failed: " + err.Error())
			remaining++
			continue
		}
		if !ok {
			remaining++
			continue
		}
		// duplicate sync triggers may race here; a missing item just
		// means another replay already confirmed it
		if err := svc.repo.Delete(ctx, item.ID); err != nil && errors.Cause(err) != ErrNotFound {
			return errors.Wrapf(err, "removing replayed item %s", item.ID)
		}
		replayed++
	}

	svc.logger.Info(fmt.Sprintf("sync replay done: %d sent, %d still pending", replayed, remaining))
	return nil
}

func (svc *Service) replayOne(ctx context.Context, item Item) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, item.Endpoint, bytes.NewReader(item.Payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+item.AuthToken)

	resp, err := svc.fetch.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, nil
	}
	svc.logger.Warn(fmt.Sprintf("replay of %s rejected with status %d", item.Resource, resp.StatusCode))
	return false, nil
}

// IsConnectivityError distinguishes transport failures, which are worth
// queueing, from business rejections, which already reached the server.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	err = errors.Cause(err)
	if err == context.Canceled || err == context.DeadlineExceeded {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// tokenExpired inspects the captured bearer token's exp claim without
// verifying the signature; verification is the upstream API's job.
func tokenExpired(token string) bool {
	claims := jwt.StandardClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return false // let the server decide about tokens we cannot read
	}
	if claims.ExpiresAt == 0 {
		return false
	}
	return !claims.VerifyExpiresAt(time.Now().Unix(), true)
}
