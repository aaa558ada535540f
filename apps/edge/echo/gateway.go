package echoedge

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/protextify/edge/core/worker"
)

// gateway intercepts every page request, rewrites it against the right
// upstream origin and runs it through the caching pipeline.
type gateway struct {
	worker    *worker.Worker
	appOrigin string
	apiOrigin string
}

func registerGateway(app *echo.Echo, deps ServerDeps) {
	gw := gateway{
		worker:    deps.Worker,
		appOrigin: deps.Conf.Upstream.AppOrigin,
		apiOrigin: deps.Conf.Upstream.APIOrigin,
	}
	app.Any("/*", gw.intercept)
}

func (gw *gateway) intercept(ctx echo.Context) error {
	req := ctx.Request()

	upstream, err := gw.buildUpstreamRequest(req)
	if err != nil {
		return errors.Wrap(err, "building upstream request")
	}

	resp, err := gw.worker.HandleFetch(req.Context(), worker.FetchEvent{Request: upstream})
	if err != nil {
		return errors.Wrap(err, "handling intercepted request")
	}
	defer func() { _ = resp.Body.Close() }()

	return writeResponse(ctx, resp)
}

// buildUpstreamRequest rebuilds the intercepted request as an absolute one
// against the API origin for API paths and the app origin for the rest.
func (gw *gateway) buildUpstreamRequest(req *http.Request) (*http.Request, error) {
	origin := gw.appOrigin
	if strings.HasPrefix(req.URL.Path, "/api/") {
		origin = gw.apiOrigin
	}

	target := origin + req.URL.Path
	if req.URL.RawQuery != "" {
		target += "?" + req.URL.RawQuery
	}

	upstream, err := http.NewRequest(req.Method, target, req.Body)
	if err != nil {
		return nil, err
	}
	upstream.Header = req.Header.Clone()
	return upstream, nil
}

func writeResponse(ctx echo.Context, resp *http.Response) error {
	header := ctx.Response().Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	ctx.Response().WriteHeader(resp.StatusCode)
	_, err := io.Copy(ctx.Response(), resp.Body)
	return err
}
