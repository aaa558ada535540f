package echoedge

import (
	"io/ioutil"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/lifecycle"
	"github.com/protextify/edge/core/notify"
	"github.com/protextify/edge/core/outbox"
	"github.com/protextify/edge/core/worker"
)

// controlApi exposes the engine's own endpoints: sync triggers, push
// delivery, notification clicks and health.
type controlApi struct {
	worker     *worker.Worker
	lifecycle  *lifecycle.Controller
	outbox     *outbox.Service
	notify     *notify.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerControlAPI(g *echo.Group, deps ServerDeps) {
	api := controlApi{
		worker:     deps.Worker,
		lifecycle:  deps.Lifecycle,
		outbox:     deps.Outbox,
		notify:     deps.Notify,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	g.POST("/sync", api.sync)
	g.POST("/push", api.push)
	g.POST("/notification-click", api.notificationClick)
	g.GET("/healthz", api.healthz)
}

type syncTrigger struct {
	Tag string `json:"tag" validate:"required,synctag"`
}

func (t *syncTrigger) Validate(validate *validator.Validate) error {
	if err := validate.Struct(t); err != nil {
		return err
	}
	return nil
}

// Handlers

func (api *controlApi) sync(ctx echo.Context) error {
	var data syncTrigger
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to syncTrigger")
	}
	data.Tag = core.CleanString(data.Tag)
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.worker.HandleSync(ctx.Request().Context(), worker.SyncEvent{Tag: data.Tag}); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"replayed": true})
}

func (api *controlApi) push(ctx echo.Context) error {
	data, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading push payload")
	}
	payload := api.worker.HandlePush(worker.PushEvent{Data: data})
	return ctx.JSON(http.StatusOK, payload)
}

type notificationClick struct {
	Action string `json:"action"`
}

func (api *controlApi) notificationClick(ctx echo.Context) error {
	var data notificationClick
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to notificationClick")
	}
	url := api.notify.HandleClick(data.Action)
	return ctx.JSON(http.StatusOK, echo.Map{"url": url})
}

func (api *controlApi) healthz(ctx echo.Context) error {
	items, err := api.outbox.Items(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading queue depth")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"status":     "ok",
		"state":      api.lifecycle.State().String(),
		"queueDepth": len(items),
	})
}
