// Package notify turns inbound push messages into user-visible
// notifications and routes notification clicks back into the application.
package notify

import (
	"github.com/protextify/edge/core"
)

type (
	// Channel is any service that can display a notification to the user.
	Channel interface {
		Deliver(p Payload) error
	}

	// Service dispatches push events to every configured channel. It has
	// no persistent state; each push is handled independently and
	// duplicate pushes simply show duplicate notifications.
	Service struct {
		channels []Channel
		logger   core.Logger
		appURL   string
	}
)

func NewService(logger core.Logger, conf *core.Config, channels ...Channel) *Service {
	return &Service{
		channels: channels,
		logger:   logger,
		appURL:   conf.FrontendBaseURL,
	}
}

// HandlePush parses a push message and displays it on every channel.
// Delivery failures are logged per channel and never block the others.
func (svc *Service) HandlePush(data []byte) Payload {
	p := ParsePayload(data)
	for _, ch := range svc.channels {
		if err := ch.Deliver(p); err != nil {
			svc.logger.Error("delivering notification "+p.Tag+" failed", err)
		}
	}
	return p
}

// HandleClick resolves a notification click to the URL the application
// should open or focus. The open action and the default click both target
// the application root; close is a no-op and yields an empty URL.
func (svc *Service) HandleClick(action string) string {
	if action == ActionClose {
		return ""
	}
	return svc.appURL
}
