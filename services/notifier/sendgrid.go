package notifysvc

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/notify"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// sendgridChannel forwards notifications to the operator mailbox. Pushes
// that matter when nobody is watching the logs (payment confirmations,
// plagiarism results) land in email too.
type sendgridChannel struct {
	key        string
	from       *sgmail.Email
	to         *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ notify.Channel = (*sendgridChannel)(nil)

func NewSendgridChannel(logger core.Logger, conf *core.Config) notify.Channel {
	from := conf.DefaultFromEmailAddr()
	return &sendgridChannel{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		to:         sgmail.NewEmail("", conf.NotifyEmail),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (ch sendgridChannel) Deliver(p notify.Payload) error {
	req := sendgrid.GetRequest(ch.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(ch.prepare(p))

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sending notification email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending notification email - status: %d - Body: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (ch sendgridChannel) prepare(p notify.Payload) *sgmail.SGMailV3 {
	pers := sgmail.NewPersonalization()
	pers.Subject = ch.subjPrefix + p.Title
	pers.AddTos(ch.to)

	m := sgmail.NewV3Mail()
	m.SetFrom(ch.from)
	m.AddPersonalizations(pers)
	m.AddContent(
		sgmail.NewContent("text/plain", fmt.Sprintf("%s\n\nTag: %s", p.Body, p.Tag)),
	)
	return m
}
