package notifysvc

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/protextify/edge/core/notify"
)

var (
	SentPayloads = make([]notify.Payload, 0)
	mu           sync.Mutex
)

// consoleChannel prints notifications to the log. It is the DEV and TEST
// delivery channel.
type consoleChannel struct {
	appName       string
	disableOutput bool
}

var _ notify.Channel = (*consoleChannel)(nil)

func NewConsoleChannel(appName string) notify.Channel {
	return &consoleChannel{appName: appName}
}

func (ch consoleChannel) Deliver(p notify.Payload) error {
	mu.Lock()
	SentPayloads = append(SentPayloads, p)
	mu.Unlock()

	if ch.disableOutput {
		return nil
	}

	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "[%s] %s\r\n", ch.appName, p.Title)
	_, _ = fmt.Fprintf(body, "Tag: %s\r\n", p.Tag)
	_, _ = fmt.Fprintf(body, "%s\r\n", p.Body)
	for _, a := range p.Actions {
		_, _ = fmt.Fprintf(body, "[%s] %s\r\n", a.Action, a.Title)
	}
	log.Println(body.String())
	return nil
}

func NewConsoleChannelMock(appName string) notify.Channel {
	return &consoleChannel{appName: appName, disableOutput: true}
}

// ClearSentPayloads resets the recorded notifications between tests.
func ClearSentPayloads() {
	mu.Lock()
	SentPayloads = SentPayloads[:0]
	mu.Unlock()
}
