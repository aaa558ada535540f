package notify

import "encoding/json"

// Notification actions.
const (
	ActionOpen  = "open"
	ActionClose = "close"
)

// Defaults substituted when a push message carries no (or unreadable) data.
const (
	DefaultTitle = "Protextify"
	DefaultBody  = "Notifikasi baru dari Protextify"
	DefaultTag   = "protextify"
)

type (
	// Action is a button attached to a displayed notification.
	Action struct {
		Action string `json:"action"`
		Title  string `json:"title"`
	}

	// Payload is a parsed push message. It is ephemeral: it exists only
	// for the duration of display and the resulting click dispatch.
	Payload struct {
		Title   string   `json:"title"`
		Body    string   `json:"body"`
		Tag     string   `json:"tag"`
		Actions []Action `json:"actions"`
	}
)

func defaultActions() []Action {
	return []Action{
		{Action: ActionOpen, Title: "Buka"},
		{Action: ActionClose, Title: "Tutup"},
	}
}

// ParsePayload turns a raw push message into a displayable Payload.
// Parse failures never block display: unreadable JSON falls back to the
// default message, plain text becomes the body, and missing fields are
// filled with defaults.
func ParsePayload(data []byte) Payload {
	p := Payload{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			p = Payload{Body: string(data)}
		}
	}

	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Body == "" {
		p.Body = DefaultBody
	}
	if p.Tag == "" {
		p.Tag = DefaultTag
	}
	if len(p.Actions) == 0 {
		p.Actions = defaultActions()
	}
	return p
}
