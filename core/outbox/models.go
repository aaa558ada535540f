package outbox

import "time"

// Item is an unsent mutation captured while offline, e.g. a submission
// content auto-save. Items are immutable once enqueued; they are removed
// only after a confirmed successful replay, never mutated in place.
type Item struct {
	ID         string    `json:"id"`
	Resource   string    `json:"resource"`
	Endpoint   string    `json:"endpoint"`
	Payload    []byte    `json:"payload"`
	AuthToken  string    `json:"authToken"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
