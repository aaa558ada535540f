package notify

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/protextify/edge/core"
	testutil "github.com/protextify/edge/tests"
)

type recordingChannel struct {
	delivered []Payload
	err       error
}

func (ch *recordingChannel) Deliver(p Payload) error {
	ch.delivered = append(ch.delivered, p)
	return ch.err
}

func newTestService(channels ...Channel) *Service {
	conf := &core.Config{FrontendBaseURL: "https://app.protextify.com"}
	return NewService(&testutil.Logger{}, conf, channels...)
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Payload
	}{
		{
			name: "empty message falls back to defaults",
			data: nil,
			want: Payload{Title: "Protextify", Body: "Notifikasi baru dari Protextify", Tag: "protextify", Actions: defaultActions()},
		},
		{
			name: "full json",
			data: []byte(`{"title":"Tugas baru","body":"Essay Bahasa Indonesia","tag":"assignment-12"}`),
			want: Payload{Title: "Tugas baru", Body: "Essay Bahasa Indonesia", Tag: "assignment-12", Actions: defaultActions()},
		},
		{
			name: "partial json fills missing fields",
			data: []byte(`{"body":"Nilai sudah keluar"}`),
			want: Payload{Title: "Protextify", Body: "Nilai sudah keluar", Tag: "protextify", Actions: defaultActions()},
		},
		{
			name: "plain text becomes the body",
			data: []byte("Deadline besok!"),
			want: Payload{Title: "Protextify", Body: "Deadline besok!", Tag: "protextify", Actions: defaultActions()},
		},
		{
			name: "custom actions preserved",
			data: []byte(`{"body":"x","actions":[{"action":"open","title":"Lihat"}]}`),
			want: Payload{Title: "Protextify", Body: "x", Tag: "protextify", Actions: []Action{{Action: "open", Title: "Lihat"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePayload(tt.data); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePayload() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHandlePushDeliversToAllChannels(t *testing.T) {
	first := &recordingChannel{}
	second := &recordingChannel{err: errors.New("smtp down")}
	third := &recordingChannel{}
	svc := newTestService(first, second, third)

	p := svc.HandlePush([]byte(`{"body":"Nilai sudah keluar"}`))
	if p.Body != "Nilai sudah keluar" {
		t.Errorf("returned payload body = %q", p.Body)
	}
	for i, ch := range []*recordingChannel{first, second, third} {
		if len(ch.delivered) != 1 {
			t.Errorf("channel %d received %d notifications, want 1", i, len(ch.delivered))
		}
	}
}

func TestHandlePushIsIdempotentPerEvent(t *testing.T) {
	ch := &recordingChannel{}
	svc := newTestService(ch)

	svc.HandlePush([]byte(`{"tag":"assignment-12"}`))
	svc.HandlePush([]byte(`{"tag":"assignment-12"}`))

	// no deduplication is attempted: duplicate pushes show duplicates
	if len(ch.delivered) != 2 {
		t.Errorf("delivered %d notifications, want 2", len(ch.delivered))
	}
}

func TestHandleClick(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name   string
		action string
		want   string
	}{
		{name: "open focuses app root", action: ActionOpen, want: "https://app.protextify.com"},
		{name: "default click opens app root", action: "", want: "https://app.protextify.com"},
		{name: "close is a no-op", action: ActionClose, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.HandleClick(tt.action); got != tt.want {
				t.Errorf("HandleClick(%q) = %q, want %q", tt.action, got, tt.want)
			}
		})
	}
}
