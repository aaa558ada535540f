package notifysvc

import (
	"testing"

	"github.com/protextify/edge/core/notify"
)

func Test_consoleChannel_Deliver(t *testing.T) {
	ClearSentPayloads()
	ch := NewConsoleChannelMock("Protextify Edge")

	p := notify.ParsePayload([]byte(`{"title":"Tugas baru","tag":"assignment-3"}`))
	if err := ch.Deliver(p); err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(SentPayloads) != 1 {
		t.Fatalf("SentPayloads holds %d payloads, want 1", len(SentPayloads))
	}
	if SentPayloads[0].Title != "Tugas baru" || SentPayloads[0].Tag != "assignment-3" {
		t.Errorf("recorded payload = %+v", SentPayloads[0])
	}
}
