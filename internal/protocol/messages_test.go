package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageResponseRequired(t *testing.T) {
	raw := []byte(`{
		"interaction_type": "response_required",
		"response_id": 3,
		"transcript": [
			{"role": "agent", "content": "Did you get the text?"},
			{"role": "user", "content": "yes I did"}
		]
	}`)

	event, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if !event.RequiresResponse() {
		t.Fatalf("response_required should require a response")
	}
	if event.ResponseID != 3 {
		t.Fatalf("ResponseID = %d, want 3", event.ResponseID)
	}
	if got := LastUserUtterance(event.Transcript); got != "yes I did" {
		t.Fatalf("LastUserUtterance() = %q, want %q", got, "yes I did")
	}
}

func TestParseClientMessageStatusTraffic(t *testing.T) {
	for _, it := range []string{"update_only", "call_details", "ping_pong"} {
		event, err := ParseClientMessage([]byte(`{"interaction_type": "` + it + `"}`))
		if err != nil {
			t.Fatalf("ParseClientMessage(%s) error = %v", it, err)
		}
		if event.RequiresResponse() {
			t.Fatalf("%s must not require a response", it)
		}
	}
}

func TestParseClientMessageRejectsMalformed(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("malformed JSON should error")
	}
	if _, err := ParseClientMessage([]byte(`{"response_id": 1}`)); !errors.Is(err, ErrMissingInteractionType) {
		t.Fatalf("missing interaction_type error = %v, want ErrMissingInteractionType", err)
	}
}

func TestLastUserUtterancePicksMostRecent(t *testing.T) {
	transcript := []TranscriptTurn{
		{Role: "user", Content: "first"},
		{Role: "agent", Content: "reply"},
		{Role: "user", Content: "  second  "},
	}
	if got := LastUserUtterance(transcript); got != "second" {
		t.Fatalf("LastUserUtterance() = %q, want %q", got, "second")
	}
	if got := LastUserUtterance(nil); got != "" {
		t.Fatalf("LastUserUtterance(nil) = %q, want empty", got)
	}
}

func TestResponseEventShape(t *testing.T) {
	event := NewResponseEvent(7, "see you thursday", true)
	if event.ResponseType != ResponseTypeResponse {
		t.Fatalf("ResponseType = %q, want %q", event.ResponseType, ResponseTypeResponse)
	}
	if !event.ContentComplete {
		t.Fatalf("ContentComplete should always be true for whole-turn replies")
	}
	if !event.EndCall || event.ResponseID != 7 {
		t.Fatalf("unexpected event: %+v", event)
	}
}
