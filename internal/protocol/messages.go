package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// InteractionType identifies inbound websocket event variants from the
// calling platform.
type InteractionType string

const (
	InteractionResponseRequired InteractionType = "response_required"
	InteractionReminderRequired InteractionType = "reminder_required"
	InteractionUpdateOnly       InteractionType = "update_only"
	InteractionCallDetails      InteractionType = "call_details"
	InteractionPingPong         InteractionType = "ping_pong"
)

// Server-pushed response_type values.
const (
	ResponseTypeConfig   = "config"
	ResponseTypeResponse = "response"
)

var ErrMissingInteractionType = errors.New("missing interaction_type")

// TranscriptTurn is one prior line of the call, as reported by the platform.
type TranscriptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnEvent is an inbound websocket event. Only events whose interaction
// type requires a response drive the engine; the rest are status traffic.
type TurnEvent struct {
	InteractionType InteractionType  `json:"interaction_type"`
	ResponseID      int              `json:"response_id"`
	Transcript      []TranscriptTurn `json:"transcript"`
}

// RequiresResponse reports whether the platform expects an agent reply for
// this event.
func (e TurnEvent) RequiresResponse() bool {
	return e.InteractionType == InteractionResponseRequired ||
		e.InteractionType == InteractionReminderRequired
}

// ConfigEvent is the first server-to-client message on every connection.
type ConfigEvent struct {
	ResponseType string        `json:"response_type"`
	Config       ConfigPayload `json:"config"`
}

type ConfigPayload struct {
	AutoReconnect bool `json:"auto_reconnect"`
	CallDetails   bool `json:"call_details"`
}

func NewConfigEvent() ConfigEvent {
	return ConfigEvent{
		ResponseType: ResponseTypeConfig,
		Config:       ConfigPayload{AutoReconnect: true},
	}
}

// ResponseEvent carries one agent reply, tagged with the correlation id the
// counterparty supplied so out-of-order delivery can still be matched.
type ResponseEvent struct {
	ResponseType    string `json:"response_type"`
	ResponseID      int    `json:"response_id"`
	Content         string `json:"content"`
	ContentComplete bool   `json:"content_complete"`
	EndCall         bool   `json:"end_call"`
}

func NewResponseEvent(responseID int, content string, endCall bool) ResponseEvent {
	return ResponseEvent{
		ResponseType:    ResponseTypeResponse,
		ResponseID:      responseID,
		Content:         content,
		ContentComplete: true,
		EndCall:         endCall,
	}
}

// ParseClientMessage decodes an inbound websocket payload. Payloads without
// an interaction_type and unparseable JSON are reported as errors for the
// caller to drop.
func ParseClientMessage(raw []byte) (TurnEvent, error) {
	var event TurnEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return TurnEvent{}, fmt.Errorf("invalid event payload: %w", err)
	}
	if event.InteractionType == "" {
		return TurnEvent{}, ErrMissingInteractionType
	}
	return event, nil
}

// LastUserUtterance returns the content of the most recent caller turn, or
// an empty string when the transcript holds none.
func LastUserUtterance(transcript []TranscriptTurn) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == "user" {
			return strings.TrimSpace(transcript[i].Content)
		}
	}
	return ""
}
