package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/venturebnb/concierge/internal/protocol"
	"github.com/venturebnb/concierge/internal/session"
)

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", path, err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var out map[string]any
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read event error = %v", err)
	}
	return out
}

func TestStreamSendsConfigHandshakeFirst(t *testing.T) {
	srv, _, _ := newTestServer(t, "ws_config")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dialWS(t, ts, "/retell-llm/call-1")
	defer conn.Close()

	event := readEvent(t, conn)
	if event["response_type"] != "config" {
		t.Fatalf("first event = %v, want config handshake", event)
	}
}

func TestStreamGreetsSilentCounterparty(t *testing.T) {
	srv, store, _ := newTestServer(t, "ws_greet")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dialWS(t, ts, "/retell-llm/call-greet")
	defer conn.Close()

	readEvent(t, conn) // config
	event := readEvent(t, conn)
	if event["response_type"] != "response" {
		t.Fatalf("event = %v, want greeting response", event)
	}
	if event["response_id"] != float64(0) {
		t.Fatalf("response_id = %v, want 0 for the unprompted greeting", event["response_id"])
	}
	content, _ := event["content"].(string)
	if !strings.Contains(content, "concierge assistant") {
		t.Fatalf("content = %q, want greeting line", content)
	}
	if store.GetOrCreate("call-greet").Stage != session.StageIntroWait {
		t.Fatalf("greeting should advance the session to intro_wait")
	}
}

func TestStreamTurnEchoesResponseID(t *testing.T) {
	srv, _, _ := newTestServer(t, "ws_turn")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dialWS(t, ts, "/retell-llm/call-turn")
	defer conn.Close()
	readEvent(t, conn) // config

	// Prompt a turn before the greeting timer fires.
	err := conn.WriteJSON(protocol.TurnEvent{
		InteractionType: protocol.InteractionResponseRequired,
		ResponseID:      1,
		Transcript:      nil,
	})
	if err != nil {
		t.Fatalf("write turn event: %v", err)
	}

	event := readEvent(t, conn)
	if event["response_id"] != float64(1) {
		t.Fatalf("response_id = %v, want echo of 1", event["response_id"])
	}
	if event["content_complete"] != true {
		t.Fatalf("content_complete = %v, want true", event["content_complete"])
	}

	// The greeting timer is disarmed: no unsolicited second reply shows up.
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra map[string]any
	if err := conn.ReadJSON(&extra); err == nil {
		t.Fatalf("unexpected extra event after disarm: %v", extra)
	}
}

func TestStreamIgnoresStatusAndMalformedTraffic(t *testing.T) {
	srv, _, _ := newTestServer(t, "ws_ignore")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dialWS(t, ts, "/retell-llm/call-noise")
	defer conn.Close()
	readEvent(t, conn) // config

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{broken`)); err != nil {
		t.Fatalf("write malformed: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"interaction_type": "update_only"}); err != nil {
		t.Fatalf("write update_only: %v", err)
	}
	if err := conn.WriteJSON(protocol.TurnEvent{
		InteractionType: protocol.InteractionResponseRequired,
		ResponseID:      5,
		Transcript: []protocol.TranscriptTurn{
			{Role: "user", Content: "hello"},
		},
	}); err != nil {
		t.Fatalf("write turn: %v", err)
	}

	// The first reply is for response_id 5: noise neither answered nor
	// closed the connection.
	event := readEvent(t, conn)
	if event["response_id"] != float64(5) {
		t.Fatalf("response_id = %v, want 5", event["response_id"])
	}
}

func TestStreamResolvesCallIDFromQuery(t *testing.T) {
	srv, store, _ := newTestServer(t, "ws_query")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dialWS(t, ts, "/retell-llm?call_id=query-call")
	defer conn.Close()
	readEvent(t, conn) // config

	if store.GetOrCreate("query-call").Key != "query-call" {
		t.Fatalf("expected session keyed by query parameter")
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
}

func TestStreamAndHTTPShareOneSession(t *testing.T) {
	srv, store, dispatcher := newTestServer(t, "ws_mixed")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dialWS(t, ts, "/retell-llm/mixed-call")
	readEvent(t, conn) // config

	// Walk to pick_time over the websocket.
	for i, utterance := range []string{"", "yes I got it", "close enough", "sure"} {
		if err := conn.WriteJSON(protocol.TurnEvent{
			InteractionType: protocol.InteractionResponseRequired,
			ResponseID:      i + 1,
			Transcript: []protocol.TranscriptTurn{
				{Role: "user", Content: utterance},
			},
		}); err != nil {
			t.Fatalf("write turn %d: %v", i, err)
		}
		readEvent(t, conn)
	}
	conn.Close()
	if got := store.GetOrCreate("mixed-call").Stage; got != session.StagePickTime {
		t.Fatalf("Stage after ws turns = %q, want %q", got, session.StagePickTime)
	}

	// The same call id over HTTP resumes the same conversation.
	payload, _ := json.Marshal(map[string]any{
		"conversation_id": "mixed-call",
		"messages": []map[string]string{
			{"role": "user", "content": "tomorrow at 2"},
		},
	})
	res, err := http.Post(ts.URL+"/retell-llm", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	res.Body.Close()

	sess := store.GetOrCreate("mixed-call")
	if sess.Stage != session.StageConfirm {
		t.Fatalf("Stage after http turn = %q, want %q", sess.Stage, session.StageConfirm)
	}
	if sess.ChosenSlot != "Tomorrow 2:00 PM" {
		t.Fatalf("ChosenSlot = %q", sess.ChosenSlot)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("dispatch count = %d, want 1", dispatcher.count())
	}
}
