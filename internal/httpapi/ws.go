package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/venturebnb/concierge/internal/protocol"
)

// handleStream is the persistent transport: one websocket connection per
// phone call, keyed by the call id from the path, a query parameter, or a
// freshly generated identifier.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	callID := resolveCallID(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := s.sessions.GetOrCreate(callID)
	s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	log.Info().Str("call_id", callID).Msg("call connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				s.metrics.WSMessages.WithLabelValues("outbound", outboundType(msg)).Inc()
			}
		}
	}()

	send := func(msg any) {
		select {
		case outbound <- msg:
		case <-ctx.Done():
		}
	}

	// Handshake first, then arm the one-shot greeting for the case where
	// the platform never prompts an opening turn.
	send(protocol.NewConfigEvent())

	var greetMu sync.Mutex
	greetDisarmed := false
	greetTimer := time.AfterFunc(s.cfg.GreetingDelay, func() {
		greetMu.Lock()
		if greetDisarmed {
			greetMu.Unlock()
			return
		}
		greetDisarmed = true
		greetMu.Unlock()

		turn := s.advance(sess, "", "ws")
		send(protocol.NewResponseEvent(0, turn.Reply, turn.EndCall))
	})
	defer greetTimer.Stop()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		event, err := protocol.ParseClientMessage(data)
		if err != nil {
			// Malformed payloads are dropped; the call goes on.
			log.Debug().Err(err).Str("call_id", callID).Msg("dropping unparseable event")
			continue
		}
		s.metrics.WSMessages.WithLabelValues("inbound", string(event.InteractionType)).Inc()

		if !event.RequiresResponse() {
			continue
		}

		greetMu.Lock()
		greetDisarmed = true
		greetMu.Unlock()
		greetTimer.Stop()

		turn := s.advance(sess, protocol.LastUserUtterance(event.Transcript), "ws")
		send(protocol.NewResponseEvent(event.ResponseID, turn.Reply, turn.EndCall))
	}

	cancel()
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	log.Info().Str("call_id", callID).Msg("call disconnected")
}

// resolveCallID extracts the session key for a streaming connection: path
// segment, then call_id or id query parameters, then a generated id.
func resolveCallID(r *http.Request) string {
	if id := strings.TrimSpace(chi.URLParam(r, "call_id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("call_id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		return id
	}
	return uuid.NewString()
}

func outboundType(msg any) string {
	switch msg.(type) {
	case protocol.ConfigEvent:
		return protocol.ResponseTypeConfig
	case protocol.ResponseEvent:
		return protocol.ResponseTypeResponse
	default:
		return "unknown"
	}
}
