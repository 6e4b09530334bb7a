package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/venturebnb/concierge/internal/config"
	"github.com/venturebnb/concierge/internal/engine"
	"github.com/venturebnb/concierge/internal/observability"
	"github.com/venturebnb/concierge/internal/protocol"
	"github.com/venturebnb/concierge/internal/session"
)

// Server exposes the conversation engine over both transports: a stateless
// HTTP turn endpoint and a persistent websocket, sharing one session store.
type Server struct {
	cfg        config.Config
	sessions   session.Store
	engine     *engine.Engine
	metrics    *observability.Metrics
	turnWindow *observability.TurnWindow
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, sessions session.Store, eng *engine.Engine, metrics *observability.Metrics, turnWindow *observability.TurnWindow) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		engine:     eng,
		metrics:    metrics,
		turnWindow: turnWindow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// The calling platform connects server-to-server and
					// sends no Origin. Allow it.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(s.cfg.CompanyName + " concierge LLM up"))
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/turns", s.handlePerfTurns)

	r.Get("/retell-llm", s.handleBase)
	r.Post("/retell-llm", s.handleTurn)
	r.Get("/retell-llm/{call_id}", s.handleStream)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"booking_webhook": s.cfg.BookingWebhookURL != "",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handlePerfTurns(w http.ResponseWriter, _ *http.Request) {
	if s.turnWindow == nil {
		respondJSON(w, http.StatusOK, observability.TurnSnapshot{})
		return
	}
	respondJSON(w, http.StatusOK, s.turnWindow.Snapshot())
}

// handleBase serves the bare conversation path: websocket clients without a
// call id segment get upgraded, everything else gets a quick health hint.
func (s *Server) handleBase(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.handleStream(w, r)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"hint": "POST here with messages[]",
	})
}

type callee struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type turnRequest struct {
	ConversationID string                    `json:"conversation_id"`
	CallID         string                    `json:"call_id"`
	Messages       []protocol.TranscriptTurn `json:"messages"`
	Callee         callee                    `json:"callee"`
}

// turnResponse repeats the reply and end flag under every key the various
// platform parsers look for.
type turnResponse struct {
	Response string `json:"response"`
	Reply    string `json:"reply"`
	Content  string `json:"content"`
	Text     string `json:"text"`
	EndCall  bool   `json:"end_call"`
	Hangup   bool   `json:"hangup"`
	HangUp   bool   `json:"hang_up"`
}

// handleTurn is the stateless transport: one POST per turn, session resumed
// by the conversation identifier.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if r.Body != nil {
		defer r.Body.Close()
		// An empty body is a valid first turn against the fallback session;
		// only genuinely malformed JSON is rejected.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON turn payload")
			return
		}
	}

	key := strings.TrimSpace(req.ConversationID)
	if key == "" {
		key = strings.TrimSpace(req.CallID)
	}
	if key == "" {
		key = "unknown"
	}

	sess := s.sessions.GetOrCreate(key)
	sess.MergeLead(strings.TrimSpace(req.Callee.Name), strings.TrimSpace(req.Callee.Phone))
	s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))

	turn := s.advance(sess, protocol.LastUserUtterance(req.Messages), "http")

	respondJSON(w, http.StatusOK, turnResponse{
		Response: turn.Reply,
		Reply:    turn.Reply,
		Content:  turn.Reply,
		Text:     turn.Reply,
		EndCall:  turn.EndCall,
		Hangup:   turn.EndCall,
		HangUp:   turn.EndCall,
	})
}

// advance runs one engine turn with latency accounting shared by both
// transports.
func (s *Server) advance(sess *session.Session, utterance, transport string) engine.Turn {
	start := time.Now()
	turn := s.engine.Advance(sess, utterance)
	elapsed := time.Since(start)

	s.metrics.Turns.WithLabelValues(transport, string(turn.Stage)).Inc()
	s.metrics.ObserveTurnLatency(elapsed)
	if s.turnWindow != nil {
		s.turnWindow.Observe(string(turn.Stage), elapsed)
	}
	log.Debug().
		Str("call_id", sess.Key).
		Str("transport", transport).
		Str("stage", string(turn.Stage)).
		Bool("end_call", turn.EndCall).
		Msg("turn advanced")
	return turn
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
