package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Request carries the lead identity and chosen slot for one booking.
type Request struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Slot           string `json:"slot"`
	ConversationID string `json:"conversation_id"`
}

// Dispatcher issues the one outbound booking notification per session.
type Dispatcher interface {
	Dispatch(req Request)
}

// WebhookDispatcher POSTs bookings to an operator-configured webhook. The
// attempt is fire-and-forget: it runs detached from the turn that triggered
// it, makes no retries, and swallows every failure. An empty URL disables
// dispatch entirely.
type WebhookDispatcher struct {
	url     string
	client  *http.Client
	observe func(outcome string)
	wg      sync.WaitGroup
}

func NewWebhookDispatcher(url string, timeout time.Duration, observe func(outcome string)) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if observe == nil {
		observe = func(string) {}
	}
	return &WebhookDispatcher{
		url:     strings.TrimSpace(url),
		client:  &http.Client{Timeout: timeout},
		observe: observe,
	}
}

func (d *WebhookDispatcher) Dispatch(req Request) {
	if d.url == "" {
		d.observe("disabled")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(req)
	}()
}

// Wait blocks until in-flight dispatches finish. Called on shutdown so a
// booking fired on the final turn is not cut off mid-request.
func (d *WebhookDispatcher) Wait() {
	d.wg.Wait()
}

func (d *WebhookDispatcher) send(req Request) {
	payload, err := json.Marshal(req)
	if err != nil {
		d.observe("error")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.client.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		d.observe("error")
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := d.client.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).Str("conversation_id", req.ConversationID).Msg("booking webhook unreachable")
		d.observe("error")
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.Debug().Int("status", res.StatusCode).Str("conversation_id", req.ConversationID).Msg("booking webhook rejected")
		d.observe("rejected")
		return
	}
	log.Info().Str("conversation_id", req.ConversationID).Str("slot", req.Slot).Msg("booking dispatched")
	d.observe("ok")
}
