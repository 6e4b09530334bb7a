package app

import (
	"context"
	"fmt"

	"github.com/venturebnb/concierge/internal/booking"
	"github.com/venturebnb/concierge/internal/callrecord"
	"github.com/venturebnb/concierge/internal/config"
	"github.com/venturebnb/concierge/internal/engine"
	"github.com/venturebnb/concierge/internal/httpapi"
	"github.com/venturebnb/concierge/internal/observability"
	"github.com/venturebnb/concierge/internal/session"
)

// BuildResult holds every wired component of the service.
type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Sessions   *session.MemoryStore
	Engine     *engine.Engine
	Dispatcher *booking.WebhookDispatcher
	Records    callrecord.Store
	Metrics    *observability.Metrics
	TurnWindow *observability.TurnWindow

	// Cleanup should be called on shutdown: it waits for in-flight booking
	// dispatches and releases the record store.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	turnWindow := observability.NewTurnWindow(256)

	records, err := callrecord.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("call record store init failed: %w", err)
	}

	dispatcher := booking.NewWebhookDispatcher(cfg.BookingWebhookURL, cfg.BookingTimeout, func(outcome string) {
		metrics.BookingDispatches.WithLabelValues(outcome).Inc()
	})

	sessions := session.NewMemoryStore(session.Defaults{
		OfferA: cfg.OfferSlotA,
		OfferB: cfg.OfferSlotB,
	}, cfg.SessionTTL)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.Len()))
	})

	eng := engine.New(dispatcher, records, engine.Options{
		CompanyName:       cfg.CompanyName,
		RedactTranscripts: cfg.RedactTranscripts,
	})

	api := httpapi.New(cfg, sessions, eng, metrics, turnWindow)

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Sessions:   sessions,
		Engine:     eng,
		Dispatcher: dispatcher,
		Records:    records,
		Metrics:    metrics,
		TurnWindow: turnWindow,
		Cleanup: func() error {
			dispatcher.Wait()
			return records.Close()
		},
	}, nil
}
