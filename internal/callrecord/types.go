package callrecord

import (
	"context"
	"time"
)

// TurnRecord stores a single caller or agent line from one call.
type TurnRecord struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	Role      string    `json:"role"`
	Stage     string    `json:"stage"`
	Content   string    `json:"content"`
	Redacted  bool      `json:"redacted"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingRecord stores the confirmed slot for one call.
type BookingRecord struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	LeadName  string    `json:"lead_name"`
	LeadPhone string    `json:"lead_phone"`
	Slot      string    `json:"slot"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists call transcripts and booking outcomes for audit. It is an
// append-only log, not session state: the conversation never reads it back.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	SaveBooking(ctx context.Context, record BookingRecord) error
	Transcript(ctx context.Context, callID string, limit int) ([]TurnRecord, error)
	Close() error
}
