package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stage is the current step in the fixed conversational script.
type Stage string

const (
	StageIntro     Stage = "intro"
	StageIntroWait Stage = "intro_wait"
	StageCompare   Stage = "compare"
	StageOffer     Stage = "offer"
	StagePickTime  Stage = "pick_time"
	StageConfirm   Stage = "confirm"
	StageDone      Stage = "done"
)

// Lead holds caller identity fields. Both are write-once-if-absent.
type Lead struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Session is the mutable state of one ongoing conversation. The engine holds
// the session lock for the duration of a turn; concurrent turns against the
// same key serialize rather than corrupt.
type Session struct {
	mu sync.Mutex

	Key        string
	Stage      Stage
	Lead       Lead
	OfferA     string
	OfferB     string
	ChosenSlot string

	booked     bool
	StartedAt  time.Time
	lastActive atomic.Int64
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// MergeLead fills in caller identity fields that are still empty. It never
// overwrites a value learned on an earlier turn. Unlike the other mutators
// it is called from the transport adapters outside a turn, so it takes the
// session lock itself.
func (s *Session) MergeLead(name, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" && s.Lead.Name == "" {
		s.Lead.Name = name
	}
	if phone != "" && s.Lead.Phone == "" {
		s.Lead.Phone = phone
	}
}

// ChooseSlot records the chosen slot if none is set and reports whether this
// call was the one that set it. The caller must hold the session lock.
func (s *Session) ChooseSlot(slot string) bool {
	if s.ChosenSlot != "" {
		return false
	}
	s.ChosenSlot = slot
	return true
}

// MarkBooked latches the booking side effect and reports whether this call
// won the latch. At most one caller ever sees true.
func (s *Session) MarkBooked() bool {
	if s.booked {
		return false
	}
	s.booked = true
	return true
}

func (s *Session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastActive.Load()))
}
