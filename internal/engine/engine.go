package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/venturebnb/concierge/internal/booking"
	"github.com/venturebnb/concierge/internal/callrecord"
	"github.com/venturebnb/concierge/internal/intent"
	"github.com/venturebnb/concierge/internal/policy"
	"github.com/venturebnb/concierge/internal/session"
)

// Turn is one computed agent reply.
type Turn struct {
	Reply   string
	EndCall bool
	Stage   session.Stage
}

// Options tune conversation behavior shared by both transports.
type Options struct {
	CompanyName       string
	RedactTranscripts bool
}

// Engine is the stage transition machine. One instance serves every session
// and both transports; per-turn state lives entirely in the session.
type Engine struct {
	dispatcher booking.Dispatcher
	records    callrecord.Store
	opts       Options
}

func New(dispatcher booking.Dispatcher, records callrecord.Store, opts Options) *Engine {
	if opts.CompanyName == "" {
		opts.CompanyName = "Venturebnb"
	}
	return &Engine{
		dispatcher: dispatcher,
		records:    records,
		opts:       opts,
	}
}

// Advance runs one conversational turn: classify the utterance against the
// current stage, move the session forward, and produce the next agent line.
// It is total: every stage and input combination yields a reply, unmatched
// input degrades to a re-prompt or a closing line. The only side effects are
// the session mutation, the at-most-once booking dispatch, and best-effort
// call recording that never gates the reply.
func (e *Engine) Advance(sess *session.Session, utterance string) Turn {
	sess.Lock()
	heardAt := sess.Stage
	turn := e.advanceLocked(sess, utterance)
	callID := sess.Key
	sess.Unlock()

	if utterance != "" {
		e.recordTurn(callID, "user", string(heardAt), utterance)
	}
	e.recordTurn(callID, "agent", string(turn.Stage), turn.Reply)

	return turn
}

func (e *Engine) advanceLocked(sess *session.Session, utterance string) Turn {
	in := intent.Classify(sess.Stage, utterance)

	var (
		reply string
		end   bool
	)

	switch sess.Stage {
	case session.StageIntro:
		reply = replyGreeting(e.opts.CompanyName, sess.Lead.Name)
		sess.Stage = session.StageIntroWait

	case session.StageIntroWait:
		switch in {
		case intent.Affirm:
			reply = replyCompare
			sess.Stage = session.StageCompare
		case intent.Deny:
			reply = replyResend
			sess.Stage = session.StageCompare
		default:
			reply = replyReask
		}

	case session.StageCompare:
		reply = replyPitch
		sess.Stage = session.StageOffer

	case session.StageOffer:
		switch in {
		case intent.Affirm:
			reply = replyOfferSlots(sess.OfferA, sess.OfferB)
			sess.Stage = session.StagePickTime
		case intent.Deny:
			reply = replyDecline
			sess.Stage = session.StageDone
			end = true
		default:
			reply = replyPeriodProbe
		}

	case session.StagePickTime:
		// Morning maps to the B slot and afternoon/evening to the A slot.
		// The asymmetry is inherited from the production script.
		var slot string
		switch in {
		case intent.SlotA, intent.Afternoon:
			slot = sess.OfferA
		case intent.SlotB, intent.Morning:
			slot = sess.OfferB
		}

		if slot == "" && sess.ChosenSlot == "" {
			reply = replyReofferSlots(sess.OfferA, sess.OfferB)
			break
		}

		if slot != "" {
			sess.ChooseSlot(slot)
		}
		if sess.MarkBooked() {
			e.dispatchBooking(sess)
		}
		reply = replyBooked(sess.ChosenSlot)
		sess.Stage = session.StageConfirm

	case session.StageConfirm:
		reply = replyConfirmClose
		sess.Stage = session.StageDone
		end = true

	default:
		reply = replyGenericClose
		sess.Stage = session.StageDone
		end = true
	}

	return Turn{Reply: reply, EndCall: end, Stage: sess.Stage}
}

// dispatchBooking fires the single outbound notification for this session.
// Called with the session lock held; Dispatch itself is non-blocking.
func (e *Engine) dispatchBooking(sess *session.Session) {
	req := booking.Request{
		Name:           sess.Lead.Name,
		Phone:          sess.Lead.Phone,
		Slot:           sess.ChosenSlot,
		ConversationID: sess.Key,
	}
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(req)
	}
	e.recordBooking(sess.Key, req)
}

func (e *Engine) recordTurn(callID, role, stage, content string) {
	if e.records == nil {
		return
	}
	redacted := false
	if e.opts.RedactTranscripts && role == "user" {
		content, redacted = policy.RedactTranscript(content)
	}
	record := callrecord.TurnRecord{
		CallID:   callID,
		Role:     role,
		Stage:    stage,
		Content:  content,
		Redacted: redacted,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.records.SaveTurn(ctx, record); err != nil {
			log.Debug().Err(err).Str("call_id", callID).Msg("turn record write failed")
		}
	}()
}

func (e *Engine) recordBooking(callID string, req booking.Request) {
	if e.records == nil {
		return
	}
	record := callrecord.BookingRecord{
		CallID:    callID,
		LeadName:  req.Name,
		LeadPhone: req.Phone,
		Slot:      req.Slot,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.records.SaveBooking(ctx, record); err != nil {
			log.Debug().Err(err).Str("call_id", callID).Msg("booking record write failed")
		}
	}()
}
