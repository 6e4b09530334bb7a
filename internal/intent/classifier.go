package intent

import (
	"regexp"
	"strings"

	"github.com/venturebnb/concierge/internal/session"
)

// Intent is the coarse category a caller utterance maps to at a given stage.
type Intent string

const (
	None      Intent = "none"
	Affirm    Intent = "affirm"
	Deny      Intent = "deny"
	SlotA     Intent = "slot_a"
	SlotB     Intent = "slot_b"
	Morning   Intent = "morning"
	Afternoon Intent = "afternoon"
)

type matcher func(utterance string) bool

type rule struct {
	intent Intent
	match  matcher
}

var (
	affirmRule = rule{Affirm, wordPattern(
		"yes", "yeah", "yep", "i did", "got it", "sure", "ok", "okay",
		"sounds good", "let's do it", "lets do it", "book",
	)}
	denyRule = rule{Deny, wordPattern(
		"no", "not yet", "didn't", "didnt", "never", "not interested",
		"pass", "maybe later",
	)}

	// Slot keywords match as plain substrings so spoken times like "2 pm"
	// or "at 10" resolve. Period words stay word-bounded.
	slotARule     = rule{SlotA, containsAny("tomorrow", "2")}
	slotBRule     = rule{SlotB, containsAny("thursday", "10")}
	morningRule   = rule{Morning, wordPattern("morning")}
	afternoonRule = rule{Afternoon, wordPattern("afternoon", "evening")}
)

// stageRules scopes which patterns a stage consults and in what order.
// Affirm/Deny always precede slot and period rules; stages not listed never
// produce an intent.
var stageRules = map[session.Stage][]rule{
	session.StageIntroWait: {affirmRule, denyRule},
	session.StageOffer:     {affirmRule, denyRule},
	session.StagePickTime:  {slotARule, slotBRule, morningRule, afternoonRule},
}

// Classify maps an utterance to an intent for the given stage. Matching is
// case-insensitive and tolerant of curly apostrophes. An empty utterance is
// always None.
func Classify(stage session.Stage, utterance string) Intent {
	u := normalize(utterance)
	if u == "" {
		return None
	}
	for _, r := range stageRules[stage] {
		if r.match(u) {
			return r.intent
		}
	}
	return None
}

func normalize(utterance string) string {
	u := strings.ToLower(strings.TrimSpace(utterance))
	return strings.ReplaceAll(u, "’", "'")
}

func wordPattern(phrases ...string) matcher {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	re := regexp.MustCompile(`(^|\b)(` + strings.Join(quoted, "|") + `)(\b|$)`)
	return re.MatchString
}

func containsAny(substrings ...string) matcher {
	return func(utterance string) bool {
		for _, s := range substrings {
			if strings.Contains(utterance, s) {
				return true
			}
		}
		return false
	}
}
