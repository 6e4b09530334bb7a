package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

// RedactTranscript masks caller contact details before a transcript line is
// persisted. Short digit runs (spoken times like "10" or "2") are left alone
// so call records stay readable.
func RedactTranscript(line string) (redacted string, changed bool) {
	out := emailPattern.ReplaceAllString(line, "[REDACTED_EMAIL]")
	changed = out != line

	next := phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out

	return next, changed
}
