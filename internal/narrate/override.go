// Package narrate speaks text aloud for the learner, preferring generative
// audio synthesis and degrading to a local speech engine, with a guaranteed
// completion callback no matter which channel wins or fails.
package narrate

import "strings"

// OverrideTable maps a displayed token to the form it should be spoken as.
// Lesson authors use it to correct engine mispronunciations of isolated
// letters and syllables ("g" read as the letter name instead of "gờ").
// Tables are lesson-scoped and consulted read-only at narration time; they
// never affect grading rubrics.
type OverrideTable map[string]string

// Resolve rewrites text according to the table. A whole-text exact match is
// substituted wholesale. Otherwise, comma-delimited segments (a word list
// read aloud together) are each trimmed and substituted independently, then
// rejoined. Text without a match passes through unchanged.
func (t OverrideTable) Resolve(text string) string {
	if len(t) == 0 {
		return text
	}
	if spoken, ok := t[text]; ok {
		return spoken
	}
	if !strings.Contains(text, ",") {
		return text
	}

	parts := strings.Split(text, ",")
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		if spoken, ok := t[trimmed]; ok {
			parts[i] = spoken
		} else {
			parts[i] = trimmed
		}
	}
	return strings.Join(parts, ", ")
}
