package grading

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Models answer in one of three shapes, tried in order:
//
//  1. A JSON object, possibly wrapped in code fences or surrounded by prose.
//  2. Labeled lines ("DIEM: 8" / "NHANXET: ..."), the legacy rubric format.
//  3. Anything else, which falls through to the default verdict.
//
// parseVerdict reports which case applied via its second return value so
// callers can count fallbacks without changing the public contract.

var (
	scoreLineRe   = regexp.MustCompile(`(?i)DIEM:\s*(-?\d+)`)
	commentLineRe = regexp.MustCompile(`(?i)NHANXET:\s*(.+)`)
)

// jsonVerdict mirrors the response shape the rubric mandates. Score is a
// json.Number so both 9 and "9" decode; non-numeric values coerce to 0.
type jsonVerdict struct {
	Score   json.Number `json:"score"`
	Comment string      `json:"comment"`
}

// parseVerdict extracts a [Verdict] from a raw model response. The returned
// bool is false when neither strategy matched and the default verdict was
// substituted.
func parseVerdict(raw string, kind Kind) (Verdict, bool) {
	if v, ok := parseJSONVerdict(raw); ok {
		return normalize(v, kind), true
	}
	if v, ok := parseLabeledVerdict(raw); ok {
		return normalize(v, kind), true
	}
	return DefaultVerdict(kind), false
}

// parseJSONVerdict locates the outermost {...} substring and decodes it.
func parseJSONVerdict(raw string) (Verdict, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return Verdict{}, false
	}

	var jv jsonVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &jv); err != nil {
		return Verdict{}, false
	}
	if jv.Score == "" && jv.Comment == "" {
		// A well-formed object that carries neither field is not a verdict.
		return Verdict{}, false
	}

	score := 0
	if f, err := jv.Score.Float64(); err == nil {
		score = int(f)
	}
	return Verdict{Score: score, Comment: strings.TrimSpace(jv.Comment)}, true
}

// parseLabeledVerdict matches the "DIEM:" / "NHANXET:" line format,
// case-insensitively. Either line alone is enough.
func parseLabeledVerdict(raw string) (Verdict, bool) {
	scoreMatch := scoreLineRe.FindStringSubmatch(raw)
	commentMatch := commentLineRe.FindStringSubmatch(raw)
	if scoreMatch == nil && commentMatch == nil {
		return Verdict{}, false
	}

	v := Verdict{}
	if scoreMatch != nil {
		if n, err := strconv.Atoi(scoreMatch[1]); err == nil {
			v.Score = n
		}
	}
	if commentMatch != nil {
		v.Comment = strings.TrimSpace(commentMatch[1])
	}
	return v, true
}

// normalize applies the invariants every returned verdict carries: a clamped
// score and a non-empty comment.
func normalize(v Verdict, kind Kind) Verdict {
	v.Score = clampScore(v.Score)
	if v.Comment == "" {
		v.Comment = defaultComments[kind]
	}
	return v
}
