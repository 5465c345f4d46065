// Package exercise checks typed fill-in-the-blank answers locally, without a
// model round trip.
//
// Answers from a six-year-old typing on a tablet carry stray spaces, case
// drift, and the occasional swapped letter. The checker normalises both
// sides and accepts near-misses above a Jaro-Winkler similarity threshold.
// The threshold is tight enough that a changed diacritic still fails: in
// Vietnamese that is a different word, not a typo.
package exercise

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultThreshold is forgiving by design: first graders are graded on
// knowing the answer, not on flawless typing.
const defaultThreshold = 0.88

// Result reports one answer check.
type Result struct {
	// Correct is true when the answer matched (exactly or fuzzily) any
	// accepted form.
	Correct bool

	// Similarity is the best Jaro-Winkler score across accepted forms,
	// in [0, 1]. 1.0 for an exact match after normalisation.
	Similarity float64

	// Matched is the accepted form the answer was closest to.
	Matched string
}

// Checker validates typed answers. Safe for concurrent use; read-only after
// construction.
type Checker struct {
	threshold float64
}

// Option configures a [Checker].
type Option func(*Checker)

// WithThreshold sets the minimum Jaro-Winkler similarity for a fuzzy match.
// Default: 0.88.
func WithThreshold(threshold float64) Option {
	return func(c *Checker) { c.threshold = threshold }
}

// New returns a [Checker] with the supplied options applied.
func New(opts ...Option) *Checker {
	c := &Checker{threshold: defaultThreshold}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check compares answer against the accepted forms. Comparison is
// case-insensitive (Unicode-aware, so Vietnamese diacritics survive folding)
// and whitespace-normalised. An empty answer never matches.
func (c *Checker) Check(answer string, accepted ...string) Result {
	norm := normalize(answer)
	if norm == "" {
		return Result{}
	}

	var best Result
	for _, form := range accepted {
		formNorm := normalize(form)
		if formNorm == "" {
			continue
		}
		if norm == formNorm {
			return Result{Correct: true, Similarity: 1.0, Matched: form}
		}
		score := matchr.JaroWinkler(norm, formNorm, false)
		if score > best.Similarity {
			best = Result{Similarity: score, Matched: form}
		}
	}

	best.Correct = best.Similarity >= c.threshold
	return best
}

// normalize lowercases and collapses interior whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
