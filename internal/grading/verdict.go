// Package grading turns learner-submitted evidence (a reading recording, a
// spoken answer, a handwriting photo) into a normalized score-plus-comment
// verdict using a multimodal generative model.
//
// The package's public operations never return an error: every failure mode
// (missing credential, transport failure, unusable model response) collapses
// to a well-formed default [Verdict] so callers need no error branch. The
// failure cause is still recorded as a metric attribute for operators.
package grading

// Kind identifies which assessment produced a verdict. It selects the rubric
// sent to the model and the default comment used when grading fails.
type Kind string

const (
	// KindReading is a pronunciation/fluency assessment of a read-aloud
	// recording.
	KindReading Kind = "reading"

	// KindExercise is a comprehension assessment of a spoken answer.
	KindExercise Kind = "exercise"

	// KindHandwriting is a legibility/accuracy assessment of a handwriting
	// photo.
	KindHandwriting Kind = "handwriting"
)

// Verdict is the normalized result of one grading call.
type Verdict struct {
	// Score is the awarded mark, always within [0, 10].
	Score int `json:"score"`

	// Comment is the teacher-style feedback line. Never empty.
	Comment string `json:"comment"`
}

// Default comments, phrased the way a Vietnamese primary-school teacher
// would. Used whenever the model's comment is missing or the call failed.
var defaultComments = map[Kind]string{
	KindReading:     "Cô chưa nghe rõ, bé đọc lại nhé!",
	KindExercise:    "Bé hãy trả lời to hơn nhé!",
	KindHandwriting: "Bé viết đẹp lắm, cố gắng nhé!",
}

// unavailableComment is returned when no usable model credential is
// configured. Grading has no local fallback, so the verdict says the teacher
// is away rather than pretending to have listened.
const unavailableComment = "Cô giáo AI đang bận một chút, bé thử lại sau nhé!"

// DefaultVerdict returns the score-0 verdict substituted when a grading call
// cannot produce a real one.
func DefaultVerdict(kind Kind) Verdict {
	return Verdict{Score: 0, Comment: defaultComments[kind]}
}

// clampScore forces a model-reported score into the [0, 10] contract. The
// rubric asks for the range but models drift, so it is enforced here too.
func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}
