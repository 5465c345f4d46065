// Package progress defines storage for learner progress records: one row per
// graded or completed activity, queried per student for the teacher and
// parent views.
package progress

import (
	"context"
	"errors"
	"time"
)

// Activity labels, matching the grading kinds plus the activities graded
// locally.
const (
	ActivityReading     = "reading"
	ActivityExercise    = "exercise"
	ActivityHandwriting = "handwriting"
	ActivityListening   = "listening"
)

// Record is one completed activity.
type Record struct {
	// ID is assigned by the store on insert.
	ID int64

	// Student identifies the learner. Required.
	Student string

	// LessonID and LessonTitle identify the lesson the activity belongs to.
	LessonID    string
	LessonTitle string

	// Activity is one of the Activity* labels.
	Activity string

	// Score is the awarded mark in [0, 10].
	Score int

	// Comment is the feedback shown alongside the score.
	Comment string

	// CreatedAt is when the activity was completed. The store fills it on
	// insert when zero.
	CreatedAt time.Time
}

// Validation errors returned by Store implementations.
var (
	ErrNoStudent = errors.New("progress: record has no student")
)

// DefaultListLimit bounds List results when the caller passes limit <= 0.
const DefaultListLimit = 50

// Store persists progress records.
type Store interface {
	// Add inserts r and returns it with ID and CreatedAt populated.
	Add(ctx context.Context, r Record) (Record, error)

	// List returns up to limit records for student, most recent first.
	// limit <= 0 means [DefaultListLimit].
	List(ctx context.Context, student string, limit int) ([]Record, error)
}
