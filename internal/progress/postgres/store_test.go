package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nmtri/docviet/internal/progress"
	"github.com/nmtri/docviet/internal/progress/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if DOCVIET_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("DOCVIET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCVIET_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] against a clean table and
// registers cleanup.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(cleanPool.Close)
	if _, err := cleanPool.Exec(ctx, `DROP TABLE IF EXISTS progress_records`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	store, err := postgres.New(ctx, dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestAddAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, r := range []progress.Record{
		{Student: "an", LessonID: "1", LessonTitle: "Bài 1: a", Activity: progress.ActivityReading, Score: 8, Comment: "Tốt!"},
		{Student: "an", LessonID: "2", LessonTitle: "Bài 2: b", Activity: progress.ActivityHandwriting, Score: 9, Comment: "Chữ đẹp."},
		{Student: "binh", LessonID: "1", LessonTitle: "Bài 1: a", Activity: progress.ActivityReading, Score: 6, Comment: "Cố lên!"},
	} {
		added, err := store.Add(ctx, r)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if added.ID == 0 {
			t.Error("Add did not assign an ID")
		}
		if added.CreatedAt.IsZero() {
			t.Error("Add did not assign CreatedAt")
		}
	}

	records, err := store.List(ctx, "an", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List returned %d records, want 2", len(records))
	}
	// Most recent first.
	if records[0].LessonID != "2" {
		t.Errorf("first record lesson = %q, want the most recent", records[0].LessonID)
	}
}

func TestList_RespectsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.Add(ctx, progress.Record{
			Student:  "an",
			Activity: progress.ActivityExercise,
			Score:    i,
		}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	records, err := store.List(ctx, "an", 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("List returned %d records, want 3", len(records))
	}
}

func TestAdd_RejectsMissingStudent(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Add(context.Background(), progress.Record{Activity: progress.ActivityReading}); err != progress.ErrNoStudent {
		t.Errorf("err = %v, want ErrNoStudent", err)
	}
}
