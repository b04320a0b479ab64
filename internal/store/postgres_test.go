package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rcliao/tagtical/internal/model"
)

// newPostgresTestStore connects to TAGTICAL_POSTGRES_DSN and clears the
// tables. Tests using it are skipped when the variable is unset.
func newPostgresTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := os.Getenv("TAGTICAL_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TAGTICAL_POSTGRES_DSN not set")
	}
	s, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.db.Exec(`TRUNCATE taggings, tags, taggables`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestPostgresTaggedWith(t *testing.T) {
	ctx := context.Background()
	s := newPostgresTestStore(t)
	tagRecord(t, s, "user", "a", "skill", "ruby", "rails")
	tagRecord(t, s, "user", "b", "skill", "Ruby")
	tagRecord(t, s, "user", "c", "skill")

	for _, tc := range []struct {
		mode MatchMode
		want []string
	}{
		{MatchAll, []string{"a"}},
		{MatchAny, []string{"a", "b"}},
		{Exclude, []string{"c"}},
		{MatchExact, []string{"a"}},
	} {
		got, err := s.TaggedWith(ctx, TaggedWithParams{TaggableType: "user", Values: []string{"ruby", "rails"}, Mode: tc.mode})
		if err != nil {
			t.Fatalf("%s: %v", tc.mode, err)
		}
		if !sameIDs(ids(got), tc.want...) {
			t.Errorf("%s: expected %v, got %v", tc.mode, tc.want, ids(got))
		}
	}
}

func TestPostgresUniqueViolations(t *testing.T) {
	ctx := context.Background()
	s := newPostgresTestStore(t)

	tag := findOrCreateTag(t, s, "skill", "Go")
	dup := model.Tag{Value: "go", Type: "skill"}
	if err := s.CreateTag(ctx, &dup); !errors.Is(err, ErrDuplicateTag) {
		t.Fatalf("expected ErrDuplicateTag, got %v", err)
	}

	g := &model.Tagging{TagID: tag.ID, TaggableID: "a", TaggableType: "user"}
	if err := s.CreateTagging(ctx, g); err != nil {
		t.Fatal(err)
	}
	err := s.CreateTagging(ctx, &model.Tagging{TagID: tag.ID, TaggableID: "a", TaggableType: "user"})
	if !errors.Is(err, model.ErrDuplicateTagging) {
		t.Fatalf("expected ErrDuplicateTagging, got %v", err)
	}
}
