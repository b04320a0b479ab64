package taggable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/tagtical/internal/metrics"
	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

func TestScopeExpansion(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("tag", "Plane", InScope(tagtype.Current)))
	require.NoError(t, r.SetTagListOn("skill", "Kung Fu", InScope(tagtype.Current)))
	require.NoError(t, r.SetTagListOn("craft", "Painting"))
	require.NoError(t, r.Save(ctx))

	cases := []struct {
		name  string
		typ   string
		scope tagtype.Scope
		want  []string
	}{
		{"current", "skill", tagtype.Current, []string{"Kung Fu"}},
		{"parents", "skill", tagtype.Parents, []string{"Plane"}},
		{"children", "skill", tagtype.Children, []string{"Painting"}},
		{"default", "skill", 0, []string{"Kung Fu", "Painting"}},
		{"parents and current", "craft", tagtype.Parents | tagtype.Current, []string{"Plane", "Kung Fu", "Painting"}},
		{"root", "tag", 0, []string{"Plane", "Kung Fu", "Painting"}},
		{"root current", "tags", tagtype.Current, []string{"Plane"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := texts(r.TagListOn(ctx, tc.typ, InScope(tc.scope)))
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestSavePromotesParentTagging(t *testing.T) {
	ctx := context.Background()
	rec := metrics.New()
	e, st := newTestEngine(t, DefaultOptions(), WithMetrics(rec))
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("skill", "foo:2", InScope(tagtype.Current)))
	require.NoError(t, r.Save(ctx))
	before := allTaggings(t, st, "u1")
	require.Len(t, before, 1)
	assert.Equal(t, "skill", before[0].Tag.Type)

	require.NoError(t, r.SetTagListOn("craft", "foo"))
	require.NoError(t, r.Save(ctx))

	after := allTaggings(t, st, "u1")
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, "craft", after[0].Tag.Type)
	assert.True(t, e.IsOfType(*after[0].Tag, "skill"))
	require.NotNil(t, after[0].Relevance)
	assert.Equal(t, 2.0, *after[0].Relevance)

	assert.Equal(t, []string{"foo"}, texts(r.TagListOn(ctx, "craft")))
	assert.Empty(t, texts(r.TagListOn(ctx, "skill", InScope(tagtype.Current))))

	snap, err := rec.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, snap, metrics.Sample{Name: "tagtical_taggings_promoted_total", Value: 1})
}

func TestNarrowListKeepsParentTaggings(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("skill", "foo", InScope(tagtype.Current)))
	require.NoError(t, r.Save(ctx))

	require.NoError(t, r.SetTagListOn("craft", "bar"))
	require.NoError(t, r.Save(ctx))
	assert.Len(t, allTaggings(t, st, "u1"), 2)
	assert.ElementsMatch(t, []string{"foo", "bar"}, texts(r.TagListOn(ctx, "skill")))

	// A broader list with the default scope replaces its children too.
	require.NoError(t, r.SetTagListOn("skill", "baz"))
	require.NoError(t, r.Save(ctx))
	gs := allTaggings(t, st, "u1")
	require.Len(t, gs, 1)
	assert.Equal(t, "baz", gs[0].Tag.Value)
}

func TestSaveUpdatesRelevanceInPlace(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("skill", "ruby:1.5, go"))
	require.NoError(t, r.Save(ctx))
	first := allTaggings(t, st, "u1")
	require.Len(t, first, 2)

	require.NoError(t, r.SetTagListOn("skill", "Ruby:3, go"))
	require.NoError(t, r.Save(ctx))
	second := allTaggings(t, st, "u1")
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	require.NotNil(t, second[0].Relevance)
	assert.Equal(t, 3.0, *second[0].Relevance)

	// No relevance given keeps the stored one.
	require.NoError(t, r.SetTagListOn("skill", "ruby, go"))
	require.NoError(t, r.Save(ctx))
	third := allTaggings(t, st, "u1")
	assert.Equal(t, 3.0, *third[0].Relevance)

	l, err := r.TagListOn(ctx, "skill")
	require.NoError(t, err)
	assert.Equal(t, "ruby:3.0, go", l.Format(true))
}

func TestSaveRejectsValuesOutsideAllowList(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("skill", "go"))
	require.NoError(t, r.SetTagListOn("color", "red, purple"))
	err := r.Save(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValueNotAllowed)

	var verrs model.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "purple", verrs[0].Value)
	assert.Equal(t, "color_list", verrs[0].Field)
	assert.Equal(t, []string{"Red", "Blue", "Green"}, verrs[0].Allowed)
	assert.Contains(t, err.Error(), "allowed: Red, Blue, Green")

	rows, err := st.ListTaggables(ctx, store.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	tags, err := st.FindTags(ctx, store.FindTagsParams{})
	require.NoError(t, err)
	assert.Empty(t, tags)

	require.NoError(t, r.SetTagListOn("color", "red"))
	require.NoError(t, r.Save(ctx))
	assert.Equal(t, []string{"Red"}, texts(r.TagListOn(ctx, "color")))
}

func TestSaveRejectsRelevanceOutOfRange(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.RelevanceRange = &Range{Min: 0, Max: 10}
	e, _ := newTestEngine(t, opts)
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("skill", "ruby:11, go:10"))
	err := r.Save(ctx)
	assert.ErrorIs(t, err, model.ErrRelevanceOutOfRange)
	assert.NotErrorIs(t, err, model.ErrValueNotAllowed)
}

func TestCascade(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("tag", "blue:2, plane", Cascade()))
	require.NoError(t, r.Save(ctx))

	l, err := r.TagListOn(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "Blue:2.0", l.Format(true))
	assert.Equal(t, []string{"plane"}, texts(r.TagListOn(ctx, "tag", InScope(tagtype.Current))))
}

func TestLooseleafType(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)
	assert.True(t, k.Type("moods").Looseleaf())

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("moods", "happy"))
	require.NoError(t, r.SetTagListOn("skill", "go"))
	require.NoError(t, r.Save(ctx))

	tags, err := st.FindTags(ctx, store.FindTagsParams{Values: []string{"happy"}})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "mood", tags[0].Type)

	assert.Equal(t, []string{"happy"}, texts(r.TagListOn(ctx, "mood")))
	assert.Equal(t, []string{"go"}, texts(r.TagListOn(ctx, "skill")))
	assert.ElementsMatch(t, []string{"happy", "go"}, texts(r.TagListOn(ctx, "tag")))
	assert.True(t, e.IsOfType(tags[0], "moods"))
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)
	alice, bob := model.Owner{ID: "alice"}, model.Owner{ID: "bob"}

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetOwnerTagListOn(alice, "skill", "ruby, go"))
	require.NoError(t, r.SetOwnerTagListOn(bob, "skill", "ruby, rust"))
	require.NoError(t, r.Save(ctx))
	assert.Len(t, allTaggings(t, st, "u1"), 4)

	assert.ElementsMatch(t, []string{"ruby", "go"}, texts(r.OwnerTagListOn(ctx, alice, "skill")))
	assert.Empty(t, texts(r.TagListOn(ctx, "skill")))

	all, err := r.AllTagsOn(ctx, "skill")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ruby", "go", "rust"}, all.Texts())
	assert.True(t, all.Frozen())
	assert.ErrorIs(t, all.Add("python"), taglist.ErrFrozen)

	bobBefore := bobTaggingIDs(t, st, "u1")

	require.NoError(t, r.SetOwnerTagListOn(alice, "skill", ""))
	require.NoError(t, r.Save(ctx))
	assert.Empty(t, texts(r.OwnerTagListOn(ctx, alice, "skill")))
	assert.ElementsMatch(t, bobBefore, bobTaggingIDs(t, st, "u1"))

	// Re-setting an equal list is a no-op.
	require.NoError(t, r.SetOwnerTagListOn(bob, "skill", "Ruby, RUST"))
	require.NoError(t, r.Save(ctx))
	assert.ElementsMatch(t, bobBefore, bobTaggingIDs(t, st, "u1"))

	owned, err := e.OwnedTags(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func bobTaggingIDs(t *testing.T, st store.Store, id string) []string {
	t.Helper()
	gs, err := st.FindTaggings(context.Background(), store.TaggingFilter{
		TaggableID: id, Owners: store.ByOwner, Owner: model.Owner{ID: "bob"},
	})
	require.NoError(t, err)
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.ID
	}
	return out
}

func TestSingleTagger(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.MultipleTaggers = false
	e, st := newTestEngine(t, opts)
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("skill", "ruby"))
	require.NoError(t, r.Save(ctx))

	require.NoError(t, e.Tag(ctx, model.Owner{ID: "alice"}, r, "skill", "ruby"))
	gs := allTaggings(t, st, "u1")
	require.Len(t, gs, 1)
	assert.Equal(t, "alice", gs[0].TaggerID)

	require.NoError(t, e.Tag(ctx, model.Owner{ID: "bob"}, r, "skill", "ruby:4"))
	gs = allTaggings(t, st, "u1")
	require.Len(t, gs, 1)
	assert.Equal(t, "bob", gs[0].TaggerID)
	assert.Equal(t, 4.0, *gs[0].Relevance)
}

func TestSingleTaggerAcrossOwnersInOneSave(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.MultipleTaggers = false
	e, st := newTestEngine(t, opts)
	k := userKind(t, e)
	alice, bob, carol := model.Owner{ID: "alice"}, model.Owner{ID: "bob"}, model.Owner{ID: "carol"}

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetOwnerTagListOn(bob, "skill", "x"))
	require.NoError(t, r.Save(ctx))
	bobX := bobTaggingIDs(t, st, "u1")
	require.Len(t, bobX, 1)

	// alice loads the record's taggings first, bob then drops x and carol
	// must create it afresh.
	require.NoError(t, r.SetOwnerTagListOn(alice, "skill", "y"))
	require.NoError(t, r.SetOwnerTagListOn(bob, "skill", ""))
	require.NoError(t, r.SetOwnerTagListOn(carol, "skill", "x"))
	require.NoError(t, r.Save(ctx))

	owners := map[string]string{}
	for _, g := range allTaggings(t, st, "u1") {
		owners[g.Tag.Value] = g.TaggerID
		assert.NotEqual(t, bobX[0], g.ID)
	}
	assert.Equal(t, map[string]string{"x": "carol", "y": "alice"}, owners)

	// A tagging created earlier in the same save is adopted, not duplicated.
	require.NoError(t, r.SetOwnerTagListOn(alice, "skill", "z"))
	require.NoError(t, r.SetOwnerTagListOn(bob, "skill", "z"))
	require.NoError(t, r.Save(ctx))

	owners = map[string]string{}
	for _, g := range allTaggings(t, st, "u1") {
		owners[g.Tag.Value] = g.TaggerID
	}
	assert.Equal(t, map[string]string{"x": "carol", "z": "bob"}, owners)
}

func TestSavePromotesOwnedTagging(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)
	alice := model.Owner{ID: "alice"}

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetOwnerTagListOn(alice, "skill", "foo:3"))
	require.NoError(t, r.Save(ctx))
	before := allTaggings(t, st, "u1")
	require.Len(t, before, 1)

	require.NoError(t, r.SetOwnerTagListOn(alice, "craft", "foo"))
	require.NoError(t, r.Save(ctx))

	after := allTaggings(t, st, "u1")
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, "craft", after[0].Tag.Type)
	assert.Equal(t, "alice", after[0].TaggerID)
	require.NotNil(t, after[0].Relevance)
	assert.Equal(t, 3.0, *after[0].Relevance)
	assert.Equal(t, []string{"foo"}, texts(r.OwnerTagListOn(ctx, alice, "craft")))
}

func TestPolymorphicTagger(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.PolymorphicTagger = true
	e, st := newTestEngine(t, opts)
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, e.Tag(ctx, model.Owner{ID: "1", Type: "admin"}, r, "skill", "ruby"))
	require.NoError(t, e.Tag(ctx, model.Owner{ID: "1", Type: "member"}, r, "skill", "go"))

	assert.Len(t, allTaggings(t, st, "u1"), 2)
	assert.Equal(t, []string{"ruby"}, texts(r.OwnerTagListOn(ctx, model.Owner{ID: "1", Type: "admin"}, "skill")))
}

func TestCachedTagList(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "", "alice")
	require.NoError(t, r.SetTagListOn("skill", "ruby, go"))
	require.NoError(t, r.SetTagListOn("craft", "painting"))
	require.NoError(t, r.Save(ctx))
	require.NotEmpty(t, r.ID())

	cached, ok := r.CachedTagList("skills")
	require.True(t, ok)
	assert.Equal(t, "ruby, go", cached)
	_, ok = r.CachedTagList("craft")
	assert.False(t, ok)

	loaded, err := e.Load(ctx, k, r.ID())
	require.NoError(t, err)
	cached, _ = loaded.CachedTagList("skill")
	assert.Equal(t, "ruby, go", cached)
	assert.Equal(t, "alice", loaded.Name())
}

func TestSaveSkipsListsWithoutCurrentScope(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("craft", "x", InScope(tagtype.Parents)))
	require.NoError(t, r.Save(ctx))
	assert.Empty(t, allTaggings(t, st, "u1"))
}

func TestReloadDropsUnsavedLists(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r := e.NewRecord(k, "u1", "")
	require.NoError(t, r.SetTagListOn("skill", "ruby"))
	require.NoError(t, r.Save(ctx))

	require.NoError(t, r.SetTagListOn("skill", "go"))
	assert.True(t, r.HasTagListOn("skill"))
	require.NoError(t, r.Reload(ctx))
	assert.False(t, r.HasTagListOn("skill"))
	assert.Equal(t, []string{"ruby"}, texts(r.TagListOn(ctx, "skill")))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, DefaultOptions())
	k := userKind(t, e)

	r, err := e.Open(ctx, k, "u1")
	require.NoError(t, err)
	assert.Empty(t, texts(r.TagListOn(ctx, "skill")))
	require.NoError(t, r.SetTagListOn("skill", "ruby"))
	require.NoError(t, r.Save(ctx))

	again, err := e.Open(ctx, k, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ruby"}, texts(again.TagListOn(ctx, "skill")))

	require.NoError(t, e.Delete(ctx, k, "u1"))
	_, err = e.Load(ctx, k, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
