package tagtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHierarchy builds tag > skill > craft, plus need_tag and language below the root.
func newHierarchy(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	_, err := r.Register("skill", "")
	require.NoError(t, err)
	_, err = r.Register("craft", "skill")
	require.NoError(t, err)
	_, err = r.Register("NeedTag", "")
	require.NoError(t, err)
	_, err = r.Register("language", "", PossibleValues("Ruby", "Go"))
	require.NoError(t, err)
	return r
}

func keys(levels []*Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = l.Key()
	}
	return out
}

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		":skills":    "skill",
		"SkillTags":  "skill",
		"photo_tags": "photo",
		"tags":       "tag",
		"Tag":        "tag",
		"languages":  "language",
		" needs ":    "need",
		"":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Canonicalize(in), "Canonicalize(%q)", in)
	}
}

func TestRegisterErrors(t *testing.T) {
	r := newHierarchy(t)
	_, err := r.Register("skill", "")
	assert.Error(t, err)

	_, err = r.Register("spell", "magic")
	assert.ErrorIs(t, err, ErrUnknownTagType)

	_, err = r.Register("", "")
	assert.Error(t, err)
}

func TestResolveIsCached(t *testing.T) {
	c := newHierarchy(t).Catalog("")
	a := c.Resolve(":skills")
	b := c.Resolve("skill")
	assert.Same(t, a, b)
	assert.Equal(t, "skill", a.Name())
	assert.Equal(t, "skills", a.ScopeName())
	assert.Equal(t, "skill_list", a.ListName(""))
	assert.Equal(t, "all_skill_list", a.ListName("all"))
}

func TestBaseResolvesToRoot(t *testing.T) {
	r := newHierarchy(t)
	base := r.Catalog("").Resolve("tags")
	assert.True(t, base.IsBase())
	assert.Same(t, r.Root(), base.Level())
}

func TestResolveTriesTagSuffix(t *testing.T) {
	c := newHierarchy(t).Catalog("")
	need := c.Resolve("needs")
	require.NotNil(t, need.Level())
	assert.Equal(t, "need_tag", need.Level().Key())
	assert.Equal(t, []string{"need", "need_tag"}, need.Candidates())
}

func TestResolvePrefersDeepestNamespace(t *testing.T) {
	r := newHierarchy(t)
	_, err := r.Register("billing/skill", "skill")
	require.NoError(t, err)

	assert.Equal(t, "billing/skill", r.Catalog("billing").Resolve("skill").Level().Key())
	assert.Equal(t, "billing/skill", r.Catalog("billing/invoices").Resolve("skills").Level().Key())
	assert.Equal(t, "skill", r.Catalog("").Resolve("skill").Level().Key())
	assert.Equal(t, "craft", r.Catalog("billing").Resolve("craft").Level().Key())

	assert.Equal(t,
		[]string{"billing/invoice/skill", "billing/invoice/skill_tag", "billing/skill", "billing/skill_tag", "skill", "skill_tag"},
		r.Catalog("billing/invoice").Resolve("skill").Candidates())
}

func TestLooseleafType(t *testing.T) {
	r := newHierarchy(t)
	c := r.Catalog("")
	machine := c.Resolve("machines")

	assert.Nil(t, machine.Level())
	assert.True(t, machine.Looseleaf())
	assert.Equal(t, "machine", machine.StorageLevel().Key())
	assert.Equal(t, 1, machine.Depth())
	assert.Same(t, r.Root(), machine.StorageLevel().Parent())

	_, err := c.Require("machines")
	assert.ErrorIs(t, err, ErrUnknownTagType)

	_, err = c.Require("skills")
	assert.NoError(t, err)

	assert.Equal(t, []string{"machine"}, keys(machine.Expand(Current)))
	assert.Equal(t, []string{"tag"}, keys(machine.Expand(Parents)))
	assert.Empty(t, machine.Expand(Children))
	assert.Contains(t, keys(c.Resolve("tag").Expand(Children)), "machine")
}

func TestExpand(t *testing.T) {
	skill := newHierarchy(t).Catalog("").Resolve("skill")

	assert.Equal(t, []string{"skill"}, keys(skill.Expand(Current)))
	assert.Equal(t, []string{"tag"}, keys(skill.Expand(Parents)))
	assert.Equal(t, []string{"craft"}, keys(skill.Expand(Children)))
	assert.Equal(t, []string{"skill", "craft"}, keys(skill.Expand(Current|Children)))
	assert.Equal(t, []string{"skill", "craft"}, keys(skill.Expand(0)))
	assert.Equal(t, []string{"tag", "skill"}, keys(skill.Expand(Parents|Current)))
	assert.Equal(t, []string{"tag", "craft"}, keys(skill.Expand(Parents|Children)))
}

func TestCondition(t *testing.T) {
	r := newHierarchy(t)
	c := r.Catalog("")

	assert.True(t, c.Resolve("tag").Condition(0).Unfiltered)
	assert.False(t, c.Resolve("tag").Condition(Current).Unfiltered)

	cond := c.Resolve("skill").Condition(0)
	assert.False(t, cond.Unfiltered)
	sql, args := cond.SQL("t.type")
	assert.Equal(t, "(t.type = ? OR t.type = ?)", sql)
	assert.Equal(t, []any{"skill", "craft"}, args)
	assert.True(t, cond.Matches("craft"))
	assert.False(t, cond.Matches("tag"))

	sql, args = c.Resolve("craft").Condition(Children).SQL("type")
	assert.Equal(t, "1 = 0", sql)
	assert.Empty(t, args)

	sql, _ = c.Resolve("tag").Condition(0).SQL("type")
	assert.Empty(t, sql)
}

func TestParseScope(t *testing.T) {
	cases := map[string]Scope{
		":current":          Current,
		"=":                 Current,
		"parents":           Parents,
		">":                 Parents,
		"<":                 Children,
		">=":                Parents | Current,
		"<=":                Children | Current,
		"<>":                Parents | Children,
		":parents,:current": Parents | Current,
		"":                  DefaultScope,
	}
	for in, want := range cases {
		got, err := ParseScope(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseScope("parents", "children")
	require.NoError(t, err)
	assert.Equal(t, Parents|Children, got)

	_, err = ParseScope("siblings")
	assert.ErrorIs(t, err, ErrInvalidScope)

	assert.Equal(t, "current,children", Scope(0).String())
}

func TestIsOfType(t *testing.T) {
	r := newHierarchy(t)
	assert.True(t, r.IsOfType("craft", "skill"))
	assert.True(t, r.IsOfType("craft", "crafts"))
	assert.True(t, r.IsOfType("skill", "tag"))
	assert.False(t, r.IsOfType("skill", "craft"))
	assert.False(t, r.IsOfType("language", "skill"))
	assert.True(t, r.IsOfType("need_tag", "needs"))
	assert.True(t, r.IsOfType("machine", "machine"))
	assert.False(t, r.IsOfType("machine", "skill"))
}

func TestTypeEqual(t *testing.T) {
	r := newHierarchy(t)
	a := r.Catalog("").Resolve("skill")
	b := r.Catalog("other").Resolve("skills")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(r.Catalog("").Resolve("craft")))
}

func TestLevelCanonical(t *testing.T) {
	r := newHierarchy(t)
	lang, ok := r.Lookup("language")
	require.True(t, ok)

	v, ok := lang.Canonical("ruby ")
	assert.True(t, ok)
	assert.Equal(t, "Ruby", v)

	_, ok = lang.Canonical("Python")
	assert.False(t, ok)

	skill, _ := r.Lookup("skill")
	v, ok = skill.Canonical("anything")
	assert.True(t, ok)
	assert.Equal(t, "anything", v)
}
