package taglist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTag struct {
	value     string
	relevance float64
}

func (f fakeTag) TagValue() Value { return WithRelevance(f.value, f.relevance) }

func mustNew(t *testing.T, items ...any) *List {
	t.Helper()
	l, err := New(items...)
	require.NoError(t, err)
	return l
}

func TestParse(t *testing.T) {
	l := Parse("One , Two,  Three")
	assert.Equal(t, []string{"One", "Two", "Three"}, l.Texts())

	assert.True(t, Parse("").IsEmpty())
	assert.True(t, Parse(" , ,").IsEmpty())
}

func TestParseDeduplicatesIgnoringCase(t *testing.T) {
	l := Parse("Ruby, ruby, RUBY, rails")
	assert.Equal(t, []string{"Ruby", "rails"}, l.Texts())
}

func TestRoundTrip(t *testing.T) {
	l := Parse("awesome, radical")
	assert.Equal(t, "awesome, radical", l.String())
	assert.Equal(t, l.String(), Parse(l.String()).String())
}

func TestQuotedValues(t *testing.T) {
	l := mustNew(t, "awesome", "radical")
	require.NoError(t, l.Add(`'cool, wicked', "really cool, really wicked"`))
	assert.True(t, l.Contains("cool, wicked"))
	assert.True(t, l.Contains("really cool, really wicked"))
	assert.Equal(t, 4, l.Len())
}

func TestApostrophesAreNotQuotes(t *testing.T) {
	l := Parse("john's cool car, mary's wicked toy")
	assert.Equal(t, []string{"john's cool car", "mary's wicked toy"}, l.Texts())
}

func TestQuoteEscapeOnFormat(t *testing.T) {
	l := mustNew(t, "awesome", "radical")
	require.NoError(t, l.AddRaw("cool", "rad,bodacious"))
	assert.Equal(t, `awesome, radical, cool, "rad,bodacious"`, l.String())

	quoted := mustNew(t)
	require.NoError(t, quoted.AddRaw("awesome", "rad,bodacious"))
	assert.Equal(t, `awesome, "rad,bodacious"`, quoted.String())
	assert.Equal(t, quoted.String(), Parse(quoted.String()).String())
}

func TestRelevanceFromText(t *testing.T) {
	l := Parse("foo : 3.4, bar: 2.5, baz")

	foo, ok := l.Find("foo")
	require.True(t, ok)
	rel, has := foo.Relevance()
	assert.True(t, has)
	assert.Equal(t, 3.4, rel)

	baz, _ := l.Find("baz")
	_, has = baz.Relevance()
	assert.False(t, has)
}

func TestNonNumericSuffixIsKept(t *testing.T) {
	l := Parse("time: morning")
	assert.Equal(t, []string{"time: morning"}, l.Texts())
}

func TestFormatWithRelevance(t *testing.T) {
	l := mustNew(t)
	require.NoError(t, l.AddRaw("far", "awesome : 4", "radical : 3", "car, bar:10.3"))

	out := l.Format(true)
	assert.Contains(t, out, "awesome:4.0, radical:3.0")
	assert.Contains(t, out, `"car, bar":10.3`)
	assert.NotContains(t, l.String(), "4.0")

	back := Parse(out)
	v, ok := back.Find("car, bar")
	require.True(t, ok)
	rel, _ := v.Relevance()
	assert.Equal(t, 10.3, rel)
}

func TestFromMap(t *testing.T) {
	l := FromMap(map[string]float64{"tag 1": 4.5, "tag 2": 4.454})
	var rels []float64
	for _, v := range l.Values() {
		r, _ := v.Relevance()
		rels = append(rels, r)
	}
	assert.Equal(t, []float64{4.5, 4.454}, rels)
}

func TestAddOverwritesRelevance(t *testing.T) {
	l := mustNew(t, "awesome")
	require.NoError(t, l.Add(map[string]float64{"cool": 0.3}))
	require.NoError(t, l.Add(map[string]float64{"COOL": 0.6}))

	assert.Equal(t, 2, l.Len())
	v, _ := l.Find("cool")
	assert.Equal(t, "cool", v.Text())
	rel, _ := v.Relevance()
	assert.Equal(t, 0.6, rel)
}

func TestAddAcceptedInputs(t *testing.T) {
	l := mustNew(t)
	require.NoError(t, l.Add(nil))
	require.NoError(t, l.Add([]string{"cool", "wicked"}))
	require.NoError(t, l.Add(map[string]string{"crazy": "0.45"}))
	require.NoError(t, l.Add([]fakeTag{{"foo", 1}, {"bar", 1.3}}))
	require.NoError(t, l.Add([]any{"car", WithRelevance("boat", 2)}))

	assert.Equal(t, []string{"cool", "wicked", "crazy", "foo", "bar", "car", "boat"}, l.Texts())
	bar, _ := l.Find("bar")
	rel, _ := bar.Relevance()
	assert.Equal(t, 1.3, rel)
}

func TestAddInvalidInput(t *testing.T) {
	l := mustNew(t)
	err := l.Add(42)
	assert.ErrorIs(t, err, ErrInvalidTagInput)

	err = l.Add(map[string]string{"x": "high"})
	assert.ErrorIs(t, err, ErrInvalidTagInput)
}

func TestRemove(t *testing.T) {
	l := mustNew(t, "awesome", "radical")
	require.NoError(t, l.Remove("awesome"))
	assert.False(t, l.Contains("awesome"))

	l = mustNew(t, "awesome", "radical")
	require.NoError(t, l.Remove("awesome, radical"))
	assert.True(t, l.IsEmpty())

	l = mustNew(t, "awesome", "radical")
	require.NoError(t, l.Remove([]string{"awesome", "radical"}))
	assert.True(t, l.IsEmpty())
}

func TestFrozen(t *testing.T) {
	l := mustNew(t, "awesome").Freeze()
	assert.ErrorIs(t, l.Add("cool"), ErrFrozen)
	assert.ErrorIs(t, l.Remove("awesome"), ErrFrozen)
	assert.Equal(t, "awesome", l.String())

	c := l.Clone()
	assert.NoError(t, c.Add("cool"))
}

func TestFromCopiesList(t *testing.T) {
	orig := mustNew(t, "a")
	l, err := From("", orig)
	require.NoError(t, err)
	require.NoError(t, l.Add("b"))
	assert.Equal(t, 1, orig.Len())
}

func TestCustomDelimiter(t *testing.T) {
	l := ParseWith("a; b; 'c; d'", ";")
	assert.ElementsMatch(t, []string{"a", "b", "c; d"}, l.Texts())
	assert.Contains(t, l.String(), `"c; d"`)
}
