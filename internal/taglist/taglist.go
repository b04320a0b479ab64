// Package taglist implements ordered, de-duplicated tag collections and their
// text form: delimited values, quoted spans and ":relevance" suffixes.
package taglist

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultDelimiter separates values in free text.
const DefaultDelimiter = ","

var (
	// ErrInvalidTagInput is returned when Add or Remove receive input they cannot parse.
	ErrInvalidTagInput = errors.New("invalid tag input")
	// ErrFrozen is returned when a frozen list is mutated.
	ErrFrozen = errors.New("tag list is frozen")
)

var valueQuotes = []string{"'", `"`}

// List is an ordered set of Values. No two elements share normalized text.
type List struct {
	values    []Value
	delimiter string
	frozen    bool
}

// Empty returns an empty list that splits on the given delimiter.
func Empty(delimiter string) *List {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &List{delimiter: delimiter}
}

// New builds a list from any input accepted by Add.
func New(items ...any) (*List, error) {
	l := Empty(DefaultDelimiter)
	if err := l.Add(items...); err != nil {
		return nil, err
	}
	return l, nil
}

// From returns a copy of an existing list, or builds a new one from items.
func From(delimiter string, items ...any) (*List, error) {
	if len(items) == 1 {
		if existing, ok := items[0].(*List); ok && existing != nil {
			c := existing.Clone()
			if delimiter != "" {
				c.delimiter = delimiter
			}
			return c, nil
		}
	}
	l := Empty(delimiter)
	if err := l.Add(items...); err != nil {
		return nil, err
	}
	return l, nil
}

// Parse splits free text into a list. Empty input yields an empty list.
func Parse(text string) *List {
	return ParseWith(text, DefaultDelimiter)
}

// ParseWith is Parse with a custom delimiter.
func ParseWith(text, delimiter string) *List {
	l := Empty(delimiter)
	l.merge(l.splitText(text))
	return l
}

// FromMap builds one value per key with the mapped relevance. Keys are added
// in sorted order so the result is deterministic.
func FromMap(m map[string]float64) *List {
	l := Empty(DefaultDelimiter)
	l.merge(mapValues(m))
	return l
}

// Add normalizes each item and merges it into the list. Accepted items are
// strings (delimited text), Values, Valuers (tags), *List, map[string]float64,
// map[string]string, fmt.Stringers and slices of any of these. An entry whose
// text already exists keeps its position and casing and takes the new relevance.
func (l *List) Add(items ...any) error {
	if l.frozen {
		return ErrFrozen
	}
	var values []Value
	for _, item := range items {
		vs, err := l.extract(item, true)
		if err != nil {
			return err
		}
		values = append(values, vs...)
	}
	l.merge(values)
	return nil
}

// AddRaw adds each text as a single value without splitting on the delimiter.
func (l *List) AddRaw(texts ...string) error {
	if l.frozen {
		return ErrFrozen
	}
	values := make([]Value, 0, len(texts))
	for _, t := range texts {
		values = append(values, ParseValue(t))
	}
	l.merge(values)
	return nil
}

// Remove deletes values whose text exactly matches one of the items.
func (l *List) Remove(items ...any) error {
	if l.frozen {
		return ErrFrozen
	}
	drop := map[string]bool{}
	for _, item := range items {
		vs, err := l.extract(item, true)
		if err != nil {
			return err
		}
		for _, v := range vs {
			drop[v.Text()] = true
		}
	}
	kept := l.values[:0]
	for _, v := range l.values {
		if !drop[v.Text()] {
			kept = append(kept, v)
		}
	}
	l.values = kept
	return nil
}

// Len returns the number of values.
func (l *List) Len() int { return len(l.values) }

// IsEmpty reports whether the list has no values.
func (l *List) IsEmpty() bool { return len(l.values) == 0 }

// Values returns a copy of the values in order.
func (l *List) Values() []Value {
	out := make([]Value, len(l.values))
	copy(out, l.values)
	return out
}

// Texts returns the value texts in order.
func (l *List) Texts() []string {
	out := make([]string, len(l.values))
	for i, v := range l.values {
		out[i] = v.Text()
	}
	return out
}

// Find looks a value up case-insensitively.
func (l *List) Find(text string) (Value, bool) {
	if i := l.index(Normalize(text)); i >= 0 {
		return l.values[i], true
	}
	return Value{}, false
}

// Contains reports whether text is in the list, ignoring case.
func (l *List) Contains(text string) bool {
	_, ok := l.Find(text)
	return ok
}

// Delimiter returns the delimiter used for parsing and formatting.
func (l *List) Delimiter() string {
	if l.delimiter == "" {
		return DefaultDelimiter
	}
	return l.delimiter
}

// Clone returns an unfrozen copy.
func (l *List) Clone() *List {
	return &List{values: l.Values(), delimiter: l.delimiter}
}

// Freeze makes the list read-only.
func (l *List) Freeze() *List {
	l.frozen = true
	return l
}

// Frozen reports whether the list is read-only.
func (l *List) Frozen() bool { return l.frozen }

// String serializes the list without relevances.
func (l *List) String() string { return l.Format(false) }

// Format serializes the list, quoting values that contain the delimiter and
// appending ":relevance" to values that carry one when withRelevance is set.
func (l *List) Format(withRelevance bool) string {
	d := l.Delimiter()
	sep := d
	if !strings.HasSuffix(d, " ") {
		sep = d + " "
	}
	parts := make([]string, 0, len(l.values))
	for _, v := range l.values {
		text := v.Text()
		if strings.Contains(text, d) {
			text = `"` + text + `"`
		}
		if rel, ok := v.Relevance(); ok && withRelevance {
			text += RelevanceDelimiter + formatRelevance(rel)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, sep)
}

// MarshalText implements encoding.TextMarshaler.
func (l *List) MarshalText() ([]byte, error) {
	return []byte(l.Format(true)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *List) UnmarshalText(b []byte) error {
	if l.frozen {
		return ErrFrozen
	}
	l.values = nil
	l.merge(l.splitText(string(b)))
	return nil
}

func (l *List) index(key string) int {
	for i, v := range l.values {
		if v.Key() == key {
			return i
		}
	}
	return -1
}

func (l *List) merge(values []Value) {
	for _, v := range values {
		if v.IsBlank() {
			continue
		}
		if i := l.index(v.Key()); i >= 0 {
			existing := l.values[i]
			l.values[i] = Value{text: existing.text, relevance: v.relevance, hasRelevance: v.hasRelevance}
			continue
		}
		l.values = append(l.values, v)
	}
}

func (l *List) extract(item any, parse bool) ([]Value, error) {
	switch in := item.(type) {
	case nil:
		return nil, nil
	case Value:
		return []Value{in}, nil
	case *Value:
		if in == nil {
			return nil, nil
		}
		return []Value{*in}, nil
	case Valuer:
		return []Value{in.TagValue()}, nil
	case *List:
		if in == nil {
			return nil, nil
		}
		return in.Values(), nil
	case string:
		if !parse {
			return []Value{ParseValue(in)}, nil
		}
		return l.splitText(in), nil
	case []string:
		var out []Value
		for _, s := range in {
			out = append(out, l.splitText(s)...)
		}
		return out, nil
	case map[string]float64:
		return mapValues(in), nil
	case map[string]string:
		keys := sortedKeys(in)
		out := make([]Value, 0, len(keys))
		for _, k := range keys {
			rel, err := strconv.ParseFloat(strings.TrimSpace(in[k]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: relevance %q for %q", ErrInvalidTagInput, in[k], k)
			}
			out = append(out, WithRelevance(k, rel))
		}
		return out, nil
	case fmt.Stringer:
		return l.splitText(in.String()), nil
	}

	rv := reflect.ValueOf(item)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		var out []Value
		for i := 0; i < rv.Len(); i++ {
			vs, err := l.extract(rv.Index(i).Interface(), parse)
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot parse %T", ErrInvalidTagInput, item)
}

// splitText splits on the delimiter. A token that opens with a quote runs to
// the matching quote, so it may contain the delimiter.
func (l *List) splitText(input string) []Value {
	d := l.Delimiter()
	if !strings.Contains(input, d) {
		return []Value{ParseValue(input)}
	}

	var out []Value
	rest := input
	for {
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		if q := leadingQuote(trimmed); q != "" {
			if m := quotedPattern(d, q).FindStringSubmatch(trimmed); m != nil {
				out = append(out, ParseValue(m[1]+m[2]))
				rest = trimmed[len(m[0]):]
				if m[3] == "" {
					return out
				}
				continue
			}
		}
		idx := strings.Index(rest, d)
		if idx < 0 {
			return append(out, ParseValue(rest))
		}
		out = append(out, ParseValue(rest[:idx]))
		rest = rest[idx+len(d):]
	}
}

func leadingQuote(s string) string {
	for _, q := range valueQuotes {
		if strings.HasPrefix(s, q) {
			return q
		}
	}
	return ""
}

var (
	quotedMu       sync.Mutex
	quotedPatterns = map[string]*regexp.Regexp{}
)

func quotedPattern(delimiter, quote string) *regexp.Regexp {
	quotedMu.Lock()
	defer quotedMu.Unlock()

	key := delimiter + "\x00" + quote
	if re, ok := quotedPatterns[key]; ok {
		return re
	}
	d, q := regexp.QuoteMeta(delimiter), regexp.QuoteMeta(quote)
	rel := regexp.QuoteMeta(RelevanceDelimiter)
	re := regexp.MustCompile(`\A` + q + `(.*?)` + q + `(\s*` + rel + `\s*[-+0-9.eE]+)?\s*(` + d + `|\z)`)
	quotedPatterns[key] = re
	return re
}

func mapValues(m map[string]float64) []Value {
	keys := sortedKeys(m)
	out := make([]Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, WithRelevance(k, m[k]))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
