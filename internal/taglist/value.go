package taglist

import (
	"math"
	"strconv"
	"strings"
)

// RelevanceDelimiter separates a tag value from its relevance in free text ("ruby:2.5").
const RelevanceDelimiter = ":"

// Value is a single tag value with an optional relevance weight.
// Values are compared by their trimmed, case-folded text only.
type Value struct {
	text         string
	relevance    float64
	hasRelevance bool
}

// Valuer is implemented by entities that can be converted into a Value.
type Valuer interface {
	TagValue() Value
}

// NewValue returns a Value without relevance.
func NewValue(text string) Value {
	return Value{text: strings.TrimSpace(text)}
}

// WithRelevance returns a Value carrying the given relevance.
func WithRelevance(text string, relevance float64) Value {
	return Value{text: strings.TrimSpace(text), relevance: relevance, hasRelevance: true}
}

// ParseValue splits "value:relevance". When the suffix is not a number the
// whole input is kept as the value.
func ParseValue(s string) Value {
	if idx := strings.LastIndex(s, RelevanceDelimiter); idx > 0 {
		rel, err := strconv.ParseFloat(strings.TrimSpace(s[idx+len(RelevanceDelimiter):]), 64)
		if err == nil && !math.IsNaN(rel) && !math.IsInf(rel, 0) {
			return WithRelevance(s[:idx], rel)
		}
	}
	return NewValue(s)
}

// Text returns the value as it was first seen.
func (v Value) Text() string { return v.text }

// Relevance returns the relevance and whether one was given.
func (v Value) Relevance() (float64, bool) { return v.relevance, v.hasRelevance }

// RelevancePtr returns the relevance as a pointer, nil when absent.
func (v Value) RelevancePtr() *float64 {
	if !v.hasRelevance {
		return nil
	}
	r := v.relevance
	return &r
}

// Key is the normalized identity of the value.
func (v Value) Key() string { return Normalize(v.text) }

// Equal reports whether both values have the same normalized text.
func (v Value) Equal(o Value) bool { return v.Key() == o.Key() }

// IsBlank reports whether the value has no text.
func (v Value) IsBlank() bool { return v.text == "" }

func (v Value) String() string { return v.text }

// Normalize trims and case-folds a tag value.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func formatRelevance(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
