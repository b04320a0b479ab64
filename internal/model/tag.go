// Package model defines the persisted tagging entities.
package model

import (
	"sort"
	"strings"

	"github.com/rcliao/tagtical/internal/taglist"
)

// Tag is a value stored at one level of the type hierarchy.
type Tag struct {
	ID        string   `json:"id" yaml:"id"`
	Value     string   `json:"value" yaml:"value"`
	Type      string   `json:"type" yaml:"type"`
	Relevance *float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// TagValue converts the tag into a list value, carrying its relevance.
func (t Tag) TagValue() taglist.Value {
	if t.Relevance == nil {
		return taglist.NewValue(t.Value)
	}
	return taglist.WithRelevance(t.Value, *t.Relevance)
}

// Equal reports whether both tags share level and value, ignoring case.
func (t Tag) Equal(o Tag) bool {
	return t.Type == o.Type && taglist.Normalize(t.Value) == taglist.Normalize(o.Value)
}

func (t Tag) String() string { return t.Value }

// CompareTags orders by relevance descending when both tags carry one and
// they differ, otherwise by value.
func CompareTags(a, b Tag) int {
	if c := compareRelevance(a.Relevance, b.Relevance); c != 0 {
		return c
	}
	return strings.Compare(a.Value, b.Value)
}

// SortTags sorts in place with CompareTags.
func SortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool { return CompareTags(tags[i], tags[j]) < 0 })
}

func compareRelevance(a, b *float64) int {
	if a == nil || b == nil {
		return 0
	}
	switch {
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	}
	return 0
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
