package model

import (
	"fmt"
	"strings"
	"time"
)

// Tagging links a Tag to a taggable record, optionally on behalf of an owner.
type Tagging struct {
	ID           string    `json:"id" yaml:"id"`
	TagID        string    `json:"tag_id" yaml:"tag_id"`
	TaggableID   string    `json:"taggable_id" yaml:"taggable_id"`
	TaggableType string    `json:"taggable_type" yaml:"taggable_type"`
	TaggerID     string    `json:"tagger_id,omitempty" yaml:"tagger_id,omitempty"`
	TaggerType   string    `json:"tagger_type,omitempty" yaml:"tagger_type,omitempty"`
	Relevance    *float64  `json:"relevance,omitempty" yaml:"relevance,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	Tag          *Tag      `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// Owned reports whether the tagging has a tagger.
func (t Tagging) Owned() bool { return t.TaggerID != "" }

// Owner returns the tagger.
func (t Tagging) Owner() Owner { return Owner{ID: t.TaggerID, Type: t.TaggerType} }

// Validate checks required fields before insert.
func (t Tagging) Validate() error {
	var missing []string
	if t.TagID == "" {
		missing = append(missing, "tag_id")
	}
	if t.TaggableID == "" {
		missing = append(missing, "taggable_id")
	}
	if t.TaggableType == "" {
		missing = append(missing, "taggable_type")
	}
	if len(missing) > 0 {
		return fmt.Errorf("tagging: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// CompareTaggings orders like CompareTags, using the joined tag value as
// the fallback when present.
func CompareTaggings(a, b Tagging) int {
	if c := compareRelevance(a.Relevance, b.Relevance); c != 0 {
		return c
	}
	return strings.Compare(a.value(), b.value())
}

func (t Tagging) value() string {
	if t.Tag != nil {
		return t.Tag.Value
	}
	return t.TagID
}

// Owner identifies a tagger. The zero Owner means unowned.
type Owner struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// IsZero reports whether o is the unowned owner.
func (o Owner) IsZero() bool { return o.ID == "" }

func (o Owner) String() string {
	if o.Type == "" {
		return o.ID
	}
	return o.Type + ":" + o.ID
}

// Taggable is the persisted identity of a record that carries tags.
type Taggable struct {
	ID          string            `json:"id" yaml:"id"`
	Type        string            `json:"type" yaml:"type"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	CachedLists map[string]string `json:"cached_lists,omitempty" yaml:"cached_lists,omitempty"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
}
