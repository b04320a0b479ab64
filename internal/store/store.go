// Package store persists taggables, tags and taggings in SQLite or PostgreSQL.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// ErrDuplicateTag is returned by CreateTag when a tag with the same level and
// value (ignoring case) already exists.
var ErrDuplicateTag = errors.New("duplicate tag")

// ErrNotFound is returned when a taggable does not exist.
var ErrNotFound = errors.New("not found")

// OwnerScope selects taggings by tagger.
type OwnerScope int

const (
	// AnyOwner matches owned and unowned taggings.
	AnyOwner OwnerScope = iota
	// Unowned matches taggings without a tagger.
	Unowned
	// ByOwner matches taggings of one tagger.
	ByOwner
)

// MatchMode selects how TaggedWith combines values.
type MatchMode int

const (
	// MatchAll requires every value (one join per value).
	MatchAll MatchMode = iota
	// MatchAny requires at least one value.
	MatchAny
	// Exclude returns records tagged with none of the values.
	Exclude
	// MatchExact requires the in-scope tags to be exactly the values.
	MatchExact
)

func (m MatchMode) String() string {
	switch m {
	case MatchAny:
		return "any"
	case Exclude:
		return "exclude"
	case MatchExact:
		return "match_all"
	}
	return "all"
}

// FindTagsParams holds parameters for looking up tags.
type FindTagsParams struct {
	Values    []string           // matched case-insensitively; empty means every value
	Condition *tagtype.Condition // nil means every level
}

// TaggingFilter holds parameters for loading taggings.
type TaggingFilter struct {
	TaggableID   string // empty means every taggable
	TaggableType string
	Condition    *tagtype.Condition
	Owners       OwnerScope
	Owner        model.Owner // used with ByOwner
}

// ListParams holds parameters for listing taggables.
type ListParams struct {
	Type  string
	Limit int
}

// TaggedWithParams holds parameters for querying taggables by tag values.
type TaggedWithParams struct {
	TaggableType string
	Values       []string
	Condition    *tagtype.Condition
	Mode         MatchMode
	Owner        *model.Owner // restrict matches to one tagger
}

// RelatedParams holds parameters for finding taggables sharing tag values.
type RelatedParams struct {
	TaggableType string // type of the results
	Values       []string
	Condition    *tagtype.Condition
	ExcludeID    string // skipped when the result type matches ExcludeType
	ExcludeType  string
	Limit        int
}

// Related is a taggable with the number of tags it shares.
type Related struct {
	model.Taggable `yaml:",inline"`
	Count          int `json:"count" yaml:"count"`
}

// TagCountParams holds parameters for counting tag usage.
type TagCountParams struct {
	TaggableType string
	Condition    *tagtype.Condition
	AtLeast      int
	Limit        int
}

// TagCount is a tag with the number of taggings pointing to it.
type TagCount struct {
	model.Tag `yaml:",inline"`
	Count     int `json:"count" yaml:"count"`
}

// Store defines the storage the tagging engine runs against.
type Store interface {
	// PutTaggable inserts or updates a taggable. An empty ID is assigned.
	PutTaggable(ctx context.Context, t *model.Taggable) error
	GetTaggable(ctx context.Context, typ, id string) (*model.Taggable, error)
	ListTaggables(ctx context.Context, p ListParams) ([]model.Taggable, error)
	// RmTaggable deletes a taggable and its taggings.
	RmTaggable(ctx context.Context, typ, id string) error

	FindTags(ctx context.Context, p FindTagsParams) ([]model.Tag, error)
	// CreateTag inserts a tag or returns ErrDuplicateTag.
	CreateTag(ctx context.Context, t *model.Tag) error

	// FindTaggings returns taggings with their Tag populated, oldest first.
	FindTaggings(ctx context.Context, f TaggingFilter) ([]model.Tagging, error)
	// CreateTagging inserts a tagging. A uniqueness violation is ErrDuplicateTagging.
	CreateTagging(ctx context.Context, t *model.Tagging) error
	// UpdateTagging rewrites tag, tagger and relevance of an existing row.
	UpdateTagging(ctx context.Context, t model.Tagging) error
	DeleteTaggings(ctx context.Context, ids []string) error

	TaggedWith(ctx context.Context, p TaggedWithParams) ([]model.Taggable, error)
	Untagged(ctx context.Context, taggableType string, cond tagtype.Condition) ([]model.Taggable, error)
	Related(ctx context.Context, p RelatedParams) ([]Related, error)
	TagCounts(ctx context.Context, p TagCountParams) ([]TagCount, error)

	// InTx runs fn against a store bound to one transaction. The
	// transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(Store) error) error

	// Close closes the store.
	Close() error
}
