package taggable

import (
	"context"
	"fmt"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// QueryOption adjusts TaggedWith.
type QueryOption func(*queryConfig)

type queryConfig struct {
	on    string
	scope tagtype.Scope
	mode  store.MatchMode
	owner *model.Owner
}

// On restricts matches to tags of typeName. The default is every type.
func On(typeName string) QueryOption {
	return func(c *queryConfig) { c.on = typeName }
}

// WithScope sets the hierarchy slice of the On type.
func WithScope(s tagtype.Scope) QueryOption {
	return func(c *queryConfig) { c.scope |= s }
}

// Any matches records tagged with at least one value.
func Any() QueryOption { return func(c *queryConfig) { c.mode = store.MatchAny } }

// Exclude matches records tagged with none of the values.
func Exclude() QueryOption { return func(c *queryConfig) { c.mode = store.Exclude } }

// MatchAll matches records whose tags in scope are exactly the values.
func MatchAll() QueryOption { return func(c *queryConfig) { c.mode = store.MatchExact } }

// TaggedBy only counts taggings of owner.
func TaggedBy(owner model.Owner) QueryOption {
	return func(c *queryConfig) { c.owner = &owner }
}

// TaggedWith returns records of kind tagged with items. Without a mode option
// every value is required.
func (e *Engine) TaggedWith(ctx context.Context, kind *Kind, items any, opts ...QueryOption) ([]model.Taggable, error) {
	var c queryConfig
	for _, o := range opts {
		o(&c)
	}
	list, err := taglist.From(e.opts.Delimiter, items)
	if err != nil {
		return nil, err
	}
	cond := kind.Type(c.on).Condition(c.scope.Resolve())
	p := store.TaggedWithParams{
		TaggableType: kind.name,
		Values:       list.Texts(),
		Condition:    &cond,
		Mode:         c.mode,
	}
	if c.owner != nil {
		o := e.owner(*c.owner)
		p.Owner = &o
	}
	out, err := e.store.TaggedWith(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("tagged with %s (%s): %w", list, c.mode, err)
	}
	return out, nil
}

// Untagged returns records of kind with no tag of typeName in scope.
func (e *Engine) Untagged(ctx context.Context, kind *Kind, typeName string, scope tagtype.Scope) ([]model.Taggable, error) {
	return e.store.Untagged(ctx, kind.name, kind.Type(typeName).Condition(scope.Resolve()))
}

// Related returns records of target sharing values of typeName with r, most
// shared first. r itself is skipped.
func (r *Record) Related(ctx context.Context, typeName string, target *Kind, limit int) ([]store.Related, error) {
	return r.related(ctx, typeName, nil, target, limit)
}

// MatchingContexts returns records of target whose result-type tags carry
// values of r's search-type tags.
func (r *Record) MatchingContexts(ctx context.Context, search, result string, target *Kind, limit int) ([]store.Related, error) {
	cond := target.Type(result).Condition(tagtype.DefaultScope)
	return r.related(ctx, search, &cond, target, limit)
}

func (r *Record) related(ctx context.Context, typeName string, cond *tagtype.Condition, target *Kind, limit int) ([]store.Related, error) {
	tags, err := r.TagsOn(ctx, typeName)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	values := make([]string, len(tags))
	for i, t := range tags {
		values[i] = t.Value
	}
	return r.engine.store.Related(ctx, store.RelatedParams{
		TaggableType: target.name,
		Values:       values,
		Condition:    cond,
		ExcludeID:    r.row.ID,
		ExcludeType:  r.kind.name,
		Limit:        limit,
	})
}

// Tag sets owner's list of typeName on r and saves it.
func (e *Engine) Tag(ctx context.Context, owner model.Owner, r *Record, typeName string, items any) error {
	if err := r.SetOwnerTagListOn(owner, typeName, items); err != nil {
		return err
	}
	return r.Save(ctx)
}

// OwnedTags returns every tag owner attached anywhere, each once.
func (e *Engine) OwnedTags(ctx context.Context, owner model.Owner) ([]model.Tag, error) {
	taggings, err := e.store.FindTaggings(ctx, store.TaggingFilter{Owners: store.ByOwner, Owner: e.owner(owner)})
	if err != nil {
		return nil, fmt.Errorf("owned tags of %s: %w", owner, err)
	}
	seen := map[string]bool{}
	var tags []model.Tag
	for _, g := range taggings {
		if seen[g.TagID] {
			continue
		}
		seen[g.TagID] = true
		tags = append(tags, *g.Tag)
	}
	model.SortTags(tags)
	return tags, nil
}

// Records lists saved records of kind, oldest first.
func (e *Engine) Records(ctx context.Context, kind *Kind, limit int) ([]model.Taggable, error) {
	return e.store.ListTaggables(ctx, store.ListParams{Type: kind.name, Limit: limit})
}

// Delete removes a record and its taggings. Tags are kept.
func (e *Engine) Delete(ctx context.Context, kind *Kind, id string) error {
	return e.store.RmTaggable(ctx, kind.name, id)
}

// TagCounts counts taggings per tag of typeName. A nil kind counts across
// every taggable type.
func (e *Engine) TagCounts(ctx context.Context, kind *Kind, typeName string, atLeast, limit int) ([]store.TagCount, error) {
	p := store.TagCountParams{AtLeast: atLeast, Limit: limit}
	var typ *tagtype.Type
	if kind != nil {
		p.TaggableType = kind.name
		typ = kind.Type(typeName)
	} else {
		typ = e.reg.Catalog("").Resolve(typeName)
	}
	cond := typ.Condition(tagtype.DefaultScope)
	p.Condition = &cond
	return e.store.TagCounts(ctx, p)
}
