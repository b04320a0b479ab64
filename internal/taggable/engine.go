// Package taggable attaches typed, weighted and owned tag lists to records
// and reconciles them against the store on save.
package taggable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/rcliao/tagtical/internal/metrics"
	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// Range bounds accepted relevances, inclusive.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether f lies within the range.
func (r Range) Contains(f float64) bool { return f >= r.Min && f <= r.Max }

// Options is the immutable engine configuration.
type Options struct {
	// RelevanceRange rejects relevances outside it when set.
	RelevanceRange *Range
	// PolymorphicTagger persists and matches the owner type with the owner id.
	PolymorphicTagger bool
	// MultipleTaggers allows several owners to attach the same tag to one
	// record. When false a new owner takes over the existing tagging.
	MultipleTaggers bool
	// ForceLowercase stores new tag values in lower case.
	ForceLowercase bool
	// Delimiter splits free text lists.
	Delimiter string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{MultipleTaggers: true, Delimiter: taglist.DefaultDelimiter}
}

// Engine resolves kinds and types and runs tag reconciliation against a store.
// It is safe for concurrent use; Records are not.
type Engine struct {
	store   store.Store
	reg     *tagtype.Registry
	opts    Options
	log     *slog.Logger
	metrics *metrics.Recorder

	mu    sync.RWMutex
	kinds map[string]*Kind
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records reconciliation counters on m.
func WithMetrics(m *metrics.Recorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine over st using the hierarchy in reg.
func New(st store.Store, reg *tagtype.Registry, opts Options, eopts ...EngineOption) *Engine {
	if opts.Delimiter == "" {
		opts.Delimiter = taglist.DefaultDelimiter
	}
	e := &Engine{
		store: st,
		reg:   reg,
		opts:  opts,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		kinds: map[string]*Kind{},
	}
	for _, o := range eopts {
		o(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Registry returns the tag hierarchy.
func (e *Engine) Registry() *tagtype.Registry { return e.reg }

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// IsOfType reports whether tag is of typeName or one of its subtypes.
func (e *Engine) IsOfType(tag model.Tag, typeName string) bool {
	return e.reg.IsOfType(tag.Type, typeName)
}

// owner normalizes o to what is persisted for it.
func (e *Engine) owner(o model.Owner) model.Owner {
	if !e.opts.PolymorphicTagger {
		o.Type = ""
	}
	return o
}

// TagMatch is a tag found or created for one input value.
type TagMatch struct {
	Tag   model.Tag
	Input taglist.Value
}

// FindOrCreateTags returns one tag per value of list at typ's storage level,
// creating missing ones. Values are matched ignoring case.
func (e *Engine) FindOrCreateTags(ctx context.Context, typ *tagtype.Type, list *taglist.List) ([]TagMatch, error) {
	if errs := e.validate(typ, list); len(errs) > 0 {
		return nil, errs
	}
	return e.findOrCreate(ctx, e.store, typ, list)
}

func (e *Engine) findOrCreate(ctx context.Context, st store.Store, typ *tagtype.Type, list *taglist.List) ([]TagMatch, error) {
	if list.IsEmpty() {
		return nil, nil
	}
	level := typ.StorageLevel()
	cond := &tagtype.Condition{Types: []string{level.Key()}}

	texts := make([]string, 0, list.Len())
	for _, v := range list.Values() {
		texts = append(texts, e.storedValue(level, v.Text()))
	}

	existing, err := st.FindTags(ctx, store.FindTagsParams{Values: texts, Condition: cond})
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]model.Tag, len(existing))
	for _, t := range existing {
		byKey[taglist.Normalize(t.Value)] = t
	}

	out := make([]TagMatch, 0, len(texts))
	for i, v := range list.Values() {
		key := taglist.Normalize(texts[i])
		tag, ok := byKey[key]
		if !ok {
			tag = model.Tag{Value: texts[i], Type: level.Key()}
			err := st.CreateTag(ctx, &tag)
			switch {
			case errors.Is(err, store.ErrDuplicateTag):
				e.metrics.TagRace()
				found, err := st.FindTags(ctx, store.FindTagsParams{Values: []string{texts[i]}, Condition: cond})
				if err != nil {
					return nil, err
				}
				if len(found) == 0 {
					return nil, fmt.Errorf("find tag %s/%q after conflict: %w", level.Key(), texts[i], store.ErrNotFound)
				}
				tag = found[0]
			case err != nil:
				return nil, err
			default:
				e.metrics.TagCreated()
			}
			byKey[key] = tag
		}
		out = append(out, TagMatch{Tag: tag, Input: v})
	}
	return out, nil
}

// storedValue applies lowercasing and the level's canonical spelling.
func (e *Engine) storedValue(level *tagtype.Level, text string) string {
	if e.opts.ForceLowercase {
		text = strings.ToLower(text)
	}
	if canon, ok := level.Canonical(text); ok {
		return canon
	}
	return text
}

// validate checks every value of list against the allow-list of typ's
// level and the relevance range.
func (e *Engine) validate(typ *tagtype.Type, list *taglist.List) model.ValidationErrors {
	var errs model.ValidationErrors
	level := typ.StorageLevel()
	allowed := level.PossibleValues()
	for _, v := range list.Values() {
		if _, ok := level.Canonical(v.Text()); !ok {
			errs = append(errs, &model.ValidationError{
				Field: typ.ListName(""), Value: v.Text(), Allowed: allowed, Err: model.ErrValueNotAllowed,
			})
		}
		if rel, ok := v.Relevance(); ok && e.opts.RelevanceRange != nil && !e.opts.RelevanceRange.Contains(rel) {
			errs = append(errs, &model.ValidationError{
				Field: typ.ListName(""), Value: v.Text(), Err: model.ErrRelevanceOutOfRange,
			})
		}
	}
	return errs
}

// Kind declares a taggable type: its name, the namespace its tag types
// resolve in, the types it declares and those it caches as text.
type Kind struct {
	name      string
	namespace string
	catalog   *tagtype.Catalog
	types     []*tagtype.Type
	cached    map[string]bool
}

// Declare registers a kind. Every declared type must resolve to a registered
// level; "tag" is always included.
func (e *Engine) Declare(name, namespace string, types []string, cached ...string) (*Kind, error) {
	if name == "" {
		return nil, fmt.Errorf("declare kind: empty name")
	}
	k := &Kind{
		name:      name,
		namespace: namespace,
		catalog:   e.reg.Catalog(namespace),
		cached:    map[string]bool{},
	}
	k.types = append(k.types, k.catalog.Resolve(tagtype.BaseName))
	seen := map[string]bool{tagtype.BaseName: true}
	for _, raw := range types {
		t, err := k.catalog.Require(raw)
		if err != nil {
			return nil, fmt.Errorf("declare kind %q: %w", name, err)
		}
		if seen[t.Name()] {
			continue
		}
		seen[t.Name()] = true
		k.types = append(k.types, t)
	}
	for _, raw := range cached {
		k.cached[k.catalog.Resolve(raw).Name()] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.kinds[name]; ok {
		return nil, fmt.Errorf("declare kind %q: already declared", name)
	}
	e.kinds[name] = k
	return k, nil
}

// Kind returns a declared kind by name.
func (e *Engine) Kind(name string) (*Kind, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	k, ok := e.kinds[name]
	return k, ok
}

// Kinds returns every declared kind sorted by name.
func (e *Engine) Kinds() []*Kind {
	e.mu.RLock()
	out := make([]*Kind, 0, len(e.kinds))
	for _, k := range e.kinds {
		out = append(out, k)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (k *Kind) Name() string      { return k.name }
func (k *Kind) Namespace() string { return k.namespace }

// Types returns the declared types, base first.
func (k *Kind) Types() []*tagtype.Type { return append([]*tagtype.Type(nil), k.types...) }

// Type resolves raw in the kind's namespace. Undeclared names resolve too
// and fall back to looseleaf storage.
func (k *Kind) Type(raw string) *tagtype.Type { return k.catalog.Resolve(raw) }

// Caches reports whether the kind stores typ's list as text on save.
func (k *Kind) Caches(typ *tagtype.Type) bool { return k.cached[typ.Name()] }
