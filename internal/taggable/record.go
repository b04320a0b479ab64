package taggable

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// slotKey identifies a cached list: the level a type stores at and the
// resolved scope it was read or set with.
type slotKey struct {
	level string
	scope tagtype.Scope
}

type slot struct {
	typ   *tagtype.Type
	scope tagtype.Scope
	list  *taglist.List
	dirty bool
}

type ownedSlot struct {
	typ   *tagtype.Type
	owner model.Owner
	list  *taglist.List
	dirty bool
}

// Record is one taggable instance with its per-scope list caches. A Record
// must not be shared between goroutines.
type Record struct {
	engine *Engine
	kind   *Kind
	row    model.Taggable

	lists map[slotKey]*slot
	all   map[slotKey]*taglist.List
	owned map[string]map[model.Owner]*ownedSlot
}

// NewRecord returns an unsaved record of kind. An empty id is assigned on
// the first save.
func (e *Engine) NewRecord(kind *Kind, id, name string) *Record {
	r := &Record{engine: e, kind: kind, row: model.Taggable{ID: id, Type: kind.name, Name: name}}
	r.resetCaches()
	return r
}

// Load reads a saved record.
func (e *Engine) Load(ctx context.Context, kind *Kind, id string) (*Record, error) {
	row, err := e.store.GetTaggable(ctx, kind.name, id)
	if err != nil {
		return nil, err
	}
	r := &Record{engine: e, kind: kind, row: *row}
	r.resetCaches()
	return r, nil
}

// Open loads the record with id, or returns a new unsaved one when it does
// not exist yet.
func (e *Engine) Open(ctx context.Context, kind *Kind, id string) (*Record, error) {
	r, err := e.Load(ctx, kind, id)
	if err == nil {
		return r, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return e.NewRecord(kind, id, ""), nil
}

func (r *Record) ID() string       { return r.row.ID }
func (r *Record) Kind() *Kind      { return r.kind }
func (r *Record) Name() string     { return r.row.Name }
func (r *Record) SetName(n string) { r.row.Name = n }

// Taggable returns the persisted row.
func (r *Record) Taggable() model.Taggable { return r.row }

// Reload re-reads the row and drops every cached list, including unsaved ones.
func (r *Record) Reload(ctx context.Context) error {
	row, err := r.engine.store.GetTaggable(ctx, r.kind.name, r.row.ID)
	if err != nil {
		return err
	}
	r.row = *row
	r.resetCaches()
	return nil
}

func (r *Record) resetCaches() {
	r.lists = map[slotKey]*slot{}
	r.all = map[slotKey]*taglist.List{}
	r.owned = map[string]map[model.Owner]*ownedSlot{}
}

// ListOption adjusts a list read or write.
type ListOption func(*listConfig)

type listConfig struct {
	scope   tagtype.Scope
	cascade bool
}

// InScope selects the hierarchy slice. The default is current and children.
func InScope(s tagtype.Scope) ListOption {
	return func(c *listConfig) { c.scope |= s }
}

// Cascade moves values found in the allow-list of an expanded level into
// that level's own list before setting the rest.
func Cascade() ListOption {
	return func(c *listConfig) { c.cascade = true }
}

func listOptions(opts []ListOption) listConfig {
	var c listConfig
	for _, o := range opts {
		o(&c)
	}
	c.scope = c.scope.Resolve()
	return c
}

// TagsOn returns the unowned tags of typeName on the record, carrying the
// tagging relevance, in the order they were attached.
func (r *Record) TagsOn(ctx context.Context, typeName string, opts ...ListOption) ([]model.Tag, error) {
	c := listOptions(opts)
	return r.tagsOn(ctx, r.kind.Type(typeName), c.scope, store.Unowned, model.Owner{})
}

func (r *Record) tagsOn(ctx context.Context, typ *tagtype.Type, scope tagtype.Scope, owners store.OwnerScope, owner model.Owner) ([]model.Tag, error) {
	if r.row.ID == "" {
		return nil, nil
	}
	cond := typ.Condition(scope)
	taggings, err := r.engine.store.FindTaggings(ctx, store.TaggingFilter{
		TaggableID:   r.row.ID,
		TaggableType: r.kind.name,
		Condition:    &cond,
		Owners:       owners,
		Owner:        r.engine.owner(owner),
	})
	if err != nil {
		return nil, fmt.Errorf("load %s on %s/%s: %w", typ.ScopeName(), r.kind.name, r.row.ID, err)
	}
	tags := make([]model.Tag, 0, len(taggings))
	for _, g := range taggings {
		t := *g.Tag
		if g.Relevance != nil {
			t.Relevance = g.Relevance
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (r *Record) newList() *taglist.List { return taglist.Empty(r.engine.opts.Delimiter) }

func (r *Record) listOf(tags []model.Tag) *taglist.List {
	l := r.newList()
	for _, t := range tags {
		_ = l.Add(t)
	}
	return l
}

// TagListOn returns the public list of typeName. The first read of a scope
// loads it from the store; later reads and writes use the cached list. The
// returned list is a copy.
func (r *Record) TagListOn(ctx context.Context, typeName string, opts ...ListOption) (*taglist.List, error) {
	c := listOptions(opts)
	typ := r.kind.Type(typeName)
	key := slotKey{typ.StorageLevel().Key(), c.scope}
	if s, ok := r.lists[key]; ok {
		return s.list.Clone(), nil
	}
	tags, err := r.tagsOn(ctx, typ, c.scope, store.Unowned, model.Owner{})
	if err != nil {
		return nil, err
	}
	s := &slot{typ: typ, scope: c.scope, list: r.listOf(tags)}
	r.lists[key] = s
	return s.list.Clone(), nil
}

// HasTagListOn reports whether a list for typeName is cached.
func (r *Record) HasTagListOn(typeName string, opts ...ListOption) bool {
	c := listOptions(opts)
	_, ok := r.lists[slotKey{r.kind.Type(typeName).StorageLevel().Key(), c.scope}]
	return ok
}

// SetTagListOn replaces the desired public list of typeName. items is
// anything taglist accepts. Nothing is written until Save.
func (r *Record) SetTagListOn(typeName string, items any, opts ...ListOption) error {
	c := listOptions(opts)
	typ := r.kind.Type(typeName)
	list, err := taglist.From(r.engine.opts.Delimiter, items)
	if err != nil {
		return err
	}
	if c.cascade {
		if list, err = r.cascade(typ, c.scope, list); err != nil {
			return err
		}
	}
	r.setSlot(typ, c.scope, list)
	return nil
}

func (r *Record) setSlot(typ *tagtype.Type, scope tagtype.Scope, list *taglist.List) {
	key := slotKey{typ.StorageLevel().Key(), scope}
	r.lists[key] = &slot{typ: typ, scope: scope, list: list, dirty: true}
}

// cascade moves values accepted by the allow-list of an expanded level into
// that level's current list and returns what is left.
func (r *Record) cascade(typ *tagtype.Type, scope tagtype.Scope, list *taglist.List) (*taglist.List, error) {
	rest := list.Clone()
	for _, level := range typ.Expand(scope) {
		if level == typ.StorageLevel() || len(level.PossibleValues()) == 0 {
			continue
		}
		moved := r.newList()
		for _, v := range rest.Values() {
			canon, ok := level.Canonical(v.Text())
			if !ok {
				continue
			}
			if rel, has := v.Relevance(); has {
				_ = moved.Add(taglist.WithRelevance(canon, rel))
			} else {
				_ = moved.Add(taglist.NewValue(canon))
			}
			if err := rest.Remove(v); err != nil {
				return nil, err
			}
		}
		if !moved.IsEmpty() {
			r.setSlot(r.kind.catalog.TypeFor(level), tagtype.Current, moved)
		}
	}
	return rest, nil
}

// AllTagsOn returns every tag of typeName on the record, owned or not. The
// list is frozen.
func (r *Record) AllTagsOn(ctx context.Context, typeName string, opts ...ListOption) (*taglist.List, error) {
	c := listOptions(opts)
	typ := r.kind.Type(typeName)
	key := slotKey{typ.StorageLevel().Key(), c.scope}
	if l, ok := r.all[key]; ok {
		return l, nil
	}
	tags, err := r.tagsOn(ctx, typ, c.scope, store.AnyOwner, model.Owner{})
	if err != nil {
		return nil, err
	}
	l := r.listOf(tags).Freeze()
	r.all[key] = l
	return l, nil
}

// OwnerTagsOn returns the tags owner attached to the record on typeName.
func (r *Record) OwnerTagsOn(ctx context.Context, owner model.Owner, typeName string, opts ...ListOption) ([]model.Tag, error) {
	c := listOptions(opts)
	if owner.IsZero() {
		return r.tagsOn(ctx, r.kind.Type(typeName), c.scope, store.AnyOwner, owner)
	}
	return r.tagsOn(ctx, r.kind.Type(typeName), c.scope, store.ByOwner, owner)
}

// OwnerTagListOn returns owner's list of typeName, cached per owner.
func (r *Record) OwnerTagListOn(ctx context.Context, owner model.Owner, typeName string) (*taglist.List, error) {
	typ := r.kind.Type(typeName)
	owner = r.engine.owner(owner)
	if s, ok := r.ownedSlots(typ)[owner]; ok {
		return s.list.Clone(), nil
	}
	tags, err := r.OwnerTagsOn(ctx, owner, typeName)
	if err != nil {
		return nil, err
	}
	s := &ownedSlot{typ: typ, owner: owner, list: r.listOf(tags)}
	r.ownedSlots(typ)[owner] = s
	return s.list.Clone(), nil
}

// SetOwnerTagListOn replaces owner's desired list of typeName.
func (r *Record) SetOwnerTagListOn(owner model.Owner, typeName string, items any) error {
	if owner.IsZero() {
		return fmt.Errorf("set owner tag list: owner id is required")
	}
	typ := r.kind.Type(typeName)
	list, err := taglist.From(r.engine.opts.Delimiter, items)
	if err != nil {
		return err
	}
	owner = r.engine.owner(owner)
	r.ownedSlots(typ)[owner] = &ownedSlot{typ: typ, owner: owner, list: list, dirty: true}
	return nil
}

func (r *Record) ownedSlots(typ *tagtype.Type) map[model.Owner]*ownedSlot {
	key := typ.StorageLevel().Key()
	m, ok := r.owned[key]
	if !ok {
		m = map[model.Owner]*ownedSlot{}
		r.owned[key] = m
	}
	return m
}

// CachedTagList returns the text of typeName's list stored on the row at
// the last save, if the kind caches it.
func (r *Record) CachedTagList(typeName string) (string, bool) {
	s, ok := r.row.CachedLists[r.kind.Type(typeName).Name()]
	return s, ok
}

// dirtySlots returns the public slots to write, shallowest level first.
func (r *Record) dirtySlots() []*slot {
	var out []*slot
	for _, s := range r.lists {
		if s.dirty {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.typ.Depth() != b.typ.Depth() {
			return a.typ.Depth() < b.typ.Depth()
		}
		if a.typ.StorageLevel().Key() != b.typ.StorageLevel().Key() {
			return a.typ.StorageLevel().Key() < b.typ.StorageLevel().Key()
		}
		return a.scope < b.scope
	})
	return out
}

// dirtyOwned returns the owned slots to write, shallowest level first.
func (r *Record) dirtyOwned() []*ownedSlot {
	var out []*ownedSlot
	for _, m := range r.owned {
		for _, s := range m {
			if s.dirty {
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.typ.Depth() != b.typ.Depth() {
			return a.typ.Depth() < b.typ.Depth()
		}
		if a.typ.StorageLevel().Key() != b.typ.StorageLevel().Key() {
			return a.typ.StorageLevel().Key() < b.typ.StorageLevel().Key()
		}
		return strings.Compare(a.owner.String(), b.owner.String()) < 0
	})
	return out
}

// cachedLists renders the text of every cached type whose default list is
// loaded or set.
func (r *Record) cachedLists() map[string]string {
	out := map[string]string{}
	for k, v := range r.row.CachedLists {
		out[k] = v
	}
	for name := range r.kind.cached {
		typ := r.kind.Type(name)
		if s, ok := r.lists[slotKey{typ.StorageLevel().Key(), tagtype.DefaultScope}]; ok {
			out[typ.Name()] = s.list.String()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
