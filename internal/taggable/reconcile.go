package taggable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// Save writes the record row and reconciles every list set since the last
// save or reload, all in one transaction. Lists are validated first; a
// rejected value fails the save with model.ValidationErrors and nothing is
// written. Every cached list is dropped after a successful save.
func (r *Record) Save(ctx context.Context) (err error) {
	e := r.engine
	start := time.Now()
	defer func() { e.metrics.Saved(err, time.Since(start).Seconds()) }()

	var slots []*slot
	for _, s := range r.dirtySlots() {
		// Only slots covering the type's own level are written.
		if !s.scope.Has(tagtype.Current) {
			e.log.DebugContext(ctx, "skipping tag list without current scope",
				"taggable", r.kind.name, "type", s.typ.Name(), "scope", s.scope.String())
			continue
		}
		slots = append(slots, s)
	}
	owned := r.dirtyOwned()

	var errs model.ValidationErrors
	for _, s := range slots {
		errs = append(errs, e.validate(s.typ, s.list)...)
	}
	for _, s := range owned {
		errs = append(errs, e.validate(s.typ, s.list)...)
	}
	if len(errs) > 0 {
		return errs
	}

	row := r.row
	row.CachedLists = r.cachedLists()
	err = e.store.InTx(ctx, func(st store.Store) error {
		if err := st.PutTaggable(ctx, &row); err != nil {
			return err
		}
		rc := &reconciler{e: e, st: st, row: row}
		for _, s := range slots {
			if err := rc.public(ctx, s); err != nil {
				return err
			}
		}
		for _, s := range owned {
			if err := rc.owned(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", r.kind.name, row.ID, err)
	}

	r.row = row
	r.resetCaches()
	return nil
}

type reconciler struct {
	e   *Engine
	st  store.Store
	row model.Taggable

	// every tagging on the record, loaded on demand and kept in step with
	// each write so later owners in the same save see earlier changes
	all    []model.Tagging
	loaded bool
}

type counts struct {
	created, deleted, promoted, reweighted, adopted int
}

func (rc *reconciler) public(ctx context.Context, s *slot) error {
	matches, err := rc.e.findOrCreate(ctx, rc.st, s.typ, s.list)
	if err != nil {
		return err
	}
	// Parents are included so a parent level tagging can be re-pointed
	// instead of duplicated.
	cond := s.typ.Condition(s.scope | tagtype.Parents)
	current, err := rc.st.FindTaggings(ctx, store.TaggingFilter{
		TaggableID:   rc.row.ID,
		TaggableType: rc.row.Type,
		Condition:    &cond,
		Owners:       store.Unowned,
	})
	if err != nil {
		return err
	}
	c, err := rc.apply(ctx, s.typ, matches, current, model.Owner{})
	if err != nil {
		return err
	}
	rc.report(ctx, s.typ, s.scope, model.Owner{}, c)
	return nil
}

func (rc *reconciler) owned(ctx context.Context, s *ownedSlot) error {
	matches, err := rc.e.findOrCreate(ctx, rc.st, s.typ, s.list)
	if err != nil {
		return err
	}
	cond := s.typ.Condition(tagtype.DefaultScope | tagtype.Parents)
	current, err := rc.st.FindTaggings(ctx, store.TaggingFilter{
		TaggableID:   rc.row.ID,
		TaggableType: rc.row.Type,
		Condition:    &cond,
		Owners:       store.ByOwner,
		Owner:        s.owner,
	})
	if err != nil {
		return err
	}
	c, err := rc.apply(ctx, s.typ, matches, current, s.owner)
	if err != nil {
		return err
	}
	rc.report(ctx, s.typ, tagtype.DefaultScope, s.owner, c)
	return nil
}

// apply diffs the desired tags against the current taggings of one owner
// (the zero owner for public lists) and writes the difference. A promoted
// tagging keeps its relevance when the new value carries none.
func (rc *reconciler) apply(ctx context.Context, typ *tagtype.Type, matches []TagMatch, current []model.Tagging, owner model.Owner) (counts, error) {
	var c counts
	desired := make(map[string]TagMatch, len(matches))
	for _, m := range matches {
		desired[m.Tag.ID] = m
	}
	have := make(map[string]model.Tagging, len(current))
	for _, g := range current {
		have[g.TagID] = g
	}

	for _, m := range matches {
		g, ok := have[m.Tag.ID]
		if !ok {
			continue
		}
		rel := m.Input.RelevancePtr()
		if rel == nil || (g.Relevance != nil && *g.Relevance == *rel) {
			continue
		}
		g.Relevance = rel
		if err := rc.st.UpdateTagging(ctx, g); err != nil {
			return c, err
		}
		rc.updated(g)
		c.reweighted++
	}

	var toAdd []TagMatch
	for _, m := range matches {
		if _, ok := have[m.Tag.ID]; !ok {
			toAdd = append(toAdd, m)
		}
	}

	level := typ.StorageLevel()
	var drop []string
	for _, g := range current {
		if _, ok := desired[g.TagID]; ok {
			continue
		}
		if !rc.e.reg.Level(g.Tag.Type).IsAncestorOf(level) {
			drop = append(drop, g.ID)
			continue
		}
		// A broader tagging is never removed by a narrower list. It is
		// re-pointed when the list holds the same value.
		i := indexOfValue(toAdd, g.Tag.Value)
		if i < 0 {
			continue
		}
		m := toAdd[i]
		toAdd = append(toAdd[:i], toAdd[i+1:]...)
		g.TagID = m.Tag.ID
		if rel := m.Input.RelevancePtr(); rel != nil {
			g.Relevance = rel
		}
		if err := rc.st.UpdateTagging(ctx, g); err != nil {
			return c, err
		}
		rc.updated(g)
		c.promoted++
	}
	if err := rc.st.DeleteTaggings(ctx, drop); err != nil {
		return c, err
	}
	rc.deleted(drop)
	c.deleted = len(drop)

	for _, m := range toAdd {
		g := model.Tagging{
			TagID:        m.Tag.ID,
			TaggableID:   rc.row.ID,
			TaggableType: rc.row.Type,
			TaggerID:     owner.ID,
			TaggerType:   owner.Type,
			Relevance:    m.Input.RelevancePtr(),
		}
		if !owner.IsZero() && !rc.e.opts.MultipleTaggers {
			adopted, err := rc.adopt(ctx, g)
			if err != nil {
				return c, err
			}
			if adopted {
				c.adopted++
				continue
			}
		}
		if err := rc.st.CreateTagging(ctx, &g); err != nil {
			return c, err
		}
		if rc.loaded {
			rc.all = append(rc.all, g)
		}
		c.created++
	}
	return c, nil
}

// adopt hands an existing tagging of the same tag on the record over to
// g's owner. It reports false when there is none.
func (rc *reconciler) adopt(ctx context.Context, g model.Tagging) (bool, error) {
	if !rc.loaded {
		all, err := rc.st.FindTaggings(ctx, store.TaggingFilter{
			TaggableID:   rc.row.ID,
			TaggableType: rc.row.Type,
		})
		if err != nil {
			return false, err
		}
		rc.all, rc.loaded = all, true
	}
	for i, existing := range rc.all {
		if existing.TagID != g.TagID {
			continue
		}
		existing.TaggerID, existing.TaggerType = g.TaggerID, g.TaggerType
		if g.Relevance != nil {
			existing.Relevance = g.Relevance
		}
		if err := rc.st.UpdateTagging(ctx, existing); err != nil {
			return false, err
		}
		rc.all[i] = existing
		return true, nil
	}
	return false, nil
}

func (rc *reconciler) updated(g model.Tagging) {
	for i := range rc.all {
		if rc.all[i].ID == g.ID {
			rc.all[i] = g
			return
		}
	}
}

func (rc *reconciler) deleted(ids []string) {
	if len(ids) == 0 || !rc.loaded {
		return
	}
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	kept := rc.all[:0]
	for _, g := range rc.all {
		if !gone[g.ID] {
			kept = append(kept, g)
		}
	}
	rc.all = kept
}

func (rc *reconciler) report(ctx context.Context, typ *tagtype.Type, scope tagtype.Scope, owner model.Owner, c counts) {
	m := rc.e.metrics
	m.TaggingsCreated(rc.row.Type, c.created)
	m.TaggingsDeleted(rc.row.Type, c.deleted)
	m.TaggingsPromoted(rc.row.Type, c.promoted)
	m.TaggingsReweighted(rc.row.Type, c.reweighted)

	rc.e.log.DebugContext(ctx, "reconciled tag list",
		"taggable", rc.row.Type+"/"+rc.row.ID,
		"type", typ.Name(),
		"level", typ.StorageLevel().Key(),
		"scope", scope.String(),
		"owner", owner.String(),
		"created", c.created,
		"deleted", c.deleted,
		"promoted", c.promoted,
		"reweighted", c.reweighted,
		"adopted", c.adopted,
	)
}

func indexOfValue(matches []TagMatch, value string) int {
	key := taglist.Normalize(value)
	for i, m := range matches {
		if taglist.Normalize(m.Tag.Value) == key {
			return i
		}
	}
	return -1
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
