package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// Export is a full dump of taggables, tags and taggings.
type Export struct {
	Taggables []model.Taggable `json:"taggables" yaml:"taggables"`
	Tags      []model.Tag      `json:"tags" yaml:"tags"`
	Taggings  []model.Tagging  `json:"taggings" yaml:"taggings"`
}

// ExportAll dumps the database, optionally limited to one taggable type.
// Tags are exported only when referenced by an exported tagging, unless no
// type filter is given.
func (s *SQLStore) ExportAll(ctx context.Context, taggableType string) (*Export, error) {
	taggables, err := s.ListTaggables(ctx, ListParams{Type: taggableType})
	if err != nil {
		return nil, fmt.Errorf("export taggables: %w", err)
	}
	taggings, err := s.FindTaggings(ctx, TaggingFilter{TaggableType: taggableType})
	if err != nil {
		return nil, fmt.Errorf("export taggings: %w", err)
	}

	var tags []model.Tag
	if taggableType == "" {
		if tags, err = s.FindTags(ctx, FindTagsParams{}); err != nil {
			return nil, fmt.Errorf("export tags: %w", err)
		}
	} else {
		seen := map[string]bool{}
		for _, g := range taggings {
			if g.Tag != nil && !seen[g.TagID] {
				seen[g.TagID] = true
				tags = append(tags, *g.Tag)
			}
		}
	}
	for i := range taggings {
		taggings[i].Tag = nil
	}

	return &Export{Taggables: taggables, Tags: tags, Taggings: taggings}, nil
}

// Import loads an export in one transaction, keeping the exported ids. Rows
// that already exist are skipped. It returns the number of rows written.
func (s *SQLStore) Import(ctx context.Context, e *Export) (int, error) {
	imported := 0
	err := s.InTx(ctx, func(st Store) error {
		tx := st.(*SQLStore)

		for i := range e.Taggables {
			t := e.Taggables[i]
			if _, err := tx.GetTaggable(ctx, t.Type, t.ID); err == nil {
				continue
			}
			if err := tx.PutTaggable(ctx, &t); err != nil {
				return err
			}
			imported++
		}

		// Tags are matched on (type, value); ids in the dump are remapped
		// onto existing rows.
		tagIDs := map[string]string{}
		for _, t := range e.Tags {
			res, err := tx.exec(ctx,
				`INSERT INTO tags (id, value, value_key, type, relevance) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				t.ID, t.Value, taglist.Normalize(t.Value), t.Type, nullFloat(t.Relevance))
			if err != nil {
				return fmt.Errorf("import tag %q: %w", t.Value, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				tagIDs[t.ID] = t.ID
				imported++
				continue
			}
			existing, err := tx.FindTags(ctx, FindTagsParams{
				Values:    []string{t.Value},
				Condition: &tagtype.Condition{Types: []string{t.Type}},
			})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				tagIDs[t.ID] = existing[0].ID
			}
		}

		for _, g := range e.Taggings {
			tagID, ok := tagIDs[g.TagID]
			if !ok {
				tagID = g.TagID
			}
			createdAt := g.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			id := g.ID
			if id == "" {
				id = tx.newID()
			}
			res, err := tx.exec(ctx,
				`INSERT INTO taggings (id, tag_id, taggable_id, taggable_type, tagger_id, tagger_type, relevance, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				id, tagID, g.TaggableID, g.TaggableType, g.TaggerID, g.TaggerType,
				nullFloat(g.Relevance), createdAt.Format(time.RFC3339))
			if err != nil {
				return fmt.Errorf("import tagging %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				imported++
			}
		}
		return nil
	})
	return imported, err
}
