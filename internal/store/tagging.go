package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/tagtical/internal/model"
)

// FindTaggings loads taggings joined with their tags, oldest first.
func (s *SQLStore) FindTaggings(ctx context.Context, f TaggingFilter) ([]model.Tagging, error) {
	var where []string
	var args []any

	if f.TaggableType != "" {
		where = append(where, "g.taggable_type = ?")
		args = append(args, f.TaggableType)
	}
	if f.TaggableID != "" {
		where = append(where, "g.taggable_id = ?")
		args = append(args, f.TaggableID)
	}
	switch f.Owners {
	case Unowned:
		where = append(where, "g.tagger_id = ''")
	case ByOwner:
		where = append(where, "g.tagger_id = ?", "g.tagger_type = ?")
		args = append(args, f.Owner.ID, f.Owner.Type)
	}
	if clause, a := conditionSQL(f.Condition, "t.type"); clause != "" {
		where = append(where, clause)
		args = append(args, a...)
	}

	query := `SELECT g.id, g.tag_id, g.taggable_id, g.taggable_type, g.tagger_id, g.tagger_type,
	                 g.relevance, g.created_at, t.id, t.value, t.type, t.relevance
	          FROM taggings g JOIN tags t ON t.id = g.tag_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY g.id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find taggings: %w", err)
	}
	defer rows.Close()

	var out []model.Tagging
	for rows.Next() {
		g, err := scanTagging(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateTagging inserts t, assigning ID and CreatedAt and the default
// relevance when none is set.
func (s *SQLStore) CreateTagging(ctx context.Context, t *model.Tagging) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Relevance == nil && s.defaultRelevance != nil {
		t.Relevance = model.Float(*s.defaultRelevance)
	}
	id := s.newID()
	now := time.Now().UTC()

	_, err := s.exec(ctx,
		`INSERT INTO taggings (id, tag_id, taggable_id, taggable_type, tagger_id, tagger_type, relevance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.TagID, t.TaggableID, t.TaggableType, t.TaggerID, t.TaggerType,
		nullFloat(t.Relevance), now.Format(time.RFC3339))
	if isUniqueViolation(err) {
		return fmt.Errorf("tagging %s on %s/%s: %w", t.TagID, t.TaggableType, t.TaggableID, model.ErrDuplicateTagging)
	}
	if err != nil {
		return fmt.Errorf("insert tagging: %w", err)
	}
	t.ID = id
	t.CreatedAt = now.Truncate(time.Second)
	return nil
}

// UpdateTagging rewrites tag_id, tagger and relevance of the row with t.ID.
func (s *SQLStore) UpdateTagging(ctx context.Context, t model.Tagging) error {
	if t.ID == "" {
		return fmt.Errorf("update tagging: id is required")
	}
	res, err := s.exec(ctx,
		`UPDATE taggings SET tag_id = ?, tagger_id = ?, tagger_type = ?, relevance = ? WHERE id = ?`,
		t.TagID, t.TaggerID, t.TaggerType, nullFloat(t.Relevance), t.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("tagging %s: %w", t.ID, model.ErrDuplicateTagging)
	}
	if err != nil {
		return fmt.Errorf("update tagging: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tagging %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTaggings hard-deletes taggings by id.
func (s *SQLStore) DeleteTaggings(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.exec(ctx, `DELETE FROM taggings WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete taggings: %w", err)
	}
	return nil
}

func scanTagging(row scanner) (model.Tagging, error) {
	var g model.Tagging
	var tag model.Tag
	var rel, tagRel sql.NullFloat64
	var createdAt string

	err := row.Scan(
		&g.ID, &g.TagID, &g.TaggableID, &g.TaggableType, &g.TaggerID, &g.TaggerType,
		&rel, &createdAt, &tag.ID, &tag.Value, &tag.Type, &tagRel,
	)
	if err != nil {
		return g, err
	}
	g.Relevance = floatPtr(rel)
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	tag.Relevance = floatPtr(tagRel)
	g.Tag = &tag
	return g, nil
}
