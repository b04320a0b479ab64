package store

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Stats holds database statistics.
type Stats struct {
	Driver         string          `json:"driver" yaml:"driver"`
	DBPath         string          `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DBSizeBytes    int64           `json:"db_size_bytes,omitempty" yaml:"db_size_bytes,omitempty"`
	TotalTaggables int             `json:"total_taggables" yaml:"total_taggables"`
	TotalTags      int             `json:"total_tags" yaml:"total_tags"`
	TotalTaggings  int             `json:"total_taggings" yaml:"total_taggings"`
	OwnedTaggings  int             `json:"owned_taggings" yaml:"owned_taggings"`
	Levels         []LevelStats    `json:"levels" yaml:"levels"`
	Taggables      []TaggableStats `json:"taggables" yaml:"taggables"`
}

// LevelStats holds per-discriminator tag counts.
type LevelStats struct {
	Type     string `json:"type" yaml:"type"`
	Tags     int    `json:"tags" yaml:"tags"`
	Taggings int    `json:"taggings" yaml:"taggings"`
}

// TaggableStats holds per-taggable-type counts.
type TaggableStats struct {
	Type     string `json:"type" yaml:"type"`
	Count    int    `json:"count" yaml:"count"`
	Untagged int    `json:"untagged" yaml:"untagged"`
	Taggings int    `json:"taggings" yaml:"taggings"`
}

// Stats returns database statistics.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Driver: string(s.dialect), DBPath: s.path}

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	counts := []struct {
		dst   *int
		query string
	}{
		{&st.TotalTaggables, `SELECT COUNT(*) FROM taggables`},
		{&st.TotalTags, `SELECT COUNT(*) FROM tags`},
		{&st.TotalTaggings, `SELECT COUNT(*) FROM taggings`},
		{&st.OwnedTaggings, `SELECT COUNT(*) FROM taggings WHERE tagger_id <> ''`},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query).Scan(c.dst); err != nil {
			return st, fmt.Errorf("stats: %w", err)
		}
	}

	rows, err := s.query(ctx, `
		SELECT t.type, COUNT(DISTINCT t.id), COUNT(g.id)
		FROM tags t LEFT JOIN taggings g ON g.tag_id = t.id
		GROUP BY t.type ORDER BY t.type`)
	if err != nil {
		return st, fmt.Errorf("stats levels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l LevelStats
		if err := rows.Scan(&l.Type, &l.Tags, &l.Taggings); err != nil {
			return st, err
		}
		st.Levels = append(st.Levels, l)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	trows, err := s.query(ctx, `
		SELECT r.type, COUNT(*),
		       SUM(CASE WHEN NOT EXISTS (
		           SELECT 1 FROM taggings g WHERE g.taggable_id = r.id AND g.taggable_type = r.type
		       ) THEN 1 ELSE 0 END),
		       (SELECT COUNT(*) FROM taggings g WHERE g.taggable_type = r.type)
		FROM taggables r GROUP BY r.type ORDER BY r.type`)
	if err != nil {
		return st, fmt.Errorf("stats taggables: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var ts TaggableStats
		if err := trows.Scan(&ts.Type, &ts.Count, &ts.Untagged, &ts.Taggings); err != nil {
			return st, err
		}
		st.Taggables = append(st.Taggables, ts)
	}
	return st, trows.Err()
}

// TagCounts returns tags with their tagging counts, most used first.
func (s *SQLStore) TagCounts(ctx context.Context, p TagCountParams) ([]TagCount, error) {
	var where []string
	var args []any
	if p.TaggableType != "" {
		where = append(where, "g.taggable_type = ?")
		args = append(args, p.TaggableType)
	}
	if clause, a := conditionSQL(p.Condition, "t.type"); clause != "" {
		where = append(where, clause)
		args = append(args, a...)
	}

	query := `SELECT t.id, t.value, t.type, t.relevance, COUNT(*) AS cnt
		FROM tags t JOIN taggings g ON g.tag_id = t.id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` GROUP BY t.id, t.value, t.type, t.relevance`
	if p.AtLeast > 0 {
		query += ` HAVING COUNT(*) >= ?`
		args = append(args, p.AtLeast)
	}
	query += ` ORDER BY cnt DESC, t.value`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tag counts: %w", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var tc TagCount
		tag, err := scanTag(rows, &tc.Count)
		if err != nil {
			return nil, err
		}
		tc.Tag = tag
		out = append(out, tc)
	}
	return out, rows.Err()
}
